// Package surreal backs the document store with SurrealDB over its RPC protocol.
package surreal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"mttsite/internal/docstore"
)

type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

type Store struct {
	db  *surrealdb.DB
	log *zerolog.Logger
}

func New(ctx context.Context, cfg Config, log *zerolog.Logger) (*Store, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}
	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to authenticate: %w", err)
		}
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}
	log.Info().Str("url", cfg.URL).Str("ns", cfg.Namespace).Str("db", cfg.Database).Msg("SurrealDB connected")
	return &Store{db: db, log: log}, nil
}

func (s *Store) Create(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	id := uuid.NewString()
	body := doc.Clone()
	delete(body, "id")
	if _, err := surrealdb.Create[map[string]any](ctx, s.db, models.NewRecordID(collection, id), map[string]any(body)); err != nil {
		return "", docstore.Unavailable("create", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	res, err := surrealdb.Select[map[string]any](ctx, s.db, models.NewRecordID(collection, id))
	if err != nil {
		return nil, docstore.Unavailable("get", err)
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return toDocument(id, *res)
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	body := partial.Clone()
	delete(body, "id")
	res, err := surrealdb.Merge[map[string]any](ctx, s.db, models.NewRecordID(collection, id), map[string]any(body))
	if err != nil {
		return docstore.Unavailable("update", err)
	}
	if res == nil || len(*res) == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := surrealdb.Delete[map[string]any](ctx, s.db, models.NewRecordID(collection, id))
	if err != nil {
		return docstore.Unavailable("delete", err)
	}
	if res == nil || len(*res) == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	sql, vars := buildQuery(collection, q)
	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, sql, vars)
	if err != nil {
		return nil, docstore.Unavailable("query", err)
	}

	docs := make([]docstore.Document, 0)
	if results == nil || len(*results) == 0 {
		return docs, nil
	}
	first := (*results)[0]
	if first.Status != "OK" {
		return nil, docstore.Unavailable("query", fmt.Errorf("query status %s", first.Status))
	}
	for _, row := range first.Result {
		id := recordKey(row["id"])
		doc, err := toDocument(id, row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// buildQuery embeds only validated field names; values always travel as variables.
func buildQuery(collection string, q docstore.Query) (string, map[string]any) {
	vars := map[string]any{"tb": collection}
	var b strings.Builder
	b.WriteString("SELECT * FROM type::table($tb)")

	keys := make([]string, 0, len(q.Equals))
	for k := range q.Equals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		name := fmt.Sprintf("f%d", i)
		vars[name] = q.Equals[k]
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		fmt.Fprintf(&b, "%s = $%s", k, name)
	}
	if q.OrderBy != "" {
		fmt.Fprintf(&b, " ORDER BY %s", q.OrderBy)
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	return b.String(), vars
}

func recordKey(v any) string {
	switch rid := v.(type) {
	case models.RecordID:
		return fmt.Sprint(rid.ID)
	case *models.RecordID:
		if rid != nil {
			return fmt.Sprint(rid.ID)
		}
	}
	return ""
}

func toDocument(id string, row map[string]any) (docstore.Document, error) {
	body := make(map[string]any, len(row))
	for k, v := range row {
		if k != "id" {
			body[k] = v
		}
	}
	doc, err := docstore.FromRecord(body)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return doc, nil
}
