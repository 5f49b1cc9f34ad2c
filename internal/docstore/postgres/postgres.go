// Package postgres stores documents as JSONB rows in a single table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"mttsite/internal/docstore"
)

type Store struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func New(db *dbpg.DB, log *zerolog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// MigrateUp applies every *.up.sql file in dir in lexical order.
func (s *Store) MigrateUp(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := s.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	s.log.Info().Str("dir", dir).Int("files", len(files)).Msg("migrations applied")
	return nil
}

func (s *Store) Create(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	body, err := encode(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	query := `
		INSERT INTO documents (collection, id, doc)
		VALUES ($1, $2, $3::jsonb)
	`
	if _, err := s.db.ExecContext(ctx, query, collection, id, body); err != nil {
		return "", classify("create", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	query := `
		SELECT doc FROM documents
		WHERE collection = $1 AND id = $2
	`
	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get", err)
	}
	return decode(id, raw)
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	body, err := encode(partial)
	if err != nil {
		return err
	}
	query := `
		UPDATE documents
		SET doc = doc || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`
	res, err := s.db.ExecContext(ctx, query, collection, id, body)
	if err != nil {
		return classify("update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return classify("delete", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	query, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("query", err)
	}
	defer rows.Close()

	docs := make([]docstore.Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify("query", err)
		}
		doc, err := decode(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("query", err)
	}
	return docs, nil
}

func (s *Store) Close() error {
	return s.db.Master.Close()
}

// buildQuery renders equality filters as JSONB containment and orders by the
// JSONB value so numbers compare numerically.
func buildQuery(collection string, q docstore.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{collection}
	b.WriteString("SELECT id, doc FROM documents WHERE collection = $1")

	if len(q.Equals) > 0 {
		filter, err := json.Marshal(q.Equals)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, string(filter))
		fmt.Fprintf(&b, " AND doc @> $%d::jsonb", len(args))
	}
	if q.OrderBy != "" {
		args = append(args, q.OrderBy)
		fmt.Fprintf(&b, " ORDER BY doc -> $%d", len(args))
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	return b.String(), args, nil
}

func encode(doc docstore.Document) (string, error) {
	body := doc.Clone()
	delete(body, "id")
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(raw), nil
}

func decode(id string, raw []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	if doc == nil {
		doc = docstore.Document{}
	}
	doc["id"] = id
	return doc, nil
}

const insufficientPrivilege pq.ErrorCode = "42501"

// classify keeps statement-level mistakes as plain errors and reports
// everything else as unavailability. A denied permission counts as
// unavailable even though it shares class 42 with syntax errors.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == insufficientPrivilege {
			return docstore.Unavailable(op, err)
		}
		switch pqErr.Code.Class() {
		case "22", "23", "42":
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return docstore.Unavailable(op, err)
}
