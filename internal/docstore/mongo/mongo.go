// Package mongo backs the document store with MongoDB collections.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mttsite/internal/docstore"
)

type Config struct {
	URI      string
	Database string
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zerolog.Logger
}

func New(ctx context.Context, cfg Config, log *zerolog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}
	log.Info().Str("database", cfg.Database).Msg("MongoDB connected")
	return &Store{client: client, db: client.Database(cfg.Database), log: log}, nil
}

func (s *Store) Create(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	body := bson.M{}
	for k, v := range doc {
		if k != "id" {
			body[k] = v
		}
	}
	oid := primitive.NewObjectID()
	body["_id"] = oid
	if _, err := s.db.Collection(collection).InsertOne(ctx, body); err != nil {
		return "", docstore.Unavailable("create", err)
	}
	return oid.Hex(), nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// ids minted elsewhere (local queue) never exist remotely
		return nil, nil
	}
	var row bson.M
	if err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&row); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, docstore.Unavailable("get", err)
	}
	return toDocument(row)
}

func (s *Store) Update(ctx context.Context, collection, id string, partial docstore.Document) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return docstore.ErrNotFound
	}
	set := bson.M{}
	for k, v := range partial {
		if k != "id" {
			set[k] = v
		}
	}
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return docstore.Unavailable("update", err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return docstore.ErrNotFound
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return docstore.Unavailable("delete", err)
	}
	if res.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	filter, opts := buildQuery(q)
	cur, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, docstore.Unavailable("query", err)
	}
	defer cur.Close(ctx)

	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, docstore.Unavailable("query", err)
	}
	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := toDocument(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func buildQuery(q docstore.Query) (bson.D, *options.FindOptions) {
	keys := make([]string, 0, len(q.Equals))
	for k := range q.Equals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	filter := bson.D{}
	for _, k := range keys {
		filter = append(filter, bson.E{Key: k, Value: q.Equals[k]})
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	return filter, opts
}

func toDocument(row bson.M) (docstore.Document, error) {
	var id string
	if oid, ok := row["_id"].(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	delete(row, "_id")
	doc, err := docstore.FromRecord(row)
	if err != nil {
		return nil, err
	}
	doc["id"] = id
	return doc, nil
}
