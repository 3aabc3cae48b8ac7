package docstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"doccopy/internal/document"
)

// Logger is the minimal logging interface used by this package.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Mongo implements Store on a MongoDB database.
//
// The "_id" field becomes the entry's ID (ObjectIDs as hex, anything else
// stringified) and is excluded from the document's properties, so it maps
// onto the mandatory doc_ID column instead of producing an "_id" column of
// its own. A document without a usable "_id" gets a generated UUID.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger Logger
}

// NewMongo connects to uri and selects dbName. The connection is verified
// with a ping before the store is returned.
func NewMongo(ctx context.Context, uri, dbName string, logger Logger) (*Mongo, error) {
	if dbName == "" {
		return nil, fmt.Errorf("docstore: database name is required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("docstore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("docstore: ping: %w", err)
	}

	if logger == nil {
		logger = log.New(discardWriter{}, "", 0)
	}
	return &Mongo{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) ListCollections(ctx context.Context) ([]string, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("docstore: list collections: %w", err)
	}
	return names, nil
}

func (m *Mongo) ListDocuments(ctx context.Context, collection string) ([]Entry, error) {
	cur, err := m.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("docstore: find %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var entries []Entry
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("docstore: decode document in %s: %w", collection, err)
		}
		entries = append(entries, m.entryFromBSON(collection, raw))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("docstore: cursor %s: %w", collection, err)
	}
	return entries, nil
}

func (m *Mongo) entryFromBSON(collection string, raw bson.M) Entry {
	id := documentID(raw["_id"])

	doc := make(document.Document, len(raw))
	for name, v := range raw {
		if name == "_id" {
			continue
		}
		val, err := document.FromAny(normalizeBSON(v))
		if err != nil {
			m.logger.Printf("skip property: collection=%s doc=%s property=%s: %v",
				collection, id, name, err)
			continue
		}
		doc[name] = val
	}
	return Entry{ID: id, Doc: doc}
}

// documentID renders a document's "_id" as a string.
func documentID(v any) string {
	switch t := v.(type) {
	case nil:
		return uuid.NewString()
	case bson.ObjectID:
		return t.Hex()
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// normalizeBSON maps BSON-specific types onto the generic shapes
// document.FromAny accepts. Anything it does not recognize passes through
// untouched and is left for FromAny to accept or reject.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, 0, len(t))
		for _, e := range t {
			out = append(out, normalizeBSON(e))
		}
		return out
	case bson.ObjectID:
		return t.Hex()
	case bson.DateTime:
		return t.Time().UTC().Format(time.RFC3339Nano)
	case bson.Decimal128:
		return t.String()
	case bson.Binary:
		return base64.StdEncoding.EncodeToString(t.Data)
	case bson.Null:
		return nil
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
