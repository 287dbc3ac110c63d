package sink

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/table"
)

const defaultMongoDatabase = "tmdbtsv"

// mongoSink stores each relation as a collection.
type mongoSink struct {
	client *mongo.Client
	db     *mongo.Database
	prefix string
}

func openMongo(_ context.Context, cfg config.Sink) (*mongoSink, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	name := strings.TrimSpace(cfg.Database)
	if name == "" {
		name = defaultMongoDatabase
	}
	return &mongoSink{client: client, db: client.Database(name), prefix: cfg.TablePrefix}, nil
}

func (m *mongoSink) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *mongoSink) Close() error {
	return m.client.Disconnect(context.Background())
}

func (m *mongoSink) Load(ctx context.Context, t *table.Table) (int, error) {
	coll := m.db.Collection(m.prefix + t.Name)
	if err := coll.Drop(ctx); err != nil {
		return 0, &LoadError{Relation: t.Name, Err: fmt.Errorf("drop collection: %w", err)}
	}
	docs := documents(t)
	if len(docs) == 0 {
		return 0, nil
	}
	res, err := coll.InsertMany(ctx, docs)
	if err != nil {
		return 0, &LoadError{Relation: t.Name, Err: fmt.Errorf("insert: %w", err)}
	}
	return len(res.InsertedIDs), nil
}

// documents converts rows into documents keyed by column, in column order.
func documents(t *table.Table) []any {
	docs := make([]any, 0, t.Len())
	for i := range t.Rows {
		doc := make(bson.D, 0, len(t.Columns))
		for _, col := range t.Columns {
			doc = append(doc, bson.E{Key: mongoKey(col), Value: mongoValue(t.Cell(i, col))})
		}
		docs = append(docs, doc)
	}
	return docs
}

// mongoKey replaces dots, which MongoDB reads as field paths.
func mongoKey(column string) string {
	return strings.ReplaceAll(column, ".", "_")
}

func mongoValue(c table.Cell) any {
	switch c.Kind {
	case table.Null:
		return nil
	case table.Bool:
		return c.Text == "true"
	case table.Number:
		if n, err := strconv.ParseInt(c.Text, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(c.Text, 64); err == nil {
			return f
		}
		return c.Text
	default:
		return c.Text
	}
}
