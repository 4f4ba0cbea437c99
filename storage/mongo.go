package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Store = (*MongoStore)(nil)

// mongoChunkBytes keeps every chunk document well under the 16 MiB BSON limit.
const mongoChunkBytes = 8 << 20

type mongoEntry struct {
	Key    string `bson:"_id"`
	Value  string `bson:"value"`
	Chunks int    `bson:"chunks"`
}

type mongoChunk struct {
	ID   string `bson:"_id"`
	Key  string `bson:"key"`
	Seq  int    `bson:"seq"`
	Data []byte `bson:"data"`
}

// MongoStore keeps one document per key. Values larger than mongoChunkBytes
// are split across a companion chunks collection and the entry only records
// how many chunks to read back. Apply always runs inside a transaction, so the
// server must be a replica set (a single-node one is enough).
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	chunks *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to reach mongo: %w", err)
	}
	db := client.Database(database)
	return &MongoStore{
		client: client,
		coll:   db.Collection(kvTable),
		chunks: db.Collection(kvTable + "_chunks"),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) (string, bool, error) {
	var doc mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if doc.Chunks == 0 {
		return doc.Value, true, nil
	}

	cur, err := s.chunks.Find(ctx, bson.M{"key": key}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s chunks: %w", key, err)
	}
	var chunks []mongoChunk
	if err := cur.All(ctx, &chunks); err != nil {
		return "", false, fmt.Errorf("failed to read %s chunks: %w", key, err)
	}
	value, err := joinChunks(chunks, doc.Chunks)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *MongoStore) Apply(ctx context.Context, mutations ...Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, m := range mutations {
			if err := s.apply(sessCtx, m); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) apply(ctx context.Context, m Mutation) error {
	if _, err := s.chunks.DeleteMany(ctx, bson.M{"key": m.Key}); err != nil {
		return fmt.Errorf("failed to drop %s chunks: %w", m.Key, err)
	}
	if m.Delete {
		if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": m.Key}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", m.Key, err)
		}
		return nil
	}

	entry := mongoEntry{Key: m.Key, Value: m.Value}
	if parts := splitChunks(m.Value, mongoChunkBytes); len(parts) > 1 {
		docs := make([]interface{}, len(parts))
		for i, p := range parts {
			docs[i] = mongoChunk{ID: fmt.Sprintf("%s/%06d", m.Key, i), Key: m.Key, Seq: i, Data: p}
		}
		if _, err := s.chunks.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to write %s chunks: %w", m.Key, err)
		}
		entry.Value = ""
		entry.Chunks = len(parts)
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": m.Key}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", m.Key, err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// splitChunks cuts value into pieces of at most size bytes. A value that fits
// comes back as a single piece.
func splitChunks(value string, size int) [][]byte {
	if len(value) <= size {
		return [][]byte{[]byte(value)}
	}
	parts := make([][]byte, 0, (len(value)+size-1)/size)
	for len(value) > 0 {
		n := min(size, len(value))
		parts = append(parts, []byte(value[:n]))
		value = value[n:]
	}
	return parts
}

// joinChunks reassembles chunks sorted by seq and fails unless exactly want
// consecutive pieces are present.
func joinChunks(chunks []mongoChunk, want int) (string, error) {
	if len(chunks) != want {
		return "", fmt.Errorf("expected %d chunks, found %d", want, len(chunks))
	}
	var buf bytes.Buffer
	for i, c := range chunks {
		if c.Seq != i {
			return "", fmt.Errorf("chunk %d missing", i)
		}
		buf.Write(c.Data)
	}
	return buf.String(), nil
}
