// Package mongostore is the docstore.Store for a real MongoDB deployment.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/document"
)

// codeNamespaceExists is returned by the create command for an existing
// collection.
const codeNamespaceExists = 48

// Store wraps one MongoDB database.
type Store struct {
	db         *mongo.Database
	ownsClient bool
}

var _ docstore.Store = (*Store)(nil)

// New wraps an existing database handle. Close does not disconnect the
// client; its owner is responsible for that.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect dials uri, verifies the connection with a ping and returns a store
// for database name. The store owns the client and disconnects it on Close.
func Connect(ctx context.Context, uri, name string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", uri, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}
	return &Store{db: client.Database(name), ownsClient: true}, nil
}

// Database returns the wrapped database handle.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// NewObjectID returns a fresh ObjectID. It has the shape expected by
// scenario.IDGeneratorFunc.
func NewObjectID() any {
	return primitive.NewObjectID()
}

// InsertMany implements docstore.Store. The driver assigns an ObjectID to
// documents without _id before sending them.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []document.Document, opts docstore.InsertOptions) ([]any, error) {
	if err := docstore.ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []any{}, nil
	}

	batch := make([]any, len(docs))
	for i, doc := range docs {
		batch[i] = toBSON(doc)
	}

	insertOpts := options.InsertMany()
	if opts.Comment != "" {
		insertOpts.SetComment(opts.Comment)
	}
	res, err := s.db.Collection(collection).InsertMany(ctx, batch, insertOpts)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

// DeleteMany implements docstore.Store.
func (s *Store) DeleteMany(ctx context.Context, collection string) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CreateCollection implements docstore.Store. An existing collection is not
// an error.
func (s *Store) CreateCollection(ctx context.Context, name string) error {
	if err := docstore.ValidateCollectionName(name); err != nil {
		return err
	}
	err := s.db.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
		return nil
	}
	return err
}

// ListCollectionNames implements docstore.Store.
func (s *Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Find implements docstore.Store. Results come back in natural order.
func (s *Store) Find(ctx context.Context, collection string, filter document.Document) ([]document.Document, error) {
	query := toBSON(filter)

	cur, err := s.db.Collection(collection).Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, fromBSONMap(m))
	}
	return docs, nil
}

// Close implements docstore.Store.
func (s *Store) Close(ctx context.Context) error {
	if !s.ownsClient {
		return nil
	}
	return s.db.Client().Disconnect(ctx)
}
