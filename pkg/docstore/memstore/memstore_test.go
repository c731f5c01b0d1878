package memstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/document"
)

func sequentialIDs() func() any {
	n := 0
	return func() any {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestInsertMany_AssignsIDsInOrder(t *testing.T) {
	ctx := context.Background()
	s := New(WithIDGenerator(sequentialIDs()))

	ids, err := s.InsertMany(ctx, "customers", []document.Document{
		{"name": "A"},
		{"name": "B", "_id": "fixed"},
		{"name": "C"},
	}, docstore.InsertOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{"id-1", "fixed", "id-2"}, ids)

	docs, err := s.Find(ctx, "customers", nil)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, document.Document{"_id": "id-1", "name": "A"}, docs[0])
	assert.Equal(t, "fixed", docs[1]["_id"])
}

func TestInsertMany_CopiesInput(t *testing.T) {
	ctx := context.Background()
	s := New()

	in := document.Document{"name": "A"}
	_, err := s.InsertMany(ctx, "customers", []document.Document{in}, docstore.InsertOptions{})
	require.NoError(t, err)

	in["name"] = "mutated"
	_, hasID := in["_id"]
	assert.False(t, hasID, "input document must not gain an _id")

	docs, err := s.Find(ctx, "customers", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", docs[0]["name"])

	docs[0]["name"] = "mutated again"
	again, err := s.Find(ctx, "customers", nil)
	require.NoError(t, err)
	assert.Equal(t, "A", again[0]["name"])
}

func TestInsertMany_DuplicateKeyRejectsBatch(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.InsertMany(ctx, "customers", []document.Document{{"_id": 1}}, docstore.InsertOptions{})
	require.NoError(t, err)

	_, err = s.InsertMany(ctx, "customers", []document.Document{{"_id": 2}, {"_id": 1}}, docstore.InsertOptions{})
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "customers", dup.Collection)

	_, err = s.InsertMany(ctx, "customers", []document.Document{{"_id": 3}, {"_id": 3}}, docstore.InsertOptions{})
	require.Error(t, err)

	docs, err := s.Find(ctx, "customers", nil)
	require.NoError(t, err)
	assert.Len(t, docs, 1, "rejected batches leave no documents behind")
}

func TestInsertMany_InvalidName(t *testing.T) {
	_, err := New().InsertMany(context.Background(), "bad$name", []document.Document{{}}, docstore.InsertOptions{})
	assert.True(t, errors.Is(err, docstore.ErrInvalidCollectionName))
}

func TestCreateCollection_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateCollection(ctx, "customers"))
	require.NoError(t, s.CreateCollection(ctx, "customers"))
	require.NoError(t, s.CreateCollection(ctx, "orders"))

	names, err := s.ListCollectionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)
}

func TestDeleteMany_KeepsCollection(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.InsertMany(ctx, "customers", []document.Document{{"a": 1}, {"a": 2}}, docstore.InsertOptions{})
	require.NoError(t, err)

	n, err := s.DeleteMany(ctx, "customers")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.DeleteMany(ctx, "customers")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.DeleteMany(ctx, "never-created")
	require.NoError(t, err)
	assert.Zero(t, n)

	names, err := s.ListCollectionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, names)

	// ids are released with the documents
	_, err = s.InsertMany(ctx, "customers", []document.Document{{"_id": "x"}}, docstore.InsertOptions{})
	require.NoError(t, err)
	_, err = s.DeleteMany(ctx, "customers")
	require.NoError(t, err)
	_, err = s.InsertMany(ctx, "customers", []document.Document{{"_id": "x"}}, docstore.InsertOptions{})
	require.NoError(t, err)
}

func TestFind_Filter(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.InsertMany(ctx, "customers", []document.Document{
		{"name": "A", "status": "active"},
		{"name": "B", "status": "blocked"},
		{"name": "C", "status": "active"},
	}, docstore.InsertOptions{})
	require.NoError(t, err)

	docs, err := s.Find(ctx, "customers", document.Document{"status": "active"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "A", docs[0]["name"])
	assert.Equal(t, "C", docs[1]["name"])

	docs, err = s.Find(ctx, "missing", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.InsertMany(ctx, "customers", []document.Document{{"a": 1}}, docstore.InsertOptions{})
	require.NoError(t, err)
	_, err = s.InsertMany(ctx, "audit", []document.Document{{"a": 1}}, docstore.InsertOptions{})
	require.NoError(t, err)

	require.NoError(t, docstore.Purge(ctx, s))

	for _, name := range []string{"customers", "audit"} {
		docs, err := s.Find(ctx, name, nil)
		require.NoError(t, err)
		assert.Empty(t, docs, name)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().InsertMany(ctx, "customers", []document.Document{{}}, docstore.InsertOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
