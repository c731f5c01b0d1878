package scenario

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenarios/internal/testutil"
	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/docstore/memstore"
	"github.com/roach88/scenarios/pkg/docstore/sqlitestore"
	"github.com/roach88/scenarios/pkg/document"
	"github.com/roach88/scenarios/pkg/template"
)

func testTemplates() template.Set {
	return template.Set{
		"customers": map[string]any{
			"name":    "Default",
			"status":  "inactive",
			"address": map[string]any{"city": "Oslo"},
		},
		"orders": map[string]any{"total": int64(0), "currency": "EUR"},
	}
}

func newTestBuilder(t *testing.T, opts ...Option) (*Builder, *memstore.Store) {
	t.Helper()
	store := memstore.New(memstore.WithIDGenerator(testutil.NewSequentialIDs("doc").Next))
	opts = append([]Option{WithIDGenerator(testutil.NewSequentialIDs("scn"))}, opts...)
	b, err := New(context.Background(), store, testTemplates(), opts...)
	require.NoError(t, err)
	return b, store
}

// shortStore confirms one document fewer than submitted.
type shortStore struct {
	*memstore.Store
}

func (s shortStore) InsertMany(ctx context.Context, collection string, docs []document.Document, opts docstore.InsertOptions) ([]any, error) {
	ids, err := s.Store.InsertMany(ctx, collection, docs, opts)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	return ids[:len(ids)-1], nil
}

// failingStore fails selected operations with err.
type failingStore struct {
	*memstore.Store
	err          error
	failCreate   bool
	failInsertOn string
	failDelete   bool
}

func (s failingStore) CreateCollection(ctx context.Context, name string) error {
	if s.failCreate {
		return s.err
	}
	return s.Store.CreateCollection(ctx, name)
}

func (s failingStore) InsertMany(ctx context.Context, collection string, docs []document.Document, opts docstore.InsertOptions) ([]any, error) {
	if collection == s.failInsertOn {
		return nil, s.err
	}
	return s.Store.InsertMany(ctx, collection, docs, opts)
}

func (s failingStore) DeleteMany(ctx context.Context, collection string) (int64, error) {
	if s.failDelete {
		return 0, s.err
	}
	return s.Store.DeleteMany(ctx, collection)
}

func TestNew_CreatesRegistryCollections(t *testing.T) {
	ctx := context.Background()
	_, store := newTestBuilder(t)

	names, err := store.ListCollectionNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names)
}

func TestNew_PropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(context.Background(), failingStore{Store: memstore.New(), err: boom, failCreate: true}, testTemplates())
	assert.Same(t, boom, err)
}

func TestNew_EmptyTemplateSet(t *testing.T) {
	b, err := New(context.Background(), memstore.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, b.Collections())
	assert.NoError(t, b.Cleanup(context.Background()))
}

func TestCreate_MergePrecedence(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t)

	res, err := b.Create(ctx, Define("customers", document.Document{"name": "Ada", "vip": true}))
	require.NoError(t, err)
	assert.Equal(t, []any{"doc-1"}, res.Collection("customers"))

	docs, err := store.Find(ctx, "customers", nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, document.Document{
		"_id":     "doc-1",
		"name":    "Ada",
		"status":  "inactive",
		"vip":     true,
		"address": map[string]any{"city": "Oslo"},
	}, docs[0])
}

func TestCreate_UnregisteredCollectionUsesEmptyTemplate(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t)

	res, err := b.Create(ctx, Define("audit", document.Document{"event": "login"}))
	require.NoError(t, err)
	assert.Len(t, res.Collection("audit"), 1)

	docs, err := store.Find(ctx, "audit", nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, document.Document{"_id": "doc-1", "event": "login"}, docs[0])
}

func TestCreate_EmptyOverridesInsertNothing(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t)

	res, err := b.Create(ctx, Definition{{Collection: "customers"}})
	require.NoError(t, err)

	ids, ok := res.IDs["customers"]
	require.True(t, ok, "collection must be present in the result")
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	docs, err := store.Find(ctx, "customers", nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCreate_EmptyDefinition(t *testing.T) {
	b, _ := newTestBuilder(t)

	res, err := b.Create(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.Equal(t, "scn-1", res.ScenarioID)
}

func TestCreate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t)

	res, err := b.Create(ctx, Define("customers", document.Document{"status": "active"}))
	require.NoError(t, err)
	require.Len(t, res.Collection("customers"), 1)

	docs, err := store.Find(ctx, "customers", document.Document{docstore.IDField: res.Collection("customers")[0]})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "active", docs[0]["status"])
}

func TestCreate_BatchesInDefinitionOrder(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)

	res, err := b.Create(ctx, Define("orders", document.Document{"total": 5}).
		And("customers", document.Document{"name": "A"}, document.Document{"name": "B"}))
	require.NoError(t, err)

	assert.Equal(t, []any{"doc-1"}, res.Collection("orders"))
	assert.Equal(t, []any{"doc-2", "doc-3"}, res.Collection("customers"))
}

func TestCreate_SameCollectionTwiceAppends(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)

	res, err := b.Create(ctx, Define("customers", document.Document{"name": "A"}).
		And("customers", document.Document{"name": "B"}))
	require.NoError(t, err)
	assert.Equal(t, []any{"doc-1", "doc-2"}, res.Collection("customers"))
}

func TestCreate_ScenarioMarker(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t)

	res, err := b.Create(ctx,
		Define("customers", document.Document{"name": "A", "scenario_id": "caller"}).
			And("orders", document.Document{"total": 10}, document.Document{"total": 20}),
		WithScenarioMarker())
	require.NoError(t, err)
	assert.Equal(t, "scn-1", res.ScenarioID)

	filter := b.MarkerFilter(res)
	customers, err := store.Find(ctx, "customers", filter)
	require.NoError(t, err)
	assert.Len(t, customers, 1, "marker overrides a caller field of the same name")

	orders, err := store.Find(ctx, "orders", filter)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestCreate_NoMarkerByDefault(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t)

	_, err := b.Create(ctx, Define("customers", document.Document{"name": "A"}))
	require.NoError(t, err)

	docs, err := store.Find(ctx, "customers", nil)
	require.NoError(t, err)
	_, hasMarker := docs[0][DefaultMarkerField]
	assert.False(t, hasMarker)
}

func TestCreate_CustomMarkerField(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t, WithMarkerField("test_run"))

	res, err := b.Create(ctx, Define("orders", document.Document{}), WithScenarioMarker())
	require.NoError(t, err)

	docs, err := store.Find(ctx, "orders", document.Document{"test_run": res.ScenarioID})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, "test_run", b.MarkerField())
}

func TestCreate_RepeatedCallsGetFreshIDs(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)
	def := Define("customers", document.Document{"name": "A"})

	first, err := b.Create(ctx, def)
	require.NoError(t, err)
	second, err := b.Create(ctx, def)
	require.NoError(t, err)

	assert.NotEqual(t, first.ScenarioID, second.ScenarioID)
	assert.NotEqual(t, first.Collection("customers"), second.Collection("customers"))
}

func TestCreate_DefaultScenarioIDsAreUnique(t *testing.T) {
	b, err := New(context.Background(), memstore.New(), testTemplates())
	require.NoError(t, err)

	first, err := b.Create(context.Background(), nil)
	require.NoError(t, err)
	second, err := b.Create(context.Background(), nil)
	require.NoError(t, err)

	assert.IsType(t, "", first.ScenarioID)
	assert.NotEqual(t, first.ScenarioID, second.ScenarioID)
}

func TestCreate_CountMismatch(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	b, err := New(ctx, shortStore{Store: mem}, testTemplates())
	require.NoError(t, err)

	res, err := b.Create(ctx, Definition{
		{Collection: "orders"},
		{Collection: "customers", Documents: []document.Document{{"name": "A"}, {"name": "B"}}},
		{Collection: "audit", Documents: []document.Document{{"event": "never"}}},
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrInsertion))
	assert.True(t, IsInsertionError(err))

	var ie *InsertionError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "customers", ie.Collection)
	assert.Equal(t, 2, ie.Submitted)
	assert.Equal(t, 1, ie.Confirmed)
	assert.Contains(t, err.Error(), "failed to insert 2 documents")

	audit, err := mem.Find(ctx, "audit", nil)
	require.NoError(t, err)
	assert.Empty(t, audit, "batches after the failure are not attempted")
}

func TestCreate_DuplicateIDInSQLiteIsInsertionFailure(t *testing.T) {
	ctx := context.Background()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })

	b, err := New(ctx, store, testTemplates())
	require.NoError(t, err)

	_, err = b.Create(ctx, Define("customers", document.Document{"_id": "c1"}))
	require.NoError(t, err)

	_, err = b.Create(ctx, Define("customers", document.Document{"_id": "c1"}, document.Document{"_id": "c2"}))
	var ie *InsertionError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.Submitted)
	assert.Equal(t, 1, ie.Confirmed)
}

func TestCreate_InsertCommentCarriesScenarioID(t *testing.T) {
	ctx := context.Background()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(ctx) })

	b, err := New(ctx, store, testTemplates(), WithIDGenerator(testutil.NewFixedScenarioID("scn-42")))
	require.NoError(t, err)

	_, err = b.Create(ctx, Define("orders", document.Document{}))
	require.NoError(t, err)

	comments, err := store.Comments(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"ScenarioBuilder scn-42"}, comments)
}

func TestCreate_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	b, err := New(context.Background(), failingStore{Store: memstore.New(), err: boom, failInsertOn: "orders"}, testTemplates())
	require.NoError(t, err)

	res, err := b.Create(context.Background(), Define("orders", document.Document{}))
	assert.Nil(t, res)
	assert.Same(t, boom, err)
}

func TestCreate_NonDocumentTemplate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	b, err := New(ctx, store, template.Set{
		"customers": map[string]any{"name": "A"},
		"tags":      []any{"a", "b"},
		"nothing":   nil,
	})
	require.NoError(t, err)

	for _, name := range []string{"tags", "nothing"} {
		_, err = b.Create(ctx, Define("customers", document.Document{}).And(name, document.Document{"x": 1}))
		var te *TemplateError
		require.True(t, errors.As(err, &te), name)
		assert.Equal(t, name, te.Collection)

		docs, err := store.Find(ctx, name, nil)
		require.NoError(t, err)
		assert.Empty(t, docs)
	}

	// Empty batches never read the template.
	res, err := b.Create(ctx, Definition{{Collection: "tags"}, {Collection: "nothing"}})
	require.NoError(t, err)
	assert.Equal(t, map[string][]any{"tags": {}, "nothing": {}}, res.IDs)
}

func TestCreate_DoesNotMutateTemplatesOrOverrides(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBuilder(t)

	override := document.Document{"name": "A"}
	_, err := b.Create(ctx, Define("customers", override), WithScenarioMarker())
	require.NoError(t, err)

	assert.Equal(t, document.Document{"name": "A"}, override)
	tmpl, ok := b.Template("customers")
	require.True(t, ok)
	assert.Equal(t, testTemplates()["customers"], tmpl)
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	b, store := newTestBuilder(t)

	_, err := b.Create(ctx, Define("customers", document.Document{}, document.Document{}).
		And("orders", document.Document{}).
		And("audit", document.Document{}))
	require.NoError(t, err)

	require.NoError(t, b.Cleanup(ctx))
	for _, name := range b.Collections() {
		docs, err := store.Find(ctx, name, nil)
		require.NoError(t, err)
		assert.Empty(t, docs, name)
	}

	audit, err := store.Find(ctx, "audit", nil)
	require.NoError(t, err)
	assert.Len(t, audit, 1, "unregistered collections are not cleaned")

	// idempotent
	require.NoError(t, b.Cleanup(ctx))
	require.NoError(t, b.Cleanup(ctx))
}

func TestCleanup_PropagatesStoreError(t *testing.T) {
	boom := errors.New("boom")
	b, err := New(context.Background(), failingStore{Store: memstore.New(), err: boom, failDelete: true}, testTemplates())
	require.NoError(t, err)
	assert.Same(t, boom, b.Cleanup(context.Background()))
}

func TestCollections_ReturnsCopy(t *testing.T) {
	b, _ := newTestBuilder(t)

	names := b.Collections()
	assert.Equal(t, []string{"customers", "orders"}, names)
	names[0] = "mutated"
	assert.Equal(t, []string{"customers", "orders"}, b.Collections())
}

func TestTemplate_ReturnsCopy(t *testing.T) {
	templates := testTemplates()
	b, err := New(context.Background(), memstore.New(), templates)
	require.NoError(t, err)

	templates["customers"].(map[string]any)["name"] = "changed after New"
	got, ok := b.Template("customers")
	require.True(t, ok)
	assert.Equal(t, "Default", got.(map[string]any)["name"])

	got.(map[string]any)["name"] = "changed by caller"
	again, _ := b.Template("customers")
	assert.Equal(t, "Default", again.(map[string]any)["name"])

	_, ok = b.Template("missing")
	assert.False(t, ok)
}
