// Package scenario builds per-test document scenarios on top of a
// docstore.Store.
//
// A Builder is constructed once per test worker with the template set loaded
// by package template. Each Create call merges the declared overrides with
// the template of their collection and inserts them, one InsertMany per
// batch. Cleanup empties every collection that has a template.
//
// The Builder does no locking. Concurrent tests need one Builder each,
// ideally against separate databases.
package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/document"
	"github.com/roach88/scenarios/pkg/template"
)

// DefaultMarkerField is the field written on every document when a scenario
// marker is requested.
const DefaultMarkerField = "scenario_id"

// CommentPrefix starts the comment attached to every insert.
const CommentPrefix = "ScenarioBuilder"

// Builder inserts scenario documents and cleans them up again.
type Builder struct {
	store       docstore.Store
	templates   template.Set
	ids         IDGenerator
	markerField string
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger for insert and cleanup diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithIDGenerator replaces the default UUIDv7 scenario identifiers.
func WithIDGenerator(gen IDGenerator) Option {
	return func(b *Builder) {
		if gen != nil {
			b.ids = gen
		}
	}
}

// WithMarkerField renames the scenario marker field.
func WithMarkerField(name string) Option {
	return func(b *Builder) {
		if name != "" {
			b.markerField = name
		}
	}
}

// New returns a Builder over store. The template set is copied, and every
// collection that has a template is created in the store if missing. Store
// errors are returned as-is.
func New(ctx context.Context, store docstore.Store, templates template.Set, opts ...Option) (*Builder, error) {
	b := &Builder{
		store:       store,
		templates:   templates.Clone(),
		ids:         UUIDGenerator{},
		markerField: DefaultMarkerField,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, name := range b.templates.Names() {
		if err := store.CreateCollection(ctx, name); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Collections returns the registered collection names in sorted order. The
// slice is a fresh copy.
func (b *Builder) Collections() []string {
	return b.templates.Names()
}

// Template returns a copy of the template registered for collection.
func (b *Builder) Template(collection string) (any, bool) {
	t, ok := b.templates[collection]
	if !ok {
		return nil, false
	}
	return document.CloneValue(t), true
}

// MarkerField returns the field name used for scenario markers.
func (b *Builder) MarkerField() string {
	return b.markerField
}

// Store returns the store the Builder writes to.
func (b *Builder) Store() docstore.Store {
	return b.store
}

type createConfig struct {
	marker bool
}

// CreateOption tunes a single Create call.
type CreateOption func(*createConfig)

// WithScenarioMarker writes the scenario identifier into every inserted
// document under the marker field. The marker overrides a field of the same
// name in the template or the override.
func WithScenarioMarker() CreateOption {
	return func(c *createConfig) {
		c.marker = true
	}
}

// Result holds what one Create call inserted.
type Result struct {
	// ScenarioID is shared by every document of the call.
	ScenarioID any

	// IDs maps each collection named in the definition to the identifiers
	// the store returned, in submission order. A collection declared with no
	// documents maps to an empty slice.
	IDs map[string][]any
}

// Collection returns the identifiers inserted into name.
func (r *Result) Collection(name string) []any {
	return r.IDs[name]
}

// Create inserts the documents of def, batch by batch, in order. Each
// override is merged over a copy of its collection's template; a collection
// without a template uses an empty one. A batch with no documents only
// records an empty identifier list, whatever its template holds.
//
// If the store confirms fewer or more documents than a batch submitted,
// Create stops and returns an *InsertionError. Batches inserted before the
// failure stay in the store until the next Cleanup.
func (b *Builder) Create(ctx context.Context, def Definition, opts ...CreateOption) (*Result, error) {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	scenarioID := b.ids.Generate()
	insertOpts := docstore.InsertOptions{
		Comment: fmt.Sprintf("%s %v", CommentPrefix, scenarioID),
	}

	res := &Result{
		ScenarioID: scenarioID,
		IDs:        make(map[string][]any, len(def)),
	}

	for _, batch := range def {
		if _, ok := res.IDs[batch.Collection]; !ok {
			res.IDs[batch.Collection] = []any{}
		}
		if len(batch.Documents) == 0 {
			continue
		}

		base, err := b.baseDocument(batch.Collection)
		if err != nil {
			return nil, err
		}

		docs := make([]document.Document, len(batch.Documents))
		for i, override := range batch.Documents {
			merged := document.Merge(base, override)
			if cfg.marker {
				merged[b.markerField] = scenarioID
			}
			docs[i] = merged
		}

		ids, err := b.store.InsertMany(ctx, batch.Collection, docs, insertOpts)
		if err != nil {
			return nil, err
		}
		if len(ids) != len(docs) {
			return nil, &InsertionError{
				Collection: batch.Collection,
				Submitted:  len(docs),
				Confirmed:  len(ids),
			}
		}

		res.IDs[batch.Collection] = append(res.IDs[batch.Collection], ids...)
		b.logger.Debug("inserted scenario batch",
			"scenario", scenarioID,
			"collection", batch.Collection,
			"count", len(ids))
	}

	return res, nil
}

// baseDocument returns the template for collection as a document. A missing
// template is an empty document.
func (b *Builder) baseDocument(collection string) (document.Document, error) {
	t, ok := b.templates[collection]
	if !ok {
		return nil, nil
	}
	doc, ok := document.As(t)
	if !ok {
		return nil, &TemplateError{Collection: collection, Value: t}
	}
	return doc, nil
}

// Cleanup deletes every document from every registered collection. It stops
// at the first store error. Documents inserted into collections without a
// template are not touched.
func (b *Builder) Cleanup(ctx context.Context) error {
	for _, name := range b.templates.Names() {
		n, err := b.store.DeleteMany(ctx, name)
		if err != nil {
			return err
		}
		if n > 0 {
			b.logger.Debug("cleaned collection", "collection", name, "deleted", n)
		}
	}
	return nil
}

// MarkerFilter returns a Find filter that selects the documents created by
// the Create call that returned res with WithScenarioMarker.
func (b *Builder) MarkerFilter(res *Result) document.Document {
	return document.Document{b.markerField: res.ScenarioID}
}
