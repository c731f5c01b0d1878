// Package scenariotest wires scenario building into Go tests.
//
// A Session is opened once per test binary, typically from TestMain, and
// owns the store connection, the loaded templates and the Builder. Tests
// call Begin before they run to start from empty collections:
//
//	var session *scenariotest.Session
//
//	func TestMain(m *testing.M) {
//		os.Exit(scenariotest.Main(m, &session))
//	}
//
//	func TestCheckout(t *testing.T) {
//		b := session.Begin(t)
//		res, err := b.Create(ctx, scenario.Define("customers", document.Document{"status": "active"}))
//		...
//	}
package scenariotest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/spf13/pflag"

	"github.com/roach88/scenarios/internal/config"
	"github.com/roach88/scenarios/pkg/docstore"
	"github.com/roach88/scenarios/pkg/docstore/stores"
	"github.com/roach88/scenarios/pkg/scenario"
	"github.com/roach88/scenarios/pkg/template"
)

// Store drivers accepted by Open.
const (
	DriverMongo  = stores.DriverMongo
	DriverSQLite = stores.DriverSQLite
	DriverMemory = stores.DriverMemory
)

// Options are the resolved harness settings: templates path, database URL,
// database name and store driver.
type Options = config.Options

// DefaultOptions returns the built-in settings.
func DefaultOptions() Options {
	return config.Defaults()
}

// Session holds the per-binary scenario state.
type Session struct {
	options    Options
	store      docstore.Store
	builder    *scenario.Builder
	templates  template.Set
	cleanupAll bool
	logger     *slog.Logger
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	logger         *slog.Logger
	cleanupAll     bool
	builderOptions []scenario.Option
	store          docstore.Store
}

// WithLogger routes session, loader and builder diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CleanupAllCollections makes Reset empty every collection in the database
// instead of only the ones with a template.
func CleanupAllCollections() Option {
	return func(c *sessionConfig) {
		c.cleanupAll = true
	}
}

// WithBuilderOptions passes options through to scenario.New.
func WithBuilderOptions(opts ...scenario.Option) Option {
	return func(c *sessionConfig) {
		c.builderOptions = append(c.builderOptions, opts...)
	}
}

// WithStore uses store instead of opening one from the options. The session
// still closes it.
func WithStore(store docstore.Store) Option {
	return func(c *sessionConfig) {
		c.store = store
	}
}

// Open connects the store, loads the templates and builds the Builder. A
// failure at any step closes what was already opened.
func Open(ctx context.Context, opts Options, sessionOpts ...Option) (*Session, error) {
	cfg := sessionConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range sessionOpts {
		opt(&cfg)
	}

	store := cfg.store
	if store == nil {
		var err error
		store, err = stores.Open(ctx, opts.DBDriver, opts.DBURL, opts.DBName)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	templates, err := template.LoadDir(opts.TemplatesPath, template.WithLogger(cfg.logger))
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("load templates: %w", err)
	}

	builderOpts := append([]scenario.Option{scenario.WithLogger(cfg.logger)}, cfg.builderOptions...)
	builder, err := scenario.New(ctx, store, templates, builderOpts...)
	if err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("create builder: %w", err)
	}

	cfg.logger.Info("scenario session opened",
		"driver", opts.DBDriver,
		"database", opts.DBName,
		"templates", len(templates))

	return &Session{
		options:    opts,
		store:      store,
		builder:    builder,
		templates:  templates,
		cleanupAll: cfg.cleanupAll,
		logger:     cfg.logger,
	}, nil
}

// OpenFromArgs resolves the options from args (flags unrelated to the
// harness are ignored), the environment, the config file and the defaults,
// then calls Open.
func OpenFromArgs(ctx context.Context, args []string, sessionOpts ...Option) (*Session, error) {
	fs := pflag.NewFlagSet("scenarios", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	cfg := sessionConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range sessionOpts {
		opt(&cfg)
	}

	resolved, err := config.Resolve(fs, config.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	return Open(ctx, resolved.Options, sessionOpts...)
}

// Main opens a session from os.Args, stores it in *dst, runs the tests and
// closes the session. The result is the process exit code.
func Main(m *testing.M, dst **Session, opts ...Option) int {
	ctx := context.Background()
	s, err := OpenFromArgs(ctx, os.Args[1:], opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scenariotest: %v\n", err)
		return 1
	}
	*dst = s

	code := m.Run()
	if err := s.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scenariotest: close: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// Options returns the options the session was opened with.
func (s *Session) Options() Options {
	return s.options
}

// Builder returns the session's scenario builder.
func (s *Session) Builder() *scenario.Builder {
	return s.builder
}

// Store returns the session's store, for assertions against stored state.
func (s *Session) Store() docstore.Store {
	return s.store
}

// Templates returns a copy of the loaded templates.
func (s *Session) Templates() template.Set {
	return s.templates.Clone()
}

// Reset empties the registered collections, or every collection with
// CleanupAllCollections.
func (s *Session) Reset(ctx context.Context) error {
	if s.cleanupAll {
		return docstore.Purge(ctx, s.store)
	}
	return s.builder.Cleanup(ctx)
}

// Begin resets the database before a test and fails the test if that is
// not possible. It returns the Builder for convenience.
func (s *Session) Begin(t testing.TB) *scenario.Builder {
	t.Helper()
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("scenario cleanup failed: %v", err)
	}
	return s.builder
}

// Close releases the store.
func (s *Session) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
