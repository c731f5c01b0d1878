// Package config resolves the harness options.
//
// Each option is looked up in this order, first hit wins:
//
//  1. a command-line flag that was explicitly set
//  2. the environment variable named by EnvKey, even when empty
//  3. a non-empty string in the config file
//  4. the built-in default
//
// The config file is the --config path, or scenarios.{yaml,yml,toml,json} in
// the search directories. A .env file is loaded into the environment first
// without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Option keys. They double as flag names and config file keys.
const (
	KeyTemplatesPath = "templates-path"
	KeyDBURL         = "db-url"
	KeyDBName        = "db-name"
	KeyDBDriver      = "db-driver"

	// KeyConfigFile names the flag that points at an explicit config file.
	KeyConfigFile = "config"
)

// Keys lists the resolvable option keys in a stable order.
var Keys = []string{KeyTemplatesPath, KeyDBURL, KeyDBName, KeyDBDriver}

// Options are the resolved harness settings.
type Options struct {
	TemplatesPath string
	DBURL         string
	DBName        string
	DBDriver      string
}

// Defaults returns the built-in values.
func Defaults() Options {
	return Options{
		TemplatesPath: "tests/templates",
		DBURL:         "mongodb://127.0.0.1:27017/?directConnection=true",
		DBName:        "test_db",
		DBDriver:      "mongo",
	}
}

func (o *Options) field(key string) *string {
	switch key {
	case KeyTemplatesPath:
		return &o.TemplatesPath
	case KeyDBURL:
		return &o.DBURL
	case KeyDBName:
		return &o.DBName
	case KeyDBDriver:
		return &o.DBDriver
	}
	return nil
}

// Get returns the value for key, or "" for an unknown key.
func (o Options) Get(key string) string {
	if p := o.field(key); p != nil {
		return *p
	}
	return ""
}

// Source tells where a resolved value came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// Resolved carries the options together with their provenance.
type Resolved struct {
	Options
	Sources map[string]Source

	// ConfigFile is the file that was read, or "" when none was found.
	ConfigFile string
}

// EnvKey maps an option key to its environment variable: upper-cased with
// '-' replaced by '_' (db-url -> DB_URL).
func EnvKey(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// RegisterFlags adds the option flags and --config to fs. Flags carry no
// default value so that an unset flag falls through to the other sources.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyTemplatesPath, "", "directory containing template files")
	fs.String(KeyDBURL, "", "document database connection string")
	fs.String(KeyDBName, "", "database name")
	fs.String(KeyDBDriver, "", "store backend: mongo, sqlite or memory")
	fs.String(KeyConfigFile, "", "config file (default: scenarios.{yaml,toml,json} in the working directory)")
}

// ResolveOption configures Resolve.
type ResolveOption func(*resolver)

// WithLogger receives one info record per resolved option.
func WithLogger(logger *slog.Logger) ResolveOption {
	return func(r *resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSearchPaths replaces the directories searched for a config file.
func WithSearchPaths(dirs ...string) ResolveOption {
	return func(r *resolver) {
		r.searchPaths = dirs
	}
}

// WithDotEnvFiles replaces the .env candidates. The first existing file is
// loaded. Passing no paths disables .env loading.
func WithDotEnvFiles(paths ...string) ResolveOption {
	return func(r *resolver) {
		r.dotEnvFiles = paths
		r.dotEnvSet = true
	}
}

type resolver struct {
	logger      *slog.Logger
	searchPaths []string
	dotEnvFiles []string
	dotEnvSet   bool
}

// Resolve computes the options from fs (may be nil), the environment, the
// config file and the defaults.
func Resolve(fs *pflag.FlagSet, opts ...ResolveOption) (*Resolved, error) {
	r := &resolver{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		searchPaths: []string{"."},
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.dotEnvSet {
		r.dotEnvFiles = defaultDotEnvFiles()
	}
	if err := loadDotEnv(r.dotEnvFiles, r.logger); err != nil {
		return nil, err
	}

	v := viper.New()
	explicit := flagValue(fs, KeyConfigFile)
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("scenarios")
		for _, dir := range r.searchPaths {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	res := &Resolved{
		Options:    Defaults(),
		Sources:    make(map[string]Source, len(Keys)),
		ConfigFile: v.ConfigFileUsed(),
	}

	for _, key := range Keys {
		value, source := resolveKey(fs, v, key, res.Get(key))
		*res.field(key) = value
		res.Sources[key] = source
		r.logger.Info("using option", "key", key, "value", value, "source", string(source))
	}
	return res, nil
}

func resolveKey(fs *pflag.FlagSet, v *viper.Viper, key, def string) (string, Source) {
	if fs != nil {
		if f := fs.Lookup(key); f != nil && f.Changed {
			return f.Value.String(), SourceFlag
		}
	}
	if value, ok := os.LookupEnv(EnvKey(key)); ok {
		return value, SourceEnv
	}
	if v.InConfig(key) {
		if value, ok := v.Get(key).(string); ok && value != "" {
			return value, SourceFile
		}
	}
	return def, SourceDefault
}

func flagValue(fs *pflag.FlagSet, name string) string {
	if fs == nil {
		return ""
	}
	if f := fs.Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	return ""
}

// defaultDotEnvFiles returns ./.env followed by the .env at the module root,
// found by walking up to the nearest go.mod.
func defaultDotEnvFiles() []string {
	paths := []string{".env"}
	if root := findModuleRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}
	return paths
}

func loadDotEnv(paths []string, logger *slog.Logger) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		logger.Debug("loaded env file", "path", path)
		return nil
	}
	return nil
}

func findModuleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
