package template

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/scenarios/pkg/document"
)

// FieldName is the top-level field a source file must define to be a template.
const FieldName = "TEMPLATE"

// Set maps a collection name to its template value.
type Set map[string]any

// Names returns the collection names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of s.
func (s Set) Clone() Set {
	if s == nil {
		return Set{}
	}
	out := make(Set, len(s))
	for name, v := range s {
		out[name] = document.CloneValue(v)
	}
	return out
}

// decoder extracts the TEMPLATE value from one file's contents.
type decoder func(filename string, data []byte) (any, error)

// errNoTemplate marks a file that evaluated fine but defines no TEMPLATE.
var errNoTemplate = errors.New("no " + FieldName + " field")

// Option configures a load.
type Option func(*loader)

// WithLogger routes skip diagnostics to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

type loader struct {
	logger   *slog.Logger
	decoders map[string]decoder
}

func newLoader(opts []Option) *loader {
	cueDec := newCUEDecoder(cuecontext.New())
	l := &loader{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		decoders: map[string]decoder{
			".cue":  cueDec,
			".yaml": decodeYAML,
			".yml":  decodeYAML,
			".json": decodeYAML,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir loads every template directly under dir on the local filesystem.
func LoadDir(dir string, opts ...Option) (Set, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &ImportError{Location: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ImportError{Location: dir}
	}
	return newLoader(opts).load(os.DirFS(dir), ".", dir)
}

// LoadFS loads every template directly under dir inside fsys. It is the
// counterpart of LoadDir for embedded or virtual trees:
//
//	//go:embed templates
//	var templateFS embed.FS
//
//	set, err := template.LoadFS(templateFS, "templates")
func LoadFS(fsys fs.FS, dir string, opts ...Option) (Set, error) {
	info, err := fs.Stat(fsys, dir)
	if err != nil {
		return nil, &ImportError{Location: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &ImportError{Location: dir}
	}
	return newLoader(opts).load(fsys, dir, dir)
}

func (l *loader) load(fsys fs.FS, dir, location string) (Set, error) {
	// ReadDir returns entries sorted by filename.
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &ImportError{Location: location, Err: err}
	}

	set := Set{}
	for _, entry := range entries {
		fileName := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fileName, ".") {
			continue
		}
		ext := path.Ext(fileName)
		dec, ok := l.decoders[ext]
		if !ok {
			continue
		}
		name := strings.TrimSuffix(fileName, ext)
		if _, taken := set[name]; taken {
			l.logger.Debug("template skipped",
				"location", location,
				"file", fileName,
				"reason", fmt.Sprintf("template %q already loaded from another file", name))
			continue
		}

		value, err := loadFile(fsys, path.Join(dir, fileName), fileName, dec)
		if err != nil {
			l.logger.Debug("template skipped",
				"location", location,
				"file", fileName,
				"reason", err)
			continue
		}
		set[name] = value
		l.logger.Debug("template loaded", "location", location, "file", fileName, "collection", name)
	}

	return set, nil
}

// loadFile reads and evaluates one sub-unit. Any failure, including a panic
// inside a decoder, is returned as a *skipError.
func loadFile(fsys fs.FS, filePath, fileName string, dec decoder) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &skipError{File: fileName, Reason: "panic during evaluation", Err: fmt.Errorf("%v", r)}
		}
	}()

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, &skipError{File: fileName, Reason: "read failed", Err: err}
	}
	value, err = dec(fileName, data)
	if err != nil {
		if errors.Is(err, errNoTemplate) {
			return nil, &skipError{File: fileName, Reason: errNoTemplate.Error()}
		}
		return nil, &skipError{File: fileName, Reason: "evaluation failed", Err: err}
	}
	return value, nil
}
