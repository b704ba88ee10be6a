// Package corpus discovers document files under a directory and loads them
// into a shingle incidence relation.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/creachadair/taskgroup"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/shingle"
)

// DefaultInclude matches every .txt file at any depth.
const DefaultInclude = "**/*.txt"

var (
	// ErrRootNotFound is returned when the corpus root does not exist or is
	// not a directory.
	ErrRootNotFound = errors.New("corpus: root not found")

	// ErrEmptyCorpus is returned when no file matches the include patterns.
	ErrEmptyCorpus = errors.New("corpus: no documents found")

	// ErrBadPattern is returned for a malformed include pattern.
	ErrBadPattern = errors.New("corpus: bad include pattern")
)

// Document is one corpus file.
type Document struct {
	ID   uint32 `json:"id"   yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Discover lists the regular files under root whose slash-separated relative
// path matches any include pattern. Documents are sorted by name and numbered
// from zero in that order.
func Discover(root string, include []string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}

	if len(include) == 0 {
		include = []string{DefaultInclude}
	}

	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	var names []string

	walkErr := fs.WalkDir(os.DirFS(root), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if matchesAny(include, name) {
			names = append(names, name)
		}

		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("corpus: walk %s: %w", root, walkErr)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s matches none of %v", ErrEmptyCorpus, root, include)
	}

	slices.Sort(names)

	docs := make([]Document, len(names))
	for i, name := range names {
		docs[i] = Document{
			ID:   uint32(i),
			Name: name,
			Path: filepath.Join(root, filepath.FromSlash(name)),
		}
	}

	return docs, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}

	return false
}

// ProgressFunc receives the number of loaded documents out of total. Calls
// are serialized.
type ProgressFunc func(done, total int)

type loadConfig struct {
	workers  int
	progress ProgressFunc
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithWorkers bounds concurrent file reads. Values below 1 select
// runtime.NumCPU().
func WithWorkers(n int) LoadOption {
	return func(c *loadConfig) { c.workers = n }
}

// WithProgress reports progress after each document.
func WithProgress(fn ProgressFunc) LoadOption {
	return func(c *loadConfig) { c.progress = fn }
}

// Load reads and shingles docs concurrently, then registers them in id order
// so row numbering does not depend on scheduling.
func Load(ctx context.Context, docs []Document, s *shingle.Shingler, opts ...LoadOption) (*minhash.Incidence, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.workers < 1 {
		cfg.workers = runtime.NumCPU()
	}

	shingles := make([][]string, len(docs))

	var (
		mu   sync.Mutex
		done int
	)

	g, run := taskgroup.New(nil).Limit(cfg.workers)

	for i, doc := range docs {
		run(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(doc.Path)
			if err != nil {
				return fmt.Errorf("corpus: read %s: %w", doc.Name, err)
			}

			shingles[i] = s.Shingles(string(data))

			if cfg.progress != nil {
				mu.Lock()
				done++
				cfg.progress(done, len(docs))
				mu.Unlock()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := minhash.NewBuilder()
	for i, doc := range docs {
		b.AddDocument(doc.ID, shingles[i])
	}

	return b.Build(), nil
}

// Names returns the document names indexed by position.
func Names(docs []Document) []string {
	names := make([]string, len(docs))
	for i, doc := range docs {
		names[i] = doc.Name
	}

	return names
}
