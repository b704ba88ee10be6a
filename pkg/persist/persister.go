package persist

import (
	"errors"
	"io/fs"
	"os"
)

// Persister saves and loads one state type under a fixed basename.
type Persister[T any] struct {
	basename string
	codec    Codec
}

// NewPersister creates a persister with the given basename and codec.
func NewPersister[T any](basename string, codec Codec) *Persister[T] {
	return &Persister[T]{
		basename: basename,
		codec:    codec,
	}
}

// Path returns the state file location under dir.
func (p *Persister[T]) Path(dir string) string {
	return StatePath(dir, p.basename, p.codec)
}

// Exists reports whether a state file is present under dir.
func (p *Persister[T]) Exists(dir string) bool {
	_, err := os.Stat(p.Path(dir))

	return !errors.Is(err, fs.ErrNotExist)
}

// Save writes state under dir.
func (p *Persister[T]) Save(dir string, state *T) error {
	return SaveState(dir, p.basename, p.codec, state)
}

// Load reads the state saved under dir.
func (p *Persister[T]) Load(dir string) (*T, error) {
	var state T

	if err := LoadState(dir, p.basename, p.codec, &state); err != nil {
		return nil, err
	}

	return &state, nil
}
