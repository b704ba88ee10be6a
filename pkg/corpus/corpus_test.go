package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/neardup/pkg/shingle"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return root
}

func TestDiscover_SortedAndNumbered(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{
		"b.txt":          "bravo",
		"a.txt":          "alpha",
		"sub/c.txt":      "charlie",
		"notes.md":       "skipped",
		"sub/deep/d.txt": "delta",
	})

	docs, err := Discover(root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.txt", "sub/c.txt", "sub/deep/d.txt"}, Names(docs))

	for i, doc := range docs {
		assert.Equal(t, uint32(i), doc.ID)
		assert.FileExists(t, doc.Path)
	}
}

func TestDiscover_CustomPatterns(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{
		"a.txt":     "x",
		"b.md":      "y",
		"sub/c.md":  "z",
		"sub/d.txt": "w",
	})

	docs, err := Discover(root, []string{"**/*.md", "a.txt"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.md", "sub/c.md"}, Names(docs))
}

func TestDiscover_Errors(t *testing.T) {
	t.Parallel()

	_, err := Discover(filepath.Join(t.TempDir(), "missing"), nil)
	require.ErrorIs(t, err, ErrRootNotFound)

	empty := writeFiles(t, map[string]string{"a.md": "x"})

	_, err = Discover(empty, nil)
	require.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = Discover(empty, []string{"[unclosed"})
	require.ErrorIs(t, err, ErrBadPattern)
}

func TestLoad_BuildsIncidence(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{
		"0.txt": "abcd",
		"1.txt": "abcd",
		"2.txt": "xyz",
		"3.txt": "",
	})

	docs, err := Discover(root, nil)
	require.NoError(t, err)

	s, err := shingle.New(shingle.WithSize(2))
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		calls []int
	)

	inc, err := Load(context.Background(), docs, s, WithWorkers(2), WithProgress(func(done, total int) {
		mu.Lock()
		defer mu.Unlock()

		assert.Equal(t, 4, total)
		calls = append(calls, done)
	}))
	require.NoError(t, err)

	assert.Equal(t, 4, inc.Docs())
	assert.Equal(t, []string{"ab", "bc", "cd", "xy", "yz"}, inc.Vocabulary().Terms())
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, calls)

	col, ok := inc.Column(3)
	assert.True(t, ok)
	assert.Empty(t, col)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	s, err := shingle.New()
	require.NoError(t, err)

	docs := []Document{{ID: 0, Name: "gone.txt", Path: filepath.Join(t.TempDir(), "gone.txt")}}

	_, err = Load(context.Background(), docs, s)

	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	root := writeFiles(t, map[string]string{"a.txt": "hello world"})

	docs, err := Discover(root, nil)
	require.NoError(t, err)

	s, err := shingle.New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Load(ctx, docs, s)

	require.ErrorIs(t, err, context.Canceled)
}

func TestLoad_NoDocuments(t *testing.T) {
	t.Parallel()

	s, err := shingle.New()
	require.NoError(t, err)

	_, err = Load(context.Background(), nil, s)

	require.ErrorIs(t, err, ErrEmptyCorpus)
}
