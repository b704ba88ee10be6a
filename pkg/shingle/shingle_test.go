package shingle

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s, err := New()

	require.NoError(t, err)
	assert.Equal(t, DefaultSize, s.Size())
	assert.Equal(t, ModeChar, s.Mode())
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	_, err := New(WithSize(0))
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(WithMode("sentence"))
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode(" Word ")

	require.NoError(t, err)
	assert.Equal(t, ModeWord, m)
}

func TestShingles_Characters(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"ab", "bc", "cd"}, s.Shingles("abcd"))
}

func TestShingles_Deduplicated(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"ab", "ba"}, s.Shingles("ababab"))
}

func TestShingles_ShortText(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(5))
	require.NoError(t, err)

	assert.Empty(t, s.Shingles("abc"))
	assert.Empty(t, s.Shingles(""))
}

func TestShingles_NewlinesFolded(t *testing.T) {
	t.Parallel()

	folded, err := New(WithSize(3))
	require.NoError(t, err)

	kept, err := New(WithSize(3), WithKeepNewlines(true))
	require.NoError(t, err)

	assert.Equal(t, []string{"a b"}, folded.Shingles("a\nb"))
	assert.Equal(t, []string{"a\nb"}, kept.Shingles("a\nb"))
}

func TestShingles_RunesNotBytes(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"hé", "él"}, s.Shingles("hél"))
}

func TestShingles_InvalidUTF8Dropped(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"ab"}, s.Shingles("a\xffb"))
}

func TestShingles_Normalize(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(3), WithNormalize(true))
	require.NoError(t, err)

	// The fi ligature expands to "fi" under NFKC.
	assert.Equal(t, s.Shingles("FILE"), s.Shingles("ﬁle"))
}

func TestShingles_Words(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(2), WithMode(ModeWord))
	require.NoError(t, err)

	got := s.Shingles("The quick, brown fox.")

	assert.Equal(t, []string{"The quick", "quick brown", "brown fox"}, got)
}

func TestShingles_WordsNormalized(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(1), WithMode(ModeWord), WithNormalize(true))
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "world"}, s.Shingles("Hello  HELLO\nworld!"))
}

type failingReader struct{}

var errRead = errors.New("read failed")

func (failingReader) Read([]byte) (int, error) {
	return 0, errRead
}

func TestFromReader(t *testing.T) {
	t.Parallel()

	s, err := New(WithSize(2))
	require.NoError(t, err)

	got, err := s.FromReader(strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "bc"}, got)

	_, err = s.FromReader(failingReader{})
	require.ErrorIs(t, err, errRead)
}
