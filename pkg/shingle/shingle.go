// Package shingle turns document text into a set of k-gram shingles.
//
// Character mode slides a k-rune window over the text. Word mode slides a
// k-word window over the UAX #29 word segmentation of the text, dropping
// whitespace and punctuation segments.
package shingle

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// DefaultSize is the window size used when none is given.
const DefaultSize = 8

// wordSeparator joins the words of a word-mode shingle.
const wordSeparator = " "

var (
	// ErrInvalidSize is returned for a window size below 1.
	ErrInvalidSize = errors.New("shingle: size must be >= 1")

	// ErrUnknownMode is returned for an unrecognized mode name.
	ErrUnknownMode = errors.New("shingle: unknown mode")
)

// Mode selects the shingle unit.
type Mode string

const (
	// ModeChar builds shingles from consecutive characters.
	ModeChar Mode = "char"

	// ModeWord builds shingles from consecutive words.
	ModeWord Mode = "word"
)

// ParseMode resolves a mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(name))); m {
	case ModeChar, ModeWord:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Shingler extracts shingles from text. It is immutable and safe for
// concurrent use.
type Shingler struct {
	size         int
	mode         Mode
	keepNewlines bool
	normalize    bool
}

// Option configures a Shingler.
type Option func(*Shingler)

// WithSize sets the window size.
func WithSize(k int) Option {
	return func(s *Shingler) { s.size = k }
}

// WithMode sets the shingle unit.
func WithMode(m Mode) Option {
	return func(s *Shingler) { s.mode = m }
}

// WithKeepNewlines keeps line breaks inside character shingles instead of
// replacing them with spaces.
func WithKeepNewlines(keep bool) Option {
	return func(s *Shingler) { s.keepNewlines = keep }
}

// WithNormalize applies NFKC normalization and lower-casing before shingling.
func WithNormalize(normalize bool) Option {
	return func(s *Shingler) { s.normalize = normalize }
}

// New creates a Shingler. Without options it produces 8-character shingles
// with newlines folded to spaces.
func New(opts ...Option) (*Shingler, error) {
	s := &Shingler{size: DefaultSize, mode: ModeChar}
	for _, opt := range opts {
		opt(s)
	}

	if s.size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, s.size)
	}

	if _, err := ParseMode(string(s.mode)); err != nil {
		return nil, err
	}

	return s, nil
}

// Size returns the window size.
func (s *Shingler) Size() int {
	return s.size
}

// Mode returns the shingle unit.
func (s *Shingler) Mode() Mode {
	return s.mode
}

// Shingles returns the distinct shingles of text in first-seen order. Invalid
// UTF-8 sequences are dropped. Text shorter than the window yields none.
func (s *Shingler) Shingles(text string) []string {
	text = strings.ToValidUTF8(text, "")

	if s.normalize {
		text = strings.ToLower(norm.NFKC.String(text))
	}

	if s.mode == ModeWord {
		return s.windows(tokens(text), wordSeparator)
	}

	if !s.keepNewlines {
		text = strings.ReplaceAll(text, "\n", " ")
	}

	runes := []rune(text)
	units := make([]string, len(runes))

	for i, r := range runes {
		units[i] = string(r)
	}

	return s.windows(units, "")
}

// FromReader reads all of r and shingles it.
func (s *Shingler) FromReader(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("shingle: read: %w", err)
	}

	return s.Shingles(string(data)), nil
}

func (s *Shingler) windows(units []string, sep string) []string {
	if len(units) < s.size {
		return nil
	}

	seen := make(map[string]struct{}, len(units)-s.size+1)
	out := make([]string, 0, len(units)-s.size+1)

	for i := 0; i+s.size <= len(units); i++ {
		sh := strings.Join(units[i:i+s.size], sep)
		if _, dup := seen[sh]; dup {
			continue
		}

		seen[sh] = struct{}{}
		out = append(out, sh)
	}

	return out
}

// tokens returns the UAX #29 words of text that contain a letter or digit.
func tokens(text string) []string {
	var out []string

	iter := words.FromString(text)
	for iter.Next() {
		w := iter.Value()
		if strings.IndexFunc(w, isWordRune) >= 0 {
			out = append(out, w)
		}
	}

	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
