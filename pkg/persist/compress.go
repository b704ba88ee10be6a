package persist

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the stream compression applied around a codec.
type Compression string

// Supported compressions.
const (
	CompressionNone   Compression = "none"
	CompressionLZ4    Compression = "lz4"
	CompressionSnappy Compression = "snappy"
)

// ErrUnknownCompression is returned for an unrecognized compression name.
var ErrUnknownCompression = errors.New("persist: unknown compression")

// ParseCompression resolves a compression name. The empty string means none.
func ParseCompression(name string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(name))); c {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionLZ4, CompressionSnappy:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// Compressed wraps inner so encoded bytes pass through the given compression.
// CompressionNone returns inner unchanged.
func Compressed(inner Codec, c Compression) (Codec, error) {
	c, err := ParseCompression(string(c))
	if err != nil {
		return nil, err
	}

	if c == CompressionNone {
		return inner, nil
	}

	return &compressedCodec{inner: inner, compression: c}, nil
}

type compressedCodec struct {
	inner       Codec
	compression Compression
}

type flushWriter interface {
	io.Writer
	Close() error
}

func (c *compressedCodec) writer(w io.Writer) flushWriter {
	if c.compression == CompressionLZ4 {
		return lz4.NewWriter(w)
	}

	return snappy.NewBufferedWriter(w)
}

func (c *compressedCodec) reader(r io.Reader) io.Reader {
	if c.compression == CompressionLZ4 {
		return lz4.NewReader(r)
	}

	return snappy.NewReader(r)
}

// Encode implements Codec.
func (c *compressedCodec) Encode(w io.Writer, state any) error {
	zw := c.writer(w)

	if err := c.inner.Encode(zw, state); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%s flush: %w", c.compression, err)
	}

	return nil
}

// Decode implements Codec.
func (c *compressedCodec) Decode(r io.Reader, state any) error {
	return c.inner.Decode(c.reader(r), state)
}

// Extension implements Codec.
func (c *compressedCodec) Extension() string {
	if c.compression == CompressionLZ4 {
		return c.inner.Extension() + ".lz4"
	}

	return c.inner.Extension() + ".sz"
}
