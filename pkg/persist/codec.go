// Package persist saves and restores state files through pluggable codecs.
// Files are written atomically, so a failed save never leaves a truncated
// artifact behind.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Codec names accepted by CodecFor.
const (
	CodecJSON = "json"
	CodecGob  = "gob"
)

// ErrUnknownCodec is returned by CodecFor for an unrecognized name.
var ErrUnknownCodec = errors.New("persist: unknown codec")

// Codec defines how state is serialized and deserialized.
type Codec interface {
	// Encode writes the state to the writer.
	Encode(w io.Writer, state any) error
	// Decode reads the state from the reader.
	Decode(r io.Reader, state any) error
	// Extension returns the file extension, including the leading dot.
	Extension() string
}

// JSONCodec encodes state as JSON. An empty Indent produces compact output.
type JSONCodec struct {
	Indent string
}

// NewJSONCodec creates a JSON codec with two-space indentation.
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: "  "}
}

// Encode implements Codec.
func (c *JSONCodec) Encode(w io.Writer, state any) error {
	enc := json.NewEncoder(w)
	if c.Indent != "" {
		enc.SetIndent("", c.Indent)
	}

	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *JSONCodec) Decode(r io.Reader, state any) error {
	if err := json.NewDecoder(r).Decode(state); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *JSONCodec) Extension() string {
	return ".json"
}

// GobCodec encodes state with encoding/gob.
type GobCodec struct{}

// NewGobCodec creates a gob codec.
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Encode implements Codec.
func (c *GobCodec) Encode(w io.Writer, state any) error {
	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (c *GobCodec) Decode(r io.Reader, state any) error {
	if err := gob.NewDecoder(r).Decode(state); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (c *GobCodec) Extension() string {
	return ".gob"
}

// CodecFor resolves a codec name and compression, as found in configuration.
func CodecFor(name string, compression Compression) (Codec, error) {
	var inner Codec

	switch strings.ToLower(strings.TrimSpace(name)) {
	case CodecJSON:
		inner = NewJSONCodec()
	case CodecGob:
		inner = NewGobCodec()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}

	return Compressed(inner, compression)
}
