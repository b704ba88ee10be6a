package persist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState is a struct for round-trip codec testing.
type testState struct {
	Name   string              `json:"name"`
	Count  int                 `json:"count"`
	Values map[uint64][]uint32 `json:"values"`
}

func sampleState() testState {
	return testState{
		Name:   "test",
		Count:  42,
		Values: map[uint64][]uint32{1 << 63: {1, 2}, 7: {3}},
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{CodecJSON, CodecGob} {
		for _, compression := range []Compression{CompressionNone, CompressionLZ4, CompressionSnappy} {
			t.Run(name+"/"+string(compression), func(t *testing.T) {
				t.Parallel()

				codec, err := CodecFor(name, compression)
				require.NoError(t, err)

				var buf bytes.Buffer

				require.NoError(t, codec.Encode(&buf, sampleState()))

				var decoded testState

				require.NoError(t, codec.Decode(&buf, &decoded))
				assert.Equal(t, sampleState(), decoded)
			})
		}
	}
}

func TestCodecFor_Extensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		compression Compression
		want        string
	}{
		{CodecJSON, CompressionNone, ".json"},
		{CodecGob, "", ".gob"},
		{CodecJSON, CompressionLZ4, ".json.lz4"},
		{CodecGob, CompressionSnappy, ".gob.sz"},
	}

	for _, tt := range tests {
		codec, err := CodecFor(tt.name, tt.compression)

		require.NoError(t, err)
		assert.Equal(t, tt.want, codec.Extension())
	}
}

func TestCodecFor_Unknown(t *testing.T) {
	t.Parallel()

	_, err := CodecFor("xml", CompressionNone)
	require.ErrorIs(t, err, ErrUnknownCodec)

	_, err = CodecFor(CodecJSON, "zstd")
	require.ErrorIs(t, err, ErrUnknownCompression)
}

func TestJSONCodec_CompactNoIndent(t *testing.T) {
	t.Parallel()

	codec := &JSONCodec{}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, sampleState()))

	// Compact JSON has a single trailing newline from json.Encoder.
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestJSONCodec_DecodeInvalid(t *testing.T) {
	t.Parallel()

	var decoded testState

	err := NewJSONCodec().Decode(strings.NewReader("{not json"), &decoded)

	assert.Error(t, err)
}

func TestCompressed_ShrinksRepetitiveState(t *testing.T) {
	t.Parallel()

	state := testState{Name: strings.Repeat("near duplicate ", 500)}

	var plain, packed bytes.Buffer

	require.NoError(t, NewJSONCodec().Encode(&plain, state))

	codec, err := Compressed(NewJSONCodec(), CompressionLZ4)
	require.NoError(t, err)
	require.NoError(t, codec.Encode(&packed, state))

	assert.Less(t, packed.Len(), plain.Len())
}

func TestCompressed_NoneIsIdentity(t *testing.T) {
	t.Parallel()

	inner := NewGobCodec()

	codec, err := Compressed(inner, CompressionNone)

	require.NoError(t, err)
	assert.Same(t, inner, codec)
}
