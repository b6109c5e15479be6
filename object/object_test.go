package object_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas8/toolchain/object"
)

func sampleFile() *object.File {
	f := object.New()
	f.Sections = []object.Section{
		{Name: ".text", Data: []byte{0x00, 0x0C, 0x13, 0x80}},
		{Name: ".data", Data: []byte{1, 2, 3}},
	}
	f.Symbols = []object.Symbol{
		{Name: "PORT", Value: 0x80, HasSection: true, Section: ".abs", Binding: object.BindingLocal},
		{Name: "multiply", HasSection: false, Binding: object.BindingGlobal},
		{Name: "start", Value: 0, HasSection: true, Section: ".text", Binding: object.BindingGlobal},
	}
	f.Relocations = []object.Relocation{
		{Offset: 2, Symbol: "multiply", Addend: 0, Section: ".text"},
	}
	return f
}

func TestObject_RoundTrip(t *testing.T) {
	original := sampleFile()
	encoded, err := original.Encode()
	require.NoError(t, err, "encoding a well-formed file should not fail")

	decoded, err := object.Decode(encoded)
	require.NoError(t, err, "decoding a freshly encoded file should not fail")

	assert.Equal(t, original, decoded, "round trip should preserve every field exactly")
}

func TestObject_BadMagic(t *testing.T) {
	_, err := object.Decode([]byte("XXXX\x01\x00\x00\x00"))
	assert.ErrorIs(t, err, object.ErrBadMagic)
}

func TestObject_UnsupportedVersion(t *testing.T) {
	data := []byte("ATOB\x02\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")
	_, err := object.Decode(data)
	assert.ErrorIs(t, err, object.ErrUnsupportedVersion)
}

func TestObject_Truncated(t *testing.T) {
	original := sampleFile()
	encoded, err := original.Encode()
	require.NoError(t, err)

	_, err = object.Decode(encoded[:len(encoded)-2])
	assert.ErrorIs(t, err, object.ErrTruncated)
}

func TestObject_EmptyFileRoundTrip(t *testing.T) {
	empty := object.New()
	encoded, err := empty.Encode()
	require.NoError(t, err)

	decoded, err := object.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, empty.Version, decoded.Version)
	assert.Empty(t, decoded.Sections)
}
