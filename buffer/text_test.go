package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUTF16ToUTF8ASCII(t *testing.T) {
	units := []uint16{'h', 'i'}
	dst, err := Allocate(8, 8)
	require.NoError(t, err)
	defer dst.Release()

	res, err := EncodeUTF16ToUTF8(units, dst)
	require.NoError(t, err)
	assert.Equal(t, Done, res.Status)
	assert.Equal(t, 2, res.Consumed)
	assert.Equal(t, 2, res.Written)

	out, err := dst.GetBytes(0, 2)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(out))
}

func TestEncodeUTF16ToUTF8SurrogatePair(t *testing.T) {
	// U+1F600 GRINNING FACE: surrogate pair D83D DE00.
	units := []uint16{0xD83D, 0xDE00}
	dst, err := Allocate(8, 8)
	require.NoError(t, err)
	defer dst.Release()

	res, err := EncodeUTF16ToUTF8(units, dst)
	require.NoError(t, err)
	assert.Equal(t, Done, res.Status)
	assert.Equal(t, 2, res.Consumed)
	assert.Equal(t, 4, res.Written)

	out, err := dst.GetBytes(0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x9F, 0x98, 0x80}, out)
}

func TestEncodeUTF16ToUTF8UnpairedHighSurrogate(t *testing.T) {
	units := []uint16{0xD800, 'x'}
	dst, err := Allocate(8, 8)
	require.NoError(t, err)
	defer dst.Release()

	res, err := EncodeUTF16ToUTF8(units, dst)
	require.NoError(t, err)
	assert.Equal(t, Done, res.Status)

	out, err := dst.GetBytes(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3F, 'x'}, out)
}

func TestEncodeUTF16ToUTF8TruncatedHighSurrogateAtEnd(t *testing.T) {
	units := []uint16{0xD800}
	dst, err := Allocate(8, 8)
	require.NoError(t, err)
	defer dst.Release()

	res, err := EncodeUTF16ToUTF8(units, dst)
	require.NoError(t, err)
	assert.Equal(t, Done, res.Status)
	assert.Equal(t, 1, res.Consumed)
	assert.Equal(t, 1, res.Written)

	out, err := dst.GetBytes(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3F}, out)
}

func TestEncodeUTF16ToASCIINonASCIIReplaced(t *testing.T) {
	units := []uint16{'a', 0x00FF, 'b'}
	dst, err := Allocate(8, 8)
	require.NoError(t, err)
	defer dst.Release()

	res, err := EncodeUTF16ToASCII(units, dst)
	require.NoError(t, err)
	assert.Equal(t, Done, res.Status)

	out, err := dst.GetBytes(0, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 0x3F, 'b'}, out)
}

func TestDecodeUTF8Passthrough(t *testing.T) {
	buf := newFilledBuffer(t, "hello")
	defer buf.Release()

	s, err := Decode(buf, 0, 5, UTF8)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestDecodeEmptyLengthReturnsEmptyString(t *testing.T) {
	buf := newFilledBuffer(t, "hello")
	defer buf.Release()

	s, err := Decode(buf, 0, 0, UTF8)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestDecodeUTF16LittleEndian(t *testing.T) {
	buf, err := Allocate(4, 4)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, buf.WriteUint16LE('h'))
	require.NoError(t, buf.WriteUint16LE('i'))

	s, err := Decode(buf, 0, 4, UTF16LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
}
