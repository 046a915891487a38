package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateReadWriteRoundTrip(t *testing.T) {
	buf, err := Allocate(16, 64)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, buf.WriteUint32(0xDEADBEEF))
	require.NoError(t, buf.WriteUint16LE(0x1234))
	n, err := buf.WriteBytes([]byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v32, err := buf.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v32)

	v16, err := buf.ReadUint16LE()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	rest, err := buf.ReadBytes(2)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(rest))
}

func TestBufferGrowsOnEnsureWritable(t *testing.T) {
	buf, err := Allocate(4, 1024)
	require.NoError(t, err)
	defer buf.Release()

	assert.Equal(t, 4, buf.Capacity())

	require.NoError(t, buf.EnsureWritable(100))
	assert.GreaterOrEqual(t, buf.Capacity(), 100)
}

func TestEnsureWritableFailsBeyondMaxCapacity(t *testing.T) {
	buf, err := Allocate(4, 8)
	require.NoError(t, err)
	defer buf.Release()

	err = buf.EnsureWritable(1000)
	require.Error(t, err)
	var capErr *CapacityExceededError
	assert.ErrorAs(t, err, &capErr)
}

func TestReadBeyondReadableBytesFails(t *testing.T) {
	buf, err := Allocate(4, 16)
	require.NoError(t, err)
	defer buf.Release()

	_, err = buf.ReadUint32()
	require.Error(t, err)
	var oor *IndexOutOfRangeError
	assert.ErrorAs(t, err, &oor)
}

func TestRetainThenReleaseTwiceFreesOnce(t *testing.T) {
	buf, err := Allocate(8, 8)
	require.NoError(t, err)

	retained, err := buf.Retain()
	require.NoError(t, err)
	assert.Same(t, buf, retained)
	assert.EqualValues(t, 2, buf.ReferenceCount())

	freed, err := buf.Release()
	require.NoError(t, err)
	assert.False(t, freed)

	freed, err = buf.Release()
	require.NoError(t, err)
	assert.True(t, freed)
}

func TestReleaseBeyondZeroIsIllegal(t *testing.T) {
	buf, err := Allocate(8, 8)
	require.NoError(t, err)

	freed, err := buf.Release()
	require.NoError(t, err)
	require.True(t, freed)

	_, err = buf.Release()
	require.Error(t, err)
	var illegal *IllegalReferenceCountError
	assert.ErrorAs(t, err, &illegal)
}

func TestCopyProducesIndependentBuffer(t *testing.T) {
	buf, err := Allocate(4, 16)
	require.NoError(t, err)
	defer buf.Release()

	_, err = buf.WriteBytes([]byte("abcd"))
	require.NoError(t, err)

	cp, err := buf.Copy(0, 4)
	require.NoError(t, err)
	defer cp.Release()

	require.NoError(t, buf.SetUint8(0, 'X'))
	b0, err := cp.GetUint8(0)
	require.NoError(t, err)
	assert.Equal(t, uint8('a'), b0)
}

func TestAbsoluteGetSetDoesNotMoveCursors(t *testing.T) {
	buf, err := Allocate(8, 8)
	require.NoError(t, err)
	defer buf.Release()

	require.NoError(t, buf.SetUint32(0, 42))
	assert.Equal(t, 0, buf.WriterIndex())

	v, err := buf.GetUint32(0)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
	assert.Equal(t, 0, buf.ReaderIndex())
}
