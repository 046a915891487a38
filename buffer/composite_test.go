package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeBufferSpansComponents(t *testing.T) {
	cb := NewCompositeBuffer(1024)
	defer cb.Release()

	part1 := newFilledBuffer(t, "abc")
	part2 := newFilledBuffer(t, "defgh")

	require.NoError(t, cb.AddComponent(true, part1))
	require.NoError(t, cb.AddComponent(true, part2))

	assert.Equal(t, 2, cb.NumComponents())
	assert.Equal(t, 8, cb.Capacity())
	assert.Equal(t, 8, cb.WriterIndex())

	out, err := cb.GetBytes(1, 5)
	require.NoError(t, err)
	assert.Equal(t, "bcdef", string(out))
}

func TestCompositeBufferReadCrossesComponentBoundary(t *testing.T) {
	cb := NewCompositeBuffer(1024)
	defer cb.Release()

	require.NoError(t, cb.AddComponent(true, newFilledBuffer(t, "ab")))
	require.NoError(t, cb.AddComponent(true, newFilledBuffer(t, "cd")))

	v, err := cb.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, "abcd", string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}))
}

func TestCompositeBufferRemoveComponentShiftsOffsets(t *testing.T) {
	cb := NewCompositeBuffer(1024)
	defer cb.Release()

	require.NoError(t, cb.AddComponent(true, newFilledBuffer(t, "abc")))
	require.NoError(t, cb.AddComponent(true, newFilledBuffer(t, "def")))

	require.NoError(t, cb.RemoveComponent(0))
	assert.Equal(t, 1, cb.NumComponents())

	out, err := cb.GetBytes(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "def", string(out))
}

func TestCompositeBufferAddComponentWithoutOwnershipRetains(t *testing.T) {
	cb := NewCompositeBuffer(1024)
	defer cb.Release()

	comp := newFilledBuffer(t, "xyz")
	defer comp.Release()

	require.NoError(t, cb.AddComponent(false, comp))
	assert.EqualValues(t, 2, comp.ReferenceCount())
}
