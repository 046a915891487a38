package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClassRoundsUpToPowerOfTwo(t *testing.T) {
	cases := map[int]int{
		1: 16,
		16: 16,
		17: 32,
		100: 128,
		128: 128,
		129: 256,
	}
	for in, want := range cases {
		assert.Equal(t, want, sizeClass(in), "sizeClass(%d)", in)
	}
}

func TestByteArrayPoolGetReturnsZeroedArray(t *testing.T) {
	p := newByteArrayPool()
	arr := p.get(64)
	for i := range arr {
		arr[i] = 0xFF
	}
	p.put(arr)

	reused := p.get(64)
	for _, b := range reused {
		assert.Equal(t, byte(0), b)
	}
}

func TestByteArrayPoolPutIgnoresForeignArray(t *testing.T) {
	p := newByteArrayPool()
	foreign := make([]byte, 13)
	assert.NotPanics(t, func() { p.put(foreign) })
}
