package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilledBuffer(t *testing.T, content string) Buffer {
	t.Helper()
	buf, err := Allocate(len(content), len(content))
	require.NoError(t, err)
	_, err = buf.WriteBytes([]byte(content))
	require.NoError(t, err)
	return buf
}

func TestSliceSharesParentReferenceCount(t *testing.T) {
	parent := newFilledBuffer(t, "hello world")
	defer parent.Release()

	s, err := parent.Slice(0, 5)
	require.NoError(t, err)

	assert.EqualValues(t, parent.ReferenceCount(), s.ReferenceCount())

	b, err := s.GetBytes(0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestRetainedSliceHasIndependentReferenceCount(t *testing.T) {
	parent := newFilledBuffer(t, "hello world")
	defer parent.Release()

	rs, err := parent.RetainedSlice(6, 5)
	require.NoError(t, err)

	assert.EqualValues(t, 2, parent.ReferenceCount())
	assert.EqualValues(t, 1, rs.ReferenceCount())

	freed, err := rs.Release()
	require.NoError(t, err)
	assert.True(t, freed)
	assert.EqualValues(t, 1, parent.ReferenceCount())
}

func TestDuplicateSeesIndependentCursors(t *testing.T) {
	parent := newFilledBuffer(t, "abcdef")
	defer parent.Release()

	_, err := parent.ReadBytes(2)
	require.NoError(t, err)

	dup, err := parent.Duplicate()
	require.NoError(t, err)

	assert.Equal(t, parent.ReaderIndex(), dup.ReaderIndex())

	_, err = dup.ReadBytes(1)
	require.NoError(t, err)
	assert.NotEqual(t, parent.ReaderIndex(), dup.ReaderIndex())
}

func TestRetainedDuplicateReleasesParentOnce(t *testing.T) {
	parent := newFilledBuffer(t, "abcdef")
	defer parent.Release()

	rd, err := parent.RetainedDuplicate()
	require.NoError(t, err)
	assert.EqualValues(t, 2, parent.ReferenceCount())

	freed, err := rd.Release()
	require.NoError(t, err)
	assert.True(t, freed)
	assert.EqualValues(t, 1, parent.ReferenceCount())
}

func TestSliceOutOfBoundsFails(t *testing.T) {
	parent := newFilledBuffer(t, "abc")
	defer parent.Release()

	_, err := parent.Slice(1, 10)
	require.Error(t, err)
}
