package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefCountedRetainRelease(t *testing.T) {
	rc := newRefCounted()
	require.EqualValues(t, 1, rc.referenceCount())

	require.NoError(t, rc.retain(2))
	assert.EqualValues(t, 3, rc.referenceCount())
}

func TestRefCountedReleaseToZero(t *testing.T) {
	rc := newRefCounted()
	require.NoError(t, rc.retain(1))
	assert.EqualValues(t, 2, rc.referenceCount())

	freed, err := rc.release(1)
	require.NoError(t, err)
	assert.False(t, freed)

	freed, err = rc.release(1)
	require.NoError(t, err)
	assert.True(t, freed)
	assert.True(t, rc.isDeallocated())
}

func TestRefCountedRetainAfterDeallocationFails(t *testing.T) {
	rc := newRefCounted()
	freed, err := rc.release(1)
	require.NoError(t, err)
	require.True(t, freed)

	err = rc.retain(1)
	require.Error(t, err)
	var illegal *IllegalReferenceCountError
	assert.ErrorAs(t, err, &illegal)
}

func TestRefCountedReleaseBeyondCountFails(t *testing.T) {
	rc := newRefCounted()
	_, err := rc.release(5)
	require.Error(t, err)
}
