package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletedFutureIsImmediatelyDone(t *testing.T) {
	f := NewCompletedFuture(nil)
	select {
	case <-f.Done():
	default:
		t.Fatal("expected completed future's Done channel to be closed")
	}
	require.NoError(t, f.Err())
}

func TestCompletedFutureCarriesError(t *testing.T) {
	wantErr := assert.AnError
	f := NewCompletedFuture(wantErr)
	assert.Equal(t, wantErr, f.Err())
}

func TestRSVHasBit(t *testing.T) {
	r := RSV1 | RSV3
	assert.True(t, r.Has(RSV1))
	assert.True(t, r.Has(RSV3))
	assert.False(t, r.Has(RSV2))
}

func TestOpcodeIsControl(t *testing.T) {
	assert.True(t, OpcodeClose.IsControl())
	assert.True(t, OpcodePing.IsControl())
	assert.True(t, OpcodePong.IsControl())
	assert.False(t, OpcodeText.IsControl())
	assert.False(t, OpcodeBinary.IsControl())
	assert.False(t, OpcodeContinuation.IsControl())
}

func TestNoSkipFilterNeverSkips(t *testing.T) {
	var f NoSkipFilter
	assert.False(t, f.MustSkip(&Frame{}))
}
