package websocket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCloseMessage(t *testing.T) {
	msg := FormatCloseMessage(CloseNormalClosure, "bye")
	assert.Equal(t, []byte{0x03, 0xe8, 'b', 'y', 'e'}, msg)

	assert.Empty(t, FormatCloseMessage(CloseNoStatusReceived, "ignored"))
}

func TestIsCloseError(t *testing.T) {
	err := &CloseError{Code: CloseGoingAway, Text: "leaving"}
	assert.True(t, IsCloseError(err, CloseGoingAway, CloseNormalClosure))
	assert.False(t, IsCloseError(err, CloseNormalClosure))
	assert.False(t, IsCloseError(errors.New("other"), CloseGoingAway))
}

func TestIsUnexpectedCloseError(t *testing.T) {
	err := &CloseError{Code: CloseProtocolError}
	assert.True(t, IsUnexpectedCloseError(err, CloseNormalClosure, CloseGoingAway))
	assert.False(t, IsUnexpectedCloseError(err, CloseProtocolError))
}

func TestCloseErrorMessage(t *testing.T) {
	err := &CloseError{Code: CloseNormalClosure, Text: "done"}
	assert.Contains(t, err.Error(), "1000 (normal)")
	assert.Contains(t, err.Error(), "done")
}

func TestCloseCodeStringUnknown(t *testing.T) {
	assert.Equal(t, "1099", closeCodeString(1099))
}
