package websocket

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/vortex/pipeline"
)

func TestWriteReadFrameHeaderRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		fin        bool
		rsv        pipeline.RSV
		opcode     pipeline.Opcode
		masked     bool
		maskKey    [4]byte
		payloadLen int
	}{
		{name: "small unmasked text", fin: true, opcode: pipeline.OpcodeText, payloadLen: 5},
		{name: "masked binary", fin: true, opcode: pipeline.OpcodeBinary, masked: true, maskKey: [4]byte{1, 2, 3, 4}, payloadLen: 10},
		{name: "rsv1 set, not final", fin: false, rsv: pipeline.RSV1, opcode: pipeline.OpcodeBinary, payloadLen: 200},
		{name: "16-bit length", fin: true, opcode: pipeline.OpcodeBinary, payloadLen: 70000 % 65535},
		{name: "64-bit length", fin: true, opcode: pipeline.OpcodeBinary, payloadLen: 70000},
		{name: "continuation frame", fin: true, opcode: pipeline.OpcodeContinuation, payloadLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := writeFrameHeader(&buf, tt.fin, tt.rsv, tt.opcode, tt.masked, tt.maskKey, tt.payloadLen)
			require.NoError(t, err)

			var scratch [8]byte
			fin, rsv, opcode, masked, payloadLen, err := readFrameHeader(&buf, scratch[:])
			require.NoError(t, err)
			assert.Equal(t, tt.fin, fin)
			assert.Equal(t, tt.rsv, rsv)
			assert.Equal(t, tt.opcode, opcode)
			assert.Equal(t, tt.masked, masked)
			assert.Equal(t, int64(tt.payloadLen), payloadLen)

			if tt.masked {
				key, err := readMaskKey(&buf)
				require.NoError(t, err)
				assert.Equal(t, tt.maskKey, key)
			}
		})
	}
}

func TestMaskBytesRoundTrip(t *testing.T) {
	key := [4]byte{0xde, 0xad, 0xbe, 0xef}
	original := []byte("the quick brown fox jumps over the lazy dog")

	data := append([]byte(nil), original...)
	maskBytes(key, data)
	assert.NotEqual(t, original, data)

	maskBytes(key, data)
	assert.Equal(t, original, data)
}
