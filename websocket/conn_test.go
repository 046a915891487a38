package websocket

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/vortex/pipeline"
)

func pipeConns(t *testing.T, compression compressionParams) (*Conn, *Conn) {
	t.Helper()
	serverRaw, clientRaw := net.Pipe()

	server, err := newConn(serverRaw, nil, 0, 0, compression)
	require.NoError(t, err)
	client, err := newConn(clientRaw, nil, 0, 0, compression)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server, client
}

func TestConnWriteReadMessageRoundTrip(t *testing.T) {
	server, client := pipeConns(t, compressionParams{})

	payload := []byte("hello over the wire")
	done := make(chan error, 1)
	go func() { done <- server.WriteMessage(TextMessage, payload) }()

	msgType, p, err := client.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, TextMessage, msgType)
	assert.Equal(t, payload, p)
}

func TestConnWriteReadMessageWithCompression(t *testing.T) {
	compression := compressionParams{negotiated: true, serverNoContextTakeover: true, clientNoContextTakeover: true}
	server, client := pipeConns(t, compression)

	payload := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	done := make(chan error, 1)
	go func() { done <- server.WriteMessage(BinaryMessage, payload) }()

	msgType, p, err := client.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, BinaryMessage, msgType)
	assert.Equal(t, payload, p)
}

func TestConnWriteControlPing(t *testing.T) {
	server, client := pipeConns(t, compressionParams{})

	var gotPing string
	client.SetPingHandler(func(appData string) error {
		gotPing = appData
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- server.WriteControl(PingMessage, []byte("ping-data"), time.Now().Add(time.Second)) }()

	// Read on the client so the ping write can complete; the overridden
	// ping handler runs synchronously inside ReadMessage and sends no pong.
	go func() {
		_, _, _ = client.ReadMessage()
	}()

	require.NoError(t, <-done)
	assert.Eventually(t, func() bool { return gotPing == "ping-data" }, time.Second, time.Millisecond)
}

func TestConnWriteMessageInvalidType(t *testing.T) {
	server, _ := pipeConns(t, compressionParams{})
	err := server.WriteMessage(int(pipeline.OpcodeClose), []byte("x"))
	assert.Equal(t, ErrInvalidMessageType, err)
}

func TestConnWriteControlTooBig(t *testing.T) {
	server, _ := pipeConns(t, compressionParams{})
	err := server.WriteControl(PingMessage, make([]byte, maxControlFramePayloadSize+1), time.Now().Add(time.Second))
	assert.Equal(t, ErrControlFrameTooBig, err)
}

func TestConnFragmentedMessage(t *testing.T) {
	server, client := pipeConns(t, compressionParams{})

	first := []byte("frag-one-")
	second := []byte("frag-two")

	done := make(chan error, 1)
	go func() {
		server.writeMu.Lock()
		defer server.writeMu.Unlock()
		if err := server.writeRawFrame(pipeline.OpcodeText, 0, false, first); err != nil {
			done <- err
			return
		}
		done <- server.writeRawFrame(pipeline.OpcodeContinuation, 0, true, second)
	}()

	msgType, p, err := client.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, TextMessage, msgType)
	assert.Equal(t, append(append([]byte{}, first...), second...), p)
}

func TestConnCloseHandshake(t *testing.T) {
	server, client := pipeConns(t, compressionParams{})

	done := make(chan error, 1)
	go func() { done <- server.WriteControl(CloseMessage, FormatCloseMessage(CloseNormalClosure, "bye"), time.Now().Add(time.Second)) }()

	_, _, err := client.ReadMessage()
	require.NoError(t, <-done)
	assert.True(t, IsCloseError(err, CloseNormalClosure))
}

func TestConnRemoteLocalAddr(t *testing.T) {
	server, client := pipeConns(t, compressionParams{})
	assert.NotNil(t, server.RemoteAddr())
	assert.NotNil(t, client.LocalAddr())
}
