package websocket

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/vitalvas/vortex/buffer"
	"github.com/vitalvas/vortex/permessagedeflate"
	"github.com/vitalvas/vortex/pipeline"
)

// Message types defined in RFC 6455, section 11.8. These line up with
// the pipeline.Opcode values of the same name, so a messageType can be
// converted straight to pipeline.Opcode and back.
const (
	TextMessage   = int(pipeline.OpcodeText)
	BinaryMessage = int(pipeline.OpcodeBinary)
	CloseMessage  = int(pipeline.OpcodeClose)
	PingMessage   = int(pipeline.OpcodePing)
	PongMessage   = int(pipeline.OpcodePong)
)

// defaultCompressionLevel is used for negotiated connections; it is not
// configurable per connection, matching the stateless, always-no-context
// negotiation this server performs (see negotiateCompression).
const defaultCompressionLevel = 6

// Conn represents a server-side WebSocket connection. Every frame it
// reads or writes passes through a buffer.Buffer and, when compression
// is negotiated, through a permessagedeflate.Encoder/Decoder pair rather
// than a raw byte-slice codec.
type Conn struct {
	netConn net.Conn
	br      *bufio.Reader
	bw      *bufio.Writer

	alloc *buffer.Allocator

	readMu    sync.Mutex
	readLimit int64
	readErr   error

	writeMu  sync.Mutex
	writeErr error

	compressionEnabled bool
	encoder            *permessagedeflate.Encoder
	decoder            *permessagedeflate.Decoder

	pingHandler  func(appData string) error
	pongHandler  func(appData string) error
	closeHandler func(code int, text string) error
}

func newConn(netConn net.Conn, br *bufio.Reader, readBufferSize, writeBufferSize int, compression compressionParams) (*Conn, error) {
	if readBufferSize <= 0 {
		readBufferSize = defaultReadBufferSize
	}
	if writeBufferSize <= 0 {
		writeBufferSize = defaultWriteBufferSize
	}
	if br == nil {
		br = bufio.NewReaderSize(netConn, readBufferSize)
	}

	alloc := buffer.NewAllocator()
	c := &Conn{
		netConn: netConn,
		br:      br,
		bw:      bufio.NewWriterSize(netConn, writeBufferSize),
		alloc:   alloc,
	}

	if compression.negotiated {
		enc, err := permessagedeflate.NewEncoder(permessagedeflate.EncoderConfig{
			CompressionLevel: defaultCompressionLevel,
			NoContext:        compression.serverNoContextTakeover,
		}, alloc)
		if err != nil {
			return nil, err
		}
		c.compressionEnabled = true
		c.encoder = enc
		c.decoder = permessagedeflate.NewDecoder(permessagedeflate.DecoderConfig{
			NoContext: compression.clientNoContextTakeover,
		}, alloc)
	}

	c.pingHandler = func(appData string) error {
		return c.WriteControl(PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	}
	c.pongHandler = func(_ string) error { return nil }
	c.closeHandler = func(code int, text string) error {
		msg := FormatCloseMessage(code, text)
		_ = c.WriteControl(CloseMessage, msg, time.Now().Add(5*time.Second))
		return nil
	}

	return c, nil
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.netConn.Close()
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.netConn.LocalAddr() }

// RemoteAddr returns the remote network address.
func (c *Conn) RemoteAddr() net.Addr { return c.netConn.RemoteAddr() }

// SetReadDeadline sets the read deadline on the underlying connection.
func (c *Conn) SetReadDeadline(t time.Time) error { return c.netConn.SetReadDeadline(t) }

// SetWriteDeadline sets the write deadline on the underlying connection.
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.netConn.SetWriteDeadline(t) }

// SetReadLimit sets the maximum size in bytes for a message read from
// the peer; 0 means unlimited.
func (c *Conn) SetReadLimit(limit int64) { c.readLimit = limit }

// SetPingHandler sets the handler invoked for inbound ping frames.
func (c *Conn) SetPingHandler(h func(appData string) error) {
	if h == nil {
		h = func(appData string) error {
			return c.WriteControl(PongMessage, []byte(appData), time.Now().Add(5*time.Second))
		}
	}
	c.pingHandler = h
}

// SetPongHandler sets the handler invoked for inbound pong frames.
func (c *Conn) SetPongHandler(h func(appData string) error) {
	if h == nil {
		h = func(_ string) error { return nil }
	}
	c.pongHandler = h
}

// SetCloseHandler sets the handler invoked for an inbound close frame.
func (c *Conn) SetCloseHandler(h func(code int, text string) error) {
	if h == nil {
		h = func(code int, text string) error {
			msg := FormatCloseMessage(code, text)
			_ = c.WriteControl(CloseMessage, msg, time.Now().Add(5*time.Second))
			return nil
		}
	}
	c.closeHandler = h
}

// WriteControl writes a control frame (close, ping, or pong) with the
// given deadline. Control frame payloads are never compressed.
func (c *Conn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	if messageType != CloseMessage && messageType != PingMessage && messageType != PongMessage {
		return ErrInvalidControlFrame
	}
	if len(data) > maxControlFramePayloadSize {
		return ErrControlFrameTooBig
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}

	_ = c.netConn.SetWriteDeadline(deadline)
	defer func() { _ = c.netConn.SetWriteDeadline(time.Time{}) }()

	if err := c.writeRawFrame(pipeline.Opcode(messageType), 0, true, data); err != nil {
		return err
	}
	if messageType == CloseMessage {
		c.writeErr = ErrCloseSent
	}
	return nil
}

// WriteMessage writes a single text or binary message as one unfragmented
// frame, compressing it through permessagedeflate when negotiated.
func (c *Conn) WriteMessage(messageType int, data []byte) error {
	if messageType != TextMessage && messageType != BinaryMessage {
		return ErrInvalidMessageType
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}

	content, err := c.alloc.Buffer(len(data))
	if err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := content.WriteBytes(data); err != nil {
			_, _ = content.Release()
			return err
		}
	}

	frame := &pipeline.Frame{Opcode: pipeline.Opcode(messageType), FinalFragment: true, Content: content}

	if c.compressionEnabled {
		out, err := c.encoder.EncodeFrame(frame)
		if err != nil {
			_, _ = content.Release()
			return err
		}
		frame = out
	}

	payload, err := frame.Content.GetBytes(frame.Content.ReaderIndex(), frame.Content.ReadableBytes())
	_, _ = frame.Content.Release()
	if err != nil {
		return err
	}

	return c.writeRawFrame(frame.Opcode, frame.RSV, frame.FinalFragment, payload)
}

// writeRawFrame writes a single already-encoded frame. Frames are always
// written unmasked: this is the server side, and only client-to-server
// frames carry a mask.
func (c *Conn) writeRawFrame(opcode pipeline.Opcode, rsv pipeline.RSV, fin bool, payload []byte) error {
	if err := writeFrameHeader(c.bw, fin, rsv, opcode, false, [4]byte{}, len(payload)); err != nil {
		return err
	}
	if _, err := c.bw.Write(payload); err != nil {
		return err
	}
	return c.bw.Flush()
}

// ReadMessage reads the next complete message, reassembling fragments
// and routing each frame through the negotiated decoder before the
// message is considered complete.
func (c *Conn) ReadMessage() (messageType int, p []byte, err error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.readErr != nil {
		return 0, nil, c.readErr
	}

	var scratch [8]byte
	var composite buffer.CompositeBuffer
	var msgOpcode pipeline.Opcode
	var messageLen int64
	expectingContinuation := false

	for {
		fin, rsv, opcode, masked, payloadLen, err := readFrameHeader(c.br, scratch[:])
		if err != nil {
			c.readErr = err
			return 0, nil, err
		}

		if rsv&^pipeline.RSV1 != 0 || (rsv.Has(pipeline.RSV1) && !c.compressionEnabled) {
			c.readErr = ErrReservedBits
			return 0, nil, c.readErr
		}
		if opcode.IsControl() {
			if !fin {
				c.readErr = ErrFragmentedControlFrame
				return 0, nil, c.readErr
			}
			if payloadLen > maxControlFramePayloadSize {
				c.readErr = ErrControlFrameTooBig
				return 0, nil, c.readErr
			}
		}
		if c.readLimit > 0 && !opcode.IsControl() && messageLen+payloadLen > c.readLimit {
			c.readErr = ErrReadLimit
			return 0, nil, c.readErr
		}

		var maskKey [4]byte
		if masked {
			maskKey, err = readMaskKey(c.br)
			if err != nil {
				c.readErr = err
				return 0, nil, err
			}
		}

		raw := make([]byte, payloadLen)
		if _, err := io.ReadFull(c.br, raw); err != nil {
			c.readErr = err
			return 0, nil, err
		}
		if masked {
			maskBytes(maskKey, raw)
		}

		if opcode.IsControl() {
			switch pipeline.Opcode(opcode) {
			case pipeline.OpcodePing:
				if err := c.pingHandler(string(raw)); err != nil {
					return 0, nil, err
				}
			case pipeline.OpcodePong:
				if err := c.pongHandler(string(raw)); err != nil {
					return 0, nil, err
				}
			case pipeline.OpcodeClose:
				code := CloseNoStatusReceived
				text := ""
				if len(raw) >= 2 {
					code = int(raw[0])<<8 | int(raw[1])
					text = string(raw[2:])
				}
				_ = c.closeHandler(code, text)
				c.readErr = &CloseError{Code: code, Text: text}
				return 0, nil, c.readErr
			}
			continue
		}
		messageLen += payloadLen

		if opcode == pipeline.OpcodeContinuation && !expectingContinuation {
			c.readErr = ErrUnexpectedContinuation
			return 0, nil, c.readErr
		}
		if opcode != pipeline.OpcodeContinuation && expectingContinuation {
			c.readErr = ErrExpectedContinuation
			return 0, nil, c.readErr
		}

		content, err := c.alloc.Buffer(len(raw))
		if err != nil {
			return 0, nil, err
		}
		if len(raw) > 0 {
			if _, err := content.WriteBytes(raw); err != nil {
				_, _ = content.Release()
				return 0, nil, err
			}
		}

		frame := &pipeline.Frame{Opcode: opcode, RSV: rsv, FinalFragment: fin, Content: content}
		if c.compressionEnabled {
			decoded, err := c.decoder.DecodeFrame(frame)
			if err != nil {
				_, _ = content.Release()
				return 0, nil, err
			}
			frame = decoded
		}

		if composite == nil {
			composite, err = c.alloc.CompositeBuffer()
			if err != nil {
				_, _ = frame.Content.Release()
				return 0, nil, err
			}
			msgOpcode = opcode
		}
		if err := composite.AddComponent(true, frame.Content); err != nil {
			_, _ = frame.Content.Release()
			return 0, nil, err
		}

		if fin {
			data, err := composite.GetBytes(0, composite.ReadableBytes())
			_, _ = composite.Release()
			return int(msgOpcode), data, err
		}
		expectingContinuation = true
	}
}
