// Package permessagedeflate implements the WebSocket permessage-deflate
// (RFC 7692) frame codec: a stateful compressor/decompressor pair that
// carries streaming DEFLATE state across frames and fragments, with
// per-frame skip policies, empty-frame handling, and fragmentation
// invariants.
package permessagedeflate

import (
	"github.com/klauspost/compress/flate"

	"github.com/vitalvas/vortex/buffer"
	"github.com/vitalvas/vortex/pipeline"
)

// frameTail is the 4-byte DEFLATE sync-flush trailer permessage-deflate
// strips from the final fragment of a compressed message and the peer
// re-appends before inflating.
var frameTail = [4]byte{0x00, 0x00, 0xFF, 0xFF}

// emptyDeflateBlock is the canonical payload for an empty final
// compressed frame.
var emptyDeflateBlock = [1]byte{0x00}

// EncoderConfig holds the negotiated permessage-deflate parameters.
type EncoderConfig struct {
	CompressionLevel int // [0,9]
	WindowBits int // [9,15]; kept for parity with the negotiated extension parameters (klauspost/compress/flate, like stdlib, always uses a 32KB window)
	NoContext bool
	SkipFilter pipeline.SkipFilter
}

func (c EncoderConfig) validate() error {
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return newCodecError("compression level out of range [0,9]")
	}
	if c.WindowBits != 0 && (c.WindowBits < 9 || c.WindowBits > 15) {
		return newCodecError("window bits out of range [9,15]")
	}
	return nil
}

type encoderState int

const (
	stateIdle encoderState = iota
	stateMidMessage
)

// bufferSink is an io.Writer that lands every write the DEFLATE stream
// produces as its own pooled Buffer component, added to whichever
// composite is currently attached, draining the stream's output straight
// into a composite Buffer instead of an intermediate byte slice.
type bufferSink struct {
	alloc pipeline.BufferAllocator
	composite buffer.CompositeBuffer
}

func (s *bufferSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := s.alloc.Buffer(len(p))
	if err != nil {
		return 0, err
	}
	if _, err := b.WriteBytes(p); err != nil {
		_, _ = b.Release()
		return 0, err
	}
	if err := s.composite.AddComponent(true, b); err != nil {
		_, _ = b.Release()
		return 0, err
	}
	return len(p), nil
}

// Encoder is the per-direction, per-connection compressor. It is not
// safe for concurrent use — a pipeline stage guarantees a single
// channel's outbound invocations are serialized on one thread, so the
// encoder relies on that discipline instead of locking internally.
type Encoder struct {
	cfg EncoderConfig
	alloc pipeline.BufferAllocator

	stream *flate.Writer
	sink *bufferSink
	state encoderState
}

// NewEncoder constructs an Encoder bound to alloc for producing output
// Buffers. The DEFLATE stream itself is lazily constructed on the first
// compressible frame.
func NewEncoder(cfg EncoderConfig, alloc pipeline.BufferAllocator) (*Encoder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Encoder{cfg: cfg, alloc: alloc, state: stateIdle}, nil
}

func (e *Encoder) ensureStream() error {
	if e.stream != nil {
		return nil
	}
	e.sink = &bufferSink{alloc: e.alloc}
	w, err := flate.NewWriter(e.sink, e.cfg.CompressionLevel)
	if err != nil {
		return err
	}
	e.stream = w
	return nil
}

func (e *Encoder) disposeStream() {
	e.stream = nil
	e.sink = nil
}

// mustSkip applies the configured SkipFilter.
func (e *Encoder) mustSkip(f *pipeline.Frame) bool {
	if e.cfg.SkipFilter == nil {
		return false
	}
	return e.cfg.SkipFilter.MustSkip(f)
}

// Encode implements pipeline.OutboundHandler, applying EncodeFrame's
// decision table and state machine to a single outbound frame.
func (e *Encoder) Encode(ctx pipeline.HandlerContext, out *pipeline.Frame, result *[]*pipeline.Frame) error {
	emitted, err := e.EncodeFrame(out)
	if err != nil {
		return err
	}
	*result = append(*result, emitted)
	return nil
}

// EncodeFrame runs the compression decision table on a single frame and
// returns the frame to actually emit.
func (e *Encoder) EncodeFrame(f *pipeline.Frame) (*pipeline.Frame, error) {
	switch {
	case e.mustSkip(f):
		return f, nil

	case f.RSV.Has(pipeline.RSV1):
		// Already compressed upstream; pass through untouched.
		return f, nil

	case f.Content.ReadableBytes() == 0 && f.FinalFragment:
		content, err := buffer.Allocate(len(emptyDeflateBlock), len(emptyDeflateBlock))
		if err != nil {
			return nil, err
		}
		if _, err := content.WriteBytes(emptyDeflateBlock[:]); err != nil {
			return nil, err
		}
		e.state = stateIdle
		return &pipeline.Frame{
			Opcode: f.Opcode,
			RSV: f.RSV | pipeline.RSV1,
			FinalFragment: true,
			Content: content,
		}, nil

	case f.Content.ReadableBytes() == 0 && !f.FinalFragment:
		return nil, ErrEmptyMidMessageFrame

	case f.Opcode != pipeline.OpcodeText && f.Opcode != pipeline.OpcodeBinary && f.Opcode != pipeline.OpcodeContinuation:
		return nil, ErrUnexpectedFrameType

	default:
		return e.compressFrame(f)
	}
}

func (e *Encoder) compressFrame(f *pipeline.Frame) (*pipeline.Frame, error) {
	if f.Opcode != pipeline.OpcodeContinuation && e.state == stateMidMessage {
		return nil, ErrUnexpectedStart
	}
	if f.Opcode == pipeline.OpcodeContinuation && e.state != stateMidMessage {
		return nil, ErrUnexpectedContinuation
	}

	if err := e.ensureStream(); err != nil {
		return nil, err
	}

	composite, err := e.alloc.CompositeBuffer()
	if err != nil {
		return nil, err
	}
	e.sink.composite = composite

	payload, err := f.Content.GetBytes(f.Content.ReaderIndex(), f.Content.ReadableBytes())
	if err != nil {
		return nil, err
	}
	if _, err := e.stream.Write(payload); err != nil {
		return nil, err
	}
	if err := e.stream.Flush(); err != nil {
		return nil, err
	}

	if composite.ReadableBytes() == 0 {
		return nil, ErrNoCompressedOutput
	}

	if removeFrameTail(f) {
		if err := composite.SetWriterIndex(composite.WriterIndex() - len(frameTail)); err != nil {
			return nil, err
		}
	}

	outRSV := f.RSV
	if f.Opcode != pipeline.OpcodeContinuation {
		outRSV |= pipeline.RSV1
	}

	if f.FinalFragment {
		e.state = stateIdle
		if e.cfg.NoContext {
			e.disposeStream()
		}
	} else {
		e.state = stateMidMessage
	}

	return &pipeline.Frame{
		Opcode: f.Opcode,
		RSV: outRSV,
		FinalFragment: f.FinalFragment,
		Content: composite,
	}, nil
}

// removeFrameTail is true for the final fragment of a message under
// permessage-deflate.
func removeFrameTail(f *pipeline.Frame) bool {
	return f.FinalFragment
}

// HandlerRemoved finishes and drains the stream, releasing residual
// buffers.
func (e *Encoder) HandlerRemoved(ctx pipeline.HandlerContext) error {
	if e.stream == nil {
		return nil
	}
	composite, err := e.alloc.CompositeBuffer()
	if err != nil {
		return err
	}
	e.sink.composite = composite
	err = e.stream.Close()
	e.disposeStream()
	if releaseErr := func() error {
		_, relErr := composite.Release()
		return relErr
	}(); releaseErr != nil && err == nil {
		err = releaseErr
	}
	return err
}
