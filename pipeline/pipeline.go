// Package pipeline defines the minimal inbound/outbound handler and
// context contract the permessage-deflate codec plugs into. Nothing in
// this package runs an event loop or does I/O — it is the collaborator
// interface a pipeline stage is written against, named here with
// concrete Go types so permessagedeflate has something real to
// implement and something real to call.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/vitalvas/vortex/buffer"
)

// Opcode enumerates the WebSocket frame opcodes relevant to the codec.
type Opcode uint8

const (
	OpcodeContinuation Opcode = iota
	OpcodeText
	OpcodeBinary
	_
	_
	_
	_
	_
	OpcodeClose
	OpcodePing
	OpcodePong
)

func (o Opcode) IsControl() bool {
	return o == OpcodeClose || o == OpcodePing || o == OpcodePong
}

// RSV is the 3-bit reserved field from a WebSocket frame header.
// RSV1 (value 0x4) is the permessage-deflate compression bit.
type RSV uint8

const (
	RSV1 RSV = 1 << 2
	RSV2 RSV = 1 << 1
	RSV3 RSV = 1 << 0
)

func (r RSV) Has(bit RSV) bool { return r&bit != 0 }

// Frame is a single WebSocket frame as it crosses the codec boundary.
type Frame struct {
	Opcode Opcode
	RSV RSV
	FinalFragment bool
	Content buffer.Buffer
}

// BufferAllocator is the collaborator a handler uses to produce output
// buffers without depending on package buffer's concrete allocator.
type BufferAllocator interface {
	HeapBuffer(initial int) (buffer.Buffer, error)
	Buffer(initial int) (buffer.Buffer, error)
	CompositeBuffer() (buffer.CompositeBuffer, error)
}

// Future represents the outcome of an outbound write. The codec layer
// completes futures for writes it produces immediately: propagation to
// the actual transport write is the transport's responsibility, not the
// codec's.
type Future interface {
	Done() <-chan struct{}
	Err() error
}

// completedFuture is returned by HandlerContext implementations that
// have nothing to wait on: a write the codec already finished inline has
// no asynchronous completion to model.
type completedFuture struct {
	err error
	done chan struct{}
}

// NewCompletedFuture returns a Future that is already resolved with err
// (nil for success). Collaborator implementations of HandlerContext use
// this for Write calls the codec completes inline.
func NewCompletedFuture(err error) Future {
	ch := make(chan struct{})
	close(ch)
	return &completedFuture{err: err, done: ch}
}

func (f *completedFuture) Done() <-chan struct{} { return f.done }
func (f *completedFuture) Err() error { return f.err }

// HandlerContext is the per-invocation collaborator a handler is given.
type HandlerContext interface {
	Allocator() BufferAllocator
	FireChannelRead(msg any)
	Write(msg any) Future
	FireExceptionCaught(err error)
	// ConnID identifies the channel this context belongs to, stable for
	// its lifetime, so logs and exception reports can be correlated per
	// connection.
	ConnID() uuid.UUID
}

// InboundHandler decodes inbound frames.
type InboundHandler interface {
	Decode(ctx HandlerContext, in *Frame, out *[]*Frame) error
}

// OutboundHandler encodes outbound frames.
type OutboundHandler interface {
	Encode(ctx HandlerContext, out *Frame, result *[]*Frame) error
}

// HandlerRemover is the required cleanup hook.
type HandlerRemover interface {
	HandlerRemoved(ctx HandlerContext) error
}

// SkipFilter decides whether a frame bypasses compression entirely.
type SkipFilter interface {
	MustSkip(f *Frame) bool
}

// NoSkipFilter never skips; it is the default when no SkipFilter is
// configured.
type NoSkipFilter struct{}

func (NoSkipFilter) MustSkip(*Frame) bool { return false }
