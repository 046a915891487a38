package permessagedeflate

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/vitalvas/vortex/buffer"
	"github.com/vitalvas/vortex/pipeline"
)

// dictionaryWindow is the maximum DEFLATE back-reference distance
// (32 KiB), the most history a preset dictionary can usefully carry.
const dictionaryWindow = 32 * 1024

// DecoderConfig mirrors EncoderConfig for the receive side.
type DecoderConfig struct {
	NoContext bool
	SkipFilter pipeline.SkipFilter
}

// Decoder is the per-direction inbound companion to Encoder. The
// underlying flate.Reader API streams from a blocking io.Reader, which
// doesn't fit a frame-at-a-time codec well, so instead of keeping one
// reader alive across frames the decoder keeps a rolling preset
// dictionary of the last dictionaryWindow decompressed bytes and feeds a
// fresh one-shot flate.Reader that dictionary before every frame. This
// reproduces DEFLATE context takeover (RFC 7692 §7.2.1) without a
// persistent stream that would otherwise have to be read incrementally.
type Decoder struct {
	cfg DecoderConfig
	alloc pipeline.BufferAllocator

	dictionary []byte
	decompressing bool
}

// NewDecoder constructs a Decoder bound to alloc for producing
// decompressed output Buffers.
func NewDecoder(cfg DecoderConfig, alloc pipeline.BufferAllocator) *Decoder {
	return &Decoder{cfg: cfg, alloc: alloc}
}

func (d *Decoder) mustSkip(f *pipeline.Frame) bool {
	if d.cfg.SkipFilter == nil {
		return false
	}
	return d.cfg.SkipFilter.MustSkip(f)
}

// Decode implements pipeline.InboundHandler.
func (d *Decoder) Decode(ctx pipeline.HandlerContext, in *pipeline.Frame, out *[]*pipeline.Frame) error {
	decoded, err := d.DecodeFrame(in)
	if err != nil {
		return err
	}
	*out = append(*out, decoded)
	return nil
}

// DecodeFrame runs the inbound counterpart of the encoder's decision
// table on a single inbound frame.
func (d *Decoder) DecodeFrame(f *pipeline.Frame) (*pipeline.Frame, error) {
	switch {
	case d.mustSkip(f), f.Opcode.IsControl(), !f.RSV.Has(pipeline.RSV1) && !d.decompressing:
		return f, nil

	case f.Opcode != pipeline.OpcodeContinuation && !f.RSV.Has(pipeline.RSV1):
		return f, nil

	default:
		return d.decompressFrame(f)
	}
}

func (d *Decoder) decompressFrame(f *pipeline.Frame) (*pipeline.Frame, error) {
	if f.Opcode != pipeline.OpcodeContinuation && d.decompressing {
		return nil, ErrUnexpectedStart
	}
	if f.Opcode == pipeline.OpcodeContinuation && !d.decompressing {
		return nil, ErrUnexpectedContinuation
	}

	compressed, err := f.Content.GetBytes(f.Content.ReaderIndex(), f.Content.ReadableBytes())
	if err != nil {
		return nil, err
	}
	compressed = append(compressed, frameTail[:]...)
	// A final empty stored block ends the stream, so the one-shot reader
	// reports io.EOF after this frame's data instead of io.ErrUnexpectedEOF.
	compressed = append(compressed, 0x01, 0x00, 0x00, 0xFF, 0xFF)

	var reader io.Reader = bytes.NewReader(compressed)
	fr := flate.NewReaderDict(reader, d.dictionary)
	defer fr.Close()

	composite, err := d.alloc.CompositeBuffer()
	if err != nil {
		return nil, err
	}

	tracker := &dictTrackingSink{alloc: d.alloc, composite: composite}
	if _, err := io.Copy(tracker, fr); err != nil {
		return nil, err
	}

	d.dictionary = appendDictionary(d.dictionary, tracker.all)

	if f.FinalFragment {
		d.decompressing = false
		if d.cfg.NoContext {
			d.dictionary = nil
		}
	} else {
		d.decompressing = true
	}

	return &pipeline.Frame{
		Opcode: f.Opcode,
		RSV: f.RSV &^ pipeline.RSV1,
		FinalFragment: f.FinalFragment,
		Content: composite,
	}, nil
}

// appendDictionary keeps only the most recent dictionaryWindow bytes of
// decompressed history across frames, per RFC 7692 §7.2.1's 32 KiB
// sliding window.
func appendDictionary(dict, fresh []byte) []byte {
	combined := append(dict, fresh...)
	if len(combined) > dictionaryWindow {
		combined = combined[len(combined)-dictionaryWindow:]
	}
	out := make([]byte, len(combined))
	copy(out, combined)
	return out
}

// dictTrackingSink drains decompressed output into a composite Buffer
// while also retaining a flat copy for appendDictionary — two
// destinations for one underlying Write, matching the "drain produced
// output into a composite Buffer" framing from the encoder side.
type dictTrackingSink struct {
	alloc pipeline.BufferAllocator
	composite buffer.CompositeBuffer
	all []byte
}

func (s *dictTrackingSink) Write(p []byte) (int, error) {
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
	s.all = append(s.all, p...)
	return len(p), nil
}

// HandlerRemoved satisfies pipeline.HandlerRemover; the decoder holds no
// persistent stream to close, only the rolling dictionary byte slice.
func (d *Decoder) HandlerRemoved(ctx pipeline.HandlerContext) error {
	d.dictionary = nil
	d.decompressing = false
	return nil
}
