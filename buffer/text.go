package buffer

import (
	"golang.org/x/text/encoding/unicode"
)

// EncodeStatus reports how an encode call terminated.
type EncodeStatus int

const (
	Done EncodeStatus = iota
	DestinationTooSmall
	InvalidData
	NeedMoreData
)

// EncodeResult reports how much of the input was consumed and how many
// bytes were written. On DestinationTooSmall, Consumed and Written point
// at the last fully-encoded code unit; the caller grows dst and
// re-invokes on units[Consumed:].
type EncodeResult struct {
	Status EncodeStatus
	Consumed int // UTF-16 code units consumed
	Written int // bytes written to dst
}

const replacementByte = 0x3F // '?'

// surrogate range boundaries per the Unicode Basic Multilingual Plane.
const (
	highSurrogateStart = 0xD800
	highSurrogateEnd = 0xDBFF
	lowSurrogateStart = 0xDC00
	lowSurrogateEnd = 0xDFFF
)

func isHighSurrogate(u uint16) bool { return u >= highSurrogateStart && u <= highSurrogateEnd }
func isLowSurrogate(u uint16) bool { return u >= lowSurrogateStart && u <= lowSurrogateEnd }

// EncodeUTF16ToUTF8 is the fast-path UTF-16→UTF-8 encoder. It writes
// directly into dst starting at dst's current writer index and advances
// it, returning the number of code units consumed and bytes written.
// Unpaired surrogates are replaced with a single 0x3F byte, and encoding
// then resumes at the next code unit.
func EncodeUTF16ToUTF8(units []uint16, dst Buffer) (EncodeResult, error) {
	consumed := 0
	written := 0
	for consumed < len(units) {
		u := units[consumed]

		switch {
		case u < 0x80:
			if err := dst.WriteUint8(uint8(u)); err != nil {
				return EncodeResult{DestinationTooSmall, consumed, written}, nil
			}
			consumed++
			written++

		case u < 0x800:
			b0 := byte(0xC0 | (u >> 6))
			b1 := byte(0x80 | (u & 0x3F))
			if dst.WritableBytes() < 2 && dst.EnsureWritable(2) != nil {
				return EncodeResult{DestinationTooSmall, consumed, written}, nil
			}
			_ = dst.WriteUint8(b0)
			_ = dst.WriteUint8(b1)
			consumed++
			written += 2

		case isHighSurrogate(u):
			if consumed+1 >= len(units) {
				// Truncated pair at end of input: replace and finish, same
				// as any other unpaired surrogate -- the low half simply
				// never arrives within this call's units.
				if err := dst.WriteUint8(replacementByte); err != nil {
					return EncodeResult{DestinationTooSmall, consumed, written}, nil
				}
				consumed++
				written++
				continue
			}
			lo := units[consumed+1]
			if !isLowSurrogate(lo) {
				// Unpaired high surrogate followed by non-low: replace, continue at next position.
				if err := dst.WriteUint8(replacementByte); err != nil {
					return EncodeResult{DestinationTooSmall, consumed, written}, nil
				}
				consumed++
				written++
				continue
			}
			codePoint := 0x10000 + ((uint32(u) - highSurrogateStart) << 10) + (uint32(lo) - lowSurrogateStart)
			if dst.WritableBytes() < 4 && dst.EnsureWritable(4) != nil {
				return EncodeResult{DestinationTooSmall, consumed, written}, nil
			}
			_ = dst.WriteUint8(byte(0xF0 | (codePoint >> 18)))
			_ = dst.WriteUint8(byte(0x80 | ((codePoint >> 12) & 0x3F)))
			_ = dst.WriteUint8(byte(0x80 | ((codePoint >> 6) & 0x3F)))
			_ = dst.WriteUint8(byte(0x80 | (codePoint & 0x3F)))
			consumed += 2
			written += 4

		case isLowSurrogate(u):
			// Lone low surrogate: replace, continue.
			if err := dst.WriteUint8(replacementByte); err != nil {
				return EncodeResult{DestinationTooSmall, consumed, written}, nil
			}
			consumed++
			written++

		default:
			if dst.WritableBytes() < 3 && dst.EnsureWritable(3) != nil {
				return EncodeResult{DestinationTooSmall, consumed, written}, nil
			}
			_ = dst.WriteUint8(byte(0xE0 | (u >> 12)))
			_ = dst.WriteUint8(byte(0x80 | ((u >> 6) & 0x3F)))
			_ = dst.WriteUint8(byte(0x80 | (u & 0x3F)))
			consumed++
			written += 3
		}
	}
	return EncodeResult{Done, consumed, written}, nil
}

// EncodeUTF16ToASCII truncates each code unit to its low 7 bits; code
// units outside the ASCII range are mapped to the 0x3F replacement byte.
func EncodeUTF16ToASCII(units []uint16, dst Buffer) (EncodeResult, error) {
	consumed := 0
	written := 0
	for consumed < len(units) {
		u := units[consumed]
		b := byte(u & 0x7F)
		if u > 0x7F {
			b = replacementByte
		}
		if err := dst.WriteUint8(b); err != nil {
			return EncodeResult{DestinationTooSmall, consumed, written}, nil
		}
		consumed++
		written++
	}
	return EncodeResult{Done, consumed, written}, nil
}

// Encoding names the byte-level text encoding for Decode.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF16BigEndian
	UTF16LittleEndian
)

// Decode implements the generic decoder: decode(buffer, index, length,
// encoding) -> string. UTF-16 variants route through
// golang.org/x/text/encoding/unicode's platform decoder; zero-length
// input returns the empty string without touching encoding machinery at
// all.
func Decode(buf Buffer, index, length int, encoding Encoding) (string, error) {
	if length == 0 {
		return "", nil
	}
	raw, err := buf.GetBytes(index, length)
	if err != nil {
		return "", err
	}
	switch encoding {
	case UTF8:
		return string(raw), nil
	case UTF16BigEndian:
		return decodeUTF16(raw, unicode.BigEndian)
	case UTF16LittleEndian:
		return decodeUTF16(raw, unicode.LittleEndian)
	default:
		return string(raw), nil
	}
}

func decodeUTF16(raw []byte, endianness unicode.Endianness) (string, error) {
	dec := unicode.UTF16(endianness, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
