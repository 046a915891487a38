// Package buffer implements the reference-counted, pooled byte buffer
// system: a zero-copy, composable buffer abstraction with pooled backing
// storage, slice/duplicate views, and a ref-count-driven lifecycle that
// returns storage to its originating pool deterministically.
package buffer

import (
	"bytes"
	"encoding/binary"
	"math/bits"
	"math"
)

// Buffer is the indexed, reader/writer-cursored byte container at the
// center of this package. Concrete variants (arrayBackedBuffer,
// sliceView, retainedSliceView, duplicateView, retainedDuplicateView,
// compositeBuffer) satisfy it without a shared base type, favoring
// composition over a deep inheritance chain.
type Buffer interface {
	// Reference counting.
	Retain() (Buffer, error)
	RetainN(n int) (Buffer, error)
	Release() (bool, error)
	ReleaseN(n int) (bool, error)
	ReferenceCount() int32
	Touch(hint any) Buffer

	// Capacity and cursors.
	Capacity() int
	MaxCapacity() int
	ReaderIndex() int
	WriterIndex() int
	ReadableBytes() int
	WritableBytes() int
	MaxWritableBytes() int

	SetReaderIndex(i int) error
	SetWriterIndex(i int) error
	SetIndex(r, w int) error
	MarkReaderIndex()
	ResetReaderIndex() error
	MarkWriterIndex()
	ResetWriterIndex() error

	EnsureWritable(n int) error
	AdjustCapacity(newCap int) error

	// Cursor-moving numeric accessors, big-endian by default.
	ReadUint8() (uint8, error)
	ReadInt8() (int8, error)
	ReadUint16() (uint16, error)
	ReadInt16() (int16, error)
	ReadUint16LE() (uint16, error)
	ReadInt16LE() (int16, error)
	ReadUint32() (uint32, error)
	ReadInt32() (int32, error)
	ReadUint32LE() (uint32, error)
	ReadInt32LE() (int32, error)
	ReadUint64() (uint64, error)
	ReadInt64() (int64, error)
	ReadUint64LE() (uint64, error)
	ReadInt64LE() (int64, error)
	ReadFloat32() (float32, error)
	ReadFloat32LE() (float32, error)
	ReadFloat64() (float64, error)
	ReadFloat64LE() (float64, error)
	ReadBytes(n int) ([]byte, error)

	WriteUint8(v uint8) error
	WriteInt8(v int8) error
	WriteUint16(v uint16) error
	WriteInt16(v int16) error
	WriteUint16LE(v uint16) error
	WriteInt16LE(v int16) error
	WriteUint32(v uint32) error
	WriteInt32(v int32) error
	WriteUint32LE(v uint32) error
	WriteInt32LE(v int32) error
	WriteUint64(v uint64) error
	WriteInt64(v int64) error
	WriteUint64LE(v uint64) error
	WriteInt64LE(v int64) error
	WriteFloat32(v float32) error
	WriteFloat32LE(v float32) error
	WriteFloat64(v float64) error
	WriteFloat64LE(v float64) error
	WriteBytes(p []byte) (int, error)

	// Absolute (non-cursor-moving) accessors.
	GetUint8(index int) (uint8, error)
	SetUint8(index int, v uint8) error
	GetUint16(index int) (uint16, error)
	SetUint16(index int, v uint16) error
	GetUint32(index int) (uint32, error)
	SetUint32(index int, v uint32) error
	GetUint64(index int) (uint64, error)
	SetUint64(index int, v uint64) error
	GetBytes(index, length int) ([]byte, error)
	SetBytes(index int, p []byte) error

	// Views and copies.
	Slice(index, length int) (Buffer, error)
	RetainedSlice(index, length int) (Buffer, error)
	Duplicate() (Buffer, error)
	RetainedDuplicate() (Buffer, error)
	Copy(index, length int) (Buffer, error)

	IndexOf(needle []byte) int
	Equals(other Buffer) bool
	CompareTo(other Buffer) int
	AsReadableSpan(index, length int) ([]byte, error)
}

// Allocate constructs a new pool-backed Buffer: an arrayBackedBuffer
// whose backing array is rented from the global size-class byte-array
// pool and whose object itself is drawn from the recycler slot.
func Allocate(initial, maxCapacity int) (Buffer, error) {
	if initial < 0 || maxCapacity < initial {
		return nil, &CapacityExceededError{Requested: initial, MaxCapacity: maxCapacity}
	}
	b := acquireRecycledBuffer()
	class := sizeClass(initial)
	b.data = globalByteArrayPool.get(class)[:initial]
	b.maxCapacity = maxCapacity
	b.rc = newRefCounted()
	b.markedReaderIndex = -1
	b.markedWriterIndex = -1
	return b, nil
}

// arrayBackedBuffer is the owning, pool-backed Buffer variant.
type arrayBackedBuffer struct {
	rc refCounted

	data []byte // len(data) == capacity

	maxCapacity int
	readerIndex int
	writerIndex int

	markedReaderIndex int
	markedWriterIndex int
}

func (b *arrayBackedBuffer) checkLive() error {
	if b.rc.isDeallocated() {
		return &IllegalReferenceCountError{RefCnt: 0}
	}
	return nil
}

// ---- reference counting ----

func (b *arrayBackedBuffer) Retain() (Buffer, error) { return b.retainChecked(1) }
func (b *arrayBackedBuffer) RetainN(n int) (Buffer, error) { return b.retainChecked(n) }

func (b *arrayBackedBuffer) retainChecked(n int) (Buffer, error) {
	if err := b.rc.retain(n); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *arrayBackedBuffer) Release() (bool, error) { return b.releaseChecked(1) }
func (b *arrayBackedBuffer) ReleaseN(n int) (bool, error) { return b.releaseChecked(n) }

func (b *arrayBackedBuffer) releaseChecked(n int) (bool, error) {
	freed, err := b.rc.release(n)
	if err != nil {
		return false, err
	}
	if freed {
		globalByteArrayPool.put(b.data)
		releaseRecycledBuffer(b)
	}
	return freed, nil
}

func (b *arrayBackedBuffer) ReferenceCount() int32 { return b.rc.referenceCount() }
func (b *arrayBackedBuffer) Touch(_ any) Buffer { b.rc.touch(nil); return b }

// ---- capacity and cursors ----

func (b *arrayBackedBuffer) Capacity() int { return len(b.data) }
func (b *arrayBackedBuffer) MaxCapacity() int { return b.maxCapacity }
func (b *arrayBackedBuffer) ReaderIndex() int { return b.readerIndex }
func (b *arrayBackedBuffer) WriterIndex() int { return b.writerIndex }

func (b *arrayBackedBuffer) ReadableBytes() int { return b.writerIndex - b.readerIndex }
func (b *arrayBackedBuffer) WritableBytes() int { return b.Capacity() - b.writerIndex }
func (b *arrayBackedBuffer) MaxWritableBytes() int { return b.maxCapacity - b.writerIndex }

func (b *arrayBackedBuffer) SetReaderIndex(i int) error {
	if i < 0 || i > b.writerIndex {
		return &IndexOutOfRangeError{Index: i, Capacity: b.Capacity()}
	}
	b.readerIndex = i
	return nil
}

func (b *arrayBackedBuffer) SetWriterIndex(i int) error {
	if i < b.readerIndex || i > b.Capacity() {
		return &IndexOutOfRangeError{Index: i, Capacity: b.Capacity()}
	}
	b.writerIndex = i
	return nil
}

func (b *arrayBackedBuffer) SetIndex(r, w int) error {
	if r < 0 || r > w || w > b.Capacity() {
		return &IndexOutOfRangeError{Index: r, Length: w, Capacity: b.Capacity()}
	}
	b.readerIndex, b.writerIndex = r, w
	return nil
}

func (b *arrayBackedBuffer) MarkReaderIndex() { b.markedReaderIndex = b.readerIndex }
func (b *arrayBackedBuffer) ResetReaderIndex() error {
	if b.markedReaderIndex < 0 {
		return &IndexOutOfRangeError{Index: -1, Capacity: b.Capacity()}
	}
	return b.SetReaderIndex(b.markedReaderIndex)
}
func (b *arrayBackedBuffer) MarkWriterIndex() { b.markedWriterIndex = b.writerIndex }
func (b *arrayBackedBuffer) ResetWriterIndex() error {
	if b.markedWriterIndex < 0 {
		return &IndexOutOfRangeError{Index: -1, Capacity: b.Capacity()}
	}
	return b.SetWriterIndex(b.markedWriterIndex)
}

// nextPow2Capacity returns the smallest power of two >= n.
func nextPow2Capacity(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// EnsureWritable grows capacity to fit n more writable bytes: new
// capacity is the smallest power-of-two >= required, capped at
// max_capacity.
func (b *arrayBackedBuffer) EnsureWritable(n int) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if b.WritableBytes() >= n {
		return nil
	}
	required := b.writerIndex + n
	if required > b.maxCapacity {
		return &CapacityExceededError{Requested: required, MaxCapacity: b.maxCapacity}
	}
	newCap := nextPow2Capacity(required)
	if newCap > b.maxCapacity {
		newCap = b.maxCapacity
	}
	return b.AdjustCapacity(newCap)
}

// AdjustCapacity resizes the backing array, trimming indices and copying
// min(old, new) bytes.
func (b *arrayBackedBuffer) AdjustCapacity(newCap int) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if newCap > b.maxCapacity {
		return &CapacityExceededError{Requested: newCap, MaxCapacity: b.maxCapacity}
	}
	oldCap := b.Capacity()
	if newCap == oldCap {
		return nil
	}
	newData := globalByteArrayPool.get(sizeClass(newCap))[:newCap]
	copy(newData, b.data[:min(oldCap, newCap)])
	globalByteArrayPool.put(b.data)
	b.data = newData
	if b.writerIndex > newCap {
		b.writerIndex = newCap
	}
	if b.readerIndex > b.writerIndex {
		b.readerIndex = b.writerIndex
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ---- numeric accessors ----

func (b *arrayBackedBuffer) requireReadable(n int) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if b.ReadableBytes() < n {
		return &IndexOutOfRangeError{Index: b.readerIndex, Length: n, Capacity: b.Capacity()}
	}
	return nil
}

func (b *arrayBackedBuffer) requireWritable(n int) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if err := b.EnsureWritable(n); err != nil {
		return err
	}
	return nil
}

func (b *arrayBackedBuffer) requireAbsolute(index, length int) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	if index < 0 || length < 0 || index+length > b.Capacity() {
		return &IndexOutOfRangeError{Index: index, Length: length, Capacity: b.Capacity()}
	}
	return nil
}

func (b *arrayBackedBuffer) ReadUint8() (uint8, error) {
	if err := b.requireReadable(1); err != nil {
		return 0, err
	}
	v := b.data[b.readerIndex]
	b.readerIndex++
	return v, nil
}

func (b *arrayBackedBuffer) ReadInt8() (int8, error) {
	v, err := b.ReadUint8()
	return int8(v), err
}

func (b *arrayBackedBuffer) readFixed(n int, be bool) ([]byte, error) {
	if err := b.requireReadable(n); err != nil {
		return nil, err
	}
	v := b.data[b.readerIndex : b.readerIndex+n]
	b.readerIndex += n
	return v, nil
}

func (b *arrayBackedBuffer) ReadUint16() (uint16, error) {
	v, err := b.readFixed(2, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(v), nil
}
func (b *arrayBackedBuffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}
func (b *arrayBackedBuffer) ReadUint16LE() (uint16, error) {
	v, err := b.readFixed(2, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v), nil
}
func (b *arrayBackedBuffer) ReadInt16LE() (int16, error) {
	v, err := b.ReadUint16LE()
	return int16(v), err
}

func (b *arrayBackedBuffer) ReadUint32() (uint32, error) {
	v, err := b.readFixed(4, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}
func (b *arrayBackedBuffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}
func (b *arrayBackedBuffer) ReadUint32LE() (uint32, error) {
	v, err := b.readFixed(4, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}
func (b *arrayBackedBuffer) ReadInt32LE() (int32, error) {
	v, err := b.ReadUint32LE()
	return int32(v), err
}

func (b *arrayBackedBuffer) ReadUint64() (uint64, error) {
	v, err := b.readFixed(8, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}
func (b *arrayBackedBuffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}
func (b *arrayBackedBuffer) ReadUint64LE() (uint64, error) {
	v, err := b.readFixed(8, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v), nil
}
func (b *arrayBackedBuffer) ReadInt64LE() (int64, error) {
	v, err := b.ReadUint64LE()
	return int64(v), err
}

func (b *arrayBackedBuffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}
func (b *arrayBackedBuffer) ReadFloat32LE() (float32, error) {
	v, err := b.ReadUint32LE()
	return math.Float32frombits(v), err
}
func (b *arrayBackedBuffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	return math.Float64frombits(v), err
}
func (b *arrayBackedBuffer) ReadFloat64LE() (float64, error) {
	v, err := b.ReadUint64LE()
	return math.Float64frombits(v), err
}

func (b *arrayBackedBuffer) ReadBytes(n int) ([]byte, error) {
	if err := b.requireReadable(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.data[b.readerIndex:b.readerIndex+n])
	b.readerIndex += n
	return out, nil
}

func (b *arrayBackedBuffer) WriteUint8(v uint8) error {
	if err := b.requireWritable(1); err != nil {
		return err
	}
	b.data[b.writerIndex] = v
	b.writerIndex++
	return nil
}
func (b *arrayBackedBuffer) WriteInt8(v int8) error { return b.WriteUint8(uint8(v)) }

func (b *arrayBackedBuffer) writeFixed(n int, put func([]byte)) error {
	if err := b.requireWritable(n); err != nil {
		return err
	}
	put(b.data[b.writerIndex : b.writerIndex+n])
	b.writerIndex += n
	return nil
}

func (b *arrayBackedBuffer) WriteUint16(v uint16) error {
	return b.writeFixed(2, func(p []byte) { binary.BigEndian.PutUint16(p, v) })
}
func (b *arrayBackedBuffer) WriteInt16(v int16) error { return b.WriteUint16(uint16(v)) }
func (b *arrayBackedBuffer) WriteUint16LE(v uint16) error {
	return b.writeFixed(2, func(p []byte) { binary.LittleEndian.PutUint16(p, v) })
}
func (b *arrayBackedBuffer) WriteInt16LE(v int16) error { return b.WriteUint16LE(uint16(v)) }

func (b *arrayBackedBuffer) WriteUint32(v uint32) error {
	return b.writeFixed(4, func(p []byte) { binary.BigEndian.PutUint32(p, v) })
}
func (b *arrayBackedBuffer) WriteInt32(v int32) error { return b.WriteUint32(uint32(v)) }
func (b *arrayBackedBuffer) WriteUint32LE(v uint32) error {
	return b.writeFixed(4, func(p []byte) { binary.LittleEndian.PutUint32(p, v) })
}
func (b *arrayBackedBuffer) WriteInt32LE(v int32) error { return b.WriteUint32LE(uint32(v)) }

func (b *arrayBackedBuffer) WriteUint64(v uint64) error {
	return b.writeFixed(8, func(p []byte) { binary.BigEndian.PutUint64(p, v) })
}
func (b *arrayBackedBuffer) WriteInt64(v int64) error { return b.WriteUint64(uint64(v)) }
func (b *arrayBackedBuffer) WriteUint64LE(v uint64) error {
	return b.writeFixed(8, func(p []byte) { binary.LittleEndian.PutUint64(p, v) })
}
func (b *arrayBackedBuffer) WriteInt64LE(v int64) error { return b.WriteUint64LE(uint64(v)) }

func (b *arrayBackedBuffer) WriteFloat32(v float32) error {
	return b.WriteUint32(math.Float32bits(v))
}
func (b *arrayBackedBuffer) WriteFloat32LE(v float32) error {
	return b.WriteUint32LE(math.Float32bits(v))
}
func (b *arrayBackedBuffer) WriteFloat64(v float64) error {
	return b.WriteUint64(math.Float64bits(v))
}
func (b *arrayBackedBuffer) WriteFloat64LE(v float64) error {
	return b.WriteUint64LE(math.Float64bits(v))
}

func (b *arrayBackedBuffer) WriteBytes(p []byte) (int, error) {
	if err := b.requireWritable(len(p)); err != nil {
		return 0, err
	}
	n := copy(b.data[b.writerIndex:], p)
	b.writerIndex += n
	return n, nil
}

// ---- absolute accessors ----

func (b *arrayBackedBuffer) GetUint8(index int) (uint8, error) {
	if err := b.requireAbsolute(index, 1); err != nil {
		return 0, err
	}
	return b.data[index], nil
}
func (b *arrayBackedBuffer) SetUint8(index int, v uint8) error {
	if err := b.requireAbsolute(index, 1); err != nil {
		return err
	}
	b.data[index] = v
	return nil
}
func (b *arrayBackedBuffer) GetUint16(index int) (uint16, error) {
	if err := b.requireAbsolute(index, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b.data[index:]), nil
}
func (b *arrayBackedBuffer) SetUint16(index int, v uint16) error {
	if err := b.requireAbsolute(index, 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b.data[index:], v)
	return nil
}
func (b *arrayBackedBuffer) GetUint32(index int) (uint32, error) {
	if err := b.requireAbsolute(index, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b.data[index:]), nil
}
func (b *arrayBackedBuffer) SetUint32(index int, v uint32) error {
	if err := b.requireAbsolute(index, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b.data[index:], v)
	return nil
}
func (b *arrayBackedBuffer) GetUint64(index int) (uint64, error) {
	if err := b.requireAbsolute(index, 8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b.data[index:]), nil
}
func (b *arrayBackedBuffer) SetUint64(index int, v uint64) error {
	if err := b.requireAbsolute(index, 8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b.data[index:], v)
	return nil
}
func (b *arrayBackedBuffer) GetBytes(index, length int) ([]byte, error) {
	if err := b.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b.data[index:index+length])
	return out, nil
}
func (b *arrayBackedBuffer) SetBytes(index int, p []byte) error {
	if err := b.requireAbsolute(index, len(p)); err != nil {
		return err
	}
	copy(b.data[index:], p)
	return nil
}

// ---- views and copies ----

func (b *arrayBackedBuffer) Slice(index, length int) (Buffer, error) {
	if err := b.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return newSliceView(b, index, length), nil
}

func (b *arrayBackedBuffer) RetainedSlice(index, length int) (Buffer, error) {
	if err := b.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return newRetainedSliceView(b, index, length), nil
}

func (b *arrayBackedBuffer) Duplicate() (Buffer, error) {
	if err := b.checkLive(); err != nil {
		return nil, err
	}
	return newDuplicateView(b), nil
}

func (b *arrayBackedBuffer) RetainedDuplicate() (Buffer, error) {
	if err := b.checkLive(); err != nil {
		return nil, err
	}
	return newRetainedDuplicateView(b), nil
}

func (b *arrayBackedBuffer) Copy(index, length int) (Buffer, error) {
	if err := b.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	out, err := Allocate(length, length)
	if err != nil {
		return nil, err
	}
	if _, err := out.WriteBytes(b.data[index : index+length]); err != nil {
		_, _ = out.Release()
		return nil, err
	}
	return out, nil
}

func (b *arrayBackedBuffer) IndexOf(needle []byte) int {
	if err := b.checkLive(); err != nil {
		return -1
	}
	window := b.data[b.readerIndex:b.writerIndex]
	rel := bytes.Index(window, needle)
	if rel < 0 {
		return -1
	}
	return b.readerIndex + rel
}

func (b *arrayBackedBuffer) Equals(other Buffer) bool {
	return b.CompareTo(other) == 0
}

func (b *arrayBackedBuffer) CompareTo(other Buffer) int {
	a, _ := b.AsReadableSpan(b.readerIndex, b.ReadableBytes())
	o, err := other.AsReadableSpan(other.ReaderIndex(), other.ReadableBytes())
	if err != nil {
		return 1
	}
	return bytes.Compare(a, o)
}

func (b *arrayBackedBuffer) AsReadableSpan(index, length int) ([]byte, error) {
	if err := b.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return b.data[index : index+length : index+length], nil
}
