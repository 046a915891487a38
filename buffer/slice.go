package buffer

import (
	"bytes"
	"encoding/binary"
	"math"
)

// view is the shared cursor/window bookkeeping for the four non-owning
// Buffer variants. None of them own storage; every byte-level
// access is delegated to the parent Buffer at parent-relative offsets,
// which is what makes them true zero-copy projections.
type view struct {
	parent Buffer
	offset int // absolute offset of window start within the parent
	fixedLength bool // true for Slice (window length pinned at construction)
	length int // window length when fixedLength; ignored otherwise

	readerIndex, writerIndex int
	markedReaderIndex, markedWriterIndex int
}

func (v *view) capacity() int {
	if v.fixedLength {
		return v.length
	}
	return v.parent.Capacity() - v.offset
}

func (v *view) Capacity() int { return v.capacity() }
func (v *view) MaxCapacity() int {
	if v.fixedLength {
		return v.length
	}
	return v.parent.MaxCapacity() - v.offset
}
func (v *view) ReaderIndex() int { return v.readerIndex }
func (v *view) WriterIndex() int { return v.writerIndex }
func (v *view) ReadableBytes() int { return v.writerIndex - v.readerIndex }
func (v *view) WritableBytes() int { return v.capacity() - v.writerIndex }
func (v *view) MaxWritableBytes() int { return v.MaxCapacity() - v.writerIndex }

func (v *view) SetReaderIndex(i int) error {
	if i < 0 || i > v.writerIndex {
		return &IndexOutOfRangeError{Index: i, Capacity: v.capacity()}
	}
	v.readerIndex = i
	return nil
}
func (v *view) SetWriterIndex(i int) error {
	if i < v.readerIndex || i > v.capacity() {
		return &IndexOutOfRangeError{Index: i, Capacity: v.capacity()}
	}
	v.writerIndex = i
	return nil
}
func (v *view) SetIndex(r, w int) error {
	if r < 0 || r > w || w > v.capacity() {
		return &IndexOutOfRangeError{Index: r, Length: w, Capacity: v.capacity()}
	}
	v.readerIndex, v.writerIndex = r, w
	return nil
}
func (v *view) MarkReaderIndex() { v.markedReaderIndex = v.readerIndex }
func (v *view) ResetReaderIndex() error {
	if v.markedReaderIndex < 0 {
		return &IndexOutOfRangeError{Index: -1, Capacity: v.capacity()}
	}
	return v.SetReaderIndex(v.markedReaderIndex)
}
func (v *view) MarkWriterIndex() { v.markedWriterIndex = v.writerIndex }
func (v *view) ResetWriterIndex() error {
	if v.markedWriterIndex < 0 {
		return &IndexOutOfRangeError{Index: -1, Capacity: v.capacity()}
	}
	return v.SetWriterIndex(v.markedWriterIndex)
}

// EnsureWritable/AdjustCapacity are unsupported on views: a slice's
// window is fixed by construction and a duplicate tracks
// its parent's capacity rather than owning one to grow.
func (v *view) EnsureWritable(n int) error {
	if v.WritableBytes() >= n {
		return nil
	}
	return &CapacityExceededError{Requested: v.writerIndex + n, MaxCapacity: v.MaxCapacity()}
}
func (v *view) AdjustCapacity(int) error {
	return &CapacityExceededError{Requested: -1, MaxCapacity: v.MaxCapacity()}
}

func (v *view) requireReadable(n int) error {
	if v.ReadableBytes() < n {
		return &IndexOutOfRangeError{Index: v.readerIndex, Length: n, Capacity: v.capacity()}
	}
	return nil
}

func (v *view) readWindow(n int) ([]byte, error) {
	if err := v.requireReadable(n); err != nil {
		return nil, err
	}
	b, err := v.parent.GetBytes(v.offset+v.readerIndex, n)
	if err != nil {
		return nil, err
	}
	v.readerIndex += n
	return b, nil
}

func (v *view) writeWindow(p []byte) error {
	if err := v.EnsureWritable(len(p)); err != nil {
		return err
	}
	if err := v.parent.SetBytes(v.offset+v.writerIndex, p); err != nil {
		return err
	}
	v.writerIndex += len(p)
	return nil
}

func (v *view) ReadUint8() (uint8, error) {
	b, err := v.readWindow(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
func (v *view) ReadInt8() (int8, error) {
	x, err := v.ReadUint8()
	return int8(x), err
}
func (v *view) ReadUint16() (uint16, error) {
	b, err := v.readWindow(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}
func (v *view) ReadInt16() (int16, error) {
	x, err := v.ReadUint16()
	return int16(x), err
}
func (v *view) ReadUint16LE() (uint16, error) {
	b, err := v.readWindow(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}
func (v *view) ReadInt16LE() (int16, error) {
	x, err := v.ReadUint16LE()
	return int16(x), err
}
func (v *view) ReadUint32() (uint32, error) {
	b, err := v.readWindow(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
func (v *view) ReadInt32() (int32, error) {
	x, err := v.ReadUint32()
	return int32(x), err
}
func (v *view) ReadUint32LE() (uint32, error) {
	b, err := v.readWindow(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}
func (v *view) ReadInt32LE() (int32, error) {
	x, err := v.ReadUint32LE()
	return int32(x), err
}
func (v *view) ReadUint64() (uint64, error) {
	b, err := v.readWindow(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
func (v *view) ReadInt64() (int64, error) {
	x, err := v.ReadUint64()
	return int64(x), err
}
func (v *view) ReadUint64LE() (uint64, error) {
	b, err := v.readWindow(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}
func (v *view) ReadInt64LE() (int64, error) {
	x, err := v.ReadUint64LE()
	return int64(x), err
}
func (v *view) ReadFloat32() (float32, error) {
	x, err := v.ReadUint32()
	return math.Float32frombits(x), err
}
func (v *view) ReadFloat32LE() (float32, error) {
	x, err := v.ReadUint32LE()
	return math.Float32frombits(x), err
}
func (v *view) ReadFloat64() (float64, error) {
	x, err := v.ReadUint64()
	return math.Float64frombits(x), err
}
func (v *view) ReadFloat64LE() (float64, error) {
	x, err := v.ReadUint64LE()
	return math.Float64frombits(x), err
}
func (v *view) ReadBytes(n int) ([]byte, error) { return v.readWindow(n) }

func (v *view) WriteUint8(x uint8) error { return v.writeWindow([]byte{x}) }
func (v *view) WriteInt8(x int8) error { return v.WriteUint8(uint8(x)) }
func (v *view) WriteUint16(x uint16) error {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, x)
	return v.writeWindow(b)
}
func (v *view) WriteInt16(x int16) error { return v.WriteUint16(uint16(x)) }
func (v *view) WriteUint16LE(x uint16) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, x)
	return v.writeWindow(b)
}
func (v *view) WriteInt16LE(x int16) error { return v.WriteUint16LE(uint16(x)) }
func (v *view) WriteUint32(x uint32) error {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, x)
	return v.writeWindow(b)
}
func (v *view) WriteInt32(x int32) error { return v.WriteUint32(uint32(x)) }
func (v *view) WriteUint32LE(x uint32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return v.writeWindow(b)
}
func (v *view) WriteInt32LE(x int32) error { return v.WriteUint32LE(uint32(x)) }
func (v *view) WriteUint64(x uint64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, x)
	return v.writeWindow(b)
}
func (v *view) WriteInt64(x int64) error { return v.WriteUint64(uint64(x)) }
func (v *view) WriteUint64LE(x uint64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return v.writeWindow(b)
}
func (v *view) WriteInt64LE(x int64) error { return v.WriteUint64LE(uint64(x)) }
func (v *view) WriteFloat32(x float32) error { return v.WriteUint32(math.Float32bits(x)) }
func (v *view) WriteFloat32LE(x float32) error { return v.WriteUint32LE(math.Float32bits(x)) }
func (v *view) WriteFloat64(x float64) error { return v.WriteUint64(math.Float64bits(x)) }
func (v *view) WriteFloat64LE(x float64) error { return v.WriteUint64LE(math.Float64bits(x)) }
func (v *view) WriteBytes(p []byte) (int, error) {
	if err := v.writeWindow(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (v *view) requireAbsolute(index, length int) error {
	if index < 0 || length < 0 || index+length > v.capacity() {
		return &IndexOutOfRangeError{Index: index, Length: length, Capacity: v.capacity()}
	}
	return nil
}

func (v *view) GetUint8(index int) (uint8, error) {
	if err := v.requireAbsolute(index, 1); err != nil {
		return 0, err
	}
	return v.parent.GetUint8(v.offset + index)
}
func (v *view) SetUint8(index int, x uint8) error {
	if err := v.requireAbsolute(index, 1); err != nil {
		return err
	}
	return v.parent.SetUint8(v.offset+index, x)
}
func (v *view) GetUint16(index int) (uint16, error) {
	if err := v.requireAbsolute(index, 2); err != nil {
		return 0, err
	}
	return v.parent.GetUint16(v.offset + index)
}
func (v *view) SetUint16(index int, x uint16) error {
	if err := v.requireAbsolute(index, 2); err != nil {
		return err
	}
	return v.parent.SetUint16(v.offset+index, x)
}
func (v *view) GetUint32(index int) (uint32, error) {
	if err := v.requireAbsolute(index, 4); err != nil {
		return 0, err
	}
	return v.parent.GetUint32(v.offset + index)
}
func (v *view) SetUint32(index int, x uint32) error {
	if err := v.requireAbsolute(index, 4); err != nil {
		return err
	}
	return v.parent.SetUint32(v.offset+index, x)
}
func (v *view) GetUint64(index int) (uint64, error) {
	if err := v.requireAbsolute(index, 8); err != nil {
		return 0, err
	}
	return v.parent.GetUint64(v.offset + index)
}
func (v *view) SetUint64(index int, x uint64) error {
	if err := v.requireAbsolute(index, 8); err != nil {
		return err
	}
	return v.parent.SetUint64(v.offset+index, x)
}
func (v *view) GetBytes(index, length int) ([]byte, error) {
	if err := v.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return v.parent.GetBytes(v.offset+index, length)
}
func (v *view) SetBytes(index int, p []byte) error {
	if err := v.requireAbsolute(index, len(p)); err != nil {
		return err
	}
	return v.parent.SetBytes(v.offset+index, p)
}

func (v *view) Slice(index, length int) (Buffer, error) {
	if err := v.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return v.parent.Slice(v.offset+index, length)
}
func (v *view) RetainedSlice(index, length int) (Buffer, error) {
	if err := v.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return v.parent.RetainedSlice(v.offset+index, length)
}
func (v *view) Duplicate() (Buffer, error) { return v.parent.Slice(v.offset, v.capacity()) }
func (v *view) RetainedDuplicate() (Buffer, error) { return v.parent.RetainedSlice(v.offset, v.capacity()) }

func (v *view) Copy(index, length int) (Buffer, error) {
	if err := v.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return v.parent.Copy(v.offset+index, length)
}

func (v *view) IndexOf(needle []byte) int {
	window, err := v.parent.GetBytes(v.offset+v.readerIndex, v.ReadableBytes())
	if err != nil {
		return -1
	}
	rel := bytes.Index(window, needle)
	if rel < 0 {
		return -1
	}
	return v.readerIndex + rel
}

func (v *view) Equals(other Buffer) bool { return v.CompareTo(other) == 0 }

func (v *view) CompareTo(other Buffer) int {
	a, _ := v.AsReadableSpan(v.readerIndex, v.ReadableBytes())
	o, err := other.AsReadableSpan(other.ReaderIndex(), other.ReadableBytes())
	if err != nil {
		return 1
	}
	return bytes.Compare(a, o)
}

func (v *view) AsReadableSpan(index, length int) ([]byte, error) {
	if err := v.requireAbsolute(index, length); err != nil {
		return nil, err
	}
	return v.parent.AsReadableSpan(v.offset+index, length)
}

// sliceView is the non-retained projection: releasing it releases the
// parent once.
type sliceView struct{ view }

func newSliceView(parent Buffer, offset, length int) *sliceView {
	return &sliceView{view{parent: parent, offset: offset, fixedLength: true, length: length, markedReaderIndex: -1, markedWriterIndex: -1, writerIndex: length}}
}

func (s *sliceView) Retain() (Buffer, error) {
	if _, err := s.parent.Retain(); err != nil {
		return nil, err
	}
	return s, nil
}
func (s *sliceView) RetainN(n int) (Buffer, error) {
	if _, err := s.parent.RetainN(n); err != nil {
		return nil, err
	}
	return s, nil
}
func (s *sliceView) Release() (bool, error) { return s.parent.Release() }
func (s *sliceView) ReleaseN(n int) (bool, error) { return s.parent.ReleaseN(n) }
func (s *sliceView) ReferenceCount() int32 { return s.parent.ReferenceCount() }
func (s *sliceView) Touch(hint any) Buffer { s.parent.Touch(hint); return s }

// retainedSliceView independently retains the parent on construction and
// carries its own reference count.
type retainedSliceView struct {
	view
	rc refCounted
}

func newRetainedSliceView(parent Buffer, offset, length int) *retainedSliceView {
	_, _ = parent.Retain()
	rv := &retainedSliceView{view: view{parent: parent, offset: offset, fixedLength: true, length: length, markedReaderIndex: -1, markedWriterIndex: -1, writerIndex: length}}
	rv.rc = newRefCounted()
	return rv
}

func (s *retainedSliceView) Retain() (Buffer, error) {
	if err := s.rc.retain(1); err != nil {
		return nil, err
	}
	return s, nil
}
func (s *retainedSliceView) RetainN(n int) (Buffer, error) {
	if err := s.rc.retain(n); err != nil {
		return nil, err
	}
	return s, nil
}
func (s *retainedSliceView) Release() (bool, error) { return s.releaseN(1) }
func (s *retainedSliceView) ReleaseN(n int) (bool, error) { return s.releaseN(n) }
func (s *retainedSliceView) releaseN(n int) (bool, error) {
	freed, err := s.rc.release(n)
	if err != nil {
		return false, err
	}
	if freed {
		_, err = s.parent.Release()
	}
	return freed, err
}
func (s *retainedSliceView) ReferenceCount() int32 { return s.rc.referenceCount() }
func (s *retainedSliceView) Touch(hint any) Buffer { s.rc.touch(hint); return s }

// duplicateView is the non-retained whole-storage projection with
// independent cursors.
type duplicateView struct{ view }

func newDuplicateView(parent Buffer) *duplicateView {
	return &duplicateView{view{parent: parent, offset: 0, fixedLength: false, readerIndex: parent.ReaderIndex(), writerIndex: parent.WriterIndex(), markedReaderIndex: -1, markedWriterIndex: -1}}
}

func (d *duplicateView) Retain() (Buffer, error) {
	if _, err := d.parent.Retain(); err != nil {
		return nil, err
	}
	return d, nil
}
func (d *duplicateView) RetainN(n int) (Buffer, error) {
	if _, err := d.parent.RetainN(n); err != nil {
		return nil, err
	}
	return d, nil
}
func (d *duplicateView) Release() (bool, error) { return d.parent.Release() }
func (d *duplicateView) ReleaseN(n int) (bool, error) { return d.parent.ReleaseN(n) }
func (d *duplicateView) ReferenceCount() int32 { return d.parent.ReferenceCount() }
func (d *duplicateView) Touch(hint any) Buffer { d.parent.Touch(hint); return d }

// retainedDuplicateView is the independently-counted whole-storage
// projection.
type retainedDuplicateView struct {
	view
	rc refCounted
}

func newRetainedDuplicateView(parent Buffer) *retainedDuplicateView {
	_, _ = parent.Retain()
	rv := &retainedDuplicateView{view: view{parent: parent, offset: 0, fixedLength: false, readerIndex: parent.ReaderIndex(), writerIndex: parent.WriterIndex(), markedReaderIndex: -1, markedWriterIndex: -1}}
	rv.rc = newRefCounted()
	return rv
}

func (d *retainedDuplicateView) Retain() (Buffer, error) {
	if err := d.rc.retain(1); err != nil {
		return nil, err
	}
	return d, nil
}
func (d *retainedDuplicateView) RetainN(n int) (Buffer, error) {
	if err := d.rc.retain(n); err != nil {
		return nil, err
	}
	return d, nil
}
func (d *retainedDuplicateView) Release() (bool, error) { return d.releaseN(1) }
func (d *retainedDuplicateView) ReleaseN(n int) (bool, error) { return d.releaseN(n) }
func (d *retainedDuplicateView) releaseN(n int) (bool, error) {
	freed, err := d.rc.release(n)
	if err != nil {
		return false, err
	}
	if freed {
		_, err = d.parent.Release()
	}
	return freed, err
}
func (d *retainedDuplicateView) ReferenceCount() int32 { return d.rc.referenceCount() }
func (d *retainedDuplicateView) Touch(hint any) Buffer { d.rc.touch(hint); return d }
