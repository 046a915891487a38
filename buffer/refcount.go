package buffer

import "sync/atomic"

// refCounted implements the reference-counted object primitive embedded
// by arrayBackedBuffer and by the independently-counted view types; the
// non-retained views (slice, duplicate) skip it entirely and delegate
// straight to their parent.
//
// The count is stored as 2*refs internally, odd values mark the object
// as already deallocated. This mirrors the CAS trick Netty's own
// AbstractReferenceCountedByteBuf uses to make the "deallocated" state
// observable without a second field; here it buys us a single atomic
// word instead of a counter plus a bool.
type refCounted struct {
	refCnt atomic.Int32
}

func newRefCounted() refCounted {
	var rc refCounted
	rc.refCnt.Store(2)
	return rc
}

func (rc *refCounted) reset() {
	rc.refCnt.Store(2)
}

func (rc *refCounted) referenceCount() int32 {
	return rc.refCnt.Load() >> 1
}

func (rc *refCounted) isDeallocated() bool {
	return rc.refCnt.Load()&1 == 1
}

// retain increments the count by n (n >= 1). Fails if the object has
// already reached a zero/deallocated count.
func (rc *refCounted) retain(n int) error {
	for {
		cur := rc.refCnt.Load()
		if cur&1 == 1 || cur == 0 {
			return &IllegalReferenceCountError{RefCnt: cur >> 1}
		}
		next := cur + int32(2*n)
		if next <= 0 {
			// overflow: treat as illegal, matches Netty's refCnt overflow guard
			return &IllegalReferenceCountError{RefCnt: cur >> 1}
		}
		if rc.refCnt.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// release decrements the count by n. Returns true iff this call drove
// the count to zero (the caller must then run its deallocation hook
// exactly once).
func (rc *refCounted) release(n int) (bool, error) {
	for {
		cur := rc.refCnt.Load()
		if cur&1 == 1 || cur>>1 < int32(n) {
			return false, &IllegalReferenceCountError{RefCnt: cur >> 1}
		}
		if cur>>1 == int32(n) {
			if rc.refCnt.CompareAndSwap(cur, 1) {
				return true, nil
			}
			continue
		}
		next := cur - int32(2*n)
		if rc.refCnt.CompareAndSwap(cur, next) {
			return false, nil
		}
	}
}

// touch is a no-op debugging hook, kept as a method so callers have a
// stable place to hang leak-detection instrumentation without changing
// the public Buffer contract.
func (rc *refCounted) touch(_ any) {}
