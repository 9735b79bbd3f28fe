package common

import (
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
)

// HostError is a reference counted handle on a Go error returned by a host
// callback that was thrown into JavaScript. The handle is created with one
// reference, held by whoever created it.
type HostError struct {
	err  error
	refs int32
}

// NewHostError returns a handle on err holding one reference.
func NewHostError(err error) *HostError {
	return &HostError{err: err, refs: 1}
}

// Err returns the wrapped error.
func (h *HostError) Err() error {
	return h.err
}

// Refs returns the current number of references.
func (h *HostError) Refs() int {
	return int(atomic.LoadInt32(&h.refs))
}

// Retain adds a reference and returns h.
func (h *HostError) Retain() *HostError {
	atomic.AddInt32(&h.refs, 1)
	return h
}

// Release drops a reference. Releasing more references than were taken is a
// programming error and panics.
func (h *HostError) Release() {
	if atomic.AddInt32(&h.refs, -1) < 0 {
		panic("common: HostError released more times than retained")
	}
}

// IsHostException reports whether v is a host error that can be chained as
// the cause of a script exception.
func IsHostException(v interface{}) bool {
	err, ok := v.(error)
	return ok && err != nil
}

// BackRefs tags JavaScript objects with the host error they were created
// from. A tag owns the reference it was given; lookups don't take a new one.
type BackRefs struct {
	mu   sync.Mutex
	tags map[*goja.Object]*HostError
}

// NewBackRefs returns an empty table.
func NewBackRefs() *BackRefs {
	return &BackRefs{tags: make(map[*goja.Object]*HostError)}
}

// Tag associates obj with h, taking over the caller's reference on h. A
// previous tag on obj is released.
func (b *BackRefs) Tag(obj *goja.Object, h *HostError) {
	b.mu.Lock()
	old := b.tags[obj]
	b.tags[obj] = h
	b.mu.Unlock()

	if old != nil && old != h {
		old.Release()
	}
}

// Lookup returns the host error tagged on v, if v is a tagged object.
func (b *BackRefs) Lookup(v goja.Value) (*HostError, bool) {
	obj, ok := v.(*goja.Object)
	if !ok || obj == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.tags[obj]
	return h, ok
}

// Untag removes the tag on obj and releases its reference.
func (b *BackRefs) Untag(obj *goja.Object) {
	b.mu.Lock()
	h, ok := b.tags[obj]
	delete(b.tags, obj)
	b.mu.Unlock()

	if ok {
		h.Release()
	}
}

// Reset removes every tag, releasing their references.
func (b *BackRefs) Reset() {
	b.mu.Lock()
	tags := b.tags
	b.tags = make(map[*goja.Object]*HostError)
	b.mu.Unlock()

	for _, h := range tags {
		h.Release()
	}
}

// Len returns the number of tagged objects.
func (b *BackRefs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tags)
}
