package sample

import "fmt"

// Backend is the surface consumed from the inference engine: construct a
// sampling strategy from a spec, apply it to a logit distribution for one
// step, feed accepted tokens back into stateful strategies, and release it.
// Handles are opaque; this package never inspects their internals.
//
// Apply returns a distribution over the same vocabulary. Pruning strategies
// mark removed candidates with -Inf, value strategies rewrite logits in a
// fresh slice, and selecting strategies (greedy, distribution) collapse the
// distribution onto a single candidate.
type Backend interface {
	Create(spec Spec) (int64, error)
	Apply(handle int64, logits []float32) ([]float32, error)
	Accept(handle int64, token int32) error
	Reset(handle int64) error
	Release(handle int64) error
}

// Handle owns exactly one backend sampler resource. It is not safe to copy;
// the owner calls Release exactly once, and every later use fails with
// ErrHandleReleased.
type Handle struct {
	backend  Backend
	id       int64
	kind     Kind
	released bool
}

// NewPrimitive constructs one atomic strategy from spec. The returned handle
// owns the backend resource; the caller is responsible for exactly one
// Release call.
func NewPrimitive(backend Backend, spec Spec) (*Handle, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	id, err := backend.Create(spec)
	if err != nil {
		return nil, fmt.Errorf("create %s sampler: %w", spec.Kind, err)
	}

	return &Handle{backend: backend, id: id, kind: spec.Kind}, nil
}

func (h *Handle) Kind() Kind {
	return h.kind
}

func (h *Handle) Apply(logits []float32) ([]float32, error) {
	if h.released {
		return nil, ErrHandleReleased
	}
	return h.backend.Apply(h.id, logits)
}

func (h *Handle) Accept(token int32) error {
	if h.released {
		return ErrHandleReleased
	}
	return h.backend.Accept(h.id, token)
}

func (h *Handle) Reset() error {
	if h.released {
		return ErrHandleReleased
	}
	return h.backend.Reset(h.id)
}

// Release frees the underlying resource. The second and any later call
// reports ErrHandleReleased without touching the backend again.
func (h *Handle) Release() error {
	if h.released {
		return ErrHandleReleased
	}
	h.released = true
	return h.backend.Release(h.id)
}
