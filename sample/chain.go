package sample

import (
	"errors"
	"fmt"
)

// Chain is an ordered composition of primitives applied sequentially to a
// logit distribution. The order is the order the specs were given in and is
// semantically significant: penalty-before-temperature is not the same
// pipeline as temperature-before-penalty.
//
// A chain exclusively owns its primitives and releases them exactly once.
type Chain struct {
	handles []*Handle
	specs   []Spec
	closed  bool
}

// NewChain builds each spec into a primitive, in input order, and composes
// them. If any spec fails mid-build, every primitive already created for
// this chain is released before the error propagates.
func NewChain(backend Backend, specs []Spec) (*Chain, error) {
	handles := make([]*Handle, 0, len(specs))
	for _, spec := range specs {
		h, err := NewPrimitive(backend, spec)
		if err != nil {
			for _, created := range handles {
				created.Release()
			}
			return nil, fmt.Errorf("build chain: %w", err)
		}
		handles = append(handles, h)
	}

	return &Chain{handles: handles, specs: append([]Spec(nil), specs...)}, nil
}

// Specs returns the specs the chain was built from, in application order.
func (c *Chain) Specs() []Spec {
	return append([]Spec(nil), c.specs...)
}

func (c *Chain) Len() int {
	return len(c.handles)
}

// Apply filters the distribution through every primitive in order.
func (c *Chain) Apply(logits []float32) ([]float32, error) {
	if c.closed {
		return nil, ErrChainClosed
	}

	var err error
	for _, h := range c.handles {
		logits, err = h.Apply(logits)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", h.Kind(), err)
		}
	}
	return logits, nil
}

// Sample applies the chain and returns the id of the strongest surviving
// candidate. When the chain ends in a selecting primitive this is the
// selected token; otherwise it degenerates to greedy over the survivors.
func (c *Chain) Sample(logits []float32) (int32, error) {
	if len(logits) == 0 {
		return -1, errors.New("sample: no logits provided to sample")
	}

	filtered, err := c.Apply(logits)
	if err != nil {
		return -1, err
	}

	ts := tokens(filtered)
	if len(ts) == 0 {
		return -1, errNoCandidates
	}
	return greedy(ts).id, nil
}

// Accept feeds a generated token into every stateful primitive.
func (c *Chain) Accept(token int32) error {
	if c.closed {
		return ErrChainClosed
	}
	for _, h := range c.handles {
		if err := h.Accept(token); err != nil {
			return err
		}
	}
	return nil
}

// Reset restores every stateful primitive to its initial state.
func (c *Chain) Reset() error {
	if c.closed {
		return ErrChainClosed
	}
	for _, h := range c.handles {
		if err := h.Reset(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every primitive exactly once. Calling Close twice reports
// ErrChainClosed without touching the backend again.
func (c *Chain) Close() error {
	if c.closed {
		return ErrChainClosed
	}
	c.closed = true

	var errs []error
	for _, h := range c.handles {
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
