package sample

import (
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/exp/maps"
)

// Context is a semantic label used to select which chain is active.
type Context string

const (
	ContextCodeCompletion    Context = "code-completion"
	ContextJSONGeneration    Context = "json-generation"
	ContextDocumentation     Context = "documentation"
	ContextVariableName      Context = "variable-name"
	ContextFunctionName      Context = "function-name"
	ContextCommentGeneration Context = "comment-generation"
	ContextDebugging         Context = "debugging"
	ContextRefactoring       Context = "refactoring"
	ContextGeneral           Context = "general"
)

// Registry maps context tags to chains and tracks which chain is active.
// It owns every registered chain and releases them on Close.
//
// A registry belongs to exactly one generation task; it provides no internal
// locking, so concurrent mutation is the caller's problem to prevent.
type Registry struct {
	backend Backend
	chains  map[Context]*Chain
	active  Context
	closed  bool
}

func NewRegistry(backend Backend) *Registry {
	return &Registry{
		backend: backend,
		chains:  make(map[Context]*Chain),
	}
}

// Register builds a chain from specs and binds it to ctx. Re-registering a
// bound tag releases the previous chain before the new one is stored, so N
// registrations of the same tag cost N creates and N-1 releases. The first
// successful registration becomes active if nothing is active yet.
func (r *Registry) Register(ctx Context, specs []Spec) error {
	if r.closed {
		return ErrRegistryClosed
	}

	chain, err := NewChain(r.backend, specs)
	if err != nil {
		return fmt.Errorf("register %q: %w", ctx, err)
	}

	if prev, ok := r.chains[ctx]; ok {
		if err := prev.Close(); err != nil {
			slog.Warn("releasing replaced chain", "context", ctx, "error", err)
		}
	}
	r.chains[ctx] = chain

	if r.active == "" {
		r.active = ctx
	}
	return nil
}

// Switch makes ctx the active context. Switching to an unbound tag is a
// silent no-op and the previously active chain stays selected.
//
// TODO(kherud): decide whether unbound tags should be reported; today a
// typoed context silently keeps the previous chain.
func (r *Registry) Switch(ctx Context) {
	if r.closed {
		return
	}
	if _, ok := r.chains[ctx]; ok {
		r.active = ctx
	}
}

// Active returns the currently selected chain and its context, or (nil, "")
// when nothing has been registered. A closed registry also reports
// (nil, ""): reads stay total so response rendering never has to branch on
// lifecycle; only mutations fail with ErrRegistryClosed.
func (r *Registry) Active() (*Chain, Context) {
	if r.closed || r.active == "" {
		return nil, ""
	}
	return r.chains[r.active], r.active
}

// Chain returns the chain bound to ctx, if any.
func (r *Registry) Chain(ctx Context) (*Chain, bool) {
	c, ok := r.chains[ctx]
	return c, ok
}

// Contexts returns the bound tags in sorted order.
func (r *Registry) Contexts() []Context {
	tags := maps.Keys(r.chains)
	slices.Sort(tags)
	return tags
}

// Close releases every bound chain exactly once and clears the mapping.
// The registry is unusable afterward: Register and a second Close fail with
// ErrRegistryClosed.
func (r *Registry) Close() error {
	if r.closed {
		return ErrRegistryClosed
	}
	r.closed = true

	var firstErr error
	for ctx, chain := range r.chains {
		if err := chain.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %q: %w", ctx, err)
		}
	}
	r.chains = nil
	r.active = ""
	return firstErr
}
