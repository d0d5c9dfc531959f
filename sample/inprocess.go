package sample

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var errNoCandidates = errors.New("sample: no candidates to sample from")

// primitive is one constructed strategy held by the in-process backend.
type primitive interface {
	apply(logits []float32) ([]float32, error)
	accept(token int32)
	reset()
}

// InprocessBackend implements Backend with pure Go transforms, so chains can
// run and be tested without a native engine. A cgo-backed Backend drops in
// behind the same interface.
//
// Not safe for concurrent use: each backend belongs to one generation task,
// like the registries and sessions built on top of it.
type InprocessBackend struct {
	nextID int64
	prims  map[int64]primitive
}

func NewInprocessBackend() *InprocessBackend {
	return &InprocessBackend{prims: make(map[int64]primitive)}
}

func (b *InprocessBackend) Create(spec Spec) (int64, error) {
	if err := spec.validate(); err != nil {
		return 0, err
	}

	var p primitive
	switch spec.Kind {
	case KindGreedy:
		p = &greedyPrimitive{}
	case KindDistribution:
		p = &distributionPrimitive{rng: newRNG(int64(spec.param("seed", DefaultSeed)))}
	case KindTopK:
		p = &topKPrimitive{k: int(spec.param("k", DefaultTopK))}
	case KindTopP:
		p = &topPPrimitive{
			p:       float32(spec.param("p", DefaultTopP)),
			minKeep: int(spec.param("min_keep", DefaultMinKeep)),
		}
	case KindMinP:
		p = &minPPrimitive{
			p:       float32(spec.param("p", DefaultMinP)),
			minKeep: int(spec.param("min_keep", DefaultMinKeep)),
		}
	case KindTypical:
		p = &typicalPrimitive{
			p:       float32(spec.param("p", DefaultTypicalP)),
			minKeep: int(spec.param("min_keep", DefaultMinKeep)),
		}
	case KindTemperature:
		p = &temperaturePrimitive{temp: float32(spec.param("temperature", DefaultTemperature))}
	case KindTemperatureExt:
		p = &temperatureExtPrimitive{
			temp:     float32(spec.param("temperature", DefaultTemperature)),
			delta:    float32(spec.param("delta", 0)),
			exponent: float32(spec.param("exponent", 1)),
		}
	case KindXTC:
		p = &xtcPrimitive{
			prob:      float32(spec.param("p", DefaultXTCProbability)),
			threshold: float32(spec.param("threshold", DefaultXTCThreshold)),
			minKeep:   int(spec.param("min_keep", DefaultMinKeep)),
			rng:       newRNG(int64(spec.param("seed", DefaultSeed))),
		}
	case KindPenalties:
		p = &penaltiesPrimitive{
			lastN:   int(spec.param("last_n", DefaultPenaltyLastN)),
			repeat:  float32(spec.param("repeat", DefaultPenaltyRepeat)),
			freq:    float32(spec.param("freq", 0)),
			present: float32(spec.param("present", 0)),
		}
	case KindMirostatV2:
		m := &mirostatPrimitive{
			tau: float32(spec.param("tau", DefaultMirostatTau)),
			eta: float32(spec.param("eta", DefaultMirostatEta)),
		}
		m.reset()
		p = m
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}

	b.nextID++
	b.prims[b.nextID] = p
	return b.nextID, nil
}

func (b *InprocessBackend) lookup(handle int64) (primitive, error) {
	p, ok := b.prims[handle]
	if !ok {
		return nil, fmt.Errorf("sample: unknown sampler handle %d", handle)
	}
	return p, nil
}

func (b *InprocessBackend) Apply(handle int64, logits []float32) ([]float32, error) {
	p, err := b.lookup(handle)
	if err != nil {
		return nil, err
	}
	return p.apply(logits)
}

func (b *InprocessBackend) Accept(handle int64, token int32) error {
	p, err := b.lookup(handle)
	if err != nil {
		return err
	}
	p.accept(token)
	return nil
}

func (b *InprocessBackend) Reset(handle int64) error {
	p, err := b.lookup(handle)
	if err != nil {
		return err
	}
	p.reset()
	return nil
}

func (b *InprocessBackend) Release(handle int64) error {
	if _, err := b.lookup(handle); err != nil {
		return err
	}
	delete(b.prims, handle)
	return nil
}

// Live reports how many sampler resources are currently allocated.
func (b *InprocessBackend) Live() int {
	return len(b.prims)
}

// statelessPrimitive provides no-op accept/reset for strategies without
// cross-step state.
type statelessPrimitive struct{}

func (statelessPrimitive) accept(int32) {}
func (statelessPrimitive) reset()       {}

type greedyPrimitive struct{ statelessPrimitive }

func (greedyPrimitive) apply(logits []float32) ([]float32, error) {
	ts := tokens(logits)
	if len(ts) == 0 {
		return nil, errNoCandidates
	}
	return mask(len(logits), []token{greedy(ts)}), nil
}

type distributionPrimitive struct {
	statelessPrimitive
	rng *rand.Rand
}

func (d *distributionPrimitive) apply(logits []float32) ([]float32, error) {
	ts := tokens(logits)
	if len(ts) == 0 {
		return nil, errNoCandidates
	}

	probs := make([]token, len(ts))
	copy(probs, ts)
	softmax(probs)

	chosen := pick(probs, d.rng)
	return mask(len(logits), []token{{id: chosen.id, value: logits[chosen.id]}}), nil
}

type topKPrimitive struct {
	statelessPrimitive
	k int
}

func (t *topKPrimitive) apply(logits []float32) ([]float32, error) {
	ts := tokens(logits)
	if len(ts) == 0 {
		return nil, errNoCandidates
	}
	return mask(len(logits), topK(ts, t.k)), nil
}

// keep masks logits down to the candidates surviving a probability-space
// prune, preserving the original logit values.
func keep(logits []float32, kept []token) []float32 {
	survivors := make([]token, len(kept))
	for i, t := range kept {
		survivors[i] = token{id: t.id, value: logits[t.id]}
	}
	return mask(len(logits), survivors)
}

func probabilities(logits []float32) ([]token, error) {
	ts := tokens(logits)
	if len(ts) == 0 {
		return nil, errNoCandidates
	}
	softmax(ts)
	return ts, nil
}

type topPPrimitive struct {
	statelessPrimitive
	p       float32
	minKeep int
}

func (t *topPPrimitive) apply(logits []float32) ([]float32, error) {
	probs, err := probabilities(logits)
	if err != nil {
		return nil, err
	}
	return keep(logits, topP(probs, t.p, t.minKeep)), nil
}

type minPPrimitive struct {
	statelessPrimitive
	p       float32
	minKeep int
}

func (m *minPPrimitive) apply(logits []float32) ([]float32, error) {
	probs, err := probabilities(logits)
	if err != nil {
		return nil, err
	}
	return keep(logits, minP(probs, m.p, m.minKeep)), nil
}

type typicalPrimitive struct {
	statelessPrimitive
	p       float32
	minKeep int
}

func (t *typicalPrimitive) apply(logits []float32) ([]float32, error) {
	probs, err := probabilities(logits)
	if err != nil {
		return nil, err
	}
	return keep(logits, typical(probs, t.p, t.minKeep)), nil
}

type temperaturePrimitive struct {
	statelessPrimitive
	temp float32
}

func (t *temperaturePrimitive) apply(logits []float32) ([]float32, error) {
	ts := tokens(logits)
	if len(ts) == 0 {
		return nil, errNoCandidates
	}
	temperature(ts, t.temp)
	return mask(len(logits), ts), nil
}

type temperatureExtPrimitive struct {
	statelessPrimitive
	temp, delta, exponent float32
}

func (t *temperatureExtPrimitive) apply(logits []float32) ([]float32, error) {
	ts := tokens(logits)
	if len(ts) == 0 {
		return nil, errNoCandidates
	}
	temperatureExt(ts, t.temp, t.delta, t.exponent)
	return mask(len(logits), ts), nil
}

type xtcPrimitive struct {
	statelessPrimitive
	prob, threshold float32
	minKeep         int
	rng             *rand.Rand
}

func (x *xtcPrimitive) apply(logits []float32) ([]float32, error) {
	probs, err := probabilities(logits)
	if err != nil {
		return nil, err
	}
	return keep(logits, xtc(probs, x.prob, x.threshold, x.minKeep, x.rng)), nil
}

type penaltiesPrimitive struct {
	lastN   int
	repeat  float32
	freq    float32
	present float32
	history []int32
}

func (p *penaltiesPrimitive) accept(token int32) {
	p.history = append(p.history, token)
	if p.lastN > 0 && len(p.history) > p.lastN {
		p.history = p.history[len(p.history)-p.lastN:]
	}
}

func (p *penaltiesPrimitive) reset() {
	p.history = p.history[:0]
}

func (p *penaltiesPrimitive) apply(logits []float32) ([]float32, error) {
	ts := tokens(logits)
	if len(ts) == 0 {
		return nil, errNoCandidates
	}

	counts := make(map[int32]int, len(p.history))
	for _, id := range p.history {
		counts[id]++
	}

	for i := range ts {
		count := counts[ts[i].id]
		if count == 0 {
			continue
		}
		if ts[i].value > 0 {
			ts[i].value /= p.repeat
		} else {
			ts[i].value *= p.repeat
		}
		ts[i].value -= p.freq*float32(count) + p.present
	}
	return mask(len(logits), ts), nil
}

// mirostatPrimitive prunes candidates whose surprise exceeds the running
// target mu, then tightens or loosens mu from the surprise of each accepted
// token.
type mirostatPrimitive struct {
	tau, eta  float32
	mu        float32
	lastProbs map[int32]float32
}

func (m *mirostatPrimitive) reset() {
	m.mu = 2 * m.tau
	m.lastProbs = nil
}

func (m *mirostatPrimitive) accept(token int32) {
	p, ok := m.lastProbs[token]
	if !ok || p <= 0 {
		return
	}
	surprise := float32(-math.Log2(float64(p)))
	m.mu -= m.eta * (surprise - m.tau)
}

func (m *mirostatPrimitive) apply(logits []float32) ([]float32, error) {
	probs, err := probabilities(logits)
	if err != nil {
		return nil, err
	}
	sortByValue(probs)

	kept := probs[:0]
	for _, t := range probs {
		surprise := float32(math.Inf(1))
		if t.value > 0 {
			surprise = float32(-math.Log2(float64(t.value)))
		}
		if surprise > m.mu && len(kept) > 0 {
			break
		}
		kept = append(kept, t)
	}

	m.lastProbs = make(map[int32]float32, len(kept))
	for _, t := range kept {
		m.lastProbs[t.id] = t.value
	}
	return keep(logits, kept), nil
}
