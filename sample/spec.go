// Package sample implements adaptive, context-driven token sampling on top
// of a llama.cpp-style inference engine. It composes atomic sampling
// strategies into ordered chains, keeps a registry of chains keyed by
// semantic context, and tracks partially generated JSON output to decide
// which chain should be active at each generation step.
package sample

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownKind    = errors.New("sample: unknown sampler kind")
	ErrInvalidParam   = errors.New("sample: invalid sampler parameter")
	ErrHandleReleased = errors.New("sample: sampler already released")
	ErrChainClosed    = errors.New("sample: chain closed")
	ErrRegistryClosed = errors.New("sample: registry closed")
	ErrSessionClosed  = errors.New("sample: session closed")
)

// Kind identifies one atomic sampling strategy. The set is closed: anything
// outside it fails primitive construction with ErrUnknownKind.
type Kind string

const (
	KindGreedy         Kind = "greedy"
	KindDistribution   Kind = "distribution"
	KindTopK           Kind = "top_k"
	KindTopP           Kind = "top_p"
	KindMinP           Kind = "min_p"
	KindTypical        Kind = "typical"
	KindTemperature    Kind = "temperature"
	KindTemperatureExt Kind = "temperature_ext"
	KindXTC            Kind = "xtc"
	KindPenalties      Kind = "penalties"
	KindMirostatV2     Kind = "mirostat_v2"
)

// Kinds returns every supported sampler kind.
func Kinds() []Kind {
	return []Kind{
		KindGreedy,
		KindDistribution,
		KindTopK,
		KindTopP,
		KindMinP,
		KindTypical,
		KindTemperature,
		KindTemperatureExt,
		KindXTC,
		KindPenalties,
		KindMirostatV2,
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindGreedy, KindDistribution, KindTopK, KindTopP, KindMinP,
		KindTypical, KindTemperature, KindTemperatureExt, KindXTC,
		KindPenalties, KindMirostatV2:
		return true
	}
	return false
}

// Spec is an immutable descriptor for one primitive: a kind plus named
// numeric parameters. Any parameter left unset falls back to its documented
// default at construction time.
type Spec struct {
	Kind   Kind
	Params map[string]float64
}

func NewSpec(kind Kind) Spec {
	return Spec{Kind: kind}
}

// With returns a copy of the spec with one parameter set. The receiver is
// left untouched so specs can be shared freely.
func (s Spec) With(key string, value float64) Spec {
	params := make(map[string]float64, len(s.Params)+1)
	for k, v := range s.Params {
		params[k] = v
	}
	params[key] = value
	return Spec{Kind: s.Kind, Params: params}
}

// param resolves a named parameter, substituting the documented default when
// the spec does not carry it.
func (s Spec) param(key string, def float64) float64 {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}

func (s Spec) validate() error {
	if !s.Kind.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
	for key, v := range s.Params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s.%s=%v", ErrInvalidParam, s.Kind, key, v)
		}
	}
	return nil
}

func (s Spec) String() string {
	return fmt.Sprintf("%s%v", s.Kind, s.Params)
}

// Documented parameter defaults, shared by every backend.
const (
	DefaultTemperature    = 0.7
	DefaultTopK           = 40
	DefaultTopP           = 0.9
	DefaultMinP           = 0.05
	DefaultTypicalP       = 0.95
	DefaultXTCProbability = 0.5
	DefaultXTCThreshold   = 0.1
	DefaultMinKeep        = 1
	DefaultSeed           = 42
	DefaultPenaltyLastN   = 64
	DefaultPenaltyRepeat  = 1.1
	DefaultMirostatTau    = 5.0
	DefaultMirostatEta    = 0.1
)
