package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/mitchellh/mapstructure"

	"github.com/kherud/llama-sampling/sample"
)

// StatusError is the error the client surfaces for a non-2xx response.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
}

func (e StatusError) Timeout() bool {
	return e.StatusCode == http.StatusRequestTimeout
}

// SamplerSpec is the wire form of one sampling primitive. Params arrive as
// arbitrary JSON numbers and are weakly coerced to float64.
type SamplerSpec struct {
	Kind   string         `json:"kind"`
	Params map[string]any `json:"params,omitempty"`
}

// ToSpec converts the wire form to a domain spec, coercing parameter values
// to float64. Unknown kinds and non-numeric parameters fail the conversion
// here rather than at primitive construction.
func (s SamplerSpec) ToSpec() (sample.Spec, error) {
	if !slices.Contains(sample.Kinds(), sample.Kind(s.Kind)) {
		return sample.Spec{}, fmt.Errorf("%w: %q", sample.ErrUnknownKind, s.Kind)
	}

	spec := sample.NewSpec(sample.Kind(s.Kind))
	if len(s.Params) == 0 {
		return spec, nil
	}

	params := make(map[string]float64, len(s.Params))
	if err := mapstructure.WeakDecode(s.Params, &params); err != nil {
		return sample.Spec{}, fmt.Errorf("sampler %q params: %w", s.Kind, err)
	}
	spec.Params = params
	return spec, nil
}

// FromSpec converts a domain spec to its wire form.
func FromSpec(spec sample.Spec) SamplerSpec {
	out := SamplerSpec{Kind: string(spec.Kind)}
	if len(spec.Params) > 0 {
		out.Params = make(map[string]any, len(spec.Params))
		for k, v := range spec.Params {
			out.Params[k] = v
		}
	}
	return out
}

// ToSpecs converts a wire spec list, failing on the first bad entry.
func ToSpecs(specs []SamplerSpec) ([]sample.Spec, error) {
	out := make([]sample.Spec, 0, len(specs))
	for _, s := range specs {
		spec, err := s.ToSpec()
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

type CreateSessionRequest struct {
	// Mode is the constraint mode: strict, flexible or partial. Empty
	// selects the server default.
	Mode string `json:"mode,omitempty"`

	// Schema optionally biases key suggestions during generation.
	Schema json.RawMessage `json:"schema,omitempty"`

	// Contexts optionally binds extra chains beyond the two JSON
	// profiles the session registers itself.
	Contexts map[string][]SamplerSpec `json:"contexts,omitempty"`
}

type SessionResponse struct {
	ID       string   `json:"id"`
	Mode     string   `json:"mode"`
	State    string   `json:"state"`
	Context  string   `json:"context"`
	Depth    int      `json:"depth"`
	Buffer   string   `json:"buffer,omitempty"`
	Valid    bool     `json:"valid"`
	Contexts []string `json:"contexts,omitempty"`
}

type ProcessRequest struct {
	Token string `json:"token"`
}

type ProcessResponse struct {
	Valid        bool     `json:"valid"`
	State        string   `json:"state"`
	Context      string   `json:"context"`
	Depth        int      `json:"depth"`
	NextTokens   []string `json:"next_tokens,omitempty"`
	PossibleKeys []string `json:"possible_keys,omitempty"`
}

type DetectRequest struct {
	Text string `json:"text"`
}

type DetectResponse struct {
	Context string `json:"context,omitempty"`
	Matched bool   `json:"matched"`
}

type Preset struct {
	Context  string        `json:"context"`
	Samplers []SamplerSpec `json:"samplers"`
}

type PresetsResponse struct {
	Presets []Preset `json:"presets"`
}
