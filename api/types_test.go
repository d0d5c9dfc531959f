package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kherud/llama-sampling/sample"
)

func TestSamplerSpecRoundTrip(t *testing.T) {
	wire := SamplerSpec{
		Kind: "top_k",
		// JSON numbers decode as float64, but ints arrive from Go callers
		Params: map[string]any{"k": 20, "min_keep": 1.0},
	}

	spec, err := wire.ToSpec()
	require.NoError(t, err)
	assert.Equal(t, sample.KindTopK, spec.Kind)
	assert.Equal(t, 20.0, spec.Params["k"])
	assert.Equal(t, 1.0, spec.Params["min_keep"])

	back := FromSpec(spec)
	assert.Equal(t, "top_k", back.Kind)
	assert.Equal(t, 20.0, back.Params["k"])
}

func TestSamplerSpecUnknownKind(t *testing.T) {
	_, err := SamplerSpec{Kind: "no_such_kind"}.ToSpec()
	require.Error(t, err)
	assert.ErrorIs(t, err, sample.ErrUnknownKind)
}

func TestSamplerSpecBadParams(t *testing.T) {
	wire := SamplerSpec{
		Kind:   "temperature",
		Params: map[string]any{"temperature": "warm"},
	}
	_, err := wire.ToSpec()
	assert.Error(t, err)
}

func TestToSpecsFailsFast(t *testing.T) {
	_, err := ToSpecs([]SamplerSpec{
		{Kind: "greedy"},
		{Kind: "xtc", Params: map[string]any{"p": []int{1}}},
	})
	assert.Error(t, err)
}

func TestStatusError(t *testing.T) {
	assert.Equal(t, "404 Not Found: missing", StatusError{
		StatusCode:   404,
		Status:       "404 Not Found",
		ErrorMessage: "missing",
	}.Error())
	assert.Equal(t, "http status 500", StatusError{StatusCode: 500}.Error())
}
