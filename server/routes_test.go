package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kherud/llama-sampling/api"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, h http.Handler, body any) api.SessionResponse {
	t.Helper()

	w := testRequest(t, h, http.MethodPost, "/api/sessions", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	return resp
}

func TestCreateSession(t *testing.T) {
	h := NewServer().GenerateRoutes()

	resp := createSession(t, h, api.CreateSessionRequest{Mode: "partial"})
	assert.Equal(t, "partial", resp.Mode)
	assert.Equal(t, "ObjectStart", resp.State)
	assert.Equal(t, "json-generation", resp.Context)
	assert.Contains(t, resp.Contexts, "general")

	w := testRequest(t, h, http.MethodPost, "/api/sessions", api.CreateSessionRequest{Mode: "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionWithExtraContexts(t *testing.T) {
	h := NewServer().GenerateRoutes()

	resp := createSession(t, h, api.CreateSessionRequest{
		Contexts: map[string][]api.SamplerSpec{
			"code-completion": {
				{Kind: "top_k", Params: map[string]any{"k": 20}},
				{Kind: "temperature", Params: map[string]any{"temperature": 0.3}},
			},
		},
	})
	assert.Contains(t, resp.Contexts, "code-completion")

	w := testRequest(t, h, http.MethodPost, "/api/sessions", api.CreateSessionRequest{
		Contexts: map[string][]api.SamplerSpec{
			"broken": {{Kind: "no_such_kind"}},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessTokens(t *testing.T) {
	h := NewServer().GenerateRoutes()
	sess := createSession(t, h, nil)

	steps := []struct {
		token   string
		state   string
		context string
		valid   bool
	}{
		{`{`, "ObjectKey", "general", true},
		{`"k"`, "ObjectColon", "json-generation", true},
		{`:`, "ObjectValue", "general", true},
		{`1`, "ObjectComma", "json-generation", true},
		{`}`, "Complete", "general", true},
	}

	for _, step := range steps {
		w := testRequest(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/tokens", api.ProcessRequest{Token: step.token})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp api.ProcessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, step.valid, resp.Valid, "token %q", step.token)
		assert.Equal(t, step.state, resp.State, "token %q", step.token)
		assert.Equal(t, step.context, resp.Context, "token %q", step.token)
	}
}

func TestProcessInvalidToken(t *testing.T) {
	h := NewServer().GenerateRoutes()
	sess := createSession(t, h, nil)

	for _, token := range []string{`{"a": 1}`, `}`} {
		w := testRequest(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/tokens", api.ProcessRequest{Token: token})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := testRequest(t, h, http.MethodGet, "/api/sessions/"+sess.ID, nil)
	var got api.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Valid)
}

func TestResetSession(t *testing.T) {
	h := NewServer().GenerateRoutes()
	sess := createSession(t, h, nil)

	testRequest(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/tokens", api.ProcessRequest{Token: `{"a": [`})

	w := testRequest(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ObjectStart", resp.State)
	assert.Equal(t, 0, resp.Depth)
	assert.Empty(t, resp.Buffer)
}

func TestDeleteSession(t *testing.T) {
	h := NewServer().GenerateRoutes()
	sess := createSession(t, h, nil)

	w := testRequest(t, h, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testRequest(t, h, http.MethodGet, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testRequest(t, h, http.MethodDelete, "/api/sessions/"+sess.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetect(t *testing.T) {
	h := NewServer().GenerateRoutes()

	w := testRequest(t, h, http.MethodPost, "/api/detect", api.DetectRequest{Text: "def parse(line):"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.DetectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Matched)
	assert.Equal(t, "code-completion", resp.Context)

	w = testRequest(t, h, http.MethodPost, "/api/detect", api.DetectRequest{Text: "tell me a story"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Matched)
}

func TestPresets(t *testing.T) {
	h := NewServer().GenerateRoutes()

	w := testRequest(t, h, http.MethodGet, "/api/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.PresetsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Presets)

	contexts := make([]string, 0, len(resp.Presets))
	for _, p := range resp.Presets {
		contexts = append(contexts, p.Context)
		assert.NotEmpty(t, p.Samplers, p.Context)
	}
	assert.Contains(t, contexts, "json-generation")
	assert.Contains(t, contexts, "general")
}

func TestSchemaKeysInProcessResponse(t *testing.T) {
	h := NewServer().GenerateRoutes()
	sess := createSession(t, h, api.CreateSessionRequest{
		Schema: json.RawMessage(`{"type": "object", "properties": {"title": {"type": "string"}}}`),
	})

	w := testRequest(t, h, http.MethodPost, "/api/sessions/"+sess.ID+"/tokens", api.ProcessRequest{Token: `{`})
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"title"}, resp.PossibleKeys)
}
