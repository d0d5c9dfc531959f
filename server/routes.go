// Package server exposes sampling sessions over HTTP. Each session wraps a
// sample.Session behind its own lock; the store itself is safe for
// concurrent handlers.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"github.com/kherud/llama-sampling/api"
	"github.com/kherud/llama-sampling/envconfig"
	"github.com/kherud/llama-sampling/sample"
	"github.com/kherud/llama-sampling/types/syncmap"
)

type Server struct {
	sessions *syncmap.SyncMap[string, *session]
	detector *sample.Detector

	// NewBackend builds the backend for one session. Defaults to the
	// in-process transforms; a cgo-backed constructor drops in here.
	NewBackend func() sample.Backend
}

type session struct {
	mu sync.Mutex
	s  *sample.Session
}

func NewServer() *Server {
	return &Server{
		sessions:   syncmap.NewSyncMap[string, *session](),
		detector:   sample.DefaultDetector(),
		NewBackend: func() sample.Backend { return sample.NewInprocessBackend() },
	}
}

func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowOrigins = envconfig.AllowOrigins

	r := gin.Default()
	r.Use(cors.New(corsConfig))

	r.POST("/api/sessions", s.CreateSessionHandler)
	r.GET("/api/sessions/:id", s.SessionHandler)
	r.POST("/api/sessions/:id/tokens", s.ProcessHandler)
	r.POST("/api/sessions/:id/reset", s.ResetSessionHandler)
	r.DELETE("/api/sessions/:id", s.DeleteSessionHandler)
	r.POST("/api/detect", s.DetectHandler)
	r.GET("/api/presets", s.PresetsHandler)

	return r
}

func Serve(ln net.Listener) error {
	s := NewServer()
	slog.Info("listening", "addr", ln.Addr())

	srv := &http.Server{Handler: s.GenerateRoutes()}
	return srv.Serve(ln)
}

func (s *Server) CreateSessionHandler(c *gin.Context) {
	var req api.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.sessions.Len() >= envconfig.MaxSessions {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "session limit reached"})
		return
	}

	modeText := req.Mode
	if modeText == "" {
		modeText = envconfig.DefaultMode
	}
	mode, err := sample.ParseMode(modeText)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := sample.NewSession(s.NewBackend(), mode, req.Schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for ctx, wireSpecs := range req.Contexts {
		specs, err := api.ToSpecs(wireSpecs)
		if err == nil {
			err = sess.Registry().Register(sample.Context(ctx), specs)
		}
		if err != nil {
			sess.Close()
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("context %q: %s", ctx, err)})
			return
		}
	}

	id := uuid.NewString()
	s.sessions.Store(id, &session{s: sess})
	c.JSON(http.StatusOK, sessionResponse(id, sess))
}

func (s *Server) lookup(c *gin.Context) (*session, string, bool) {
	id := c.Param("id")
	sess, ok := s.sessions.Load(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("session %q not found", id)})
		return nil, "", false
	}
	return sess, id, true
}

func (s *Server) SessionHandler(c *gin.Context) {
	sess, id, ok := s.lookup(c)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.JSON(http.StatusOK, sessionResponse(id, sess.s))
}

func (s *Server) ProcessHandler(c *gin.Context) {
	sess, _, ok := s.lookup(c)
	if !ok {
		return
	}

	var req api.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	valid := sess.s.ProcessToken(req.Token)
	_, ctx := sess.s.ActiveChain()

	resp := api.ProcessResponse{
		Valid:      valid,
		State:      sess.s.State().String(),
		Context:    string(ctx),
		Depth:      sess.s.Depth(),
		NextTokens: sess.s.ValidNextTokens(),
	}
	if sess.s.State() == sample.StateObjectKey {
		resp.PossibleKeys = sess.s.PossibleKeys()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ResetSessionHandler(c *gin.Context) {
	sess, id, ok := s.lookup(c)
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.s.Reset()
	c.JSON(http.StatusOK, sessionResponse(id, sess.s))
}

func (s *Server) DeleteSessionHandler(c *gin.Context) {
	id := c.Param("id")
	sess, ok := s.sessions.LoadAndDelete(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("session %q not found", id)})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.s.Close(); err != nil {
		slog.Warn("closing session", "session", id, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) DetectHandler(c *gin.Context) {
	var req api.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, matched := s.detector.Detect(req.Text)
	c.JSON(http.StatusOK, api.DetectResponse{Context: string(ctx), Matched: matched})
}

func (s *Server) PresetsHandler(c *gin.Context) {
	presets := sample.DefaultPresets()

	resp := api.PresetsResponse{Presets: make([]api.Preset, 0, len(presets))}
	for _, ctx := range sortedContexts(presets) {
		specs := presets[ctx]
		preset := api.Preset{Context: string(ctx), Samplers: make([]api.SamplerSpec, 0, len(specs))}
		for _, spec := range specs {
			preset.Samplers = append(preset.Samplers, api.FromSpec(spec))
		}
		resp.Presets = append(resp.Presets, preset)
	}
	c.JSON(http.StatusOK, resp)
}

func sortedContexts(presets map[sample.Context][]sample.Spec) []sample.Context {
	ctxs := maps.Keys(presets)
	slices.Sort(ctxs)
	return ctxs
}

func sessionResponse(id string, sess *sample.Session) api.SessionResponse {
	_, ctx := sess.ActiveChain()
	contexts := sess.Registry().Contexts()

	resp := api.SessionResponse{
		ID:       id,
		Mode:     sess.Mode().String(),
		State:    sess.State().String(),
		Context:  string(ctx),
		Depth:    sess.Depth(),
		Buffer:   sess.Buffer(),
		Valid:    sess.IsValidJSONSoFar(),
		Contexts: make([]string, 0, len(contexts)),
	}
	for _, c := range contexts {
		resp.Contexts = append(resp.Contexts, string(c))
	}
	return resp
}
