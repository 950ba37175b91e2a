package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/chat"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/devices"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
	prom "github.com/g4mm4p4nd4/Personal-AI-Infrastructure/metrics/prometheus"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/skills"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/tts"
)

// errorResponse is the JSON body of every non-2xx answer.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON decodes a request body into v, bounded by the configured
// body size limit.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and duration for one route. The
// route label is the static pattern, never the raw path, so metric
// cardinality stays bounded.
func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		prom.RecordRequest(route, rec.status, time.Since(start).Seconds())
	}
}

// tokenFromRequest extracts the bearer token from the Authorization
// header, falling back to the token query parameter. The fallback
// exists for websocket clients that cannot set headers.
func tokenFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return r.URL.Query().Get("token")
}

// requireAuth authenticates the device token before calling next. With
// no authenticator configured the gateway runs open and next is called
// directly.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next(w, r)
			return
		}

		_, err := s.auth.Authenticate(r.Context(), tokenFromRequest(r))
		if err != nil {
			if errors.Is(err, devices.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "invalid or missing device token")
				return
			}
			logger.ErrorContext(r.Context(), "authentication backend failure", "error", err)
			writeError(w, http.StatusInternalServerError, "authentication unavailable")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "device registration is not enabled")
		return
	}

	var req registerRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	device, err := s.auth.Register(r.Context(), req.Name, req.Platform)
	switch {
	case errors.Is(err, devices.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, devices.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case err != nil:
		logger.ErrorContext(r.Context(), "device registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
	default:
		writeJSON(w, http.StatusCreated, device)
	}
}

type chatRequest struct {
	Message string `json:"message"`
	Speak   bool   `json:"speak,omitempty"`
	Voice   string `json:"voice,omitempty"`
}

type chatResponse struct {
	Reply        string `json:"reply"`
	Model        string `json:"model,omitempty"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req chatRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.sendChat(r.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, chat.ErrNoAPIKey):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "chat request failed")
		return
	}

	if req.Speak && s.voice != nil {
		go s.speakReply(detachedContext(r.Context()), reply.Text, req.Voice)
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:        reply.Text,
		Model:        reply.Model,
		InputTokens:  reply.InputTokens,
		OutputTokens: reply.OutputTokens,
	})
}

type speakRequest struct {
	Text   string  `json:"text"`
	Voice  string  `json:"voice,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

type speakResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}

	var req speakRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}

	err := s.speak(r.Context(), req.Text, tts.SpeakOptions{
		Voice:  req.Voice,
		Rate:   req.Rate,
		Pitch:  req.Pitch,
		Volume: req.Volume,
	})
	switch {
	case errors.Is(err, tts.ErrNoProvider):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, tts.ErrEmptyText):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, "speech dispatch failed")
	default:
		writeJSON(w, http.StatusOK, speakResponse{
			Status:   "ok",
			Provider: s.voice.ActiveProviderName(),
		})
	}
}

type voicesResponse struct {
	Provider string      `json:"provider"`
	Voices   []tts.Voice `json:"voices"`
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}

	voices := s.voice.Voices(r.Context())
	if voices == nil {
		voices = []tts.Voice{}
	}
	writeJSON(w, http.StatusOK, voicesResponse{
		Provider: s.voice.ActiveProviderName(),
		Voices:   voices,
	})
}

type providersResponse struct {
	Active    string               `json:"active"`
	Providers []tts.ProviderStatus `json:"providers"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}

	// Detection runs on first use; trigger it so the listing is populated.
	_ = s.voice.Initialize(r.Context())

	writeJSON(w, http.StatusOK, providersResponse{
		Active:    s.voice.ActiveProviderName(),
		Providers: s.voice.Providers(),
	})
}

type setProviderRequest struct {
	Provider string `json:"provider"`
}

func (s *Server) handleSetProvider(w http.ResponseWriter, r *http.Request) {
	if s.voice == nil {
		writeError(w, http.StatusServiceUnavailable, "voice is not configured")
		return
	}

	var req setProviderRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Provider) == "" {
		writeError(w, http.StatusBadRequest, "provider cannot be empty")
		return
	}

	err := s.voice.SetProvider(req.Provider)
	switch {
	case errors.Is(err, tts.ErrUnknownProvider):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, tts.ErrProviderUnavailable):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "provider switch failed")
	default:
		active := s.voice.ActiveProviderName()
		prom.SetActiveProvider(active)
		writeJSON(w, http.StatusOK, map[string]string{"active": active})
	}
}

type skillsResponse struct {
	Count  int                    `json:"count"`
	Skills []skills.SkillMetadata `json:"skills"`
}

func (s *Server) handleSkills(w http.ResponseWriter, _ *http.Request) {
	// A gateway without a skill registry just has zero skills.
	list := []skills.SkillMetadata{}
	if s.registry != nil {
		list = s.registry.List()
	}
	writeJSON(w, http.StatusOK, skillsResponse{Count: len(list), Skills: list})
}

func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if s.registry == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("skill not found: %s", name))
		return
	}

	skill, err := s.registry.Load(name)
	switch {
	case errors.Is(err, skills.ErrSkillNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		logger.ErrorContext(r.Context(), "skill load failed", "skill", name, "error", err)
		writeError(w, http.StatusInternalServerError, "skill load failed")
	default:
		writeJSON(w, http.StatusOK, skill)
	}
}

// sendChat runs one chat round trip with tracing and metrics.
func (s *Server) sendChat(ctx context.Context, message string) (*chat.Reply, error) {
	ctx, span := s.tracer.Start(ctx, "pai.chat",
		trace.WithAttributes(attribute.String("chat.model", s.chat.Model())),
	)
	defer span.End()

	start := time.Now()
	reply, err := s.chat.Send(ctx, message)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		prom.RecordChat("error", time.Since(start).Seconds())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	prom.RecordChat("success", time.Since(start).Seconds())
	prom.RecordChatTokens(reply.Model, reply.InputTokens, reply.OutputTokens)
	return reply, nil
}

// speak runs one speak dispatch with tracing and metrics.
func (s *Server) speak(ctx context.Context, text string, opts tts.SpeakOptions) error {
	ctx, span := s.tracer.Start(ctx, "pai.speak")
	defer span.End()

	start := time.Now()
	err := s.voice.Speak(ctx, text, opts)

	provider := s.voice.ActiveProviderName()
	if provider == "" {
		provider = "none"
	}
	span.SetAttributes(attribute.String("voice.provider", provider))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		prom.RecordSpeak(provider, "error", time.Since(start).Seconds())
		return err
	}

	span.SetStatus(codes.Ok, "")
	prom.RecordSpeak(provider, "success", time.Since(start).Seconds())
	return nil
}

// speakReply vocalizes a chat reply after the response has been sent.
// Failures are logged, never surfaced to the caller.
func (s *Server) speakReply(ctx context.Context, text, voice string) {
	ctx, cancel := context.WithTimeout(ctx, backgroundSpeakTimeout)
	defer cancel()

	if err := s.speak(ctx, text, tts.SpeakOptions{Voice: voice}); err != nil {
		logger.Warn("background speech failed", "error", err)
	}
}

// detachedContext returns a fresh context carrying only the span
// context from ctx, for work that outlives the HTTP handler.
func detachedContext(ctx context.Context) context.Context {
	return trace.ContextWithSpanContext(context.Background(),
		trace.SpanContextFromContext(ctx))
}
