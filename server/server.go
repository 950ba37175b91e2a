// Package server is the HTTP/WebSocket gateway in front of the chat
// client, the voice manager, the skill registry, and the device
// authenticator. Every collaborator is optional: routes whose backend
// is absent degrade to an explicit status instead of panicking, and
// bearer auth is skipped entirely when no authenticator is configured.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/chat"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/devices"
	prom "github.com/g4mm4p4nd4/Personal-AI-Infrastructure/metrics/prometheus"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/skills"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/telemetry"
	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/tts"
)

const (
	// defaultAddr is the listen address when none is configured.
	defaultAddr = ":8888"

	// defaultReadHeaderTimeout prevents Slowloris attacks.
	defaultReadHeaderTimeout = 10 * time.Second

	// defaultReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout is the maximum duration before timing out
	// writes of the response. Chat replies wait on an upstream model,
	// so this is generous.
	defaultWriteTimeout = 120 * time.Second

	// defaultIdleTimeout is the maximum amount of time to wait for the
	// next request when keep-alives are enabled.
	defaultIdleTimeout = 120 * time.Second

	// defaultMaxBodySize is the maximum allowed size of a request body
	// (1 MB). Every request body on this API is a small JSON document.
	defaultMaxBodySize int64 = 1 << 20

	// backgroundSpeakTimeout bounds spoken replies dispatched after the
	// HTTP response has already been sent.
	backgroundSpeakTimeout = 60 * time.Second
)

// Option configures a [Server].
type Option func(*Server)

// WithAddr sets the listen address for ListenAndServe.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithChat sets the chat client behind POST /chat and the websocket.
// Without it, chat routes answer 503.
func WithChat(client *chat.Client) Option {
	return func(s *Server) { s.chat = client }
}

// WithVoice sets the voice manager behind the speak and voice routes.
// Without it, those routes answer 503.
func WithVoice(manager *tts.Manager) Option {
	return func(s *Server) { s.voice = manager }
}

// WithSkills sets the skill registry served at GET /skills.
func WithSkills(registry *skills.Registry) Option {
	return func(s *Server) { s.registry = registry }
}

// WithAuthenticator enables bearer auth over the protected routes and
// device registration at POST /auth/register.
func WithAuthenticator(auth *devices.Authenticator) Option {
	return func(s *Server) { s.auth = auth }
}

// WithTracerProvider sets the provider for request spans. Defaults to
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) { s.tracer = telemetry.Tracer(tp) }
}

// WithMaxBodySize sets the maximum allowed request body size in bytes.
// Default: 1 MB.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) { s.maxBodySize = n }
}

// Server is the gateway HTTP server.
type Server struct {
	addr     string
	chat     *chat.Client
	voice    *tts.Manager
	registry *skills.Registry
	auth     *devices.Authenticator
	tracer   trace.Tracer

	maxBodySize int64

	httpSrv   *http.Server
	httpSrvMu sync.Mutex

	wsMu    sync.Mutex
	wsConns map[*wsConn]struct{} // open websocket connections, closed on Shutdown
}

// NewServer creates a gateway server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		addr:        defaultAddr,
		tracer:      telemetry.Tracer(nil),
		maxBodySize: defaultMaxBodySize,
		wsConns:     make(map[*wsConn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns an http.Handler for the gateway routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", prom.Handler())
	mux.HandleFunc("POST /auth/register", s.instrument("/auth/register", s.handleRegister))
	mux.HandleFunc("POST /chat", s.instrument("/chat", s.requireAuth(s.handleChat)))
	mux.HandleFunc("POST /speak", s.instrument("/speak", s.requireAuth(s.handleSpeak)))
	mux.HandleFunc("GET /voices", s.instrument("/voices", s.requireAuth(s.handleVoices)))
	mux.HandleFunc("GET /voices/providers", s.instrument("/voices/providers", s.requireAuth(s.handleProviders)))
	mux.HandleFunc("PUT /voices/provider", s.instrument("/voices/provider", s.requireAuth(s.handleSetProvider)))
	mux.HandleFunc("GET /skills", s.instrument("/skills", s.requireAuth(s.handleSkills)))
	mux.HandleFunc("GET /skills/{name}", s.instrument("/skills/{name}", s.requireAuth(s.handleSkill)))
	mux.HandleFunc("GET /ws", s.requireAuth(s.handleWS))
	return otelhttp.NewHandler(mux, "pai-gateway")
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	srv := s.newHTTPServer()
	srv.Addr = s.addr

	s.httpSrvMu.Lock()
	s.httpSrv = srv
	s.httpSrvMu.Unlock()

	return srv.ListenAndServe()
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	srv := s.newHTTPServer()

	s.httpSrvMu.Lock()
	s.httpSrv = srv
	s.httpSrvMu.Unlock()

	return srv.Serve(ln)
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

// Shutdown gracefully shuts down the server: drains HTTP requests,
// then closes any websocket connections still open. Shutdown does not
// wait for hijacked connections on its own, hence the explicit close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.httpSrvMu.Lock()
	srv := s.httpSrv
	s.httpSrvMu.Unlock()

	var firstErr error
	if srv != nil {
		firstErr = srv.Shutdown(ctx)
	}

	s.wsMu.Lock()
	for c := range s.wsConns {
		c.close()
		delete(s.wsConns, c)
	}
	s.wsMu.Unlock()

	return firstErr
}

// trackWS registers an open websocket connection for Shutdown.
func (s *Server) trackWS(c *wsConn) {
	s.wsMu.Lock()
	s.wsConns[c] = struct{}{}
	s.wsMu.Unlock()
}

// untrackWS removes a websocket connection once its handler returns.
func (s *Server) untrackWS(c *wsConn) {
	s.wsMu.Lock()
	delete(s.wsConns, c)
	s.wsMu.Unlock()
}
