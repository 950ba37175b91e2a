package tts

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
)

// Manager owns the provider set and routes speech to the active one.
// Availability detection runs once, in parallel, on first use; the
// selection policy prefers native providers over cloud ones, in
// construction order.
type Manager struct {
	mu          sync.Mutex
	providers   []Provider
	excluded    map[Provider]struct{} // providers whose Initialize errored
	active      Provider
	initialized bool
}

// managerOptions holds construction parameters for the default
// provider set.
type managerOptions struct {
	elevenKey  string
	keySet     bool
	httpClient *http.Client
	elevenOpts []ElevenLabsOption
	runner     CommandRunner
	providers  []Provider
}

// ManagerOption configures the Manager.
type ManagerOption func(*managerOptions)

// WithElevenLabsKey sets the ElevenLabs API key. Without this option
// the key is read from ELEVENLABS_API_KEY.
func WithElevenLabsKey(key string) ManagerOption {
	return func(o *managerOptions) {
		o.elevenKey = key
		o.keySet = true
	}
}

// WithRunner sets the command runner shared by all command-backed
// providers and by cloud audio playback.
func WithRunner(runner CommandRunner) ManagerOption {
	return func(o *managerOptions) {
		o.runner = runner
	}
}

// WithHTTPClient sets the HTTP client used by cloud providers.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(o *managerOptions) {
		o.httpClient = client
	}
}

// WithElevenLabsOptions forwards provider options to the ElevenLabs
// provider, such as a custom base URL or model.
func WithElevenLabsOptions(opts ...ElevenLabsOption) ManagerOption {
	return func(o *managerOptions) {
		o.elevenOpts = append(o.elevenOpts, opts...)
	}
}

// WithProviders replaces the default provider set entirely. Order
// matters: it becomes the selection order.
func WithProviders(providers ...Provider) ManagerOption {
	return func(o *managerOptions) {
		o.providers = providers
	}
}

// NewManager creates a Manager with the default provider set: say,
// sapi, termux, then elevenlabs.
func NewManager(opts ...ManagerOption) *Manager {
	o := &managerOptions{runner: NewExecRunner()}
	for _, opt := range opts {
		opt(o)
	}

	providers := o.providers
	if providers == nil {
		if !o.keySet {
			o.elevenKey = os.Getenv("ELEVENLABS_API_KEY")
		}
		elevenOpts := []ElevenLabsOption{WithElevenLabsRunner(o.runner)}
		if o.httpClient != nil {
			elevenOpts = append(elevenOpts, WithElevenLabsClient(o.httpClient))
		}
		elevenOpts = append(elevenOpts, o.elevenOpts...)

		providers = []Provider{
			NewSay(o.runner),
			NewSAPI(o.runner),
			NewTermux(o.runner),
			NewElevenLabs(o.elevenKey, elevenOpts...),
		}
	}

	return &Manager{
		providers: providers,
		excluded:  make(map[Provider]struct{}),
	}
}

// Initialize runs availability detection across all providers and
// selects the active one. It is idempotent; subsequent calls are
// no-ops. Provider detection failures are logged and the provider is
// excluded, never propagated.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initializeLocked(ctx)
	return nil
}

// initializeLocked detects all providers in parallel, then selects.
// Callers must hold mu.
func (m *Manager) initializeLocked(ctx context.Context) {
	if m.initialized {
		return
	}
	m.initialized = true

	errs := make([]error, len(m.providers))
	var g errgroup.Group
	for i, p := range m.providers {
		g.Go(func() error {
			errs[i] = p.Initialize(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range m.providers {
		if errs[i] != nil {
			logger.Warn("voice provider initialization failed, excluding", "provider", p.Name(), "error", errs[i])
			m.excluded[p] = struct{}{}
		}
	}

	m.selectLocked()
}

// selectLocked picks the active provider: native providers first, then
// cloud, both in construction order. An explicit override set through
// SetProvider is never replaced. Callers must hold mu.
func (m *Manager) selectLocked() {
	if m.active != nil {
		return
	}
	for _, p := range m.providers {
		if _, skip := m.excluded[p]; skip {
			continue
		}
		if p.Native() && p.Available() {
			m.active = p
			break
		}
	}
	if m.active == nil {
		for _, p := range m.providers {
			if _, skip := m.excluded[p]; skip {
				continue
			}
			if p.Available() {
				m.active = p
				break
			}
		}
	}
	if m.active == nil {
		logger.Warn("no voice provider available; speech disabled")
		return
	}
	logger.Info("🔊 Voice Provider Selected", "provider", m.active.Name(), "native", m.active.Native())
}

// Speak routes text to the active provider, initializing on first use.
// A failed dispatch is returned to the caller and never changes the
// active provider.
func (m *Manager) Speak(ctx context.Context, text string, opts SpeakOptions) error {
	m.mu.Lock()
	m.initializeLocked(ctx)
	active := m.active
	m.mu.Unlock()

	if active == nil {
		return ErrNoProvider
	}

	logger.SpeechDispatch(active.Name(), len(text))
	if err := active.Speak(ctx, text, opts); err != nil {
		logger.SpeechError(active.Name(), err)
		return err
	}
	return nil
}

// Voices returns the active provider's voices, initializing on first
// use. Without an active provider the list is empty.
func (m *Manager) Voices(ctx context.Context) []Voice {
	m.mu.Lock()
	m.initializeLocked(ctx)
	active := m.active
	m.mu.Unlock()

	if active == nil {
		return nil
	}
	return active.Voices(ctx)
}

// ProviderStatus describes one provider for status listings.
type ProviderStatus struct {
	Name      string `json:"name"`
	Native    bool   `json:"native"`
	Available bool   `json:"available"`
	Active    bool   `json:"active"`
}

// Providers lists all providers in construction order with their
// current availability.
func (m *Manager) Providers() []ProviderStatus {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	statuses := make([]ProviderStatus, 0, len(m.providers))
	for _, p := range m.providers {
		statuses = append(statuses, ProviderStatus{
			Name:      p.Name(),
			Native:    p.Native(),
			Available: p.Available(),
			Active:    p == active,
		})
	}
	return statuses
}

// ActiveProviderName returns the active provider's name, or an empty
// string when speech is disabled.
func (m *Manager) ActiveProviderName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.Name()
}

// SetProvider overrides automatic selection. The name is matched
// case-insensitively; switching to an unavailable or unknown provider
// fails and leaves the active provider unchanged.
func (m *Manager) SetProvider(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.providers {
		if strings.EqualFold(p.Name(), name) {
			if !p.Available() {
				return fmt.Errorf("%w: %s", ErrProviderUnavailable, p.Name())
			}
			m.active = p
			logger.Info("🔊 Voice Provider Switched", "provider", p.Name())
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}
