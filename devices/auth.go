package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
)

// Registration is rare in normal operation. A burst covers setting up a
// handful of devices in one sitting; sustained traffic is throttled.
const (
	defaultRegistrationInterval = 10 * time.Second
	defaultRegistrationBurst    = 5
)

// ErrRateLimited is returned when registration exceeds the configured rate.
var ErrRateLimited = errors.New("registration rate limit exceeded")

// ErrInvalidName is returned when a registration has no device name.
var ErrInvalidName = errors.New("device name cannot be empty")

// Authenticator issues device tokens and resolves them back to devices.
// The registration limiter is process-wide, not per caller.
type Authenticator struct {
	store   Store
	limiter *rate.Limiter
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithRegistrationLimit overrides the default registration rate limit.
func WithRegistrationLimit(limit rate.Limit, burst int) AuthOption {
	return func(a *Authenticator) {
		a.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewAuthenticator creates an authenticator backed by the given store.
func NewAuthenticator(store Store, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		store:   store,
		limiter: rate.NewLimiter(rate.Every(defaultRegistrationInterval), defaultRegistrationBurst),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Register issues a fresh token for the named device and persists it.
// Invalid requests are rejected before they consume limiter quota.
func (a *Authenticator) Register(ctx context.Context, name, platform string) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	if !a.limiter.Allow() {
		return nil, ErrRateLimited
	}

	device := &Device{
		Token:        uuid.NewString(),
		Name:         name,
		Platform:     strings.TrimSpace(platform),
		RegisteredAt: time.Now().UTC(),
	}

	if err := a.store.Save(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to save device: %w", err)
	}

	logger.Info("🔐 Device Registered", "name", device.Name, "platform", device.Platform)

	return device, nil
}

// Authenticate resolves a bearer token to its registered device.
// Empty and unknown tokens both map to ErrInvalidToken; store failures
// pass through unchanged.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Device, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	device, err := a.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return device, nil
}

// Revoke deletes a registered device, invalidating its token.
func (a *Authenticator) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	if err := a.store.Delete(ctx, token); err != nil {
		return err
	}

	logger.Info("🔐 Device Revoked", "token", shortToken(token))

	return nil
}

// Devices lists all registered devices, oldest first.
func (a *Authenticator) Devices(ctx context.Context) ([]*Device, error) {
	return a.store.List(ctx)
}

// shortToken truncates a token for log output. Tokens are credentials and
// never appear in logs in full.
func shortToken(token string) string {
	const keep = 8
	if len(token) <= keep {
		return token
	}
	return token[:keep] + "..."
}
