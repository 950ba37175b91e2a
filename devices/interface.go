// Package devices provides registration and token storage for gateway clients.
package devices

import (
	"context"
	"errors"
	"time"
)

// Device is a registered client identity. The token doubles as the bearer
// credential for the HTTP and websocket surfaces.
type Device struct {
	Token        string    `json:"token"`
	Name         string    `json:"name"`
	Platform     string    `json:"platform,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Store defines the interface for persistent device registration storage.
type Store interface {
	// Save persists a device record, replacing any record with the same token
	Save(ctx context.Context, device *Device) error

	// Get retrieves a device record by token
	Get(ctx context.Context, token string) (*Device, error)

	// Delete removes a device record by token
	// Returns ErrNotFound if the token isn't registered.
	Delete(ctx context.Context, token string) error

	// List returns all registered devices, oldest registration first
	List(ctx context.Context) ([]*Device, error)

	// Close releases resources held by the store
	Close() error
}

// ErrNotFound is returned when a device doesn't exist in the store.
var ErrNotFound = errors.New("device not found")

// ErrInvalidToken is returned for empty or unrecognized tokens.
var ErrInvalidToken = errors.New("invalid device token")

// ErrInvalidDevice is returned when saving a nil device record.
var ErrInvalidDevice = errors.New("invalid device record")
