package devices

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore provides an in-memory implementation of the Store interface.
// It is thread-safe and suitable for development, testing, and single-host
// deployments where registrations don't need to survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewMemoryStore creates a new in-memory device store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[string]*Device),
	}
}

// Save persists a device record. If it already exists, it will be updated.
func (s *MemoryStore) Save(ctx context.Context, device *Device) error {
	if device == nil {
		return ErrInvalidDevice
	}
	if device.Token == "" {
		return ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutations
	s.devices[device.Token] = copyDevice(device)

	return nil
}

// Get retrieves a device record by token.
// Returns a copy to prevent external mutations.
func (s *MemoryStore) Get(ctx context.Context, token string) (*Device, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	device, exists := s.devices[token]
	if !exists {
		return nil, ErrNotFound
	}

	return copyDevice(device), nil
}

// Delete removes a device record by token.
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.devices[token]; !exists {
		return ErrNotFound
	}

	delete(s.devices, token)

	return nil
}

// List returns all registered devices, oldest registration first.
func (s *MemoryStore) List(ctx context.Context) ([]*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]*Device, 0, len(s.devices))
	for _, device := range s.devices {
		devices = append(devices, copyDevice(device))
	}

	sortDevices(devices)

	return devices, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// copyDevice returns a copy of a device record.
// Device is a flat struct, so a value copy is a full copy.
func copyDevice(d *Device) *Device {
	cp := *d
	return &cp
}

// sortDevices orders devices by registration time, oldest first.
// Ties fall back to name so listings stay stable.
func sortDevices(devices []*Device) {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].RegisteredAt.Equal(devices[j].RegisteredAt) {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].RegisteredAt.Before(devices[j].RegisteredAt)
	})
}
