package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/g4mm4p4nd4/Personal-AI-Infrastructure/logger"
)

// Tokens are credentials, so the file stays owner-only.
const deviceFilePerm = 0o600

// FileStore keeps the device map in memory and mirrors it to a single JSON
// file on disk. The file is loaded once on open and rewritten after every
// mutation; a failed write is logged and the in-memory state stands.
// Suitable for single-host deployments without Redis.
type FileStore struct {
	mu      sync.RWMutex
	path    string
	devices map[string]*Device
}

// NewFileStore creates a device store backed by the JSON file at path.
// An existing file is loaded; a missing one is created on first save.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		devices: make(map[string]*Device),
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Save persists a device record and rewrites the backing file.
func (s *FileStore) Save(ctx context.Context, device *Device) error {
	if device == nil {
		return ErrInvalidDevice
	}
	if device.Token == "" {
		return ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices[device.Token] = copyDevice(device)
	s.persistLocked()

	return nil
}

// Get retrieves a device record by token.
func (s *FileStore) Get(ctx context.Context, token string) (*Device, error) {
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

// Delete removes a device record and rewrites the backing file.
func (s *FileStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.devices[token]; !exists {
		return ErrNotFound
	}

	delete(s.devices, token)
	s.persistLocked()

	return nil
}

// List returns all registered devices, oldest registration first.
func (s *FileStore) List(ctx context.Context) ([]*Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]*Device, 0, len(s.devices))
	for _, device := range s.devices {
		devices = append(devices, copyDevice(device))
	}

	sortDevices(devices)

	return devices, nil
}

// Close flushes the device map to disk one final time.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked()
}

// load reads the device map from disk.
// A missing or empty file leaves the store empty.
func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read device file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.devices); err != nil {
		return fmt.Errorf("failed to parse device file %s: %w", s.path, err)
	}

	return nil
}

// persistLocked mirrors the device map to disk, logging on failure.
// Must be called with the write lock held.
func (s *FileStore) persistLocked() {
	if err := s.writeLocked(); err != nil {
		logger.Warn("failed to persist device store", "path", s.path, "error", err)
	}
}

// writeLocked serializes the device map and writes it to the backing file.
// Must be called with the write lock held.
func (s *FileStore) writeLocked() error {
	data, err := json.MarshalIndent(s.devices, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal devices: %w", err)
	}

	if err := os.WriteFile(s.path, data, deviceFilePerm); err != nil {
		return fmt.Errorf("failed to write device file: %w", err)
	}

	return nil
}
