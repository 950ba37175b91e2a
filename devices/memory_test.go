package devices

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetInvalidToken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	registered := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	device := &Device{
		Token:        "tok-123",
		Name:         "Pixel",
		Platform:     "android",
		RegisteredAt: registered,
	}

	// Save
	err := store.Save(ctx, device)
	require.NoError(t, err)

	// Get
	loaded, err := store.Get(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", loaded.Token)
	assert.Equal(t, "Pixel", loaded.Name)
	assert.Equal(t, "android", loaded.Platform)
	assert.True(t, loaded.RegisteredAt.Equal(registered))
}

func TestMemoryStore_SaveUpdatesExisting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Save initial record
	device := &Device{
		Token:    "tok-123",
		Name:     "Pixel",
		Platform: "android",
	}
	err := store.Save(ctx, device)
	require.NoError(t, err)

	// Re-register under a new name
	device.Name = "Pixel 9"
	err = store.Save(ctx, device)
	require.NoError(t, err)

	// Get and verify update
	loaded, err := store.Get(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "Pixel 9", loaded.Name)

	devices, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestMemoryStore_SaveInvalidDevice(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Save(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidDevice)
}

func TestMemoryStore_SaveInvalidToken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	device := &Device{
		Token: "", // Empty token
		Name:  "Pixel",
	}
	err := store.Save(ctx, device)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Save a record
	device := &Device{
		Token: "tok-123",
		Name:  "Pixel",
	}
	err := store.Save(ctx, device)
	require.NoError(t, err)

	// Delete it
	err = store.Delete(ctx, "tok-123")
	require.NoError(t, err)

	// Verify it's gone
	_, err = store.Get(ctx, "tok-123")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteNotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Delete(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteInvalidToken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Delete(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryStore_ListSortedByRegistration(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	devices := []*Device{
		{Token: "tok-c", Name: "Watch", RegisteredAt: base.Add(2 * time.Hour)},
		{Token: "tok-a", Name: "Phone", RegisteredAt: base},
		{Token: "tok-b", Name: "Laptop", RegisteredAt: base.Add(time.Hour)},
	}
	for _, device := range devices {
		err := store.Save(ctx, device)
		require.NoError(t, err)
	}

	// List returns oldest registration first
	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "Phone", listed[0].Name)
	assert.Equal(t, "Laptop", listed[1].Name)
	assert.Equal(t, "Watch", listed[2].Name)
}

func TestMemoryStore_ListEmpty(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	devices, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestMemoryStore_CopyPreventsExternalMutation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Save record
	device := &Device{
		Token: "tok-123",
		Name:  "Pixel",
	}
	err := store.Save(ctx, device)
	require.NoError(t, err)

	// Mutate the caller's struct and a loaded copy
	device.Name = "mutated after save"
	loaded, err := store.Get(ctx, "tok-123")
	require.NoError(t, err)
	loaded.Name = "mutated after get"

	// Get again and verify the original value is preserved
	loaded2, err := store.Get(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "Pixel", loaded2.Name)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const numGoroutines = 100
	const numOpsPerGoroutine = 10

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Run concurrent save/get/list/delete operations
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()

			for j := 0; j < numOpsPerGoroutine; j++ {
				token := "tok-" + strconv.Itoa(id)

				device := &Device{
					Token:        token,
					Name:         "Device " + strconv.Itoa(id),
					RegisteredAt: time.Now(),
				}
				_ = store.Save(ctx, device)

				_, _ = store.Get(ctx, token)

				_, _ = store.List(ctx)

				if j%3 == 0 {
					_ = store.Delete(ctx, token)
				}
			}
		}(i)
	}

	wg.Wait()

	// If we reach here without data races or panics, the test passes
	// (Run with -race flag to detect data races)
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore()

	assert.NoError(t, store.Close())
}
