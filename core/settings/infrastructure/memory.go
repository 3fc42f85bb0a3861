package infrastructure

import (
	"context"
	"strings"
	"sync"
)

// MemorySettingsRepository keeps settings in process memory. Used by tests
// and by the CLI when no database is configured.
type MemorySettingsRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{values: make(map[string]string)}
}

func (r *MemorySettingsRepository) InitSchema(ctx context.Context) error {
	return nil
}

func (r *MemorySettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *MemorySettingsRepository) Set(ctx context.Context, key string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// copied: callers may pass strings backed by a request buffer
	r.values[strings.Clone(key)] = strings.Clone(value)
	return nil
}

func (r *MemorySettingsRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}

func (r *MemorySettingsRepository) List(ctx context.Context, prefix string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string)
	for k, v := range r.values {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}
