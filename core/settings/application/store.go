package application

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/pkg/crypto"
	"github.com/sirupsen/logrus"
)

// Store is the typed settings store. It is the only place where stored
// strings are coerced to typed values and back.
type Store struct {
	repo   domain.ISettingsRepository
	sealer *crypto.Sealer
}

func NewStore(repo domain.ISettingsRepository, sealer *crypto.Sealer) *Store {
	return &Store{repo: repo, sealer: sealer}
}

// InitSchema prepares the underlying table.
func (s *Store) InitSchema(ctx context.Context) error {
	return s.repo.InitSchema(ctx)
}

// Get returns the typed value of key, or its documented default when the
// key was never written.
func (s *Store) Get(ctx context.Context, key string) (domain.Value, error) {
	def, known := domain.Lookup(key)
	if !known {
		def = domain.Definition{Key: key, Type: domain.FieldString, Default: domain.StringValue("")}
	}
	return s.GetOr(ctx, key, def.Default)
}

// GetOr returns the typed value of key or fallback when absent.
func (s *Store) GetOr(ctx context.Context, key string, fallback domain.Value) (domain.Value, error) {
	raw, found, err := s.repo.Get(ctx, key)
	if err != nil {
		return fallback, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	if !found {
		return fallback, nil
	}
	return s.decode(key, raw), nil
}

// Set persists v under key.
func (s *Store) Set(ctx context.Context, key string, v domain.Value) error {
	raw := v.Encode()
	if def, ok := domain.Lookup(key); ok && def.Sensitive {
		sealed, err := s.sealer.Seal(raw)
		if err != nil {
			return fmt.Errorf("failed to seal setting %s: %w", key, err)
		}
		raw = sealed
	}
	if err := s.repo.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// Module loads every key owned by module in one read. The snapshot serves
// the rest of the request.
func (s *Store) Module(ctx context.Context, module string) (*ModuleSettings, error) {
	prefix := domain.ModulePrefix(module)
	rows, err := s.repo.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s settings: %w", module, err)
	}

	values := make(map[string]domain.Value, len(rows))
	for _, def := range domain.ModuleFields(module) {
		values[def.Option()] = def.Default
	}
	for key, raw := range rows {
		values[key[len(prefix):]] = s.decode(key, raw)
	}
	return &ModuleSettings{module: module, values: values}, nil
}

// Snapshot resolves every schema key.
func (s *Store) Snapshot(ctx context.Context) (map[string]domain.Value, error) {
	rows, err := s.repo.List(ctx, domain.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	out := make(map[string]domain.Value, len(domain.Schema))
	for _, def := range domain.Schema {
		if raw, ok := rows[def.Key]; ok {
			out[def.Key] = s.decode(def.Key, raw)
		} else {
			out[def.Key] = def.Default
		}
	}
	return out, nil
}

// Activate writes the activation defaults for keys that were never set.
func (s *Store) Activate(ctx context.Context) (int, error) {
	written := 0
	for _, def := range domain.Schema {
		if !def.Activate {
			continue
		}
		_, found, err := s.repo.Get(ctx, def.Key)
		if err != nil {
			return written, fmt.Errorf("failed to read setting %s: %w", def.Key, err)
		}
		if found {
			continue
		}
		if err := s.Set(ctx, def.Key, def.Default); err != nil {
			return written, err
		}
		written++
	}
	logrus.Infof("[SETTINGS] activation wrote %d default values", written)
	return written, nil
}

func (s *Store) decode(key, raw string) domain.Value {
	def, ok := domain.Lookup(key)
	if !ok {
		return domain.StringValue(raw)
	}
	if def.Sensitive {
		plain, err := s.sealer.Open(raw)
		if err != nil {
			logrus.WithError(err).Warnf("[SETTINGS] could not open sealed value of %s", key)
			return def.Default
		}
		raw = plain
	}
	return domain.Decode(def.Type, raw)
}
