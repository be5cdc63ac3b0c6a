package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	// DefaultSecretTTL is how long a fetched secret pool is reused.
	DefaultSecretTTL = 30 * time.Minute
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Secret is one rotation of the key obfuscation scheme.
type Secret struct {
	Version int
	Key     []byte
}

func (s Secret) equal(other Secret) bool {
	return s.Version == other.Version && bytes.Equal(s.Key, other.Key)
}

// SecretSource supplies secrets to the token minter.
type SecretSource interface {
	// Secrets returns the current pool, fetching it if needed.
	Secrets(ctx context.Context) ([]Secret, error)
	// Evict removes a secret that was rejected upstream.
	Evict(secret Secret)
	// ForceRefresh replaces the pool with a fresh copy from the registry.
	ForceRefresh(ctx context.Context) ([]Secret, error)
}

// registryEntry is one element of the remote registry's JSON array.
type registryEntry struct {
	Version int   `json:"version" validate:"gt=0"`
	Secret  []int `json:"secret" validate:"required,min=1,dive,min=0,max=255"`
}

// SecretStore caches the secret pool published by a remote registry.
//
// The pool is reused for its TTL. A failed refresh falls back to the stale
// pool when one exists. All methods are safe for concurrent use.
type SecretStore struct {
	url       string
	transport *transport
	ttl       time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu        sync.Mutex
	pool      []Secret
	fetchedAt time.Time
}

var _ SecretSource = (*SecretStore)(nil)

func newSecretStore(registryURL string, t *transport, ttl time.Duration, now func() time.Time, logger zerolog.Logger) *SecretStore {
	if ttl <= 0 {
		ttl = DefaultSecretTTL
	}
	return &SecretStore{
		url:       registryURL,
		transport: t,
		ttl:       ttl,
		now:       now,
		logger:    logger.With().Str("component", "secrets").Logger(),
	}
}

// Fetch retrieves and validates the registry without touching the cache.
func (s *SecretStore) Fetch(ctx context.Context) ([]Secret, error) {
	body, err := s.transport.get(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch secret registry: %w", err)
	}

	pool, err := parseRegistry(body)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int("secrets", len(pool)).Msg("fetched secret registry")
	return pool, nil
}

// Secrets returns the cached pool while it is younger than the TTL and
// otherwise refreshes it. If the refresh fails and a previous pool exists,
// the stale pool is returned instead of the error.
func (s *SecretStore) Secrets(ctx context.Context) ([]Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.ttl {
		return slices.Clone(s.pool), nil
	}

	pool, err := s.Fetch(ctx)
	if err != nil {
		if !s.fetchedAt.IsZero() && ctx.Err() == nil {
			s.logger.Warn().Err(err).
				Time("fetched_at", s.fetchedAt).
				Msg("secret refresh failed, using stale pool")
			return slices.Clone(s.pool), nil
		}
		return nil, err
	}

	s.pool = pool
	s.fetchedAt = s.now()
	return slices.Clone(pool), nil
}

// Evict removes secret from the cached pool. The TTL is not reset.
func (s *SecretStore) Evict(secret Secret) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.pool)
	s.pool = slices.DeleteFunc(s.pool, secret.equal)
	if len(s.pool) != before {
		s.logger.Debug().Int("version", secret.Version).Int("remaining", len(s.pool)).Msg("evicted secret")
	}
}

// ForceRefresh fetches the registry unconditionally and replaces the pool.
func (s *SecretStore) ForceRefresh(ctx context.Context) ([]Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	s.pool = pool
	s.fetchedAt = s.now()
	return slices.Clone(pool), nil
}

// parseRegistry decodes and validates a registry payload.
func parseRegistry(body []byte) ([]Secret, error) {
	var entries []registryEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &SchemaError{Source: "secret registry", Err: err}
	}
	if len(entries) == 0 {
		return nil, &SchemaError{Source: "secret registry", Err: errors.New("no secrets")}
	}

	pool := make([]Secret, 0, len(entries))
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, &SchemaError{Source: "secret registry", Err: fmt.Errorf("entry %d: %w", i, err)}
		}
		key := make([]byte, len(e.Secret))
		for j, b := range e.Secret {
			key[j] = byte(b)
		}
		pool = append(pool, Secret{Version: e.Version, Key: key})
	}
	return pool, nil
}
