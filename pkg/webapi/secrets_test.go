package webapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseRegistry(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []Secret
		wantErr bool
	}{
		{
			name: "keeps registry order",
			body: `[{"version":3,"secret":[1,2]},{"version":1,"secret":[255,0]}]`,
			want: []Secret{{Version: 3, Key: []byte{1, 2}}, {Version: 1, Key: []byte{255, 0}}},
		},
		{
			name: "ignores unknown fields",
			body: `[{"version":5,"secret":[7],"note":"x"}]`,
			want: []Secret{{Version: 5, Key: []byte{7}}},
		},
		{name: "not json", body: `<html>`, wantErr: true},
		{name: "object instead of array", body: `{"version":1}`, wantErr: true},
		{name: "empty array", body: `[]`, wantErr: true},
		{name: "zero version", body: `[{"version":0,"secret":[1]}]`, wantErr: true},
		{name: "missing secret", body: `[{"version":1}]`, wantErr: true},
		{name: "empty secret", body: `[{"version":1,"secret":[]}]`, wantErr: true},
		{name: "byte out of range", body: `[{"version":1,"secret":[256]}]`, wantErr: true},
		{name: "negative byte", body: `[{"version":1,"secret":[-1]}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRegistry([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrSchema) {
					t.Fatalf("parseRegistry() error = %v, want ErrSchema", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRegistry() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d secrets, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !got[i].equal(tt.want[i]) {
					t.Errorf("secret %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// registryServer serves body with status, counting requests.
type registryServer struct {
	srv    *httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func newRegistryServer(t *testing.T, body string) *registryServer {
	t.Helper()
	rs := &registryServer{}
	rs.status.Store(http.StatusOK)
	rs.body.Store(body)
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.hits.Add(1)
		w.WriteHeader(int(rs.status.Load()))
		_, _ = w.Write([]byte(rs.body.Load().(string)))
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *registryServer) store(clock *fakeClock) *SecretStore {
	tr := testTransport()
	tr.maxRetries = 1
	return newSecretStore(rs.srv.URL, tr, time.Minute, clock.Now, zerolog.Nop())
}

func TestSecretStore_CachesForTTL(t *testing.T) {
	rs := newRegistryServer(t, registryJSON(secretV1, secretV2))
	clock := newFakeClock()
	store := rs.store(clock)
	ctx := context.Background()

	for range 3 {
		pool, err := store.Secrets(ctx)
		if err != nil {
			t.Fatalf("Secrets() error = %v", err)
		}
		if len(pool) != 2 {
			t.Fatalf("pool size = %d, want 2", len(pool))
		}
	}
	if n := rs.hits.Load(); n != 1 {
		t.Errorf("expected 1 registry fetch, got %d", n)
	}

	clock.Advance(time.Minute)
	if _, err := store.Secrets(ctx); err != nil {
		t.Fatalf("Secrets() error = %v", err)
	}
	if n := rs.hits.Load(); n != 2 {
		t.Errorf("expected a refetch after the TTL, got %d fetches", n)
	}
}

func TestSecretStore_StaleFallback(t *testing.T) {
	rs := newRegistryServer(t, registryJSON(secretV1))
	clock := newFakeClock()
	store := rs.store(clock)
	ctx := context.Background()

	if _, err := store.Secrets(ctx); err != nil {
		t.Fatalf("Secrets() error = %v", err)
	}

	rs.status.Store(http.StatusInternalServerError)
	clock.Advance(2 * time.Minute)

	pool, err := store.Secrets(ctx)
	if err != nil {
		t.Fatalf("Secrets() error = %v, want stale pool", err)
	}
	if len(pool) != 1 || !pool[0].equal(secretV1) {
		t.Errorf("pool = %+v, want the stale pool", pool)
	}
}

func TestSecretStore_FirstFetchFailure(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusBadGateway, "", ErrNetwork},
		{"not found", http.StatusNotFound, "", ErrNetwork},
		{"malformed", http.StatusOK, `{"nope":true}`, ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newRegistryServer(t, tt.body)
			rs.status.Store(int32(tt.status))

			_, err := rs.store(newFakeClock()).Secrets(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Secrets() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecretStore_Evict(t *testing.T) {
	rs := newRegistryServer(t, registryJSON(secretV1, secretV2, secretV3))
	store := rs.store(newFakeClock())
	ctx := context.Background()

	if _, err := store.Secrets(ctx); err != nil {
		t.Fatalf("Secrets() error = %v", err)
	}

	store.Evict(secretV2)
	store.Evict(Secret{Version: 9, Key: []byte{1}}) // unknown, ignored

	pool, _ := store.Secrets(ctx)
	if len(pool) != 2 || !pool[0].equal(secretV1) || !pool[1].equal(secretV3) {
		t.Errorf("pool after evict = %+v, want [v1 v3]", pool)
	}
	if n := rs.hits.Load(); n != 1 {
		t.Errorf("Evict triggered a fetch: %d fetches", n)
	}
}

func TestSecretStore_ForceRefresh(t *testing.T) {
	rs := newRegistryServer(t, registryJSON(secretV1))
	store := rs.store(newFakeClock())
	ctx := context.Background()

	if _, err := store.Secrets(ctx); err != nil {
		t.Fatalf("Secrets() error = %v", err)
	}
	store.Evict(secretV1)

	rs.body.Store(registryJSON(secretV2, secretV3))
	pool, err := store.ForceRefresh(ctx)
	if err != nil {
		t.Fatalf("ForceRefresh() error = %v", err)
	}
	if len(pool) != 2 || !pool[0].equal(secretV2) {
		t.Errorf("ForceRefresh() = %+v, want [v2 v3]", pool)
	}
	if n := rs.hits.Load(); n != 2 {
		t.Errorf("expected 2 fetches, got %d", n)
	}
}

func TestSecretStore_ReturnsCopies(t *testing.T) {
	rs := newRegistryServer(t, registryJSON(secretV1, secretV2))
	store := rs.store(newFakeClock())

	pool, _ := store.Secrets(context.Background())
	pool[0] = secretV3

	again, _ := store.Secrets(context.Background())
	if !again[0].equal(secretV1) {
		t.Error("mutating a returned pool changed the store")
	}
}
