package webapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// testEndpoints points every endpoint at base using the layout served by
// newUpstream.
func testEndpoints(base string) Endpoints {
	return Endpoints{
		API:         base + "/v1",
		AccountsURL: base + "/accounts/token",
		WebPlayer:   base + "/player",
		WebToken:    base + "/api/token",
		ServerTime:  base + "/api/server-time",
		Secrets:     base + "/secrets.json",
	}
}

func testTransport() *transport {
	return &transport{
		httpClient: http.DefaultClient,
		maxRetries: 2,
		backoff:    time.Millisecond,
		timeout:    5 * time.Second,
		logger:     zerolog.Nop(),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to write response body: %v", err)
	}
}

// registryJSON renders secrets in the registry's wire format.
func registryJSON(secrets ...Secret) string {
	entries := make([]string, len(secrets))
	for i, s := range secrets {
		ints := make([]string, len(s.Key))
		for j, b := range s.Key {
			ints[j] = strconv.Itoa(int(b))
		}
		entries[i] = fmt.Sprintf(`{"version":%d,"secret":[%s]}`, s.Version, strings.Join(ints, ","))
	}
	return "[" + strings.Join(entries, ",") + "]"
}

// validTOTP reports whether r carries the codes secret produces for the
// times it claims.
func validTOTP(r *http.Request, secret Secret) bool {
	q := r.URL.Query()
	cMs, err := strconv.ParseInt(q.Get("cTime"), 10, 64)
	if err != nil {
		return false
	}
	sSec, err := strconv.ParseInt(q.Get("sTime"), 10, 64)
	if err != nil {
		return false
	}

	key := deriveKey(secret)
	client, _ := totp(key, time.UnixMilli(cMs))
	server, _ := totp(key, time.Unix(sSec, 0))
	return q.Get("totp") == client && q.Get("totpServer") == server && q.Get("totpVer") == totpVersion
}

var (
	secretV1 = Secret{Version: 1, Key: []byte{10, 20, 30, 40}}
	secretV2 = Secret{Version: 2, Key: []byte{50, 60, 70, 80}}
	secretV3 = Secret{Version: 3, Key: []byte{12, 56, 76, 99, 1}}
)

// upstream is a fake of every service an anonymous client talks to. The
// token endpoint accepts any correctly signed secret and numbers the tokens
// it issues. Setting rejectMints makes it refuse every exchange.
type upstream struct {
	srv         *httptest.Server
	mints       atomic.Int32
	apiHits     atomic.Int32
	rejectMints atomic.Bool
	tokenTTL    time.Duration
}

// newUpstream serves the anonymous token flow and mounts api under /v1.
func newUpstream(t *testing.T, api http.Handler) *upstream {
	t.Helper()

	u := &upstream{tokenTTL: time.Hour}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /secrets.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(registryJSON(secretV3)))
	})
	mux.HandleFunc("GET /api/server-time", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]int64{"serverTime": time.Now().Unix()})
	})
	mux.HandleFunc("GET /api/token", func(w http.ResponseWriter, r *http.Request) {
		if u.rejectMints.Load() || !validTOTP(r, secretV3) {
			http.Error(w, "bad totp", http.StatusForbidden)
			return
		}
		n := u.mints.Add(1)
		writeJSON(t, w, webTokenResponse{
			AccessToken: fmt.Sprintf("anon-token-%d", n),
			ExpiresMs:   time.Now().Add(u.tokenTTL).UnixMilli(),
			IsAnonymous: true,
		})
	})
	mux.Handle("/v1/", http.StripPrefix("/v1", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.apiHits.Add(1)
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("API request without bearer token: %s", r.URL)
		}
		api.ServeHTTP(w, r)
	})))

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) config() Config {
	return Config{
		Endpoints:    testEndpoints(u.srv.URL),
		RetryBackoff: time.Millisecond,
		MaxRetries:   2,
	}
}

func (u *upstream) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(u.config())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

// fixture builders

func testTrack(id string) rawTrack {
	return rawTrack{
		ID:          id,
		Name:        "Track " + id,
		Artists:     []rawArtist{{ID: "a-" + id, Name: "Artist " + id}},
		Album:       &rawAlbumRef{ID: "al", Name: "Album", Images: []rawImage{{URL: "https://i.example/" + id + ".jpg"}}},
		DurationMs:  180000,
		TrackNumber: 1,
		URI:         "spotify:track:" + id,
	}
}

func playlistItems(from, to int) []rawPlaylistItem {
	items := make([]rawPlaylistItem, 0, to-from)
	for i := from; i < to; i++ {
		tr := testTrack(fmt.Sprintf("t%03d", i))
		items = append(items, rawPlaylistItem{Track: &tr})
	}
	return items
}

// pageURL builds a next cursor on the server handling r.
func pageURL(r *http.Request, path string, offset int) string {
	return fmt.Sprintf("http://%s/v1%s?offset=%d&limit=100", r.Host, path, offset)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
