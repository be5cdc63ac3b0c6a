package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Default endpoints.
const (
	DefaultAPIURL        = "https://api.spotify.com/v1"
	DefaultAccountsURL   = "https://accounts.spotify.com/api/token"
	DefaultWebPlayerURL  = "https://open.spotify.com/"
	DefaultWebTokenURL   = "https://open.spotify.com/api/token"
	DefaultServerTimeURL = "https://open.spotify.com/api/server-time"
	DefaultSecretsURL    = "https://raw.githubusercontent.com/Thereallo1026/spotify-secrets/refs/heads/main/secrets/secrets.json"
)

// Defaults for optional configuration.
const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultMintTimeout    = 45 * time.Second
	DefaultRetryBackoff   = 500 * time.Millisecond
	DefaultMaxRetries     = 3
	DefaultSearchLimit    = 20
)

// CredentialMode selects how tokens are obtained. It is fixed when the
// client is created.
type CredentialMode int

const (
	// ModeAnonymous mints web player tokens without application credentials.
	ModeAnonymous CredentialMode = iota
	// ModeClientCredentials uses an OAuth2 client-credentials grant.
	ModeClientCredentials
)

// String returns the mode name.
func (m CredentialMode) String() string {
	switch m {
	case ModeAnonymous:
		return "anonymous"
	case ModeClientCredentials:
		return "client-credentials"
	default:
		return fmt.Sprintf("CredentialMode(%d)", int(m))
	}
}

// Endpoints lists the upstream URLs the client talks to. Empty fields fall
// back to the defaults; tests point them at a local server.
type Endpoints struct {
	API         string // catalog API base, without trailing slash
	AccountsURL string // client-credentials token endpoint
	WebPlayer   string // web player root page
	WebToken    string // anonymous token endpoint
	ServerTime  string // server clock endpoint
	Secrets     string // secret registry
}

func (e Endpoints) withDefaults() Endpoints {
	if e.API == "" {
		e.API = DefaultAPIURL
	}
	e.API = strings.TrimRight(e.API, "/")
	if e.AccountsURL == "" {
		e.AccountsURL = DefaultAccountsURL
	}
	if e.WebPlayer == "" {
		e.WebPlayer = DefaultWebPlayerURL
	}
	if e.WebToken == "" {
		e.WebToken = DefaultWebTokenURL
	}
	if e.ServerTime == "" {
		e.ServerTime = DefaultServerTimeURL
	}
	if e.Secrets == "" {
		e.Secrets = DefaultSecretsURL
	}
	return e
}

// Config holds client configuration.
type Config struct {
	ClientID     string `validate:"required_with=ClientSecret"` // Optional: enables client-credentials mode
	ClientSecret string `validate:"required_with=ClientID"`     // Optional: enables client-credentials mode
	Market       string `validate:"omitempty,len=2,alpha"`      // Optional: ISO 3166-1 alpha-2 storefront

	HTTPClient *http.Client    `validate:"-"` // Optional: defaults to a client without a global timeout
	Endpoints  Endpoints       `validate:"-"` // Optional: upstream URLs
	Logger     *zerolog.Logger `validate:"-"` // Optional: defaults to a no-op logger

	RequestTimeout time.Duration `validate:"gte=0"` // Optional: per-attempt timeout
	MintTimeout    time.Duration `validate:"gte=0"` // Optional: bound on one token mint
	RetryBackoff   time.Duration `validate:"gte=0"` // Optional: initial retry delay
	MaxRetries     int           `validate:"gte=0"` // Optional: attempts per request
	SecretTTL      time.Duration `validate:"gte=0"` // Optional: secret pool lifetime
	SearchLimit    int           `validate:"gte=0,lte=50"`
}

// Client is the entry point for catalog operations.
type Client struct {
	mode        CredentialMode
	market      string
	searchLimit int
	endpoints   Endpoints
	transport   *transport
	secrets     *SecretStore
	tokens      *TokenCache
	logger      zerolog.Logger
}

// NewClient creates a new client.
//
// Supplying both ClientID and ClientSecret selects ModeClientCredentials;
// supplying neither selects ModeAnonymous. Supplying only one is an error.
func NewClient(cfg Config) (*Client, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	mode := ModeAnonymous
	if cfg.ClientID != "" {
		mode = ModeClientCredentials
	}

	t := &transport{
		httpClient: httpClient,
		maxRetries: orDefault(cfg.MaxRetries, DefaultMaxRetries),
		backoff:    orDefault(cfg.RetryBackoff, DefaultRetryBackoff),
		timeout:    orDefault(cfg.RequestTimeout, DefaultRequestTimeout),
		logger:     logger.With().Str("component", "transport").Logger(),
	}

	endpoints := cfg.Endpoints.withDefaults()
	now := time.Now

	c := &Client{
		mode:        mode,
		market:      strings.ToUpper(cfg.Market),
		searchLimit: orDefault(cfg.SearchLimit, DefaultSearchLimit),
		endpoints:   endpoints,
		transport:   t,
		logger:      logger.With().Str("component", "client").Logger(),
	}

	minter := &Minter{
		mode:       mode,
		endpoints:  endpoints,
		transport:  t,
		httpClient: httpClient,
		now:        now,
		logger:     logger.With().Str("component", "minter").Logger(),
	}
	if mode == ModeClientCredentials {
		minter.oauth = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     endpoints.AccountsURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
	} else {
		c.secrets = newSecretStore(endpoints.Secrets, t, cfg.SecretTTL, now, logger)
		minter.secrets = c.secrets
	}

	c.tokens = newTokenCache(minter, now, orDefault(cfg.MintTimeout, DefaultMintTimeout))
	return c, nil
}

// Mode returns the credential mode fixed at construction.
func (c *Client) Mode() CredentialMode {
	return c.mode
}

// SupportsRecommendations reports whether GetRecommendations can be used.
func (c *Client) SupportsRecommendations() bool {
	return c.mode == ModeAnonymous
}

// Token returns a valid token, minting one if necessary.
func (c *Client) Token(ctx context.Context) (Token, error) {
	return c.tokens.EnsureValid(ctx)
}

// getJSON performs an authenticated GET and decodes the response into v.
// A 401 drops the token and retries once with a fresh one.
func (c *Client) getJSON(ctx context.Context, rawURL, what string, v any) error {
	for attempt := 0; ; attempt++ {
		tok, err := c.tokens.EnsureValid(ctx)
		if err != nil {
			return err
		}

		h := webHeaders()
		h.Set("Authorization", "Bearer "+tok.Value)

		body, err := c.transport.get(ctx, rawURL, h)
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.Debug().Str("kind", string(tok.Kind)).Msg("token rejected, minting a new one")
			c.tokens.Invalidate(tok)
			continue
		}
		if err != nil {
			return fmt.Errorf("fetch %s: %w", what, err)
		}

		if err := json.Unmarshal(body, v); err != nil {
			return &SchemaError{Source: what, Err: err}
		}
		return nil
	}
}

// bestEffort turns network and schema failures into a nil result. Token and
// context errors are returned.
func (c *Client) bestEffort(err error, what, id string) error {
	if isBestEffort(err) {
		c.logger.Debug().Err(err).Str("id", id).Msgf("%s unavailable", what)
		return nil
	}
	return err
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
