package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// totpVersion is the protocol revision sent as totpVer.
const totpVersion = "5"

// pageLoadTimeout caps the single attempt made to fetch the web player page.
const pageLoadTimeout = 10 * time.Second

// Minter obtains new bearer tokens. The strategies it tries depend on the
// credential mode it was built with.
type Minter struct {
	mode       CredentialMode
	endpoints  Endpoints
	transport  *transport
	secrets    SecretSource
	oauth      *clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time
	logger     zerolog.Logger
}

// strategy is one way of obtaining a token. Strategies are tried in order
// until one succeeds.
type strategy struct {
	name string
	mint func(ctx context.Context, run *mintRun) (Token, error)
}

// mintRun holds state shared by the strategies of a single Mint call.
type mintRun struct {
	page       *playerPage
	pageErr    error
	pageLoaded bool
}

// webTokenResponse is the web player token endpoint's payload.
type webTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresMs   int64  `json:"accessTokenExpirationTimestampMs"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// serverTimeResponse is the server-time endpoint's payload.
type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

// Mint obtains a new token. It returns an *AuthError when every strategy
// failed, or the context error if ctx ended first.
func (m *Minter) Mint(ctx context.Context) (Token, error) {
	run := &mintRun{}
	var causes []error

	for _, s := range m.strategies() {
		tok, err := s.mint(ctx, run)
		if err == nil {
			m.logger.Debug().
				Str("strategy", s.name).
				Time("expires_at", tok.ExpiresAt).
				Msg("minted token")
			return tok, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Token{}, ctxErr
		}
		m.logger.Debug().Err(err).Str("strategy", s.name).Msg("token strategy failed")
		causes = append(causes, fmt.Errorf("%s: %w", s.name, err))
	}

	return Token{}, &AuthError{Mode: m.mode, Causes: causes}
}

func (m *Minter) strategies() []strategy {
	if m.mode == ModeClientCredentials {
		return []strategy{
			{name: "client-credentials", mint: m.mintClientCredentials},
		}
	}
	return []strategy{
		{name: "totp", mint: m.mintTOTP},
		{name: "page-scrape", mint: m.mintFromPage},
	}
}

// mintClientCredentials performs an OAuth2 client-credentials grant with
// the client id and secret sent as Basic auth.
func (m *Minter) mintClientCredentials(ctx context.Context, _ *mintRun) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := m.oauth.Token(ctx)
	if err != nil {
		return Token{}, err
	}
	if tok.AccessToken == "" || tok.Expiry.IsZero() {
		return Token{}, &SchemaError{Source: "client credentials token", Err: errors.New("missing access_token or expires_in")}
	}

	return Token{
		Value:     tok.AccessToken,
		Kind:      KindClientCredentials,
		ExpiresAt: tok.Expiry,
	}, nil
}

// mintTOTP exchanges TOTP codes for an anonymous token, rotating through the
// secret pool. A rejected secret is evicted and the next one tried. When the
// pool runs dry it is refreshed once; running dry again ends the strategy.
func (m *Minter) mintTOTP(ctx context.Context, run *mintRun) (Token, error) {
	pool, err := m.secrets.Secrets(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("load secrets: %w", err)
	}

	serverTime, err := m.serverTime(ctx)
	if err != nil {
		return Token{}, fmt.Errorf("server time: %w", err)
	}

	page, _ := m.loadPage(ctx, run)

	refreshed := false
	var lastErr error
	for {
		if len(pool) == 0 {
			if refreshed {
				break
			}
			refreshed = true
			m.logger.Debug().Msg("secret pool exhausted, forcing refresh")
			pool, err = m.secrets.ForceRefresh(ctx)
			if err != nil {
				lastErr = fmt.Errorf("refresh secrets: %w", err)
				break
			}
			continue
		}

		secret := pool[0]
		tok, err := m.exchange(ctx, secret, serverTime, page)
		if err == nil {
			return tok, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Token{}, ctxErr
		}

		lastErr = err
		m.logger.Debug().Err(err).Int("version", secret.Version).Msg("secret rejected")
		m.secrets.Evict(secret)
		pool = pool[1:]
	}

	if lastErr == nil {
		lastErr = errors.New("no secrets available")
	}
	return Token{}, fmt.Errorf("secret pool exhausted: %w", lastErr)
}

// exchange trades one secret's TOTP codes for a token.
func (m *Minter) exchange(ctx context.Context, secret Secret, serverTime time.Time, page *playerPage) (Token, error) {
	key := deriveKey(secret)
	clientTime := m.now()

	clientCode, err := totp(key, clientTime)
	if err != nil {
		return Token{}, err
	}
	serverCode, err := totp(key, serverTime)
	if err != nil {
		return Token{}, err
	}

	q := url.Values{}
	q.Set("reason", "init")
	q.Set("productType", "web-player")
	q.Set("totp", clientCode)
	q.Set("totpServer", serverCode)
	q.Set("totpVer", totpVersion)
	q.Set("sTime", strconv.FormatInt(serverTime.Unix(), 10))
	q.Set("cTime", strconv.FormatInt(clientTime.UnixMilli(), 10))
	if page != nil && page.BuildVersion != "" {
		q.Set("buildVer", page.BuildVersion)
		if page.BuildDate != "" {
			q.Set("buildDate", page.BuildDate)
		}
	} else {
		q.Set("buildVer", strconv.Itoa(secret.Version))
	}

	body, err := m.transport.get(ctx, m.endpoints.WebToken+"?"+q.Encode(), webHeaders())
	if err != nil {
		return Token{}, err
	}

	var resp webTokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Token{}, &SchemaError{Source: "web token response", Err: err}
	}
	if resp.AccessToken == "" || resp.ExpiresMs <= 0 {
		return Token{}, &SchemaError{Source: "web token response", Err: errors.New("missing accessToken or expiration")}
	}

	return Token{
		Value:     resp.AccessToken,
		Kind:      KindAnonymousWeb,
		ExpiresAt: time.UnixMilli(resp.ExpiresMs),
	}, nil
}

// serverTime asks upstream for its clock.
func (m *Minter) serverTime(ctx context.Context) (time.Time, error) {
	body, err := m.transport.get(ctx, m.endpoints.ServerTime, webHeaders())
	if err != nil {
		return time.Time{}, err
	}

	var resp serverTimeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return time.Time{}, &SchemaError{Source: "server time", Err: err}
	}
	if resp.ServerTime <= 0 {
		return time.Time{}, &SchemaError{Source: "server time", Err: errors.New("missing serverTime")}
	}
	return time.Unix(resp.ServerTime, 0), nil
}

// mintFromPage reads the token the web player inlines into its HTML.
func (m *Minter) mintFromPage(ctx context.Context, run *mintRun) (Token, error) {
	page, err := m.loadPage(ctx, run)
	if err != nil {
		return Token{}, err
	}
	if page.AccessToken == "" {
		return Token{}, &SchemaError{Source: "web player page", Err: errors.New("no inline access token")}
	}

	return Token{
		Value:     page.AccessToken,
		Kind:      KindAnonymousWeb,
		ExpiresAt: page.ExpiresAt,
	}, nil
}

// loadPage fetches and parses the web player page at most once per run. The
// fetch is not retried and is bounded by pageLoadTimeout, since the TOTP
// exchange can proceed without the page.
func (m *Minter) loadPage(ctx context.Context, run *mintRun) (*playerPage, error) {
	if run.pageLoaded {
		return run.page, run.pageErr
	}
	run.pageLoaded = true

	h := webHeaders()
	h.Set("Accept", "text/html")

	once := *m.transport
	once.maxRetries = 1
	if once.timeout <= 0 || once.timeout > pageLoadTimeout {
		once.timeout = pageLoadTimeout
	}

	body, err := once.get(ctx, m.endpoints.WebPlayer, h)
	if err != nil {
		run.pageErr = fmt.Errorf("fetch web player: %w", err)
		return nil, run.pageErr
	}

	run.page, run.pageErr = parsePlayerPage(body)
	return run.page, run.pageErr
}
