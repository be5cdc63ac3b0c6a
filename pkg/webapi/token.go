package webapi

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TokenKind identifies how a token was obtained.
type TokenKind string

const (
	KindAnonymousWeb      TokenKind = "anonymous-web"
	KindClientCredentials TokenKind = "client-credentials"
)

// Token is a bearer token with a fixed wall-clock expiry.
type Token struct {
	Value     string
	Kind      TokenKind
	ExpiresAt time.Time
}

// expired reports whether the token is past its expiry at now. A token is
// still valid at exactly ExpiresAt.
func (t Token) expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// tokenMinter is satisfied by *Minter.
type tokenMinter interface {
	Mint(ctx context.Context) (Token, error)
}

// TokenCache holds the current token of one client.
//
// Concurrent callers that find the token expired share a single mint.
type TokenCache struct {
	minter      tokenMinter
	now         func() time.Time
	mintTimeout time.Duration

	mu    sync.RWMutex
	token *Token

	group singleflight.Group
}

func newTokenCache(m tokenMinter, now func() time.Time, mintTimeout time.Duration) *TokenCache {
	return &TokenCache{
		minter:      m,
		now:         now,
		mintTimeout: mintTimeout,
	}
}

// IsExpired returns true if no token has been minted yet or the current
// token's expiry has passed.
func (c *TokenCache) IsExpired() bool {
	_, ok := c.valid()
	return !ok
}

// Current returns the held token, if any, regardless of expiry.
func (c *TokenCache) Current() (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == nil {
		return Token{}, false
	}
	return *c.token, true
}

// EnsureValid returns a valid token, minting one if the held token is
// missing or expired.
//
// The mint runs detached from ctx so that one caller giving up does not
// fail the others waiting on it; ctx only bounds how long this caller waits.
func (c *TokenCache) EnsureValid(ctx context.Context) (Token, error) {
	if tok, ok := c.valid(); ok {
		return tok, nil
	}

	ch := c.group.DoChan("mint", func() (interface{}, error) {
		if tok, ok := c.valid(); ok {
			return tok, nil
		}

		mintCtx := context.WithoutCancel(ctx)
		if c.mintTimeout > 0 {
			var cancel context.CancelFunc
			mintCtx, cancel = context.WithTimeout(mintCtx, c.mintTimeout)
			defer cancel()
		}

		tok, err := c.minter.Mint(mintCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.token = &tok
		c.mu.Unlock()
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Token{}, res.Err
		}
		return res.Val.(Token), nil
	}
}

// Invalidate drops tok if it is still the held token, forcing the next
// EnsureValid to mint. Used when upstream rejects a token before its expiry.
func (c *TokenCache) Invalidate(tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.Value == tok.Value {
		c.token = nil
	}
}

func (c *TokenCache) valid() (Token, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.token == nil || c.token.expired(c.now()) {
		return Token{}, false
	}
	return *c.token, true
}
