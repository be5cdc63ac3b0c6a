// Package webapi provides a client for the Spotify web player's catalog API.
//
// # Overview
//
// The catalog endpoints require a bearer token. This package obtains one in
// one of two credential modes, fixed when the client is created:
//
//   - ModeClientCredentials: a standard OAuth2 client-credentials grant,
//     used when Config.ClientID and Config.ClientSecret are both set.
//   - ModeAnonymous: the token the web player mints for logged-out
//     visitors. This requires a time-based one-time code derived from a
//     rotating pool of secrets published by a third-party registry.
//
// Tokens are cached per client and re-minted on expiry. Concurrent callers
// that observe an expired token share a single mint.
//
// # Quick Start
//
//	client, err := webapi.NewClient(webapi.Config{Market: "US"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	hits, err := client.Search(ctx, "daft punk")
//	if err != nil {
//	    // Only token exhaustion and context errors are returned.
//	    log.Fatal(err)
//	}
//
// # Anonymous Token Flow
//
// For each mint attempt the client walks an ordered list of strategies:
//
//  1. TOTP exchange. The first secret in the pool is turned into a signing
//     key, two one-time codes are generated (from server time and from local
//     time) and exchanged for a token. A secret that fails is evicted and
//     the next one is tried. When the pool runs dry it is refreshed from the
//     registry once; a second exhaustion ends this strategy.
//  2. Page scrape. The web player's HTML is fetched and an inline token is
//     extracted.
//
// If every strategy fails the call returns an *AuthError.
//
// # Error Handling
//
// Single-item lookups (GetTrack, GetAlbum, GetPlaylist) return a nil record
// when the item is missing or the request failed; the two cases are not
// distinguished. Only token failures and context cancellation surface as
// errors:
//
//	track, err := client.GetTrack(ctx, id)
//	if errors.Is(err, webapi.ErrAuth) {
//	    // No token could be obtained.
//	}
//	if track == nil {
//	    // Not found or unavailable.
//	}
//
// Recommendations are only available in anonymous mode; in client-credentials
// mode GetRecommendations returns ErrUnsupported without making a request.
package webapi
