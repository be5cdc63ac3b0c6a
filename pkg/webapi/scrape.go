package webapi

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

var (
	inlineTokenPattern  = regexp.MustCompile(`"accessToken"\s*:\s*"([^"]+)"`)
	inlineExpiryPattern = regexp.MustCompile(`"accessTokenExpirationTimestampMs"\s*:\s*(\d+)`)
)

// playerPage is what can be recovered from the web player's HTML.
// Any field may be empty.
type playerPage struct {
	AccessToken  string
	ExpiresAt    time.Time
	BuildVersion string
	BuildDate    string
}

// parsePlayerPage extracts build information and an inline session token
// from the web player's root document.
func parsePlayerPage(body []byte) (*playerPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &SchemaError{Source: "web player page", Err: err}
	}

	page := &playerPage{}

	// appServerConfig is base64-encoded JSON.
	if cfg := strings.TrimSpace(doc.Find("script#appServerConfig").First().Text()); cfg != "" {
		if raw, err := base64.StdEncoding.DecodeString(cfg); err == nil && gjson.ValidBytes(raw) {
			page.BuildVersion = gjson.GetBytes(raw, "clientVersion").String()
			page.BuildDate = gjson.GetBytes(raw, "buildDate").String()
		}
	}

	if session := strings.TrimSpace(doc.Find("script#session").First().Text()); gjson.Valid(session) {
		token := gjson.Get(session, "accessToken").String()
		expiresMs := gjson.Get(session, "accessTokenExpirationTimestampMs").Int()
		if token != "" && expiresMs > 0 {
			page.AccessToken = token
			page.ExpiresAt = time.UnixMilli(expiresMs)
			return page, nil
		}
	}

	// Older and newer layouts inline the session in arbitrary script blobs.
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		tm := inlineTokenPattern.FindStringSubmatch(text)
		em := inlineExpiryPattern.FindStringSubmatch(text)
		if tm == nil || em == nil {
			return true
		}
		ms, err := strconv.ParseInt(em[1], 10, 64)
		if err != nil {
			return true
		}
		page.AccessToken = tm[1]
		page.ExpiresAt = time.UnixMilli(ms)
		return false
	})

	return page, nil
}
