package cmd

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Spotify IDs are base62.
var idPattern = regexp.MustCompile(`^[0-9A-Za-z]+$`)

// parseID accepts a bare ID, a spotify:<kind>:<id> URI or an
// open.spotify.com link and returns the ID.
func parseID(kind, arg string) (string, error) {
	arg = strings.TrimSpace(arg)

	switch {
	case strings.HasPrefix(arg, "spotify:"):
		parts := strings.Split(arg, ":")
		if len(parts) != 3 || parts[1] != kind {
			return "", fmt.Errorf("not a %s URI: %s", kind, arg)
		}
		arg = parts[2]

	case strings.Contains(arg, "://"):
		u, err := url.Parse(arg)
		if err != nil {
			return "", fmt.Errorf("invalid link: %w", err)
		}
		// Links may carry a locale prefix: /intl-de/track/<id>
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		found := false
		for i := 0; i+1 < len(segs); i++ {
			if segs[i] == kind {
				arg, found = segs[i+1], true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("not a %s link: %s", kind, arg)
		}
	}

	if !idPattern.MatchString(arg) {
		return "", fmt.Errorf("invalid %s id: %q", kind, arg)
	}
	return arg, nil
}
