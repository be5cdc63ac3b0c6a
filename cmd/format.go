package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jfmyers9/spotlite/internal/config"
	"github.com/jfmyers9/spotlite/pkg/webapi"
	"github.com/mattn/go-runewidth"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// jsonRequested reports whether output should be JSON.
func jsonRequested() bool {
	return app.cfg != nil && app.cfg.Output == config.OutputJSON
}

// columnWidth returns the configured title column width.
func columnWidth() int {
	if app.cfg == nil || app.cfg.Width <= 0 {
		return 40
	}
	return app.cfg.Width
}

// writeHits prints one line per hit: number, title, artist, duration.
func writeHits(w io.Writer, hits []webapi.SearchHit, width int) {
	for i, h := range hits {
		fmt.Fprintf(w, "%3d  %s  %s  %s\n",
			i+1,
			padToWidth(h.Title, width),
			padToWidth(h.Artist, width*3/4),
			formatDuration(h.Duration),
		)
	}
}

// writeTracks prints one line per track: number, title, artists, duration.
func writeTracks(w io.Writer, tracks []webapi.Track, width int) {
	for i, t := range tracks {
		fmt.Fprintf(w, "%3d  %s  %s  %s\n",
			i+1,
			padToWidth(t.Name, width),
			padToWidth(strings.Join(t.Artists, ", "), width*3/4),
			formatDuration(t.Duration),
		)
	}
}

// formatDuration renders a duration as m:ss, or h:mm:ss past an hour.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	currentWidth := runewidth.StringWidth(text)
	if currentWidth <= width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	const ellipsis = "..."
	ellipsisWidth := runewidth.StringWidth(ellipsis)
	if width <= ellipsisWidth {
		return runewidth.Truncate(ellipsis, width, "")
	}

	// Wide runes may leave the truncated text one column short
	result := runewidth.Truncate(text, width-ellipsisWidth, "") + ellipsis
	return runewidth.FillRight(result, width)
}
