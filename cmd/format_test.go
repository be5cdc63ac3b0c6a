package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jfmyers9/spotlite/pkg/webapi"
	"github.com/mattn/go-runewidth"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    6,
			expected: "Hi    ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "Bohemian Rhapsody - Remastered 2011",
			width:    20,
			expected: "Bohemian Rhapsody...",
		},
		{
			name:     "pad wide characters",
			input:    "東京",
			width:    8,
			expected: "東京    ",
		},
		{
			name:     "truncate wide characters",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ", // 6 columns of text, 3 of ellipsis, 1 pad
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
		{
			name:     "width below ellipsis",
			input:    "Hello",
			width:    2,
			expected: "..",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			if tt.width > 0 {
				if w := runewidth.StringWidth(result); w != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d", tt.input, tt.width, w)
				}
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{-time.Second, "0:00"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 5*time.Second, "3:05"},
		{3*time.Minute + 4500*time.Millisecond, "3:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteHits(t *testing.T) {
	var buf bytes.Buffer
	writeHits(&buf, []webapi.SearchHit{
		{Title: "Yesterday", Artist: "The Beatles", Duration: 125 * time.Second},
		{Title: "Let It Be", Artist: "The Beatles", Duration: 243 * time.Second},
	}, 16)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2:\n%s", len(lines), buf.String())
	}
	if lines[0] != "  1  Yesterday         The Beatles   2:05" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if runewidth.StringWidth(lines[0]) != runewidth.StringWidth(lines[1]) {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}

func TestRedactToken(t *testing.T) {
	if got := redactToken("short"); got != "****" {
		t.Errorf("redactToken(short) = %q", got)
	}
	if got := redactToken("BQDabcdefghijklmnopXYZ1"); got != "BQDa...XYZ1" {
		t.Errorf("redactToken(long) = %q", got)
	}
}
