package detect_test

import (
	"strings"
	"testing"

	"tangled.org/tokentrim.app/tokentrim/internal/detect"
	"tangled.org/tokentrim.app/tokentrim/internal/types"
)

func TestLanguage(t *testing.T) {
	tests := []struct {
		filename string
		content  string
		want     string
	}{
		{"main.go", "package main\n", "Go"},
		{"src/app.py", "print(1)\n", "Python"},
		{"README.md", "# hi\n", "markdown"},
		{"payload.zzq", "\x00\xff\xfe", types.UNKNOWN_LANGUAGE},
		{"empty.unknownext", "", types.UNKNOWN_LANGUAGE},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := detect.Language(tt.filename, []byte(tt.content))
			if !strings.EqualFold(got, tt.want) {
				t.Errorf("Language(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}

	t.Run("NeverDetectingPlaceholder", func(t *testing.T) {
		if got := detect.Language("x", []byte("hello")); got == types.DETECTING_LANGUAGE || got == "" {
			t.Errorf("Language returned %q", got)
		}
	})
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    int
	}{
		{"Empty", nil, 0},
		{"Short", []byte("print(1)"), 2},
		{"RoundsUp", []byte("# hi"), 1},
		{"FiveChars", []byte("hello"), 2},
		{"Unicode", []byte("日本語です"), 2},
		{"Binary", []byte{0xff, 0xfe, 0xfd}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect.EstimateTokens(tt.content); got != tt.want {
				t.Errorf("EstimateTokens = %d, want %d", got, tt.want)
			}
		})
	}
}
