// Package detect supplies the per-file metadata the encoder records:
// a language label and a token estimate.
package detect

import (
	"path/filepath"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"tangled.org/tokentrim.app/tokentrim/internal/types"
)

// analyseLimit caps how much content is handed to lexer analysers
const analyseLimit = 16 << 10

// Language returns a human-readable language name for a file, preferring the
// filename and falling back to content analysis. Binary content and files no
// lexer claims are types.UNKNOWN_LANGUAGE.
func Language(filename string, content []byte) string {
	if lexer := lexers.Match(filepath.Base(filename)); lexer != nil {
		return lexerName(lexer)
	}

	if len(content) == 0 || !utf8.Valid(content) {
		return types.UNKNOWN_LANGUAGE
	}

	sample := content
	if len(sample) > analyseLimit {
		sample = sample[:analyseLimit]
	}
	if lexer := lexers.Analyse(string(sample)); lexer != nil {
		return lexerName(lexer)
	}
	return types.UNKNOWN_LANGUAGE
}

func lexerName(lexer chroma.Lexer) string {
	if cfg := lexer.Config(); cfg != nil && cfg.Name != "" {
		return cfg.Name
	}
	return types.UNKNOWN_LANGUAGE
}

// EstimateTokens approximates the token count of content at four characters
// per token, rounding up. Binary content is estimated from its byte length.
func EstimateTokens(content []byte) int {
	n := len(content)
	if utf8.Valid(content) {
		n = utf8.RuneCount(content)
	}
	return (n + 3) / 4
}
