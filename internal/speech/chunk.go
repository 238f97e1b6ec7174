package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChunkChars bounds the text handed to one synthesis call.
const DefaultMaxChunkChars = 250

// SplitChunks splits text on sentence boundaries and packs consecutive
// sentences into chunks of at most maxChars characters. A sentence longer
// than maxChars becomes its own chunk unsplit.
func SplitChunks(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	var (
		chunks []string
		cur    string
	)
	for _, s := range splitSentences(text) {
		if cur == "" {
			cur = s
			continue
		}
		if utf8.RuneCountInString(cur)+1+utf8.RuneCountInString(s) <= maxChars {
			cur += " " + s
			continue
		}
		chunks = append(chunks, cur)
		cur = s
	}
	if cur != "" {
		chunks = append(chunks, cur)
	}
	return chunks
}

// splitSentences cuts after '.', '!' or '?' when followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	emit := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}
		j := i + 1
		for j < len(text) {
			r, size := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(r) {
				break
			}
			j += size
		}
		if j == i+1 {
			continue
		}
		emit(text[start : i+1])
		start = j
		i = j - 1
	}
	emit(text[start:])
	return out
}
