package speech

import (
	"regexp"
	"strings"
	"unicode"
)

var speechStripPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```.*?```"), " "},
	{regexp.MustCompile("`[^`]*`"), " "},
	{regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), "$1"},
	{regexp.MustCompile(`https?://\S+`), " "},
}

var speechSymbolReplacer = strings.NewReplacer(
	"*", " ",
	"_", " ",
	"\\", " ",
	"/", " ",
	"|", " ",
	"#", " ",
	"~", " ",
	"<", " ",
	">", " ",
)

// speakableText strips markdown, links and symbol noise from a chunk so the
// synthesizer reads it conversationally. The chunk itself is left untouched.
func speakableText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, p := range speechStripPatterns {
		raw = p.re.ReplaceAllString(raw, p.repl)
	}
	raw = speechSymbolReplacer.Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	pendingSpace := false
	hasWord := false
	for _, r := range raw {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\u20e3':
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r):
		case unicode.In(r, unicode.So, unicode.Sm, unicode.Sk):
			// emoji and math glyphs read badly
		case unicode.IsPunct(r) && !speakablePunct(r):
			pendingSpace = b.Len() > 0
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				hasWord = true
			}
		}
	}
	if !hasWord {
		return ""
	}
	return b.String()
}

func speakablePunct(r rune) bool {
	return strings.ContainsRune(".,!?:;'\"-()", r)
}
