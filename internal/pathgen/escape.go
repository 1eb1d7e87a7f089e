package pathgen

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/BebopxD/studip-client/internal/store"
)

// Characters that are illegal in a path segment on at least one supported
// filesystem. '/' additionally separates segments and must never survive
// escaping under any policy.
const unsafeChars = `/\:*?"<>|`

// unicodeLookalikes maps unsafe characters to visually similar runes that
// are legal in file names. Used by EscapeSimilar under the Unicode charset.
var unicodeLookalikes = map[rune]rune{
	'/':  '∕',
	'\\': '⧵',
	':':  '∶',
	'*':  '∗',
	'?':  '？',
	'"':  '″',
	'<':  '‹',
	'>':  '›',
	'|':  '┃',
}

// asciiLookalikes maps unsafe characters to similar plain-ASCII runes.
// Used by EscapeSimilar under the ASCII and Identifier charsets, where the
// Unicode lookalikes would not survive transliteration.
var asciiLookalikes = map[rune]rune{
	'/':  '-',
	'\\': '-',
	':':  ';',
	'*':  '+',
	'?':  '!',
	'"':  '\'',
	'<':  '(',
	'>':  ')',
	'|':  '-',
}

// asciiReplacements transliterates common non-ASCII letters that NFD
// decomposition alone does not reduce to ASCII.
var asciiReplacements = map[rune]string{
	'ß': "ss",
	'ẞ': "SS",
	'Æ': "AE",
	'æ': "ae",
	'Ø': "O",
	'ø': "o",
	'Đ': "D",
	'đ': "d",
	'Þ': "Th",
	'þ': "th",
	'–': "-",
	'—': "-",
	'€': "EUR",
}

// stripMarks removes combining marks left over from NFD decomposition,
// turning e.g. "ü" into "u". Same x/text pipeline the sync scanner uses
// for name normalization.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// EscapeSegment makes one path segment safe for the target filesystem
// under the given escaping policy and character set. It never introduces a
// path separator and is idempotent: escaping an already-escaped segment is
// the identity.
func EscapeSegment(segment string, mode store.EscapeMode, charset store.Charset) string {
	out := applyCharset(segment, charset)
	out = applyEscape(out, mode, charset)

	if charset == store.CharsetUnicode {
		out = norm.NFC.String(out)
	}

	return out
}

func isUnsafe(r rune) bool {
	return strings.ContainsRune(unsafeChars, r) || r < 0x20 || r == 0x7f
}

func applyEscape(segment string, mode store.EscapeMode, charset store.Charset) string {
	var b strings.Builder

	for _, r := range segment {
		switch {
		case !isUnsafe(r):
			b.WriteRune(r)

		case mode == store.EscapeSimilar:
			if repl, ok := lookalike(r, charset); ok {
				b.WriteRune(repl)
			}

		case mode == store.EscapeVerbatim:
			// Verbatim passes unsafe characters through, except the path
			// separator, which would change the directory structure.
			if r == '/' {
				b.WriteRune('-')
			} else {
				b.WriteRune(r)
			}

		case mode == store.EscapeReject:
			// dropped
		}
	}

	return b.String()
}

func lookalike(r rune, charset store.Charset) (rune, bool) {
	table := unicodeLookalikes
	if charset != store.CharsetUnicode {
		table = asciiLookalikes
	}

	repl, ok := table[r]

	return repl, ok
}

func applyCharset(segment string, charset store.Charset) string {
	switch charset {
	case store.CharsetASCII:
		return toASCII(segment)
	case store.CharsetIdentifier:
		return toIdentifier(segment)
	default:
		return segment
	}
}

// toASCII transliterates a segment to plain ASCII: decompose, strip
// combining marks, substitute known letters, drop the rest.
func toASCII(segment string) string {
	decomposed, _, err := transform.String(stripMarks, segment)
	if err != nil {
		decomposed = segment
	}

	var b strings.Builder

	for _, r := range decomposed {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		default:
			if repl, ok := asciiReplacements[r]; ok {
				b.WriteString(repl)
			}
		}
	}

	return b.String()
}

// toIdentifier restricts a segment to [A-Za-z0-9_], mapping spaces and
// any other ASCII-representable character to underscores.
func toIdentifier(segment string) string {
	ascii := toASCII(segment)

	var b strings.Builder

	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.':
			b.WriteRune('_')
		}
	}

	return b.String()
}
