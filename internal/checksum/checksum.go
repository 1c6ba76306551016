package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ilsetl/ilsetl/pkg/ilsetl"
)

// Records returns the SHA-256 of records encoded as a JSON array.
func Records(records []ilsetl.Record) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return "", fmt.Errorf("record %d: %w", i, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SQL returns the SHA-256 of the normalized script.
func SQL(script string) string {
	sum := sha256.Sum256([]byte(Normalize(script)))
	return hex.EncodeToString(sum[:])
}

// Short abbreviates a checksum for display.
func Short(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}

// Normalize strips comments, lowercases and collapses whitespace.
// Single-quoted and dollar-quoted literals are copied verbatim.
func Normalize(script string) string {
	var b strings.Builder
	b.Grow(len(script))

	space := false
	emitSpace := func() {
		if b.Len() > 0 {
			space = true
		}
	}
	emit := func(s string) {
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteString(s)
	}

	for i := 0; i < len(script); {
		rest := script[i:]
		switch {
		case strings.HasPrefix(rest, "--"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}
			i += end
			emitSpace()

		case strings.HasPrefix(rest, "/*"):
			i += blockCommentLen(rest)
			emitSpace()

		case rest[0] == '\'':
			n := quotedLen(rest)
			emit(rest[:n])
			i += n

		case rest[0] == '$' && dollarTag(rest) != "":
			tag := dollarTag(rest)
			n := len(tag)
			if end := strings.Index(rest[n:], tag); end >= 0 {
				n += end + len(tag)
			} else {
				n = len(rest)
			}
			emit(rest[:n])
			i += n

		default:
			r, size := utf8.DecodeRuneInString(rest)
			if unicode.IsSpace(r) {
				emitSpace()
			} else {
				emit(string(unicode.ToLower(r)))
			}
			i += size
		}
	}
	return b.String()
}

// blockCommentLen measures a possibly nested /* */ comment at the start of s.
func blockCommentLen(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "/*"):
			depth++
			i++
		case strings.HasPrefix(s[i:], "*/"):
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

// quotedLen measures a '...' literal at the start of s, honoring '' escapes.
func quotedLen(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			i++
			continue
		}
		return i + 1
	}
	return len(s)
}

// dollarTag returns the $tag$ opening s, or "" if s does not start one.
func dollarTag(s string) string {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1]
		}
		if !(c == '_' || unicode.IsLetter(rune(c)) || (i > 1 && unicode.IsDigit(rune(c)))) {
			return ""
		}
	}
	return ""
}
