package candid

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokText
	tokNat
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokText:
		return fmt.Sprintf("%q", t.text)
	}
	return t.text
}

var keywords = map[string]bool{
	"type": true, "import": true, "service": true, "func": true, "opt": true,
	"vec": true, "record": true, "variant": true, "query": true, "oneway": true,
	"composite_query": true, "blob": true,
}

func isKeyword(s string) bool {
	return keywords[s] || IsPrimitive(s)
}

func lex(src string) ([]token, error) {
	var out []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(src[i:], "//"):
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment at offset %d", i)
			}
			i += end + 4
		case strings.HasPrefix(src[i:], "->"):
			out = append(out, token{tokPunct, "->", i})
			i += 2
		case strings.ContainsRune("(){};:,=", rune(c)):
			out = append(out, token{tokPunct, string(c), i})
			i++
		case c == '"':
			s, n, err := lexText(src[i:])
			if err != nil {
				return nil, fmt.Errorf("%v at offset %d", err, i)
			}
			out = append(out, token{tokText, s, i})
			i += n
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && (isHexDigit(src[i]) || src[i] == '_' || src[i] == 'x') {
				i++
			}
			out = append(out, token{tokNat, src[start:i], start})
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			start := i
			for i < len(src) && (src[i] == '_' || (src[i] >= 'a' && src[i] <= 'z') || (src[i] >= 'A' && src[i] <= 'Z') || (src[i] >= '0' && src[i] <= '9')) {
				i++
			}
			out = append(out, token{tokIdent, src[start:i], start})
		default:
			r, _ := utf8.DecodeRuneInString(src[i:])
			return nil, fmt.Errorf("unexpected character %q at offset %d", r, i)
		}
	}
	out = append(out, token{tokEOF, "", len(src)})
	return out, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// lexText reads a quoted string starting at s[0] and returns the unescaped
// contents and the number of bytes consumed.
func lexText(s string) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		c := s[i]
		switch c {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated escape")
			}
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '"', '\'', '\\':
				b.WriteByte(s[i+1])
			default:
				return "", 0, fmt.Errorf("unsupported escape \\%c", s[i+1])
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated text literal")
}

func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)
	return r.Replace(s)
}
