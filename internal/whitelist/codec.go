package whitelist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/milsim-hq/rosterd/internal/roles"
)

// ErrBlockNotFound is returned by Replace when the file carries no block
// for the requested role. The codec never invents blocks: the surrounding
// script scaffold is owned by the mission makers.
var ErrBlockNotFound = errors.New("whitelist: role block not found in file")

// Codec converts between the game-script whitelist format and a Document.
//
// The format is one guarded block per role:
//
//	if (_this select 0 == "ADMIN") then {
//		_return = [
//			"76561198000000001",
//			"76561198000000002"
//		];
//	};
//
// Replace is a surgical edit: only the bytes between the target role's
// list brackets change. Comments, spacing and every other block survive
// verbatim, which is what keeps hand-maintained files hand-maintainable.
type Codec struct {
	registry *roles.Registry
}

// NewCodec builds a codec bound to the configured role set.
func NewCodec(reg *roles.Registry) *Codec {
	return &Codec{registry: reg}
}

// Parse extracts the identifier list for every configured role. Roles with
// no matching block, or with nothing parseable between the brackets, map
// to an empty list. If a role's guard appears more than once, the first
// occurrence wins. Parse never fails: whitelist files are hand edited on
// the game box and a broken block must degrade, not take the tooling down.
func (c *Codec) Parse(text string) *Document {
	doc := NewDocument(c.registry)
	for _, code := range c.registry.Codes() {
		start, end, ok := findListSpan(text, code)
		if !ok {
			continue
		}
		doc.set(code, extractIDs(text[start:end]))
	}
	return doc
}

// Replace rewrites the bracketed list body of the role's block with ids,
// one quoted identifier per line, and returns the new file text. An empty
// ids slice collapses the body to a bare bracket pair. Everything outside
// the brackets is returned byte for byte.
func (c *Codec) Replace(text, code string, ids []string) (string, error) {
	code = roles.Normalize(code)
	start, end, ok := findListSpan(text, code)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBlockNotFound, code)
	}
	return text[:start] + formatListBody(text, start-1, ids) + text[end:], nil
}

// findListSpan locates the identifier list for a role code. It walks the
// if-guards in file order, tracking parenthesis, brace and bracket nesting
// explicitly (string literals are skipped), and returns the offsets of the
// list body between the opening and closing bracket.
func findListSpan(text, code string) (start, end int, ok bool) {
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], "if")
		if i < 0 {
			break
		}
		i += pos
		pos = i + 2
		if i > 0 && isWordByte(text[i-1]) {
			continue
		}
		if i+2 < len(text) && isWordByte(text[i+2]) {
			continue
		}
		j := skipSpace(text, i+2)
		if j >= len(text) || text[j] != '(' {
			continue
		}
		guardEnd, found := matchDelim(text, j, '(', ')')
		if !found {
			continue
		}
		if !guardMentions(text[j+1:guardEnd], code) {
			continue
		}
		k := skipSpace(text, guardEnd+1)
		if strings.HasPrefix(text[k:], "then") && (k+4 >= len(text) || !isWordByte(text[k+4])) {
			k = skipSpace(text, k+4)
		}
		if k >= len(text) || text[k] != '{' {
			continue
		}
		blockEnd, found := matchDelim(text, k, '{', '}')
		if !found {
			continue
		}
		open := indexOutsideStrings(text, k+1, blockEnd, '[')
		if open < 0 {
			continue
		}
		listEnd, found := matchDelim(text, open, '[', ']')
		if !found || listEnd > blockEnd {
			continue
		}
		return open + 1, listEnd, true
	}
	return 0, 0, false
}

// formatListBody renders the replacement list body, indenting entries one
// level past the line that carries the opening bracket.
func formatListBody(text string, bracket int, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	lineStart := strings.LastIndexByte(text[:bracket], '\n') + 1
	indent := text[lineStart:]
	for i, ch := range indent {
		if ch != ' ' && ch != '\t' {
			indent = indent[:i]
			break
		}
	}
	entryIndent := indent + "\t"
	var b strings.Builder
	b.WriteByte('\n')
	for i, id := range ids {
		b.WriteString(entryIndent)
		b.WriteByte('"')
		b.WriteString(id)
		b.WriteByte('"')
		if i < len(ids)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(indent)
	return b.String()
}

// matchDelim scans from the opening delimiter at openIdx to its balanced
// counterpart, ignoring delimiters inside quoted strings and // line
// comments. Comment skipping matters for hand-edited files: an apostrophe
// in a comment must not open single-quote state and swallow a brace.
func matchDelim(text string, openIdx int, open, close byte) (int, bool) {
	depth := 0
	var quote byte
	for i := openIdx; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				i = endOfLine(text, i)
			}
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// indexOutsideStrings returns the offset of the first occurrence of target
// in text[from:to] that is not inside a quoted string or a // line
// comment, or -1.
func indexOutsideStrings(text string, from, to int, target byte) int {
	var quote byte
	for i := from; i < to && i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				i = endOfLine(text, i)
			}
		case target:
			return i
		}
	}
	return -1
}

// endOfLine returns the index of the newline terminating the line at i, or
// the end of text on the last line.
func endOfLine(text string, i int) int {
	if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
		return i + nl
	}
	return len(text) - 1
}

// stripLineComments removes // comments outside quoted strings, keeping
// the line breaks so token boundaries survive.
func stripLineComments(text string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
			b.WriteByte(ch)
		case '/':
			if i+1 < len(text) && text[i+1] == '/' {
				i = endOfLine(text, i)
				if i < len(text) && text[i] == '\n' {
					b.WriteByte('\n')
				}
				continue
			}
			b.WriteByte(ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// guardMentions reports whether the guard text quotes the role code, with
// either quote style. Matching is literal: codes are already canonical.
func guardMentions(guard, code string) bool {
	return strings.Contains(guard, `"`+code+`"`) || strings.Contains(guard, `'`+code+`'`)
}

// extractIDs pulls digit-string tokens out of a bracketed list body.
// Line comments are stripped first so commented-out annotations never glue
// onto an identifier token. Anything that is not a pure digit run after
// trimming quotes is dropped, and duplicates keep their first position only.
func extractIDs(body string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range strings.Split(stripLineComments(body), ",") {
		tok = strings.TrimSpace(tok)
		tok = strings.Trim(tok, `"'`)
		tok = strings.TrimSpace(tok)
		if tok == "" || !allDigits(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isWordByte(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\r', '\n':
			i++
		default:
			return i
		}
	}
	return i
}
