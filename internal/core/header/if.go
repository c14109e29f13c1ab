package header

import (
	"strings"

	"github.com/davmount/internal/core/failure"
)

// FormatIf builds an untagged If header with one list per token:
// (<t1>) (<t2>).
func FormatIf(tokens ...string) string {
	var b strings.Builder
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('(')
		b.WriteString(FormatLockToken(tok))
		b.WriteByte(')')
	}
	return b.String()
}

// ParseIf extracts the state tokens of an untagged If header. Entity tags
// and Not conditions are skipped.
func ParseIf(s string) ([]string, error) {
	var tokens []string
	rest := strings.TrimSpace(s)
	for rest != "" {
		if rest[0] != '(' {
			return nil, &failure.FormatError{Header: If, Value: s}
		}
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return nil, &failure.FormatError{Header: If, Value: s}
		}
		list := rest[1:end]
		rest = strings.TrimSpace(rest[end+1:])

		for list != "" {
			list = strings.TrimSpace(list)
			switch {
			case strings.HasPrefix(list, "<"):
				close := strings.IndexByte(list, '>')
				if close < 0 {
					return nil, &failure.FormatError{Header: If, Value: s}
				}
				tokens = append(tokens, list[1:close])
				list = list[close+1:]
			case strings.HasPrefix(list, "["):
				close := strings.IndexByte(list, ']')
				if close < 0 {
					return nil, &failure.FormatError{Header: If, Value: s}
				}
				list = list[close+1:]
			case strings.HasPrefix(list, "Not"):
				list = list[len("Not"):]
			case list == "":
			default:
				return nil, &failure.FormatError{Header: If, Value: s}
			}
		}
	}
	return tokens, nil
}

// FormatLockToken wraps token in angle brackets unless it already is.
func FormatLockToken(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">") {
		return token
	}
	return "<" + token + ">"
}

// ParseLockToken strips the angle brackets of a Lock-Token header.
func ParseLockToken(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '<' || s[len(s)-1] != '>' {
		return "", &failure.FormatError{Header: LockToken, Value: s}
	}
	return s[1 : len(s)-1], nil
}
