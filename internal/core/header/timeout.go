package header

import (
	"strings"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/timeout"
)

const secondPrefix = "Second-"

// ParseTimeout reads a comma separated list of Second-<n> and Infinite
// tokens. Order is preserved; the server picks one of the candidates.
func ParseTimeout(s string) ([]timeout.Value, error) {
	var out []timeout.Value
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		v, err := parseTimeoutToken(tok)
		if err != nil {
			return nil, &failure.FormatError{Header: Timeout, Value: s}
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, &failure.FormatError{Header: Timeout, Value: s}
	}
	return out, nil
}

func parseTimeoutToken(tok string) (timeout.Value, error) {
	if strings.EqualFold(tok, "Infinite") {
		return timeout.InfiniteValue(), nil
	}
	if len(tok) <= len(secondPrefix) || !strings.EqualFold(tok[:len(secondPrefix)], secondPrefix) {
		return nil, &failure.FormatError{Header: Timeout, Value: tok}
	}
	digits := tok[len(secondPrefix):]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, &failure.FormatError{Header: Timeout, Value: tok}
		}
	}
	return timeout.New(digits)
}

// FormatTimeoutValue renders one candidate.
func FormatTimeoutValue(v timeout.Value) string {
	if v.IsInfinite() {
		return "Infinite"
	}
	return secondPrefix + v.String()
}

// FormatTimeout joins candidates with ", ".
func FormatTimeout(values ...timeout.Value) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v == nil {
			continue
		}
		parts = append(parts, FormatTimeoutValue(v))
	}
	return strings.Join(parts, ", ")
}
