// Package header parses and formats the WebDAV request headers whose values
// carry structure: Depth, Timeout, If, Lock-Token and Overwrite.
package header

import (
	"strconv"
	"strings"

	"github.com/davmount/internal/core/failure"
)

// Header names.
const (
	Depth       = "Depth"
	Timeout     = "Timeout"
	If          = "If"
	LockToken   = "Lock-Token"
	Overwrite   = "Overwrite"
	Destination = "Destination"
	DAV         = "DAV"
	Allow       = "Allow"
)

// DepthValue is the value of a Depth header.
type DepthValue int

const (
	DepthZero     DepthValue = 0
	DepthOne      DepthValue = 1
	DepthInfinity DepthValue = -1
)

func (d DepthValue) String() string {
	if d == DepthInfinity {
		return "infinity"
	}
	return strconv.Itoa(int(d))
}

// ParseDepth accepts "0", "1" and "infinity" in any case.
func ParseDepth(s string) (DepthValue, error) {
	switch v := strings.TrimSpace(s); {
	case v == "0":
		return DepthZero, nil
	case v == "1":
		return DepthOne, nil
	case strings.EqualFold(v, "infinity"):
		return DepthInfinity, nil
	}
	return 0, &failure.FormatError{Header: Depth, Value: s}
}

// FormatDepth is the inverse of ParseDepth. Values other than 0, 1 and
// DepthInfinity are rejected.
func FormatDepth(d DepthValue) (string, error) {
	switch d {
	case DepthZero, DepthOne, DepthInfinity:
		return d.String(), nil
	}
	return "", &failure.FormatError{Header: Depth, Value: strconv.Itoa(int(d))}
}

// FormatOverwrite returns "T" or "F".
func FormatOverwrite(overwrite bool) string {
	if overwrite {
		return "T"
	}
	return "F"
}
