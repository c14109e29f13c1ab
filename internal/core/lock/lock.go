// Package lock models WebDAV write locks and their XML encoding.
package lock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/davmount/internal/core/header"
	"github.com/davmount/internal/core/timeout"
	"github.com/google/uuid"
)

var ErrScopeChange = errors.New("lock scope cannot change on refresh")

type Scope int

const (
	Exclusive Scope = iota + 1
	Shared
)

func (s Scope) String() string {
	switch s {
	case Exclusive:
		return "exclusive"
	case Shared:
		return "shared"
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exclusive":
		return Exclusive, nil
	case "shared":
		return Shared, nil
	}
	return 0, fmt.Errorf("unknown lock scope %q", s)
}

// TypeWrite is the only lock type WebDAV defines.
const TypeWrite = "write"

// Lock is an acquired lock. Only the timeout changes over its life.
type Lock struct {
	Scope Scope
	Type  string
	Depth header.DepthValue
	Owner string
	Token string
	Root  string

	timeout timeout.Value
}

func New(root, token string, scope Scope, depth header.DepthValue, owner string, t timeout.Value) *Lock {
	if t == nil {
		t = timeout.InfiniteValue()
	}
	return &Lock{
		Scope:   scope,
		Type:    TypeWrite,
		Depth:   depth,
		Owner:   owner,
		Token:   token,
		Root:    root,
		timeout: t,
	}
}

func (l *Lock) IsExclusive() bool { return l.Scope == Exclusive }
func (l *Lock) IsShared() bool    { return l.Scope == Shared }
func (l *Lock) IsDeep() bool      { return l.Depth == header.DepthInfinity }

func (l *Lock) Timeout() timeout.Value { return l.timeout }

// Expires returns the Unix time the lock lapses when held from now. ok is
// false for infinite locks.
func (l *Lock) Expires(now int64) (int64, bool) {
	return l.timeout.Validity(now)
}

// Refreshed returns a copy carrying the timeout granted by a refresh.
func (l *Lock) Refreshed(t timeout.Value) *Lock {
	c := *l
	if t != nil {
		c.timeout = t
	}
	return &c
}

func (l *Lock) CheckScope(s Scope) error {
	if s != 0 && s != l.Scope {
		return fmt.Errorf("%w: held %s, requested %s", ErrScopeChange, l.Scope, s)
	}
	return nil
}

const (
	opaquePrefix  = "opaquelocktoken:"
	urnUUIDPrefix = "urn:uuid:"
)

// TokenUUID extracts the uuid of opaquelocktoken: and urn:uuid: tokens.
// Other token schemes are opaque and report false.
func TokenUUID(token string) (uuid.UUID, bool) {
	var rest string
	switch {
	case strings.HasPrefix(token, opaquePrefix):
		rest = token[len(opaquePrefix):]
	case strings.HasPrefix(token, urnUUIDPrefix):
		rest = token[len(urnUUIDPrefix):]
	default:
		return uuid.Nil, false
	}
	if len(rest) < 36 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest[:36])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// NewToken returns a fresh opaquelocktoken.
func NewToken() string {
	return opaquePrefix + uuid.NewString()
}
