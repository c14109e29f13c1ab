// Package davlocks hands out RFC 4918 lock tokens on top of an
// x/net/webdav lock system, whose own tokens are bare counters.
package davlocks

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/webdav"

	"github.com/davmount/internal/core/lock"
)

// System wraps a webdav.LockSystem so clients only ever see
// opaquelocktoken: URIs. Tokens are matched by their uuid, so a client
// that changes the case of the hex digits still names the same lock.
type System struct {
	inner webdav.LockSystem

	mu     sync.Mutex
	byID   map[uuid.UUID]string // public uuid -> inner token
	public map[string]string    // inner token -> public token
}

func New(inner webdav.LockSystem) *System {
	return &System{
		inner:  inner,
		byID:   make(map[uuid.UUID]string),
		public: make(map[string]string),
	}
}

// NewMem is New over a fresh in-memory lock system.
func NewMem() *System { return New(webdav.NewMemLS()) }

var _ webdav.LockSystem = (*System)(nil)

// innerToken maps a public token to the wrapped system's token. Unknown
// tokens come back unchanged so the wrapped system rejects them itself.
func (s *System) innerToken(token string) string {
	id, ok := lock.TokenUUID(token)
	if !ok {
		return token
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		return t
	}
	return token
}

func (s *System) forget(innerToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.public[innerToken]; ok {
		if id, ok := lock.TokenUUID(pub); ok {
			delete(s.byID, id)
		}
		delete(s.public, innerToken)
	}
}

func (s *System) Confirm(now time.Time, name0, name1 string, conditions ...webdav.Condition) (func(), error) {
	mapped := make([]webdav.Condition, len(conditions))
	for i, c := range conditions {
		if c.Token != "" {
			c.Token = s.innerToken(c.Token)
		}
		mapped[i] = c
	}
	return s.inner.Confirm(now, name0, name1, mapped...)
}

func (s *System) Create(now time.Time, details webdav.LockDetails) (string, error) {
	t, err := s.inner.Create(now, details)
	if err != nil {
		return "", err
	}
	pub := lock.NewToken()
	id, _ := lock.TokenUUID(pub)

	s.mu.Lock()
	s.byID[id] = t
	s.public[t] = pub
	s.mu.Unlock()
	return pub, nil
}

func (s *System) Refresh(now time.Time, token string, duration time.Duration) (webdav.LockDetails, error) {
	t := s.innerToken(token)
	ld, err := s.inner.Refresh(now, t, duration)
	if err == webdav.ErrNoSuchLock {
		s.forget(t)
	}
	return ld, err
}

func (s *System) Unlock(now time.Time, token string) error {
	t := s.innerToken(token)
	err := s.inner.Unlock(now, t)
	if err == nil || err == webdav.ErrNoSuchLock {
		s.forget(t)
	}
	return err
}
