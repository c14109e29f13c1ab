package webdav

import (
	"bytes"
	"context"
	"strings"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/header"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/core/timeout"
)

// LockOptions describe a new lock. The zero value asks for an exclusive
// lock on the resource alone and lets the server pick the timeout.
type LockOptions struct {
	Scope    lock.Scope
	Owner    string
	Timeouts []timeout.Value
	Depth    header.DepthValue
}

// CreateLock acquires a write lock on uri. A multistatus reply means the
// lock fanned out over several resources and is reported as a protocol
// error.
func (c *Client) CreateLock(ctx context.Context, uri string, opts LockOptions) (*Result[*lock.Lock], error) {
	scope := opts.Scope
	if scope == 0 {
		scope = lock.Exclusive
	}
	depth, err := header.FormatDepth(opts.Depth)
	if err != nil {
		return nil, err
	}

	r := newRequest(LOCK, uri)
	r.header.Set("Content-Type", xmlContentType)
	r.header.Set(header.Depth, depth)
	if len(opts.Timeouts) > 0 {
		r.header.Set(header.Timeout, header.FormatTimeout(opts.Timeouts...))
	}
	r.body = lock.EncodeLockInfo(scope, opts.Owner)

	return exchange(ctx, c, r, func(res *Result[*lock.Lock]) error {
		if res.MultiStatus != nil {
			return &failure.ProtocolError{Reason: "lock request fanned out into a multistatus"}
		}
		token := strings.TrimSpace(res.Response.Header.Get(header.LockToken))
		if t, err := header.ParseLockToken(token); err == nil {
			token = t
		}
		l, err := lock.Decode(bytes.NewReader(res.Response.Body), uri, token)
		if err != nil {
			return err
		}
		res.Value = l
		return nil
	})
}

// RefreshLock extends the lock identified by token. The returned lock keeps
// the token and carries the timeout granted by the server.
func (c *Client) RefreshLock(ctx context.Context, uri, token string, timeouts ...timeout.Value) (*Result[*lock.Lock], error) {
	r := newRequest(LOCK, uri)
	r.header.Set(header.If, header.FormatIf(token))
	if len(timeouts) > 0 {
		r.header.Set(header.Timeout, header.FormatTimeout(timeouts...))
	}

	return exchange(ctx, c, r, func(res *Result[*lock.Lock]) error {
		if res.MultiStatus != nil {
			return &failure.ProtocolError{Reason: "lock refresh answered with a multistatus"}
		}
		l, err := lock.Decode(bytes.NewReader(res.Response.Body), uri, token)
		if err != nil {
			return err
		}
		res.Value = l
		return nil
	})
}

func (c *Client) ReleaseLock(ctx context.Context, uri, token string) (*Result[bool], error) {
	r := newRequest(UNLOCK, uri)
	r.header.Set(header.LockToken, header.FormatLockToken(token))
	return exchange(ctx, c, r, succeeded)
}
