package webdav

import (
	"context"
	"net/http"
	"strings"

	"github.com/davmount/internal/core/header"
)

type PutOptions struct {
	LockTokens  []string
	ContentType string
}

type DeleteOptions struct {
	LockTokens []string
}

// CopyOptions apply to COPY and MOVE. The zero value overwrites the
// destination and acts on the resource alone.
type CopyOptions struct {
	NoOverwrite bool
	Recursive   bool
	LockTokens  []string
}

// succeeded sets Value for boolean methods: true unless a multistatus
// reports a failed member.
func succeeded(res *Result[bool]) error {
	res.Value = res.MultiStatus == nil || res.MultiStatus.OK()
	return nil
}

func setIf(h http.Header, tokens []string) {
	if v := header.FormatIf(tokens...); v != "" {
		h.Set(header.If, v)
	}
}

func (c *Client) Get(ctx context.Context, uri string) (*Result[[]byte], error) {
	return exchange(ctx, c, newRequest(GET, uri), func(res *Result[[]byte]) error {
		res.Value = res.Response.Body
		return nil
	})
}

func (c *Client) Head(ctx context.Context, uri string) (*Result[bool], error) {
	return exchange(ctx, c, newRequest(HEAD, uri), succeeded)
}

// Exists issues a HEAD. A 404 yields false without an error even when the
// client throws errors.
func (c *Client) Exists(ctx context.Context, uri string) (*Result[bool], error) {
	res, err := c.Head(ctx, uri)
	if res != nil && res.Err != nil && res.Err.StatusCode == http.StatusNotFound {
		return res, nil
	}
	return res, err
}

func (c *Client) Put(ctx context.Context, uri string, data []byte, opts PutOptions) (*Result[bool], error) {
	r := newRequest(PUT, uri)
	r.body = data
	if r.body == nil {
		r.body = []byte{}
	}
	ct := opts.ContentType
	if ct == "" {
		ct = defaultContentType
	}
	r.header.Set("Content-Type", ct)
	setIf(r.header, opts.LockTokens)
	return exchange(ctx, c, r, succeeded)
}

func (c *Client) Delete(ctx context.Context, uri string, opts DeleteOptions) (*Result[bool], error) {
	r := newRequest(DELETE, uri)
	setIf(r.header, opts.LockTokens)
	return exchange(ctx, c, r, succeeded)
}

// Mkcol creates a single collection. Missing ancestors are not created.
func (c *Client) Mkcol(ctx context.Context, uri string) (*Result[bool], error) {
	return exchange(ctx, c, newRequest(MKCOL, uri), succeeded)
}

func (c *Client) Copy(ctx context.Context, src, dst string, opts CopyOptions) (*Result[bool], error) {
	r, err := c.transfer(COPY, src, dst, opts)
	if err != nil {
		return nil, err
	}
	depth := header.DepthZero
	if opts.Recursive {
		depth = header.DepthInfinity
	}
	r.header.Set(header.Depth, depth.String())
	return exchange(ctx, c, r, succeeded)
}

// Move renames src to dst. A MOVE of a collection always covers its
// members, so Depth is only sent for recursive moves.
func (c *Client) Move(ctx context.Context, src, dst string, opts CopyOptions) (*Result[bool], error) {
	r, err := c.transfer(MOVE, src, dst, opts)
	if err != nil {
		return nil, err
	}
	if opts.Recursive {
		r.header.Set(header.Depth, header.DepthInfinity.String())
	}
	return exchange(ctx, c, r, succeeded)
}

func (c *Client) transfer(method, src, dst string, opts CopyOptions) (*request, error) {
	dest, err := c.Resolve(dst)
	if err != nil {
		return nil, err
	}
	r := newRequest(method, src)
	r.header.Set(header.Destination, dest)
	r.header.Set(header.Overwrite, header.FormatOverwrite(!opts.NoOverwrite))
	setIf(r.header, opts.LockTokens)
	return r, nil
}

// Options returns the response headers of an OPTIONS request.
func (c *Client) Options(ctx context.Context, uri string) (*Result[http.Header], error) {
	return exchange(ctx, c, newRequest(OPTIONS, uri), func(res *Result[http.Header]) error {
		res.Value = res.Response.Header
		return nil
	})
}

// ComplianceClasses lists the classes advertised in the DAV header.
func (c *Client) ComplianceClasses(ctx context.Context, uri string) (*Result[[]string], error) {
	return c.headerList(ctx, uri, header.DAV)
}

// SupportedMethods lists the methods advertised in the Allow header.
func (c *Client) SupportedMethods(ctx context.Context, uri string) (*Result[[]string], error) {
	return c.headerList(ctx, uri, header.Allow)
}

func (c *Client) headerList(ctx context.Context, uri, name string) (*Result[[]string], error) {
	return exchange(ctx, c, newRequest(OPTIONS, uri), func(res *Result[[]string]) error {
		res.Value = splitList(res.Response.Header.Values(name))
		return nil
	})
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
