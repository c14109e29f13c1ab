package webdav

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/multistatus"
)

type request struct {
	method string
	uri    string
	header http.Header
	body   []byte
}

func newRequest(method, uri string) *request {
	return &request{method: method, uri: uri, header: make(http.Header)}
}

// send performs one exchange. Only transport failures and unusable URIs
// are returned as errors.
func (c *Client) send(ctx context.Context, r *request) (RequestInfo, ResponseInfo, error) {
	target, err := c.Resolve(r.uri)
	if err != nil {
		return RequestInfo{}, ResponseInfo{}, err
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return RequestInfo{}, ResponseInfo{}, err
	}
	for k, v := range r.header {
		req.Header[k] = v
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}

	info := RequestInfo{
		Method: r.method,
		URL:    target,
		Header: req.Header.Clone(),
		Body:   r.body,
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		c.log.Errorf("[%s] %s: %v", r.method, target, err)
		return info, ResponseInfo{}, &failure.TransportError{Method: r.method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return info, ResponseInfo{}, &failure.TransportError{Method: r.method, URL: target, Err: err}
	}

	c.log.Logf("[%s] %s -> %d", r.method, target, resp.StatusCode)

	return info, ResponseInfo{
		StatusCode: resp.StatusCode,
		Reason:     failure.ReasonPhrase(resp.StatusCode, resp.Status),
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

// exchange sends r and interprets the reply. A 207 is parsed before
// success runs; any other non-2xx status is classified onto Result.Err.
// success fills in the method specific Value.
func exchange[T any](ctx context.Context, c *Client, r *request, success func(*Result[T]) error) (*Result[T], error) {
	res := &Result[T]{}

	var err error
	res.Request, res.Response, err = c.send(ctx, r)
	if err != nil {
		return res, err
	}

	status := res.Response.StatusCode
	switch {
	case status == StatusMultiStatus:
		ms, err := multistatus.Parse(bytes.NewReader(res.Response.Body), c.namespaces)
		if err != nil {
			return res, c.protocolError(res.Request, err)
		}
		res.MultiStatus = ms
		fallthrough
	case status >= 200 && status < 300:
		if success != nil {
			if err := success(res); err != nil {
				return res, c.protocolError(res.Request, err)
			}
		}
		return res, nil
	}

	res.Err = failure.NewHTTPError(r.method, res.Request.URL, status, res.Response.Reason, r.body)
	if res.Err.Kind == failure.ServerFailure {
		c.log.Errorf("[%s] %s: %d %s", r.method, res.Request.URL, status, res.Err.Explain())
	}
	return finish(c, res)
}

// finish applies the error policy: a classified failure is returned as an
// error only when the client throws errors.
func finish[T any](c *Client, res *Result[T]) (*Result[T], error) {
	if res.Err != nil && c.throwErrors {
		return res, res.Err
	}
	return res, nil
}

func (c *Client) protocolError(req RequestInfo, err error) error {
	var pe *failure.ProtocolError
	if errors.As(err, &pe) {
		if pe.Method == "" {
			pe.Method = req.Method
		}
		if pe.URL == "" {
			pe.URL = req.URL
		}
	}
	c.log.Errorf("[%s] %s: %v", req.Method, req.URL, err)
	return err
}
