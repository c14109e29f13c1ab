// Package webdav is the protocol engine: it builds WebDAV requests, sends
// them through a Transport and turns the replies into typed results.
package webdav

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/davmount/internal/core/logger"
)

// Transport sends a single request. *http.Client satisfies it.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL     *url.URL
	transport   Transport
	user        string
	pass        string
	auth        bool
	userAgent   string
	throwErrors bool
	namespaces  map[string]string
	log         logger.FullLogger
}

// Option configures a Client.
type Option func(*Client)

// WithAuth sends basic credentials on every request.
func WithAuth(user, pass string) Option {
	return func(c *Client) {
		c.user, c.pass, c.auth = user, pass, true
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithThrowErrors makes failed HTTP outcomes come back as errors instead
// of only being recorded on the Result.
func WithThrowErrors(on bool) Option {
	return func(c *Client) {
		c.throwErrors = on
	}
}

func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithTimeout bounds each request on the default transport. It has no
// effect once WithTransport installed something else.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.transport.(*http.Client); ok {
			hc.Timeout = d
		}
	}
}

func WithLogger(l logger.FullLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithNamespaces adds namespace -> alias bindings used to write and label
// property names.
func WithNamespaces(ns map[string]string) Option {
	return func(c *Client) {
		maps.Copy(c.namespaces, ns)
	}
}

// NewClient creates a Client for the provided base URL. A base without a
// trailing slash is still treated as a collection.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("webdav: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("webdav: invalid base URL: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("webdav: base URL %q is not absolute", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	c := &Client{
		baseURL:    parsed,
		transport:  &http.Client{},
		namespaces: map[string]string{},
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base, always ending in a slash.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Namespaces returns a copy of the namespace -> alias bindings.
func (c *Client) Namespaces() map[string]string { return maps.Clone(c.namespaces) }

// Resolve turns a base-relative reference into an absolute URL.
func (c *Client) Resolve(uri string) (string, error) {
	ref, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("webdav: invalid uri %q: %w", uri, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// alias returns the namespace bound to prefix.
func (c *Client) alias(prefix string) (string, bool) {
	if prefix == "D" {
		return "DAV:", true
	}
	for ns, a := range c.namespaces {
		if a == prefix {
			return ns, true
		}
	}
	return "", false
}
