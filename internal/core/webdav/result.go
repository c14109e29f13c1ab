package webdav

import (
	"net/http"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/multistatus"
)

// RequestInfo is a snapshot of a sent request.
type RequestInfo struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// ResponseInfo is a snapshot of the reply to a request.
type ResponseInfo struct {
	StatusCode int
	Reason     string
	Header     http.Header
	Body       []byte
}

// Result carries what a call produced together with the exchange that
// produced it. Err holds the classified failure whether or not the client
// is configured to return it as an error.
type Result[T any] struct {
	Value       T
	Request     RequestInfo
	Response    ResponseInfo
	MultiStatus *multistatus.MultiStatus
	Err         *failure.HTTPError
}

func (r *Result[T]) Status() int {
	if r == nil {
		return 0
	}
	return r.Response.StatusCode
}

func (r *Result[T]) Header() http.Header {
	if r == nil {
		return nil
	}
	return r.Response.Header
}

// OK reports a 2xx reply whose multistatus, if any, fully succeeded.
func (r *Result[T]) OK() bool {
	if r == nil || r.Err != nil {
		return false
	}
	if r.Response.StatusCode < 200 || r.Response.StatusCode >= 300 {
		return false
	}
	return r.MultiStatus == nil || r.MultiStatus.OK()
}
