package failure

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
)

var (
	ErrClientFailure = errors.New("client failure")
	ErrServerFailure = errors.New("server failure")
	ErrFormat        = errors.New("malformed header value")
	ErrProtocol      = errors.New("unexpected server response")
	ErrTransport     = errors.New("transport failure")
)

// Kind tags an HTTP outcome as a client or a server failure.
type Kind int

const (
	ClientFailure Kind = iota + 1
	ServerFailure
)

func (k Kind) String() string {
	switch k {
	case ClientFailure:
		return "ClientFailure"
	case ServerFailure:
		return "ServerFailure"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf reports ClientFailure for 400-499 and ServerFailure for anything else.
func KindOf(status int) Kind {
	if status >= 400 && status < 500 {
		return ClientFailure
	}
	return ServerFailure
}

// HTTPError is a classified non-success response.
type HTTPError struct {
	Kind        Kind
	Method      string
	URL         string
	StatusCode  int
	Reason      string
	Request     []byte
	Description string
}

// NewHTTPError classifies a response to method and attaches the RFC description
// for the (method, status) pair when one is known.
func NewHTTPError(method, url string, status int, reason string, requestBody []byte) *HTTPError {
	c := Classify(method, status)
	if reason == "" {
		reason = ReasonPhrase(status)
	}
	return &HTTPError{
		Kind:        c.Kind,
		Method:      method,
		URL:         url,
		StatusCode:  status,
		Reason:      reason,
		Request:     append([]byte(nil), requestBody...),
		Description: c.Description,
	}
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Reason
}

// Explain returns the RFC description, or the reason phrase when none is known.
func (e *HTTPError) Explain() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Reason
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrClientFailure:
		return e.Kind == ClientFailure
	case ErrServerFailure:
		return e.Kind == ServerFailure
	case fs.ErrNotExist:
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
	case fs.ErrPermission:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case fs.ErrExist:
		return e.Method == "MKCOL" && e.StatusCode == http.StatusMethodNotAllowed
	}
	return false
}

// FormatError reports a header value that does not follow its grammar.
type FormatError struct {
	Header string
	Value  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s header value %q", e.Header, e.Value)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

// ProtocolError is a well-formed response that makes no sense for the request.
type ProtocolError struct {
	Method string
	URL    string
	Reason string
}

func (e *ProtocolError) Error() string {
	msg := "Unexpected server response"
	if e.Method != "" {
		msg += " to " + e.Method + " " + e.URL
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// TransportError wraps a failure of the transport itself.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// ReasonPhrase extracts the reason from an http.Response status line such as
// "423 Locked", falling back to the standard text for the code.
func ReasonPhrase(status int, statusLine ...string) string {
	for _, line := range statusLine {
		code, reason, ok := strings.Cut(strings.TrimSpace(line), " ")
		if ok && code == fmt.Sprint(status) && strings.TrimSpace(reason) != "" {
			return strings.TrimSpace(reason)
		}
	}
	if text := statusText[status]; text != "" {
		return text
	}
	return http.StatusText(status)
}

var statusText = map[int]string{
	207: "Multi-Status",
	422: "Unprocessable Entity",
	423: "Locked",
	424: "Failed Dependency",
	507: "Insufficient Storage",
}
