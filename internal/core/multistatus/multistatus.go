// Package multistatus interprets 207 Multi-Status response bodies.
package multistatus

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/davmount/internal/core/failure"
)

// DAV is the WebDAV XML namespace.
const DAV = "DAV:"

func davName(local string) xml.Name { return xml.Name{Space: DAV, Local: local} }

type MultiStatus struct {
	Responses   []Response
	Description string
}

// OK is true when every response resolved to a 2xx status.
func (m *MultiStatus) OK() bool {
	if m == nil {
		return false
	}
	for _, r := range m.Responses {
		if !r.OK() {
			return false
		}
	}
	return true
}

// Failed returns the responses that did not fully succeed.
func (m *MultiStatus) Failed() []Response {
	var out []Response
	for _, r := range m.Responses {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// Response is one resource outcome. Either Status is set (whole-resource
// outcome, possibly covering several hrefs) or Propstat is non-empty.
type Response struct {
	Hrefs       []string
	Status      int
	Reason      string
	Propstat    []Propstat
	Description string
	Error       string
}

type Propstat struct {
	Status      int
	Reason      string
	Props       []Property
	Description string
}

// Property is a single property outcome. Text, InnerXML and Children are
// only filled for 2xx statuses.
type Property struct {
	Name     xml.Name
	QName    string
	Status   int
	Text     string
	InnerXML string
	Children []xml.Name
}

func (p Property) OK() bool { return success(p.Status) }

func (r Response) Href() string {
	if len(r.Hrefs) == 0 {
		return ""
	}
	return r.Hrefs[0]
}

func (r Response) OK() bool {
	if r.Status != 0 {
		return success(r.Status)
	}
	if len(r.Propstat) == 0 {
		return false
	}
	for _, ps := range r.Propstat {
		if !success(ps.Status) {
			return false
		}
	}
	return true
}

// Props flattens the propstat groups in document order.
func (r Response) Props() []Property {
	var out []Property
	for _, ps := range r.Propstat {
		out = append(out, ps.Props...)
	}
	return out
}

// Failed returns the properties with a non-2xx status.
func (r Response) Failed() []Property {
	var out []Property
	for _, p := range r.Props() {
		if !p.OK() {
			out = append(out, p)
		}
	}
	return out
}

// Prop looks a property up by namespace and local name. A 2xx outcome is
// preferred over a failed one for the same name.
func (r Response) Prop(space, local string) (Property, bool) {
	var found Property
	var ok bool
	for _, p := range r.Props() {
		if p.Name.Space != space || p.Name.Local != local {
			continue
		}
		if p.OK() {
			return p, true
		}
		if !ok {
			found, ok = p, true
		}
	}
	return found, ok
}

func (r Response) value(local string) (Property, bool) {
	p, ok := r.Prop(DAV, local)
	if !ok || !p.OK() {
		return Property{}, false
	}
	return p, true
}

func (r Response) text(local string) string {
	p, _ := r.value(local)
	return strings.TrimSpace(p.Text)
}

func (r Response) IsCollection() bool {
	p, ok := r.value("resourcetype")
	if !ok {
		return false
	}
	for _, c := range p.Children {
		if c == davName("collection") {
			return true
		}
	}
	return false
}

// ContentLength returns getcontentlength, or -1 when absent or invalid.
func (r Response) ContentLength() int64 {
	s := r.text("getcontentlength")
	if s == "" {
		return -1
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func (r Response) LastModified() (time.Time, bool) {
	s := r.text("getlastmodified")
	if s == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r Response) CreationDate() (time.Time, bool) {
	s := r.text("creationdate")
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r Response) ContentType() string { return r.text("getcontenttype") }
func (r Response) ETag() string        { return r.text("getetag") }
func (r Response) DisplayName() string { return r.text("displayname") }

// ParseStatusLine splits "HTTP/1.1 423 Locked" into code and reason.
func ParseStatusLine(line string) (int, string, error) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, "", &failure.ProtocolError{Reason: "bad status line " + strconv.Quote(line)}
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil || code < 100 || code > 999 {
		return 0, "", &failure.ProtocolError{Reason: "bad status line " + strconv.Quote(line)}
	}
	reason := ""
	if len(fields) == 3 {
		reason = strings.TrimSpace(fields[2])
	}
	if reason == "" {
		reason = failure.ReasonPhrase(code)
	}
	return code, reason, nil
}

func success(status int) bool { return status >= 200 && status < 300 }
