package lock

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/header"
	"github.com/davmount/internal/core/timeout"
)

// EncodeLockInfo builds the LOCK request body.
func EncodeLockInfo(scope Scope, owner string) []byte {
	var b bytes.Buffer
	b.WriteString(`<D:lockinfo xmlns:D="DAV:">`)
	b.WriteString(`<D:lockscope><D:` + scope.String() + `/></D:lockscope>`)
	b.WriteString(`<D:locktype><D:write/></D:locktype>`)
	if owner != "" {
		b.WriteString(`<D:owner>`)
		if isURI(owner) {
			b.WriteString(`<D:href>`)
			xml.EscapeText(&b, []byte(owner))
			b.WriteString(`</D:href>`)
		} else {
			xml.EscapeText(&b, []byte(owner))
		}
		b.WriteString(`</D:owner>`)
	}
	b.WriteString(`</D:lockinfo>`)
	return b.Bytes()
}

func isURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
}

type propXML struct {
	XMLName xml.Name    `xml:"DAV: prop"`
	Active  []activeXML `xml:"DAV: lockdiscovery>activelock"`
}

type activeXML struct {
	Scope struct {
		Exclusive *struct{} `xml:"DAV: exclusive"`
		Shared    *struct{} `xml:"DAV: shared"`
	} `xml:"DAV: lockscope"`
	Type struct {
		Write *struct{} `xml:"DAV: write"`
	} `xml:"DAV: locktype"`
	Depth   string   `xml:"DAV: depth"`
	Owner   ownerXML `xml:"DAV: owner"`
	Timeout string   `xml:"DAV: timeout"`
	Tokens  []string `xml:"DAV: locktoken>href"`
	Root    string   `xml:"DAV: lockroot>href"`
}

type ownerXML struct {
	Href string `xml:"DAV: href"`
	Text string `xml:",chardata"`
}

// Decode reads the lockdiscovery returned by a LOCK request on requestURI.
// wantToken selects among several active locks; when empty the response
// must describe exactly one.
func Decode(r io.Reader, requestURI, wantToken string) (*Lock, error) {
	var doc propXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &failure.ProtocolError{Method: "LOCK", URL: requestURI, Reason: err.Error()}
	}

	active, err := pick(doc.Active, wantToken)
	if err != nil {
		return nil, &failure.ProtocolError{Method: "LOCK", URL: requestURI, Reason: err.Error()}
	}

	l := &Lock{Type: TypeWrite, Root: strings.TrimSpace(active.Root)}
	if l.Root == "" {
		l.Root = requestURI
	}
	switch {
	case active.Scope.Shared != nil:
		l.Scope = Shared
	default:
		l.Scope = Exclusive
	}

	l.Depth = header.DepthInfinity
	if d := strings.TrimSpace(active.Depth); d != "" {
		if l.Depth, err = header.ParseDepth(d); err != nil {
			return nil, err
		}
	}

	l.timeout = timeout.InfiniteValue()
	if t := strings.TrimSpace(active.Timeout); t != "" {
		values, err := header.ParseTimeout(t)
		if err != nil {
			return nil, err
		}
		l.timeout = values[0]
	}

	l.Owner = strings.TrimSpace(active.Owner.Href)
	if l.Owner == "" {
		l.Owner = strings.TrimSpace(active.Owner.Text)
	}

	l.Token = wantToken
	if l.Token == "" && len(active.Tokens) > 0 {
		l.Token = strings.TrimSpace(active.Tokens[0])
	}
	if l.Token == "" {
		return nil, &failure.ProtocolError{Method: "LOCK", URL: requestURI, Reason: "active lock without token"}
	}
	return l, nil
}

func pick(active []activeXML, want string) (activeXML, error) {
	if len(active) == 0 {
		return activeXML{}, errors.New("no active lock in response")
	}
	if want != "" {
		for _, a := range active {
			for _, tok := range a.Tokens {
				if strings.TrimSpace(tok) == want {
					return a, nil
				}
			}
		}
		// A single lock that does not echo its token is taken as the one
		// requested.
		if len(active) == 1 && len(active[0].Tokens) == 0 {
			return active[0], nil
		}
		return activeXML{}, errors.New("no active lock with token " + want)
	}
	if len(active) > 1 {
		return activeXML{}, errors.New("several active locks and no token to choose")
	}
	return active[0], nil
}
