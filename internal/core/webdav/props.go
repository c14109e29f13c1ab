package webdav

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/header"
	"github.com/davmount/internal/core/multistatus"
)

// PropfindOptions selects the depth and the properties to fetch. No
// properties means allprop.
type PropfindOptions struct {
	Depth      header.DepthValue
	Properties []string
}

type PatchOp int

const (
	Set PatchOp = iota
	Remove
)

// PropPatch is one instruction of a PROPPATCH. Value is written as text and
// ignored for Remove.
type PropPatch struct {
	Op    PatchOp
	Name  string
	Value string
}

const allpropBody = `<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

func (c *Client) Propfind(ctx context.Context, uri string, opts PropfindOptions) (*Result[*multistatus.MultiStatus], error) {
	depth, err := header.FormatDepth(opts.Depth)
	if err != nil {
		return nil, err
	}

	r := newRequest(PROPFIND, uri)
	r.header.Set(header.Depth, depth)
	r.header.Set("Content-Type", xmlContentType)
	if len(opts.Properties) == 0 {
		r.body = []byte(allpropBody)
	} else {
		names, err := c.qnames(opts.Properties)
		if err != nil {
			return nil, err
		}
		var b bytes.Buffer
		b.WriteString(`<D:propfind xmlns:D="DAV:">`)
		writeProp(&b, names, nil)
		b.WriteString(`</D:propfind>`)
		r.body = b.Bytes()
	}

	return exchange(ctx, c, r, func(res *Result[*multistatus.MultiStatus]) error {
		if res.MultiStatus == nil {
			return &failure.ProtocolError{Reason: "PROPFIND answered without a multistatus"}
		}
		res.Value = res.MultiStatus
		return nil
	})
}

func (c *Client) Proppatch(ctx context.Context, uri string, patches []PropPatch) (*Result[bool], error) {
	if len(patches) == 0 {
		return nil, errors.New("webdav: PROPPATCH without instructions")
	}

	var b bytes.Buffer
	b.WriteString(`<D:propertyupdate xmlns:D="DAV:">`)
	// Runs of the same operation share one set/remove element; order is
	// significant to the server.
	for i := 0; i < len(patches); {
		j := i
		for j < len(patches) && patches[j].Op == patches[i].Op {
			j++
		}
		run := patches[i:j]
		names := make([]qname, 0, len(run))
		values := make([]string, 0, len(run))
		for _, p := range run {
			n, err := c.qname(p.Name)
			if err != nil {
				return nil, err
			}
			names = append(names, n)
			values = append(values, p.Value)
		}
		tag := "D:set"
		if patches[i].Op == Remove {
			tag = "D:remove"
			values = nil
		}
		b.WriteString("<" + tag + ">")
		writeProp(&b, names, values)
		b.WriteString("</" + tag + ">")
		i = j
	}
	b.WriteString(`</D:propertyupdate>`)

	r := newRequest(PROPPATCH, uri)
	r.header.Set("Content-Type", xmlContentType)
	r.body = b.Bytes()
	return exchange(ctx, c, r, succeeded)
}

type qname struct {
	prefix string
	space  string
	local  string
}

// qname resolves "R:bigbox", "{ns}local" or a bare DAV: name against the
// client's namespace bindings.
func (c *Client) qname(s string) (qname, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 || end == len(s)-1 {
			return qname{}, fmt.Errorf("webdav: invalid property name %q", s)
		}
		space, local := s[1:end], s[end+1:]
		if space == multistatus.DAV {
			return qname{prefix: "D", space: space, local: local}, nil
		}
		if alias, ok := c.namespaces[space]; ok && alias != "" {
			return qname{prefix: alias, space: space, local: local}, nil
		}
		return qname{space: space, local: local}, nil
	}

	prefix, local, ok := strings.Cut(s, ":")
	if !ok {
		prefix, local = "D", s
	}
	if local == "" {
		return qname{}, fmt.Errorf("webdav: invalid property name %q", s)
	}
	space, known := c.alias(prefix)
	if !known {
		return qname{}, fmt.Errorf("webdav: unknown namespace prefix %q in %q", prefix, s)
	}
	return qname{prefix: prefix, space: space, local: local}, nil
}

func (c *Client) qnames(names []string) ([]qname, error) {
	out := make([]qname, 0, len(names))
	for _, n := range names {
		q, err := c.qname(n)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// writeProp emits a D:prop element declaring the non-DAV namespaces its
// children use. With values nil the children are empty elements.
func writeProp(b *bytes.Buffer, names []qname, values []string) {
	generated := 0
	declared := map[string]string{}
	var decls []string
	for i := range names {
		if names[i].prefix == "D" {
			continue
		}
		if pre, ok := declared[names[i].space]; ok {
			names[i].prefix = pre
			continue
		}
		if names[i].prefix == "" {
			generated++
			names[i].prefix = fmt.Sprintf("ns%d", generated)
		}
		declared[names[i].space] = names[i].prefix
		decls = append(decls, names[i].prefix+`="`+escape(names[i].space)+`"`)
	}

	b.WriteString("<D:prop")
	for _, d := range decls {
		b.WriteString(" xmlns:" + d)
	}
	b.WriteString(">")
	for i, n := range names {
		tag := n.prefix + ":" + n.local
		if values == nil {
			b.WriteString("<" + tag + "/>")
			continue
		}
		b.WriteString("<" + tag + ">" + escape(values[i]) + "</" + tag + ">")
	}
	b.WriteString("</D:prop>")
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
