package multistatus

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/davmount/internal/core/failure"
)

// Parse reads a multistatus document. aliases maps a namespace to the
// prefix used when labelling property QNames; namespaces it does not cover
// keep the prefix the document declared for them.
func Parse(r io.Reader, aliases map[string]string) (*MultiStatus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &failure.ProtocolError{Reason: err.Error()}
	}
	p := &parser{
		d:       xml.NewDecoder(bytes.NewReader(data)),
		data:    data,
		aliases: aliases,
	}
	return p.multistatus()
}

type parser struct {
	d       *xml.Decoder
	data    []byte
	aliases map[string]string
	// scopes holds the namespace->prefix declarations of each open element.
	scopes []map[string]string
}

func (p *parser) fail(reason string) error {
	return &failure.ProtocolError{Reason: reason}
}

// token returns the next token together with the input offset at which it
// starts.
func (p *parser) token() (xml.Token, int64, error) {
	off := p.d.InputOffset()
	tok, err := p.d.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, off, p.fail("truncated document")
		}
		return nil, off, p.fail(err.Error())
	}
	switch t := tok.(type) {
	case xml.StartElement:
		p.push(t)
	case xml.EndElement:
		p.pop()
	}
	return tok, off, nil
}

func (p *parser) push(el xml.StartElement) {
	var scope map[string]string
	for _, a := range el.Attr {
		if a.Name.Space != "xmlns" {
			continue
		}
		if scope == nil {
			scope = make(map[string]string)
		}
		scope[a.Value] = a.Name.Local
	}
	p.scopes = append(p.scopes, scope)
}

func (p *parser) pop() {
	if len(p.scopes) > 0 {
		p.scopes = p.scopes[:len(p.scopes)-1]
	}
}

// skip discards the element whose start tag was just read.
func (p *parser) skip() error {
	if err := p.d.Skip(); err != nil {
		return p.fail(err.Error())
	}
	p.pop()
	return nil
}

func (p *parser) prefix(space string) string {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if pre, ok := p.scopes[i][space]; ok {
			return pre
		}
	}
	return ""
}

func (p *parser) label(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	if alias := p.aliases[name.Space]; alias != "" {
		return alias + ":" + name.Local
	}
	if pre := p.prefix(name.Space); pre != "" {
		return pre + ":" + name.Local
	}
	if name.Space == DAV {
		return "D:" + name.Local
	}
	return "{" + name.Space + "}" + name.Local
}

type content struct {
	text     string
	inner    string
	children []xml.Name
}

// content consumes the element whose start tag was just read and returns
// its text, raw inner markup and direct children.
func (p *parser) content() (content, error) {
	var c content
	var text strings.Builder
	begin := p.d.InputOffset()
	depth := 0
	for {
		tok, off, err := p.token()
		if err != nil {
			return c, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				c.children = append(c.children, t.Name)
			}
			depth++
		case xml.EndElement:
			if depth == 0 {
				c.inner = string(p.data[begin:off])
				c.text = text.String()
				return c, nil
			}
			depth--
		case xml.CharData:
			text.Write(t)
		}
	}
}

func (p *parser) multistatus() (*MultiStatus, error) {
	var root xml.StartElement
	for {
		tok, _, err := p.token()
		if err != nil {
			return nil, err
		}
		if el, ok := tok.(xml.StartElement); ok {
			root = el
			break
		}
	}
	if root.Name != davName("multistatus") {
		return nil, p.fail("root element is {" + root.Name.Space + "}" + root.Name.Local)
	}

	ms := &MultiStatus{}
	for {
		tok, _, err := p.token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name {
			case davName("response"):
				resp, err := p.response()
				if err != nil {
					return nil, err
				}
				ms.Responses = append(ms.Responses, resp)
			case davName("responsedescription"):
				c, err := p.content()
				if err != nil {
					return nil, err
				}
				ms.Description = strings.TrimSpace(c.text)
			default:
				if err := p.skip(); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			return ms, nil
		}
	}
}

func (p *parser) response() (Response, error) {
	var r Response
	for {
		tok, _, err := p.token()
		if err != nil {
			return r, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name {
			case davName("href"):
				c, err := p.content()
				if err != nil {
					return r, err
				}
				r.Hrefs = append(r.Hrefs, strings.TrimSpace(c.text))
			case davName("status"):
				c, err := p.content()
				if err != nil {
					return r, err
				}
				if r.Status, r.Reason, err = ParseStatusLine(c.text); err != nil {
					return r, err
				}
			case davName("propstat"):
				ps, err := p.propstat()
				if err != nil {
					return r, err
				}
				r.Propstat = append(r.Propstat, ps)
			case davName("responsedescription"):
				c, err := p.content()
				if err != nil {
					return r, err
				}
				r.Description = strings.TrimSpace(c.text)
			case davName("error"):
				c, err := p.content()
				if err != nil {
					return r, err
				}
				r.Error = strings.TrimSpace(c.inner)
			default:
				if err := p.skip(); err != nil {
					return r, err
				}
			}
		case xml.EndElement:
			switch {
			case len(r.Hrefs) == 0:
				return r, p.fail("response without href")
			case r.Status != 0 && len(r.Propstat) > 0:
				return r, p.fail("response " + r.Hrefs[0] + " carries both status and propstat")
			case r.Status == 0 && len(r.Propstat) == 0:
				return r, p.fail("response " + r.Hrefs[0] + " carries neither status nor propstat")
			case len(r.Hrefs) > 1 && len(r.Propstat) > 0:
				return r, p.fail("propstat response with several hrefs")
			}
			return r, nil
		}
	}
}

func (p *parser) propstat() (Propstat, error) {
	var ps Propstat
	for {
		tok, _, err := p.token()
		if err != nil {
			return ps, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name {
			case davName("prop"):
				props, err := p.prop()
				if err != nil {
					return ps, err
				}
				ps.Props = append(ps.Props, props...)
			case davName("status"):
				c, err := p.content()
				if err != nil {
					return ps, err
				}
				if ps.Status, ps.Reason, err = ParseStatusLine(c.text); err != nil {
					return ps, err
				}
			case davName("responsedescription"):
				c, err := p.content()
				if err != nil {
					return ps, err
				}
				ps.Description = strings.TrimSpace(c.text)
			default:
				if err := p.skip(); err != nil {
					return ps, err
				}
			}
		case xml.EndElement:
			if ps.Status == 0 {
				return ps, p.fail("propstat without status")
			}
			for i := range ps.Props {
				ps.Props[i].Status = ps.Status
				if !success(ps.Status) {
					ps.Props[i].Text = ""
					ps.Props[i].InnerXML = ""
					ps.Props[i].Children = nil
				}
			}
			return ps, nil
		}
	}
}

func (p *parser) prop() ([]Property, error) {
	var props []Property
	for {
		tok, _, err := p.token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			prop := Property{Name: t.Name, QName: p.label(t.Name)}
			c, err := p.content()
			if err != nil {
				return nil, err
			}
			prop.Text = c.text
			prop.InnerXML = c.inner
			prop.Children = c.children
			props = append(props, prop)
		case xml.EndElement:
			return props, nil
		}
	}
}
