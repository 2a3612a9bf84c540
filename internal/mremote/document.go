package mremote

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Element is a parsed XML element. Only the parts the extractor and the
// credential analyzer need are kept: local name, attributes, children and text.
type Element struct {
	Name     string
	Attrs    []xml.Attr
	Children []*Element
	Parent   *Element
	Text     string
}

// Document is the parsed form of an mRemoteNG export.
type Document struct {
	Root *Element
}

// ParseDocument parses raw XML into a Document. Any decoder error is
// reported as a *MalformedXMLError.
func ParseDocument(xmlText []byte) (*Document, error) {
	var src io.Reader = bytes.NewReader(xmlText)
	charset := charsetReader
	if hasBOM(xmlText) {
		// The byte order mark wins over the prolog's encoding label.
		src = transform.NewReader(src, unicode.BOMOverride(transform.Nop))
		charset = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	}

	dec := xml.NewDecoder(src)
	dec.Strict = true
	dec.CharsetReader = charset

	var (
		root  *Element
		stack []*Element
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedXMLError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name.Local, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				el.Parent = parent
				parent.Children = append(parent.Children, el)
			} else if root == nil {
				root = el
			} else {
				return nil, &MalformedXMLError{Err: fmt.Errorf("multiple root elements")}
			}
			stack = append(stack, el)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			n := len(stack) - 1
			stack[n].Text = strings.TrimSpace(text[n].String())
			stack = stack[:n]
			text = text[:n]
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		}
	}

	if root == nil {
		return nil, &MalformedXMLError{Err: fmt.Errorf("no root element")}
	}
	if len(stack) != 0 {
		return nil, &MalformedXMLError{Err: fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name)}
	}
	return &Document{Root: root}, nil
}

var boms = [][]byte{{0xEF, 0xBB, 0xBF}, {0xFE, 0xFF}, {0xFF, 0xFE}}

func hasBOM(b []byte) bool {
	for _, bom := range boms {
		if bytes.HasPrefix(b, bom) {
			return true
		}
	}
	return false
}

// charsetReader decodes exports whose prolog declares a non-UTF-8 charset
// such as Windows-1252 through golang.org/x/text.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// Attr returns the value of the named attribute. Namespace prefixes are ignored.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ChildText returns the text of the first direct child element with the given name.
func (e *Element) ChildText(name string) (string, bool) {
	for _, c := range e.Children {
		if c.Name == name {
			return c.Text, true
		}
	}
	return "", false
}

// IsNode reports whether the element is one of the node-typed elements of
// the dialect: nested <Node> or the flatter <Connection>.
func (e *Element) IsNode() bool {
	return e != nil && (e.Name == "Node" || e.Name == "Connection")
}

// ChildNodes returns the direct children that are node-typed.
func (e *Element) ChildNodes() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.IsNode() {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits every element in document order.
func (d *Document) Walk(fn func(*Element)) {
	if d == nil || d.Root == nil {
		return
	}
	var visit func(*Element)
	visit = func(e *Element) {
		fn(e)
		for _, c := range e.Children {
			visit(c)
		}
	}
	visit(d.Root)
}

// NodeElements returns all node-typed elements in document order.
func (d *Document) NodeElements() []*Element {
	var out []*Element
	d.Walk(func(e *Element) {
		if e.IsNode() {
			out = append(out, e)
		}
	})
	return out
}
