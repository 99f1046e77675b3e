// Package xmltree holds UPnP documents as a tree of named nodes.
//
// Gateways disagree on namespaces, element order and which optional elements
// they emit, so callers walk the tree by local element name instead of
// decoding into fixed structs.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

type Node struct {
	// Space is the resolved namespace URI of a parsed node.
	Space string
	// Prefix is only used when encoding, e.g. "s" for <s:Envelope>.
	Prefix   string
	Name     string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

var ErrEmptyDocument = errors.New("document has no root element")

// Parse builds a tree from b. Any well-formedness problem is an error.
func Parse(b []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error decoding xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{
				Space: t.Name.Space,
				Name:  t.Name.Local,
				Attrs: append([]xml.Attr(nil), t.Attr...),
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("unexpected second root element <%s>", n.Name)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = text[len(text)-1].String()
			if len(n.Children) > 0 && strings.TrimSpace(n.Text) == "" {
				n.Text = ""
			}
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) == 0 {
				if len(bytes.TrimSpace(t)) != 0 {
					return nil, errors.New("character data outside of root element")
				}
				continue
			}
			text[len(text)-1].Write(t)
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}

	return root, nil
}

// Child returns the first direct child with the given local name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildText returns the trimmed text of the named child, or "" if it is
// absent. Text keeps the value as sent.
func (n *Node) ChildText(name string) string {
	if c := n.Child(name); c != nil {
		return strings.TrimSpace(c.Text)
	}
	return ""
}

// Find follows path one child at a time.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, name := range path {
		cur = cur.Child(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var result []*Node
	for _, c := range n.Children {
		if c.Name == name {
			result = append(result, c)
		}
	}
	return result
}

// Walk visits n and its descendants depth first in document order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(n *Node, parent *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(parent *Node, fn func(*Node, *Node) bool) {
	if n == nil || !fn(n, parent) {
		return
	}
	for _, c := range n.Children {
		c.walk(n, fn)
	}
}

// Element starts a node for encoding. name may carry a prefix, as in "u:AddPortMapping".
func Element(name string, children ...*Node) *Node {
	n := &Node{Name: name, Children: children}
	if i := strings.IndexByte(name, ':'); i >= 0 {
		n.Prefix, n.Name = name[:i], name[i+1:]
	}
	return n
}

func TextElement(name, text string) *Node {
	n := Element(name)
	n.Text = text
	return n
}

// Attr adds an attribute and returns n. Namespace declarations are written
// as-is, e.g. n.Attr("xmlns:u", urn).
func (n *Node) Attr(name, value string) *Node {
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return n
}

func (n *Node) qualified() string {
	if n.Prefix == "" {
		return n.Name
	}
	return n.Prefix + ":" + n.Name
}

// Marshal writes the tree rooted at n preceded by an XML declaration.
func Marshal(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0"?>` + "\n")

	enc := xml.NewEncoder(&buf)
	if err := n.encode(enc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (n *Node) encode(enc *xml.Encoder) error {
	start := xml.StartElement{
		Name: xml.Name{Local: n.qualified()},
		Attr: n.Attrs,
	}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("error encoding <%s>: %w", start.Name.Local, err)
	}
	if n.Text != "" {
		if err := enc.EncodeToken(xml.CharData(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := c.encode(enc); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}
