package codec

import (
	"bytes"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dannyswat/xmlmerge"
)

// HTML reads and writes HTML documents through the x/net/html parser. The
// parser normalizes the document, so the root is always <html>.
type HTML struct{}

func (HTML) Parse(source string, data []byte) (*xmlmerge.Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &xmlmerge.ParseError{Source: source, Err: err}
	}

	doc := &xmlmerge.Document{}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.DoctypeNode:
			doc.Doctype = c.Data
		case html.ElementNode:
			if doc.Root == nil {
				doc.Root = fromHTML(c)
			}
		}
	}
	if doc.Root == nil {
		return nil, &xmlmerge.ParseError{Source: source, Err: errors.New("no root element")}
	}
	trimBlank(doc.Root)
	return doc, nil
}

func fromHTML(h *html.Node) *xmlmerge.Node {
	n := xmlmerge.NewNode(htmlName(h.Namespace, h.Data))
	for _, a := range h.Attr {
		n.SetAttr(htmlName(a.Namespace, a.Key), a.Val)
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			n.AppendChild(fromHTML(c))
		case html.TextNode:
			if len(n.Children) == 0 {
				n.Text += c.Data
			} else {
				n.Children[len(n.Children)-1].Tail += c.Data
			}
		}
	}
	return n
}

func htmlName(namespace, name string) string {
	// Foreign content (svg, math) keeps its elements unprefixed on output.
	if namespace == "" || namespace == "svg" || namespace == "math" {
		return name
	}
	return namespace + ":" + name
}

func (HTML) Serialize(doc *xmlmerge.Document) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, errors.New("serialize: document has no root element")
	}
	root := &html.Node{Type: html.DocumentNode}
	if doc.Doctype != "" {
		root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: doc.Doctype})
	}
	root.AppendChild(toHTML(doc.Root))

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, errors.Wrap(err, "render html")
	}
	return buf.Bytes(), nil
}

func toHTML(n *xmlmerge.Node) *html.Node {
	h := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, a := range n.Attr {
		h.Attr = append(h.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	if n.Text != "" {
		h.AppendChild(&html.Node{Type: html.TextNode, Data: n.Text})
	}
	for _, c := range n.Children {
		h.AppendChild(toHTML(c))
		if c.Tail != "" {
			h.AppendChild(&html.Node{Type: html.TextNode, Data: c.Tail})
		}
	}
	return h
}
