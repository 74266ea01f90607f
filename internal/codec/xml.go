package codec

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"

	"github.com/dannyswat/xmlmerge"
)

// DefaultDeclaration is written when a document carries no usable declaration.
const DefaultDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// XML reads and writes XML documents. Output is re-indented with one space
// per level and always encoded as UTF-8.
type XML struct{}

func (XML) Parse(source string, data []byte) (*xmlmerge.Document, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel

	doc := &xmlmerge.Document{}
	var stack []*xmlmerge.Node

	fail := func(err error) error {
		line, _ := d.InputPos()
		var syn *xml.SyntaxError
		if errors.As(err, &syn) {
			line = syn.Line
		}
		return &xmlmerge.ParseError{Source: source, Line: line, Err: err}
	}

	for {
		// RawToken keeps namespace prefixes as written, so tags round-trip.
		tok, err := d.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fail(err)
		}

		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target == "xml" && doc.Root == nil {
				doc.Declaration = "<?xml " + string(t.Inst) + "?>"
			}
		case xml.Directive:
			if doc.Root == nil {
				doc.Doctype = string(t)
			}
		case xml.StartElement:
			n := xmlmerge.NewNode(qualified(t.Name))
			for _, a := range t.Attr {
				n.SetAttr(qualified(a.Name), a.Value)
			}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fail(errors.Errorf("multiple root elements (second is <%s>)", n.Tag))
				}
				doc.Root = n
			} else {
				stack[len(stack)-1].AppendChild(n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			name := qualified(t.Name)
			if len(stack) == 0 || stack[len(stack)-1].Tag != name {
				return nil, fail(errors.Errorf("unexpected closing tag </%s>", name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			s := string(t)
			if len(stack) == 0 {
				if strings.TrimSpace(s) != "" {
					return nil, fail(errors.New("text outside the root element"))
				}
				continue
			}
			top := stack[len(stack)-1]
			if len(top.Children) == 0 {
				top.Text += s
			} else {
				top.Children[len(top.Children)-1].Tail += s
			}
		}
	}

	if len(stack) > 0 {
		return nil, fail(errors.Errorf("unexpected end of document inside <%s>", stack[len(stack)-1].Tag))
	}
	if doc.Root == nil {
		return nil, fail(errors.New("no root element"))
	}
	trimBlank(doc.Root)
	return doc, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func (XML) Serialize(doc *xmlmerge.Document) ([]byte, error) {
	if doc == nil || doc.Root == nil {
		return nil, errors.New("serialize: document has no root element")
	}
	var buf bytes.Buffer
	buf.WriteString(declaration(doc.Declaration))
	buf.WriteByte('\n')
	if doc.Doctype != "" {
		buf.WriteString("<!" + doc.Doctype + ">\n")
	}
	if err := writeElement(&buf, doc.Root, 0); err != nil {
		return nil, errors.Wrapf(err, "serialize <%s>", doc.Root.Tag)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// declaration keeps the original declaration unless it names an encoding
// other than UTF-8, which the writer never produces.
func declaration(decl string) string {
	if decl == "" {
		return DefaultDeclaration
	}
	lower := strings.ToLower(decl)
	if strings.Contains(lower, "encoding") && !strings.Contains(lower, "utf-8") {
		return DefaultDeclaration
	}
	return decl
}

func writeElement(buf *bytes.Buffer, n *xmlmerge.Node, level int) error {
	buf.WriteByte('<')
	buf.WriteString(n.Tag)
	for _, a := range n.Attr {
		buf.WriteString(" " + a.Key + `="`)
		if err := xml.EscapeText(buf, []byte(a.Val)); err != nil {
			return err
		}
		buf.WriteByte('"')
	}

	if len(n.Children) == 0 && n.Text == "" {
		buf.WriteString(" />")
		return writeTail(buf, n)
	}
	buf.WriteByte('>')
	if err := xml.EscapeText(buf, []byte(n.Text)); err != nil {
		return err
	}
	if len(n.Children) > 0 {
		for _, c := range n.Children {
			buf.WriteString("\n" + strings.Repeat(" ", level+1))
			if err := writeElement(buf, c, level+1); err != nil {
				return err
			}
		}
		buf.WriteString("\n" + strings.Repeat(" ", level))
	}
	buf.WriteString("</" + n.Tag + ">")
	return writeTail(buf, n)
}

func writeTail(buf *bytes.Buffer, n *xmlmerge.Node) error {
	if n.Tail == "" {
		return nil
	}
	return xml.EscapeText(buf, []byte(n.Tail))
}
