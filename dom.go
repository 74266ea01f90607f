package xmlmerge

import "strings"

// IdentityAttr is the attribute (and child element name) that carries a node's identity.
const IdentityAttr = "guid"

// identityValueAttr holds the identity on a <guid value="..."/> child element.
const identityValueAttr = "value"

type Attribute struct {
	Key string
	Val string
}

// Node is an element in a document tree. Attributes are kept in document
// order with unique keys; order never participates in comparison.
type Node struct {
	Tag      string
	Attr     []Attribute
	Text     string
	Tail     string // non-whitespace text following the element in mixed content
	Children []*Node
}

// Document is a parsed tree plus the framing its codec needs to write it back.
type Document struct {
	Root        *Node
	Declaration string
	Doctype     string
}

func NewNode(tag string, attrs ...Attribute) *Node {
	n := &Node{Tag: tag}
	for _, a := range attrs {
		n.SetAttr(a.Key, a.Val)
	}
	return n
}

// GetAttr returns the value of key and whether it is present.
func (n *Node) GetAttr(key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key and reports whether it was present.
func (n *Node) RemoveAttr(key string) bool {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Node) AppendChild(child *Node) {
	n.Children = append(n.Children, child)
}

// InsertChild inserts child at index, appending when index is past the end.
func (n *Node) InsertChild(index int, child *Node) {
	if index < 0 {
		index = 0
	}
	if index >= len(n.Children) {
		n.Children = append(n.Children, child)
		return
	}
	n.Children = append(n.Children[:index+1], n.Children[index:]...)
	n.Children[index] = child
}

// RemoveChild detaches child (by identity) and reports whether it was found.
func (n *Node) RemoveChild(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the first child with the given tag.
func (n *Node) Find(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Identity returns the node's own identity key: its guid attribute, or the
// value attribute of a <guid> child. Inheritance from ancestors is handled
// by the detector, not here.
func (n *Node) Identity() string {
	if id, ok := n.GetAttr(IdentityAttr); ok && id != "" {
		return id
	}
	if g := n.Find(IdentityAttr); g != nil {
		if id, ok := g.GetAttr(identityValueAttr); ok {
			return id
		}
	}
	return ""
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Tag:  n.Tag,
		Text: n.Text,
		Tail: n.Tail,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{Root: d.Root.Clone(), Declaration: d.Declaration, Doctype: d.Doctype}
}

// Equal reports whether two subtrees are structurally equal: same tags,
// same attribute sets, same trimmed text, and equal children in order.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Tag != b.Tag || len(a.Attr) != len(b.Attr) || len(a.Children) != len(b.Children) {
		return false
	}
	for _, attr := range a.Attr {
		if v, ok := b.GetAttr(attr.Key); !ok || v != attr.Val {
			return false
		}
	}
	if strings.TrimSpace(a.Text) != strings.TrimSpace(b.Text) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func (n *Node) attrMap() map[string]string {
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}
