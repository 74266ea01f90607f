package xmlmerge

// el builds a node from a tag and alternating attribute key/value pairs.
func el(tag string, kv ...string) *Node {
	n := NewNode(tag)
	for i := 0; i+1 < len(kv); i += 2 {
		n.SetAttr(kv[i], kv[i+1])
	}
	return n
}

// tree attaches children to n and returns it.
func tree(n *Node, children ...*Node) *Node {
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func text(n *Node, s string) *Node {
	n.Text = s
	return n
}

func str(s string) *string { return &s }

func kinds(changes []Change) []ChangeKind {
	out := make([]ChangeKind, len(changes))
	for i, c := range changes {
		out[i] = c.Kind
	}
	return out
}
