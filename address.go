package xmlmerge

import (
	"strconv"
	"strings"
)

// SegmentKind says how a path segment picks among same-tag siblings.
type SegmentKind int

const (
	ByTag      SegmentKind = iota // first child with the tag
	ByIdentity                    // child with the tag and identity key
	ByPosition                    // n-th child with the tag
)

// Segment is one step of an Address.
type Segment struct {
	Tag      string
	Kind     SegmentKind
	Identity string
	Position int
}

// Address locates a node from the document root by tag and disambiguator,
// never by object identity, so it can be replayed against an independent
// copy of the tree. The first segment names the root itself.
type Address []Segment

func RootAddress(tag string) Address {
	return Address{{Tag: tag}}
}

// Child returns a new address one level below a. A non-empty identity takes
// precedence over position; position < 0 means neither is known.
func (a Address) Child(tag, identity string, position int) Address {
	seg := Segment{Tag: tag}
	switch {
	case identity != "":
		seg.Kind = ByIdentity
		seg.Identity = identity
	case position >= 0:
		seg.Kind = ByPosition
		seg.Position = position
	}
	child := make(Address, len(a), len(a)+1)
	copy(child, a)
	return append(child, seg)
}

// Parent returns the address without its final segment.
func (a Address) Parent() Address {
	if len(a) == 0 {
		return nil
	}
	return a[:len(a)-1]
}

// Tag returns the tag named by the final segment.
func (a Address) Tag() string {
	if len(a) == 0 {
		return ""
	}
	return a[len(a)-1].Tag
}

func (a Address) Equal(b Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether a lies at or below prefix.
func (a Address) HasPrefix(prefix Address) bool {
	if len(prefix) > len(a) {
		return false
	}
	return a[:len(prefix)].Equal(prefix)
}

// String renders the address for display and grouping, e.g.
// /CMapData/entities/Item[@guid='A']/position[0].
func (a Address) String() string {
	var b strings.Builder
	for _, seg := range a {
		b.WriteByte('/')
		b.WriteString(seg.Tag)
		switch seg.Kind {
		case ByIdentity:
			b.WriteString("[@guid='")
			b.WriteString(seg.Identity)
			b.WriteString("']")
		case ByPosition:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Position))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// Resolve walks address from root. It returns nil when any step fails.
func Resolve(root *Node, address Address) *Node {
	if root == nil || len(address) == 0 || root.Tag != address[0].Tag {
		return nil
	}
	current := root
	for _, seg := range address[1:] {
		current = resolveSegment(current, seg)
		if current == nil {
			return nil
		}
	}
	return current
}

// ResolveParent resolves the parent of the addressed node.
func ResolveParent(root *Node, address Address) *Node {
	if len(address) < 2 {
		return nil
	}
	return Resolve(root, address.Parent())
}

func resolveSegment(parent *Node, seg Segment) *Node {
	switch seg.Kind {
	case ByIdentity:
		for _, c := range parent.Children {
			if c.Tag == seg.Tag && c.Identity() == seg.Identity {
				return c
			}
		}
		return nil
	case ByPosition:
		// A single same-tag sibling wins regardless of the stated index, so
		// indices that drifted after other edits still land.
		var same []*Node
		for _, c := range parent.Children {
			if c.Tag == seg.Tag {
				same = append(same, c)
			}
		}
		if len(same) == 1 {
			return same[0]
		}
		if seg.Position >= 0 && seg.Position < len(same) {
			return same[seg.Position]
		}
		return nil
	default:
		return parent.Find(seg.Tag)
	}
}
