package xmlmerge

import "strings"

// Detect computes the changes that turn original into modified, labelled
// with source. Neither tree is modified.
func Detect(original, modified *Node, source string) ChangeSet {
	cs := ChangeSet{Source: source}
	if original == nil || modified == nil {
		return cs
	}
	d := detector{source: source}
	d.compare(original, modified, scope{address: RootAddress(original.Tag)})
	cs.Changes = d.changes
	return cs
}

// scope is the position of one comparison step: where it is, and the
// identity inherited from the enclosing element.
type scope struct {
	address   Address
	inherited string
}

type detector struct {
	source  string
	changes []Change
}

func (d *detector) emit(c Change) {
	c.Source = d.source
	d.changes = append(d.changes, c)
}

// compare diffs a matched pair of nodes and recurses into their children.
func (d *detector) compare(orig, mod *Node, s scope) {
	id := elementIdentity(orig, mod, s.inherited)

	d.compareAttributes(orig, mod, s.address, id)

	origText := strings.TrimSpace(orig.Text)
	modText := strings.TrimSpace(mod.Text)
	if origText != modText {
		d.emit(Change{
			Kind:     ChangeModify,
			Address:  s.address,
			Identity: id,
			OldValue: &origText,
			NewValue: &modText,
		})
	}

	d.compareChildren(orig, mod, scope{address: s.address, inherited: id})
}

// elementIdentity prefers an own guid attribute on either side, then a
// <guid> child on either side, then the identity inherited from the parent.
func elementIdentity(orig, mod *Node, inherited string) string {
	for _, n := range []*Node{mod, orig} {
		if v, ok := n.GetAttr(IdentityAttr); ok && v != "" {
			return v
		}
	}
	for _, n := range []*Node{mod, orig} {
		if g := n.Find(IdentityAttr); g != nil {
			if v, ok := g.GetAttr(identityValueAttr); ok && v != "" {
				return v
			}
		}
	}
	return inherited
}

func (d *detector) compareAttributes(orig, mod *Node, address Address, id string) {
	origAttrs := orig.attrMap()
	modAttrs := mod.attrMap()

	// Walk original order first, then attributes only the variant has, so
	// the emitted order is stable.
	for _, a := range orig.Attr {
		oldVal := a.Val
		newVal, ok := modAttrs[a.Key]
		switch {
		case !ok:
			d.emit(Change{Kind: ChangeModify, Address: address, Identity: id, Attribute: a.Key, OldValue: &oldVal})
		case newVal != oldVal:
			d.emit(Change{Kind: ChangeModify, Address: address, Identity: id, Attribute: a.Key, OldValue: &oldVal, NewValue: &newVal})
		}
	}
	for _, a := range mod.Attr {
		if _, ok := origAttrs[a.Key]; ok {
			continue
		}
		newVal := a.Val
		d.emit(Change{Kind: ChangeModify, Address: address, Identity: id, Attribute: a.Key, NewValue: &newVal})
	}
}

// compareChildren matches children by identity first (globally, so a
// reordered subtree is not reported as remove+add), then greedily by tag in
// document order. Whatever is left over is removed or added.
func (d *detector) compareChildren(orig, mod *Node, parent scope) {
	origMatched := make([]bool, len(orig.Children))
	modMatched := make([]bool, len(mod.Children))

	for mi, mc := range mod.Children {
		id := mc.Identity()
		if id == "" {
			continue
		}
		for oi, oc := range orig.Children {
			if origMatched[oi] || oc.Tag != mc.Tag || oc.Identity() != id {
				continue
			}
			origMatched[oi], modMatched[mi] = true, true
			d.compare(oc, mc, scope{
				address:   parent.address.Child(mc.Tag, id, -1),
				inherited: id,
			})
			break
		}
	}

	for oi, oc := range orig.Children {
		if origMatched[oi] {
			continue
		}
		for mi, mc := range mod.Children {
			if modMatched[mi] || mc.Tag != oc.Tag {
				continue
			}
			origMatched[oi], modMatched[mi] = true, true
			d.compare(oc, mc, scope{
				address:   parent.address.Child(mc.Tag, "", tagOrdinal(mod.Children, mi)),
				inherited: parent.inherited,
			})
			break
		}
	}

	for oi, oc := range orig.Children {
		if origMatched[oi] {
			continue
		}
		id := oc.Identity()
		d.emit(Change{
			Kind:     ChangeRemove,
			Address:  parent.address.Child(oc.Tag, id, tagOrdinal(orig.Children, oi)),
			Identity: id,
		})
	}

	for mi, mc := range mod.Children {
		if modMatched[mi] {
			continue
		}
		id := mc.Identity()
		d.emit(Change{
			Kind:     ChangeAdd,
			Address:  parent.address.Child(mc.Tag, id, tagOrdinal(mod.Children, mi)),
			Identity: id,
			Node:     mc.Clone(),
		})
	}
}

// tagOrdinal is the index of children[i] among siblings sharing its tag.
func tagOrdinal(children []*Node, i int) int {
	n := 0
	for j := 0; j < i; j++ {
		if children[j].Tag == children[i].Tag {
			n++
		}
	}
	return n
}
