package xmlmerge

// ApplyReport lists which changes took effect during Patch.
type ApplyReport struct {
	Applied []Change
	Skipped []Change
}

// Apply returns a merged copy of original with changes applied. The
// original tree is never modified.
func Apply(original *Node, changes []Change) *Node {
	merged, _ := Patch(original, changes)
	return merged
}

// Patch applies changes to a deep copy of original, modifications first,
// then removals, then additions, whatever order the input is in. Changes
// whose target cannot be resolved are skipped, not treated as errors:
// addresses are replayed against a tree earlier changes may have altered.
func Patch(original *Node, changes []Change) (*Node, ApplyReport) {
	var report ApplyReport
	root := original.Clone()
	if root == nil {
		report.Skipped = append(report.Skipped, changes...)
		return nil, report
	}

	var mods, removes, adds []Change
	for _, c := range changes {
		switch c.Kind {
		case ChangeModify:
			mods = append(mods, c)
		case ChangeRemove:
			removes = append(removes, c)
		case ChangeAdd:
			adds = append(adds, c)
		default:
			report.Skipped = append(report.Skipped, c)
		}
	}

	for _, c := range mods {
		if applyModify(root, c) {
			report.Applied = append(report.Applied, c)
		} else {
			report.Skipped = append(report.Skipped, c)
		}
	}

	// Resolve every removal target before detaching any of them, so that
	// positional addresses under one parent do not shift each other.
	type removal struct {
		change Change
		parent *Node
		target *Node
	}
	pending := make([]removal, 0, len(removes))
	for _, c := range removes {
		target := Resolve(root, c.Address)
		parent := ResolveParent(root, c.Address)
		pending = append(pending, removal{change: c, parent: parent, target: target})
	}
	for _, r := range pending {
		if r.target == nil || r.parent == nil || !r.parent.RemoveChild(r.target) {
			report.Skipped = append(report.Skipped, r.change)
			continue
		}
		report.Applied = append(report.Applied, r.change)
	}

	for _, c := range adds {
		if applyAdd(root, c) {
			report.Applied = append(report.Applied, c)
		} else {
			report.Skipped = append(report.Skipped, c)
		}
	}

	return root, report
}

func applyModify(root *Node, c Change) bool {
	node := Resolve(root, c.Address)
	if node == nil {
		return false
	}
	if c.Attribute == "" {
		if c.NewValue != nil {
			node.Text = *c.NewValue
		} else {
			node.Text = ""
		}
		return true
	}
	if c.NewValue != nil {
		node.SetAttr(c.Attribute, *c.NewValue)
	} else {
		node.RemoveAttr(c.Attribute)
	}
	return true
}

func applyAdd(root *Node, c Change) bool {
	parent := ResolveParent(root, c.Address)
	if parent == nil {
		return false
	}
	var child *Node
	if c.Node != nil {
		child = c.Node.Clone()
	} else {
		tag := c.Address.Tag()
		if tag == "" {
			return false
		}
		child = NewNode(tag)
		if c.Identity != "" {
			child.SetAttr(IdentityAttr, c.Identity)
		}
	}
	parent.AppendChild(child)
	return true
}
