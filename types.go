package xmlmerge

import "fmt"

type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"    // Append a new subtree under the addressed parent
	ChangeRemove ChangeKind = "remove" // Detach the addressed node
	ChangeModify ChangeKind = "modify" // Set/delete an attribute, or replace text content
)

// Change is one detected difference between the original and a variant.
// Changes are produced once by Detect and never mutated afterwards.
type Change struct {
	Kind     ChangeKind
	Address  Address
	Identity string
	// Attribute is the attribute name for Modify changes. Empty means the
	// change targets the node's text content.
	Attribute string
	OldValue  *string
	NewValue  *string
	Source    string
	// Node is a snapshot of the added subtree (Add only).
	Node *Node
}

func (c Change) String() string {
	switch c.Kind {
	case ChangeModify:
		target := "text"
		if c.Attribute != "" {
			target = "@" + c.Attribute
		}
		return fmt.Sprintf("%s %s %s: %s -> %s (%s)", c.Kind, c.Address, target, display(c.OldValue), display(c.NewValue), c.Source)
	default:
		return fmt.Sprintf("%s %s (%s)", c.Kind, c.Address, c.Source)
	}
}

func display(v *string) string {
	if v == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%q", *v)
}

// ChangeSet is the ordered list of changes a single variant makes to the original.
type ChangeSet struct {
	Source  string
	Changes []Change
}

// Count returns the number of changes of the given kind.
func (cs ChangeSet) Count(kind ChangeKind) int {
	n := 0
	for _, c := range cs.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// VariantValue is the value one variant assigns to a contested target.
type VariantValue struct {
	Source string  `yaml:"source"`
	Value  *string `yaml:"value"`
}

// Conflict is a target that two or more variants modify to different values.
type Conflict struct {
	Address   Address
	Identity  string
	Attribute string
	Values    []VariantValue
}

// ValueOf returns the value assigned by source, if it took part in the conflict.
func (c Conflict) ValueOf(source string) (*string, bool) {
	for _, v := range c.Values {
		if v.Source == source {
			return v.Value, true
		}
	}
	return nil, false
}

// Race records a removal in one variant that overlaps an edit made by another.
// Races are informational: resolution treats them like any other change.
type Race struct {
	Removal Change
	Edit    Change
}

// Strategy picks the winning change inside a conflicting group.
type Strategy int

const (
	LastWins Strategy = iota
	FirstWins
	FailOnConflict
)

func (s Strategy) String() string {
	switch s {
	case FirstWins:
		return "first_wins"
	case LastWins:
		return "last_wins"
	case FailOnConflict:
		return "fail_on_conflict"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "first_wins":
		return FirstWins, nil
	case "last_wins":
		return LastWins, nil
	case "fail_on_conflict":
		return FailOnConflict, nil
	default:
		return 0, fmt.Errorf("unknown conflict strategy %q (want first_wins, last_wins or fail_on_conflict)", name)
	}
}

type Stats struct {
	Total         int `yaml:"total"`
	Additions     int `yaml:"additions"`
	Modifications int `yaml:"modifications"`
	Deletions     int `yaml:"deletions"`
	Conflicts     int `yaml:"conflicts"`
	Skipped       int `yaml:"skipped"`
}

// MergeResult is the outcome of merging a set of variants into one tree.
type MergeResult struct {
	Merged    *Node
	Conflicts []Conflict
	Races     []Race
	// Applied lists the resolved changes that took effect, Skipped those that
	// resolved to nothing in the merged tree.
	Applied []Change
	Skipped []Change
	Stats   Stats
}
