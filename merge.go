package xmlmerge

import (
	"fmt"

	"github.com/samber/lo"
)

// Variant is a modified copy of the original, labelled with the name used
// as the source of its changes.
type Variant struct {
	Name string
	Tree *Node
}

// PostProcessor adjusts a merged tree for one document schema.
type PostProcessor interface {
	// Match reports whether the processor applies to the document.
	Match(root *Node) bool
	// Process returns the adjusted tree, or a *ValidationError.
	Process(original, merged *Node) (*Node, error)
}

// targetKey groups changes aimed at the same fact.
type targetKey struct {
	address   string
	identity  string
	attribute string
}

func keyOf(c Change) targetKey {
	return targetKey{address: c.Address.String(), identity: c.Identity, attribute: c.Attribute}
}

type valueKey struct {
	present bool
	value   string
}

func valueKeyOf(v *string) valueKey {
	if v == nil {
		return valueKey{}
	}
	return valueKey{present: true, value: *v}
}

// modifyGroup collects Modify changes for one target in supply order.
// sets[i] is the index of the ChangeSet changes[i] came from; variants are
// told apart by position, so two sets sharing a Source still contest.
type modifyGroup struct {
	key     targetKey
	changes []Change
	sets    []int
}

func (g *modifyGroup) contested() bool {
	return len(lo.Uniq(g.sets)) > 1
}

func (g *modifyGroup) divergent() bool {
	distinct := lo.UniqBy(g.changes, func(c Change) valueKey { return valueKeyOf(c.NewValue) })
	return len(distinct) > 1
}

func groupModifications(changeSets []ChangeSet) ([]*modifyGroup, map[targetKey]*modifyGroup) {
	var order []*modifyGroup
	byKey := make(map[targetKey]*modifyGroup)
	for i, cs := range changeSets {
		for _, c := range cs.Changes {
			if c.Kind != ChangeModify {
				continue
			}
			k := keyOf(c)
			g, ok := byKey[k]
			if !ok {
				g = &modifyGroup{key: k}
				byKey[k] = g
				order = append(order, g)
			}
			g.changes = append(g.changes, c)
			g.sets = append(g.sets, i)
		}
	}
	return order, byKey
}

// FindConflicts returns every target that more than one variant modifies to
// different values. Additions and removals never conflict.
func FindConflicts(changeSets []ChangeSet) []Conflict {
	groups, _ := groupModifications(changeSets)
	var conflicts []Conflict
	for _, g := range groups {
		if !g.contested() || !g.divergent() {
			continue
		}
		first := g.changes[0]
		conflict := Conflict{
			Address:   first.Address,
			Identity:  first.Identity,
			Attribute: first.Attribute,
		}
		seen := make(map[int]bool)
		for i, c := range g.changes {
			if seen[g.sets[i]] {
				continue
			}
			seen[g.sets[i]] = true
			conflict.Values = append(conflict.Values, VariantValue{Source: c.Source, Value: c.NewValue})
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts
}

// ResolveChanges flattens changeSets into one change list, picking a single change
// for every target modified by several variants. Under FailOnConflict any
// conflict yields a *ConflictError.
func ResolveChanges(changeSets []ChangeSet, strategy Strategy) ([]Change, error) {
	return resolve(changeSets, FindConflicts(changeSets), strategy)
}

func resolve(changeSets []ChangeSet, conflicts []Conflict, strategy Strategy) ([]Change, error) {
	switch strategy {
	case FirstWins, LastWins:
	case FailOnConflict:
		if len(conflicts) > 0 {
			return nil, &ConflictError{Conflicts: conflicts}
		}
	default:
		return nil, fmt.Errorf("unsupported conflict strategy %v", strategy)
	}

	_, groups := groupModifications(changeSets)
	emitted := make(map[targetKey]bool)
	var out []Change
	for _, cs := range changeSets {
		for _, c := range cs.Changes {
			if c.Kind != ChangeModify {
				out = append(out, c)
				continue
			}
			k := keyOf(c)
			g := groups[k]
			if !g.contested() {
				out = append(out, c)
				continue
			}
			if emitted[k] {
				continue
			}
			emitted[k] = true
			out = append(out, pick(g, strategy))
		}
	}
	return out, nil
}

// pick chooses the surviving change of a group touched by several variants.
// Equal-valued groups keep their first copy whatever the strategy.
func pick(g *modifyGroup, strategy Strategy) Change {
	if !g.divergent() {
		return g.changes[0]
	}
	switch strategy {
	case LastWins:
		return g.changes[len(g.changes)-1]
	default:
		return g.changes[0]
	}
}

// FindRaces reports removals in one variant that cover a node another
// variant modifies or adds children to.
func FindRaces(changeSets []ChangeSet) []Race {
	var races []Race
	for i, removals := range changeSets {
		for _, rm := range removals.Changes {
			if rm.Kind != ChangeRemove {
				continue
			}
			for j, edits := range changeSets {
				if i == j {
					continue
				}
				for _, e := range edits.Changes {
					target := e.Address
					switch e.Kind {
					case ChangeAdd:
						target = e.Address.Parent()
					case ChangeRemove:
						continue
					}
					if target.HasPrefix(rm.Address) {
						races = append(races, Race{Removal: rm, Edit: e})
					}
				}
			}
		}
	}
	return races
}

// Merge resolves changeSets with strategy and applies the result to a copy
// of original.
func Merge(original *Node, changeSets []ChangeSet, strategy Strategy) (*MergeResult, error) {
	conflicts := FindConflicts(changeSets)
	resolved, err := resolve(changeSets, conflicts, strategy)
	if err != nil {
		return nil, err
	}

	merged, report := Patch(original, resolved)
	return &MergeResult{
		Merged:    merged,
		Conflicts: conflicts,
		Races:     FindRaces(changeSets),
		Applied:   report.Applied,
		Skipped:   report.Skipped,
		Stats:     calculateStats(report, conflicts),
	}, nil
}

// MergeVariants detects each variant against original, in order, and merges.
func MergeVariants(original *Node, variants []Variant, strategy Strategy) (*MergeResult, error) {
	changeSets := make([]ChangeSet, 0, len(variants))
	for _, v := range variants {
		changeSets = append(changeSets, Detect(original, v.Tree, v.Name))
	}
	return Merge(original, changeSets, strategy)
}

func calculateStats(report ApplyReport, conflicts []Conflict) Stats {
	count := func(kind ChangeKind) int {
		return lo.CountBy(report.Applied, func(c Change) bool { return c.Kind == kind })
	}
	return Stats{
		Total:         len(report.Applied),
		Additions:     count(ChangeAdd),
		Modifications: count(ChangeModify),
		Deletions:     count(ChangeRemove),
		Conflicts:     len(conflicts),
		Skipped:       len(report.Skipped),
	}
}
