// Package ymap post-processes merged CMapData (map data) documents.
package ymap

import (
	"fmt"

	"github.com/dannyswat/xmlmerge"
)

const (
	RootTag     = "CMapData"
	EntitiesTag = "entities"
	EntityTag   = "Item"
	SchemaName  = "ymap"
)

// metadataTags are kept exactly as the original has them, whatever the variants did.
var metadataTags = map[string]bool{
	"name":                true,
	"parent":              true,
	"flags":               true,
	"contentFlags":        true,
	"streamingExtentsMin": true,
	"streamingExtentsMax": true,
	"entitiesExtentsMin":  true,
	"entitiesExtentsMax":  true,
}

// Processor restores map metadata and checks the entities layout.
type Processor struct{}

var _ xmlmerge.PostProcessor = Processor{}

func (Processor) Match(root *xmlmerge.Node) bool {
	return root != nil && root.Tag == RootTag
}

// Process adjusts merged in place and returns it. A merged tree that still
// violates the map layout afterwards is rejected with *xmlmerge.ValidationError.
func (p Processor) Process(original, merged *xmlmerge.Node) (*xmlmerge.Node, error) {
	if !p.Match(original) || merged == nil {
		return merged, nil
	}
	PreserveMetadata(original, merged)
	EnsureEntities(merged)
	if violations := Validate(merged); len(violations) > 0 {
		return nil, &xmlmerge.ValidationError{Schema: SchemaName, Violations: violations}
	}
	return merged, nil
}

// PreserveMetadata replaces merged's metadata elements with the original's,
// placing them ahead of the entities container.
func PreserveMetadata(original, merged *xmlmerge.Node) {
	for _, elem := range original.Children {
		if !metadataTags[elem.Tag] {
			continue
		}
		if existing := merged.Find(elem.Tag); existing != nil {
			merged.RemoveChild(existing)
		}
		merged.InsertChild(entitiesIndex(merged), elem.Clone())
	}
}

func entitiesIndex(root *xmlmerge.Node) int {
	for i, c := range root.Children {
		if c.Tag == EntitiesTag {
			return i
		}
	}
	return len(root.Children)
}

// EnsureEntities appends an empty entities container when none exists.
func EnsureEntities(root *xmlmerge.Node) {
	if root.Find(EntitiesTag) == nil {
		root.AppendChild(xmlmerge.NewNode(EntitiesTag))
	}
}

// Validate lists the structural problems of a map document.
func Validate(root *xmlmerge.Node) []string {
	var violations []string
	if root.Tag != RootTag {
		violations = append(violations, fmt.Sprintf("root element must be %s, found %s", RootTag, root.Tag))
	}
	entities := root.Find(EntitiesTag)
	if entities == nil {
		return append(violations, "missing entities container")
	}
	for _, item := range entities.Children {
		if item.Tag != EntityTag {
			violations = append(violations, fmt.Sprintf("entities container should only contain %s elements, found: %s", EntityTag, item.Tag))
			break
		}
	}
	return violations
}
