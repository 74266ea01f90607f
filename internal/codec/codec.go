// Package codec converts between document bytes and xmlmerge trees.
package codec

import (
	"path/filepath"
	"strings"

	"github.com/dannyswat/xmlmerge"
)

// Codec parses and serializes one document format.
type Codec interface {
	// Parse builds a document tree; malformed input yields *xmlmerge.ParseError.
	Parse(source string, data []byte) (*xmlmerge.Document, error)
	Serialize(doc *xmlmerge.Document) ([]byte, error)
}

var registry = map[string]Codec{
	".xml":  XML{},
	".html": HTML{},
	".htm":  HTML{},
}

// ForFile returns the codec registered for the file's extension.
func ForFile(name string) (Codec, bool) {
	c, ok := registry[strings.ToLower(filepath.Ext(name))]
	return c, ok
}

// Supported reports whether a codec exists for the file's extension.
func Supported(name string) bool {
	_, ok := ForFile(name)
	return ok
}

// trimBlank drops text that is only indentation so trees parsed from
// differently formatted files compare equal.
func trimBlank(n *xmlmerge.Node) {
	if strings.TrimSpace(n.Text) == "" {
		n.Text = ""
	}
	if strings.TrimSpace(n.Tail) == "" {
		n.Tail = ""
	}
	for _, c := range n.Children {
		trimBlank(c)
	}
}
