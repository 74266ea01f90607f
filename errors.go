package xmlmerge

import (
	"fmt"
	"strings"
)

// ParseError reports a document that could not be parsed into a tree.
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse")
	if e.Source != "" {
		b.WriteString(" " + e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConflictError is returned under FailOnConflict when any conflict exists.
// No merged tree is produced.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge failed due to %d conflict(s)", len(e.Conflicts))
}

// ValidationError is returned by a schema post-processor that rejects a merged tree.
type ValidationError struct {
	Schema     string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s structure: %s", e.Schema, strings.Join(e.Violations, ", "))
}
