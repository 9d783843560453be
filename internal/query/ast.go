package query

import "fmt"

// Field names a filterable task attribute. The set is closed; the parser only
// ever produces the constants below.
type Field string

// Recognized filter fields.
const (
	FieldPath      Field = "path"
	FieldFile      Field = "file"
	FieldTag       Field = "tag"
	FieldState     Field = "state"
	FieldPriority  Field = "priority"
	FieldContent   Field = "content"
	FieldScheduled Field = "scheduled"
	FieldDeadline  Field = "deadline"
)

// DateField reports whether the field carries a date value, which is the only
// legal left-hand side of a range filter.
func (f Field) DateField() bool {
	return f == FieldScheduled || f == FieldDeadline
}

// Node is one node of a parsed query tree. The implementations below form a
// closed set; the evaluator switches over them exhaustively. Trees are
// immutable once built.
type Node interface {
	isNode()
}

// AndNode matches when every child matches. It always has at least two
// children; the parser flattens nested conjunctions.
type AndNode struct {
	Children []Node
}

func (*AndNode) isNode() {}

// OrNode matches when any child matches. It always has at least two children.
type OrNode struct {
	Children []Node
}

func (*OrNode) isNode() {}

// NotNode negates its single child.
type NotNode struct {
	Child Node
}

func (*NotNode) isNode() {}

// TermNode is a bare word matched as a substring of the searchable fields.
type TermNode struct {
	Value string
}

func (*TermNode) isNode() {}

// PhraseNode is a quoted string matched on word boundaries.
type PhraseNode struct {
	Value string
}

func (*PhraseNode) isNode() {}

// PrefixNode is a field:value filter. Exact records that the value was
// quoted, which disables hierarchical tag matching in favor of equality.
type PrefixNode struct {
	Field Field
	Value string
	Exact bool
}

func (*PrefixNode) isNode() {}

// RangeNode is a field:start..end date filter.
type RangeNode struct {
	Field Field
	Start string
	End   string
}

func (*RangeNode) isNode() {}

// PropertyNode is a bracket filter against document metadata. Raw is the
// canonical "key" or "key:value" string produced by the tokenizer.
type PropertyNode struct {
	Raw   string
	Exact bool
}

func (*PropertyNode) isNode() {}

// SearchError is the single error kind raised for malformed queries. Pos is
// the byte offset of the offending token in the original query string.
type SearchError struct {
	Message string
	Pos     int
}

// Error implements the error interface.
func (e *SearchError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Pos)
}

func searchErr(pos int, format string, args ...any) *SearchError {
	return &SearchError{Message: fmt.Sprintf(format, args...), Pos: pos}
}
