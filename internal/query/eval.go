package query

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tasksearch/tsk/internal/task"
)

// PropertySource resolves the metadata of the document a task was extracted
// from, as a flat map of top-level keys. A document without metadata resolves
// to an empty (or nil) map, not an error. Implementations may block; they
// must honor the context.
type PropertySource interface {
	Properties(ctx context.Context, path string) (map[string]any, error)
}

// Evaluator matches tasks against parsed query trees. The zero value works:
// property filters then see no metadata and relative dates resolve against
// the wall clock.
type Evaluator struct {
	// Props backs property filters. Nil means every document has no
	// properties.
	Props PropertySource

	// Now anchors relative date keywords. Nil means time.Now.
	Now func() time.Time
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}

	return time.Now()
}

// Evaluate reports whether tsk matches the query tree rooted at node.
// caseSensitive applies to term, phrase, content, path, file, tag, and
// property matching; state and priority are always case-insensitive. Only
// property lookups can fail or block; every other node kind completes
// immediately.
func (e *Evaluator) Evaluate(ctx context.Context, node Node, tsk *task.Task, caseSensitive bool) (bool, error) {
	switch n := node.(type) {
	case *AndNode:
		for _, child := range n.Children {
			ok, err := e.Evaluate(ctx, child, tsk, caseSensitive)
			if err != nil {
				return false, err
			}

			if !ok {
				return false, nil
			}
		}

		return true, nil

	case *OrNode:
		for _, child := range n.Children {
			ok, err := e.Evaluate(ctx, child, tsk, caseSensitive)
			if err != nil {
				return false, err
			}

			if ok {
				return true, nil
			}
		}

		return false, nil

	case *NotNode:
		ok, err := e.Evaluate(ctx, n.Child, tsk, caseSensitive)
		if err != nil {
			return false, err
		}

		return !ok, nil

	case *TermNode:
		return matchTerm(n.Value, tsk, caseSensitive), nil

	case *PhraseNode:
		return matchPhrase(n.Value, tsk, caseSensitive), nil

	case *PrefixNode:
		return e.matchPrefix(n, tsk, caseSensitive), nil

	case *RangeNode:
		return e.matchDateRange(n, tsk), nil

	case *PropertyNode:
		return e.matchProperty(ctx, n, tsk, caseSensitive)

	default:
		return false, fmt.Errorf("unknown query node %T", node)
	}
}

// searchableFields is the fixed ordered set of task fields term and phrase
// matching looks at.
func searchableFields(tsk *task.Task) []string {
	return []string{tsk.RawText, tsk.Text, tsk.Path, tsk.Filename()}
}

func matchTerm(value string, tsk *task.Task, caseSensitive bool) bool {
	for _, field := range searchableFields(tsk) {
		if containsFold(field, value, caseSensitive) {
			return true
		}
	}

	return false
}

// matchPhrase matches the phrase as a whole word, so "star" matches
// "star wars" but not "starfish". The phrase text is escaped so punctuation
// inside it stays literal.
func matchPhrase(value string, tsk *task.Task, caseSensitive bool) bool {
	pattern := `\b` + regexp.QuoteMeta(value) + `\b`
	if !caseSensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	for _, field := range searchableFields(tsk) {
		if re.MatchString(field) {
			return true
		}
	}

	return false
}

func (e *Evaluator) matchPrefix(n *PrefixNode, tsk *task.Task, caseSensitive bool) bool {
	switch n.Field {
	case FieldPath:
		return containsFold(tsk.Path, n.Value, caseSensitive)

	case FieldFile:
		return containsFold(tsk.Filename(), n.Value, caseSensitive)

	case FieldContent:
		return containsFold(tsk.Text, n.Value, caseSensitive) ||
			containsFold(tsk.RawText, n.Value, caseSensitive)

	case FieldState:
		return strings.EqualFold(tsk.State, n.Value)

	case FieldPriority:
		return matchPriority(n.Value, tsk.Priority)

	case FieldTag:
		return matchTag(n.Value, n.Exact, tsk, caseSensitive)

	case FieldScheduled, FieldDeadline:
		resolved, err := ResolveDate(n.Value, n.Exact, e.now())
		if err != nil {
			return false
		}

		return e.matchDate(dateFieldOf(tsk, n.Field), resolved)

	default:
		return false
	}
}

// matchPriority compares against the fixed vocabulary: A/high, B/med, C/low,
// none. Anything else never matches.
func matchPriority(value, priority string) bool {
	switch strings.ToLower(value) {
	case "a", "high":
		return priority == task.PriorityHigh
	case "b", "med":
		return priority == task.PriorityMed
	case "c", "low":
		return priority == task.PriorityLow
	case "none":
		return priority == ""
	default:
		return false
	}
}

// matchTag compares the filter value against the task's extracted tags. An
// unquoted value matches the tag itself or any hierarchical child
// (value + "/..."); a quoted value matches only the exact tag. A leading '#'
// on the value is stripped first.
func matchTag(value string, exact bool, tsk *task.Task, caseSensitive bool) bool {
	want := strings.TrimPrefix(value, "#")

	for _, tag := range tsk.Tags() {
		if equalFold(tag, want, caseSensitive) {
			return true
		}

		if !exact && hasPrefixFold(tag, want+"/", caseSensitive) {
			return true
		}
	}

	return false
}

func dateFieldOf(tsk *task.Task, field Field) *time.Time {
	if field == FieldDeadline {
		return tsk.Deadline
	}

	return tsk.Scheduled
}

// matchDate checks a task date field against a resolved date value. A nil
// field matches only the "none" keyword.
func (e *Evaluator) matchDate(field *time.Time, resolved DateValue) bool {
	if resolved.Kind == DateRelative && resolved.Rel == RelNone {
		return field == nil
	}

	if field == nil {
		return false
	}

	day := dayStart(*field)

	switch resolved.Kind {
	case DateAbsolute:
		lo, hi := precisionWindow(resolved.Date, resolved.Precision)

		return inWindow(day, lo, hi)

	case DateRange:
		return inWindow(day, resolved.Start, resolved.End)

	case DateRelative:
		return e.matchRelative(day, resolved)

	default:
		return false
	}
}

func (e *Evaluator) matchRelative(day time.Time, resolved DateValue) bool {
	today := dayStart(e.now())

	switch resolved.Rel {
	case RelOverdue:
		return day.Before(today)
	case RelToday:
		return day.Equal(today)
	case RelTomorrow:
		return day.Equal(today.AddDate(0, 0, 1))
	case RelDue:
		// today or earlier
		return !day.After(today)
	case RelThisWeek:
		start := weekStart(today)

		return inWindow(day, start, start.AddDate(0, 0, 7))
	case RelNextWeek:
		start := weekStart(today).AddDate(0, 0, 7)

		return inWindow(day, start, start.AddDate(0, 0, 7))
	case RelThisMonth:
		start := monthStart(today)

		return inWindow(day, start, start.AddDate(0, 1, 0))
	case RelNextMonth:
		start := monthStart(today).AddDate(0, 1, 0)

		return inWindow(day, start, start.AddDate(0, 1, 0))
	case RelNextDays:
		// today through today+N, inclusive
		return inWindow(day, today, today.AddDate(0, 0, resolved.Days+1))
	default:
		return false
	}
}

func (e *Evaluator) matchDateRange(n *RangeNode, tsk *task.Task) bool {
	resolved, err := ResolveRange(n.Start, n.End)
	if err != nil {
		return false
	}

	return e.matchDate(dateFieldOf(tsk, n.Field), resolved)
}

// inWindow reports lo <= day < hi.
func inWindow(day, lo, hi time.Time) bool {
	return !day.Before(lo) && day.Before(hi)
}

// matchProperty resolves the task's document metadata and checks the filter
// against it. Lookup failures propagate; they are the one error path of
// evaluation.
func (e *Evaluator) matchProperty(ctx context.Context, n *PropertyNode, tsk *task.Task, caseSensitive bool) (bool, error) {
	var props map[string]any

	if e.Props != nil {
		resolved, err := e.Props.Properties(ctx, tsk.Path)
		if err != nil {
			return false, fmt.Errorf("property lookup for %s: %w", tsk.Path, err)
		}

		props = resolved
	}

	key, filterValue, hasValue := strings.Cut(n.Raw, ":")

	propValue, exists := lookupProperty(props, key, caseSensitive)
	if !exists {
		return false, nil
	}

	// Key-only filter: presence is enough, even for an explicit null.
	if !hasValue {
		return true, nil
	}

	// A literal "null" value matches a present-but-null property and nothing
	// else, so an empty string or empty list does not match it.
	if filterValue == "null" {
		return propValue == nil, nil
	}

	for _, alternative := range splitAlternatives(filterValue) {
		if matchPropertyValue(alternative, propValue, n.Exact, caseSensitive) {
			return true, nil
		}
	}

	return false, nil
}

// lookupProperty finds a top-level key. Nested structures are never descended
// into.
func lookupProperty(props map[string]any, key string, caseSensitive bool) (any, bool) {
	if value, ok := props[key]; ok {
		return value, true
	}

	if caseSensitive {
		return nil, false
	}

	for k, value := range props {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}

	return nil, false
}

// splitAlternatives expands an "a OR b OR c" value, parenthesized or bare,
// into its alternatives. A value without OR is its own single alternative.
func splitAlternatives(value string) []string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) >= 2 && trimmed[0] == '(' && trimmed[len(trimmed)-1] == ')' {
		trimmed = trimmed[1 : len(trimmed)-1]
	}

	parts := strings.Split(trimmed, " OR ")

	alternatives := make([]string, 0, len(parts))
	for _, part := range parts {
		alternatives = append(alternatives, strings.TrimSpace(part))
	}

	return alternatives
}

func matchPropertyValue(filterValue string, propValue any, exact, caseSensitive bool) bool {
	if op, operand, ok := comparisonOperand(filterValue); ok {
		number, numeric := propertyNumber(propValue)
		if !numeric {
			return false
		}

		return compareNumber(op, number, operand)
	}

	stringified := stringifyProperty(propValue)

	if exact {
		return equalFold(stringified, filterValue, caseSensitive)
	}

	return containsFold(stringified, filterValue, caseSensitive)
}

// comparisonOperand recognizes the numeric comparison forms >N, <N, >=N, <=N.
func comparisonOperand(value string) (string, float64, bool) {
	var op, rest string

	switch {
	case strings.HasPrefix(value, ">="):
		op, rest = ">=", value[2:]
	case strings.HasPrefix(value, "<="):
		op, rest = "<=", value[2:]
	case strings.HasPrefix(value, ">"):
		op, rest = ">", value[1:]
	case strings.HasPrefix(value, "<"):
		op, rest = "<", value[1:]
	default:
		return "", 0, false
	}

	operand, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
	if err != nil {
		return "", 0, false
	}

	return op, operand, true
}

func compareNumber(op string, number, operand float64) bool {
	switch op {
	case ">":
		return number > operand
	case "<":
		return number < operand
	case ">=":
		return number >= operand
	case "<=":
		return number <= operand
	default:
		return false
	}
}

func propertyNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// stringifyProperty renders a property value for equality and substring
// matching. Lists join their elements with ", "; nested values fall back to
// their default formatting.
func stringifyProperty(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			parts = append(parts, stringifyProperty(elem))
		}

		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func containsFold(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}

	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func equalFold(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}

	return strings.EqualFold(a, b)
}

func hasPrefixFold(s, prefix string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.HasPrefix(s, prefix)
	}

	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}
