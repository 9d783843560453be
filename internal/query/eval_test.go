package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasksearch/tsk/internal/query"
	"github.com/tasksearch/tsk/internal/task"
)

// mapProps serves fixed per-path property maps.
type mapProps map[string]map[string]any

func (m mapProps) Properties(_ context.Context, path string) (map[string]any, error) {
	return m[path], nil
}

// failingProps errors on every lookup. Used both for propagation tests and as
// a tripwire for short-circuit tests: reaching it at all is the failure.
type failingProps struct{}

var errLookupFailed = errors.New("lookup failed")

func (failingProps) Properties(context.Context, string) (map[string]any, error) {
	return nil, errLookupFailed
}

func textTask(text string) *task.Task {
	return &task.Task{Path: "notes/inbox.md", RawText: text, Text: text}
}

func evalQuery(t *testing.T, e *query.Evaluator, q string, tsk *task.Task, caseSensitive bool) bool {
	t.Helper()

	node, err := query.Parse(query.Tokenize(q))
	require.NoError(t, err, "query %q should parse", q)

	ok, err := e.Evaluate(context.Background(), node, tsk, caseSensitive)
	require.NoError(t, err, "evaluating %q should not fail", q)

	return ok
}

func Test_Evaluate_Matches_Terms_And_Phrases(t *testing.T) {
	t.Parallel()

	e := &query.Evaluator{}

	testCases := []struct {
		name          string
		query         string
		task          *task.Task
		caseSensitive bool
		want          bool
	}{
		{
			name:  "TermSubstring",
			query: "meet",
			task:  textTask("meeting about project planning"),
			want:  true,
		},
		{
			name:  "TermCaseInsensitiveByDefault",
			query: "MEETING",
			task:  textTask("meeting about project planning"),
			want:  true,
		},
		{
			name:          "TermCaseSensitive",
			query:         "MEETING",
			task:          textTask("meeting about project planning"),
			caseSensitive: true,
			want:          false,
		},
		{
			name:  "TermMatchesPath",
			query: "inbox",
			task:  textTask("unrelated"),
			want:  true,
		},
		{
			name:  "PhraseMatchesWholeWord",
			query: `"star"`,
			task:  textTask("star wars marathon"),
			want:  true,
		},
		{
			name:  "PhraseRejectsPartialWord",
			query: `"star"`,
			task:  textTask("starfish"),
			want:  false,
		},
		{
			name:  "PhraseMatchesAcrossEscapedQuotes",
			query: `"star wars"`,
			task:  textTask(`watch "star wars" movie`),
			want:  true,
		},
		{
			name:  "PhraseEscapesPunctuation",
			query: `"v1.2"`,
			task:  textTask("upgrade to v1x2"),
			want:  false,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := evalQuery(t, e, testCase.query, testCase.task, testCase.caseSensitive)
			assert.Equal(t, testCase.want, got, "query %q against %q", testCase.query, testCase.task.RawText)
		})
	}
}

func Test_Evaluate_Combines_Boolean_Operators(t *testing.T) {
	t.Parallel()

	e := &query.Evaluator{}

	meeting := textTask("meeting about project planning")
	personal := textTask("personal meetup with friends")
	unrelated := textTask("something else")
	workUrgent := textTask("work task, urgent")

	assert.True(t, evalQuery(t, e, "meeting OR personal", meeting, false), "meeting matches")
	assert.True(t, evalQuery(t, e, "meeting OR personal", personal, false), "personal matches")
	assert.False(t, evalQuery(t, e, "meeting OR personal", unrelated, false), "unrelated does not match")

	assert.False(t, evalQuery(t, e, "work -urgent", workUrgent, false), "NOT excludes the urgent task")
	assert.True(t, evalQuery(t, e, "work -urgent", textTask("work task"), false), "non-urgent work matches")

	assert.Equal(t,
		evalQuery(t, e, "foo bar", meeting, false),
		evalQuery(t, e, "foo AND bar", meeting, false),
		"adjacency behaves as explicit AND")

	assert.Equal(t,
		evalQuery(t, e, "meeting", meeting, false),
		evalQuery(t, e, "--meeting", meeting, false),
		"double negation is identity")
}

func Test_Evaluate_Short_Circuits_Boolean_Operators(t *testing.T) {
	t.Parallel()

	// The right operand is a property filter backed by a failing source, so
	// evaluating it would error. Short-circuiting means it is never reached.
	e := &query.Evaluator{Props: failingProps{}}
	tsk := textTask("alpha")

	node, err := query.Parse(query.Tokenize("zzz [key]"))
	require.NoError(t, err)

	ok, err := e.Evaluate(context.Background(), node, tsk, false)
	require.NoError(t, err, "AND must not evaluate the property filter after a false child")
	assert.False(t, ok)

	node, err = query.Parse(query.Tokenize("alpha OR [key]"))
	require.NoError(t, err)

	ok, err = e.Evaluate(context.Background(), node, tsk, false)
	require.NoError(t, err, "OR must not evaluate the property filter after a true child")
	assert.True(t, ok)
}

func Test_Evaluate_Matches_Field_Prefixes(t *testing.T) {
	t.Parallel()

	e := &query.Evaluator{}

	tsk := &task.Task{
		Path:     "projects/deathstar/plans.md",
		RawText:  "- [ ] review exhaust port design #context/work #review",
		Text:     "review exhaust port design",
		State:    "TODO",
		Priority: task.PriorityHigh,
	}

	testCases := []struct {
		name          string
		query         string
		caseSensitive bool
		want          bool
	}{
		{name: "PathSubstring", query: "path:deathstar", want: true},
		{name: "PathMiss", query: "path:alderaan", want: false},
		{name: "FileMatchesFilename", query: "file:plans", want: true},
		{name: "FileDoesNotSeeDirectories", query: "file:deathstar", want: false},
		{name: "ContentSubstring", query: "content:exhaust", want: true},
		{name: "StateEquality", query: "state:TODO", want: true},
		{name: "StateCaseInsensitiveAlways", query: "state:todo", caseSensitive: true, want: true},
		{name: "StateMiss", query: "state:DONE", want: false},
		{name: "PriorityKeyword", query: "priority:high", want: true},
		{name: "PriorityLetter", query: "priority:A", want: true},
		{name: "PriorityMiss", query: "priority:low", want: false},
		{name: "PriorityNoneMiss", query: "priority:none", want: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := evalQuery(t, e, testCase.query, tsk, testCase.caseSensitive)
			assert.Equal(t, testCase.want, got, "query %q", testCase.query)
		})
	}

	unprioritized := textTask("plain")
	assert.True(t, evalQuery(t, e, "priority:none", unprioritized, false), "none matches a task without priority")
}

func Test_Evaluate_Matches_Tags_Hierarchically(t *testing.T) {
	t.Parallel()

	e := &query.Evaluator{}

	testCases := []struct {
		name  string
		query string
		tag   string
		want  bool
	}{
		{name: "ExactTag", query: "tag:context", tag: "#context", want: true},
		{name: "ChildTag", query: "tag:context", tag: "#context/home", want: true},
		{name: "DeepChildTag", query: "tag:context", tag: "#context/work/meetings", want: true},
		{name: "UnrelatedTag", query: "tag:context", tag: "#unrelated", want: false},
		{name: "PrefixOfWordIsNotHierarchy", query: "tag:context", tag: "#contexts", want: false},
		{name: "QuotedRejectsChildren", query: `tag:"context"`, tag: "#context/home", want: false},
		{name: "QuotedMatchesExact", query: `tag:"context"`, tag: "#context", want: true},
		{name: "LeadingHashOnValueStripped", query: "tag:#context", tag: "#context/home", want: true},
		{name: "UrlFragmentIsNotATag", query: "tag:anchor", tag: "see https://example.com/page#anchor", want: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			tsk := textTask("do the thing " + testCase.tag)

			got := evalQuery(t, e, testCase.query, tsk, false)
			assert.Equal(t, testCase.want, got, "query %q against tag %q", testCase.query, testCase.tag)
		})
	}
}

func Test_Evaluate_Matches_Date_Filters_Against_Fixed_Now(t *testing.T) {
	t.Parallel()

	// fixedNow is Wednesday 2024-06-12.
	e := &query.Evaluator{Now: func() time.Time { return fixedNow }}

	scheduledOn := func(d time.Time) *task.Task {
		tsk := textTask("dated task")
		tsk.Scheduled = &d

		return tsk
	}

	testCases := []struct {
		name  string
		query string
		date  time.Time
		want  bool
	}{
		{name: "Today", query: "scheduled:today", date: day(2024, time.June, 12), want: true},
		{name: "TodayMissesYesterday", query: "scheduled:today", date: day(2024, time.June, 11), want: false},
		{name: "Tomorrow", query: "scheduled:tomorrow", date: day(2024, time.June, 13), want: true},
		{name: "Overdue", query: "scheduled:overdue", date: day(2024, time.June, 11), want: true},
		{name: "OverdueExcludesToday", query: "scheduled:overdue", date: day(2024, time.June, 12), want: false},
		{name: "DueIncludesToday", query: "scheduled:due", date: day(2024, time.June, 12), want: true},
		{name: "DueIncludesPast", query: "scheduled:due", date: day(2024, time.May, 1), want: true},
		{name: "DueExcludesFuture", query: "scheduled:due", date: day(2024, time.June, 13), want: false},
		{name: "ThisWeekStartsMonday", query: "scheduled:this week", date: day(2024, time.June, 10), want: true},
		{name: "ThisWeekEndsSunday", query: "scheduled:this week", date: day(2024, time.June, 16), want: true},
		{name: "ThisWeekExcludesNextMonday", query: "scheduled:this week", date: day(2024, time.June, 17), want: false},
		{name: "NextWeek", query: "scheduled:next week", date: day(2024, time.June, 17), want: true},
		{name: "ThisMonth", query: "scheduled:this month", date: day(2024, time.June, 30), want: true},
		{name: "NextMonth", query: "scheduled:next month", date: day(2024, time.July, 1), want: true},
		{name: "NextDaysIncludesToday", query: "scheduled:next 3 days", date: day(2024, time.June, 12), want: true},
		{name: "NextDaysIncludesBoundary", query: "scheduled:next 3 days", date: day(2024, time.June, 15), want: true},
		{name: "NextDaysExcludesBeyond", query: "scheduled:next 3 days", date: day(2024, time.June, 16), want: false},
		{name: "AbsoluteDay", query: "scheduled:2024-06-12", date: day(2024, time.June, 12), want: true},
		{name: "YearMonthWindow", query: "scheduled:2024-06", date: day(2024, time.June, 30), want: true},
		{name: "YearWindow", query: "scheduled:2024", date: day(2024, time.December, 31), want: true},
		{name: "RangeIncludesLiteralEndDay", query: "scheduled:2024-01-01..2024-01-31", date: day(2024, time.January, 31), want: true},
		{name: "RangeExcludesDayAfterEnd", query: "scheduled:2024-01-01..2024-01-31", date: day(2024, time.February, 1), want: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := evalQuery(t, e, testCase.query, scheduledOn(testCase.date), false)
			assert.Equal(t, testCase.want, got, "query %q against %s", testCase.query, testCase.date.Format("2006-01-02"))
		})
	}

	undated := textTask("no dates")
	assert.True(t, evalQuery(t, e, "scheduled:none", undated, false), "none matches a nil date")
	assert.False(t, evalQuery(t, e, "scheduled:today", undated, false), "nil date fails every other sub-filter")
	assert.False(t, evalQuery(t, e, "scheduled:2024-01-01..2024-12-31", undated, false), "nil date fails ranges")

	deadline := day(2024, time.June, 11)
	late := textTask("late task")
	late.Deadline = &deadline
	assert.True(t, evalQuery(t, e, "deadline:overdue", late, false), "deadline dispatches to the deadline field")
	assert.False(t, evalQuery(t, e, "scheduled:overdue", late, false), "scheduled does not read the deadline field")
}

func Test_Evaluate_Due_Equals_Today_Or_Overdue(t *testing.T) {
	t.Parallel()

	e := &query.Evaluator{Now: func() time.Time { return fixedNow }}

	for _, d := range []time.Time{
		day(2024, time.June, 10),
		day(2024, time.June, 12),
		day(2024, time.June, 14),
	} {
		tsk := textTask("dated")
		tsk.Scheduled = &d

		due := evalQuery(t, e, "scheduled:due", tsk, false)
		today := evalQuery(t, e, "scheduled:today", tsk, false)
		overdue := evalQuery(t, e, "scheduled:overdue", tsk, false)

		assert.Equal(t, today || overdue, due, "due is the union of today and overdue for %s", d.Format("2006-01-02"))
	}
}

func Test_Evaluate_Matches_Property_Filters(t *testing.T) {
	t.Parallel()

	props := mapProps{
		"notes/inbox.md": {
			"type":     "Project",
			"status":   nil,
			"tags":     []any{"home", "garden"},
			"priority": 3,
			"rating":   4.5,
			"empty":    "",
		},
	}

	e := &query.Evaluator{Props: props}
	tsk := textTask("anything")

	testCases := []struct {
		name          string
		query         string
		caseSensitive bool
		want          bool
	}{
		{name: "KeyOnlyExists", query: "[type]", want: true},
		{name: "KeyOnlyMatchesExplicitNull", query: "[status]", want: true},
		{name: "KeyOnlyMissing", query: "[missing]", want: false},
		{name: "NullLiteralMatchesNullValue", query: "[status:null]", want: true},
		{name: "NullLiteralRejectsEmptyString", query: "[empty:null]", want: false},
		{name: "NullLiteralRejectsMissingKey", query: "[missing:null]", want: false},
		{name: "SubstringMatch", query: "[type:Proj]", want: true},
		{name: "SubstringCaseInsensitive", query: "[type:project]", want: true},
		{name: "SubstringCaseSensitiveMiss", query: "[type:project]", caseSensitive: true, want: false},
		{name: "ExactRequiresFullValue", query: `[type:"Proj"]`, want: false},
		{name: "ExactMatchesFullValue", query: `[type:"Project"]`, want: true},
		{name: "ListStringifiesJoined", query: "[tags:garden]", want: true},
		{name: "ListExactAgainstJoinedForm", query: `[tags:"home, garden"]`, want: true},
		{name: "OrListAnyAlternative", query: "[type:Area OR Project]", want: true},
		{name: "OrListParenthesized", query: "[type:(Area OR Resource)]", want: false},
		{name: "GreaterThan", query: "[priority:>2]", want: true},
		{name: "GreaterThanMiss", query: "[priority:>3]", want: false},
		{name: "GreaterOrEqual", query: "[priority:>=3]", want: true},
		{name: "LessThanFloat", query: "[rating:<5]", want: true},
		{name: "LessOrEqual", query: "[rating:<=4.5]", want: true},
		{name: "ComparisonOnNonNumericFails", query: "[type:>1]", want: false},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := evalQuery(t, e, testCase.query, tsk, testCase.caseSensitive)
			assert.Equal(t, testCase.want, got, "query %q", testCase.query)
		})
	}
}

func Test_Evaluate_Treats_Missing_Metadata_As_No_Properties(t *testing.T) {
	t.Parallel()

	e := &query.Evaluator{Props: mapProps{}}
	tsk := textTask("anything")

	assert.False(t, evalQuery(t, e, "[type]", tsk, false), "no metadata fails a key-only filter")
	assert.True(t, evalQuery(t, e, "-[type]", tsk, false), "negated key-only filter matches")

	bare := &query.Evaluator{}
	assert.False(t, evalQuery(t, bare, "[type:Project]", tsk, false), "nil source behaves as no properties")
}

func Test_Evaluate_Propagates_Property_Lookup_Errors(t *testing.T) {
	t.Parallel()

	e := &query.Evaluator{Props: failingProps{}}

	node, err := query.Parse(query.Tokenize("[type:Project]"))
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), node, textTask("anything"), false)
	require.Error(t, err, "lookup failures are not swallowed")
	assert.ErrorIs(t, err, errLookupFailed)
}
