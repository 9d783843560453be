package query_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasksearch/tsk/internal/query"
	"github.com/tasksearch/tsk/internal/task"
)

func Test_Engine_Evaluate_Matches_End_To_End(t *testing.T) {
	t.Parallel()

	e := query.NewEngine(query.Options{Now: func() time.Time { return fixedNow }})
	ctx := context.Background()

	scheduled := day(2024, time.June, 12)
	todoToday := &task.Task{
		Path:      "work/sprint.md",
		RawText:   "- [ ] standup meeting #context/work",
		Text:      "standup meeting",
		State:     "TODO",
		Scheduled: &scheduled,
	}

	ok, err := e.Evaluate(ctx, "scheduled:today state:TODO", todoToday, false)
	require.NoError(t, err)
	assert.True(t, ok, "scheduled today with TODO state matches")

	done := *todoToday
	done.State = "DONE"

	ok, err = e.Evaluate(ctx, "scheduled:today state:TODO", &done, false)
	require.NoError(t, err)
	assert.False(t, ok, "same task with DONE state does not match")
}

func Test_Engine_Evaluate_Returns_False_When_Query_Malformed(t *testing.T) {
	t.Parallel()

	e := query.NewEngine(query.Options{})
	ctx := context.Background()

	tasks := []*task.Task{
		textTask("meeting about project planning"),
		textTask("something else entirely"),
		textTask(""),
	}

	for _, tsk := range tasks {
		ok, err := e.Evaluate(ctx, "meeting OR", tsk, false)
		require.NoError(t, err, "a syntax error is not an evaluation error")
		assert.False(t, ok, "an invalid query matches nothing")
	}

	assert.False(t, e.Validate("meeting OR"), "Validate reports the syntax error")
	assert.True(t, e.Validate("meeting OR personal"), "Validate accepts a well-formed query")

	parseError := e.ParseError("meeting OR")
	require.NotNil(t, parseError, "ParseError surfaces the message")
	assert.Contains(t, parseError.Message, "unexpected end")
	assert.Nil(t, e.ParseError("meeting"), "ParseError is nil for a well-formed query")
}

func Test_Engine_Evaluate_Is_Deterministic_Under_Cache_Eviction(t *testing.T) {
	t.Parallel()

	e := query.NewEngine(query.Options{})
	ctx := context.Background()
	tsk := textTask("meeting about project planning")

	const probe = "meeting AND planning"

	want, err := e.Evaluate(ctx, probe, tsk, false)
	require.NoError(t, err)
	require.True(t, want, "probe query should match the fixture task")

	// Interleave the probe with enough unique queries to cycle the 50-entry
	// cache several times over. The boolean result must never change even
	// though the probe's cache entry is repeatedly evicted and re-inserted.
	for i := 0; i < 60; i++ {
		for j := 0; j < 3; j++ {
			_, err := e.Evaluate(ctx, fmt.Sprintf("filler%d-%d", i, j), tsk, false)
			require.NoError(t, err)
		}

		got, err := e.Evaluate(ctx, probe, tsk, false)
		require.NoError(t, err)
		assert.Equal(t, want, got, "iteration %d", i)
	}
}

func Test_Engine_Parse_Reuses_Cached_Trees(t *testing.T) {
	t.Parallel()

	e := query.NewEngine(query.Options{})

	first, err := e.Parse("meeting OR personal")
	require.NoError(t, err)

	second, err := e.Parse("meeting OR personal")
	require.NoError(t, err)

	assert.Same(t, first, second, "a cache hit returns the identical tree")

	e.ClearCache()

	third, err := e.Parse("meeting OR personal")
	require.NoError(t, err)
	assert.NotSame(t, first, third, "clearing the cache forces a reparse")
}

func Test_Engine_Parse_Keys_Cache_On_Exact_Query_String(t *testing.T) {
	t.Parallel()

	e := query.NewEngine(query.Options{})

	plain, err := e.Parse("meeting")
	require.NoError(t, err)

	padded, err := e.Parse(" meeting ")
	require.NoError(t, err)

	assert.NotSame(t, plain, padded, "no normalization: differently-spelled queries get their own entries")
}

func Test_Engine_Evicts_Oldest_Entry_First(t *testing.T) {
	t.Parallel()

	e := query.NewEngine(query.Options{CacheSize: 2})

	a1, err := e.Parse("a")
	require.NoError(t, err)

	_, err = e.Parse("b")
	require.NoError(t, err)

	// Re-reading "a" must not refresh its position: it is still the oldest
	// insertion, so the next new entry evicts it, not "b".
	a2, err := e.Parse("a")
	require.NoError(t, err)
	require.Same(t, a1, a2, "still cached before eviction")

	_, err = e.Parse("c")
	require.NoError(t, err)

	a3, err := e.Parse("a")
	require.NoError(t, err)
	assert.NotSame(t, a1, a3, "FIFO eviction drops the oldest insertion even after a recent read")
}

func Test_Engine_Propagates_Property_Lookup_Errors_Through_Evaluate(t *testing.T) {
	t.Parallel()

	e := query.NewEngine(query.Options{Properties: failingProps{}})

	_, err := e.Evaluate(context.Background(), "[type:Project]", textTask("anything"), false)
	require.Error(t, err, "only syntax errors become false results")
	assert.ErrorIs(t, err, errLookupFailed)
}
