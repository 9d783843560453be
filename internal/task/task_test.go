package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tasksearch/tsk/internal/task"
)

func Test_Tags_Extracts_Hashtags_From_RawText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "single tag",
			raw:  "- [ ] water plants #home",
			want: []string{"home"},
		},
		{
			name: "hierarchical tags",
			raw:  "- [ ] review PR #work/reviews #work",
			want: []string{"work/reviews", "work"},
		},
		{
			name: "tag at line start",
			raw:  "#inbox triage later",
			want: []string{"inbox"},
		},
		{
			name: "tag after open paren",
			raw:  "- [ ] call bank (#errand)",
			want: []string{"errand"},
		},
		{
			name: "url fragment is not a tag",
			raw:  "- [ ] read https://example.com/page#section",
			want: nil,
		},
		{
			name: "url fragment next to real tag",
			raw:  "- [ ] read https://example.com/#top #reading",
			want: []string{"reading"},
		},
		{
			name: "no tags",
			raw:  "- [ ] plain task",
			want: nil,
		},
		{
			name: "dash and underscore in tag",
			raw:  "- [ ] #in-progress_items",
			want: []string{"in-progress_items"},
		},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			tsk := task.Task{RawText: testCase.raw}
			assert.Equal(t, testCase.want, tsk.Tags())
		})
	}
}

func Test_HasTag_Ignores_Case_And_Leading_Hash(t *testing.T) {
	t.Parallel()

	tsk := task.Task{RawText: "- [ ] ship release #Work/Deploys"}

	assert.True(t, tsk.HasTag("work/deploys"))
	assert.True(t, tsk.HasTag("#Work/Deploys"))
	assert.False(t, tsk.HasTag("work"))
}

func Test_Filename_Returns_Last_Path_Segment(t *testing.T) {
	t.Parallel()

	tsk := task.Task{Path: "projects/apollo/launch.md"}
	assert.Equal(t, "launch.md", tsk.Filename())
}
