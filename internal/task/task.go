// Package task defines the read-only task record the query engine matches
// against. Tasks are produced by an extraction layer (see internal/vault);
// the engine never creates or mutates them.
package task

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Priority levels for a task. An empty Priority means the task has none.
const (
	PriorityHigh = "high"
	PriorityMed  = "med"
	PriorityLow  = "low"
)

// Task is a single to-do item extracted from a document.
type Task struct {
	// Path is the document path the task was extracted from, relative to the
	// vault root.
	Path string

	// RawText is the original source line. Tag and content matching run
	// against it.
	RawText string

	// Text is the display text (raw line minus checkbox and annotations).
	Text string

	// State is the task state keyword, e.g. "TODO" or "DONE".
	State string

	// Completed reports whether the task is done.
	Completed bool

	// Priority is one of PriorityHigh, PriorityMed, PriorityLow, or empty.
	Priority string

	// Scheduled and Deadline are nil when the task carries no such date.
	Scheduled *time.Time
	Deadline  *time.Time

	// Urgency is a derived score, nil when not computed.
	Urgency *float64

	// Line is the 1-based line number in the source document.
	Line int
}

// Filename returns the final path segment of the task's document.
func (t *Task) Filename() string {
	return filepath.Base(t.Path)
}

// tagPattern matches hashtags in raw task text. The leading boundary excludes
// URL fragments: '#' must follow start-of-line, whitespace, or an opening
// parenthesis, never another non-space character.
var tagPattern = regexp.MustCompile(`(?:^|[\s(])#([\pL\pN_][\pL\pN_/-]*)`)

// Tags extracts the hashtags from the task's raw text, without the leading
// '#'. Order follows appearance; duplicates are kept.
func (t *Task) Tags() []string {
	matches := tagPattern.FindAllStringSubmatch(t.RawText, -1)
	if len(matches) == 0 {
		return nil
	}

	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}

	return tags
}

// HasTag reports whether the task carries the exact tag (case-insensitive,
// leading '#' on the argument optional).
func (t *Task) HasTag(tag string) bool {
	tag = strings.TrimPrefix(tag, "#")

	for _, candidate := range t.Tags() {
		if strings.EqualFold(candidate, tag) {
			return true
		}
	}

	return false
}
