package vault

import (
	"regexp"
	"strings"
	"time"

	"github.com/tasksearch/tsk/internal/task"
)

// checkboxPattern matches one markdown checklist line. The checkbox character
// maps onto the task state.
var checkboxPattern = regexp.MustCompile(`^\s*[-*] \[( |x|X|/|-)\] (.*)$`)

// Task states produced by extraction.
const (
	StateTodo       = "TODO"
	StateDone       = "DONE"
	StateInProgress = "IN_PROGRESS"
	StateCancelled  = "CANCELLED"
)

var (
	scheduledPattern = regexp.MustCompile(`@scheduled\((\d{4}-\d{2}-\d{2})\)`)
	deadlinePattern  = regexp.MustCompile(`@deadline\((\d{4}-\d{2}-\d{2})\)`)
	priorityPattern  = regexp.MustCompile(`@(high|med|low)\b`)
)

// ExtractTasks pulls one task per checklist line out of a document. Lines
// that are not checklist items are ignored; a checklist line is never an
// error, malformed annotations just stay in the text.
func ExtractTasks(path, content string, now time.Time) []task.Task {
	var tasks []task.Task

	for i, line := range strings.Split(content, "\n") {
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		state := checkboxState(m[1])

		t := task.Task{
			Path:      path,
			RawText:   line,
			State:     state,
			Completed: state == StateDone || state == StateCancelled,
			Line:      i + 1,
		}

		body := m[2]

		if dm := scheduledPattern.FindStringSubmatch(body); dm != nil {
			if date, err := time.Parse("2006-01-02", dm[1]); err == nil {
				t.Scheduled = &date
			}
		}

		if dm := deadlinePattern.FindStringSubmatch(body); dm != nil {
			if date, err := time.Parse("2006-01-02", dm[1]); err == nil {
				t.Deadline = &date
			}
		}

		if pm := priorityPattern.FindStringSubmatch(body); pm != nil {
			t.Priority = pm[1]
		}

		t.Text = displayText(body)

		if !t.Completed {
			urgency := urgencyScore(&t, now)
			t.Urgency = &urgency
		}

		tasks = append(tasks, t)
	}

	return tasks
}

// Tasks extracts every task in the vault, in file walk order.
func (v *Vault) Tasks(now time.Time) ([]task.Task, error) {
	files, err := v.Files()
	if err != nil {
		return nil, err
	}

	var tasks []task.Task

	for _, file := range files {
		data, readErr := v.ReadFile(file)
		if readErr != nil {
			return nil, readErr
		}

		tasks = append(tasks, ExtractTasks(file, string(data), now)...)
	}

	return tasks, nil
}

func checkboxState(box string) string {
	switch box {
	case "x", "X":
		return StateDone
	case "/":
		return StateInProgress
	case "-":
		return StateCancelled
	default:
		return StateTodo
	}
}

// displayText strips the recognized annotations and collapses the whitespace
// they leave behind.
func displayText(body string) string {
	text := scheduledPattern.ReplaceAllString(body, "")
	text = deadlinePattern.ReplaceAllString(text, "")
	text = priorityPattern.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}

// urgencyScore derives a sorting score from priority and deadline proximity.
// Priority contributes a fixed weight; a deadline contributes more the closer
// it is, and overdue tasks get the full deadline weight plus an overdue
// bonus.
func urgencyScore(t *task.Task, now time.Time) float64 {
	var score float64

	switch t.Priority {
	case task.PriorityHigh:
		score += 6
	case task.PriorityMed:
		score += 3
	case task.PriorityLow:
		score += 1
	}

	if t.Deadline != nil {
		days := t.Deadline.Sub(now).Hours() / 24

		switch {
		case days < 0:
			score += 12
		case days < 7:
			score += 8 * (1 - days/7)
		case days < 30:
			score += 2 * (1 - days/30)
		}
	}

	return score
}
