package query

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateKind tags the shape of a resolved date value.
type DateKind int

// DateValue shapes.
const (
	// DateAbsolute is a literal date, possibly with reduced precision.
	DateAbsolute DateKind = iota

	// DateRange is an inclusive start..end span, stored end-exclusive.
	DateRange

	// DateRelative is one of the fixed relative keywords, left unresolved for
	// the evaluator to interpret against "now".
	DateRelative
)

// Precision describes how much of an absolute date was written out.
type Precision int

// Absolute date precisions.
const (
	PrecisionDay Precision = iota
	PrecisionMonth
	PrecisionYear
)

// RelativeDate enumerates the fixed relative-keyword vocabulary.
type RelativeDate int

// Relative date keywords.
const (
	RelNone RelativeDate = iota
	RelOverdue
	RelToday
	RelTomorrow
	RelDue
	RelThisWeek
	RelNextWeek
	RelThisMonth
	RelNextMonth
	RelNextDays
)

// DateValue is the resolved form of a date-valued filter.
type DateValue struct {
	Kind      DateKind
	Date      time.Time // absolute value, start of its span
	Precision Precision
	Start     time.Time // range start (inclusive)
	End       time.Time // range end (exclusive: the day after the literal end)
	Rel       RelativeDate
	Days      int // N for "next N days"
}

// errUnknownDate reports a date value the resolver cannot interpret. The
// evaluator turns it into a non-match rather than an error.
var errUnknownDate = errors.New("unrecognized date value")

var (
	fullDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearMonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
	yearPattern      = regexp.MustCompile(`^\d{4}$`)
	nextDaysPattern  = regexp.MustCompile(`^next (\d+) days?$`)
)

// naturalDates parses quoted free-form date expressions like "next friday".
var naturalDates = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	return w
}()

// ResolveDate parses the text of a date-valued filter. quoted reports whether
// the value was quoted in the query; only quoted values fall through to the
// natural-language parser. now anchors that fallback.
func ResolveDate(text string, quoted bool, now time.Time) (DateValue, error) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if rel, ok := relativeKeyword(lower); ok {
		return DateValue{Kind: DateRelative, Rel: rel}, nil
	}

	if m := nextDaysPattern.FindStringSubmatch(lower); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil && days > 0 {
			return DateValue{Kind: DateRelative, Rel: RelNextDays, Days: days}, nil
		}
	}

	if start, end, ok := strings.Cut(trimmed, ".."); ok {
		return resolveRange(start, end)
	}

	if date, precision, err := resolveAbsolute(trimmed); err == nil {
		return DateValue{Kind: DateAbsolute, Date: date, Precision: precision}, nil
	}

	if quoted {
		if result, err := naturalDates.Parse(trimmed, now); err == nil && result != nil {
			return DateValue{Kind: DateAbsolute, Date: dayStart(result.Time), Precision: PrecisionDay}, nil
		}
	}

	return DateValue{}, errUnknownDate
}

// ResolveRange resolves the two endpoints of a start..end filter into an
// end-exclusive span. Either endpoint may be a year, year-month, or full
// date; the span covers both endpoints' full calendar windows.
func ResolveRange(start, end string) (DateValue, error) {
	return resolveRange(start, end)
}

func resolveRange(start, end string) (DateValue, error) {
	startDate, startPrecision, err := resolveAbsolute(strings.TrimSpace(start))
	if err != nil {
		return DateValue{}, err
	}

	endDate, endPrecision, err := resolveAbsolute(strings.TrimSpace(end))
	if err != nil {
		return DateValue{}, err
	}

	lo, _ := precisionWindow(startDate, startPrecision)
	_, hi := precisionWindow(endDate, endPrecision)

	return DateValue{Kind: DateRange, Start: lo, End: hi}, nil
}

func relativeKeyword(lower string) (RelativeDate, bool) {
	switch lower {
	case "none":
		return RelNone, true
	case "overdue":
		return RelOverdue, true
	case "today":
		return RelToday, true
	case "tomorrow":
		return RelTomorrow, true
	case "due":
		return RelDue, true
	case "this week":
		return RelThisWeek, true
	case "next week":
		return RelNextWeek, true
	case "this month":
		return RelThisMonth, true
	case "next month":
		return RelNextMonth, true
	default:
		return 0, false
	}
}

// resolveAbsolute parses a literal date value. A year-only value normalizes
// to January 1st, a year-month value to the first of that month; the
// precision records the original shape so callers can widen it back into a
// window.
func resolveAbsolute(text string) (time.Time, Precision, error) {
	switch {
	case fullDatePattern.MatchString(text):
		date, err := time.Parse("2006-01-02", text)
		if err != nil {
			return time.Time{}, 0, errUnknownDate
		}

		return date, PrecisionDay, nil

	case yearMonthPattern.MatchString(text):
		date, err := time.Parse("2006-01", text)
		if err != nil {
			return time.Time{}, 0, errUnknownDate
		}

		return date, PrecisionMonth, nil

	case yearPattern.MatchString(text):
		date, err := time.Parse("2006", text)
		if err != nil {
			return time.Time{}, 0, errUnknownDate
		}

		return date, PrecisionYear, nil

	default:
		return time.Time{}, 0, errUnknownDate
	}
}

// precisionWindow widens an absolute date to the inclusive calendar span its
// precision implies, returned as [start, end).
func precisionWindow(date time.Time, precision Precision) (time.Time, time.Time) {
	switch precision {
	case PrecisionMonth:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())

		return start, start.AddDate(0, 1, 0)
	case PrecisionYear:
		start := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, date.Location())

		return start, start.AddDate(1, 0, 0)
	default:
		start := dayStart(date)

		return start, start.AddDate(0, 0, 1)
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekStart returns the Monday of t's ISO week.
func weekStart(t time.Time) time.Time {
	day := dayStart(t)
	offset := (int(day.Weekday()) + 6) % 7

	return day.AddDate(0, 0, -offset)
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
