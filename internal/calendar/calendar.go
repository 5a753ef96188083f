// Package calendar implements the calendar view state and its date ranges.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"planner/internal/common"
)

// View is the calendar zoom level.
type View string

const (
	Day     View = "day"
	Week    View = "week"
	Month   View = "month"
	Quarter View = "quarter"
)

// DefaultView is the view a fresh calendar opens with.
const DefaultView = Month

// ParseView accepts a view name; empty selects DefaultView.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return DefaultView, nil
	case Day, Week, Month, Quarter:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown calendar view %q", common.ErrValidation, s)
	}
}

// Navigator holds the current view and the anchor date.
type Navigator struct {
	View   View
	Anchor time.Time
}

// New returns a month view anchored at the day of now.
func New(now time.Time) *Navigator {
	return &Navigator{View: DefaultView, Anchor: StartOfDay(now)}
}

// SetView switches the zoom level. The anchor is kept.
func (n *Navigator) SetView(v View) {
	n.View = v
}

// Shortcut handles a keyboard shortcut: Ctrl+D selects the day view, Ctrl+W the
// week view. It reports whether the key was consumed.
func (n *Navigator) Shortcut(ctrl bool, key string) bool {
	if !ctrl {
		return false
	}
	switch key {
	case "d":
		n.View = Day
	case "w":
		n.View = Week
	default:
		return false
	}
	return true
}

// Navigate moves the anchor by steps units of the current view: days, weeks,
// or months for both the month and quarter views.
func (n *Navigator) Navigate(steps int) {
	switch n.View {
	case Day:
		n.Anchor = n.Anchor.AddDate(0, 0, steps)
	case Week:
		n.Anchor = n.Anchor.AddDate(0, 0, 7*steps)
	default:
		n.Anchor = AddMonths(n.Anchor, steps)
	}
}

// Today resets the anchor to the day of now.
func (n *Navigator) Today(now time.Time) {
	n.Anchor = StartOfDay(now)
}

// Range returns the first and last day covered by the current view.
func (n *Navigator) Range() (time.Time, time.Time) {
	a := StartOfDay(n.Anchor)
	switch n.View {
	case Day:
		return a, a
	case Week:
		start := StartOfWeek(a)
		return start, start.AddDate(0, 0, 6)
	case Quarter:
		first := QuarterStart(a)
		return first, AddMonths(first, 3).AddDate(0, 0, -1)
	default:
		first := StartOfMonth(a)
		return first, AddMonths(first, 1).AddDate(0, 0, -1)
	}
}

// Days enumerates every day in Range.
func (n *Navigator) Days() []time.Time {
	start, end := n.Range()
	return DaysBetween(start, end)
}

// Months returns the first day of each month in the current quarter.
func (n *Navigator) Months() []time.Time {
	first := QuarterStart(n.Anchor)
	return []time.Time{first, AddMonths(first, 1), AddMonths(first, 2)}
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	d := StartOfDay(t)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// QuarterStart returns the first day of t's calendar quarter.
func QuarterStart(t time.Time) time.Time {
	m := t.Month() - (t.Month()-1)%3
	return time.Date(t.Year(), m, 1, 0, 0, 0, 0, t.Location())
}

// AddMonths adds n months, clamping the day to the target month's length
// (Jan 31 + 1 month is Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first)
	day := t.Day()
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(first time.Time) int {
	return time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, first.Location()).Day()
}

// DaysBetween lists each day from start to end inclusive.
func DaysBetween(start, end time.Time) []time.Time {
	start, end = StartOfDay(start), StartOfDay(end)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
