package repository

import (
	"strings"
	"time"

	"github.com/sakif/eventhub/internal/model"
)

// DateWindow restricts events relative to EventFilter.Now.
type DateWindow string

const (
	WindowAny      DateWindow = ""
	WindowUpcoming DateWindow = "upcoming" // eventDate >= now
	WindowPast     DateWindow = "past"     // eventDate < now
)

// EventFilter is the read-side query over events. Every set field narrows the
// result (logical AND); the zero value matches everything. Results are always
// ordered by EventDate ascending.
type EventFilter struct {
	Category model.Category // exact match; empty = any
	Search   string         // case-insensitive substring of title OR description
	Window   DateWindow
	Now      time.Time
}

// NewEventFilter builds a filter from raw query-string values. Malformed
// input never fails: an unknown category or date value simply applies no
// constraint.
func NewEventFilter(category, search, date string, now time.Time) EventFilter {
	f := EventFilter{
		Search: strings.TrimSpace(search),
		Now:    now,
	}
	if c := model.Category(strings.TrimSpace(category)); c.Valid() {
		f.Category = c
	}
	switch DateWindow(strings.TrimSpace(date)) {
	case WindowUpcoming:
		f.Window = WindowUpcoming
	case WindowPast:
		f.Window = WindowPast
	}
	return f
}

// Matches evaluates the filter against one event in memory. Stores that can
// push the filter down (SQL, BSON) must agree with this predicate.
func (f EventFilter) Matches(e *model.Event) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(e.Description), needle) {
			return false
		}
	}
	switch f.Window {
	case WindowUpcoming:
		if e.EventDate.Before(f.Now) {
			return false
		}
	case WindowPast:
		if !e.EventDate.Before(f.Now) {
			return false
		}
	}
	return true
}
