package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/eventhub/internal/model"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func TestNewEventFilter(t *testing.T) {
	tests := []struct {
		name                   string
		category, search, date string
		want                   EventFilter
	}{
		{"empty input", "", "", "", EventFilter{Now: now}},
		{"all set", "technology", " go ", "upcoming", EventFilter{Category: model.CategoryTechnology, Search: "go", Window: WindowUpcoming, Now: now}},
		{"past", "", "", "past", EventFilter{Window: WindowPast, Now: now}},
		{"unknown category ignored", "music", "", "", EventFilter{Now: now}},
		{"unknown date ignored", "", "", "yesterday", EventFilter{Now: now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewEventFilter(tt.category, tt.search, tt.date, now))
		})
	}
}

func TestEventFilterMatches_Composition(t *testing.T) {
	a := &model.Event{ID: "A", Category: model.CategoryTechnology, EventDate: now.Add(24 * time.Hour)}
	b := &model.Event{ID: "B", Category: model.CategoryTechnology, EventDate: now.Add(-24 * time.Hour)}
	c := &model.Event{ID: "C", Category: model.CategoryArts, EventDate: now.Add(24 * time.Hour)}

	f := NewEventFilter("technology", "", "upcoming", now)

	var got []string
	for _, e := range []*model.Event{a, b, c} {
		if f.Matches(e) {
			got = append(got, e.ID)
		}
	}
	assert.Equal(t, []string{"A"}, got)
}

func TestEventFilterMatches_Search(t *testing.T) {
	e := &model.Event{Title: "Go Meetup", Description: "Talks about CONCURRENCY patterns"}

	assert.True(t, EventFilter{Search: "meetup"}.Matches(e), "title, case-insensitive")
	assert.True(t, EventFilter{Search: "concurrency"}.Matches(e), "description, case-insensitive")
	assert.False(t, EventFilter{Search: "rust"}.Matches(e))
	assert.True(t, EventFilter{Search: "a.b"}.Matches(&model.Event{Title: "a.b"}), "literal, not a pattern")
	assert.False(t, EventFilter{Search: "a.b"}.Matches(&model.Event{Title: "axb"}))
}

func TestEventFilterMatches_WindowBoundary(t *testing.T) {
	e := &model.Event{EventDate: now}

	assert.True(t, EventFilter{Window: WindowUpcoming, Now: now}.Matches(e), "eventDate == now is upcoming")
	assert.False(t, EventFilter{Window: WindowPast, Now: now}.Matches(e))
	assert.True(t, EventFilter{}.Matches(e), "zero filter matches everything")
}
