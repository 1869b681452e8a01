package model

import "time"

// EventSummary is the slice of an Event shown next to an announcement.
type EventSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	EventDate time.Time `json:"eventDate"`
	Location  string    `json:"location"`
}

// Announcement is an admin-authored post, optionally pointing at an Event.
// EventID is nil when the announcement is standalone or when the referenced
// event has been deleted.
type Announcement struct {
	ID          string        `json:"id"                    db:"id"         bson:"_id"`
	Title       string        `json:"title"                 db:"title"      bson:"title"`
	Content     string        `json:"content"               db:"content"    bson:"content"`
	EventID     *string       `json:"eventId"               db:"event_id"   bson:"event_id"`
	Event       *EventSummary `json:"event,omitempty"       db:"-"          bson:"-"`
	CreatedBy   string        `json:"createdBy"             db:"created_by" bson:"created_by"`
	CreatorName string        `json:"creatorName,omitempty" db:"-"          bson:"-"`
	Likes       []Like        `json:"likes"                 db:"-"          bson:"likes"`
	CreatedAt   time.Time     `json:"createdAt"             db:"created_at" bson:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt"             db:"updated_at" bson:"updated_at"`
	Version     int64         `json:"-"                     db:"-"          bson:"version"`
}

// ToggleLike has the same semantics as Event.ToggleLike.
func (a *Announcement) ToggleLike(userID string, now time.Time) bool {
	var liked bool
	a.Likes, liked = toggleLike(a.Likes, userID, now)
	return liked
}
