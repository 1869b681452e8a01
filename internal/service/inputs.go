package service

import (
	"strings"
	"time"

	"github.com/sakif/eventhub/internal/model"
)

// Rating bounds. Text field limits live in the validate tags below.
const (
	MinRating = 1
	MaxRating = 5
)

// EventInput is the full set of editable event fields. Create validates it
// directly; Update merges an EventPatch into the stored values and validates
// the result with the same rules.
type EventInput struct {
	Title       string         `json:"title"       validate:"required,min=5,max=200"`
	Description string         `json:"description" validate:"required,min=20,max=5000"`
	Category    model.Category `json:"category"    validate:"required,category"`
	EventDate   time.Time      `json:"eventDate"   validate:"required"`
	Location    string         `json:"location"    validate:"required"`
}

func (in *EventInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = model.Category(strings.TrimSpace(string(in.Category)))
	in.Location = strings.TrimSpace(in.Location)
	in.EventDate = in.EventDate.UTC()
}

// EventPatch is a partial update; nil fields keep their stored value.
type EventPatch struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Category    *model.Category `json:"category"`
	EventDate   *time.Time      `json:"eventDate"`
	Location    *string         `json:"location"`
}

func (p EventPatch) applyTo(ev *model.Event) EventInput {
	in := EventInput{
		Title:       ev.Title,
		Description: ev.Description,
		Category:    ev.Category,
		EventDate:   ev.EventDate,
		Location:    ev.Location,
	}
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.EventDate != nil {
		in.EventDate = *p.EventDate
	}
	if p.Location != nil {
		in.Location = *p.Location
	}
	return in
}

type CommentInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// RatingInput keeps the raw JSON number so that 4.5 is rejected as a
// non-integer instead of being truncated by the decoder.
type RatingInput struct {
	Rating float64 `json:"rating"`
}

// AnnouncementInput is used for create. EventID is optional; an empty
// string means "no event".
type AnnouncementInput struct {
	Title   string  `json:"title"   validate:"required,min=5,max=200"`
	Content string  `json:"content" validate:"required,min=20,max=5000"`
	EventID *string `json:"eventId"`
}

func (in *AnnouncementInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.EventID = normalizeRef(in.EventID)
}

// AnnouncementPatch is a partial update. An EventID of "" detaches the
// announcement from its event; nil leaves the reference alone.
type AnnouncementPatch struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	EventID *string `json:"eventId"`
}

func normalizeRef(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes72"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates username and/or email; empty fields are unchanged.
type ProfileInput struct {
	Username string `json:"username" validate:"omitempty,min=3,max=30"`
	Email    string `json:"email"    validate:"omitempty,email"`
}

func (in *ProfileInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
}

// Emails are stored lowercased so uniqueness is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
