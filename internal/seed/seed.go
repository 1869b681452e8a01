// Package seed fills an empty store with demo accounts, events and
// announcements. It is used by `eventctl seed` and by tests that need a
// realistic dataset.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

// AdminEmail identifies the seeded admin. Its presence marks a store as
// already seeded.
const AdminEmail = "admin@eventhub.local"

// Result reports what Run wrote.
type Result struct {
	Users         int
	Events        int
	Announcements int
	Skipped       bool // the store was already seeded; nothing was written
}

type account struct {
	username, email, password string
	role                      model.Role
}

var accounts = []account{
	{"admin", AdminEmail, "admin123", model.RoleAdmin},
	{"john_doe", "john@example.com", "password123", model.RoleUser},
	{"jane_smith", "jane@example.com", "password123", model.RoleUser},
}

type eventSeed struct {
	title, description, location string
	category                     model.Category
	offset                       time.Duration // eventDate relative to now
	creator                      int           // index into accounts
}

const day = 24 * time.Hour

var events = []eventSeed{
	{"Go Workshop for Beginners", "A full day of Go fundamentals: syntax, goroutines, channels and the standard library. Bring a laptop.", "Dhaka, Banani Hall 3", model.CategoryEducation, 5 * day, 0},
	{"Cloud Native Conference", "Two tracks of talks on containers, service meshes and observability, followed by hands-on workshops.", "Chattogram, Radisson Blu", model.CategoryTechnology, 15 * day, 0},
	{"Open Air Music Festival", "Live bands, food stalls and a night stage. Tickets include entry to all three stages.", "Sylhet, Tea Garden Grounds", model.CategoryEntertainment, 30 * day, 1},
	{"Five-a-side Football Cup", "An amateur tournament open to teams of every level. Register your squad at the venue desk.", "Dhaka, Army Stadium", model.CategorySports, 10 * day, 2},
	{"Startup Funding Seminar", "Founders and investors explain how seed rounds work and which early mistakes to avoid.", "Dhaka, Tech Hub Gulshan", model.CategoryBusiness, 3 * day, 0},
	{"Contemporary Art Exhibition", "Installations, video art and paintings by emerging artists from across the region.", "Khulna, City Art Gallery", model.CategoryArts, 7 * day, 1},
	{"Charity Fun Run", "A 10k community run. All registration fees go to local children's shelters.", "Rajshahi, Padma Riverside", model.CategorySocial, 20 * day, 2},
	{"Web Development Webinar", "A recorded session on modern web tooling that more than two hundred developers attended live.", "Online", model.CategoryEducation, -5 * day, 0},
}

type announcementSeed struct {
	title, content string
	event          int // index into events, -1 for none
	creator        int
}

var announcements = []announcementSeed{
	{"New registration rules", "From next month every event registration requires a verified email address.", 0, 0},
	{"The new platform is live", "We have launched a faster version of eventhub with a redesigned event page. Thanks for testing it with us!", -1, 0},
	{"Volunteer call for the fun run", "We are looking for twenty volunteers to help at the water stations during the charity run.", 6, 0},
	{"Thank you, webinar attendees", "Thanks to everyone who joined the web development webinar. The recording is now available.", 7, 0},
}

// Run writes the demo dataset unless the admin account already exists.
// Passwords are hashed with passwords; now anchors every event date.
func Run(ctx context.Context, store repository.Store, passwords *auth.PasswordService, now time.Time) (Result, error) {
	_, err := store.GetUserByEmail(ctx, AdminEmail)
	if err == nil {
		return Result{Skipped: true}, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return Result{}, fmt.Errorf("seed: checking for existing data: %w", err)
	}

	var res Result
	now = now.UTC()

	users := make([]*model.User, len(accounts))
	for i, a := range accounts {
		hash, err := passwords.Hash(a.password)
		if err != nil {
			return res, fmt.Errorf("seed: hashing password for %s: %w", a.username, err)
		}
		users[i] = &model.User{
			Username:       a.username,
			Email:          a.email,
			PasswordHash:   hash,
			Role:           a.role,
			FavoriteEvents: []string{},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := store.CreateUser(ctx, users[i]); err != nil {
			return res, fmt.Errorf("seed: creating user %s: %w", a.username, err)
		}
		res.Users++
	}
	admin, john, jane := users[0], users[1], users[2]

	created := make([]*model.Event, len(events))
	for i, e := range events {
		ev := &model.Event{
			ID:          xid.New().String(),
			Title:       e.title,
			Description: e.description,
			Category:    e.category,
			EventDate:   now.Add(e.offset),
			Location:    e.location,
			CreatedBy:   users[e.creator].ID,
			Likes:       []model.Like{},
			Comments:    []model.Comment{},
			Ratings:     []model.Rating{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		interact(ev, now, admin, john, jane)
		if err := store.CreateEvent(ctx, ev); err != nil {
			return res, fmt.Errorf("seed: creating event %q: %w", e.title, err)
		}
		created[i] = ev
		res.Events++
	}

	for i, a := range announcements {
		ann := &model.Announcement{
			ID:        xid.New().String(),
			Title:     a.title,
			Content:   a.content,
			CreatedBy: users[a.creator].ID,
			Likes:     []model.Like{},
			// one second apart so newest-first ordering is deterministic
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			UpdatedAt: now.Add(time.Duration(i) * time.Second),
		}
		if a.event >= 0 {
			id := created[a.event].ID
			ann.EventID = &id
		}
		if err := store.CreateAnnouncement(ctx, ann); err != nil {
			return res, fmt.Errorf("seed: creating announcement %q: %w", a.title, err)
		}
		res.Announcements++
	}

	if _, err := store.MutateUser(ctx, john.ID, func(u *model.User) error {
		u.ToggleFavorite(created[0].ID)
		u.ToggleFavorite(created[1].ID)
		return nil
	}); err != nil {
		return res, fmt.Errorf("seed: adding favorites: %w", err)
	}

	return res, nil
}

// interact gives the sample events some social activity: likes on
// everything, a comment thread, and ratings on events that already happened.
func interact(ev *model.Event, now time.Time, admin, john, jane *model.User) {
	ev.ToggleLike(john.ID, now)
	if ev.Category == model.CategoryTechnology || ev.Category == model.CategoryEducation {
		ev.ToggleLike(jane.ID, now)
		ev.AddComment(model.Comment{ID: xid.New().String(), UserID: john.ID, Content: "Looking forward to this!", Likes: []string{jane.ID}, CreatedAt: now})
		ev.AddComment(model.Comment{ID: xid.New().String(), UserID: admin.ID, Content: "Seats are limited, register early.", Likes: []string{}, CreatedAt: now.Add(time.Second)})
	}
	if ev.HasOccurred(now) {
		ev.Rate(john.ID, 5, now)
		ev.Rate(jane.ID, 4, now)
	}
}
