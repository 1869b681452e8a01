// Package repository declares the storage interfaces the services depend on.
//
// Two implementations exist: repository/sqlite (default, embedded) and
// repository/mongo. Both must honour the same contract:
//
//   - Get*/Mutate*/Delete* return an apperror NotFound when the target is absent.
//   - Mutate* loads the aggregate, calls fn, and persists the result as one
//     all-or-nothing unit. If fn returns an error nothing is written and the
//     error is returned unchanged. Concurrent Mutate* calls on the same
//     aggregate never interleave their read-modify-write.
//   - Create*/Mutate* on users return an apperror Conflict when a unique
//     field (username, email, github id) is already taken.
package repository

import (
	"context"

	"github.com/sakif/eventhub/internal/model"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context, filter EventFilter) ([]model.Event, error)
	// ListEventsByIDs returns the events that still exist, in no particular order.
	ListEventsByIDs(ctx context.Context, ids []string) ([]model.Event, error)
	MutateEvent(ctx context.Context, id string, fn func(*model.Event) error) (*model.Event, error)
	// DeleteEvent removes the event with all embedded likes, comments and
	// ratings, drops it from every user's favorites, and clears the event
	// reference of announcements pointing at it.
	DeleteEvent(ctx context.Context, id string) error
}

type AnnouncementRepository interface {
	CreateAnnouncement(ctx context.Context, a *model.Announcement) error
	GetAnnouncement(ctx context.Context, id string) (*model.Announcement, error)
	// ListAnnouncements returns every announcement, newest first.
	ListAnnouncements(ctx context.Context) ([]model.Announcement, error)
	MutateAnnouncement(ctx context.Context, id string, fn func(*model.Announcement) error) (*model.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	MutateUser(ctx context.Context, id string, fn func(*model.User) error) (*model.User, error)
	// Usernames maps user IDs to usernames. Unknown IDs are left out.
	Usernames(ctx context.Context, ids []string) (map[string]string, error)
}

// Store is everything a backend provides. *sqlite.DB and *mongo.Store
// satisfy it.
type Store interface {
	EventRepository
	AnnouncementRepository
	UserRepository
	Close() error
}
