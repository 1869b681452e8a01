package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore is an in-memory repository.Store. It honours the same contract
// as the real stores: Mutate* runs fn under a lock on a private copy and
// only commits the copy if fn succeeds. Stored values are never handed out
// directly, so a test cannot mutate state behind the service's back.
//
// Setting failWith makes every call return that error (simulated outage).

type fakeStore struct {
	mu            sync.Mutex
	users         map[string]*model.User
	events        map[string]*model.Event
	announcements map[string]*model.Announcement
	failWith      error
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*model.User),
		events:        make(map[string]*model.Event),
		announcements: make(map[string]*model.Announcement),
	}
}

func (f *fakeStore) Close() error { return nil }

// ---- events ----

func (f *fakeStore) CreateEvent(_ context.Context, ev *model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.events[ev.ID] = cloneEvent(ev)
	return nil
}

func (f *fakeStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	ev, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	return cloneEvent(ev), nil
}

func (f *fakeStore) ListEvents(_ context.Context, filter repository.EventFilter) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Event{}
	for _, ev := range f.events {
		if filter.Matches(ev) {
			out = append(out, *cloneEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return out, nil
}

func (f *fakeStore) ListEventsByIDs(_ context.Context, ids []string) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Event{}
	for _, id := range ids {
		if ev, ok := f.events[id]; ok {
			out = append(out, *cloneEvent(ev))
		}
	}
	return out, nil
}

func (f *fakeStore) MutateEvent(_ context.Context, id string, fn func(*model.Event) error) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	stored, ok := f.events[id]
	if !ok {
		return nil, apperror.NotFound("event", id)
	}
	working := cloneEvent(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	f.events[id] = cloneEvent(working)
	return working, nil
}

func (f *fakeStore) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.events[id]; !ok {
		return apperror.NotFound("event", id)
	}
	delete(f.events, id)
	for _, u := range f.users {
		kept := u.FavoriteEvents[:0]
		for _, fav := range u.FavoriteEvents {
			if fav != id {
				kept = append(kept, fav)
			}
		}
		u.FavoriteEvents = kept
	}
	for _, a := range f.announcements {
		if a.EventID != nil && *a.EventID == id {
			a.EventID = nil
		}
	}
	return nil
}

// ---- announcements ----

func (f *fakeStore) CreateAnnouncement(_ context.Context, a *model.Announcement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.announcements[a.ID] = cloneAnnouncement(a)
	return nil
}

func (f *fakeStore) GetAnnouncement(_ context.Context, id string) (*model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	a, ok := f.announcements[id]
	if !ok {
		return nil, apperror.NotFound("announcement", id)
	}
	return cloneAnnouncement(a), nil
}

func (f *fakeStore) ListAnnouncements(_ context.Context) ([]model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []model.Announcement{}
	for _, a := range f.announcements {
		out = append(out, *cloneAnnouncement(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) MutateAnnouncement(_ context.Context, id string, fn func(*model.Announcement) error) (*model.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	stored, ok := f.announcements[id]
	if !ok {
		return nil, apperror.NotFound("announcement", id)
	}
	working := cloneAnnouncement(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	f.announcements[id] = cloneAnnouncement(working)
	return working, nil
}

func (f *fakeStore) DeleteAnnouncement(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.announcements[id]; !ok {
		return apperror.NotFound("announcement", id)
	}
	delete(f.announcements, id)
	return nil
}

// ---- users ----

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if err := f.checkUnique(u); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = "user-" + u.Username
	}
	f.users[u.ID] = cloneUser(u)
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	return f.findUser(id, func(u *model.User) bool { return u.ID == id })
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return f.findUser(email, func(u *model.User) bool { return u.Email == email })
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	return f.findUser("github", func(u *model.User) bool { return u.GitHubID != nil && *u.GitHubID == githubID })
}

func (f *fakeStore) MutateUser(_ context.Context, id string, fn func(*model.User) error) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	stored, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	working := cloneUser(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := f.checkUnique(working); err != nil {
		return nil, err
	}
	f.users[id] = cloneUser(working)
	return working, nil
}

func (f *fakeStore) Usernames(_ context.Context, ids []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	names := make(map[string]string)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			names[id] = u.Username
		}
	}
	return names, nil
}

func (f *fakeStore) findUser(key string, match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

// checkUnique must be called with f.mu held.
func (f *fakeStore) checkUnique(u *model.User) error {
	for _, other := range f.users {
		if other.ID == u.ID {
			continue
		}
		switch {
		case other.Username == u.Username:
			return apperror.Conflict("username is already taken")
		case other.Email == u.Email:
			return apperror.Conflict("email is already registered")
		case u.GitHubID != nil && other.GitHubID != nil && *u.GitHubID == *other.GitHubID:
			return apperror.Conflict("github account is already linked")
		}
	}
	return nil
}

// ---- deep copies ----

func cloneEvent(ev *model.Event) *model.Event {
	c := *ev
	c.Likes = append([]model.Like{}, ev.Likes...)
	c.Ratings = append([]model.Rating{}, ev.Ratings...)
	c.Comments = make([]model.Comment, len(ev.Comments))
	for i, cm := range ev.Comments {
		cm.Likes = append([]string{}, cm.Likes...)
		c.Comments[i] = cm
	}
	return &c
}

func cloneAnnouncement(a *model.Announcement) *model.Announcement {
	c := *a
	c.Likes = append([]model.Like{}, a.Likes...)
	if a.EventID != nil {
		id := *a.EventID
		c.EventID = &id
	}
	return &c
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.FavoriteEvents = append([]string{}, u.FavoriteEvents...)
	if u.GitHubID != nil {
		id := *u.GitHubID
		c.GitHubID = &id
	}
	return &c
}

// =========================================================================
// HELPERS
// =========================================================================

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	admin    = auth.Identity{UserID: "user-admin", Role: model.RoleAdmin}
	john     = auth.Identity{UserID: "user-john", Role: model.RoleUser}
	jane     = auth.Identity{UserID: "user-jane", Role: model.RoleUser}
	stranger = auth.Identity{UserID: "user-stranger", Role: model.RoleUser}
)

// seedUsers stores admin, john, jane and stranger.
func seedUsers(f *fakeStore) {
	for _, id := range []auth.Identity{admin, john, jane, stranger} {
		name := id.UserID[len("user-"):]
		f.users[id.UserID] = &model.User{
			ID:             id.UserID,
			Username:       name,
			Email:          name + "@example.com",
			Role:           id.Role,
			FavoriteEvents: []string{},
		}
	}
}

// putEvent stores an event created by owner at the given date.
func putEvent(f *fakeStore, id, owner string, category model.Category, at time.Time) {
	f.events[id] = &model.Event{
		ID:          id,
		Title:       "Event " + id,
		Description: "A description long enough to be valid",
		Category:    category,
		EventDate:   at,
		Location:    "Dhaka",
		CreatedBy:   owner,
		Likes:       []model.Like{},
		Comments:    []model.Comment{},
		Ratings:     []model.Rating{},
	}
}
