package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

func newTestAnnouncementService(t *testing.T) (*AnnouncementService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	seedUsers(store)
	svc := NewAnnouncementService(store, store, store, discardLogger())
	svc.now = fixedClock
	return svc, store
}

func validAnnouncement() AnnouncementInput {
	return AnnouncementInput{
		Title:   "Registration open",
		Content: "Registration for the autumn meetups is now open.",
	}
}

func ptr[T any](v T) *T { return &v }

func TestAnnouncementCreate(t *testing.T) {
	svc, store := newTestAnnouncementService(t)
	ctx := context.Background()
	putEvent(store, "e1", admin.UserID, model.CategoryTechnology, testNow)

	_, err := svc.Create(ctx, john, validAnnouncement())
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	in := validAnnouncement()
	in.EventID = ptr(" e1 ")
	a, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, "admin", a.CreatorName)
	require.NotNil(t, a.EventID)
	assert.Equal(t, "e1", *a.EventID)
	require.NotNil(t, a.Event)
	assert.Equal(t, "Event e1", a.Event.Title)

	in.EventID = ptr("")
	standalone, err := svc.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Nil(t, standalone.EventID, "empty reference means no event")
	assert.Nil(t, standalone.Event)
}

func TestAnnouncementCreate_Validation(t *testing.T) {
	svc, store := newTestAnnouncementService(t)
	ctx := context.Background()

	in := validAnnouncement()
	in.EventID = ptr("missing")
	_, err := svc.Create(ctx, admin, in)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.EqualError(t, err, "referenced event does not exist")

	in = validAnnouncement()
	in.Content = strings.Repeat("x", 5001)
	_, err = svc.Create(ctx, admin, in)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	assert.Empty(t, store.announcements)
}

func TestAnnouncementUpdate(t *testing.T) {
	svc, store := newTestAnnouncementService(t)
	ctx := context.Background()
	putEvent(store, "e1", admin.UserID, model.CategoryTechnology, testNow)
	store.announcements["a1"] = &model.Announcement{
		ID: "a1", Title: "Old title", Content: "Old content long enough to pass", EventID: ptr("e1"),
		CreatedBy: admin.UserID, Likes: []model.Like{}, CreatedAt: testNow.Add(-time.Hour),
	}

	_, err := svc.Update(ctx, john, "a1", AnnouncementPatch{Title: ptr("Hijacked!")})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	a, err := svc.Update(ctx, admin, "a1", AnnouncementPatch{Title: ptr("  New title  ")})
	require.NoError(t, err)
	assert.Equal(t, "New title", a.Title)
	assert.Equal(t, "e1", *a.EventID, "nil patch keeps the reference")
	assert.Equal(t, testNow, a.UpdatedAt)

	a, err = svc.Update(ctx, admin, "a1", AnnouncementPatch{EventID: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, a.EventID, "empty string detaches")

	_, err = svc.Update(ctx, admin, "a1", AnnouncementPatch{EventID: ptr("missing")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Update(ctx, admin, "a1", AnnouncementPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Equal(t, "New title", store.announcements["a1"].Title)

	_, err = svc.Update(ctx, admin, "nope", AnnouncementPatch{Title: ptr("Valid title")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAnnouncementDelete(t *testing.T) {
	svc, store := newTestAnnouncementService(t)
	ctx := context.Background()
	store.announcements["a1"] = &model.Announcement{ID: "a1", CreatedBy: admin.UserID}

	assert.ErrorIs(t, svc.Delete(ctx, john, "a1"), apperror.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, "a1"))
	assert.ErrorIs(t, svc.Delete(ctx, admin, "a1"), apperror.ErrNotFound)
}

func TestAnnouncementList_NewestFirstAfterEventDeleted(t *testing.T) {
	svc, store := newTestAnnouncementService(t)
	ctx := context.Background()
	events := NewEventService(store, store, discardLogger())
	putEvent(store, "e1", admin.UserID, model.CategoryTechnology, testNow)
	store.announcements["old"] = &model.Announcement{ID: "old", CreatedBy: admin.UserID, EventID: ptr("e1"), CreatedAt: testNow.Add(-time.Hour)}
	store.announcements["new"] = &model.Announcement{ID: "new", CreatedBy: admin.UserID, CreatedAt: testNow}

	require.NoError(t, events.Delete(ctx, admin, "e1"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)
	assert.Nil(t, list[1].EventID, "reference cleared when the event goes away")
	assert.Nil(t, list[1].Event)
}

func TestAnnouncementToggleLike(t *testing.T) {
	svc, store := newTestAnnouncementService(t)
	ctx := context.Background()
	store.announcements["a1"] = &model.Announcement{ID: "a1", CreatedBy: admin.UserID, Likes: []model.Like{}}

	res, err := svc.ToggleLike(ctx, john, "a1")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: true, LikesCount: 1}, res)

	got, err := svc.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "john", got.Likes[0].Username)

	res, err = svc.ToggleLike(ctx, john, "a1")
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Liked: false, LikesCount: 0}, res)

	_, err = svc.ToggleLike(ctx, john, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
