package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

func newTestUserService(t *testing.T) (*UserService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	seedUsers(store)
	svc := NewUserService(store, store, discardLogger())
	svc.now = fixedClock
	return svc, store
}

func TestUserToggleFavorite_Symmetry(t *testing.T) {
	svc, store := newTestUserService(t)
	ctx := context.Background()
	store.users[john.UserID].FavoriteEvents = []string{"e1", "e2"}

	res, err := svc.ToggleFavorite(ctx, john, "e3")
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, []string{"e1", "e2", "e3"}, res.Favorites)

	res, err = svc.ToggleFavorite(ctx, john, "e3")
	require.NoError(t, err)
	assert.False(t, res.Added)
	assert.Equal(t, []string{"e1", "e2"}, res.Favorites, "two toggles restore the original list")
}

func TestUserToggleFavorite_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService(t)
	ghost := john
	ghost.UserID = "ghost"

	_, err := svc.ToggleFavorite(context.Background(), ghost, "e1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUserFavorites_KeepsOrderAndSkipsDeleted(t *testing.T) {
	svc, store := newTestUserService(t)
	ctx := context.Background()
	putEvent(store, "e1", admin.UserID, model.CategoryTechnology, testNow)
	putEvent(store, "e2", admin.UserID, model.CategoryArts, testNow.Add(-24*time.Hour))
	store.users[john.UserID].FavoriteEvents = []string{"e2", "gone", "e1"}

	events, err := svc.Favorites(ctx, john)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e2", events[0].ID)
	assert.Equal(t, "e1", events[1].ID)
	assert.Equal(t, "admin", events[0].CreatorName)
}

func TestUserUpdateProfile(t *testing.T) {
	svc, store := newTestUserService(t)
	ctx := context.Background()

	u, err := svc.UpdateProfile(ctx, john, ProfileInput{Email: " Johnny@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "john", u.Username, "empty username is left unchanged")
	assert.Equal(t, "johnny@example.com", u.Email)
	assert.Equal(t, testNow, u.UpdatedAt)

	_, err = svc.UpdateProfile(ctx, john, ProfileInput{Username: "jane"})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "john", store.users[john.UserID].Username)

	_, err = svc.UpdateProfile(ctx, john, ProfileInput{Username: "jo"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestUserProfile(t *testing.T) {
	svc, _ := newTestUserService(t)

	u, err := svc.Profile(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, "jane", u.Username)
	assert.NotNil(t, u.FavoriteEvents)
}

func TestUserSetRole(t *testing.T) {
	svc, store := newTestUserService(t)
	ctx := context.Background()

	u, err := svc.SetRole(ctx, " JOHN@example.com ", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, model.RoleAdmin, store.users[john.UserID].Role)

	_, err = svc.SetRole(ctx, "nobody@example.com", model.RoleAdmin)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.SetRole(ctx, "john@example.com", model.Role("superuser"))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
