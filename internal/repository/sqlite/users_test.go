package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

func TestCreateUser_DefaultsAndLookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	githubID := int64(4242)
	user := &model.User{Username: "octo", Email: "octo@example.com", GitHubID: &githubID, CreatedAt: testNow, UpdatedAt: testNow}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("CreateUser() did not set user.ID")
	}
	if user.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleUser)
	}

	byEmail, err := db.GetUserByEmail(ctx, "octo@example.com")
	if err != nil || byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail() = %v, %v", byEmail, err)
	}
	byGitHub, err := db.GetUserByGitHubID(ctx, githubID)
	if err != nil || byGitHub.ID != user.ID {
		t.Errorf("GetUserByGitHubID() = %v, %v", byGitHub, err)
	}
	if byGitHub.FavoriteEvents == nil {
		t.Error("FavoriteEvents must be empty, not nil")
	}
}

func TestCreateUser_PasswordAccountsHaveNoGitHubCollision(t *testing.T) {
	db := newTestDB(t)

	// Both rows carry a NULL github_id; NULLs never collide under UNIQUE.
	createTestUser(t, db, "alice")
	createTestUser(t, db, "bobby")
}

func TestCreateUser_Duplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "alice")

	tests := []struct {
		name     string
		user     *model.User
		wantWord string
	}{
		{"same username", &model.User{Username: "alice", Email: "other@example.com"}, "username"},
		{"same email", &model.User{Username: "other", Email: "alice@example.com"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := db.CreateUser(ctx, tt.user)
			if !errors.Is(err, apperror.ErrConflict) {
				t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
			}
			if !strings.Contains(err.Error(), tt.wantWord) {
				t.Errorf("error %q should mention %q", err.Error(), tt.wantWord)
			}
		})
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestMutateUser_FavoritesKeepOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")

	_, err := db.MutateUser(ctx, user.ID, func(u *model.User) error {
		u.ToggleFavorite("e3")
		u.ToggleFavorite("e1")
		u.ToggleFavorite("e2")
		return nil
	})
	if err != nil {
		t.Fatalf("MutateUser() error = %v", err)
	}
	_, err = db.MutateUser(ctx, user.ID, func(u *model.User) error {
		u.ToggleFavorite("e1")
		return nil
	})
	if err != nil {
		t.Fatalf("MutateUser() error = %v", err)
	}

	got, _ := db.GetUserByID(ctx, user.ID)
	if strings.Join(got.FavoriteEvents, ",") != "e3,e2" {
		t.Errorf("FavoriteEvents = %v, want [e3 e2]", got.FavoriteEvents)
	}
}

func TestMutateUser_UsernameConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bobby")

	_, err := db.MutateUser(ctx, bob.ID, func(u *model.User) error {
		u.Username = "alice"
		return nil
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("MutateUser() error = %v, want ErrConflict", err)
	}

	got, _ := db.GetUserByID(ctx, bob.ID)
	if got.Username != "bobby" {
		t.Errorf("Username = %q, want unchanged %q", got.Username, "bobby")
	}
}

func TestUsernames(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bobby")

	names, err := db.Usernames(context.Background(), []string{alice.ID, bob.ID, "ghost"})
	if err != nil {
		t.Fatalf("Usernames() error = %v", err)
	}
	if len(names) != 2 || names[alice.ID] != "alice" || names[bob.ID] != "bobby" {
		t.Errorf("Usernames() = %v", names)
	}
}
