// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the coarse permission level carried in every identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account.
//
// Accounts are created either by email/password registration or by the
// GitHub OAuth flow. GitHubID is a pointer because password accounts have
// none, and the UNIQUE constraint on github_id must ignore them (NULLs never
// collide in SQLite; the Mongo index is partial for the same reason).
//
// FavoriteEvents is an ordered, duplicate-free list of event IDs. It is a
// non-owning reference: the events may have been deleted since.
type User struct {
	ID             string    `json:"id"               db:"id"            bson:"_id"`
	Username       string    `json:"username"         db:"username"      bson:"username"`
	Email          string    `json:"email"            db:"email"         bson:"email"`
	PasswordHash   string    `json:"-"                db:"password_hash" bson:"password_hash"`
	GitHubID       *int64    `json:"githubId,omitempty" db:"github_id"   bson:"github_id,omitempty"`
	Role           Role      `json:"role"             db:"role"          bson:"role"`
	FavoriteEvents []string  `json:"favoriteEvents"   db:"-"             bson:"favorite_events"`
	CreatedAt      time.Time `json:"createdAt"        db:"created_at"    bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"        db:"updated_at"    bson:"updated_at"`
	Version        int64     `json:"-"                db:"-"             bson:"version"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ToggleFavorite removes eventID from the favorites if present, otherwise
// appends it. It reports whether the event was added.
func (u *User) ToggleFavorite(eventID string) bool {
	for i, id := range u.FavoriteEvents {
		if id == eventID {
			u.FavoriteEvents = append(u.FavoriteEvents[:i:i], u.FavoriteEvents[i+1:]...)
			return false
		}
	}
	u.FavoriteEvents = append(u.FavoriteEvents, eventID)
	return true
}
