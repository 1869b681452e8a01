package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, github_id, role, created_at, updated_at`

// CreateUser inserts a new account. A taken username, email or GitHub ID is
// reported as a Conflict naming the field.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = xid.New().String()
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID, user.Username, user.Email, user.PasswordHash, user.GitHubID,
			user.Role, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return uniqueConflict(err)
			}
			return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
		}
		return insertFavorites(ctx, tx, user)
	})
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, db.conn, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return getUser(ctx, db.conn, "email", email)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return getUser(ctx, db.conn, "github_id", githubID)
}

// MutateUser applies fn to the stored user and writes the profile and the
// favorites list back in one transaction.
func (db *DB) MutateUser(ctx context.Context, id string, fn func(*model.User) error) (*model.User, error) {
	var out *model.User
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		user, err := getUser(ctx, tx, "id", id)
		if err != nil {
			return err
		}
		if err := fn(user); err != nil {
			return err
		}
		user.UpdatedAt = user.UpdatedAt.UTC()

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET username = ?, email = ?, password_hash = ?, github_id = ?,
			 role = ?, updated_at = ? WHERE id = ?`,
			user.Username, user.Email, user.PasswordHash, user.GitHubID,
			user.Role, user.UpdatedAt, user.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return uniqueConflict(err)
			}
			return fmt.Errorf("sqlite: updating user %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM user_favorites WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: clearing favorites of user %s: %w", id, err)
		}
		if err := insertFavorites(ctx, tx, user); err != nil {
			return err
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Usernames resolves display names for a batch of user IDs in one query.
func (db *DB) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var rows []struct {
		ID       string `db:"id"`
		Username string `db:"username"`
	}
	if err := selectIn(ctx, db.conn, &rows, `SELECT id, username FROM users WHERE id IN (?)`, ids); err != nil {
		return nil, fmt.Errorf("sqlite: resolving usernames: %w", err)
	}
	for _, r := range rows {
		names[r.ID] = r.Username
	}
	return names, nil
}

// getUser loads a user by one unique column. column is always a constant
// from this file, never user input.
func getUser(ctx context.Context, q queryer, column string, value any) (*model.User, error) {
	var user model.User
	err := sqlx.GetContext(ctx, q, &user,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", fmt.Sprint(value))
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}

	user.FavoriteEvents = []string{}
	if err := sqlx.SelectContext(ctx, q, &user.FavoriteEvents,
		`SELECT event_id FROM user_favorites WHERE user_id = ? ORDER BY position`, user.ID,
	); err != nil {
		return nil, fmt.Errorf("sqlite: loading favorites of user %s: %w", user.ID, err)
	}
	return &user, nil
}

func insertFavorites(ctx context.Context, tx *sqlx.Tx, user *model.User) error {
	for i, eventID := range user.FavoriteEvents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_favorites (user_id, event_id, position) VALUES (?, ?, ?)`,
			user.ID, eventID, i,
		); err != nil {
			return fmt.Errorf("sqlite: inserting favorite of user %s: %w", user.ID, err)
		}
	}
	return nil
}

// uniqueConflict turns SQLite's "UNIQUE constraint failed: users.email"
// into a Conflict that names the field.
func uniqueConflict(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return apperror.Conflict("email is already registered")
	case strings.Contains(msg, "users.username"):
		return apperror.Conflict("username is already taken")
	case strings.Contains(msg, "users.github_id"):
		return apperror.Conflict("github account is already linked")
	default:
		return apperror.Conflict("user already exists")
	}
}
