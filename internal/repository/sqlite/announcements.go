package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

// compile-time check that *DB implements repository.AnnouncementRepository
var _ repository.AnnouncementRepository = (*DB)(nil)

const announcementColumns = `id, title, content, event_id, created_by, created_at, updated_at`

func (db *DB) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	if a.ID == "" {
		a.ID = xid.New().String()
	}
	normalizeAnnouncement(a)

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO announcements (`+announcementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Title, a.Content, a.EventID, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting announcement: %w", err)
		}
		return insertAnnouncementLikes(ctx, tx, a)
	})
}

func (db *DB) GetAnnouncement(ctx context.Context, id string) (*model.Announcement, error) {
	return getAnnouncement(ctx, db.conn, id)
}

// ListAnnouncements returns every announcement, newest first.
func (db *DB) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	list := []model.Announcement{}
	if err := sqlx.SelectContext(ctx, db.conn, &list,
		`SELECT `+announcementColumns+` FROM announcements ORDER BY created_at DESC, id DESC`,
	); err != nil {
		return nil, fmt.Errorf("sqlite: listing announcements: %w", err)
	}
	if err := loadAnnouncementLikes(ctx, db.conn, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (db *DB) MutateAnnouncement(ctx context.Context, id string, fn func(*model.Announcement) error) (*model.Announcement, error) {
	var out *model.Announcement
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		a, err := getAnnouncement(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		normalizeAnnouncement(a)

		if _, err := tx.ExecContext(ctx,
			`UPDATE announcements SET title = ?, content = ?, event_id = ?, updated_at = ? WHERE id = ?`,
			a.Title, a.Content, a.EventID, a.UpdatedAt, a.ID,
		); err != nil {
			return fmt.Errorf("sqlite: updating announcement %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM announcement_likes WHERE announcement_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: clearing likes of announcement %s: %w", id, err)
		}
		if err := insertAnnouncementLikes(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM announcements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting announcement %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("announcement", id)
	}
	return nil
}

func getAnnouncement(ctx context.Context, q queryer, id string) (*model.Announcement, error) {
	var a model.Announcement
	err := sqlx.GetContext(ctx, q, &a,
		`SELECT `+announcementColumns+` FROM announcements WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("announcement", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting announcement %s: %w", id, err)
	}

	list := []model.Announcement{a}
	if err := loadAnnouncementLikes(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func loadAnnouncementLikes(ctx context.Context, q queryer, list []model.Announcement) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = i
		list[i].Likes = []model.Like{}
	}

	var likes []likeRow
	if err := selectIn(ctx, q, &likes,
		`SELECT announcement_id AS owner_id, user_id, liked_at FROM announcement_likes
		 WHERE announcement_id IN (?) ORDER BY announcement_id, position`, ids); err != nil {
		return fmt.Errorf("sqlite: loading announcement likes: %w", err)
	}
	for _, l := range likes {
		a := &list[index[l.OwnerID]]
		a.Likes = append(a.Likes, l.Like)
	}
	return nil
}

func insertAnnouncementLikes(ctx context.Context, tx *sqlx.Tx, a *model.Announcement) error {
	for i, l := range a.Likes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO announcement_likes (announcement_id, user_id, liked_at, position)
			 VALUES (?, ?, ?, ?)`,
			a.ID, l.UserID, l.LikedAt, i,
		); err != nil {
			return fmt.Errorf("sqlite: inserting like on announcement %s: %w", a.ID, err)
		}
	}
	return nil
}

func normalizeAnnouncement(a *model.Announcement) {
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	for i := range a.Likes {
		a.Likes[i].LikedAt = a.Likes[i].LikedAt.UTC()
	}
}
