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

// compile-time check that *DB implements repository.EventRepository
var _ repository.EventRepository = (*DB)(nil)

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx, so the load/save
// helpers below work inside and outside a transaction.
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

const eventColumns = `id, title, description, category, event_date, location,
	created_by, average_rating, created_at, updated_at`

// Child rows carry the owning aggregate's ID alongside the model fields so a
// single query can load the children of many aggregates at once.
type likeRow struct {
	OwnerID string `db:"owner_id"`
	model.Like
}

type commentRow struct {
	OwnerID string `db:"owner_id"`
	model.Comment
}

type commentLikeRow struct {
	CommentID string `db:"comment_id"`
	UserID    string `db:"user_id"`
}

type ratingRow struct {
	OwnerID string `db:"owner_id"`
	model.Rating
}

// CreateEvent inserts a new event with whatever child collections it already
// carries. An empty ID is filled in.
func (db *DB) CreateEvent(ctx context.Context, ev *model.Event) error {
	if ev.ID == "" {
		ev.ID = xid.New().String()
	}
	normalizeEvent(ev)

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO events (`+eventColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.Title, ev.Description, ev.Category, ev.EventDate, ev.Location,
			ev.CreatedBy, ev.AverageRating, ev.CreatedAt, ev.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting event: %w", err)
		}
		return insertEventChildren(ctx, tx, ev)
	})
}

// GetEvent retrieves one event with its likes, comments and ratings.
func (db *DB) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return getEvent(ctx, db.conn, id)
}

// ListEvents pushes the filter down into SQL. The WHERE clause mirrors
// repository.EventFilter.Matches:
//
//   - category is an exact match
//   - search is a literal, case-insensitive substring test via instr()
//     over fold(), so '%' and '_' in user input are not wildcards and
//     non-ASCII letters fold like strings.ToLower
//   - the date window compares against filter.Now
func (db *DB) ListEvents(ctx context.Context, filter repository.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		where = append(where, "(instr(fold(title), fold(?)) > 0 OR instr(fold(description), fold(?)) > 0)")
		args = append(args, filter.Search, filter.Search)
	}
	switch filter.Window {
	case repository.WindowUpcoming:
		where = append(where, "event_date >= ?")
		args = append(args, filter.Now.UTC())
	case repository.WindowPast:
		where = append(where, "event_date < ?")
		args = append(args, filter.Now.UTC())
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY event_date ASC, id ASC"

	events := []model.Event{}
	if err := sqlx.SelectContext(ctx, db.conn, &events, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}
	if err := loadEventChildren(ctx, db.conn, events); err != nil {
		return nil, err
	}
	return events, nil
}

// ListEventsByIDs returns the subset of ids that still exist.
func (db *DB) ListEventsByIDs(ctx context.Context, ids []string) ([]model.Event, error) {
	events := []model.Event{}
	if len(ids) == 0 {
		return events, nil
	}

	query, args, err := sqlx.In(`SELECT `+eventColumns+` FROM events WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building events by id query: %w", err)
	}
	if err := sqlx.SelectContext(ctx, db.conn, &events, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: listing events by id: %w", err)
	}
	if err := loadEventChildren(ctx, db.conn, events); err != nil {
		return nil, err
	}
	return events, nil
}

// MutateEvent is the only write path for an existing event. The load, fn and
// the full write-back share one transaction; if fn fails nothing is written.
func (db *DB) MutateEvent(ctx context.Context, id string, fn func(*model.Event) error) (*model.Event, error) {
	var out *model.Event
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		ev, err := getEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
		if err := saveEvent(ctx, tx, ev); err != nil {
			return err
		}
		out = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteEvent removes the event. Likes, comments, comment likes and ratings
// go with it through ON DELETE CASCADE; announcements pointing at it are
// detached through ON DELETE SET NULL. Favorites carry no foreign key and
// are cleared explicitly in the same transaction.
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_favorites WHERE event_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: clearing favorites of event %s: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting event %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("event", id)
		}
		return nil
	})
}

func getEvent(ctx context.Context, q queryer, id string) (*model.Event, error) {
	var ev model.Event
	err := sqlx.GetContext(ctx, q, &ev, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}

	events := []model.Event{ev}
	if err := loadEventChildren(ctx, q, events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

// loadEventChildren fills Likes, Comments (with their likes) and Ratings for
// every event in place. Collections are never left nil so they encode as [].
func loadEventChildren(ctx context.Context, q queryer, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, len(events))
	index := make(map[string]int, len(events))
	for i := range events {
		ids[i] = events[i].ID
		index[events[i].ID] = i
		events[i].Likes = []model.Like{}
		events[i].Comments = []model.Comment{}
		events[i].Ratings = []model.Rating{}
	}

	var likes []likeRow
	if err := selectIn(ctx, q, &likes,
		`SELECT event_id AS owner_id, user_id, liked_at FROM event_likes
		 WHERE event_id IN (?) ORDER BY event_id, position`, ids); err != nil {
		return fmt.Errorf("sqlite: loading event likes: %w", err)
	}
	for _, l := range likes {
		ev := &events[index[l.OwnerID]]
		ev.Likes = append(ev.Likes, l.Like)
	}

	var comments []commentRow
	if err := selectIn(ctx, q, &comments,
		`SELECT event_id AS owner_id, id, user_id, content, created_at FROM event_comments
		 WHERE event_id IN (?) ORDER BY event_id, position`, ids); err != nil {
		return fmt.Errorf("sqlite: loading event comments: %w", err)
	}

	var commentLikes []commentLikeRow
	if err := selectIn(ctx, q, &commentLikes,
		`SELECT cl.comment_id, cl.user_id FROM comment_likes cl
		 JOIN event_comments c ON c.id = cl.comment_id
		 WHERE c.event_id IN (?) ORDER BY cl.comment_id, cl.position`, ids); err != nil {
		return fmt.Errorf("sqlite: loading comment likes: %w", err)
	}
	likedBy := make(map[string][]string)
	for _, cl := range commentLikes {
		likedBy[cl.CommentID] = append(likedBy[cl.CommentID], cl.UserID)
	}

	for _, c := range comments {
		comment := c.Comment
		comment.Likes = likedBy[comment.ID]
		if comment.Likes == nil {
			comment.Likes = []string{}
		}
		ev := &events[index[c.OwnerID]]
		ev.Comments = append(ev.Comments, comment)
	}

	var ratings []ratingRow
	if err := selectIn(ctx, q, &ratings,
		`SELECT event_id AS owner_id, user_id, rating, rated_at FROM event_ratings
		 WHERE event_id IN (?) ORDER BY event_id, position`, ids); err != nil {
		return fmt.Errorf("sqlite: loading event ratings: %w", err)
	}
	for _, r := range ratings {
		ev := &events[index[r.OwnerID]]
		ev.Ratings = append(ev.Ratings, r.Rating)
	}

	return nil
}

// saveEvent writes the scalar columns and replaces every child collection.
// Rewriting the children wholesale keeps their stored order equal to the
// in-memory order, which is what the position columns record.
func saveEvent(ctx context.Context, tx *sqlx.Tx, ev *model.Event) error {
	normalizeEvent(ev)

	_, err := tx.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, category = ?, event_date = ?,
		 location = ?, average_rating = ?, updated_at = ? WHERE id = ?`,
		ev.Title, ev.Description, ev.Category, ev.EventDate,
		ev.Location, ev.AverageRating, ev.UpdatedAt, ev.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating event %s: %w", ev.ID, err)
	}

	// comment_likes rows are removed by the cascade from event_comments.
	for _, table := range []string{"event_likes", "event_comments", "event_ratings"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE event_id = ?`, ev.ID); err != nil {
			return fmt.Errorf("sqlite: clearing %s of event %s: %w", table, ev.ID, err)
		}
	}
	return insertEventChildren(ctx, tx, ev)
}

func insertEventChildren(ctx context.Context, tx *sqlx.Tx, ev *model.Event) error {
	for i, l := range ev.Likes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_likes (event_id, user_id, liked_at, position) VALUES (?, ?, ?, ?)`,
			ev.ID, l.UserID, l.LikedAt, i,
		); err != nil {
			return fmt.Errorf("sqlite: inserting like on event %s: %w", ev.ID, err)
		}
	}

	for i, c := range ev.Comments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_comments (id, event_id, user_id, content, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, ev.ID, c.UserID, c.Content, c.CreatedAt, i,
		); err != nil {
			return fmt.Errorf("sqlite: inserting comment %s: %w", c.ID, err)
		}
		for j, userID := range c.Likes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO comment_likes (comment_id, user_id, position) VALUES (?, ?, ?)`,
				c.ID, userID, j,
			); err != nil {
				return fmt.Errorf("sqlite: inserting like on comment %s: %w", c.ID, err)
			}
		}
	}

	for i, r := range ev.Ratings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_ratings (event_id, user_id, rating, rated_at, position)
			 VALUES (?, ?, ?, ?, ?)`,
			ev.ID, r.UserID, r.Value, r.RatedAt, i,
		); err != nil {
			return fmt.Errorf("sqlite: inserting rating on event %s: %w", ev.ID, err)
		}
	}
	return nil
}

// normalizeEvent stores every timestamp in UTC. Times are persisted as text,
// and only a single zone keeps their lexical order equal to their time order.
func normalizeEvent(ev *model.Event) {
	ev.EventDate = ev.EventDate.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	for i := range ev.Likes {
		ev.Likes[i].LikedAt = ev.Likes[i].LikedAt.UTC()
	}
	for i := range ev.Comments {
		ev.Comments[i].CreatedAt = ev.Comments[i].CreatedAt.UTC()
	}
	for i := range ev.Ratings {
		ev.Ratings[i].RatedAt = ev.Ratings[i].RatedAt.UTC()
	}
}

// selectIn expands a single `IN (?)` placeholder with sqlx.In and scans the
// rows into dest.
func selectIn(ctx context.Context, q queryer, dest any, query string, ids []string) error {
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}
