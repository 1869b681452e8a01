package model

import "time"

// Category is the fixed set of event categories.
type Category string

const (
	CategoryEducation     Category = "education"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryTechnology    Category = "technology"
	CategoryBusiness      Category = "business"
	CategoryArts          Category = "arts"
	CategorySocial        Category = "social"
	CategoryOther         Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryEducation,
	CategoryEntertainment,
	CategorySports,
	CategoryTechnology,
	CategoryBusiness,
	CategoryArts,
	CategorySocial,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Comment lives inside an Event. Its ID only exists so a single comment can
// be targeted for deletion or a like; it has no lifecycle of its own.
//
// Likes is a plain set of user IDs, unlike the timestamped event likes.
type Comment struct {
	ID        string    `json:"id"                 db:"id"         bson:"id"`
	UserID    string    `json:"user"               db:"user_id"    bson:"user_id"`
	Username  string    `json:"username,omitempty" db:"-"          bson:"-"`
	Content   string    `json:"content"            db:"content"    bson:"content"`
	Likes     []string  `json:"likes"              db:"-"          bson:"likes"`
	CreatedAt time.Time `json:"createdAt"          db:"created_at" bson:"created_at"`
}

// ToggleLike flips userID's membership in the comment's like set and
// reports whether the comment is now liked by that user.
func (c *Comment) ToggleLike(userID string) bool {
	for i, id := range c.Likes {
		if id == userID {
			c.Likes = append(c.Likes[:i:i], c.Likes[i+1:]...)
			return false
		}
	}
	c.Likes = append(c.Likes, userID)
	return true
}

// Event is the main aggregate. Likes, Comments and Ratings are owned child
// collections and must only be changed through the methods below, so that the
// one-per-user invariants and AverageRating stay correct.
type Event struct {
	ID            string    `json:"id"                    db:"id"             bson:"_id"`
	Title         string    `json:"title"                 db:"title"          bson:"title"`
	Description   string    `json:"description"           db:"description"    bson:"description"`
	Category      Category  `json:"category"              db:"category"       bson:"category"`
	EventDate     time.Time `json:"eventDate"             db:"event_date"     bson:"event_date"`
	Location      string    `json:"location"              db:"location"       bson:"location"`
	CreatedBy     string    `json:"createdBy"             db:"created_by"     bson:"created_by"`
	CreatorName   string    `json:"creatorName,omitempty" db:"-"              bson:"-"`
	Likes         []Like    `json:"likes"                 db:"-"              bson:"likes"`
	Comments      []Comment `json:"comments"              db:"-"              bson:"comments"`
	Ratings       []Rating  `json:"ratings"               db:"-"              bson:"ratings"`
	AverageRating float64   `json:"averageRating"         db:"average_rating" bson:"average_rating"`
	CreatedAt     time.Time `json:"createdAt"             db:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt"             db:"updated_at"     bson:"updated_at"`
	Version       int64     `json:"-"                     db:"-"              bson:"version"`
}

func (e *Event) IsOwnedBy(userID string) bool {
	return e.CreatedBy == userID
}

// HasOccurred reports whether the event's scheduled time is not after now.
// An event scheduled exactly at now counts as occurred.
func (e *Event) HasOccurred(now time.Time) bool {
	return !e.EventDate.After(now)
}

// ToggleLike likes the event for userID, or removes the existing like.
// It reports whether the event is liked by userID afterwards.
func (e *Event) ToggleLike(userID string, now time.Time) bool {
	var liked bool
	e.Likes, liked = toggleLike(e.Likes, userID, now)
	return liked
}

// AddComment prepends c: the newest comment is always first.
func (e *Event) AddComment(c Comment) {
	e.Comments = append([]Comment{c}, e.Comments...)
}

// Comment returns a pointer into the Comments slice, so callers can mutate
// the comment in place.
func (e *Event) Comment(id string) (*Comment, bool) {
	for i := range e.Comments {
		if e.Comments[i].ID == id {
			return &e.Comments[i], true
		}
	}
	return nil, false
}

// RemoveComment deletes exactly the comment with the given ID.
func (e *Event) RemoveComment(id string) bool {
	for i := range e.Comments {
		if e.Comments[i].ID == id {
			e.Comments = append(e.Comments[:i:i], e.Comments[i+1:]...)
			return true
		}
	}
	return false
}

// Rate records value for userID, overwriting the user's previous rating in
// place if one exists, then recomputes AverageRating. It reports whether an
// existing rating was replaced.
//
// Range and timing rules are enforced by the caller; Rate only maintains
// the one-rating-per-user invariant and the derived average.
func (e *Event) Rate(userID string, value int, now time.Time) bool {
	replaced := false
	for i := range e.Ratings {
		if e.Ratings[i].UserID == userID {
			e.Ratings[i].Value = value
			e.Ratings[i].RatedAt = now
			replaced = true
			break
		}
	}
	if !replaced {
		e.Ratings = append(e.Ratings, Rating{UserID: userID, Value: value, RatedAt: now})
	}
	e.AverageRating = AverageRating(e.Ratings)
	return replaced
}

// UserIDs returns every user referenced by the aggregate (creator, likers,
// commenters, raters) without duplicates. Used to resolve display names.
func (e *Event) UserIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	add(e.CreatedBy)
	for _, l := range e.Likes {
		add(l.UserID)
	}
	for _, c := range e.Comments {
		add(c.UserID)
	}
	for _, r := range e.Ratings {
		add(r.UserID)
	}
	return ids
}
