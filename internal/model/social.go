package model

import (
	"math"
	"time"
)

// Like is one user's like on an event or an announcement.
type Like struct {
	UserID   string    `json:"user"               db:"user_id"  bson:"user_id"`
	Username string    `json:"username,omitempty" db:"-"        bson:"-"`
	LikedAt  time.Time `json:"likedAt"            db:"liked_at" bson:"liked_at"`
}

// Rating is one user's 1–5 score for a past event.
type Rating struct {
	UserID   string    `json:"user"               db:"user_id"  bson:"user_id"`
	Username string    `json:"username,omitempty" db:"-"        bson:"-"`
	Value    int       `json:"rating"             db:"rating"   bson:"rating"`
	RatedAt  time.Time `json:"ratedAt"            db:"rated_at" bson:"rated_at"`
}

// toggleLike is shared by events and announcements. The returned slice never
// contains two entries for the same user.
func toggleLike(likes []Like, userID string, now time.Time) ([]Like, bool) {
	for i, l := range likes {
		if l.UserID == userID {
			return append(likes[:i:i], likes[i+1:]...), false
		}
	}
	return append(likes, Like{UserID: userID, LikedAt: now}), true
}

// AverageRating is the mean of the rating values rounded to one decimal
// place, or 0 when there are no ratings.
func AverageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Value
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10
}
