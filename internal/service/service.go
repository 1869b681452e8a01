// Package service contains the business logic layer of the application: the
// social-interaction engine over events and announcements, plus the CRUD
// and account services around it.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, authorizes, applies domain rules
//	Repository (Data layer)  → loads and persists aggregates
//
// Services take an auth.Identity for every mutating call and return
// *apperror.AppError values; they never see an *http.Request. Every change
// to an existing aggregate is a closure passed to the store's Mutate*
// method, which runs it against freshly loaded state and persists the
// result as one unit. Authorization and validation happen inside that
// closure, so a rejected call writes nothing.
//
// DEPENDENCY INJECTION:
// Services depend on the repository interfaces, not on *sqlite.DB or
// *mongo.Store. Tests pass an in-memory fake (see fake_store_test.go).
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

// LikeResult is the outcome of any like toggle.
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// RatingResult is the outcome of SubmitRating.
type RatingResult struct {
	AverageRating float64 `json:"averageRating"`
	RatingsCount  int     `json:"ratingsCount"`
}

// FavoriteResult is the outcome of ToggleFavorite.
type FavoriteResult struct {
	Added     bool     `json:"added"`
	Favorites []string `json:"favorites"`
}

// clock is overridden in tests to pin "now".
type clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// resolveEventNames fills the display-only username fields of every event
// (creator, likers, commenters, raters) with one lookup for all of them.
// Users that no longer exist keep an empty name.
func resolveEventNames(ctx context.Context, users repository.UserRepository, events []model.Event) error {
	var ids []string
	for i := range events {
		ids = append(ids, events[i].UserIDs()...)
	}
	if len(ids) == 0 {
		return nil
	}

	names, err := users.Usernames(ctx, dedupe(ids))
	if err != nil {
		return fmt.Errorf("service: resolving usernames: %w", err)
	}

	for i := range events {
		ev := &events[i]
		ev.CreatorName = names[ev.CreatedBy]
		for j := range ev.Likes {
			ev.Likes[j].Username = names[ev.Likes[j].UserID]
		}
		for j := range ev.Comments {
			ev.Comments[j].Username = names[ev.Comments[j].UserID]
		}
		for j := range ev.Ratings {
			ev.Ratings[j].Username = names[ev.Ratings[j].UserID]
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
