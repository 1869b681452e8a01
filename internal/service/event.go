package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
	"github.com/sakif/eventhub/internal/validate"
)

// EventService is the social-interaction engine for events: likes,
// comments, comment likes and ratings, plus event CRUD.
type EventService struct {
	events repository.EventRepository
	users  repository.UserRepository
	logger *slog.Logger
	now    clock
}

func NewEventService(events repository.EventRepository, users repository.UserRepository, logger *slog.Logger) *EventService {
	return &EventService{
		events: events,
		users:  users,
		logger: logger,
		now:    systemClock,
	}
}

// ParseEventFilter builds a filter from raw query values, evaluated
// against the current time.
func (s *EventService) ParseEventFilter(category, search, date string) repository.EventFilter {
	return repository.NewEventFilter(category, search, date, s.now())
}

// List returns the events matching filter, soonest first.
func (s *EventService) List(ctx context.Context, filter repository.EventFilter) ([]model.Event, error) {
	events, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/event: listing events: %w", err)
	}
	if err := resolveEventNames(ctx, s.users, events); err != nil {
		return nil, err
	}
	return events, nil
}

// Get returns one event with every embedded collection and display names.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	ev, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withNames(ctx, ev)
}

// Create publishes a new event. Only admins may create events.
func (s *EventService) Create(ctx context.Context, actor auth.Identity, in EventInput) (*model.Event, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only admins can create events")
	}

	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	now := s.now()
	ev := &model.Event{
		ID:          xid.New().String(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		EventDate:   in.EventDate,
		Location:    in.Location,
		CreatedBy:   actor.UserID,
		Likes:       []model.Like{},
		Comments:    []model.Comment{},
		Ratings:     []model.Rating{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.events.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("service/event: creating event: %w", err)
	}

	s.logger.Info("event created",
		slog.String("eventID", ev.ID),
		slog.String("userID", actor.UserID),
	)
	return s.withNames(ctx, ev)
}

// Update applies a partial edit. The merged result is validated with the
// same rules as Create. Only the creator or an admin may edit.
func (s *EventService) Update(ctx context.Context, actor auth.Identity, id string, patch EventPatch) (*model.Event, error) {
	ev, err := s.events.MutateEvent(ctx, id, func(ev *model.Event) error {
		if err := authorizeOwner(actor, ev.CreatedBy, "update this event"); err != nil {
			return err
		}

		in := patch.applyTo(ev)
		in.normalize()
		if err := validate.Struct(in); err != nil {
			return err
		}

		ev.Title = in.Title
		ev.Description = in.Description
		ev.Category = in.Category
		ev.EventDate = in.EventDate
		ev.Location = in.Location
		ev.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("event updated", slog.String("eventID", id), slog.String("userID", actor.UserID))
	return s.withNames(ctx, ev)
}

// Delete removes the event and everything embedded in it. Only the creator
// or an admin may delete.
func (s *EventService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	ev, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	// CreatedBy never changes, so checking outside the delete is safe.
	if err := authorizeOwner(actor, ev.CreatedBy, "delete this event"); err != nil {
		return err
	}
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return err
	}

	s.logger.Info("event deleted", slog.String("eventID", id), slog.String("userID", actor.UserID))
	return nil
}

// ToggleLike likes the event for the actor, or removes the actor's like.
func (s *EventService) ToggleLike(ctx context.Context, actor auth.Identity, id string) (LikeResult, error) {
	var res LikeResult
	_, err := s.events.MutateEvent(ctx, id, func(ev *model.Event) error {
		res.Liked = ev.ToggleLike(actor.UserID, s.now())
		res.LikesCount = len(ev.Likes)
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}

	s.logger.Info("event like toggled",
		slog.String("eventID", id),
		slog.String("userID", actor.UserID),
		slog.Bool("liked", res.Liked),
	)
	return res, nil
}

// AddComment prepends a comment by the actor and returns it with the
// author's username filled in.
func (s *EventService) AddComment(ctx context.Context, actor auth.Identity, eventID string, in CommentInput) (*model.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        xid.New().String(),
		UserID:    actor.UserID,
		Content:   in.Content,
		Likes:     []string{},
		CreatedAt: s.now(),
	}
	_, err := s.events.MutateEvent(ctx, eventID, func(ev *model.Event) error {
		ev.AddComment(comment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	names, err := s.users.Usernames(ctx, []string{actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("service/event: resolving comment author: %w", err)
	}
	comment.Username = names[actor.UserID]

	s.logger.Info("comment added",
		slog.String("eventID", eventID),
		slog.String("commentID", comment.ID),
		slog.String("userID", actor.UserID),
	)
	return &comment, nil
}

// DeleteComment removes exactly one comment. Only its author or an admin
// may delete it; the event's creator has no special right here.
func (s *EventService) DeleteComment(ctx context.Context, actor auth.Identity, eventID, commentID string) error {
	_, err := s.events.MutateEvent(ctx, eventID, func(ev *model.Event) error {
		c, ok := ev.Comment(commentID)
		if !ok {
			return apperror.NotFound("comment", commentID)
		}
		if err := authorizeOwner(actor, c.UserID, "delete this comment"); err != nil {
			return err
		}
		ev.RemoveComment(commentID)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("comment deleted",
		slog.String("eventID", eventID),
		slog.String("commentID", commentID),
		slog.String("userID", actor.UserID),
	)
	return nil
}

// ToggleCommentLike flips the actor's membership in a comment's like set.
func (s *EventService) ToggleCommentLike(ctx context.Context, actor auth.Identity, eventID, commentID string) (LikeResult, error) {
	var res LikeResult
	_, err := s.events.MutateEvent(ctx, eventID, func(ev *model.Event) error {
		c, ok := ev.Comment(commentID)
		if !ok {
			return apperror.NotFound("comment", commentID)
		}
		res.Liked = c.ToggleLike(actor.UserID)
		res.LikesCount = len(c.Likes)
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

// SubmitRating records the actor's rating of a past event, replacing any
// earlier rating by the same user, and returns the new average.
//
// Order of checks: the event must exist, must have occurred (eventDate not
// after now), and the value must be an integer in [1, 5].
func (s *EventService) SubmitRating(ctx context.Context, actor auth.Identity, eventID string, in RatingInput) (RatingResult, error) {
	var res RatingResult
	_, err := s.events.MutateEvent(ctx, eventID, func(ev *model.Event) error {
		now := s.now()
		if !ev.HasOccurred(now) {
			return apperror.ValidationFailed("eventDate", "cannot rate an event that has not occurred yet")
		}
		if in.Rating != math.Trunc(in.Rating) || in.Rating < MinRating || in.Rating > MaxRating {
			return apperror.ValidationFailed("rating", fmt.Sprintf("rating must be an integer between %d and %d", MinRating, MaxRating))
		}

		ev.Rate(actor.UserID, int(in.Rating), now)
		res.AverageRating = ev.AverageRating
		res.RatingsCount = len(ev.Ratings)
		return nil
	})
	if err != nil {
		return RatingResult{}, err
	}

	s.logger.Info("event rated",
		slog.String("eventID", eventID),
		slog.String("userID", actor.UserID),
		slog.Float64("averageRating", res.AverageRating),
	)
	return res, nil
}

func (s *EventService) withNames(ctx context.Context, ev *model.Event) (*model.Event, error) {
	events := []model.Event{*ev}
	if err := resolveEventNames(ctx, s.users, events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

// authorizeOwner allows the owner of a resource and admins. action reads
// as "not authorized to <action>".
func authorizeOwner(actor auth.Identity, ownerID, action string) error {
	if actor.UserID == ownerID || actor.IsAdmin() {
		return nil
	}
	return apperror.Forbidden("not authorized to " + action)
}
