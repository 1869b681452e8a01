package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
	"github.com/sakif/eventhub/internal/validate"
)

// UserService covers the signed-in user's own profile and favorites.
type UserService struct {
	users  repository.UserRepository
	events repository.EventRepository
	logger *slog.Logger
	now    clock
}

func NewUserService(users repository.UserRepository, events repository.EventRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		events: events,
		logger: logger,
		now:    systemClock,
	}
}

func (s *UserService) Profile(ctx context.Context, actor auth.Identity) (*model.User, error) {
	return s.users.GetUserByID(ctx, actor.UserID)
}

// UpdateProfile changes username and/or email. Empty fields are left
// unchanged; a value taken by another account is a Conflict.
func (s *UserService) UpdateProfile(ctx context.Context, actor auth.Identity, in ProfileInput) (*model.User, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.MutateUser(ctx, actor.UserID, func(u *model.User) error {
		if in.Username != "" {
			u.Username = in.Username
		}
		if in.Email != "" {
			u.Email = in.Email
		}
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("userID", actor.UserID))
	return user, nil
}

// SetRole changes the role of the account registered under email. It is an
// operator action (the eventctl CLI), so there is no actor to authorize.
func (s *UserService) SetRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role", fmt.Sprintf("unknown role %q", role))
	}
	existing, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	user, err := s.users.MutateUser(ctx, existing.ID, func(u *model.User) error {
		u.Role = role
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role changed", slog.String("userID", user.ID), slog.String("role", string(role)))
	return user, nil
}

// ToggleFavorite adds eventID to the actor's favorites or removes it. The
// event is deliberately not looked up: favorites are plain references and
// Favorites skips the ones that no longer resolve.
func (s *UserService) ToggleFavorite(ctx context.Context, actor auth.Identity, eventID string) (FavoriteResult, error) {
	var res FavoriteResult
	_, err := s.users.MutateUser(ctx, actor.UserID, func(u *model.User) error {
		res.Added = u.ToggleFavorite(eventID)
		res.Favorites = append([]string{}, u.FavoriteEvents...)
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return FavoriteResult{}, err
	}

	s.logger.Info("favorite toggled",
		slog.String("userID", actor.UserID),
		slog.String("eventID", eventID),
		slog.Bool("added", res.Added),
	)
	return res, nil
}

// Favorites returns the actor's favorite events in the order they were
// added, leaving out events that have since been deleted.
func (s *UserService) Favorites(ctx context.Context, actor auth.Identity) ([]model.Event, error) {
	user, err := s.users.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	found, err := s.events.ListEventsByIDs(ctx, user.FavoriteEvents)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading favorites: %w", err)
	}
	byID := make(map[string]model.Event, len(found))
	for _, ev := range found {
		byID[ev.ID] = ev
	}

	events := make([]model.Event, 0, len(found))
	for _, id := range user.FavoriteEvents {
		if ev, ok := byID[id]; ok {
			events = append(events, ev)
		}
	}
	if err := resolveEventNames(ctx, s.users, events); err != nil {
		return nil, err
	}
	return events, nil
}
