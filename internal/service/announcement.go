package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
	"github.com/sakif/eventhub/internal/validate"
)

// AnnouncementService manages admin announcements and their likes.
type AnnouncementService struct {
	announcements repository.AnnouncementRepository
	events        repository.EventRepository
	users         repository.UserRepository
	logger        *slog.Logger
	now           clock
}

func NewAnnouncementService(
	announcements repository.AnnouncementRepository,
	events repository.EventRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *AnnouncementService {
	return &AnnouncementService{
		announcements: announcements,
		events:        events,
		users:         users,
		logger:        logger,
		now:           systemClock,
	}
}

// List returns every announcement newest first, each with its creator's
// name and a summary of the referenced event.
func (s *AnnouncementService) List(ctx context.Context) ([]model.Announcement, error) {
	list, err := s.announcements.ListAnnouncements(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/announcement: listing: %w", err)
	}
	if err := s.decorate(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *AnnouncementService) Get(ctx context.Context, id string) (*model.Announcement, error) {
	a, err := s.announcements.GetAnnouncement(ctx, id)
	if err != nil {
		return nil, err
	}
	list := []model.Announcement{*a}
	if err := s.decorate(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *AnnouncementService) Create(ctx context.Context, actor auth.Identity, in AnnouncementInput) (*model.Announcement, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only admins can create announcements")
	}

	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkEventRef(ctx, in.EventID); err != nil {
		return nil, err
	}

	now := s.now()
	a := &model.Announcement{
		ID:        xid.New().String(),
		Title:     in.Title,
		Content:   in.Content,
		EventID:   in.EventID,
		CreatedBy: actor.UserID,
		Likes:     []model.Like{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.announcements.CreateAnnouncement(ctx, a); err != nil {
		return nil, fmt.Errorf("service/announcement: creating: %w", err)
	}

	s.logger.Info("announcement created", slog.String("announcementID", a.ID), slog.String("userID", actor.UserID))
	return s.Get(ctx, a.ID)
}

func (s *AnnouncementService) Update(ctx context.Context, actor auth.Identity, id string, patch AnnouncementPatch) (*model.Announcement, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("only admins can update announcements")
	}

	// The reference is checked before the mutation: an event lookup inside
	// the callback would need a second connection the sqlite store does
	// not have while its transaction is open.
	var ref *string
	if patch.EventID != nil {
		ref = normalizeRef(patch.EventID)
		if err := s.checkEventRef(ctx, ref); err != nil {
			return nil, err
		}
	}

	_, err := s.announcements.MutateAnnouncement(ctx, id, func(a *model.Announcement) error {
		in := AnnouncementInput{Title: a.Title, Content: a.Content}
		if patch.Title != nil {
			in.Title = *patch.Title
		}
		if patch.Content != nil {
			in.Content = *patch.Content
		}
		in.Title = strings.TrimSpace(in.Title)
		in.Content = strings.TrimSpace(in.Content)
		if err := validate.Struct(in); err != nil {
			return err
		}

		a.Title = in.Title
		a.Content = in.Content
		if patch.EventID != nil {
			a.EventID = ref
		}
		a.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("announcement updated", slog.String("announcementID", id), slog.String("userID", actor.UserID))
	return s.Get(ctx, id)
}

func (s *AnnouncementService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	if !actor.IsAdmin() {
		return apperror.Forbidden("only admins can delete announcements")
	}
	if err := s.announcements.DeleteAnnouncement(ctx, id); err != nil {
		return err
	}
	s.logger.Info("announcement deleted", slog.String("announcementID", id), slog.String("userID", actor.UserID))
	return nil
}

// ToggleLike has the same semantics as EventService.ToggleLike.
func (s *AnnouncementService) ToggleLike(ctx context.Context, actor auth.Identity, id string) (LikeResult, error) {
	var res LikeResult
	_, err := s.announcements.MutateAnnouncement(ctx, id, func(a *model.Announcement) error {
		res.Liked = a.ToggleLike(actor.UserID, s.now())
		res.LikesCount = len(a.Likes)
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

// checkEventRef turns a reference to a missing event into a validation
// error on the eventId field.
func (s *AnnouncementService) checkEventRef(ctx context.Context, eventID *string) error {
	if eventID == nil {
		return nil
	}
	_, err := s.events.GetEvent(ctx, *eventID)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.ValidationFailed("eventId", "referenced event does not exist")
	}
	if err != nil {
		return fmt.Errorf("service/announcement: checking event %s: %w", *eventID, err)
	}
	return nil
}

// decorate fills creator and liker names and the referenced event summary.
func (s *AnnouncementService) decorate(ctx context.Context, list []model.Announcement) error {
	var userIDs, eventIDs []string
	for _, a := range list {
		userIDs = append(userIDs, a.CreatedBy)
		for _, l := range a.Likes {
			userIDs = append(userIDs, l.UserID)
		}
		if a.EventID != nil {
			eventIDs = append(eventIDs, *a.EventID)
		}
	}

	names, err := s.users.Usernames(ctx, dedupe(userIDs))
	if err != nil {
		return fmt.Errorf("service/announcement: resolving usernames: %w", err)
	}

	summaries := make(map[string]*model.EventSummary)
	if len(eventIDs) > 0 {
		events, err := s.events.ListEventsByIDs(ctx, dedupe(eventIDs))
		if err != nil {
			return fmt.Errorf("service/announcement: loading referenced events: %w", err)
		}
		for _, ev := range events {
			summaries[ev.ID] = &model.EventSummary{
				ID:        ev.ID,
				Title:     ev.Title,
				EventDate: ev.EventDate,
				Location:  ev.Location,
			}
		}
	}

	for i := range list {
		a := &list[i]
		a.CreatorName = names[a.CreatedBy]
		for j := range a.Likes {
			a.Likes[j].Username = names[a.Likes[j].UserID]
		}
		if a.EventID != nil {
			a.Event = summaries[*a.EventID]
		}
	}
	return nil
}
