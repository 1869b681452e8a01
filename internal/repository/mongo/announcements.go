package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.AnnouncementRepository = (*Store)(nil)

func (s *Store) CreateAnnouncement(ctx context.Context, a *model.Announcement) error {
	if a.ID == "" {
		a.ID = primitive.NewObjectID().Hex()
	}
	if a.Likes == nil {
		a.Likes = []model.Like{}
	}
	if _, err := s.announcements.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("mongo: inserting announcement: %w", err)
	}
	return nil
}

func (s *Store) GetAnnouncement(ctx context.Context, id string) (*model.Announcement, error) {
	var a model.Announcement
	err := s.announcements.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("announcement", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting announcement %s: %w", id, err)
	}
	if a.Likes == nil {
		a.Likes = []model.Like{}
	}
	return &a, nil
}

func (s *Store) ListAnnouncements(ctx context.Context) ([]model.Announcement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.announcements.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing announcements: %w", err)
	}
	list := []model.Announcement{}
	if err := cur.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("mongo: decoding announcements: %w", err)
	}
	for i := range list {
		if list[i].Likes == nil {
			list[i].Likes = []model.Like{}
		}
	}
	return list, nil
}

func (s *Store) MutateAnnouncement(ctx context.Context, id string, fn func(*model.Announcement) error) (*model.Announcement, error) {
	return mutate(ctx, s.announcements, "announcement", id,
		func(a *model.Announcement) *int64 { return &a.Version },
		fn)
}

func (s *Store) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := s.announcements.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: deleting announcement %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("announcement", id)
	}
	return nil
}
