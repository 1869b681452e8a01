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

var _ repository.UserRepository = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	if user.FavoriteEvents == nil {
		user.FavoriteEvents = []string{}
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return duplicateConflict(err)
		}
		return fmt.Errorf("mongo: inserting user %q: %w", user.Username, err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email}, email)
}

func (s *Store) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return s.findUser(ctx, bson.M{"github_id": githubID}, fmt.Sprint(githubID))
}

func (s *Store) MutateUser(ctx context.Context, id string, fn func(*model.User) error) (*model.User, error) {
	return mutate(ctx, s.users, "user", id,
		func(u *model.User) *int64 { return &u.Version },
		func(u *model.User) error {
			if u.FavoriteEvents == nil {
				u.FavoriteEvents = []string{}
			}
			return fn(u)
		})
}

func (s *Store) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1})
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: resolving usernames: %w", err)
	}
	var rows []struct {
		ID       string `bson:"_id"`
		Username string `bson:"username"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("mongo: decoding usernames: %w", err)
	}
	for _, r := range rows {
		names[r.ID] = r.Username
	}
	return names, nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M, key string) (*model.User, error) {
	var user model.User
	err := s.users.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("user", key)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting user %s: %w", key, err)
	}
	if user.FavoriteEvents == nil {
		user.FavoriteEvents = []string{}
	}
	return &user, nil
}
