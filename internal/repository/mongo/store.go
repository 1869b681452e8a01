// Package mongo implements the repository interfaces on MongoDB.
//
// Each aggregate is one document: an event embeds its likes, comments and
// ratings, a user embeds the favorites list. Writes follow an optimistic
// scheme: every document carries a version counter, and a mutation replaces
// the document only if the version it read is still current. A lost race
// reloads and retries; after maxAttempts the caller gets a Conflict.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// maxAttempts bounds the optimistic retry loop of a single mutation.
const maxAttempts = 3

const (
	usersCollection         = "users"
	eventsCollection        = "events"
	announcementsCollection = "announcements"
)

type Store struct {
	client        *mongo.Client
	users         *mongo.Collection
	events        *mongo.Collection
	announcements *mongo.Collection

	// transactions is true when the deployment is a replica set or a
	// sharded cluster; standalone servers reject multi-document transactions.
	transactions bool
}

// New connects to uri, verifies the connection and makes sure the indexes
// exist. Index creation is idempotent.
func New(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:        client,
		users:         db.Collection(usersCollection),
		events:        db.Collection(eventsCollection),
		announcements: db.Collection(announcementsCollection),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	var hello bson.M
	if err := client.Database("admin").RunCommand(connectCtx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: reading topology: %w", err)
	}
	s.transactions = supportsTransactions(hello)
	return s, nil
}

// supportsTransactions inspects a hello reply: replica set members report
// setName, mongos routers report msg "isdbgrid".
func supportsTransactions(hello bson.M) bool {
	if name, ok := hello["setName"].(string); ok && name != "" {
		return true
	}
	return hello["msg"] == "isdbgrid"
}

// inTransaction runs fn inside a multi-document transaction when the
// deployment supports one, otherwise directly. fn must use the context it is
// given so its operations join the session.
func (s *Store) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: starting session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		// Password accounts have no github_id field at all; the partial
		// filter keeps them out of the unique index.
		{
			Keys: bson.D{{Key: "github_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"github_id": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "favorite_events", Value: 1}}},
	}
	if _, err := s.users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("mongo: creating user indexes: %w", err)
	}

	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_date", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	}
	if _, err := s.events.Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return fmt.Errorf("mongo: creating event indexes: %w", err)
	}

	announcementIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}}},
	}
	if _, err := s.announcements.Indexes().CreateMany(ctx, announcementIndexes); err != nil {
		return fmt.Errorf("mongo: creating announcement indexes: %w", err)
	}
	return nil
}

// mutate is the optimistic read-modify-write shared by every aggregate.
// version must return a pointer to the document's version field.
//
// fn may run more than once when a concurrent writer wins the race, so it
// must only touch the document it is given and its own result variables.
func mutate[T any](ctx context.Context, coll *mongo.Collection, kind, id string, version func(*T) *int64, fn func(*T) error) (*T, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var doc T
		err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(kind, id)
		}
		if err != nil {
			return nil, fmt.Errorf("mongo: loading %s %s: %w", kind, id, err)
		}

		if err := fn(&doc); err != nil {
			return nil, err
		}

		v := version(&doc)
		prev := *v
		*v = prev + 1

		res, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "version": prev}, &doc)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, duplicateConflict(err)
			}
			return nil, fmt.Errorf("mongo: saving %s %s: %w", kind, id, err)
		}
		if res.MatchedCount == 1 {
			return &doc, nil
		}
		// Someone else saved in between. Reload and re-apply fn.
	}
	return nil, apperror.Conflict(fmt.Sprintf("%s was modified concurrently, please retry", kind))
}

// duplicateConflict maps an E11000 error onto the field whose unique index
// fired. The index names are the driver defaults, e.g. "email_1".
func duplicateConflict(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "email_1"):
		return apperror.Conflict("email is already registered")
	case strings.Contains(msg, "username_1"):
		return apperror.Conflict("username is already taken")
	case strings.Contains(msg, "github_id_1"):
		return apperror.Conflict("github account is already linked")
	default:
		return apperror.Conflict("duplicate key")
	}
}
