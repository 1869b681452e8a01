package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
	"github.com/sakif/eventhub/internal/repository"
)

var _ repository.EventRepository = (*Store)(nil)

func (s *Store) CreateEvent(ctx context.Context, ev *model.Event) error {
	if ev.ID == "" {
		ev.ID = primitive.NewObjectID().Hex()
	}
	fillEvent(ev)
	if _, err := s.events.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("mongo: inserting event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var ev model.Event
	err := s.events.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting event %s: %w", id, err)
	}
	fillEvent(&ev)
	return &ev, nil
}

func (s *Store) ListEvents(ctx context.Context, filter repository.EventFilter) ([]model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "event_date", Value: 1}, {Key: "_id", Value: 1}})
	return s.findEvents(ctx, eventFilterDocument(filter), opts)
}

func (s *Store) ListEventsByIDs(ctx context.Context, ids []string) ([]model.Event, error) {
	if len(ids) == 0 {
		return []model.Event{}, nil
	}
	return s.findEvents(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) MutateEvent(ctx context.Context, id string, fn func(*model.Event) error) (*model.Event, error) {
	ev, err := mutate(ctx, s.events, "event", id,
		func(e *model.Event) *int64 { return &e.Version },
		func(e *model.Event) error {
			fillEvent(e)
			return fn(e)
		})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// DeleteEvent removes the event document, which takes its embedded likes,
// comments and ratings with it, then detaches favorites and announcements.
// On replica sets and sharded clusters the three writes commit as one
// transaction. On a standalone server they run in sequence; a failure
// part-way leaves references that the read paths already skip. The
// follow-up updates bump each document's version so a concurrent optimistic
// write cannot resurrect the stale reference.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.inTransaction(ctx, func(ctx context.Context) error {
		return s.deleteEvent(ctx, id)
	})
}

func (s *Store) deleteEvent(ctx context.Context, id string) error {
	res, err := s.events.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: deleting event %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("event", id)
	}

	if _, err := s.users.UpdateMany(ctx,
		bson.M{"favorite_events": id},
		bson.M{"$pull": bson.M{"favorite_events": id}, "$inc": bson.M{"version": 1}},
	); err != nil {
		return fmt.Errorf("mongo: clearing favorites of event %s: %w", id, err)
	}

	if _, err := s.announcements.UpdateMany(ctx,
		bson.M{"event_id": id},
		bson.M{"$set": bson.M{"event_id": nil}, "$inc": bson.M{"version": 1}},
	); err != nil {
		return fmt.Errorf("mongo: detaching announcements from event %s: %w", id, err)
	}
	return nil
}

func (s *Store) findEvents(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]model.Event, error) {
	cur, err := s.events.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongo: finding events: %w", err)
	}
	events := []model.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("mongo: decoding events: %w", err)
	}
	for i := range events {
		fillEvent(&events[i])
	}
	return events, nil
}

// eventFilterDocument translates the filter into a query document. The
// search term is quoted so it matches literally, never as a pattern.
func eventFilterDocument(f repository.EventFilter) bson.M {
	doc := bson.M{}
	if f.Category != "" {
		doc["category"] = string(f.Category)
	}
	if f.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		doc["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	switch f.Window {
	case repository.WindowUpcoming:
		doc["event_date"] = bson.M{"$gte": f.Now}
	case repository.WindowPast:
		doc["event_date"] = bson.M{"$lt": f.Now}
	}
	return doc
}

// fillEvent replaces null arrays (from documents written with empty slices
// or by hand) with empty ones.
func fillEvent(ev *model.Event) {
	if ev.Likes == nil {
		ev.Likes = []model.Like{}
	}
	if ev.Comments == nil {
		ev.Comments = []model.Comment{}
	}
	for i := range ev.Comments {
		if ev.Comments[i].Likes == nil {
			ev.Comments[i].Likes = []string{}
		}
	}
	if ev.Ratings == nil {
		ev.Ratings = []model.Rating{}
	}
}
