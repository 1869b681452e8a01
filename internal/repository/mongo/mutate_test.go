package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

// The mock deployment answers commands from a scripted queue, so these
// tests run without a server.

func eventDoc(version int64) bson.D {
	return bson.D{
		{Key: "_id", Value: "e1"},
		{Key: "title", Value: "Cloud Native Conference"},
		{Key: "category", Value: "technology"},
		{Key: "version", Value: version},
	}
}

func findReply(mt *mtest.T, docs ...bson.D) bson.D {
	ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, docs...)
}

func writeReply(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

// replaceFilterVersions returns the version each update command was
// conditioned on, in order.
func replaceFilterVersions(mt *mtest.T) []int64 {
	mt.Helper()
	var versions []int64
	for _, ev := range mt.GetAllStartedEvents() {
		if ev.CommandName != "update" {
			continue
		}
		updates, err := ev.Command.Lookup("updates").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, updates, 1)
		versions = append(versions, updates[0].Document().Lookup("q", "version").Int64())
	}
	return versions
}

func TestMutateEvent_OptimisticRetry(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("lost race is retried on the fresh document", func(mt *mtest.T) {
		s := &Store{events: mt.Coll}
		mt.AddMockResponses(
			findReply(mt, eventDoc(1)),
			writeReply(0), // a concurrent writer saved version 2 first
			findReply(mt, eventDoc(2)),
			writeReply(1),
		)

		calls := 0
		ev, err := s.MutateEvent(context.Background(), "e1", func(e *model.Event) error {
			calls++
			e.ToggleLike("u1", now)
			return nil
		})
		require.NoError(mt, err)

		assert.Equal(mt, 2, calls, "the mutation is re-applied after reloading")
		assert.Equal(mt, int64(3), ev.Version)
		assert.Len(mt, ev.Likes, 1)
		assert.Equal(mt, []int64{1, 2}, replaceFilterVersions(mt))
	})

	mt.Run("gives up with Conflict after every attempt loses", func(mt *mtest.T) {
		s := &Store{events: mt.Coll}
		for i := 0; i < maxAttempts; i++ {
			mt.AddMockResponses(findReply(mt, eventDoc(int64(i+1))), writeReply(0))
		}

		calls := 0
		_, err := s.MutateEvent(context.Background(), "e1", func(e *model.Event) error {
			calls++
			return nil
		})
		require.ErrorIs(mt, err, apperror.ErrConflict)
		assert.Equal(mt, "event was modified concurrently, please retry", err.Error())
		assert.Equal(mt, maxAttempts, calls)
		assert.Equal(mt, []int64{1, 2, 3}, replaceFilterVersions(mt))
	})

	mt.Run("missing document is NotFound", func(mt *mtest.T) {
		s := &Store{events: mt.Coll}
		mt.AddMockResponses(findReply(mt))

		_, err := s.MutateEvent(context.Background(), "e1", func(*model.Event) error {
			mt.Fatal("mutation must not run")
			return nil
		})
		require.ErrorIs(mt, err, apperror.ErrNotFound)
	})

	mt.Run("rejected mutation writes nothing", func(mt *mtest.T) {
		s := &Store{events: mt.Coll}
		mt.AddMockResponses(findReply(mt, eventDoc(1)))

		_, err := s.MutateEvent(context.Background(), "e1", func(*model.Event) error {
			return apperror.Forbidden("not allowed")
		})
		require.ErrorIs(mt, err, apperror.ErrForbidden)
		assert.Empty(mt, replaceFilterVersions(mt))
	})
}

func TestDeleteEvent_Standalone(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("detaches favorites and announcements", func(mt *mtest.T) {
		s := &Store{client: mt.Client, events: mt.Coll, users: mt.Coll, announcements: mt.Coll}
		mt.AddMockResponses(writeReply(1), writeReply(2), writeReply(1))

		require.NoError(mt, s.DeleteEvent(context.Background(), "e1"))

		var commands []string
		for _, ev := range mt.GetAllStartedEvents() {
			commands = append(commands, ev.CommandName)
		}
		assert.Equal(mt, []string{"delete", "update", "update"}, commands)
	})

	mt.Run("unknown id stops after the delete", func(mt *mtest.T) {
		s := &Store{client: mt.Client, events: mt.Coll, users: mt.Coll, announcements: mt.Coll}
		mt.AddMockResponses(writeReply(0))

		err := s.DeleteEvent(context.Background(), "e1")
		require.ErrorIs(mt, err, apperror.ErrNotFound)
		assert.Len(mt, mt.GetAllStartedEvents(), 1)
	})
}

func TestSupportsTransactions(t *testing.T) {
	tests := []struct {
		name  string
		hello bson.M
		want  bool
	}{
		{"standalone", bson.M{"isWritablePrimary": true}, false},
		{"replica set member", bson.M{"isWritablePrimary": true, "setName": "rs0"}, true},
		{"mongos", bson.M{"isWritablePrimary": true, "msg": "isdbgrid"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, supportsTransactions(tt.hello))
		})
	}
}
