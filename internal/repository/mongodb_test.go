package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/m2tx/gemini_adapter/internal/model"
)

func TestMongoThreadRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("save upserts", func(mt *mtest.T) {
		repo := NewMongoThreadRepository(mt.DB, mt.Coll.Name())
		saved := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
		repo.now = func() time.Time { return saved }
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "t1"}}}},
		))

		err := repo.Save(ctx, Turn{
			ThreadID: "t1",
			RunID:    "r1",
			Model:    "gemini-2.5-flash",
			History:  []model.Content{{Role: "user", Parts: []model.Part{{Text: "Hi"}}}},
		})
		require.NoError(mt, err)

		update := mt.GetStartedEvent().Command.Lookup("updates", "0")
		require.Equal(mt, "t1", update.Document().Lookup("q", "_id").StringValue())
		require.True(mt, update.Document().Lookup("upsert").Boolean())

		u := update.Document().Lookup("u").Document()
		require.Equal(mt, "r1", u.Lookup("$set", "run_id").StringValue())
		require.Equal(mt, "gemini-2.5-flash", u.Lookup("$set", "model").StringValue())
		require.Equal(mt, "Hi", u.Lookup("$set", "history", "0", "parts", "0", "text").StringValue())
		require.True(mt, saved.Equal(u.Lookup("$setOnInsert", "created_at").Time()))
		require.Equal(mt, int32(1), u.Lookup("$inc", "runs").Int32())

		_, err = u.LookupErr("$set", "created_at")
		require.Error(mt, err)
	})

	mt.Run("save surfaces command errors", func(mt *mtest.T) {
		repo := NewMongoThreadRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))

		err := repo.Save(ctx, Turn{ThreadID: "t1", RunID: "r1"})
		require.Error(mt, err)
		require.Contains(mt, err.Error(), `upsert thread "t1" run "r1"`)
	})

	mt.Run("load decodes history", func(mt *mtest.T) {
		repo := NewMongoThreadRepository(mt.DB, mt.Coll.Name())
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "t1"},
			{Key: "history", Value: bson.A{
				bson.D{
					{Key: "role", Value: "user"},
					{Key: "parts", Value: bson.A{bson.D{{Key: "text", Value: "Hi"}}}},
				},
				bson.D{
					{Key: "role", Value: "model"},
					{Key: "parts", Value: bson.A{bson.D{
						{Key: "function_call", Value: bson.D{
							{Key: "name", Value: "lookup"},
							{Key: "args", Value: bson.D{{Key: "q", Value: "x"}}},
						}},
					}}},
				},
			}},
		}))

		history, err := repo.Load(ctx, "t1")
		require.NoError(mt, err)
		require.Len(mt, history, 2)
		require.Equal(mt, "Hi", history[0].Parts[0].Text)
		require.Equal(mt, "lookup", history[1].Parts[0].FunctionCall.Name)
		require.Equal(mt, "x", history[1].Parts[0].FunctionCall.Args["q"])
	})

	mt.Run("load unknown thread", func(mt *mtest.T) {
		repo := NewMongoThreadRepository(mt.DB, mt.Coll.Name())
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		history, err := repo.Load(ctx, "nope")
		require.NoError(mt, err)
		require.Nil(mt, history)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoThreadRepository(mt.DB, mt.Coll.Name())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(mt, repo.Delete(ctx, "t1"))
	})
}

func TestNewMongoThreadRepositoryDefaultCollection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("default collection", func(mt *mtest.T) {
		repo := NewMongoThreadRepository(mt.DB, "")
		require.Equal(mt, DefaultCollection, repo.collection.Name())
	})
}
