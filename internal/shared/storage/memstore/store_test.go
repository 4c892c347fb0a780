package memstore

import (
	"context"
	"testing"
	"time"

	"reminder/internal/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type item struct {
	ID    bson.ObjectID `bson:"_id,omitempty"`
	Owner string        `bson:"owner"`
	Tags  []entry       `bson:"tags"`
	At    time.Time     `bson:"at"`
}

type entry struct {
	Tag string `bson:"tag"`
}

func seed(t *testing.T, col storage.Collection, owner string) bson.ObjectID {
	t.Helper()
	id := bson.NewObjectID()
	require.NoError(t, col.InsertOne(context.Background(), item{ID: id, Owner: owner, Tags: []entry{}}))
	return id
}

func TestInsertAndFind(t *testing.T) {
	s := New()
	col := s.Collection("items")
	ctx := context.Background()

	id := seed(t, col, "a")
	seed(t, col, "b")
	seed(t, col, "a")

	var got item
	require.NoError(t, col.FindOne(ctx, bson.D{{Key: "_id", Value: id}}, &got))
	assert.Equal(t, "a", got.Owner)
	assert.NotNil(t, got.Tags)

	var owned []*item
	require.NoError(t, col.Find(ctx, bson.D{{Key: "owner", Value: "a"}}, &owned))
	assert.Len(t, owned, 2)

	var values []item
	require.NoError(t, col.Find(ctx, bson.D{{Key: "owner", Value: "nobody"}}, &values))
	assert.Empty(t, values)

	err := col.FindOne(ctx, bson.D{{Key: "owner", Value: "nobody"}}, &got)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 3, s.Count("items"))
}

func TestInsert_AssignsID(t *testing.T) {
	s := New()
	col := s.Collection("items")
	require.NoError(t, col.InsertOne(context.Background(), item{Owner: "a"}))

	var got item
	require.NoError(t, col.FindOne(context.Background(), bson.D{{Key: "owner", Value: "a"}}, &got))
	assert.False(t, got.ID.IsZero())
}

func TestInsert_UniqueIndex(t *testing.T) {
	s := New(WithUniqueIndex("items", "owner"))
	col := s.Collection("items")
	ctx := context.Background()

	id := seed(t, col, "a")
	assert.ErrorIs(t, col.InsertOne(ctx, item{Owner: "a"}), storage.ErrDuplicate)
	assert.ErrorIs(t, col.InsertOne(ctx, item{ID: id, Owner: "b"}), storage.ErrDuplicate)
}

func TestUpdateOperators(t *testing.T) {
	s := New()
	col := s.Collection("items")
	ctx := context.Background()
	id := seed(t, col, "a")
	byID := bson.D{{Key: "_id", Value: id}}

	addTag := func(tag string) *storage.UpdateResult {
		res, err := col.UpdateOne(ctx, byID, bson.D{{Key: "$addToSet", Value: bson.D{{Key: "tags", Value: entry{Tag: tag}}}}})
		require.NoError(t, err)
		return res
	}

	assert.Equal(t, int64(1), addTag("x").ModifiedCount)
	res := addTag("x")
	assert.Equal(t, int64(1), res.MatchedCount)
	assert.Equal(t, int64(0), res.ModifiedCount)

	res, err := col.UpdateOne(ctx, byID, bson.D{{Key: "$push", Value: bson.D{{Key: "tags", Value: entry{Tag: "y"}}}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	res, err = col.UpdateOne(ctx, byID, bson.D{{Key: "$pull", Value: bson.D{{Key: "tags", Value: bson.D{{Key: "tag", Value: "x"}}}}}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.ModifiedCount)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	_, err = col.UpdateOne(ctx, byID, bson.D{{Key: "$set", Value: bson.D{{Key: "at", Value: at}}}})
	require.NoError(t, err)

	var got item
	require.NoError(t, col.FindOne(ctx, byID, &got))
	assert.Equal(t, []entry{{Tag: "y"}}, got.Tags)
	assert.True(t, at.Equal(got.At))

	res, err = col.UpdateOne(ctx, bson.D{{Key: "_id", Value: bson.NewObjectID()}}, bson.D{{Key: "$set", Value: bson.D{{Key: "owner", Value: "z"}}}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.MatchedCount)
}

func TestUpdate_UnsupportedOperator(t *testing.T) {
	s := New()
	col := s.Collection("items")
	id := seed(t, col, "a")
	_, err := col.UpdateOne(context.Background(), bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$inc", Value: bson.D{{Key: "n", Value: 1}}}})
	assert.Error(t, err)
}

func TestDeleteOne(t *testing.T) {
	s := New()
	col := s.Collection("items")
	ctx := context.Background()
	id := seed(t, col, "a")

	res, err := col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)

	res, err = col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.DeletedCount)
}

func TestSetDown(t *testing.T) {
	s := New()
	col := s.Collection("items")
	ctx := context.Background()

	s.SetDown(true)
	assert.ErrorIs(t, s.Ping(ctx), storage.ErrUnavailable)
	assert.ErrorIs(t, col.InsertOne(ctx, item{Owner: "a"}), storage.ErrUnavailable)
	var got item
	assert.ErrorIs(t, col.FindOne(ctx, bson.D{}, &got), storage.ErrUnavailable)

	s.SetDown(false)
	assert.NoError(t, s.Ping(ctx))
}
