package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
)

func TestRequestStatusFilter(t *testing.T) {
	assert.Equal(t, bson.M{"_id": "R1", "roomCode": "DJ7X9K"}, requestStatusFilter("DJ7X9K", "R1", nil))

	got := requestStatusFilter("DJ7X9K", "R1", domain.AllowedFrom(domain.StatusCompleted, true))
	assert.Equal(t, bson.M{"$in": []string{"playing"}}, got["status"])

	got = requestStatusFilter("DJ7X9K", "R1", []domain.RequestStatus{})
	assert.Equal(t, bson.M{"$in": []string{}}, got["status"])
}

func TestDocumentsToDomain(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	room := (&RoomDocument{RoomCode: "DJ7X9K", DJID: "dj", CreatedAt: ts, ActiveUsers: 2}).ToDomain()
	assert.Equal(t, "DJ7X9K", room.Code)
	assert.Equal(t, 2, room.ActiveUsers)
	assert.Equal(t, time.UTC, room.CreatedAt.Location())

	req := (&RequestDocument{ID: "R1", RoomCode: "DJ7X9K", Song: "s", Artist: "a", Status: "playing", Timestamp: ts}).ToDomain()
	assert.Equal(t, domain.StatusPlaying, req.Status)
	assert.True(t, req.Timestamp.Equal(ts))
}

func TestMongoStore_UpdateRequestStatus(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "playmyjam.requests"
	allowed := domain.AllowedFrom(domain.StatusCompleted, true)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("updated", func(mt *mtest.T) {
		s := &MongoStore{client: mt.Client, requests: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "R1"},
			{Key: "roomCode", Value: "DJ7X9K"},
			{Key: "song", Value: "Houdini"},
			{Key: "artist", Value: "Dua Lipa"},
			{Key: "status", Value: "completed"},
			{Key: "timestamp", Value: ts},
		}}))

		req, err := s.UpdateRequestStatus(context.Background(), "DJ7X9K", "R1", allowed, domain.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, "R1", req.ID)
		assert.Equal(t, domain.StatusCompleted, req.Status)
		assert.True(t, req.Timestamp.Equal(ts))
	})

	mt.Run("status conflict", func(mt *mtest.T) {
		s := &MongoStore{client: mt.Client, requests: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int64(1)}}),
		)

		_, err := s.UpdateRequestStatus(context.Background(), "DJ7X9K", "R1", allowed, domain.StatusCompleted)
		assert.True(t, errors.Is(err, ErrStatusConflict), "got %v", err)
	})

	mt.Run("missing request", func(mt *mtest.T) {
		s := &MongoStore{client: mt.Client, requests: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		_, err := s.UpdateRequestStatus(context.Background(), "DJ7X9K", "R9", allowed, domain.StatusCompleted)
		assert.True(t, errors.Is(err, ErrRequestNotFound), "got %v", err)
	})

	mt.Run("permissive miss skips count", func(mt *mtest.T) {
		s := &MongoStore{client: mt.Client, requests: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := s.UpdateRequestStatus(context.Background(), "DJ7X9K", "R9", nil, domain.StatusPlaying)
		assert.True(t, errors.Is(err, ErrRequestNotFound), "got %v", err)
		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "findAndModify", started.CommandName)
		assert.Nil(t, mt.GetStartedEvent(), "no count after an unconditional update")
	})

	mt.Run("driver error", func(mt *mtest.T) {
		s := &MongoStore{client: mt.Client, requests: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad filter",
		}))

		_, err := s.UpdateRequestStatus(context.Background(), "DJ7X9K", "R1", allowed, domain.StatusCompleted)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrRequestNotFound))
		assert.False(t, errors.Is(err, ErrStatusConflict))
	})
}
