package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/hub"
)

func TestRoomService_CreateRoom(t *testing.T) {
	st := newFakeStore()
	st.addRoom("TAKEN1", time.Now())
	codes := &sequenceIDs{ids: []string{"TAKEN1", "FRESH1"}}
	svc := NewRoomService(st, nil, codes, 100)

	room, err := svc.CreateRoom(context.Background(), "  dj-42 ")
	require.NoError(t, err)
	assert.Equal(t, "FRESH1", room.Code)
	assert.Equal(t, "dj-42", room.DJID)
	assert.False(t, room.CreatedAt.IsZero())
	assert.NotNil(t, st.room("FRESH1"))

	_, err = svc.CreateRoom(context.Background(), " ")
	assert.True(t, errors.Is(err, ErrInvalidDJ))
}

func TestRoomService_CreateRoom_Failures(t *testing.T) {
	st := newFakeStore()
	st.createRoomErrs = []error{errStoreDown}
	svc := NewRoomService(st, nil, &sequenceIDs{ids: []string{"AAAAAA"}}, 100)

	_, err := svc.CreateRoom(context.Background(), "dj")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))

	st = newFakeStore()
	for _, code := range []string{"A", "B", "C", "D", "E"} {
		st.addRoom(code, time.Now())
	}
	svc = NewRoomService(st, nil, &sequenceIDs{ids: []string{"A", "B", "C", "D", "E", "F"}}, 100)
	_, err = svc.CreateRoom(context.Background(), "dj")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.Nil(t, st.room("F"))
}

func TestRoomService_GetRoomUsesLiveCount(t *testing.T) {
	st := newFakeStore()
	st.addRoom("DJ7X9K", time.Now())
	h := hub.NewHub()
	_, err := h.Join(newClient("a", "DJ7X9K"), nil, nil)
	require.NoError(t, err)

	svc := NewRoomService(st, h, nil, 100)
	room, err := svc.GetRoom(context.Background(), "DJ7X9K")
	require.NoError(t, err)
	assert.Equal(t, 1, room.ActiveUsers)

	_, err = svc.GetRoom(context.Background(), "NOPE00")
	assert.True(t, errors.Is(err, domain.ErrRoomNotFound))

	st.failGetRoom = true
	_, err = svc.GetRoom(context.Background(), "DJ7X9K")
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestRoomService_ListRequests(t *testing.T) {
	st := newFakeStore()
	st.addRoom("DJ7X9K", time.Now())
	base := time.Now()
	for i, id := range []string{"R1", "R2", "R3"} {
		st.requests[id] = &domain.SongRequest{ID: id, RoomCode: "DJ7X9K", Status: domain.StatusPending, Timestamp: base.Add(time.Duration(i) * time.Second)}
	}
	svc := NewRoomService(st, nil, nil, 2)
	ctx := context.Background()

	reqs, err := svc.ListRequests(ctx, "DJ7X9K", 0)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "R3", reqs[0].ID)

	reqs, err = svc.ListRequests(ctx, "DJ7X9K", 1)
	require.NoError(t, err)
	assert.Len(t, reqs, 1)

	_, err = svc.ListRequests(ctx, "NOPE00", 10)
	assert.True(t, errors.Is(err, domain.ErrRoomNotFound))
}
