package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/krishangMittal/PlayMyJam/internal/config"
	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/hub"
	"github.com/krishangMittal/PlayMyJam/internal/store"
	"github.com/krishangMittal/PlayMyJam/pkg/pubsub"
)

var errStoreDown = errors.New("connection refused")

// fakeStore is an in-memory store.Store.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[string]*domain.Room
	requests map[string]*domain.SongRequest

	failGetRoom      bool
	failCreate       bool
	failList         bool
	failUpdateStatus bool
	failActiveUsers  bool
	createRoomErrs   []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[string]*domain.Room),
		requests: make(map[string]*domain.SongRequest),
	}
}

func (f *fakeStore) addRoom(code string, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[code] = &domain.Room{Code: code, DJID: "dj", CreatedAt: createdAt}
}

func (f *fakeStore) room(code string) *domain.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[code]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (f *fakeStore) requestsIn(code string) []*domain.SongRequest {
	reqs, _ := f.GetRequestsByRoom(context.Background(), code, 0)
	return reqs
}

func (f *fakeStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createRoomErrs) > 0 {
		err := f.createRoomErrs[0]
		f.createRoomErrs = f.createRoomErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := f.rooms[room.Code]; ok {
		return store.ErrRoomExists
	}
	cp := *room
	f.rooms[room.Code] = &cp
	return nil
}

func (f *fakeStore) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGetRoom {
		return nil, errStoreDown
	}
	r, ok := f.rooms[code]
	if !ok {
		return nil, store.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) UpdateRoomActiveUsers(ctx context.Context, code string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failActiveUsers {
		return errStoreDown
	}
	if r, ok := f.rooms[code]; ok {
		r.ActiveUsers = count
	}
	return nil
}

func (f *fakeStore) DeleteRoom(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, code)
	return nil
}

func (f *fakeStore) CreateRequest(ctx context.Context, req *domain.SongRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errStoreDown
	}
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeStore) GetRequestsByRoom(ctx context.Context, code string, limit int) ([]*domain.SongRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errStoreDown
	}
	var out []*domain.SongRequest
	for _, r := range f.requests {
		if r.RoomCode == code {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateRequestStatus(ctx context.Context, roomCode, id string, allowedFrom []domain.RequestStatus, status domain.RequestStatus) (*domain.SongRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateStatus {
		return nil, errStoreDown
	}
	r, ok := f.requests[id]
	if !ok || r.RoomCode != roomCode {
		return nil, store.ErrRequestNotFound
	}
	if allowedFrom != nil {
		allowed := false
		for _, s := range allowedFrom {
			if s == r.Status {
				allowed = true
			}
		}
		if !allowed {
			return nil, store.ErrStatusConflict
		}
	}
	r.Status = status
	cp := *r
	return &cp, nil
}

func (f *fakeStore) DeleteRequestsByRoom(ctx context.Context, code string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.requests {
		if r.RoomCode == code {
			delete(f.requests, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindIdleRoomsOlderThan(ctx context.Context, t time.Time) ([]*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Room
	for _, r := range f.rooms {
		if r.ActiveUsers == 0 && r.CreatedAt.Before(t) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ResetActiveUsers(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		r.ActiveUsers = 0
	}
	return nil
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// sequenceIDs hands out predictable identifiers.
type sequenceIDs struct {
	mu   sync.Mutex
	ids  []string
	next int
}

func (g *sequenceIDs) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.ids) {
		return "", errors.New("out of ids")
	}
	id := g.ids[g.next]
	g.next++
	return id, nil
}

func newClient(id, room string) *hub.Client {
	return hub.NewClient(id, room, nil, config.WebSocketConfig{SendBuffer: 64}, zerolog.Nop())
}

type frame struct {
	Type        string                `json:"type"`
	Count       int                   `json:"count"`
	ActiveUsers int                   `json:"activeUsers"`
	Requests    []*domain.SongRequest `json:"requests"`
	Request     *domain.SongRequest   `json:"request"`
	RequestID   string                `json:"requestId"`
	Status      string                `json:"status"`
	Code        string                `json:"code"`
	Message     string                `json:"message"`
}

// frames drains everything queued for c.
func frames(t *testing.T, c *hub.Client) []frame {
	t.Helper()
	var out []frame
	for {
		select {
		case data, ok := <-c.Outbox():
			if !ok {
				return out
			}
			var f frame
			require.NoError(t, json.Unmarshal(data, &f))
			out = append(out, f)
		default:
			return out
		}
	}
}

func frameTypes(fs []frame) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Type
	}
	return out
}
