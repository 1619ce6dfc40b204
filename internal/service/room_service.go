package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/krishangMittal/PlayMyJam/internal/audit"
	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/hub"
	"github.com/krishangMittal/PlayMyJam/internal/idgen"
	"github.com/krishangMittal/PlayMyJam/internal/store"
	"github.com/krishangMittal/PlayMyJam/pkg/log"
)

const maxCodeAttempts = 5

var ErrInvalidDJ = errors.New("djId is required")

type roomService struct {
	store     store.Store
	hub       *hub.Hub
	codes     idgen.Generator
	listLimit int
	now       func() time.Time
}

// NewRoomService creates a room service. h may be nil when no live registry
// exists in the process; counts then come from the store alone.
func NewRoomService(st store.Store, h *hub.Hub, codes idgen.Generator, listLimit int) RoomService {
	return &roomService{
		store:     st,
		hub:       h,
		codes:     codes,
		listLimit: listLimit,
		now:       time.Now,
	}
}

// CreateRoom allocates a fresh room code, retrying on collision.
func (s *roomService) CreateRoom(ctx context.Context, djID string) (*domain.Room, error) {
	djID = strings.TrimSpace(djID)
	if djID == "" {
		return nil, ErrInvalidDJ
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, err
		}

		room := &domain.Room{
			Code:      code,
			DJID:      djID,
			CreatedAt: s.now().UTC(),
		}
		err = s.store.CreateRoom(ctx, room)
		if err == nil {
			audit.LogWithDetail(ctx, audit.ActionRoomCreate, room.Code, djID, "room created")
			return room, nil
		}
		if !errors.Is(err, store.ErrRoomExists) {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}

		l := log.Ctx(ctx)
		l.Debug().Str(log.FieldRoomCode, code).Int("attempt", attempt).Msg("room code collision")
	}

	return nil, fmt.Errorf("%w: no free room code after %d attempts", domain.ErrStoreUnavailable, maxCodeAttempts)
}

// GetRoom returns the room with its live active-user count.
func (s *roomService) GetRoom(ctx context.Context, roomCode string) (*domain.Room, error) {
	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	if s.hub != nil {
		room.ActiveUsers = s.hub.Size(roomCode)
	}
	return room, nil
}

// ListRequests returns a room's requests newest-first.
func (s *roomService) ListRequests(ctx context.Context, roomCode string, limit int) ([]*domain.SongRequest, error) {
	if _, err := s.GetRoom(ctx, roomCode); err != nil {
		return nil, err
	}

	if limit <= 0 || (s.listLimit > 0 && limit > s.listLimit) {
		limit = s.listLimit
	}

	requests, err := s.store.GetRequestsByRoom(ctx, roomCode, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return requests, nil
}
