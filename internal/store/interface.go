package store

import (
	"context"
	"errors"
	"time"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrRequestNotFound = errors.New("request not found")
	ErrStatusConflict  = errors.New("request status does not allow this transition")
)

// Store persists rooms and song requests. Implementations hold no broadcast logic.
type Store interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	// UpdateRoomActiveUsers writes the durable count. A missing room is not an error.
	UpdateRoomActiveUsers(ctx context.Context, code string, count int) error
	// DeleteRoom is idempotent.
	DeleteRoom(ctx context.Context, code string) error

	CreateRequest(ctx context.Context, req *domain.SongRequest) error
	// GetRequestsByRoom returns requests newest-first. limit <= 0 returns all of them.
	GetRequestsByRoom(ctx context.Context, code string, limit int) ([]*domain.SongRequest, error)
	// UpdateRequestStatus sets the status of a request owned by roomCode and returns
	// the stored record. A nil allowedFrom accepts any current status; otherwise the
	// write only happens when the current status is listed (compare-and-set), and
	// ErrStatusConflict is returned if it is not.
	UpdateRequestStatus(ctx context.Context, roomCode, id string, allowedFrom []domain.RequestStatus, status domain.RequestStatus) (*domain.SongRequest, error)
	// DeleteRequestsByRoom is idempotent and returns the number of deleted requests.
	DeleteRequestsByRoom(ctx context.Context, code string) (int64, error)

	// FindIdleRoomsOlderThan returns rooms with no active users created before t.
	FindIdleRoomsOlderThan(ctx context.Context, t time.Time) ([]*domain.Room, error)
	// ResetActiveUsers zeroes every durable count.
	ResetActiveUsers(ctx context.Context) error

	// Migrate creates tables or indexes.
	Migrate(ctx context.Context) error
	Close() error
}
