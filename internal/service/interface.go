package service

import (
	"context"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/hub"
)

// JamService drives the live connection lifecycle and the request state machine.
type JamService interface {
	ValidateRoom(ctx context.Context, roomCode string) (*domain.Room, error)
	HandleConnect(ctx context.Context, client *hub.Client) error
	HandleMessage(ctx context.Context, client *hub.Client, data []byte)
	HandleSongRequest(ctx context.Context, client *hub.Client, msg *domain.SongRequestMessage) error
	HandleStatusUpdate(ctx context.Context, client *hub.Client, msg *domain.StatusUpdateMessage) error
	HandleHeartbeat(ctx context.Context, client *hub.Client) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error
	Start(ctx context.Context) error
	Stop() error
}

// RoomService backs the HTTP room API.
type RoomService interface {
	CreateRoom(ctx context.Context, djID string) (*domain.Room, error)
	GetRoom(ctx context.Context, roomCode string) (*domain.Room, error)
	ListRequests(ctx context.Context, roomCode string, limit int) ([]*domain.SongRequest, error)
}
