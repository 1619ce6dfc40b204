package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/pkg/storage"
)

// Snapshot is the archived form of a reaped room.
type Snapshot struct {
	Room       *domain.Room          `json:"room"`
	Requests   []*domain.SongRequest `json:"requests"`
	ArchivedAt time.Time             `json:"archivedAt"`
}

// Archiver stores a room snapshot and returns its key.
type Archiver interface {
	Archive(ctx context.Context, room *domain.Room, requests []*domain.SongRequest) (string, error)
}

// StorageArchiver writes snapshots as JSON documents to object storage.
type StorageArchiver struct {
	storage storage.Storage
	prefix  string
	now     func() time.Time
}

func NewStorageArchiver(s storage.Storage, prefix string) *StorageArchiver {
	return &StorageArchiver{
		storage: s,
		prefix:  prefix,
		now:     time.Now,
	}
}

// Key returns "<prefix>/<roomCode>/<unix>.json".
func (a *StorageArchiver) Key(roomCode string, at time.Time) string {
	return path.Join(a.prefix, roomCode, fmt.Sprintf("%d.json", at.Unix()))
}

func (a *StorageArchiver) Archive(ctx context.Context, room *domain.Room, requests []*domain.SongRequest) (string, error) {
	if requests == nil {
		requests = []*domain.SongRequest{}
	}
	snap := Snapshot{
		Room:       room,
		Requests:   requests,
		ArchivedAt: a.now().UTC(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := a.Key(room.Code, snap.ArchivedAt)
	if err := a.storage.Write(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}
	return key, nil
}
