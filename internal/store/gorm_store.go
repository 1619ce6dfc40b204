package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/pkg/database"
	"github.com/krishangMittal/PlayMyJam/pkg/log"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-based store.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the rooms and song_requests tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return database.AutoMigrate(s.db.WithContext(ctx), &RoomModel{}, &SongRequestModel{})
}

// CreateRoom inserts a new room.
func (s *GormStore) CreateRoom(ctx context.Context, room *domain.Room) error {
	l := log.Ctx(ctx)

	model := RoomToModel(room)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoomExists
		}
		l.Error().Err(err).Str(log.FieldRoomCode, room.Code).Msg("failed to create room in db")
		return err
	}

	room.CreatedAt = model.CreatedAt
	return nil
}

// GetRoom retrieves a room by code.
func (s *GormStore) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	var model RoomModel
	result := s.db.WithContext(ctx).First(&model, "code = ?", code)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldRoomCode, code).Msg("failed to get room")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// UpdateRoomActiveUsers writes the durable active-user count.
func (s *GormStore) UpdateRoomActiveUsers(ctx context.Context, code string, count int) error {
	return s.db.WithContext(ctx).
		Model(&RoomModel{}).
		Where("code = ?", code).
		Update("active_users", count).Error
}

// DeleteRoom removes a room. Deleting a missing room succeeds.
func (s *GormStore) DeleteRoom(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Where("code = ?", code).Delete(&RoomModel{}).Error
}

// CreateRequest inserts a song request.
func (s *GormStore) CreateRequest(ctx context.Context, req *domain.SongRequest) error {
	if err := s.db.WithContext(ctx).Create(SongRequestToModel(req)).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomCode, req.RoomCode).Msg("failed to create song request")
		return err
	}
	return nil
}

// GetRequestsByRoom lists a room's requests newest-first.
func (s *GormStore) GetRequestsByRoom(ctx context.Context, code string, limit int) ([]*domain.SongRequest, error) {
	query := s.db.WithContext(ctx).
		Where("room_code = ?", code).
		Order("timestamp DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []SongRequestModel
	if err := query.Find(&models).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldRoomCode, code).Msg("failed to list song requests")
		return nil, err
	}

	requests := make([]*domain.SongRequest, len(models))
	for i := range models {
		requests[i] = models[i].ToDomain()
	}
	return requests, nil
}

// UpdateRequestStatus sets a request's status, guarded by allowedFrom when non-nil.
func (s *GormStore) UpdateRequestStatus(ctx context.Context, roomCode, id string, allowedFrom []domain.RequestStatus, status domain.RequestStatus) (*domain.SongRequest, error) {
	var updated SongRequestModel

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&SongRequestModel{}).Where("id = ? AND room_code = ?", id, roomCode)
		if allowedFrom != nil {
			if len(allowedFrom) == 0 {
				return s.conflictOrNotFound(tx, roomCode, id)
			}
			query = query.Where("status IN ?", statusStrings(allowedFrom))
		}

		result := query.Update("status", string(status))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 && allowedFrom != nil {
			return s.conflictOrNotFound(tx, roomCode, id)
		}

		// MySQL reports zero affected rows when the value is unchanged, so
		// existence is decided by the read below in permissive mode.
		if err := tx.First(&updated, "id = ? AND room_code = ?", id, roomCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrRequestNotFound) && !errors.Is(err, ErrStatusConflict) {
			l := log.Ctx(ctx)
			l.Error().Err(err).Str(log.FieldSongRequest, id).Msg("failed to update request status")
		}
		return nil, err
	}

	return updated.ToDomain(), nil
}

func (s *GormStore) conflictOrNotFound(tx *gorm.DB, roomCode, id string) error {
	var count int64
	if err := tx.Model(&SongRequestModel{}).Where("id = ? AND room_code = ?", id, roomCode).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return ErrStatusConflict
}

// DeleteRequestsByRoom removes every request of a room.
func (s *GormStore) DeleteRequestsByRoom(ctx context.Context, code string) (int64, error) {
	result := s.db.WithContext(ctx).Where("room_code = ?", code).Delete(&SongRequestModel{})
	return result.RowsAffected, result.Error
}

// FindIdleRoomsOlderThan returns rooms with zero active users created before t.
func (s *GormStore) FindIdleRoomsOlderThan(ctx context.Context, t time.Time) ([]*domain.Room, error) {
	var models []RoomModel
	err := s.db.WithContext(ctx).
		Where("active_users = ? AND created_at < ?", 0, t.UTC()).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	rooms := make([]*domain.Room, len(models))
	for i := range models {
		rooms[i] = models[i].ToDomain()
	}
	return rooms, nil
}

// ResetActiveUsers zeroes every non-zero durable count.
func (s *GormStore) ResetActiveUsers(ctx context.Context) error {
	result := s.db.WithContext(ctx).
		Model(&RoomModel{}).
		Where("active_users <> ?", 0).
		Update("active_users", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		l := log.Ctx(ctx)
		l.Info().Int64("rooms", result.RowsAffected).Msg("reset stale active user counts")
	}
	return nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	return database.Close(s.db)
}
