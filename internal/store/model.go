package store

import (
	"time"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
)

// RoomModel is the GORM model for the rooms table.
type RoomModel struct {
	Code        string    `gorm:"type:varchar(32);primaryKey"`
	DJID        string    `gorm:"column:dj_id;type:varchar(100);index"`
	ActiveUsers int       `gorm:"not null;default:0;index:idx_rooms_idle,priority:1"`
	CreatedAt   time.Time `gorm:"not null;index:idx_rooms_idle,priority:2"`
}

// TableName specifies the table name for RoomModel.
func (RoomModel) TableName() string {
	return "rooms"
}

// ToDomain converts RoomModel to domain Room.
func (m *RoomModel) ToDomain() *domain.Room {
	return &domain.Room{
		Code:        m.Code,
		DJID:        m.DJID,
		ActiveUsers: m.ActiveUsers,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

// RoomToModel converts domain Room to RoomModel.
func RoomToModel(r *domain.Room) *RoomModel {
	return &RoomModel{
		Code:        r.Code,
		DJID:        r.DJID,
		ActiveUsers: r.ActiveUsers,
		CreatedAt:   r.CreatedAt,
	}
}

// SongRequestModel is the GORM model for the song_requests table.
type SongRequestModel struct {
	ID        string    `gorm:"type:varchar(26);primaryKey"`
	RoomCode  string    `gorm:"type:varchar(32);not null;index:idx_requests_room_ts,priority:1"`
	Song      string    `gorm:"type:varchar(255);not null"`
	Artist    string    `gorm:"type:varchar(255);not null"`
	Status    string    `gorm:"type:varchar(16);not null;default:'pending'"`
	Timestamp time.Time `gorm:"not null;index:idx_requests_room_ts,priority:2"`
}

// TableName specifies the table name for SongRequestModel.
func (SongRequestModel) TableName() string {
	return "song_requests"
}

// ToDomain converts SongRequestModel to domain SongRequest.
func (m *SongRequestModel) ToDomain() *domain.SongRequest {
	return &domain.SongRequest{
		ID:        m.ID,
		RoomCode:  m.RoomCode,
		Song:      m.Song,
		Artist:    m.Artist,
		Status:    domain.RequestStatus(m.Status),
		Timestamp: m.Timestamp.UTC(),
	}
}

// SongRequestToModel converts domain SongRequest to SongRequestModel.
func SongRequestToModel(r *domain.SongRequest) *SongRequestModel {
	return &SongRequestModel{
		ID:        r.ID,
		RoomCode:  r.RoomCode,
		Song:      r.Song,
		Artist:    r.Artist,
		Status:    string(r.Status),
		Timestamp: r.Timestamp,
	}
}

func statusStrings(statuses []domain.RequestStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
