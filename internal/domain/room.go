package domain

import (
	"fmt"
	"strings"
	"time"
)

// Room is a DJ session that participants join by code.
type Room struct {
	Code        string    `json:"roomCode"`
	DJID        string    `json:"djId"`
	ActiveUsers int       `json:"activeUsers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RequestStatus is the lifecycle state of a song request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusPlaying   RequestStatus = "playing"
	StatusCompleted RequestStatus = "completed"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPlaying, StatusCompleted:
		return true
	}
	return false
}

// ParseRequestStatus parses a wire status string.
func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrMalformedMessage, s)
	}
	return status, nil
}

// AllowedFrom returns the statuses a request may be in before moving to target.
// A nil result means any status is accepted. In strict mode only the single
// preceding status is accepted, so pending can never be re-entered.
func AllowedFrom(target RequestStatus, strict bool) []RequestStatus {
	if !strict {
		return nil
	}
	switch target {
	case StatusPlaying:
		return []RequestStatus{StatusPending}
	case StatusCompleted:
		return []RequestStatus{StatusPlaying}
	default:
		return []RequestStatus{}
	}
}

// CanTransition reports whether from → to is permitted.
func CanTransition(from, to RequestStatus, strict bool) bool {
	if !to.Valid() {
		return false
	}
	allowed := AllowedFrom(to, strict)
	if allowed == nil {
		return true
	}
	for _, s := range allowed {
		if s == from {
			return true
		}
	}
	return false
}

// SongRequest is a participant's request for a song in a room.
type SongRequest struct {
	ID        string        `json:"_id"`
	RoomCode  string        `json:"roomCode"`
	Song      string        `json:"song"`
	Artist    string        `json:"artist"`
	Status    RequestStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	DJID string `json:"djId" binding:"required,max=100"`
}

// CreateRoomResponse is returned after a room is created.
type CreateRoomResponse struct {
	RoomCode string `json:"roomCode"`
}
