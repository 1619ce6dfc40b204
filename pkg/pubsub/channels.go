package pubsub

import (
	"fmt"
	"strings"
)

// ChannelRoomActivity is the per-room activity channel.
const ChannelRoomActivity = "playmyjam:room:%s:activity"

// Activity event types.
const (
	EventRequestSubmitted     = "request.submitted"
	EventRequestStatusChanged = "request.status_changed"
	EventRoomPresence         = "room.presence"
	EventRoomReaped           = "room.reaped"
)

// RoomActivityChannel returns the activity channel name for a room.
func RoomActivityChannel(roomCode string) string {
	return fmt.Sprintf(ChannelRoomActivity, roomCode)
}

// roomFromChannel extracts the room code from an activity channel name.
//
//	"playmyjam:room:DJ7X9K:activity" → "DJ7X9K"
func roomFromChannel(channel string) (string, error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != "room" || parts[2] == "" {
		return "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return parts[2], nil
}

// Event payloads.

// RequestSubmittedPayload is published after a song request is persisted.
type RequestSubmittedPayload struct {
	RequestID string `json:"request_id"`
	Song      string `json:"song"`
	Artist    string `json:"artist"`
}

// RequestStatusChangedPayload is published after a status change is persisted.
type RequestStatusChangedPayload struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// RoomPresencePayload is published whenever a room's live membership changes.
type RoomPresencePayload struct {
	ActiveUsers int `json:"active_users"`
}

// RoomReapedPayload is published when the reaper deletes a room.
type RoomReapedPayload struct {
	DJID       string `json:"dj_id"`
	Requests   int64  `json:"requests"`
	ArchiveKey string `json:"archive_key,omitempty"`
}
