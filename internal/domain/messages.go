package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// WebSocket message types from client.
const (
	MsgTypeSongRequest         = "song_request"
	MsgTypeRequestStatusUpdate = "request_status_update"
	MsgTypeHeartbeat           = "heartbeat"
)

// WebSocket message types to client.
const (
	MsgTypeInitialState      = "initial_state"
	MsgTypeActiveUsersUpdate = "active_users_update"
	MsgTypeNewRequest        = "new_request"
	MsgTypeHeartbeatAck      = "heartbeat_ack"
	MsgTypeError             = "error"
)

// BaseMessage is the envelope shared by every WebSocket message.
type BaseMessage struct {
	Type string `json:"type"`
}

// Inbound is a message received from a participant.
type Inbound interface {
	inbound()
}

// Client -> Server messages

type SongRequestMessage struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
	Song     string `json:"song"`
	Artist   string `json:"artist"`
}

type StatusUpdateMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

type HeartbeatMessage struct {
	Type string `json:"type"`
}

func (*SongRequestMessage) inbound()  {}
func (*StatusUpdateMessage) inbound() {}
func (*HeartbeatMessage) inbound()    {}

// DecodeInbound parses a raw frame into one of the inbound message types.
func DecodeInbound(data []byte) (Inbound, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedMessage)
	}

	var msg Inbound
	switch base.Type {
	case MsgTypeSongRequest:
		msg = &SongRequestMessage{}
	case MsgTypeRequestStatusUpdate:
		msg = &StatusUpdateMessage{}
	case MsgTypeHeartbeat:
		return &HeartbeatMessage{Type: base.Type}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, base.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: invalid %s payload", ErrMalformedMessage, base.Type)
	}
	return msg, nil
}

// Validate trims the song and artist and checks them against the connection's room.
func (m *SongRequestMessage) Validate(roomCode string, maxLen int) error {
	m.Song = strings.TrimSpace(m.Song)
	m.Artist = strings.TrimSpace(m.Artist)

	if m.RoomCode != "" && m.RoomCode != roomCode {
		return fmt.Errorf("%w: roomCode does not match connection", ErrMalformedMessage)
	}
	if m.Song == "" || m.Artist == "" {
		return fmt.Errorf("%w: song and artist are required", ErrMalformedMessage)
	}
	if maxLen > 0 && (utf8.RuneCountInString(m.Song) > maxLen || utf8.RuneCountInString(m.Artist) > maxLen) {
		return fmt.Errorf("%w: song and artist must be at most %d characters", ErrMalformedMessage, maxLen)
	}
	return nil
}

// Outbound is a message sent to participants.
type Outbound interface {
	outbound()
}

// Server -> Client messages

type InitialStateMessage struct {
	Type        string         `json:"type"`
	Requests    []*SongRequest `json:"requests"`
	ActiveUsers int            `json:"activeUsers"`
}

type ActiveUsersUpdateMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type NewRequestMessage struct {
	Type    string       `json:"type"`
	Request *SongRequest `json:"request"`
}

type RequestStatusUpdateMessage struct {
	Type      string        `json:"type"`
	RequestID string        `json:"requestId"`
	Status    RequestStatus `json:"status"`
}

type HeartbeatAckMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (*InitialStateMessage) outbound()        {}
func (*ActiveUsersUpdateMessage) outbound()   {}
func (*NewRequestMessage) outbound()          {}
func (*RequestStatusUpdateMessage) outbound() {}
func (*HeartbeatAckMessage) outbound()        {}
func (*ErrorMessage) outbound()               {}

func NewInitialStateMessage(requests []*SongRequest, activeUsers int) *InitialStateMessage {
	if requests == nil {
		requests = []*SongRequest{}
	}
	return &InitialStateMessage{Type: MsgTypeInitialState, Requests: requests, ActiveUsers: activeUsers}
}

func NewActiveUsersUpdateMessage(count int) *ActiveUsersUpdateMessage {
	return &ActiveUsersUpdateMessage{Type: MsgTypeActiveUsersUpdate, Count: count}
}

func NewNewRequestMessage(req *SongRequest) *NewRequestMessage {
	return &NewRequestMessage{Type: MsgTypeNewRequest, Request: req}
}

// NewRequestStatusUpdateMessage builds the broadcast from a persisted request.
func NewRequestStatusUpdateMessage(req *SongRequest) *RequestStatusUpdateMessage {
	return &RequestStatusUpdateMessage{Type: MsgTypeRequestStatusUpdate, RequestID: req.ID, Status: req.Status}
}

func NewHeartbeatAckMessage() *HeartbeatAckMessage {
	return &HeartbeatAckMessage{Type: MsgTypeHeartbeatAck}
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{Type: MsgTypeError, Code: code, Message: message}
}

// NewErrorMessageFromErr builds a private error event for err.
func NewErrorMessageFromErr(err error) *ErrorMessage {
	code := ErrorCode(err)
	msg := err.Error()
	switch code {
	case ErrCodeStoreUnavailable:
		msg = "storage is temporarily unavailable, please retry"
	case ErrCodeInternalError:
		msg = "error processing request"
	}
	return NewErrorMessage(code, msg)
}
