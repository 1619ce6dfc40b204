package audit

import (
	"context"

	"github.com/krishangMittal/PlayMyJam/pkg/log"
)

// Audit actions.
const (
	ActionRoomCreate    = "room.create"
	ActionRoomJoin      = "room.join"
	ActionRoomLeave     = "room.leave"
	ActionRoomIdle      = "room.idle"
	ActionRoomReap      = "room.reap"
	ActionRequestSubmit = "request.submit"
	ActionRequestStatus = "request.status"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, roomCode string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomCode, roomCode).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, roomCode string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldRoomCode, roomCode).
		Str(FieldDetail, detail).
		Msg(msg)
}
