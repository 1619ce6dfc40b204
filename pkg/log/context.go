package log

import (
	"context"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger attaches logger to ctx. The Gin middleware uses it to hand each
// HTTP request its request-scoped logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Ctx returns the request, connection or room logger carried by ctx, or the
// process logger when ctx has none (background workers, CLI commands).
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// WithConnection detaches a WebSocket session from its upgrade request.
// The returned context is never cancelled and logs with the request fields
// of parent plus the connection ID.
func WithConnection(parent context.Context, connID string) context.Context {
	l := Ctx(parent)
	return WithLogger(context.Background(), l.With().Str(FieldConnectionID, connID).Logger())
}

// WithRoom tags every later log line of ctx with the room code.
func WithRoom(ctx context.Context, roomCode string) context.Context {
	l := Ctx(ctx)
	return WithLogger(ctx, l.With().Str(FieldRoomCode, roomCode).Logger())
}
