package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/krishangMittal/PlayMyJam/internal/config"
	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/hub"
	"github.com/krishangMittal/PlayMyJam/internal/idgen"
	"github.com/krishangMittal/PlayMyJam/internal/service"
	"github.com/krishangMittal/PlayMyJam/pkg/log"
)

// Close codes sent when a connection is refused.
const (
	CloseInvalidRoom  = 4400
	CloseRoomNotFound = 4404
)

type WSHandler struct {
	service  service.JamService
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
	sessions sync.WaitGroup
}

func NewWSHandler(svc service.JamService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		service: svc,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket serves one connection for its whole lifetime.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())
	roomCode := idgen.Normalize(c.Query("room"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.sessions.Add(1)
	defer h.sessions.Done()

	connID := idgen.ConnectionID()
	// Hijacked connections outlive the request context.
	ctx := log.WithRoom(log.WithConnection(c.Request.Context(), connID), roomCode)
	logger := log.Ctx(ctx)

	if _, err := h.service.ValidateRoom(ctx, roomCode); err != nil {
		code, text := closeFor(err)
		logger.Warn().Err(err).Int("close_code", code).Msg("connection refused")
		deadline := time.Now().Add(h.wsCfg.WriteWait)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
		conn.Close()
		return
	}

	client := hub.NewClient(connID, roomCode, conn, h.wsCfg, logger)
	go client.WritePump()

	if err := h.service.HandleConnect(ctx, client); err != nil {
		logger.Error().Err(err).Msg("failed to admit connection")
		client.CloseWith(websocket.CloseInternalServerErr, "internal error")
		return
	}

	client.ReadPump(func(cl *hub.Client, data []byte) {
		h.handleMessage(ctx, cl, data)
	})

	if err := h.service.HandleDisconnect(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("disconnect handling failed")
	}
	client.Close()
}

// Wait blocks until every upgraded connection has finished its disconnect
// handling, or ctx is done. Call it after the hub has closed its clients.
func (h *WSHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			l := log.Ctx(ctx)
			l.Error().Interface("panic", r).Msg("recovered from panic in message handler")
			_ = client.SendMessage(domain.NewErrorMessage(domain.ErrCodeInternalError, "internal error"))
		}
	}()

	h.service.HandleMessage(ctx, client, data)
}

func closeFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRoom):
		return CloseInvalidRoom, "invalid room"
	case errors.Is(err, domain.ErrRoomNotFound):
		return CloseRoomNotFound, "room not found"
	default:
		return websocket.CloseInternalServerErr, "store unavailable"
	}
}
