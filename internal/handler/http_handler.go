package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/idgen"
	"github.com/krishangMittal/PlayMyJam/internal/service"
	"github.com/krishangMittal/PlayMyJam/pkg/log"
	"github.com/krishangMittal/PlayMyJam/pkg/response"
)

// Handler handles the HTTP room API.
type Handler struct {
	roomService service.RoomService
}

// NewHandler creates a new HTTP handler.
func NewHandler(roomService service.RoomService) *Handler {
	return &Handler{roomService: roomService}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	{
		rooms := api.Group("/rooms")
		{
			rooms.POST("", h.CreateRoom)
			rooms.GET("/:roomCode", h.GetRoom)
			rooms.GET("/:roomCode/requests", h.ListRequests)
		}
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateRoom creates a new room for a DJ.
func (h *Handler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	room, err := h.roomService.CreateRoom(ctx, req.DJID)
	if err != nil {
		h.writeError(c, err, "failed to create room")
		return
	}

	response.Created(c, domain.CreateRoomResponse{RoomCode: room.Code})
}

// GetRoom retrieves a room by code.
func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.roomService.GetRoom(c.Request.Context(), idgen.Normalize(c.Param("roomCode")))
	if err != nil {
		h.writeError(c, err, "failed to get room")
		return
	}

	response.Success(c, room)
}

// ListRequests lists a room's requests newest-first.
func (h *Handler) ListRequests(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	requests, err := h.roomService.ListRequests(c.Request.Context(), idgen.Normalize(c.Param("roomCode")), limit)
	if err != nil {
		h.writeError(c, err, "failed to list requests")
		return
	}

	response.Success(c, requests)
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	l := log.Ctx(c.Request.Context())

	switch {
	case errors.Is(err, service.ErrInvalidDJ):
		response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrInvalidRoom):
		response.Error(c, http.StatusBadRequest, domain.ErrCodeInvalidRoom, "invalid room code")
	case errors.Is(err, domain.ErrRoomNotFound):
		response.NotFound(c, domain.ErrCodeRoomNotFound, "room not found")
	case errors.Is(err, domain.ErrStoreUnavailable):
		l.Error().Err(err).Msg(msg)
		response.ServiceUnavailable(c, "store unavailable")
	default:
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, msg)
	}
}
