package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krishangMittal/PlayMyJam/internal/audit"
	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/hub"
	"github.com/krishangMittal/PlayMyJam/internal/idgen"
	"github.com/krishangMittal/PlayMyJam/internal/store"
	"github.com/krishangMittal/PlayMyJam/pkg/log"
	"github.com/krishangMittal/PlayMyJam/pkg/pubsub"
)

const (
	storeTimeout   = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// JamConfig tunes the jam service.
type JamConfig struct {
	RecentLimit       int
	MaxFieldLength    int
	StrictTransitions bool
	SyncInterval      time.Duration
}

type jamService struct {
	hub       *hub.Hub
	store     store.Store
	publisher pubsub.Publisher
	ids       idgen.Generator
	cfg       JamConfig
	now       func() time.Time

	started  atomic.Bool
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewJamService(h *hub.Hub, st store.Store, publisher pubsub.Publisher, ids idgen.Generator, cfg JamConfig) JamService {
	if publisher == nil {
		publisher = pubsub.NoopPublisher{}
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 30 * time.Second
	}
	return &jamService{
		hub:       h,
		store:     st,
		publisher: publisher,
		ids:       ids,
		cfg:       cfg,
		now:       time.Now,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ValidateRoom checks that the room code is present and known to the store.
func (s *jamService) ValidateRoom(ctx context.Context, roomCode string) (*domain.Room, error) {
	if roomCode == "" {
		return nil, domain.ErrInvalidRoom
	}

	room, err := s.store.GetRoom(ctx, roomCode)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return room, nil
}

// HandleConnect admits a validated client into its room. The recent-request
// snapshot is read first and delivered as the client's first frame.
func (s *jamService) HandleConnect(ctx context.Context, c *hub.Client) error {
	l := log.Ctx(ctx)

	requests, snapErr := s.store.GetRequestsByRoom(ctx, c.RoomCode, s.cfg.RecentLimit)
	if snapErr != nil {
		l.Error().Err(snapErr).Msg("failed to load initial state")
		requests = nil
	}

	size, err := s.hub.Join(c,
		func(size int) interface{} { return domain.NewInitialStateMessage(requests, size) },
		func(size int) interface{} { return domain.NewActiveUsersUpdateMessage(size) },
	)
	if err != nil {
		l.Warn().Err(err).Msg("failed to queue initial state")
	}

	if snapErr != nil {
		c.SendMessage(domain.NewErrorMessageFromErr(fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, snapErr)))
	}

	s.writeActiveUsers(ctx, c.RoomCode, size)
	s.publish(ctx, c.RoomCode, pubsub.EventRoomPresence, pubsub.RoomPresencePayload{ActiveUsers: size})
	audit.LogWithDetail(ctx, audit.ActionRoomJoin, c.RoomCode, c.ID, "connection joined room")
	return nil
}

// HandleMessage decodes one inbound frame and dispatches it. Errors are
// reported privately to the sender; the connection stays open.
func (s *jamService) HandleMessage(ctx context.Context, c *hub.Client, data []byte) {
	msg, err := domain.DecodeInbound(data)
	if err == nil {
		switch m := msg.(type) {
		case *domain.SongRequestMessage:
			err = s.HandleSongRequest(ctx, c, m)
		case *domain.StatusUpdateMessage:
			err = s.HandleStatusUpdate(ctx, c, m)
		case *domain.HeartbeatMessage:
			err = s.HandleHeartbeat(ctx, c)
		}
	}
	if err == nil {
		return
	}

	l := log.Ctx(ctx)
	evt := l.Warn()
	if errors.Is(err, domain.ErrStoreUnavailable) {
		evt = l.Error()
	}
	evt.Err(err).Msg("message rejected")

	if sendErr := c.SendMessage(domain.NewErrorMessageFromErr(err)); sendErr != nil {
		l.Debug().Err(sendErr).Msg("failed to send error message")
	}
}

// HandleSongRequest persists a pending request, then announces it to the room.
func (s *jamService) HandleSongRequest(ctx context.Context, c *hub.Client, msg *domain.SongRequestMessage) error {
	// Clients echo the room from their join link, which may be lower case.
	msg.RoomCode = idgen.Normalize(msg.RoomCode)
	if err := msg.Validate(c.RoomCode, s.cfg.MaxFieldLength); err != nil {
		return err
	}

	id, err := s.ids.Generate()
	if err != nil {
		return err
	}

	req := &domain.SongRequest{
		ID:        id,
		RoomCode:  c.RoomCode,
		Song:      msg.Song,
		Artist:    msg.Artist,
		Status:    domain.StatusPending,
		Timestamp: s.now().UTC(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	if _, err := s.hub.Broadcast(c.RoomCode, domain.NewNewRequestMessage(req)); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to broadcast new request")
	}

	s.publish(ctx, c.RoomCode, pubsub.EventRequestSubmitted, pubsub.RequestSubmittedPayload{
		RequestID: req.ID,
		Song:      req.Song,
		Artist:    req.Artist,
	})
	audit.LogWithDetail(ctx, audit.ActionRequestSubmit, c.RoomCode, req.ID, "song request submitted")
	return nil
}

// HandleStatusUpdate applies a status change in the store and broadcasts the
// stored result. Nothing is broadcast unless the write succeeded.
func (s *jamService) HandleStatusUpdate(ctx context.Context, c *hub.Client, msg *domain.StatusUpdateMessage) error {
	if msg.RequestID == "" {
		return fmt.Errorf("%w: requestId is required", domain.ErrMalformedMessage)
	}
	status, err := domain.ParseRequestStatus(msg.Status)
	if err != nil {
		return err
	}

	allowed := domain.AllowedFrom(status, s.cfg.StrictTransitions)
	if allowed != nil && len(allowed) == 0 {
		return fmt.Errorf("%w: cannot move a request back to %s", domain.ErrInvalidTransition, status)
	}

	updated, err := s.store.UpdateRequestStatus(ctx, c.RoomCode, msg.RequestID, allowed, status)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRequestNotFound):
			return fmt.Errorf("%w: %s", domain.ErrRequestNotFound, msg.RequestID)
		case errors.Is(err, store.ErrStatusConflict):
			return fmt.Errorf("%w: request %s cannot move to %s", domain.ErrInvalidTransition, msg.RequestID, status)
		default:
			return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
	}

	if _, err := s.hub.Broadcast(c.RoomCode, domain.NewRequestStatusUpdateMessage(updated)); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to broadcast status update")
	}

	s.publish(ctx, c.RoomCode, pubsub.EventRequestStatusChanged, pubsub.RequestStatusChangedPayload{
		RequestID: updated.ID,
		Status:    string(updated.Status),
	})
	audit.LogWithDetail(ctx, audit.ActionRequestStatus, c.RoomCode, updated.ID+":"+string(updated.Status), "song request status changed")
	return nil
}

func (s *jamService) HandleHeartbeat(ctx context.Context, c *hub.Client) error {
	return c.SendMessage(domain.NewHeartbeatAckMessage())
}

// HandleDisconnect removes the client from its room exactly once and marks
// the room idle when it empties. Idle rooms are left for the reaper.
func (s *jamService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	size, removed := s.hub.Leave(c, func(size int) interface{} {
		return domain.NewActiveUsersUpdateMessage(size)
	})
	if !removed {
		return nil
	}

	// The request context may already be gone once the socket closes.
	ctx = context.WithoutCancel(ctx)

	s.writeActiveUsers(ctx, c.RoomCode, size)
	s.publish(ctx, c.RoomCode, pubsub.EventRoomPresence, pubsub.RoomPresencePayload{ActiveUsers: size})
	audit.LogWithDetail(ctx, audit.ActionRoomLeave, c.RoomCode, c.ID, "connection left room")

	if size == 0 {
		audit.Log(ctx, audit.ActionRoomIdle, c.RoomCode, "room is empty and eligible for reaping")
	}
	return nil
}

// writeActiveUsers persists the count best-effort. Failures leave the room
// dirty so the presence syncer retries it.
func (s *jamService) writeActiveUsers(ctx context.Context, roomCode string, count int) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.UpdateRoomActiveUsers(ctx, roomCode, count); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Int(log.FieldActiveUsers, count).Msg("failed to update active users")
		s.hub.MarkDirty(roomCode)
	}
}

func (s *jamService) publish(ctx context.Context, roomCode, eventType string, payload interface{}) {
	evt, err := pubsub.NewEvent(eventType, roomCode, payload)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, pubsub.RoomActivityChannel(roomCode), evt); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish activity event")
	}
}

// Start resets durable counts left over from a previous process and launches
// the presence syncer.
func (s *jamService) Start(ctx context.Context) error {
	resetCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.store.ResetActiveUsers(resetCtx); err != nil {
		return fmt.Errorf("failed to reset active users: %w", err)
	}

	s.started.Store(true)
	go s.runPresenceSync(ctx)
	return nil
}

// Stop halts the presence syncer after a final flush.
func (s *jamService) Stop() error {
	if !s.started.Load() {
		return nil
	}
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
	return nil
}

func (s *jamService) runPresenceSync(ctx context.Context) {
	defer close(s.done)

	l := log.Ctx(ctx)
	l.Info().Dur("interval", s.cfg.SyncInterval).Msg("presence syncer started")

	ticker := time.NewTicker(s.cfg.SyncInterval)
	defer ticker.Stop()

	flushCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ticker.C:
			s.syncPresence(ctx)
		case <-s.quit:
			s.syncPresence(flushCtx)
			l.Info().Msg("presence syncer stopped")
			return
		case <-ctx.Done():
			s.syncPresence(flushCtx)
			l.Info().Msg("presence syncer stopped")
			return
		}
	}
}

// syncPresence rewrites the durable count of every room whose membership
// changed since the previous pass, using the live size at flush time.
func (s *jamService) syncPresence(ctx context.Context) {
	l := log.Ctx(ctx)
	for _, code := range s.hub.TakeDirty() {
		size := s.hub.Size(code)

		writeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		err := s.store.UpdateRoomActiveUsers(writeCtx, code, size)
		cancel()
		if err != nil {
			l.Warn().Err(err).Str(log.FieldRoomCode, code).Msg("presence sync failed")
			s.hub.MarkDirty(code)
			continue
		}
		l.Debug().Str(log.FieldRoomCode, code).Int(log.FieldActiveUsers, size).Msg("presence synced")
	}
}
