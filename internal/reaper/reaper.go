package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/krishangMittal/PlayMyJam/internal/archive"
	"github.com/krishangMittal/PlayMyJam/internal/audit"
	"github.com/krishangMittal/PlayMyJam/internal/config"
	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/internal/store"
	pkglog "github.com/krishangMittal/PlayMyJam/pkg/log"
	"github.com/krishangMittal/PlayMyJam/pkg/pubsub"
)

const publishTimeout = 2 * time.Second

// Presence reports live membership. Rooms with live members are never reaped.
type Presence interface {
	Size(roomCode string) int
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Candidates      int      `json:"candidates"`
	Deleted         []string `json:"deleted"`
	Skipped         []string `json:"skipped,omitempty"`
	Failed          []string `json:"failed,omitempty"`
	RequestsDeleted int64    `json:"requestsDeleted"`
}

// Reaper periodically deletes rooms that have been idle past the retention window,
// together with their requests.
type Reaper struct {
	store     store.Store
	publisher pubsub.Publisher
	archiver  archive.Archiver
	presence  Presence
	cfg       config.ReaperConfig
	now       func() time.Time
	quit      chan struct{}
	doneCh    chan struct{}
}

// New creates a new Reaper.
func New(st store.Store, publisher pubsub.Publisher, cfg config.ReaperConfig) *Reaper {
	if publisher == nil {
		publisher = pubsub.NoopPublisher{}
	}
	return &Reaper{
		store:     st,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		quit:      make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// WithArchiver snapshots every room before it is deleted.
func (r *Reaper) WithArchiver(a archive.Archiver) *Reaper {
	r.archiver = a
	return r
}

// WithPresence skips rooms that still have live members in this process.
func (r *Reaper) WithPresence(p Presence) *Reaper {
	r.presence = p
	return r
}

// Start launches the reaper in a background goroutine.
func (r *Reaper) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reaper to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reaper) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reaper has fully stopped.
func (r *Reaper) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := r.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				l := pkglog.L()
				l.Error().Err(err).Msg("reaper: sweep failed")
			}
		}
	}
}

// Sweep deletes every idle room created before now minus the retention window.
// A failure on one room does not stop the others; the sweep then returns
// domain.ErrReapSweepPartialFailure. Running it twice deletes nothing new.
func (r *Reaper) Sweep(ctx context.Context) (*SweepResult, error) {
	l := pkglog.L()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	retention := r.cfg.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	cutoff := r.now().Add(-retention)

	rooms, err := r.store.FindIdleRoomsOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	result := &SweepResult{
		Candidates: len(rooms),
		Deleted:    []string{},
	}
	if len(rooms) == 0 {
		l.Debug().Time("cutoff", cutoff).Msg("reaper: no idle rooms")
		return result, nil
	}

	for _, room := range rooms {
		if r.presence != nil && r.presence.Size(room.Code) > 0 {
			result.Skipped = append(result.Skipped, room.Code)
			continue
		}

		n, err := r.reapRoom(ctx, room)
		if err != nil {
			l.Error().Err(err).
				Str(pkglog.FieldRoomCode, room.Code).
				Str(pkglog.FieldDJID, room.DJID).
				Msg("reaper: failed to reap room")
			result.Failed = append(result.Failed, room.Code)
			continue
		}
		result.Deleted = append(result.Deleted, room.Code)
		result.RequestsDeleted += n
	}

	l.Info().
		Int("candidates", result.Candidates).
		Int("deleted", len(result.Deleted)).
		Int("failed", len(result.Failed)).
		Int64("requests_deleted", result.RequestsDeleted).
		Msg("reaper: sweep complete")

	if len(result.Failed) > 0 {
		return result, fmt.Errorf("%w: %d of %d rooms", domain.ErrReapSweepPartialFailure, len(result.Failed), result.Candidates)
	}
	return result, nil
}

// reapRoom deletes requests before the room so a failure never leaves orphans.
func (r *Reaper) reapRoom(ctx context.Context, room *domain.Room) (int64, error) {
	var archiveKey string
	if r.archiver != nil {
		requests, err := r.store.GetRequestsByRoom(ctx, room.Code, 0)
		if err != nil {
			return 0, fmt.Errorf("failed to load requests: %w", err)
		}
		archiveKey, err = r.archiver.Archive(ctx, room, requests)
		if err != nil {
			return 0, fmt.Errorf("failed to archive room: %w", err)
		}
	}

	n, err := r.store.DeleteRequestsByRoom(ctx, room.Code)
	if err != nil {
		return 0, fmt.Errorf("failed to delete requests: %w", err)
	}
	if err := r.store.DeleteRoom(ctx, room.Code); err != nil {
		return n, fmt.Errorf("failed to delete room: %w", err)
	}

	audit.LogWithDetail(ctx, audit.ActionRoomReap, room.Code, fmt.Sprintf("requests=%d", n), "idle room reaped")

	evt, err := pubsub.NewEvent(pubsub.EventRoomReaped, room.Code, pubsub.RoomReapedPayload{
		DJID:       room.DJID,
		Requests:   n,
		ArchiveKey: archiveKey,
	})
	if err == nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := r.publisher.Publish(pubCtx, pubsub.RoomActivityChannel(room.Code), evt); err != nil {
			l := pkglog.L()
			l.Warn().Err(err).Str(pkglog.FieldRoomCode, room.Code).Msg("reaper: failed to publish reap event")
		}
	}
	return n, nil
}
