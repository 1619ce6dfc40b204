package store

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/krishangMittal/PlayMyJam/internal/domain"
	"github.com/krishangMittal/PlayMyJam/pkg/log"
)

// loadTimeout bounds a shared store read once it is detached from the caller.
const loadTimeout = 5 * time.Second

// CachedStore decorates a Store with a read-through room cache.
// Cache failures are logged and fall through to the underlying store.
type CachedStore struct {
	Store
	cache RoomCache
	ttl   time.Duration
	loads singleflight.Group
}

// NewCachedStore wraps next with cache.
func NewCachedStore(next Store, cache RoomCache, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: next,
		cache: cache,
		ttl:   ttl,
	}
}

// GetRoom serves from cache when possible.
func (s *CachedStore) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	l := log.Ctx(ctx)

	room, err := s.cache.Get(ctx, code)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		l.Warn().Err(err).Str(log.FieldRoomCode, code).Msg("room cache get failed")
	}

	// Concurrent misses for one room share a single store read, so it must
	// not fail when the caller that started it goes away.
	v, err, _ := s.loads.Do(code, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		room, err := s.Store.GetRoom(loadCtx, code)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(loadCtx, room, s.ttl); err != nil {
			l.Warn().Err(err).Str(log.FieldRoomCode, code).Msg("room cache set failed")
		}
		return room, nil
	})
	if err != nil {
		return nil, err
	}

	shared := *v.(*domain.Room)
	return &shared, nil
}

func (s *CachedStore) UpdateRoomActiveUsers(ctx context.Context, code string, count int) error {
	if err := s.Store.UpdateRoomActiveUsers(ctx, code, count); err != nil {
		return err
	}
	s.invalidate(ctx, code)
	return nil
}

func (s *CachedStore) DeleteRoom(ctx context.Context, code string) error {
	if err := s.Store.DeleteRoom(ctx, code); err != nil {
		return err
	}
	s.invalidate(ctx, code)
	return nil
}

func (s *CachedStore) ResetActiveUsers(ctx context.Context) error {
	if err := s.Store.ResetActiveUsers(ctx); err != nil {
		return err
	}
	if err := s.cache.Flush(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("room cache flush failed")
	}
	return nil
}

func (s *CachedStore) invalidate(ctx context.Context, code string) {
	if err := s.cache.Delete(ctx, code); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldRoomCode, code).Msg("room cache invalidation failed")
	}
}
