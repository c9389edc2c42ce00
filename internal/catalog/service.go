// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumeotv/portald/internal/log"
)

const (
	keyVideoPrefix = "video:"
	keyAll         = "videos:all"
	keyLive        = "videos:live"
	keyCategory    = "videos:cat:"
)

// Service fronts the store with a read-through TTL cache. Mutations clear the
// cache wholesale; entries are few and rebuilt on the next read.
type Service struct {
	store  *Store
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewService creates a catalog service. A nil cache disables caching.
func NewService(store *Store, cache Cache, ttl time.Duration) *Service {
	if cache == nil {
		cache = NewNoOpCache()
	}
	return &Service{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithComponent("catalog"),
	}
}

// VideoByID returns one video, read-through cached.
func (s *Service) VideoByID(ctx context.Context, id string) (*Video, error) {
	key := keyVideoPrefix + id
	if raw, found := s.cache.Get(key); found {
		var v Video
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		s.cache.Delete(key)
	}

	v, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(key, v)
	return v, nil
}

// List returns all videos, optionally filtered by category.
func (s *Service) List(ctx context.Context, category string) ([]Video, error) {
	key := keyAll
	if category != "" {
		key = keyCategory + category
	}
	if videos, found := s.cachedList(key); found {
		return videos, nil
	}

	videos, err := s.store.List(ctx, category)
	if err != nil {
		return nil, err
	}
	s.put(key, videos)
	return videos, nil
}

// Live returns all live entries, default stream first.
func (s *Service) Live(ctx context.Context) ([]Video, error) {
	if videos, found := s.cachedList(keyLive); found {
		return videos, nil
	}

	videos, err := s.store.Live(ctx)
	if err != nil {
		return nil, err
	}
	s.put(keyLive, videos)
	return videos, nil
}

// DefaultLive returns the stream a new player session starts with.
func (s *Service) DefaultLive(ctx context.Context) (*Video, error) {
	live, err := s.Live(ctx)
	if err != nil {
		return nil, err
	}
	if len(live) == 0 {
		return nil, ErrNotFound
	}
	return &live[0], nil
}

// Save upserts a video and invalidates the cache.
func (s *Service) Save(ctx context.Context, v Video) error {
	if err := s.store.Upsert(ctx, v); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// Delete removes a video and invalidates the cache.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// CacheStats exposes cache counters for diagnostics.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

func (s *Service) put(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	s.cache.Set(key, raw, s.ttl)
}

func (s *Service) cachedList(key string) ([]Video, bool) {
	raw, found := s.cache.Get(key)
	if !found {
		return nil, false
	}
	var videos []Video
	if err := json.Unmarshal(raw, &videos); err != nil {
		s.cache.Delete(key)
		return nil, false
	}
	return videos, true
}
