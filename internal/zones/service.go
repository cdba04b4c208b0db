package zones

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/yegors/driverops/pkg/logger"
)

// Service is the zone CRUD entry point. It validates input before touching
// the store and turns every store failure into an *APIError.
type Service struct {
	store  Store
	cache  *expirable.LRU[string, Zone]
	group  singleflight.Group
	logger *logger.Logger

	// versions counts writes per id; a lookup only caches what it read if
	// no write happened in between
	mu       sync.Mutex
	versions map[string]uint64
}

// NewService wraps store. A cacheTTL of zero disables the by-id cache.
func NewService(store Store, cacheSize int, cacheTTL time.Duration, log *logger.Logger) *Service {
	s := &Service{
		store:    store,
		logger:   log.Named("zones-service"),
		versions: make(map[string]uint64),
	}
	if cacheTTL > 0 && cacheSize > 0 {
		s.cache = expirable.NewLRU[string, Zone](cacheSize, nil, cacheTTL)
	}
	return s
}

// ValidateName rejects blank zone names
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	return nil
}

// Create validates and stores a new zone
func (s *Service) Create(ctx context.Context, in ZoneInput) (Envelope[Zone], error) {
	if err := ValidateName(in.ZoneName); err != nil {
		return Envelope[Zone]{}, err
	}

	env, err := s.store.Create(ctx, in)
	if err != nil {
		return env, s.fail(err, FallbackCreate)
	}
	s.logger.Info("Zone created",
		logger.String("id", env.Data.ID),
		logger.String("name", env.Data.ZoneName))
	return env, nil
}

// List returns every zone
func (s *Service) List(ctx context.Context) (Envelope[[]Zone], error) {
	env, err := s.store.List(ctx)
	if err != nil {
		return env, s.fail(err, FallbackList)
	}
	return env, nil
}

// ListActive returns the active zones
func (s *Service) ListActive(ctx context.Context) (Envelope[[]Zone], error) {
	env, err := s.store.ListActive(ctx)
	if err != nil {
		return env, s.fail(err, FallbackActive)
	}
	return env, nil
}

// Get returns one zone, from cache when fresh. Concurrent misses for the
// same id share a single store call.
func (s *Service) Get(ctx context.Context, id string) (Envelope[Zone], error) {
	if s.cache != nil {
		if z, ok := s.cache.Get(id); ok {
			return Envelope[Zone]{Message: MsgRetrieved, Data: z}, nil
		}
	}

	// The shared lookup outlives any single caller's cancellation
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(id, func() (any, error) {
		version := s.version(id)
		env, err := s.store.Get(shared, id)
		if err != nil {
			return env, err
		}
		s.cacheIfCurrent(id, version, env.Data)
		return env, nil
	})
	env := v.(Envelope[Zone])
	if err != nil {
		return env, s.fail(err, FallbackGet)
	}
	return env, nil
}

// Update applies a partial update. A present but blank name is rejected.
func (s *Service) Update(ctx context.Context, id string, patch ZonePatch) (Envelope[Zone], error) {
	if patch.ZoneName != nil {
		if err := ValidateName(*patch.ZoneName); err != nil {
			return Envelope[Zone]{}, err
		}
	}

	s.invalidate(id)
	env, err := s.store.Update(ctx, id, patch)
	s.invalidate(id)
	if err != nil {
		return env, s.fail(err, FallbackUpdate)
	}
	s.logger.Info("Zone updated", logger.String("id", id))
	return env, nil
}

// Delete removes a zone
func (s *Service) Delete(ctx context.Context, id string) (Envelope[Zone], error) {
	s.invalidate(id)
	env, err := s.store.Delete(ctx, id)
	s.invalidate(id)
	if err != nil {
		return env, s.fail(err, FallbackDelete)
	}
	s.logger.Info("Zone deleted", logger.String("id", id))
	return env, nil
}

func (s *Service) version(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[id]
}

func (s *Service) cacheIfCurrent(id string, version uint64, z Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil && s.versions[id] == version {
		s.cache.Add(id, z)
	}
}

// invalidate drops the cached zone and makes lookups that started earlier
// unable to cache or share their result
func (s *Service) invalidate(id string) {
	s.mu.Lock()
	s.versions[id]++
	if s.cache != nil {
		s.cache.Remove(id)
	}
	s.mu.Unlock()
	s.group.Forget(id)
}

// fail keeps APIErrors as they are and wraps anything else
func (s *Service) fail(err error, fallback string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	s.logger.Error(fallback, logger.Error(err))
	return &APIError{StatusCode: http.StatusInternalServerError, Message: fallback, Err: err}
}
