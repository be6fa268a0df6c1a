package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/askdesk/internal/domain"
	"github.com/Strob0t/askdesk/internal/domain/challenge"
	"github.com/Strob0t/askdesk/internal/domain/project"
	"github.com/Strob0t/askdesk/internal/port/cache"
	"github.com/Strob0t/askdesk/internal/port/database"
)

// Catalog kinds, also used in catalog.invalidate payloads.
const (
	KindProject   = "project"
	KindChallenge = "challenge"
)

// LocalInvalidator drops a key from the in-process level only.
type LocalInvalidator interface {
	DeleteLocal(ctx context.Context, key string) error
}

// CatalogService reads projects and challenges through a cache. They change
// rarely and every context assembly needs them.
type CatalogService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewCatalogService creates a CatalogService. A nil cache reads straight
// from the store.
func NewCatalogService(store database.Store, c cache.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{store: store, cache: c, ttl: ttl}
}

// Project returns the project with the given ID.
func (s *CatalogService) Project(ctx context.Context, id string) (*project.Project, error) {
	return readThrough(ctx, s, KindProject, id, s.store.GetProject)
}

// Challenge returns the challenge with the given ID.
func (s *CatalogService) Challenge(ctx context.Context, id string) (*challenge.Challenge, error) {
	return readThrough(ctx, s, KindChallenge, id, s.store.GetChallenge)
}

func readThrough[T any](ctx context.Context, s *CatalogService, kind, id string, load func(context.Context, string) (*T, error)) (*T, error) {
	if s.cache == nil {
		return load(ctx, id)
	}
	key := cache.Key(kind, id)

	v, ok, err := cache.GetJSON[T](ctx, s.cache, key)
	if err != nil {
		slog.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	}
	if ok {
		return v, nil
	}

	v, err = load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, key, v, s.ttl); err != nil {
		slog.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
	}
	return v, nil
}

// Invalidate drops a cached entry from every level.
func (s *CatalogService) Invalidate(ctx context.Context, kind, id string) error {
	if err := validKind(kind); err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cache.Key(kind, id))
}

// InvalidateLocal drops a cached entry from this process only, when the
// cache supports it.
func (s *CatalogService) InvalidateLocal(ctx context.Context, kind, id string) error {
	if err := validKind(kind); err != nil {
		return err
	}
	switch c := s.cache.(type) {
	case nil:
		return nil
	case LocalInvalidator:
		return c.DeleteLocal(ctx, cache.Key(kind, id))
	default:
		return c.Delete(ctx, cache.Key(kind, id))
	}
}

func validKind(kind string) error {
	if kind != KindProject && kind != KindChallenge {
		return fmt.Errorf("catalog kind %q: %w", kind, domain.ErrValidation)
	}
	return nil
}
