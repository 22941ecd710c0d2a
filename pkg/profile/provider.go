// Package profile loads driver profiles from a file or the database.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils/cache"
	"github.com/mpapenbr/f1-race-engineer/pkg/utils/cache/loadercache"
)

var ErrNotFound = errors.New("profile not found")

type Provider interface {
	Load(ctx context.Context, driverID string) (model.Profile, error)
}

// ProviderFunc adapts a function to Provider
type ProviderFunc func(ctx context.Context, driverID string) (model.Profile, error)

func (f ProviderFunc) Load(ctx context.Context, driverID string) (model.Profile, error) {
	return f(ctx, driverID)
}

// Static serves a fixed set of profiles
type Static map[string]model.Profile

func (s Static) Load(_ context.Context, driverID string) (model.Profile, error) {
	if p, ok := s[driverID]; ok {
		return p, nil
	}
	return model.Profile{}, ErrNotFound
}

// Cached keeps loaded profiles for the given duration
type Cached struct {
	c cache.Cache[string, model.Profile]
}

func NewCached(p Provider, expiration time.Duration) *Cached {
	return &Cached{
		c: loadercache.New(
			loadercache.WithLoader[string, model.Profile](func(ctx context.Context, id string) (*model.Profile, error) {
				prof, err := p.Load(ctx, id)
				if err != nil {
					return nil, err
				}
				return &prof, nil
			}),
			loadercache.WithExpiration[string, model.Profile](expiration),
			loadercache.WithLogger[string, model.Profile](log.Default().Named("profile.cache")),
		),
	}
}

func (c *Cached) Load(ctx context.Context, driverID string) (model.Profile, error) {
	p, err := c.c.Get(ctx, driverID)
	if err != nil {
		return model.Profile{}, err
	}
	return *p, nil
}

// Invalidate drops all cached profiles, used after the source changed
func (c *Cached) Invalidate(ctx context.Context) {
	c.c.InvalidateAll(ctx)
}

// LoadOrDefault returns the default profile of the driver if p has none
func LoadOrDefault(ctx context.Context, p Provider, driverID string) (model.Profile, error) {
	if p == nil {
		return model.DefaultProfile(driverID), nil
	}
	prof, err := p.Load(ctx, driverID)
	if err != nil {
		return model.DefaultProfile(driverID), err
	}
	if prof.DriverID == "" {
		prof.DriverID = driverID
	}
	return prof, nil
}
