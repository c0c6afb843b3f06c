package geocode

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/landmetric/epc/pkg/backoff"
	"github.com/landmetric/epc/pkg/config"
	"github.com/landmetric/epc/pkg/logging"
	"github.com/landmetric/epc/pkg/models"
)

// Chain tries each resolver in order until one produces a coordinate that
// passes validation. Successful resolutions are persisted before they are
// returned, so repeated exports never re-query the providers.
type Chain struct {
	resolvers   []Resolver
	store       CoordinateStore
	policy      backoff.Policy
	concurrency int
	log         *zap.SugaredLogger
}

// NewChain builds a chain from explicit resolvers. The store may be nil.
func NewChain(store CoordinateStore, policy backoff.Policy, resolvers ...Resolver) *Chain {
	return &Chain{
		resolvers:   resolvers,
		store:       store,
		policy:      policy,
		concurrency: 4,
		log:         logging.Named("geocode"),
	}
}

// NewChainFromConfig wires the standard chain: OS Places when a key is
// configured, then Nominatim.
func NewChainFromConfig(cfg config.GeocoderConfig, store CoordinateStore) *Chain {
	var resolvers []Resolver
	if cfg.OSPlacesKey != "" {
		resolvers = append(resolvers, NewOSPlaces(cfg.OSPlacesURL, cfg.OSPlacesKey))
	}
	resolvers = append(resolvers, NewNominatim(cfg.NominatimURL))

	c := NewChain(store, backoff.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}, resolvers...)
	if cfg.Concurrency > 0 {
		c.concurrency = cfg.Concurrency
	}
	return c
}

// Resolve returns the coordinate for one certificate, consulting the
// cache first. All-provider failure returns ErrResolutionFailed; the
// caller decides whether the record is dropped or kept without
// coordinates.
func (c *Chain) Resolve(ctx context.Context, cert models.Certificate) (models.Coordinate, error) {
	address := cert.FullAddress()
	key := Key(address, cert.Postcode)

	if c.store != nil {
		cached, err := c.store.Coordinate(ctx, key)
		if err != nil {
			return models.Coordinate{}, err
		}
		if cached != nil {
			return *cached, nil
		}
	}

	for _, r := range c.resolvers {
		var coord models.Coordinate
		err := c.policy.Retry(ctx, func(ctx context.Context) error {
			got, err := r.Resolve(ctx, address, cert.Postcode)
			if err != nil {
				return backoff.Transient(err)
			}
			coord = got
			return nil
		})
		if err != nil {
			c.log.Debugw("provider failed", "provider", r.Name(), "address", address, "error", err)
			continue
		}
		if !coord.Valid() {
			// Out-of-bounds results are never cached; fall through so a
			// later call can retry.
			c.log.Debugw("provider returned invalid coordinate",
				"provider", r.Name(), "address", address, "lat", coord.Lat, "lon", coord.Lon)
			continue
		}

		if c.store != nil {
			if err := c.store.PutCoordinate(ctx, key, coord); err != nil {
				return models.Coordinate{}, err
			}
		}
		return coord, nil
	}

	return models.Coordinate{}, fmt.Errorf("%w: %s", ErrResolutionFailed, address)
}

// ResolveAll geocodes a batch of certificates with bounded concurrency,
// keyed by LMK key. Per-record failures are skipped and counted; only a
// context cancellation aborts the batch. Cancellation cannot corrupt the
// cache because only fully validated resolutions are ever persisted.
func (c *Chain) ResolveAll(ctx context.Context, certs []models.Certificate) (map[string]models.Coordinate, int, error) {
	var (
		mu       sync.Mutex
		resolved = make(map[string]models.Coordinate, len(certs))
		failed   int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, cert := range certs {
		cert := cert
		g.Go(func() error {
			coord, err := c.Resolve(ctx, cert)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed++
				return nil
			}
			resolved[cert.LMKKey] = coord
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return resolved, failed, err
	}

	c.log.Infow("batch geocoding complete",
		"total", len(certs), "resolved", len(resolved), "failed", failed)
	return resolved, failed, nil
}
