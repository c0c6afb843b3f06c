// Package geocode resolves certificate addresses to coordinates through
// an ordered provider chain with a persistent coordinate cache.
package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/landmetric/epc/pkg/models"
)

// ErrResolutionFailed means every provider in the chain failed for one
// record. It is per-record and non-fatal to a batch.
var ErrResolutionFailed = errors.New("resolution failed")

// errNoResult tags a provider response with no usable location.
var errNoResult = errors.New("no result")

// Resolver turns an address into coordinates. Implementations rate-limit
// themselves; the chain handles retries and validation.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, address, postcode string) (models.Coordinate, error)
}

// CoordinateStore persists validated resolutions. *sqlite.Store satisfies
// it; tests use an in-memory double.
type CoordinateStore interface {
	Coordinate(ctx context.Context, locationKey string) (*models.Coordinate, error)
	PutCoordinate(ctx context.Context, locationKey string, c models.Coordinate) error
}

// Key returns the coordinate cache key for an address/postcode pair.
func Key(address, postcode string) string {
	return strings.ToLower(strings.TrimSpace(address)) + "|" + strings.ToLower(strings.TrimSpace(postcode))
}
