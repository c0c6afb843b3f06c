package geocode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmetric/epc/pkg/backoff"
	"github.com/landmetric/epc/pkg/models"
)

// fakeResolver returns a scripted sequence of results.
type fakeResolver struct {
	name    string
	mu      sync.Mutex
	calls   int
	results []fakeResult
}

type fakeResult struct {
	coord models.Coordinate
	err   error
}

func (f *fakeResolver) Name() string { return f.name }

func (f *fakeResolver) Resolve(ctx context.Context, address, postcode string) (models.Coordinate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	r := f.results[i]
	return r.coord, r.err
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory CoordinateStore.
type memStore struct {
	mu     sync.Mutex
	coords map[string]models.Coordinate
}

func newMemStore() *memStore {
	return &memStore{coords: make(map[string]models.Coordinate)}
}

func (m *memStore) Coordinate(ctx context.Context, key string) (*models.Coordinate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coords[key]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) PutCoordinate(ctx context.Context, key string, c models.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coords[key] = c
	return nil
}

var testPolicy = backoff.Policy{MaxAttempts: 1, BaseDelay: time.Millisecond}

func ok(lat, lon float64, provider string) fakeResult {
	return fakeResult{coord: models.Coordinate{Lat: lat, Lon: lon, Provider: provider, ResolvedAt: time.Now()}}
}

func testCert(lmk string) models.Certificate {
	return models.Certificate{LMKKey: lmk, Address1: "Barn Cottage", Postcode: "GU5 0AA"}
}

func TestChainPrimarySucceeds(t *testing.T) {
	primary := &fakeResolver{name: "primary", results: []fakeResult{ok(51.2, -0.5, "primary")}}
	fallback := &fakeResolver{name: "fallback", results: []fakeResult{ok(51.2, -0.5, "fallback")}}
	chain := NewChain(newMemStore(), testPolicy, primary, fallback)

	coord, err := chain.Resolve(context.Background(), testCert("LMK-1"))
	require.NoError(t, err)
	assert.Equal(t, "primary", coord.Provider)
	assert.Equal(t, 0, fallback.callCount(), "fallback must not run when the primary succeeds")
}

func TestChainFallsBackOnError(t *testing.T) {
	primary := &fakeResolver{name: "primary", results: []fakeResult{{err: errNoResult}}}
	fallback := &fakeResolver{name: "fallback", results: []fakeResult{ok(51.2, -0.5, "fallback")}}
	chain := NewChain(newMemStore(), testPolicy, primary, fallback)

	coord, err := chain.Resolve(context.Background(), testCert("LMK-1"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", coord.Provider)
}

func TestChainFallsBackOnInvalidCoordinate(t *testing.T) {
	// Berlin is outside the UK bounding box.
	primary := &fakeResolver{name: "primary", results: []fakeResult{ok(52.52, 13.40, "primary")}}
	fallback := &fakeResolver{name: "fallback", results: []fakeResult{ok(51.2, -0.5, "fallback")}}
	store := newMemStore()
	chain := NewChain(store, testPolicy, primary, fallback)

	coord, err := chain.Resolve(context.Background(), testCert("LMK-1"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", coord.Provider)

	cached := store.coords[Key("Barn Cottage, GU5 0AA", "GU5 0AA")]
	assert.Equal(t, "fallback", cached.Provider, "only the validated coordinate is persisted")
}

func TestChainAllProvidersFail(t *testing.T) {
	primary := &fakeResolver{name: "primary", results: []fakeResult{{err: errNoResult}}}
	fallback := &fakeResolver{name: "fallback", results: []fakeResult{{err: errNoResult}}}
	chain := NewChain(newMemStore(), testPolicy, primary, fallback)

	_, err := chain.Resolve(context.Background(), testCert("LMK-1"))
	require.ErrorIs(t, err, ErrResolutionFailed)
}

func TestChainServesFromCache(t *testing.T) {
	primary := &fakeResolver{name: "primary", results: []fakeResult{ok(51.2, -0.5, "primary")}}
	chain := NewChain(newMemStore(), testPolicy, primary)
	cert := testCert("LMK-1")

	_, err := chain.Resolve(context.Background(), cert)
	require.NoError(t, err)

	_, err = chain.Resolve(context.Background(), cert)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.callCount(), "a cached resolution must make zero provider calls")
}

func TestChainRetriesTransientFailure(t *testing.T) {
	flaky := &fakeResolver{name: "flaky", results: []fakeResult{
		{err: errors.New("timeout")},
		ok(51.2, -0.5, "flaky"),
	}}
	chain := NewChain(newMemStore(), backoff.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}, flaky)

	coord, err := chain.Resolve(context.Background(), testCert("LMK-1"))
	require.NoError(t, err)
	assert.Equal(t, "flaky", coord.Provider)
	assert.Equal(t, 2, flaky.callCount())
}

func TestResolveAll(t *testing.T) {
	resolver := &fakeResolver{name: "primary", results: []fakeResult{ok(51.2, -0.5, "primary")}}
	chain := NewChain(newMemStore(), testPolicy, resolver)

	certs := make([]models.Certificate, 0, 10)
	for i := 0; i < 10; i++ {
		c := testCert(fmt.Sprintf("LMK-%d", i))
		c.Address1 = fmt.Sprintf("%d Mill Lane", i)
		certs = append(certs, c)
	}

	resolved, failed, err := chain.ResolveAll(context.Background(), certs)
	require.NoError(t, err)
	assert.Equal(t, 0, failed)
	assert.Len(t, resolved, 10)
	for _, c := range certs {
		assert.Contains(t, resolved, c.LMKKey)
	}
}

func TestResolveAllCountsFailures(t *testing.T) {
	// Every call fails, so every record is counted, none resolved.
	resolver := &fakeResolver{name: "primary", results: []fakeResult{{err: errNoResult}}}
	chain := NewChain(nil, testPolicy, resolver)

	certs := []models.Certificate{testCert("LMK-1"), testCert("LMK-2"), testCert("LMK-3")}
	resolved, failed, err := chain.ResolveAll(context.Background(), certs)
	require.NoError(t, err)
	assert.Empty(t, resolved)
	assert.Equal(t, 3, failed)
}

func TestResolveAllHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := &fakeResolver{name: "primary", results: []fakeResult{{err: errNoResult}}}
	chain := NewChain(nil, testPolicy, resolver)

	_, _, err := chain.ResolveAll(ctx, []models.Certificate{testCert("LMK-1")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "barn cottage|gu5 0aa", Key(" Barn Cottage ", "GU5 0AA"))
}
