// Package retriever composes the API client and the local store into one
// cache-through fetch: fresh entries are served locally, anything else
// triggers a full remote pagination whose result replaces the entry.
package retriever

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/landmetric/epc/pkg/cache/sqlite"
	"github.com/landmetric/epc/pkg/epcapi"
	"github.com/landmetric/epc/pkg/logging"
	"github.com/landmetric/epc/pkg/models"
)

// Source reports where a result set came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// Options control cache behavior for one fetch.
type Options struct {
	// UseCache serves a fresh cache entry without any network call.
	UseCache bool
	// MaxAge is the freshness window for cached entries.
	MaxAge time.Duration
}

// Retriever is the cache-through fetch layer.
type Retriever struct {
	client *epcapi.Client
	store  *sqlite.Store
	log    *zap.SugaredLogger
}

// New creates a Retriever. The store may be nil, in which case every
// fetch goes to the remote API and nothing is cached.
func New(client *epcapi.Client, store *sqlite.Store) *Retriever {
	return &Retriever{
		client: client,
		store:  store,
		log:    logging.Named("retriever"),
	}
}

// Fetch returns the full record set for a query. With UseCache set and a
// fresh entry present it makes zero network calls. Otherwise it paginates
// the remote API end-to-end, replaces the cache entry, and returns the
// records. A failed pagination never writes a partial entry: the prior
// entry (fresh or stale) is left untouched and the typed error surfaces
// with whatever records were fetched before the failure.
func (r *Retriever) Fetch(ctx context.Context, q models.Query, opts Options, progress func(models.Page)) ([]models.Certificate, Source, error) {
	q = q.Canonical()
	key := q.Key()

	if opts.UseCache && r.store != nil {
		entry, err := r.store.Get(ctx, key)
		switch {
		case errors.Is(err, sqlite.ErrCorrupt):
			// Recover by refetching; a corrupt entry is never served.
			r.log.Warnw("corrupt cache entry, refetching", "query", q.Describe())
		case err != nil:
			return nil, SourceCache, err
		case entry != nil && time.Since(entry.FetchedAt) < opts.MaxAge:
			r.log.Debugw("cache hit", "query", q.Describe(), "records", len(entry.Records))
			return entry.Records, SourceCache, nil
		}
	}

	records, err := r.client.SearchAll(ctx, q, progress)
	if err != nil {
		return records, SourceRemote, err
	}

	if r.store != nil {
		if err := r.store.Put(ctx, key, q.Describe(), records); err != nil {
			// A failed cache write does not invalidate the fetched data.
			r.log.Warnw("cache write failed", "query", q.Describe(), "error", err)
		}
	}

	r.log.Infow("fetched from remote", "query", q.Describe(), "records", len(records))
	return records, SourceRemote, nil
}
