// Package services reconciles host records with the local cache. Every refresh
// fetches all pages, upserts each page as it arrives, evicts stale rows once a
// full-scope fetch completes and then resolves missing parents.
package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kuberan/ledgersync/internal/api"
	"github.com/kuberan/ledgersync/internal/logger"
	"github.com/kuberan/ledgersync/internal/metrics"
	"github.com/kuberan/ledgersync/internal/models"
	"github.com/kuberan/ledgersync/internal/store"
)

// Host paths of the aggregation families.
const (
	pathProviders        = "aggregation/providers"
	pathProviderAccounts = "aggregation/provideraccounts"
	pathAccounts         = "aggregation/accounts"
	pathTransactions     = "aggregation/transactions"
	pathMerchants        = "aggregation/merchants"
	pathCategories       = "aggregation/categories"
	pathMessages         = "messages"
	pathUnreadMessages   = "messages/unread"
)

// idBatchSize caps the ids sent in one list filter.
const idBatchSize = 500

// resolveConcurrency caps parallel by-id parent fetches.
const resolveConcurrency = 4

// Syncer carries what every aggregation service needs and performs foreign-key
// resolution shared between them.
type Syncer struct {
	client *api.Client
	store  *store.Store
	log    *zap.SugaredLogger

	merchantClaims *claims
	categoryFlight singleflight.Group
}

// NewSyncer creates a Syncer.
func NewSyncer(client *api.Client, s *store.Store, log *zap.SugaredLogger) *Syncer {
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{client: client, store: s, log: log, merchantClaims: newClaims()}
}

// fetch describes one list request. evict removes cached rows within scopes
// that the host did not return; set it only for requests covering the whole scope.
type fetch struct {
	family string
	path   string
	query  url.Values
	evict  bool
	scopes []store.Scope
}

// reconcile fetches every page of f into table and evicts stale rows when the
// fetch completed. Pages stored before a failure are kept.
func reconcile[T models.Entity](ctx context.Context, sy *Syncer, table *store.Table[T], f fetch) (rows []T, err error) {
	start := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues(f.family, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	}()

	_, err = api.FetchAll(ctx, sy.client, f.path, f.query, func(page []T) error {
		if err := table.InsertAll(ctx, page...); err != nil {
			return err
		}
		rows = append(rows, page...)
		return nil
	})
	if err != nil {
		sy.log.Warnw("refresh failed", "family", f.family, "stored", len(rows), "error", err)
		return rows, err
	}

	if f.evict {
		stale, err := table.EvictStale(ctx, models.IDs(rows), f.scopes...)
		if err != nil {
			return rows, err
		}
		if len(stale) > 0 {
			metrics.EvictedRecords.WithLabelValues(f.family).Add(float64(len(stale)))
			sy.log.Infow("evicted stale records", "family", f.family, "count", len(stale))
		}
	}
	sy.log.Debugw("refreshed", "family", f.family, "count", len(rows))
	return rows, nil
}

// fetchOne fetches a single record and upserts it.
func fetchOne[T models.Entity](ctx context.Context, sy *Syncer, table *store.Table[T], family, path string) (row T, err error) {
	start := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues(family, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	}()

	if err = sy.client.Get(ctx, path, nil, &row); err != nil {
		return row, err
	}
	if err = table.Insert(ctx, row); err != nil {
		return row, err
	}
	return row, nil
}

// fetchByIDs upserts the records with ids from a list endpoint filtered by
// param, idBatchSize ids per request. It never evicts.
func fetchByIDs[T models.Entity](ctx context.Context, sy *Syncer, table *store.Table[T], family, path, param string, ids []int64) error {
	for _, batch := range batches(store.Distinct(ids), idBatchSize) {
		f := fetch{family: family, path: path, query: url.Values{param: {joinIDs(batch)}}}
		if _, err := reconcile(ctx, sy, table, f); err != nil {
			return err
		}
	}
	return nil
}

// resolveMerchants fetches merchants referenced by ids that are neither cached
// nor already being fetched by a concurrent resolution. Ids are claimed before
// the cache is checked so a concurrent resolution that just finished is seen.
func (sy *Syncer) resolveMerchants(ctx context.Context, ids []int64) {
	claimed := sy.merchantClaims.claim(store.Distinct(ids))
	if len(claimed) == 0 {
		return
	}
	defer sy.merchantClaims.release(claimed)

	missing, err := sy.store.Merchants.MissingIDs(ctx, claimed)
	if err != nil {
		sy.log.Warnw("finding missing merchants failed", "error", err)
		return
	}
	if len(missing) == 0 {
		return
	}
	if err := fetchByIDs(ctx, sy, sy.store.Merchants, "merchants", pathMerchants, "merchant_ids", missing); err != nil {
		sy.log.Warnw("resolving merchants failed", "count", len(missing), "error", err)
	}
}

// resolveCategories refreshes the category list, without eviction, when any of
// ids is not cached. Concurrent callers share one request.
func (sy *Syncer) resolveCategories(ctx context.Context, ids []int64) {
	missing, err := sy.store.Categories.MissingIDs(ctx, ids)
	if err != nil {
		sy.log.Warnw("finding missing categories failed", "error", err)
		return
	}
	if len(missing) == 0 {
		return
	}
	_, err, _ = sy.categoryFlight.Do("categories", func() (any, error) {
		return reconcile(ctx, sy, sy.store.Categories, fetch{family: "transaction_categories", path: pathCategories})
	})
	if err != nil {
		sy.log.Warnw("resolving categories failed", "missing", len(missing), "error", err)
	}
}

// resolveProviders fetches each missing provider by id.
func (sy *Syncer) resolveProviders(ctx context.Context, ids []int64) {
	missing, err := sy.store.Providers.MissingIDs(ctx, ids)
	if err != nil {
		sy.log.Warnw("finding missing providers failed", "error", err)
		return
	}
	if _, err := fetchEach(ctx, sy, sy.store.Providers, "providers", pathProviders, missing); err != nil {
		sy.log.Warnw("resolving providers failed", "missing", len(missing), "error", err)
	}
}

// resolveProviderAccounts fetches each missing provider account by id, then
// their missing providers.
func (sy *Syncer) resolveProviderAccounts(ctx context.Context, ids []int64) {
	missing, err := sy.store.ProviderAccounts.MissingIDs(ctx, ids)
	if err != nil {
		sy.log.Warnw("finding missing provider accounts failed", "error", err)
		return
	}
	fetched, err := fetchEach(ctx, sy, sy.store.ProviderAccounts, "provider_accounts", pathProviderAccounts, missing)
	if err != nil {
		sy.log.Warnw("resolving provider accounts failed", "missing", len(missing), "error", err)
	}
	sy.resolveProviders(ctx, providerIDs(fetched))
}

// fetchEach fetches ids concurrently from path/{id}. A failed id does not stop
// the others; the first error is returned with whatever was fetched.
func fetchEach[T models.Entity](ctx context.Context, sy *Syncer, table *store.Table[T], family, path string, ids []int64) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var (
		mu      sync.Mutex
		fetched []T
	)
	var g errgroup.Group
	g.SetLimit(resolveConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			row, err := fetchOne(ctx, sy, table, family, fmt.Sprintf("%s/%d", path, id))
			if err != nil {
				return err
			}
			mu.Lock()
			fetched = append(fetched, row)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return fetched, err
}

// claims tracks ids being fetched so concurrent resolutions skip them.
type claims struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func newClaims() *claims {
	return &claims{ids: make(map[int64]struct{})}
}

// claim marks and returns the ids not already claimed.
func (c *claims) claim(ids []int64) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []int64
	for _, id := range ids {
		if _, ok := c.ids[id]; ok {
			continue
		}
		c.ids[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (c *claims) release(ids []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.ids, id)
	}
}

func batches(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func providerIDs(rows []models.ProviderAccount) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ProviderID)
	}
	return ids
}
