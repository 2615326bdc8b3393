package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"billing-desk/internal/observability/metrics"
	statement "billing-desk/internal/statement/domain"
	"billing-desk/internal/statement/export"
)

// sharedFetchTimeout bounds a backend fetch that outlives the request which started it.
const sharedFetchTimeout = 30 * time.Second

// StatementService builds statement views and exports for a client.
type StatementService struct {
	source   SnapshotSource
	cache    SnapshotCache
	exporter Exporter
	clock    Clock
	logger   zerolog.Logger
	fetches  singleflight.Group

	// epochs counts invalidations per client. A fetch is only cached when the
	// count has not moved since it started.
	mu     sync.Mutex
	epochs map[string]uint64
}

// NewStatementService constructs the service. A nil cache disables caching.
func NewStatementService(
	source SnapshotSource,
	cache SnapshotCache,
	exporter Exporter,
	clock Clock,
	logger zerolog.Logger,
) (*StatementService, error) {
	if source == nil {
		return nil, errors.New("statement service: nil snapshot source")
	}
	if exporter == nil {
		return nil, errors.New("statement service: nil exporter")
	}
	if cache == nil {
		cache = noCache{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &StatementService{
		source:   source,
		cache:    cache,
		exporter: exporter,
		clock:    clock,
		logger:   logger,
		epochs:   map[string]uint64{},
	}, nil
}

// View returns the filtered statement of a client with running balances and totals.
func (s *StatementService) View(ctx context.Context, clientID string, filter statement.Filter) (statement.View, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return statement.View{}, ErrEmptyClientID
	}
	snapshot, err := s.snapshot(ctx, clientID)
	if err != nil {
		return statement.View{}, err
	}
	view := statement.BuildView(snapshot, filter, s.clock.Now())
	if filter == statement.FilterAll && snapshot.ReportedTotals != nil {
		s.reconcile(clientID, view.Totals, *snapshot.ReportedTotals)
	}
	return view, nil
}

// Export renders the filtered statement in the requested format. The document is
// complete or absent.
func (s *StatementService) Export(ctx context.Context, clientID string, filter statement.Filter, format export.Format) (export.Document, error) {
	view, err := s.View(ctx, clientID, filter)
	if err != nil {
		return export.Document{}, err
	}

	start := time.Now()
	doc, err := s.exporter.Render(view, format)
	if err != nil {
		if errors.Is(err, statement.ErrInvalidFormat) {
			return export.Document{}, err
		}
		metrics.ObserveStatementExport(string(format), metrics.ResultError, time.Since(start))
		s.logger.Error().Err(err).
			Str("client_id", clientID).
			Str("format", string(format)).
			Str("filter", string(filter)).
			Msg("statement export failed")
		return export.Document{}, fmt.Errorf("%w: %s: %v", statement.ErrExportFailed, format, err)
	}
	metrics.ObserveStatementExport(string(format), metrics.ResultSuccess, time.Since(start))
	s.logger.Info().
		Str("client_id", clientID).
		Str("format", string(format)).
		Int("bytes", len(doc.Data)).
		Msg("statement exported")
	return doc, nil
}

// Invalidate drops the cached snapshot of a client. A fetch already in flight
// still answers its callers but is not cached, and later callers fetch again.
func (s *StatementService) Invalidate(ctx context.Context, clientID string) error {
	s.mu.Lock()
	s.epochs[clientID]++
	s.mu.Unlock()
	s.fetches.Forget(clientID)
	return s.cache.Invalidate(ctx, clientID)
}

func (s *StatementService) epoch(clientID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epochs[clientID]
}

// store caches a fetched snapshot unless the client was invalidated meanwhile.
func (s *StatementService) store(ctx context.Context, clientID string, epoch uint64, snapshot statement.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epochs[clientID] != epoch {
		s.logger.Debug().Str("client_id", clientID).Msg("snapshot changed during fetch, not cached")
		return
	}
	if err := s.cache.Set(ctx, snapshot); err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("snapshot cache write failed")
	}
}

func (s *StatementService) snapshot(ctx context.Context, clientID string) (statement.Snapshot, error) {
	start := time.Now()
	cached, ok, err := s.cache.Get(ctx, clientID)
	switch {
	case err != nil:
		metrics.IncCacheRequest(metrics.CacheError)
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("snapshot cache read failed")
	case ok:
		metrics.IncCacheRequest(metrics.CacheHit)
		metrics.ObserveStatementFetch(metrics.SourceCache, metrics.ResultSuccess, time.Since(start))
		return cached, nil
	default:
		metrics.IncCacheRequest(metrics.CacheMiss)
	}

	// The fetch is shared, so it must not end when the caller that started it goes away.
	epoch := s.epoch(clientID)
	results := s.fetches.DoChan(clientID, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		fetchStart := time.Now()
		snapshot, err := s.source.FetchSnapshot(fetchCtx, clientID)
		if err != nil {
			metrics.ObserveStatementFetch(metrics.SourceBackend, metrics.ResultError, time.Since(fetchStart))
			return nil, err
		}
		metrics.ObserveStatementFetch(metrics.SourceBackend, metrics.ResultSuccess, time.Since(fetchStart))
		s.store(fetchCtx, clientID, epoch, snapshot)
		return snapshot, nil
	})
	select {
	case <-ctx.Done():
		return statement.Snapshot{}, fmt.Errorf("statement service: fetch %s: %w", clientID, ctx.Err())
	case res := <-results:
		if res.Err != nil {
			return statement.Snapshot{}, fmt.Errorf("statement service: fetch %s: %w", clientID, res.Err)
		}
		return res.Val.(statement.Snapshot), nil
	}
}

func (s *StatementService) reconcile(clientID string, computed, reported statement.Totals) {
	diff, ok := statement.Reconcile(computed, reported)
	if ok {
		return
	}
	metrics.IncReconcileMismatch()
	s.logger.Warn().
		Str("client_id", clientID).
		Str("computed_balance", computed.Balance.String()).
		Str("reported_balance", reported.Balance.String()).
		Str("diff_debit", diff.TotalDebit.String()).
		Str("diff_credit", diff.TotalCredit.String()).
		Str("diff_balance", diff.Balance.String()).
		Msg("statement totals differ from backend")
}
