package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecord(t *testing.T) {
	Init(nil, zerolog.Nop())

	ObserveStatementFetch(SourceBackend, ResultSuccess, 20*time.Millisecond)
	ObserveStatementExport("pdf", ResultError, time.Second)
	IncMutation("record_payment", ResultConflict)
	IncConflict("prepaid")
	IncReconcileMismatch()
	IncCacheRequest(CacheHit)
	IncCacheRequest("")

	assert.Equal(t, 1.0, testutil.ToFloat64(statementFetchTotal.WithLabelValues(SourceBackend, ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(statementExportTotal.WithLabelValues("pdf", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mutationTotal.WithLabelValues("record_payment", ResultConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(conflictTotal.WithLabelValues("prepaid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reconcileMismatchTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(cacheRequestsTotal.WithLabelValues("unknown")))

	// A second Init must not panic on duplicate registration.
	Init(nil, zerolog.Nop())
}
