package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(jobRunsTotal.WithLabelValues("assess-overdue-fines", "failure"))
	RecordJobRun("assess-overdue-fines", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(jobRunsTotal.WithLabelValues("assess-overdue-fines", "failure")))

	beforeCents := testutil.ToFloat64(walletMovementsCents.WithLabelValues("FINE_DEBIT"))
	RecordWalletMovement("FINE_DEBIT", -250)
	assert.Equal(t, beforeCents+250, testutil.ToFloat64(walletMovementsCents.WithLabelValues("FINE_DEBIT")))

	ObserveHTTP("GET", "/api/books", 200, 3*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpRequestsTotal), 1)
}
