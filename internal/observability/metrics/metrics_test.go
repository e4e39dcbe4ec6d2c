package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserversAreNilSafeBeforeInit(t *testing.T) {
	if importRunsTotal != nil {
		t.Skip("metrics already initialised")
	}
	ObserveImportRun(ResultSuccess, time.Second)
	AddImportRows(RowImported, 3)
	IncCompensation("")
	IncValidationRejection("")
	IncAuditFailure()
}

func TestInitRegistersCounters(t *testing.T) {
	Init(nil, nil)
	Init(nil, nil)

	before := testutil.ToFloat64(importRowsTotal.WithLabelValues(RowImported))
	AddImportRows(RowImported, 2)
	AddImportRows(RowImported, 0)
	if got := testutil.ToFloat64(importRowsTotal.WithLabelValues(RowImported)); got != before+2 {
		t.Fatalf("expected %v imported rows, got %v", before+2, got)
	}

	rejected := testutil.ToFloat64(rejectionsTotal.WithLabelValues("unknown"))
	IncValidationRejection("")
	if got := testutil.ToFloat64(rejectionsTotal.WithLabelValues("unknown")); got != rejected+1 {
		t.Fatalf("expected empty reason to count as unknown, got %v", got)
	}
}
