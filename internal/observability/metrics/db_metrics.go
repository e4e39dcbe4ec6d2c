package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "bills_without_ledger_pair",
			Help: "Bills whose ledger line count is not exactly two",
		},
		func() float64 {
			return queryCount(db, logger, `
SELECT COUNT(*)
FROM bills b
WHERE (SELECT COUNT(*) FROM ledger_entries l WHERE l.bill_id = b.id) <> 2`)
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "ledger_entries_without_bill",
			Help: "Ledger lines referencing a missing bill",
		},
		func() float64 {
			return queryCount(db, logger, `
SELECT COUNT(*)
FROM ledger_entries l
LEFT JOIN bills b ON b.id = l.bill_id
WHERE l.bill_id IS NOT NULL AND b.id IS NULL`)
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
