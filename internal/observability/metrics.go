package observability

import (
	"context"
	"io"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

// Metrics is the process-wide registry. A nil *Metrics is valid and records nothing.
// It satisfies the ledger aggregate hooks so writes report outcomes without extra glue.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	ledgerOps       *CounterVec
	ledgerLatency   *HistogramVec
	ledgerConflicts *CounterVec
	ledgerRetries   *CounterVec
	ledgerPartials  *CounterVec

	sseSubscribers *Gauge
	dbStats        *GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("papaya_api_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("papaya_api_request_duration_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight: NewGauge("papaya_api_inflight_requests", "HTTP requests currently being served."),

		ledgerOps:       NewCounterVec("papaya_ledger_operations_total", "Ledger writes by operation and outcome.", []string{"op", "status"}),
		ledgerLatency:   NewHistogramVec("papaya_ledger_operation_duration_seconds", "Ledger write latency including retries.", []string{"op"}, nil),
		ledgerConflicts: NewCounterVec("papaya_ledger_conflicts_total", "Ledger writes rejected with a conflict.", []string{"op"}),
		ledgerRetries:   NewCounterVec("papaya_ledger_retries_total", "Ledger write attempts re-run after a retryable failure.", []string{"op"}),
		ledgerPartials:  NewCounterVec("papaya_ledger_partial_failures_total", "Updates that failed after the first counter step.", []string{"op"}),

		sseSubscribers: NewGauge("papaya_sse_subscribers", "Open realtime stream subscribers."),
		dbStats:        NewGaugeVec("papaya_db_pool", "database/sql pool statistics.", []string{"stat"}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.Add(delta)
}

func (m *Metrics) ObserveOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.ledgerOps.Inc(name, status)
	m.ledgerLatency.Observe(dur.Seconds(), name)
}

func (m *Metrics) IncConflict(name string) {
	if m == nil {
		return
	}
	m.ledgerConflicts.Inc(name)
}

func (m *Metrics) IncRetry(name string) {
	if m == nil {
		return
	}
	m.ledgerRetries.Inc(name)
}

func (m *Metrics) IncPartialLedger(name string) {
	if m == nil {
		return
	}
	m.ledgerPartials.Inc(name)
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.sseSubscribers.Set(float64(n))
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	type writer interface{ WritePrometheus(io.Writer) error }
	for _, c := range []writer{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.ledgerOps, m.ledgerLatency, m.ledgerConflicts, m.ledgerRetries, m.ledgerPartials,
		m.sseSubscribers, m.dbStats,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// StartDBCollector samples pool stats until ctx ends.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}
