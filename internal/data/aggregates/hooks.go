package aggregates

import (
	"time"

	"github.com/yungbote/papaya-ledger/internal/platform/logger"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
	IncPartialLedger(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}
func (noopHooks) IncPartialLedger(string)                        {}

type logHooks struct {
	log  *logger.Logger
	slow time.Duration
}

// NewLogHooks reports failed and slow aggregate writes through the service logger.
func NewLogHooks(log *logger.Logger, slow time.Duration) Hooks {
	if log == nil {
		return noopHooks{}
	}
	if slow <= 0 {
		slow = 500 * time.Millisecond
	}
	return &logHooks{log: log.With("component", "AggregateHooks"), slow: slow}
}

func (h *logHooks) ObserveOperation(name, status string, dur time.Duration) {
	switch {
	case status != "success":
		h.log.Warn("aggregate write failed", "op", name, "status", status, "duration_ms", dur.Milliseconds())
	case dur >= h.slow:
		h.log.Warn("slow aggregate write", "op", name, "duration_ms", dur.Milliseconds())
	default:
		h.log.Debug("aggregate write", "op", name, "duration_ms", dur.Milliseconds())
	}
}

func (h *logHooks) IncConflict(name string) {
	h.log.Debug("aggregate conflict", "op", name)
}

func (h *logHooks) IncRetry(name string) {
	h.log.Info("retrying aggregate write", "op", name)
}

func (h *logHooks) IncPartialLedger(name string) {
	h.log.Error("ALERT partial ledger failure", "op", name)
}
