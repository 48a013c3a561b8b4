package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/papaya-ledger/internal/platform/ctxutil"
	"github.com/yungbote/papaya-ledger/internal/platform/logger"
	"github.com/yungbote/papaya-ledger/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/stream
func (h *RealtimeHandler) Stream(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.String(http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ctx := c.Request.Context()
	sub := h.hub.Subscribe(ctx)
	defer h.hub.Unsubscribe(sub)

	if caller := ctxutil.GetCaller(ctx); caller != nil {
		h.log.Info("stream open", "subscriber_id", sub.ID, "caller_id", caller.ID)
	}

	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := realtime.WriteSSE(w, ev); err != nil {
				h.log.Debug("stream write failed", "subscriber_id", sub.ID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
