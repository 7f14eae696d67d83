// Package stream implements a Server-Sent Events sidereal clock. Clients
// connect via GET /api/v1/stream/sidereal and receive the current Julian
// Date and normalized GMST at a fixed interval.
//
// SSE message format:
//
//	data: {"type":"tick","t":"2026-02-06T04:00:00Z","julian_date":2461077.666,"gmst":{...}}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","interval_seconds":1,"started":"2026-02-06T04:00:00Z"}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval without a tick.
package stream

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/star/astrocoords/internal/httputil"
	"github.com/star/astrocoords/internal/metrics"
	"github.com/star/astrocoords/internal/report"
)

// Interval bounds in seconds for the interval query parameter.
const (
	minIntervalSec = 1
	maxIntervalSec = 60
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP.
	MaxTotal           int           // Global stream cap (0 = default 1000).
	DefaultInterval    time.Duration // Tick interval when the client sends none.
	KeepaliveInterval  time.Duration // Keep-alive ping interval.
	TrustProxy         bool          // Use proxy headers for the client IP.
}

// Handler manages SSE streaming connections.
type Handler struct {
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a new streaming handler.
func NewHandler(config Config, logger *slog.Logger) *Handler {
	if config.DefaultInterval <= 0 {
		config.DefaultInterval = time.Second
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		logger:  logger,
		now:     time.Now,
	}
}

// Active returns the number of open streams.
func (h *Handler) Active() int {
	return h.limiter.active()
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// HandleSidereal serves the SSE sidereal clock.
// GET /api/v1/stream/sidereal?interval=1
func (h *Handler) HandleSidereal(w http.ResponseWriter, r *http.Request) {
	interval := h.config.DefaultInterval
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minIntervalSec || n > maxIntervalSec {
			writeJSONError(w, http.StatusBadRequest, "invalid interval parameter, must be 1-60")
			return
		}
		interval = time.Duration(n) * time.Second
	}

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"component", "stream",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := h.now()
	h.logger.Info("stream connected",
		"component", "stream",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"interval_seconds", interval.Seconds(),
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"component", "stream",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's WriteTimeout for this connection; client extends
	// the deadline per write instead.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry (3-7s) spreads reconnects after a restart.
	if err := c.sendRetry(time.Duration(3000+rand.Intn(4000)) * time.Millisecond); err != nil {
		metrics.IncStreamErrors("send_error")
		return
	}

	meta := metadataMessage{
		Type:            "metadata",
		IntervalSeconds: int(interval.Seconds()),
		Started:         startTime.UTC().Format(time.RFC3339),
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	// First tick goes out immediately so clients do not wait an interval.
	if err := c.sendJSON(buildTickMessage(startTime)); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := c.sendJSON(buildTickMessage(h.now())); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// buildTickMessage computes the sidereal clock payload for t.
func buildTickMessage(t time.Time) tickMessage {
	g := report.NewGMST(t, true)
	metrics.IncComputation(metrics.KindGMST)
	return tickMessage{
		Type:       "tick",
		T:          g.Time,
		JulianDate: g.JulianDate,
		GMST:       g.Angle,
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type            string `json:"type"`
	IntervalSeconds int    `json:"interval_seconds"`
	Started         string `json:"started"`
}

type tickMessage struct {
	Type       string       `json:"type"`
	T          string       `json:"t"`
	JulianDate float64      `json:"julian_date"`
	GMST       report.Angle `json:"gmst"`
}
