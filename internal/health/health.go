package health

import (
	"net/http"
	"sync/atomic"
)

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readiness gates /readyz. It starts not ready; the server marks it ready
// once listening and not ready again when shutdown begins.
type Readiness struct {
	ready atomic.Bool
}

// SetReady flips the readiness state.
func (r *Readiness) SetReady(ready bool) {
	r.ready.Store(ready)
}

// Ready reports the current readiness state.
func (r *Readiness) Ready() bool {
	return r.ready.Load()
}

// Readyz returns 200 "ready\n" when ready and 503 "not ready\n" otherwise.
func (r *Readiness) Readyz(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if !r.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
