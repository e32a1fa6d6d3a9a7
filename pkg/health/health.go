// Package health implements liveness and readiness probes in the Kubernetes
// style. Registered checks run periodically in the background and flip state
// only after consecutive failures or successes cross a threshold, so a single
// transient error never flaps the probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component, returning nil when it is healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// check holds the configuration and runtime state for one probe.
//
// run is only ever called from the single background goroutine started for
// this check, so the consecutive counters need no locking. healthy and
// lastErr are also read by HTTP handlers, hence the atomics.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= defaultFailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= defaultSuccessThreshold {
		c.healthy.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health manages the liveness and readiness probes of a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health in the not-ready state. Call SetReady(true) once
// initialization has completed.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check that decides whether the process is
// alive at all, for example a goroutine-leak detector.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check that decides whether the service can
// accept traffic, for example database connectivity.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start launches one background goroutine per registered check, each running
// at the given interval until ctx is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)
	h.mu.Unlock()

	for _, c := range checks {
		go func(c *check) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels the background check goroutines. Safe to call repeatedly.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Pass false at the start of a
// graceful shutdown so load balancers stop routing new traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service has been marked ready and every
// readiness check is currently passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()

	for _, c := range checks {
		if !c.healthy.Load() {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 when all liveness checks pass, otherwise
// 503 with the failing checks listed.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := make([]*check, len(h.liveness))
	copy(checks, h.liveness)
	h.mu.RUnlock()

	writeStatus(w, collectFailures(checks))
}

// ReadyEndpoint serves /readyz: 200 only when the service is marked ready and
// every readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	checks := make([]*check, len(h.readiness))
	copy(checks, h.readiness)
	h.mu.RUnlock()

	failures := collectFailures(checks)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func collectFailures(checks []*check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if msg, failed := c.failure(); failed {
			failures[c.name] = msg
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
