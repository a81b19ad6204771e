package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/pkg/types/common"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	version string
	checks  map[string]Pinger
	started time.Time
}

// NewHealthHandler builds a HealthHandler. Each named check is probed on
// /readyz; /healthz only reports process liveness.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		version: version,
		checks:  checks,
		started: time.Now().UTC(),
	}
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  common.HealthUp,
		"version": h.version,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// Readiness handles GET /readyz: probes every registered dependency with a
// short per-check timeout and reports 503 when any of them is down.
func (h *HealthHandler) Readiness(c *gin.Context) {
	overall := common.HealthUp
	components := make([]common.ComponentHealth, 0, len(h.checks))

	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		start := time.Now()
		err := check.Ping(ctx)
		cancel()

		ch := common.ComponentHealth{
			Name:    name,
			Status:  common.HealthUp,
			Latency: time.Since(start),
		}
		if err != nil {
			ch.Status = common.HealthDown
			ch.Message = err.Error()
			overall = common.HealthDown
		}
		components = append(components, ch)
	}

	status := http.StatusOK
	if overall == common.HealthDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
	})
}
