package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const probeTimeout = 1 * time.Second

// dependencyProbe pings one backing service. Non-critical probes degrade
// readiness instead of failing it: redis only guards the booking lock fast
// path, so its loss leaves the ledger's own occupancy check in charge.
type dependencyProbe struct {
	name     string
	critical bool
	ping     func(ctx context.Context) error
}

type HealthHandler struct {
	probes  []dependencyProbe
	env     string
	version string
}

func NewHealthHandler(pgPool *pgxpool.Pool, rdb *redis.Client, env, version string) *HealthHandler {
	var probes []dependencyProbe
	if pgPool != nil {
		probes = append(probes, dependencyProbe{name: "postgres", critical: true, ping: pgPool.Ping})
	}
	if rdb != nil {
		probes = append(probes, dependencyProbe{name: "redis", ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return newHealthHandler(probes, env, version)
}

func newHealthHandler(probes []dependencyProbe, env, version string) *HealthHandler {
	return &HealthHandler{probes: probes, env: env, version: version}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	status, deps := h.check(r.Context())

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	})
}

func (h *HealthHandler) check(ctx context.Context) (string, map[string]string) {
	status := "ok"
	deps := make(map[string]string, len(h.probes))

	for _, p := range h.probes {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := p.ping(probeCtx)
		cancel()
		if err != nil {
			deps[p.name] = "down"
			status = foldStatus(status, p.critical)
		} else {
			deps[p.name] = "ok"
		}
	}

	return status, deps
}

// foldStatus combines one probe failure into the running status. Critical
// failures always win; an optional failure only downgrades a healthy
// status to degraded.
func foldStatus(current string, critical bool) string {
	if critical || current == "error" {
		return "error"
	}
	return "degraded"
}
