// Package health reports liveness and dependency reachability.
package health

import (
	"context"
	"database/sql"
	"time"

	"wheelcity-backend/internal/storage/object"
)

// Service encapsulates health checks over the service's dependencies.
type Service struct {
	DB    *sql.DB
	Store object.ObjectStore
	// Detector and Analyzer report whether a real backend is configured.
	DetectorReady bool
	AnalyzerReady bool
}

// Status is the health payload.
type Status struct {
	OK       bool              `json:"ok"`
	Checks   map[string]string `json:"checks"`
	Degraded []string          `json:"degraded,omitempty"`
}

const checkTimeout = 2 * time.Second

// Check probes each dependency. The service stays OK when optional backends
// (detector, analyzer) run in stub mode; those are reported as degraded.
func (s *Service) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	status := Status{OK: true, Checks: map[string]string{}}

	if s.DB != nil {
		if err := s.DB.PingContext(ctx); err != nil {
			status.OK = false
			status.Checks["database"] = "unreachable: " + err.Error()
		} else {
			status.Checks["database"] = "ok"
		}
	} else {
		status.Checks["database"] = "memory"
		status.Degraded = append(status.Degraded, "database")
	}

	if s.Store != nil {
		if err := s.Store.Check(ctx); err != nil {
			status.OK = false
			status.Checks["object_store"] = "unreachable: " + err.Error()
		} else {
			status.Checks["object_store"] = "ok"
		}
	}

	if s.DetectorReady {
		status.Checks["detector"] = "ok"
	} else {
		status.Checks["detector"] = "stub"
		status.Degraded = append(status.Degraded, "detector")
	}
	if s.AnalyzerReady {
		status.Checks["analyzer"] = "ok"
	} else {
		status.Checks["analyzer"] = "stub"
		status.Degraded = append(status.Degraded, "analyzer")
	}

	return status
}
