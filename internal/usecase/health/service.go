package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the model provider is failing; answers fall back to apologies.
	Degraded Status = "degraded"
	// Unhealthy indicates the content store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const checkTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db    DBPinger
	model ModelChecker
}

// New creates a Service. model can be nil.
func New(db DBPinger, model ModelChecker) *Service {
	return &Service{db: db, model: model}
}

// Check runs the component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var dbResult, modelResult CheckResult
	var g errgroup.Group
	g.Go(func() error {
		dbResult = result(s.db.Ping(ctx))
		return nil
	})
	if s.model != nil {
		g.Go(func() error {
			modelResult = result(s.model.HealthCheck(ctx))
			return nil
		})
	}
	_ = g.Wait()

	checks := map[string]CheckResult{"database": dbResult}
	status := Healthy
	if s.model != nil {
		checks["model"] = modelResult
		if modelResult == CheckError {
			status = Degraded
		}
	}
	if dbResult == CheckError {
		status = Unhealthy
	}
	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
