package health

import (
	"context"
	"fmt"
	"os"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CheckerRegistry struct {
	checkers []Checker
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{
		checkers: make([]Checker, 0),
	}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, checker)
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult)
	allHealthy := true

	for _, checker := range r.checkers {
		err := checker.Check(ctx)
		result := CheckResult{
			Timestamp: time.Now(),
		}

		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			allHealthy = false
		} else {
			result.Status = StatusHealthy
		}

		results[checker.Name()] = result
	}

	overallStatus := StatusHealthy
	if !allHealthy {
		overallStatus = StatusUnhealthy
	}

	return Health{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// StorageDirChecker verifies the attachment storage directory is still
// present and writable.
type StorageDirChecker struct {
	dir string
}

func NewStorageDirChecker(dir string) *StorageDirChecker {
	return &StorageDirChecker{dir: dir}
}

func (c *StorageDirChecker) Name() string {
	return "storage_dir"
}

func (c *StorageDirChecker) Check(_ context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("storage dir stat failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage path %s is not a directory", c.dir)
	}
	return nil
}

// BrokerChecker wraps any transport exposing a liveness probe.
type BrokerChecker struct {
	name  string
	probe func(ctx context.Context) error
}

func NewBrokerChecker(name string, probe func(ctx context.Context) error) *BrokerChecker {
	return &BrokerChecker{name: name, probe: probe}
}

func (c *BrokerChecker) Name() string {
	return c.name
}

func (c *BrokerChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.probe(ctx)
}
