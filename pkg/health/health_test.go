package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAggregatesBrokerAndStorage(t *testing.T) {
	registry := NewCheckerRegistry()
	registry.Register(NewStorageDirChecker(t.TempDir()))
	registry.Register(NewBrokerChecker("pipe", func(context.Context) error {
		return nil
	}))

	h := registry.Check(context.Background())
	assert.Equal(t, StatusHealthy, h.Status)
	require.Contains(t, h.Checks, "pipe")
	assert.Equal(t, StatusHealthy, h.Checks["pipe"].Status)
}

func TestBrokerCheckerSurfacesProbeFailure(t *testing.T) {
	registry := NewCheckerRegistry()
	registry.Register(NewBrokerChecker("kafka", func(context.Context) error {
		return errors.New("broker unreachable")
	}))

	h := registry.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, h.Status)
	require.Contains(t, h.Checks, "kafka")
	assert.Equal(t, StatusUnhealthy, h.Checks["kafka"].Status)
	assert.Contains(t, h.Checks["kafka"].Message, "unreachable")
}
