package telegram

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/config"
	"bifrost/internal/logger"
	bridgeerrors "bifrost/pkg/errors"
)

func TestOpenMediaMissingFileIsPermanent(t *testing.T) {
	_, err := openMedia(filepath.Join(t.TempDir(), "gone.jpg"))
	require.Error(t, err)

	var coded *bridgeerrors.Error
	require.ErrorAs(t, err, &coded)
	assert.True(t, coded.IsFatal(), "a missing local file must not be retried")
	assert.False(t, coded.IsRetryable())
}

func TestOpenMediaExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))

	f, err := openMedia(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestNewClientAppliesBreakerTripKnobs(t *testing.T) {
	cfg := config.TelegramConfig{
		Token:     "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11c",
		RateLimit: 25,
		RateBurst: 5,
	}
	cbCfg := config.CircuitBreakerConfig{
		Enabled:      true,
		FailureRatio: 1.0,
		MinRequests:  2,
	}

	c, err := NewClient(cfg, cbCfg, logger.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, c.breaker)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		_, _ = c.breaker.Execute(func() (interface{}, error) { return nil, boom })
	}
	assert.True(t, c.breaker.IsOpen(), "breaker must trip after min_requests consecutive failures")
}
