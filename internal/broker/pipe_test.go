package broker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bifrost/internal/logger"
)

func TestPipeProducerWritesNewlineDelimited(t *testing.T) {
	var buf bytes.Buffer
	p := NewPipeProducer(logger.NopLogger())
	p.out = &buf

	require.NoError(t, p.Publish(context.Background(), "out", nil, []byte(`{"a":1}`)))
	require.NoError(t, p.Publish(context.Background(), "out", nil, []byte(`{"b":2}`)))

	assert.Equal(t, "{\"a\":1}\n{\"b\":2}\n", buf.String())
}

func TestPipeConsumerDeliversLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipe")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan string, 16)
	c := NewPipeConsumer(path, logger.NopLogger())
	go func() {
		_ = c.Consume(ctx, "out", func(_ context.Context, _ []byte, payload []byte) error {
			received <- string(payload)
			return nil
		})
	}()

	assert.Equal(t, "one", <-received)
	assert.Equal(t, "two", <-received)
	cancel()
}

func TestPipeConsumerSurvivesHandlerError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipe")
	require.NoError(t, os.WriteFile(path, []byte("bad\ngood\n"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan string, 16)
	c := NewPipeConsumer(path, logger.NopLogger())
	go func() {
		_ = c.Consume(ctx, "out", func(_ context.Context, _ []byte, payload []byte) error {
			received <- string(payload)
			if string(payload) == "bad" {
				return errors.New("unparseable payload")
			}
			return nil
		})
	}()

	assert.Equal(t, "bad", <-received)
	assert.Equal(t, "good", <-received, "loop continues past a failing message")
	cancel()
}

func TestPipeConsumerProbe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	c := NewPipeConsumer(path, logger.NopLogger())
	assert.NoError(t, c.Probe(context.Background()))

	require.NoError(t, os.Remove(path))
	assert.Error(t, c.Probe(context.Background()))
}
