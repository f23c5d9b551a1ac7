package broker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"bifrost/internal/constants"
	"bifrost/internal/logger"
	"bifrost/pkg/metrics"
)

// PipeProducer writes newline-delimited payloads to stdout. Meant for
// local development and shell-pipeline integration; the topic only
// shows up in metrics.
type PipeProducer struct {
	mu     sync.Mutex
	out    io.Writer
	logger logger.Logger
}

func NewPipeProducer(log logger.Logger) *PipeProducer {
	return &PipeProducer{out: os.Stdout, logger: log}
}

func (p *PipeProducer) Publish(_ context.Context, topic string, _ []byte, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.out.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("failed to write pipe message: %w", err)
	}
	metrics.BrokerMessagesWrittenTotal.WithLabelValues("pipe", topic).Inc()
	return nil
}

func (p *PipeProducer) Close() error {
	return nil
}

// PipeConsumer reads newline-delimited payloads from a named pipe.
// EOF means the writer went away; the pipe is reopened after a short
// delay so producers can come and go.
type PipeConsumer struct {
	path   string
	logger logger.Logger
}

func NewPipeConsumer(path string, log logger.Logger) *PipeConsumer {
	return &PipeConsumer{path: path, logger: log}
}

// Probe checks that the pipe path still exists.
func (c *PipeConsumer) Probe(_ context.Context) error {
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("pipe %s not accessible: %w", c.path, err)
	}
	return nil
}

func (c *PipeConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Started consuming", "topic", topic, "pipe_path", c.path)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f, err := os.Open(c.path)
		if err != nil {
			c.logger.ErrorwCtx(ctx, "Failed to open pipe",
				"error", err,
				"pipe_path", c.path,
			)
			if !sleepCtx(ctx, constants.PipeReopenDelay) {
				return ctx.Err()
			}
			continue
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
		for scanner.Scan() {
			if ctx.Err() != nil {
				f.Close()
				return ctx.Err()
			}
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			payload := make([]byte, len(line))
			copy(payload, line)

			metrics.BrokerMessagesReadTotal.WithLabelValues("pipe", topic).Inc()
			if err := handler(ctx, nil, payload); err != nil {
				c.logger.ErrorwCtx(ctx, "Failed to process message",
					"error", err,
					"topic", topic,
				)
			}
		}
		if err := scanner.Err(); err != nil {
			c.logger.ErrorwCtx(ctx, "Pipe read error", "error", err, "pipe_path", c.path)
		}
		f.Close()

		// Writer closed its end; wait briefly and reopen.
		if !sleepCtx(ctx, constants.PipeReopenDelay) {
			return ctx.Err()
		}
	}
}

func (c *PipeConsumer) Close() error {
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
