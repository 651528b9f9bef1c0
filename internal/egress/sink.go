// Package egress posts tracking frames to an external HTTP sink. It is
// an optional adapter for cmd/lidartrack, not part of the tracking
// contract.
package egress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gabe-ochoa/lidar-tracking/internal/engine"
)

// Config configures a Sink.
type Config struct {
	// URL is the webhook endpoint frames are POSTed to.
	URL string

	// Timeout bounds each POST. Default: 5 seconds.
	Timeout time.Duration

	// APIKey, if set, is sent as "Authorization: Bearer <APIKey>".
	APIKey string

	// Logger defaults to logrus.StandardLogger() when nil.
	Logger *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Sink POSTs each frame it's given to a configured HTTP endpoint as
// JSON. Delivery failures and non-2xx responses are logged and returned
// to the caller as errors; frames are not buffered or retried.
type Sink struct {
	config Config
	client *http.Client
}

// NewSink creates a Sink for the given config.
func NewSink(cfg Config) *Sink {
	cfg = cfg.withDefaults()
	return &Sink{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Send POSTs one frame. Callers that want fire-and-forget delivery
// should run this in its own goroutine; Sink itself does not buffer or
// retry.
func (s *Sink) Send(ctx context.Context, frame engine.TrackingFrame) error {
	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("egress: marshal frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("egress: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.config.Logger.WithError(err).Warn("egress: delivery failed")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("egress: sink returned status %d", resp.StatusCode)
		s.config.Logger.WithError(err).Warn("egress: non-2xx response")
		return err
	}
	return nil
}
