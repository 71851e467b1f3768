package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HTTPSink posts each event as JSON to an endpoint. Failures are logged and
// otherwise ignored.
type HTTPSink struct {
	client   *http.Client
	endpoint string
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewHTTPSink creates an HTTPSink. A nil client gets a 10 second timeout.
func NewHTTPSink(client *http.Client, endpoint string, logger *zap.Logger) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSink{client: client, endpoint: endpoint, logger: logger.Named("metrics-sink")}
}

// Deliver implements Sink. It does not wait for the request.
func (s *HTTPSink) Deliver(ev Event) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.post(ev); err != nil {
			s.logger.Warn("metrics delivery failed", zap.String("id", ev.ID), zap.String("kind", ev.Kind), zap.Error(err))
		}
	}()
}

func (s *HTTPSink) post(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink answered %d", resp.StatusCode)
	}
	return nil
}

// Close waits for in-flight deliveries.
func (s *HTTPSink) Close() { s.wg.Wait() }

// LogSink writes events to the logger. It is used when no endpoint is configured.
type LogSink struct {
	Logger *zap.Logger
}

// Deliver implements Sink.
func (s LogSink) Deliver(ev Event) {
	s.Logger.Info("metric", zap.String("kind", ev.Kind), zap.String("name", ev.Name), zap.Float64("amount", ev.Amount), zap.Any("props", ev.Props))
}
