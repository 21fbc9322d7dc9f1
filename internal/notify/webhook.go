package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"formcraft/internal/config"
)

// DispatchResult holds the outcome of a single webhook HTTP call.
type DispatchResult struct {
	StatusCode   int
	ResponseBody string
	Error        string
}

func (r *DispatchResult) OK() bool {
	return r.Error == "" && r.StatusCode >= 200 && r.StatusCode < 300
}

// WebhookNotifier POSTs each notice as JSON to a fixed URL in the background,
// retrying failed deliveries with exponential backoff. Every attempt carries
// the same idempotency key.
//
// Close drains: pending retries keep running until they succeed, run out of
// attempts or the context passed to Close ends. Only then are the remaining
// backoffs and requests abandoned.
type WebhookNotifier struct {
	url         string
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger

	mu     sync.Mutex // orders wg.Add against Close
	wg     sync.WaitGroup
	closed bool

	abort  context.Context
	cancel context.CancelFunc
}

func NewWebhookNotifier(cfg config.WebhookConfig, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	abort, cancel := context.WithCancel(context.Background())
	return &WebhookNotifier{
		url:         cfg.URL,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: attempts,
		backoff:     time.Second,
		logger:      logger.Named("webhook"),
		abort:       abort,
		cancel:      cancel,
	}
}

// Notify schedules delivery and returns immediately.
func (w *WebhookNotifier) Notify(_ context.Context, n Notice) {
	body, err := json.Marshal(n)
	if err != nil {
		w.logger.Error("Encode notice", zap.Error(err))
		return
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("Webhook notifier closed, dropping notice", zap.String("idempotency_key", n.IdempotencyKey))
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.deliver(n, body)
	}()
}

func (w *WebhookNotifier) deliver(n Notice, body []byte) {
	log := w.logger.With(zap.String("event", n.Event), zap.String("idempotency_key", n.IdempotencyKey))

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		result := w.dispatch(body, n.IdempotencyKey)
		if result.OK() {
			log.Debug("Webhook delivered", zap.Int("attempt", attempt), zap.Int("status", result.StatusCode))
			return
		}
		errMsg := result.Error
		if errMsg == "" {
			errMsg = fmt.Sprintf("HTTP %d", result.StatusCode)
		}
		if attempt == w.maxAttempts {
			log.Error("Webhook delivery failed", zap.Int("attempts", attempt), zap.String("error", errMsg))
			return
		}

		// exponential backoff: base × 2^(attempt-1)
		wait := time.Duration(math.Pow(2, float64(attempt-1))) * w.backoff
		log.Warn("Webhook delivery failed, retrying", zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.String("error", errMsg))
		t := time.NewTimer(wait)
		select {
		case <-w.abort.Done():
			t.Stop()
			log.Warn("Webhook retries abandoned on shutdown", zap.Int("attempt", attempt))
			return
		case <-t.C:
		}
	}
}

func (w *WebhookNotifier) dispatch(body []byte, key string) *DispatchResult {
	req, err := http.NewRequestWithContext(w.abort, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &DispatchResult{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)

	resp, err := w.client.Do(req)
	if err != nil {
		return &DispatchResult{Error: fmt.Sprintf("http call: %v", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024)) // max 64KB
	return &DispatchResult{StatusCode: resp.StatusCode, ResponseBody: string(respBody)}
}

// Close stops accepting notices and waits for in-flight deliveries,
// retries included. When ctx ends first the remaining deliveries are
// abandoned and Close returns ctx's error once they have exited.
func (w *WebhookNotifier) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		w.cancel()
		<-done
	}
	w.cancel()
	w.client.CloseIdleConnections()
	return err
}
