package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxResponseBytes caps how much of a provider response we buffer.
const maxResponseBytes = 16 << 20

// Exchange is the outcome of one provider round trip.
type Exchange struct {
	StatusCode int
	Body       []byte
	Elapsed    time.Duration
}

// StatusError is returned by PostJSON for non-2xx responses. Body holds a prefix of the
// payload for logging; it is never part of Error(), which reaches end users.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return "provider rejected the request: " + text
	}
	return fmt.Sprintf("provider rejected the request: status %d", e.StatusCode)
}

// PostJSON marshals payload, POSTs it to target and buffers the reply. Provider-specific
// auth goes in headers. A non-2xx reply still returns the Exchange alongside a *StatusError.
func PostJSON(ctx context.Context, client *http.Client, target string, payload any, headers map[string]string, logger *slog.Logger) (Exchange, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}
	log := logger.With("req_id", uuid.NewString())

	req, err := newJSONRequest(ctx, target, payload, headers)
	if err != nil {
		log.Error("llm.http.build_error", "error", err)
		return Exchange{}, err
	}
	log.Info("llm.http.request", "content_length", req.ContentLength)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Error("llm.http.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Exchange{Elapsed: time.Since(start)}, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warn("llm.http.body_close_error", "error", cerr)
		}
	}()

	ex := Exchange{StatusCode: resp.StatusCode}
	ex.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	ex.Elapsed = time.Since(start)
	if err != nil {
		log.Error("llm.http.read_error", "status", resp.StatusCode, "error", err)
		return ex, fmt.Errorf("read response: %w", err)
	}
	log.Info("llm.http.response",
		"status", ex.StatusCode,
		"bytes", len(ex.Body),
		"elapsed_ms", ex.Elapsed.Milliseconds(),
	)

	if ex.StatusCode < 200 || ex.StatusCode > 299 {
		body := clip(string(ex.Body), 512)
		log.Warn("llm.http.error_body", "status", ex.StatusCode, "body", body)
		return ex, &StatusError{StatusCode: ex.StatusCode, Body: body}
	}
	return ex, nil
}

func newJSONRequest(ctx context.Context, target string, payload any, headers map[string]string) (*http.Request, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
