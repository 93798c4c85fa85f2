// Package downloader fetches media attachments over HTTP using the Slack
// token as a bearer credential.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/thenajjar/slack-history-exporter/internal/config"
	"github.com/thenajjar/slack-history-exporter/internal/domain"
)

// HTTPDownloader implements media downloads with retry and backoff.
type HTTPDownloader struct {
	client *http.Client
	token  string
	cfg    config.DownloadConfig
	logger *slog.Logger
}

// NewHTTPDownloader creates a new HTTP-based media downloader authenticated
// with the given bearer token.
func NewHTTPDownloader(cfg config.DownloadConfig, token string, logger *slog.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		token:  token,
		cfg:    cfg,
		logger: logger,
	}
}

// Download fetches url into destPath, retrying transient failures with
// exponential backoff.
func (d *HTTPDownloader) Download(ctx context.Context, url, destPath string) error {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		err := d.downloadOnce(ctx, url, destPath)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			break
		}

		delay := d.cfg.RetryDelay * (1 << attempt)
		if delay > d.cfg.MaxRetryDelay {
			delay = d.cfg.MaxRetryDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrDownloadFailed, lastErr)
}

func (d *HTTPDownloader) downloadOnce(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.token)
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("write file: %w", err)
	}
	return f.Close()
}

// statusError is a non-2xx response. Auth failures are not retryable;
// server errors are.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

func isRetryable(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return true
}
