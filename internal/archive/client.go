package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single archive GET.
const DefaultFetchTimeout = 10 * time.Second

// Client fetches compressed ledger metadata objects over plain HTTP.
//
// A single Client must be shared across all callers: its connection pool
// with keep-alive is what keeps cold-fetch latency low.
type Client struct {
	baseURL    string
	config     StoreConfig
	httpClient *http.Client
}

// NewClient creates an archive client for the given base URL.
func NewClient(baseURL string, config StoreConfig) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		config:  config,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   DefaultFetchTimeout,
		},
	}
}

// Config returns the store layout configuration in use.
func (c *Client) Config() StoreConfig {
	return c.config
}

// FetchStoreConfig loads the store's `.config.json`. Callers fall back to
// DefaultStoreConfig when the object is missing.
func FetchStoreConfig(ctx context.Context, httpClient *http.Client, baseURL string) (StoreConfig, error) {
	cfgURL := strings.TrimSuffix(baseURL, "/") + "/.config.json"
	slog.Info("fetching store config", "url", cfgURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfgURL, nil)
	if err != nil {
		return StoreConfig{}, fmt.Errorf("building config request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return StoreConfig{}, fmt.Errorf("fetching store config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StoreConfig{}, fmt.Errorf("store config not found at %s (status %d)", cfgURL, resp.StatusCode)
	}

	var config StoreConfig
	if err := json.NewDecoder(resp.Body).Decode(&config); err != nil {
		return StoreConfig{}, fmt.Errorf("parsing store config: %w", err)
	}
	if config.LedgersPerBatch == 0 || config.BatchesPerPartition == 0 {
		return StoreConfig{}, fmt.Errorf("store config has zero batch sizing")
	}

	slog.Info("store config loaded",
		"ledgers_per_batch", config.LedgersPerBatch,
		"batches_per_partition", config.BatchesPerPartition,
	)
	return config, nil
}

// Fetch retrieves the raw compressed object covering the given ledger
// sequence. Errors carry a classification kind; see ErrorKind.
func (c *Client) Fetch(ctx context.Context, ledgerSequence uint32) ([]byte, error) {
	path := c.config.PathForLedger(ledgerSequence)
	fetchURL := c.baseURL + "/" + path

	if _, err := url.Parse(fetchURL); err != nil {
		return nil, &Error{Kind: KindFatal, Ledger: ledgerSequence, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindFatal, Ledger: ledgerSequence, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransportError(err), Ledger: ledgerSequence, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: KindNotFound, Ledger: ledgerSequence}
	case resp.StatusCode >= 500:
		return nil, &Error{
			Kind:   KindTransient,
			Ledger: ledgerSequence,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	default:
		return nil, &Error{
			Kind:   KindFatal,
			Ledger: ledgerSequence,
			Err:    fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Ledger: ledgerSequence, Err: err}
	}

	slog.Debug("fetched ledger object", "ledger", ledgerSequence, "bytes", len(body))
	return body, nil
}

// classifyTransportError maps transport-level failures onto error kinds.
// Timeouts, connection resets, and DNS failures are retryable; a URL the
// transport refuses outright is not.
func classifyTransportError(err error) ErrorKind {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return KindTransient
		}
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return KindTransient
		}
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			return KindTransient
		}
		if strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
			return KindFatal
		}
	}
	return KindTransient
}
