package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// DefaultHorizonURL is the public ledger-head discovery endpoint.
const DefaultHorizonURL = "https://horizon.stellar.org/"

// discoverHead queries a Horizon-style endpoint for the latest closed
// ledger sequence.
func discoverHead(ctx context.Context, httpClient *http.Client, horizonURL string) (uint32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, horizonURL, nil)
	if err != nil {
		return 0, fmt.Errorf("building head discovery request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("querying ledger head: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ledger head discovery returned status %d", resp.StatusCode)
	}

	var body struct {
		HistoryLatestLedger uint32 `json:"history_latest_ledger"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("parsing ledger head response: %w", err)
	}
	if body.HistoryLatestLedger == 0 {
		return 0, fmt.Errorf("ledger head response missing history_latest_ledger")
	}
	return body.HistoryLatestLedger, nil
}
