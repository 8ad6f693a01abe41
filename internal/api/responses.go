package api

import (
	"time"

	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
)

// Event is the API representation of a stored contract event.
type Event struct {
	Object   string `json:"object"`
	ID       string `json:"id"`
	URL      string `json:"url"`
	Ledger   uint32 `json:"ledger"`
	At       string `json:"at"`
	Tx       string `json:"tx"`
	Type     string `json:"type"`
	Contract string `json:"contract,omitempty"`
	Topics   []any  `json:"topics"`
	Data     any    `json:"data"`
}

// ListResponse is the paginated list envelope.
type ListResponse struct {
	Object  string  `json:"object"`
	URL     string  `json:"url"`
	HasMore bool    `json:"has_more"`
	Next    string  `json:"next,omitempty"`
	Data    []Event `json:"data"`
}

// StatusResponse is the /health body.
type StatusResponse struct {
	Status            string  `json:"status"`
	LatestLedger      *uint32 `json:"latest_ledger"`
	CachedLedgers     int     `json:"cached_ledgers"`
	NetworkPassphrase string  `json:"network_passphrase"`
}

func eventResponse(e *ledger.Event) Event {
	topics := e.Topics
	if topics == nil {
		topics = []any{}
	}
	return Event{
		Object:   "event",
		ID:       e.ExternalID,
		URL:      "/events/" + e.ExternalID,
		Ledger:   e.LedgerSequence,
		At:       e.ClosedAt.UTC().Format(time.RFC3339),
		Tx:       e.TxHash,
		Type:     e.Type.String(),
		Contract: e.ContractID,
		Topics:   topics,
		Data:     e.Data,
	}
}
