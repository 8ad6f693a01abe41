package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
	"github.com/leighmcculloch/stellar-events-api/internal/query"
	"github.com/leighmcculloch/stellar-events-api/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// listRequest carries the raw list parameters before validation.
type listRequest struct {
	limit     *int
	after     string
	before    string
	ledger    uint32
	tx        string
	qString   string
	qNode     any
	filtersRaw json.RawMessage
}

// parseListRequestGET reads list parameters from the query string.
func parseListRequestGET(r *http.Request) (*listRequest, *apiError) {
	q := r.URL.Query()
	req := &listRequest{}

	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, badRequest("invalid_parameter", "limit must be a positive integer", "limit")
		}
		req.limit = &parsed
	}

	req.after = q.Get("after")
	if req.after == "" {
		req.after = q.Get("start_after")
	}
	req.before = q.Get("before")

	ledgerStr := q.Get("ledger")
	if ledgerStr == "" {
		ledgerStr = q.Get("start_ledger")
	}
	if ledgerStr != "" {
		parsed, err := strconv.ParseUint(ledgerStr, 10, 32)
		if err != nil || parsed == 0 {
			return nil, badRequest("invalid_parameter", "ledger must be a positive integer", "ledger")
		}
		req.ledger = uint32(parsed)
	}

	req.tx = q.Get("tx")
	req.qString = q.Get("q")

	if v := q.Get("filters"); v != "" {
		req.filtersRaw = json.RawMessage(v)
	}

	return req, nil
}

// listRequestBody is the POST /events JSON body.
type listRequestBody struct {
	Limit       *int            `json:"limit"`
	After       string          `json:"after"`
	StartAfter  string          `json:"start_after"`
	Before      string          `json:"before"`
	Ledger      uint32          `json:"ledger"`
	StartLedger uint32          `json:"start_ledger"`
	Tx          string          `json:"tx"`
	Q           json.RawMessage `json:"q"`
	Filters     json.RawMessage `json:"filters"`
}

// parseListRequestPOST reads list parameters from the JSON body. The q
// field may be a string (the filter language) or a structured node.
func parseListRequestPOST(r *http.Request) (*listRequest, *apiError) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, badRequest("invalid_parameter", "could not read request body", "")
	}

	var parsed listRequestBody
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, badRequest("invalid_parameter", "request body must be a JSON object", "")
		}
	}

	req := &listRequest{
		limit:      parsed.Limit,
		after:      parsed.After,
		before:     parsed.Before,
		ledger:     parsed.Ledger,
		tx:         parsed.Tx,
		filtersRaw: parsed.Filters,
	}
	if req.after == "" {
		req.after = parsed.StartAfter
	}
	if req.ledger == 0 {
		req.ledger = parsed.StartLedger
	}

	if len(parsed.Q) > 0 {
		var asString string
		if err := json.Unmarshal(parsed.Q, &asString); err == nil {
			req.qString = asString
		} else {
			dec := json.NewDecoder(bytes.NewReader(parsed.Q))
			dec.UseNumber()
			var node any
			if err := dec.Decode(&node); err != nil {
				return nil, badRequest("invalid_parameter", "q must be a string or a filter node object", "q")
			}
			req.qNode = node
		}
	}

	return req, nil
}

// queryPlan is a validated, store-ready list query.
type queryPlan struct {
	params store.QueryParams
	// startLedger is the ledger the query begins at when pinned by the
	// request; 0 when the query starts at the store's latest.
	startLedger uint32
	// ascending reports whether the page was requested with before.
	ascending bool
}

// buildQueryPlan validates a listRequest into store query parameters.
func buildQueryPlan(req *listRequest) (*queryPlan, *apiError) {
	limit := defaultLimit
	if req.limit != nil {
		limit = *req.limit
	}
	if limit < 1 || limit > maxLimit {
		return nil, badRequest("invalid_parameter",
			fmt.Sprintf("limit must be between 1 and %d", maxLimit), "limit")
	}

	if req.after != "" && req.before != "" {
		return nil, badRequest("invalid_parameter",
			"after and before cannot both be provided", "before")
	}

	params := store.QueryParams{Limit: limit}

	if req.after != "" {
		tuple, err := ledger.DecodeEventID(req.after)
		if err != nil {
			return nil, badRequest("invalid_cursor",
				fmt.Sprintf("invalid cursor: %s", req.after), "after")
		}
		params.After = &tuple
	}
	if req.before != "" {
		tuple, err := ledger.DecodeEventID(req.before)
		if err != nil {
			return nil, badRequest("invalid_cursor",
				fmt.Sprintf("invalid cursor: %s", req.before), "before")
		}
		params.Before = &tuple
	}

	hasQ := req.qString != "" || req.qNode != nil
	if hasQ && req.filtersRaw != nil {
		return nil, badRequest("invalid_parameter",
			"q and filters are mutually exclusive", "q")
	}

	switch {
	case req.qString != "":
		filters, perr := query.Parse(req.qString)
		if perr != nil {
			return nil, badRequest(perr.Code(),
				fmt.Sprintf("invalid q parameter: %s", perr.Message), "q")
		}
		params.Filters = filters
	case req.qNode != nil:
		filters, perr := query.ParseJSONNode(req.qNode)
		if perr != nil {
			return nil, badRequest(perr.Code(),
				fmt.Sprintf("invalid q parameter: %s", perr.Message), "q")
		}
		params.Filters = filters
	case req.filtersRaw != nil:
		filters, aerr := parseLegacyFilters(req.filtersRaw)
		if aerr != nil {
			return nil, aerr
		}
		params.Filters = filters
	}

	if req.tx != "" {
		if req.ledger == 0 {
			return nil, badRequest("missing_dependency",
				"ledger is required when tx is provided", "tx")
		}
		params.Tx = req.tx
	}

	params.StartLedger = req.ledger
	if params.StartLedger == 0 {
		// A ledger pin inside a filter group pins the query too.
		for _, f := range params.Filters {
			if f.Ledger != 0 {
				params.StartLedger = f.Ledger
				break
			}
		}
	}

	// The starting ledger is the only one eligible for on-demand backfill.
	// A cursor resolves to its ledger when nothing pins the query.
	backfillTarget := params.StartLedger
	if backfillTarget == 0 && params.After != nil {
		backfillTarget = params.After.LedgerSequence
	}
	if backfillTarget == 0 && params.Before != nil {
		backfillTarget = params.Before.LedgerSequence
	}

	return &queryPlan{
		params:      params,
		startLedger: backfillTarget,
		ascending:   params.Before != nil,
	}, nil
}

// parseLegacyFilters decodes the legacy filters parameter: a JSON array of
// structured filter objects.
func parseLegacyFilters(raw json.RawMessage) ([]store.EventFilter, *apiError) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var filters []store.EventFilter
	if err := dec.Decode(&filters); err != nil {
		return nil, badRequest("invalid_parameter",
			"filters must be a JSON array of filter objects", "filters")
	}

	for i := range filters {
		f := &filters[i]
		if f.EventType != "" {
			if _, err := ledger.ParseEventType(f.EventType); err != nil {
				return nil, badRequest("invalid_value",
					fmt.Sprintf("invalid event type '%s'", f.EventType), "filters")
			}
		}
		if len(f.Topics) > 4 {
			return nil, badRequest("invalid_value",
				"a filter can match at most 4 positional topics", "filters")
		}
		if f.Tx != "" && f.Ledger == 0 {
			return nil, badRequest("missing_dependency",
				"ledger is required when tx is provided", "filters")
		}
	}
	return filters, nil
}
