package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leighmcculloch/stellar-events-api/internal/archive"
	"github.com/leighmcculloch/stellar-events-api/internal/metrics"
	"github.com/leighmcculloch/stellar-events-api/internal/store"
)

// handleIndex returns basic service information
// GET / - Returns service info and available endpoints
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, notFoundError("endpoint not found"))
		return
	}

	info := map[string]any{
		"service":     "stellar-events-api",
		"description": "HTTP API for Stellar network contract events",
		"endpoints": map[string]string{
			"GET /":            "This page - Service information",
			"GET /events":      "List events (supports ?limit=, ?ledger=, ?after=, ?before=, ?q=)",
			"POST /events":     "List events with parameters in the JSON body",
			"GET /events/{id}": "Fetch a single event by its external ID",
			"GET /health":      "Sync state and cache statistics",
			"GET /metrics":     "Prometheus metrics for monitoring",
		},
	}
	writeJSON(w, http.StatusOK, info)
}

// handleHealth returns sync state
// GET /health - Health check for monitoring systems
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var latest *uint32
	if v, ok := s.store.Latest(); ok {
		latest = &v
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:            "ok",
		LatestLedger:      latest,
		CachedLedgers:     s.store.CachedCount(),
		NetworkPassphrase: s.storeConfig.NetworkPassphrase,
	})
}

// handleMetrics returns Prometheus metrics
// GET /metrics - Prometheus scraping endpoint
func (s *Server) handleMetrics() http.Handler {
	return promhttp.Handler()
}

// handleListEventsGET serves GET /events with parameters in the query
// string.
func (s *Server) handleListEventsGET(w http.ResponseWriter, r *http.Request) {
	req, aerr := parseListRequestGET(r)
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	s.listEvents(w, r, req)
}

// handleListEventsPOST serves POST /events with parameters in the JSON
// body.
func (s *Server) handleListEventsPOST(w http.ResponseWriter, r *http.Request) {
	req, aerr := parseListRequestPOST(r)
	if aerr != nil {
		writeError(w, aerr)
		return
	}
	s.listEvents(w, r, req)
}

// listEvents is the shared list path: validate, backfill the start ledger
// when needed, query the store, shape the page.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, req *listRequest) {
	start := time.Now()

	plan, aerr := buildQueryPlan(req)
	if aerr != nil {
		writeError(w, aerr)
		return
	}

	// On-demand backfill applies to the pinned start ledger only; ledgers
	// crossed during iteration never trigger fetches.
	if plan.startLedger != 0 && !s.store.Contains(plan.startLedger) {
		if aerr := s.runBackfill(r, plan.startLedger); aerr != nil {
			writeError(w, aerr)
			return
		}
	}

	// A start ledger that is still absent after backfill yields an empty
	// page rather than events from older cached ledgers.
	var result store.QueryResult
	if plan.startLedger == 0 || s.store.Contains(plan.startLedger) {
		result = s.store.Query(&plan.params)
	}

	events := make([]Event, len(result.Events))
	for i := range result.Events {
		events[i] = eventResponse(&result.Events[i])
	}

	hasMore := result.NextCursor != ""
	next := ""
	if hasMore {
		cursorParam := "after"
		if plan.ascending {
			cursorParam = "before"
		}
		next = "/events?" + cursorParam + "=" + result.NextCursor
	}

	metrics.APIRequests.WithLabelValues("events").Inc()
	metrics.APIRequestDuration.WithLabelValues("events").Observe(time.Since(start).Seconds())
	metrics.APIEventsReturned.Observe(float64(len(events)))

	writeJSON(w, http.StatusOK, ListResponse{
		Object:  "list",
		URL:     "/events",
		HasMore: hasMore,
		Next:    next,
		Data:    events,
	})
}

// runBackfill maps a backfill outcome onto the API error taxonomy. A
// partition that simply is not published yet is not an error: the query
// proceeds and returns an empty page.
func (s *Server) runBackfill(r *http.Request, sequence uint32) *apiError {
	err := s.backfiller.BackfillIfNeeded(r.Context(), sequence)
	if err == nil || archive.IsNotFound(err) {
		return nil
	}
	if r.Context().Err() != nil {
		// Client went away; the response will not be read anyway.
		return internalError("request cancelled")
	}

	slog.Warn("backfill failed", "ledger", sequence, "error", err)
	return upstreamUnavailable("ledger archive is unavailable, try again later")
}

// handleGetEvent serves GET /events/{id}.
//
// A missing partition yields 404 without triggering backfill: a single
// event lookup is not allowed to block on archive I/O.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request, id string) {
	start := time.Now()

	event, ok := s.store.GetByID(id)
	if !ok {
		writeError(w, notFoundError("event not found: "+id))
		return
	}

	metrics.APIRequests.WithLabelValues("get_event").Inc()
	metrics.APIRequestDuration.WithLabelValues("get_event").Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, eventResponse(&event))
}
