package store

import (
	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
)

// QueryParams describes one paginated event query.
type QueryParams struct {
	// Filters are OR'd; an empty list matches everything.
	Filters []EventFilter
	// Limit is the page size (already validated by the caller).
	Limit int
	// After pages to strictly older events (descending, exclusive).
	After *ledger.EventTuple
	// Before pages to strictly newer events (ascending, exclusive).
	// Mutually exclusive with After.
	Before *ledger.EventTuple
	// StartLedger pins the starting ledger (0 = unset).
	StartLedger uint32
	// Tx restricts results to one transaction hash.
	Tx string
}

// StartSequence resolves which ledger a query begins at, falling back to
// the store's latest ingested sequence. ok is false when nothing is
// resolvable (empty store, no pins).
func (s *Store) StartSequence(p *QueryParams) (uint32, bool) {
	if p.StartLedger != 0 {
		return p.StartLedger, true
	}
	if p.After != nil {
		return p.After.LedgerSequence, true
	}
	if p.Before != nil {
		return p.Before.LedgerSequence, true
	}
	return s.Latest()
}

// QueryResult is one page of matching events.
type QueryResult struct {
	Events []ledger.Event
	// NextCursor is the external ID to resume from; empty when the page
	// exhausted all reachable matches.
	NextCursor string
}

// Query returns one page of events matching p.
//
// Results are newest-first unless Before is set, in which case iteration
// ascends from the cursor; the page itself is still returned newest-first.
// Ledgers absent from the store are skipped: on-demand backfill happens
// before the query, for the start ledger only, so a single request's work
// stays bounded.
func (s *Store) Query(p *QueryParams) QueryResult {
	start, ok := s.StartSequence(p)
	if !ok {
		return QueryResult{}
	}
	if p.Before != nil {
		return s.queryAscending(p, start)
	}
	return s.queryDescending(p, start)
}

// queryDescending walks partitions from start down to the oldest cached
// sequence, newest event first.
func (s *Store) queryDescending(p *QueryParams, start uint32) QueryResult {
	fetchLimit := p.Limit + 1
	collected := make([]ledger.Event, 0, fetchLimit)

	for _, seq := range s.sequencesDesc() {
		if seq > start {
			continue
		}
		partition, ok := s.Get(seq)
		if !ok {
			continue
		}

		events := partition.Events
		for i := len(events) - 1; i >= 0; i-- {
			e := &events[i]
			if p.After != nil && e.Tuple().Compare(*p.After) >= 0 {
				continue
			}
			if p.Tx != "" && p.Tx != e.TxHash {
				continue
			}
			if !MatchesAny(p.Filters, e) {
				continue
			}
			collected = append(collected, *e)
			if len(collected) == fetchLimit {
				return pageOf(collected, p.Limit)
			}
		}
	}

	return pageOf(collected, p.Limit)
}

// queryAscending walks partitions upward from the Before cursor toward the
// latest ingested ledger, then flips the page to newest-first.
func (s *Store) queryAscending(p *QueryParams, start uint32) QueryResult {
	latest, ok := s.Latest()
	if !ok {
		return QueryResult{}
	}

	fetchLimit := p.Limit + 1
	collected := make([]ledger.Event, 0, fetchLimit)

	seqs := s.sequencesDesc()
	// Reverse into ascending order for the forward walk.
	for i, j := 0, len(seqs)-1; i < j; i, j = i+1, j-1 {
		seqs[i], seqs[j] = seqs[j], seqs[i]
	}

	for _, seq := range seqs {
		if seq < start || seq > latest {
			continue
		}
		partition, ok := s.Get(seq)
		if !ok {
			continue
		}

		for i := range partition.Events {
			e := &partition.Events[i]
			if e.Tuple().Compare(*p.Before) <= 0 {
				continue
			}
			if p.Tx != "" && p.Tx != e.TxHash {
				continue
			}
			if !MatchesAny(p.Filters, e) {
				continue
			}
			collected = append(collected, *e)
			if len(collected) == fetchLimit {
				return newestFirstPage(collected, p.Limit)
			}
		}
	}

	return newestFirstPage(collected, p.Limit)
}

// pageOf trims an over-fetched descending collection to the page size and
// derives the resume cursor.
func pageOf(collected []ledger.Event, limit int) QueryResult {
	if len(collected) <= limit {
		return QueryResult{Events: collected}
	}
	page := collected[:limit]
	return QueryResult{
		Events:     page,
		NextCursor: page[len(page)-1].ExternalID,
	}
}

// newestFirstPage trims an ascending collection, keeps its resume cursor
// (the newest collected event), and reverses into newest-first order.
func newestFirstPage(collected []ledger.Event, limit int) QueryResult {
	hasMore := len(collected) > limit
	if hasMore {
		collected = collected[:limit]
	}

	var next string
	if hasMore && len(collected) > 0 {
		next = collected[len(collected)-1].ExternalID
	}

	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return QueryResult{Events: collected, NextCursor: next}
}
