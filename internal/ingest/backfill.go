package ingest

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
	"github.com/leighmcculloch/stellar-events-api/internal/metrics"
)

// backfillGroup coalesces on-demand fetches per ledger sequence.
type backfillGroup struct {
	group singleflight.Group
}

// BackfillIfNeeded fetches and publishes the partition for sequence if it
// is not cached. Concurrent requests for the same sequence share a single
// fetch. The shared work runs on a detached context with its own deadline,
// so a cancelled waiter never aborts the fetch other waiters depend on;
// the caller's context only bounds how long this caller waits.
func (c *Controller) BackfillIfNeeded(ctx context.Context, sequence uint32) error {
	if c.store.Contains(sequence) {
		return nil
	}

	metrics.BackfillRequests.Inc()
	key := strconv.FormatUint(uint64(sequence), 10)

	ch := c.backfill.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.config.BackfillBudget)
		defer cancel()

		events, err := c.fetchWithRetry(fetchCtx, sequence)
		if err != nil {
			return nil, err
		}

		c.store.Put(sequence, events, time.Now())
		slog.Debug("backfilled ledger", "ledger", sequence, "events", len(events))
		return nil, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.BackfillCoalesced.Inc()
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchWithRetry runs fetch → decode → extract under the retry strategy.
// Not-found and fatal errors fail immediately; transient errors back off
// until the budget context expires.
func (c *Controller) fetchWithRetry(ctx context.Context, sequence uint32) (events []ledger.Event, err error) {
	retryErr := c.backoff.Execute(ctx, func() error {
		ev, fetchErr := c.fetchLedger(ctx, sequence)
		if fetchErr != nil {
			return fetchErr
		}
		events = ev
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return events, nil
}
