// Package ingest drives the fetch → decompress → decode → extract pipeline
// that keeps the event store populated: a proactive sync loop with bounded
// fan-out, coalesced on-demand backfill, and the TTL sweeper.
package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leighmcculloch/stellar-events-api/internal/archive"
	"github.com/leighmcculloch/stellar-events-api/internal/ingest/retry"
	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
	"github.com/leighmcculloch/stellar-events-api/internal/metrics"
	"github.com/leighmcculloch/stellar-events-api/internal/store"
)

// Config holds the ingestion controller settings.
type Config struct {
	// StartLedger forces the sync starting point; 0 means auto-discover.
	StartLedger uint32
	// ParallelFetches bounds the in-flight archive fetches of the sync
	// loop.
	ParallelFetches int
	// PollInterval is the sleep between attempts when the tip of the
	// chain has not been published yet.
	PollInterval time.Duration
	// CacheTTL bounds how long a partition stays cached.
	CacheTTL time.Duration
	// SweepInterval is how often expired partitions are removed.
	SweepInterval time.Duration
	// HorizonURL is the ledger-head discovery endpoint.
	HorizonURL string
	// BackfillBudget caps the total wall-clock time of one on-demand
	// backfill before it fails to the caller.
	BackfillBudget time.Duration
	// FatalCooldown is the pause after a fatal fetch error before the
	// sync loop moves on to the next sequence.
	FatalCooldown time.Duration
	// HeadStartOffset is how many ledgers behind the discovered head the
	// initial sync starts, so the first pages have some depth.
	HeadStartOffset uint32
}

// DefaultConfig returns the controller defaults.
func DefaultConfig() Config {
	return Config{
		ParallelFetches: 10,
		PollInterval:    5 * time.Second,
		CacheTTL:        24 * time.Hour,
		SweepInterval:   time.Minute,
		HorizonURL:      DefaultHorizonURL,
		BackfillBudget:  30 * time.Second,
		FatalCooldown:   5 * time.Second,
		HeadStartOffset: 10,
	}
}

// Controller is the only mutator of the event store.
type Controller struct {
	config     Config
	client     *archive.Client
	decoder    *ledger.Decoder
	extractor  *ledger.Extractor
	store      *store.Store
	httpClient *http.Client
	backoff    retry.Strategy

	backfill backfillGroup
}

// New creates an ingestion controller.
func New(config Config, client *archive.Client, decoder *ledger.Decoder, extractor *ledger.Extractor, st *store.Store) *Controller {
	return &Controller{
		config:     config,
		client:     client,
		decoder:    decoder,
		extractor:  extractor,
		store:      st,
		httpClient: &http.Client{Timeout: archive.DefaultFetchTimeout},
		backoff:    retry.NewStrategy(retry.DefaultConfig()),
	}
}

// Run starts the sweeper and drives the proactive sync loop until the
// context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	go c.runSweeper(ctx)
	c.runSync(ctx)
}

// runSweeper periodically expires partitions past the cache TTL.
func (c *Controller) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.store.Sweep(time.Now(), c.config.CacheTTL); removed > 0 {
				slog.Info("cleaned up expired ledger cache entries", "count", removed)
			}
		}
	}
}

// runSync advances latest_ingested ledger by ledger, fetching up to
// ParallelFetches consecutive sequences concurrently and committing the
// results strictly in sequence order.
func (c *Controller) runSync(ctx context.Context) {
	current := c.determineStart(ctx)
	if ctx.Err() != nil {
		return
	}

	slog.Info("🚀 starting ledger sync",
		"start", current,
		"parallel_fetches", c.config.ParallelFetches,
	)

	consecutiveFailures := 0

	for ctx.Err() == nil {
		// Skip sequences that are already cached (backfill may have run
		// ahead of the sync position).
		for c.store.Contains(current) {
			current++
			consecutiveFailures = 0
		}

		results := c.fetchBatch(ctx, current)
		if ctx.Err() != nil {
			return
		}

		// Commit results in strict sequence order so latest_ingested
		// advances monotonically and readers never observe gaps behind it.
		advanced := uint32(0)
		totalEvents := 0
		var stop *fetchResult

		for i := range results {
			r := &results[i]
			if r.err != nil {
				stop = r
				break
			}
			c.store.Put(r.sequence, r.events, time.Now())
			advanced++
			totalEvents += len(r.events)
			consecutiveFailures = 0
			metrics.SyncQueueDepth.Set(float64(len(results) - i - 1))
		}
		metrics.SyncQueueDepth.Set(0)

		if advanced > 0 {
			slog.Info("synced ledgers",
				"first", current,
				"last", current+advanced-1,
				"events", totalEvents,
			)
			current += advanced
		}

		if stop == nil {
			// The whole batch landed; continue immediately.
			continue
		}

		switch archive.KindOf(stop.err) {
		case archive.KindNotFound:
			// Normal tip-of-chain state.
			slog.Debug("ledger not yet available, waiting", "ledger", stop.sequence)
			sleepCtx(ctx, c.config.PollInterval)
		case archive.KindTransient:
			consecutiveFailures++
			metrics.SyncErrors.Inc()
			backoff := backoffDelay(consecutiveFailures)
			slog.Warn("failed to fetch ledger",
				"ledger", stop.sequence,
				"error", stop.err,
				"consecutive_failures", consecutiveFailures,
				"backoff", backoff,
			)
			sleepCtx(ctx, backoff)
		default:
			// Fatal: give up on this sequence and move past it after a
			// cooldown.
			slog.Error("fatal error fetching ledger, skipping",
				"ledger", stop.sequence,
				"error", stop.err,
			)
			current = stop.sequence + 1
			sleepCtx(ctx, c.config.FatalCooldown)
		}
	}
}

type fetchResult struct {
	sequence uint32
	events   []ledger.Event
	err      error
}

// fetchBatch fetches ParallelFetches consecutive ledgers concurrently.
// Results come back indexed by position so the caller can commit in order.
func (c *Controller) fetchBatch(ctx context.Context, start uint32) []fetchResult {
	n := c.config.ParallelFetches
	if n < 1 {
		n = 1
	}

	results := make([]fetchResult, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)

	for i := 0; i < n; i++ {
		i := i
		seq := start + uint32(i)
		g.Go(func() error {
			events, err := c.fetchLedger(gctx, seq)
			results[i] = fetchResult{sequence: seq, events: events, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchLedger runs one fetch → decode → extract attempt and returns the
// events belonging to the requested sequence.
func (c *Controller) fetchLedger(ctx context.Context, sequence uint32) ([]ledger.Event, error) {
	fetchStart := time.Now()
	raw, err := c.client.Fetch(ctx, sequence)
	if err != nil {
		return nil, err
	}
	metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())

	decodeStart := time.Now()
	records, err := c.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}

	// An archive object may cover several ledgers; keep only the requested
	// one so the caller publishes exactly one partition.
	kept := records[:0]
	for _, rec := range records {
		if rec.Sequence == sequence {
			kept = append(kept, rec)
		}
	}

	events, err := c.extractor.ExtractBatch(kept)
	if err != nil {
		return nil, err
	}
	metrics.DecodeDuration.Observe(time.Since(decodeStart).Seconds())

	return events, nil
}

// determineStart resolves the initial sync position: explicit config, then
// resume from the store, then ledger-head discovery with backoff.
func (c *Controller) determineStart(ctx context.Context) uint32 {
	if c.config.StartLedger > 0 {
		return c.config.StartLedger
	}
	if latest, ok := c.store.Latest(); ok {
		return latest + 1
	}

	attempt := 0
	for ctx.Err() == nil {
		head, err := discoverHead(ctx, c.httpClient, c.config.HorizonURL)
		if err == nil {
			start := head
			if start > c.config.HeadStartOffset {
				start -= c.config.HeadStartOffset
			}
			slog.Info("discovered latest ledger", "head", head, "start", start)
			return start
		}

		attempt++
		backoff := backoffDelay(attempt)
		slog.Warn("could not discover latest ledger, retrying",
			"error", err,
			"backoff", backoff,
		)
		sleepCtx(ctx, backoff)
	}
	return 0
}

// backoffDelay doubles from 500 ms per failure, capped at 30 s.
func backoffDelay(failures int) time.Duration {
	d := 500 * time.Millisecond
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= 30*time.Second {
			return 30 * time.Second
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
