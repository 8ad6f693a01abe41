// Package store holds ingested contract events in an in-memory index
// partitioned by ledger sequence.
//
// Each partition is an immutable snapshot published behind an atomic map
// entry, so readers never take locks: they load the partition handle and
// iterate the snapshot while the map can keep changing underneath them.
package store

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
	"github.com/leighmcculloch/stellar-events-api/internal/metrics"
)

// Partition is an immutable snapshot of all events for one ledger, in
// ascending (phase, tx_index, event_index) order. Once published it is
// never mutated; replacement is an atomic swap of the map entry.
type Partition struct {
	Sequence  uint32
	Events    []ledger.Event
	CreatedAt time.Time
}

// Store maps ledger sequences to immutable partitions.
//
// Many concurrent readers, single logical writer (the ingestion controller
// plus coalesced backfill). Reads are wait-free.
type Store struct {
	partitions sync.Map // uint32 -> *Partition

	// latest is the highest ingested sequence; it only ever grows.
	latest atomic.Uint32

	// count tracks the number of live partitions for cheap reporting.
	count atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Put publishes a partition for the given ledger sequence. It is
// idempotent per sequence; a later put overwrites, which is how an expired
// partition is refreshed. latest never decreases.
func (s *Store) Put(sequence uint32, events []ledger.Event, now time.Time) {
	partition := &Partition{
		Sequence:  sequence,
		Events:    events,
		CreatedAt: now,
	}

	if _, loaded := s.partitions.Swap(sequence, partition); !loaded {
		s.count.Add(1)
	}

	for {
		latest := s.latest.Load()
		if sequence <= latest {
			break
		}
		if s.latest.CompareAndSwap(latest, sequence) {
			metrics.LatestLedger.Set(float64(sequence))
			break
		}
	}

	metrics.LedgersIngested.Inc()
	metrics.EventsIngested.Add(float64(len(events)))
	metrics.PartitionsActive.Set(float64(s.count.Load()))

	slog.Debug("published partition", "ledger", sequence, "events", len(events))
}

// Get returns the partition for a sequence, if present.
func (s *Store) Get(sequence uint32) (*Partition, bool) {
	v, ok := s.partitions.Load(sequence)
	if !ok {
		return nil, false
	}
	return v.(*Partition), true
}

// Contains reports whether a partition for the sequence is present.
func (s *Store) Contains(sequence uint32) bool {
	_, ok := s.partitions.Load(sequence)
	return ok
}

// Latest returns the highest ingested ledger sequence. ok is false before
// the first put.
func (s *Store) Latest() (uint32, bool) {
	v := s.latest.Load()
	return v, v != 0
}

// EarliestCached returns the lowest cached ledger sequence, or false when
// the store is empty.
func (s *Store) EarliestCached() (uint32, bool) {
	var min uint32
	found := false
	s.partitions.Range(func(key, _ any) bool {
		seq := key.(uint32)
		if !found || seq < min {
			min = seq
			found = true
		}
		return true
	})
	return min, found
}

// CachedCount returns the number of live partitions.
func (s *Store) CachedCount() int {
	return int(s.count.Load())
}

// Sweep removes every partition whose creation time plus ttl is before
// now. Returns the number of partitions removed. latest is left alone: it
// tracks ingestion progress, not cache residency.
func (s *Store) Sweep(now time.Time, ttl time.Duration) int {
	var expired []uint32
	s.partitions.Range(func(key, value any) bool {
		p := value.(*Partition)
		if p.CreatedAt.Add(ttl).Before(now) {
			expired = append(expired, key.(uint32))
		}
		return true
	})

	removed := 0
	for _, seq := range expired {
		if _, loaded := s.partitions.LoadAndDelete(seq); loaded {
			s.count.Add(-1)
			removed++
			metrics.PartitionsExpired.Inc()
		}
	}

	if removed > 0 {
		metrics.PartitionsActive.Set(float64(s.count.Load()))
		slog.Debug("expired partitions removed", "removed", removed, "remaining", s.count.Load())
	}
	return removed
}

// GetByID looks up a single event by its external ID.
func (s *Store) GetByID(externalID string) (ledger.Event, bool) {
	tuple, err := ledger.DecodeEventID(externalID)
	if err != nil {
		return ledger.Event{}, false
	}

	partition, ok := s.Get(tuple.LedgerSequence)
	if !ok {
		return ledger.Event{}, false
	}

	events := partition.Events
	i := sort.Search(len(events), func(i int) bool {
		return events[i].Tuple().Compare(tuple) >= 0
	})
	if i < len(events) && events[i].Tuple() == tuple {
		return events[i], true
	}
	return ledger.Event{}, false
}

// sequencesDesc snapshots the cached ledger sequences in descending order.
func (s *Store) sequencesDesc() []uint32 {
	var seqs []uint32
	s.partitions.Range(func(key, _ any) bool {
		seqs = append(seqs, key.(uint32))
		return true
	})
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] > seqs[j] })
	return seqs
}
