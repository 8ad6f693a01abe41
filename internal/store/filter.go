package store

import (
	"reflect"

	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
)

// EventFilter matches events when every populated field matches. A request
// carries a sequence of filters combined with OR; an empty sequence
// matches everything.
type EventFilter struct {
	// EventType restricts to "contract", "system", or "diagnostic".
	EventType string `json:"type,omitempty"`
	// ContractID restricts to a strkey-encoded contract address.
	ContractID string `json:"contract_id,omitempty"`
	// Topics matches positionally: entry i must deep-equal the event's
	// topic i. A nil entry is a wildcard at that position. The event must
	// have at least len(Topics) topics.
	Topics []any `json:"topics,omitempty"`
	// TopicsAny values must each appear somewhere in the event's topics.
	TopicsAny []any `json:"topics_any,omitempty"`
	// Ledger pins the filter to one ledger sequence (0 = unset).
	Ledger uint32 `json:"ledger,omitempty"`
	// Tx restricts to a transaction hash (lower hex). Requires Ledger.
	Tx string `json:"tx,omitempty"`
}

// Matches reports whether the event satisfies every populated condition.
func (f *EventFilter) Matches(e *ledger.Event) bool {
	if f.EventType != "" && f.EventType != e.Type.String() {
		return false
	}
	if f.ContractID != "" && f.ContractID != e.ContractID {
		return false
	}
	if f.Ledger != 0 && f.Ledger != e.LedgerSequence {
		return false
	}
	if f.Tx != "" && f.Tx != e.TxHash {
		return false
	}

	if len(f.Topics) > 0 {
		if len(e.Topics) < len(f.Topics) {
			return false
		}
		for i, want := range f.Topics {
			if want == nil {
				continue
			}
			if !valueEqual(want, e.Topics[i]) {
				return false
			}
		}
	}

	for _, want := range f.TopicsAny {
		found := false
		for _, topic := range e.Topics {
			if valueEqual(want, topic) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// MatchesAny reports whether any filter matches; an empty filter list
// matches all events.
func MatchesAny(filters []EventFilter, e *ledger.Event) bool {
	if len(filters) == 0 {
		return true
	}
	for i := range filters {
		if filters[i].Matches(e) {
			return true
		}
	}
	return false
}

// valueEqual is deep structural equality over JSON value trees. Both sides
// are built from json-decoded values (map[string]any, []any, string, bool,
// json.Number, nil), so reflect.DeepEqual compares them exactly: numbers
// are compared by their literal form.
func valueEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
