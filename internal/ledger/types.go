package ledger

import (
	"fmt"
	"time"

	"github.com/stellar/go/xdr"
)

// EventType classifies an extracted event.
type EventType uint8

const (
	EventTypeContract EventType = iota
	EventTypeSystem
	EventTypeDiagnostic
)

func (t EventType) String() string {
	switch t {
	case EventTypeContract:
		return "contract"
	case EventTypeSystem:
		return "system"
	case EventTypeDiagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

// ParseEventType parses the API representation of an event type.
// Matching is case-sensitive.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "contract":
		return EventTypeContract, nil
	case "system":
		return EventTypeSystem, nil
	case "diagnostic":
		return EventTypeDiagnostic, nil
	default:
		return 0, fmt.Errorf("unknown event type: %s", s)
	}
}

func eventTypeFromXDR(t xdr.ContractEventType) EventType {
	switch t {
	case xdr.ContractEventTypeSystem:
		return EventTypeSystem
	case xdr.ContractEventTypeDiagnostic:
		return EventTypeDiagnostic
	default:
		return EventTypeContract
	}
}

// Record is a single decoded ledger-close record.
type Record struct {
	Sequence uint32
	ClosedAt time.Time
	Meta     xdr.LedgerCloseMeta
}

// Event is a contract event extracted from ledger close meta, in the form
// the store keeps it.
type Event struct {
	LedgerSequence uint32
	// Phase is the transaction-set phase the emitting transaction belongs
	// to: 0 for classic, 1 for soroban.
	Phase      uint8
	TxIndex    uint16
	EventIndex uint16
	TxHash     string
	ClosedAt   time.Time
	Type       EventType
	// ContractID is the strkey-encoded contract address, empty when the
	// event has none.
	ContractID string
	// Topics and Data are XDR-JSON value trees built from json-compatible
	// Go values (map[string]any, []any, string, bool, json.Number, nil).
	Topics []any
	Data   any
	// ExternalID is the precomputed opaque cursor for this event.
	ExternalID string
}

// Tuple returns the identifying four-tuple of the event.
func (e *Event) Tuple() EventTuple {
	return EventTuple{
		LedgerSequence: e.LedgerSequence,
		Phase:          e.Phase,
		TxIndex:        e.TxIndex,
		EventIndex:     e.EventIndex,
	}
}

// EventTuple uniquely identifies an event within the chain.
type EventTuple struct {
	LedgerSequence uint32
	Phase          uint8
	TxIndex        uint16
	EventIndex     uint16
}

// Compare orders tuples lexicographically. Returns -1, 0, or 1.
func (t EventTuple) Compare(o EventTuple) int {
	switch {
	case t.LedgerSequence != o.LedgerSequence:
		return cmpU32(t.LedgerSequence, o.LedgerSequence)
	case t.Phase != o.Phase:
		return cmpU32(uint32(t.Phase), uint32(o.Phase))
	case t.TxIndex != o.TxIndex:
		return cmpU32(uint32(t.TxIndex), uint32(o.TxIndex))
	default:
		return cmpU32(uint32(t.EventIndex), uint32(o.EventIndex))
	}
}

func cmpU32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
