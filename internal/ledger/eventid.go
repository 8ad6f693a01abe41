package ledger

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/mr-tron/base58"
)

// EventIDPrefix is the ASCII prefix of every external event ID.
const EventIDPrefix = "evt_"

// eventIDBytes is the fixed payload size: u32 ledger, u8 phase, u16 tx
// index, u16 event index, big-endian.
const eventIDBytes = 9

// ErrInvalidEventID is returned when an external ID fails to decode.
var ErrInvalidEventID = errors.New("invalid event id")

// EncodeEventID packs the identifying tuple into the opaque external form:
// "evt_" + base58 over the 9-byte big-endian packing.
func EncodeEventID(t EventTuple) string {
	var buf [eventIDBytes]byte
	binary.BigEndian.PutUint32(buf[0:4], t.LedgerSequence)
	buf[4] = t.Phase
	binary.BigEndian.PutUint16(buf[5:7], t.TxIndex)
	binary.BigEndian.PutUint16(buf[7:9], t.EventIndex)
	return EventIDPrefix + base58.Encode(buf[:])
}

// DecodeEventID reverses EncodeEventID. It validates the prefix, payload
// length, and phase range.
func DecodeEventID(id string) (EventTuple, error) {
	payload, ok := strings.CutPrefix(id, EventIDPrefix)
	if !ok || payload == "" {
		return EventTuple{}, ErrInvalidEventID
	}

	raw, err := base58.Decode(payload)
	if err != nil || len(raw) != eventIDBytes {
		return EventTuple{}, ErrInvalidEventID
	}

	t := EventTuple{
		LedgerSequence: binary.BigEndian.Uint32(raw[0:4]),
		Phase:          raw[4],
		TxIndex:        binary.BigEndian.Uint16(raw[5:7]),
		EventIndex:     binary.BigEndian.Uint16(raw[7:9]),
	}
	if t.Phase > 1 {
		return EventTuple{}, ErrInvalidEventID
	}
	return t, nil
}
