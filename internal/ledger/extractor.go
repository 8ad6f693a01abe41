package ledger

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/stellar/go/ingest"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// Extractor walks decoded ledger records and produces stored events.
type Extractor struct {
	networkPassphrase string
}

// NewExtractor creates an Extractor for the given network.
func NewExtractor(networkPassphrase string) *Extractor {
	return &Extractor{networkPassphrase: networkPassphrase}
}

// ExtractBatch extracts events from every record of a decoded archive
// object. A strkey cache is shared across the batch: the same contract
// tends to appear many times, and strkey encoding is a hot path.
func (e *Extractor) ExtractBatch(records []Record) ([]Event, error) {
	cache := make(map[xdr.Hash]string)
	var events []Event
	for _, rec := range records {
		recEvents, err := e.extractRecord(rec, cache)
		if err != nil {
			return nil, err
		}
		events = append(events, recEvents...)
	}
	return events, nil
}

// extractRecord extracts all events of a single ledger close, in ascending
// (phase, tx_index, event_index) order.
func (e *Extractor) extractRecord(rec Record, strkeyCache map[xdr.Hash]string) ([]Event, error) {
	reader, err := ingest.NewLedgerTransactionReaderFromLedgerCloseMeta(e.networkPassphrase, rec.Meta)
	if err != nil {
		return nil, errors.Wrapf(err, "creating transaction reader for ledger %d", rec.Sequence)
	}
	defer reader.Close()

	var events []Event
	for {
		tx, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "reading transaction in ledger %d", rec.Sequence)
		}

		txEvents, err := tx.GetTransactionEvents()
		if err != nil {
			// Not a transaction that carries events.
			continue
		}

		txIndex := uint16(tx.Index - 1)
		var phase uint8
		if tx.IsSorobanTx() {
			phase = 1
		}
		txHash := tx.Hash.HexString()

		eventIndex := uint16(0)
		for _, opEvents := range txEvents.OperationEvents {
			for _, contractEvent := range opEvents {
				events = append(events, e.buildEvent(
					rec, phase, txIndex, eventIndex, txHash, contractEvent, strkeyCache,
				))
				eventIndex++
			}
		}
		for _, txEvent := range txEvents.TransactionEvents {
			events = append(events, e.buildEvent(
				rec, phase, txIndex, eventIndex, txHash, txEvent.Event, strkeyCache,
			))
			eventIndex++
		}
	}

	slog.Debug("extracted events", "ledger", rec.Sequence, "events", len(events))
	return events, nil
}

func (e *Extractor) buildEvent(
	rec Record,
	phase uint8,
	txIndex uint16,
	eventIndex uint16,
	txHash string,
	contractEvent xdr.ContractEvent,
	strkeyCache map[xdr.Hash]string,
) Event {
	var contractID string
	if contractEvent.ContractId != nil {
		contractID = encodeContractID(xdr.Hash(*contractEvent.ContractId), strkeyCache)
	}

	var topics []any
	var data any
	if body, ok := contractEvent.Body.GetV0(); ok {
		topics = make([]any, len(body.Topics))
		for i, topic := range body.Topics {
			topics[i] = scValToJSON(topic)
		}
		data = scValToJSON(body.Data)
	}

	tuple := EventTuple{
		LedgerSequence: rec.Sequence,
		Phase:          phase,
		TxIndex:        txIndex,
		EventIndex:     eventIndex,
	}

	return Event{
		LedgerSequence: rec.Sequence,
		Phase:          phase,
		TxIndex:        txIndex,
		EventIndex:     eventIndex,
		TxHash:         txHash,
		ClosedAt:       rec.ClosedAt,
		Type:           eventTypeFromXDR(contractEvent.Type),
		ContractID:     contractID,
		Topics:         topics,
		Data:           data,
		ExternalID:     EncodeEventID(tuple),
	}
}

// encodeContractID strkey-encodes a contract hash, memoizing per batch.
func encodeContractID(id xdr.Hash, cache map[xdr.Hash]string) string {
	if encoded, ok := cache[id]; ok {
		return encoded
	}
	encoded, err := strkey.Encode(strkey.VersionByteContract, id[:])
	if err != nil {
		return ""
	}
	cache[id] = encoded
	return encoded
}
