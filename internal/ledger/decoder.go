package ledger

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/stellar/go/xdr"
)

// DecodeErrorKind distinguishes the two decode failure modes.
type DecodeErrorKind int

const (
	DecompressFailed DecodeErrorKind = iota
	ParseFailed
)

func (k DecodeErrorKind) String() string {
	if k == DecompressFailed {
		return "decompress_failed"
	}
	return "parse_failed"
}

// DecodeError is a classified decoder failure.
type DecodeError struct {
	Kind DecodeErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode (%s): %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder turns a compressed archive object into ledger-close records.
// It is safe for concurrent use.
type Decoder struct {
	zstd *zstd.Decoder
}

// NewDecoder creates a Decoder with a shared zstd decompressor. The
// decompressor is used in DecodeAll mode only, which is concurrency-safe
// and faster than streaming at archive object sizes.
func NewDecoder() (*Decoder, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Decoder{zstd: dec}, nil
}

// Close releases the decompressor.
func (d *Decoder) Close() {
	d.zstd.Close()
}

// Decode bulk-decompresses the payload and parses the contained batch into
// one Record per ledger close.
func (d *Decoder) Decode(data []byte) ([]Record, error) {
	raw, err := d.zstd.DecodeAll(data, nil)
	if err != nil {
		return nil, &DecodeError{Kind: DecompressFailed, Err: errors.Wrap(err, "zstd decompress")}
	}

	var batch xdr.LedgerCloseMetaBatch
	if err := batch.UnmarshalBinary(raw); err != nil {
		return nil, &DecodeError{Kind: ParseFailed, Err: errors.Wrap(err, "parsing ledger close meta batch")}
	}

	records := make([]Record, 0, len(batch.LedgerCloseMetas))
	for _, meta := range batch.LedgerCloseMetas {
		records = append(records, Record{
			Sequence: uint32(meta.LedgerSequence()),
			ClosedAt: meta.ClosedAt(),
			Meta:     meta,
		})
	}
	return records, nil
}
