package ledger

import (
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestDecode_GarbageFailsDecompress(t *testing.T) {
	d, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer d.Close()

	_, err = d.Decode([]byte("not zstd at all"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got: %v", err)
	}
	if decodeErr.Kind != DecompressFailed {
		t.Errorf("Kind = %v, want decompress_failed", decodeErr.Kind)
	}
}

func TestDecode_ValidZstdOfGarbageFailsParse(t *testing.T) {
	d, err := NewDecoder()
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	defer d.Close()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer enc.Close()
	payload := enc.EncodeAll([]byte("this is not xdr"), nil)

	_, err = d.Decode(payload)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got: %v", err)
	}
	if decodeErr.Kind != ParseFailed {
		t.Errorf("Kind = %v, want parse_failed", decodeErr.Kind)
	}
}
