package archive

import (
	"fmt"

	"github.com/stellar/go/network"
)

// StoreConfig describes the layout of the remote ledger metadata store,
// loaded from its `.config.json` object.
type StoreConfig struct {
	NetworkPassphrase   string `json:"networkPassphrase"`
	LedgersPerBatch     uint32 `json:"ledgersPerBatch"`
	BatchesPerPartition uint32 `json:"batchesPerPartition"`
	Compression         string `json:"compression"`
	Version             string `json:"version"`
}

// DefaultStoreConfig matches the public pubnet bucket layout.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		NetworkPassphrase:   network.PublicNetworkPassphrase,
		LedgersPerBatch:     1,
		BatchesPerPartition: 64000,
		Compression:         "zstd",
		Version:             "0.1.0",
	}
}

// TestnetStoreConfig matches the testnet bucket layout.
func TestnetStoreConfig() StoreConfig {
	config := DefaultStoreConfig()
	config.NetworkPassphrase = network.TestNetworkPassphrase
	return config
}

// PathForLedger computes the object path for a given ledger sequence.
//
// Ledgers are grouped into fixed-size batches, batches into partitions.
// Directory and file names carry a bitwise-inverted, zero-padded hex prefix
// of the starting sequence so that newer objects sort first in a listing.
func (c StoreConfig) PathForLedger(ledgerSequence uint32) string {
	batchStart := ledgerSequence - (ledgerSequence % c.LedgersPerBatch)
	batchEnd := batchStart + c.LedgersPerBatch - 1

	partitionSize := c.LedgersPerBatch * c.BatchesPerPartition
	partitionStart := ledgerSequence - (ledgerSequence % partitionSize)
	partitionEnd := partitionStart + partitionSize - 1

	partitionPrefix := 0xFFFFFFFF - partitionStart
	batchPrefix := 0xFFFFFFFF - batchStart

	partitionDir := fmt.Sprintf("%08X--%d-%d", partitionPrefix, partitionStart, partitionEnd)

	var batchFile string
	if c.LedgersPerBatch == 1 {
		batchFile = fmt.Sprintf("%08X--%d.xdr.zst", batchPrefix, batchStart)
	} else {
		batchFile = fmt.Sprintf("%08X--%d-%d.xdr.zst", batchPrefix, batchStart, batchEnd)
	}

	if c.BatchesPerPartition == 1 && c.LedgersPerBatch == 1 {
		return batchFile
	}
	return fmt.Sprintf("%s/%s", partitionDir, batchFile)
}
