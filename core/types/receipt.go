package types

// Receipt status values used post-Byzantium (EIP-658).
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is the execution record of one transaction. Before Byzantium it
// carries the post-execution state root; Byzantium onward it carries a
// status flag instead (EIP-658). Both shapes share CumulativeGasUsed and
// Logs. Which shape is in effect is determined at encode time by the
// caller (PostByzantium bool) and at decode time by the length of the
// decoded first field (32 bytes => pre-Byzantium, see receipt_rlp.go).
type Receipt struct {
	// Consensus fields.
	PostByzantium     bool
	PostState         []byte // pre-Byzantium only: 32-byte state root
	Status            uint64 // post-Byzantium only: 0 or 1
	CumulativeGasUsed uint64
	Logs              []*Log

	// Annotations attached on retrieval, not part of the consensus encoding.
	Bloom Bloom
	TxType uint8 // EIP-2718 envelope byte

	// Inclusion context, populated by DeriveFields and, on lookup by tx hash,
	// by the rawdb receipt store.
	TxHash           Hash
	BlockHash        Hash
	BlockNumber      uint64
	TransactionIndex uint
}

// NewPreByzantiumReceipt builds a pre-Byzantium receipt carrying a state root.
func NewPreByzantiumReceipt(stateRoot []byte, cumulativeGasUsed uint64, logs []*Log) *Receipt {
	return &Receipt{
		PostByzantium:     false,
		PostState:         stateRoot,
		CumulativeGasUsed: cumulativeGasUsed,
		Logs:              logs,
		Bloom:             CreateBloom(logs),
	}
}

// NewPostByzantiumReceipt builds a post-Byzantium receipt carrying a status.
func NewPostByzantiumReceipt(status uint64, cumulativeGasUsed uint64, logs []*Log) *Receipt {
	return &Receipt{
		PostByzantium:     true,
		Status:            status,
		CumulativeGasUsed: cumulativeGasUsed,
		Logs:              logs,
		Bloom:             CreateBloom(logs),
	}
}

// Succeeded reports whether a post-Byzantium receipt's status is successful.
// Pre-Byzantium receipts have no status field and always report true; the
// caller must consult the state root to determine outcome in that case.
func (r *Receipt) Succeeded() bool {
	if !r.PostByzantium {
		return true
	}
	return r.Status == ReceiptStatusSuccessful
}

// DeriveFields stamps block/tx inclusion context and per-block sequential
// log indexes onto a block's receipts, following the order the block's
// transactions were executed in. firstLogIndex lets a caller continue a
// running log-index counter across calls (always 0 for a full block).
func DeriveFields(receipts []*Receipt, blockHash Hash, blockNumber uint64, txHashes []Hash, firstLogIndex uint) {
	logIndex := firstLogIndex
	for i, r := range receipts {
		r.BlockHash = blockHash
		r.BlockNumber = blockNumber
		r.TransactionIndex = uint(i)
		if i < len(txHashes) {
			r.TxHash = txHashes[i]
		}
		for _, l := range r.Logs {
			l.BlockHash = blockHash
			l.BlockNumber = blockNumber
			l.TxIndex = uint(i)
			l.TxHash = r.TxHash
			l.Index = logIndex
			logIndex++
		}
	}
}

// CumulativeLogIndex returns the number of logs emitted by receipts[0:txIndex],
// i.e. the log index of the first log in receipts[txIndex].
func CumulativeLogIndex(receipts []*Receipt, txIndex int) uint {
	var n uint
	for j := 0; j < txIndex && j < len(receipts); j++ {
		n += uint(len(receipts[j].Logs))
	}
	return n
}
