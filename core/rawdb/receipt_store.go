package rawdb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethforge/evmcore/core/types"
	"github.com/ethforge/evmcore/rlp"
)

// Query budget defaults. A getLogs response is truncated once it reaches
// GetLogsLimit entries or GetLogsSizeLimit serialized bytes, and the
// requested block range may not exceed GetLogsBlockRangeLimit.
const (
	GetLogsLimit           = 10000
	GetLogsSizeLimitMB     = 150
	GetLogsSizeLimit       = GetLogsSizeLimitMB << 20
	GetLogsBlockRangeLimit = 2500
)

var (
	ErrTxNotFound      = errors.New("receipt store: transaction not found")
	ErrRangeTooLarge   = fmt.Errorf("receipt store: block range exceeds %d", GetLogsBlockRangeLimit)
	ErrInvalidRange    = errors.New("receipt store: invalid block range")
	ErrCorruptedIndex  = errors.New("receipt store: corrupted lookup entry")
)

// BlockRef identifies a block to the receipt store: its hash, height, and
// the hashes of its transactions in execution order. The store never sees
// full blocks; header/body parsing belongs to the embedder.
type BlockRef struct {
	Hash     types.Hash
	Number   uint64
	TxHashes []types.Hash
}

// ReceiptStore persists per-block receipt lists and maintains the
// tx-hash lookup index over them. txLookupLimit bounds how many recent
// blocks keep their lookup entries: 0 retains everything, L > 0 garbage
// collects a block's entries once it is L or more blocks behind the head.
type ReceiptStore struct {
	db            KVStore
	txLookupLimit uint64

	logsLimit      int
	logsSizeLimit  int
	rangeLimit     uint64
}

// NewReceiptStore builds a store over db with the default query budgets.
func NewReceiptStore(db KVStore, txLookupLimit uint64) *ReceiptStore {
	return &ReceiptStore{
		db:            db,
		txLookupLimit: txLookupLimit,
		logsLimit:     GetLogsLimit,
		logsSizeLimit: GetLogsSizeLimit,
		rangeLimit:    GetLogsBlockRangeLimit,
	}
}

// SetLogsLimits overrides the getLogs truncation budgets. Zero keeps the
// current value.
func (s *ReceiptStore) SetLogsLimits(maxLogs, maxBytes int) {
	if maxLogs > 0 {
		s.logsLimit = maxLogs
	}
	if maxBytes > 0 {
		s.logsSizeLimit = maxBytes
	}
}

// ChainHead returns the highest block number saved so far.
func (s *ReceiptStore) ChainHead() uint64 {
	data, err := s.db.Get(chainHeadKey)
	if err != nil || len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

// SaveReceipts persists a block's receipts and updates the tx-hash index.
// A failed receipt write is returned to the caller (losing it would
// corrupt lookups); index GC deletions are fire-and-forget, since a stale
// lookup entry is tolerable and a retried save heals it.
func (s *ReceiptStore) SaveReceipts(block BlockRef, receipts []*types.Receipt) error {
	if err := s.db.Put(receiptsKey(block.Hash), types.EncodeReceiptList(receipts)); err != nil {
		return err
	}
	if err := s.db.Put(canonicalKey(block.Number), block.Hash.Bytes()); err != nil {
		return err
	}
	txItems := make([][]byte, len(block.TxHashes))
	for i, h := range block.TxHashes {
		txItems[i] = rlp.EncodeBytes(h.Bytes())
	}
	if err := s.db.Put(blockTxsKey(block.Number), rlp.WrapList(txItems...)); err != nil {
		return err
	}

	head := s.ChainHead()
	if block.Number > head {
		head = block.Number
		if err := s.db.Put(chainHeadKey, encodeBlockNumber(head)); err != nil {
			return err
		}
	}

	return s.updateIndex(block, head)
}

// updateIndex writes the tx-hash lookup entries for block and, when a
// lookup limit is configured, unindexes the block that just fell out of
// the retention window.
func (s *ReceiptStore) updateIndex(block BlockRef, head uint64) error {
	withinLimit := s.txLookupLimit == 0 || head < s.txLookupLimit || head-s.txLookupLimit < block.Number
	if withinLimit {
		batch := s.db.NewBatch()
		for i, txHash := range block.TxHashes {
			entry := rlp.WrapList(
				rlp.EncodeBytes(block.Hash.Bytes()),
				rlp.EncodeUint64(uint64(i)),
			)
			batch.Put(txHashKey(txHash), entry)
		}
		if err := batch.Write(); err != nil {
			return err
		}
	}
	if s.txLookupLimit > 0 && head >= s.txLookupLimit {
		s.unindexBlock(head - s.txLookupLimit)
	}
	return nil
}

// unindexBlock drops the lookup entries of the block at the given height.
// Errors are swallowed: a leftover entry makes the index stale, not wrong.
func (s *ReceiptStore) unindexBlock(number uint64) {
	data, err := s.db.Get(blockTxsKey(number))
	if err != nil {
		return
	}
	stream := rlp.NewStream(data)
	if _, err := stream.List(); err != nil {
		return
	}
	for !stream.AtListEnd() {
		h, err := stream.Bytes()
		if err != nil {
			return
		}
		s.db.Delete(txHashKey(types.BytesToHash(h)))
	}
	s.db.Delete(blockTxsKey(number))
}

// readTxIndex resolves a tx hash to its (block hash, tx index) entry.
func (s *ReceiptStore) readTxIndex(txHash types.Hash) (types.Hash, uint32, error) {
	data, err := s.db.Get(txHashKey(txHash))
	if err != nil {
		return types.Hash{}, 0, ErrTxNotFound
	}
	stream := rlp.NewStream(data)
	if _, err := stream.List(); err != nil {
		return types.Hash{}, 0, ErrCorruptedIndex
	}
	blockHashBytes, err := stream.Bytes()
	if err != nil || len(blockHashBytes) != types.HashLength {
		return types.Hash{}, 0, ErrCorruptedIndex
	}
	txIndex, err := stream.Uint64()
	if err != nil {
		return types.Hash{}, 0, ErrCorruptedIndex
	}
	return types.BytesToHash(blockHashBytes), uint32(txIndex), nil
}

// ReadReceipts loads and decodes a block's receipts by block hash.
func (s *ReceiptStore) ReadReceipts(blockHash types.Hash) ([]*types.Receipt, error) {
	data, err := s.db.Get(receiptsKey(blockHash))
	if err != nil {
		return nil, err
	}
	return types.DecodeReceiptList(data)
}

// GetReceiptByTxHash resolves a transaction hash to its receipt plus
// inclusion context: the containing block hash, the transaction's index,
// and the block-local index of the transaction's first log. The returned
// receipt has its bloom attached.
func (s *ReceiptStore) GetReceiptByTxHash(txHash types.Hash) (*types.Receipt, types.Hash, uint32, uint, error) {
	blockHash, txIndex, err := s.readTxIndex(txHash)
	if err != nil {
		return nil, types.Hash{}, 0, 0, err
	}
	receipts, err := s.ReadReceipts(blockHash)
	if err != nil {
		return nil, types.Hash{}, 0, 0, err
	}
	if int(txIndex) >= len(receipts) {
		return nil, types.Hash{}, 0, 0, ErrCorruptedIndex
	}
	logIndex := types.CumulativeLogIndex(receipts, int(txIndex))
	receipt := receipts[txIndex]
	receipt.TxHash = txHash
	receipt.BlockHash = blockHash
	receipt.TransactionIndex = uint(txIndex)
	return receipt, blockHash, txIndex, logIndex, nil
}

// FilterQuery is a getLogs request: an inclusive block range, an optional
// address allowlist, and positional topic filters. Topics[i] == nil
// matches anything at position i; a non-empty Topics[i] matches a log
// whose i-th topic equals any listed value (and which has a topic at that
// position at all). Every position must match for a log to be kept.
type FilterQuery struct {
	FromBlock uint64
	ToBlock   uint64
	Addresses []types.Address
	Topics    [][]types.Hash
}

// GetLogs walks the canonical chain over [from, to], flattening each
// block's receipts into (log, block, txIndex, logIndex) entries and
// filtering by address and ordered topics. The response is truncated once
// it reaches the entry-count or serialized-size budget; entries arrive in
// ascending (block, txIndex, logIndex) order so a truncated response is a
// well-defined prefix.
func (s *ReceiptStore) GetLogs(q FilterQuery) ([]*types.Log, error) {
	if q.ToBlock < q.FromBlock {
		return nil, ErrInvalidRange
	}
	if q.ToBlock-q.FromBlock+1 > s.rangeLimit {
		return nil, ErrRangeTooLarge
	}

	var (
		out       []*types.Log
		sizeTotal int
	)
	for number := q.FromBlock; number <= q.ToBlock; number++ {
		hashBytes, err := s.db.Get(canonicalKey(number))
		if err != nil {
			continue // gap in the stored chain; nothing to report for this height
		}
		blockHash := types.BytesToHash(hashBytes)
		receipts, err := s.ReadReceipts(blockHash)
		if err != nil {
			continue
		}

		logIndex := uint(0)
		for txIndex, receipt := range receipts {
			for _, log := range receipt.Logs {
				log.BlockNumber = number
				log.BlockHash = blockHash
				log.TxIndex = uint(txIndex)
				log.Index = logIndex
				logIndex++

				if !matchAddress(log, q.Addresses) || !matchTopics(log, q.Topics) {
					continue
				}
				out = append(out, log)
				sizeTotal += len(log.EncodeRLP())
				if len(out) >= s.logsLimit || sizeTotal >= s.logsSizeLimit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

func matchAddress(log *types.Log, addresses []types.Address) bool {
	if len(addresses) == 0 {
		return true
	}
	for _, a := range addresses {
		if log.Address == a {
			return true
		}
	}
	return false
}

// matchTopics checks every filter position against the log. The result is
// true only after all positions have been checked: a wildcard position
// never short-circuits the remaining ones.
func matchTopics(log *types.Log, topics [][]types.Hash) bool {
	for i, want := range topics {
		if len(want) == 0 {
			continue // wildcard
		}
		if i >= len(log.Topics) {
			return false
		}
		matched := false
		for _, t := range want {
			if log.Topics[i] == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
