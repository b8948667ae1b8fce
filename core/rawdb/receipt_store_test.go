package rawdb

import (
	"testing"

	"github.com/ethforge/evmcore/core/types"
)

func hashOf(b byte) types.Hash {
	return types.BytesToHash([]byte{b})
}

func receiptWithLogs(logs ...*types.Log) *types.Receipt {
	return types.NewPostByzantiumReceipt(types.ReceiptStatusSuccessful, 21000, logs)
}

func logAt(addr byte, topics ...types.Hash) *types.Log {
	return &types.Log{Address: types.BytesToAddress([]byte{addr}), Topics: topics}
}

func saveBlock(t *testing.T, s *ReceiptStore, number uint64, blockTag byte, receipts []*types.Receipt) BlockRef {
	t.Helper()
	block := BlockRef{
		Hash:   hashOf(blockTag),
		Number: number,
	}
	for i := range receipts {
		block.TxHashes = append(block.TxHashes, types.BytesToHash([]byte{blockTag, byte(i)}))
	}
	if err := s.SaveReceipts(block, receipts); err != nil {
		t.Fatalf("save block %d: %v", number, err)
	}
	return block
}

func TestIndexRoundTrip(t *testing.T) {
	s := NewReceiptStore(NewMemoryKVStore(), 0)
	receipts := []*types.Receipt{
		receiptWithLogs(logAt(0x01), logAt(0x02)),
		receiptWithLogs(logAt(0x03)),
	}
	block := saveBlock(t, s, 5, 0xb5, receipts)

	for i, txHash := range block.TxHashes {
		receipt, blockHash, txIndex, logIndex, err := s.GetReceiptByTxHash(txHash)
		if err != nil {
			t.Fatalf("lookup tx %d: %v", i, err)
		}
		if blockHash != block.Hash {
			t.Errorf("tx %d block hash = %v", i, blockHash)
		}
		if txIndex != uint32(i) {
			t.Errorf("tx %d index = %d", i, txIndex)
		}
		wantLogIndex := types.CumulativeLogIndex(receipts, i)
		if logIndex != wantLogIndex {
			t.Errorf("tx %d log index = %d, want %d", i, logIndex, wantLogIndex)
		}
		if len(receipt.Logs) != len(receipts[i].Logs) {
			t.Errorf("tx %d log count = %d", i, len(receipt.Logs))
		}
		if receipt.Bloom == (types.Bloom{}) && len(receipts[i].Logs) > 0 {
			t.Errorf("tx %d bloom not attached", i)
		}
	}

	if _, _, _, _, err := s.GetReceiptByTxHash(hashOf(0xff)); err != ErrTxNotFound {
		t.Errorf("missing tx error = %v", err)
	}
}

func TestTxLookupLimitGC(t *testing.T) {
	const limit = 2
	s := NewReceiptStore(NewMemoryKVStore(), limit)

	blocks := make([]BlockRef, 0, 4)
	for n := uint64(1); n <= 4; n++ {
		blocks = append(blocks, saveBlock(t, s, n, byte(0xb0+n), []*types.Receipt{receiptWithLogs(logAt(byte(n)))}))
	}

	// Head is 4; blocks at height <= 4-limit must be unindexed.
	for _, block := range blocks[:2] {
		if _, _, _, _, err := s.GetReceiptByTxHash(block.TxHashes[0]); err != ErrTxNotFound {
			t.Errorf("block %d lookup survived GC: %v", block.Number, err)
		}
	}
	for _, block := range blocks[2:] {
		if _, _, _, _, err := s.GetReceiptByTxHash(block.TxHashes[0]); err != nil {
			t.Errorf("block %d lookup lost: %v", block.Number, err)
		}
	}

	// Receipts themselves are retained; only the index is bounded.
	if _, err := s.ReadReceipts(blocks[0].Hash); err != nil {
		t.Errorf("receipts for unindexed block lost: %v", err)
	}
}

func TestGetLogsFiltering(t *testing.T) {
	s := NewReceiptStore(NewMemoryKVStore(), 0)
	t1, t2 := hashOf(0x71), hashOf(0x72)

	saveBlock(t, s, 10, 0xba, []*types.Receipt{receiptWithLogs(logAt(0x11))})
	saveBlock(t, s, 11, 0xbb, []*types.Receipt{
		receiptWithLogs(logAt(0xaa, t1, t2)),
		receiptWithLogs(logAt(0xbb, t1)),
	})
	saveBlock(t, s, 12, 0xbc, []*types.Receipt{receiptWithLogs(logAt(0x12))})

	logs, err := s.GetLogs(FilterQuery{
		FromBlock: 10,
		ToBlock:   12,
		Addresses: []types.Address{types.BytesToAddress([]byte{0xaa})},
		Topics:    [][]types.Hash{nil, {t2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Fatalf("matched %d logs, want 1", len(logs))
	}
	log := logs[0]
	if log.Address != types.BytesToAddress([]byte{0xaa}) {
		t.Errorf("address = %v", log.Address)
	}
	if log.Index != 0 || log.TxIndex != 0 {
		t.Errorf("logIndex = %d txIndex = %d, want 0/0", log.Index, log.TxIndex)
	}
	if log.BlockNumber != 11 {
		t.Errorf("block = %d, want 11", log.BlockNumber)
	}
}

func TestGetLogsTopicPositionsAllChecked(t *testing.T) {
	s := NewReceiptStore(NewMemoryKVStore(), 0)
	t1, t2, t3 := hashOf(0x71), hashOf(0x72), hashOf(0x73)
	saveBlock(t, s, 1, 0xb1, []*types.Receipt{
		receiptWithLogs(
			logAt(0xaa, t1, t2), // second topic mismatches the filter
			logAt(0xaa, t1, t3),
		),
	})

	logs, err := s.GetLogs(FilterQuery{
		FromBlock: 1,
		ToBlock:   1,
		Topics:    [][]types.Hash{{t1}, {t3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	// A match at position 0 alone must not admit the first log.
	if len(logs) != 1 {
		t.Fatalf("matched %d logs, want 1", len(logs))
	}
	if logs[0].Index != 1 {
		t.Errorf("matched log index = %d, want 1", logs[0].Index)
	}

	// A filter position beyond the log's topic count never matches.
	logs, err = s.GetLogs(FilterQuery{
		FromBlock: 1,
		ToBlock:   1,
		Topics:    [][]types.Hash{{t1}, {t2}, {t3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("short-topic log matched 3-position filter")
	}
}

func TestGetLogsTruncation(t *testing.T) {
	s := NewReceiptStore(NewMemoryKVStore(), 0)
	s.SetLogsLimits(3, 0)

	// 100 matching logs spread over 10 blocks.
	for n := uint64(1); n <= 10; n++ {
		var logs []*types.Log
		for i := 0; i < 10; i++ {
			logs = append(logs, logAt(0xaa))
		}
		saveBlock(t, s, n, byte(0xc0+n), []*types.Receipt{receiptWithLogs(logs...)})
	}

	logs, err := s.GetLogs(FilterQuery{FromBlock: 1, ToBlock: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 3 {
		t.Fatalf("returned %d logs, want 3", len(logs))
	}
	// Ascending (block, txIndex, logIndex) order: all from block 1.
	for i, log := range logs {
		if log.BlockNumber != 1 {
			t.Errorf("log %d block = %d, want 1", i, log.BlockNumber)
		}
		if log.Index != uint(i) {
			t.Errorf("log %d index = %d, want %d", i, log.Index, i)
		}
	}
}

func TestGetLogsSizeBudget(t *testing.T) {
	s := NewReceiptStore(NewMemoryKVStore(), 0)
	s.SetLogsLimits(0, 100) // ~one fat log's worth

	fat := &types.Log{Address: types.BytesToAddress([]byte{0xaa}), Data: make([]byte, 90)}
	saveBlock(t, s, 1, 0xd1, []*types.Receipt{receiptWithLogs(fat, fat, fat)})

	logs, err := s.GetLogs(FilterQuery{FromBlock: 1, ToBlock: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 {
		t.Errorf("returned %d logs, want 1 (size budget)", len(logs))
	}
}

func TestGetLogsRangeBounds(t *testing.T) {
	s := NewReceiptStore(NewMemoryKVStore(), 0)
	if _, err := s.GetLogs(FilterQuery{FromBlock: 0, ToBlock: GetLogsBlockRangeLimit}); err != ErrRangeTooLarge {
		t.Errorf("oversized range error = %v", err)
	}
	if _, err := s.GetLogs(FilterQuery{FromBlock: 5, ToBlock: 4}); err != ErrInvalidRange {
		t.Errorf("inverted range error = %v", err)
	}
	// Gaps in the stored chain are skipped, not errors.
	logs, err := s.GetLogs(FilterQuery{FromBlock: 100, ToBlock: 200})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("empty chain returned %d logs", len(logs))
	}
}

func TestWriteBatchSingleUse(t *testing.T) {
	db := NewMemoryKVStore()
	batch := db.NewBatch()
	batch.Put([]byte("k"), []byte("v"))
	batch.Delete([]byte("gone"))
	if err := batch.Write(); err != nil {
		t.Fatal(err)
	}
	if got, _ := db.Get([]byte("k")); string(got) != "v" {
		t.Errorf("batch put lost: %q", got)
	}
	if err := batch.Write(); err != ErrKVBatchApplied {
		t.Errorf("double write error = %v", err)
	}
}
