package types

import "testing"

func TestBloomMembership(t *testing.T) {
	addr := BytesToAddress([]byte{0xaa})
	topic := BytesToHash([]byte("transfer"))
	logs := []*Log{{Address: addr, Topics: []Hash{topic}}}

	b := CreateBloom(logs)
	if !BloomContains(b, addr.Bytes()) {
		t.Error("address not in bloom")
	}
	if !BloomContains(b, topic.Bytes()) {
		t.Error("topic not in bloom")
	}
	if BloomContains(b, BytesToHash([]byte("absent")).Bytes()) {
		t.Error("unrelated value matched (possible but vanishingly unlikely)")
	}
}

func TestBloomEmpty(t *testing.T) {
	b := CreateBloom(nil)
	if b != (Bloom{}) {
		t.Error("empty log set produced non-zero bloom")
	}
}

func TestBloomThreeBitsSet(t *testing.T) {
	var b Bloom
	BloomAdd(&b, []byte{1})
	bits := 0
	for _, by := range b {
		for i := 0; i < 8; i++ {
			if by&(1<<i) != 0 {
				bits++
			}
		}
	}
	if bits == 0 || bits > 3 {
		t.Errorf("bit count = %d, want 1..3", bits)
	}
}

func TestMergeBlooms(t *testing.T) {
	r1 := NewPostByzantiumReceipt(1, 1, []*Log{{Address: BytesToAddress([]byte{1})}})
	r2 := NewPostByzantiumReceipt(1, 2, []*Log{{Address: BytesToAddress([]byte{2})}})
	merged := MergeBlooms([]*Receipt{r1, r2})
	if !BloomContains(merged, BytesToAddress([]byte{1}).Bytes()) {
		t.Error("merged bloom lost first receipt's address")
	}
	if !BloomContains(merged, BytesToAddress([]byte{2}).Bytes()) {
		t.Error("merged bloom lost second receipt's address")
	}
}

func TestDeriveFields(t *testing.T) {
	receipts := []*Receipt{
		NewPostByzantiumReceipt(1, 1, []*Log{{}, {}}),
		NewPostByzantiumReceipt(1, 2, []*Log{{}}),
	}
	blockHash := BytesToHash([]byte{0xb1})
	txHashes := []Hash{BytesToHash([]byte{0x01}), BytesToHash([]byte{0x02})}
	DeriveFields(receipts, blockHash, 7, txHashes, 0)

	if receipts[1].TransactionIndex != 1 || receipts[1].TxHash != txHashes[1] {
		t.Errorf("receipt 1 inclusion = %+v", receipts[1])
	}
	wantIndexes := []uint{0, 1, 2}
	i := 0
	for _, r := range receipts {
		for _, l := range r.Logs {
			if l.Index != wantIndexes[i] {
				t.Errorf("log %d index = %d, want %d", i, l.Index, wantIndexes[i])
			}
			if l.BlockHash != blockHash || l.BlockNumber != 7 {
				t.Errorf("log %d block fields wrong", i)
			}
			i++
		}
	}
}
