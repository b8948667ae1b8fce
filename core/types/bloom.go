package types

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// bloom9 derives the three 11-bit indexes used to set/test a bloom entry:
// the low 11 bits of the first three big-endian uint16s of keccak256(data).
func bloom9(data []byte) [3]uint {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	h := d.Sum(nil)
	var bits [3]uint
	for i := 0; i < 3; i++ {
		bits[i] = uint(binary.BigEndian.Uint16(h[2*i:])) & 0x7FF
	}
	return bits
}

func setBit(b *Bloom, bit uint) {
	byteIdx := BloomLength - 1 - bit/8
	b[byteIdx] |= 1 << (bit % 8)
}

func testBit(b Bloom, bit uint) bool {
	byteIdx := BloomLength - 1 - bit/8
	return b[byteIdx]&(1<<(bit%8)) != 0
}

// BloomAdd sets the three bits derived from data.
func BloomAdd(b *Bloom, data []byte) {
	for _, bit := range bloom9(data) {
		setBit(b, bit)
	}
}

// BloomContains reports whether all three bits derived from data are set.
// A true result may be a false positive; false is definitive.
func BloomContains(b Bloom, data []byte) bool {
	for _, bit := range bloom9(data) {
		if !testBit(b, bit) {
			return false
		}
	}
	return true
}

// CreateBloom computes a receipt's bloom filter from its logs: each log's
// address and each topic contribute three set bits.
func CreateBloom(logs []*Log) Bloom {
	var b Bloom
	for _, l := range logs {
		BloomAdd(&b, l.Address.Bytes())
		for _, t := range l.Topics {
			BloomAdd(&b, t.Bytes())
		}
	}
	return b
}

// MergeBlooms ORs together the bloom filters of a block's receipts.
func MergeBlooms(receipts []*Receipt) Bloom {
	var b Bloom
	for _, r := range receipts {
		for i := range r.Bloom {
			b[i] |= r.Bloom[i]
		}
	}
	return b
}

func (b Bloom) Bytes() []byte {
	out := make([]byte, BloomLength)
	copy(out, b[:])
	return out
}

func BytesToBloom(data []byte) Bloom {
	var b Bloom
	if len(data) > BloomLength {
		data = data[len(data)-BloomLength:]
	}
	copy(b[BloomLength-len(data):], data)
	return b
}
