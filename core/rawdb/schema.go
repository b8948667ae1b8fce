// Package rawdb persists the execution record of transactions: per-block
// receipt lists, the txhash -> (block, index) lookup index, and the
// canonical number -> hash mapping the log-range query walks. All access
// goes through the narrow KVStore interface so the backing store is an
// embedder decision.
package rawdb

import "encoding/binary"

// Key prefixes for the database schema. Prefix-based keys keep the
// logical tables of one flat key-value namespace from colliding.
var (
	receiptsPrefix  = []byte("Receipts:")      // + block hash -> receipts RLP
	txHashPrefix    = []byte("TxHash:")        // + tx hash -> RLP([block hash, tx index])
	blockTxsPrefix  = []byte("BlockTxs:")      // + num (8 bytes BE) -> RLP([tx hash...])
	canonicalPrefix = []byte("CanonicalHash:") // + num (8 bytes BE) -> block hash
	chainHeadKey    = []byte("ChainHead")      // -> num (8 bytes BE)
)

// encodeBlockNumber encodes a block number as an 8-byte big-endian value.
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// receiptsKey = receiptsPrefix + blockHash
func receiptsKey(hash [32]byte) []byte {
	return append(append([]byte{}, receiptsPrefix...), hash[:]...)
}

// txHashKey = txHashPrefix + txHash
func txHashKey(hash [32]byte) []byte {
	return append(append([]byte{}, txHashPrefix...), hash[:]...)
}

// blockTxsKey = blockTxsPrefix + num
func blockTxsKey(number uint64) []byte {
	return append(append([]byte{}, blockTxsPrefix...), encodeBlockNumber(number)...)
}

// canonicalKey = canonicalPrefix + num
func canonicalKey(number uint64) []byte {
	return append(append([]byte{}, canonicalPrefix...), encodeBlockNumber(number)...)
}
