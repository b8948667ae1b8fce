// Package crypto provides the hashing and signature primitives the
// execution core needs: Keccak256 (used throughout the interpreter and for
// CREATE2 address derivation) and ECDSA recovery (the ECRECOVER precompile).
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/ethforge/evmcore/core/types"
)

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash returns Keccak256 as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}

// CreateAddress derives the address of a contract created via CREATE:
// keccak256(rlp([sender, nonce]))[12:].
func CreateAddress(sender types.Address, nonce uint64) types.Address {
	nonceBytes := encodeNonce(nonce)
	payload := rlpList(rlpBytes(sender.Bytes()), nonceBytes)
	return types.BytesToAddress(Keccak256(payload)[12:])
}

// CreateAddress2 derives the address of a contract created via CREATE2:
// keccak256(0xff ++ sender ++ salt ++ keccak256(initcode))[12:].
func CreateAddress2(sender types.Address, salt [32]byte, initcodeHash []byte) types.Address {
	data := make([]byte, 0, 1+20+32+32)
	data = append(data, 0xff)
	data = append(data, sender.Bytes()...)
	data = append(data, salt[:]...)
	data = append(data, initcodeHash...)
	return types.BytesToAddress(Keccak256(data)[12:])
}

// encodeNonce returns the minimal RLP string encoding of a nonce, matching
// the encoding convention used for CREATE address derivation.
func encodeNonce(n uint64) []byte {
	if n == 0 {
		return []byte{0x80}
	}
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	b := buf[i:]
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	return append([]byte{byte(0x80 + len(b))}, b...)
}

func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) <= 55 {
		return append([]byte{byte(0x80 + len(b))}, b...)
	}
	return append([]byte{0xb7 + byte(len(b))}, b...) // addresses never exceed 55 bytes
}

func rlpList(items ...[]byte) []byte {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	if len(payload) <= 55 {
		return append([]byte{byte(0xc0 + len(payload))}, payload...)
	}
	return append([]byte{0xf7 + byte(len(payload))}, payload...)
}
