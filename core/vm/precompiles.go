package vm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"

	"golang.org/x/crypto/ripemd160"

	"github.com/ethforge/evmcore/core/types"
	"github.com/ethforge/evmcore/crypto"
)

// PrecompiledContract is a native contract at a fixed low address. The
// cost model is declared by RequiredGas; the caller checks the budget and
// converts a shortfall to out-of-gas before Run is invoked.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

var ErrBN254NotImplemented = errors.New("bn254 precompile: cryptographic operation not implemented")

// Per-fork default precompile sets. Later forks extend earlier ones;
// maps are built once and treated as immutable.
var (
	precompiledHomestead = map[types.Address]PrecompiledContract{
		types.BytesToAddress([]byte{1}): &ecrecover{},
		types.BytesToAddress([]byte{2}): &sha256hash{},
		types.BytesToAddress([]byte{3}): &ripemd160hash{},
		types.BytesToAddress([]byte{4}): &dataCopy{},
	}
	precompiledByzantium = mergePrecompiles(precompiledHomestead, map[types.Address]PrecompiledContract{
		types.BytesToAddress([]byte{5}): &bigModExp{},
		types.BytesToAddress([]byte{6}): &bn256Add{},
		types.BytesToAddress([]byte{7}): &bn256ScalarMul{},
		types.BytesToAddress([]byte{8}): &bn256Pairing{},
	})
	precompiledIstanbul = mergePrecompiles(precompiledByzantium, map[types.Address]PrecompiledContract{
		types.BytesToAddress([]byte{9}): &blake2F{},
	})
	precompiledPrague = mergePrecompiles(precompiledIstanbul, map[types.Address]PrecompiledContract{
		types.BytesToAddress([]byte{0x0b}): &bls12G1Add{},
		types.BytesToAddress([]byte{0x0c}): &bls12G1MSM{},
		types.BytesToAddress([]byte{0x0d}): &bls12G2Add{},
		types.BytesToAddress([]byte{0x0e}): &bls12G2MSM{},
		types.BytesToAddress([]byte{0x0f}): &bls12Pairing{},
		types.BytesToAddress([]byte{0x10}): &bls12MapFpToG1{},
		types.BytesToAddress([]byte{0x11}): &bls12MapFp2ToG2{},
	})
)

func mergePrecompiles(base, extra map[types.Address]PrecompiledContract) map[types.Address]PrecompiledContract {
	out := make(map[types.Address]PrecompiledContract, len(base)+len(extra))
	for a, p := range base {
		out[a] = p
	}
	for a, p := range extra {
		out[a] = p
	}
	return out
}

// defaultPrecompiles returns the active precompile set for the rules'
// hardfork. An address outside the active set behaves as an empty-code
// contract, not a precompile.
func defaultPrecompiles(rules ChainRules) map[types.Address]PrecompiledContract {
	switch {
	case rules.IsPrague():
		return precompiledPrague
	case rules.IsIstanbul():
		return precompiledIstanbul
	case rules.IsByzantium():
		return precompiledByzantium
	default:
		return precompiledHomestead
	}
}

// --- ecrecover (address 0x01) ---

type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 { return 3000 }

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	input = padRight(input, 128)

	hash := input[0:32]
	v := new(big.Int).SetBytes(input[32:64])
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])

	// Invalid signatures return empty output, not an error: the call
	// itself succeeds and the contract sees zero-length return data.
	if v.BitLen() > 8 {
		return nil, nil
	}
	vByte := byte(v.Uint64())
	if vByte != 27 && vByte != 28 {
		return nil, nil
	}
	if r.Sign() == 0 || s.Sign() == 0 || r.BitLen() > 256 || s.BitLen() > 256 {
		return nil, nil
	}

	sig := make([]byte, 65)
	rBytes := r.Bytes()
	sBytes := s.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = vByte - 27

	pub, err := crypto.Ecrecover(hash, sig)
	if err != nil {
		return nil, nil
	}

	addr := crypto.Keccak256(pub)
	result := make([]byte, 32)
	copy(result[12:], addr[12:])
	return result, nil
}

// --- sha256hash (address 0x02) ---

type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return 60 + 12*wordCount(len(input))
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// --- ripemd160hash (address 0x03) ---

type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return 600 + 120*wordCount(len(input))
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	digest := h.Sum(nil)

	result := make([]byte, 32)
	copy(result[12:], digest)
	return result, nil
}

// --- dataCopy (address 0x04) ---

type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 {
	return 15 + 3*wordCount(len(input))
}

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// --- bigModExp (address 0x05), EIP-198 with EIP-2565 pricing ---

type bigModExp struct{}

func (c *bigModExp) RequiredGas(input []byte) uint64 {
	input = padRight(input, 96)

	baseLen := new(big.Int).SetBytes(input[0:32]).Uint64()
	expLen := new(big.Int).SetBytes(input[32:64]).Uint64()
	modLen := new(big.Int).SetBytes(input[64:96]).Uint64()

	adjExpLen := adjustedExpLen(expLen, baseLen, input[96:])

	maxLen := baseLen
	if modLen > maxLen {
		maxLen = modLen
	}
	words := (maxLen + 7) / 8
	multComplexity := words * words

	gas := multComplexity * maxUint64(adjExpLen, 1) / 3
	if gas < 200 {
		gas = 200
	}
	return gas
}

func (c *bigModExp) Run(input []byte) ([]byte, error) {
	input = padRight(input, 96)

	baseLen := new(big.Int).SetBytes(input[0:32])
	expLen := new(big.Int).SetBytes(input[32:64])
	modLen := new(big.Int).SetBytes(input[64:96])

	if baseLen.BitLen() > 32 || expLen.BitLen() > 32 || modLen.BitLen() > 32 {
		return nil, errors.New("modexp: length overflow")
	}
	bLen := baseLen.Uint64()
	eLen := expLen.Uint64()
	mLen := modLen.Uint64()

	data := input[96:]
	base := getDataSlice(data, 0, bLen)
	exp := getDataSlice(data, bLen, eLen)
	mod := getDataSlice(data, bLen+eLen, mLen)

	modVal := new(big.Int).SetBytes(mod)
	if modVal.Sign() == 0 {
		return make([]byte, mLen), nil
	}

	result := new(big.Int).Exp(new(big.Int).SetBytes(base), new(big.Int).SetBytes(exp), modVal)

	out := result.Bytes()
	if uint64(len(out)) < mLen {
		padded := make([]byte, mLen)
		copy(padded[mLen-uint64(len(out)):], out)
		return padded, nil
	}
	return out[:mLen], nil
}

// --- bn256Add (address 0x06), bn256ScalarMul (0x07), bn256Pairing (0x08) ---
//
// BN254 (alt_bn128) curve operations. Gas follows EIP-1108; the curve
// arithmetic itself requires a dedicated pairing library and is not wired.

type bn256Add struct{}

func (c *bn256Add) RequiredGas(input []byte) uint64 { return 150 }

func (c *bn256Add) Run(input []byte) ([]byte, error) {
	return nil, ErrBN254NotImplemented
}

type bn256ScalarMul struct{}

func (c *bn256ScalarMul) RequiredGas(input []byte) uint64 { return 6000 }

func (c *bn256ScalarMul) Run(input []byte) ([]byte, error) {
	return nil, ErrBN254NotImplemented
}

type bn256Pairing struct{}

func (c *bn256Pairing) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / 192
	return 45000 + 34000*k
}

func (c *bn256Pairing) Run(input []byte) ([]byte, error) {
	if len(input)%192 != 0 {
		return nil, errors.New("bn256 pairing: invalid input length")
	}
	return nil, ErrBN254NotImplemented
}

// --- blake2F (address 0x09), EIP-152 ---

type blake2F struct{}

func (c *blake2F) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[:4]))
}

func (c *blake2F) Run(input []byte) ([]byte, error) {
	// Input layout: rounds(4) | h(64) | m(128) | t0(8) | t1(8) | f(1).
	if len(input) != 213 {
		return nil, errors.New("blake2f: invalid input length (expected 213 bytes)")
	}

	rounds := binary.BigEndian.Uint32(input[:4])
	finalByte := input[212]
	if finalByte != 0 && finalByte != 1 {
		return nil, errors.New("blake2f: invalid final block indicator")
	}
	final := finalByte == 1

	var h [8]uint64
	for i := 0; i < 8; i++ {
		h[i] = binary.LittleEndian.Uint64(input[4+i*8 : 4+(i+1)*8])
	}
	var m [16]uint64
	for i := 0; i < 16; i++ {
		m[i] = binary.LittleEndian.Uint64(input[68+i*8 : 68+(i+1)*8])
	}
	t0 := binary.LittleEndian.Uint64(input[196:204])
	t1 := binary.LittleEndian.Uint64(input[204:212])

	blake2bF(&h, m, [2]uint64{t0, t1}, final, rounds)

	result := make([]byte, 64)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint64(result[i*8:(i+1)*8], h[i])
	}
	return result, nil
}

// blake2bF is the BLAKE2b compression function F, applied in place to h
// for the requested number of rounds.
func blake2bF(h *[8]uint64, m [16]uint64, t [2]uint64, final bool, rounds uint32) {
	var iv = [8]uint64{
		0x6a09e667f3bcc908, 0xbb67ae8584caa73b,
		0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
		0x510e527fade682d1, 0x9b05688c2b3e6c1f,
		0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
	}
	var sigma = [10][16]byte{
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
		{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
		{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
		{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
		{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
		{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
		{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
		{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
		{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
	}

	var v [16]uint64
	copy(v[:8], h[:])
	copy(v[8:], iv[:])
	v[12] ^= t[0]
	v[13] ^= t[1]
	if final {
		v[14] = ^v[14]
	}

	g := func(a, b, c, d int, x, y uint64) {
		v[a] = v[a] + v[b] + x
		v[d] = rotr64(v[d]^v[a], 32)
		v[c] = v[c] + v[d]
		v[b] = rotr64(v[b]^v[c], 24)
		v[a] = v[a] + v[b] + y
		v[d] = rotr64(v[d]^v[a], 16)
		v[c] = v[c] + v[d]
		v[b] = rotr64(v[b]^v[c], 63)
	}

	for i := uint32(0); i < rounds; i++ {
		s := sigma[i%10]
		g(0, 4, 8, 12, m[s[0]], m[s[1]])
		g(1, 5, 9, 13, m[s[2]], m[s[3]])
		g(2, 6, 10, 14, m[s[4]], m[s[5]])
		g(3, 7, 11, 15, m[s[6]], m[s[7]])
		g(0, 5, 10, 15, m[s[8]], m[s[9]])
		g(1, 6, 11, 12, m[s[10]], m[s[11]])
		g(2, 7, 8, 13, m[s[12]], m[s[13]])
		g(3, 4, 9, 14, m[s[14]], m[s[15]])
	}

	for i := 0; i < 8; i++ {
		h[i] ^= v[i] ^ v[i+8]
	}
}

func rotr64(x uint64, k uint) uint64 {
	return (x >> k) | (x << (64 - k))
}

// --- helpers ---

// wordCount returns ceil(size / 32).
func wordCount(size int) uint64 {
	if size == 0 {
		return 0
	}
	return uint64((size + 31) / 32)
}

// padRight pads data with zeros on the right to reach at least minLen.
func padRight(data []byte, minLen int) []byte {
	if len(data) >= minLen {
		return data
	}
	padded := make([]byte, minLen)
	copy(padded, data)
	return padded
}

// getDataSlice extracts data[offset:offset+length], zero-padding past the end.
func getDataSlice(data []byte, offset, length uint64) []byte {
	if length == 0 {
		return nil
	}
	result := make([]byte, length)
	if offset >= uint64(len(data)) {
		return result
	}
	end := offset + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(result, data[offset:end])
	return result
}

func adjustedExpLen(expLen, baseLen uint64, data []byte) uint64 {
	if expLen <= 32 {
		exp := new(big.Int).SetBytes(getDataSlice(data, baseLen, expLen))
		if exp.Sign() == 0 {
			return 0
		}
		return uint64(exp.BitLen() - 1)
	}
	firstExp := new(big.Int).SetBytes(getDataSlice(data, baseLen, 32))
	adj := uint64(0)
	if firstExp.Sign() > 0 {
		adj = uint64(firstExp.BitLen() - 1)
	}
	return adj + 8*(expLen-32)
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
