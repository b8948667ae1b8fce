package vm

import (
	"errors"
	"math/big"

	blst "github.com/supranational/blst/bindings/go"
)

// EIP-2537 BLS12-381 precompiles (addresses 0x0b - 0x11). Point inputs use
// the padded encoding: each 48-byte field element is left-padded to 64
// bytes, so a G1 point is 128 bytes and a G2 point is 256 bytes. The curve
// arithmetic is delegated to supranational/blst.

var (
	ErrBLS12InvalidInput = errors.New("bls12-381: invalid input length")
	ErrBLS12InvalidPoint = errors.New("bls12-381: invalid point encoding")
	ErrBLS12NotInGroup   = errors.New("bls12-381: point not in correct subgroup")
	ErrBLS12MapNotWired  = errors.New("bls12-381: map-to-curve operation not implemented")
)

// bls12Modulus is the BLS12-381 base field modulus p.
var bls12Modulus, _ = new(big.Int).SetString(
	"1a0111ea397fe69a4b1ba7b6434bacd764774b84f38512bf6730d2a0f6b0f6241eabfffeb153ffffb9feffffffffaaab", 16)

const (
	bls12G1AddGas       = 375
	bls12G1MulGas       = 12000
	bls12G2AddGas       = 600
	bls12G2MulGas       = 22500
	bls12PairingBase    = 37700
	bls12PairingPerPair = 32600
	bls12MapG1Gas       = 5500
	bls12MapG2Gas       = 23800

	bls12G1PointSize = 128
	bls12G2PointSize = 256
	bls12ScalarSize  = 32
	bls12FpSize      = 64
)

// msmDiscount is the EIP-2537 multi-scalar-multiplication discount, in
// parts per thousand, indexed by min(k, len)-1. Larger batches amortize
// better; the table bottoms out at its last entry.
var msmDiscount = []uint64{
	1000, 949, 909, 879, 855, 835, 818, 804,
	792, 782, 773, 765, 759, 753, 749, 745,
	741, 738, 736, 734, 732, 731, 729, 728,
	727, 726, 725, 724, 723, 722, 721, 720,
}

func msmGas(k uint64, mulGas uint64) uint64 {
	if k == 0 {
		return 0
	}
	idx := k
	if idx > uint64(len(msmDiscount)) {
		idx = uint64(len(msmDiscount))
	}
	return k * mulGas * msmDiscount[idx-1] / 1000
}

// decodeBLSFp validates a 64-byte padded field element: the top 16 bytes
// must be zero and the value must be below the field modulus. It returns
// the 48-byte canonical encoding.
func decodeBLSFp(in []byte) ([]byte, error) {
	if len(in) != bls12FpSize {
		return nil, ErrBLS12InvalidInput
	}
	for _, b := range in[:16] {
		if b != 0 {
			return nil, ErrBLS12InvalidPoint
		}
	}
	if new(big.Int).SetBytes(in[16:]).Cmp(bls12Modulus) >= 0 {
		return nil, ErrBLS12InvalidPoint
	}
	return in[16:], nil
}

// decodeG1 converts a 128-byte padded G1 point into a blst affine point.
// The all-zero encoding is the point at infinity, returned as nil.
func decodeG1(in []byte) (*blst.P1Affine, error) {
	if len(in) != bls12G1PointSize {
		return nil, ErrBLS12InvalidInput
	}
	x, err := decodeBLSFp(in[:bls12FpSize])
	if err != nil {
		return nil, err
	}
	y, err := decodeBLSFp(in[bls12FpSize:])
	if err != nil {
		return nil, err
	}
	if isZeroBytes(in) {
		return nil, nil
	}
	raw := make([]byte, 96)
	copy(raw[:48], x)
	copy(raw[48:], y)
	p := new(blst.P1Affine).Deserialize(raw)
	if p == nil {
		return nil, ErrBLS12InvalidPoint
	}
	return p, nil
}

// decodeG2 converts a 256-byte padded G2 point into a blst affine point,
// nil for the point at infinity. EIP-2537 orders each Fp2 element as
// (c0, c1); blst's serialized form wants (c1, c0).
func decodeG2(in []byte) (*blst.P2Affine, error) {
	if len(in) != bls12G2PointSize {
		return nil, ErrBLS12InvalidInput
	}
	var coords [4][]byte
	for i := 0; i < 4; i++ {
		c, err := decodeBLSFp(in[i*bls12FpSize : (i+1)*bls12FpSize])
		if err != nil {
			return nil, err
		}
		coords[i] = c
	}
	if isZeroBytes(in) {
		return nil, nil
	}
	raw := make([]byte, 192)
	copy(raw[0:48], coords[1])    // x.c1
	copy(raw[48:96], coords[0])   // x.c0
	copy(raw[96:144], coords[3])  // y.c1
	copy(raw[144:192], coords[2]) // y.c0
	p := new(blst.P2Affine).Deserialize(raw)
	if p == nil {
		return nil, ErrBLS12InvalidPoint
	}
	return p, nil
}

// encodeG1 produces the 128-byte padded encoding; nil encodes infinity.
func encodeG1(p *blst.P1Affine) []byte {
	out := make([]byte, bls12G1PointSize)
	if p == nil {
		return out
	}
	raw := p.Serialize()
	copy(out[16:64], raw[:48])
	copy(out[80:128], raw[48:])
	return out
}

func encodeG2(p *blst.P2Affine) []byte {
	out := make([]byte, bls12G2PointSize)
	if p == nil {
		return out
	}
	raw := p.Serialize()
	copy(out[16:64], raw[48:96])    // x.c0
	copy(out[80:128], raw[:48])     // x.c1
	copy(out[144:192], raw[144:])   // y.c0
	copy(out[208:256], raw[96:144]) // y.c1
	return out
}

func isZeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// --- bls12G1Add (address 0x0b) ---

type bls12G1Add struct{}

func (c *bls12G1Add) RequiredGas(input []byte) uint64 { return bls12G1AddGas }

func (c *bls12G1Add) Run(input []byte) ([]byte, error) {
	if len(input) != 2*bls12G1PointSize {
		return nil, ErrBLS12InvalidInput
	}
	a, err := decodeG1(input[:bls12G1PointSize])
	if err != nil {
		return nil, err
	}
	b, err := decodeG1(input[bls12G1PointSize:])
	if err != nil {
		return nil, err
	}
	// Addition does not require a subgroup check per EIP-2537.
	switch {
	case a == nil && b == nil:
		return encodeG1(nil), nil
	case a == nil:
		return encodeG1(b), nil
	case b == nil:
		return encodeG1(a), nil
	}
	agg := new(blst.P1Aggregate)
	if !agg.Aggregate([]*blst.P1Affine{a, b}, false) {
		return nil, ErrBLS12InvalidPoint
	}
	return encodeG1(agg.ToAffine()), nil
}

// --- bls12G1MSM (address 0x0c) ---

type bls12G1MSM struct{}

func (c *bls12G1MSM) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / (bls12G1PointSize + bls12ScalarSize)
	return msmGas(k, bls12G1MulGas)
}

func (c *bls12G1MSM) Run(input []byte) ([]byte, error) {
	const pairSize = bls12G1PointSize + bls12ScalarSize
	if len(input) == 0 || len(input)%pairSize != 0 {
		return nil, ErrBLS12InvalidInput
	}
	k := len(input) / pairSize
	points := make([]*blst.P1Affine, 0, k)
	scalars := make([][]byte, 0, k)
	for i := 0; i < k; i++ {
		chunk := input[i*pairSize : (i+1)*pairSize]
		p, err := decodeG1(chunk[:bls12G1PointSize])
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if !p.InG1() {
			return nil, ErrBLS12NotInGroup
		}
		points = append(points, p)
		scalars = append(scalars, chunk[bls12G1PointSize:])
	}
	if len(points) == 0 {
		return encodeG1(nil), nil
	}
	acc := blst.P1AffinesMult(points, scalars, 8*bls12ScalarSize)
	return encodeG1(acc.ToAffine()), nil
}

// --- bls12G2Add (address 0x0d) ---

type bls12G2Add struct{}

func (c *bls12G2Add) RequiredGas(input []byte) uint64 { return bls12G2AddGas }

func (c *bls12G2Add) Run(input []byte) ([]byte, error) {
	if len(input) != 2*bls12G2PointSize {
		return nil, ErrBLS12InvalidInput
	}
	a, err := decodeG2(input[:bls12G2PointSize])
	if err != nil {
		return nil, err
	}
	b, err := decodeG2(input[bls12G2PointSize:])
	if err != nil {
		return nil, err
	}
	switch {
	case a == nil && b == nil:
		return encodeG2(nil), nil
	case a == nil:
		return encodeG2(b), nil
	case b == nil:
		return encodeG2(a), nil
	}
	agg := new(blst.P2Aggregate)
	if !agg.Aggregate([]*blst.P2Affine{a, b}, false) {
		return nil, ErrBLS12InvalidPoint
	}
	return encodeG2(agg.ToAffine()), nil
}

// --- bls12G2MSM (address 0x0e) ---

type bls12G2MSM struct{}

func (c *bls12G2MSM) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / (bls12G2PointSize + bls12ScalarSize)
	return msmGas(k, bls12G2MulGas)
}

func (c *bls12G2MSM) Run(input []byte) ([]byte, error) {
	const pairSize = bls12G2PointSize + bls12ScalarSize
	if len(input) == 0 || len(input)%pairSize != 0 {
		return nil, ErrBLS12InvalidInput
	}
	k := len(input) / pairSize
	points := make([]*blst.P2Affine, 0, k)
	scalars := make([][]byte, 0, k)
	for i := 0; i < k; i++ {
		chunk := input[i*pairSize : (i+1)*pairSize]
		p, err := decodeG2(chunk[:bls12G2PointSize])
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if !p.InG2() {
			return nil, ErrBLS12NotInGroup
		}
		points = append(points, p)
		scalars = append(scalars, chunk[bls12G2PointSize:])
	}
	if len(points) == 0 {
		return encodeG2(nil), nil
	}
	acc := blst.P2AffinesMult(points, scalars, 8*bls12ScalarSize)
	return encodeG2(acc.ToAffine()), nil
}

// --- bls12Pairing (address 0x0f) ---

type bls12Pairing struct{}

func (c *bls12Pairing) RequiredGas(input []byte) uint64 {
	k := uint64(len(input)) / (bls12G1PointSize + bls12G2PointSize)
	return bls12PairingBase + k*bls12PairingPerPair
}

func (c *bls12Pairing) Run(input []byte) ([]byte, error) {
	const pairSize = bls12G1PointSize + bls12G2PointSize
	if len(input) == 0 || len(input)%pairSize != 0 {
		return nil, ErrBLS12InvalidInput
	}
	k := len(input) / pairSize

	acc := blst.Fp12One()
	for i := 0; i < k; i++ {
		chunk := input[i*pairSize : (i+1)*pairSize]
		g1, err := decodeG1(chunk[:bls12G1PointSize])
		if err != nil {
			return nil, err
		}
		g2, err := decodeG2(chunk[bls12G1PointSize:])
		if err != nil {
			return nil, err
		}
		// Pairing inputs require full subgroup membership.
		if g1 != nil && !g1.InG1() {
			return nil, ErrBLS12NotInGroup
		}
		if g2 != nil && !g2.InG2() {
			return nil, ErrBLS12NotInGroup
		}
		if g1 == nil || g2 == nil {
			continue
		}
		acc.MulAssign(blst.Fp12MillerLoop(g2, g1))
	}
	acc.FinalExp()

	one := blst.Fp12One()
	out := make([]byte, 32)
	if acc.Equals(&one) {
		out[31] = 1
	}
	return out, nil
}

// --- bls12MapFpToG1 (0x10) / bls12MapFp2ToG2 (0x11) ---
//
// The SSWU map over a raw field element is not exposed by the blst Go
// bindings (they only surface full hash-to-curve). Inputs are validated;
// the map itself is unwired.

type bls12MapFpToG1 struct{}

func (c *bls12MapFpToG1) RequiredGas(input []byte) uint64 { return bls12MapG1Gas }

func (c *bls12MapFpToG1) Run(input []byte) ([]byte, error) {
	if _, err := decodeBLSFp(input); err != nil {
		return nil, err
	}
	return nil, ErrBLS12MapNotWired
}

type bls12MapFp2ToG2 struct{}

func (c *bls12MapFp2ToG2) RequiredGas(input []byte) uint64 { return bls12MapG2Gas }

func (c *bls12MapFp2ToG2) Run(input []byte) ([]byte, error) {
	if len(input) != 2*bls12FpSize {
		return nil, ErrBLS12InvalidInput
	}
	if _, err := decodeBLSFp(input[:bls12FpSize]); err != nil {
		return nil, err
	}
	if _, err := decodeBLSFp(input[bls12FpSize:]); err != nil {
		return nil, err
	}
	return nil, ErrBLS12MapNotWired
}
