package crypto

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var ErrInvalidSignature = errors.New("crypto: invalid signature")

// Ecrecover recovers the 64-byte uncompressed public key (minus the 0x04
// prefix) from a 32-byte message hash and a 65-byte [R || S || V] signature,
// where V is 0 or 1. It backs the ECRECOVER precompile (address 0x01).
func Ecrecover(hash []byte, sig []byte) ([]byte, error) {
	if len(hash) != 32 || len(sig) != 65 {
		return nil, ErrInvalidSignature
	}
	v := sig[64]
	if v > 1 {
		return nil, ErrInvalidSignature
	}
	compact := make([]byte, 65)
	compact[0] = v + 27
	copy(compact[1:], sig[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return serializeUncompressedNoPrefix(pub), nil
}

func serializeUncompressedNoPrefix(pub *secp256k1.PublicKey) []byte {
	full := pub.SerializeUncompressed() // 0x04 || X || Y, 65 bytes
	out := make([]byte, 64)
	copy(out, full[1:])
	return out
}
