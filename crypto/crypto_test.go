package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/ethforge/evmcore/core/types"
)

func TestKeccak256KnownVectors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"abc", "4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45"},
	}
	for _, tt := range tests {
		got := hex.EncodeToString(Keccak256([]byte(tt.in)))
		if got != tt.want {
			t.Errorf("Keccak256(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestKeccak256Concatenates(t *testing.T) {
	joined := Keccak256([]byte("ab"), []byte("c"))
	whole := Keccak256([]byte("abc"))
	if hex.EncodeToString(joined) != hex.EncodeToString(whole) {
		t.Error("multi-slice hash differs from concatenated hash")
	}
}

func TestCreateAddressDeterministic(t *testing.T) {
	sender := types.BytesToAddress([]byte{0xaa})
	a0 := CreateAddress(sender, 0)
	a0again := CreateAddress(sender, 0)
	a1 := CreateAddress(sender, 1)
	if a0 != a0again {
		t.Error("CreateAddress not deterministic")
	}
	if a0 == a1 {
		t.Error("nonce does not affect created address")
	}
}

func TestCreateAddress2MatchesFormula(t *testing.T) {
	sender := types.BytesToAddress([]byte{0xaa})
	var salt [32]byte
	salt[31] = 7
	initcode := []byte{0x60, 0x00}
	ih := Keccak256(initcode)

	got := CreateAddress2(sender, salt, ih)

	preimage := append([]byte{0xff}, sender.Bytes()...)
	preimage = append(preimage, salt[:]...)
	preimage = append(preimage, ih...)
	want := types.BytesToAddress(Keccak256(preimage)[12:])
	if got != want {
		t.Errorf("CreateAddress2 = %v, want %v", got, want)
	}
}

func TestEcrecoverRejectsMalformed(t *testing.T) {
	if _, err := Ecrecover(make([]byte, 31), make([]byte, 65)); err != ErrInvalidSignature {
		t.Errorf("short hash error = %v", err)
	}
	if _, err := Ecrecover(make([]byte, 32), make([]byte, 64)); err != ErrInvalidSignature {
		t.Errorf("short sig error = %v", err)
	}
	sig := make([]byte, 65)
	sig[64] = 2
	if _, err := Ecrecover(make([]byte, 32), sig); err != ErrInvalidSignature {
		t.Errorf("bad recovery id error = %v", err)
	}
}
