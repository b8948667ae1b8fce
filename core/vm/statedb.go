package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
)

// StateDB is the execution environment interface the interpreter consults
// for all account/storage effects. It is defined in the vm package, not a
// state package, so the interpreter never imports a concrete state
// implementation.
type StateDB interface {
	// Account operations.
	CreateAccount(addr types.Address)
	GetBalance(addr types.Address) *uint256.Int
	AddBalance(addr types.Address, amount *uint256.Int)
	SubBalance(addr types.Address, amount *uint256.Int)
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	GetContractCode(addr types.Address) []byte
	PutContractCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash
	GetCodeSize(addr types.Address) int

	// Storage.
	GetContractStorage(addr types.Address, key types.Hash) types.Hash
	PutContractStorage(addr types.Address, key, value types.Hash)
	GetCommittedStorage(addr types.Address, key types.Hash) types.Hash

	// Transient storage (EIP-1153).
	GetTransientStorage(addr types.Address, key types.Hash) types.Hash
	PutTransientStorage(addr types.Address, key, value types.Hash)

	// Self-destruct.
	SelfDestruct(addr types.Address)
	HasSelfDestructed(addr types.Address) bool

	// Existence / emptiness (EIP-161 empty-account semantics).
	AccountExists(addr types.Address) bool
	AccountIsEmpty(addr types.Address) bool
	ModifyAccountFields(addr types.Address, fn func())
	TouchAccount(addr types.Address)
	CleanupTouchedAccounts()

	// Checkpoint / commit / revert.
	Checkpoint() int
	Commit(id int)
	Revert(id int)

	// Logs.
	AddLog(log *types.Log)

	// Refund counter (EIP-3529).
	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	// Block hash lookup.
	GetBlockHash(n uint64) types.Hash

	// EIP-2929 warm/cold access tracking.
	IsWarmedAddress(addr types.Address) bool
	AddWarmedAddress(addr types.Address)
	IsWarmedStorage(addr types.Address, key types.Hash) bool
	AddWarmedStorage(addr types.Address, key types.Hash)
}
