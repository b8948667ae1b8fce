package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
	"github.com/ethforge/evmcore/crypto"
)

// storageKey identifies one storage slot of one account.
type storageKey struct {
	addr types.Address
	key  types.Hash
}

type account struct {
	balance        uint256.Int
	nonce          uint64
	code           []byte
	storage        map[types.Hash]types.Hash
	selfDestructed bool
	touched        bool
}

func (a *account) copy() *account {
	c := &account{
		balance:        a.balance,
		nonce:          a.nonce,
		selfDestructed: a.selfDestructed,
		touched:        a.touched,
		storage:        make(map[types.Hash]types.Hash, len(a.storage)),
	}
	c.code = append([]byte(nil), a.code...)
	for k, v := range a.storage {
		c.storage[k] = v
	}
	return c
}

// MemoryStateDB is the in-memory reference implementation of StateDB,
// used by the test suite and embedders that do not need durable state.
// Checkpoints are whole-state snapshots: cheap enough for a reference
// implementation, trivially correct under nested revert.
type MemoryStateDB struct {
	accounts    map[types.Address]*account
	transient   map[storageKey]types.Hash
	committed   map[storageKey]types.Hash
	logs        []*types.Log
	refund      uint64
	warmAddrs   map[types.Address]bool
	warmSlots   map[storageKey]bool
	blockHashes map[uint64]types.Hash

	snapshots []*memorySnapshot
}

type memorySnapshot struct {
	accounts  map[types.Address]*account
	transient map[storageKey]types.Hash
	logCount  int
	refund    uint64
	warmAddrs map[types.Address]bool
	warmSlots map[storageKey]bool
}

// NewMemoryStateDB returns an empty state.
func NewMemoryStateDB() *MemoryStateDB {
	return &MemoryStateDB{
		accounts:    make(map[types.Address]*account),
		transient:   make(map[storageKey]types.Hash),
		committed:   make(map[storageKey]types.Hash),
		warmAddrs:   make(map[types.Address]bool),
		warmSlots:   make(map[storageKey]bool),
		blockHashes: make(map[uint64]types.Hash),
	}
}

func (s *MemoryStateDB) getAccount(addr types.Address) *account {
	if a, ok := s.accounts[addr]; ok {
		return a
	}
	a := &account{storage: make(map[types.Hash]types.Hash)}
	s.accounts[addr] = a
	return a
}

func (s *MemoryStateDB) CreateAccount(addr types.Address) {
	s.accounts[addr] = &account{storage: make(map[types.Hash]types.Hash)}
}

func (s *MemoryStateDB) GetBalance(addr types.Address) *uint256.Int {
	if a, ok := s.accounts[addr]; ok {
		b := a.balance
		return &b
	}
	return uint256.NewInt(0)
}

func (s *MemoryStateDB) AddBalance(addr types.Address, amount *uint256.Int) {
	a := s.getAccount(addr)
	a.balance.Add(&a.balance, amount)
	a.touched = true
}

func (s *MemoryStateDB) SubBalance(addr types.Address, amount *uint256.Int) {
	a := s.getAccount(addr)
	a.balance.Sub(&a.balance, amount)
	a.touched = true
}

func (s *MemoryStateDB) GetNonce(addr types.Address) uint64 {
	if a, ok := s.accounts[addr]; ok {
		return a.nonce
	}
	return 0
}

func (s *MemoryStateDB) SetNonce(addr types.Address, nonce uint64) {
	s.getAccount(addr).nonce = nonce
}

func (s *MemoryStateDB) GetContractCode(addr types.Address) []byte {
	if a, ok := s.accounts[addr]; ok {
		return a.code
	}
	return nil
}

func (s *MemoryStateDB) PutContractCode(addr types.Address, code []byte) {
	s.getAccount(addr).code = append([]byte(nil), code...)
}

func (s *MemoryStateDB) GetCodeHash(addr types.Address) types.Hash {
	a, ok := s.accounts[addr]
	if !ok {
		return types.Hash{}
	}
	return crypto.Keccak256Hash(a.code)
}

func (s *MemoryStateDB) GetCodeSize(addr types.Address) int {
	if a, ok := s.accounts[addr]; ok {
		return len(a.code)
	}
	return 0
}

func (s *MemoryStateDB) GetContractStorage(addr types.Address, key types.Hash) types.Hash {
	if a, ok := s.accounts[addr]; ok {
		return a.storage[key]
	}
	return types.Hash{}
}

func (s *MemoryStateDB) PutContractStorage(addr types.Address, key, value types.Hash) {
	s.getAccount(addr).storage[key] = value
}

// GetCommittedStorage returns the slot value as of the start of the
// current transaction. SeedStorage is the only writer of the committed
// view; execution writes only the dirty copy.
func (s *MemoryStateDB) GetCommittedStorage(addr types.Address, key types.Hash) types.Hash {
	return s.committed[storageKey{addr, key}]
}

// SeedStorage installs a slot value in both the committed and live views,
// as if it had been persisted by a prior transaction.
func (s *MemoryStateDB) SeedStorage(addr types.Address, key, value types.Hash) {
	s.committed[storageKey{addr, key}] = value
	s.getAccount(addr).storage[key] = value
}

func (s *MemoryStateDB) GetTransientStorage(addr types.Address, key types.Hash) types.Hash {
	return s.transient[storageKey{addr, key}]
}

func (s *MemoryStateDB) PutTransientStorage(addr types.Address, key, value types.Hash) {
	s.transient[storageKey{addr, key}] = value
}

func (s *MemoryStateDB) SelfDestruct(addr types.Address) {
	a := s.getAccount(addr)
	a.selfDestructed = true
	a.balance.Clear()
}

func (s *MemoryStateDB) HasSelfDestructed(addr types.Address) bool {
	if a, ok := s.accounts[addr]; ok {
		return a.selfDestructed
	}
	return false
}

func (s *MemoryStateDB) AccountExists(addr types.Address) bool {
	_, ok := s.accounts[addr]
	return ok
}

func (s *MemoryStateDB) AccountIsEmpty(addr types.Address) bool {
	a, ok := s.accounts[addr]
	if !ok {
		return true
	}
	return a.nonce == 0 && a.balance.IsZero() && len(a.code) == 0
}

func (s *MemoryStateDB) ModifyAccountFields(addr types.Address, fn func()) {
	s.getAccount(addr).touched = true
	fn()
}

func (s *MemoryStateDB) TouchAccount(addr types.Address) {
	s.getAccount(addr).touched = true
}

// CleanupTouchedAccounts deletes empty accounts that were touched during
// execution (EIP-161 state clearing).
func (s *MemoryStateDB) CleanupTouchedAccounts() {
	for addr, a := range s.accounts {
		if a.touched && s.AccountIsEmpty(addr) {
			delete(s.accounts, addr)
		}
	}
}

func (s *MemoryStateDB) Checkpoint() int {
	snap := &memorySnapshot{
		accounts:  make(map[types.Address]*account, len(s.accounts)),
		transient: make(map[storageKey]types.Hash, len(s.transient)),
		logCount:  len(s.logs),
		refund:    s.refund,
		warmAddrs: make(map[types.Address]bool, len(s.warmAddrs)),
		warmSlots: make(map[storageKey]bool, len(s.warmSlots)),
	}
	for addr, a := range s.accounts {
		snap.accounts[addr] = a.copy()
	}
	for k, v := range s.transient {
		snap.transient[k] = v
	}
	for k := range s.warmAddrs {
		snap.warmAddrs[k] = true
	}
	for k := range s.warmSlots {
		snap.warmSlots[k] = true
	}
	s.snapshots = append(s.snapshots, snap)
	return len(s.snapshots) - 1
}

// Commit discards snapshot id and everything above it, keeping the
// current state.
func (s *MemoryStateDB) Commit(id int) {
	if id < len(s.snapshots) {
		s.snapshots = s.snapshots[:id]
	}
}

// Revert restores the state captured by snapshot id and discards it and
// everything above it.
func (s *MemoryStateDB) Revert(id int) {
	if id >= len(s.snapshots) {
		return
	}
	snap := s.snapshots[id]
	s.accounts = snap.accounts
	s.transient = snap.transient
	s.logs = s.logs[:snap.logCount]
	s.refund = snap.refund
	s.warmAddrs = snap.warmAddrs
	s.warmSlots = snap.warmSlots
	s.snapshots = s.snapshots[:id]
}

func (s *MemoryStateDB) AddLog(log *types.Log) {
	s.logs = append(s.logs, log)
}

// Logs returns the logs accumulated by committed execution so far.
func (s *MemoryStateDB) Logs() []*types.Log { return s.logs }

func (s *MemoryStateDB) AddRefund(gas uint64) { s.refund += gas }

func (s *MemoryStateDB) SubRefund(gas uint64) {
	if gas > s.refund {
		s.refund = 0
		return
	}
	s.refund -= gas
}

func (s *MemoryStateDB) GetRefund() uint64 { return s.refund }

func (s *MemoryStateDB) GetBlockHash(n uint64) types.Hash {
	return s.blockHashes[n]
}

// SetBlockHash seeds the BLOCKHASH lookup table.
func (s *MemoryStateDB) SetBlockHash(n uint64, h types.Hash) {
	s.blockHashes[n] = h
}

func (s *MemoryStateDB) IsWarmedAddress(addr types.Address) bool {
	return s.warmAddrs[addr]
}

func (s *MemoryStateDB) AddWarmedAddress(addr types.Address) {
	s.warmAddrs[addr] = true
}

func (s *MemoryStateDB) IsWarmedStorage(addr types.Address, key types.Hash) bool {
	return s.warmSlots[storageKey{addr, key}]
}

func (s *MemoryStateDB) AddWarmedStorage(addr types.Address, key types.Hash) {
	s.warmSlots[storageKey{addr, key}] = true
}
