package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
)

// jumpTable is the full 256-entry dense table a ChainRules fork resolves
// to. It is built once per hardfork and never mutated afterward -- callers
// needing a different opcode set build an OpcodeTable overlay instead of
// touching these defaults (see OpcodeTable below). Each fork's table is
// produced by copying the prior fork's table and patching additions and
// repricings, rather than being built from scratch.
type jumpTable [256]*OpcodeDescriptor

// stackBounds returns the (minStack, maxStack) pair for an opcode that
// pops n items and pushes m: minStack=n (underflow guard), maxStack =
// StackLimit - m + n (overflow guard on the post-push length).
func stackBounds(pop, push int) (int, int) {
	return pop, StackLimit - push + pop
}

func newOp(code OpCode, fee uint64, pop, push int, gasFn GasFunc, logicFn LogicFunc) *OpcodeDescriptor {
	min, max := stackBounds(pop, push)
	return &OpcodeDescriptor{
		Code:     byte(code),
		Name:     code.String(),
		BaseFee:  fee,
		MinStack: min,
		MaxStack: max,
		GasFn:    gasFn,
		LogicFn:  logicFn,
	}
}

func constGas(fee uint64) GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 { return baseFee }
}

// memExpandGas charges baseFee plus the memory-expansion cost of covering
// [offset, offset+size), reading offset and size from the given stack
// depths (0 = top), and resizes memory to cover that range.
func memExpandGas(offsetIdx, sizeIdx int) GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		offset, err1 := rs.Stack.Back(offsetIdx)
		size, err2 := rs.Stack.Back(sizeIdx)
		if err1 != nil || err2 != nil || size.IsZero() {
			return baseFee
		}
		end, overflow := safeAdd(offset.Uint64(), size.Uint64())
		if overflow {
			return baseFee
		}
		cost := rs.Memory.MemoryExpansionCost(end)
		rs.Memory.Resize(end)
		return baseFee + cost
	}
}

func safeAdd(a, b uint64) (uint64, bool) {
	s := a + b
	return s, s < a
}

// newFrontierJumpTable builds the opcode set available from genesis.
func newFrontierJumpTable() *jumpTable {
	var t jumpTable
	set := func(op OpCode, fee uint64, pop, push int, gasFn GasFunc, logic LogicFunc) {
		t[op] = newOp(op, fee, pop, push, gasFn, logic)
	}

	set(STOP, GasStop, 0, 0, constGas(GasStop), opStop)
	set(ADD, GasFastestStep, 2, 1, constGas(GasFastestStep), opAdd)
	set(MUL, GasFastStep, 2, 1, constGas(GasFastStep), opMul)
	set(SUB, GasFastestStep, 2, 1, constGas(GasFastestStep), opSub)
	set(DIV, GasFastStep, 2, 1, constGas(GasFastStep), opDiv)
	set(SDIV, GasFastStep, 2, 1, constGas(GasFastStep), opSdiv)
	set(MOD, GasFastStep, 2, 1, constGas(GasFastStep), opMod)
	set(SMOD, GasFastStep, 2, 1, constGas(GasFastStep), opSmod)
	set(ADDMOD, GasMidStep, 3, 1, constGas(GasMidStep), opAddmod)
	set(MULMOD, GasMidStep, 3, 1, constGas(GasMidStep), opMulmod)
	set(EXP, GasSlowStep, 2, 1, gasExp, opExp)
	set(SIGNEXTEND, GasFastStep, 2, 1, constGas(GasFastStep), opSignExtend)

	set(LT, GasFastestStep, 2, 1, constGas(GasFastestStep), opLt)
	set(GT, GasFastestStep, 2, 1, constGas(GasFastestStep), opGt)
	set(SLT, GasFastestStep, 2, 1, constGas(GasFastestStep), opSlt)
	set(SGT, GasFastestStep, 2, 1, constGas(GasFastestStep), opSgt)
	set(EQ, GasFastestStep, 2, 1, constGas(GasFastestStep), opEq)
	set(ISZERO, GasFastestStep, 1, 1, constGas(GasFastestStep), opIsZero)
	set(AND, GasFastestStep, 2, 1, constGas(GasFastestStep), opAnd)
	set(OR, GasFastestStep, 2, 1, constGas(GasFastestStep), opOr)
	set(XOR, GasFastestStep, 2, 1, constGas(GasFastestStep), opXor)
	set(NOT, GasFastestStep, 1, 1, constGas(GasFastestStep), opNot)
	set(BYTE, GasFastestStep, 2, 1, constGas(GasFastestStep), opByte)

	set(KECCAK256, GasKeccak256, 2, 1, gasKeccak256, opKeccak256)

	set(ADDRESS, GasQuickStep, 0, 1, constGas(GasQuickStep), opAddress)
	set(BALANCE, GasBalanceCold, 1, 1, constGas(GasBalanceCold), opBalance)
	set(ORIGIN, GasQuickStep, 0, 1, constGas(GasQuickStep), opOrigin)
	set(CALLER, GasQuickStep, 0, 1, constGas(GasQuickStep), opCaller)
	set(CALLVALUE, GasQuickStep, 0, 1, constGas(GasQuickStep), opCallValue)
	set(CALLDATALOAD, GasFastestStep, 1, 1, constGas(GasFastestStep), opCalldataLoad)
	set(CALLDATASIZE, GasQuickStep, 0, 1, constGas(GasQuickStep), opCalldataSize)
	set(CALLDATACOPY, GasFastestStep, 3, 0, gasCopy(memExpandGas(0, 2), 2), opCalldataCopy)
	set(CODESIZE, GasQuickStep, 0, 1, constGas(GasQuickStep), opCodeSize)
	set(CODECOPY, GasFastestStep, 3, 0, gasCopy(memExpandGas(0, 2), 2), opCodeCopy)
	set(GASPRICE, GasQuickStep, 0, 1, constGas(GasQuickStep), opGasPrice)
	set(EXTCODESIZE, GasExtcodeCold, 1, 1, constGas(GasExtcodeCold), opExtcodesize)
	set(EXTCODECOPY, GasExtcodeCold, 4, 0, gasCopy(memExpandGas(1, 3), 3), opExtcodecopy)

	set(BLOCKHASH, GasExtStep, 1, 1, constGas(GasExtStep), opBlockhash)
	set(COINBASE, GasQuickStep, 0, 1, constGas(GasQuickStep), opCoinbase)
	set(TIMESTAMP, GasQuickStep, 0, 1, constGas(GasQuickStep), opTimestamp)
	set(NUMBER, GasQuickStep, 0, 1, constGas(GasQuickStep), opNumber)
	set(PREVRANDAO, GasQuickStep, 0, 1, constGas(GasQuickStep), opPrevRandao)
	set(GASLIMIT, GasQuickStep, 0, 1, constGas(GasQuickStep), opGasLimit)

	set(POP, GasPop, 1, 0, constGas(GasPop), opPop)
	set(MLOAD, GasFastestStep, 1, 1, gasMload(), opMload)
	set(MSTORE, GasFastestStep, 2, 0, gasMstore(), opMstore)
	set(MSTORE8, GasFastestStep, 2, 0, gasMstore8(), opMstore8)
	set(SLOAD, GasSloadCold, 1, 1, constGas(GasSloadCold), opSload)
	set(SSTORE, 0, 2, 0, gasSstoreFrontier, opSstore)
	set(JUMP, GasMidStep, 1, 0, constGas(GasMidStep), opJump)
	set(JUMPI, GasSlowStep, 2, 0, constGas(GasSlowStep), opJumpi)
	set(PC, GasQuickStep, 0, 1, constGas(GasQuickStep), opPc)
	set(MSIZE, GasQuickStep, 0, 1, constGas(GasQuickStep), opMsize)
	set(GAS, GasQuickStep, 0, 1, constGas(GasQuickStep), opGas)
	set(JUMPDEST, GasJumpDest, 0, 0, constGas(GasJumpDest), opJumpdest)

	for i := 1; i <= 32; i++ {
		op := PUSH1 + OpCode(i-1)
		set(op, GasPush, 0, 1, constGas(GasPush), makePush(i))
	}
	for i := 1; i <= 16; i++ {
		op := DUP1 + OpCode(i-1)
		set(op, GasDup, i, i+1, constGas(GasDup), makeDup(i))
	}
	for i := 1; i <= 16; i++ {
		op := SWAP1 + OpCode(i-1)
		set(op, GasSwap, i+1, i+1, constGas(GasSwap), makeSwap(i))
	}
	for i := 0; i <= 4; i++ {
		op := LOG0 + OpCode(i)
		set(op, GasLog, 2+i, 0, gasLog(i), makeLog(i))
	}

	set(CREATE, GasCreate, 3, 1, gasCreate, opCreate)
	set(CALL, GasCallCold, 7, 1, gasCall, opCall)
	set(CALLCODE, GasCallCold, 7, 1, gasCall, opCallCode)
	set(RETURN, GasReturn, 2, 0, memExpandGas(0, 1), opReturn)
	set(INVALID, 0, 0, 0, constGas(0), opInvalid)
	set(SELFDESTRUCT, GasSelfdestruct, 1, 0, gasSelfdestruct, opSelfdestruct)

	return &t
}

// cloneTable copies a fork's table so the next fork can patch it without
// mutating the predecessor (which may still be cached and shared).
func cloneTable(prev *jumpTable) *jumpTable {
	var t jumpTable
	t = *prev
	return &t
}

func newHomesteadJumpTable() *jumpTable {
	t := cloneTable(newFrontierJumpTable())
	t[DELEGATECALL] = newOp(DELEGATECALL, GasCallCold, 6, 1, gasCallNoValue, opDelegateCall)
	return t
}

func newTangerineWhistleJumpTable() *jumpTable {
	// EIP-150: repriced EXTCODESIZE/EXTCODECOPY/BALANCE/SLOAD/CALL-family;
	// handled by Berlin's cold/warm split below taking over the field, so
	// tangerine whistle keeps Homestead's fees as a named fork step.
	return cloneTable(newHomesteadJumpTable())
}

func newSpuriousDragonJumpTable() *jumpTable {
	// EIP-158/161 is a state-clearing rule (accountIsEmpty), not an opcode
	// change; EIP-160 reprices EXP (see gasExp's IsSpuriousDragon branch).
	return cloneTable(newTangerineWhistleJumpTable())
}

func newByzantiumJumpTable() *jumpTable {
	t := cloneTable(newSpuriousDragonJumpTable())
	t[REVERT] = newOp(REVERT, GasRevert, 2, 0, memExpandGas(0, 1), opRevert)
	t[RETURNDATASIZE] = newOp(RETURNDATASIZE, GasQuickStep, 0, 1, constGas(GasQuickStep), opReturndataSize)
	t[RETURNDATACOPY] = newOp(RETURNDATACOPY, GasFastestStep, 3, 0, gasCopy(memExpandGas(0, 2), 2), opReturndataCopy)
	t[STATICCALL] = newOp(STATICCALL, GasCallCold, 6, 1, gasCallNoValue, opStaticCall)
	return t
}

func newConstantinopleJumpTable() *jumpTable {
	t := cloneTable(newByzantiumJumpTable())
	t[CREATE2] = newOp(CREATE2, GasCreate, 4, 1, gasCreate2, opCreate2)
	t[SHL] = newOp(SHL, GasFastestStep, 2, 1, constGas(GasFastestStep), opShl)
	t[SHR] = newOp(SHR, GasFastestStep, 2, 1, constGas(GasFastestStep), opShr)
	t[SAR] = newOp(SAR, GasFastestStep, 2, 1, constGas(GasFastestStep), opSar)
	t[EXTCODEHASH] = newOp(EXTCODEHASH, GasExtcodeCold, 1, 1, constGas(GasExtcodeCold), opExtcodehash)
	return t
}

func newIstanbulJumpTable() *jumpTable {
	t := cloneTable(newConstantinopleJumpTable())
	t[CHAINID] = newOp(CHAINID, GasQuickStep, 0, 1, constGas(GasQuickStep), opChainID)
	t[SELFBALANCE] = newOp(SELFBALANCE, GasFastStep, 0, 1, constGas(GasFastStep), opSelfBalance)
	t[SLOAD] = newOp(SLOAD, GasSloadWarm*8, 1, 1, constGas(GasSloadWarm*8), opSload) // EIP-1884 repricing to 800
	return t
}

func newBerlinJumpTable() *jumpTable {
	// EIP-2929: SLOAD/BALANCE/EXTCODESIZE/EXTCODECOPY/EXTCODEHASH/CALL-family
	// gas splits into cold/warm; the flat fees above become the cold price
	// and warm accesses are repriced to GasWarmAccess inside each gas
	// function by consulting StateDB.IsWarmed*, see the EIP-2929 gas
	// functions further down in this file.
	t := cloneTable(newIstanbulJumpTable())
	t[SLOAD] = newOp(SLOAD, 0, 1, 1, gasSloadEIP2929, opSload)
	t[BALANCE] = newOp(BALANCE, 0, 1, 1, gasAccountAccessEIP2929(0), opBalance)
	t[EXTCODESIZE] = newOp(EXTCODESIZE, 0, 1, 1, gasAccountAccessEIP2929(0), opExtcodesize)
	t[EXTCODEHASH] = newOp(EXTCODEHASH, 0, 1, 1, gasAccountAccessEIP2929(0), opExtcodehash)
	t[EXTCODECOPY] = newOp(EXTCODECOPY, 0, 4, 0, gasExtcodecopyEIP2929, opExtcodecopy)
	t[CALL] = newOp(CALL, 0, 7, 1, gasCallEIP2929(1, 7), opCall)
	t[CALLCODE] = newOp(CALLCODE, 0, 7, 1, gasCallEIP2929(1, 7), opCallCode)
	t[DELEGATECALL] = newOp(DELEGATECALL, 0, 6, 1, gasCallEIP2929(1, 6), opDelegateCall)
	t[STATICCALL] = newOp(STATICCALL, 0, 6, 1, gasCallEIP2929(1, 6), opStaticCall)
	return t
}

func newLondonJumpTable() *jumpTable {
	t := cloneTable(newBerlinJumpTable())
	t[BASEFEE] = newOp(BASEFEE, GasQuickStep, 0, 1, constGas(GasQuickStep), opBaseFee)
	return t
}

func newMergeJumpTable() *jumpTable {
	// The Merge repoints PREVRANDAO's meaning (was DIFFICULTY) but not its
	// opcode or cost; no table change.
	return cloneTable(newLondonJumpTable())
}

func newShanghaiJumpTable() *jumpTable {
	t := cloneTable(newMergeJumpTable())
	t[PUSH0] = newOp(PUSH0, GasPush0, 0, 1, constGas(GasPush0), opPush0)
	return t
}

func newCancunJumpTable() *jumpTable {
	t := cloneTable(newShanghaiJumpTable())
	t[TLOAD] = newOp(TLOAD, GasWarmAccess, 1, 1, constGas(GasWarmAccess), opTload)
	t[TSTORE] = newOp(TSTORE, GasWarmAccess, 2, 0, constGas(GasWarmAccess), opTstore)
	t[MCOPY] = newOp(MCOPY, GasFastestStep, 3, 0, gasMcopy, opMcopy)
	return t
}

func newPragueJumpTable() *jumpTable {
	return cloneTable(newCancunJumpTable())
}

// defaultTableCache memoizes the per-hardfork table so repeated EVM
// construction doesn't rebuild it; all entries are immutable once built.
var defaultTableCache = map[Hardfork]*jumpTable{}

// DEFAULTS returns the immutable default opcode table for fork. Callers
// must never mutate the returned table; build an OpcodeTable overlay
// instead.
func DEFAULTS(fork Hardfork) *jumpTable {
	if t, ok := defaultTableCache[fork]; ok {
		return t
	}
	var t *jumpTable
	switch {
	case fork >= Prague:
		t = newPragueJumpTable()
	case fork >= Cancun:
		t = newCancunJumpTable()
	case fork >= Shanghai:
		t = newShanghaiJumpTable()
	case fork >= Merge:
		t = newMergeJumpTable()
	case fork >= London:
		t = newLondonJumpTable()
	case fork >= Berlin:
		t = newBerlinJumpTable()
	case fork >= Istanbul:
		t = newIstanbulJumpTable()
	case fork >= Constantinople:
		t = newConstantinopleJumpTable()
	case fork >= Byzantium:
		t = newByzantiumJumpTable()
	case fork >= SpuriousDragon:
		t = newSpuriousDragonJumpTable()
	case fork >= TangerineWhistle:
		t = newTangerineWhistleJumpTable()
	case fork >= Homestead:
		t = newHomesteadJumpTable()
	default:
		t = newFrontierJumpTable()
	}
	defaultTableCache[fork] = t
	return t
}

// OpcodeTable is the effective, per-EVM lookup: a ChainRules-selected
// default table with a small overlay of custom registrations applied on
// top. An overlay entry either overrides a slot or deletes it. The
// default table is never mutated; only the overlay is copied on Clone.
type OpcodeTable struct {
	defaults *jumpTable
	overlay  map[byte]overlayEntry
}

type overlayEntry struct {
	descriptor *OpcodeDescriptor
	deleted    bool
}

// CustomOpcode is one entry in the per-EVM customOpcodes overlay list. An
// entry with Name == "" deletes the slot at Opcode; any other entry fully
// replaces the default (or absent) descriptor at Opcode. A zero MaxStack
// is treated as unset and widened to StackLimit; callers registering an
// opcode that pushes should set explicit bounds.
type CustomOpcode struct {
	Opcode   byte
	Name     string
	BaseFee  uint64
	MinStack int
	MaxStack int
	IsAsync  bool
	GasFn    GasFunc
	LogicFn  LogicFunc
}

// NewOpcodeTable builds the effective table for fork with custom applied
// on top. custom entries are applied in order; a later entry for the same
// opcode wins.
func NewOpcodeTable(fork Hardfork, custom []CustomOpcode) *OpcodeTable {
	overlay := make(map[byte]overlayEntry, len(custom))
	for _, c := range custom {
		if c.Name == "" {
			overlay[c.Opcode] = overlayEntry{deleted: true}
			continue
		}
		if c.MaxStack == 0 {
			// Unset bound: accept any pre-push stack length.
			c.MaxStack = StackLimit
		}
		overlay[c.Opcode] = overlayEntry{descriptor: &OpcodeDescriptor{
			Code:     c.Opcode,
			Name:     c.Name,
			BaseFee:  c.BaseFee,
			MinStack: c.MinStack,
			MaxStack: c.MaxStack,
			IsAsync:  c.IsAsync,
			GasFn:    c.GasFn,
			LogicFn:  c.LogicFn,
		}}
	}
	return &OpcodeTable{defaults: DEFAULTS(fork), overlay: overlay}
}

// Lookup returns the effective descriptor for op, or nil if undefined
// (deleted by overlay, or never defined by the default table).
func (t *OpcodeTable) Lookup(op OpCode) *OpcodeDescriptor {
	if e, ok := t.overlay[byte(op)]; ok {
		if e.deleted {
			return nil
		}
		return e.descriptor
	}
	return t.defaults[op]
}

// Clone returns a table sharing the same immutable defaults with an
// independent copy of the overlay, so mutating the clone's overlay never
// affects the original.
func (t *OpcodeTable) Clone() *OpcodeTable {
	overlay := make(map[byte]overlayEntry, len(t.overlay))
	for k, v := range t.overlay {
		overlay[k] = v
	}
	return &OpcodeTable{defaults: t.defaults, overlay: overlay}
}

func gasMload() GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		offset, err := rs.Stack.Back(0)
		if err != nil {
			return baseFee
		}
		end, overflow := safeAdd(offset.Uint64(), 32)
		if overflow {
			return baseFee
		}
		cost := rs.Memory.MemoryExpansionCost(end)
		rs.Memory.Resize(end)
		return baseFee + cost
	}
}

func gasMstore() GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		offset, err := rs.Stack.Back(0)
		if err != nil {
			return baseFee
		}
		end, overflow := safeAdd(offset.Uint64(), 32)
		if overflow {
			return baseFee
		}
		cost := rs.Memory.MemoryExpansionCost(end)
		rs.Memory.Resize(end)
		return baseFee + cost
	}
}

func gasMstore8() GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		offset, err := rs.Stack.Back(0)
		if err != nil {
			return baseFee
		}
		end, overflow := safeAdd(offset.Uint64(), 1)
		if overflow {
			return baseFee
		}
		cost := rs.Memory.MemoryExpansionCost(end)
		rs.Memory.Resize(end)
		return baseFee + cost
	}
}

func gasCopy(memGas GasFunc, sizeIdx int) GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		total := memGas(rs, baseFee)
		size, err := rs.Stack.Back(sizeIdx)
		if err != nil {
			return total
		}
		words := (size.Uint64() + 31) / 32
		return total + words*GasCopyWord
	}
}

func gasKeccak256(rs *RunState, baseFee uint64) uint64 {
	total := memExpandGas(0, 1)(rs, baseFee)
	size, err := rs.Stack.Back(1)
	if err != nil {
		return total
	}
	words := (size.Uint64() + 31) / 32
	return total + words*GasKeccak256Word
}

func gasLog(n int) GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		total := memExpandGas(0, 1)(rs, baseFee)
		size, err := rs.Stack.Back(1)
		if err != nil {
			return total
		}
		total += uint64(n) * GasLogTopic
		total += size.Uint64() * GasLogData
		return total
	}
}

func gasExp(rs *RunState, baseFee uint64) uint64 {
	exponent, err := rs.Stack.Back(1)
	if err != nil {
		return baseFee
	}
	byteLen := uint64((exponent.BitLen() + 7) / 8)
	expByteCost := uint64(10)
	if rs.EVM.Rules.IsSpuriousDragon() {
		expByteCost = 50
	}
	return baseFee + byteLen*expByteCost
}

// gasSstoreFrontier charges the original, pre-EIP2200 flat SSTORE cost:
// 20000 to set a zero slot non-zero, 5000 otherwise, with a refund when
// clearing a non-zero slot to zero.
func gasSstoreFrontier(rs *RunState, baseFee uint64) uint64 {
	loc, err := rs.Stack.Back(0)
	if err != nil {
		return GasSstoreReset
	}
	val, err := rs.Stack.Back(1)
	if err != nil {
		return GasSstoreReset
	}
	key := hashFromWord(loc)
	current := rs.EVM.StateDB.GetContractStorage(rs.Address, key)
	newIsZero := val.IsZero()
	currentIsZero := current.IsZero()
	if currentIsZero && !newIsZero {
		return GasSstoreSet
	}
	if !currentIsZero && newIsZero {
		rs.EVM.StateDB.AddRefund(GasSstoreClearRefund)
	}
	return GasSstoreReset
}

func gasCreate(rs *RunState, baseFee uint64) uint64 {
	total := memExpandGas(1, 2)(rs, baseFee)
	size, err := rs.Stack.Back(2)
	if err != nil {
		return total
	}
	if rs.EVM.Rules.IsEIP3860() {
		words := (size.Uint64() + 31) / 32
		total += words * 2
	}
	return total
}

// gasCall charges memory expansion for the wider of the args/ret windows on
// top of the flat fee; it adds no value-transfer or new-account surcharge.
// When the sub-call is dispatched, consumeCallGas in evm.go applies the
// 63/64ths forwarding cap and adds the stipend for value-bearing calls.
func gasCall(rs *RunState, baseFee uint64) uint64 {
	return callMemGas(rs, baseFee, 3, 4, 5, 6)
}

func gasCallNoValue(rs *RunState, baseFee uint64) uint64 {
	return callMemGas(rs, baseFee, 2, 3, 4, 5)
}

func callMemGas(rs *RunState, baseFee uint64, argsOffIdx, argsSizeIdx, retOffIdx, retSizeIdx int) uint64 {
	argsEnd := memRegionEnd(rs, argsOffIdx, argsSizeIdx)
	retEnd := memRegionEnd(rs, retOffIdx, retSizeIdx)
	need := argsEnd
	if retEnd > need {
		need = retEnd
	}
	cost := rs.Memory.MemoryExpansionCost(need)
	rs.Memory.Resize(need)
	return baseFee + cost
}

func memRegionEnd(rs *RunState, offIdx, sizeIdx int) uint64 {
	off, err1 := rs.Stack.Back(offIdx)
	size, err2 := rs.Stack.Back(sizeIdx)
	if err1 != nil || err2 != nil || size.IsZero() {
		return 0
	}
	end, overflow := safeAdd(off.Uint64(), size.Uint64())
	if overflow {
		return 0
	}
	return end
}

func hashFromWord(w *uint256.Int) types.Hash {
	return types.BytesToHash(w.Bytes())
}

// --- EIP-2929 cold/warm gas functions ---
//
// The first access to an address or storage slot within a transaction
// costs the cold price; subsequent accesses cost the warm price. The
// warm/cold set is tracked on StateDB (AddWarmedAddress/IsWarmedAddress
// and the storage equivalents), reset per transaction by the caller that
// constructs the EVM.

func gasSloadEIP2929(rs *RunState, baseFee uint64) uint64 {
	loc, err := rs.Stack.Back(0)
	if err != nil {
		return GasSloadCold
	}
	key := hashFromWord(loc)
	if rs.EVM.StateDB.IsWarmedStorage(rs.Address, key) {
		return GasSloadWarm
	}
	rs.EVM.StateDB.AddWarmedStorage(rs.Address, key)
	return GasSloadCold
}

// gasAccountAccessEIP2929 returns a GasFunc charging cold/warm for a
// descriptor whose sole stack argument (at addrIdx) is the target address.
func gasAccountAccessEIP2929(addrIdx int) GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		addrWord, err := rs.Stack.Back(addrIdx)
		if err != nil {
			return GasColdAccountAccess
		}
		addr := wordToAddress(addrWord)
		if rs.EVM.StateDB.IsWarmedAddress(addr) {
			return GasWarmAccess
		}
		rs.EVM.StateDB.AddWarmedAddress(addr)
		return GasColdAccountAccess
	}
}

func gasExtcodecopyEIP2929(rs *RunState, baseFee uint64) uint64 {
	total := gasCopy(memExpandGas(1, 3), 3)(rs, 0)
	total += gasAccountAccessEIP2929(0)(rs, 0)
	return total
}

// gasCallEIP2929 charges cold/warm access on the target address (at
// addrIdx) plus the args/ret memory-expansion window.
func gasCallEIP2929(addrIdx, popCount int) GasFunc {
	return func(rs *RunState, baseFee uint64) uint64 {
		addrWord, err := rs.Stack.Back(addrIdx)
		access := GasColdAccountAccess
		if err == nil {
			addr := wordToAddress(addrWord)
			if rs.EVM.StateDB.IsWarmedAddress(addr) {
				access = GasWarmAccess
			} else {
				rs.EVM.StateDB.AddWarmedAddress(addr)
			}
		}
		var mem uint64
		switch popCount {
		case 7: // CALL/CALLCODE: gas,addr,value,argsOff,argsSize,retOff,retSize
			mem = callMemGas(rs, 0, 3, 4, 5, 6)
		default: // DELEGATECALL/STATICCALL: gas,addr,argsOff,argsSize,retOff,retSize
			mem = callMemGas(rs, 0, 2, 3, 4, 5)
		}
		extra := uint64(0)
		if popCount == 7 {
			value, err := rs.Stack.Back(2)
			if err == nil && !value.IsZero() {
				extra = GasCallValue
			}
		}
		return access + mem + extra
	}
}

func gasCreate2(rs *RunState, baseFee uint64) uint64 {
	total := memExpandGas(1, 2)(rs, baseFee)
	size, err := rs.Stack.Back(2)
	if err != nil {
		return total
	}
	words := (size.Uint64() + 31) / 32
	total += words * GasKeccak256Word
	if rs.EVM.Rules.IsEIP3860() {
		total += words * 2
	}
	return total
}

func gasMcopy(rs *RunState, baseFee uint64) uint64 {
	dst, err1 := rs.Stack.Back(0)
	src, err2 := rs.Stack.Back(1)
	length, err3 := rs.Stack.Back(2)
	if err1 != nil || err2 != nil || err3 != nil || length.IsZero() {
		return baseFee
	}
	dstEnd, o1 := safeAdd(dst.Uint64(), length.Uint64())
	srcEnd, o2 := safeAdd(src.Uint64(), length.Uint64())
	if o1 || o2 {
		return baseFee
	}
	need := dstEnd
	if srcEnd > need {
		need = srcEnd
	}
	words := (length.Uint64() + 31) / 32
	cost := rs.Memory.MemoryExpansionCost(need)
	rs.Memory.Resize(need)
	return baseFee + cost + words*GasCopyWord
}

func gasSelfdestruct(rs *RunState, baseFee uint64) uint64 {
	return baseFee
}
