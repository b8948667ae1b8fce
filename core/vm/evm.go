package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
	"github.com/ethforge/evmcore/crypto"
)

// MaxCallDepth is the deepest nested CALL/CREATE chain permitted.
const MaxCallDepth = 1024

// BlockContext carries the block-level values opcodes like COINBASE,
// NUMBER, and BASEFEE read; it is fixed for the lifetime of an EVM.
type BlockContext struct {
	Coinbase    types.Address
	GasLimit    uint64
	BlockNumber uint64
	Time        uint64
	PrevRandao  types.Hash
	BaseFee     *uint256.Int
}

// TxContext carries the per-transaction values ORIGIN and GASPRICE read.
type TxContext struct {
	Origin   types.Address
	GasPrice *uint256.Int
}

// StepObserver is invoked once per opcode, after the step's gas cost has
// been computed but before it is deducted and before LogicFn runs.
// Observers must treat rs as read-only and must not retain it past the
// callback. An observer may request a halt via rs.EVM.RequestAbort();
// the flag is honored before the next fetch.
type StepObserver func(rs *RunState, desc *OpcodeDescriptor, cost uint64)

// Config bundles the knobs that select an EVM's behavior: its hardfork
// (and therefore its default opcode table and precompile set), any
// per-EVM opcode/precompile overlays, step observers, and the EIP-170/3860
// size-cap override used by some test harnesses.
type Config struct {
	Hardfork                   Hardfork
	CustomOpcodes              []CustomOpcode
	CustomPrecompiles          map[types.Address]PrecompiledContract
	Tracers                    []StepObserver
	AllowUnlimitedContractSize bool
}

// EVM is one instance of the interpreter bound to a StateDB, a block/tx
// context, and an effective opcode/precompile table. Callers construct
// one EVM per transaction (or reuse one across a block, resetting
// TxContext between transactions) and must not share a StateDB between
// concurrently running EVM instances.
type EVM struct {
	Context   BlockContext
	TxContext TxContext
	StateDB   StateDB
	Rules     ChainRules
	ChainID   uint64

	opcodes       *OpcodeTable
	precompiles   map[types.Address]PrecompiledContract
	customOpcodes []CustomOpcode
	tracers       []StepObserver
	unlimitedSize bool

	depth int
	abort bool
}

// NewEVM builds an EVM for one hardfork/block/tx context. config.Hardfork
// selects both the default opcode table (via DEFAULTS) and the default
// precompile set (via defaultPrecompiles); config.CustomOpcodes and
// config.CustomPrecompiles are layered on top.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, chainID uint64, config Config) *EVM {
	rules := NewChainRules(config.Hardfork)
	precompiles := make(map[types.Address]PrecompiledContract)
	for addr, pc := range defaultPrecompiles(rules) {
		precompiles[addr] = pc
	}
	for addr, pc := range config.CustomPrecompiles {
		precompiles[addr] = pc
	}
	custom := make([]CustomOpcode, len(config.CustomOpcodes))
	copy(custom, config.CustomOpcodes)
	return &EVM{
		Context:       blockCtx,
		TxContext:     txCtx,
		StateDB:       statedb,
		Rules:         rules,
		ChainID:       chainID,
		opcodes:       NewOpcodeTable(config.Hardfork, custom),
		precompiles:   precompiles,
		customOpcodes: custom,
		tracers:       config.Tracers,
		unlimitedSize: config.AllowUnlimitedContractSize,
	}
}

// Clone returns an EVM sharing the same StateDB, defaults, and
// precompiles, with an independent copy of the custom-opcode overlay.
// Mutating the clone's overlay list never affects the original.
func (evm *EVM) Clone() *EVM {
	clone := *evm
	clone.customOpcodes = make([]CustomOpcode, len(evm.customOpcodes))
	copy(clone.customOpcodes, evm.customOpcodes)
	clone.opcodes = evm.opcodes.Clone()
	clone.precompiles = make(map[types.Address]PrecompiledContract, len(evm.precompiles))
	for addr, pc := range evm.precompiles {
		clone.precompiles[addr] = pc
	}
	return &clone
}

// CustomOpcodes returns the EVM's own copy of its overlay list.
func (evm *EVM) CustomOpcodes() []CustomOpcode { return evm.customOpcodes }

// RequestAbort asks the interpreter to halt before the next opcode fetch.
// It is the one mutation a step observer is allowed to make.
func (evm *EVM) RequestAbort() { evm.abort = true }

// CallResult is the outcome of a MessageCall: the returned/reverted data,
// gas left after the call, and the halt reason (HaltReturn/HaltStop on
// success, HaltRevert on revert-with-data, anything else exceptional).
// Err carries a precompile's own error when the failure originated there.
type CallResult struct {
	ReturnData []byte
	GasLeft    uint64
	Halt       HaltReason
	Err        error
}

// Failed reports whether the call did not complete via STOP/RETURN.
func (r CallResult) Failed() bool {
	return r.Halt != HaltStop && r.Halt != HaltReturn
}

// MessageCall is the single entry point for executing a top-level
// transaction message: deploying a contract when to == nil, otherwise
// invoking one.
func (evm *EVM) MessageCall(caller types.Address, to *types.Address, value *uint256.Int, gas uint64, input []byte) CallResult {
	if to == nil {
		nonce := evm.StateDB.GetNonce(caller)
		evm.StateDB.SetNonce(caller, nonce+1)
		addr := crypto.CreateAddress(caller, nonce)
		return evm.create(caller, input, value, gas, addr)
	}
	return evm.Call(caller, *to, value, gas, input)
}

// Call executes a CALL: full context switch (caller/address/value all
// change), value transferred into the callee, code read from the callee
// account.
func (evm *EVM) Call(caller, addr types.Address, value *uint256.Int, gas uint64, input []byte) CallResult {
	return evm.execute(caller, addr, addr, value, gas, input, false, false)
}

// CallCode executes CALLCODE: runs the callee's code in the caller's own
// storage context (address stays the caller), with value transfer.
func (evm *EVM) CallCode(caller types.Address, codeAddr types.Address, value *uint256.Int, gas uint64, input []byte) CallResult {
	return evm.execute(caller, caller, codeAddr, value, gas, input, false, false)
}

// DelegateCall executes DELEGATECALL: runs codeAddr's code at self's
// address and storage, preserving the original caller and value (no value
// transfer at this frame).
func (evm *EVM) DelegateCall(originalCaller, self, codeAddr types.Address, value *uint256.Int, gas uint64, input []byte) CallResult {
	return evm.execute(originalCaller, self, codeAddr, value, gas, input, false, true)
}

// StaticCall executes STATICCALL: like Call but forbids state
// modification for the duration of the sub-call (and everything it calls).
func (evm *EVM) StaticCall(caller, addr types.Address, gas uint64, input []byte) CallResult {
	return evm.execute(caller, addr, addr, uint256.NewInt(0), gas, input, true, false)
}

func (evm *EVM) execute(caller, address, codeAddr types.Address, value *uint256.Int, gas uint64, input []byte, isStatic, isDelegate bool) CallResult {
	if evm.depth > MaxCallDepth {
		return CallResult{GasLeft: gas, Halt: HaltCallDepthExceeded}
	}
	if !isDelegate && !value.IsZero() {
		if evm.StateDB.GetBalance(caller).Lt(value) {
			return CallResult{GasLeft: gas, Halt: HaltInsufficientBalance}
		}
	}

	checkpoint := evm.StateDB.Checkpoint()
	if !isDelegate && !value.IsZero() {
		evm.StateDB.SubBalance(caller, value)
		evm.StateDB.AddBalance(address, value)
	}

	if pc, ok := evm.precompiles[codeAddr]; ok {
		result := evm.runPrecompile(pc, gas, input)
		if result.Failed() {
			evm.StateDB.Revert(checkpoint)
		} else {
			evm.StateDB.Commit(checkpoint)
		}
		return result
	}

	code := evm.StateDB.GetContractCode(codeAddr)
	if len(code) == 0 {
		evm.StateDB.Commit(checkpoint)
		return CallResult{GasLeft: gas, Halt: HaltStop}
	}

	rs := NewRunState(evm, code, ComputeJumpdests(code))
	rs.GasLeft = gas
	rs.Caller = caller
	rs.Address = address
	rs.Value = value
	rs.CallData = input
	rs.IsStatic = isStatic
	rs.Depth = evm.depth
	rs.Checkpoint = checkpoint

	evm.depth++
	evm.run(rs)
	evm.depth--

	if rs.halt == HaltStop || rs.halt == HaltReturn {
		evm.StateDB.Commit(checkpoint)
	} else {
		evm.StateDB.Revert(checkpoint)
	}

	result := CallResult{ReturnData: rs.Output(), GasLeft: rs.GasLeft, Halt: rs.halt}
	if rs.halt.IsExceptional() {
		result.GasLeft = 0
	}
	return result
}

func (evm *EVM) runPrecompile(pc PrecompiledContract, gas uint64, input []byte) CallResult {
	cost := pc.RequiredGas(input)
	if cost > gas {
		return CallResult{GasLeft: 0, Halt: HaltOutOfGas}
	}
	out, err := pc.Run(input)
	if err != nil {
		return CallResult{GasLeft: 0, Halt: HaltPrecompileFailure, Err: err}
	}
	return CallResult{ReturnData: out, GasLeft: gas - cost, Halt: HaltReturn}
}

// create implements CREATE/CREATE2 address derivation, size/prefix
// validation, initcode execution, and the 200-gas-per-byte deployed-code
// storage charge (EIP-170/3541/3860 checks included).
func (evm *EVM) create(caller types.Address, initcode []byte, value *uint256.Int, gas uint64, addr types.Address) CallResult {
	if evm.depth > MaxCallDepth {
		return CallResult{GasLeft: gas, Halt: HaltCallDepthExceeded}
	}
	if evm.Rules.IsEIP3860() && uint64(len(initcode)) > MaxInitcodeSize {
		return CallResult{GasLeft: 0, Halt: HaltInitcodeSizeViolation}
	}
	if !value.IsZero() && evm.StateDB.GetBalance(caller).Lt(value) {
		return CallResult{GasLeft: gas, Halt: HaltInsufficientBalance}
	}
	if evm.StateDB.GetNonce(addr) != 0 || len(evm.StateDB.GetContractCode(addr)) != 0 {
		return CallResult{GasLeft: 0, Halt: HaltCreateCollision}
	}

	checkpoint := evm.StateDB.Checkpoint()
	evm.StateDB.CreateAccount(addr)
	evm.StateDB.SetNonce(addr, 1)
	if !value.IsZero() {
		evm.StateDB.SubBalance(caller, value)
		evm.StateDB.AddBalance(addr, value)
	}

	rs := NewRunState(evm, initcode, ComputeJumpdests(initcode))
	rs.GasLeft = gas
	rs.Caller = caller
	rs.Address = addr
	rs.Value = value
	rs.Depth = evm.depth
	rs.Checkpoint = checkpoint

	evm.depth++
	evm.run(rs)
	evm.depth--

	if rs.halt != HaltStop && rs.halt != HaltReturn {
		evm.StateDB.Revert(checkpoint)
		gasLeft := rs.GasLeft
		if rs.halt != HaltRevert {
			gasLeft = 0
		}
		return CallResult{ReturnData: rs.Output(), GasLeft: gasLeft, Halt: rs.halt}
	}

	deployed := rs.Output()
	if evm.Rules.IsEIP3541() && len(deployed) > 0 && deployed[0] == 0xEF {
		evm.StateDB.Revert(checkpoint)
		return CallResult{GasLeft: 0, Halt: HaltInvalidBytecodeResult}
	}
	if !evm.unlimitedSize && len(deployed) > MaxCodeSize {
		evm.StateDB.Revert(checkpoint)
		return CallResult{GasLeft: 0, Halt: HaltInvalidBytecodeResult}
	}
	storageCost := uint64(len(deployed)) * GasCreateDataWord
	if rs.GasLeft < storageCost {
		evm.StateDB.Revert(checkpoint)
		return CallResult{GasLeft: 0, Halt: HaltCodeStoreOutOfGas}
	}
	rs.GasLeft -= storageCost
	evm.StateDB.PutContractCode(addr, deployed)
	evm.StateDB.Commit(checkpoint)
	return CallResult{ReturnData: addr.Bytes(), GasLeft: rs.GasLeft, Halt: HaltReturn}
}

// run is the fetch/decode/execute loop. Per step: lookup, static-context
// check, stack bounds, gas (total, dynamic components included), step
// event, deduct, execute.
func (evm *EVM) run(rs *RunState) {
	for rs.halt == HaltNone {
		if evm.abort {
			rs.Halt(HaltStop, nil)
			break
		}
		op := rs.GetOp(rs.PC)
		desc := evm.opcodes.Lookup(op)
		if desc == nil {
			rs.Halt(HaltInvalidOpcode, nil)
			break
		}
		if rs.IsStatic && isStateModifying(op) {
			rs.Halt(HaltStaticStateChange, nil)
			break
		}
		sLen := rs.Stack.Len()
		if sLen < desc.MinStack {
			rs.Halt(HaltStackUnderflow, nil)
			break
		}
		if sLen > desc.MaxStack {
			rs.Halt(HaltStackOverflow, nil)
			break
		}

		cost := desc.GasFn(rs, desc.BaseFee)
		if rs.GasLeft < cost {
			rs.Halt(HaltOutOfGas, nil)
			break
		}

		for _, obs := range evm.tracers {
			obs(rs, desc, cost)
		}

		rs.GasLeft -= cost
		desc.LogicFn(rs)

		if rs.halt == HaltNone && !selfAdvancesPC(op, desc) {
			rs.PC++
		}
	}
	if rs.halt.IsExceptional() {
		rs.GasLeft = 0
	}
}

// selfAdvancesPC reports whether op's LogicFn is responsible for moving PC
// itself (PUSHn skips its immediate; JUMP/JUMPI set PC directly on a taken
// branch and advance by one on a not-taken JUMPI). An overlay descriptor at
// one of these slots counts as self-advancing only when its Name equals the
// slot's default mnemonic; otherwise PC advances by one as for any opcode.
func selfAdvancesPC(op OpCode, desc *OpcodeDescriptor) bool {
	if op == JUMP || op == JUMPI || op == PUSH0 {
		return desc.Name == op.String()
	}
	return op.IsPush() && desc.Name == op.String()
}

// isStateModifying reports whether op is categorically forbidden inside a
// STATICCALL context. CALL is absent: CALL-with-value is rejected in
// opCall once the value operand is known.
func isStateModifying(op OpCode) bool {
	switch op {
	case SSTORE, LOG0, LOG1, LOG2, LOG3, LOG4, CREATE, CREATE2, SELFDESTRUCT, TSTORE:
		return true
	default:
		return false
	}
}

// --- CALL-family and CREATE logic functions (recurse into the EVM) ---

func opCall(rs *RunState) {
	gasArg, _ := rs.Stack.Pop()
	addrWord, _ := rs.Stack.Pop()
	value, _ := rs.Stack.Pop()
	argsOffset, _ := rs.Stack.Pop()
	argsSize, _ := rs.Stack.Pop()
	retOffset, _ := rs.Stack.Pop()
	retSize, _ := rs.Stack.Pop()

	if rs.IsStatic && !value.IsZero() {
		rs.Halt(HaltStaticStateChange, nil)
		return
	}

	addr := wordToAddress(&addrWord)
	input := rs.Memory.Get(argsOffset.Uint64(), argsSize.Uint64())
	callGas := consumeCallGas(rs, &gasArg, &value)

	result := rs.EVM.execute(rs.Address, addr, addr, &value, callGas, input, rs.IsStatic, false)
	finishSubCall(rs, result, callGas, retOffset.Uint64(), retSize.Uint64())
}

func opCallCode(rs *RunState) {
	gasArg, _ := rs.Stack.Pop()
	addrWord, _ := rs.Stack.Pop()
	value, _ := rs.Stack.Pop()
	argsOffset, _ := rs.Stack.Pop()
	argsSize, _ := rs.Stack.Pop()
	retOffset, _ := rs.Stack.Pop()
	retSize, _ := rs.Stack.Pop()

	addr := wordToAddress(&addrWord)
	input := rs.Memory.Get(argsOffset.Uint64(), argsSize.Uint64())
	callGas := consumeCallGas(rs, &gasArg, &value)

	result := rs.EVM.execute(rs.Address, rs.Address, addr, &value, callGas, input, rs.IsStatic, false)
	finishSubCall(rs, result, callGas, retOffset.Uint64(), retSize.Uint64())
}

func opDelegateCall(rs *RunState) {
	gasArg, _ := rs.Stack.Pop()
	addrWord, _ := rs.Stack.Pop()
	argsOffset, _ := rs.Stack.Pop()
	argsSize, _ := rs.Stack.Pop()
	retOffset, _ := rs.Stack.Pop()
	retSize, _ := rs.Stack.Pop()

	addr := wordToAddress(&addrWord)
	input := rs.Memory.Get(argsOffset.Uint64(), argsSize.Uint64())
	callGas := consumeCallGas(rs, &gasArg, nil)

	result := rs.EVM.execute(rs.Caller, rs.Address, addr, rs.Value, callGas, input, rs.IsStatic, true)
	finishSubCall(rs, result, callGas, retOffset.Uint64(), retSize.Uint64())
}

func opStaticCall(rs *RunState) {
	gasArg, _ := rs.Stack.Pop()
	addrWord, _ := rs.Stack.Pop()
	argsOffset, _ := rs.Stack.Pop()
	argsSize, _ := rs.Stack.Pop()
	retOffset, _ := rs.Stack.Pop()
	retSize, _ := rs.Stack.Pop()

	addr := wordToAddress(&addrWord)
	input := rs.Memory.Get(argsOffset.Uint64(), argsSize.Uint64())
	callGas := consumeCallGas(rs, &gasArg, nil)

	result := rs.EVM.StaticCall(rs.Address, addr, callGas, input)
	finishSubCall(rs, result, callGas, retOffset.Uint64(), retSize.Uint64())
}

// consumeCallGas deducts the gas forwarded to a sub-call from the caller's
// frame: the requested amount capped by the EIP-150 63/64ths rule, plus
// the free 2300 stipend when value is transferred (the stipend is granted
// to the callee but never charged to the caller).
func consumeCallGas(rs *RunState, gasArg *uint256.Int, value *uint256.Int) uint64 {
	available := rs.GasLeft - rs.GasLeft/64
	forwarded := available
	if gasArg.IsUint64() && gasArg.Uint64() < available {
		forwarded = gasArg.Uint64()
	}
	rs.GasLeft -= forwarded
	if value != nil && !value.IsZero() {
		forwarded += GasCallStipend
	}
	return forwarded
}

func finishSubCall(rs *RunState, result CallResult, gasGiven uint64, retOffset, retSize uint64) {
	rs.ReturnData = result.ReturnData
	unused := result.GasLeft
	if unused > gasGiven {
		unused = gasGiven
	}
	rs.GasLeft += unused
	if len(result.ReturnData) > 0 && retSize > 0 {
		n := retSize
		if uint64(len(result.ReturnData)) < n {
			n = uint64(len(result.ReturnData))
		}
		rs.Memory.Set(retOffset, result.ReturnData[:n])
	}
	if result.Failed() {
		rs.Stack.Push(uint256.NewInt(0))
	} else {
		rs.Stack.Push(uint256.NewInt(1))
	}
}

func opCreate(rs *RunState) {
	value, _ := rs.Stack.Pop()
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	initcode := rs.Memory.Get(offset.Uint64(), size.Uint64())

	nonce := rs.EVM.StateDB.GetNonce(rs.Address)
	rs.EVM.StateDB.SetNonce(rs.Address, nonce+1)
	addr := crypto.CreateAddress(rs.Address, nonce)

	forwarded := rs.GasLeft - rs.GasLeft/64
	rs.GasLeft -= forwarded
	result := rs.EVM.create(rs.Address, initcode, &value, forwarded, addr)
	finishCreate(rs, result, forwarded, addr)
}

func opCreate2(rs *RunState) {
	value, _ := rs.Stack.Pop()
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	saltWord, _ := rs.Stack.Pop()
	initcode := rs.Memory.Get(offset.Uint64(), size.Uint64())

	salt := saltWord.Bytes32()
	initcodeHash := crypto.Keccak256(initcode)
	addr := crypto.CreateAddress2(rs.Address, salt, initcodeHash)

	nonce := rs.EVM.StateDB.GetNonce(rs.Address)
	rs.EVM.StateDB.SetNonce(rs.Address, nonce+1)

	forwarded := rs.GasLeft - rs.GasLeft/64
	rs.GasLeft -= forwarded
	result := rs.EVM.create(rs.Address, initcode, &value, forwarded, addr)
	finishCreate(rs, result, forwarded, addr)
}

func finishCreate(rs *RunState, result CallResult, gasGiven uint64, addr types.Address) {
	unused := result.GasLeft
	if unused > gasGiven {
		unused = gasGiven
	}
	rs.GasLeft += unused
	if result.Failed() {
		rs.Stack.Push(uint256.NewInt(0))
		if result.Halt == HaltRevert {
			rs.ReturnData = result.ReturnData
		} else {
			rs.ReturnData = nil
		}
		return
	}
	var v uint256.Int
	v.SetBytes(addr.Bytes())
	rs.Stack.Push(&v)
	rs.ReturnData = nil
}
