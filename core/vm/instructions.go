package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
	"github.com/ethforge/evmcore/crypto"
)

// Arithmetic & bitwise logic. Handlers pop into value copies and reuse
// the first operand as the result slot, so nothing here allocates.

func opAdd(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.Add(&x, &y)
	rs.Stack.Push(&x)
}

func opSub(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.Sub(&x, &y)
	rs.Stack.Push(&x)
}

func opMul(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.Mul(&x, &y)
	rs.Stack.Push(&x)
}

func opDiv(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.Div(&x, &y)
	rs.Stack.Push(&x)
}

func opSdiv(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.SDiv(&x, &y)
	rs.Stack.Push(&x)
}

func opMod(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.Mod(&x, &y)
	rs.Stack.Push(&x)
}

func opSmod(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.SMod(&x, &y)
	rs.Stack.Push(&x)
}

func opAddmod(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	z, _ := rs.Stack.Pop()
	x.AddMod(&x, &y, &z)
	rs.Stack.Push(&x)
}

func opMulmod(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	z, _ := rs.Stack.Pop()
	x.MulMod(&x, &y, &z)
	rs.Stack.Push(&x)
}

func opExp(rs *RunState) {
	base, _ := rs.Stack.Pop()
	exponent, _ := rs.Stack.Pop()
	base.Exp(&base, &exponent)
	rs.Stack.Push(&base)
}

func opSignExtend(rs *RunState) {
	back, _ := rs.Stack.Pop()
	num, _ := rs.Stack.Pop()
	num.ExtendSign(&num, &back)
	rs.Stack.Push(&num)
}

func opLt(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	if x.Lt(&y) {
		rs.Stack.Push(uint256.NewInt(1))
	} else {
		rs.Stack.Push(uint256.NewInt(0))
	}
}

func opGt(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	if x.Gt(&y) {
		rs.Stack.Push(uint256.NewInt(1))
	} else {
		rs.Stack.Push(uint256.NewInt(0))
	}
}

func opSlt(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	if x.Slt(&y) {
		rs.Stack.Push(uint256.NewInt(1))
	} else {
		rs.Stack.Push(uint256.NewInt(0))
	}
}

func opSgt(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	if x.Sgt(&y) {
		rs.Stack.Push(uint256.NewInt(1))
	} else {
		rs.Stack.Push(uint256.NewInt(0))
	}
}

func opEq(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	if x.Eq(&y) {
		rs.Stack.Push(uint256.NewInt(1))
	} else {
		rs.Stack.Push(uint256.NewInt(0))
	}
}

func opIsZero(rs *RunState) {
	x, _ := rs.Stack.Pop()
	if x.IsZero() {
		rs.Stack.Push(uint256.NewInt(1))
	} else {
		rs.Stack.Push(uint256.NewInt(0))
	}
}

func opAnd(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.And(&x, &y)
	rs.Stack.Push(&x)
}

func opOr(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.Or(&x, &y)
	rs.Stack.Push(&x)
}

func opXor(rs *RunState) {
	x, _ := rs.Stack.Pop()
	y, _ := rs.Stack.Pop()
	x.Xor(&x, &y)
	rs.Stack.Push(&x)
}

func opNot(rs *RunState) {
	x, _ := rs.Stack.Pop()
	x.Not(&x)
	rs.Stack.Push(&x)
}

func opByte(rs *RunState) {
	th, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	val.Byte(&th)
	rs.Stack.Push(&val)
}

func opShl(rs *RunState) {
	shift, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	if shift.LtUint64(256) {
		val.Lsh(&val, uint(shift.Uint64()))
	} else {
		val.Clear()
	}
	rs.Stack.Push(&val)
}

func opShr(rs *RunState) {
	shift, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	if shift.LtUint64(256) {
		val.Rsh(&val, uint(shift.Uint64()))
	} else {
		val.Clear()
	}
	rs.Stack.Push(&val)
}

func opSar(rs *RunState) {
	shift, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	if shift.GtUint64(255) {
		if val.Sign() >= 0 {
			val.Clear()
		} else {
			val.SetAllOne()
		}
	} else {
		val.SRsh(&val, uint(shift.Uint64()))
	}
	rs.Stack.Push(&val)
}

func opKeccak256(rs *RunState) {
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	data := rs.Memory.Get(offset.Uint64(), size.Uint64())
	h := crypto.Keccak256(data)
	var result uint256.Int
	result.SetBytes(h)
	rs.Stack.Push(&result)
}

// Environment opcodes.

func opAddress(rs *RunState) {
	var v uint256.Int
	v.SetBytes(rs.Address.Bytes())
	rs.Stack.Push(&v)
}

func opBalance(rs *RunState) {
	addrWord, _ := rs.Stack.Pop()
	addr := wordToAddress(&addrWord)
	bal := rs.EVM.StateDB.GetBalance(addr)
	rs.Stack.Push(bal)
}

func opOrigin(rs *RunState) {
	var v uint256.Int
	v.SetBytes(rs.EVM.TxContext.Origin.Bytes())
	rs.Stack.Push(&v)
}

func opCaller(rs *RunState) {
	var v uint256.Int
	v.SetBytes(rs.Caller.Bytes())
	rs.Stack.Push(&v)
}

func opCallValue(rs *RunState) {
	v := *rs.Value
	rs.Stack.Push(&v)
}

func opCalldataLoad(rs *RunState) {
	offset, _ := rs.Stack.Pop()
	var v uint256.Int
	v.SetBytes(getData(rs.CallData, offset.Uint64(), 32))
	rs.Stack.Push(&v)
}

func opCalldataSize(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(uint64(len(rs.CallData))))
}

func opCalldataCopy(rs *RunState) {
	destOffset, _ := rs.Stack.Pop()
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	data := getData(rs.CallData, offset.Uint64(), size.Uint64())
	rs.Memory.Set(destOffset.Uint64(), data)
}

func opCodeSize(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(uint64(len(rs.Code))))
}

func opCodeCopy(rs *RunState) {
	destOffset, _ := rs.Stack.Pop()
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	data := getData(rs.Code, offset.Uint64(), size.Uint64())
	rs.Memory.Set(destOffset.Uint64(), data)
}

func opGasPrice(rs *RunState) {
	v := *rs.EVM.TxContext.GasPrice
	rs.Stack.Push(&v)
}

func opExtcodesize(rs *RunState) {
	addrWord, _ := rs.Stack.Pop()
	addr := wordToAddress(&addrWord)
	rs.Stack.Push(uint256.NewInt(uint64(rs.EVM.StateDB.GetCodeSize(addr))))
}

func opExtcodecopy(rs *RunState) {
	addrWord, _ := rs.Stack.Pop()
	destOffset, _ := rs.Stack.Pop()
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	addr := wordToAddress(&addrWord)
	code := rs.EVM.StateDB.GetContractCode(addr)
	data := getData(code, offset.Uint64(), size.Uint64())
	rs.Memory.Set(destOffset.Uint64(), data)
}

func opExtcodehash(rs *RunState) {
	addrWord, _ := rs.Stack.Pop()
	addr := wordToAddress(&addrWord)
	if !rs.EVM.StateDB.AccountExists(addr) || rs.EVM.StateDB.AccountIsEmpty(addr) {
		rs.Stack.Push(uint256.NewInt(0))
		return
	}
	var v uint256.Int
	v.SetBytes(rs.EVM.StateDB.GetCodeHash(addr).Bytes())
	rs.Stack.Push(&v)
}

func opReturndataSize(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(uint64(len(rs.ReturnData))))
}

func opReturndataCopy(rs *RunState) {
	destOffset, _ := rs.Stack.Pop()
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	end := offset.Uint64() + size.Uint64()
	if end > uint64(len(rs.ReturnData)) || end < offset.Uint64() {
		rs.Halt(HaltInvalidBytecodeResult, nil)
		return
	}
	rs.Memory.Set(destOffset.Uint64(), rs.ReturnData[offset.Uint64():end])
}

// Block context opcodes.

func opBlockhash(rs *RunState) {
	num, _ := rs.Stack.Pop()
	var v uint256.Int
	v.SetBytes(rs.EVM.StateDB.GetBlockHash(num.Uint64()).Bytes())
	rs.Stack.Push(&v)
}

func opCoinbase(rs *RunState) {
	var v uint256.Int
	v.SetBytes(rs.EVM.Context.Coinbase.Bytes())
	rs.Stack.Push(&v)
}

func opTimestamp(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(rs.EVM.Context.Time))
}

func opNumber(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(rs.EVM.Context.BlockNumber))
}

func opPrevRandao(rs *RunState) {
	var v uint256.Int
	v.SetBytes(rs.EVM.Context.PrevRandao.Bytes())
	rs.Stack.Push(&v)
}

func opGasLimit(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(rs.EVM.Context.GasLimit))
}

func opChainID(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(rs.EVM.ChainID))
}

func opSelfBalance(rs *RunState) {
	rs.Stack.Push(rs.EVM.StateDB.GetBalance(rs.Address))
}

func opBaseFee(rs *RunState) {
	v := *rs.EVM.Context.BaseFee
	rs.Stack.Push(&v)
}

// Stack / memory / flow opcodes.

func opPop(rs *RunState) { rs.Stack.Pop() }

func opMload(rs *RunState) {
	offset, _ := rs.Stack.Pop()
	data := rs.Memory.GetPtr(offset.Uint64(), 32)
	var v uint256.Int
	v.SetBytes(data)
	rs.Stack.Push(&v)
}

func opMstore(rs *RunState) {
	offset, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	rs.Memory.Set32(offset.Uint64(), &val)
}

func opMstore8(rs *RunState) {
	offset, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	rs.Memory.Set(offset.Uint64(), []byte{byte(val.Uint64())})
}

func opSload(rs *RunState) {
	loc, _ := rs.Stack.Pop()
	key := types.BytesToHash(loc.Bytes())
	val := rs.EVM.StateDB.GetContractStorage(rs.Address, key)
	var v uint256.Int
	v.SetBytes(val.Bytes())
	rs.Stack.Push(&v)
}

func opSstore(rs *RunState) {
	loc, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	key := types.BytesToHash(loc.Bytes())
	rs.EVM.StateDB.PutContractStorage(rs.Address, key, types.BytesToHash(val.Bytes()))
}

func opJump(rs *RunState) {
	dest, _ := rs.Stack.Pop()
	target := dest.Uint64()
	if !dest.IsUint64() || !rs.ValidJumpDest(target) {
		rs.Halt(HaltInvalidJump, nil)
		return
	}
	rs.PC = target
}

func opJumpi(rs *RunState) {
	dest, _ := rs.Stack.Pop()
	cond, _ := rs.Stack.Pop()
	if cond.IsZero() {
		rs.PC++
		return
	}
	target := dest.Uint64()
	if !dest.IsUint64() || !rs.ValidJumpDest(target) {
		rs.Halt(HaltInvalidJump, nil)
		return
	}
	rs.PC = target
}

func opPc(rs *RunState)    { rs.Stack.Push(uint256.NewInt(rs.PC)) }
func opMsize(rs *RunState) { rs.Stack.Push(uint256.NewInt(uint64(rs.Memory.Len()))) }
func opGas(rs *RunState)   { rs.Stack.Push(uint256.NewInt(rs.GasLeft)) }
func opJumpdest(rs *RunState) {}

func opTload(rs *RunState) {
	loc, _ := rs.Stack.Pop()
	key := types.BytesToHash(loc.Bytes())
	val := rs.EVM.StateDB.GetTransientStorage(rs.Address, key)
	var v uint256.Int
	v.SetBytes(val.Bytes())
	rs.Stack.Push(&v)
}

func opTstore(rs *RunState) {
	loc, _ := rs.Stack.Pop()
	val, _ := rs.Stack.Pop()
	key := types.BytesToHash(loc.Bytes())
	rs.EVM.StateDB.PutTransientStorage(rs.Address, key, types.BytesToHash(val.Bytes()))
}

func opMcopy(rs *RunState) {
	dst, _ := rs.Stack.Pop()
	src, _ := rs.Stack.Pop()
	length, _ := rs.Stack.Pop()
	rs.Memory.Copy(dst.Uint64(), src.Uint64(), length.Uint64())
}

func opPush0(rs *RunState) {
	rs.Stack.Push(uint256.NewInt(0))
	rs.PC++
}

// makePush returns a logicFn for PUSH1..PUSH32: read n bytes starting at
// pc+1, zero-extend, push, and advance pc by n+1.
func makePush(n int) LogicFunc {
	return func(rs *RunState) {
		start := rs.PC + 1
		data := getData(rs.Code, start, uint64(n))
		var v uint256.Int
		v.SetBytes(data)
		rs.Stack.Push(&v)
		rs.PC += uint64(n) + 1
	}
}

func makeDup(n int) LogicFunc {
	return func(rs *RunState) {
		if err := rs.Stack.Dup(n); err != nil {
			rs.Halt(haltForStackErr(err), nil)
		}
	}
}

func makeSwap(n int) LogicFunc {
	return func(rs *RunState) {
		if err := rs.Stack.Swap(n); err != nil {
			rs.Halt(haltForStackErr(err), nil)
		}
	}
}

func makeLog(n int) LogicFunc {
	return func(rs *RunState) {
		offset, _ := rs.Stack.Pop()
		size, _ := rs.Stack.Pop()
		topics := make([]types.Hash, n)
		for i := 0; i < n; i++ {
			t, _ := rs.Stack.Pop()
			topics[i] = types.BytesToHash(t.Bytes())
		}
		data := rs.Memory.Get(offset.Uint64(), size.Uint64())
		log := &types.Log{Address: rs.Address, Topics: topics, Data: data}
		rs.Logs = append(rs.Logs, log)
		rs.EVM.StateDB.AddLog(log)
	}
}

// Terminal opcodes.

func opStop(rs *RunState) { rs.Halt(HaltStop, nil) }

func opReturn(rs *RunState) {
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	rs.Halt(HaltReturn, rs.Memory.Get(offset.Uint64(), size.Uint64()))
}

func opRevert(rs *RunState) {
	offset, _ := rs.Stack.Pop()
	size, _ := rs.Stack.Pop()
	rs.Halt(HaltRevert, rs.Memory.Get(offset.Uint64(), size.Uint64()))
}

func opInvalid(rs *RunState) { rs.Halt(HaltInvalidOpcode, nil) }

func opSelfdestruct(rs *RunState) {
	beneficiaryWord, _ := rs.Stack.Pop()
	beneficiary := wordToAddress(&beneficiaryWord)
	balance := rs.EVM.StateDB.GetBalance(rs.Address)
	rs.EVM.StateDB.AddBalance(beneficiary, balance)
	if !rs.EVM.Rules.IsLondon() && !rs.EVM.StateDB.HasSelfDestructed(rs.Address) {
		rs.EVM.StateDB.AddRefund(GasSelfdestructRefund)
	}
	rs.EVM.StateDB.SelfDestruct(rs.Address)
	rs.Halt(HaltStop, nil)
}

// CALL-family and CREATE are implemented in evm.go (opCall, opCallCode,
// opDelegateCall, opStaticCall, opCreate, opCreate2), since they recurse
// into MessageCall.

// --- helpers ---

func wordToAddress(w *uint256.Int) types.Address {
	b := w.Bytes20()
	return types.Address(b)
}

// getData returns data[offset:offset+length], zero-padding past the end,
// matching CALLDATACOPY/CODECOPY/EXTCODECOPY out-of-range semantics.
func getData(data []byte, offset, length uint64) []byte {
	out := make([]byte, length)
	if offset >= uint64(len(data)) {
		return out
	}
	end := offset + length
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(out, data[offset:end])
	return out
}

func haltForStackErr(err error) HaltReason {
	if err == ErrStackOverflow {
		return HaltStackOverflow
	}
	return HaltStackUnderflow
}
