package vm

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
)

func TestCallEndToEnd(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	callee := types.BytesToAddress([]byte{0xbb})
	// Callee returns a 32-byte word holding 0x2a.
	evm.StateDB.PutContractCode(callee, mustHex(t, "602a60005260206000f3"))

	// Caller CALLs 0xbb and returns the sub-call's output.
	caller := mustHex(t, "6020600060006000600060bb61fffff15060206000f3")
	result := evm.RunCode(RunCodeOpts{Code: caller, GasLimit: 200000})
	if result.ExceptionError != nil {
		t.Fatalf("unexpected error: %v", result.ExceptionError)
	}
	if len(result.ReturnValue) != 32 || result.ReturnValue[31] != 0x2a {
		t.Errorf("return = %x, want ...2a", result.ReturnValue)
	}
}

func TestCallToEmptyAccountSucceeds(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	result := evm.Call(types.Address{}, types.BytesToAddress([]byte{0xee}), uint256.NewInt(0), 50000, nil)
	if result.Failed() {
		t.Fatalf("call to codeless account should succeed, got %v", result.Halt)
	}
	if result.GasLeft != 50000 {
		t.Errorf("gas left = %d, want 50000", result.GasLeft)
	}
	if len(result.ReturnData) != 0 {
		t.Errorf("return data = %x, want empty", result.ReturnData)
	}
}

func TestCallInsufficientBalance(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	caller := types.BytesToAddress([]byte{0xaa})
	result := evm.Call(caller, types.BytesToAddress([]byte{0xbb}), uint256.NewInt(100), 50000, nil)
	if result.Halt != HaltInsufficientBalance {
		t.Fatalf("halt = %v, want insufficient balance", result.Halt)
	}
	if result.GasLeft != 50000 {
		t.Errorf("gas left = %d, want 50000 (fail without entering)", result.GasLeft)
	}
}

func TestCallDepthLimit(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	evm.depth = MaxCallDepth + 1
	result := evm.Call(types.Address{}, types.BytesToAddress([]byte{0xbb}), uint256.NewInt(0), 777, nil)
	if result.Halt != HaltCallDepthExceeded {
		t.Fatalf("halt = %v, want depth exceeded", result.Halt)
	}
	if result.GasLeft != 777 {
		t.Errorf("gas left = %d, want 777 (fail without entering)", result.GasLeft)
	}
}

func TestValueTransfer(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	from := types.BytesToAddress([]byte{0xaa})
	to := types.BytesToAddress([]byte{0xbb})
	evm.StateDB.AddBalance(from, uint256.NewInt(1000))

	result := evm.Call(from, to, uint256.NewInt(300), 50000, nil)
	if result.Failed() {
		t.Fatalf("call failed: %v", result.Halt)
	}
	if got := evm.StateDB.GetBalance(from); !got.Eq(uint256.NewInt(700)) {
		t.Errorf("sender balance = %v, want 700", got)
	}
	if got := evm.StateDB.GetBalance(to); !got.Eq(uint256.NewInt(300)) {
		t.Errorf("recipient balance = %v, want 300", got)
	}
}

func TestRevertRollsBackValue(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	from := types.BytesToAddress([]byte{0xaa})
	to := types.BytesToAddress([]byte{0xbb})
	evm.StateDB.AddBalance(from, uint256.NewInt(1000))
	evm.StateDB.PutContractCode(to, mustHex(t, "60006000fd"))

	result := evm.Call(from, to, uint256.NewInt(300), 50000, nil)
	if result.Halt != HaltRevert {
		t.Fatalf("halt = %v, want revert", result.Halt)
	}
	if got := evm.StateDB.GetBalance(from); !got.Eq(uint256.NewInt(1000)) {
		t.Errorf("sender balance = %v, want 1000 (rolled back)", got)
	}
	if got := evm.StateDB.GetBalance(to); !got.IsZero() {
		t.Errorf("recipient balance = %v, want 0 (rolled back)", got)
	}
}

func TestStaticCallForbidsWrites(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	target := types.BytesToAddress([]byte{0xbb})
	evm.StateDB.PutContractCode(target, mustHex(t, "6001600055"))

	result := evm.StaticCall(types.Address{}, target, 50000, nil)
	if result.Halt != HaltStaticStateChange {
		t.Fatalf("halt = %v, want static state change", result.Halt)
	}
	if result.GasLeft != 0 {
		t.Errorf("gas left = %d, want 0 (exceptional halt consumes all)", result.GasLeft)
	}
}

func TestCreateDeploysCode(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	creator := types.BytesToAddress([]byte{0xaa})
	// Initcode copies its trailing byte (STOP) out as the runtime code.
	initcode := mustHex(t, "6001600c60003960016000f300")

	result := evm.MessageCall(creator, nil, uint256.NewInt(0), 200000, initcode)
	if result.Failed() {
		t.Fatalf("create failed: %v (%v)", result.Halt, result.Err)
	}
	created := types.BytesToAddress(result.ReturnData)
	code := evm.StateDB.GetContractCode(created)
	if len(code) != 1 || code[0] != 0x00 {
		t.Errorf("deployed code = %x, want 00", code)
	}
	if evm.StateDB.GetNonce(created) != 1 {
		t.Errorf("created account nonce = %d, want 1", evm.StateDB.GetNonce(created))
	}
}

func TestCreateRejectsEFPrefix(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	creator := types.BytesToAddress([]byte{0xaa})
	// Initcode returning a single 0xEF byte: MSTORE8 then RETURN.
	initcode := mustHex(t, "60ef60005360016000f3")

	result := evm.MessageCall(creator, nil, uint256.NewInt(0), 200000, initcode)
	if result.Halt != HaltInvalidBytecodeResult {
		t.Fatalf("halt = %v, want invalid bytecode", result.Halt)
	}
}

func TestCreateInitcodeSizeCap(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: Shanghai})
	creator := types.BytesToAddress([]byte{0xaa})
	initcode := make([]byte, MaxInitcodeSize+1)

	result := evm.MessageCall(creator, nil, uint256.NewInt(0), 10_000_000, initcode)
	if result.Halt != HaltInitcodeSizeViolation {
		t.Fatalf("halt = %v, want initcode size violation", result.Halt)
	}
	// Pre-Shanghai rules accept the same initcode (it is all STOPs).
	evmOld := newTestEVM(t, Config{Hardfork: London})
	result = evmOld.MessageCall(creator, nil, uint256.NewInt(0), 10_000_000, initcode)
	if result.Failed() {
		t.Fatalf("pre-Shanghai create failed: %v", result.Halt)
	}
}

func TestCreateCollision(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	creator := types.BytesToAddress([]byte{0xaa})

	first := evm.MessageCall(creator, nil, uint256.NewInt(0), 200000, mustHex(t, "6001600c60003960016000f300"))
	if first.Failed() {
		t.Fatalf("first create failed: %v", first.Halt)
	}
	// Reset the creator nonce so the second create derives the same address.
	evm.StateDB.SetNonce(creator, 0)
	second := evm.MessageCall(creator, nil, uint256.NewInt(0), 200000, mustHex(t, "6001600c60003960016000f300"))
	if second.Halt != HaltCreateCollision {
		t.Fatalf("halt = %v, want create collision", second.Halt)
	}
}

func TestSixtyFourthsReservation(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	callee := types.BytesToAddress([]byte{0xbb})
	// Callee burns everything it is given.
	evm.StateDB.PutContractCode(callee, mustHex(t, "5b600056"))

	// Caller forwards as much as possible, then STOPs. The 1/64
	// reservation must leave it enough gas to finish.
	callerCode := mustHex(t, "6000600060006000600060bb5af100")
	result := evm.RunCode(RunCodeOpts{Code: callerCode, GasLimit: 100000})
	if result.ExceptionError != nil {
		t.Fatalf("caller should survive sub-call OOG: %v", result.ExceptionError)
	}
	if top, _ := result.RunState.Stack.Peek(); !top.IsZero() {
		t.Errorf("sub-call success flag = %v, want 0", top)
	}
}

func TestDelegateCallPreservesContext(t *testing.T) {
	evm := newTestEVM(t, Config{Hardfork: London})
	lib := types.BytesToAddress([]byte{0xcc})
	self := types.BytesToAddress([]byte{0xaa})
	// Library code stores CALLER at slot 0.
	evm.StateDB.PutContractCode(lib, mustHex(t, "33600055"))

	caller := types.BytesToAddress([]byte{0x11})
	// Run delegatecall from a frame at address self with caller 0x11:
	// the library must observe caller == 0x11 and write to self's storage.
	code := mustHex(t, "600060006000600060cc61fffff400")
	run := evm.RunCode(RunCodeOpts{Code: code, GasLimit: 200000, Caller: caller, Address: self})
	if run.ExceptionError != nil {
		t.Fatalf("delegatecall failed: %v", run.ExceptionError)
	}
	stored := evm.StateDB.GetContractStorage(self, types.Hash{})
	if types.BytesToAddress(stored.Bytes()[12:]) != caller {
		t.Errorf("stored caller = %x, want %v", stored.Bytes(), caller)
	}
}
