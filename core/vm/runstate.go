package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
)

// RunState is the per-call execution context the interpreter mutates one
// opcode at a time. It is created at call entry and discarded at call exit;
// its mutations are visible only to the owning frame until MessageCall
// commits the journal checkpoint.
type RunState struct {
	EVM *EVM

	PC         uint64
	GasLeft    uint64
	Stack      *Stack
	Memory     *Memory
	ReturnData []byte // last sub-call's return buffer, readable via RETURNDATACOPY
	Code       []byte
	Caller     types.Address
	Address    types.Address
	Value      *uint256.Int
	CallData   []byte
	IsStatic   bool
	Depth      int
	Logs       []*types.Log
	Refund     uint64

	Checkpoint int // journal snapshot id taken at frame entry

	jumpdests map[uint64]bool

	halt       HaltReason
	haltOutput []byte
}

// NewRunState constructs a call frame. jumpdests is the precomputed set of
// valid JUMP targets for code (see ComputeJumpdests).
func NewRunState(evm *EVM, code []byte, jumpdests map[uint64]bool) *RunState {
	return &RunState{
		EVM:       evm,
		Stack:     NewStack(),
		Memory:    NewMemory(),
		Code:      code,
		jumpdests: jumpdests,
	}
}

// GetOp returns the opcode byte at pc, or STOP if pc is past the end of code.
func (rs *RunState) GetOp(pc uint64) OpCode {
	if pc >= uint64(len(rs.Code)) {
		return STOP
	}
	return OpCode(rs.Code[pc])
}

// Halt terminates the current frame with the given reason and output. It is
// idempotent: only the first call takes effect, matching the interpreter's
// exit-on-first-halt contract.
func (rs *RunState) Halt(reason HaltReason, output []byte) {
	if rs.halt != HaltNone {
		return
	}
	rs.halt = reason
	rs.haltOutput = output
}

// HaltReason returns the frame's terminal condition, or HaltNone if still running.
func (rs *RunState) HaltReason() HaltReason { return rs.halt }

// Output returns the frame's return/revert data.
func (rs *RunState) Output() []byte { return rs.haltOutput }

// ValidJumpDest reports whether dest is a JUMPDEST not embedded in a PUSH
// immediate.
func (rs *RunState) ValidJumpDest(dest uint64) bool {
	return rs.jumpdests[dest]
}

// ComputeJumpdests walks code once, returning the set of byte offsets that
// hold a JUMPDEST opcode not inside a PUSH immediate.
func ComputeJumpdests(code []byte) map[uint64]bool {
	dests := make(map[uint64]bool)
	for pc := uint64(0); pc < uint64(len(code)); pc++ {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			dests[pc] = true
			continue
		}
		if n := op.PushSize(); n > 0 {
			pc += uint64(n)
		}
	}
	return dests
}
