package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethforge/evmcore/core/types"
)

// RunCodeOpts parameterizes a direct code execution: the bytecode to run
// and the frame context it should observe. Zero values are usable
// defaults (empty calldata, zero caller/address/value, depth 0).
type RunCodeOpts struct {
	Code     []byte
	Data     []byte
	GasLimit uint64
	Caller   types.Address
	Origin   types.Address
	Address  types.Address
	Value    *uint256.Int
	Depth    int
	IsStatic bool
}

// RunCodeResult is the outcome of RunCode. ExceptionError is non-nil
// whenever the execution failed, even if ReturnValue is non-empty (the
// revert case carries the revert payload alongside the error).
type RunCodeResult struct {
	ExecutionGasUsed uint64
	ReturnValue      []byte
	ExceptionError   error
	RunState         *RunState
	Gas              uint64 // gas remaining after execution and refund
	Logs             []*types.Log
}

// RunCode executes raw bytecode in a fresh frame against the EVM's state,
// without loading code from an account. It is the harness-facing entry
// point; transaction-shaped execution goes through MessageCall. The
// refund counter is applied to the gas accounting on successful
// completion.
func (evm *EVM) RunCode(opts RunCodeOpts) RunCodeResult {
	value := opts.Value
	if value == nil {
		value = uint256.NewInt(0)
	}
	if !opts.Origin.IsZero() {
		evm.TxContext.Origin = opts.Origin
	}
	if evm.TxContext.GasPrice == nil {
		evm.TxContext.GasPrice = uint256.NewInt(0)
	}

	evm.abort = false
	checkpoint := evm.StateDB.Checkpoint()

	rs := NewRunState(evm, opts.Code, ComputeJumpdests(opts.Code))
	rs.GasLeft = opts.GasLimit
	rs.Caller = opts.Caller
	rs.Address = opts.Address
	rs.Value = value
	rs.CallData = opts.Data
	rs.IsStatic = opts.IsStatic
	rs.Depth = opts.Depth
	rs.Checkpoint = checkpoint

	evm.depth++
	evm.run(rs)
	evm.depth--

	success := rs.halt == HaltStop || rs.halt == HaltReturn
	if success {
		evm.StateDB.Commit(checkpoint)
	} else {
		evm.StateDB.Revert(checkpoint)
	}

	gasUsed := opts.GasLimit - rs.GasLeft
	gasLeft := rs.GasLeft
	if success {
		refund := evm.StateDB.GetRefund()
		if limit := gasUsed / evm.Rules.RefundQuotient(); refund > limit {
			refund = limit
		}
		gasUsed -= refund
		gasLeft += refund
	}

	result := RunCodeResult{
		ExecutionGasUsed: gasUsed,
		ReturnValue:      rs.Output(),
		RunState:         rs,
		Gas:              gasLeft,
		Logs:             rs.Logs,
	}
	if !success {
		result.ExceptionError = rs.halt
	}
	return result
}
