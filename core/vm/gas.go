package vm

// Fixed per-step gas costs, named by the Yellow Paper's fee tiers.
const (
	GasQuickStep    uint64 = 2
	GasFastestStep  uint64 = 3
	GasFastStep     uint64 = 5
	GasMidStep      uint64 = 8
	GasSlowStep     uint64 = 10
	GasExtStep      uint64 = 20

	GasStop     uint64 = 0
	GasPop      uint64 = 2
	GasJumpDest uint64 = 1
	GasJump     uint64 = 8
	GasJumpi    uint64 = 10
	GasPc       uint64 = 2
	GasMsize    uint64 = 2
	GasGas      uint64 = 2
	GasPush     uint64 = 3
	GasPush0    uint64 = 2
	GasDup      uint64 = 3
	GasSwap     uint64 = 3
	GasMload    uint64 = 3
	GasMstore   uint64 = 3
	GasMstore8  uint64 = 3
	GasReturn   uint64 = 0
	GasRevert   uint64 = 0
	GasKeccak256     uint64 = 30
	GasKeccak256Word uint64 = 6
	GasCopyWord      uint64 = 3
	GasLog       uint64 = 375
	GasLogTopic  uint64 = 375
	GasLogData   uint64 = 8

	// GasMemory is the linear coefficient in the quadratic memory-expansion
	// formula: C_mem(words) = GasMemory*words + floor(words^2/512).
	GasMemory uint64 = 3

	GasSloadCold     uint64 = 2100
	GasSloadWarm     uint64 = 100
	GasBalanceCold   uint64 = 2600
	GasBalanceWarm   uint64 = 100
	GasExtcodeCold   uint64 = 2600
	GasExtcodeWarm   uint64 = 100
	GasColdAccountAccess uint64 = 2600
	GasWarmAccess        uint64 = 100

	GasSstoreSet     uint64 = 20000
	GasSstoreReset   uint64 = 5000
	GasSstoreClearRefund uint64 = 4800 // post-London (EIP-3529)

	GasCallStipend    uint64 = 2300
	GasCallValue      uint64 = 9000
	GasCallNewAccount  uint64 = 25000
	GasCallCold       uint64 = 2600
	GasCallWarm       uint64 = 100

	GasCreate           uint64 = 32000
	GasCreateDataWord   uint64 = 200
	GasSelfdestruct     uint64 = 5000
	GasSelfdestructNewAccount uint64 = 25000
	GasSelfdestructRefund     uint64 = 24000 // removed by EIP-3529 (London)

	// MaxRefundQuotient: total refund is capped at executionGasUsed/5
	// post-London (it was /2 pre-London; see ChainRules.RefundQuotient).
	MaxRefundQuotientLondon uint64 = 5
	MaxRefundQuotientLegacy uint64 = 2
)
