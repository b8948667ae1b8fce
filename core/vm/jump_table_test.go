package vm

import "testing"

func TestDefaultsNeverMutated(t *testing.T) {
	defaults := DEFAULTS(London)
	addBefore := defaults[ADD]
	if addBefore == nil {
		t.Fatal("ADD missing from London defaults")
	}

	table := NewOpcodeTable(London, []CustomOpcode{{Opcode: byte(ADD)}})
	if table.Lookup(ADD) != nil {
		t.Error("overlay deletion did not hide ADD")
	}
	if DEFAULTS(London)[ADD] != addBefore {
		t.Error("DEFAULTS mutated by overlay construction")
	}

	fresh := NewOpcodeTable(London, nil)
	if fresh.Lookup(ADD) == nil {
		t.Error("fresh table lost ADD after another table deleted it")
	}
}

func TestOverlayOverrideAndDelete(t *testing.T) {
	custom := []CustomOpcode{
		{Opcode: 0x21, Name: "TEST", BaseFee: 333,
			GasFn:   func(rs *RunState, baseFee uint64) uint64 { return baseFee },
			LogicFn: func(rs *RunState) {}},
		{Opcode: byte(MUL)},
	}
	table := NewOpcodeTable(London, custom)

	desc := table.Lookup(0x21)
	if desc == nil || desc.Name != "TEST" || desc.BaseFee != 333 {
		t.Fatalf("custom descriptor = %+v", desc)
	}
	if desc.MaxStack != StackLimit {
		t.Errorf("unset MaxStack = %d, want StackLimit", desc.MaxStack)
	}
	if table.Lookup(MUL) != nil {
		t.Error("deleted MUL still resolves")
	}
	if table.Lookup(ADD) == nil {
		t.Error("untouched default ADD missing")
	}
}

func TestOverlayLaterEntryWins(t *testing.T) {
	custom := []CustomOpcode{
		{Opcode: 0x21, Name: "FIRST", GasFn: constGas(1), LogicFn: func(rs *RunState) {}},
		{Opcode: 0x21, Name: "SECOND", GasFn: constGas(2), LogicFn: func(rs *RunState) {}},
	}
	table := NewOpcodeTable(London, custom)
	if desc := table.Lookup(0x21); desc == nil || desc.Name != "SECOND" {
		t.Errorf("lookup = %+v, want SECOND", table.Lookup(0x21))
	}
}

func TestTableCloneIsolation(t *testing.T) {
	table := NewOpcodeTable(London, []CustomOpcode{{Opcode: byte(ADD)}})
	clone := table.Clone()

	clone.overlay[byte(MUL)] = overlayEntry{deleted: true}
	if table.Lookup(MUL) == nil {
		t.Error("mutating clone overlay affected original")
	}
	if clone.Lookup(ADD) != nil {
		t.Error("clone lost inherited deletion")
	}
}

func TestForkTableProgression(t *testing.T) {
	tests := []struct {
		fork    Hardfork
		op      OpCode
		present bool
	}{
		{Frontier, DELEGATECALL, false},
		{Homestead, DELEGATECALL, true},
		{SpuriousDragon, REVERT, false},
		{Byzantium, REVERT, true},
		{Byzantium, CREATE2, false},
		{Constantinople, CREATE2, true},
		{Istanbul, BASEFEE, false},
		{London, BASEFEE, true},
		{Merge, PUSH0, false},
		{Shanghai, PUSH0, true},
		{Shanghai, MCOPY, false},
		{Cancun, MCOPY, true},
		{Cancun, TLOAD, true},
	}
	for _, tt := range tests {
		table := NewOpcodeTable(tt.fork, nil)
		got := table.Lookup(tt.op) != nil
		if got != tt.present {
			t.Errorf("fork %d op %v present = %v, want %v", tt.fork, tt.op, got, tt.present)
		}
	}
}

func TestJumpdestAnalysis(t *testing.T) {
	// PUSH2 0x5b5b JUMPDEST: the two immediate 0x5b bytes are not
	// destinations; the real JUMPDEST at offset 3 is.
	dests := ComputeJumpdests([]byte{0x61, 0x5b, 0x5b, 0x5b})
	if dests[1] || dests[2] {
		t.Error("PUSH immediate treated as JUMPDEST")
	}
	if !dests[3] {
		t.Error("real JUMPDEST missed")
	}
}
