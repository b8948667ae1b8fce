package vm

import "github.com/holiman/uint256"

// Memory is the EVM's byte-addressable call-local memory. Length is always
// a multiple of 32 at every opcode boundary; growth is charged by the
// quadratic expansion formula below.
type Memory struct {
	store []byte
}

// NewMemory returns empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Len returns the current size of memory in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Words returns the current size of memory in 32-byte words.
func (m *Memory) Words() uint64 { return uint64(len(m.store)) / 32 }

// Resize grows memory so it is at least size bytes, rounded up to the next
// 32-byte word boundary. It never shrinks memory.
func (m *Memory) Resize(size uint64) {
	words := (size + 31) / 32
	need := words * 32
	if uint64(len(m.store)) >= need {
		return
	}
	grown := make([]byte, need)
	copy(grown, m.store)
	m.store = grown
}

// Set writes value into memory at offset. The caller must have already
// resized memory to cover [offset, offset+len(value)).
func (m *Memory) Set(offset uint64, value []byte) {
	if len(value) == 0 {
		return
	}
	copy(m.store[offset:offset+uint64(len(value))], value)
}

// Set32 writes a 256-bit value at offset, big-endian, zero padded.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	b := val.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// Get returns a copy of memory[offset:offset+size]. Bytes past the
// allocated length are zero (callers resize before reading in practice,
// but Get tolerates an unresized tail for convenience).
func (m *Memory) Get(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	if offset >= uint64(len(m.store)) {
		return out
	}
	end := offset + size
	if end > uint64(len(m.store)) {
		end = uint64(len(m.store))
	}
	copy(out, m.store[offset:end])
	return out
}

// GetPtr returns a direct slice into memory[offset:offset+size]. The
// region must already be allocated.
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Copy implements MCOPY / identity-precompile style overlap-safe copying
// within memory.
func (m *Memory) Copy(dst, src, length uint64) {
	if length == 0 {
		return
	}
	copy(m.store[dst:dst+length], m.store[src:src+length])
}

// quadraticMemoryCost returns the Yellow Paper memory cost C_mem(words) =
// GasMemory*words + floor(words^2/512).
func quadraticMemoryCost(words uint64) uint64 {
	return GasMemory*words + (words*words)/512
}

// MemoryExpansionCost returns the incremental gas cost of growing memory
// from its current size to cover newSize bytes (0 if newSize doesn't
// require growth).
func (m *Memory) MemoryExpansionCost(newSize uint64) uint64 {
	if newSize == 0 {
		return 0
	}
	newWords := (newSize + 31) / 32
	newCost := quadraticMemoryCost(newWords)
	oldWords := m.Words()
	oldCost := quadraticMemoryCost(oldWords)
	if newCost <= oldCost {
		return 0
	}
	return newCost - oldCost
}
