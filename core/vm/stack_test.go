package vm

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestStackPushPop(t *testing.T) {
	s := NewStack()
	if s.Len() != 0 {
		t.Fatalf("new stack len = %d", s.Len())
	}
	for i := uint64(1); i <= 3; i++ {
		if err := s.Push(uint256.NewInt(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	for want := uint64(3); want >= 1; want-- {
		v, err := s.Pop()
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if v.Uint64() != want {
			t.Errorf("pop = %d, want %d", v.Uint64(), want)
		}
	}
	if _, err := s.Pop(); err != ErrStackUnderflow {
		t.Errorf("pop empty = %v, want underflow", err)
	}
}

func TestStackOverflow(t *testing.T) {
	s := NewStack()
	for i := 0; i < StackLimit; i++ {
		if err := s.Push(uint256.NewInt(uint64(i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := s.Push(uint256.NewInt(0)); err != ErrStackOverflow {
		t.Errorf("push past limit = %v, want overflow", err)
	}
	if err := s.Dup(1); err != ErrStackOverflow {
		t.Errorf("dup at limit = %v, want overflow", err)
	}
}

func TestStackSwap(t *testing.T) {
	s := NewStack()
	for i := uint64(0); i < 5; i++ {
		s.Push(uint256.NewInt(i))
	}
	// Stack bottom-to-top: 0 1 2 3 4. Swap(3) exchanges top with the 4th
	// from top.
	if err := s.Swap(3); err != nil {
		t.Fatalf("swap: %v", err)
	}
	top, _ := s.Peek()
	if top.Uint64() != 1 {
		t.Errorf("top after swap = %d, want 1", top.Uint64())
	}
	fourth, _ := s.Back(3)
	if fourth.Uint64() != 4 {
		t.Errorf("4th after swap = %d, want 4", fourth.Uint64())
	}
	if err := s.Swap(5); err != ErrStackUnderflow {
		t.Errorf("swap too deep = %v, want underflow", err)
	}
}

func TestStackDup(t *testing.T) {
	s := NewStack()
	s.Push(uint256.NewInt(7))
	s.Push(uint256.NewInt(9))
	if err := s.Dup(2); err != nil {
		t.Fatalf("dup: %v", err)
	}
	top, _ := s.Peek()
	if top.Uint64() != 7 {
		t.Errorf("top after dup(2) = %d, want 7", top.Uint64())
	}
	if s.Len() != 3 {
		t.Errorf("len = %d, want 3", s.Len())
	}
	if err := s.Dup(4); err != ErrStackUnderflow {
		t.Errorf("dup too deep = %v, want underflow", err)
	}
}
