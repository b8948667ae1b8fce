package rlp

import (
	"bytes"
	"testing"
)

func TestEncodeBytes(t *testing.T) {
	tests := []struct {
		in   []byte
		want []byte
	}{
		{nil, []byte{0x80}},
		{[]byte{0x00}, []byte{0x00}},
		{[]byte{0x7f}, []byte{0x7f}},
		{[]byte{0x80}, []byte{0x81, 0x80}},
		{[]byte("dog"), []byte{0x83, 'd', 'o', 'g'}},
	}
	for _, tt := range tests {
		if got := EncodeBytes(tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeBytes(%x) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestEncodeLongString(t *testing.T) {
	in := make([]byte, 56)
	got := EncodeBytes(in)
	if got[0] != 0xb8 || got[1] != 56 {
		t.Errorf("long string header = %x", got[:2])
	}
	if len(got) != 58 {
		t.Errorf("long string length = %d", len(got))
	}
}

func TestEncodeUint64(t *testing.T) {
	tests := []struct {
		in   uint64
		want []byte
	}{
		{0, []byte{0x80}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{1024, []byte{0x82, 0x04, 0x00}},
	}
	for _, tt := range tests {
		if got := EncodeUint64(tt.in); !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeUint64(%d) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestListRoundTrip(t *testing.T) {
	enc := WrapList(
		EncodeBytes([]byte("cat")),
		EncodeUint64(42),
		WrapList(EncodeBytes([]byte("dog"))),
	)

	s := NewStream(enc)
	if _, err := s.List(); err != nil {
		t.Fatal(err)
	}
	b, err := s.Bytes()
	if err != nil || string(b) != "cat" {
		t.Fatalf("first item = %q, %v", b, err)
	}
	u, err := s.Uint64()
	if err != nil || u != 42 {
		t.Fatalf("second item = %d, %v", u, err)
	}
	if _, err := s.List(); err != nil {
		t.Fatal(err)
	}
	b, err = s.Bytes()
	if err != nil || string(b) != "dog" {
		t.Fatalf("nested item = %q, %v", b, err)
	}
	if !s.AtListEnd() {
		t.Error("nested list not at end")
	}
	if err := s.ListEnd(); err != nil {
		t.Fatal(err)
	}
	if err := s.ListEnd(); err != nil {
		t.Fatal(err)
	}
	if !s.AtListEnd() {
		t.Error("stream not exhausted")
	}
}

func TestEmptyList(t *testing.T) {
	enc := WrapList()
	if !bytes.Equal(enc, []byte{0xc0}) {
		t.Fatalf("empty list = %x", enc)
	}
	s := NewStream(enc)
	if _, err := s.List(); err != nil {
		t.Fatal(err)
	}
	if !s.AtListEnd() {
		t.Error("empty list has items")
	}
}

func TestDecodeErrors(t *testing.T) {
	s := NewStream([]byte{0x83, 'd', 'o'}) // truncated string
	if _, err := s.Bytes(); err != ErrUnexpectedEOF {
		t.Errorf("truncated string error = %v", err)
	}

	s = NewStream([]byte{0x83, 'd', 'o', 'g'})
	if _, err := s.List(); err != ErrExpectedList {
		t.Errorf("string-as-list error = %v", err)
	}

	s = NewStream([]byte{0xc1, 0x01})
	if _, err := s.Uint64(); err == nil {
		t.Error("list-as-uint accepted")
	}
}

func TestUint64Overflow(t *testing.T) {
	enc := EncodeBytes(make([]byte, 9))
	s := NewStream(enc)
	if _, err := s.Uint64(); err == nil {
		t.Error("9-byte integer accepted as uint64")
	}
}
