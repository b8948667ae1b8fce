// Package rlp implements the minimal subset of Ethereum's Recursive Length
// Prefix encoding the execution core needs to persist receipts and logs.
// It is deliberately narrow (bytes, uint64, and lists of those) rather than
// a general reflective codec: the core's only wire-format surface is the
// Receipt/Log shape fixed by the receipt store, so a small purpose-built
// encoder/decoder is clearer than a type-generic one.
package rlp

import (
	"encoding/binary"
	"errors"
)

var (
	ErrUnexpectedEOF = errors.New("rlp: unexpected end of input")
	ErrExpectedList  = errors.New("rlp: expected list")
	ErrExpectedString = errors.New("rlp: expected string")
	ErrListTooLong    = errors.New("rlp: list header exceeds buffer")
)

// EncodeBytes returns the RLP string encoding of b.
func EncodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(header(0x80, 0xb7, len(b)), b...)
}

// EncodeUint64 returns the RLP string encoding of u's minimal big-endian
// representation (empty string for zero).
func EncodeUint64(u uint64) []byte {
	if u == 0 {
		return []byte{0x80}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	i := 0
	for i < 8 && buf[i] == 0 {
		i++
	}
	return EncodeBytes(buf[i:])
}

// WrapList wraps the concatenation of already-encoded items as an RLP list.
func WrapList(items ...[]byte) []byte {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	return append(header(0xc0, 0xf7, len(payload)), payload...)
}

// header builds the length-prefix for a string (short=0x80,long=0xb7) or
// list (short=0xc0,long=0xf7) of the given payload length.
func header(short, long byte, n int) []byte {
	if n <= 55 {
		return []byte{short + byte(n)}
	}
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(n))
	i := 0
	for i < 8 && lenBuf[i] == 0 {
		i++
	}
	lb := lenBuf[i:]
	out := make([]byte, 0, 1+len(lb))
	out = append(out, long+byte(len(lb)))
	return append(out, lb...)
}

// Stream decodes a sequence of RLP items, tracking nested list boundaries
// so callers can detect the end of a list without knowing its item count.
type Stream struct {
	data  []byte
	pos   int
	ends  []int // exclusive end offset of each currently-open list
}

// NewStream returns a Stream reading from data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data}
}

// readHeader parses the prefix byte(s) at pos, returning the item kind
// (0=string,1=list), the payload bounds, and the offset just past the item.
func (s *Stream) readHeader() (isList bool, start, end int, err error) {
	if s.pos >= len(s.data) {
		return false, 0, 0, ErrUnexpectedEOF
	}
	b := s.data[s.pos]
	switch {
	case b < 0x80:
		return false, s.pos, s.pos + 1, nil
	case b < 0xb8:
		n := int(b - 0x80)
		start = s.pos + 1
		end = start + n
	case b < 0xc0:
		ll := int(b - 0xb7)
		if s.pos+1+ll > len(s.data) {
			return false, 0, 0, ErrUnexpectedEOF
		}
		n := int(beUint(s.data[s.pos+1 : s.pos+1+ll]))
		start = s.pos + 1 + ll
		end = start + n
	case b < 0xf8:
		n := int(b - 0xc0)
		start = s.pos + 1
		end = start + n
		isList = true
	default:
		ll := int(b - 0xf7)
		if s.pos+1+ll > len(s.data) {
			return false, 0, 0, ErrUnexpectedEOF
		}
		n := int(beUint(s.data[s.pos+1 : s.pos+1+ll]))
		start = s.pos + 1 + ll
		end = start + n
		isList = true
	}
	if end > len(s.data) {
		return false, 0, 0, ErrUnexpectedEOF
	}
	return isList, start, end, nil
}

func beUint(b []byte) uint64 {
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}

// List enters a list, returning the number of payload bytes it contains.
func (s *Stream) List() (int, error) {
	isList, start, end, err := s.readHeader()
	if err != nil {
		return 0, err
	}
	if !isList {
		return 0, ErrExpectedList
	}
	s.pos = start
	s.ends = append(s.ends, end)
	return end - start, nil
}

// ListEnd closes the innermost open list, skipping any unread trailing items.
func (s *Stream) ListEnd() error {
	if len(s.ends) == 0 {
		return ErrExpectedList
	}
	end := s.ends[len(s.ends)-1]
	s.ends = s.ends[:len(s.ends)-1]
	if end > len(s.data) {
		return ErrListTooLong
	}
	s.pos = end
	return nil
}

// AtListEnd reports whether the stream has reached the end of the
// innermost open list (or end of input if no list is open).
func (s *Stream) AtListEnd() bool {
	if len(s.ends) == 0 {
		return s.pos >= len(s.data)
	}
	return s.pos >= s.ends[len(s.ends)-1]
}

// Bytes decodes the next item as a string.
func (s *Stream) Bytes() ([]byte, error) {
	isList, start, end, err := s.readHeader()
	if err != nil {
		return nil, err
	}
	if isList {
		return nil, ErrExpectedString
	}
	s.pos = end
	out := make([]byte, end-start)
	copy(out, s.data[start:end])
	return out, nil
}

// Uint64 decodes the next item as a minimal big-endian unsigned integer.
func (s *Stream) Uint64() (uint64, error) {
	b, err := s.Bytes()
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, errors.New("rlp: uint64 overflow")
	}
	return beUint(b), nil
}
