package types

import "github.com/ethforge/evmcore/rlp"

// EncodeRLP returns the consensus RLP encoding of a receipt:
// [stateRootOrStatus, cumulativeGasUsed, logs]. Pre-Byzantium receipts
// encode a 32-byte state root; post-Byzantium receipts encode a minimal
// big-endian status integer. Typed receipts (TxType != 0) are prefixed
// with the type byte, per EIP-2718.
func (r *Receipt) EncodeRLP() []byte {
	var stateOrStatus []byte
	if r.PostByzantium {
		stateOrStatus = rlp.EncodeUint64(r.Status)
	} else {
		stateOrStatus = rlp.EncodeBytes(r.PostState)
	}

	logItems := make([][]byte, len(r.Logs))
	for i, l := range r.Logs {
		logItems[i] = encodeLogRLP(l)
	}

	body := rlp.WrapList(
		stateOrStatus,
		rlp.EncodeUint64(r.CumulativeGasUsed),
		rlp.WrapList(logItems...),
	)
	if r.TxType == 0 {
		return body
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, r.TxType)
	return append(out, body...)
}

// EncodeReceiptList encodes a block's receipts for storage: an RLP list
// whose elements are the byte-string encodings of each receipt. Wrapping
// each receipt as a string keeps EIP-2718 typed receipts (whose encoding
// starts with a bare type byte) well-formed inside the outer list.
func EncodeReceiptList(receipts []*Receipt) []byte {
	items := make([][]byte, len(receipts))
	for i, r := range receipts {
		items[i] = rlp.EncodeBytes(r.EncodeRLP())
	}
	return rlp.WrapList(items...)
}

// DecodeReceiptList decodes bytes produced by EncodeReceiptList.
func DecodeReceiptList(data []byte) ([]*Receipt, error) {
	s := rlp.NewStream(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}
	var receipts []*Receipt
	for !s.AtListEnd() {
		enc, err := s.Bytes()
		if err != nil {
			return nil, err
		}
		r, err := DecodeReceiptRLP(enc)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return receipts, nil
}

// EncodeRLP returns the log's consensus encoding [address, [topic...], data].
func (l *Log) EncodeRLP() []byte { return encodeLogRLP(l) }

func encodeLogRLP(l *Log) []byte {
	topicItems := make([][]byte, len(l.Topics))
	for i, t := range l.Topics {
		topicItems[i] = rlp.EncodeBytes(t.Bytes())
	}
	return rlp.WrapList(
		rlp.EncodeBytes(l.Address.Bytes()),
		rlp.WrapList(topicItems...),
		rlp.EncodeBytes(l.Data),
	)
}

// DecodeReceiptRLP decodes bytes produced by EncodeRLP. A leading byte
// below 0x80 is treated as an EIP-2718 type prefix. The receipt variant
// (pre- vs post-Byzantium) is determined by the decoded length of the
// first field: exactly 32 bytes selects pre-Byzantium (a state root);
// anything else (including the empty string for status 0) selects
// post-Byzantium.
func DecodeReceiptRLP(data []byte) (*Receipt, error) {
	r := &Receipt{}
	if len(data) > 0 && data[0] < 0x80 {
		r.TxType = data[0]
		data = data[1:]
	}

	s := rlp.NewStream(data)
	if _, err := s.List(); err != nil {
		return nil, err
	}

	stateOrStatus, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	if len(stateOrStatus) == 32 {
		r.PostByzantium = false
		r.PostState = stateOrStatus
	} else {
		r.PostByzantium = true
		var v uint64
		for _, b := range stateOrStatus {
			v = v<<8 | uint64(b)
		}
		r.Status = v
	}

	r.CumulativeGasUsed, err = s.Uint64()
	if err != nil {
		return nil, err
	}

	if _, err := s.List(); err != nil {
		return nil, err
	}
	for !s.AtListEnd() {
		log, err := decodeLogRLP(s)
		if err != nil {
			return nil, err
		}
		r.Logs = append(r.Logs, log)
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	r.Bloom = CreateBloom(r.Logs)
	return r, nil
}

func decodeLogRLP(s *rlp.Stream) (*Log, error) {
	if _, err := s.List(); err != nil {
		return nil, err
	}
	l := &Log{}

	addr, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	l.Address = BytesToAddress(addr)

	if _, err := s.List(); err != nil {
		return nil, err
	}
	for !s.AtListEnd() {
		t, err := s.Bytes()
		if err != nil {
			return nil, err
		}
		l.Topics = append(l.Topics, BytesToHash(t))
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}

	l.Data, err = s.Bytes()
	if err != nil {
		return nil, err
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}
	return l, nil
}
