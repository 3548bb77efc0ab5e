package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type RecordType uint8

const (
	RecordSubmit RecordType = iota + 1
	RecordCancel
	RecordAmend
)

// Record is one journaled order-flow event. Seq is assigned by the journal
// on append and is strictly increasing across segments.
type Record struct {
	Seq  uint64
	Time int64
	Type RecordType
	Data []byte
}

// SubmitPayload mirrors the submit call the service received.
type SubmitPayload struct {
	ID    uint64
	Owner uint64
	Side  uint8
	Type  uint8
	Price int64
	Qty   int64
}

// CancelPayload identifies the order to cancel.
type CancelPayload struct {
	ID uint64
}

// AmendPayload carries an amend-down.
type AmendPayload struct {
	ID     uint64
	NewQty int64
}

func (p SubmitPayload) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 34))
	_ = binary.Write(buf, binary.LittleEndian, p.ID)
	_ = binary.Write(buf, binary.LittleEndian, p.Owner)
	_ = binary.Write(buf, binary.LittleEndian, p.Side)
	_ = binary.Write(buf, binary.LittleEndian, p.Type)
	_ = binary.Write(buf, binary.LittleEndian, p.Price)
	_ = binary.Write(buf, binary.LittleEndian, p.Qty)
	return buf.Bytes()
}

func DecodeSubmit(data []byte) (SubmitPayload, error) {
	var p SubmitPayload
	buf := bytes.NewReader(data)
	for _, v := range []any{&p.ID, &p.Owner, &p.Side, &p.Type, &p.Price, &p.Qty} {
		if err := binary.Read(buf, binary.LittleEndian, v); err != nil {
			return SubmitPayload{}, fmt.Errorf("decode submit payload: %w", err)
		}
	}
	return p, nil
}

func (p CancelPayload) Encode() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, p.ID)
	return buf
}

func DecodeCancel(data []byte) (CancelPayload, error) {
	if len(data) != 8 {
		return CancelPayload{}, fmt.Errorf("decode cancel payload: %w", ErrCorruptRecord)
	}
	return CancelPayload{ID: binary.LittleEndian.Uint64(data)}, nil
}

func (p AmendPayload) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[:8], p.ID)
	binary.LittleEndian.PutUint64(buf[8:], uint64(p.NewQty))
	return buf
}

func DecodeAmend(data []byte) (AmendPayload, error) {
	if len(data) != 16 {
		return AmendPayload{}, fmt.Errorf("decode amend payload: %w", ErrCorruptRecord)
	}
	return AmendPayload{
		ID:     binary.LittleEndian.Uint64(data[:8]),
		NewQty: int64(binary.LittleEndian.Uint64(data[8:])),
	}, nil
}
