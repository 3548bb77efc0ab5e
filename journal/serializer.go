package journal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrCorruptRecord marks a record that failed CRC or shape validation.
var ErrCorruptRecord = errors.New("journal: corrupted record")

// Serializer turns a Record into a body and back. Framing (length + CRC)
// is owned by the Journal, not the serializer.
type Serializer interface {
	Encode(*Record) ([]byte, error)
	Decode([]byte) (*Record, error)
}

// BinarySerializer is the default fixed-layout little-endian codec.
type BinarySerializer struct{}

func (BinarySerializer) Encode(rec *Record) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 24+len(rec.Data)))
	_ = binary.Write(buf, binary.LittleEndian, rec.Seq)
	_ = binary.Write(buf, binary.LittleEndian, rec.Time)
	_ = binary.Write(buf, binary.LittleEndian, uint8(rec.Type))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(rec.Data)))
	buf.Write(rec.Data)
	return buf.Bytes(), nil
}

func (BinarySerializer) Decode(body []byte) (*Record, error) {
	rec := new(Record)
	buf := bytes.NewReader(body)
	var typ uint8
	var n uint32
	if err := binary.Read(buf, binary.LittleEndian, &rec.Seq); err != nil {
		return nil, fmt.Errorf("decode record: %w", ErrCorruptRecord)
	}
	if err := binary.Read(buf, binary.LittleEndian, &rec.Time); err != nil {
		return nil, fmt.Errorf("decode record: %w", ErrCorruptRecord)
	}
	if err := binary.Read(buf, binary.LittleEndian, &typ); err != nil {
		return nil, fmt.Errorf("decode record: %w", ErrCorruptRecord)
	}
	if err := binary.Read(buf, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("decode record: %w", ErrCorruptRecord)
	}
	if int(n) != buf.Len() {
		return nil, fmt.Errorf("decode record: data length %d of %d: %w", n, buf.Len(), ErrCorruptRecord)
	}
	rec.Type = RecordType(typ)
	rec.Data = make([]byte, n)
	copy(rec.Data, body[len(body)-int(n):])
	return rec, nil
}
