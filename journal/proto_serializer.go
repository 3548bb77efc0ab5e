package journal

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the protobuf record body. Stable; append-only.
const (
	fieldSeq  = 1
	fieldTime = 2
	fieldType = 3
	fieldData = 4
)

// ProtoSerializer encodes records on the protobuf wire format, written
// directly with protowire so the journal schema stays a one-file concern.
type ProtoSerializer struct{}

func (ProtoSerializer) Encode(rec *Record) ([]byte, error) {
	b := make([]byte, 0, 24+len(rec.Data))
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, rec.Seq)
	b = protowire.AppendTag(b, fieldTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.Time))
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(rec.Type))
	b = protowire.AppendTag(b, fieldData, protowire.BytesType)
	b = protowire.AppendBytes(b, rec.Data)
	return b, nil
}

func (ProtoSerializer) Decode(body []byte) (*Record, error) {
	rec := new(Record)
	for len(body) > 0 {
		num, typ, n := protowire.ConsumeTag(body)
		if n < 0 {
			return nil, fmt.Errorf("decode proto record tag: %w", ErrCorruptRecord)
		}
		body = body[n:]
		switch {
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(body)
			if n < 0 {
				return nil, fmt.Errorf("decode proto record varint: %w", ErrCorruptRecord)
			}
			body = body[n:]
			switch num {
			case fieldSeq:
				rec.Seq = v
			case fieldTime:
				rec.Time = int64(v)
			case fieldType:
				rec.Type = RecordType(v)
			}
		case typ == protowire.BytesType && num == fieldData:
			v, n := protowire.ConsumeBytes(body)
			if n < 0 {
				return nil, fmt.Errorf("decode proto record bytes: %w", ErrCorruptRecord)
			}
			body = body[n:]
			rec.Data = append([]byte(nil), v...)
		default:
			n := protowire.ConsumeFieldValue(num, typ, body)
			if n < 0 {
				return nil, fmt.Errorf("decode proto record field %d: %w", num, ErrCorruptRecord)
			}
			body = body[n:]
		}
	}
	return rec, nil
}
