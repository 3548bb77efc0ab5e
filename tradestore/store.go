// Package tradestore persists executed trades in an outbox keyed by trade
// sequence. Each entry carries a delivery state so the broadcaster can
// ship trades downstream at-least-once and garbage-collect acked ones.
package tradestore

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Entry is one persisted trade with its delivery bookkeeping.
type Entry struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// value encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeValue(e Entry) []byte {
	buf := make([]byte, 13+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[13:], e.Payload)
	return buf
}

func decodeValue(seq uint64, b []byte) (Entry, error) {
	if len(b) < 13 {
		return Entry{}, fmt.Errorf("tradestore: invalid entry length %d", len(b))
	}
	return Entry{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     append([]byte(nil), b[13:]...),
	}, nil
}

// Store is the pebble-backed outbox.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // trades must survive a crash
	})
	if err != nil {
		return nil, fmt.Errorf("open tradestore: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put records a freshly executed trade in state NEW.
func (s *Store) Put(seq uint64, payload []byte) error {
	e := Entry{Seq: seq, State: StateNew, Payload: payload}
	return s.db.Set(keyFor(seq), encodeValue(e), pebble.Sync)
}

// MarkSent flips an entry to SENT and bumps its attempt counter.
func (s *Store) MarkSent(seq uint64) error {
	return s.transition(seq, StateSent)
}

// MarkAcked flips an entry to ACKED once the broker confirmed it.
func (s *Store) MarkAcked(seq uint64) error {
	return s.transition(seq, StateAcked)
}

func (s *Store) transition(seq uint64, to State) error {
	e, err := s.Get(seq)
	if err != nil {
		return err
	}
	e.State = to
	e.LastAttempt = time.Now().UnixNano()
	if to == StateSent {
		e.Retries++
	}
	return s.db.Set(keyFor(seq), encodeValue(e), pebble.Sync)
}

// Get returns the entry for one trade sequence.
func (s *Store) Get(seq uint64) (Entry, error) {
	val, closer, err := s.db.Get(keyFor(seq))
	if err != nil {
		return Entry{}, fmt.Errorf("tradestore get %d: %w", seq, err)
	}
	defer closer.Close()
	return decodeValue(seq, val)
}

// ScanPending visits every entry not yet ACKED, in sequence order.
func (s *Store) ScanPending(fn func(Entry) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return fmt.Errorf("tradestore scan: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		e, err := decodeValue(seq, iter.Value())
		if err != nil {
			return err
		}
		if e.State == StateAcked {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// DeleteAckedUpTo removes ACKED entries with sequence <= seq.
func (s *Store) DeleteAckedUpTo(seq uint64) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: append(keyFor(seq), '~'),
	})
	if err != nil {
		return fmt.Errorf("tradestore gc: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		k, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		e, err := decodeValue(k, iter.Value())
		if err != nil {
			return err
		}
		if e.State != StateAcked {
			continue
		}
		if err := s.db.Delete(keyFor(k), pebble.NoSync); err != nil {
			return err
		}
	}
	return iter.Error()
}

const keyPrefix = "trade/"

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	if _, err := fmt.Sscanf(string(b[len(keyPrefix):]), "%d", &seq); err != nil {
		return 0, fmt.Errorf("tradestore: bad key %q: %w", b, err)
	}
	return seq, nil
}
