package journal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const currentName = "journal.log"

// Config defines one journal instance.
type Config struct {
	Dir             string
	SegmentSize     int64
	SegmentDuration time.Duration
	FlushInterval   time.Duration
	Serializer      Serializer
}

// Journal is a segmented append-only log of order-flow events. Each frame
// is [len u32][crc u32][body]; the body layout belongs to the Serializer.
// Appends rotate the active segment on size or age; a background ticker
// fsyncs at FlushInterval.
type Journal struct {
	cfg     Config
	mu      sync.Mutex
	file    *os.File
	bytes   int64
	start   time.Time
	lastSeq uint64
	done    chan struct{}
}

func Open(cfg Config) (*Journal, error) {
	if cfg.Dir == "" {
		cfg.Dir = "./journal_data"
	}
	if cfg.SegmentSize == 0 {
		cfg.SegmentSize = 2 * 1024 * 1024
	}
	if cfg.SegmentDuration == 0 {
		cfg.SegmentDuration = 5 * time.Minute
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.Serializer == nil {
		cfg.Serializer = BinarySerializer{}
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(cfg.Dir, currentName),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{
		cfg:   cfg,
		file:  f,
		bytes: info.Size(),
		start: time.Now(),
		done:  make(chan struct{}),
	}
	go j.autoFlush()
	return j, nil
}

// Append stamps and writes one record, returning its journal sequence.
func (j *Journal) Append(typ RecordType, data []byte) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.lastSeq++
	rec := &Record{
		Seq:  j.lastSeq,
		Time: time.Now().UnixNano(),
		Type: typ,
		Data: data,
	}
	body, err := j.cfg.Serializer.Encode(rec)
	if err != nil {
		j.lastSeq--
		return 0, fmt.Errorf("journal append: %w", err)
	}
	frame := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(frame[:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(frame[4:8], crc32.ChecksumIEEE(body))
	copy(frame[8:], body)

	n, err := j.file.Write(frame)
	if err != nil {
		return 0, fmt.Errorf("journal append: %w", err)
	}
	j.bytes += int64(n)
	if j.bytes > j.cfg.SegmentSize || time.Since(j.start) > j.cfg.SegmentDuration {
		if err := j.rotate(); err != nil {
			return 0, fmt.Errorf("journal rotate: %w", err)
		}
	}
	return rec.Seq, nil
}

// Replay feeds every record, oldest segment first, to apply. It also
// resumes the journal's own sequence counter so post-replay appends keep
// the total order. Returns the last replayed sequence.
func (j *Journal) Replay(apply func(*Record) error) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var last uint64
	for _, path := range j.segmentPaths() {
		if err := j.replayFile(path, &last, apply); err != nil {
			return last, err
		}
	}
	if last > j.lastSeq {
		j.lastSeq = last
	}
	return last, nil
}

// Reset discards all journaled records. Callers truncate only after a
// snapshot has captured the state the journal was protecting.
func (j *Journal) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, path := range j.segmentPaths() {
		if filepath.Base(path) == currentName {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("journal reset: %w", err)
		}
	}
	if err := j.file.Truncate(0); err != nil {
		return fmt.Errorf("journal reset: %w", err)
	}
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("journal reset: %w", err)
	}
	j.bytes = 0
	j.start = time.Now()
	return nil
}

// LastSeq returns the sequence of the most recently appended record.
// It survives Reset, so snapshots can record how far the journal had
// advanced when they were taken.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSeq
}

// Sync forces an fsync of the active segment.
func (j *Journal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Sync()
}

func (j *Journal) Close() error {
	close(j.done)
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.file.Sync()
	return j.file.Close()
}

// segmentPaths lists rotated segments in rotation order, current last.
// Rotated names are timestamps, so lexical order is chronological.
func (j *Journal) segmentPaths() []string {
	entries, err := os.ReadDir(j.cfg.Dir)
	if err != nil {
		return nil
	}
	var rotated []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == currentName || !strings.HasSuffix(name, ".log") {
			continue
		}
		rotated = append(rotated, filepath.Join(j.cfg.Dir, name))
	}
	sort.Strings(rotated)
	return append(rotated, filepath.Join(j.cfg.Dir, currentName))
}

func (j *Journal) replayFile(path string, last *uint64, apply func(*Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("journal replay %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF {
				return nil
			}
			// A torn tail write is expected after a crash; stop here.
			return nil
		}
		size := binary.LittleEndian.Uint32(header[:4])
		want := binary.LittleEndian.Uint32(header[4:8])
		body := make([]byte, size)
		if _, err := io.ReadFull(f, body); err != nil {
			return nil
		}
		if crc32.ChecksumIEEE(body) != want {
			return fmt.Errorf("journal replay %s: %w", path, ErrCorruptRecord)
		}
		rec, err := j.cfg.Serializer.Decode(body)
		if err != nil {
			return fmt.Errorf("journal replay %s: %w", path, err)
		}
		if rec.Seq > *last {
			*last = rec.Seq
		}
		if err := apply(rec); err != nil {
			return err
		}
	}
}

func (j *Journal) rotate() error {
	if err := j.file.Close(); err != nil {
		return err
	}
	cur := filepath.Join(j.cfg.Dir, currentName)
	// Last sequence in the name keeps rotations within the same
	// millisecond distinct, and lexical order chronological.
	sealed := filepath.Join(j.cfg.Dir,
		fmt.Sprintf("%s_%012d.log", time.Now().Format("20060102_150405.000"), j.lastSeq))
	if err := os.Rename(cur, sealed); err != nil {
		return err
	}
	f, err := os.OpenFile(cur, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	j.file = f
	j.bytes = 0
	j.start = time.Now()
	return nil
}

func (j *Journal) autoFlush() {
	ticker := time.NewTicker(j.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.mu.Lock()
			_ = j.file.Sync()
			j.mu.Unlock()
		}
	}
}
