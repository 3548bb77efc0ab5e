package tradestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.Put(1, []byte(`{"seq":1}`)))

	e, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Seq)
	assert.Equal(t, StateNew, e.State)
	assert.Equal(t, []byte(`{"seq":1}`), e.Payload)
	assert.Zero(t, e.Retries)
}

func TestDeliveryTransitions(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.Put(1, []byte("x")))

	require.NoError(t, s.MarkSent(1))
	e, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateSent, e.State)
	assert.Equal(t, uint32(1), e.Retries)
	assert.NotZero(t, e.LastAttempt)

	// A redelivery attempt bumps the retry counter.
	require.NoError(t, s.MarkSent(1))
	e, err = s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), e.Retries)

	require.NoError(t, s.MarkAcked(1))
	e, err = s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, e.State)
}

func TestScanPendingSkipsAcked(t *testing.T) {
	s := openTest(t)
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, s.Put(seq, []byte{byte(seq)}))
	}
	require.NoError(t, s.MarkSent(2))
	require.NoError(t, s.MarkAcked(2))
	require.NoError(t, s.MarkAcked(4))

	var seen []uint64
	require.NoError(t, s.ScanPending(func(e Entry) error {
		seen = append(seen, e.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 3, 5}, seen)
}

func TestDeleteAckedUpTo(t *testing.T) {
	s := openTest(t)
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, s.Put(seq, []byte{byte(seq)}))
		require.NoError(t, s.MarkAcked(seq))
	}
	// Seq 6 stays pending and must survive the sweep.
	require.NoError(t, s.Put(6, []byte{6}))

	require.NoError(t, s.DeleteAckedUpTo(5))

	for seq := uint64(1); seq <= 5; seq++ {
		_, err := s.Get(seq)
		assert.Error(t, err, "seq %d should be gone", seq)
	}
	e, err := s.Get(6)
	require.NoError(t, err)
	assert.Equal(t, StateNew, e.State)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(7, []byte("payload")))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	e, err := s2.Get(7)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), e.Payload)
}
