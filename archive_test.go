package journal_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/journal"
)

func openArchive(t *testing.T) *journal.BoltArchiver[string, int] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	a, err := journal.OpenBoltArchiver[string, int](
		path, journal.DefaultArchiveConfig(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBoltArchiver(t *testing.T) {
	a := openArchive(t)

	cfg := journal.DefaultConfig()
	cfg.Capacity = 4
	j, err := journal.New(cfg, journal.WithArchiver[string, int](a))
	require.NoError(t, err)

	c := journal.NewCapture(j)
	for i := range 10 {
		c.Added("k", i)
	}

	n, err := a.Count()
	assert.NoError(t, err)
	assert.Equal(t, 6, n)

	var seqs []int64
	var values []int
	err = a.Range(0, func(e *journal.Entry[string, int]) (bool, error) {
		seqs = append(seqs, e.Sequence)
		values = append(values, e.NewValue)
		assert.Equal(t, journal.Added, e.Kind)
		return true, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, seqs)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, values)

	oldest, ok := j.OldestSequence()
	assert.True(t, ok)
	assert.Equal(t, int64(6), oldest)
}

func TestBoltArchiverRange(t *testing.T) {
	a := openArchive(t)
	for i := range 5 {
		require.NoError(t, a.Archive(&journal.Entry[string, int]{
			Key:      "k",
			OldValue: i,
			Sequence: int64(i),
			Kind:     journal.Removed,
		}))
	}

	var seqs []int64
	err := a.Range(2, func(e *journal.Entry[string, int]) (bool, error) {
		seqs = append(seqs, e.Sequence)
		return e.Sequence < 3, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, seqs)

	boom := errors.New("boom")
	err = a.Range(0, func(*journal.Entry[string, int]) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)

	err = a.Range(-1, nil)
	assert.ErrorIs(t, err, journal.ErrNegativeSequence)
}

func TestBoltArchiverReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	cfg := journal.DefaultArchiveConfig()

	a, err := journal.OpenBoltArchiver[string, int](path, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Archive(&journal.Entry[string, int]{
		Key: "k", Sequence: 9, Kind: journal.Expired,
	}))
	require.NoError(t, a.Close())

	a, err = journal.OpenBoltArchiver[string, int](path, cfg)
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	n, err := a.Count()
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestArchiveFailureLogged(t *testing.T) {
	cfg := journal.DefaultConfig()
	cfg.Capacity = 1

	j, err := journal.New(cfg, journal.WithArchiver[string, int](
		journal.ArchiveFunc[string, int](
			func(*journal.Entry[string, int]) error {
				return errors.New("disk full")
			},
		),
	))
	require.NoError(t, err)

	j.Append(journal.Added, "a", 0, 1)
	assert.Equal(t, int64(1), j.Append(journal.Added, "b", 0, 2))
	assert.Equal(t, 1, j.Len())
}

func TestArchiveWorker(t *testing.T) {
	a := openArchive(t)
	w := journal.NewArchiveWorker[string, int](
		a, journal.DefaultArchiveConfig(),
	)

	cfg := journal.DefaultConfig()
	cfg.Capacity = 2
	j, err := journal.New(cfg, journal.WithArchiver[string, int](w))
	require.NoError(t, err)

	for i := range 50 {
		j.Append(journal.Added, "k", 0, i)
	}
	w.Stop()

	n, err := a.Count()
	assert.NoError(t, err)
	assert.Equal(t, 48, n)
	assert.Equal(t, int64(0), w.Failed())

	err = w.Archive(&journal.Entry[string, int]{Sequence: 99})
	assert.ErrorIs(t, err, journal.ErrArchiveWorkerStopped)
	w.Stop()
}

func TestArchiveWorkerQueueFull(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	var saved []int64

	blocking := journal.ArchiveFunc[string, int](
		func(e *journal.Entry[string, int]) error {
			<-release
			mu.Lock()
			defer mu.Unlock()
			saved = append(saved, e.Sequence)
			return nil
		},
	)

	cfg := journal.DefaultArchiveConfig()
	cfg.MaxQueueSize = 1
	w := journal.NewArchiveWorker[string, int](blocking, cfg)

	assert.NoError(t, w.Archive(&journal.Entry[string, int]{Sequence: 0}))
	assert.Eventually(t, func() bool {
		return w.Archive(&journal.Entry[string, int]{Sequence: 1}) == nil
	}, time.Second, time.Millisecond)

	err := w.Archive(&journal.Entry[string, int]{Sequence: 2})
	assert.ErrorIs(t, err, journal.ErrArchiveQueueFull)

	close(release)
	w.Stop()
	assert.Equal(t, []int64{0, 1}, saved)
}

func TestArchiveWorkerFailures(t *testing.T) {
	w := journal.NewArchiveWorker[string, int](
		journal.ArchiveFunc[string, int](
			func(*journal.Entry[string, int]) error {
				return errors.New("nope")
			},
		),
		journal.DefaultArchiveConfig(),
	)

	for i := range 3 {
		assert.NoError(t, w.Archive(&journal.Entry[string, int]{
			Sequence: int64(i),
		}))
	}
	w.Stop()
	assert.Equal(t, int64(3), w.Failed())
}
