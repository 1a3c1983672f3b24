package journal

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ArchiveWorker moves archiving off the Append path. Entries are queued and
// handed to the wrapped Archiver, in order, by a single background worker.
// When the queue is full the entry is rejected rather than blocking Append
type ArchiveWorker[K comparable, V any] struct {
	archiver Archiver[K, V]
	logger   *zap.Logger
	queue    chan *Entry[K, V]
	done     chan struct{}
	mu       sync.RWMutex
	failed   int64
	stopped  bool
}

var (
	// ErrArchiveQueueFull is returned when an ArchiveWorker cannot accept
	// another entry
	ErrArchiveQueueFull = errors.New("archive queue full")

	// ErrArchiveWorkerStopped is returned for entries offered after Stop
	ErrArchiveWorkerStopped = errors.New("archive worker stopped")
)

// NewArchiveWorker starts a worker in front of a
func NewArchiveWorker[K comparable, V any](
	a Archiver[K, V], cfg ArchiveConfig,
) *ArchiveWorker[K, V] {
	size := cfg.MaxQueueSize
	if size <= 0 {
		size = DefaultArchiveQueueSize
	}

	w := &ArchiveWorker[K, V]{
		archiver: a,
		logger:   loggerOrNop(cfg.Logger),
		queue:    make(chan *Entry[K, V], size),
		done:     make(chan struct{}),
	}
	go w.worker()
	return w
}

// Archive queues e without blocking
func (w *ArchiveWorker[K, V]) Archive(e *Entry[K, V]) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return ErrArchiveWorkerStopped
	}

	select {
	case w.queue <- e:
		return nil
	default:
		w.logger.Warn("Archive queue full, dropping entry",
			zap.Int64("sequence", e.Sequence),
			zap.Int("queue_size", len(w.queue)),
		)
		return ErrArchiveQueueFull
	}
}

// Failed returns how many queued entries the wrapped Archiver rejected
func (w *ArchiveWorker[K, V]) Failed() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.failed
}

// Stop rejects further entries and waits until every queued entry has been
// handed to the wrapped Archiver
func (w *ArchiveWorker[K, V]) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *ArchiveWorker[K, V]) worker() {
	defer close(w.done)

	for e := range w.queue {
		w.save(e)
	}
}

func (w *ArchiveWorker[K, V]) save(e *Entry[K, V]) {
	start := time.Now()
	err := w.archiver.Archive(e)
	duration := time.Since(start)

	if err != nil {
		w.mu.Lock()
		w.failed++
		w.mu.Unlock()

		w.logger.Error("Failed to archive entry",
			zap.Int64("sequence", e.Sequence),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	w.logger.Debug("Entry archived by worker",
		zap.Int64("sequence", e.Sequence),
		zap.Duration("duration", duration),
	)
}
