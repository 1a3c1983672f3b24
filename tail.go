package journal

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type (
	// Tail is a pull-based subscriber that repeatedly reads a Journal from
	// its own cursor, delivering each new item to a Handler. A Tail is
	// configured before Run and must not be reconfigured while running
	Tail[K comparable, V, T any] struct {
		journal    *Journal[K, V]
		filter     Filter[K, V]
		projection Projection[K, V, T]
		handler    Handler[T]
		onError    func(*HandlerError)
		logger     *zap.Logger
		config     TailConfig
		start      startPosition
		cursor     atomic.Int64
		delivered  atomic.Int64
	}

	startPosition struct {
		seq  int64
		mode startMode
	}

	startMode uint8
)

const (
	startNow startMode = iota
	startOldest
	startAt
)

// NewTail creates a Tail that delivers raw entries
func NewTail[K comparable, V any](
	j *Journal[K, V], handler Handler[*Entry[K, V]],
) *Tail[K, V, *Entry[K, V]] {
	return NewProjectedTail[K, V, *Entry[K, V]](
		j, identity[K, V], handler,
	)
}

// NewProjectedTail creates a Tail that delivers the projection of each
// entry that passes its filter
func NewProjectedTail[K comparable, V, T any](
	j *Journal[K, V], projection Projection[K, V, T], handler Handler[T],
) *Tail[K, V, T] {
	return &Tail[K, V, T]{
		journal:    j,
		projection: projection,
		handler:    handler,
		logger:     j.logger,
		config:     DefaultTailConfig(),
	}
}

// WithConfig replaces the polling configuration. Non-positive batch sizes and
// intervals fall back to their defaults
func (t *Tail[K, V, T]) WithConfig(cfg TailConfig) *Tail[K, V, T] {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	t.config = cfg
	return t
}

// WithFilter restricts delivery to entries that pass filter. Rejected
// entries still advance the cursor
func (t *Tail[K, V, T]) WithFilter(filter Filter[K, V]) *Tail[K, V, T] {
	t.filter = filter
	return t
}

// WithErrorHandler routes handler failures to fn instead of collecting them
// for the result of Run
func (t *Tail[K, V, T]) WithErrorHandler(
	fn func(*HandlerError),
) *Tail[K, V, T] {
	t.onError = fn
	return t
}

// WithLogger replaces the logger inherited from the Journal
func (t *Tail[K, V, T]) WithLogger(l *zap.Logger) *Tail[K, V, T] {
	t.logger = loggerOrNop(l)
	return t
}

// From starts the Tail at the given sequence
func (t *Tail[K, V, T]) From(seq int64) *Tail[K, V, T] {
	t.start = startPosition{seq: seq, mode: startAt}
	return t
}

// FromOldest replays every retained entry before tailing new ones
func (t *Tail[K, V, T]) FromOldest() *Tail[K, V, T] {
	t.start = startPosition{mode: startOldest}
	return t
}

// FromNow only delivers entries appended after Run begins. This is the
// default
func (t *Tail[K, V, T]) FromNow() *Tail[K, V, T] {
	t.start = startPosition{mode: startNow}
	return t
}

// Cursor returns the sequence of the next entry the Tail will examine
func (t *Tail[K, V, T]) Cursor() int64 {
	return t.cursor.Load()
}

// Delivered returns the number of items passed to the handler so far
func (t *Tail[K, V, T]) Delivered() int64 {
	return t.delivered.Load()
}

// Run polls the Journal until ctx is done or the configured Duration
// elapses. Cancellation is a normal termination and is not reported as an
// error. Handler failures do not stop polling; unless an error handler is
// installed they are returned joined once Run ends. A read failure, such as
// the cursor falling behind a bounded Journal, ends Run immediately
func (t *Tail[K, V, T]) Run(ctx context.Context) error {
	if t.handler == nil {
		return ErrHandlerRequired
	}
	if t.projection == nil {
		return ErrProjectionRequired
	}

	if d := t.config.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	t.cursor.Store(t.resolveStart())
	t.logger.Debug("Tail started",
		zap.Int64("cursor", t.cursor.Load()),
		zap.Int("batch_size", t.config.BatchSize),
		zap.Duration("poll_interval", t.config.PollInterval),
	)

	var errs []error
	for ctx.Err() == nil {
		wake := t.journal.Appended()
		more, err := t.poll(ctx, &errs)
		if err != nil {
			errs = append(errs, err)
			break
		}
		if more {
			continue
		}
		t.wait(ctx, wake)
	}

	t.logger.Debug("Tail stopped",
		zap.Int64("cursor", t.cursor.Load()),
		zap.Int64("delivered", t.delivered.Load()),
		zap.Int("errors", len(errs)),
	)
	return errors.Join(errs...)
}

// poll performs a single read and delivery. more reports whether entries
// beyond the new cursor were already available
func (t *Tail[K, V, T]) poll(
	ctx context.Context, errs *[]error,
) (more bool, err error) {
	cursor := t.cursor.Load()
	res, err := ReadRange(
		t.journal, cursor, t.config.BatchSize, t.filter, t.projection,
	)
	if err != nil {
		return false, err
	}

	for seq, item := range res.All() {
		t.delivered.Add(1)
		if err := t.handler(ctx, seq, item); err != nil {
			t.fail(&HandlerError{Err: err, Sequence: seq}, errs)
		}
	}

	next := res.NextSequence()
	t.cursor.Store(next)
	return next < t.journal.NextSequence(), nil
}

func (t *Tail[K, V, T]) fail(herr *HandlerError, errs *[]error) {
	t.logger.Warn("Tail handler failed",
		zap.Int64("sequence", herr.Sequence),
		zap.Error(herr.Err),
	)
	if t.onError != nil {
		t.onError(herr)
		return
	}
	*errs = append(*errs, herr)
}

func (t *Tail[K, V, T]) wait(ctx context.Context, wake <-chan struct{}) {
	timer := time.NewTimer(t.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-wake:
	}
}

func (t *Tail[K, V, T]) resolveStart() int64 {
	switch t.start.mode {
	case startAt:
		return t.start.seq
	case startOldest:
		if seq, ok := t.journal.OldestSequence(); ok {
			return seq
		}
		return t.journal.NextSequence()
	default:
		return t.journal.NextSequence()
	}
}
