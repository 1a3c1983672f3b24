package journal

import "context"

// Handler receives one item delivered by a Tail, along with the sequence of
// the entry that produced it
type Handler[T any] func(ctx context.Context, seq int64, item T) error

// Dispatch returns a Handler that routes raw entries by Kind. Entries whose
// Kind has no handler are skipped without error
func Dispatch[K comparable, V any](
	handlers map[Kind]Handler[*Entry[K, V]],
) Handler[*Entry[K, V]] {
	return func(ctx context.Context, seq int64, e *Entry[K, V]) error {
		if fn, ok := handlers[e.Kind]; ok {
			return fn(ctx, seq, e)
		}
		return nil
	}
}
