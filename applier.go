package journal

type (
	// Applier folds a single entry into a state value
	Applier[K comparable, V, S any] func(S, *Entry[K, V]) S

	// Appliers maps entry kinds to the Applier responsible for them. Kinds
	// without an Applier leave the state untouched
	Appliers[K comparable, V, S any] map[Kind]Applier[K, V, S]
)

// replayBatchSize is how many entries Replay reads per pass
const replayBatchSize = 256

// Apply folds e into state using the Applier registered for its Kind
func (a Appliers[K, V, S]) Apply(state S, e *Entry[K, V]) S {
	if fn, ok := a[e.Kind]; ok {
		return fn(state, e)
	}
	return state
}

// Replay folds every entry from start through the newest entry present
// when Replay began into init. It returns the final state and the sequence
// a later Replay should resume from
func Replay[K comparable, V, S any](
	j *Journal[K, V], start int64, init S, apps Appliers[K, V, S],
) (S, int64, error) {
	state := init
	end := j.NextSequence()
	for start < end {
		res, err := j.Read(start, replayBatchSize, nil)
		if err != nil {
			return state, start, err
		}
		if res.ReadCount() == 0 {
			break
		}
		for _, e := range res.items {
			if e.Sequence >= end {
				return state, end, nil
			}
			state = apps.Apply(state, e)
		}
		start = res.NextSequence()
	}
	return state, start, nil
}

// StateAppliers rebuild the contents of the keyed store that produced the
// entries
func StateAppliers[K comparable, V any]() Appliers[K, V, map[K]V] {
	put := func(m map[K]V, e *Entry[K, V]) map[K]V {
		m[e.Key] = e.NewValue
		return m
	}
	del := func(m map[K]V, e *Entry[K, V]) map[K]V {
		delete(m, e.Key)
		return m
	}
	return Appliers[K, V, map[K]V]{
		Added:   put,
		Updated: put,
		Removed: del,
		Evicted: del,
		Expired: del,
	}
}

// Materialize rebuilds the keyed store state described by every retained
// entry. For a bounded Journal the result only reflects retained history
func Materialize[K comparable, V any](j *Journal[K, V]) (map[K]V, error) {
	start, ok := j.OldestSequence()
	if !ok {
		return map[K]V{}, nil
	}
	res, _, err := Replay(j, start, map[K]V{}, StateAppliers[K, V]())
	return res, err
}
