package journal_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/journal"
)

func TestReadRangeProjection(t *testing.T) {
	j := seedJournal(t)

	res, err := journal.ReadRange(j, 0, 10,
		journal.KindFilter[string, string](journal.Added),
		func(e *journal.Entry[string, string]) string {
			return strings.ToUpper(e.NewValue)
		},
	)
	assert.NoError(t, err)
	assert.Equal(t, []string{"V1", "V2"}, res.Items())
	assert.Equal(t, 4, res.ReadCount())
	assert.Equal(t, int64(1), res.SequenceAt(1))
}

func TestReadRangeDescribe(t *testing.T) {
	j := seedJournal(t)

	res, err := journal.ReadRange(j, 0, 10, nil,
		journal.Describe[string, string],
	)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"added k1 = v1",
		"added k2 = v2",
		"updated k1 from v1 to v1b",
		"removed k2 (was v2)",
	}, res.Items())
}

func TestReadRangeMaxItems(t *testing.T) {
	j := seedJournal(t)

	res, err := journal.ReadRange(j, 1, 2, nil,
		func(e *journal.Entry[string, string]) string { return e.Key },
	)
	assert.NoError(t, err)
	assert.Equal(t, []string{"k2", "k1"}, res.Items())
	assert.Equal(t, 2, res.ReadCount())
	assert.Equal(t, int64(3), res.NextSequence())
}

func TestReadRangeProjectionRequired(t *testing.T) {
	j := seedJournal(t)

	_, err := journal.ReadRange[string, string, string](j, 0, 10, nil, nil)
	assert.ErrorIs(t, err, journal.ErrProjectionRequired)
}

func TestReadRangeFilterBeforeProjection(t *testing.T) {
	j := seedJournal(t)

	var projected []int64
	res, err := journal.ReadRange(j, 0, 10,
		journal.KeyFilter[string, string]("k2"),
		func(e *journal.Entry[string, string]) int64 {
			projected = append(projected, e.Sequence)
			return e.Sequence
		},
	)
	assert.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, projected)
	assert.Equal(t, []int64{1, 3}, res.Items())
}

func TestResultSetAllStops(t *testing.T) {
	j := seedJournal(t)

	res, err := j.Read(0, 10, nil)
	assert.NoError(t, err)

	var seen []int64
	for seq := range res.All() {
		seen = append(seen, seq)
		if seq == 1 {
			break
		}
	}
	assert.Equal(t, []int64{0, 1}, seen)
}

func TestAllOf(t *testing.T) {
	j := seedJournal(t)

	res, err := j.Read(0, 10, journal.AllOf(
		journal.KeyFilter[string, string]("k1"),
		journal.KindFilter[string, string](journal.Updated, journal.Removed),
		nil,
	))
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Size())
	assert.Equal(t, int64(2), res.SequenceAt(0))
}

func TestDescribe(t *testing.T) {
	e := &journal.Entry[string, int]{Key: "k", OldValue: 1}

	e.Kind = journal.Evicted
	assert.Equal(t, "evicted k (was 1)", journal.Describe(e))

	e.Kind = journal.Expired
	assert.Equal(t, "expired k (was 1)", journal.Describe(e))

	e.Kind = journal.Kind(12)
	assert.Equal(t, "unknown event Kind(12) for key k", journal.Describe(e))
}
