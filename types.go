package journal

import (
	"fmt"
	"time"
)

type (
	// Kind identifies the mutation recorded by an Entry
	Kind uint8

	// Entry is a single recorded mutation. Entries are immutable once they
	// have been appended to a Journal
	Entry[K comparable, V any] struct {
		Timestamp time.Time `json:"timestamp"`
		Key       K         `json:"key"`
		OldValue  V         `json:"old_value"`
		NewValue  V         `json:"new_value"`
		Sequence  int64     `json:"sequence"`
		Kind      Kind      `json:"kind"`
	}
)

const (
	Added Kind = iota
	Updated
	Removed
	Evicted
	Expired
)

var kindNames = [...]string{
	Added:   "ADDED",
	Updated: "UPDATED",
	Removed: "REMOVED",
	Evicted: "EVICTED",
	Expired: "EXPIRED",
}

// ParseKind returns the Kind with the given name
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func (k Kind) String() string {
	if k.valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// HasOldValue reports whether entries of this Kind carry a previous value
func (k Kind) HasOldValue() bool {
	return k != Added && k.valid()
}

// HasNewValue reports whether entries of this Kind carry a new value
func (k Kind) HasNewValue() bool {
	return k == Added || k == Updated
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	res, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = res
	return nil
}

func (k Kind) valid() bool {
	return int(k) < len(kindNames)
}
