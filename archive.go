package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

type (
	// Archiver receives entries that a bounded Journal drops on overflow,
	// oldest first
	Archiver[K comparable, V any] interface {
		Archive(*Entry[K, V]) error
	}

	// ArchiveFunc adapts a function to the Archiver interface
	ArchiveFunc[K comparable, V any] func(*Entry[K, V]) error

	// BoltArchiver keeps dropped entries in a bbolt bucket, keyed by their
	// big-endian sequence. Entries archived after a Journal is cleared
	// replace earlier entries that had the same sequence
	BoltArchiver[K comparable, V any] struct {
		logger *zap.Logger
		db     *bolt.DB
		bucket []byte
	}

	// ArchiveRangeFunc is called for each archived entry. Returning false
	// stops the range without error
	ArchiveRangeFunc[K comparable, V any] func(*Entry[K, V]) (bool, error)
)

// ErrArchiveBucketMissing is returned when the archive bucket was removed
// from beneath an open BoltArchiver
var ErrArchiveBucketMissing = errors.New("archive bucket missing")

func (fn ArchiveFunc[K, V]) Archive(e *Entry[K, V]) error {
	return fn(e)
}

// OpenBoltArchiver opens or creates the bbolt database at path
func OpenBoltArchiver[K comparable, V any](
	path string, cfg ArchiveConfig,
) (*BoltArchiver[K, V], error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: cfg.OpenTimeout,
	})
	if err != nil {
		return nil, err
	}

	bucket := []byte(cfg.Bucket)
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltArchiver[K, V]{
		logger: loggerOrNop(cfg.Logger),
		db:     db,
		bucket: bucket,
	}, nil
}

// Archive stores the entry under its sequence
func (a *BoltArchiver[K, V]) Archive(e *Entry[K, V]) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	err = a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(a.bucket)
		if b == nil {
			return ErrArchiveBucketMissing
		}
		return b.Put(sequenceKey(e.Sequence), data)
	})
	if err != nil {
		return err
	}

	a.logger.Debug("Entry archived",
		zap.Int64("sequence", e.Sequence),
		zap.Stringer("kind", e.Kind),
	)
	return nil
}

// Range calls fn for each archived entry with a sequence at or after from,
// in sequence order
func (a *BoltArchiver[K, V]) Range(
	from int64, fn ArchiveRangeFunc[K, V],
) error {
	if from < 0 {
		return ErrNegativeSequence
	}

	return a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(a.bucket)
		if b == nil {
			return ErrArchiveBucketMissing
		}

		c := b.Cursor()
		for k, v := c.Seek(sequenceKey(from)); k != nil; k, v = c.Next() {
			e := &Entry[K, V]{}
			if err := json.Unmarshal(v, e); err != nil {
				return err
			}
			ok, err := fn(e)
			if err != nil || !ok {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of archived entries
func (a *BoltArchiver[K, V]) Count() (int, error) {
	var res int
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(a.bucket)
		if b == nil {
			return ErrArchiveBucketMissing
		}
		res = b.Stats().KeyN
		return nil
	})
	return res, err
}

func (a *BoltArchiver[K, V]) Close() error {
	return a.db.Close()
}

func sequenceKey(seq int64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(seq))
	return key[:]
}
