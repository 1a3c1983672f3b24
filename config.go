package journal

import (
	"time"

	"go.uber.org/zap"
)

type (
	// Config controls a Journal. A Capacity of zero means unbounded
	Config struct {
		Logger   *zap.Logger
		Clock    func() time.Time
		Capacity int
	}

	// TailConfig controls the polling behavior of a Tail. A Duration of zero
	// means the Tail runs until its context is canceled
	TailConfig struct {
		BatchSize    int
		PollInterval time.Duration
		Duration     time.Duration
	}

	// StoreConfig controls a MemoryStore. Zero values disable the bound
	StoreConfig struct {
		Logger   *zap.Logger
		Clock    func() time.Time
		Capacity int
		TTL      time.Duration
	}

	// ArchiveConfig controls a BoltArchiver and any ArchiveWorker placed in
	// front of it
	ArchiveConfig struct {
		Logger       *zap.Logger
		Bucket       string
		OpenTimeout  time.Duration
		MaxQueueSize int
	}

	// RedisConfig controls a RedisStore
	RedisConfig struct {
		Logger   *zap.Logger
		Addr     string
		Password string
		Prefix   string
		Name     string
		DB       int
	}
)

const (
	DefaultCapacity     = 0
	DefaultBatchSize    = 10
	DefaultPollInterval = 100 * time.Millisecond
	DefaultTailDuration = 0

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "journal"
	DefaultRedisDB       = 0
	DefaultStoreName     = "store"

	DefaultArchiveBucket      = "journal"
	DefaultArchiveOpenTimeout = time.Second
	DefaultArchiveQueueSize   = 1024
)

func DefaultConfig() Config {
	return Config{
		Logger:   zap.NewNop(),
		Capacity: DefaultCapacity,
	}
}

func DefaultTailConfig() TailConfig {
	return TailConfig{
		BatchSize:    DefaultBatchSize,
		PollInterval: DefaultPollInterval,
		Duration:     DefaultTailDuration,
	}
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Logger: zap.NewNop(),
	}
}

func DefaultArchiveConfig() ArchiveConfig {
	return ArchiveConfig{
		Logger:       zap.NewNop(),
		Bucket:       DefaultArchiveBucket,
		OpenTimeout:  DefaultArchiveOpenTimeout,
		MaxQueueSize: DefaultArchiveQueueSize,
	}
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Logger: zap.NewNop(),
		Addr:   DefaultRedisEndpoint,
		Prefix: DefaultRedisPrefix,
		Name:   DefaultStoreName,
		DB:     DefaultRedisDB,
	}
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func clockOrNow(c func() time.Time) func() time.Time {
	if c == nil {
		return time.Now
	}
	return c
}
