// Package journal implements an in-memory, append-only event journal for
// keyed stores. Every mutation of a store (an add, update, removal,
// eviction, or expiry) is recorded as an Entry carrying a dense sequence
// number, so consumers can read history in ranges and tail the Journal
// for new activity while it grows.
//
// Typical usage looks like:
//   - Create a Journal with a Config
//   - Wire a store to a Capture, either a MemoryStore or a RedisStore
//   - Read ranges with Journal.Read or ReadRange, resuming from NextSequence
//   - Run a Tail to deliver new entries to a Handler until its context ends
//   - Bound the Journal and attach a BoltArchiver to keep dropped entries
//
// The examples/ directory contains a runnable walkthrough of the API.
package journal
