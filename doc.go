// Package archbloom provides bloom filters for membership, frequency and
// expiry tracking.
//
// A bloom filter is a space-efficient probabilistic data structure that tests
// whether an element is a member of a set. False positive matches are possible,
// but false negatives are not: if the filter says an element is not present,
// it definitely is not.
//
// # Filters
//
// Four filter types share the same sizing, hashing and file format:
//
// [Filter] is a plain bit-vector filter. It supports set algebra through
// [Merge], [Intersect] and [EstimateIntersection].
//
// [CountingFilter] keeps a saturating counter per slot, so elements can be
// removed and their frequency estimated. Counters are 4, 8, 16, 32 or 64 bits
// wide; 4-bit counters are packed two per byte.
//
// [TimeDecayingFilter] stores a reduced timestamp per slot. Elements expire a
// fixed timeout after they were last added.
//
// [TimeDecayingCountingFilter] stores a counter and a timestamp per slot.
//
// # Choosing Parameters
//
// Every constructor takes the expected number of elements and the desired
// false positive rate:
//
//	// Filter for 1 million items with 1% false positive rate
//	f, err := archbloom.New(1_000_000, 0.01)
//
// The slot count m and probe count k are derived as
//
//	m = ceil(-n * ln(p) / ln(2)^2)
//	k = round(m / n * ln(2))
//
// and fixed for the lifetime of the filter. Use [OptimalParams] to compute
// them without building a filter.
//
// # Hashing
//
// One 128-bit digest is computed per element and split into two halves h1
// and h2; probe i lands on slot (h1 + i*h2) mod m. The digest is xxh3 by
// default, or MurmurHash3 with [WithHash]. Filters can only be combined when
// they use the same hash function.
//
// # Reduced Time
//
// Time-decaying filters count whole seconds from a start time, modulo the
// largest value their timer width holds. A stored timestamp of 0 means the
// slot is empty. An 8-bit timer works for timeouts of up to 253 seconds.
// Once the clock has counted the timer's largest value, stored ages are
// ambiguous and every entry reads as expired until the filter is cleared or
// its start time reset. Inject a [Clock] with [WithClock] to control time in
// tests.
//
// # Persistence
//
// Filters are saved with Save and read back with the matching Load function
// ([LoadFilter], [LoadCounting], ...). The file starts with an 8-byte magic
// identifying the filter type and a version byte, and the storage is
// protected by an xxhash64 checksum. Loading verifies that the declared
// storage size matches both the filter parameters and the file size.
//
// # Errors
//
// Failures are reported with the sentinel errors [ErrOutOfMemory],
// [ErrFileOpen], [ErrFileRead], [ErrFileWrite], [ErrStat], [ErrInvalidFile],
// [ErrInvalidParameter] and [ErrIncompatibleFilters], wrapped with detail.
// Use [errors.Is] or [KindOf] to inspect them.
//
// # Thread Safety
//
// No filter is safe for concurrent use, not even for concurrent lookups.
// Callers must synchronize access or shard filters themselves.
package archbloom
