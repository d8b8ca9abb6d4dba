package archbloom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Serialization format.
//
// Every filter is stored as a header followed by its raw storage bytes. All
// integers are little-endian.
//
//   - Magic (8 bytes): identifies the filter type
//   - Version (1 byte): serialization format version
//   - Hash (1 byte): hash function, see [HashFunc]
//   - NameLen (2 bytes), Name (NameLen bytes)
//   - Slots, Hashes, Expected (8 bytes each)
//   - ErrorRate (8 bytes): IEEE-754 bits
//   - Type-specific fields:
//     counting: CounterWidth (1 byte);
//     time-decaying: TimerWidth (1 byte), Timeout, Elapsed (8 bytes each),
//     SavedAt (8 bytes, unix seconds);
//     time-decaying counting: CounterWidth, then as time-decaying;
//     plain: Insertions (8 bytes)
//   - StorageLen (8 bytes): must equal the size derived from Slots and widths
//   - Checksum (8 bytes): xxhash64 of the storage bytes
//   - Storage (StorageLen bytes)
const serializeVersion = 1

// maxHashes bounds the hash count accepted from a file. Sizing never yields
// more than about 1100 probes.
const maxHashes = 1 << 12

type filterKind uint8

const (
	kindPlain filterKind = iota
	kindCounting
	kindTimeDecaying
	kindTimeDecayingCounting
)

var magics = [...][8]byte{
	kindPlain:                {'!', 'b', 'l', 'o', 'o', 'm', '!', '!'},
	kindCounting:             {'!', 'c', 'b', 'l', 'o', 'o', 'm', '!'},
	kindTimeDecaying:         {'!', 't', 'd', 'b', 'l', 'o', 'o', 'm'},
	kindTimeDecayingCounting: {'t', 'd', 'c', 'b', 'l', 'o', 'o', 'm'},
}

func (k filterKind) String() string {
	switch k {
	case kindPlain:
		return "bloom filter"
	case kindCounting:
		return "counting bloom filter"
	case kindTimeDecaying:
		return "time-decaying bloom filter"
	default:
		return "time-decaying counting bloom filter"
	}
}

func (k filterKind) hasCounter() bool {
	return k == kindCounting || k == kindTimeDecayingCounting
}

func (k filterKind) hasTimer() bool {
	return k == kindTimeDecaying || k == kindTimeDecayingCounting
}

// fileHeader is the decoded header shared by all filter types. Fields that
// a type does not store are left zero.
type fileHeader struct {
	kind         filterKind
	hash         HashFunc
	name         string
	slots        uint64
	hashes       uint64
	expected     uint64
	errorRate    float64
	counterWidth Width
	timerWidth   Width
	timeout      uint64
	elapsed      uint64
	savedAt      int64
	insertions   uint64
	storageLen   uint64
	checksum     uint64
}

func headerFor(c *core, kind filterKind, storage []byte) fileHeader {
	return fileHeader{
		kind:       kind,
		hash:       c.hash,
		name:       c.name,
		slots:      c.slots,
		hashes:     c.hashes,
		expected:   c.expected,
		errorRate:  c.errorRate,
		storageLen: uint64(len(storage)),
		checksum:   xxhash.Sum64(storage),
	}
}

// withClock fills the time fields from a running clock.
func (h fileHeader) withClock(c *reducedClock, timeout uint64) fileHeader {
	h.timeout = timeout
	h.elapsed = c.elapsed()
	h.savedAt = c.clock.Now().Unix()
	return h
}

// slotBits returns the storage bits per slot.
func (h *fileHeader) slotBits() uint64 {
	if h.kind == kindPlain {
		return 1
	}
	return uint64(h.counterWidth) + uint64(h.timerWidth)
}

func (h *fileHeader) encode() []byte {
	b := make([]byte, 0, 96+len(h.name))
	b = append(b, magics[h.kind][:]...)
	b = append(b, serializeVersion, byte(h.hash))
	b = binary.LittleEndian.AppendUint16(b, uint16(len(h.name)))
	b = append(b, h.name...)
	b = binary.LittleEndian.AppendUint64(b, h.slots)
	b = binary.LittleEndian.AppendUint64(b, h.hashes)
	b = binary.LittleEndian.AppendUint64(b, h.expected)
	b = binary.LittleEndian.AppendUint64(b, math.Float64bits(h.errorRate))
	if h.kind.hasCounter() {
		b = append(b, byte(h.counterWidth))
	}
	if h.kind.hasTimer() {
		b = append(b, byte(h.timerWidth))
		b = binary.LittleEndian.AppendUint64(b, h.timeout)
		b = binary.LittleEndian.AppendUint64(b, h.elapsed)
		b = binary.LittleEndian.AppendUint64(b, uint64(h.savedAt))
	}
	if h.kind == kindPlain {
		b = binary.LittleEndian.AppendUint64(b, h.insertions)
	}
	b = binary.LittleEndian.AppendUint64(b, h.storageLen)
	b = binary.LittleEndian.AppendUint64(b, h.checksum)
	return b
}

// headerReader reads fixed-size header fields, remembering the first error
// and the number of bytes consumed.
type headerReader struct {
	r   io.Reader
	n   int64
	buf [8]byte
	err error
}

func (r *headerReader) read(n int) []byte {
	var b []byte
	if n <= len(r.buf) {
		b = r.buf[:n]
		clear(b)
	} else {
		b = make([]byte, n)
	}
	if r.err != nil {
		return b
	}
	m, err := io.ReadFull(r.r, b)
	r.n += int64(m)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.err = fmt.Errorf("%w: truncated header", ErrInvalidFile)
		} else {
			r.err = fmt.Errorf("%w: %w", ErrFileRead, err)
		}
	}
	return b
}

func (r *headerReader) u8() uint8   { return r.read(1)[0] }
func (r *headerReader) u16() uint16 { return binary.LittleEndian.Uint16(r.read(2)) }
func (r *headerReader) u64() uint64 { return binary.LittleEndian.Uint64(r.read(8)) }

// decodeHeader reads a header of the given kind from r.
func decodeHeader(r *headerReader, kind filterKind) (fileHeader, error) {
	h := fileHeader{kind: kind}

	if magic := r.read(8); r.err == nil && !bytes.Equal(magic, magics[kind][:]) {
		return h, fmt.Errorf("%w: not a %s", ErrInvalidFile, kind)
	}
	if v := r.u8(); r.err == nil && v != serializeVersion {
		return h, fmt.Errorf("%w: got version %d, expected %d", ErrInvalidFile, v, serializeVersion)
	}
	h.hash = HashFunc(r.u8())
	nameLen := r.u16()
	if r.err == nil && nameLen > MaxNameLength {
		return h, fmt.Errorf("%w: name length %d exceeds %d", ErrInvalidFile, nameLen, MaxNameLength)
	}
	h.name = string(r.read(int(nameLen)))
	h.slots = r.u64()
	h.hashes = r.u64()
	h.expected = r.u64()
	h.errorRate = math.Float64frombits(r.u64())
	if kind.hasCounter() {
		h.counterWidth = Width(r.u8())
	}
	if kind.hasTimer() {
		h.timerWidth = Width(r.u8())
		h.timeout = r.u64()
		h.elapsed = r.u64()
		h.savedAt = int64(r.u64())
	}
	if kind == kindPlain {
		h.insertions = r.u64()
	}
	h.storageLen = r.u64()
	h.checksum = r.u64()
	if r.err != nil {
		return h, r.err
	}

	return h, h.validate()
}

func (h *fileHeader) validate() error {
	switch {
	case !h.hash.valid():
		return fmt.Errorf("%w: unknown hash function %d", ErrInvalidFile, h.hash)
	case h.expected == 0 || !(h.errorRate > 0 && h.errorRate < 1):
		return fmt.Errorf("%w: expected=%d error rate=%v", ErrInvalidFile, h.expected, h.errorRate)
	case h.slots == 0 || h.hashes == 0 || h.hashes > maxHashes || h.hashes > h.slots:
		return fmt.Errorf("%w: slots=%d hashes=%d", ErrInvalidFile, h.slots, h.hashes)
	}

	switch h.kind {
	case kindCounting:
		if !h.counterWidth.validCounter() {
			return fmt.Errorf("%w: counter width %d", ErrInvalidFile, h.counterWidth)
		}
	case kindTimeDecayingCounting:
		if !h.counterWidth.isWord() {
			return fmt.Errorf("%w: counter width %d", ErrInvalidFile, h.counterWidth)
		}
	}
	if h.kind.hasTimer() {
		if err := checkTimeout(h.timeout, h.timerWidth); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
		if h.elapsed > maxElapsedSeconds {
			return fmt.Errorf("%w: elapsed time of %ds", ErrInvalidFile, h.elapsed)
		}
	}
	return nil
}

// decode reads a complete filter of the given kind from r, which holds size
// bytes in total.
func decode(r io.Reader, size int64, kind filterKind) (fileHeader, []byte, error) {
	hr := &headerReader{r: r}
	h, err := decodeHeader(hr, kind)
	if err != nil {
		return h, nil, err
	}

	if remaining := uint64(size - hr.n); h.storageLen != remaining {
		return h, nil, fmt.Errorf("%w: header declares %d storage bytes, file holds %d",
			ErrInvalidFile, h.storageLen, remaining)
	}
	want, err := storageSize(h.slots, h.slotBits())
	if err != nil {
		return h, nil, err
	}
	if want != h.storageLen {
		return h, nil, fmt.Errorf("%w: %d slots need %d storage bytes, header declares %d",
			ErrInvalidFile, h.slots, want, h.storageLen)
	}

	storage := make([]byte, h.storageLen)
	if _, err := io.ReadFull(r, storage); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return h, nil, fmt.Errorf("%w: truncated storage", ErrInvalidFile)
		}
		return h, nil, fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	if sum := xxhash.Sum64(storage); sum != h.checksum {
		return h, nil, fmt.Errorf("%w: checksum mismatch (got %016x, header %016x)", ErrInvalidFile, sum, h.checksum)
	}
	return h, storage, nil
}

// coreFromHeader rebuilds the shared filter parameters from h.
func coreFromHeader(h *fileHeader) core {
	return core{
		name:      h.name,
		hash:      h.hash,
		slots:     h.slots,
		hashes:    h.hashes,
		expected:  h.expected,
		errorRate: h.errorRate,
		scratch:   make([]uint64, 0, h.hashes),
	}
}

// clockFromHeader rebuilds a reduced clock so that entries keep ageing
// across the time spent on disk.
func clockFromHeader(h *fileHeader, c Clock) reducedClock {
	rc := reducedClock{clock: c, max: h.timerWidth.Max()}
	seconds := h.elapsed
	if now := c.Now().Unix(); now > h.savedAt {
		seconds += min(uint64(now)-uint64(h.savedAt), maxElapsedSeconds)
	}
	rc.restore(seconds)
	return rc
}

// loadOptions applies opts for loading. Only the clock is used; everything
// else comes from the saved header.
func loadOptions(opts []Option) (Clock, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		return nil, fmt.Errorf("%w: nil clock", ErrInvalidParameter)
	}
	return o.clock, nil
}

// MarshalBinary serializes the filter. See [Filter.Save] for writing it to
// a file.
func (f *Filter) MarshalBinary() ([]byte, error) {
	h := f.header()
	return append(h.encode(), f.bits.buf...), nil
}

func (f *Filter) header() fileHeader {
	h := headerFor(&f.core, kindPlain, f.bits.buf)
	h.insertions = f.insertions
	return h
}

// UnmarshalFilter deserializes a filter written by [Filter.MarshalBinary].
// The returned filter does not share memory with data.
func UnmarshalFilter(data []byte) (*Filter, error) {
	return readFilter(bytes.NewReader(data), int64(len(data)))
}

func readFilter(r io.Reader, size int64) (*Filter, error) {
	h, storage, err := decode(r, size, kindPlain)
	if err != nil {
		return nil, err
	}
	return &Filter{
		core:       coreFromHeader(&h),
		bits:       &bitArray{buf: storage, n: h.slots},
		insertions: h.insertions,
	}, nil
}

// MarshalBinary serializes the filter.
func (f *CountingFilter) MarshalBinary() ([]byte, error) {
	h := f.header()
	return append(h.encode(), f.cells.bytes()...), nil
}

func (f *CountingFilter) header() fileHeader {
	h := headerFor(&f.core, kindCounting, f.cells.bytes())
	h.counterWidth = f.cells.width()
	return h
}

// UnmarshalCounting deserializes a filter written by
// [CountingFilter.MarshalBinary].
func UnmarshalCounting(data []byte) (*CountingFilter, error) {
	return readCounting(bytes.NewReader(data), int64(len(data)))
}

func readCounting(r io.Reader, size int64) (*CountingFilter, error) {
	h, storage, err := decode(r, size, kindCounting)
	if err != nil {
		return nil, err
	}
	cells, err := wrapCellArray(storage, h.slots, h.counterWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &CountingFilter{core: coreFromHeader(&h), cells: cells}, nil
}

// MarshalBinary serializes the filter, including how long its clock has
// been running.
func (f *TimeDecayingFilter) MarshalBinary() ([]byte, error) {
	h := f.header()
	return append(h.encode(), f.cells.bytes()...), nil
}

func (f *TimeDecayingFilter) header() fileHeader {
	h := headerFor(&f.core, kindTimeDecaying, f.cells.bytes())
	h.timerWidth = f.cells.width()
	return h.withClock(&f.clock, f.timeout)
}

// UnmarshalTimeDecaying deserializes a filter written by
// [TimeDecayingFilter.MarshalBinary]. Time that passed since it was saved
// counts towards its entries' ages. Only [WithClock] is honoured.
func UnmarshalTimeDecaying(data []byte, opts ...Option) (*TimeDecayingFilter, error) {
	return readTimeDecaying(bytes.NewReader(data), int64(len(data)), opts)
}

func readTimeDecaying(r io.Reader, size int64, opts []Option) (*TimeDecayingFilter, error) {
	clock, err := loadOptions(opts)
	if err != nil {
		return nil, err
	}
	h, storage, err := decode(r, size, kindTimeDecaying)
	if err != nil {
		return nil, err
	}
	cells, err := wrapCellArray(storage, h.slots, h.timerWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &TimeDecayingFilter{
		core:    coreFromHeader(&h),
		cells:   cells,
		clock:   clockFromHeader(&h, clock),
		timeout: h.timeout,
	}, nil
}

// MarshalBinary serializes the filter, including how long its clock has
// been running.
func (f *TimeDecayingCountingFilter) MarshalBinary() ([]byte, error) {
	h := f.header()
	return append(h.encode(), f.entries.buf...), nil
}

func (f *TimeDecayingCountingFilter) header() fileHeader {
	h := headerFor(&f.core, kindTimeDecayingCounting, f.entries.buf)
	h.counterWidth = f.entries.counterW
	h.timerWidth = f.entries.timerW
	return h.withClock(&f.clock, f.timeout)
}

// UnmarshalTimeDecayingCounting deserializes a filter written by
// [TimeDecayingCountingFilter.MarshalBinary]. Only [WithClock] is honoured.
func UnmarshalTimeDecayingCounting(data []byte, opts ...Option) (*TimeDecayingCountingFilter, error) {
	return readTimeDecayingCounting(bytes.NewReader(data), int64(len(data)), opts)
}

func readTimeDecayingCounting(r io.Reader, size int64, opts []Option) (*TimeDecayingCountingFilter, error) {
	clock, err := loadOptions(opts)
	if err != nil {
		return nil, err
	}
	h, storage, err := decode(r, size, kindTimeDecayingCounting)
	if err != nil {
		return nil, err
	}
	entries, err := wrapEntryArray(storage, h.slots, h.counterWidth, h.timerWidth)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return &TimeDecayingCountingFilter{
		core:    coreFromHeader(&h),
		entries: entries,
		clock:   clockFromHeader(&h, clock),
		timeout: h.timeout,
	}, nil
}
