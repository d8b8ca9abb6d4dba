package archbloom

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Width is the size in bits of one storage cell.
type Width uint8

// Supported cell widths. Width1 is only used by the plain filter and Width4
// only by counting filters.
const (
	Width1  Width = 1
	Width4  Width = 4
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Max returns the largest value a cell of this width can hold.
func (w Width) Max() uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<w - 1
}

func (w Width) isWord() bool {
	return w == Width8 || w == Width16 || w == Width32 || w == Width64
}

func (w Width) validCounter() bool {
	return w == Width4 || w.isWord()
}

// cellArray is a fixed-length array of equally sized unsigned cells packed
// into a byte buffer. Values written past Max() are clamped.
//
// The implementations below are the complete set; a variant is picked once
// when a filter is built.
type cellArray interface {
	len() uint64
	width() Width
	max() uint64
	get(i uint64) uint64
	set(i uint64, v uint64)
	increment(i uint64)
	decrement(i uint64)
	reset()
	bytes() []byte
}

// newCellArray allocates n zeroed cells of width w.
func newCellArray(n uint64, w Width) (cellArray, error) {
	size, err := storageSize(n, uint64(w))
	if err != nil {
		return nil, err
	}
	return wrapCellArray(make([]byte, size), n, w)
}

// wrapCellArray adopts buf as the backing store for n cells of width w.
func wrapCellArray(buf []byte, n uint64, w Width) (cellArray, error) {
	want, err := storageSize(n, uint64(w))
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) != want {
		return nil, fmt.Errorf("%w: %d cells of width %d need %d bytes, got %d",
			ErrInvalidParameter, n, w, want, len(buf))
	}

	switch {
	case w == Width1:
		return &bitArray{buf: buf, n: n}, nil
	case w == Width4:
		return &nibbleArray{buf: buf, n: n}, nil
	case w.isWord():
		return &wordArray{buf: buf, n: n, w: w, size: uint64(w) / 8}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported cell width %d", ErrInvalidParameter, w)
	}
}

// bitArray stores one bit per cell, LSB first within each byte.
type bitArray struct {
	buf []byte
	n   uint64
}

func (a *bitArray) len() uint64   { return a.n }
func (a *bitArray) width() Width  { return Width1 }
func (a *bitArray) max() uint64   { return 1 }
func (a *bitArray) bytes() []byte { return a.buf }
func (a *bitArray) reset()        { clear(a.buf) }

func (a *bitArray) get(i uint64) uint64 {
	return uint64(a.buf[i>>3]>>(i&7)) & 1
}

func (a *bitArray) set(i uint64, v uint64) {
	if v != 0 {
		a.buf[i>>3] |= 1 << (i & 7)
	} else {
		a.buf[i>>3] &^= 1 << (i & 7)
	}
}

func (a *bitArray) increment(i uint64) { a.set(i, 1) }
func (a *bitArray) decrement(i uint64) { a.set(i, 0) }

// testAndSet sets bit i and reports whether it was already set.
func (a *bitArray) testAndSet(i uint64) bool {
	mask := byte(1) << (i & 7)
	was := a.buf[i>>3]&mask != 0
	a.buf[i>>3] |= mask
	return was
}

// popcount returns the number of set bits.
func (a *bitArray) popcount() uint64 {
	var n uint64
	buf := a.buf
	for len(buf) >= 8 {
		n += uint64(bits.OnesCount64(binary.LittleEndian.Uint64(buf)))
		buf = buf[8:]
	}
	for _, b := range buf {
		n += uint64(bits.OnesCount8(b))
	}
	return n
}

// nibbleArray stores two 4-bit cells per byte. Even indexes use the low
// nibble, odd indexes the high nibble.
type nibbleArray struct {
	buf []byte
	n   uint64
}

func (a *nibbleArray) len() uint64   { return a.n }
func (a *nibbleArray) width() Width  { return Width4 }
func (a *nibbleArray) max() uint64   { return 0x0f }
func (a *nibbleArray) bytes() []byte { return a.buf }
func (a *nibbleArray) reset()        { clear(a.buf) }

func (a *nibbleArray) get(i uint64) uint64 {
	b := a.buf[i>>1]
	if i&1 == 1 {
		return uint64(b >> 4)
	}
	return uint64(b & 0x0f)
}

func (a *nibbleArray) set(i uint64, v uint64) {
	v = min(v, 0x0f)
	p := &a.buf[i>>1]
	if i&1 == 1 {
		*p = *p&0x0f | byte(v)<<4
	} else {
		*p = *p&0xf0 | byte(v)
	}
}

func (a *nibbleArray) increment(i uint64) {
	if v := a.get(i); v < 0x0f {
		a.set(i, v+1)
	}
}

func (a *nibbleArray) decrement(i uint64) {
	if v := a.get(i); v > 0 {
		a.set(i, v-1)
	}
}

// wordArray stores 8, 16, 32 or 64-bit little-endian cells.
type wordArray struct {
	buf  []byte
	n    uint64
	w    Width
	size uint64 // bytes per cell
}

func (a *wordArray) len() uint64   { return a.n }
func (a *wordArray) width() Width  { return a.w }
func (a *wordArray) max() uint64   { return a.w.Max() }
func (a *wordArray) bytes() []byte { return a.buf }
func (a *wordArray) reset()        { clear(a.buf) }

func (a *wordArray) get(i uint64) uint64 {
	return getUint(a.buf[i*a.size:], a.w)
}

func (a *wordArray) set(i uint64, v uint64) {
	putUint(a.buf[i*a.size:], a.w, min(v, a.w.Max()))
}

func (a *wordArray) increment(i uint64) {
	if v := a.get(i); v < a.w.Max() {
		a.set(i, v+1)
	}
}

func (a *wordArray) decrement(i uint64) {
	if v := a.get(i); v > 0 {
		a.set(i, v-1)
	}
}

// getUint reads a little-endian value of width w from the start of b.
func getUint(b []byte, w Width) uint64 {
	switch w {
	case Width8:
		return uint64(b[0])
	case Width16:
		return uint64(binary.LittleEndian.Uint16(b))
	case Width32:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

// putUint writes v as a little-endian value of width w. v must fit.
func putUint(b []byte, w Width, v uint64) {
	switch w {
	case Width8:
		b[0] = byte(v)
	case Width16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Width32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}

// entryArray stores (counter, timestamp) pairs. Each entry is the counter
// followed by the timestamp, both little-endian.
type entryArray struct {
	buf       []byte
	n         uint64
	counterW  Width
	timerW    Width
	entrySize uint64
	tsOffset  uint64
}

func newEntryArray(n uint64, counterW, timerW Width) (*entryArray, error) {
	size, err := storageSize(n, uint64(counterW)+uint64(timerW))
	if err != nil {
		return nil, err
	}
	return wrapEntryArray(make([]byte, size), n, counterW, timerW)
}

func wrapEntryArray(buf []byte, n uint64, counterW, timerW Width) (*entryArray, error) {
	if !counterW.isWord() || !timerW.isWord() {
		return nil, fmt.Errorf("%w: unsupported entry widths %d+%d", ErrInvalidParameter, counterW, timerW)
	}
	want, err := storageSize(n, uint64(counterW)+uint64(timerW))
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) != want {
		return nil, fmt.Errorf("%w: %d entries need %d bytes, got %d", ErrInvalidParameter, n, want, len(buf))
	}
	return &entryArray{
		buf:       buf,
		n:         n,
		counterW:  counterW,
		timerW:    timerW,
		entrySize: (uint64(counterW) + uint64(timerW)) / 8,
		tsOffset:  uint64(counterW) / 8,
	}, nil
}

func (a *entryArray) len() uint64   { return a.n }
func (a *entryArray) bytes() []byte { return a.buf }
func (a *entryArray) reset()        { clear(a.buf) }

func (a *entryArray) counter(i uint64) uint64 {
	return getUint(a.buf[i*a.entrySize:], a.counterW)
}

func (a *entryArray) setCounter(i uint64, v uint64) {
	putUint(a.buf[i*a.entrySize:], a.counterW, min(v, a.counterW.Max()))
}

func (a *entryArray) incrementCounter(i uint64) {
	if v := a.counter(i); v < a.counterW.Max() {
		a.setCounter(i, v+1)
	}
}

func (a *entryArray) decrementCounter(i uint64) {
	if v := a.counter(i); v > 0 {
		a.setCounter(i, v-1)
	}
}

func (a *entryArray) timestamp(i uint64) uint64 {
	return getUint(a.buf[i*a.entrySize+a.tsOffset:], a.timerW)
}

func (a *entryArray) setTimestamp(i uint64, v uint64) {
	putUint(a.buf[i*a.entrySize+a.tsOffset:], a.timerW, min(v, a.timerW.Max()))
}

func (a *entryArray) clearEntry(i uint64) {
	clear(a.buf[i*a.entrySize : (i+1)*a.entrySize])
}
