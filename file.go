package archbloom

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// writeFile writes header followed by storage to path, replacing any
// existing file.
func writeFile(path string, header, storage []byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileOpen, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrFileWrite, cerr)
		}
	}()

	for _, b := range [][]byte{header, storage} {
		if _, err := f.Write(b); err != nil {
			return fmt.Errorf("%w: %w", ErrFileWrite, err)
		}
	}
	return nil
}

// openFile opens path for loading and returns a buffered reader over it
// together with its size.
func openFile(path string) (*os.File, io.Reader, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("%w: %w", ErrFileOpen, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, 0, fmt.Errorf("%w: %w", ErrStat, err)
	}
	return f, bufio.NewReader(f), fi.Size(), nil
}

// Save writes the filter to path.
func (f *Filter) Save(path string) error {
	h := f.header()
	return writeFile(path, h.encode(), f.bits.buf)
}

// LoadFilter reads a filter written by [Filter.Save].
func LoadFilter(path string) (*Filter, error) {
	file, r, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readFilter(r, size)
}

// Save writes the filter to path.
func (f *CountingFilter) Save(path string) error {
	h := f.header()
	return writeFile(path, h.encode(), f.cells.bytes())
}

// LoadCounting reads a filter written by [CountingFilter.Save].
func LoadCounting(path string) (*CountingFilter, error) {
	file, r, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readCounting(r, size)
}

// Save writes the filter to path.
func (f *TimeDecayingFilter) Save(path string) error {
	h := f.header()
	return writeFile(path, h.encode(), f.cells.bytes())
}

// LoadTimeDecaying reads a filter written by [TimeDecayingFilter.Save].
// Only [WithClock] is honoured.
func LoadTimeDecaying(path string, opts ...Option) (*TimeDecayingFilter, error) {
	file, r, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readTimeDecaying(r, size, opts)
}

// Save writes the filter to path.
func (f *TimeDecayingCountingFilter) Save(path string) error {
	h := f.header()
	return writeFile(path, h.encode(), f.entries.buf)
}

// LoadTimeDecayingCounting reads a filter written by
// [TimeDecayingCountingFilter.Save]. Only [WithClock] is honoured.
func LoadTimeDecayingCounting(path string, opts ...Option) (*TimeDecayingCountingFilter, error) {
	file, r, size, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readTimeDecayingCounting(r, size, opts)
}
