package archbloom

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindMessages(t *testing.T) {
	t.Parallel()

	seen := map[string]ErrorKind{}
	for k := Success; k <= IncompatibleFiltersError; k++ {
		msg := k.String()
		require.NotEqual(t, "unknown error", msg, "kind %d has no message", k)
		if prev, ok := seen[msg]; ok {
			t.Errorf("kinds %d and %d share message %q", prev, k, msg)
		}
		seen[msg] = k
	}
	assert.Equal(t, "unknown error", ErrorKind(200).String())
	assert.Equal(t, "archbloom: invalid file format", ErrInvalidFile.Error())
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	kind, ok := KindOf(nil)
	assert.True(t, ok)
	assert.Equal(t, Success, kind)

	wrapped := fmt.Errorf("loading: %w", fmt.Errorf("%w: bad magic", ErrInvalidFile))
	kind, ok = KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, InvalidFileError, kind)
	assert.ErrorIs(t, wrapped, ErrInvalidFile)
	assert.NotErrorIs(t, wrapped, ErrFileRead)

	_, ok = KindOf(io.EOF)
	assert.False(t, ok)
}

func TestWrappedCauseKept(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: %w", ErrFileRead, io.ErrClosedPipe)
	assert.True(t, errors.Is(err, ErrFileRead))
	assert.True(t, errors.Is(err, io.ErrClosedPipe))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, FileReadError, kind)
}
