package archbloom

import "errors"

// ErrorKind identifies the class of a failure returned by this package.
//
// Every kind is itself an error, so the exported Err* values can be matched
// with [errors.Is] even after they have been wrapped with extra detail.
type ErrorKind uint8

const (
	Success ErrorKind = iota
	OutOfMemory
	FileOpenError
	FileReadError
	FileWriteError
	StatError
	InvalidFileError
	InvalidParameterError
	IncompatibleFiltersError
)

// Sentinel errors. Functions wrap these with fmt.Errorf("%w: ...") to add
// detail; use errors.Is or [KindOf] to inspect them.
var (
	ErrOutOfMemory         error = OutOfMemory
	ErrFileOpen            error = FileOpenError
	ErrFileRead            error = FileReadError
	ErrFileWrite           error = FileWriteError
	ErrStat                error = StatError
	ErrInvalidFile         error = InvalidFileError
	ErrInvalidParameter    error = InvalidParameterError
	ErrIncompatibleFilters error = IncompatibleFiltersError
)

// String returns the human-readable message for k.
func (k ErrorKind) String() string {
	switch k {
	case Success:
		return "success"
	case OutOfMemory:
		return "out of memory"
	case FileOpenError:
		return "unable to open file"
	case FileReadError:
		return "unable to read file"
	case FileWriteError:
		return "unable to write to file"
	case StatError:
		return "unable to stat file"
	case InvalidFileError:
		return "invalid file format"
	case InvalidParameterError:
		return "invalid parameter"
	case IncompatibleFiltersError:
		return "incompatible filters"
	default:
		return "unknown error"
	}
}

func (k ErrorKind) Error() string {
	return "archbloom: " + k.String()
}

// KindOf reports the [ErrorKind] carried by err. A nil error is [Success].
// The second result is false when err did not originate from this package.
func KindOf(err error) (ErrorKind, bool) {
	if err == nil {
		return Success, true
	}
	var kind ErrorKind
	if errors.As(err, &kind) {
		return kind, true
	}
	return 0, false
}
