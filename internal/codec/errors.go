package codec

import (
	"errors"
	"fmt"
)

var (
	ErrBadMagic  = errors.New("bad magic")
	ErrVersion   = errors.New("unsupported format version")
	ErrChecksum  = errors.New("checksum mismatch")
	ErrTruncated = errors.New("truncated buffer")
	ErrCorrupt   = errors.New("corrupt document")
)

// DecodeError reports a buffer that cannot be turned back into a document.
type DecodeError struct {
	// Err is one of the sentinel errors above.
	Err error

	// Offset is the byte position where decoding stopped, -1 if not
	// meaningful.
	Offset int

	// Detail adds context, e.g. the versions involved.
	Detail string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := "DECODE_ERROR: " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" (offset=%d)", e.Offset)
	}
	return msg
}

// Unwrap returns the sentinel.
func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError returns true if err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
