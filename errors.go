package vparcel

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrMalformed is matched by every error caused by bad wire content:
	// truncated data, invalid varints, unknown wire tags, repeated field ids.
	ErrMalformed = errors.New("malformed data")

	ErrCodecNotFound    = errors.New("codec not found")
	ErrTooDeep          = errors.New("nesting too deep")
	ErrDuplicateField   = errors.New("duplicate field id")
	ErrNegativeField    = errors.New("negative field id")
	ErrMixedCollection  = errors.New("mixed-type collection")
	ErrUnsupportedValue = errors.New("value cannot be encoded")
	ErrOutOfBandHandles = errors.New("value carries out-of-band handles")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Is(target error) bool {
	return target == ErrMalformed
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s at %d: %v: (%d) %x", e.Msg, e.Off, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s at %d: (%d) %x", e.Msg, e.Off, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s at %d: %v: (%d) %x...%x", e.Msg, e.Off, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s at %d: (%d) %x...%x", e.Msg, e.Off, n, p, s)
		}
	}
}

// CodecNotFoundError reports a type or wire identity without a registered
// codec. It is a configuration error and is never retried.
type CodecNotFoundError struct {
	Identity string
	Type     reflect.Type
}

func (e *CodecNotFoundError) Is(target error) bool {
	return target == ErrCodecNotFound
}

func (e *CodecNotFoundError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("no codec registered for %v", e.Type)
	}
	return fmt.Sprintf("no codec registered for identity %q", e.Identity)
}

// ObjectError adds the identity of the object being encoded or decoded to
// an error raised by its codec or by a nested value.
type ObjectError struct {
	Identity string
	Err      error
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

func (e *ObjectError) Error() string {
	return e.Identity + ": " + e.Err.Error()
}
