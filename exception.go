package vparcel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reflect"
)

// ExceptionKind is the wire code of a transported error.
type ExceptionKind int32

const (
	KindNone             ExceptionKind = 0
	KindSecurity         ExceptionKind = -1
	KindMalformed        ExceptionKind = -2
	KindInvalidArgument  ExceptionKind = -3
	KindNilReference     ExceptionKind = -4
	KindInvalidState     ExceptionKind = -5
	KindRestrictedThread ExceptionKind = -6
	KindUnsupported      ExceptionKind = -7
	KindEmbedded         ExceptionKind = -9
)

var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNilReference     = errors.New("nil reference")
	ErrInvalidState     = errors.New("invalid state")
	ErrRestrictedThread = errors.New("blocking operation on a restricted thread")
)

func (k ExceptionKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSecurity:
		return "security"
	case KindMalformed:
		return "malformed"
	case KindInvalidArgument:
		return "invalid argument"
	case KindNilReference:
		return "nil reference"
	case KindInvalidState:
		return "invalid state"
	case KindRestrictedThread:
		return "restricted thread"
	case KindUnsupported:
		return "unsupported"
	case KindEmbedded:
		return "embedded"
	default:
		return fmt.Sprintf("ExceptionKind(%d)", int32(k))
	}
}

func (k ExceptionKind) sentinel() error {
	switch k {
	case KindSecurity:
		return fs.ErrPermission
	case KindMalformed:
		return ErrMalformed
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindNilReference:
		return ErrNilReference
	case KindInvalidState:
		return ErrInvalidState
	case KindRestrictedThread:
		return ErrRestrictedThread
	case KindUnsupported:
		return errors.ErrUnsupported
	default:
		return nil
	}
}

// Exception is an error received over the wire. It matches the sentinel of
// its kind with errors.Is, so callers can write
//
//	if errors.Is(err, vparcel.ErrInvalidArgument) { ... }
//
// regardless of whether err was raised locally or decoded.
type Exception struct {
	kind ExceptionKind
	msg  string
}

func NewException(kind ExceptionKind, msg string) *Exception {
	return &Exception{kind, msg}
}

func (e *Exception) Kind() ExceptionKind {
	return e.kind
}

func (e *Exception) Message() string {
	return e.msg
}

func (e *Exception) Error() string {
	if e.msg == "" {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.msg
}

func (e *Exception) Is(target error) bool {
	if e == nil {
		return false
	}
	s := e.kind.sentinel()
	return s != nil && target == s
}

// KindOf classifies err into one of the transportable kinds. Errors can pick
// their kind explicitly by implementing
//
//	ExceptionKind() ExceptionKind
//
// Returns KindNone for nil (including a typed nil) and for errors that cannot be transported by kind.
func KindOf(err error) ExceptionKind {
	if isNilValue(err) {
		return KindNone
	}
	var e *Exception
	if errors.As(err, &e) && e != nil {
		return e.kind
	}
	var k interface{ ExceptionKind() ExceptionKind }
	if errors.As(err, &k) {
		return k.ExceptionKind()
	}
	switch {
	case errors.Is(err, fs.ErrPermission):
		return KindSecurity
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNilReference):
		return KindNilReference
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrRestrictedThread):
		return KindRestrictedThread
	case errors.Is(err, errors.ErrUnsupported):
		return KindUnsupported
	default:
		return KindNone
	}
}

func exceptionMessage(err error) string {
	var e *Exception
	if errors.As(err, &e) && e == err {
		return e.msg
	}
	return err.Error()
}

// WriteException writes err so that the receiver can re-raise it. A nil err,
// typed or not, is written as KindNone. Errors of a type with a registered versioned codec
// are embedded whole; other errors are sent as kind and message (see
// KindOf).
//
// An error that fits neither form is not encodable: it becomes the writer's
// error unchanged.
func (w *Writer) WriteException(id int, err error) {
	if !w.setOutputField(id) {
		return
	}
	if isNilValue(err) {
		w.putInt32(int32(KindNone))
		return
	}
	var kind ExceptionKind
	if c := w.st.reg.codecFor(reflect.TypeOf(err)); c != nil && c.kind == versionedCodec {
		kind = KindEmbedded
	} else if kind = KindOf(err); kind == KindEmbedded {
		kind = KindNone
	}
	if kind == KindNone {
		w.fail(err)
		return
	}
	w.putInt32(int32(kind))
	w.putString(exceptionMessage(err))
	if kind == KindEmbedded {
		w.Encode(err)
	}
}

// ReadException reads an error written by WriteException. Returns def if the
// field is absent or carries no error.
func (r *Reader) ReadException(id int, def error) error {
	if !r.readField(id) {
		return def
	}
	kind := ExceptionKind(r.getInt32())
	if r.st.err != nil || kind == KindNone {
		return def
	}
	msg, _ := r.getString()
	if r.st.err != nil {
		return def
	}
	if kind == KindEmbedded {
		start := r.off
		v := r.Decode()
		if r.st.err != nil {
			return def
		}
		if err, ok := v.(error); ok {
			return err
		}
		r.fail(dataErrf(r.data, start, nil, "embedded exception %T is not an error", v))
		return def
	}
	if kind.sentinel() == nil {
		r.st.logger.LogAttrs(context.Background(), slog.LevelWarn, "vparcel: unknown exception kind", slog.Int("kind", int(kind)), slog.String("msg", msg))
	}
	return &Exception{kind, msg}
}
