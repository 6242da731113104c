package vparcel

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

type writeState struct {
	reg      *Registry
	maxDepth int
	logger   *slog.Logger
	handles  []Handle
	err      error
}

// Writer is the encoding cursor. A Writer and the sub-writers created for
// nested objects must be used from one goroutine.
//
// Writes never return errors. The first failure is recorded and reported by
// Err; later writes are ignored.
type Writer struct {
	st     *writeState
	parent *Writer
	depth  int

	buf     []byte // sealed field entries (or unframed values) of this scope
	field   []byte // value of the open field
	fieldID int
	inField bool
	seen    map[int]struct{}
}

func NewWriter(o Options) *Writer {
	o = o.withDefaults()
	return &Writer{
		st: &writeState{
			reg:      o.Registry,
			maxDepth: o.MaxDepth,
			logger:   o.Logger,
		},
	}
}

// Err returns the first error encountered by this writer or any of its
// sub-writers.
func (w *Writer) Err() error {
	return w.st.err
}

// Bytes seals the open field and returns the encoded data. Only meaningful
// on a top-level writer.
func (w *Writer) Bytes() []byte {
	w.sealField()
	return w.buf
}

func (w *Writer) fail(err error) {
	if w.st.err != nil {
		return
	}
	w.st.err = err
	w.st.logger.LogAttrs(context.Background(), slog.LevelDebug, "vparcel: encode failed", slog.Int("depth", w.depth), slog.Any("err", err))
}

func (w *Writer) out() *[]byte {
	if w.inField {
		return &w.field
	}
	return &w.buf
}

func (w *Writer) putInt32(v int32) {
	p := w.out()
	*p = appendVarint(*p, int64(v))
}

func (w *Writer) putInt64(v int64) {
	p := w.out()
	*p = appendVarint(*p, v)
}

func (w *Writer) putFloat32(v float32) {
	p := w.out()
	*p = appendFixed32(*p, math.Float32bits(v))
}

func (w *Writer) putFloat64(v float64) {
	p := w.out()
	*p = appendFixed64(*p, math.Float64bits(v))
}

func (w *Writer) putBool(v bool) {
	if v {
		w.putInt32(1)
	} else {
		w.putInt32(0)
	}
}

func (w *Writer) putString(v string) {
	p := w.out()
	*p = appendVarint(*p, int64(len(v)))
	*p = append(*p, v...)
}

func (w *Writer) putNullString() {
	w.putInt32(-1)
}

func (w *Writer) putBytes(v []byte) {
	if v == nil {
		w.putInt32(-1)
		return
	}
	p := w.out()
	*p = appendVarint(*p, int64(len(v)))
	*p = appendRaw(*p, v)
}

// createSubCursor starts a nested scope. Returns nil if the depth limit is
// exceeded.
func (w *Writer) createSubCursor() *Writer {
	if w.depth+1 > w.st.maxDepth {
		w.fail(fmt.Errorf("%w: limit is %d", ErrTooDeep, w.st.maxDepth))
		return nil
	}
	return &Writer{
		st:     w.st,
		parent: w,
		depth:  w.depth + 1,
		buf:    acquireScopeBytes(),
	}
}

// closeField seals a sub-cursor into its parent as a length-prefixed scope,
// so that readers can skip it without understanding its contents.
func (w *Writer) closeField() {
	w.sealField()
	p := w.parent.out()
	*p = appendVarbytes(*p, w.buf)
	releaseScopeBytes(w.buf)
	if w.field != nil {
		releaseScopeBytes(w.field)
	}
	w.buf, w.field = nil, nil
}

func (w *Writer) WriteInt32(id int, v int32) {
	if w.setOutputField(id) {
		w.putInt32(v)
	}
}

func (w *Writer) WriteInt64(id int, v int64) {
	if w.setOutputField(id) {
		w.putInt64(v)
	}
}

func (w *Writer) WriteFloat32(id int, v float32) {
	if w.setOutputField(id) {
		w.putFloat32(v)
	}
}

func (w *Writer) WriteFloat64(id int, v float64) {
	if w.setOutputField(id) {
		w.putFloat64(v)
	}
}

func (w *Writer) WriteBool(id int, v bool) {
	if w.setOutputField(id) {
		w.putBool(v)
	}
}

func (w *Writer) WriteString(id int, v string) {
	if w.setOutputField(id) {
		w.putString(v)
	}
}

// WriteBytes writes a byte array. A nil slice is decoded as nil, an empty
// one as empty.
func (w *Writer) WriteBytes(id int, v []byte) {
	if w.setOutputField(id) {
		w.putBytes(v)
	}
}

// WriteUint8 stores a single byte as an int.
func (w *Writer) WriteUint8(id int, v byte) {
	if w.setOutputField(id) {
		w.putInt32(int32(v))
	}
}
