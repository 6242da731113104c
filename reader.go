package vparcel

import (
	"context"
	"log/slog"
	"math"
)

type readState struct {
	reg      *Registry
	maxDepth int
	logger   *slog.Logger
	handles  []Handle
	err      error
}

// Reader is the decoding cursor. Every Read method takes a field id and a
// default; the default is returned when this scope has no such field, so
// data written by an older or newer version of a codec can still be read.
//
// Like Writer, a Reader records the first failure and reports it by Err;
// once failed, reads return zero values.
type Reader struct {
	st *readState
	byteDecoder
	depth int

	indexed bool
	fields  map[int]span
}

type span struct {
	start, end int
}

func NewReader(data []byte, o Options) *Reader {
	o = o.withDefaults()
	return &Reader{
		st: &readState{
			reg:      o.Registry,
			maxDepth: o.MaxDepth,
			logger:   o.Logger,
			handles:  o.Handles,
		},
		byteDecoder: makeByteDecoder(data),
	}
}

func (r *Reader) Err() error {
	return r.st.err
}

func (r *Reader) fail(err error) {
	if r.st.err != nil {
		return
	}
	r.st.err = err
	r.st.logger.LogAttrs(context.Background(), slog.LevelDebug, "vparcel: decode failed", slog.Int("depth", r.depth), slog.Any("err", err))
}

func (r *Reader) getInt32() int32 {
	if r.st.err != nil {
		return 0
	}
	v, err := r.Int32()
	if err != nil {
		r.fail(err)
	}
	return v
}

func (r *Reader) getInt64() int64 {
	if r.st.err != nil {
		return 0
	}
	v, err := r.Varint()
	if err != nil {
		r.fail(err)
	}
	return v
}

func (r *Reader) getFloat32() float32 {
	if r.st.err != nil {
		return 0
	}
	v, err := r.Fixed32()
	if err != nil {
		r.fail(err)
		return 0
	}
	return math.Float32frombits(v)
}

func (r *Reader) getFloat64() float64 {
	if r.st.err != nil {
		return 0
	}
	v, err := r.Fixed64()
	if err != nil {
		r.fail(err)
		return 0
	}
	return math.Float64frombits(v)
}

func (r *Reader) getBool() bool {
	return r.getInt32() != 0
}

// getLen reads a collection or array count. Returns -1 for nil and on
// failure. Every element takes at least one byte, so counts larger than
// the remaining data are rejected before allocating.
func (r *Reader) getLen() int {
	if r.st.err != nil {
		return -1
	}
	start := r.off
	n, err := r.Len()
	if err != nil {
		r.fail(err)
		return -1
	}
	if n > r.Remaining() {
		r.fail(dataErrf(r.data, start, nil, "count %d exceeds %d remaining bytes", n, r.Remaining()))
		return -1
	}
	return n
}

// getString returns ok == false for a null string and on failure.
func (r *Reader) getString() (string, bool) {
	if r.st.err != nil {
		return "", false
	}
	n, err := r.Len()
	if err != nil {
		r.fail(err)
		return "", false
	}
	if n < 0 {
		return "", false
	}
	raw, err := r.Raw(n)
	if err != nil {
		r.fail(err)
		return "", false
	}
	return string(raw), true
}

func (r *Reader) getBytes() []byte {
	if r.st.err != nil {
		return nil
	}
	n, err := r.Len()
	if err != nil {
		r.fail(err)
		return nil
	}
	if n < 0 {
		return nil
	}
	raw, err := r.Raw(n)
	if err != nil {
		r.fail(err)
		return nil
	}
	return append(make([]byte, 0, n), raw...)
}

// createSubCursor opens the length-prefixed scope at the current position.
// Returns nil on failure.
func (r *Reader) createSubCursor() *Reader {
	if r.st.err != nil {
		return nil
	}
	if r.depth+1 > r.st.maxDepth {
		r.fail(dataErrf(r.data, r.off, ErrTooDeep, "nesting deeper than %d", r.st.maxDepth))
		return nil
	}
	raw, err := r.VarBytes()
	if err != nil {
		r.fail(err)
		return nil
	}
	return &Reader{
		st:          r.st,
		byteDecoder: makeByteDecoder(raw),
		depth:       r.depth + 1,
	}
}

func (r *Reader) ReadInt32(id int, def int32) int32 {
	if !r.readField(id) {
		return def
	}
	return r.getInt32()
}

func (r *Reader) ReadInt64(id int, def int64) int64 {
	if !r.readField(id) {
		return def
	}
	return r.getInt64()
}

func (r *Reader) ReadFloat32(id int, def float32) float32 {
	if !r.readField(id) {
		return def
	}
	return r.getFloat32()
}

func (r *Reader) ReadFloat64(id int, def float64) float64 {
	if !r.readField(id) {
		return def
	}
	return r.getFloat64()
}

func (r *Reader) ReadBool(id int, def bool) bool {
	if !r.readField(id) {
		return def
	}
	return r.getBool()
}

func (r *Reader) ReadString(id int, def string) string {
	if !r.readField(id) {
		return def
	}
	s, _ := r.getString()
	return s
}

func (r *Reader) ReadBytes(id int, def []byte) []byte {
	if !r.readField(id) {
		return def
	}
	return r.getBytes()
}

func (r *Reader) ReadUint8(id int, def byte) byte {
	if !r.readField(id) {
		return def
	}
	return byte(r.getInt32() & 0xff)
}
