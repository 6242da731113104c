package vparcel

import (
	"slices"
)

// Primitive arrays carry no tag:
//
//	int(count) value...
//
// with count -1 for nil.

func putArray[T any](w *Writer, v []T, put func(T)) {
	if v == nil {
		w.putInt32(-1)
		return
	}
	w.putInt32(int32(len(v)))
	for _, e := range v {
		put(e)
	}
}

func getArray[T any](r *Reader, get func() T) []T {
	n := r.getLen()
	if n < 0 {
		return nil
	}
	result := make([]T, n)
	for i := range result {
		result[i] = get()
		if r.st.err != nil {
			return nil
		}
	}
	return result
}

func (w *Writer) WriteBools(id int, v []bool) {
	if w.setOutputField(id) {
		putArray(w, v, w.putBool)
	}
}

func (r *Reader) ReadBools(id int, def []bool) []bool {
	if !r.readField(id) {
		return def
	}
	return getArray(r, r.getBool)
}

func (w *Writer) WriteInt32s(id int, v []int32) {
	if w.setOutputField(id) {
		putArray(w, v, w.putInt32)
	}
}

func (r *Reader) ReadInt32s(id int, def []int32) []int32 {
	if !r.readField(id) {
		return def
	}
	return getArray(r, r.getInt32)
}

func (w *Writer) WriteInt64s(id int, v []int64) {
	if w.setOutputField(id) {
		putArray(w, v, w.putInt64)
	}
}

func (r *Reader) ReadInt64s(id int, def []int64) []int64 {
	if !r.readField(id) {
		return def
	}
	return getArray(r, r.getInt64)
}

func (w *Writer) WriteFloat32s(id int, v []float32) {
	if w.setOutputField(id) {
		putArray(w, v, w.putFloat32)
	}
}

func (r *Reader) ReadFloat32s(id int, def []float32) []float32 {
	if !r.readField(id) {
		return def
	}
	return getArray(r, r.getFloat32)
}

func (w *Writer) WriteFloat64s(id int, v []float64) {
	if w.setOutputField(id) {
		putArray(w, v, w.putFloat64)
	}
}

func (r *Reader) ReadFloat64s(id int, def []float64) []float64 {
	if !r.readField(id) {
		return def
	}
	return getArray(r, r.getFloat64)
}

// WriteRunes writes a char array. Each rune is stored as an int.
func (w *Writer) WriteRunes(id int, v []rune) {
	if w.setOutputField(id) {
		putArray(w, v, w.putInt32)
	}
}

func (r *Reader) ReadRunes(id int, def []rune) []rune {
	if !r.readField(id) {
		return def
	}
	return getArray(r, r.getInt32)
}

// Size is a pair of integer dimensions.
type Size struct {
	Width, Height int32
}

// SizeF is a pair of float dimensions.
type SizeF struct {
	Width, Height float32
}

// WriteSize writes a nullable Size as a presence flag followed by both
// dimensions.
func (w *Writer) WriteSize(id int, v *Size) {
	if !w.setOutputField(id) {
		return
	}
	w.putBool(v != nil)
	if v != nil {
		w.putInt32(v.Width)
		w.putInt32(v.Height)
	}
}

func (r *Reader) ReadSize(id int, def *Size) *Size {
	if !r.readField(id) {
		return def
	}
	if !r.getBool() || r.st.err != nil {
		return nil
	}
	v := &Size{Width: r.getInt32(), Height: r.getInt32()}
	if r.st.err != nil {
		return nil
	}
	return v
}

func (w *Writer) WriteSizeF(id int, v *SizeF) {
	if !w.setOutputField(id) {
		return
	}
	w.putBool(v != nil)
	if v != nil {
		w.putFloat32(v.Width)
		w.putFloat32(v.Height)
	}
}

func (r *Reader) ReadSizeF(id int, def *SizeF) *SizeF {
	if !r.readField(id) {
		return def
	}
	if !r.getBool() || r.st.err != nil {
		return nil
	}
	v := &SizeF{Width: r.getFloat32(), Height: r.getFloat32()}
	if r.st.err != nil {
		return nil
	}
	return v
}

// WriteSparseBools writes an int-keyed bool map as count followed by
// key/value pairs in key order. Nil is written as count -1.
func (w *Writer) WriteSparseBools(id int, v map[int32]bool) {
	if !w.setOutputField(id) {
		return
	}
	if v == nil {
		w.putInt32(-1)
		return
	}
	keys := make([]int32, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	w.putInt32(int32(len(keys)))
	for _, k := range keys {
		w.putInt32(k)
		w.putBool(v[k])
	}
}

func (r *Reader) ReadSparseBools(id int, def map[int32]bool) map[int32]bool {
	if !r.readField(id) {
		return def
	}
	n := r.getLen()
	if n < 0 {
		return nil
	}
	result := make(map[int32]bool, n)
	for i := 0; i < n; i++ {
		k := r.getInt32()
		result[k] = r.getBool()
		if r.st.err != nil {
			return nil
		}
	}
	return result
}
