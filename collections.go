package vparcel

import (
	"reflect"
)

// Collections are encoded as
//
//	int(count) [int(tag) element...]
//
// with count -1 for nil. Maps write all keys, then all values, each run
// with its own tag. Map and set iteration order is not preserved.

func putTagged[T any](w *Writer, elems []T) {
	tag, err := w.st.reg.Classify(any(elems[0]))
	if err != nil {
		w.fail(err)
		return
	}
	w.putTag(tag)
	for _, e := range elems {
		w.putElement(tag, any(e))
		if w.st.err != nil {
			return
		}
	}
}

func getTagged[T any](r *Reader, n int) []T {
	tag := r.getTag()
	if r.st.err != nil {
		return nil
	}
	result := make([]T, 0, n)
	for i := 0; i < n; i++ {
		start := r.off
		e := r.getElement(tag)
		if r.st.err != nil {
			return nil
		}
		t, ok := convertElement[T](e)
		if !ok {
			r.fail(dataErrf(r.data, start, nil, "element %d is %T, wanted %v", i, e, reflect.TypeFor[T]()))
			return nil
		}
		result = append(result, t)
	}
	return result
}

// WriteList writes a homogeneous list. Elements must all classify to the
// tag of the first one.
func WriteList[T any](w *Writer, id int, list []T) {
	if !w.setOutputField(id) {
		return
	}
	if list == nil {
		w.putInt32(-1)
		return
	}
	w.putInt32(int32(len(list)))
	if len(list) > 0 {
		putTagged(w, list)
	}
}

func ReadList[T any](r *Reader, id int, def []T) []T {
	if !r.readField(id) {
		return def
	}
	n := r.getLen()
	if n < 0 {
		return nil
	}
	if n == 0 {
		return []T{}
	}
	return getTagged[T](r, n)
}

// WriteSet writes the members of set using the list encoding.
func WriteSet[T comparable](w *Writer, id int, set map[T]struct{}) {
	if !w.setOutputField(id) {
		return
	}
	if set == nil {
		w.putInt32(-1)
		return
	}
	w.putInt32(int32(len(set)))
	if len(set) == 0 {
		return
	}
	members := make([]T, 0, len(set))
	for k := range set {
		members = append(members, k)
	}
	putTagged(w, members)
}

// ReadSet reads a set. Repeated members are collapsed.
func ReadSet[T comparable](r *Reader, id int, def map[T]struct{}) map[T]struct{} {
	if !r.readField(id) {
		return def
	}
	n := r.getLen()
	if n < 0 {
		return nil
	}
	set := make(map[T]struct{}, n)
	if n == 0 {
		return set
	}
	members := getTagged[T](r, n)
	if r.st.err != nil {
		return nil
	}
	for _, k := range members {
		set[k] = struct{}{}
	}
	return set
}

func WriteMap[K comparable, V any](w *Writer, id int, m map[K]V) {
	if !w.setOutputField(id) {
		return
	}
	if m == nil {
		w.putInt32(-1)
		return
	}
	w.putInt32(int32(len(m)))
	if len(m) == 0 {
		return
	}
	keys := make([]K, 0, len(m))
	values := make([]V, 0, len(m))
	for k, v := range m {
		keys = append(keys, k)
		values = append(values, v)
	}
	putTagged(w, keys)
	putTagged(w, values)
}

func ReadMap[K comparable, V any](r *Reader, id int, def map[K]V) map[K]V {
	if !r.readField(id) {
		return def
	}
	n := r.getLen()
	if n < 0 {
		return nil
	}
	m := make(map[K]V, n)
	if n == 0 {
		return m
	}
	keys := getTagged[K](r, n)
	values := getTagged[V](r, n)
	if r.st.err != nil {
		return nil
	}
	for i, k := range keys {
		m[k] = values[i]
	}
	return m
}
