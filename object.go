package vparcel

import (
	"fmt"
	"reflect"
)

// An encoded object is its codec identity followed by a sub-cursor scope:
//
//	string(identity) uvarint(len) fields...
//
// A nil object is a null identity with no scope.

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// WriteObject writes a versioned object, or an absent one if v is nil. The
// codec is chosen by the dynamic type of v.
func (w *Writer) WriteObject(id int, v any) {
	if w.setOutputField(id) {
		w.Encode(v)
	}
}

// Encode writes an unframed versioned object at the current position. Use it
// to produce top-level data; inside codecs use WriteObject.
func (w *Writer) Encode(v any) {
	if w.st.err != nil {
		return
	}
	if isNilValue(v) {
		w.putNullString()
		return
	}
	c, err := w.st.reg.resolveEncoder(reflect.TypeOf(v))
	if err != nil {
		w.fail(err)
		return
	}
	if c.kind != versionedCodec {
		w.fail(fmt.Errorf("%w: %v is registered as serializable", ErrUnsupportedValue, c.typ))
		return
	}
	w.putString(c.identity)
	sub := w.createSubCursor()
	if sub == nil {
		return
	}
	c.encode(sub, v)
	sub.closeField()
	if w.st.err != nil {
		w.st.err = &ObjectError{c.identity, w.st.err}
	}
}

// ReadObject reads a versioned object written by WriteObject. An absent
// field returns def, a nil object returns nil.
func (r *Reader) ReadObject(id int, def any) any {
	if !r.readField(id) {
		return def
	}
	return r.Decode()
}

// Decode reads an unframed versioned object at the current position.
func (r *Reader) Decode() any {
	identity, ok := r.getString()
	if !ok {
		return nil
	}
	c, err := r.st.reg.resolveDecoder(identity)
	if err != nil {
		r.fail(err)
		return nil
	}
	if c.kind != versionedCodec {
		r.fail(dataErrf(r.data, r.off, nil, "%s is a serializable type, wanted a versioned object", identity))
		return nil
	}
	sub := r.createSubCursor()
	if sub == nil {
		return nil
	}
	v := c.decode(sub)
	if r.st.err != nil {
		r.st.err = &ObjectError{identity, r.st.err}
		return nil
	}
	return v
}

// ReadObjectAs reads a versioned object into T. Decoding into an interface
// type preserves the concrete type registered for the wire identity.
func ReadObjectAs[T any](r *Reader, id int, def T) T {
	if !r.readField(id) {
		return def
	}
	return decodeAs[T](r)
}

func decodeAs[T any](r *Reader) T {
	var zero T
	v := r.Decode()
	if v == nil {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		r.fail(dataErrf(r.data, r.off, nil, "decoded %T, wanted %v", v, reflect.TypeFor[T]()))
		return zero
	}
	return t
}

// Marshal encodes v as a top-level versioned object. Values that carry
// handles cannot be marshaled into plain bytes; use a Writer and Handles.
func Marshal(v any, o Options) ([]byte, error) {
	w := NewWriter(o)
	w.Encode(v)
	if err := w.Err(); err != nil {
		return nil, err
	}
	if len(w.Handles()) > 0 {
		return nil, ErrOutOfBandHandles
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a top-level versioned object. Trailing data is an
// error.
func Unmarshal(data []byte, o Options) (any, error) {
	r := NewReader(data, o)
	v := r.Decode()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if n := r.Remaining(); n > 0 {
		return nil, dataErrf(data, r.off, nil, "%d trailing bytes", n)
	}
	return v, nil
}

func UnmarshalAs[T any](data []byte, o Options) (T, error) {
	var zero T
	r := NewReader(data, o)
	v := decodeAs[T](r)
	if err := r.Err(); err != nil {
		return zero, err
	}
	if n := r.Remaining(); n > 0 {
		return zero, dataErrf(data, r.off, nil, "%d trailing bytes", n)
	}
	return v, nil
}
