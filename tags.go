package vparcel

import (
	"fmt"
	"math"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// WireTag identifies the element encoding of a collection. All elements of
// a collection share the tag of its first element.
type WireTag int32

const (
	TagVersioned    WireTag = 1
	TagEmbedded     WireTag = 2
	TagSerializable WireTag = 3
	TagString       WireTag = 4
	TagHandle       WireTag = 5
	TagInt          WireTag = 7
	TagFloat        WireTag = 8
)

var wireTagNames = map[WireTag]string{
	TagVersioned:    "versioned",
	TagEmbedded:     "embedded",
	TagSerializable: "serializable",
	TagString:       "string",
	TagHandle:       "handle",
	TagInt:          "int",
	TagFloat:        "float",
}

func (t WireTag) String() string {
	if s, ok := wireTagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("WireTag(%d)", int32(t))
}

// Classify picks the wire tag for v. Checks run in a fixed order, so a
// string is always TagString and a registered type that also implements
// Handle is encoded by its codec.
func (reg *Registry) Classify(v any) (WireTag, error) {
	switch v.(type) {
	case string:
		return TagString, nil
	case proto.Message:
		return TagEmbedded, nil
	case nil:
		return 0, fmt.Errorf("%w: cannot classify nil", ErrUnsupportedValue)
	}
	if c := reg.codecFor(reflect.TypeOf(v)); c != nil {
		if c.kind == versionedCodec {
			return TagVersioned, nil
		}
		return TagSerializable, nil
	}
	switch v.(type) {
	case Handle:
		return TagHandle, nil
	case int32, int:
		return TagInt, nil
	case float32:
		return TagFloat, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func (w *Writer) putTag(tag WireTag) {
	w.putInt32(int32(tag))
}

func (r *Reader) getTag() WireTag {
	start := r.off
	tag := WireTag(r.getInt32())
	if r.st.err != nil {
		return 0
	}
	if _, ok := wireTagNames[tag]; !ok {
		r.fail(dataErrf(r.data, start, nil, "unknown wire tag %d", tag))
		return 0
	}
	return tag
}

func (w *Writer) mixed(tag WireTag, v any) {
	w.fail(fmt.Errorf("%w: %T in a collection of %v", ErrMixedCollection, v, tag))
}

// putElement writes v using the encoding of tag.
func (w *Writer) putElement(tag WireTag, v any) {
	switch tag {
	case TagString:
		if s, ok := v.(string); ok {
			w.putString(s)
			return
		}
	case TagEmbedded:
		if v == nil {
			w.putProto(nil)
			return
		}
		if m, ok := v.(proto.Message); ok {
			w.putProto(m)
			return
		}
	case TagVersioned, TagSerializable:
		if isNilValue(v) {
			w.putNullString()
			return
		}
		c := w.st.reg.codecFor(reflect.TypeOf(v))
		if c != nil && c.kind == versionedCodec && tag == TagVersioned {
			w.Encode(v)
			return
		}
		if c != nil && c.kind == serializableCodec && tag == TagSerializable {
			w.putSerializable(v)
			return
		}
	case TagHandle:
		if v == nil {
			w.putHandle(nil)
			return
		}
		if h, ok := v.(Handle); ok {
			w.putHandle(h)
			return
		}
	case TagInt:
		switch v := v.(type) {
		case int32:
			w.putInt32(v)
			return
		case int:
			if v < math.MinInt32 || v > math.MaxInt32 {
				w.fail(fmt.Errorf("%w: %d does not fit into int32", ErrUnsupportedValue, v))
				return
			}
			w.putInt32(int32(v))
			return
		}
	case TagFloat:
		if f, ok := v.(float32); ok {
			w.putFloat32(f)
			return
		}
	}
	w.mixed(tag, v)
}

func (r *Reader) getElement(tag WireTag) any {
	switch tag {
	case TagString:
		s, _ := r.getString()
		return s
	case TagEmbedded:
		if m := r.getProto(); m != nil {
			return m
		}
		return nil
	case TagVersioned:
		return r.Decode()
	case TagSerializable:
		return r.getSerializable()
	case TagHandle:
		if h := r.getHandle(); h != nil {
			return h
		}
		return nil
	case TagInt:
		return r.getInt32()
	case TagFloat:
		return r.getFloat32()
	default:
		panic(fmt.Sprintf("unreachable: tag %v", tag))
	}
}

// convertElement adapts a decoded element to the element type of the
// destination collection. Ints are decoded as int32 and converted to int
// when that is what the caller asked for.
func convertElement[T any](v any) (T, bool) {
	var zero T
	if v == nil {
		return zero, true
	}
	if t, ok := v.(T); ok {
		return t, true
	}
	if i, ok := v.(int32); ok {
		if t, ok := any(int(i)).(T); ok {
			return t, true
		}
	}
	return zero, false
}
