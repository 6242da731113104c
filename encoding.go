package vparcel

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// EncodingMethod picks the self-describing format used for serializable
// values.
type EncodingMethod int

const (
	MsgPack EncodingMethod = iota
	CBOR
)

func (enc EncodingMethod) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case CBOR:
		return "cbor"
	default:
		return fmt.Sprintf("EncodingMethod(%d)", int(enc))
	}
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	cborEncMode = must(cbor.CoreDetEncOptions().EncMode())
	cborDecMode = must(cbor.DecOptions{}.DecMode())
}

func (enc EncodingMethod) encodeValue(v any) ([]byte, error) {
	switch enc {
	case MsgPack:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		e.Reset(&buf)
		e.SetSortMapKeys(true)
		err := e.Encode(v)
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CBOR:
		return cborEncMode.Marshal(v)
	default:
		return nil, fmt.Errorf("unknown encoding %v", enc)
	}
}

func (enc EncodingMethod) decodeValue(data []byte, ptr any) error {
	switch enc {
	case MsgPack:
		d := msgpack.GetDecoder()
		d.Reset(bytes.NewReader(data))
		err := d.Decode(ptr)
		msgpack.PutDecoder(d)
		return err
	case CBOR:
		return cborDecMode.Unmarshal(data, ptr)
	default:
		return fmt.Errorf("unknown encoding %v", enc)
	}
}

// Serializable values are written as their identity followed by the blob:
//
//	string(identity) bytes(blob)

func (w *Writer) putSerializable(v any) {
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
	if c.kind != serializableCodec {
		w.fail(fmt.Errorf("%w: %v is not registered as serializable", ErrUnsupportedValue, c.typ))
		return
	}
	raw, err := c.method.encodeValue(v)
	if err != nil {
		w.fail(&ObjectError{c.identity, err})
		return
	}
	w.putString(c.identity)
	if raw == nil {
		raw = []byte{}
	}
	w.putBytes(raw)
}

// WriteSerializable writes a value registered with RegisterSerializable.
func (w *Writer) WriteSerializable(id int, v any) {
	if w.setOutputField(id) {
		w.putSerializable(v)
	}
}

func (r *Reader) getSerializable() any {
	identity, ok := r.getString()
	if !ok {
		return nil
	}
	start := r.off
	raw := r.getBytes()
	if r.st.err != nil {
		return nil
	}
	c, err := r.st.reg.resolveDecoder(identity)
	if err != nil {
		r.fail(err)
		return nil
	}
	if c.kind != serializableCodec {
		r.fail(dataErrf(r.data, start, nil, "%s is a versioned codec, wanted a serializable type", identity))
		return nil
	}
	ptr := reflect.New(c.typ)
	if err := c.method.decodeValue(raw, ptr.Interface()); err != nil {
		r.fail(dataErrf(r.data, start, err, "cannot decode %s using %v", identity, c.method))
		return nil
	}
	return ptr.Elem().Interface()
}

// ReadSerializable reads a value written by WriteSerializable. The result has
// the registered type.
func (r *Reader) ReadSerializable(id int, def any) any {
	if !r.readField(id) {
		return def
	}
	return r.getSerializable()
}
