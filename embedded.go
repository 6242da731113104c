package vparcel

import (
	"google.golang.org/protobuf/proto"
)

// Protobuf messages are embedded as their full name followed by the
// length-prefixed binary encoding:
//
//	string(full name) bytes(message)

var protoMarshalOptions = proto.MarshalOptions{Deterministic: true}

func (w *Writer) putProto(m proto.Message) {
	if m == nil || !m.ProtoReflect().IsValid() {
		w.putNullString()
		return
	}
	raw, err := protoMarshalOptions.Marshal(m)
	if err != nil {
		w.fail(&ObjectError{string(m.ProtoReflect().Descriptor().FullName()), err})
		return
	}
	w.putString(string(m.ProtoReflect().Descriptor().FullName()))
	if raw == nil {
		raw = []byte{}
	}
	w.putBytes(raw)
}

// WriteProto embeds a protobuf message. A nil message is decoded as nil.
func (w *Writer) WriteProto(id int, m proto.Message) {
	if w.setOutputField(id) {
		w.putProto(m)
	}
}

func (r *Reader) getProto() proto.Message {
	name, ok := r.getString()
	if !ok {
		return nil
	}
	start := r.off
	raw := r.getBytes()
	if r.st.err != nil {
		return nil
	}
	mt, err := r.st.reg.resolveProto(name)
	if err != nil {
		r.fail(err)
		return nil
	}
	m := mt.New().Interface()
	if err := proto.Unmarshal(raw, m); err != nil {
		r.fail(dataErrf(r.data, start, err, "cannot decode %s", name))
		return nil
	}
	return m
}

// ReadProto reads a message written by WriteProto. The message type is
// resolved by full name through RegistryOptions.ProtoTypes.
func (r *Reader) ReadProto(id int, def proto.Message) proto.Message {
	if !r.readField(id) {
		return def
	}
	return r.getProto()
}
