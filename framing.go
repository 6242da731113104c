package vparcel

import (
	"fmt"
	"math"
)

// A scope is a sequence of field entries:
//
//	uvarint(id) uvarint(len) value
//
// Entries may come in any order; unknown ids are skipped by length.

// setOutputField seals the previous field and directs subsequent writes to
// field id. Returns false if the writer has failed or id is invalid.
func (w *Writer) setOutputField(id int) bool {
	if w.st.err != nil {
		return false
	}
	if id < 0 || id > math.MaxInt32 {
		w.fail(fmt.Errorf("%w: %d", ErrNegativeField, id))
		return false
	}
	w.sealField()
	if _, dup := w.seen[id]; dup {
		w.fail(fmt.Errorf("%w: %d", ErrDuplicateField, id))
		return false
	}
	if w.seen == nil {
		w.seen = make(map[int]struct{})
	}
	w.seen[id] = struct{}{}

	if w.field == nil {
		w.field = acquireScopeBytes()
	}
	w.field = w.field[:0]
	w.fieldID = id
	w.inField = true
	return true
}

func (w *Writer) sealField() {
	if !w.inField {
		return
	}
	w.inField = false
	w.buf = appendUvarint(w.buf, uint64(w.fieldID))
	w.buf = appendVarbytes(w.buf, w.field)
	w.field = w.field[:0]
}

// readField positions the reader at the value of field id. Returns false if
// the field is absent or the reader has failed.
func (r *Reader) readField(id int) bool {
	if r.st.err != nil {
		return false
	}
	if !r.indexed {
		r.indexFields()
		if r.st.err != nil {
			return false
		}
	}
	s, ok := r.fields[id]
	if !ok {
		return false
	}
	r.off, r.end = s.start, s.end
	return true
}

// HasField reports whether this scope carries field id.
func (r *Reader) HasField(id int) bool {
	if r.st.err != nil {
		return false
	}
	if !r.indexed {
		r.indexFields()
	}
	_, ok := r.fields[id]
	return ok
}

func (r *Reader) indexFields() {
	r.indexed = true
	r.fields = make(map[int]span)
	d := makeByteDecoder(r.data)
	for d.Remaining() > 0 {
		start := d.off
		id, err := d.Uvarint()
		if err != nil {
			r.fail(err)
			return
		}
		if id > math.MaxInt32 {
			r.fail(dataErrf(r.data, start, nil, "invalid field id %d", id))
			return
		}
		val, err := d.VarBytes()
		if err != nil {
			r.fail(err)
			return
		}
		if _, dup := r.fields[int(id)]; dup {
			r.fail(dataErrf(r.data, start, ErrDuplicateField, "field %d repeated", id))
			return
		}
		r.fields[int(id)] = span{d.off - len(val), d.off}
	}
}
