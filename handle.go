package vparcel

// Handle is a live resource reference, such as an open file, that cannot be
// copied as bytes. Handles travel out of band: the encoding stores an index
// into Writer.Handles, and the receiver passes the same table back in
// Options.Handles. *os.File satisfies Handle.
type Handle interface {
	Fd() uintptr
}

// Handles returns the handles referenced by the encoded data, in index
// order.
func (w *Writer) Handles() []Handle {
	return w.st.handles
}

func (w *Writer) putHandle(h Handle) {
	if isNilValue(h) {
		w.putInt32(-1)
		return
	}
	w.st.handles = append(w.st.handles, h)
	w.putInt32(int32(len(w.st.handles) - 1))
}

func (w *Writer) WriteHandle(id int, h Handle) {
	if w.setOutputField(id) {
		w.putHandle(h)
	}
}

func (r *Reader) getHandle() Handle {
	if r.st.err != nil {
		return nil
	}
	start := r.off
	idx := r.getInt32()
	if r.st.err != nil || idx < 0 {
		return nil
	}
	if int(idx) >= len(r.st.handles) {
		r.fail(dataErrf(r.data, start, nil, "handle %d out of range, have %d", idx, len(r.st.handles)))
		return nil
	}
	return r.st.handles[idx]
}

func (r *Reader) ReadHandle(id int, def Handle) Handle {
	if !r.readField(id) {
		return def
	}
	return r.getHandle()
}
