package vparcel

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	indentStep = "  "

	defaultDumpMaxBytes = 32
)

type DumpOptions struct {
	// MaxBytes limits hex previews of field values. Defaults to 32.
	MaxBytes int

	// MaxDepth limits recursion into nested objects. Defaults to
	// DefaultMaxDepth.
	MaxDepth int
}

// Dump renders encoded data for debugging without consulting any codecs.
// Field values that parse as nested objects are expanded, everything else
// is shown as a hex preview:
//
//	example.com/shapes.CircleCodec (39 bytes)
//	  #1: (1) 0a
//	  #2: example.com/shapes.PointCodec (3 bytes)
//	    #1: (1) 02
//
// Field values are untyped on the wire, so a short value may be shown as a
// nested object by coincidence.
func Dump(data []byte, o DumpOptions) string {
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultDumpMaxBytes
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	var buf strings.Builder
	d := makeByteDecoder(data)
	dumpObject(&buf, "", &d, o, 0)
	if n := d.Remaining(); n > 0 {
		fmt.Fprintf(&buf, "** %d trailing bytes: %s\n", n, hexPreview(data[d.off:], o.MaxBytes))
	}
	return buf.String()
}

func dumpObject(w *strings.Builder, indent string, d *byteDecoder, o DumpOptions, depth int) {
	n, err := d.Len()
	if err != nil {
		fmt.Fprintf(w, "** ERROR: %v\n", err)
		d.off = d.end
		return
	}
	if n < 0 {
		fmt.Fprintln(w, "<nil>")
		return
	}
	identity, err := d.Raw(n)
	if err != nil {
		fmt.Fprintf(w, "** ERROR: %v\n", err)
		d.off = d.end
		return
	}
	scope, err := d.VarBytes()
	if err != nil {
		fmt.Fprintf(w, "%s ** ERROR: %v\n", identity, err)
		d.off = d.end
		return
	}
	fmt.Fprintf(w, "%s (%d bytes)\n", identity, len(scope))
	dumpFields(w, indent+indentStep, scope, o, depth+1)
}

func dumpFields(w *strings.Builder, indent string, scope []byte, o DumpOptions, depth int) {
	d := makeByteDecoder(scope)
	for d.Remaining() > 0 {
		id, err := d.Uvarint()
		if err != nil {
			fmt.Fprintf(w, "%s** ERROR: %v\n", indent, err)
			return
		}
		val, err := d.VarBytes()
		if err != nil {
			fmt.Fprintf(w, "%s#%d: ** ERROR: %v\n", indent, id, err)
			return
		}
		if depth < o.MaxDepth && looksLikeObject(val) {
			fmt.Fprintf(w, "%s#%d: ", indent, id)
			vd := makeByteDecoder(val)
			dumpObject(w, indent, &vd, o, depth)
			continue
		}
		fmt.Fprintf(w, "%s#%d: (%d) %s\n", indent, id, len(val), hexPreview(val, o.MaxBytes))
	}
}

// looksLikeObject reports whether val is exactly one non-nil object whose
// scope is a well-formed sequence of fields.
func looksLikeObject(val []byte) bool {
	d := makeByteDecoder(val)
	n, err := d.Len()
	if err != nil || n <= 0 {
		return false
	}
	identity, err := d.Raw(n)
	if err != nil || !isIdentity(identity) {
		return false
	}
	scope, err := d.VarBytes()
	if err != nil || d.Remaining() != 0 {
		return false
	}
	return isFieldSequence(scope)
}

func isIdentity(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isFieldSequence(scope []byte) bool {
	d := makeByteDecoder(scope)
	for d.Remaining() > 0 {
		if _, err := d.Uvarint(); err != nil {
			return false
		}
		if _, err := d.VarBytes(); err != nil {
			return false
		}
	}
	return true
}

func hexPreview(b []byte, max int) string {
	if len(b) <= max {
		return hexstr(b)
	}
	return hexstr(b[:max]) + "..."
}
