/*
Package vparcel implements a versioned binary encoding for object graphs.

Every type that takes part has a codec registered with Register. A codec
writes each field under a small integer id, and reads each field with a
default that is used when the field is missing:

	vparcel.Register(vparcel.Default, func(w *vparcel.Writer, p *Point) {
		w.WriteInt32(1, p.X)
		w.WriteInt32(2, p.Y)
	}, func(r *vparcel.Reader) *Point {
		return &Point{X: r.ReadInt32(1, 0), Y: r.ReadInt32(2, 0)}
	})

Because fields are addressed by id, old readers skip fields they don't know
and new readers fall back to defaults for fields old writers never wrote.
Ids must stay stable for the lifetime of the data; retired ids should not be
reused.

# Wire format

All integers, including lengths, counts and tags, are zig-zag varints unless
noted. Floats are fixed-width little-endian. Strings and byte arrays are a
length followed by the bytes, with length -1 meaning nil.

A versioned object is its codec identity followed by a scope:

	string(identity) uvarint(len) field...

and a nil object is just a nil identity. A field is

	uvarint(id) uvarint(len) value

Readers index the fields of a scope on first access, so fields can appear
in any order and unknown ones are skipped by length.

Collections (lists, sets and maps) carry a wire tag after the count so that
elements can be decoded without knowing their static type; see WireTag.
Primitive arrays carry no tag.

# Other value kinds

Besides versioned objects, fields can hold protobuf messages (WriteProto),
opaque values encoded with msgpack or CBOR (RegisterSerializable,
WriteSerializable), out-of-band handles such as open files (WriteHandle), and
errors (WriteException).

# Errors

Writer and Reader record the first error they hit and turn subsequent calls
into no-ops; check Err after encoding or decoding. Errors caused by bad input
data match ErrMalformed. Missing codecs are reported as *CodecNotFoundError.

# Storage

Store keeps encoded objects in a bolt database (or in memory), checksummed
with xxhash and optionally compressed with zstd or lz4. Dump renders encoded
bytes for debugging without needing any codecs.
*/
package vparcel
