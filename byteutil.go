package vparcel

import (
	"encoding/binary"
	"math"
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	n := len(chunk)
	off, buf := grow(buf, n)
	copy(buf[off:], chunk)
	return buf
}

func appendUvarint(buf []byte, v uint64) []byte {
	off, buf := grow(buf, binary.MaxVarintLen64)
	off += binary.PutUvarint(buf[off:], v)
	return buf[:off]
}

func appendVarint(buf []byte, v int64) []byte {
	off, buf := grow(buf, binary.MaxVarintLen64)
	off += binary.PutVarint(buf[off:], v)
	return buf[:off]
}

func appendVarbytes(buf []byte, v []byte) []byte {
	n := len(v)
	off, buf := grow(buf, binary.MaxVarintLen64+n)
	off += binary.PutUvarint(buf[off:], uint64(n))
	copy(buf[off:], v)
	return buf[:off+n]
}

func appendFixed32(buf []byte, v uint32) []byte {
	off, buf := grow(buf, 4)
	binary.LittleEndian.PutUint32(buf[off:], v)
	return buf
}

func appendFixed64(buf []byte, v uint64) []byte {
	off, buf := grow(buf, 8)
	binary.LittleEndian.PutUint64(buf[off:], v)
	return buf
}

// byteDecoder reads values from data[off:end]. Offsets in errors are
// relative to data, which is the enclosing scope.
type byteDecoder struct {
	data []byte
	off  int
	end  int
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, 0, len(buf)}
}

func (d *byteDecoder) Remaining() int {
	return d.end - d.off
}

func (d *byteDecoder) Uvarint() (uint64, error) {
	v, n := binary.Uvarint(d.data[d.off:d.end])
	if n <= 0 {
		return 0, dataErrf(d.data, d.off, nil, "invalid uvarint")
	}
	d.off += n
	return v, nil
}

func (d *byteDecoder) Varint() (int64, error) {
	v, n := binary.Varint(d.data[d.off:d.end])
	if n <= 0 {
		return 0, dataErrf(d.data, d.off, nil, "invalid varint")
	}
	d.off += n
	return v, nil
}

func (d *byteDecoder) Int32() (int32, error) {
	v, err := d.Varint()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, dataErrf(d.data, d.off, nil, "value does not fit into int32: %d", v)
	}
	return int32(v), nil
}

// Len reads a signed length where -1 means nil. Any other negative value is
// malformed.
func (d *byteDecoder) Len() (int, error) {
	start := d.off
	v, err := d.Varint()
	if err != nil {
		return 0, err
	}
	if v < -1 || v > math.MaxInt32 {
		return 0, dataErrf(d.data, start, nil, "invalid length: %d", v)
	}
	return int(v), nil
}

func (d *byteDecoder) Raw(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, dataErrf(d.data, d.off, nil, "not enough data: %d bytes remaining, %d wanted", d.Remaining(), n)
	}
	v := d.data[d.off : d.off+n]
	d.off += n
	return v, nil
}

func (d *byteDecoder) Fixed32() (uint32, error) {
	b, err := d.Raw(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *byteDecoder) Fixed64() (uint64, error) {
	b, err := d.Raw(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// VarBytes reads an unsigned length prefix followed by that many bytes.
func (d *byteDecoder) VarBytes() ([]byte, error) {
	start := d.off
	n, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, dataErrf(d.data, start, nil, "length %d exceeds %d remaining bytes", n, d.Remaining())
	}
	return d.Raw(int(n))
}
