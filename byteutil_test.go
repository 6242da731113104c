package vparcel

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestByteUtil_AppendHelpers(t *testing.T) {
	src := []byte{0xAA, 0xBB, 0xCC}
	buf := appendRaw(nil, src)
	if !reflect.DeepEqual(buf, src) {
		t.Fatalf("appendRaw = %x, wanted %x", buf, src)
	}

	buf = appendFixed32(nil, 0x01020304)
	if !reflect.DeepEqual(buf, []byte{4, 3, 2, 1}) {
		t.Fatalf("appendFixed32 = %x, wanted 04030201", buf)
	}
	buf = appendFixed64(nil, 0x0102030405060708)
	if !reflect.DeepEqual(buf, []byte{8, 7, 6, 5, 4, 3, 2, 1}) {
		t.Fatalf("appendFixed64 = %x, wanted 0807060504030201", buf)
	}

	got := appendVarbytes(nil, []byte("hi"))
	d := makeByteDecoder(got)
	v, err := d.VarBytes()
	if err != nil || string(v) != "hi" || d.Remaining() != 0 {
		t.Fatalf("VarBytes = (%q, %v), remaining=%d, wanted (\"hi\", nil), remaining=0", v, err, d.Remaining())
	}
}

func TestByteUtil_Varints(t *testing.T) {
	tests := []struct {
		v    int64
		want string
	}{
		{0, "00"},
		{-1, "01"},
		{1, "02"},
		{-2, "03"},
		{63, "7e"},
		{64, "8001"},
	}
	for _, tt := range tests {
		if a := hexstr(appendVarint(nil, tt.v)); a != tt.want {
			t.Errorf("appendVarint(%d) = %s, wanted %s", tt.v, a, tt.want)
		}
	}
}

func TestByteDecoder_Errors(t *testing.T) {
	t.Run("invalid uvarint", func(t *testing.T) {
		d := makeByteDecoder([]byte{0x80}) // continuation bit with no terminator
		_, err := d.Uvarint()
		var de *DataError
		if !errors.As(err, &de) {
			t.Fatalf("Uvarint err = %T %v, wanted *DataError", err, err)
		}
		if de.Off != 0 {
			t.Fatalf("DataError.Off = %d, wanted 0", de.Off)
		}
	})

	t.Run("int32 overflow", func(t *testing.T) {
		d := makeByteDecoder(appendVarint(nil, math.MaxInt32+1))
		_, err := d.Int32()
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Int32 err = %v, wanted ErrMalformed", err)
		}
	})

	t.Run("negative length", func(t *testing.T) {
		d := makeByteDecoder(appendVarint(nil, -2))
		_, err := d.Len()
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("Len err = %v, wanted ErrMalformed", err)
		}

		d = makeByteDecoder(appendVarint(nil, -1))
		n, err := d.Len()
		if err != nil || n != -1 {
			t.Fatalf("Len = (%d, %v), wanted (-1, nil)", n, err)
		}
	})

	t.Run("Raw not enough data", func(t *testing.T) {
		d := makeByteDecoder([]byte{1, 2})
		_, err := d.Raw(3)
		if err == nil {
			t.Fatalf("Raw err = nil, wanted error")
		}
	})

	t.Run("VarBytes overrun", func(t *testing.T) {
		var b [binary.MaxVarintLen64]byte
		n := binary.PutUvarint(b[:], 100)
		d := makeByteDecoder(append(b[:n], 1, 2, 3))
		_, err := d.VarBytes()
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("VarBytes err = %v, wanted ErrMalformed", err)
		}
	})

	t.Run("bounded by end", func(t *testing.T) {
		d := byteDecoder{[]byte{1, 2, 3, 4}, 0, 2}
		if _, err := d.Fixed32(); err == nil {
			t.Fatalf("Fixed32 err = nil, wanted error")
		}
	})
}
