package vparcel

import (
	"errors"
	"testing"
)

type itemV1 struct {
	Name  string
	Count int32
}

type itemV2 struct {
	Name  string
	Count int32
	Color string
}

func itemRegistries() (v1, v2 *Registry) {
	v1 = NewRegistry(RegistryOptions{})
	Register(v1, func(w *Writer, v *itemV1) {
		w.WriteString(1, v.Name)
		w.WriteInt32(2, v.Count)
	}, func(r *Reader) *itemV1 {
		return &itemV1{
			Name:  r.ReadString(1, ""),
			Count: r.ReadInt32(2, -1),
		}
	}, WithIdentity("test.item"))

	v2 = NewRegistry(RegistryOptions{})
	Register(v2, func(w *Writer, v *itemV2) {
		w.WriteString(3, v.Color)
		w.WriteString(1, v.Name)
		w.WriteInt32(2, v.Count)
	}, func(r *Reader) *itemV2 {
		return &itemV2{
			Name:  r.ReadString(1, ""),
			Count: r.ReadInt32(2, -1),
			Color: r.ReadString(3, "black"),
		}
	}, WithIdentity("test.item"))
	return
}

func TestFraming_OlderReader(t *testing.T) {
	v1, v2 := itemRegistries()
	data, err := Marshal(&itemV2{Name: "pen", Count: 3, Color: "red"}, Options{Registry: v2})
	noerr(t, err)

	a, err := UnmarshalAs[*itemV1](data, Options{Registry: v1})
	noerr(t, err)
	deepEqual(t, a, &itemV1{Name: "pen", Count: 3})
}

func TestFraming_NewerReader(t *testing.T) {
	v1, v2 := itemRegistries()
	data, err := Marshal(&itemV1{Name: "pen", Count: 3}, Options{Registry: v1})
	noerr(t, err)

	a, err := UnmarshalAs[*itemV2](data, Options{Registry: v2})
	noerr(t, err)
	deepEqual(t, a, &itemV2{Name: "pen", Count: 3, Color: "black"})
}

func TestFraming_ReadOrder(t *testing.T) {
	data := roundTripBytes(t, func(w *Writer) {
		w.WriteInt32(10, 1)
		w.WriteString(2, "two")
		w.WriteInt64(7, 3)
	})
	r := NewReader(data, testOpts)
	deepEqual(t, r.ReadInt64(7, 0), int64(3))
	deepEqual(t, r.ReadInt32(10, 0), int32(1))
	deepEqual(t, r.ReadString(2, ""), "two")
	deepEqual(t, r.ReadInt32(10, 0), int32(1))
	noerr(t, r.Err())
}

func TestFraming_HasField(t *testing.T) {
	data := roundTripBytes(t, func(w *Writer) {
		w.WriteInt32(0, 1)
		w.WriteString(4, "")
	})
	r := NewReader(data, testOpts)
	for id, want := range map[int]bool{0: true, 1: false, 3: false, 4: true} {
		if a := r.HasField(id); a != want {
			t.Errorf("HasField(%d) = %v, wanted %v", id, a, want)
		}
	}
}

func TestFraming_EmptyScope(t *testing.T) {
	r := NewReader(nil, testOpts)
	deepEqual(t, r.ReadString(1, "def"), "def")
	deepEqual(t, r.HasField(1), false)
	noerr(t, r.Err())
}

func TestFraming_DuplicateOnWire(t *testing.T) {
	r := NewReader(x("01 01 02  01 01 04"), testOpts)
	r.ReadInt32(1, 0)
	if !errors.Is(r.Err(), ErrMalformed) || !errors.Is(r.Err(), ErrDuplicateField) {
		t.Fatalf("Err = %v, wanted malformed duplicate field", r.Err())
	}
}

func TestFraming_BadFieldID(t *testing.T) {
	r := NewReader(x("ffffffffff01 00"), testOpts)
	r.ReadInt32(1, 0)
	if !errors.Is(r.Err(), ErrMalformed) {
		t.Fatalf("Err = %v, wanted ErrMalformed", r.Err())
	}
}
