package vparcel

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

type shape interface {
	Area() float64
}

type point struct {
	X, Y int32
}

func (p *point) Area() float64 { return 0 }

type circle struct {
	Center *point
	Radius float32
	Label  string
}

func (c *circle) Area() float64 { return math.Pi * float64(c.Radius) * float64(c.Radius) }

type quotaError struct {
	Limit int64
}

func (e *quotaError) Error() string {
	return fmt.Sprintf("quota of %d exceeded", e.Limit)
}

type settings struct {
	Theme string          `msgpack:"theme"`
	Width int             `msgpack:"width"`
	Flags map[string]bool `msgpack:"flags"`
}

type prefs struct {
	Lang  string `cbor:"lang"`
	Level uint8  `cbor:"level"`
}

type fakeHandle struct {
	fd uintptr
}

func (h *fakeHandle) Fd() uintptr { return h.fd }

var errTest = errors.New("test error")

var (
	testReg  = newTestRegistry()
	testOpts = Options{Registry: testReg}
)

func newTestRegistry() *Registry {
	reg := NewRegistry(RegistryOptions{})
	Register(reg, func(w *Writer, p *point) {
		w.WriteInt32(1, p.X)
		w.WriteInt32(2, p.Y)
	}, func(r *Reader) *point {
		return &point{
			X: r.ReadInt32(1, 0),
			Y: r.ReadInt32(2, 0),
		}
	}, WithIdentity("test.point"))

	Register(reg, func(w *Writer, c *circle) {
		w.WriteObject(1, c.Center)
		w.WriteFloat32(2, c.Radius)
		w.WriteString(3, c.Label)
	}, func(r *Reader) *circle {
		return &circle{
			Center: ReadObjectAs[*point](r, 1, nil),
			Radius: r.ReadFloat32(2, 1),
			Label:  r.ReadString(3, ""),
		}
	}, WithIdentity("test.circle"), WithAliases("test.round"))

	Register(reg, func(w *Writer, e *quotaError) {
		w.WriteInt64(1, e.Limit)
	}, func(r *Reader) *quotaError {
		return &quotaError{Limit: r.ReadInt64(1, 0)}
	}, WithIdentity("test.quotaError"))

	RegisterSerializable[settings](reg, MsgPack, WithIdentity("test.settings"))
	RegisterSerializable[*prefs](reg, CBOR, WithIdentity("test.prefs"))
	return reg
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func noerr(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** unexpected error: %v", err)
	}
}

func x(data string) []byte {
	data = strings.ReplaceAll(data, " ", "")
	return must(hex.DecodeString(data))
}

// roundTrip writes with fw into a top-level scope and reads it back with fr.
func roundTrip[T any](t testing.TB, fw func(w *Writer), fr func(r *Reader) T) T {
	t.Helper()
	w := NewWriter(testOpts)
	fw(w)
	noerr(t, w.Err())
	r := NewReader(w.Bytes(), Options{Registry: testReg, Handles: w.Handles()})
	v := fr(r)
	noerr(t, r.Err())
	return v
}
