package vparcel

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.etcd.io/bbolt"
)

func openTestStores(t *testing.T, comp Compression) map[string]*Store {
	t.Helper()
	o := StoreOptions{
		Options:     testOpts,
		Compression: comp,
		IsTesting:   true,
	}
	bs, err := OpenStore(filepath.Join(t.TempDir(), "test.db"), o)
	noerr(t, err)
	ms := NewMemoryStore(o)
	t.Cleanup(func() {
		bs.Close()
		ms.Close()
	})
	return map[string]*Store{"bolt": bs, "mem": ms}
}

func TestStore_PutGet(t *testing.T) {
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		for name, s := range openTestStores(t, comp) {
			t.Run(comp.String()+"/"+name, func(t *testing.T) {
				big := &circle{Center: &point{1, 2}, Radius: 3, Label: strings.Repeat("abc", 500)}
				noerr(t, s.Put("shapes", "small", &point{10, 20}))
				noerr(t, s.Put("shapes", "big", big))

				v, err := s.Get("shapes", "small")
				noerr(t, err)
				deepEqual[any](t, v, &point{10, 20})

				v, err = s.Get("shapes", "big")
				noerr(t, err)
				deepEqual[any](t, v, big)

				noerr(t, s.Put("shapes", "small", &point{30, 40}))
				v, err = s.Get("shapes", "small")
				noerr(t, err)
				deepEqual[any](t, v, &point{30, 40})
			})
		}
	}
}

func TestStore_RecordFormat(t *testing.T) {
	data, err := Marshal(&circle{Label: strings.Repeat("z", 1000)}, testOpts)
	noerr(t, err)

	plain := NewMemoryStore(StoreOptions{Options: testOpts})
	rec, err := plain.encodeRecord(data)
	noerr(t, err)
	deepEqual(t, rec[0], byte(CompressionNone))
	deepEqual(t, rec[recordHeaderSize:], data)

	zs := NewMemoryStore(StoreOptions{Options: testOpts, Compression: CompressionZstd})
	rec, err = zs.encodeRecord(data)
	noerr(t, err)
	deepEqual(t, rec[0], byte(CompressionZstd))
	if len(rec) >= len(data) {
		t.Errorf("zstd record is %d bytes, wanted less than %d", len(rec), len(data))
	}
	a, err := decodeRecord(rec)
	noerr(t, err)
	deepEqual(t, a, data)

	// tiny payloads fall back to no compression
	small, err := Marshal(&point{}, testOpts)
	noerr(t, err)
	for _, comp := range []Compression{CompressionLZ4, CompressionZstd} {
		s := NewMemoryStore(StoreOptions{Options: testOpts, Compression: comp})
		rec, err = s.encodeRecord(small)
		noerr(t, err)
		deepEqual(t, rec[0], byte(CompressionNone))
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, s := range openTestStores(t, CompressionNone) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("nope", "a")
			if !errors.Is(err, ErrBucketNotFound) {
				t.Fatalf("Get(missing bucket) err = %v, wanted ErrBucketNotFound", err)
			}
			noerr(t, s.Put("b", "a", &point{}))
			_, err = s.Get("b", "zzz")
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing key) err = %v, wanted ErrNotFound", err)
			}
			if err := s.DeleteBucket("nope"); !errors.Is(err, ErrBucketNotFound) {
				t.Fatalf("DeleteBucket(missing) err = %v, wanted ErrBucketNotFound", err)
			}
		})
	}
}

func TestStore_Listing(t *testing.T) {
	for name, s := range openTestStores(t, CompressionLZ4) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"user:2", "user:1", "group:1", "user"} {
				noerr(t, s.Put("main", k, &point{}))
			}
			noerr(t, s.Put("aux", "x", &point{}))

			keys, err := s.Keys("main")
			noerr(t, err)
			deepEqual(t, keys, []string{"group:1", "user", "user:1", "user:2"})

			keys, err = s.KeysWithPrefix("main", "user:")
			noerr(t, err)
			deepEqual(t, keys, []string{"user:1", "user:2"})

			keys, err = s.Keys("missing")
			noerr(t, err)
			deepEqual(t, len(keys), 0)

			buckets, err := s.Buckets()
			noerr(t, err)
			deepEqual(t, buckets, []string{"aux", "main"})

			noerr(t, s.Delete("main", "user"))
			noerr(t, s.Delete("main", "user"))
			noerr(t, s.Delete("missing", "user"))
			keys, err = s.Keys("main")
			noerr(t, err)
			deepEqual(t, keys, []string{"group:1", "user:1", "user:2"})

			noerr(t, s.DeleteBucket("aux"))
			buckets, err = s.Buckets()
			noerr(t, err)
			deepEqual(t, buckets, []string{"main"})
		})
	}
}

func TestStore_Corrupt(t *testing.T) {
	var logbuf bytes.Buffer
	opts := testOpts
	opts.Logger = slog.New(slog.NewTextHandler(&logbuf, nil))
	s := NewMemoryStore(StoreOptions{Options: opts})
	noerr(t, s.Put("b", "k", &point{1, 2}))

	noerr(t, s.write(func(tx storageTx) error {
		b := tx.Bucket("b")
		rec := append([]byte(nil), b.Get([]byte("k"))...)
		rec[len(rec)-1] ^= 0xff
		return b.Put([]byte("k"), rec)
	}))

	_, err := s.Get("b", "k")
	if !errors.Is(err, ErrMalformed) || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("Get err = %v, wanted checksum mismatch", err)
	}
	if !strings.Contains(logbuf.String(), "corrupt record") {
		t.Errorf("expected a warning, got log:\n%s", logbuf.String())
	}

	_, err = decodeRecord([]byte{0, 1, 2})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("decodeRecord(short) err = %v, wanted ErrMalformed", err)
	}
}

func TestStore_CorruptSize(t *testing.T) {
	tests := []struct {
		name string
		rec  []byte
	}{
		{"lz4 max", x("01 0000000000000000 ffffffff07 1041")},
		{"lz4 beyond payload", x("01 0000000000000000 8080c001 1041")},
		{"zstd max", x("02 0000000000000000 ffffffff07 1041")},
		{"zstd huge", x("02 0000000000000000 ffffffffffffffff01 1041")},
		{"zstd garbage", x("02 0000000000000000 80808001 28b52ffd")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before, after runtime.MemStats
			runtime.ReadMemStats(&before)
			_, err := decodeRecord(tt.rec)
			runtime.ReadMemStats(&after)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("decodeRecord err = %v, wanted ErrMalformed", err)
			}
			if n := after.TotalAlloc - before.TotalAlloc; n > 16<<20 {
				t.Errorf("decodeRecord allocated %d bytes for a %d-byte record", n, len(tt.rec))
			}
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	for name, s := range openTestStores(t, CompressionNone) {
		t.Run(name, func(t *testing.T) {
			err := s.Put("b", "", &point{})
			if !errors.Is(err, bbolt.ErrKeyRequired) {
				t.Fatalf("Put(empty key) err = %v, wanted ErrKeyRequired", err)
			}
		})
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	o := StoreOptions{Options: testOpts, Compression: CompressionZstd, IsTesting: true}
	s, err := OpenStore(path, o)
	noerr(t, err)
	noerr(t, s.Put("b", "k", &circle{Radius: 5}))
	noerr(t, s.Close())

	o.ReadOnly = true
	s, err = OpenStore(path, o)
	noerr(t, err)
	defer s.Close()
	v, err := s.Get("b", "k")
	noerr(t, err)
	deepEqual[any](t, v, &circle{Radius: 5})
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		a, err := ParseCompression(c.String())
		noerr(t, err)
		deepEqual(t, a, c)
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Fatalf("ParseCompression(gzip) succeeded")
	}
}
