package vparcel

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"
)

// Store persists versioned objects under (bucket, key) pairs. Each record is
//
//	flags(1) xxhash64(8, LE) [uvarint(size)] payload
//
// where flags hold the Compression, the checksum covers the encoded object
// before compression, and size (the uncompressed length) is only present
// for compressed records.
type Store struct {
	st     storage
	opts   Options
	comp   Compression
	logger *slog.Logger
}

type StoreOptions struct {
	// Options are used to encode and decode stored objects.
	Options

	Compression Compression

	// ReadOnly opens the bolt file in shared read-only mode.
	ReadOnly bool

	// IsTesting disables fsync.
	IsTesting bool

	MmapSize int
}

const recordHeaderSize = 1 + 8

// OpenStore opens or creates a bolt-backed store at path.
func OpenStore(path string, o StoreOptions) (*Store, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	bopt.ReadOnly = o.ReadOnly
	if o.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if o.MmapSize != 0 {
		bopt.InitialMmapSize = o.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("vparcel: %w", err)
	}
	return newStore(newBoltStorage(bdb), o), nil
}

// NewMemoryStore returns a transient store, mostly useful for tests.
func NewMemoryStore(o StoreOptions) *Store {
	return newStore(newMemStorage(), o)
}

func newStore(st storage, o StoreOptions) *Store {
	opts := o.Options.withDefaults()
	return &Store{
		st:     st,
		opts:   opts,
		comp:   o.Compression,
		logger: opts.Logger,
	}
}

func (s *Store) Close() error {
	return s.st.Close()
}

func (s *Store) read(f func(tx storageTx) error) error {
	tx, err := s.st.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

func (s *Store) write(f func(tx storageTx) error) error {
	tx, err := s.st.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Put encodes v and stores it under key, replacing any previous value.
func (s *Store) Put(bucket, key string, v any) error {
	data, err := Marshal(v, s.opts)
	if err != nil {
		return err
	}
	rec, err := s.encodeRecord(data)
	if err != nil {
		return err
	}
	return s.write(func(tx storageTx) error {
		b, err := tx.CreateBucket(bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), rec)
	})
}

// Get decodes the object stored under key. Returns ErrNotFound if the key
// is absent and ErrBucketNotFound if the bucket is.
func (s *Store) Get(bucket, key string) (any, error) {
	data, err := s.Raw(bucket, key)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, s.opts)
}

// Raw returns the encoded object stored under key, verified and
// decompressed, without decoding it.
func (s *Store) Raw(bucket, key string) ([]byte, error) {
	var data []byte
	err := s.read(func(tx storageTx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return ErrBucketNotFound
		}
		rec := b.Get([]byte(key))
		if rec == nil {
			return ErrNotFound
		}
		var err error
		data, err = decodeRecord(rec)
		if err != nil {
			s.logger.LogAttrs(context.Background(), slog.LevelWarn, "vparcel: corrupt record", slog.String("bucket", bucket), slog.String("key", key), hexAttr("header", rec[:min(len(rec), recordHeaderSize)]), slog.Any("err", err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) Delete(bucket, key string) error {
	return s.write(func(tx storageTx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// DeleteBucket removes a bucket with all its keys.
func (s *Store) DeleteBucket(bucket string) error {
	return s.write(func(tx storageTx) error {
		return tx.DeleteBucket(bucket)
	})
}

// Keys returns the keys of bucket in sorted order. A missing bucket has no
// keys.
func (s *Store) Keys(bucket string) ([]string, error) {
	var keys []string
	err := s.read(func(tx storageTx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		keys = make([]string, 0, b.KeyCount())
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// KeysWithPrefix returns the sorted keys of bucket that start with prefix.
func (s *Store) KeysWithPrefix(bucket, prefix string) ([]string, error) {
	var keys []string
	err := s.read(func(tx storageTx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && len(k) >= len(prefix) && string(k[:len(prefix)]) == prefix; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// Buckets returns bucket names in sorted order.
func (s *Store) Buckets() ([]string, error) {
	var names []string
	err := s.read(func(tx storageTx) error {
		return tx.ForEachBucket(func(name string) error {
			names = append(names, name)
			return nil
		})
	})
	return names, err
}

func (s *Store) encodeRecord(data []byte) ([]byte, error) {
	comp := s.comp
	payload, err := compress(data, comp)
	if err == errIncompressible {
		comp, payload = CompressionNone, data
	} else if err != nil {
		return nil, err
	}

	rec := make([]byte, recordHeaderSize, recordHeaderSize+binary.MaxVarintLen64+len(payload))
	rec[0] = byte(comp)
	binary.LittleEndian.PutUint64(rec[1:], xxhash.Sum64(data))
	if comp != CompressionNone {
		rec = appendUvarint(rec, uint64(len(data)))
	}
	return appendRaw(rec, payload), nil
}

func decodeRecord(rec []byte) ([]byte, error) {
	if len(rec) < recordHeaderSize {
		return nil, dataErrf(rec, 0, nil, "record too short")
	}
	comp := Compression(rec[0])
	sum := binary.LittleEndian.Uint64(rec[1:])
	d := byteDecoder{rec, recordHeaderSize, len(rec)}

	size := -1
	if comp != CompressionNone {
		n, err := d.Uvarint()
		if err != nil {
			return nil, err
		}
		if n > uint64(decompressedSizeLimit(comp, len(rec)-d.off)) {
			return nil, dataErrf(rec, recordHeaderSize, nil, "invalid record size %d for %d-byte %v payload", n, len(rec)-d.off, comp)
		}
		size = int(n)
	}
	payload := rec[d.off:]
	data, err := decompress(payload, comp, size)
	if err != nil {
		return nil, dataErrf(rec, d.off, err, "cannot decompress %v record", comp)
	}
	if actual := xxhash.Sum64(data); actual != sum {
		return nil, dataErrf(rec, 1, nil, "checksum mismatch: stored %016x, actual %016x", sum, actual)
	}
	return append([]byte(nil), data...), nil
}
