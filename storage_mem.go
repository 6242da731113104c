package vparcel

import (
	"errors"
	"slices"
	"sort"
	"sync"

	"go.etcd.io/bbolt"
)

var errMemClosed = errors.New("memory store is closed")

// memStorage keeps buckets as plain maps. Committed state is immutable:
// a write transaction copies the bucket table up front and each bucket on
// its first modification, then swaps the table in on commit. Writers are
// serialized by wmu, readers never block.
type memStorage struct {
	wmu sync.Mutex

	mu      sync.RWMutex
	buckets map[string]memBucket
	closed  bool
}

type memBucket map[string][]byte

func newMemStorage() storage {
	return &memStorage{buckets: make(map[string]memBucket)}
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		s.wmu.Lock()
	}
	s.mu.RLock()
	committed, closed := s.buckets, s.closed
	s.mu.RUnlock()
	if closed {
		if writable {
			s.wmu.Unlock()
		}
		return nil, errMemClosed
	}

	tx := &memTx{s: s, writable: writable, buckets: committed}
	if writable {
		tx.buckets = make(map[string]memBucket, len(committed))
		for name, b := range committed {
			tx.buckets[name] = b
		}
		tx.owned = make(map[string]bool)
	}
	return tx, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.buckets = nil
	return nil
}

type memTx struct {
	s        *memStorage
	writable bool
	done     bool
	buckets  map[string]memBucket
	owned    map[string]bool // buckets already copied by this tx
}

func (tx *memTx) Bucket(name string) storageBucket {
	b, ok := tx.buckets[name]
	if !ok {
		return nil
	}
	return &memBucketRef{tx: tx, name: name, b: b}
}

func (tx *memTx) CreateBucket(name string) (storageBucket, error) {
	if !tx.writable {
		return nil, errors.New("read-only transaction")
	}
	if _, ok := tx.buckets[name]; !ok {
		tx.buckets[name] = make(memBucket)
		tx.owned[name] = true
	}
	return tx.Bucket(name), nil
}

func (tx *memTx) DeleteBucket(name string) error {
	if !tx.writable {
		return errors.New("read-only transaction")
	}
	if _, ok := tx.buckets[name]; !ok {
		return ErrBucketNotFound
	}
	delete(tx.buckets, name)
	delete(tx.owned, name)
	return nil
}

func (tx *memTx) ForEachBucket(f func(name string) error) error {
	names := make([]string, 0, len(tx.buckets))
	for name := range tx.buckets {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := f(name); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	if !tx.writable {
		return errors.New("read-only transaction")
	}
	tx.done = true
	defer tx.s.wmu.Unlock()

	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	if tx.s.closed {
		return errMemClosed
	}
	tx.s.buckets = tx.buckets
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.writable {
		tx.s.wmu.Unlock()
	}
	return nil
}

// ownBucket returns a private copy of bucket name that this tx may modify.
func (tx *memTx) ownBucket(name string) memBucket {
	if tx.owned[name] {
		return tx.buckets[name]
	}
	b := make(memBucket, len(tx.buckets[name])+1)
	for k, v := range tx.buckets[name] {
		b[k] = v
	}
	tx.buckets[name] = b
	tx.owned[name] = true
	return b
}

type memBucketRef struct {
	tx   *memTx
	name string
	b    memBucket
}

func (r *memBucketRef) Get(key []byte) []byte {
	return r.b[string(key)]
}

func (r *memBucketRef) Put(key, value []byte) error {
	if !r.tx.writable {
		return errors.New("read-only transaction")
	}
	if len(key) == 0 {
		return bbolt.ErrKeyRequired
	}
	r.b = r.tx.ownBucket(r.name)
	r.b[string(key)] = slices.Clone(value)
	return nil
}

func (r *memBucketRef) Delete(key []byte) error {
	if !r.tx.writable {
		return errors.New("read-only transaction")
	}
	if _, ok := r.b[string(key)]; !ok {
		return nil
	}
	r.b = r.tx.ownBucket(r.name)
	delete(r.b, string(key))
	return nil
}

func (r *memBucketRef) KeyCount() int {
	return len(r.b)
}

// Cursor iterates over the keys present when it was created.
func (r *memBucketRef) Cursor() storageCursor {
	keys := make([]string, 0, len(r.b))
	for k := range r.b {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return &memCursor{b: r.b, keys: keys}
}

type memCursor struct {
	b    memBucket
	keys []string
	pos  int
}

func (c *memCursor) at(i int) ([]byte, []byte) {
	c.pos = i
	if i >= len(c.keys) {
		return nil, nil
	}
	k := c.keys[i]
	return []byte(k), c.b[k]
}

func (c *memCursor) First() ([]byte, []byte) {
	return c.at(0)
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	return c.at(sort.SearchStrings(c.keys, string(seek)))
}

func (c *memCursor) Next() ([]byte, []byte) {
	return c.at(c.pos + 1)
}
