package vparcel

import "sync"

// scopeBytesPool holds scratch buffers of sub-cursor scopes and open fields.
var scopeBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 256)
	},
}

func acquireScopeBytes() []byte {
	return scopeBytesPool.Get().([]byte)
}

func releaseScopeBytes(b []byte) {
	const max = 1024 * 1024 // don't hold onto huge buffers
	if cap(b) > max {
		return
	}
	scopeBytesPool.Put(b[:0])
}
