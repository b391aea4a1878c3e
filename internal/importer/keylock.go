package importer

import (
	"hash/fnv"
	"sync"
)

// keyLock serializes writes per composite record key so two concurrent
// merge passes cannot interleave the read-compare-write on the same
// record. Locks are striped; distinct keys may share a stripe, which
// costs some parallelism but never correctness.
type keyLock struct {
	stripes []sync.Mutex
}

func newKeyLock(n int) *keyLock {
	if n <= 0 {
		n = 64
	}
	return &keyLock{stripes: make([]sync.Mutex, n)}
}

func (l *keyLock) stripe(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.stripes[h.Sum32()%uint32(len(l.stripes))]
}

func (l *keyLock) Lock(key string)   { l.stripe(key).Lock() }
func (l *keyLock) Unlock(key string) { l.stripe(key).Unlock() }
