package service

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes writers of the same document identifier so a
// replace's "delete old chunks, insert new chunks" never interleaves with
// another writer of that id. Striping keeps unrelated ids mostly
// independent; stripe collisions only cost throughput, never correctness.
type keyedMutex struct {
	stripes [128]sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	mu := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	mu.Lock()
	return mu.Unlock
}
