// Package cmap provides a sharded concurrent map keyed by string.
//
// Keys are assigned to shards by their murmur3 hash, and each shard has its
// own RWMutex, so unrelated keys rarely contend:
//
//	m := cmap.New[*Conn]()
//	m.Set(id, conn)
//	c, ok := m.Get(id)
//
// All operations are safe for concurrent use. Range visits shards one at a
// time, so it sees a consistent view of each shard but not of the whole map.
package cmap
