package instance

import (
	"sync"

	"gamehost/protocol"
)

// infoCell wraps the shared InstanceInfo. The owning actor goroutine is
// the sole writer; lobby listings and join lookups read concurrently.
type infoCell struct {
	mu   sync.RWMutex
	info protocol.InstanceInfo
}

func (c *infoCell) snapshot() protocol.InstanceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

func (c *infoCell) setCapacity(maxPlayers uint32) {
	c.mu.Lock()
	c.info.CurrentPlayers = 0
	c.info.MaxPlayers = maxPlayers
	c.mu.Unlock()
}

// tryAdd admits one player unless the instance is full. The capacity
// check and the increment happen under one lock so concurrent readers
// never observe an over-capacity count. Returns the post-admission
// snapshot.
func (c *infoCell) tryAdd() (protocol.InstanceInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info.CurrentPlayers >= c.info.MaxPlayers {
		return c.info, false
	}
	c.info.CurrentPlayers++
	return c.info, true
}

func (c *infoCell) drop() protocol.InstanceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.info.CurrentPlayers > 0 {
		c.info.CurrentPlayers--
	}
	return c.info
}
