// Package lobby is the process-wide registry of instances. It maps
// instance ids to their actor handles and serves listings and lookups;
// it holds no client state.
package lobby

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gamehost/instance"
	"gamehost/internal/events"
	"gamehost/protocol"
	"gamehost/sim"
)

// Lobby registers instances for the lifetime of the process. Lookup and
// listing readers dominate; creation takes the write lock.
type Lobby struct {
	mu        sync.RWMutex
	instances map[protocol.InstanceID]*instance.Instance

	logger    zerolog.Logger
	publisher *events.Publisher
}

// New builds an empty lobby. publisher may be nil.
func New(logger zerolog.Logger, publisher *events.Publisher) *Lobby {
	return &Lobby{
		instances: make(map[protocol.InstanceID]*instance.Instance),
		logger:    logger,
		publisher: publisher,
	}
}

// NewInstance allocates an id, spawns an instance actor bound to a fresh
// simulation from construct, and records the handle. The actor lives
// until ctx is cancelled or its simulation fails.
func (l *Lobby) NewInstance(ctx context.Context, creator protocol.ClientID, construct sim.Constructor) protocol.InstanceID {
	id := uuid.New()
	inst := instance.New(ctx, protocol.InstanceInfo{ID: id, Creator: creator}, construct, l.logger, l.publisher)

	l.mu.Lock()
	l.instances[id] = inst
	l.mu.Unlock()

	l.logger.Info().
		Stringer("instance_id", id).
		Stringer("creator", creator).
		Msg("Instance created")
	l.publisher.Publish(events.SubjectInstanceCreated, inst.Info(), creator.String(), "")

	// The handle stays registered after termination so late joins observe
	// the dead instance; only the lifecycle event needs a watcher.
	go func() {
		<-inst.Done()
		l.publisher.Publish(events.SubjectInstanceTerminated, inst.Info(), "", "")
	}()

	return id
}

// Instances snapshots the public metadata of every registered instance.
func (l *Lobby) Instances() []protocol.InstanceInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	list := make([]protocol.InstanceInfo, 0, len(l.instances))
	for _, inst := range l.instances {
		list = append(list, inst.Info())
	}
	return list
}

// Get returns the handle for id, or nil when unknown.
func (l *Lobby) Get(id protocol.InstanceID) *instance.Instance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.instances[id]
}

// Remove drops the handle for id. The actor itself is owned by its
// context; removal only unlists it.
func (l *Lobby) Remove(id protocol.InstanceID) {
	l.mu.Lock()
	delete(l.instances, id)
	l.mu.Unlock()
}
