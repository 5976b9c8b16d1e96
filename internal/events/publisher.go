// Package events publishes lobby lifecycle events over NATS for
// off-process observers (dashboards, ops tooling). The publisher is
// strictly observe-only: nothing in the server consumes these subjects,
// and a nil publisher turns every call into a no-op.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"gamehost/protocol"
)

// Subjects, one per lifecycle event.
const (
	SubjectInstanceCreated    = "gamehost.instance.created"
	SubjectInstanceTerminated = "gamehost.instance.terminated"
	SubjectClientJoined       = "gamehost.instance.client_joined"
	SubjectClientLeft         = "gamehost.instance.client_left"
)

// InstanceEvent is the JSON payload for every subject.
type InstanceEvent struct {
	InstanceID string    `json:"instance_id"`
	ClientID   string    `json:"client_id,omitempty"`
	ClientName string    `json:"client_name,omitempty"`
	Players    uint32    `json:"players"`
	MaxPlayers uint32    `json:"max_players"`
	At         time.Time `json:"at"`
}

// Publisher fans lifecycle events out to NATS. All methods are safe on a
// nil receiver.
type Publisher struct {
	nc     *nats.Conn
	logger zerolog.Logger
}

// Connect dials NATS. An empty URL disables publishing and returns a nil
// publisher.
func Connect(url string, logger zerolog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("gamehost"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info().Str("nats_url", url).Msg("Lobby event publisher connected")
	return &Publisher{nc: nc, logger: logger}, nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.nc.Close()
}

// Publish emits one event. Failures are logged and swallowed; at worst an
// observer misses an event.
func (p *Publisher) Publish(subject string, info protocol.InstanceInfo, clientID, clientName string) {
	if p == nil {
		return
	}
	ev := InstanceEvent{
		InstanceID: info.ID.String(),
		ClientID:   clientID,
		ClientName: clientName,
		Players:    info.CurrentPlayers,
		MaxPlayers: info.MaxPlayers,
		At:         time.Now().UTC(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Debug().Err(err).Str("subject", subject).Msg("Event publish failed")
	}
}
