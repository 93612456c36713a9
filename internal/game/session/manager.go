package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

// Presence is notified when a participant's last connection drops and when
// one comes back. *encounter.Actor satisfies it.
type Presence interface {
	Disconnect(participantID string)
	Reconnect(participantID string)
}

// Connection is one stream attached to an encounter on behalf of a participant.
type Connection struct {
	EncounterID   string
	ParticipantID string
	Entity        *BridgeEntity
}

type participantKey struct {
	encounterID   string
	participantID string
}

// Manager tracks connections per encounter and implements
// encounter.Broadcaster by pushing each update, JSON-encoded once, to every
// connection on that encounter. All methods are safe for concurrent use.
type Manager struct {
	logger     *zap.Logger
	bufferSize int

	mu    sync.RWMutex
	conns map[string]map[string]*Connection // encounterID → connection ID → conn
	live  map[participantKey]int
	// seen records participants that have connected at least once, so the
	// first connection is not reported as a reconnect.
	seen map[participantKey]bool
}

// NewManager creates an empty Manager whose connections buffer bufferSize frames.
func NewManager(logger *zap.Logger, bufferSize int) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:     logger,
		bufferSize: bufferSize,
		conns:      make(map[string]map[string]*Connection),
		live:       make(map[participantKey]int),
		seen:       make(map[participantKey]bool),
	}
}

// AddConnection attaches a new stream for participantID. An empty
// participantID attaches an observer, which has no presence.
//
// Precondition: encounterID must be non-empty.
// Postcondition: if participantID had no live connection but had one before,
// p.Reconnect is called.
func (m *Manager) AddConnection(encounterID, participantID string, p Presence) (*Connection, error) {
	if encounterID == "" {
		return nil, errors.New("session: AddConnection: encounter id is required")
	}
	c := &Connection{
		EncounterID:   encounterID,
		ParticipantID: participantID,
		Entity:        NewBridgeEntity(uuid.NewString(), m.bufferSize),
	}
	key := participantKey{encounterID, participantID}

	m.mu.Lock()
	if m.conns[encounterID] == nil {
		m.conns[encounterID] = make(map[string]*Connection)
	}
	m.conns[encounterID][c.Entity.ID()] = c
	returning := false
	if participantID != "" {
		m.live[key]++
		returning = m.live[key] == 1 && m.seen[key]
		m.seen[key] = true
	}
	m.mu.Unlock()

	if returning && p != nil {
		p.Reconnect(participantID)
	}
	m.logger.Debug("connection added",
		zap.String("encounter", encounterID),
		zap.String("participant", participantID),
		zap.String("connection", c.Entity.ID()),
	)
	return c, nil
}

// RemoveConnection detaches c and closes its queue.
//
// Postcondition: if c was the participant's last live connection, p.Disconnect
// is called. Returns an error if c is not registered.
func (m *Manager) RemoveConnection(c *Connection, p Presence) error {
	key := participantKey{c.EncounterID, c.ParticipantID}

	m.mu.Lock()
	set := m.conns[c.EncounterID]
	if _, ok := set[c.Entity.ID()]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("session: RemoveConnection: connection %s not found", c.Entity.ID())
	}
	delete(set, c.Entity.ID())
	if len(set) == 0 {
		delete(m.conns, c.EncounterID)
	}
	gone := false
	if c.ParticipantID != "" {
		m.live[key]--
		gone = m.live[key] <= 0
		if gone {
			delete(m.live, key)
		}
	}
	m.mu.Unlock()

	_ = c.Entity.Close()
	if gone && p != nil {
		p.Disconnect(c.ParticipantID)
	}
	return nil
}

// Connections returns the connections attached to encounterID sorted by
// participant then connection ID.
func (m *Manager) Connections(encounterID string) []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Connection, 0, len(m.conns[encounterID]))
	for _, c := range m.conns[encounterID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParticipantID != out[j].ParticipantID {
			return out[i].ParticipantID < out[j].ParticipantID
		}
		return out[i].Entity.ID() < out[j].Entity.ID()
	})
	return out
}

// Forget drops every record of encounterID and closes its connections.
func (m *Manager) Forget(encounterID string) {
	m.mu.Lock()
	set := m.conns[encounterID]
	delete(m.conns, encounterID)
	for k := range m.live {
		if k.encounterID == encounterID {
			delete(m.live, k)
		}
	}
	for k := range m.seen {
		if k.encounterID == encounterID {
			delete(m.seen, k)
		}
	}
	m.mu.Unlock()
	for _, c := range set {
		_ = c.Entity.Close()
	}
}

// Broadcast implements encounter.Broadcaster. A connection whose buffer is
// full is closed so its client resynchronises from a fresh snapshot.
func (m *Manager) Broadcast(_ context.Context, u encounter.Update) error {
	conns := m.Connections(u.EncounterID)
	if len(conns) == 0 {
		return nil
	}
	frame, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session: Broadcast: %w", err)
	}
	var errs []error
	for _, c := range conns {
		if err := c.Entity.Push(frame); err != nil {
			if errors.Is(err, ErrClosed) {
				continue
			}
			if errors.Is(err, ErrBufferFull) {
				m.logger.Warn("slow stream, closing",
					zap.String("encounter", c.EncounterID),
					zap.String("participant", c.ParticipantID),
				)
				_ = c.Entity.Close()
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
