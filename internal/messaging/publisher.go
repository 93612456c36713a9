package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

// DefaultSubjectPrefix roots every subject the Publisher uses.
const DefaultSubjectPrefix = "skirmish"

// Publisher implements encounter.Broadcaster over a NATS connection.
//
// Every update goes to <prefix>.encounter.<id>.update. The final update of an
// encounter is also sent to <prefix>.encounter.<id>.ended.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// Connect dials url and returns a Publisher using prefix for its subjects.
func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("skirmishd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("messaging: connecting to %s: %w", url, err)
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// UpdateSubject returns the subject carrying every update of encounterID.
func (p *Publisher) UpdateSubject(encounterID string) string {
	return fmt.Sprintf("%s.encounter.%s.update", p.prefix, encounterID)
}

// EndedSubject returns the subject carrying encounterID's final update.
func (p *Publisher) EndedSubject(encounterID string) string {
	return fmt.Sprintf("%s.encounter.%s.ended", p.prefix, encounterID)
}

// Broadcast implements encounter.Broadcaster.
func (p *Publisher) Broadcast(ctx context.Context, u encounter.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("messaging: encoding update: %w", err)
	}
	if err := p.conn.Publish(p.UpdateSubject(u.EncounterID), data); err != nil {
		return fmt.Errorf("messaging: publishing update: %w", err)
	}
	if u.Snapshot != nil && u.Snapshot.Phase == combat.PhaseEnded {
		if err := p.conn.Publish(p.EndedSubject(u.EncounterID), data); err != nil {
			return fmt.Errorf("messaging: publishing end: %w", err)
		}
	}
	// FlushWithContext needs a deadline; the encounter outbox always sets one.
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("messaging: flushing: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
