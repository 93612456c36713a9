package combat

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Log entry kinds outside the action types.
const (
	EntryStarted         = "ENCOUNTER_STARTED"
	EntryInitiative      = "INITIATIVE"
	EntryTurnTimeout     = "TURN_TIMEOUT"
	EntryCoverDestroyed  = "COVER_DESTROYED"
	EntryParticipantLeft = "PARTICIPANT_DISCONNECTED"
	EntryParticipantBack = "PARTICIPANT_RECONNECTED"
	EntryEnded           = "ENCOUNTER_ENDED"
)

// ErrLogTampered is returned by VerifyLog when the hash chain does not hold.
var ErrLogTampered = errors.New("combat: action log hash chain broken")

// LogEntry is one record in an encounter's append-only action log.
//
// Hash is blake2b-256 over the JSON encoding of the entry with Hash empty;
// Prev is the previous entry's Hash, so every entry commits to all before it.
type LogEntry struct {
	Seq     int             `json:"seq"`
	Round   int             `json:"round"`
	Kind    string          `json:"kind"`
	ActorID string          `json:"actorId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	At      time.Time       `json:"at"`
	Prev    string          `json:"prev"`
	Hash    string          `json:"hash"`
}

func entryHash(e LogEntry) (string, error) {
	e.Hash = ""
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Append records payload as the next log entry.
//
// Postcondition: the new entry's Seq == len(Log) before the call and its Prev
// equals the previous entry's Hash.
func (s *CombatState) Append(kind, actorID string, payload any, at time.Time) (LogEntry, error) {
	e := LogEntry{
		Seq:     len(s.Log),
		Round:   s.Round,
		Kind:    kind,
		ActorID: actorID,
		At:      at.UTC(),
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return LogEntry{}, fmt.Errorf("combat: Append %s: %w", kind, err)
		}
		e.Payload = b
	}
	if n := len(s.Log); n > 0 {
		e.Prev = s.Log[n-1].Hash
	}
	h, err := entryHash(e)
	if err != nil {
		return LogEntry{}, fmt.Errorf("combat: Append %s: %w", kind, err)
	}
	e.Hash = h
	s.Log = append(s.Log, e)
	return e, nil
}

// VerifyLog checks sequence numbers, back-links, and hashes of entries.
//
// Postcondition: returns nil iff the chain is intact; otherwise an error wrapping ErrLogTampered.
func VerifyLog(entries []LogEntry) error {
	prev := ""
	for i, e := range entries {
		if e.Seq != i {
			return fmt.Errorf("%w: entry %d has seq %d", ErrLogTampered, i, e.Seq)
		}
		if e.Prev != prev {
			return fmt.Errorf("%w: entry %d does not link to its predecessor", ErrLogTampered, i)
		}
		h, err := entryHash(e)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %v", ErrLogTampered, i, err)
		}
		if h != e.Hash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrLogTampered, i)
		}
		prev = e.Hash
	}
	return nil
}
