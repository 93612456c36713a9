package encounter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

const tracerName = "github.com/cory-johannsen/skirmish/internal/game/encounter"

// message is anything the actor loop consumes from its mailbox.
type message any

type submitMsg struct {
	ctx           context.Context
	participantID string
	action        combat.Action
	reply         chan submitReply
}

type submitReply struct {
	entry combat.LogEntry
	err   error
}

type timeoutMsg struct{ seq uint64 }

type idleMsg struct{ gen uint64 }

type connectionMsg struct {
	participantID string
	connected     bool
}

type graceMsg struct {
	participantID string
	gen           uint64
}

type abandonMsg struct{ note string }

// Actor owns one encounter's CombatState. All mutation happens on the loop
// goroutine started by Start; every other method is safe for concurrent use.
type Actor struct {
	id     string
	cfg    Config
	roller *dice.Roller
	deps   Deps
	tracer trace.Tracer
	logger *zap.Logger
	now    func() time.Time

	// Owned by the loop goroutine.
	state        *combat.CombatState
	controllers  map[string]string
	participants map[string]Participant
	disconnected map[string]bool
	expired      map[string]bool
	turnTimer    *combat.TurnTimer
	idleTimer    *combat.TurnTimer
	idleGen      uint64
	graceTimers  map[string]*combat.TurnTimer
	graceGen     map[string]uint64

	mailbox    chan message
	snapshot   atomic.Pointer[combat.CombatState]
	kick       chan struct{}
	finished   chan struct{}
	outboxDone chan struct{}
	done       chan struct{}
	startOnce  sync.Once

	subMu      sync.Mutex
	subs       map[int]chan Update
	nextSub    int
	subsClosed bool

	outcome    combat.Outcome
	persistErr error
}

// NewActor validates boot and builds an encounter in SETUP. It does not start
// the loop; call Start.
//
// Precondition: deps.Source must be non-nil.
// Postcondition: Snapshot() returns the SETUP state with an ENCOUNTER_STARTED entry.
func NewActor(boot Bootstrap, deps Deps) (*Actor, error) {
	if deps.Source == nil {
		return nil, errors.New("encounter: NewActor: dice source is required")
	}
	id := boot.ID
	if id == "" {
		id = uuid.NewString()
	}
	state, err := combat.NewCombatState(id, boot.Combatants, boot.Covers)
	if err != nil {
		return nil, fmt.Errorf("encounter: NewActor: %w", err)
	}

	controllers := make(map[string]string)
	participants := make(map[string]Participant, len(boot.Participants))
	for _, p := range boot.Participants {
		if p.ID == "" {
			return nil, errors.New("encounter: NewActor: participant id must not be empty")
		}
		if _, dup := participants[p.ID]; dup {
			return nil, fmt.Errorf("encounter: NewActor: duplicate participant %q", p.ID)
		}
		for _, cid := range p.Combatants {
			c, ok := state.Combatant(cid)
			if !ok {
				return nil, fmt.Errorf("encounter: NewActor: participant %q controls unknown combatant %q", p.ID, cid)
			}
			if owner, taken := controllers[cid]; taken {
				return nil, fmt.Errorf("encounter: NewActor: combatant %q controlled by both %q and %q", cid, owner, p.ID)
			}
			if p.Side == "" {
				p.Side = c.Side
			}
			if c.Side != p.Side {
				return nil, fmt.Errorf("encounter: NewActor: participant %q on side %q controls %q of side %q", p.ID, p.Side, cid, c.Side)
			}
			controllers[cid] = p.ID
		}
		participants[p.ID] = p
	}

	cfg := deps.Config
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = DefaultConfig().MailboxSize
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultConfig().PersistTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	logger = logger.With(zap.String("encounter", id))

	a := &Actor{
		id:           id,
		cfg:          cfg,
		roller:       dice.NewLoggedRoller(deps.Source, logger),
		deps:         deps,
		tracer:       tracer,
		logger:       logger,
		now:          now,
		state:        state,
		controllers:  controllers,
		participants: participants,
		disconnected: make(map[string]bool),
		expired:      make(map[string]bool),
		turnTimer:    combat.NewTurnTimer(),
		idleTimer:    combat.NewTurnTimer(),
		graceTimers:  make(map[string]*combat.TurnTimer),
		graceGen:     make(map[string]uint64),
		mailbox:      make(chan message, cfg.MailboxSize),
		kick:         make(chan struct{}, 1),
		finished:     make(chan struct{}),
		outboxDone:   make(chan struct{}),
		done:         make(chan struct{}),
		subs:         make(map[int]chan Update),
	}
	if _, err := state.Append(combat.EntryStarted, "", boot.Participants, now()); err != nil {
		return nil, fmt.Errorf("encounter: NewActor: %w", err)
	}
	a.publish()
	return a, nil
}

// ID returns the encounter ID.
func (a *Actor) ID() string { return a.id }

// Start launches the loop and outbox goroutines. Initiative is rolled as the
// loop's first step. Calling Start more than once has no further effect.
func (a *Actor) Start() {
	a.startOnce.Do(func() {
		go a.outbox()
		go a.run()
	})
}

// Snapshot returns the most recent fully-applied state without blocking the
// mailbox. The returned value is shared and must not be modified.
func (a *Actor) Snapshot() *combat.CombatState {
	return a.snapshot.Load()
}

// Done is closed once the encounter has ended, its outcome has been handed to
// the sink, and the final update has been delivered.
func (a *Actor) Done() <-chan struct{} {
	return a.done
}

// Result returns the final outcome and any persistence error.
//
// Precondition: Done() is closed.
func (a *Actor) Result() (combat.Outcome, error) {
	<-a.done
	return a.outcome, a.persistErr
}

// Submit queues an action from participantID and waits for it to be processed.
//
// Postcondition: returns the appended log entry, a *RejectionError, or ctx.Err().
// If ctx ends after the action was queued the action may still be applied.
func (a *Actor) Submit(ctx context.Context, participantID string, action combat.Action) (combat.LogEntry, error) {
	reply := make(chan submitReply, 1)
	msg := submitMsg{ctx: ctx, participantID: participantID, action: action, reply: reply}
	select {
	case a.mailbox <- msg:
	case <-a.finished:
		return combat.LogEntry{}, reject(CodeEncounterEnded, "encounter %s has ended", a.id)
	case <-ctx.Done():
		return combat.LogEntry{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.entry, r.err
	case <-a.finished:
		select {
		case r := <-reply:
			return r.entry, r.err
		default:
			return combat.LogEntry{}, reject(CodeEncounterEnded, "encounter %s has ended", a.id)
		}
	case <-ctx.Done():
		return combat.LogEntry{}, ctx.Err()
	}
}

// Disconnect starts participantID's reconnection grace period.
func (a *Actor) Disconnect(participantID string) {
	a.post(connectionMsg{participantID: participantID, connected: false})
}

// Reconnect cancels participantID's grace period.
func (a *Actor) Reconnect(participantID string) {
	a.post(connectionMsg{participantID: participantID, connected: true})
}

// Abandon ends the encounter as ABANDONED and waits until it is done.
func (a *Actor) Abandon(ctx context.Context, note string) error {
	a.post(abandonMsg{note: note})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Controls reports whether participantID controls combatantID.
func (a *Actor) Controls(participantID, combatantID string) bool {
	p, ok := a.participants[participantID]
	if !ok {
		return false
	}
	for _, c := range p.Combatants {
		if c == combatantID {
			return true
		}
	}
	return false
}

// HasParticipant reports whether participantID joined this encounter.
func (a *Actor) HasParticipant(participantID string) bool {
	_, ok := a.participants[participantID]
	return ok
}

// Subscribe registers an in-process observer. Updates that do not fit in the
// buffer are dropped for that observer; the snapshot in every later update
// carries the full log. The channel is closed when the encounter is done or
// cancel is called.
func (a *Actor) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Update, buffer)
	a.subMu.Lock()
	defer a.subMu.Unlock()
	if a.subsClosed {
		close(ch)
		return ch, func() {}
	}
	id := a.nextSub
	a.nextSub++
	a.subs[id] = ch
	return ch, func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		if c, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(c)
		}
	}
}

// post delivers msg to the loop unless the encounter has already finished.
func (a *Actor) post(msg message) {
	select {
	case a.mailbox <- msg:
	case <-a.finished:
	}
}

// publish stores a fresh snapshot and nudges the outbox.
func (a *Actor) publish() {
	a.snapshot.Store(a.state.Clone())
	select {
	case a.kick <- struct{}{}:
	default:
	}
}
