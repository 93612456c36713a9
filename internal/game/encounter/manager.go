package encounter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// DefaultArchiveSize is how many ended encounters a Manager remembers.
const DefaultArchiveSize = 256

// ErrDuplicateID is returned by Create when the encounter ID is live or archived.
var ErrDuplicateID = errors.New("encounter: duplicate encounter id")

// Summary is a lightweight description of a live encounter.
type Summary struct {
	ID         string       `json:"id"`
	Phase      combat.Phase `json:"phase"`
	Round      int          `json:"round"`
	Combatants int          `json:"combatants"`
	Current    string       `json:"current,omitempty"`
}

// Manager creates encounters and tracks them until they end. Ended encounters
// move to a bounded archive of outcomes. All methods are safe for concurrent use.
type Manager struct {
	deps   Deps
	logger *zap.Logger

	mu           sync.RWMutex
	active       map[string]*Actor
	archive      map[string]combat.Outcome
	archiveOrder []string
	archiveSize  int
	wg           sync.WaitGroup
}

// ManagerOpt configures a Manager.
type ManagerOpt func(*Manager)

// WithArchiveSize bounds how many ended encounters are remembered. Zero
// disables the archive.
func WithArchiveSize(n int) ManagerOpt {
	return func(m *Manager) {
		if n >= 0 {
			m.archiveSize = n
		}
	}
}

// NewManager returns a Manager whose encounters share deps.
//
// Precondition: deps.Source must be non-nil.
func NewManager(deps Deps, opts ...ManagerOpt) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
		deps.Logger = logger
	}
	m := &Manager{
		deps:        deps,
		logger:      logger,
		active:      make(map[string]*Actor),
		archive:     make(map[string]combat.Outcome),
		archiveSize: DefaultArchiveSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create builds and starts an encounter.
//
// Postcondition: the encounter is listed until it ends; returns an error for
// an invalid bootstrap or a duplicate ID.
func (m *Manager) Create(boot Bootstrap) (*Actor, error) {
	a, err := NewActor(boot, m.deps)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if _, dup := m.active[a.ID()]; dup {
		m.mu.Unlock()
		return nil, fmt.Errorf("encounter: Create: %w %s", ErrDuplicateID, a.ID())
	}
	if _, dup := m.archive[a.ID()]; dup {
		m.mu.Unlock()
		return nil, fmt.Errorf("encounter: Create: %w %s (archived)", ErrDuplicateID, a.ID())
	}
	m.active[a.ID()] = a
	m.mu.Unlock()

	m.wg.Add(1)
	go m.reap(a)
	a.Start()
	m.logger.Info("encounter created", zap.String("encounter", a.ID()), zap.Int("combatants", len(boot.Combatants)))
	return a, nil
}

// reap archives a once it is done.
func (m *Manager) reap(a *Actor) {
	defer m.wg.Done()
	<-a.Done()
	out, _ := a.Result()
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, a.ID())
	m.archive[a.ID()] = out
	m.archiveOrder = append(m.archiveOrder, a.ID())
	for len(m.archiveOrder) > m.archiveSize {
		delete(m.archive, m.archiveOrder[0])
		m.archiveOrder = m.archiveOrder[1:]
	}
}

// Get returns the live encounter with id.
//
// Postcondition: returns ErrNotFound when id is not live.
func (m *Manager) Get(id string) (*Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.active[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// Archived returns the outcome of an ended encounter still in the archive.
func (m *Manager) Archived(id string) (combat.Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.archive[id]
	return o, ok
}

// List summarises every live encounter sorted by ID.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	actors := make([]*Actor, 0, len(m.active))
	for _, a := range m.active {
		actors = append(actors, a)
	}
	m.mu.RUnlock()

	out := make([]Summary, 0, len(actors))
	for _, a := range actors {
		snap := a.Snapshot()
		s := Summary{ID: snap.ID, Phase: snap.Phase, Round: snap.Round, Combatants: len(snap.Combatants)}
		if cur := snap.Current(); cur != nil {
			s.Current = cur.ID
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown abandons every live encounter and waits for them to persist.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	actors := make([]*Actor, 0, len(m.active))
	for _, a := range m.active {
		actors = append(actors, a)
	}
	m.mu.RUnlock()

	var errs []error
	for _, a := range actors {
		if err := a.Abandon(ctx, "server shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	waited := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// Broadcasters fans an update out to several broadcasters.
type Broadcasters []Broadcaster

// Broadcast delivers u to every broadcaster and joins their errors.
func (bs Broadcasters) Broadcast(ctx context.Context, u Update) error {
	var errs []error
	for _, b := range bs {
		if b == nil {
			continue
		}
		if err := b.Broadcast(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkFunc adapts a function to OutcomeSink.
type SinkFunc func(ctx context.Context, o combat.Outcome) error

// SaveOutcome calls f.
func (f SinkFunc) SaveOutcome(ctx context.Context, o combat.Outcome) error { return f(ctx, o) }
