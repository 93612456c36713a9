package encounter_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
)

type recordingBroadcaster struct {
	mu      sync.Mutex
	updates []encounter.Update
	err     error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, u encounter.Update) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, u)
	return b.err
}

func (b *recordingBroadcaster) seqs() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []int
	for _, u := range b.updates {
		for _, e := range u.Entries {
			out = append(out, e.Seq)
		}
	}
	return out
}

func TestManager_CreateGetList(t *testing.T) {
	m := encounter.NewManager(testDeps(t, heroFirst(), nil))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	a, err := m.Create(duel())
	require.NoError(t, err)
	assert.Equal(t, "duel-1", a.ID())

	got, err := m.Get("duel-1")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, encounter.ErrNotFound)

	_, err = m.Create(duel())
	assert.ErrorIs(t, err, encounter.ErrDuplicateID)

	// Wait for initiative so the summary is stable.
	_, err = submit(t, a, "p2", wait("brute"))
	require.ErrorIs(t, err, encounter.ErrNotYourTurn)
	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, encounter.Summary{
		ID: "duel-1", Phase: combat.PhaseInProgress, Round: 1, Combatants: 2, Current: "hero",
	}, list[0])
}

func TestManager_CreateGeneratesID(t *testing.T) {
	m := encounter.NewManager(testDeps(t, heroFirst(), nil))
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	boot := duel()
	boot.ID = ""
	a, err := m.Create(boot)
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID())
}

func TestManager_CreateRejectsBadBootstrap(t *testing.T) {
	m := encounter.NewManager(testDeps(t, heroFirst(), nil))

	boot := duel()
	boot.Participants[1].Combatants = []string{"hero"}
	_, err := m.Create(boot)
	assert.Error(t, err, "combatant controlled twice")

	boot = duel()
	boot.Participants[0].Side = "raiders"
	_, err = m.Create(boot)
	assert.Error(t, err, "participant controls the other side")

	boot = duel()
	boot.Combatants = boot.Combatants[:1]
	_, err = m.Create(boot)
	assert.Error(t, err, "single combatant")

	assert.Empty(t, m.List())
}

// TestManager_ArchivesEndedEncounters verifies a finished encounter leaves the
// live set and its outcome stays retrievable.
func TestManager_ArchivesEndedEncounters(t *testing.T) {
	boot := duel()
	boot.Combatants[1].HP = 5
	sink := &recordingSink{}
	m := encounter.NewManager(testDeps(t, heroFirst(5, 5, 3), sink))

	a, err := m.Create(boot)
	require.NoError(t, err)
	_, err = submit(t, a, "p1", attack("hero", "brute"))
	require.NoError(t, err)
	waitDone(t, a)

	require.Eventually(t, func() bool {
		_, err := m.Get("duel-1")
		return errors.Is(err, encounter.ErrNotFound)
	}, time.Second, 5*time.Millisecond)
	out, ok := m.Archived("duel-1")
	require.True(t, ok)
	assert.Equal(t, combat.EndVictory, out.Reason)
	assert.Len(t, sink.all(), 1)

	_, err = m.Create(duel())
	assert.ErrorIs(t, err, encounter.ErrDuplicateID, "archived ids cannot be reused")
}

// TestManager_ShutdownAbandonsLiveEncounters verifies shutdown ends and
// persists every live encounter.
func TestManager_ShutdownAbandonsLiveEncounters(t *testing.T) {
	sink := &recordingSink{}
	m := encounter.NewManager(testDeps(t, heroFirst(), sink))

	for _, id := range []string{"a", "b", "c"} {
		boot := duel()
		boot.ID = id
		_, err := m.Create(boot)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	assert.Empty(t, m.List())
	outs := sink.all()
	require.Len(t, outs, 3)
	for _, o := range outs {
		assert.Equal(t, combat.EndAbandoned, o.Reason)
	}
}

// TestManager_BroadcastsEveryEntry verifies every configured broadcaster sees
// the whole log in order, even when one of them fails.
func TestManager_BroadcastsEveryEntry(t *testing.T) {
	good := &recordingBroadcaster{}
	failing := &recordingBroadcaster{err: errors.New("unreachable")}
	deps := testDeps(t, heroFirst(5, 5, 3), nil)
	deps.Broadcaster = encounter.Broadcasters{good, nil, failing}
	m := encounter.NewManager(deps)

	a, err := m.Create(duel())
	require.NoError(t, err)
	_, err = submit(t, a, "p1", attack("hero", "brute"))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	out, err := a.Result()
	require.NoError(t, err)
	want := make([]int, len(out.Log))
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, good.seqs())
	assert.Equal(t, want, failing.seqs())
}

func TestBroadcasters_JoinsErrors(t *testing.T) {
	e1, e2 := errors.New("one"), errors.New("two")
	bs := encounter.Broadcasters{
		&recordingBroadcaster{err: e1},
		&recordingBroadcaster{},
		&recordingBroadcaster{err: e2},
	}
	err := bs.Broadcast(context.Background(), encounter.Update{EncounterID: "x"})
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.NoError(t, encounter.Broadcasters{}.Broadcast(context.Background(), encounter.Update{}))
}

func TestSinkFunc(t *testing.T) {
	var got string
	sink := encounter.SinkFunc(func(_ context.Context, o combat.Outcome) error {
		got = o.EncounterID
		return nil
	})
	require.NoError(t, sink.SaveOutcome(context.Background(), combat.Outcome{EncounterID: "e1"}))
	assert.Equal(t, "e1", got)
}

// TestActor_PersistFailureIsReported verifies a failing sink does not block
// the encounter from finishing and surfaces through Result.
func TestActor_PersistFailureIsReported(t *testing.T) {
	boom := errors.New("disk full")
	deps := testDeps(t, heroFirst(), encounter.SinkFunc(func(context.Context, combat.Outcome) error { return boom }))
	a := startActor(t, duel(), deps)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Abandon(ctx, "stop"))
	_, err := a.Result()
	assert.ErrorIs(t, err, boom)
}

func TestManager_ArchiveSizeBound(t *testing.T) {
	m := encounter.NewManager(testDeps(t, heroFirst(), nil), encounter.WithArchiveSize(1))

	for _, id := range []string{"first", "second"} {
		boot := duel()
		boot.ID = id
		a, err := m.Create(boot)
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		require.NoError(t, a.Abandon(ctx, "done"))
		cancel()
		waitDone(t, a)
		require.Eventually(t, func() bool {
			_, ok := m.Archived(id)
			return ok
		}, time.Second, 5*time.Millisecond)
	}

	_, ok := m.Archived("first")
	assert.False(t, ok, "oldest outcome evicted")
}
