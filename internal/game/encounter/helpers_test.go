package encounter_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/dice/dicetest"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// heroFirst returns a source whose initiative rolls hero 12 and brute 3,
// followed by faces.
func heroFirst(faces ...int) *dicetest.FaceSource {
	return dicetest.Faces(append([]int{6, 6, 1, 2}, faces...)...)
}

type recordingSink struct {
	mu       sync.Mutex
	outcomes []combat.Outcome
}

func (s *recordingSink) SaveOutcome(_ context.Context, o combat.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	return nil
}

func (s *recordingSink) all() []combat.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]combat.Outcome(nil), s.outcomes...)
}

type fixedDecision struct {
	decision scripting.Decision
	calls    int
	mu       sync.Mutex
}

func (f *fixedDecision) DefaultAction(string, scripting.TurnView) (scripting.Decision, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.decision, true
}

func (f *fixedDecision) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func knife() *inventory.WeaponDef {
	return &inventory.WeaponDef{
		ID: "knife", Name: "Knife", Type: inventory.WeaponMelee,
		DamageDice: "1d4+1", ScalingAttribute: inventory.AttrPWR, ScalingDivisor: 2,
	}
}

func testRegistry(t *testing.T) *inventory.Registry {
	t.Helper()
	r := inventory.NewRegistry()
	require.NoError(t, r.RegisterWeapon(knife()))
	require.NoError(t, r.RegisterItem(&inventory.ItemDef{ID: "medkit", Name: "Medkit", HealDice: "2d4"}))
	return r
}

func testConfig() encounter.Config {
	cfg := encounter.DefaultConfig()
	cfg.TurnTimeout = 0
	cfg.IdleTimeout = 0
	cfg.DisconnectGrace = 0
	return cfg
}

func testDeps(t *testing.T, src dice.Source, sink encounter.OutcomeSink) encounter.Deps {
	t.Helper()
	return encounter.Deps{
		Source:   src,
		Registry: testRegistry(t),
		Sink:     sink,
		Logger:   zaptest.NewLogger(t),
		Config:   testConfig(),
	}
}

func attrs() combat.Attributes {
	return combat.Attributes{PWR: 10, AGI: 10, END: 10, VEL: 10, PRC: 10}
}

// duel returns hero (crew, p1) adjacent to brute (raiders, p2).
func duel() encounter.Bootstrap {
	hero := &combat.Combatant{
		ID: "hero", Name: "Hero", Side: "crew", Tier: 1,
		Attributes: attrs(), Skills: combat.Skills{Melee: 2},
		HP: 40, MaxHP: 40, Weapon: knife(),
		Items: map[string]int{"medkit": 1},
	}
	hero.Attributes.PWR = 14
	brute := &combat.Combatant{
		ID: "brute", Name: "Brute", Side: "raiders", Tier: 1,
		Attributes: attrs(), HP: 40, MaxHP: 40,
		Position: combat.Position{X: 1, Y: 0},
	}
	return encounter.Bootstrap{
		ID:         "duel-1",
		Combatants: []*combat.Combatant{hero, brute},
		Participants: []encounter.Participant{
			{ID: "p1", Combatants: []string{"hero"}},
			{ID: "p2", Combatants: []string{"brute"}},
		},
	}
}

func startActor(t *testing.T, boot encounter.Bootstrap, deps encounter.Deps) *encounter.Actor {
	t.Helper()
	a, err := encounter.NewActor(boot, deps)
	require.NoError(t, err)
	a.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.Abandon(ctx, "test cleanup")
	})
	return a
}

func waitDone(t *testing.T, a *encounter.Actor) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("encounter did not finish")
	}
}

// assertLive fails if a finishes within d.
func assertLive(t *testing.T, a *encounter.Actor, d time.Duration) {
	t.Helper()
	select {
	case <-a.Done():
		out, _ := a.Result()
		t.Fatalf("encounter ended early: %s", out.Reason)
	case <-time.After(d):
	}
}

func submit(t *testing.T, a *encounter.Actor, pid string, action combat.Action) (combat.LogEntry, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return a.Submit(ctx, pid, action)
}

func decodeRecord(t *testing.T, e combat.LogEntry) encounter.ActionRecord {
	t.Helper()
	var rec encounter.ActionRecord
	require.NoError(t, json.Unmarshal(e.Payload, &rec))
	return rec
}

func combatant(t *testing.T, a *encounter.Actor, id string) *combat.Combatant {
	t.Helper()
	c, ok := a.Snapshot().Combatant(id)
	require.True(t, ok, id)
	return c
}
