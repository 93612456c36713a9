package gameserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/dice/dicetest"
	"github.com/cory-johannsen/skirmish/internal/game/encounter"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
)

type harness struct {
	client     gameserver.EncounterServiceClient
	encounters *encounter.Manager
}

func testRegistry(t *testing.T) *inventory.Registry {
	t.Helper()
	r := inventory.NewRegistry()
	require.NoError(t, r.RegisterWeapon(&inventory.WeaponDef{
		ID: "knife", Name: "Knife", Type: inventory.WeaponMelee,
		DamageDice: "1d4+1", ScalingAttribute: inventory.AttrPWR, ScalingDivisor: 2,
	}))
	require.NoError(t, r.RegisterCover(&inventory.CoverDef{ID: "crate", Name: "Crate", DefenseBonus: 2, HP: 6}))
	require.NoError(t, r.RegisterItem(&inventory.ItemDef{ID: "medkit", Name: "Medkit", HealDice: "2d4"}))
	return r
}

// startService serves EncounterService over an in-memory listener.
func startService(t *testing.T, src dice.Source, cfg encounter.Config) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	reg := testRegistry(t)
	sessions := session.NewManager(logger, 16)
	encounters := encounter.NewManager(encounter.Deps{
		Source:      src,
		Registry:    reg,
		Broadcaster: sessions,
		Logger:      logger,
		Config:      cfg,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = encounters.Shutdown(ctx)
	})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	gameserver.RegisterEncounterServiceServer(srv, gameserver.NewEncounterService(encounters, sessions, reg, logger))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{client: gameserver.NewEncounterServiceClient(conn), encounters: encounters}
}

func quietConfig() encounter.Config {
	cfg := encounter.DefaultConfig()
	cfg.TurnTimeout = 0
	cfg.IdleTimeout = 0
	cfg.DisconnectGrace = 0
	return cfg
}

func toStruct(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func duelRequest() gameserver.BootstrapRequest {
	attrs := combat.Attributes{PWR: 14, AGI: 10, END: 10, VEL: 10, PRC: 10}
	return gameserver.BootstrapRequest{
		ID: "duel-1",
		Combatants: []gameserver.CombatantSpec{
			{ID: "hero", Name: "Hero", Side: "crew", Attributes: attrs, Skills: combat.Skills{Melee: 2}, HP: 40, MaxHP: 40, WeaponID: "knife"},
			{ID: "brute", Name: "Brute", Side: "raiders", Attributes: combat.Attributes{PWR: 10, AGI: 10, END: 10, VEL: 10, PRC: 10}, HP: 40, MaxHP: 40, Position: combat.Position{X: 1}},
		},
		Participants: []encounter.Participant{
			{ID: "p1", Combatants: []string{"hero"}},
			{ID: "p2", Combatants: []string{"brute"}},
		},
	}
}

func ctxT(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func bootstrap(t *testing.T, h *harness, req gameserver.BootstrapRequest) string {
	t.Helper()
	resp, err := h.client.Bootstrap(ctxT(t), toStruct(t, req))
	require.NoError(t, err)
	return resp.GetFields()["encounterId"].GetStringValue()
}

func submitAction(t *testing.T, h *harness, pid string, action combat.Action) (*structpb.Struct, error) {
	t.Helper()
	return h.client.Submit(ctxT(t), toStruct(t, gameserver.SubmitRequest{
		EncounterID: "duel-1", ParticipantID: pid, Action: action,
	}))
}

func recvUpdate(t *testing.T, w gameserver.EncounterService_WatchClient) encounter.Update {
	t.Helper()
	frame, err := w.Recv()
	require.NoError(t, err)
	var u encounter.Update
	require.NoError(t, json.Unmarshal(frame.GetValue(), &u))
	return u
}

// TestEncounterService_SubmitAndWatch verifies an accepted action is returned
// to the submitter and streamed to watchers with a verifiable log.
func TestEncounterService_SubmitAndWatch(t *testing.T) {
	h := startService(t, dicetest.Faces(6, 6, 1, 2, 5, 5, 3), quietConfig())
	require.Equal(t, "duel-1", bootstrap(t, h, duelRequest()))

	// Wait for initiative before attaching.
	_, err := submitAction(t, h, "p2", combat.Action{Type: combat.ActionWait, ActorID: "brute"})
	code, ok := gameserver.RejectionCode(err)
	require.True(t, ok)
	require.Equal(t, encounter.CodeNotYourTurn, code)

	watch, err := h.client.Watch(ctxT(t), toStruct(t, gameserver.WatchRequest{EncounterID: "duel-1", ParticipantID: "p2"}))
	require.NoError(t, err)
	first := recvUpdate(t, watch)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, combat.PhaseInProgress, first.Snapshot.Phase)
	require.NoError(t, combat.VerifyLog(first.Entries))

	resp, err := submitAction(t, h, "p1", combat.Action{Type: combat.ActionAttack, ActorID: "hero", TargetID: "brute"})
	require.NoError(t, err)
	assert.Equal(t, "ATTACK", resp.GetFields()["kind"].GetStringValue())
	assert.Equal(t, "hero", resp.GetFields()["actorId"].GetStringValue())

	log := append([]combat.LogEntry(nil), first.Entries...)
	var last encounter.Update
	for attacked := false; !attacked; {
		last = recvUpdate(t, watch)
		for _, e := range last.Entries {
			if e.Seq == len(log) {
				log = append(log, e)
				attacked = attacked || e.Kind == "ATTACK"
			}
		}
	}
	require.NoError(t, combat.VerifyLog(log), "streamed frames preserve the hash chain")
	brute, ok := last.Snapshot.Combatant("brute")
	require.True(t, ok)
	assert.Equal(t, 33, brute.HP)
}

// TestEncounterService_RejectionDetails verifies rejections map to gRPC codes
// and carry their reason code.
func TestEncounterService_RejectionDetails(t *testing.T) {
	h := startService(t, dicetest.Faces(6, 6, 1, 2), quietConfig())
	bootstrap(t, h, duelRequest())

	cases := []struct {
		name   string
		pid    string
		action combat.Action
		grpc   codes.Code
		reason encounter.Code
	}{
		{"turn", "p2", combat.Action{Type: combat.ActionWait, ActorID: "brute"}, codes.FailedPrecondition, encounter.CodeNotYourTurn},
		{"control", "p2", combat.Action{Type: combat.ActionWait, ActorID: "hero"}, codes.PermissionDenied, encounter.CodeUnauthorized},
		{"target", "p1", combat.Action{Type: combat.ActionAttack, ActorID: "hero"}, codes.InvalidArgument, encounter.CodeTargetRequired},
		{"unknown", "p1", combat.Action{Type: combat.ActionWait, ActorID: "ghost"}, codes.NotFound, encounter.CodeUnknownCombatant},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := submitAction(t, h, tc.pid, tc.action)
			require.Error(t, err)
			assert.Equal(t, tc.grpc, status.Code(err))
			reason, ok := gameserver.RejectionCode(err)
			require.True(t, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestEncounterService_UnknownEncounter(t *testing.T) {
	h := startService(t, dicetest.Faces(6), quietConfig())

	_, err := h.client.Submit(ctxT(t), toStruct(t, gameserver.SubmitRequest{EncounterID: "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = h.client.Snapshot(ctxT(t), toStruct(t, gameserver.WatchRequest{EncounterID: "nope"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	watch, err := h.client.Watch(ctxT(t), toStruct(t, gameserver.WatchRequest{EncounterID: "nope"}))
	require.NoError(t, err)
	_, err = watch.Recv()
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestEncounterService_BootstrapValidation(t *testing.T) {
	h := startService(t, dicetest.Faces(6), quietConfig())

	req := duelRequest()
	req.Combatants[0].WeaponID = "railgun"
	_, err := h.client.Bootstrap(ctxT(t), toStruct(t, req))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	bootstrap(t, h, duelRequest())
	_, err = h.client.Bootstrap(ctxT(t), toStruct(t, duelRequest()))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestEncounterService_WatchRequiresParticipant(t *testing.T) {
	h := startService(t, dicetest.Faces(6), quietConfig())
	bootstrap(t, h, duelRequest())

	watch, err := h.client.Watch(ctxT(t), toStruct(t, gameserver.WatchRequest{EncounterID: "duel-1", ParticipantID: "p9"}))
	require.NoError(t, err)
	_, err = watch.Recv()
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
}

// TestEncounterService_DroppedWatchForfeits verifies that a participant whose
// only stream closes forfeits once the grace period expires, and that the
// archived outcome is then served by Snapshot.
func TestEncounterService_DroppedWatchForfeits(t *testing.T) {
	cfg := quietConfig()
	cfg.DisconnectGrace = 20 * time.Millisecond
	h := startService(t, dicetest.Faces(6, 6, 1, 2), cfg)
	bootstrap(t, h, duelRequest())

	ctx, cancel := context.WithCancel(context.Background())
	watch, err := h.client.Watch(ctx, toStruct(t, gameserver.WatchRequest{EncounterID: "duel-1", ParticipantID: "p2"}))
	require.NoError(t, err)
	recvUpdate(t, watch)
	cancel()

	require.Eventually(t, func() bool {
		_, ok := h.encounters.Archived("duel-1")
		return ok
	}, 3*time.Second, 10*time.Millisecond)

	resp, err := h.client.Snapshot(ctxT(t), toStruct(t, gameserver.WatchRequest{EncounterID: "duel-1"}))
	require.NoError(t, err)
	b, err := resp.MarshalJSON()
	require.NoError(t, err)
	var snap gameserver.SnapshotResponse
	require.NoError(t, json.Unmarshal(b, &snap))
	require.NotNil(t, snap.Outcome)
	assert.Equal(t, combat.EndForfeit, snap.Outcome.Reason)
	assert.Equal(t, "crew", snap.Outcome.Winner)
}

// TestEncounterService_ObserverStreamEnds verifies an observer's stream ends
// cleanly after the final update.
func TestEncounterService_ObserverStreamEnds(t *testing.T) {
	h := startService(t, dicetest.Faces(6, 6, 1, 2), quietConfig())
	bootstrap(t, h, duelRequest())

	watch, err := h.client.Watch(ctxT(t), toStruct(t, gameserver.WatchRequest{EncounterID: "duel-1"}))
	require.NoError(t, err)
	recvUpdate(t, watch)

	a, err := h.encounters.Get("duel-1")
	require.NoError(t, err)
	require.NoError(t, a.Abandon(ctxT(t), "test"))

	for {
		frame, err := watch.Recv()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
		require.NotEmpty(t, frame.GetValue())
	}
}
