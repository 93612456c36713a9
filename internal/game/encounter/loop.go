package encounter

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// endRecord is the payload of the ENCOUNTER_ENDED entry.
type endRecord struct {
	Reason combat.EndReason `json:"reason"`
	Winner string           `json:"winner,omitempty"`
	Note   string           `json:"note,omitempty"`
}

// connectionRecord is the payload of participant connection entries.
type connectionRecord struct {
	ParticipantID string `json:"participantId"`
}

func (a *Actor) run() {
	a.begin()
	for a.state.Phase != combat.PhaseEnded {
		a.handle(<-a.mailbox)
	}
	a.finish()
}

// begin rolls initiative and arms the turn and idle timers.
func (a *Actor) begin() {
	results, err := a.state.RollInitiative(a.roller)
	if err != nil {
		a.logger.Error("rolling initiative", zap.Error(err))
		a.end(combat.EndAbandoned, "", "initiative failed")
		return
	}
	for _, r := range results {
		a.roller.LogRoll("initiative", r.Roll, zap.String("combatant", r.CombatantID), zap.Int("initiative", r.Total))
	}
	a.appendEntry(combat.EntryInitiative, "", results)
	a.logger.Info("encounter started",
		zap.Strings("turn_order", a.state.TurnOrder),
		zap.Int("combatants", len(a.state.Combatants)),
	)
	if over, winner := a.state.VictoryCheck(); over {
		a.end(victoryReason(winner), winner, "")
		return
	}
	a.armTurn()
	a.touchIdle()
	a.publish()
}

func (a *Actor) handle(msg message) {
	switch m := msg.(type) {
	case submitMsg:
		a.touchIdle()
		entry, err := a.process(m.ctx, m.participantID, m.action, false)
		m.reply <- submitReply{entry: entry, err: err}
	case timeoutMsg:
		if a.state.Phase != combat.PhaseInProgress || m.seq != a.state.TurnSeq {
			return
		}
		a.autoAct()
	case idleMsg:
		if m.gen != a.idleGen || a.state.Ended() {
			return
		}
		a.logger.Info("encounter idle, abandoning")
		a.end(combat.EndAbandoned, "", "idle timeout")
	case connectionMsg:
		a.connection(m.participantID, m.connected)
	case graceMsg:
		if m.gen != a.graceGen[m.participantID] || !a.disconnected[m.participantID] || a.state.Ended() {
			return
		}
		a.graceExpired(m.participantID)
	case abandonMsg:
		if !a.state.Ended() {
			a.end(combat.EndAbandoned, "", m.note)
		}
	}
}

// autoAct resolves the current combatant's default action after a turn timeout.
func (a *Actor) autoAct() {
	cur := a.state.Current()
	a.appendEntry(combat.EntryTurnTimeout, cur.ID, nil)
	action := a.defaultAction(cur)
	if _, err := a.process(context.Background(), "", action, true); err != nil {
		a.logger.Info("default action rejected, waiting instead",
			zap.String("combatant", cur.ID),
			zap.Stringer("action", action.Type),
			zap.Error(err),
		)
		wait := combat.Action{Type: combat.ActionWait, ActorID: cur.ID}
		if _, err := a.process(context.Background(), "", wait, true); err != nil {
			a.logger.Error("WAIT rejected on timeout", zap.String("combatant", cur.ID), zap.Error(err))
		}
	}
}

func (a *Actor) connection(pid string, connected bool) {
	if _, ok := a.participants[pid]; !ok || a.state.Ended() {
		return
	}
	if connected {
		if !a.disconnected[pid] {
			return
		}
		delete(a.disconnected, pid)
		delete(a.expired, pid)
		if t := a.graceTimers[pid]; t != nil {
			t.Stop()
		}
		a.graceGen[pid]++
		a.appendEntry(combat.EntryParticipantBack, "", connectionRecord{ParticipantID: pid})
		a.logger.Info("participant reconnected", zap.String("participant", pid))
		a.publish()
		return
	}
	if a.disconnected[pid] {
		return
	}
	a.disconnected[pid] = true
	a.appendEntry(combat.EntryParticipantLeft, "", connectionRecord{ParticipantID: pid})
	a.logger.Info("participant disconnected", zap.String("participant", pid), zap.Duration("grace", a.cfg.DisconnectGrace))
	if a.cfg.DisconnectGrace > 0 {
		a.graceGen[pid]++
		gen := a.graceGen[pid]
		t := a.graceTimers[pid]
		if t == nil {
			t = combat.NewTurnTimer()
			a.graceTimers[pid] = t
		}
		t.Arm(a.cfg.DisconnectGrace, func() { a.post(graceMsg{participantID: pid, gen: gen}) })
	}
	a.publish()
}

// graceExpired marks pid as gone for good. Its side forfeits once every
// participant controlling a standing combatant of that side has expired;
// until then the absent combatants fall to the turn-timeout default action.
func (a *Actor) graceExpired(pid string) {
	a.expired[pid] = true
	side, ok := a.standingSide(pid)
	if !ok {
		a.logger.Info("grace expired for participant without standing combatants", zap.String("participant", pid))
		return
	}
	for cid, owner := range a.controllers {
		c, _ := a.state.Combatant(cid)
		if c.Side == side && c.IsStanding() && !a.expired[owner] {
			a.logger.Info("grace expired, side still held",
				zap.String("participant", pid),
				zap.String("side", side),
				zap.String("held_by", owner),
			)
			return
		}
	}
	a.forfeit(side, pid)
}

// standingSide returns the side of pid's first standing combatant.
func (a *Actor) standingSide(pid string) (string, bool) {
	for _, cid := range a.participants[pid].Combatants {
		if c, ok := a.state.Combatant(cid); ok && c.IsStanding() {
			return c.Side, true
		}
	}
	return "", false
}

// forfeit ends the encounter against side.
func (a *Actor) forfeit(side, pid string) {
	others := map[string]bool{}
	for _, c := range a.state.Combatants {
		if c.Side != side {
			others[c.Side] = true
		}
	}
	winner := ""
	if len(others) == 1 {
		for s := range others {
			winner = s
		}
	}
	a.logger.Info("participant forfeited", zap.String("participant", pid), zap.String("side", side))
	a.end(combat.EndForfeit, winner, pid)
}

// end moves the state through RESOLUTION to ENDED and stops every timer.
func (a *Actor) end(reason combat.EndReason, winner, note string) {
	if err := a.state.Resolve(reason, winner); err != nil {
		a.logger.Error("resolving encounter", zap.Error(err))
		return
	}
	a.appendEntry(combat.EntryEnded, "", endRecord{Reason: reason, Winner: winner, Note: note})
	if err := a.state.Finish(); err != nil {
		a.logger.Error("finishing encounter", zap.Error(err))
	}
	a.turnTimer.Stop()
	a.idleTimer.Stop()
	for _, t := range a.graceTimers {
		t.Stop()
	}
	a.logger.Info("encounter ended",
		zap.String("reason", string(reason)),
		zap.String("winner", winner),
		zap.Int("rounds", a.state.Round),
	)
}

// finish publishes the final state, persists the outcome, and drains the outbox.
func (a *Actor) finish() {
	a.publish()
	close(a.finished)

	a.outcome = a.state.Outcome(a.now())
	if a.deps.Sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.PersistTimeout)
		if err := a.deps.Sink.SaveOutcome(ctx, a.outcome); err != nil {
			a.persistErr = err
			a.logger.Error("persisting outcome", zap.Error(err))
		}
		cancel()
	}

	<-a.outboxDone
	a.subMu.Lock()
	a.subsClosed = true
	for id, ch := range a.subs {
		close(ch)
		delete(a.subs, id)
	}
	a.subMu.Unlock()
	close(a.done)
}

func (a *Actor) appendEntry(kind, actorID string, payload any) combat.LogEntry {
	e, err := a.state.Append(kind, actorID, payload, a.now())
	if err != nil {
		a.logger.Error("appending log entry", zap.String("kind", kind), zap.Error(err))
	}
	return e
}

func (a *Actor) armTurn() {
	if a.cfg.TurnTimeout <= 0 || a.state.Phase != combat.PhaseInProgress {
		return
	}
	seq := a.state.TurnSeq
	a.turnTimer.Arm(a.cfg.TurnTimeout, func() { a.post(timeoutMsg{seq: seq}) })
}

func (a *Actor) touchIdle() {
	if a.cfg.IdleTimeout <= 0 || a.state.Ended() {
		return
	}
	a.idleGen++
	gen := a.idleGen
	a.idleTimer.Arm(a.cfg.IdleTimeout, func() { a.post(idleMsg{gen: gen}) })
}

func victoryReason(winner string) combat.EndReason {
	if winner == "" {
		return combat.EndDraw
	}
	return combat.EndVictory
}
