package encounter

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/inventory"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// ConditionDodging marks a combatant holding a pending dodge bonus.
const ConditionDodging = "dodging"

// process validates and applies one action. It is the only path that mutates
// combatant state.
func (a *Actor) process(ctx context.Context, pid string, action combat.Action, auto bool) (combat.LogEntry, error) {
	_, span := a.tracer.Start(ctx, "encounter.action", trace.WithAttributes(
		attribute.String("encounter.id", a.id),
		attribute.String("action.type", action.Type.String()),
		attribute.String("action.actor", action.ActorID),
		attribute.Bool("action.auto", auto),
	))
	defer span.End()

	if rej := a.validate(pid, action, auto); rej != nil {
		return combat.LogEntry{}, a.rejected(span, pid, action, rej)
	}
	rec, endsTurn, rej := a.apply(action)
	if rej != nil {
		return combat.LogEntry{}, a.rejected(span, pid, action, rej)
	}
	rec.ParticipantID = pid
	rec.Auto = auto

	entry := a.appendEntry(action.Type.String(), action.ActorID, rec)
	if rec.CoverHit != nil && rec.CoverHit.Destroyed {
		a.appendEntry(combat.EntryCoverDestroyed, action.ActorID, rec.CoverHit)
	}
	if over, winner := a.state.VictoryCheck(); over {
		a.end(victoryReason(winner), winner, "")
	} else if endsTurn {
		a.state.AdvanceTurn()
		a.armTurn()
	}
	a.publish()
	span.SetAttributes(attribute.Int("log.seq", entry.Seq))
	return entry, nil
}

func (a *Actor) rejected(span trace.Span, pid string, action combat.Action, rej *RejectionError) error {
	span.SetStatus(codes.Error, string(rej.Code))
	a.logger.Info("action rejected",
		zap.String("participant", pid),
		zap.String("actor", action.ActorID),
		zap.Stringer("action", action.Type),
		zap.String("code", string(rej.Code)),
		zap.String("reason", rej.Message),
	)
	return rej
}

// validate checks an action against phase, ownership, turn order, liveness,
// and per-type rules without touching state.
func (a *Actor) validate(pid string, action combat.Action, auto bool) *RejectionError {
	s := a.state
	if s.Ended() {
		return reject(CodeEncounterEnded, "encounter %s has ended", a.id)
	}
	if s.Phase != combat.PhaseInProgress {
		return reject(CodeWrongPhase, "encounter is in %s", s.Phase)
	}
	if action.Type == combat.ActionUnknown {
		return reject(CodeInvalidAction, "unknown action type")
	}
	actor, ok := s.Combatant(action.ActorID)
	if !ok {
		return reject(CodeUnknownCombatant, "no combatant %q", action.ActorID)
	}
	if !auto && a.controllers[actor.ID] != pid {
		return reject(CodeUnauthorized, "participant %q does not control %q", pid, actor.ID)
	}
	if !actor.IsStanding() {
		return reject(CodeActorIncapacitated, "%s is %s", actor.ID, actor.Status())
	}
	if action.Reaction && action.Type != combat.ActionDefend {
		return reject(CodeInvalidAction, "only DEFEND may be taken as a reaction")
	}
	if action.Reaction && actor.ReactionRound == s.Round {
		return reject(CodeInvalidAction, "%s already reacted in round %d", actor.ID, s.Round)
	}
	if !action.Reaction && s.Current().ID != actor.ID {
		return reject(CodeNotYourTurn, "it is %s's turn", s.Current().ID)
	}

	switch action.Type {
	case combat.ActionAttack:
		return a.validateAttack(actor, action)
	case combat.ActionUseItem:
		_, _, rej := a.validateItem(actor, action)
		return rej
	case combat.ActionMove:
		return a.validateMove(actor, action)
	}
	return nil
}

func (a *Actor) validateAttack(actor *combat.Combatant, action combat.Action) *RejectionError {
	if action.TargetID == "" {
		return reject(CodeTargetRequired, "ATTACK needs a target")
	}
	target, ok := a.state.Combatant(action.TargetID)
	if !ok {
		return reject(CodeUnknownCombatant, "no combatant %q", action.TargetID)
	}
	if target.ID == actor.ID || target.Side == actor.Side {
		return reject(CodeInvalidAction, "%s cannot attack an ally", actor.ID)
	}
	if !target.IsStanding() {
		return reject(CodeTargetDown, "%s is %s", target.ID, target.Status())
	}
	weapon := actor.EquippedWeapon()
	if err := weapon.Validate(); err != nil {
		return reject(CodeMisconfiguredContent, "%v", err)
	}
	if d := a.state.Distance(actor, target); weapon.IsMelee() && d > weapon.Reach() {
		return reject(CodeOutOfRange, "%s is %d away, %s reaches %d", target.ID, d, weapon.Name, weapon.Reach())
	}
	return nil
}

func (a *Actor) validateItem(actor *combat.Combatant, action combat.Action) (*inventory.ItemDef, *combat.Combatant, *RejectionError) {
	if action.ItemID == "" {
		return nil, nil, reject(CodeInvalidAction, "USE_ITEM needs an item")
	}
	if actor.Items[action.ItemID] <= 0 {
		return nil, nil, reject(CodeItemUnavailable, "%s has no %q left", actor.ID, action.ItemID)
	}
	var item *inventory.ItemDef
	if a.deps.Registry != nil {
		item, _ = a.deps.Registry.Item(action.ItemID)
	}
	if item == nil {
		return nil, nil, reject(CodeItemUnavailable, "unknown item %q", action.ItemID)
	}
	target := actor
	if action.TargetID != "" {
		t, ok := a.state.Combatant(action.TargetID)
		if !ok {
			return nil, nil, reject(CodeUnknownCombatant, "no combatant %q", action.TargetID)
		}
		target = t
	}
	if !target.IsStanding() {
		return nil, nil, reject(CodeTargetDown, "%s is %s", target.ID, target.Status())
	}
	if d := a.state.Distance(actor, target); d > item.MaxDistance() {
		return nil, nil, reject(CodeOutOfRange, "%s is %d away, %s reaches %d", target.ID, d, item.Name, item.MaxDistance())
	}
	if _, err := item.Heal(); err != nil {
		return nil, nil, reject(CodeMisconfiguredContent, "%v", err)
	}
	return item, target, nil
}

// MoveAllowance returns how many squares c may move in one MOVE.
//
// Postcondition: Returns >= 1.
func MoveAllowance(base int, c *combat.Combatant) int {
	return max(base+dice.AttributeModifier(c.Attributes.VEL), 1)
}

func (a *Actor) validateMove(actor *combat.Combatant, action combat.Action) *RejectionError {
	if action.Destination == nil && action.CoverID == "" {
		return reject(CodeInvalidAction, "MOVE needs a destination or cover")
	}
	dest := actor.Position
	if action.Destination != nil {
		dest = *action.Destination
	}
	if steps, allowed := actor.Position.Distance(dest), MoveAllowance(a.cfg.MoveAllowance, actor); steps > allowed {
		return reject(CodeOutOfRange, "%s can move %d, destination is %d away", actor.ID, allowed, steps)
	}
	for _, other := range a.state.Combatants {
		if other.ID != actor.ID && other.IsStanding() && other.Position == dest {
			return reject(CodeInvalidAction, "square (%d,%d) is occupied by %s", dest.X, dest.Y, other.ID)
		}
	}
	if action.CoverID != "" {
		cv := a.state.Covers[action.CoverID]
		if cv == nil || cv.Destroyed() {
			return reject(CodeInvalidAction, "no cover %q", action.CoverID)
		}
		if cv.Position.Distance(dest) > 1 {
			return reject(CodeOutOfRange, "cover %q is not adjacent to (%d,%d)", cv.ID, dest.X, dest.Y)
		}
	}
	return nil
}

// apply mutates state for a validated action.
//
// Postcondition: on rejection no state has changed.
func (a *Actor) apply(action combat.Action) (ActionRecord, bool, *RejectionError) {
	actor, _ := a.state.Combatant(action.ActorID)
	rec := ActionRecord{Action: action}

	switch action.Type {
	case combat.ActionAttack:
		target, _ := a.state.Combatant(action.TargetID)
		cover := a.state.CoverFor(target)
		coverBonus := 0
		if cover != nil {
			coverBonus = cover.Def.DefenseBonus
		}
		res, err := combat.ResolveAttack(a.roller, actor, target, combat.AttackContext{
			Distance:   a.state.Distance(actor, target),
			CoverBonus: coverBonus,
			Evasion:    target.Evasion,
		})
		if err != nil {
			if errors.Is(err, inventory.ErrMisconfigured) {
				return rec, false, reject(CodeMisconfiguredContent, "%v", err)
			}
			return rec, false, reject(CodeInvalidAction, "%v", err)
		}
		a.roller.LogCheck("attack check", res.Check,
			zap.String("attacker", actor.ID), zap.String("target", target.ID), zap.Int("defense", res.Defense))
		if res.Damage != nil {
			a.roller.LogResult("damage roll", res.Damage.WeaponRoll,
				zap.String("attacker", actor.ID), zap.Int("final", res.Damage.Final))
		}
		target.Evasion = 0
		target.RemoveCondition(ConditionDodging)
		rec.Attack = &res
		switch {
		case res.Hit:
			combat.ApplyDamage(target, res.Damage.Final)
		case cover != nil && cover.Def.Destructible() &&
			res.Check.Critical != dice.CriticalAutoFail && -res.Check.Margin <= coverBonus:
			rec.CoverHit = a.strikeCover(actor, cover)
		}
		rec.Target = &TargetState{ID: target.ID, HP: target.HP, Status: target.Status()}
		return rec, true, nil

	case combat.ActionDefend:
		actor.Evasion = a.cfg.DodgeBonus
		actor.AddCondition(ConditionDodging)
		if action.Reaction {
			actor.ReactionRound = a.state.Round
		}
		return rec, !action.Reaction, nil

	case combat.ActionUseItem:
		item, target, rej := a.validateItem(actor, action)
		if rej != nil {
			return rec, false, rej
		}
		expr, _ := item.Heal()
		roll := a.roller.Roll(expr, zap.String("item", item.ID), zap.String("target", target.ID))
		restored := combat.Heal(target, max(roll.Total(), 0))
		actor.Items[item.ID]--
		if actor.Items[item.ID] <= 0 {
			delete(actor.Items, item.ID)
		}
		rec.Heal = &HealRecord{ItemID: item.ID, Roll: roll, Restored: restored}
		rec.Target = &TargetState{ID: target.ID, HP: target.HP, Status: target.Status()}
		return rec, true, nil

	case combat.ActionMove:
		from := actor.Position
		if action.Destination != nil {
			actor.Position = *action.Destination
		}
		actor.CoverID = action.CoverID
		rec.From = &from
		return rec, true, nil

	case combat.ActionWait:
		return rec, true, nil
	}
	return rec, false, reject(CodeInvalidAction, "unsupported action %s", action.Type)
}

// strikeCover rolls the attacker's weapon damage against cover the shot struck.
func (a *Actor) strikeCover(attacker *combat.Combatant, cover *combat.CoverInstance) *CoverHit {
	expr, err := attacker.EquippedWeapon().Damage()
	if err != nil {
		return nil
	}
	roll := a.roller.Roll(expr, zap.String("cover", cover.ID))
	destroyed := a.state.DamageCover(cover.ID, roll.Total())
	return &CoverHit{CoverID: cover.ID, Roll: roll, Remaining: max(cover.HP, 0), Destroyed: destroyed}
}

// defaultAction picks what cur does when its turn times out.
func (a *Actor) defaultAction(cur *combat.Combatant) combat.Action {
	wait := combat.Action{Type: combat.ActionWait, ActorID: cur.ID}
	if cur.Kind != combat.KindNPC || a.deps.Decisions == nil {
		return wait
	}
	d, ok := a.deps.Decisions.DefaultAction(cur.Profile, a.turnView(cur))
	if !ok {
		return wait
	}
	t, err := combat.ParseActionType(d.Action)
	if err != nil {
		return wait
	}
	switch t {
	case combat.ActionAttack, combat.ActionDefend, combat.ActionWait:
		return combat.Action{Type: t, ActorID: cur.ID, TargetID: d.TargetID}
	}
	return wait
}

func (a *Actor) turnView(cur *combat.Combatant) scripting.TurnView {
	view := func(c *combat.Combatant) scripting.CombatantView {
		w := c.EquippedWeapon()
		return scripting.CombatantView{
			ID:       c.ID,
			Side:     c.Side,
			Status:   c.Status().String(),
			HP:       c.HP,
			MaxHP:    c.MaxHP,
			X:        c.Position.X,
			Y:        c.Position.Y,
			Distance: a.state.Distance(cur, c),
			Reach:    w.Reach(),
			Ranged:   !w.IsMelee(),
		}
	}
	tv := scripting.TurnView{Self: view(cur), Round: a.state.Round}
	for _, id := range a.state.TurnOrder {
		if id != cur.ID {
			tv.Others = append(tv.Others, view(a.state.Combatants[id]))
		}
	}
	return tv
}
