package kernel

import (
	"fmt"

	"github.com/eng-cc/agent-world-sub008/internal/obsmetrics"
	"github.com/eng-cc/agent-world-sub008/notify"
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// Submit folds one action into the world: it finds the first active
// module willing to opine on the action, applies the resulting
// RuleDecision's cost and event fold, appends the produced events to
// the journal, and returns them. Action-processing failures become
// ActionRejected events; only infrastructure failures (journal I/O,
// codec) surface as errors.
func (w *World) Submit(action worldtypes.Action) ([]worldtypes.WorldEvent, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitLocked(action)
}

func (w *World) submitLocked(action worldtypes.Action) ([]worldtypes.WorldEvent, error) {
	var events []worldtypes.WorldEvent
	var verdict worldtypes.Verdict

	if isGovernanceAction(action.Payload) {
		evs, err := w.applyGovernance(action)
		if err != nil {
			return nil, err
		}
		events = evs
		verdict = worldtypes.VerdictAllow
	} else {
		evs, v, err := w.applySandbox(action)
		if err != nil {
			return nil, err
		}
		events = evs
		verdict = v
	}

	for _, evt := range events {
		if err := w.journal.Append(evt); err != nil {
			return nil, err
		}
	}
	if agent := w.state.Agents[action.AgentID]; agent != nil && verdict != worldtypes.VerdictDeny {
		agent.LastActive = w.state.Time
	}
	obsmetrics.ActionsProcessedTotal.WithLabelValues(string(w.state.WorldID), string(verdict)).Inc()
	w.notify(notify.KindWorldEvent, "action processed")
	return events, nil
}

func (w *World) reject(action worldtypes.Action, reason string) []worldtypes.WorldEvent {
	return []worldtypes.WorldEvent{
		w.state.NextEvent(action.AgentID, worldtypes.ActionRejectedEvent{ActionID: action.ID, Reason: reason}),
	}
}

func (w *World) applySandbox(action worldtypes.Action) ([]worldtypes.WorldEvent, worldtypes.Verdict, error) {
	var decision *worldtypes.RuleDecision
	var moduleEvents []worldtypes.EventPayload

	for _, m := range w.registry.Active() {
		in := sandbox.CallInput{WorldID: w.state.WorldID, Tick: w.state.Time, Action: &action, World: w.state}
		out, failure := m.Call(in)
		if failure != nil {
			return w.reject(action, failure.Reason), worldtypes.VerdictDeny, nil
		}
		if out != nil && out.Decision != nil {
			decision = out.Decision
			moduleEvents = out.NewEvents
			break
		}
	}

	if decision == nil {
		allow := worldtypes.Allow()
		decision = &allow
	}

	if decision.Verdict == worldtypes.VerdictDeny {
		return w.reject(action, decision.Reason), worldtypes.VerdictDeny, nil
	}

	agent := w.state.Agents[action.AgentID]
	for kind, delta := range decision.ResourceDelta {
		if delta >= 0 {
			continue
		}
		if agent == nil || agent.Resources[kind] < uint64(-delta) {
			return w.reject(action, fmt.Sprintf("InsufficientResource: %s", kind)), worldtypes.VerdictDeny, nil
		}
	}

	target := action.Payload
	if decision.Verdict == worldtypes.VerdictModify && decision.OverrideAction != nil {
		target = decision.OverrideAction
	}
	evt, rejectReason := w.foldActionPayload(action.AgentID, target, decision.ResourceDelta)
	if rejectReason != "" {
		return w.reject(action, rejectReason), worldtypes.VerdictDeny, nil
	}

	if agent != nil && len(decision.ResourceDelta) > 0 {
		agent.Resources.Apply(decision.ResourceDelta)
	}

	var events []worldtypes.WorldEvent
	if evt != nil {
		events = append(events, w.state.NextEvent(action.AgentID, evt))
	}
	for _, me := range moduleEvents {
		events = append(events, w.state.NextEvent(action.AgentID, me))
	}
	return events, decision.Verdict, nil
}

// foldActionPayload folds an admitted action payload into world-state
// mutation and the event describing it. It returns a non-empty reject
// reason instead of mutating when the payload fails validation.
// Action kinds whose state mutation is already performed by the owning
// builtin module's Call (see modules/body, modules/economy) fold to a
// nil event here.
func (w *World) foldActionPayload(agentID worldtypes.AgentID, payload worldtypes.ActionPayload, cost worldtypes.ResourceDelta) (worldtypes.EventPayload, string) {
	switch p := payload.(type) {
	case worldtypes.RegisterAgentAction:
		if _, exists := w.state.Agents[p.NewAgentID]; exists {
			return nil, fmt.Sprintf("agent %s already registered", p.NewAgentID)
		}
		pos := p.Position
		if p.LocationID != "" {
			loc := w.state.Locations[p.LocationID]
			if loc == nil {
				return nil, fmt.Sprintf("location %s not registered", p.LocationID)
			}
			pos = loc.Position
		}
		a := worldtypes.NewAgentState(p.NewAgentID, pos)
		a.LocationID = p.LocationID
		a.LastActive = w.state.Time
		w.state.Agents[p.NewAgentID] = a
		return worldtypes.AgentRegisteredEvent{NewAgentID: p.NewAgentID, LocationID: p.LocationID, Position: pos}, ""

	case worldtypes.RegisterLocationAction:
		if _, exists := w.state.Locations[p.LocationID]; exists {
			return nil, fmt.Sprintf("location %s already registered", p.LocationID)
		}
		w.state.Locations[p.LocationID] = worldtypes.NewLocationState(p.LocationID, p.Position)
		return worldtypes.LocationRegisteredEvent{LocationID: p.LocationID, Position: p.Position}, ""

	case worldtypes.RegisterPowerPlantAction:
		if _, exists := w.state.PowerPlants[p.PlantID]; exists {
			return nil, fmt.Sprintf("power plant %s already registered", p.PlantID)
		}
		if reason := w.checkPowerOwner(p.Owner); reason != "" {
			return nil, reason
		}
		w.state.PowerPlants[p.PlantID] = &worldtypes.PowerPlantState{
			ID: p.PlantID, Owner: p.Owner, Capacity: p.Capacity, RatePerTick: p.RatePerTick,
		}
		return worldtypes.PowerPlantRegisteredEvent{PlantID: p.PlantID, Owner: p.Owner, Capacity: p.Capacity, RatePerTick: p.RatePerTick}, ""

	case worldtypes.RegisterPowerStorageAction:
		if _, exists := w.state.PowerStores[p.StorageID]; exists {
			return nil, fmt.Sprintf("power storage %s already registered", p.StorageID)
		}
		if reason := w.checkPowerOwner(p.Owner); reason != "" {
			return nil, reason
		}
		w.state.PowerStores[p.StorageID] = &worldtypes.PowerStorageState{
			ID: p.StorageID, Owner: p.Owner, Capacity: p.Capacity, ChargeRate: p.ChargeRate, DischargeRate: p.DischargeRate,
		}
		return worldtypes.PowerStorageRegisteredEvent{StorageID: p.StorageID, Owner: p.Owner, Capacity: p.Capacity, ChargeRate: p.ChargeRate, DischargeRate: p.DischargeRate}, ""

	case worldtypes.MoveAction:
		agent := w.state.Agents[agentID]
		if agent == nil {
			return nil, fmt.Sprintf("agent %s not registered", agentID)
		}
		target := p.Target
		if p.ToLocation != "" {
			loc := w.state.Locations[p.ToLocation]
			if loc == nil {
				return nil, fmt.Sprintf("location %s not registered", p.ToLocation)
			}
			target = loc.Position
		}
		from := agent.Position
		distance := from.DistanceCm(target)
		agent.Position = target
		agent.LocationID = p.ToLocation
		var elecCost uint64
		if c := cost[worldtypes.ResourceElectricity]; c < 0 {
			elecCost = uint64(-c)
		}
		return worldtypes.AgentMovedEvent{From: from, To: target, ToLocation: p.ToLocation, DistanceCm: distance, ElectricityCost: elecCost}, ""

	case worldtypes.EmitObservationAction:
		return worldtypes.ObservationEmittedEvent{Origin: p.Origin, VisibleIDs: p.VisibleIDs}, ""

	case worldtypes.EmitResourceTransferAction:
		from := w.state.Agents[p.From]
		to := w.state.Agents[p.To]
		if from == nil || to == nil {
			return nil, "transfer endpoint not registered"
		}
		if from.Resources[p.Kind] < p.Amount {
			return nil, fmt.Sprintf("InsufficientResource: %s", p.Kind)
		}
		from.Resources.Apply(worldtypes.ResourceDelta{p.Kind: -int64(p.Amount)})
		to.Resources.Apply(worldtypes.ResourceDelta{p.Kind: int64(p.Amount)})
		return worldtypes.ResourceTransferredEvent{From: p.From, To: p.To, Kind: p.Kind, Amount: p.Amount}, ""

	default:
		return nil, ""
	}
}

func (w *World) checkPowerOwner(o worldtypes.PowerOwner) string {
	switch {
	case o.AgentID != "":
		if w.state.Agents[o.AgentID] == nil {
			return fmt.Sprintf("owner agent %s not registered", o.AgentID)
		}
	case o.LocationID != "":
		if w.state.Locations[o.LocationID] == nil {
			return fmt.Sprintf("owner location %s not registered", o.LocationID)
		}
	default:
		return "power facility owner missing"
	}
	return ""
}
