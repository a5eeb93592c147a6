package kernel

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// FoldEvent applies one journaled event to state, the replay
// counterpart of the action-side folds in dispatch.go and the builtin
// modules. Replaying a snapshot's journal tail through FoldEvent must
// reproduce the live world exactly, so every event carries the full
// delta it caused and the fold never re-evaluates rules or catalogs.
func FoldEvent(state *worldtypes.WorldState, evt worldtypes.WorldEvent) error {
	state.Time = evt.Tick
	if evt.ID >= state.NextEventID {
		state.NextEventID = evt.ID + 1
	}

	switch p := evt.Payload.(type) {
	case worldtypes.AgentRegisteredEvent:
		a := worldtypes.NewAgentState(p.NewAgentID, p.Position)
		a.LocationID = p.LocationID
		a.LastActive = evt.Tick
		state.Agents[p.NewAgentID] = a

	case worldtypes.LocationRegisteredEvent:
		state.Locations[p.LocationID] = worldtypes.NewLocationState(p.LocationID, p.Position)

	case worldtypes.PowerPlantRegisteredEvent:
		state.PowerPlants[p.PlantID] = &worldtypes.PowerPlantState{
			ID: p.PlantID, Owner: p.Owner, Capacity: p.Capacity, RatePerTick: p.RatePerTick,
		}

	case worldtypes.PowerStorageRegisteredEvent:
		state.PowerStores[p.StorageID] = &worldtypes.PowerStorageState{
			ID: p.StorageID, Owner: p.Owner, Capacity: p.Capacity, ChargeRate: p.ChargeRate, DischargeRate: p.DischargeRate,
		}

	case worldtypes.AgentMovedEvent:
		agent := state.Agents[evt.AgentID]
		if agent == nil {
			return werr.New(werr.KindStateMismatch, "replay: moved agent %s not in state", evt.AgentID)
		}
		agent.Position = p.To
		agent.LocationID = p.ToLocation
		if p.ElectricityCost > 0 {
			agent.Resources.Apply(worldtypes.ResourceDelta{worldtypes.ResourceElectricity: -int64(p.ElectricityCost)})
		}
		agent.LastActive = evt.Tick

	case worldtypes.ResourceTransferredEvent:
		from := state.Agents[p.From]
		to := state.Agents[p.To]
		if from == nil || to == nil {
			return werr.New(werr.KindStateMismatch, "replay: transfer endpoint missing")
		}
		from.Resources.Apply(worldtypes.ResourceDelta{p.Kind: -int64(p.Amount)})
		to.Resources.Apply(worldtypes.ResourceDelta{p.Kind: int64(p.Amount)})
		if a := state.Agents[evt.AgentID]; a != nil {
			a.LastActive = evt.Tick
		}

	case worldtypes.ObservationEmittedEvent:
		if a := state.Agents[evt.AgentID]; a != nil {
			a.LastActive = evt.Tick
		}

	case worldtypes.BodyAttributesRecordedEvent:
		agent := state.Agents[evt.AgentID]
		if agent == nil {
			return werr.New(werr.KindStateMismatch, "replay: body agent %s not in state", evt.AgentID)
		}
		slot := findOrAppendBodySlot(agent, p.SlotKind)
		for k, delta := range p.Delta {
			sum := slot.Attrs[k] + delta
			if sum < 0 {
				sum = 0
			}
			slot.Attrs[k] = sum
		}
		agent.LastActive = evt.Tick

	case worldtypes.BodyInterfaceExpandedEvent:
		agent := state.Agents[evt.AgentID]
		if agent == nil {
			return werr.New(werr.KindStateMismatch, "replay: body agent %s not in state", evt.AgentID)
		}
		if p.CargoKind != "" {
			if cargo := findBodySlot(agent, "cargo"); cargo != nil {
				held := cargo.Attrs[p.CargoKind]
				if held < int64(p.CargoAmount) {
					held = int64(p.CargoAmount)
				}
				cargo.Attrs[p.CargoKind] = held - int64(p.CargoAmount)
			}
		}
		agent.Body.Slots = append(agent.Body.Slots, worldtypes.BodySlot{Kind: p.NewSlotKind, Attrs: map[string]int64{}})
		agent.Body.ExpansionLevel = p.ExpansionLevel
		agent.LastActive = evt.Tick

	case worldtypes.MaterialTransitedEvent:
		state.Economy.MoveMaterial(p.From, p.To, p.Kind, p.Amount)

	case worldtypes.FactoryBuiltEvent:
		for _, s := range p.Consumed {
			cell := worldtypes.LedgerCell{Owner: p.Owner, Kind: s.Kind}
			state.Economy.Materials[cell] = worldtypes.SatSubU64(state.Economy.Materials[cell], s.Amount)
		}
		state.Economy.Factories[p.FactoryID] = worldtypes.FactoryInstance{
			FactoryID: p.FactoryID, SpecID: p.SpecID, Owner: p.Owner, Tier: p.Tier, PowerDraw: p.PowerDraw,
		}

	case worldtypes.RecipeScheduledEvent:
		owner := evt.AgentID
		for _, s := range p.Consumed {
			cell := worldtypes.LedgerCell{Owner: owner, Kind: s.Kind}
			state.Economy.Materials[cell] = worldtypes.SatSubU64(state.Economy.Materials[cell], s.Amount)
		}
		for _, s := range p.Produced {
			cell := worldtypes.LedgerCell{Owner: owner, Kind: s.Kind}
			state.Economy.Materials[cell] = worldtypes.SatAddU64(state.Economy.Materials[cell], s.Amount)
		}
		if agent := state.Agents[owner]; agent != nil && p.PowerCost > 0 {
			agent.Resources.Apply(worldtypes.ResourceDelta{worldtypes.ResourceElectricity: -int64(p.PowerCost)})
		}
		state.Economy.Runs[p.RunID] = worldtypes.RecipeRun{
			RunID: p.RunID, RecipeID: p.RecipeID, FactoryID: p.FactoryID,
			Batches: p.Batches,
			CompletesAtTick: evt.Tick + worldtypes.Tick(p.DurationTicks),
			PowerPerCycle:   p.PowerPerCycle,
		}

	case worldtypes.RecipeCompletedEvent:
		delete(state.Economy.Runs, p.RunID)

	case worldtypes.PowerHarvestedEvent:
		for id, level := range p.Levels {
			if agent := state.Agents[id]; agent != nil {
				agent.Resources[worldtypes.ResourceElectricity] = level
			}
		}

	case worldtypes.ManifestPatchProposedEvent:
		state.Governance.PendingPatches[p.PatchID] = p.BaseHash

	case worldtypes.ManifestPatchShadowedEvent:
		state.Governance.ShadowPatches[p.PatchID] = state.Governance.PendingPatches[p.PatchID]

	case worldtypes.ManifestPatchApprovedEvent:
		state.Governance.ApprovedPatches[p.PatchID] = state.Governance.PendingPatches[p.PatchID]

	case worldtypes.ManifestPatchAppliedEvent:
		delete(state.Governance.PendingPatches, p.PatchID)
		delete(state.Governance.ShadowPatches, p.PatchID)
		delete(state.Governance.ApprovedPatches, p.PatchID)

	case worldtypes.ModuleRegisteredEvent, worldtypes.ModuleActivatedEvent, worldtypes.ModuleDeactivatedEvent:
		// Registry membership is rebuilt by the kernel from the
		// manifest on restore, not from state.

	case worldtypes.CrisisResolvedEvent:
		if g, ok := state.Governance.Grants[p.GrantID]; ok {
			creditGrant(state, g)
			g.Active = false
			state.Governance.Grants[p.GrantID] = g
		}

	case worldtypes.EconomicContractSettledEvent:
		if g, ok := state.Governance.Grants[p.GrantID]; ok {
			creditGrant(state, g)
			g.Active = false
			state.Governance.Grants[p.GrantID] = g
		}

	case worldtypes.EconomicContractExpiredEvent:
		if g, ok := state.Governance.Grants[p.GrantID]; ok {
			g.Active = false
			state.Governance.Grants[p.GrantID] = g
		}

	case worldtypes.ActionRejectedEvent:
		// Rejections record the refusal; they never mutate state.

	default:
		return werr.New(werr.KindValidation, "replay: unknown event payload %T", evt.Payload)
	}
	return nil
}

func creditGrant(state *worldtypes.WorldState, g worldtypes.MetaGrant) {
	if agent := state.Agents[g.Recipient]; agent != nil {
		agent.Resources.Apply(worldtypes.ResourceDelta{worldtypes.ResourceCargo: int64(g.Amount)})
	}
}

func findBodySlot(agent *worldtypes.AgentState, kind string) *worldtypes.BodySlot {
	for i := range agent.Body.Slots {
		if agent.Body.Slots[i].Kind == kind {
			return &agent.Body.Slots[i]
		}
	}
	return nil
}

func findOrAppendBodySlot(agent *worldtypes.AgentState, kind string) *worldtypes.BodySlot {
	if s := findBodySlot(agent, kind); s != nil {
		return s
	}
	agent.Body.Slots = append(agent.Body.Slots, worldtypes.BodySlot{Kind: kind, Attrs: map[string]int64{}})
	return &agent.Body.Slots[len(agent.Body.Slots)-1]
}
