package economy

import (
	"fmt"
	"sort"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

const (
	M3RecipeModuleID  worldtypes.ModuleID = "m3.economy.recipe"
	M3FactoryModuleID worldtypes.ModuleID = "m3.economy.factory"
)

// RecipeModule evaluates ScheduleRecipeAction requests against a
// static recipe catalog, debiting inputs and crediting outputs
// directly against worldtypes.EconomyState; the power cost is returned
// as an electricity debit on the decision.
type RecipeModule struct {
	Catalog map[string]RecipeSpec
}

func NewRecipeModule(catalog map[string]RecipeSpec) *RecipeModule {
	return &RecipeModule{Catalog: catalog}
}

func (m *RecipeModule) ID() worldtypes.ModuleID { return M3RecipeModuleID }

func (m *RecipeModule) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	if in.Action == nil {
		return &sandbox.Output{}, nil
	}
	payload, ok := in.Action.Payload.(worldtypes.ScheduleRecipeAction)
	if !ok {
		return &sandbox.Output{}, nil
	}
	spec, ok := m.Catalog[payload.RecipeID]
	if !ok {
		d := worldtypes.Deny("unknown recipe")
		return &sandbox.Output{Decision: &d}, nil
	}
	factory, ok := in.World.Economy.Factories[payload.FactoryID]
	if !ok {
		d := worldtypes.Deny("unknown factory")
		return &sandbox.Output{Decision: &d}, nil
	}
	if factory.Tier < uint32(spec.MinFactoryTier) {
		d := worldtypes.Deny("factory tier below recipe minimum")
		return &sandbox.Output{Decision: &d}, nil
	}
	agent := in.World.Agents[in.Action.AgentID]
	if agent == nil {
		return nil, &sandbox.CallFailure{Reason: "recipe module: unknown agent"}
	}

	req := RecipeExecutionRequest{
		RecipeID:        payload.RecipeID,
		FactoryID:       payload.FactoryID,
		DesiredBatches:  uint32(payload.DesiredBatches),
		AvailableInputs: materialsOwnedBy(in.World, in.Action.AgentID),
		AvailablePower:  int64(agent.Resources[worldtypes.ResourceElectricity]),
	}
	plan := EvaluateRecipe(spec, req)
	if plan.IsRejected() {
		d := worldtypes.Deny(plan.RejectReason)
		return &sandbox.Output{Decision: &d}, nil
	}

	for _, s := range plan.Consume {
		debitMaterial(in.World, in.Action.AgentID, s.Kind, s.Amount)
	}
	for _, s := range plan.Produce {
		creditMaterial(in.World, in.Action.AgentID, s.Kind, s.Amount)
	}
	for _, s := range plan.Byproducts {
		creditMaterial(in.World, in.Action.AgentID, s.Kind, s.Amount)
	}
	runID := fmt.Sprintf("%s/%s/%d", payload.FactoryID, payload.RecipeID, in.Action.ID)
	in.World.Economy.Runs[runID] = worldtypes.RecipeRun{
		RunID: runID, RecipeID: payload.RecipeID, FactoryID: payload.FactoryID,
		Batches: uint64(plan.AcceptedBatches),
		CompletesAtTick: in.Tick + worldtypes.Tick(plan.DurationTicks),
		PowerPerCycle:   uint64(spec.PowerPerCycle),
	}

	decision := worldtypes.Allow()
	if plan.PowerRequired > 0 {
		decision = decision.WithCost(worldtypes.ResourceDelta{worldtypes.ResourceElectricity: -plan.PowerRequired})
	}
	produced := append(toWorldStacks(plan.Produce), toWorldStacks(plan.Byproducts)...)
	evt := worldtypes.RecipeScheduledEvent{
		RunID: runID, RecipeID: payload.RecipeID, FactoryID: payload.FactoryID,
		Batches: uint64(plan.AcceptedBatches), Consumed: toWorldStacks(plan.Consume), Produced: produced,
		PowerCost: uint64(plan.PowerRequired), DurationTicks: uint64(plan.DurationTicks),
		PowerPerCycle: uint64(spec.PowerPerCycle),
	}
	return &sandbox.Output{Decision: &decision, NewEvents: []worldtypes.EventPayload{evt}}, nil
}

// OnTick scans in-flight runs in sorted run-id order, folding a
// RecipeCompletedEvent for the first run whose completion tick has
// arrived.
func (m *RecipeModule) OnTick(world *worldtypes.WorldState) (worldtypes.EventPayload, error) {
	ids := make([]string, 0, len(world.Economy.Runs))
	for id := range world.Economy.Runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		run := world.Economy.Runs[id]
		if world.Time < run.CompletesAtTick {
			continue
		}
		delete(world.Economy.Runs, id)
		return worldtypes.RecipeCompletedEvent{RunID: run.RunID, RecipeID: run.RecipeID, FactoryID: run.FactoryID, Batches: run.Batches}, nil
	}
	return nil, nil
}

// FactoryModule evaluates BuildFactoryAction requests against a static
// factory catalog.
type FactoryModule struct {
	Catalog map[string]FactorySpec
}

func NewFactoryModule(catalog map[string]FactorySpec) *FactoryModule {
	return &FactoryModule{Catalog: catalog}
}

func (m *FactoryModule) ID() worldtypes.ModuleID { return M3FactoryModuleID }

func (m *FactoryModule) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	if in.Action == nil {
		return &sandbox.Output{}, nil
	}
	payload, ok := in.Action.Payload.(worldtypes.BuildFactoryAction)
	if !ok {
		return &sandbox.Output{}, nil
	}
	spec, ok := m.Catalog[payload.SpecID]
	if !ok {
		d := worldtypes.Deny("unknown factory spec")
		return &sandbox.Output{Decision: &d}, nil
	}
	agent := in.World.Agents[in.Action.AgentID]
	if agent == nil {
		return nil, &sandbox.CallFailure{Reason: "factory module: unknown agent"}
	}
	if _, exists := in.World.Economy.Factories[payload.FactoryID]; exists {
		d := worldtypes.Deny("factory id already in use")
		return &sandbox.Output{Decision: &d}, nil
	}

	decision := EvaluateFactoryBuild(spec, FactoryBuildRequest{
		FactoryID: payload.FactoryID, Builder: string(in.Action.AgentID),
		AvailableInputs: materialsOwnedBy(in.World, in.Action.AgentID),
		AvailablePower:  int64(agent.Resources[worldtypes.ResourceElectricity]),
	})
	if !decision.Accepted {
		d := worldtypes.Deny(decision.RejectReason)
		return &sandbox.Output{Decision: &d}, nil
	}

	for _, s := range decision.Consume {
		debitMaterial(in.World, in.Action.AgentID, s.Kind, s.Amount)
	}
	in.World.Economy.Factories[payload.FactoryID] = worldtypes.FactoryInstance{
		FactoryID: payload.FactoryID, SpecID: payload.SpecID, Owner: in.Action.AgentID,
		Tier: uint32(spec.Tier), PowerDraw: uint64(spec.BasePowerDraw),
	}

	allow := worldtypes.Allow()
	evt := worldtypes.FactoryBuiltEvent{
		FactoryID: payload.FactoryID, SpecID: payload.SpecID, Owner: in.Action.AgentID,
		Tier: uint32(spec.Tier), PowerDraw: uint64(spec.BasePowerDraw), Consumed: toWorldStacks(decision.Consume),
	}
	return &sandbox.Output{Decision: &allow, NewEvents: []worldtypes.EventPayload{evt}}, nil
}

// toWorldStacks converts plan-level signed stacks to the unsigned wire
// form events carry, dropping non-positive entries.
func toWorldStacks(stacks []MaterialStack) []worldtypes.MaterialStack {
	var out []worldtypes.MaterialStack
	for _, s := range stacks {
		if s.Amount > 0 {
			out = append(out, worldtypes.MaterialStack{Kind: s.Kind, Amount: uint64(s.Amount)})
		}
	}
	return out
}

func materialsOwnedBy(world *worldtypes.WorldState, owner worldtypes.AgentID) []MaterialStack {
	var out []MaterialStack
	for cell, amount := range world.Economy.Materials {
		if cell.Owner == owner && amount > 0 {
			out = append(out, MaterialStack{Kind: cell.Kind, Amount: int64(amount)})
		}
	}
	return out
}

func debitMaterial(world *worldtypes.WorldState, owner worldtypes.AgentID, kind string, amount int64) {
	if amount <= 0 {
		return
	}
	cell := worldtypes.LedgerCell{Owner: owner, Kind: kind}
	world.Economy.Materials[cell] = worldtypes.SatSubU64(world.Economy.Materials[cell], uint64(amount))
}

func creditMaterial(world *worldtypes.WorldState, owner worldtypes.AgentID, kind string, amount int64) {
	if amount <= 0 {
		return
	}
	cell := worldtypes.LedgerCell{Owner: owner, Kind: kind}
	world.Economy.Materials[cell] = worldtypes.SatAddU64(world.Economy.Materials[cell], uint64(amount))
}
