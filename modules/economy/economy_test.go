package economy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

func TestEvaluateRecipeScalesToAvailableInputs(t *testing.T) {
	spec := RecipeSpec{
		RecipeID: "recipe.motor.mk1", CycleTicks: 12, PowerPerCycle: 30,
		Inputs:  []MaterialStack{{Kind: "gear", Amount: 2}, {Kind: "wire", Amount: 4}},
		Outputs: []MaterialStack{{Kind: "motor", Amount: 1}},
	}
	req := RecipeExecutionRequest{
		DesiredBatches:  5,
		AvailableInputs: []MaterialStack{{Kind: "gear", Amount: 6}, {Kind: "wire", Amount: 20}},
		AvailablePower:  90,
	}
	plan := EvaluateRecipe(spec, req)
	require.False(t, plan.IsRejected())
	require.Equal(t, uint32(3), plan.AcceptedBatches)
	require.Equal(t, int64(90), plan.PowerRequired)
}

func TestEvaluateRecipeRejectsWhenNoBatchFits(t *testing.T) {
	spec := RecipeSpec{RecipeID: "r1", Inputs: []MaterialStack{{Kind: "gear", Amount: 10}}}
	req := RecipeExecutionRequest{DesiredBatches: 1, AvailableInputs: []MaterialStack{{Kind: "gear", Amount: 1}}}
	plan := EvaluateRecipe(spec, req)
	require.True(t, plan.IsRejected())
}

func TestEvaluateProductRejectsOverLimit(t *testing.T) {
	spec := ProductSpec{ProductID: "motor_mk1", StackLimit: 10}
	decision := EvaluateProduct(spec, ProductValidationRequest{ProductID: "motor_mk1", Stack: MaterialStack{Amount: 20}})
	require.False(t, decision.Accepted)
}

func TestEvaluateFactoryBuildChecksCostAndPower(t *testing.T) {
	spec := FactorySpec{FactoryID: "f1", BuildCost: []MaterialStack{{Kind: "steel", Amount: 20}}, BasePowerDraw: 5}
	accepted := EvaluateFactoryBuild(spec, FactoryBuildRequest{AvailableInputs: []MaterialStack{{Kind: "steel", Amount: 20}}, AvailablePower: 10})
	require.True(t, accepted.Accepted)

	rejected := EvaluateFactoryBuild(spec, FactoryBuildRequest{AvailableInputs: []MaterialStack{{Kind: "steel", Amount: 1}}, AvailablePower: 10})
	require.False(t, rejected.Accepted)
}

func TestRecipeModuleCallSchedulesAndDebits(t *testing.T) {
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})
	w.Agents["a1"].Resources[worldtypes.ResourceElectricity] = 100
	w.Economy.Factories["f1"] = worldtypes.FactoryInstance{FactoryID: "f1", Tier: 2}
	w.Economy.Materials[worldtypes.LedgerCell{Owner: "a1", Kind: "gear"}] = 10
	w.Economy.Materials[worldtypes.LedgerCell{Owner: "a1", Kind: "wire"}] = 10

	catalog := map[string]RecipeSpec{
		"recipe.motor.mk1": {
			RecipeID: "recipe.motor.mk1", CycleTicks: 4, PowerPerCycle: 5, MinFactoryTier: 1,
			Inputs:  []MaterialStack{{Kind: "gear", Amount: 2}, {Kind: "wire", Amount: 4}},
			Outputs: []MaterialStack{{Kind: "motor", Amount: 1}},
		},
	}
	m := NewRecipeModule(catalog)
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		ID: 1, AgentID: "a1",
		Payload: worldtypes.ScheduleRecipeAction{RecipeID: "recipe.motor.mk1", FactoryID: "f1", DesiredBatches: 2},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictAllow, out.Decision.Verdict)
	require.Equal(t, int64(-10), out.Decision.ResourceDelta[worldtypes.ResourceElectricity])
	require.Equal(t, uint64(6), w.Economy.Materials[worldtypes.LedgerCell{Owner: "a1", Kind: "gear"}])
	require.Equal(t, uint64(2), w.Economy.Materials[worldtypes.LedgerCell{Owner: "a1", Kind: "motor"}])
	require.Len(t, w.Economy.Runs, 1)
}

func TestFactoryModuleCallBuildsAndDebits(t *testing.T) {
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})
	w.Agents["a1"].Resources[worldtypes.ResourceElectricity] = 100
	w.Economy.Materials[worldtypes.LedgerCell{Owner: "a1", Kind: "steel"}] = 50

	catalog := map[string]FactorySpec{
		"spec.assembly": {FactoryID: "spec.assembly", Tier: 2, BuildCost: []MaterialStack{{Kind: "steel", Amount: 20}}, BasePowerDraw: 3, BuildTimeTicks: 10},
	}
	m := NewFactoryModule(catalog)
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		ID: 1, AgentID: "a1",
		Payload: worldtypes.BuildFactoryAction{FactoryID: "f1", SpecID: "spec.assembly", Tier: 2},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictAllow, out.Decision.Verdict)
	require.Equal(t, uint64(30), w.Economy.Materials[worldtypes.LedgerCell{Owner: "a1", Kind: "steel"}])
	require.Contains(t, w.Economy.Factories, "f1")
}
