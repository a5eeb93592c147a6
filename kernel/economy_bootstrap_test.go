package kernel

import (
	"testing"

	"github.com/hashicorp/raft"

	"github.com/eng-cc/agent-world-sub008/manifest"
	"github.com/eng-cc/agent-world-sub008/modules/economy"
	"github.com/eng-cc/agent-world-sub008/modules/rule"
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// newEconomyTestWorld wires the M3 recipe/factory modules on top of the
// M1 move module, giving alice enough steel/gear/wire to
// build a factory and schedule a recipe run through it.
func newEconomyTestWorld(t *testing.T) *World {
	t.Helper()

	factoryCatalog := map[string]economy.FactorySpec{
		"spec.assembly": {
			FactoryID:     "spec.assembly",
			Tier:          1,
			BuildCost:     []economy.MaterialStack{{Kind: "steel", Amount: 20}},
			BasePowerDraw: 3,
		},
	}
	recipeCatalog := map[string]economy.RecipeSpec{
		"recipe.motor.mk1": {
			RecipeID:       "recipe.motor.mk1",
			CycleTicks:     2,
			PowerPerCycle:  5,
			MinFactoryTier: 1,
			Inputs:         []economy.MaterialStack{{Kind: "gear", Amount: 2}, {Kind: "wire", Amount: 4}},
			Outputs:        []economy.MaterialStack{{Kind: "motor", Amount: 1}},
		},
	}

	registry := sandbox.NewRegistry()
	registry.Register(rule.NewMoveModule(), sandbox.Limits{})
	registry.Register(economy.NewFactoryModule(factoryCatalog), sandbox.Limits{})
	registry.Register(economy.NewRecipeModule(recipeCatalog), sandbox.Limits{})
	for _, id := range []worldtypes.ModuleID{rule.M1MoveModuleID, economy.M3FactoryModuleID, economy.M3RecipeModuleID} {
		if err := registry.Activate(id); err != nil {
			t.Fatalf("activate %s: %v", id, err)
		}
	}

	journal, err := NewJournal(raft.NewInmemStore())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	m, err := manifest.NewManifest(manifest.Value{Kind: manifest.KindObject})
	if err != nil {
		t.Fatalf("new manifest: %v", err)
	}

	w := NewWorld(Config{
		WorldID:         worldtypes.WorldID("econ-test-world"),
		Registry:        registry,
		Journal:         journal,
		InitialManifest: m,
	})
	w.AddAgent("alice", worldtypes.Position{})
	alice := w.State().Agents["alice"]
	alice.Resources[worldtypes.ResourceElectricity] = 1000
	cellSteel := worldtypes.LedgerCell{Owner: "alice", Kind: "steel"}
	cellGear := worldtypes.LedgerCell{Owner: "alice", Kind: "gear"}
	cellWire := worldtypes.LedgerCell{Owner: "alice", Kind: "wire"}
	w.State().Economy.Materials[cellSteel] = 40
	w.State().Economy.Materials[cellGear] = 10
	w.State().Economy.Materials[cellWire] = 10
	return w
}

func TestSubmitBuildFactoryThenScheduleRecipeDebitsAndRunsToCompletion(t *testing.T) {
	w := newEconomyTestWorld(t)

	buildEvents, err := w.Submit(worldtypes.Action{
		ID: 1, AgentID: "alice",
		Payload: worldtypes.BuildFactoryAction{FactoryID: "f1", SpecID: "spec.assembly", Tier: 1},
	})
	if err != nil {
		t.Fatalf("build factory: %v", err)
	}
	if len(buildEvents) != 1 {
		t.Fatalf("want 1 event, got %d", len(buildEvents))
	}
	if _, ok := buildEvents[0].Payload.(worldtypes.FactoryBuiltEvent); !ok {
		t.Fatalf("want FactoryBuiltEvent, got %T", buildEvents[0].Payload)
	}
	if got := w.State().Economy.Materials[worldtypes.LedgerCell{Owner: "alice", Kind: "steel"}]; got != 20 {
		t.Fatalf("want 20 steel remaining after build, got %d", got)
	}

	scheduleEvents, err := w.Submit(worldtypes.Action{
		ID: 2, AgentID: "alice",
		Payload: worldtypes.ScheduleRecipeAction{RecipeID: "recipe.motor.mk1", FactoryID: "f1", DesiredBatches: 2},
	})
	if err != nil {
		t.Fatalf("schedule recipe: %v", err)
	}
	scheduled, ok := scheduleEvents[0].Payload.(worldtypes.RecipeScheduledEvent)
	if !ok {
		t.Fatalf("want RecipeScheduledEvent, got %T", scheduleEvents[0].Payload)
	}
	if scheduled.Batches != 2 {
		t.Fatalf("want 2 accepted batches, got %d", scheduled.Batches)
	}
	if got := w.State().Economy.Materials[worldtypes.LedgerCell{Owner: "alice", Kind: "gear"}]; got != 6 {
		t.Fatalf("want 6 gear remaining after scheduling, got %d", got)
	}

	var sawCompleted bool
	for i := 0; i < 4; i++ {
		events, err := w.Advance()
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		for _, evt := range events {
			if _, ok := evt.Payload.(worldtypes.RecipeCompletedEvent); ok {
				sawCompleted = true
			}
		}
		if sawCompleted {
			break
		}
	}
	if !sawCompleted {
		t.Fatalf("want RecipeCompletedEvent within 4 ticks")
	}
	if _, stillRunning := w.State().Economy.Runs[scheduled.RunID]; stillRunning {
		t.Fatalf("want run %s cleared on completion", scheduled.RunID)
	}
}

func TestSubmitBuildFactoryRejectsWhenMaterialsInsufficient(t *testing.T) {
	w := newEconomyTestWorld(t)
	w.State().Economy.Materials[worldtypes.LedgerCell{Owner: "alice", Kind: "steel"}] = 1

	events, err := w.Submit(worldtypes.Action{
		ID: 1, AgentID: "alice",
		Payload: worldtypes.BuildFactoryAction{FactoryID: "f1", SpecID: "spec.assembly", Tier: 1},
	})
	if err != nil {
		t.Fatalf("build factory: %v", err)
	}
	if _, ok := events[0].Payload.(worldtypes.ActionRejectedEvent); !ok {
		t.Fatalf("want ActionRejectedEvent, got %T", events[0].Payload)
	}
	if _, exists := w.State().Economy.Factories["f1"]; exists {
		t.Fatalf("want no factory built on rejection")
	}
}
