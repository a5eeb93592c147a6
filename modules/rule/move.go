// Package rule implements the core rule modules: move, visibility,
// and transfer admission.
package rule

import (
	"math"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// DefaultMoveCostPerKM is the electricity cost charged per kilometer
// moved, absent an explicit per-module override.
const DefaultMoveCostPerKM = 2

const M1MoveModuleID worldtypes.ModuleID = "m1.rule.move"

// MoveModule validates and costs MoveAction requests.
type MoveModule struct {
	PerKMCost int64
}

func NewMoveModule() *MoveModule { return &MoveModule{PerKMCost: DefaultMoveCostPerKM} }

func (m *MoveModule) ID() worldtypes.ModuleID { return M1MoveModuleID }

func (m *MoveModule) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	if in.Action == nil {
		return &sandbox.Output{}, nil
	}
	move, ok := in.Action.Payload.(worldtypes.MoveAction)
	if !ok {
		return &sandbox.Output{}, nil
	}
	agent := in.World.Agents[in.Action.AgentID]
	if agent == nil {
		return nil, &sandbox.CallFailure{Reason: "move rule: unknown agent"}
	}
	target := move.Target
	if move.ToLocation != "" {
		loc := in.World.Locations[move.ToLocation]
		if loc == nil {
			d := worldtypes.Deny("move target location not registered")
			return &sandbox.Output{Decision: &d}, nil
		}
		target = loc.Position
	}
	distanceCm := agent.Position.DistanceCm(target)
	if distanceCm == 0 {
		d := worldtypes.Deny("move target equals current position")
		return &sandbox.Output{Decision: &d}, nil
	}

	cost := movementCost(m.PerKMCost, distanceCm)
	decision := worldtypes.Allow()
	if cost > 0 {
		decision = decision.WithCost(worldtypes.ResourceDelta{worldtypes.ResourceElectricity: -cost})
	}
	return &sandbox.Output{Decision: &decision}, nil
}

// cmPerKM converts centimeter distances into the kilometer unit costs
// are quoted in.
const cmPerKM = 100_000

// movementCost converts a centimeter distance into an electricity
// cost, rounding partial kilometers up and saturating against int64
// overflow for extreme distances.
func movementCost(perKMCost, distanceCm int64) int64 {
	if perKMCost <= 0 || distanceCm <= 0 {
		return 0
	}
	km := (distanceCm + cmPerKM - 1) / cmPerKM
	if km > math.MaxInt64/perKMCost {
		return math.MaxInt64
	}
	return km * perKMCost
}
