package power

import (
	"sort"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

const (
	M1RadiationPowerModuleID worldtypes.ModuleID = "m1.power.radiation"

	HarvestBasePerTick       int64 = 1
	HarvestDistanceStepCm    int64 = 800_000
	HarvestDistanceBonusCap  int64 = 1
)

// RadiationModule harvests electricity every tick for every agent: a
// flat base plus one bonus unit per HarvestDistanceStepCm of distance
// from the world origin (the radiation source), capped at
// HarvestDistanceBonusCap. It never handles a submitted action; it only runs as a
// TickHook.
type RadiationModule struct{}

func NewRadiationModule() *RadiationModule { return &RadiationModule{} }

func (m *RadiationModule) ID() worldtypes.ModuleID { return M1RadiationPowerModuleID }

func (m *RadiationModule) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	return &sandbox.Output{}, nil
}

func (m *RadiationModule) OnTick(world *worldtypes.WorldState) (worldtypes.EventPayload, error) {
	if len(world.Agents) == 0 {
		return nil, nil
	}
	levels := make(map[worldtypes.AgentID]uint64, len(world.Agents))
	ids := make([]worldtypes.AgentID, 0, len(world.Agents))
	for id := range world.Agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		agent := world.Agents[id]
		harvested := radiationHarvestPerTick(agent.Position.DistanceCm(worldtypes.Position{}))
		agent.Resources.Apply(worldtypes.ResourceDelta{worldtypes.ResourceElectricity: harvested})
		levels[id] = agent.Resources[worldtypes.ResourceElectricity]
	}
	return worldtypes.PowerHarvestedEvent{Levels: levels}, nil
}

// radiationHarvestPerTick is the per-tick electricity yield for an
// agent at distanceCm from the radiation source: a flat base plus a
// distance bonus capped at HarvestDistanceBonusCap.
func radiationHarvestPerTick(distanceCm int64) int64 {
	bonus := distanceCm / HarvestDistanceStepCm
	if bonus > HarvestDistanceBonusCap {
		bonus = HarvestDistanceBonusCap
	}
	return HarvestBasePerTick + bonus
}
