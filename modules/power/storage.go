package power

import (
	"math"
	"sort"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

const (
	M1StoragePowerModuleID worldtypes.ModuleID = "m1.power.storage"

	StorageCapacity    uint64 = 12
	StorageInitialLevel uint64 = 6
	StorageMoveCostPerKM int64 = 3
)

// StorageModule caps each agent's electricity balance at StorageCapacity
// and charges a steeper per-km movement cost than the plain move rule,
// modelling the extra mass of a power-storage body expansion.
type StorageModule struct {
	state *State
}

func NewStorageModule() *StorageModule {
	return &StorageModule{state: NewState()}
}

func (m *StorageModule) ID() worldtypes.ModuleID { return M1StoragePowerModuleID }

func (m *StorageModule) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	if in.Action == nil {
		return &sandbox.Output{}, nil
	}
	move, ok := in.Action.Payload.(worldtypes.MoveAction)
	if !ok {
		return &sandbox.Output{}, nil
	}
	agent := in.World.Agents[in.Action.AgentID]
	if agent == nil {
		return nil, &sandbox.CallFailure{Reason: "storage rule: unknown agent"}
	}
	distanceCm := agent.Position.DistanceCm(move.Target)
	if distanceCm == 0 {
		d := worldtypes.Deny("move target equals current position")
		return &sandbox.Output{Decision: &d}, nil
	}
	cost := storageMovementCost(distanceCm)
	decision := worldtypes.Allow()
	if cost > 0 {
		decision = decision.WithCost(worldtypes.ResourceDelta{worldtypes.ResourceElectricity: -cost})
	}
	return &sandbox.Output{Decision: &decision}, nil
}

// OnTick clamps every agent's electricity balance to the storage
// capacity, crediting an agent to StorageInitialLevel the first time
// the module observes it if its balance is zero. When any balance changed it folds a
// PowerHarvestedEvent carrying the resulting absolute levels, so
// replaying the journal reproduces the clamp.
func (m *StorageModule) OnTick(world *worldtypes.WorldState) (worldtypes.EventPayload, error) {
	ids := make([]worldtypes.AgentID, 0, len(world.Agents))
	for id := range world.Agents {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	changed := false
	levels := make(map[worldtypes.AgentID]uint64, len(ids))
	for _, id := range ids {
		agent := world.Agents[id]
		capacity, tracked := m.ensureTracked(id)
		before := agent.Resources[worldtypes.ResourceElectricity]
		if !tracked && before == 0 {
			agent.Resources[worldtypes.ResourceElectricity] = StorageInitialLevel
		}
		if agent.Resources[worldtypes.ResourceElectricity] > capacity {
			agent.Resources[worldtypes.ResourceElectricity] = capacity
		}
		if agent.Resources[worldtypes.ResourceElectricity] != before {
			changed = true
		}
		levels[id] = agent.Resources[worldtypes.ResourceElectricity]
	}
	if !changed {
		return nil, nil
	}
	return worldtypes.PowerHarvestedEvent{Levels: levels}, nil
}

func (m *StorageModule) ensureTracked(id worldtypes.AgentID) (uint64, bool) {
	if existing, ok := m.state.Agents[string(id)]; ok {
		return existing.StorageCapacity, true
	}
	m.state.Agents[string(id)] = AgentPowerState{StorageCapacity: StorageCapacity}
	return StorageCapacity, false
}

func storageMovementCost(distanceCm int64) int64 {
	km := distanceCm / 100_000
	if km == 0 {
		return 0
	}
	if km > math.MaxInt64/StorageMoveCostPerKM {
		return math.MaxInt64
	}
	return km * StorageMoveCostPerKM
}
