package worldtypes

// WorldState is the full in-memory state folded by the kernel: agents,
// module-owned auxiliary state blobs, and the economy and governance
// ledgers maintained by their event families.
type WorldState struct {
	WorldID      WorldID
	Time         Tick
	NextEventID  EventID
	NextActionID ActionID
	Agents       map[AgentID]*AgentState
	Locations    map[LocationID]*LocationState
	PowerPlants  map[string]*PowerPlantState
	PowerStores  map[string]*PowerStorageState
	ModuleState  map[ModuleID][]byte
	Economy      EconomyState
	Governance   GovernanceMetaState
}

// NewWorldState returns an empty world ready to accept actions at
// tick zero.
func NewWorldState(id WorldID) *WorldState {
	return &WorldState{
		WorldID:      id,
		NextActionID: 1,
		Agents:       make(map[AgentID]*AgentState),
		Locations:    make(map[LocationID]*LocationState),
		PowerPlants:  make(map[string]*PowerPlantState),
		PowerStores:  make(map[string]*PowerStorageState),
		ModuleState:  make(map[ModuleID][]byte),
		Economy:      NewEconomyState(),
		Governance:   NewGovernanceMetaState(),
	}
}

// Clone returns a deep copy of the world state, used by the kernel to
// snapshot without aliasing live mutation targets.
func (w *WorldState) Clone() *WorldState {
	out := &WorldState{
		WorldID:      w.WorldID,
		Time:         w.Time,
		NextEventID:  w.NextEventID,
		NextActionID: w.NextActionID,
		Agents:       make(map[AgentID]*AgentState, len(w.Agents)),
		Locations:    make(map[LocationID]*LocationState, len(w.Locations)),
		PowerPlants:  make(map[string]*PowerPlantState, len(w.PowerPlants)),
		PowerStores:  make(map[string]*PowerStorageState, len(w.PowerStores)),
		ModuleState:  make(map[ModuleID][]byte, len(w.ModuleState)),
		Economy:      w.Economy.Clone(),
		Governance:   w.Governance.Clone(),
	}
	for id, a := range w.Agents {
		clone := a.Clone()
		out.Agents[id] = &clone
	}
	for id, l := range w.Locations {
		clone := l.Clone()
		out.Locations[id] = &clone
	}
	for id, p := range w.PowerPlants {
		clone := p.Clone()
		out.PowerPlants[id] = &clone
	}
	for id, p := range w.PowerStores {
		clone := p.Clone()
		out.PowerStores[id] = &clone
	}
	for id, b := range w.ModuleState {
		cp := make([]byte, len(b))
		copy(cp, b)
		out.ModuleState[id] = cp
	}
	return out
}

// NextEvent allocates the next monotone EventID at the current tick.
func (w *WorldState) NextEvent(agent AgentID, payload EventPayload) WorldEvent {
	id := w.NextEventID
	w.NextEventID++
	return WorldEvent{ID: id, Tick: w.Time, AgentID: agent, Payload: payload}
}
