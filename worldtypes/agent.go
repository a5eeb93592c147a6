package worldtypes

// BodySlot is one occupied slot of an agent's body interface.
type BodySlot struct {
	Kind  string           `cbor:"kind"`
	Attrs map[string]int64 `cbor:"attrs"`
}

// BodyState tracks an agent's body-interface expansion, folded by the
// M1 body module (see modules/body).
type BodyState struct {
	Slots          []BodySlot `cbor:"slots"`
	ExpansionLevel uint32     `cbor:"expansion_level"`
}

// Clone returns a deep copy of the body state.
func (b BodyState) Clone() BodyState {
	out := BodyState{ExpansionLevel: b.ExpansionLevel}
	out.Slots = make([]BodySlot, len(b.Slots))
	for i, s := range b.Slots {
		attrs := make(map[string]int64, len(s.Attrs))
		for k, v := range s.Attrs {
			attrs[k] = v
		}
		out.Slots[i] = BodySlot{Kind: s.Kind, Attrs: attrs}
	}
	return out
}

// AgentState is everything the core kernel tracks about one agent.
// Builtin modules persist their own auxiliary state separately, keyed
// by module id, in WorldState.ModuleState.
type AgentState struct {
	ID         AgentID        `cbor:"id"`
	Position   Position       `cbor:"position"`
	LocationID LocationID     `cbor:"location_id,omitempty"`
	Resources  ResourceLedger `cbor:"resources"`
	Body       BodyState      `cbor:"body"`
	LastActive Tick           `cbor:"last_active"`
}

// Clone returns a deep copy of the agent state.
func (a AgentState) Clone() AgentState {
	return AgentState{
		ID:         a.ID,
		Position:   a.Position,
		LocationID: a.LocationID,
		Resources:  a.Resources.Clone(),
		Body:       a.Body.Clone(),
		LastActive: a.LastActive,
	}
}

// NewAgentState constructs a fresh agent at pos with an empty ledger.
func NewAgentState(id AgentID, pos Position) *AgentState {
	return &AgentState{ID: id, Position: pos, Resources: ResourceLedger{}}
}
