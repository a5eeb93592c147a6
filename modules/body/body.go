// Package body implements the body module: recording body-slot
// attributes and expanding an agent's body interface by consuming
// held cargo.
package body

import (
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

const M1BodyModuleID worldtypes.ModuleID = "m1.body"

// ReasonInsufficientResource is the Deny reason reported when an
// ExpandBodyInterfaceAction names cargo the agent does not hold enough
// of. The kernel folds a Deny decision with this reason into an
// ActionRejectedEvent.
const ReasonInsufficientResource = "insufficient_resource"

// cargoSlotKind is the body-slot kind whose Attrs hold named cargo
// quantities, the only place ExpandBodyInterface can draw from.
const cargoSlotKind = "cargo"

type Module struct{}

func NewModule() *Module { return &Module{} }

func (m *Module) ID() worldtypes.ModuleID { return M1BodyModuleID }

func (m *Module) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	if in.Action == nil {
		return &sandbox.Output{}, nil
	}
	switch payload := in.Action.Payload.(type) {
	case worldtypes.RecordBodyAttributesAction:
		return m.recordBodyAttributes(in, payload)
	case worldtypes.ExpandBodyInterfaceAction:
		return m.expandBodyInterface(in, payload)
	default:
		return &sandbox.Output{}, nil
	}
}

func (m *Module) recordBodyAttributes(in sandbox.CallInput, payload worldtypes.RecordBodyAttributesAction) (*sandbox.Output, *sandbox.CallFailure) {
	agent := in.World.Agents[in.Action.AgentID]
	if agent == nil {
		return nil, &sandbox.CallFailure{Reason: "body module: unknown agent"}
	}
	slot := findOrAppendSlot(agent, payload.SlotKind)
	for k, delta := range payload.Delta {
		slot.Attrs[k] = satAddInt64Floor0(slot.Attrs[k], delta)
	}
	decision := worldtypes.Allow()
	evt := worldtypes.BodyAttributesRecordedEvent{SlotKind: payload.SlotKind, Delta: payload.Delta}
	return &sandbox.Output{Decision: &decision, NewEvents: []worldtypes.EventPayload{evt}}, nil
}

func (m *Module) expandBodyInterface(in sandbox.CallInput, payload worldtypes.ExpandBodyInterfaceAction) (*sandbox.Output, *sandbox.CallFailure) {
	agent := in.World.Agents[in.Action.AgentID]
	if agent == nil {
		return nil, &sandbox.CallFailure{Reason: "body module: unknown agent"}
	}
	cargo := findSlot(agent, cargoSlotKind)
	var held uint64
	if cargo != nil {
		if v, ok := cargo.Attrs[payload.ConsumesCargoKind]; ok && v > 0 {
			held = uint64(v)
		}
	}
	if held < payload.ConsumesAmount {
		d := worldtypes.Deny(ReasonInsufficientResource)
		return &sandbox.Output{Decision: &d}, nil
	}

	cargo.Attrs[payload.ConsumesCargoKind] = int64(held - payload.ConsumesAmount)
	agent.Body.Slots = append(agent.Body.Slots, worldtypes.BodySlot{
		Kind:  payload.NewSlotKind,
		Attrs: map[string]int64{},
	})
	agent.Body.ExpansionLevel++

	decision := worldtypes.Allow()
	evt := worldtypes.BodyInterfaceExpandedEvent{
		NewSlotKind:    payload.NewSlotKind,
		ExpansionLevel: agent.Body.ExpansionLevel,
		CargoKind:      payload.ConsumesCargoKind,
		CargoAmount:    payload.ConsumesAmount,
	}
	return &sandbox.Output{Decision: &decision, NewEvents: []worldtypes.EventPayload{evt}}, nil
}

func findSlot(agent *worldtypes.AgentState, kind string) *worldtypes.BodySlot {
	for i := range agent.Body.Slots {
		if agent.Body.Slots[i].Kind == kind {
			return &agent.Body.Slots[i]
		}
	}
	return nil
}

func findOrAppendSlot(agent *worldtypes.AgentState, kind string) *worldtypes.BodySlot {
	if s := findSlot(agent, kind); s != nil {
		return s
	}
	agent.Body.Slots = append(agent.Body.Slots, worldtypes.BodySlot{Kind: kind, Attrs: map[string]int64{}})
	return &agent.Body.Slots[len(agent.Body.Slots)-1]
}

// satAddInt64Floor0 adds delta to cur, floored at zero so attribute
// values (durability, charge, etc.) never go negative.
func satAddInt64Floor0(cur, delta int64) int64 {
	sum := cur + delta
	if sum < 0 {
		return 0
	}
	return sum
}
