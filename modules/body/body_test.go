package body

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

func newAgentWithCargo(kind string, amount int64) *worldtypes.WorldState {
	w := worldtypes.NewWorldState("w1")
	agent := worldtypes.NewAgentState("a1", worldtypes.Position{})
	agent.Body.Slots = []worldtypes.BodySlot{{Kind: cargoSlotKind, Attrs: map[string]int64{kind: amount}}}
	w.Agents["a1"] = agent
	return w
}

func TestRecordBodyAttributesAppendsSlotAndFloors(t *testing.T) {
	m := NewModule()
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})

	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.RecordBodyAttributesAction{SlotKind: "arm", Delta: map[string]int64{"durability": -5}},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictAllow, out.Decision.Verdict)
	require.Len(t, w.Agents["a1"].Body.Slots, 1)
	require.Equal(t, int64(0), w.Agents["a1"].Body.Slots[0].Attrs["durability"])
}

func TestExpandBodyInterfaceConsumesCargo(t *testing.T) {
	m := NewModule()
	w := newAgentWithCargo("scrap", 10)

	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.ExpandBodyInterfaceAction{ConsumesCargoKind: "scrap", ConsumesAmount: 4, NewSlotKind: "sensor"},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictAllow, out.Decision.Verdict)

	agent := w.Agents["a1"]
	require.Equal(t, uint32(1), agent.Body.ExpansionLevel)
	require.Len(t, agent.Body.Slots, 2)
	require.Equal(t, int64(6), agent.Body.Slots[0].Attrs["scrap"])
}

func TestExpandBodyInterfaceRejectsMissingCargo(t *testing.T) {
	m := NewModule()
	w := newAgentWithCargo("scrap", 2)

	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.ExpandBodyInterfaceAction{ConsumesCargoKind: "scrap", ConsumesAmount: 4, NewSlotKind: "sensor"},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictDeny, out.Decision.Verdict)
	require.Equal(t, ReasonInsufficientResource, out.Decision.Reason)
	require.Equal(t, uint32(0), w.Agents["a1"].Body.ExpansionLevel)
}

func TestExpandBodyInterfaceRejectsWhenNoCargoSlot(t *testing.T) {
	m := NewModule()
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})

	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.ExpandBodyInterfaceAction{ConsumesCargoKind: "scrap", ConsumesAmount: 1, NewSlotKind: "sensor"},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictDeny, out.Decision.Verdict)
}
