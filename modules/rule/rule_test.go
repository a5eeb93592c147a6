package rule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

func newTestWorld() *worldtypes.WorldState {
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})
	w.Agents["a2"] = worldtypes.NewAgentState("a2", worldtypes.Position{XCm: 1_000_00})
	w.Agents["a3"] = worldtypes.NewAgentState("a3", worldtypes.Position{XCm: 50_000_00})
	return w
}

func TestMoveModuleDeniesNoOp(t *testing.T) {
	m := NewMoveModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{}},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.NotNil(t, out.Decision)
	require.Equal(t, worldtypes.VerdictDeny, out.Decision.Verdict)
}

func TestMoveModuleChargesDistanceCost(t *testing.T) {
	m := NewMoveModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{XCm: 3_000_00}},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictAllow, out.Decision.Verdict)
	require.Equal(t, int64(-6), out.Decision.ResourceDelta[worldtypes.ResourceElectricity])
}

func TestMoveModuleRoundsPartialKilometersUp(t *testing.T) {
	m := NewMoveModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{XCm: 1}},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictAllow, out.Decision.Verdict)
	require.Equal(t, int64(-DefaultMoveCostPerKM), out.Decision.ResourceDelta[worldtypes.ResourceElectricity])
}

func TestMoveModuleZeroCostConfig(t *testing.T) {
	m := &MoveModule{PerKMCost: 0}
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{XCm: 3_000_00}},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictAllow, out.Decision.Verdict)
	require.Zero(t, out.Decision.ResourceDelta[worldtypes.ResourceElectricity])
}

func TestMoveModuleUnknownAgentFails(t *testing.T) {
	m := NewMoveModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "ghost",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{XCm: 1}},
	}}
	_, failure := m.Call(in)
	require.NotNil(t, failure)
}

func TestVisibilityModuleListsNearbyAgentsSorted(t *testing.T) {
	m := NewVisibilityModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.QueryObservationAction{},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictModify, out.Decision.Verdict)
	override, ok := out.Decision.OverrideAction.(worldtypes.EmitObservationAction)
	require.True(t, ok)
	require.Equal(t, worldtypes.AgentID("a1"), override.Origin)
	require.Equal(t, []worldtypes.AgentID{"a2"}, override.VisibleIDs)
}

func TestVisibilityModuleIgnoresOtherActions(t *testing.T) {
	m := NewVisibilityModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.TransferAction{To: "a2", Kind: worldtypes.ResourceCargo, Amount: 1},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Nil(t, out.Decision)
}

func TestTransferModuleDeniesZeroAmount(t *testing.T) {
	m := NewTransferModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.TransferAction{To: "a2", Kind: worldtypes.ResourceCargo, Amount: 0},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictDeny, out.Decision.Verdict)
}

func TestTransferModuleDeniesNonColocated(t *testing.T) {
	m := NewTransferModule()
	w := newTestWorld()
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.TransferAction{To: "a3", Kind: worldtypes.ResourceCargo, Amount: 1},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictDeny, out.Decision.Verdict)
}

func TestTransferModuleAllowsColocated(t *testing.T) {
	m := NewTransferModule()
	w := newTestWorld()
	w.Agents["a2"].Position = worldtypes.Position{}
	in := sandbox.CallInput{World: w, Action: &worldtypes.Action{
		AgentID: "a1",
		Payload: worldtypes.TransferAction{To: "a2", Kind: worldtypes.ResourceCargo, Amount: 5},
	}}
	out, failure := m.Call(in)
	require.Nil(t, failure)
	require.Equal(t, worldtypes.VerdictModify, out.Decision.Verdict)
	override, ok := out.Decision.OverrideAction.(worldtypes.EmitResourceTransferAction)
	require.True(t, ok)
	require.Equal(t, uint64(5), override.Amount)
}
