package overlay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

func TestOnTickResolvesCrisisGrant(t *testing.T) {
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})
	w.Governance.Grants["g1"] = worldtypes.MetaGrant{GrantID: "g1", Recipient: "a1", Kind: grantKindCrisis, Amount: 7, Active: true}

	m := NewModule()
	evt, err := m.OnTick(w)
	require.NoError(t, err)
	resolved, ok := evt.(worldtypes.CrisisResolvedEvent)
	require.True(t, ok)
	require.Equal(t, "g1", resolved.GrantID)
	require.False(t, w.Governance.Grants["g1"].Active)
	require.Equal(t, uint64(7), w.Agents["a1"].Resources[worldtypes.ResourceCargo])
}

func TestOnTickSettlesContractBeforeExpiry(t *testing.T) {
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})
	w.Time = 3
	w.Governance.Grants["g1"] = worldtypes.MetaGrant{GrantID: "g1", Recipient: "a1", Kind: grantKindContract, Amount: 9, Active: true, ExpiresAtTick: 10}

	m := NewModule()
	evt, err := m.OnTick(w)
	require.NoError(t, err)
	settled, ok := evt.(worldtypes.EconomicContractSettledEvent)
	require.True(t, ok)
	require.Equal(t, uint64(9), settled.Amount)
	require.Equal(t, uint64(9), w.Agents["a1"].Resources[worldtypes.ResourceCargo])
}

func TestOnTickExpiresContractPastDeadline(t *testing.T) {
	w := worldtypes.NewWorldState("w1")
	w.Agents["a1"] = worldtypes.NewAgentState("a1", worldtypes.Position{})
	w.Time = 11
	w.Governance.Grants["g1"] = worldtypes.MetaGrant{GrantID: "g1", Recipient: "a1", Kind: grantKindContract, Amount: 9, Active: true, ExpiresAtTick: 10}

	m := NewModule()
	evt, err := m.OnTick(w)
	require.NoError(t, err)
	expired, ok := evt.(worldtypes.EconomicContractExpiredEvent)
	require.True(t, ok)
	require.Equal(t, "g1", expired.GrantID)
	require.Equal(t, uint64(0), w.Agents["a1"].Resources[worldtypes.ResourceCargo])
}

func TestOnTickNoActiveGrantsReturnsNil(t *testing.T) {
	w := worldtypes.NewWorldState("w1")
	m := NewModule()
	evt, err := m.OnTick(w)
	require.NoError(t, err)
	require.Nil(t, evt)
}
