// Package overlay implements the meta-grant lifecycle overlay:
// crisis-relief grants resolve on sight, contract grants settle by
// delivering their amount or expire at their deadline.
package overlay

import (
	"sort"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

const M5OverlayModuleID worldtypes.ModuleID = "m5.overlay.grants"

const (
	grantKindCrisis   = "crisis"
	grantKindContract = "contract"
)

type Module struct{}

func NewModule() *Module { return &Module{} }

func (m *Module) ID() worldtypes.ModuleID { return M5OverlayModuleID }

func (m *Module) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	return &sandbox.Output{}, nil
}

// OnTick resolves at most one grant per call, in deterministic
// (sorted GrantID) order, so the kernel's per-tick event fold stays
// single-event-per-module-per-tick like the rest of the builtin ABI.
func (m *Module) OnTick(world *worldtypes.WorldState) (worldtypes.EventPayload, error) {
	ids := make([]string, 0, len(world.Governance.Grants))
	for id, g := range world.Governance.Grants {
		if g.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		grant := world.Governance.Grants[id]
		switch grant.Kind {
		case grantKindCrisis:
			creditRecipient(world, grant)
			grant.Active = false
			world.Governance.Grants[id] = grant
			return worldtypes.CrisisResolvedEvent{GrantID: id}, nil
		case grantKindContract:
			if world.Time >= grant.ExpiresAtTick {
				grant.Active = false
				world.Governance.Grants[id] = grant
				return worldtypes.EconomicContractExpiredEvent{GrantID: id}, nil
			}
			creditRecipient(world, grant)
			grant.Active = false
			world.Governance.Grants[id] = grant
			return worldtypes.EconomicContractSettledEvent{GrantID: id, Amount: grant.Amount}, nil
		}
	}
	return nil, nil
}

func creditRecipient(world *worldtypes.WorldState, grant worldtypes.MetaGrant) {
	agent := world.Agents[grant.Recipient]
	if agent == nil {
		return
	}
	agent.Resources.Apply(worldtypes.ResourceDelta{worldtypes.ResourceCargo: int64(grant.Amount)})
}
