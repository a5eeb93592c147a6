package rule

import (
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

const M1TransferModuleID worldtypes.ModuleID = "m1.rule.transfer"

// TransferModule only allows resource transfers between co-located
// agents, turning a valid request into an EmitResourceTransfer override.
type TransferModule struct{}

func NewTransferModule() *TransferModule { return &TransferModule{} }

func (m *TransferModule) ID() worldtypes.ModuleID { return M1TransferModuleID }

func (m *TransferModule) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	if in.Action == nil {
		return &sandbox.Output{}, nil
	}
	t, ok := in.Action.Payload.(worldtypes.TransferAction)
	if !ok {
		return &sandbox.Output{}, nil
	}
	if t.Amount == 0 {
		d := worldtypes.Deny("transfer amount must be positive")
		return &sandbox.Output{Decision: &d}, nil
	}

	from := in.World.Agents[in.Action.AgentID]
	to := in.World.Agents[t.To]
	if from == nil || to == nil {
		d := worldtypes.Deny("agent position missing for transfer rule")
		return &sandbox.Output{Decision: &d}, nil
	}
	if from.Position.DistanceCm(to.Position) != 0 {
		d := worldtypes.Deny("transfer requires co-located agents")
		return &sandbox.Output{Decision: &d}, nil
	}

	decision := worldtypes.Modify(worldtypes.EmitResourceTransferAction{
		From: in.Action.AgentID, To: t.To, Kind: t.Kind, Amount: t.Amount,
	})
	return &sandbox.Output{Decision: &decision}, nil
}
