// Package power implements the power modules: radiation harvesting
// and capacity-limited storage.
package power

import (
	"github.com/eng-cc/agent-world-sub008/wire"
)

// AgentPowerState is one agent's power-module-local bookkeeping, kept
// distinct from worldtypes.ResourceLedger's electricity balance so the
// storage cap can be enforced without the ledger itself knowing about
// it.
type AgentPowerState struct {
	StorageCapacity uint64 `cbor:"storage_capacity"`
}

// State is the power modules' encoded per-world state, stored as the
// module's own State []byte in the kernel's ModuleState map.
type State struct {
	Agents map[string]AgentPowerState `cbor:"agents"`
}

func NewState() *State {
	return &State{Agents: make(map[string]AgentPowerState)}
}

func DecodeState(data []byte) (*State, error) {
	if len(data) == 0 {
		return NewState(), nil
	}
	var s State
	if err := wire.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Agents == nil {
		s.Agents = make(map[string]AgentPowerState)
	}
	return &s, nil
}

func (s *State) Encode() ([]byte, error) {
	return wire.Marshal(s)
}
