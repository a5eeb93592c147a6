// Package sandbox hosts the builtin-module ABI and registry that the
// kernel dispatches actions and events through.
package sandbox

import (
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// Limits caps the resources one module call may consume.
type Limits struct {
	MaxMemBytes   uint64
	MaxGas        uint64
	MaxCallRate   uint64 // calls per tick
	MaxOutputBytes uint64
	MaxEffects    uint64
	MaxEmits      uint64
}

// CallInput carries at most one of Event or Action into a module call,
// plus the module's own previously-encoded state.
type CallInput struct {
	WorldID worldtypes.WorldID
	Tick    worldtypes.Tick
	Event   *worldtypes.WorldEvent
	Action  *worldtypes.Action
	State   []byte
	// World is a read-only view of the current world state, letting a
	// module see cross-agent facts (e.g. positions) it does not itself
	// own as auxiliary state.
	World *worldtypes.WorldState
}

// Emit is a side-channel fact a module call reports without it
// necessarily becoming a WorldEvent (e.g. a metrics/log-shaped
// observation).
type Emit struct {
	Kind    string
	Payload []byte
}

// Output is a successful module call's result.
type Output struct {
	Decision  *worldtypes.RuleDecision // set when handling an Action
	NewState  []byte                    // set when the module's state changed
	NewEvents []worldtypes.EventPayload
	Emits     []Emit
}

// CallFailure reports why a module call could not complete.
type CallFailure struct {
	Reason string
}

func (f *CallFailure) Error() string { return f.Reason }

// BuiltinModule is the contract every builtin module implements.
// Exactly one of Input.Event / Input.Action is set per Call.
type BuiltinModule interface {
	ID() worldtypes.ModuleID
	Call(input CallInput) (*Output, *CallFailure)
}

// TickHook is implemented by modules that run once per kernel tick
// independent of any specific submitted action (e.g. passive resource
// harvesting). The kernel invokes OnTick for every active module that
// implements it, after folding the tick's submitted actions.
type TickHook interface {
	OnTick(world *worldtypes.WorldState) (worldtypes.EventPayload, error)
}
