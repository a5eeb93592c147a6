// Package kernel is the deterministic world reducer: it folds
// submitted actions through the active builtin modules into
// RuleDecisions, debits the resulting resource cost, and folds the
// produced domain events into an append-only journal.
package kernel

import (
	"sync"

	"github.com/eng-cc/agent-world-sub008/manifest"
	"github.com/eng-cc/agent-world-sub008/notify"
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// World is the mutable reducer core: a worldtypes.WorldState, the
// builtin module registry that dispatches actions, the append-only
// journal, and the governance manifest document.
type World struct {
	mu       sync.Mutex
	state    *worldtypes.WorldState
	registry *sandbox.Registry
	journal  *Journal
	broker   *notify.Broker
	pending  []worldtypes.Action

	manifestDoc manifest.Manifest
	pendingOps  map[string][]manifest.PatchOp
}

// Config bundles the collaborators a World is built from.
type Config struct {
	WorldID         worldtypes.WorldID
	Registry        *sandbox.Registry
	Journal         *Journal
	Broker          *notify.Broker
	InitialManifest manifest.Manifest
}

func NewWorld(cfg Config) *World {
	return &World{
		state:       worldtypes.NewWorldState(cfg.WorldID),
		registry:    cfg.Registry,
		journal:     cfg.Journal,
		broker:      cfg.Broker,
		manifestDoc: cfg.InitialManifest,
		pendingOps:  make(map[string][]manifest.PatchOp),
	}
}

// State returns the world's current in-memory state. Callers must not
// mutate the returned pointer's contents outside of World's own
// methods; use Clone for a safe independent copy.
func (w *World) State() *worldtypes.WorldState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Manifest returns the current governance manifest document.
func (w *World) Manifest() manifest.Manifest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.manifestDoc
}

// Enqueue assigns the next monotone action id to payload and parks it
// on the pending queue for the next Step to drain, returning the
// assigned id.
func (w *World) Enqueue(agentID worldtypes.AgentID, payload worldtypes.ActionPayload) worldtypes.ActionID {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.state.NextActionID
	w.state.NextActionID++
	w.pending = append(w.pending, worldtypes.Action{ID: id, AgentID: agentID, Payload: payload})
	return id
}

// PendingActions returns a copy of the queued-but-unapplied actions,
// in submission order.
func (w *World) PendingActions() []worldtypes.Action {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]worldtypes.Action(nil), w.pending...)
}

// AddAgent registers agent id at pos, ready to accept actions.
func (w *World) AddAgent(id worldtypes.AgentID, pos worldtypes.Position) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Agents[id] = worldtypes.NewAgentState(id, pos)
}

// notify publishes message on the broker (if set) under kind.
func (w *World) notify(kind notify.Kind, message string) {
	if w.broker == nil {
		return
	}
	w.broker.Publish(&notify.Event{Kind: kind, Message: message})
}
