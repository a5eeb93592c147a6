package kernel

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/manifest"
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/wire"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// isGovernanceAction reports whether payload is one of the manifest
// patch lifecycle or module-registry actions the kernel handles
// directly rather than dispatching through the builtin module
// registry — these mutate the governance manifest/module registry
// themselves, which no sandboxed module owns.
func isGovernanceAction(payload worldtypes.ActionPayload) bool {
	switch payload.(type) {
	case worldtypes.ProposeManifestPatchAction,
		worldtypes.ShadowManifestPatchAction,
		worldtypes.ApproveManifestPatchAction,
		worldtypes.ApplyManifestPatchAction,
		worldtypes.ActivateModuleAction,
		worldtypes.DeactivateModuleAction:
		return true
	default:
		return false
	}
}

func (w *World) applyGovernance(action worldtypes.Action) ([]worldtypes.WorldEvent, error) {
	switch payload := action.Payload.(type) {
	case worldtypes.ProposeManifestPatchAction:
		return w.proposeManifestPatch(action.AgentID, payload)
	case worldtypes.ShadowManifestPatchAction:
		return w.shadowManifestPatch(action.AgentID, payload)
	case worldtypes.ApproveManifestPatchAction:
		return w.approveManifestPatch(action.AgentID, payload)
	case worldtypes.ApplyManifestPatchAction:
		return w.applyManifestPatch(action.AgentID, payload)
	case worldtypes.ActivateModuleAction:
		return w.activateModule(action.AgentID, payload)
	case worldtypes.DeactivateModuleAction:
		return w.deactivateModule(action.AgentID, payload)
	default:
		return nil, werr.New(werr.KindValidation, "not a governance action")
	}
}

func (w *World) proposeManifestPatch(agentID worldtypes.AgentID, a worldtypes.ProposeManifestPatchAction) ([]worldtypes.WorldEvent, error) {
	var ops []manifest.PatchOp
	if err := wire.Unmarshal(a.Ops, &ops); err != nil {
		return nil, werr.Wrap(werr.KindValidation, err, "decode manifest patch ops")
	}
	w.pendingOps[a.PatchID] = ops
	w.state.Governance.PendingPatches[a.PatchID] = a.BaseHash
	return []worldtypes.WorldEvent{w.state.NextEvent(agentID, worldtypes.ManifestPatchProposedEvent{PatchID: a.PatchID, BaseHash: a.BaseHash})}, nil
}

func (w *World) shadowManifestPatch(agentID worldtypes.AgentID, a worldtypes.ShadowManifestPatchAction) ([]worldtypes.WorldEvent, error) {
	baseHash, ok := w.state.Governance.PendingPatches[a.PatchID]
	if !ok {
		return nil, werr.New(werr.KindNotFound, "no pending patch %s", a.PatchID)
	}
	w.state.Governance.ShadowPatches[a.PatchID] = baseHash
	return []worldtypes.WorldEvent{w.state.NextEvent(agentID, worldtypes.ManifestPatchShadowedEvent{PatchID: a.PatchID})}, nil
}

func (w *World) approveManifestPatch(agentID worldtypes.AgentID, a worldtypes.ApproveManifestPatchAction) ([]worldtypes.WorldEvent, error) {
	baseHash, ok := w.state.Governance.PendingPatches[a.PatchID]
	if !ok {
		return nil, werr.New(werr.KindNotFound, "no pending patch %s", a.PatchID)
	}
	w.state.Governance.ApprovedPatches[a.PatchID] = baseHash
	return []worldtypes.WorldEvent{w.state.NextEvent(agentID, worldtypes.ManifestPatchApprovedEvent{PatchID: a.PatchID})}, nil
}

func (w *World) applyManifestPatch(agentID worldtypes.AgentID, a worldtypes.ApplyManifestPatchAction) ([]worldtypes.WorldEvent, error) {
	baseHash, ok := w.state.Governance.ApprovedPatches[a.PatchID]
	if !ok {
		return nil, werr.New(werr.KindNotFound, "no approved patch %s", a.PatchID)
	}
	ops, ok := w.pendingOps[a.PatchID]
	if !ok {
		return nil, werr.New(werr.KindNotFound, "no recorded ops for patch %s", a.PatchID)
	}
	newManifest, err := manifest.ApplyPatch(w.manifestDoc, baseHash, ops)
	if err != nil {
		return nil, err
	}
	w.manifestDoc = newManifest
	delete(w.pendingOps, a.PatchID)
	delete(w.state.Governance.PendingPatches, a.PatchID)
	delete(w.state.Governance.ShadowPatches, a.PatchID)
	delete(w.state.Governance.ApprovedPatches, a.PatchID)

	moduleOps, _ := wire.Marshal(ops)
	events := []worldtypes.WorldEvent{w.state.NextEvent(agentID, worldtypes.ManifestPatchAppliedEvent{
		PatchID: a.PatchID, NewHash: newManifest.Hash, ModuleOps: moduleOps,
	})}

	cs := moduleChangeSetFromOps(ops)
	w.registry.ApplyChangeSet(cs)
	for _, id := range cs.Register {
		if w.registry.IsRegistered(id) {
			events = append(events, w.state.NextEvent(agentID, worldtypes.ModuleRegisteredEvent{ModuleID: id}))
		}
	}
	for _, id := range cs.Activate {
		events = append(events, w.state.NextEvent(agentID, worldtypes.ModuleActivatedEvent{ModuleID: id}))
	}
	for _, id := range cs.Deactivate {
		events = append(events, w.state.NextEvent(agentID, worldtypes.ModuleDeactivatedEvent{ModuleID: id}))
	}
	return events, nil
}

func (w *World) activateModule(agentID worldtypes.AgentID, a worldtypes.ActivateModuleAction) ([]worldtypes.WorldEvent, error) {
	if err := w.registry.Activate(a.ModuleID); err != nil {
		return nil, err
	}
	return []worldtypes.WorldEvent{w.state.NextEvent(agentID, worldtypes.ModuleActivatedEvent{ModuleID: a.ModuleID})}, nil
}

func (w *World) deactivateModule(agentID worldtypes.AgentID, a worldtypes.DeactivateModuleAction) ([]worldtypes.WorldEvent, error) {
	if err := w.registry.Deactivate(a.ModuleID); err != nil {
		return nil, err
	}
	return []worldtypes.WorldEvent{w.state.NextEvent(agentID, worldtypes.ModuleDeactivatedEvent{ModuleID: a.ModuleID})}, nil
}

// moduleChangeSetFromOps recovers a sandbox.ChangeSet from the subset
// of patch ops that target content.module_changes.register /
// .activate / .deactivate, each expected to carry a Value.Str module
// id.
func moduleChangeSetFromOps(ops []manifest.PatchOp) sandbox.ChangeSet {
	var cs sandbox.ChangeSet
	for _, op := range ops {
		if len(op.Path) < 2 || op.Path[0] != "module_changes" {
			continue
		}
		id := worldtypes.ModuleID(op.Value.Str)
		switch op.Path[1] {
		case "register":
			cs.Register = append(cs.Register, id)
		case "activate":
			cs.Activate = append(cs.Activate, id)
		case "deactivate":
			cs.Deactivate = append(cs.Deactivate, id)
		}
	}
	return cs
}
