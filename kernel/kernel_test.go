package kernel

import (
	"testing"

	"github.com/hashicorp/raft"

	"github.com/eng-cc/agent-world-sub008/manifest"
	"github.com/eng-cc/agent-world-sub008/modules/body"
	"github.com/eng-cc/agent-world-sub008/modules/rule"
	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

func newTestWorld(t *testing.T) *World {
	t.Helper()

	registry := sandbox.NewRegistry()
	registry.Register(rule.NewMoveModule(), sandbox.Limits{})
	registry.Register(rule.NewVisibilityModule(), sandbox.Limits{})
	registry.Register(rule.NewTransferModule(), sandbox.Limits{})
	registry.Register(body.NewModule(), sandbox.Limits{})
	for _, id := range []worldtypes.ModuleID{rule.M1MoveModuleID, rule.M1VisibilityModuleID, rule.M1TransferModuleID, body.M1BodyModuleID} {
		if err := registry.Activate(id); err != nil {
			t.Fatalf("activate %s: %v", id, err)
		}
	}

	journal, err := NewJournal(raft.NewInmemStore())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	m, err := manifest.NewManifest(manifest.Value{Kind: manifest.KindObject})
	if err != nil {
		t.Fatalf("new manifest: %v", err)
	}

	w := NewWorld(Config{
		WorldID:         worldtypes.WorldID("test-world"),
		Registry:        registry,
		Journal:         journal,
		InitialManifest: m,
	})
	w.AddAgent("alice", worldtypes.Position{})
	w.AddAgent("bob", worldtypes.Position{XCm: 100_000})
	return w
}

func TestSubmitMoveChargesCostAndJournals(t *testing.T) {
	w := newTestWorld(t)
	w.State().Agents["alice"].Resources[worldtypes.ResourceElectricity] = 10

	events, err := w.Submit(worldtypes.Action{
		ID:      1,
		AgentID: "alice",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{XCm: 300_000}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("want 1 event, got %d", len(events))
	}
	moved, ok := events[0].Payload.(worldtypes.AgentMovedEvent)
	if !ok {
		t.Fatalf("want AgentMovedEvent, got %T", events[0].Payload)
	}
	if moved.To.XCm != 300_000 {
		t.Fatalf("want target x 300000, got %d", moved.To.XCm)
	}
	if moved.ElectricityCost != 6 {
		t.Fatalf("want cost 6, got %d", moved.ElectricityCost)
	}

	agent := w.State().Agents["alice"]
	if agent.Resources[worldtypes.ResourceElectricity] != 4 {
		t.Fatalf("want 10-6=4 electricity left, got %d", agent.Resources[worldtypes.ResourceElectricity])
	}

	replayed, err := w.journal.Events()
	if err != nil {
		t.Fatalf("replay journal: %v", err)
	}
	if len(replayed) != 1 {
		t.Fatalf("want 1 journaled event, got %d", len(replayed))
	}
	if _, ok := replayed[0].Payload.(worldtypes.AgentMovedEvent); !ok {
		t.Fatalf("want replayed AgentMovedEvent, got %T", replayed[0].Payload)
	}
}

func TestSubmitMoveNoOpDeniesAndJournalsRejection(t *testing.T) {
	w := newTestWorld(t)

	events, err := w.Submit(worldtypes.Action{
		ID:      1,
		AgentID: "alice",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("want 1 event, got %d", len(events))
	}
	rejected, ok := events[0].Payload.(worldtypes.ActionRejectedEvent)
	if !ok {
		t.Fatalf("want ActionRejectedEvent, got %T", events[0].Payload)
	}
	if rejected.ActionID != 1 {
		t.Fatalf("want rejected action id 1, got %d", rejected.ActionID)
	}
}

func TestSubmitBodyActionRoutesThroughBodyModule(t *testing.T) {
	w := newTestWorld(t)

	events, err := w.Submit(worldtypes.Action{
		ID:      1,
		AgentID: "alice",
		Payload: worldtypes.RecordBodyAttributesAction{SlotKind: "sensor", Delta: map[string]int64{"range": 5}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("want 1 event, got %d", len(events))
	}
	if _, ok := events[0].Payload.(worldtypes.BodyAttributesRecordedEvent); !ok {
		t.Fatalf("want BodyAttributesRecordedEvent, got %T", events[0].Payload)
	}
	agent := w.State().Agents["alice"]
	if agent.Body.Slots[0].Attrs["range"] != 5 {
		t.Fatalf("want recorded range 5, got %d", agent.Body.Slots[0].Attrs["range"])
	}
}

func TestGovernanceProposeShadowApproveApplyActivatesModule(t *testing.T) {
	w := newTestWorld(t)
	if err := w.registry.Deactivate(rule.M1TransferModuleID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	baseHash := w.Manifest().Hash
	ops := []manifest.PatchOp{{
		Op:    manifest.OpSet,
		Path:  []string{"module_changes", "activate"},
		Value: manifest.Value{Kind: manifest.KindString, Str: string(rule.M1TransferModuleID)},
	}}
	opsBytes := marshalOpsForTest(t, ops)

	if _, err := w.Submit(worldtypes.Action{ID: 1, AgentID: "alice", Payload: worldtypes.ProposeManifestPatchAction{PatchID: "p1", BaseHash: baseHash, Ops: opsBytes}}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := w.Submit(worldtypes.Action{ID: 2, AgentID: "alice", Payload: worldtypes.ShadowManifestPatchAction{PatchID: "p1"}}); err != nil {
		t.Fatalf("shadow: %v", err)
	}
	if _, err := w.Submit(worldtypes.Action{ID: 3, AgentID: "alice", Payload: worldtypes.ApproveManifestPatchAction{PatchID: "p1"}}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	events, err := w.Submit(worldtypes.Action{ID: 4, AgentID: "alice", Payload: worldtypes.ApplyManifestPatchAction{PatchID: "p1"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	var sawActivated bool
	for _, evt := range events {
		if _, ok := evt.Payload.(worldtypes.ModuleActivatedEvent); ok {
			sawActivated = true
		}
	}
	if !sawActivated {
		t.Fatalf("want a ModuleActivatedEvent among %v", events)
	}
	if !w.registry.IsActive(rule.M1TransferModuleID) {
		t.Fatalf("want transfer module active after patch apply")
	}
}

func TestGovernanceRegisterModuleViaPatch(t *testing.T) {
	registry := sandbox.NewRegistry()
	registry.Register(rule.NewMoveModule(), sandbox.Limits{})
	if err := registry.Activate(rule.M1MoveModuleID); err != nil {
		t.Fatalf("activate: %v", err)
	}
	// The transfer module implementation ships in the binary but has
	// no registry record until a manifest patch registers it.
	registry.Provide(rule.NewTransferModule())

	journal, err := NewJournal(raft.NewInmemStore())
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}
	m, err := manifest.NewManifest(manifest.Value{Kind: manifest.KindObject})
	if err != nil {
		t.Fatalf("new manifest: %v", err)
	}
	w := NewWorld(Config{WorldID: "test-world", Registry: registry, Journal: journal, InitialManifest: m})
	w.AddAgent("alice", worldtypes.Position{})

	if registry.IsRegistered(rule.M1TransferModuleID) {
		t.Fatalf("transfer module must start unregistered")
	}

	baseHash := w.Manifest().Hash
	ops := []manifest.PatchOp{
		{
			Op:    manifest.OpSet,
			Path:  []string{"module_changes", "register"},
			Value: manifest.Value{Kind: manifest.KindString, Str: string(rule.M1TransferModuleID)},
		},
		{
			Op:    manifest.OpSet,
			Path:  []string{"module_changes", "activate"},
			Value: manifest.Value{Kind: manifest.KindString, Str: string(rule.M1TransferModuleID)},
		},
	}
	opsBytes := marshalOpsForTest(t, ops)

	if _, err := w.Submit(worldtypes.Action{ID: 1, AgentID: "alice", Payload: worldtypes.ProposeManifestPatchAction{PatchID: "p1", BaseHash: baseHash, Ops: opsBytes}}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if _, err := w.Submit(worldtypes.Action{ID: 2, AgentID: "alice", Payload: worldtypes.ShadowManifestPatchAction{PatchID: "p1"}}); err != nil {
		t.Fatalf("shadow: %v", err)
	}
	if _, err := w.Submit(worldtypes.Action{ID: 3, AgentID: "alice", Payload: worldtypes.ApproveManifestPatchAction{PatchID: "p1"}}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	events, err := w.Submit(worldtypes.Action{ID: 4, AgentID: "alice", Payload: worldtypes.ApplyManifestPatchAction{PatchID: "p1"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	var sawRegistered, sawActivated bool
	for _, evt := range events {
		switch evt.Payload.(type) {
		case worldtypes.ModuleRegisteredEvent:
			sawRegistered = true
		case worldtypes.ModuleActivatedEvent:
			sawActivated = true
		}
	}
	if !sawRegistered {
		t.Fatalf("want a ModuleRegisteredEvent among %v", events)
	}
	if !sawActivated {
		t.Fatalf("want a ModuleActivatedEvent among %v", events)
	}
	if !registry.IsRegistered(rule.M1TransferModuleID) {
		t.Fatalf("want transfer module registered after patch apply")
	}
	if !registry.IsActive(rule.M1TransferModuleID) {
		t.Fatalf("want transfer module active after patch apply")
	}

	// Re-applying a register for an already-registered module is a
	// no-op, not an error.
	if err := registry.RegisterID(rule.M1TransferModuleID); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if err := registry.RegisterID("m9.unknown"); err == nil {
		t.Fatalf("want error registering a module with no provided implementation")
	}
}

func TestAdvanceWithNoTickHooksReturnsNoEvents(t *testing.T) {
	w := newTestWorld(t)
	events, err := w.Advance()
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("want no events (no TickHook modules active), got %d", len(events))
	}
	if w.State().Time != 1 {
		t.Fatalf("want tick 1, got %d", w.State().Time)
	}
}

func TestApplyDecodesEncodedActionAndFoldsIt(t *testing.T) {
	w := newTestWorld(t)
	w.State().Agents["bob"].Resources[worldtypes.ResourceElectricity] = 5
	data, err := EncodeAction(worldtypes.Action{
		ID:      7,
		AgentID: "bob",
		Payload: worldtypes.MoveAction{Target: worldtypes.Position{XCm: 200_000}},
	})
	if err != nil {
		t.Fatalf("encode action: %v", err)
	}

	result := w.Apply(&raft.Log{Data: data})
	events, ok := result.([]worldtypes.WorldEvent)
	if !ok {
		t.Fatalf("want []worldtypes.WorldEvent result, got %T (%v)", result, result)
	}
	if len(events) != 1 {
		t.Fatalf("want 1 event, got %d", len(events))
	}
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	w.State().Agents["alice"].Resources[worldtypes.ResourceElectricity] = 20
	if _, err := w.Submit(worldtypes.Action{ID: 1, AgentID: "alice", Payload: worldtypes.MoveAction{Target: worldtypes.Position{XCm: 400_000}}}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap, err := w.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	sink := newTestSnapshotSink()
	if err := snap.Persist(sink); err != nil {
		t.Fatalf("persist: %v", err)
	}

	restored := newTestWorld(t)
	if err := restored.Restore(sink.reader()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.State().Agents["alice"].Position.XCm != 400_000 {
		t.Fatalf("want restored alice x 400000, got %d", restored.State().Agents["alice"].Position.XCm)
	}
}
