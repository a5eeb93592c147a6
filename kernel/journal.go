package kernel

import (
	"github.com/hashicorp/raft"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// Journal is the kernel's append-only event log, backed by a
// raft.LogStore so the same storage (raftboltdb.BoltStore in
// production, raft.InmemStore in tests) can serve both the kernel's
// own replay and an external raft.FSM's replicated log.
type Journal struct {
	store     raft.LogStore
	nextIndex uint64
}

func NewJournal(store raft.LogStore) (*Journal, error) {
	last, err := store.LastIndex()
	if err != nil {
		return nil, err
	}
	return &Journal{store: store, nextIndex: last + 1}, nil
}

// journalEntry is the wire-encoded envelope one WorldEvent is stored
// as: Payload is independently CBOR-encoded so decoding can dispatch
// on Kind to the concrete event type, mirroring wire.ActionEnvelope's
// raw-Payload-bytes convention.
type journalEntry struct {
	ID      worldtypes.EventID
	Tick    worldtypes.Tick
	AgentID worldtypes.AgentID
	Kind    worldtypes.EventKind
	Payload []byte
}

// encodeJournalEntry produces the wire bytes one event is stored and
// shipped as.
func encodeJournalEntry(evt worldtypes.WorldEvent) ([]byte, error) {
	payload, err := wire.Marshal(evt.Payload)
	if err != nil {
		return nil, err
	}
	entry := journalEntry{ID: evt.ID, Tick: evt.Tick, AgentID: evt.AgentID, Kind: evt.Payload.EventKind(), Payload: payload}
	return wire.Marshal(entry)
}

func (j *Journal) Append(evt worldtypes.WorldEvent) error {
	data, err := encodeJournalEntry(evt)
	if err != nil {
		return err
	}
	log := &raft.Log{Index: j.nextIndex, Term: 1, Type: raft.LogCommand, Data: data}
	if err := j.store.StoreLog(log); err != nil {
		return err
	}
	j.nextIndex++
	return nil
}

// Events replays every entry currently in the journal, in append
// order.
func (j *Journal) Events() ([]worldtypes.WorldEvent, error) {
	first, err := j.store.FirstIndex()
	if err != nil {
		return nil, err
	}
	last, err := j.store.LastIndex()
	if err != nil {
		return nil, err
	}
	if last < first {
		return nil, nil
	}
	out := make([]worldtypes.WorldEvent, 0, last-first+1)
	for idx := first; idx <= last; idx++ {
		var log raft.Log
		if err := j.store.GetLog(idx, &log); err != nil {
			return nil, err
		}
		evt, err := decodeJournalEntry(log.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, nil
}

func decodeJournalEntry(data []byte) (worldtypes.WorldEvent, error) {
	var entry journalEntry
	if err := wire.Unmarshal(data, &entry); err != nil {
		return worldtypes.WorldEvent{}, err
	}
	payload, err := decodeEventPayload(entry.Kind, entry.Payload)
	if err != nil {
		return worldtypes.WorldEvent{}, err
	}
	return worldtypes.WorldEvent{ID: entry.ID, Tick: entry.Tick, AgentID: entry.AgentID, Payload: payload}, nil
}

func decodeEventPayload(kind worldtypes.EventKind, data []byte) (worldtypes.EventPayload, error) {
	switch kind {
	case worldtypes.EventAgentRegistered:
		var v worldtypes.AgentRegisteredEvent
		return decodeInto(data, &v)
	case worldtypes.EventLocationRegistered:
		var v worldtypes.LocationRegisteredEvent
		return decodeInto(data, &v)
	case worldtypes.EventPowerPlantRegistered:
		var v worldtypes.PowerPlantRegisteredEvent
		return decodeInto(data, &v)
	case worldtypes.EventPowerStorageRegistered:
		var v worldtypes.PowerStorageRegisteredEvent
		return decodeInto(data, &v)
	case worldtypes.EventAgentMoved:
		var v worldtypes.AgentMovedEvent
		return decodeInto(data, &v)
	case worldtypes.EventResourceTransferred:
		var v worldtypes.ResourceTransferredEvent
		return decodeInto(data, &v)
	case worldtypes.EventObservationEmitted:
		var v worldtypes.ObservationEmittedEvent
		return decodeInto(data, &v)
	case worldtypes.EventBodyAttributesRecorded:
		var v worldtypes.BodyAttributesRecordedEvent
		return decodeInto(data, &v)
	case worldtypes.EventBodyInterfaceExpanded:
		var v worldtypes.BodyInterfaceExpandedEvent
		return decodeInto(data, &v)
	case worldtypes.EventMaterialTransited:
		var v worldtypes.MaterialTransitedEvent
		return decodeInto(data, &v)
	case worldtypes.EventFactoryBuilt:
		var v worldtypes.FactoryBuiltEvent
		return decodeInto(data, &v)
	case worldtypes.EventRecipeScheduled:
		var v worldtypes.RecipeScheduledEvent
		return decodeInto(data, &v)
	case worldtypes.EventRecipeCompleted:
		var v worldtypes.RecipeCompletedEvent
		return decodeInto(data, &v)
	case worldtypes.EventPowerHarvested:
		var v worldtypes.PowerHarvestedEvent
		return decodeInto(data, &v)
	case worldtypes.EventManifestPatchProposed:
		var v worldtypes.ManifestPatchProposedEvent
		return decodeInto(data, &v)
	case worldtypes.EventManifestPatchShadowed:
		var v worldtypes.ManifestPatchShadowedEvent
		return decodeInto(data, &v)
	case worldtypes.EventManifestPatchApproved:
		var v worldtypes.ManifestPatchApprovedEvent
		return decodeInto(data, &v)
	case worldtypes.EventManifestPatchApplied:
		var v worldtypes.ManifestPatchAppliedEvent
		return decodeInto(data, &v)
	case worldtypes.EventModuleRegistered:
		var v worldtypes.ModuleRegisteredEvent
		return decodeInto(data, &v)
	case worldtypes.EventModuleActivated:
		var v worldtypes.ModuleActivatedEvent
		return decodeInto(data, &v)
	case worldtypes.EventModuleDeactivated:
		var v worldtypes.ModuleDeactivatedEvent
		return decodeInto(data, &v)
	case worldtypes.EventCrisisResolved:
		var v worldtypes.CrisisResolvedEvent
		return decodeInto(data, &v)
	case worldtypes.EventEconomicContractSettled:
		var v worldtypes.EconomicContractSettledEvent
		return decodeInto(data, &v)
	case worldtypes.EventEconomicContractExpired:
		var v worldtypes.EconomicContractExpiredEvent
		return decodeInto(data, &v)
	case worldtypes.EventActionRejected:
		var v worldtypes.ActionRejectedEvent
		return decodeInto(data, &v)
	default:
		return nil, werr.New(werr.KindValidation, "unknown event kind %q", kind)
	}
}

// decodeInto unmarshals data into v (a pointer to a concrete event
// payload type) and returns *v by value as an EventPayload, keeping
// the switch above free of repeated error-handling boilerplate.
func decodeInto[T worldtypes.EventPayload](data []byte, v *T) (worldtypes.EventPayload, error) {
	if err := wire.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return *v, nil
}
