package kernel

import (
	"bytes"
	"io"

	"github.com/hashicorp/raft"

	"github.com/eng-cc/agent-world-sub008/internal/obslog"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// actionEnvelope is the wire-encoded form of a submitted action, with
// Payload independently CBOR-encoded so Apply can dispatch on Kind to
// the concrete payload type before decoding it.
type actionEnvelope struct {
	ID      worldtypes.ActionID
	AgentID worldtypes.AgentID
	Kind    worldtypes.ActionKind
	Payload []byte
}

// EncodeAction produces the bytes a raft.Log's Data should carry for
// action, the counterpart Apply decodes.
func EncodeAction(action worldtypes.Action) ([]byte, error) {
	payload, err := wire.Marshal(action.Payload)
	if err != nil {
		return nil, err
	}
	env := actionEnvelope{ID: action.ID, AgentID: action.AgentID, Kind: action.Payload.ActionKind(), Payload: payload}
	return wire.Marshal(env)
}

func decodeAction(data []byte) (worldtypes.Action, error) {
	var env actionEnvelope
	if err := wire.Unmarshal(data, &env); err != nil {
		return worldtypes.Action{}, err
	}
	payload, err := decodeActionPayload(env.Kind, env.Payload)
	if err != nil {
		return worldtypes.Action{}, err
	}
	return worldtypes.Action{ID: env.ID, AgentID: env.AgentID, Payload: payload}, nil
}

func decodeActionPayload(kind worldtypes.ActionKind, data []byte) (worldtypes.ActionPayload, error) {
	switch kind {
	case worldtypes.ActionRegisterAgent:
		var v worldtypes.RegisterAgentAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionRegisterLocation:
		var v worldtypes.RegisterLocationAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionRegisterPowerPlant:
		var v worldtypes.RegisterPowerPlantAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionRegisterPowerStorage:
		var v worldtypes.RegisterPowerStorageAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionQueryObservation:
		var v worldtypes.QueryObservationAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionMove:
		var v worldtypes.MoveAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionTransfer:
		var v worldtypes.TransferAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionRecordBodyAttributes:
		var v worldtypes.RecordBodyAttributesAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionExpandBodyInterface:
		var v worldtypes.ExpandBodyInterfaceAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionScheduleRecipe:
		var v worldtypes.ScheduleRecipeAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionBuildFactory:
		var v worldtypes.BuildFactoryAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionProposeManifestPatch:
		var v worldtypes.ProposeManifestPatchAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionShadowManifestPatch:
		var v worldtypes.ShadowManifestPatchAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionApproveManifestPatch:
		var v worldtypes.ApproveManifestPatchAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionApplyManifestPatch:
		var v worldtypes.ApplyManifestPatchAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionActivateModule:
		var v worldtypes.ActivateModuleAction
		return decodeActionInto(data, &v)
	case worldtypes.ActionDeactivateModule:
		var v worldtypes.DeactivateModuleAction
		return decodeActionInto(data, &v)
	default:
		return nil, werr.New(werr.KindValidation, "action kind %q is not submittable through the log", kind)
	}
}

func decodeActionInto[T worldtypes.ActionPayload](data []byte, v *T) (worldtypes.ActionPayload, error) {
	if err := wire.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return *v, nil
}

// Apply implements raft.FSM: it decodes the log entry into an action
// and folds it through Submit. The journal append Submit performs is
// redundant with raft's own log persistence when raft drives this
// FSM directly; callers that run World without raft (see Submit) are
// the ones relying on it.
func (w *World) Apply(log *raft.Log) interface{} {
	action, err := decodeAction(log.Data)
	if err != nil {
		return err
	}
	events, err := w.Submit(action)
	if err != nil {
		return err
	}
	return events
}

// fsmSnapshot carries a point-in-time CBOR encoding of the world
// state and governance manifest.
type fsmSnapshot struct {
	data []byte
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := sink.Write(s.data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}

type snapshotDoc struct {
	State    *worldtypes.WorldState
	Manifest []byte
}

// Snapshot implements raft.FSM.
func (w *World) Snapshot() (raft.FSMSnapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	manifestBytes, err := wire.Marshal(w.manifestDoc)
	if err != nil {
		return nil, err
	}
	doc := snapshotDoc{State: w.state.Clone(), Manifest: manifestBytes}
	data, err := wire.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return &fsmSnapshot{data: data}, nil
}

// Restore implements raft.FSM.
func (w *World) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return err
	}
	var doc snapshotDoc
	if err := wire.Unmarshal(buf.Bytes(), &doc); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = doc.State
	if err := wire.Unmarshal(doc.Manifest, &w.manifestDoc); err != nil {
		return err
	}
	obslog.Logger.Debug().Str("world_id", string(w.state.WorldID)).Msg("restored world snapshot")
	return nil
}
