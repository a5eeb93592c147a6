package kernel

import (
	"encoding/json"
	"os"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

const (
	SnapshotVersion = 1
	JournalVersion  = 1
)

// Snapshot is the versioned materialization of a world at a point in
// its journal. State and the queued actions travel as canonical CBOR
// inside a JSON envelope so the same bytes hash identically on every
// node while the envelope stays greppable on disk.
type Snapshot struct {
	Version      int                  `json:"version"`
	WorldID      worldtypes.WorldID   `json:"world_id"`
	State        []byte               `json:"state"`
	Manifest     []byte               `json:"manifest"`
	JournalLen   uint64               `json:"journal_len"`
	NextEventID  worldtypes.EventID   `json:"next_event_id"`
	NextActionID worldtypes.ActionID  `json:"next_action_id"`
	Pending      [][]byte             `json:"pending_actions"`
}

// JournalDoc is the versioned on-disk journal: the full ordered event
// list, each entry wire-encoded.
type JournalDoc struct {
	Version int      `json:"version"`
	Events  [][]byte `json:"events"`
}

// TakeSnapshot materializes the world's current state, manifest, queued
// actions, and journal cursor.
func (w *World) TakeSnapshot() (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	stateBytes, err := wire.Marshal(w.state.Clone())
	if err != nil {
		return Snapshot{}, err
	}
	manifestBytes, err := wire.Marshal(w.manifestDoc)
	if err != nil {
		return Snapshot{}, err
	}
	events, err := w.journal.Events()
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:      SnapshotVersion,
		WorldID:      w.state.WorldID,
		State:        stateBytes,
		Manifest:     manifestBytes,
		JournalLen:   uint64(len(events)),
		NextEventID:  w.state.NextEventID,
		NextActionID: w.state.NextActionID,
	}
	for _, a := range w.pending {
		data, err := EncodeAction(a)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Pending = append(snap.Pending, data)
	}
	return snap, nil
}

// DumpJournal returns the full journal as a versioned document.
func (w *World) DumpJournal() (JournalDoc, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	events, err := w.journal.Events()
	if err != nil {
		return JournalDoc{}, err
	}
	doc := JournalDoc{Version: JournalVersion}
	for _, evt := range events {
		data, err := encodeJournalEntry(evt)
		if err != nil {
			return JournalDoc{}, err
		}
		doc.Events = append(doc.Events, data)
	}
	return doc, nil
}

// SaveSnapshotFile / LoadSnapshotFile persist the snapshot envelope as
// a JSON file. The loader rejects unknown versions.
func SaveSnapshotFile(path string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func LoadSnapshotFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, werr.Wrap(werr.KindValidation, err, "decode snapshot file")
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, werr.New(werr.KindValidation, "unsupported snapshot version %d", snap.Version)
	}
	return snap, nil
}

func SaveJournalFile(path string, doc JournalDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadJournalFile reads a journal document, rejecting unknown versions
// and documents shorter than minLen (a snapshot's JournalLen cursor
// must always fit inside the journal it came from).
func LoadJournalFile(path string, minLen uint64) (JournalDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return JournalDoc{}, err
	}
	var doc JournalDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return JournalDoc{}, werr.Wrap(werr.KindValidation, err, "decode journal file")
	}
	if doc.Version != JournalVersion {
		return JournalDoc{}, werr.New(werr.KindValidation, "unsupported journal version %d", doc.Version)
	}
	if uint64(len(doc.Events)) < minLen {
		return JournalDoc{}, werr.New(werr.KindStateMismatch, "journal holds %d events, snapshot expects at least %d", len(doc.Events), minLen)
	}
	return doc, nil
}

// RestoreWorld rebuilds a World from a snapshot plus the journal tail
// past the snapshot's JournalLen cursor, folding each tail event
// through FoldEvent. cfg supplies the collaborators (registry, journal
// store, broker); its WorldID is overridden by the snapshot's.
func RestoreWorld(cfg Config, snap Snapshot, journal JournalDoc) (*World, error) {
	if snap.Version != SnapshotVersion {
		return nil, werr.New(werr.KindValidation, "unsupported snapshot version %d", snap.Version)
	}
	if uint64(len(journal.Events)) < snap.JournalLen {
		return nil, werr.New(werr.KindStateMismatch, "journal holds %d events, snapshot expects at least %d", len(journal.Events), snap.JournalLen)
	}

	var state worldtypes.WorldState
	if err := wire.Unmarshal(snap.State, &state); err != nil {
		return nil, werr.Wrap(werr.KindValidation, err, "decode snapshot state")
	}
	w := NewWorld(cfg)
	w.state = restoredState(&state)
	if len(snap.Manifest) > 0 {
		if err := wire.Unmarshal(snap.Manifest, &w.manifestDoc); err != nil {
			return nil, werr.Wrap(werr.KindValidation, err, "decode snapshot manifest")
		}
	}
	w.state.NextEventID = snap.NextEventID
	w.state.NextActionID = snap.NextActionID

	for _, data := range snap.Pending {
		action, err := decodeAction(data)
		if err != nil {
			return nil, err
		}
		w.pending = append(w.pending, action)
	}

	for _, data := range journal.Events[snap.JournalLen:] {
		evt, err := decodeJournalEntry(data)
		if err != nil {
			return nil, err
		}
		if err := FoldEvent(w.state, evt); err != nil {
			return nil, err
		}
		if err := w.journal.Append(evt); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// restoredState re-initializes any nil maps a CBOR decode of an empty
// state can produce.
func restoredState(s *worldtypes.WorldState) *worldtypes.WorldState {
	if s.Agents == nil {
		s.Agents = make(map[worldtypes.AgentID]*worldtypes.AgentState)
	}
	if s.Locations == nil {
		s.Locations = make(map[worldtypes.LocationID]*worldtypes.LocationState)
	}
	if s.PowerPlants == nil {
		s.PowerPlants = make(map[string]*worldtypes.PowerPlantState)
	}
	if s.PowerStores == nil {
		s.PowerStores = make(map[string]*worldtypes.PowerStorageState)
	}
	if s.ModuleState == nil {
		s.ModuleState = make(map[worldtypes.ModuleID][]byte)
	}
	if s.Economy.Materials == nil {
		s.Economy = worldtypes.NewEconomyState()
	}
	if s.Governance.Grants == nil {
		s.Governance = worldtypes.NewGovernanceMetaState()
	}
	return s
}
