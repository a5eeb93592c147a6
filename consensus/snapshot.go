package consensus

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

const snapshotVersion = 1

// snapshotDoc is the on-disk encoding of an engine's full voting
// state. Records are stored as an ordered list so the file is stable
// across saves of the same state.
type snapshotDoc struct {
	Version    int       `json:"version"`
	Validators []string  `json:"validators"`
	Threshold  int       `json:"quorum_threshold"`
	MaxRecords int       `json:"max_records_per_world"`
	Records    []*Record `json:"records"`
}

// SaveSnapshotToPath writes the engine's validator set, threshold, and
// every record to path.
func (e *Engine) SaveSnapshotToPath(path string) error {
	e.mu.Lock()
	doc := snapshotDoc{
		Version:    snapshotVersion,
		Validators: append([]string(nil), e.validators...),
		Threshold:  e.threshold,
		MaxRecords: e.maxRecords,
	}
	for _, r := range e.records {
		doc.Records = append(doc.Records, r)
	}
	e.mu.Unlock()

	sort.Slice(doc.Records, func(i, j int) bool {
		a, b := doc.Records[i], doc.Records[j]
		if a.WorldID != b.WorldID {
			return a.WorldID < b.WorldID
		}
		if a.Height != b.Height {
			return a.Height < b.Height
		}
		return a.BlockHash < b.BlockHash
	})

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSnapshotFromPath rebuilds an engine from a saved snapshot. It
// rejects unknown versions, votes whose ValidatorID disagrees with the
// key they were stored under, and votes from validators outside the
// record's frozen validator set.
func LoadSnapshotFromPath(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, werr.Wrap(werr.KindValidation, err, "decode consensus snapshot")
	}
	if doc.Version != snapshotVersion {
		return nil, werr.New(werr.KindValidation, "unsupported consensus snapshot version %d", doc.Version)
	}

	e := NewEngine(Config{
		Validators:         doc.Validators,
		QuorumThreshold:    doc.Threshold,
		MaxRecordsPerWorld: doc.MaxRecords,
	})
	for _, r := range doc.Records {
		for key, vote := range r.Votes {
			if vote.ValidatorID != key {
				return nil, werr.New(werr.KindValidation, "consensus snapshot: vote stored under %q claims validator %q", key, vote.ValidatorID)
			}
			if !containsValidator(r.ValidatorSet, vote.ValidatorID) {
				return nil, werr.New(werr.KindValidation, "consensus snapshot: vote from unknown validator %q on world %s height %d", vote.ValidatorID, r.WorldID, r.Height)
			}
		}
		k := recordKey{r.WorldID, r.Height, r.BlockHash}
		e.records[k] = r
		e.order[r.WorldID] = append(e.order[r.WorldID], k)
	}
	return e, nil
}
