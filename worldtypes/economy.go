package worldtypes

import (
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	stateCBOREnc     cbor.EncMode
	stateCBOREncOnce sync.Once
)

func stateEncMode() cbor.EncMode {
	stateCBOREncOnce.Do(func() {
		m, err := cbor.CanonicalEncOptions().EncMode()
		if err != nil {
			panic(err)
		}
		stateCBOREnc = m
	})
	return stateCBOREnc
}

// LedgerCell keys a material balance by owning agent and material kind.
type LedgerCell struct {
	Owner AgentID `cbor:"owner"`
	Kind  string  `cbor:"kind"`
}

// FactoryInstance is a built factory, keyed by FactoryID in
// EconomyState.Factories.
type FactoryInstance struct {
	FactoryID  string  `cbor:"factory_id"`
	SpecID     string  `cbor:"spec_id"`
	Owner      AgentID `cbor:"owner"`
	Tier       uint32  `cbor:"tier"`
	PowerDraw  uint64  `cbor:"power_draw"`
}

// RecipeRun is an in-progress recipe execution scheduled against a
// factory. Completion is an absolute tick rather than a per-tick
// countdown so a run's state never mutates between its scheduling and
// completion events.
type RecipeRun struct {
	RunID           string `cbor:"run_id"`
	RecipeID        string `cbor:"recipe_id"`
	FactoryID       string `cbor:"factory_id"`
	Batches         uint64 `cbor:"batches"`
	CompletesAtTick Tick   `cbor:"completes_at_tick"`
	PowerPerCycle   uint64 `cbor:"power_per_cycle"`
}

// EconomyState is the industry fold's state: material ledgers, built
// factories, and in-flight recipe runs. It carries a custom CBOR
// encoding because LedgerCell map keys don't serialize as canonical
// map keys; balances travel as a sorted list instead.
type EconomyState struct {
	Materials map[LedgerCell]uint64      `cbor:"-"`
	Factories map[string]FactoryInstance `cbor:"factories"`
	Runs      map[string]RecipeRun       `cbor:"runs"`
}

// MaterialBalance is the wire form of one Materials cell.
type MaterialBalance struct {
	Owner  AgentID `cbor:"owner"`
	Kind   string  `cbor:"kind"`
	Amount uint64  `cbor:"amount"`
}

type economyStateWire struct {
	Materials []MaterialBalance          `cbor:"materials"`
	Factories map[string]FactoryInstance `cbor:"factories"`
	Runs      map[string]RecipeRun       `cbor:"runs"`
}

// MarshalCBOR encodes the state with Materials as a list sorted by
// (owner, kind) so identical states encode to identical bytes.
func (e EconomyState) MarshalCBOR() ([]byte, error) {
	w := economyStateWire{Factories: e.Factories, Runs: e.Runs}
	w.Materials = make([]MaterialBalance, 0, len(e.Materials))
	for cell, amount := range e.Materials {
		w.Materials = append(w.Materials, MaterialBalance{Owner: cell.Owner, Kind: cell.Kind, Amount: amount})
	}
	sort.Slice(w.Materials, func(i, j int) bool {
		if w.Materials[i].Owner != w.Materials[j].Owner {
			return w.Materials[i].Owner < w.Materials[j].Owner
		}
		return w.Materials[i].Kind < w.Materials[j].Kind
	})
	return stateEncMode().Marshal(w)
}

// UnmarshalCBOR is the inverse of MarshalCBOR.
func (e *EconomyState) UnmarshalCBOR(data []byte) error {
	var w economyStateWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = NewEconomyState()
	if w.Factories != nil {
		e.Factories = w.Factories
	}
	if w.Runs != nil {
		e.Runs = w.Runs
	}
	for _, b := range w.Materials {
		e.Materials[LedgerCell{Owner: b.Owner, Kind: b.Kind}] = b.Amount
	}
	return nil
}

// NewEconomyState returns an empty economy fold state.
func NewEconomyState() EconomyState {
	return EconomyState{
		Materials: make(map[LedgerCell]uint64),
		Factories: make(map[string]FactoryInstance),
		Runs:      make(map[string]RecipeRun),
	}
}

// Clone returns a deep copy.
func (e EconomyState) Clone() EconomyState {
	out := NewEconomyState()
	for k, v := range e.Materials {
		out.Materials[k] = v
	}
	for k, v := range e.Factories {
		out.Factories[k] = v
	}
	for k, v := range e.Runs {
		out.Runs[k] = v
	}
	return out
}

// MoveMaterial transfers amount of kind from one owner cell to another,
// saturating; it never takes a cell negative.
func (e EconomyState) MoveMaterial(from, to AgentID, kind string, amount uint64) {
	fromCell := LedgerCell{Owner: from, Kind: kind}
	toCell := LedgerCell{Owner: to, Kind: kind}
	bal := e.Materials[fromCell]
	moved := amount
	if moved > bal {
		moved = bal
	}
	e.Materials[fromCell] = bal - moved
	e.Materials[toCell] = SatAddU64(e.Materials[toCell], moved)
}

// MetaGrant is an M5 overlay grant awarded to a recipient, tracked until
// it is resolved or settled/expired. Kind "crisis" grants resolve the
// first tick the overlay module observes them; Kind "contract" grants
// settle once delivered or expire at ExpiresAtTick, whichever first.
type MetaGrant struct {
	GrantID      string  `cbor:"grant_id"`
	Recipient    AgentID `cbor:"recipient"`
	Kind         string  `cbor:"kind"`
	Amount       uint64  `cbor:"amount"`
	Active       bool    `cbor:"active"`
	ExpiresAtTick Tick   `cbor:"expires_at_tick"`
}

// GovernanceMetaState is the governance/meta fold's state: manifest
// patch lifecycle bookkeeping and M5 overlay grant ledgers.
type GovernanceMetaState struct {
	PendingPatches map[string]string    `cbor:"pending_patches"` // patch id -> manifest hash it targets
	ShadowPatches  map[string]string    `cbor:"shadow_patches"`
	ApprovedPatches map[string]string   `cbor:"approved_patches"`
	Grants         map[string]MetaGrant `cbor:"grants"`
}

// NewGovernanceMetaState returns an empty governance fold state.
func NewGovernanceMetaState() GovernanceMetaState {
	return GovernanceMetaState{
		PendingPatches:  make(map[string]string),
		ShadowPatches:   make(map[string]string),
		ApprovedPatches: make(map[string]string),
		Grants:          make(map[string]MetaGrant),
	}
}

// Clone returns a deep copy.
func (g GovernanceMetaState) Clone() GovernanceMetaState {
	out := NewGovernanceMetaState()
	for k, v := range g.PendingPatches {
		out.PendingPatches[k] = v
	}
	for k, v := range g.ShadowPatches {
		out.ShadowPatches[k] = v
	}
	for k, v := range g.ApprovedPatches {
		out.ApprovedPatches[k] = v
	}
	for k, v := range g.Grants {
		out.Grants[k] = v
	}
	return out
}
