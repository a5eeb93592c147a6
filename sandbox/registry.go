package sandbox

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// ModuleManifest describes a registered module's metadata and limits.
type ModuleManifest struct {
	ID     worldtypes.ModuleID
	Active bool
	Limits Limits
}

// Registry is an ordered, lookup-indexed set of registered modules:
// insertion order is preserved in Order so deterministic call dispatch
// (e.g. iterating "all active rule modules") does not depend on Go's
// unordered map iteration. Implementations this binary was built with
// are provided separately from their registry records, so a manifest
// patch can register (create the record for) a provided module without
// injecting code.
type Registry struct {
	order     []worldtypes.ModuleID
	available map[worldtypes.ModuleID]BuiltinModule
	modules   map[worldtypes.ModuleID]BuiltinModule
	manifest  map[worldtypes.ModuleID]ModuleManifest
}

func NewRegistry() *Registry {
	return &Registry{
		available: make(map[worldtypes.ModuleID]BuiltinModule),
		modules:   make(map[worldtypes.ModuleID]BuiltinModule),
		manifest:  make(map[worldtypes.ModuleID]ModuleManifest),
	}
}

// Provide makes a compiled-in implementation available for later
// registration without creating a registry record.
func (r *Registry) Provide(m BuiltinModule) {
	r.available[m.ID()] = m
}

// Register adds a module record, inactive by default, and makes its
// implementation available.
func (r *Registry) Register(m BuiltinModule, limits Limits) {
	id := m.ID()
	r.available[id] = m
	if _, exists := r.modules[id]; !exists {
		r.order = append(r.order, id)
	}
	r.modules[id] = m
	r.manifest[id] = ModuleManifest{ID: id, Active: false, Limits: limits}
}

// RegisterID inserts the registry record for a provided module id.
// Registering an already-registered id is a no-op; an id with no
// provided implementation is an error (a manifest can only register
// modules this binary was built with).
func (r *Registry) RegisterID(id worldtypes.ModuleID) error {
	if _, registered := r.modules[id]; registered {
		return nil
	}
	m, ok := r.available[id]
	if !ok {
		return werr.New(werr.KindNotFound, "module %s has no provided implementation", id)
	}
	r.order = append(r.order, id)
	r.modules[id] = m
	r.manifest[id] = ModuleManifest{ID: id, Active: false}
	return nil
}

// IsRegistered reports whether id has a registry record.
func (r *Registry) IsRegistered(id worldtypes.ModuleID) bool {
	_, ok := r.manifest[id]
	return ok
}

func (r *Registry) Activate(id worldtypes.ModuleID) error {
	m, ok := r.manifest[id]
	if !ok {
		return werr.New(werr.KindNotFound, "module %s is not registered", id)
	}
	m.Active = true
	r.manifest[id] = m
	return nil
}

func (r *Registry) Deactivate(id worldtypes.ModuleID) error {
	m, ok := r.manifest[id]
	if !ok {
		return werr.New(werr.KindNotFound, "module %s is not registered", id)
	}
	m.Active = false
	r.manifest[id] = m
	return nil
}

func (r *Registry) Get(id worldtypes.ModuleID) (BuiltinModule, bool) {
	m, ok := r.modules[id]
	return m, ok
}

func (r *Registry) IsActive(id worldtypes.ModuleID) bool {
	return r.manifest[id].Active
}

// Active returns every active module in registration order.
func (r *Registry) Active() []BuiltinModule {
	var out []BuiltinModule
	for _, id := range r.order {
		if r.manifest[id].Active {
			out = append(out, r.modules[id])
		}
	}
	return out
}

// ChangeSet folds register/activate/deactivate operations recovered
// from a manifest patch's content.module_changes field into registry
// mutations.
type ChangeSet struct {
	Register   []worldtypes.ModuleID
	Activate   []worldtypes.ModuleID
	Deactivate []worldtypes.ModuleID
}

// ApplyChangeSet folds cs into r: register, then activate, then
// deactivate, matching the order a manifest's module_changes set is
// applied in. Register entries with no provided implementation are
// skipped — a manifest patch can only register modules this binary was
// built with, it cannot inject new code.
func (r *Registry) ApplyChangeSet(cs ChangeSet) {
	for _, id := range cs.Register {
		_ = r.RegisterID(id)
	}
	for _, id := range cs.Activate {
		_ = r.Activate(id)
	}
	for _, id := range cs.Deactivate {
		_ = r.Deactivate(id)
	}
}
