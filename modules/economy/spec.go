// Package economy implements the economy modules: recipe, product,
// and factory catalogs and their runtime evaluation.
package economy

// ModuleKind discriminates the three catalog entry kinds an economy
// module can describe.
type ModuleKind string

const (
	ModuleKindRecipe  ModuleKind = "recipe"
	ModuleKindProduct ModuleKind = "product"
	ModuleKindFactory ModuleKind = "factory"
)

// MaterialStack is a named, signed quantity of a material. Signed,
// because byproduct/consume lists can express negative adjustments,
// unlike worldtypes.MaterialStack's unsigned inventory amount.
type MaterialStack struct {
	Kind   string `cbor:"kind"`
	Amount int64  `cbor:"amount"`
}

// RecipeSpec is a recipe module's static catalog entry.
type RecipeSpec struct {
	RecipeID           string          `cbor:"recipe_id"`
	DisplayName        string          `cbor:"display_name"`
	Inputs             []MaterialStack `cbor:"inputs"`
	Outputs            []MaterialStack `cbor:"outputs"`
	Byproducts         []MaterialStack `cbor:"byproducts"`
	CycleTicks         uint32          `cbor:"cycle_ticks"`
	PowerPerCycle      int64           `cbor:"power_per_cycle"`
	AllowedFactoryTags []string        `cbor:"allowed_factory_tags"`
	MinFactoryTier     uint8           `cbor:"min_factory_tier"`
}

// ProductSpec is a product module's static catalog entry.
// QualityLevels is carried as opaque pass-through metadata — see
// DESIGN.md's Open Question decision — never interpreted here.
type ProductSpec struct {
	ProductID        string   `cbor:"product_id"`
	DisplayName      string   `cbor:"display_name"`
	Category         string   `cbor:"category"`
	StackLimit       uint32   `cbor:"stack_limit"`
	DecayPerTickBps  uint32   `cbor:"decay_per_tick_bps"`
	QualityLevels    []string `cbor:"quality_levels"`
	Tradable         bool     `cbor:"tradable"`
}

// FactorySpec is a factory module's static catalog entry.
type FactorySpec struct {
	FactoryID          string          `cbor:"factory_id"`
	DisplayName        string          `cbor:"display_name"`
	Tier               uint8           `cbor:"tier"`
	Tags               []string        `cbor:"tags"`
	BuildCost          []MaterialStack `cbor:"build_cost"`
	BuildTimeTicks     uint32          `cbor:"build_time_ticks"`
	BasePowerDraw      int64           `cbor:"base_power_draw"`
	RecipeSlots        uint16          `cbor:"recipe_slots"`
	ThroughputBps      uint32          `cbor:"throughput_bps"`
	MaintenancePerTick int64           `cbor:"maintenance_per_tick"`
}

// ProductValidationRequest asks a product module to validate a stack.
type ProductValidationRequest struct {
	ProductID          string
	Stack              MaterialStack
	DeterministicSeed  uint64
}

// ProductValidationDecision is a product module's validation result.
type ProductValidationDecision struct {
	ProductID     string
	Accepted      bool
	Notes         []string
	StackLimit    uint32
	Tradable      bool
	QualityLevels []string
}

func acceptedProduct(spec ProductSpec) ProductValidationDecision {
	return ProductValidationDecision{
		ProductID: spec.ProductID, Accepted: true,
		StackLimit: spec.StackLimit, Tradable: spec.Tradable, QualityLevels: spec.QualityLevels,
	}
}

func rejectedProduct(spec ProductSpec, notes ...string) ProductValidationDecision {
	return ProductValidationDecision{
		ProductID: spec.ProductID, Accepted: false, Notes: notes,
		StackLimit: spec.StackLimit, Tradable: spec.Tradable, QualityLevels: spec.QualityLevels,
	}
}

// EvaluateProduct validates req.Stack against spec's stack limit.
func EvaluateProduct(spec ProductSpec, req ProductValidationRequest) ProductValidationDecision {
	if req.Stack.Amount < 0 {
		return rejectedProduct(spec, "stack amount must be non-negative")
	}
	if uint32(req.Stack.Amount) > spec.StackLimit {
		return rejectedProduct(spec, "stack exceeds limit")
	}
	return acceptedProduct(spec)
}

// RecipeExecutionRequest asks a recipe module to plan a batch run.
type RecipeExecutionRequest struct {
	RecipeID          string
	FactoryID         string
	DesiredBatches    uint32
	AvailableInputs   []MaterialStack
	AvailablePower    int64
	DeterministicSeed uint64
}

// RecipeExecutionPlan is a recipe module's evaluation result.
type RecipeExecutionPlan struct {
	AcceptedBatches uint32
	Consume         []MaterialStack
	Produce         []MaterialStack
	Byproducts      []MaterialStack
	PowerRequired   int64
	DurationTicks   uint32
	RejectReason    string
}

func (p RecipeExecutionPlan) IsRejected() bool { return p.RejectReason != "" }

func rejectedPlan(reason string) RecipeExecutionPlan {
	return RecipeExecutionPlan{RejectReason: reason}
}

// EvaluateRecipe plans the largest batch count (capped at
// req.DesiredBatches) that req's available inputs and power can
// support, scaling spec's per-batch input/output/byproduct/power
// quantities linearly.
func EvaluateRecipe(spec RecipeSpec, req RecipeExecutionRequest) RecipeExecutionPlan {
	if req.DesiredBatches == 0 {
		return rejectedPlan("desired batches must be positive")
	}
	available := make(map[string]int64, len(req.AvailableInputs))
	for _, s := range req.AvailableInputs {
		available[s.Kind] += s.Amount
	}

	batches := req.DesiredBatches
	for _, in := range spec.Inputs {
		if in.Amount <= 0 {
			continue
		}
		maxByInput := uint32(available[in.Kind] / in.Amount)
		if maxByInput < batches {
			batches = maxByInput
		}
	}
	if spec.PowerPerCycle > 0 {
		maxByPower := uint32(req.AvailablePower / spec.PowerPerCycle)
		if maxByPower < batches {
			batches = maxByPower
		}
	}
	if batches == 0 {
		return rejectedPlan("insufficient inputs or power for one batch")
	}

	scale := func(stacks []MaterialStack) []MaterialStack {
		out := make([]MaterialStack, len(stacks))
		for i, s := range stacks {
			out[i] = MaterialStack{Kind: s.Kind, Amount: s.Amount * int64(batches)}
		}
		return out
	}
	return RecipeExecutionPlan{
		AcceptedBatches: batches,
		Consume:         scale(spec.Inputs),
		Produce:         scale(spec.Outputs),
		Byproducts:      scale(spec.Byproducts),
		PowerRequired:   spec.PowerPerCycle * int64(batches),
		DurationTicks:   spec.CycleTicks,
	}
}

// FactoryBuildRequest asks a factory module to evaluate a build action.
type FactoryBuildRequest struct {
	FactoryID       string
	SiteID          string
	Builder         string
	AvailableInputs []MaterialStack
	AvailablePower  int64
}

// FactoryBuildDecision is a factory module's build evaluation result.
type FactoryBuildDecision struct {
	Accepted      bool
	Consume       []MaterialStack
	DurationTicks uint32
	RejectReason  string
}

func EvaluateFactoryBuild(spec FactorySpec, req FactoryBuildRequest) FactoryBuildDecision {
	available := make(map[string]int64, len(req.AvailableInputs))
	for _, s := range req.AvailableInputs {
		available[s.Kind] += s.Amount
	}
	for _, cost := range spec.BuildCost {
		if available[cost.Kind] < cost.Amount {
			return FactoryBuildDecision{RejectReason: "insufficient build materials"}
		}
	}
	if req.AvailablePower < spec.BasePowerDraw {
		return FactoryBuildDecision{RejectReason: "insufficient power"}
	}
	return FactoryBuildDecision{Accepted: true, Consume: spec.BuildCost, DurationTicks: spec.BuildTimeTicks}
}
