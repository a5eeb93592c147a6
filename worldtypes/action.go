package worldtypes

// ActionKind discriminates the concrete type carried in an Action's
// Payload field.
type ActionKind string

const (
	ActionRegisterAgent        ActionKind = "register_agent"
	ActionRegisterLocation     ActionKind = "register_location"
	ActionRegisterPowerPlant   ActionKind = "register_power_plant"
	ActionRegisterPowerStorage ActionKind = "register_power_storage"
	ActionQueryObservation     ActionKind = "query_observation"
	ActionMove                 ActionKind = "move"
	ActionTransfer             ActionKind = "transfer"
	ActionRecordBodyAttributes ActionKind = "record_body_attributes"
	ActionExpandBodyInterface  ActionKind = "expand_body_interface"
	ActionScheduleRecipe       ActionKind = "schedule_recipe"
	ActionBuildFactory         ActionKind = "build_factory"
	ActionProposeManifestPatch ActionKind = "propose_manifest_patch"
	ActionShadowManifestPatch  ActionKind = "shadow_manifest_patch"
	ActionApproveManifestPatch ActionKind = "approve_manifest_patch"
	ActionApplyManifestPatch   ActionKind = "apply_manifest_patch"
	ActionActivateModule       ActionKind = "activate_module"
	ActionDeactivateModule     ActionKind = "deactivate_module"

	// Override-only kinds, produced by rule modules, never submitted
	// externally.
	ActionEmitObservation      ActionKind = "emit_observation"
	ActionEmitResourceTransfer ActionKind = "emit_resource_transfer"
)

// ActionPayload is implemented by every concrete action payload type.
type ActionPayload interface {
	ActionKind() ActionKind
}

// Action is one unit of work submitted to the kernel, assigned a
// monotone ActionID once admitted.
type Action struct {
	ID      ActionID
	AgentID AgentID
	Payload ActionPayload
}

// RegisterAgentAction introduces a new agent, either at a registered
// location (Position is then taken from it) or free at Position.
type RegisterAgentAction struct {
	NewAgentID AgentID
	LocationID LocationID
	Position   Position
}

func (RegisterAgentAction) ActionKind() ActionKind { return ActionRegisterAgent }

type RegisterLocationAction struct {
	LocationID LocationID
	Position   Position
}

func (RegisterLocationAction) ActionKind() ActionKind { return ActionRegisterLocation }

type RegisterPowerPlantAction struct {
	PlantID     string
	Owner       PowerOwner
	Capacity    uint64
	RatePerTick uint64
}

func (RegisterPowerPlantAction) ActionKind() ActionKind { return ActionRegisterPowerPlant }

type RegisterPowerStorageAction struct {
	StorageID     string
	Owner         PowerOwner
	Capacity      uint64
	ChargeRate    uint64
	DischargeRate uint64
}

func (RegisterPowerStorageAction) ActionKind() ActionKind { return ActionRegisterPowerStorage }

// QueryObservationAction asks for the set of agents visible from the
// submitting agent's position. The visibility rule module rewrites it
// into an EmitObservation override.
type QueryObservationAction struct{}

func (QueryObservationAction) ActionKind() ActionKind { return ActionQueryObservation }

// MoveAction targets either a registered location (ToLocation set, the
// kernel resolves its position) or a raw Target position.
type MoveAction struct {
	Target     Position
	ToLocation LocationID
}

func (MoveAction) ActionKind() ActionKind { return ActionMove }

type TransferAction struct {
	To     AgentID
	Kind   ResourceKind
	Amount uint64
}

func (TransferAction) ActionKind() ActionKind { return ActionTransfer }

type RecordBodyAttributesAction struct {
	SlotKind string
	Delta    map[string]int64
}

func (RecordBodyAttributesAction) ActionKind() ActionKind { return ActionRecordBodyAttributes }

type ExpandBodyInterfaceAction struct {
	ConsumesCargoKind string
	ConsumesAmount    uint64
	NewSlotKind       string
}

func (ExpandBodyInterfaceAction) ActionKind() ActionKind { return ActionExpandBodyInterface }

type ScheduleRecipeAction struct {
	RecipeID       string
	FactoryID      string
	DesiredBatches uint64
}

func (ScheduleRecipeAction) ActionKind() ActionKind { return ActionScheduleRecipe }

type BuildFactoryAction struct {
	FactoryID string
	SpecID    string
	Tier      uint32
	PowerDraw uint64
}

func (BuildFactoryAction) ActionKind() ActionKind { return ActionBuildFactory }

type ProposeManifestPatchAction struct {
	PatchID  string
	BaseHash string
	Ops      []byte // CBOR-encoded []manifest.PatchOp, decoded by kernel
}

func (ProposeManifestPatchAction) ActionKind() ActionKind { return ActionProposeManifestPatch }

type ShadowManifestPatchAction struct{ PatchID string }

func (ShadowManifestPatchAction) ActionKind() ActionKind { return ActionShadowManifestPatch }

type ApproveManifestPatchAction struct{ PatchID string }

func (ApproveManifestPatchAction) ActionKind() ActionKind { return ActionApproveManifestPatch }

type ApplyManifestPatchAction struct{ PatchID string }

func (ApplyManifestPatchAction) ActionKind() ActionKind { return ActionApplyManifestPatch }

type ActivateModuleAction struct{ ModuleID ModuleID }

func (ActivateModuleAction) ActionKind() ActionKind { return ActionActivateModule }

type DeactivateModuleAction struct{ ModuleID ModuleID }

func (DeactivateModuleAction) ActionKind() ActionKind { return ActionDeactivateModule }

// EmitObservationAction is produced only as a rule module's override
// action, never submitted by a caller.
type EmitObservationAction struct {
	Origin     AgentID
	VisibleIDs []AgentID
}

func (EmitObservationAction) ActionKind() ActionKind { return ActionEmitObservation }

// EmitResourceTransferAction is produced only as a rule module's
// override action for co-located transfers.
type EmitResourceTransferAction struct {
	From, To AgentID
	Kind     ResourceKind
	Amount   uint64
}

func (EmitResourceTransferAction) ActionKind() ActionKind { return ActionEmitResourceTransfer }
