// Package config loads the runtime's tunable knobs from a YAML file.
// Everything here feeds constructors at bootstrap; nothing reads the
// file after startup.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Runtime bundles every tunable the runtime's subsystems accept at
// construction time. Zero values fall back to each subsystem's own
// default.
type Runtime struct {
	World       WorldConfig       `yaml:"world"`
	Segment     SegmentConfig     `yaml:"segment"`
	Consensus   ConsensusConfig   `yaml:"consensus"`
	Membership  MembershipConfig  `yaml:"membership"`
	Observation ObservationConfig `yaml:"observation"`
}

// WorldConfig holds kernel-adjacent knobs.
type WorldConfig struct {
	WorldID             string `yaml:"world_id"`
	MoveCostPerKM       int64  `yaml:"move_cost_per_km_electricity"`
	VisibilityRangeCm   int64  `yaml:"visibility_range_cm"`
	SpaceWidthCm        int64  `yaml:"space_width_cm"`
	SpaceHeightCm       int64  `yaml:"space_height_cm"`
	ActionBatchPerTick  int    `yaml:"action_batch_per_tick"`
	SnapshotEveryEvents int    `yaml:"snapshot_every_events"`
}

// SegmentConfig holds snapshot/journal chunking knobs.
type SegmentConfig struct {
	ChunkSizeBytes int `yaml:"chunk_size_bytes"`
}

// ConsensusConfig holds quorum knobs.
type ConsensusConfig struct {
	Validators         []string `yaml:"validators"`
	QuorumThreshold    int      `yaml:"quorum_threshold"`
	MaxRecordsPerWorld int      `yaml:"max_records_per_world"`
}

// MembershipConfig holds alert and schedule knobs.
type MembershipConfig struct {
	SuppressWindowMs      int64 `yaml:"suppress_window_ms"`
	CheckpointIntervalMs  int64 `yaml:"checkpoint_interval_ms"`
	ReplayStreakCap       int   `yaml:"replay_streak_cap"`
	AlertHotWindowBytes   int64 `yaml:"alert_hot_window_bytes"`
	AutoRevokeMissingKeys bool  `yaml:"auto_revoke_missing_keys"`
}

// ObservationConfig holds logging knobs.
type ObservationConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogAsJSON bool   `yaml:"log_as_json"`
}

// Load reads and decodes path. Unknown fields are rejected so a typo
// in a knob name fails loudly instead of silently using a default.
func Load(path string) (*Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into a Runtime.
func Parse(data []byte) (*Runtime, error) {
	var cfg Runtime
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}
