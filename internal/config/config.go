// Package config holds the tuning configuration for the presence pipeline.
// Fields are pointers so a JSON file can override any subset; the Get*
// accessors supply defaults for everything left unset.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration. The section names match the dot-path
// groups used throughout the documentation (zone.*, tracker.*, fusion.*,
// state_machine.*, filter.*, cache.*).
type Config struct {
	Zone         ZoneConfig         `json:"zone,omitempty"`
	Tracker      TrackerConfig      `json:"tracker,omitempty"`
	Fusion       FusionConfig       `json:"fusion,omitempty"`
	StateMachine StateMachineConfig `json:"state_machine,omitempty"`
	Filter       FilterConfig       `json:"filter,omitempty"`
	Cache        CacheConfig        `json:"cache,omitempty"`
}

// ZoneConfig describes the stage region in normalized frame coordinates.
type ZoneConfig struct {
	Shape *string `json:"shape,omitempty"` // rectangle | polygon | ellipse

	// Rectangle bounds.
	Left   *float64 `json:"left,omitempty"`
	Right  *float64 `json:"right,omitempty"`
	Top    *float64 `json:"top,omitempty"`
	Bottom *float64 `json:"bottom,omitempty"`

	// Polygon vertices, in order.
	Points []ZonePoint `json:"points,omitempty"`

	// Ellipse center and full axis extents.
	CenterX *float64 `json:"center_x,omitempty"`
	CenterY *float64 `json:"center_y,omitempty"`
	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`

	// Fraction of the frame counted as "near an edge" for exit checks.
	ExitThreshold *float64 `json:"exit_threshold,omitempty"`

	// Minimum observed positions before adaptive calibration succeeds.
	CalibrationMinSamples *int `json:"calibration_min_samples,omitempty"`
}

// ZonePoint is one polygon vertex.
type ZonePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TrackerConfig tunes identity matching, lifecycle hysteresis and the
// detection quality filter.
type TrackerConfig struct {
	MaxMatchDistance     *float64 `json:"max_match_distance,omitempty"`
	MaxDisappearedFrames *int     `json:"max_disappeared_frames,omitempty"`
	PositionHistory      *int     `json:"position_history,omitempty"`
	ExitSpeed            *float64 `json:"exit_speed,omitempty"` // frame-fractions per second

	EnterStabilitySeconds *float64 `json:"enter_stability_seconds,omitempty"`
	ExitStabilitySeconds  *float64 `json:"exit_stability_seconds,omitempty"`
	DormantTimeoutSeconds *float64 `json:"dormant_timeout_seconds,omitempty"`

	// Quality filter.
	MinDetectionConfidence *float64 `json:"min_detection_confidence,omitempty"`
	MinBoxAreaFraction     *float64 `json:"min_box_area_fraction,omitempty"`
	MinAspectRatio         *float64 `json:"min_aspect_ratio,omitempty"`
	MaxAspectRatio         *float64 `json:"max_aspect_ratio,omitempty"`
	MinVisibleKeypoints    *int     `json:"min_visible_keypoints,omitempty"`
	KeypointConfidence     *float64 `json:"keypoint_confidence,omitempty"`
	MinKeypointCoverage    *float64 `json:"min_keypoint_coverage,omitempty"`
	MinVerticalSpan        *float64 `json:"min_vertical_span,omitempty"`

	// Bottom fraction of the frame treated as audience, not stage.
	AudienceZoneFraction *float64 `json:"audience_zone_fraction,omitempty"`

	// Frame edges a new identity may legitimately enter from.
	ValidEntryEdges []string `json:"valid_entry_edges,omitempty"`

	// Keep only the largest detection per frame.
	SinglePerformer *bool `json:"single_performer,omitempty"`
}

// FusionConfig tunes the multi-signal exit-confidence fusion.
type FusionConfig struct {
	PositionWeight   *float64 `json:"position_weight,omitempty"`
	VelocityWeight   *float64 `json:"velocity_weight,omitempty"`
	ZoneWeight       *float64 `json:"zone_weight,omitempty"`
	AppearanceWeight *float64 `json:"appearance_weight,omitempty"`
	ContextWeight    *float64 `json:"context_weight,omitempty"`

	ExitThreshold  *float64 `json:"exit_threshold,omitempty"`
	EnterThreshold *float64 `json:"enter_threshold,omitempty"`

	SmoothingAlpha    *float64 `json:"smoothing_alpha,omitempty"`
	RecentWindow      *int     `json:"recent_window,omitempty"`
	SignalHistory     *int     `json:"signal_history,omitempty"`
	StaleAfterSeconds *float64 `json:"stale_after_seconds,omitempty"`
	ConfidenceDecay   *float64 `json:"confidence_decay,omitempty"`
}

// StateMachineConfig tunes the performance state machine and role learning.
type StateMachineConfig struct {
	Strategy *string `json:"strategy,omitempty"` // heuristic | bayes

	TypicalIntroDuration   *float64 `json:"typical_intro_duration,omitempty"`
	TypicalOutroDuration   *float64 `json:"typical_outro_duration,omitempty"`
	MinPerformanceDuration *float64 `json:"min_performance_duration,omitempty"`

	// Role learning thresholds.
	HostMaxAvgDuration      *float64 `json:"host_max_avg_duration,omitempty"`
	HostMinEntries          *int     `json:"host_min_entries,omitempty"`
	HostShortDuration       *float64 `json:"host_short_duration,omitempty"`
	PerformerMinAvgDuration *float64 `json:"performer_min_avg_duration,omitempty"`
	PerformerLongDuration   *float64 `json:"performer_long_duration,omitempty"`
}

// FilterConfig tunes the final segment assembly.
type FilterConfig struct {
	MinDuration        *float64 `json:"min_duration,omitempty"`
	MaxDuration        *float64 `json:"max_duration,omitempty"`
	MergeCloseSegments *bool    `json:"merge_close_segments,omitempty"`
	MergeThreshold     *float64 `json:"merge_threshold,omitempty"`
	BufferBefore       *float64 `json:"buffer_before,omitempty"`
	BufferAfter        *float64 `json:"buffer_after,omitempty"`
}

// CacheConfig tunes the observation cache.
type CacheConfig struct {
	Enabled      *bool   `json:"enabled,omitempty"`
	Directory    *string `json:"directory,omitempty"`
	MaxSizeBytes *int64  `json:"max_size_bytes,omitempty"`
}

// Defaults. The numeric values were hand-tuned against recorded open-mic
// footage; treat them as a matched set when adjusting.
const (
	DefaultExitThreshold         = 0.20
	DefaultCalibrationMinSamples = 100

	DefaultMaxMatchDistance     = 0.15
	DefaultMaxDisappearedFrames = 30
	DefaultPositionHistory      = 5
	DefaultExitSpeed            = 0.25
	DefaultEnterStability       = 1.5
	DefaultExitStability        = 2.0
	DefaultDormantTimeout       = 10.0

	DefaultMinDetectionConfidence = 0.5
	DefaultMinBoxAreaFraction     = 0.02
	DefaultMinAspectRatio         = 1.3
	DefaultMaxAspectRatio         = 3.2
	DefaultMinVisibleKeypoints    = 7
	DefaultKeypointConfidence     = 0.3
	DefaultMinKeypointCoverage    = 0.30
	DefaultMinVerticalSpan        = 0.50
	DefaultAudienceZoneFraction   = 0.25

	DefaultPositionWeight   = 0.15
	DefaultVelocityWeight   = 0.25
	DefaultZoneWeight       = 0.20
	DefaultAppearanceWeight = 0.20
	DefaultContextWeight    = 0.20
	DefaultFusionExit       = 0.7
	DefaultFusionEnter      = 0.7
	DefaultSmoothingAlpha   = 0.7
	DefaultRecentWindow     = 5
	DefaultSignalHistory    = 30
	DefaultStaleAfter       = 1.0
	DefaultConfidenceDecay  = 0.95

	DefaultTypicalIntroDuration  = 10.0
	DefaultTypicalOutroDuration  = 5.0
	DefaultMinPerformance        = 30.0
	DefaultHostMaxAvgDuration    = 30.0
	DefaultHostMinEntries        = 3
	DefaultHostShortDuration     = 15.0
	DefaultPerformerMinAvg       = 60.0
	DefaultPerformerLongDuration = 120.0

	DefaultMinSegmentDuration = 180.0
	DefaultMaxSegmentDuration = 1800.0
	DefaultMergeThreshold     = 10.0
	DefaultBufferBefore       = 10.0
	DefaultBufferAfter        = 10.0

	DefaultCacheMaxSizeBytes = 10 << 30 // 10 GiB
)

// DefaultCacheDirName is the cache directory created under the user home
// directory when cache.directory is unset.
const DefaultCacheDirName = ".stagecut/cache"

const (
	ShapeRectangle = "rectangle"
	ShapePolygon   = "polygon"
	ShapeEllipse   = "ellipse"
)

const (
	StrategyHeuristic = "heuristic"
	StrategyBayes     = "bayes"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with every field unset; the Get* accessors supply
// all defaults, so an empty config is fully usable.
func Empty() *Config {
	return &Config{}
}

// Load reads a JSON config file. Fields omitted from the file keep their
// defaults, so partial configs are safe. This is the only place a
// configuration error surfaces; once Load succeeds the pipeline never
// re-validates.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that explicitly set values are coherent. Unset fields are
// always valid because the defaults are.
func (c *Config) Validate() error {
	if err := c.Zone.validate(); err != nil {
		return err
	}
	if err := c.Tracker.validate(); err != nil {
		return err
	}
	if err := c.Fusion.validate(); err != nil {
		return err
	}
	if err := c.StateMachine.validate(); err != nil {
		return err
	}
	if err := c.Filter.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	return nil
}

func (z *ZoneConfig) validate() error {
	switch z.GetShape() {
	case ShapeRectangle:
		if z.GetLeft() >= z.GetRight() {
			return fmt.Errorf("zone.left (%f) must be less than zone.right (%f)", z.GetLeft(), z.GetRight())
		}
		if z.GetTop() >= z.GetBottom() {
			return fmt.Errorf("zone.top (%f) must be less than zone.bottom (%f)", z.GetTop(), z.GetBottom())
		}
	case ShapePolygon:
		if len(z.Points) < 3 {
			return fmt.Errorf("zone.points needs at least 3 vertices for a polygon, got %d", len(z.Points))
		}
	case ShapeEllipse:
		if z.GetWidth() <= 0 || z.GetHeight() <= 0 {
			return fmt.Errorf("zone ellipse extents must be positive, got %fx%f", z.GetWidth(), z.GetHeight())
		}
	default:
		return fmt.Errorf("zone.shape must be one of rectangle, polygon, ellipse; got %q", z.GetShape())
	}
	if t := z.GetExitThreshold(); t < 0 || t > 0.5 {
		return fmt.Errorf("zone.exit_threshold must be in [0, 0.5], got %f", t)
	}
	if z.CalibrationMinSamples != nil && *z.CalibrationMinSamples < 1 {
		return fmt.Errorf("zone.calibration_min_samples must be at least 1, got %d", *z.CalibrationMinSamples)
	}
	return nil
}

func (t *TrackerConfig) validate() error {
	if t.MaxMatchDistance != nil && *t.MaxMatchDistance <= 0 {
		return fmt.Errorf("tracker.max_match_distance must be positive, got %f", *t.MaxMatchDistance)
	}
	if t.MaxDisappearedFrames != nil && *t.MaxDisappearedFrames < 1 {
		return fmt.Errorf("tracker.max_disappeared_frames must be at least 1, got %d", *t.MaxDisappearedFrames)
	}
	if t.PositionHistory != nil && *t.PositionHistory < 2 {
		return fmt.Errorf("tracker.position_history must be at least 2, got %d", *t.PositionHistory)
	}
	if t.EnterStabilitySeconds != nil && *t.EnterStabilitySeconds < 0 {
		return fmt.Errorf("tracker.enter_stability_seconds must be non-negative, got %f", *t.EnterStabilitySeconds)
	}
	if t.ExitStabilitySeconds != nil && *t.ExitStabilitySeconds < 0 {
		return fmt.Errorf("tracker.exit_stability_seconds must be non-negative, got %f", *t.ExitStabilitySeconds)
	}
	if t.GetMinAspectRatio() > t.GetMaxAspectRatio() {
		return fmt.Errorf("tracker.min_aspect_ratio (%f) exceeds max_aspect_ratio (%f)", t.GetMinAspectRatio(), t.GetMaxAspectRatio())
	}
	for _, e := range t.ValidEntryEdges {
		switch e {
		case "left", "right", "top", "bottom":
		default:
			return fmt.Errorf("tracker.valid_entry_edges contains unknown edge %q", e)
		}
	}
	return nil
}

func (f *FusionConfig) validate() error {
	total := f.GetPositionWeight() + f.GetVelocityWeight() + f.GetZoneWeight() +
		f.GetAppearanceWeight() + f.GetContextWeight()
	if total <= 0 {
		return fmt.Errorf("fusion weights must sum to a positive value, got %f", total)
	}
	for name, v := range map[string]float64{
		"position_weight":   f.GetPositionWeight(),
		"velocity_weight":   f.GetVelocityWeight(),
		"zone_weight":       f.GetZoneWeight(),
		"appearance_weight": f.GetAppearanceWeight(),
		"context_weight":    f.GetContextWeight(),
	} {
		if v < 0 {
			return fmt.Errorf("fusion.%s must be non-negative, got %f", name, v)
		}
	}
	if a := f.GetSmoothingAlpha(); a <= 0 || a > 1 {
		return fmt.Errorf("fusion.smoothing_alpha must be in (0, 1], got %f", a)
	}
	if d := f.GetConfidenceDecay(); d <= 0 || d > 1 {
		return fmt.Errorf("fusion.confidence_decay must be in (0, 1], got %f", d)
	}
	if t := f.GetExitThreshold(); t < 0 || t > 1 {
		return fmt.Errorf("fusion.exit_threshold must be in [0, 1], got %f", t)
	}
	if f.RecentWindow != nil && *f.RecentWindow < 1 {
		return fmt.Errorf("fusion.recent_window must be at least 1, got %d", *f.RecentWindow)
	}
	return nil
}

func (s *StateMachineConfig) validate() error {
	switch s.GetStrategy() {
	case StrategyHeuristic, StrategyBayes:
	default:
		return fmt.Errorf("state_machine.strategy must be heuristic or bayes, got %q", s.GetStrategy())
	}
	if s.MinPerformanceDuration != nil && *s.MinPerformanceDuration < 0 {
		return fmt.Errorf("state_machine.min_performance_duration must be non-negative, got %f", *s.MinPerformanceDuration)
	}
	return nil
}

func (f *FilterConfig) validate() error {
	if f.GetMinDuration() > f.GetMaxDuration() {
		return fmt.Errorf("filter.min_duration (%f) exceeds max_duration (%f)", f.GetMinDuration(), f.GetMaxDuration())
	}
	if f.GetBufferBefore() < 0 || f.GetBufferAfter() < 0 {
		return fmt.Errorf("filter buffers must be non-negative, got before=%f after=%f", f.GetBufferBefore(), f.GetBufferAfter())
	}
	if f.GetMergeThreshold() < 0 {
		return fmt.Errorf("filter.merge_threshold must be non-negative, got %f", f.GetMergeThreshold())
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.MaxSizeBytes != nil && *c.MaxSizeBytes < 1 {
		return fmt.Errorf("cache.max_size_bytes must be positive, got %d", *c.MaxSizeBytes)
	}
	return nil
}

// Zone accessors.

func (z *ZoneConfig) GetShape() string {
	if z.Shape != nil {
		return *z.Shape
	}
	return ShapeRectangle
}

func (z *ZoneConfig) GetLeft() float64 {
	if z.Left != nil {
		return *z.Left
	}
	return 0.1
}

func (z *ZoneConfig) GetRight() float64 {
	if z.Right != nil {
		return *z.Right
	}
	return 0.9
}

func (z *ZoneConfig) GetTop() float64 {
	if z.Top != nil {
		return *z.Top
	}
	return 0.1
}

func (z *ZoneConfig) GetBottom() float64 {
	if z.Bottom != nil {
		return *z.Bottom
	}
	return 0.75
}

func (z *ZoneConfig) GetCenterX() float64 {
	if z.CenterX != nil {
		return *z.CenterX
	}
	return 0.5
}

func (z *ZoneConfig) GetCenterY() float64 {
	if z.CenterY != nil {
		return *z.CenterY
	}
	return 0.45
}

func (z *ZoneConfig) GetWidth() float64 {
	if z.Width != nil {
		return *z.Width
	}
	return 0.8
}

func (z *ZoneConfig) GetHeight() float64 {
	if z.Height != nil {
		return *z.Height
	}
	return 0.65
}

func (z *ZoneConfig) GetExitThreshold() float64 {
	if z.ExitThreshold != nil {
		return *z.ExitThreshold
	}
	return DefaultExitThreshold
}

func (z *ZoneConfig) GetCalibrationMinSamples() int {
	if z.CalibrationMinSamples != nil {
		return *z.CalibrationMinSamples
	}
	return DefaultCalibrationMinSamples
}

// Tracker accessors.

func (t *TrackerConfig) GetMaxMatchDistance() float64 {
	if t.MaxMatchDistance != nil {
		return *t.MaxMatchDistance
	}
	return DefaultMaxMatchDistance
}

func (t *TrackerConfig) GetMaxDisappearedFrames() int {
	if t.MaxDisappearedFrames != nil {
		return *t.MaxDisappearedFrames
	}
	return DefaultMaxDisappearedFrames
}

func (t *TrackerConfig) GetPositionHistory() int {
	if t.PositionHistory != nil {
		return *t.PositionHistory
	}
	return DefaultPositionHistory
}

func (t *TrackerConfig) GetExitSpeed() float64 {
	if t.ExitSpeed != nil {
		return *t.ExitSpeed
	}
	return DefaultExitSpeed
}

func (t *TrackerConfig) GetEnterStabilitySeconds() float64 {
	if t.EnterStabilitySeconds != nil {
		return *t.EnterStabilitySeconds
	}
	return DefaultEnterStability
}

func (t *TrackerConfig) GetExitStabilitySeconds() float64 {
	if t.ExitStabilitySeconds != nil {
		return *t.ExitStabilitySeconds
	}
	return DefaultExitStability
}

func (t *TrackerConfig) GetDormantTimeoutSeconds() float64 {
	if t.DormantTimeoutSeconds != nil {
		return *t.DormantTimeoutSeconds
	}
	return DefaultDormantTimeout
}

func (t *TrackerConfig) GetMinDetectionConfidence() float64 {
	if t.MinDetectionConfidence != nil {
		return *t.MinDetectionConfidence
	}
	return DefaultMinDetectionConfidence
}

func (t *TrackerConfig) GetMinBoxAreaFraction() float64 {
	if t.MinBoxAreaFraction != nil {
		return *t.MinBoxAreaFraction
	}
	return DefaultMinBoxAreaFraction
}

func (t *TrackerConfig) GetMinAspectRatio() float64 {
	if t.MinAspectRatio != nil {
		return *t.MinAspectRatio
	}
	return DefaultMinAspectRatio
}

func (t *TrackerConfig) GetMaxAspectRatio() float64 {
	if t.MaxAspectRatio != nil {
		return *t.MaxAspectRatio
	}
	return DefaultMaxAspectRatio
}

func (t *TrackerConfig) GetMinVisibleKeypoints() int {
	if t.MinVisibleKeypoints != nil {
		return *t.MinVisibleKeypoints
	}
	return DefaultMinVisibleKeypoints
}

func (t *TrackerConfig) GetKeypointConfidence() float64 {
	if t.KeypointConfidence != nil {
		return *t.KeypointConfidence
	}
	return DefaultKeypointConfidence
}

func (t *TrackerConfig) GetMinKeypointCoverage() float64 {
	if t.MinKeypointCoverage != nil {
		return *t.MinKeypointCoverage
	}
	return DefaultMinKeypointCoverage
}

func (t *TrackerConfig) GetMinVerticalSpan() float64 {
	if t.MinVerticalSpan != nil {
		return *t.MinVerticalSpan
	}
	return DefaultMinVerticalSpan
}

func (t *TrackerConfig) GetAudienceZoneFraction() float64 {
	if t.AudienceZoneFraction != nil {
		return *t.AudienceZoneFraction
	}
	return DefaultAudienceZoneFraction
}

func (t *TrackerConfig) GetValidEntryEdges() []string {
	if t.ValidEntryEdges != nil {
		return t.ValidEntryEdges
	}
	return []string{"left", "right"}
}

func (t *TrackerConfig) GetSinglePerformer() bool {
	if t.SinglePerformer != nil {
		return *t.SinglePerformer
	}
	return false
}

// Fusion accessors.

func (f *FusionConfig) GetPositionWeight() float64 {
	if f.PositionWeight != nil {
		return *f.PositionWeight
	}
	return DefaultPositionWeight
}

func (f *FusionConfig) GetVelocityWeight() float64 {
	if f.VelocityWeight != nil {
		return *f.VelocityWeight
	}
	return DefaultVelocityWeight
}

func (f *FusionConfig) GetZoneWeight() float64 {
	if f.ZoneWeight != nil {
		return *f.ZoneWeight
	}
	return DefaultZoneWeight
}

func (f *FusionConfig) GetAppearanceWeight() float64 {
	if f.AppearanceWeight != nil {
		return *f.AppearanceWeight
	}
	return DefaultAppearanceWeight
}

func (f *FusionConfig) GetContextWeight() float64 {
	if f.ContextWeight != nil {
		return *f.ContextWeight
	}
	return DefaultContextWeight
}

func (f *FusionConfig) GetExitThreshold() float64 {
	if f.ExitThreshold != nil {
		return *f.ExitThreshold
	}
	return DefaultFusionExit
}

func (f *FusionConfig) GetEnterThreshold() float64 {
	if f.EnterThreshold != nil {
		return *f.EnterThreshold
	}
	return DefaultFusionEnter
}

func (f *FusionConfig) GetSmoothingAlpha() float64 {
	if f.SmoothingAlpha != nil {
		return *f.SmoothingAlpha
	}
	return DefaultSmoothingAlpha
}

func (f *FusionConfig) GetRecentWindow() int {
	if f.RecentWindow != nil {
		return *f.RecentWindow
	}
	return DefaultRecentWindow
}

func (f *FusionConfig) GetSignalHistory() int {
	if f.SignalHistory != nil {
		return *f.SignalHistory
	}
	return DefaultSignalHistory
}

func (f *FusionConfig) GetStaleAfterSeconds() float64 {
	if f.StaleAfterSeconds != nil {
		return *f.StaleAfterSeconds
	}
	return DefaultStaleAfter
}

func (f *FusionConfig) GetConfidenceDecay() float64 {
	if f.ConfidenceDecay != nil {
		return *f.ConfidenceDecay
	}
	return DefaultConfidenceDecay
}

// State machine accessors.

func (s *StateMachineConfig) GetStrategy() string {
	if s.Strategy != nil {
		return *s.Strategy
	}
	return StrategyHeuristic
}

func (s *StateMachineConfig) GetTypicalIntroDuration() float64 {
	if s.TypicalIntroDuration != nil {
		return *s.TypicalIntroDuration
	}
	return DefaultTypicalIntroDuration
}

func (s *StateMachineConfig) GetTypicalOutroDuration() float64 {
	if s.TypicalOutroDuration != nil {
		return *s.TypicalOutroDuration
	}
	return DefaultTypicalOutroDuration
}

func (s *StateMachineConfig) GetMinPerformanceDuration() float64 {
	if s.MinPerformanceDuration != nil {
		return *s.MinPerformanceDuration
	}
	return DefaultMinPerformance
}

func (s *StateMachineConfig) GetHostMaxAvgDuration() float64 {
	if s.HostMaxAvgDuration != nil {
		return *s.HostMaxAvgDuration
	}
	return DefaultHostMaxAvgDuration
}

func (s *StateMachineConfig) GetHostMinEntries() int {
	if s.HostMinEntries != nil {
		return *s.HostMinEntries
	}
	return DefaultHostMinEntries
}

func (s *StateMachineConfig) GetHostShortDuration() float64 {
	if s.HostShortDuration != nil {
		return *s.HostShortDuration
	}
	return DefaultHostShortDuration
}

func (s *StateMachineConfig) GetPerformerMinAvgDuration() float64 {
	if s.PerformerMinAvgDuration != nil {
		return *s.PerformerMinAvgDuration
	}
	return DefaultPerformerMinAvg
}

func (s *StateMachineConfig) GetPerformerLongDuration() float64 {
	if s.PerformerLongDuration != nil {
		return *s.PerformerLongDuration
	}
	return DefaultPerformerLongDuration
}

// Filter accessors.

func (f *FilterConfig) GetMinDuration() float64 {
	if f.MinDuration != nil {
		return *f.MinDuration
	}
	return DefaultMinSegmentDuration
}

func (f *FilterConfig) GetMaxDuration() float64 {
	if f.MaxDuration != nil {
		return *f.MaxDuration
	}
	return DefaultMaxSegmentDuration
}

func (f *FilterConfig) GetMergeCloseSegments() bool {
	if f.MergeCloseSegments != nil {
		return *f.MergeCloseSegments
	}
	return true
}

func (f *FilterConfig) GetMergeThreshold() float64 {
	if f.MergeThreshold != nil {
		return *f.MergeThreshold
	}
	return DefaultMergeThreshold
}

func (f *FilterConfig) GetBufferBefore() float64 {
	if f.BufferBefore != nil {
		return *f.BufferBefore
	}
	return DefaultBufferBefore
}

func (f *FilterConfig) GetBufferAfter() float64 {
	if f.BufferAfter != nil {
		return *f.BufferAfter
	}
	return DefaultBufferAfter
}

// Cache accessors.

func (c *CacheConfig) GetEnabled() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return true
}

// GetDirectory returns the cache directory, defaulting to
// ~/.stagecut/cache (or a relative fallback when the home directory is
// unavailable).
func (c *CacheConfig) GetDirectory() string {
	if c.Directory != nil && *c.Directory != "" {
		return *c.Directory
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultCacheDirName
	}
	return filepath.Join(home, DefaultCacheDirName)
}

func (c *CacheConfig) GetMaxSizeBytes() int64 {
	if c.MaxSizeBytes != nil {
		return *c.MaxSizeBytes
	}
	return DefaultCacheMaxSizeBytes
}

// DetectionFingerprint returns the subset of configuration that affects the
// upstream detector's output, keyed by stable names. Two configs with equal
// fingerprints may share cached observations; tuning anything downstream of
// detection (fusion, state machine, filter) keeps the cache warm.
func (c *Config) DetectionFingerprint() map[string]any {
	fp := map[string]any{
		"zone_shape":               c.Zone.GetShape(),
		"zone_exit_threshold":      c.Zone.GetExitThreshold(),
		"min_detection_confidence": c.Tracker.GetMinDetectionConfidence(),
		"min_box_area_fraction":    c.Tracker.GetMinBoxAreaFraction(),
		"min_aspect_ratio":         c.Tracker.GetMinAspectRatio(),
		"max_aspect_ratio":         c.Tracker.GetMaxAspectRatio(),
		"min_visible_keypoints":    c.Tracker.GetMinVisibleKeypoints(),
		"keypoint_confidence":      c.Tracker.GetKeypointConfidence(),
		"min_keypoint_coverage":    c.Tracker.GetMinKeypointCoverage(),
		"min_vertical_span":        c.Tracker.GetMinVerticalSpan(),
		"audience_zone_fraction":   c.Tracker.GetAudienceZoneFraction(),
		"single_performer":         c.Tracker.GetSinglePerformer(),
	}
	switch c.Zone.GetShape() {
	case ShapeRectangle:
		fp["zone_rect"] = []float64{c.Zone.GetLeft(), c.Zone.GetRight(), c.Zone.GetTop(), c.Zone.GetBottom()}
	case ShapePolygon:
		pts := make([][2]float64, len(c.Zone.Points))
		for i, p := range c.Zone.Points {
			pts[i] = [2]float64{p.X, p.Y}
		}
		fp["zone_polygon"] = pts
	case ShapeEllipse:
		fp["zone_ellipse"] = []float64{c.Zone.GetCenterX(), c.Zone.GetCenterY(), c.Zone.GetWidth(), c.Zone.GetHeight()}
	}
	return fp
}
