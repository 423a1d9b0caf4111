package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
)

const (
	// DefaultRequiredRatio is the share of expected checks inside the
	// persistence window that must have been positive.
	DefaultRequiredRatio = 0.7

	// DefaultMinSamples is the minimum number of qualifying samples
	// regardless of the ratio.
	DefaultMinSamples = 2
)

// Qualifier reports whether a retained sample counts toward persistence.
type Qualifier func(detection.Sample) bool

// QualifyHorizontal accepts samples whose box is wider than it is tall.
func QualifyHorizontal(s detection.Sample) bool {
	return s.Orientation == detection.OrientationHorizontal
}

// QualifyAny accepts every retained sample. Used by detectors without
// geometry or whose positive class is the detection itself.
func QualifyAny(detection.Sample) bool {
	return true
}

// Config holds the thresholds of one evaluator instance.
type Config struct {
	ConfidenceThreshold float64
	Persistence         time.Duration
	CheckInterval       time.Duration
	Cooldown            time.Duration
	Retention           time.Duration
	RequiredRatio       float64
	MinSamples          int
	Qualifier           Qualifier
}

// ConfigError reports every invalid field found at construction.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid persistence config: %s", strings.Join(e.Problems, "; "))
}

// Stats is the snapshot an evaluator attaches to a decision. It carries
// everything the alert builder needs to explain why an alert fired.
type Stats struct {
	WindowSize          int
	Qualifying          int
	Required            int
	ConfidenceThreshold float64
	Persistence         time.Duration
	CheckInterval       time.Duration
	Cooldown            time.Duration
}

// Decision is the result of one evaluation. Best is only meaningful when
// Fire is true.
type Decision struct {
	Fire  bool
	Best  detection.Sample
	Stats Stats
}

// Counters are cumulative per-instance totals used for dashboards.
type Counters struct {
	Evaluated      uint64    `json:"evaluated"`
	Throttled      uint64    `json:"throttled"`
	BelowThreshold uint64    `json:"below_threshold"`
	Fired          uint64    `json:"fired"`
	WindowSize     int       `json:"window_size"`
	LastCheck      time.Time `json:"last_check"`
	CooldownUntil  time.Time `json:"cooldown_until"`
}
