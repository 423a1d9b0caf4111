// Package pipeline wires detectors, the persistence engine and alert
// delivery together. A Runner routes samples to per-detector evaluators on
// a single goroutine; fired alerts go to a Dispatcher whose workers deliver
// them without blocking ingestion.
package pipeline

import (
	"fmt"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/config"
	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/monitoring"
	"github.com/nixlim/camwatch/internal/persistence"
)

// Detector binds one detector instance to its alert profile and evaluator.
type Detector struct {
	ID        string
	Profile   alerts.Profile
	Evaluator *persistence.Evaluator
}

// NewDetector validates cfg and creates a detector for profile.
func NewDetector(profile alerts.Profile, cfg persistence.Config) (*Detector, error) {
	ev, err := persistence.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("detector %s: %w", profile.DetectorID, err)
	}
	return &Detector{ID: profile.DetectorID, Profile: profile, Evaluator: ev}, nil
}

// DetectorFromConfig builds a detector from its configuration section.
func DetectorFromConfig(dc config.DetectorConfig) (*Detector, error) {
	var profile alerts.Profile
	switch dc.Kind {
	case config.KindSleepingPerson:
		profile = alerts.SleepingPersonProfile(dc.ID, dc.Location)
	case config.KindColorMarker:
		profile = alerts.ColorMarkerProfile(dc.ID, dc.Location)
	default:
		return nil, fmt.Errorf("detector %s: unknown kind %q", dc.ID, dc.Kind)
	}

	qualifier := persistence.QualifyHorizontal
	if dc.Qualify == config.QualifyAny {
		qualifier = persistence.QualifyAny
	}

	return NewDetector(profile, persistence.Config{
		ConfidenceThreshold: dc.ConfidenceThreshold,
		Persistence:         dc.Persistence(),
		CheckInterval:       dc.CheckInterval(),
		Cooldown:            dc.Cooldown(),
		Retention:           dc.Retention(),
		RequiredRatio:       dc.RequiredRatio,
		MinSamples:          dc.MinSamples,
		Qualifier:           qualifier,
	})
}

// Observation is what one sample did to a detector.
type Observation struct {
	// Outcome is one of the monitoring.Sample* constants.
	Outcome  string
	Decision persistence.Decision
	Alert    alerts.Alert
	Fired    bool
}

// Observe gates s, evaluates persistence and builds the alert when the
// decision fires.
func (d *Detector) Observe(s detection.Sample, now time.Time) Observation {
	if !d.Evaluator.Accept(s, now) {
		return Observation{Outcome: monitoring.SampleThrottled}
	}

	obs := Observation{Outcome: monitoring.SampleRetained}
	if s.Score <= d.Evaluator.Config().ConfidenceThreshold {
		obs.Outcome = monitoring.SampleBelowThreshold
	}

	obs.Decision = d.Evaluator.Evaluate(now)
	if obs.Decision.Fire {
		obs.Alert = alerts.Build(obs.Decision.Best, now, obs.Decision.Stats, d.Profile)
		obs.Fired = true
	}
	return obs
}

// Process is the per-frame entry point. It returns the alert and true when
// the sample completed a persisted condition outside the cooldown.
func (d *Detector) Process(s detection.Sample, now time.Time) (alerts.Alert, bool) {
	obs := d.Observe(s, now)
	return obs.Alert, obs.Fired
}

// Status is a point-in-time view of a detector for the API and dashboard.
type Status struct {
	ID                  string               `json:"id"`
	AlertType           string               `json:"alert_type"`
	Location            string               `json:"location"`
	ConfidenceThreshold float64              `json:"confidence_threshold"`
	PersistenceSeconds  float64              `json:"persistence_seconds"`
	CheckIntervalSecs   float64              `json:"check_interval_seconds"`
	CooldownSeconds     float64              `json:"cooldown_seconds"`
	Required            int                  `json:"required_count"`
	Counters            persistence.Counters `json:"counters"`
}

// Status snapshots the detector.
func (d *Detector) Status() Status {
	cfg := d.Evaluator.Config()
	return Status{
		ID:                  d.ID,
		AlertType:           d.Profile.AlertType,
		Location:            d.Profile.Location,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		PersistenceSeconds:  cfg.Persistence.Seconds(),
		CheckIntervalSecs:   cfg.CheckInterval.Seconds(),
		CooldownSeconds:     cfg.Cooldown.Seconds(),
		Required:            d.Evaluator.Required(),
		Counters:            d.Evaluator.Counters(),
	}
}
