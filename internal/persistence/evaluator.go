// Package persistence implements the temporal debounce engine: an ingestion
// gate that throttles how often samples are taken, a rolling history of
// accepted samples, and a persistence check with a post-trigger cooldown.
package persistence

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/history"
)

// Evaluator decides whether a condition has persisted long enough to alert.
// One Evaluator serves exactly one detector instance. All methods are safe
// for concurrent use, but samples are expected from a single producer.
type Evaluator struct {
	mu     sync.Mutex
	cfg    Config
	window *history.Window

	lastCheck     time.Time
	cooldownUntil time.Time

	evaluated      uint64
	throttled      uint64
	belowThreshold uint64
	fired          uint64
}

// New validates cfg and returns an Evaluator. Zero RequiredRatio,
// MinSamples, Retention and a nil Qualifier take their defaults.
func New(cfg Config) (*Evaluator, error) {
	cfg = withDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &Evaluator{
		cfg:    cfg,
		window: history.NewWindow(cfg.Retention),
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.RequiredRatio == 0 {
		cfg.RequiredRatio = DefaultRequiredRatio
	}
	if cfg.MinSamples == 0 {
		cfg.MinSamples = DefaultMinSamples
	}
	if cfg.Retention == 0 {
		cfg.Retention = history.DefaultRetention
	}
	if cfg.Qualifier == nil {
		cfg.Qualifier = QualifyHorizontal
	}
	return cfg
}

func validate(cfg Config) error {
	var problems []string

	if cfg.CheckInterval <= 0 {
		problems = append(problems, fmt.Sprintf("check interval must be positive, got %v", cfg.CheckInterval))
	}
	if cfg.Persistence <= 0 {
		problems = append(problems, fmt.Sprintf("persistence must be positive, got %v", cfg.Persistence))
	}
	if cfg.Cooldown < 0 {
		problems = append(problems, fmt.Sprintf("cooldown must not be negative, got %v", cfg.Cooldown))
	}
	if cfg.Retention < cfg.Persistence {
		problems = append(problems, fmt.Sprintf("retention %v must be at least persistence %v", cfg.Retention, cfg.Persistence))
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		problems = append(problems, fmt.Sprintf("confidence threshold must be within [0, 1], got %v", cfg.ConfidenceThreshold))
	}
	if cfg.RequiredRatio <= 0 {
		problems = append(problems, fmt.Sprintf("required ratio must be positive, got %v", cfg.RequiredRatio))
	}
	if cfg.MinSamples < 1 {
		problems = append(problems, fmt.Sprintf("min samples must be at least 1, got %d", cfg.MinSamples))
	}

	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// Config returns the effective configuration, defaults applied.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Required returns how many qualifying samples the persistence window
// must hold before the evaluator fires.
func (e *Evaluator) Required() int {
	return requiredCount(e.cfg)
}

func requiredCount(cfg Config) int {
	expected := cfg.Persistence.Seconds() / cfg.CheckInterval.Seconds()
	// The epsilon keeps 10/1*0.7 from rounding up to 8.
	return int(math.Ceil(expected*cfg.RequiredRatio - 1e-9))
}

// Accept runs the ingestion gate. It returns false and leaves all state
// untouched when less than the check interval has passed since the last
// accepted call. Otherwise it records now as the last check, retains the
// sample if its score exceeds the confidence threshold, and prunes samples
// older than the retention window.
func (e *Evaluator) Accept(s detection.Sample, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acceptLocked(s, now)
}

func (e *Evaluator) acceptLocked(s detection.Sample, now time.Time) bool {
	if !e.lastCheck.IsZero() && now.Sub(e.lastCheck) < e.cfg.CheckInterval {
		e.throttled++
		return false
	}

	e.lastCheck = now
	e.evaluated++

	if s.Score > e.cfg.ConfidenceThreshold {
		e.window.Insert(s)
	} else {
		e.belowThreshold++
	}
	e.window.Prune(now)
	return true
}

// Evaluate checks the history for a persisted condition. On a positive
// result it starts the cooldown before returning, so a second call cannot
// fire again until the cooldown has elapsed.
func (e *Evaluator) Evaluate(now time.Time) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateLocked(now)
}

func (e *Evaluator) evaluateLocked(now time.Time) Decision {
	stats := Stats{
		WindowSize:          e.window.Len(),
		Required:            requiredCount(e.cfg),
		ConfidenceThreshold: e.cfg.ConfidenceThreshold,
		Persistence:         e.cfg.Persistence,
		CheckInterval:       e.cfg.CheckInterval,
		Cooldown:            e.cfg.Cooldown,
	}

	if !e.cooldownUntil.IsZero() && now.Before(e.cooldownUntil) {
		return Decision{Stats: stats}
	}

	qualifying := e.window.Since(now.Add(-e.cfg.Persistence), e.cfg.Qualifier)
	stats.Qualifying = len(qualifying)

	if len(qualifying) < stats.Required || len(qualifying) < e.cfg.MinSamples {
		return Decision{Stats: stats}
	}

	best := qualifying[0]
	for _, s := range qualifying[1:] {
		if s.Score > best.Score {
			best = s
		}
	}

	e.cooldownUntil = now.Add(e.cfg.Cooldown)
	e.fired++

	return Decision{Fire: true, Best: best, Stats: stats}
}

// Observe is the per-frame entry point: it gates the sample and, when the
// sample was taken, evaluates persistence in the same critical section.
func (e *Evaluator) Observe(s detection.Sample, now time.Time) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.acceptLocked(s, now) {
		return Decision{}
	}
	return e.evaluateLocked(now)
}

// Counters returns a snapshot of the cumulative totals.
func (e *Evaluator) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Counters{
		Evaluated:      e.evaluated,
		Throttled:      e.throttled,
		BelowThreshold: e.belowThreshold,
		Fired:          e.fired,
		WindowSize:     e.window.Len(),
		LastCheck:      e.lastCheck,
		CooldownUntil:  e.cooldownUntil,
	}
}

// Window returns a copy of the retained samples, oldest first.
func (e *Evaluator) Window() []detection.Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window.Samples()
}
