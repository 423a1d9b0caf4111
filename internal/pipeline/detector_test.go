package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/config"
	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/monitoring"
	"github.com/nixlim/camwatch/internal/persistence"
)

func TestDetectorFromConfig_Kinds(t *testing.T) {
	tests := []struct {
		kind      string
		alertType string
		qualifyOK bool // whether a vertical sample qualifies
	}{
		{config.KindSleepingPerson, alerts.TypeSleepingPerson, false},
		{config.KindColorMarker, alerts.TypeColorMarker, true},
	}
	for _, tc := range tests {
		t.Run(tc.kind, func(t *testing.T) {
			dc := config.DefaultDetector(tc.kind)
			dc.ID = "det-1"
			d, err := DetectorFromConfig(dc)
			if err != nil {
				t.Fatalf("DetectorFromConfig: %v", err)
			}
			if d.ID != "det-1" || d.Profile.AlertType != tc.alertType {
				t.Errorf("detector = %+v", d.Profile)
			}
			standing := detection.NewSample("det-1", 0.9, &detection.Box{X2: 50, Y2: 200}, time.Now(), nil)
			if got := d.Evaluator.Config().Qualifier(standing); got != tc.qualifyOK {
				t.Errorf("vertical sample qualifies = %v, want %v", got, tc.qualifyOK)
			}
		})
	}
}

func TestDetectorFromConfig_Errors(t *testing.T) {
	dc := config.DefaultDetector(config.KindSleepingPerson)
	dc.ID = "det-1"
	dc.Kind = "thermal"
	if _, err := DetectorFromConfig(dc); err == nil {
		t.Error("expected error for unknown kind")
	}

	dc = config.DefaultDetector(config.KindSleepingPerson)
	dc.ID = "det-1"
	dc.CheckIntervalSeconds = 0
	_, err := DetectorFromConfig(dc)
	var cfgErr *persistence.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *persistence.ConfigError, got %v", err)
	}
}

func TestDetector_ObserveOutcomes(t *testing.T) {
	d := sleepingDetector(t, "cam-1")
	t0 := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)

	obs := d.Observe(lying("cam-1", 0.9, t0), t0)
	if obs.Outcome != monitoring.SampleRetained {
		t.Errorf("first sample: want retained, got %s", obs.Outcome)
	}

	obs = d.Observe(lying("cam-1", 0.9, t0.Add(time.Second)), t0.Add(time.Second))
	if obs.Outcome != monitoring.SampleThrottled {
		t.Errorf("sample within interval: want throttled, got %s", obs.Outcome)
	}

	obs = d.Observe(lying("cam-1", 0.3, t0.Add(2*time.Second)), t0.Add(2*time.Second))
	if obs.Outcome != monitoring.SampleBelowThreshold {
		t.Errorf("score at threshold: want below_threshold, got %s", obs.Outcome)
	}
}

func TestDetector_ProcessFiresOnceThenCoolsDown(t *testing.T) {
	d := sleepingDetector(t, "cam-1")
	t0 := time.Date(2025, 3, 1, 22, 0, 0, 0, time.UTC)

	// 10s persistence at a 2s interval needs ceil(5*0.7) = 4 qualifying samples.
	var fired []alerts.Alert
	for i := 0; i < 8; i++ {
		now := t0.Add(time.Duration(i) * 2 * time.Second)
		if a, ok := d.Process(lying("cam-1", 0.5+float64(i)/100, now), now); ok {
			fired = append(fired, a)
			if i != 3 {
				t.Errorf("fired at sample %d, want sample 3", i)
			}
		}
	}
	if len(fired) != 1 {
		t.Fatalf("fired %d times, want once within cooldown", len(fired))
	}

	a := fired[0]
	if a.HowMuch.RequiredCount != 4 || a.HowMuch.QualifyingCount != 4 {
		t.Errorf("how_much = %+v", a.HowMuch)
	}
	if a.How.ConfidenceScore != 0.53 {
		t.Errorf("best score: want 0.53, got %v", a.How.ConfidenceScore)
	}
	if a.Metadata.DetectorID != "cam-1" || a.Where.Orientation == nil || *a.Where.Orientation != "horizontal" {
		t.Errorf("alert = %+v", a)
	}

	st := d.Status()
	if st.Counters.Fired != 1 || st.Required != 4 || st.ID != "cam-1" {
		t.Errorf("status = %+v", st)
	}
}
