package events

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nixlim/camwatch/internal/alerts"
	"github.com/nixlim/camwatch/internal/delivery"
)

var at = time.Date(2025, 3, 1, 22, 15, 4, 0, time.UTC)

func sampleAlert() alerts.Alert {
	return alerts.Alert{
		ID:   "3f2a9c1e-0000-5000-8000-000000000000",
		What: "Sleeping person detected",
		How:  alerts.How{ConfidenceScore: 0.874},
		HowMuch: alerts.HowMuch{
			QualifyingCount: 5,
			RequiredCount:   4,
		},
		Metadata: alerts.Metadata{DetectorID: "lobby-camera-east"},
		FiredAt:  at,
	}
}

func TestFormatFired(t *testing.T) {
	fe := FormatFired(sampleAlert())

	want := "[lobby-camera] Sleeping person detected (conf 0.87, 5/4 qualifying)"
	if fe.Formatted != want {
		t.Errorf("Formatted:\n  want %q\n  got  %q", want, fe.Formatted)
	}
	if fe.EventType != TypeFired || fe.DetectorID != "lobby-camera-east" {
		t.Errorf("metadata = %+v", fe)
	}
	if !fe.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v", fe.Timestamp)
	}
	if fe.Success != nil {
		t.Error("fired events carry no success flag")
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		name     string
		result   delivery.Result
		wantType string
		wantText string
		wantOK   bool
	}{
		{
			name:     "delivered first try",
			result:   delivery.Result{Delivered: true, StatusCode: 200, Attempts: 1},
			wantType: TypeDelivered,
			wantText: "delivered 3f2a9c1e-000 (HTTP 200, 1 attempt)",
			wantOK:   true,
		},
		{
			name:     "exhausted with status",
			result:   delivery.Result{StatusCode: 503, Attempts: 3, Err: delivery.ErrDeliveryExhausted},
			wantType: TypeFailed,
			wantText: "delivery failed 3f2a9c1e-000 (HTTP 503, 3 attempts)",
		},
		{
			name:     "exhausted without response",
			result:   delivery.Result{Attempts: 2, Err: errors.New("dial tcp: refused")},
			wantType: TypeFailed,
			wantText: "(no response, 2 attempts)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := FormatResult(sampleAlert(), tt.result, at)
			if fe.EventType != tt.wantType {
				t.Errorf("EventType: want %s, got %s", tt.wantType, fe.EventType)
			}
			if !strings.Contains(fe.Formatted, tt.wantText) {
				t.Errorf("Formatted %q does not contain %q", fe.Formatted, tt.wantText)
			}
			if fe.Success == nil || *fe.Success != tt.wantOK {
				t.Errorf("Success = %v, want %v", fe.Success, tt.wantOK)
			}
		})
	}
}

func TestFormatDroppedAndSkipped(t *testing.T) {
	dropped := FormatDropped(sampleAlert(), at)
	if dropped.EventType != TypeDropped || !strings.Contains(dropped.Formatted, "queue full") {
		t.Errorf("dropped = %+v", dropped)
	}
	if dropped.Success == nil || *dropped.Success {
		t.Error("dropped should be marked unsuccessful")
	}

	skipped := FormatSkipped(sampleAlert(), at)
	if skipped.EventType != TypeSkipped || !strings.Contains(skipped.Formatted, "no webhook") {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestFormatUpstreamError_Truncates(t *testing.T) {
	long := errors.New(strings.Repeat("x", 200))
	fe := FormatUpstreamError("cam-1", long, at)
	if !strings.HasSuffix(fe.Formatted, "...") {
		t.Errorf("long error not truncated: %q", fe.Formatted)
	}
	if fe.EventType != TypeUpstreamError {
		t.Errorf("EventType = %s", fe.EventType)
	}
}

func TestFormatProbe(t *testing.T) {
	ok := FormatProbe("https://hooks.example.com/x", true, at)
	if ok.Formatted != "webhook https://hooks.example.com/x: reachable" {
		t.Errorf("Formatted = %q", ok.Formatted)
	}
	bad := FormatProbe("https://hooks.example.com/x", false, at)
	if !strings.HasSuffix(bad.Formatted, "unreachable") || *bad.Success {
		t.Errorf("bad probe = %+v", bad)
	}
}

func TestStamp_ZeroUsesNow(t *testing.T) {
	before := time.Now()
	if got := stamp(time.Time{}); got.Before(before) {
		t.Errorf("stamp(zero) = %v, want >= %v", got, before)
	}
}
