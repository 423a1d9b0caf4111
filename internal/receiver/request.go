package receiver

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nixlim/camwatch/internal/detection"
)

// DetectionRequest is the JSON form of one sample, used by the HTTP API and
// replay files. Either Score or Area must be set; when only Area is given
// the score is derived from it.
type DetectionRequest struct {
	Detector      string     `json:"detector" binding:"required"`
	Score         *float64   `json:"score,omitempty"`
	Box           []float64  `json:"box,omitempty"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	Prompt        string     `json:"prompt,omitempty"`
	Method        string     `json:"method,omitempty"`
	Area          *float64   `json:"area,omitempty"`
	AreaThreshold float64    `json:"area_threshold,omitempty"`
}

var (
	errNoDetector = errors.New("detector is required")
	errNoScore    = errors.New("score or area is required")
)

// Sample validates the request and converts it. A missing timestamp is
// replaced by now.
func (r DetectionRequest) Sample(now time.Time) (detection.Sample, error) {
	detector := strings.TrimSpace(r.Detector)
	if detector == "" {
		return detection.Sample{}, errNoDetector
	}

	var score float64
	switch {
	case r.Score != nil:
		score = *r.Score
	case r.Area != nil:
		score = detection.AreaScore(*r.Area)
	default:
		return detection.Sample{}, errNoScore
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return detection.Sample{}, fmt.Errorf("score must be finite, got %v", score)
	}

	var box *detection.Box
	if len(r.Box) > 0 {
		b, err := boxFromSlice(r.Box)
		if err != nil {
			return detection.Sample{}, err
		}
		box = &b
	}

	ts := now
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		ts = *r.Timestamp
	}

	return detection.NewSample(detector, score, box, ts, r.detail()), nil
}

func (r DetectionRequest) detail() detection.Detail {
	switch {
	case r.Prompt != "":
		return detection.PromptDetail{Prompt: r.Prompt, Method: r.Method}
	case r.Area != nil:
		return detection.ColorDetail{AreaPixels: *r.Area, AreaThreshold: r.AreaThreshold}
	default:
		return nil
	}
}

func boxFromSlice(v []float64) (detection.Box, error) {
	if len(v) != 4 {
		return detection.Box{}, fmt.Errorf("box must have 4 coordinates, got %d", len(v))
	}
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return detection.Box{}, fmt.Errorf("box coordinates must be finite")
		}
	}
	return detection.Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}, nil
}

// parseBox parses the "x1,y1,x2,y2" attribute form.
func parseBox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("box must have 4 coordinates, got %q", s)
	}
	out := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid box coordinate %q", p)
		}
		out[i] = v
	}
	return out, nil
}
