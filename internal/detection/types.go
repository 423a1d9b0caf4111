// Package detection defines the immutable observation produced by an
// upstream detector for one evaluated frame, together with the geometry
// helpers used to classify it.
package detection

import (
	"encoding/json"
	"image"
	"math"
	"time"
)

// HorizontalAspectRatio is the width/height ratio above which a bounding box
// is classified as horizontal (a person lying down rather than standing).
const HorizontalAspectRatio = 1.2

// AreaScoreScale is the pixel area that maps to a score of 1.0 for
// area-based detectors that report no native confidence.
const AreaScoreScale = 50000.0

// Orientation is the classification derived from a sample's bounding box.
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationHorizontal
	OrientationVertical
)

// String returns the wire name of the orientation.
func (o Orientation) String() string {
	switch o {
	case OrientationHorizontal:
		return "horizontal"
	case OrientationVertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the orientation as its wire name.
func (o Orientation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Box is an axis-aligned bounding region in image coordinates.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// BoxFromRect converts an integer image rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{
		X1: float64(r.Min.X),
		Y1: float64(r.Min.Y),
		X2: float64(r.Max.X),
		Y2: float64(r.Max.Y),
	}
}

// Width returns the absolute horizontal extent of the box.
func (b Box) Width() float64 { return math.Abs(b.X2 - b.X1) }

// Height returns the absolute vertical extent of the box.
func (b Box) Height() float64 { return math.Abs(b.Y2 - b.Y1) }

// AspectRatio returns width/height, or 0 for a box with no height.
func (b Box) AspectRatio() float64 {
	h := b.Height()
	if h <= 0 {
		return 0
	}
	return b.Width() / h
}

// Orientation classifies the box by its aspect ratio.
func (b Box) Orientation() Orientation {
	if b.AspectRatio() > HorizontalAspectRatio {
		return OrientationHorizontal
	}
	return OrientationVertical
}

// Sample is one timestamped observation from a detector. Samples are values
// and are never mutated after NewSample returns them.
type Sample struct {
	Source      string
	Timestamp   time.Time
	Score       float64
	Box         *Box
	Orientation Orientation
	Detail      Detail
}

// NewSample builds a Sample, clamping the score into [0, 1] and deriving the
// orientation from the box. A nil box yields OrientationUnknown.
func NewSample(source string, score float64, box *Box, ts time.Time, detail Detail) Sample {
	s := Sample{
		Source:    source,
		Timestamp: ts,
		Score:     clampScore(score),
		Detail:    detail,
	}
	if box != nil {
		b := *box
		s.Box = &b
		s.Orientation = b.Orientation()
	}
	return s
}

// AreaScore normalises a detected pixel area into a confidence score.
func AreaScore(area float64) float64 {
	return clampScore(area / AreaScoreScale)
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
