package alerts

import (
	"fmt"
	"time"
)

// Profile is the static description of a detector kind used to fill the
// descriptive fields of its alerts.
type Profile struct {
	DetectorID     string
	AlertType      string
	What           string
	Who            string
	Location       string
	Method         string
	Condition      string // completes "<Condition> for more than Ns"
	Severity       string
	RequiresAction bool
}

// SleepingPersonProfile describes the text-prompted sleeping person detector.
func SleepingPersonProfile(detectorID, location string) Profile {
	return Profile{
		DetectorID:     detectorID,
		AlertType:      TypeSleepingPerson,
		What:           "Sleeping person detected",
		Who:            "SAM3 Detection System",
		Location:       location,
		Method:         "SAM3 Text Prompt Detection",
		Condition:      "Person in horizontal position",
		Severity:       SeverityMedium,
		RequiresAction: true,
	}
}

// ColorMarkerProfile describes the color-segmentation test detector.
func ColorMarkerProfile(detectorID, location string) Profile {
	return Profile{
		DetectorID:     detectorID,
		AlertType:      TypeColorMarker,
		What:           "Pink object detected (test)",
		Who:            "Test System - Pink Detector",
		Location:       location,
		Method:         "OpenCV Color Detection (HSV)",
		Condition:      "Pink object present",
		Severity:       SeverityLow,
		RequiresAction: false,
	}
}

func (p Profile) why(persistence time.Duration) string {
	return fmt.Sprintf("%s for more than %ds", p.Condition, int(persistence.Seconds()))
}
