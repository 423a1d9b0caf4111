// Package alerts turns a persistence decision into the structured alert
// record delivered to the webhook, and provides desktop notifiers for it.
package alerts

import (
	"time"

	"github.com/google/uuid"

	"github.com/nixlim/camwatch/internal/detection"
	"github.com/nixlim/camwatch/internal/persistence"
)

// idNamespace scopes alert IDs so they never collide with other UUIDv5 users.
var idNamespace = uuid.MustParse("6f1c9a3e-52d4-4c1b-9a7e-2b8f0d6c4e11")

// Build creates the alert for the best sample of a fired decision. It is a
// pure function: the same inputs always produce the same record, ID included.
func Build(best detection.Sample, now time.Time, stats persistence.Stats, p Profile) Alert {
	a := Alert{
		ID:   alertID(p.DetectorID, now),
		What: p.What,
		When: now.Format(time.RFC3339Nano),
		Where: Where{
			Location: p.Location,
		},
		Who: p.Who,
		Why: p.why(stats.Persistence),
		How: How{
			Method:          p.Method,
			ConfidenceScore: best.Score,
			Detail:          best.Detail,
		},
		HowMuch: HowMuch{
			DetectionCountInPeriod: stats.WindowSize,
			QualifyingCount:        stats.Qualifying,
			RequiredCount:          stats.Required,
			PersistenceSeconds:     stats.Persistence.Seconds(),
			CheckIntervalSeconds:   stats.CheckInterval.Seconds(),
			ConfidenceThreshold:    stats.ConfidenceThreshold,
		},
		Metadata: Metadata{
			AlertType:      p.AlertType,
			Severity:       p.Severity,
			RequiresAction: p.RequiresAction,
			DetectorID:     p.DetectorID,
		},
		FiredAt: now,
	}

	if best.Box != nil {
		box := [4]float64{best.Box.X1, best.Box.Y1, best.Box.X2, best.Box.Y2}
		a.Where.BoundingBox = &box
	}
	if best.Orientation != detection.OrientationUnknown {
		o := best.Orientation.String()
		a.Where.Orientation = &o
	}

	return a
}

func alertID(detectorID string, now time.Time) string {
	return uuid.NewSHA1(idNamespace, []byte(detectorID+"|"+now.UTC().Format(time.RFC3339Nano))).String()
}

// Summary is the one-line console description of an alert.
func Summary(a Alert) string {
	return a.What + " (" + a.Metadata.DetectorID + ")"
}
