package alerts

import (
	"strings"
	"testing"
)

func TestTruncateID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "long ID is truncated",
			input: "lobby-camera-north",
			want:  "lobby-camera...",
		},
		{
			name:  "short ID unchanged",
			input: "cam-1",
			want:  "cam-1",
		},
		{
			name:  "exactly 12 chars unchanged",
			input: "123456789012",
			want:  "123456789012",
		},
		{
			name:  "13 chars truncated",
			input: "1234567890123",
			want:  "123456789012...",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := truncateID(tc.input)
			if got != tc.want {
				t.Errorf("truncateID(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNotificationText(t *testing.T) {
	a := Alert{
		What: "Sleeping person detected",
		Why:  "Person in horizontal position for more than 10s",
		How:  How{ConfidenceScore: 0.8123},
		Metadata: Metadata{
			DetectorID: "cam-1",
		},
	}

	title, body := notificationText(a)
	if title != "camwatch: Sleeping person detected" {
		t.Errorf("title = %q", title)
	}
	if !strings.HasPrefix(body, "Detector: cam-1\n") {
		t.Errorf("body missing detector line: %q", body)
	}
	if !strings.Contains(body, "Confidence: 0.81") {
		t.Errorf("body missing confidence: %q", body)
	}
}
