package receiver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const replayInput = `# recorded 2025-03-01
{"detector":"cam-1","score":0.8,"box":[0,0,300,100],"timestamp":"2025-03-01T22:00:00Z"}

{"detector":"cam-1","score":0.7,"timestamp":"2025-03-01T22:00:02Z"}
not json
{"score":0.9}
{"detector":"pink","area":12000,"timestamp":"2025-03-01T22:00:03Z"}
`

func TestReplay_SkipsCommentsAndBadLines(t *testing.T) {
	sink := &recordingSink{}
	n, err := Replay(context.Background(), strings.NewReader(replayInput), sink, ReplayOptions{})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 3 {
		t.Fatalf("submitted: want 3, got %d", n)
	}

	samples := sink.all()
	want := []string{"cam-1", "cam-1", "pink"}
	for i, id := range want {
		if samples[i].Source != id {
			t.Errorf("sample %d source: want %s, got %s", i, id, samples[i].Source)
		}
	}
	if !samples[1].Timestamp.Equal(time.Date(2025, 3, 1, 22, 0, 2, 0, time.UTC)) {
		t.Errorf("timestamp not preserved: %v", samples[1].Timestamp)
	}
}

func TestReplay_PacedHonoursSpeed(t *testing.T) {
	input := `{"detector":"cam-1","score":0.8,"timestamp":"2025-03-01T22:00:00Z"}
{"detector":"cam-1","score":0.8,"timestamp":"2025-03-01T22:00:01Z"}
`
	sink := &recordingSink{}
	start := time.Now()
	n, err := Replay(context.Background(), strings.NewReader(input), sink, ReplayOptions{Pace: true, Speed: 10})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if n != 2 {
		t.Fatalf("submitted: want 2, got %d", n)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("paced replay finished too fast: %v", elapsed)
	}
}

func TestReplay_CancelledWhilePacing(t *testing.T) {
	input := `{"detector":"cam-1","score":0.8,"timestamp":"2025-03-01T22:00:00Z"}
{"detector":"cam-1","score":0.8,"timestamp":"2025-03-01T23:00:00Z"}
`
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	n, err := Replay(ctx, strings.NewReader(input), &recordingSink{}, ReplayOptions{Pace: true})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if n != 1 {
		t.Errorf("submitted before cancel: want 1, got %d", n)
	}
}

func TestReplay_SinkErrorStops(t *testing.T) {
	sink := &recordingSink{err: errors.New("closed")}
	_, err := Replay(context.Background(), strings.NewReader(replayInput), sink, ReplayOptions{})
	if err == nil || err.Error() != "closed" {
		t.Errorf("expected sink error, got %v", err)
	}
}

func TestReplayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detections.jsonl")
	if err := os.WriteFile(path, []byte(replayInput), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	n, err := ReplayFile(context.Background(), path, &recordingSink{}, ReplayOptions{})
	if err != nil || n != 3 {
		t.Errorf("ReplayFile = %d, %v", n, err)
	}

	if _, err := ReplayFile(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"), &recordingSink{}, ReplayOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}
