package receiver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nixlim/camwatch/internal/logging"
)

// ReplayOptions controls Replay. With Pace set, samples are released at
// the spacing of their timestamps divided by Speed (default 1).
type ReplayOptions struct {
	Pace   bool
	Speed  float64
	Logger logging.Logger
}

// ReplayFile replays the JSONL file at path.
func ReplayFile(ctx context.Context, path string, sink Sink, opts ReplayOptions) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening replay file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Replay(ctx, f, sink, opts)
}

// Replay reads one DetectionRequest per line and submits it to sink.
// Blank lines and lines starting with '#' are skipped; malformed lines are
// logged and skipped. It returns the number of samples submitted.
func Replay(ctx context.Context, r io.Reader, sink Sink, opts ReplayOptions) (int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		submitted int
		lineNo    int
		prev      time.Time
	)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var req DetectionRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			logger.WithField("line", lineNo).WithError(err).Warn("skipping malformed replay line")
			continue
		}
		s, err := req.Sample(time.Now())
		if err != nil {
			logger.WithField("line", lineNo).WithError(err).Warn("skipping invalid replay line")
			continue
		}

		if opts.Pace && !prev.IsZero() && s.Timestamp.After(prev) {
			wait := time.Duration(float64(s.Timestamp.Sub(prev)) / speed)
			if err := sleep(ctx, wait); err != nil {
				return submitted, err
			}
		}
		prev = s.Timestamp

		if err := sink.Submit(ctx, s); err != nil {
			return submitted, err
		}
		submitted++
	}
	if err := scanner.Err(); err != nil {
		return submitted, fmt.Errorf("reading replay input: %w", err)
	}
	return submitted, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
