package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nixlim/camwatch/internal/config"
	"github.com/nixlim/camwatch/internal/delivery"
	"github.com/nixlim/camwatch/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type runOptions struct {
	replayPath string
	pace       bool
	speed      float64
	tui        bool
}

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "Path to the TOML config file")
	probeFlag := flag.Bool("probe", false, "Send a test request to the webhook and exit")
	replayFlag := flag.String("replay", "", "Replay detections from a JSONL file instead of starting the receivers")
	paceFlag := flag.Bool("pace", false, "With -replay, wait between samples according to their timestamps")
	speedFlag := flag.Float64("speed", 1, "With -replay -pace, playback speed multiplier")
	tuiFlag := flag.Bool("tui", false, "Show the terminal dashboard")
	versionFlag := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Println("camwatch", version)
		return
	}

	config.LoadEnv(logging.New(os.Stderr, "info", "text"))

	loadResult, err := config.LoadFrom(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "camwatch: config error: %v\n", err)
		os.Exit(1)
	}
	cfg := loadResult.Config

	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "camwatch: config warning: %s\n", w)
	}

	if *probeFlag {
		os.Exit(runProbe(cfg.Webhook))
	}

	opts := runOptions{
		replayPath: *replayFlag,
		pace:       *paceFlag,
		speed:      *speedFlag,
		tui:        *tuiFlag,
	}
	if err := run(cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "camwatch: %v\n", err)
		os.Exit(1)
	}
}

// runProbe posts one test request to the webhook and returns the process
// exit code.
func runProbe(cfg config.WebhookConfig) int {
	if cfg.URL == "" {
		fmt.Fprintln(os.Stderr, "camwatch: no webhook url configured")
		return 1
	}

	client := delivery.NewClient(webhookConfig(cfg), delivery.WithLogger(logging.New(os.Stderr, "info", "text")))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout()+5*time.Second)
	defer cancel()

	if !client.Probe(ctx) {
		fmt.Printf("webhook %s: unreachable\n", cfg.URL)
		return 1
	}
	fmt.Printf("webhook %s: reachable\n", cfg.URL)
	return 0
}

func webhookConfig(cfg config.WebhookConfig) delivery.Config {
	return delivery.Config{
		URL:           cfg.URL,
		Timeout:       cfg.Timeout(),
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay(),
		SenderID:      cfg.SenderID,
	}
}
