package config

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Receiver: ReceiverConfig{
			Enabled:  true,
			GRPCPort: 4317,
			HTTPPort: 4318,
			Bind:     "127.0.0.1",
		},
		Webhook: WebhookConfig{
			TimeoutSeconds:    10,
			RetryAttempts:     3,
			RetryDelaySeconds: 2,
			SenderID:          "camwatch",
			ProbeOnStart:      true,
		},
		Dispatch: DispatchConfig{
			QueueSize:              64,
			Workers:                4,
			ShutdownTimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			DBPath:        "~/.local/share/camwatch/camwatch.db",
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9464",
		},
		Detectors: []DetectorConfig{
			DefaultDetector(KindSleepingPerson),
		},
	}
}

// DefaultDetector returns the thresholds a detector of the given kind runs
// with unless overridden. Unknown kinds get the sleeping person values and
// are rejected by validation.
func DefaultDetector(kind string) DetectorConfig {
	d := DetectorConfig{
		ID:                   kind,
		Kind:                 kind,
		Location:             "Camera Feed",
		Enabled:              true,
		ConfidenceThreshold:  0.3,
		PersistenceSeconds:   10,
		CheckIntervalSeconds: 2,
		CooldownSeconds:      30,
		RetentionSeconds:     60,
		RequiredRatio:        0.7,
		MinSamples:           2,
		Qualify:              QualifyHorizontal,
	}
	if kind == KindColorMarker {
		d.ConfidenceThreshold = 0
		d.PersistenceSeconds = 3
		d.CheckIntervalSeconds = 1
		d.CooldownSeconds = 10
		d.Qualify = QualifyAny
	}
	return d
}
