package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:            "info",
			MaxConcurrentEvents: 5,
		},
		Line: LineConfig{
			Port:        5000,
			WebhookPath: "/callback",
		},
		Sheets: SheetsConfig{
			SheetName: "Sheet1",
		},
		Storage: StorageConfig{
			Enabled: true,
			Prefix:  "media",
		},
		Transcription: TranscriptionConfig{
			Enabled:  true,
			Language: "zh-TW",
			Whisper: WhisperConfig{
				Enabled: false,
				APIBase: "https://api.groq.com/openai/v1",
				Model:   "whisper-large-v3",
			},
			Google: GoogleSpeechConfig{
				Enabled: true,
			},
		},
		Journal: JournalConfig{
			Enabled: false,
			DBPath:  "~/.linelogger/journal.db",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
