package orchestrator

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Templates holds every user-facing string. Reply text is a deterministic
// function of (kind, enrichment outcome, sink outcome); raw error text never
// reaches a template.
type Templates struct {
	Success              string `yaml:"success"`
	SinkFailure          string `yaml:"sinkFailure"`
	ProcessingError      string `yaml:"processingError"`
	Unsupported          string `yaml:"unsupported"`
	AudioDownloadFailure string `yaml:"audioDownloadFailure"`
	ImageWithoutUpload   string `yaml:"imageWithoutUpload"`

	ImageMarker        string `yaml:"imageMarker"`
	TranscriptPrefix   string `yaml:"transcriptPrefix"`
	AudioFallback      string `yaml:"audioFallback"`      // fmt: duration seconds, size KB
	ArchiveFailedRef   string `yaml:"archiveFailedRef"`   // fmt: event id, byte count
	ArchiveDisabledRef string `yaml:"archiveDisabledRef"` // fmt: event id, byte count
}

// DefaultTemplates returns the built-in zh-TW strings.
func DefaultTemplates() Templates {
	return Templates{
		Success:              "✅ 您的訊息已成功記錄！",
		SinkFailure:          "❌ 抱歉，記錄訊息時發生錯誤，請稍後再試。",
		ProcessingError:      "❌ 處理訊息時發生錯誤，請稍後再試。",
		Unsupported:          "📝 目前僅支援文字訊息記錄，請傳送文字訊息。",
		AudioDownloadFailure: "❌ 無法下載語音訊息，請稍後再試。",
		ImageWithoutUpload:   "✅ 圖片訊息已記錄（附件上傳失敗）。",

		ImageMarker:        "📷 圖片訊息",
		TranscriptPrefix:   "🎤 語音轉文字: ",
		AudioFallback:      "🎤 語音訊息 (時長: %.1f秒, 大小: %.1fKB)",
		ArchiveFailedRef:   "圖片上傳失敗 (ID: %s, 大小: %d bytes)",
		ArchiveDisabledRef: "圖片未上傳 (ID: %s, 大小: %d bytes)",
	}
}

// LoadTemplates merges an optional YAML override file over the built-ins.
// Missing keys keep their default text; an unreadable file is an error so a
// typo'd path does not silently fall back.
func LoadTemplates(path string, logger *slog.Logger) (Templates, error) {
	tpl := DefaultTemplates()
	if path == "" {
		return tpl, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tpl, fmt.Errorf("read templates file: %w", err)
	}

	var override Templates
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tpl, fmt.Errorf("parse templates file %s: %w", path, err)
	}

	merge(&tpl.Success, override.Success)
	merge(&tpl.SinkFailure, override.SinkFailure)
	merge(&tpl.ProcessingError, override.ProcessingError)
	merge(&tpl.Unsupported, override.Unsupported)
	merge(&tpl.AudioDownloadFailure, override.AudioDownloadFailure)
	merge(&tpl.ImageWithoutUpload, override.ImageWithoutUpload)
	merge(&tpl.ImageMarker, override.ImageMarker)
	merge(&tpl.TranscriptPrefix, override.TranscriptPrefix)
	merge(&tpl.AudioFallback, override.AudioFallback)
	merge(&tpl.ArchiveFailedRef, override.ArchiveFailedRef)
	merge(&tpl.ArchiveDisabledRef, override.ArchiveDisabledRef)

	logger.Info("reply templates loaded", "path", path)
	return tpl, nil
}

func merge(dst *string, override string) {
	if override != "" {
		*dst = override
	}
}
