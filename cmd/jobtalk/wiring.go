package main

import (
	"log/slog"
	"time"

	"jobtalk/config"
	"jobtalk/internal/application"
	"jobtalk/internal/document"
	"jobtalk/internal/infra/anthropic"
	"jobtalk/internal/infra/audio"
	"jobtalk/internal/infra/gemini"
	"jobtalk/internal/infra/openai"
	"jobtalk/internal/infra/pushover"
)

func newSpeechToText(cfg *config.Config, logger *slog.Logger) application.SpeechToText {
	switch cfg.Transcription.Provider {
	case config.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			break
		}
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	default:
		if cfg.OpenAI.APIKey == "" {
			break
		}
		return openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Language)
	}
	logger.Warn("no API key for transcription provider, transcription will fail", "provider", cfg.Transcription.Provider)
	return &application.NoopSTT{}
}

func newCategorizer(cfg *config.Config) application.Categorizer {
	if cfg.Categorization.Provider == config.ProviderGemini {
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	}
	return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model)
}

func newNotifier(cfg config.PushoverConfig) application.Notifier {
	if !cfg.Enabled {
		return &application.NoopNotifier{}
	}
	return pushover.NewClient(cfg.Token, cfg.UserKey, cfg.Title)
}

func newPipeline(cfg *config.Config, observer application.StageObserver, logger *slog.Logger) *application.Pipeline {
	return application.NewPipeline(
		newSpeechToText(cfg, logger),
		newCategorizer(cfg),
		newNotifier(cfg.Pushover),
		observer,
		logger,
	)
}

func newAudioDevice(cfg config.AudioConfig, logger *slog.Logger) application.AudioDevice {
	if cfg.Source == "directory" {
		return audio.NewDirectoryDevice(cfg.Dir, logger)
	}
	return audio.NewMicrophoneDevice(cfg.SampleRate, cfg.MaxDuration, cfg.SilenceStop, logger)
}

func documentDefaults(cfg config.DocumentConfig, now time.Time) document.Defaults {
	return document.Defaults{
		Title:              cfg.Title,
		DownPaymentPercent: cfg.DownPaymentPercent,
		Terms:              cfg.Terms,
		Date:               now,
	}
}
