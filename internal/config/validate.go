package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRenderer(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (want openrouter, openai, or gemini)", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set %s or edit %s (create with 'scenecast config init')",
			strings.Join(providerKeyEnv(c.LLM.Provider), " or "), defaultPath)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateRenderer() error {
	if c.Renderer.MaxAttempts < 1 {
		return errors.New("renderer.max_attempts must be at least 1")
	}
	if c.Renderer.RetryDelaySeconds < 0 {
		return errors.New("renderer.retry_delay_seconds must not be negative")
	}
	if c.Renderer.TimeoutSeconds < 0 {
		return errors.New("renderer.timeout_seconds must not be negative")
	}
	// Generated scripts always declare this class; manim cannot find any other.
	if c.Renderer.Scene != defaultSceneName {
		return fmt.Errorf("renderer.scene: unsupported value %q (scripts declare %s)", c.Renderer.Scene, defaultSceneName)
	}
	if strings.ContainsAny(c.Renderer.ScriptName, `/\`) {
		return errors.New("renderer.script_name must be a bare file name")
	}
	return nil
}

func (c *Config) validateSpeech() error {
	// ffmpeg's atempo filter accepts factors in [0.5, 100].
	if c.Speech.Tempo < 0.5 || c.Speech.Tempo > 100 {
		return errors.New("speech.tempo must be between 0.5 and 100")
	}
	if c.Speech.ToleranceSeconds < 0 {
		return errors.New("speech.tolerance_seconds must not be negative")
	}
	if c.Speech.TimeoutSeconds < 0 || c.FFmpeg.TimeoutSeconds < 0 {
		return errors.New("speech.timeout_seconds and ffmpeg.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if strings.ContainsAny(c.Server.DownloadName, `/\"`) {
		return errors.New("server.download_name must be a bare file name")
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Bucket == "" {
		return errors.New("archive.bucket must be set when archive.enabled is true")
	}
	if (c.Archive.AccessKeyID == "") != (c.Archive.SecretAccessKey == "") {
		return errors.New("archive.access_key_id and archive.secret_access_key must be set together")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}
