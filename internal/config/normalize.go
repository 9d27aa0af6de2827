package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeTools()
	c.normalizeServer()
	c.normalizeArchive()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if value, ok := os.LookupEnv("SCENECAST_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = value
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = lookupFirst(providerKeyEnv(c.LLM.Provider)...)
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	switch c.LLM.Provider {
	case ProviderOpenRouter:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenRouterBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenRouterModel
		}
	case ProviderGemini:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultGeminiBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultGeminiModel
		}
	case ProviderOpenAI:
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenAIModel
		}
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func providerKeyEnv(provider string) []string {
	switch provider {
	case ProviderOpenAI:
		return []string{"OPENAI_API_KEY"}
	case ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		return []string{"OPENROUTER_API_KEY"}
	}
}

func (c *Config) normalizeTools() {
	c.Renderer.Binary = defaultString(c.Renderer.Binary, defaultRendererBinary)
	c.Renderer.Scene = defaultString(c.Renderer.Scene, defaultSceneName)
	c.Renderer.ScriptName = defaultString(c.Renderer.ScriptName, defaultScriptName)
	c.Renderer.OutputStem = defaultString(c.Renderer.OutputStem, defaultOutputStem)
	if c.Renderer.LowQualityThreshold <= 0 {
		c.Renderer.LowQualityThreshold = defaultLowQualitySeconds
	}

	c.Speech.Binary = defaultString(c.Speech.Binary, defaultSpeechBinary)
	c.Speech.Language = strings.ToLower(defaultString(c.Speech.Language, defaultSpeechLanguage))
	if c.Speech.Tempo == 0 {
		c.Speech.Tempo = defaultSpeechTempo
	}

	c.FFmpeg.Binary = defaultString(c.FFmpeg.Binary, defaultFFmpegBinary)
	c.FFmpeg.ProbeBinary = defaultString(c.FFmpeg.ProbeBinary, defaultFFprobeBinary)
}

func (c *Config) normalizeServer() {
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = defaultMaxBodyBytes
	}
	c.Server.AllowOrigins = defaultString(c.Server.AllowOrigins, defaultAllowOrigins)
	c.Server.DownloadName = defaultString(c.Server.DownloadName, defaultDownloadName)
}

func (c *Config) normalizeArchive() {
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	c.Archive.Endpoint = strings.TrimSpace(c.Archive.Endpoint)
	c.Archive.Region = defaultString(c.Archive.Region, defaultArchiveRegion)
	c.Archive.Prefix = strings.TrimLeft(strings.TrimSpace(c.Archive.Prefix), "/")
	if c.Archive.AccessKeyID = strings.TrimSpace(c.Archive.AccessKeyID); c.Archive.AccessKeyID == "" {
		c.Archive.AccessKeyID = lookupFirst("SCENECAST_ARCHIVE_ACCESS_KEY_ID")
	}
	if c.Archive.SecretAccessKey = strings.TrimSpace(c.Archive.SecretAccessKey); c.Archive.SecretAccessKey == "" {
		c.Archive.SecretAccessKey = lookupFirst("SCENECAST_ARCHIVE_SECRET_ACCESS_KEY")
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func lookupFirst(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
