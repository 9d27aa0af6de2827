package config

const (
	// FinalArtifactName is the fixed file name of every published video.
	FinalArtifactName = "final_output.mp4"

	// Supported generative model providers.
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
)

const (
	defaultConfigPath         = "~/.config/scenecast/config.toml"
	defaultWorkDir            = "~/.local/share/scenecast/runs"
	defaultOutputDir          = "."
	defaultLogDir             = "~/.local/share/scenecast/logs"
	defaultStateDir           = "~/.local/share/scenecast"
	defaultAPIBind            = "127.0.0.1:5500"
	defaultLogRetentionDays   = 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLLMProvider        = ProviderOpenRouter
	defaultOpenRouterBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultGeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultOpenRouterModel    = "google/gemini-2.5-flash"
	defaultGeminiModel        = "gemini-2.5-flash"
	defaultOpenAIModel        = "gpt-4o-mini"
	defaultLLMReferer         = "https://github.com/scenecast/scenecast"
	defaultLLMTitle           = "scenecast"
	defaultLLMTimeoutSeconds  = 120
	defaultRendererBinary     = "manim"
	defaultSceneName          = "ExplanationScene"
	defaultScriptName         = "temp_animation.py"
	defaultOutputStem         = "output_animation"
	defaultMaxAttempts        = 3
	defaultRetryDelaySeconds  = 2
	defaultLowQualitySeconds  = 45
	defaultSpeechBinary       = "gtts-cli"
	defaultSpeechLanguage     = "en"
	defaultSpeechTempo        = 1.25
	defaultToleranceSeconds   = 2.0
	defaultFFmpegBinary       = "ffmpeg"
	defaultFFprobeBinary      = "ffprobe"
	defaultMaxBodyBytes       = 16 * 1024 * 1024
	defaultAllowOrigins       = "*"
	defaultDownloadName       = "animation.mp4"
	defaultArchiveRegion      = "us-east-1"
	defaultArchivePrefix      = "scenecast/"
	defaultNtfyTimeoutSeconds = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
			APIBind:   defaultAPIBind,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Renderer: Renderer{
			Binary:              defaultRendererBinary,
			Scene:               defaultSceneName,
			ScriptName:          defaultScriptName,
			OutputStem:          defaultOutputStem,
			MaxAttempts:         defaultMaxAttempts,
			RetryDelaySeconds:   defaultRetryDelaySeconds,
			LowQualityThreshold: defaultLowQualitySeconds,
		},
		Speech: Speech{
			Binary:           defaultSpeechBinary,
			Language:         defaultSpeechLanguage,
			Tempo:            defaultSpeechTempo,
			ToleranceSeconds: defaultToleranceSeconds,
		},
		FFmpeg: FFmpeg{
			Binary:      defaultFFmpegBinary,
			ProbeBinary: defaultFFprobeBinary,
		},
		Server: Server{
			MaxBodyBytes: defaultMaxBodyBytes,
			AllowOrigins: defaultAllowOrigins,
			DownloadName: defaultDownloadName,
		},
		Archive: Archive{
			Region: defaultArchiveRegion,
			Prefix: defaultArchivePrefix,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			NotifyOnSuccess:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
