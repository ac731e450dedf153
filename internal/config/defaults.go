package config

const (
	defaultConfigPath        = "~/.config/animforge/config.toml"
	defaultOutputDir         = "~/animforge/media/videos"
	defaultLogDir            = "~/.local/share/animforge/logs"
	defaultRenderBinary      = "manim"
	defaultTrialQuality      = "l"
	defaultFinalQuality      = "m"
	defaultMaxRenderAttempts = 3
	defaultLocator           = LocatorSubstring
	defaultFFprobeBinary     = "ffprobe"
	defaultMaxAttempts       = 5
	defaultCompiler          = CompilerPython
	defaultPythonBinary      = "python3"
	defaultProvider          = ProviderGemini
	defaultTemperature       = 0.7
	defaultTimeoutSeconds    = 60
	defaultRetryAttempts     = 3
	defaultReferer           = "https://github.com/animforge/animforge"
	defaultTitle             = "animforge code repair"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultNtfyTimeout       = 10
)

// Supported enumerations.
const (
	LocatorSubstring = "substring"
	LocatorExact     = "exact"

	CompilerPython     = "python"
	CompilerTreeSitter = "treesitter"

	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

var defaultModels = map[string]string{
	ProviderGemini:     "gemini-2.0-flash",
	ProviderOpenRouter: "google/gemini-2.0-flash-001",
	ProviderOpenAI:     "gpt-4o-mini",
}

var defaultBaseURLs = map[string]string{
	ProviderOpenRouter: "https://openrouter.ai/api/v1/chat/completions",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			ScratchDir: defaultScratchDir(),
			LogDir:     defaultLogDir,
		},
		Render: Render{
			Binary:            defaultRenderBinary,
			TrialQuality:      defaultTrialQuality,
			FinalQuality:      defaultFinalQuality,
			MaxRenderAttempts: defaultMaxRenderAttempts,
			Locator:           defaultLocator,
			FFprobeBinary:     defaultFFprobeBinary,
		},
		Validation: Validation{
			MaxAttempts:  defaultMaxAttempts,
			Compiler:     defaultCompiler,
			PythonBinary: defaultPythonBinary,
		},
		Repair: Repair{
			Provider:       defaultProvider,
			Temperature:    defaultTemperature,
			TimeoutSeconds: defaultTimeoutSeconds,
			RetryAttempts:  defaultRetryAttempts,
			Referer:        defaultReferer,
			Title:          defaultTitle,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
			NotifyOnSuccess:       true,
		},
	}
}
