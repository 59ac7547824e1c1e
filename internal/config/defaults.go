package config

const (
	defaultAssetsDir       = "~/.local/share/reel/assets"
	defaultOutputDir       = "~/.local/share/reel/output"
	defaultLogDir          = "~/.local/share/reel/logs"
	defaultFontDir         = "/usr/share/fonts/truetype"
	defaultVideoCodec      = "libx264"
	defaultAudioCodec      = "aac"
	defaultPixelFormat     = "yuv420p"
	defaultPreset          = "medium"
	defaultMaxConcurrent   = 2
	defaultRenderTimeout   = 1800
	defaultStderrTailLines = 40
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetsDir: defaultAssetsDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			FontDir:   defaultFontDir,
		},
		FFmpeg: FFmpeg{
			Binary:      "ffmpeg",
			VideoCodec:  defaultVideoCodec,
			AudioCodec:  defaultAudioCodec,
			PixelFormat: defaultPixelFormat,
			Preset:      defaultPreset,
		},
		Workflow: Workflow{
			MaxConcurrentRenders: defaultMaxConcurrent,
			RenderTimeout:        defaultRenderTimeout,
			StderrTailLines:      defaultStderrTailLines,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
