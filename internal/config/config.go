package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	AssetsDir  string   `toml:"assets_dir"`
	OutputDir  string   `toml:"output_dir"`
	LogDir     string   `toml:"log_dir"`
	FontDir    string   `toml:"font_dir"`
	ExtraRoots []string `toml:"extra_asset_roots"`
}

// FFmpeg contains encoder invocation settings.
type FFmpeg struct {
	Binary      string `toml:"binary"`
	VideoCodec  string `toml:"video_codec"`
	AudioCodec  string `toml:"audio_codec"`
	PixelFormat string `toml:"pixel_format"`
	Preset      string `toml:"preset"`
}

// Workflow contains render scheduling limits.
type Workflow struct {
	MaxConcurrentRenders int `toml:"max_concurrent_renders"`
	RenderTimeout        int `toml:"render_timeout"` // seconds, 0 disables
	StderrTailLines      int `toml:"stderr_tail_lines"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reel.
type Config struct {
	Paths    Paths    `toml:"paths"`
	FFmpeg   FFmpeg   `toml:"ffmpeg"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("reel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.AssetsDir, &c.Paths.OutputDir, &c.Paths.LogDir, &c.Paths.FontDir} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	for i, root := range c.Paths.ExtraRoots {
		expanded, err := expandPath(root)
		if err != nil {
			return err
		}
		c.Paths.ExtraRoots[i] = expanded
	}
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates required directories for render operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// AssetRoots returns the ordered list of directories the asset resolver
// probes: the general assets root first, then per-type subdirectories, then
// any configured provider roots.
func (c *Config) AssetRoots() []string {
	roots := make([]string, 0, 4+len(c.Paths.ExtraRoots))
	base := strings.TrimSpace(c.Paths.AssetsDir)
	if base != "" {
		roots = append(roots, base)
		for _, sub := range []string{"images", "videos", "audio"} {
			roots = append(roots, filepath.Join(base, sub))
		}
	}
	roots = append(roots, c.Paths.ExtraRoots...)
	return roots
}

// FFmpegBinary returns the encoder executable name.
func (c *Config) FFmpegBinary() string {
	if binary := strings.TrimSpace(c.FFmpeg.Binary); binary != "" {
		return binary
	}
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
