package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.AssetsDir = filepath.Join(base, "assets")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.FontDir = filepath.Join(base, "fonts")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithRenderTimeout overrides the per-job render timeout in seconds.
func WithRenderTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.RenderTimeout = seconds
	}
}

// WithExtraRoots adds asset lookup roots to the test config.
func WithExtraRoots(roots ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ExtraRoots = append(b.cfg.Paths.ExtraRoots, roots...)
	}
}

// WithStubbedFFmpeg writes a stub encoder script with the provided body,
// points the config at it, and returns its path via the config. An empty
// body produces a stub that exits successfully.
func WithStubbedFFmpeg(body string) ConfigOption {
	return func(b *configBuilder) {
		if body == "" {
			body = "#!/bin/sh\nexit 0\n"
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffmpeg")
		if err := os.WriteFile(target, []byte(body), 0o755); err != nil {
			b.t.Fatalf("write stub ffmpeg: %v", err)
		}
		b.cfg.FFmpeg.Binary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
