package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("config: paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("config: paths.log_dir must be set")
	}
	if c.Workflow.MaxConcurrentRenders < 1 {
		return fmt.Errorf("config: workflow.max_concurrent_renders must be at least 1, got %d", c.Workflow.MaxConcurrentRenders)
	}
	if c.Workflow.RenderTimeout < 0 {
		return fmt.Errorf("config: workflow.render_timeout must not be negative, got %d", c.Workflow.RenderTimeout)
	}
	if c.Workflow.StderrTailLines < 1 {
		return fmt.Errorf("config: workflow.stderr_tail_lines must be at least 1, got %d", c.Workflow.StderrTailLines)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
