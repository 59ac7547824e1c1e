package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reel/internal/config"
	"reel/internal/testsupport"
)

const validTimelineJSON = `{
  "fps": 30,
  "duration": 4,
  "resolution": {"width": 1280, "height": 720},
  "tracks": [
    {"id": "titles", "clips": [
      {"type": "text", "start": 0, "duration": 4, "text": "Hello {{name}}"}
    ]}
  ]
}`

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "reel.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestValidateCommandAcceptsTimeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.json")
	if err := os.WriteFile(path, []byte(validTimelineJSON), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}

	stdout, _, err := runCommand(t, "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(stdout, "timeline is valid") {
		t.Fatalf("unexpected output: %q", stdout)
	}
}

func TestValidateCommandReportsEveryViolation(t *testing.T) {
	broken := `{
  "fps": 0,
  "resolution": {"width": 1280, "height": 720},
  "tracks": [
    {"clips": [
      {"type": "text", "start": -1, "duration": 4}
    ]}
  ]
}`
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(broken), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}

	stdout, _, err := runCommand(t, "validate", path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, fragment := range []string{"fps", "start", "text"} {
		if !strings.Contains(stdout, fragment) {
			t.Fatalf("expected %q in output: %q", fragment, stdout)
		}
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	stdout, _, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(stdout, target) {
		t.Fatalf("unexpected output: %q", stdout)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}

	if _, _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal without --overwrite")
	}
}

func TestRenderCommandDryRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	timelinePath := filepath.Join(t.TempDir(), "timeline.json")
	if err := os.WriteFile(timelinePath, []byte(validTimelineJSON), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}

	stdout, _, err := runCommand(t,
		"--config", configPath,
		"render", timelinePath,
		"--dry-run",
		"--fields", "name=Ada",
		"--output", "dry.mp4")
	if err != nil {
		t.Fatalf("render --dry-run: %v", err)
	}
	for _, fragment := range []string{"-filter_complex", "drawtext", "dry.mp4"} {
		if !strings.Contains(stdout, fragment) {
			t.Fatalf("expected %q in dry-run output: %q", fragment, stdout)
		}
	}
	// Merge fields applied before compilation.
	if !strings.Contains(stdout, "Ada") {
		t.Fatalf("expected substituted text in output: %q", stdout)
	}
}

const stubEncoderScript = `#!/bin/sh
for last in "$@"; do :; done
printf 'frame=  30 time=00:00:01.00 speed=1x\n' >&2
printf 'encoded' > "$last"
`

func TestRenderCommandHoldsUntilCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedFFmpeg(stubEncoderScript))
	configPath := writeTestConfig(t, cfg)

	timelinePath := filepath.Join(t.TempDir(), "timeline.json")
	if err := os.WriteFile(timelinePath, []byte(validTimelineJSON), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}

	// No --wait: the command must still hold until the job is terminal
	// instead of tearing the executor down mid-render.
	stdout, _, err := runCommand(t,
		"--config", configPath,
		"render", timelinePath,
		"--fields", "name=Ada",
		"--output", "final.mp4")
	if err != nil {
		t.Fatalf("render: %v (stdout %q)", err, stdout)
	}
	if !strings.Contains(stdout, "submitted") {
		t.Fatalf("missing submission line: %q", stdout)
	}
	if !strings.Contains(stdout, "completed:") {
		t.Fatalf("expected completed outcome: %q", stdout)
	}
	output := filepath.Join(cfg.Paths.OutputDir, "final.mp4")
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected rendered output at %s: %v", output, err)
	}
}

func TestRenderCommandFollowsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedFFmpeg(stubEncoderScript))
	configPath := writeTestConfig(t, cfg)

	timelinePath := filepath.Join(t.TempDir(), "timeline.json")
	if err := os.WriteFile(timelinePath, []byte(validTimelineJSON), 0o644); err != nil {
		t.Fatalf("write timeline: %v", err)
	}

	stdout, stderr, err := runCommand(t,
		"--config", configPath,
		"render", timelinePath,
		"--wait",
		"--output", "followed.mp4")
	if err != nil {
		t.Fatalf("render --wait: %v (stderr %q)", err, stderr)
	}
	if !strings.Contains(stderr, "-> ") {
		t.Fatalf("expected stage transitions on stderr: %q", stderr)
	}
	if !strings.Contains(stdout, "completed:") {
		t.Fatalf("expected completed outcome: %q", stdout)
	}
}

func TestJobsCommandEmptyHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	stdout, _, err := runCommand(t, "--config", configPath, "jobs")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !strings.Contains(stdout, "no jobs recorded") {
		t.Fatalf("unexpected output: %q", stdout)
	}
}

func TestStatsCommandJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	stdout, _, err := runCommand(t, "--config", configPath, "stats", "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(stdout, "\"Processed\"") {
		t.Fatalf("unexpected output: %q", stdout)
	}
}

func TestParseFieldFlags(t *testing.T) {
	fields, err := parseFieldFlags([]string{"name=Ada", "greeting=Hello there"})
	if err != nil {
		t.Fatalf("parseFieldFlags: %v", err)
	}
	if fields["name"] != "Ada" || fields["greeting"] != "Hello there" {
		t.Fatalf("unexpected fields: %v", fields)
	}

	if _, err := parseFieldFlags([]string{"missing-separator"}); err == nil {
		t.Fatal("expected error for malformed field")
	}
}
