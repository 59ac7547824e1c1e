package render_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"reel/internal/jobs"
	"reel/internal/logging"
	"reel/internal/render"
	"reel/internal/services"
	"reel/internal/testsupport"
	"reel/internal/timeline"
)

// scriptedRunner plays back canned encoder output instead of spawning a
// process. The output file is written when writeOutput is set, mimicking a
// successful encode.
type scriptedRunner struct {
	lines       []string
	writeOutput bool
	err         error
}

func (r scriptedRunner) Run(_ context.Context, _ string, args []string, onStderr func(string)) error {
	for _, line := range r.lines {
		onStderr(line)
	}
	if r.writeOutput && len(args) > 0 {
		outputPath := args[len(args)-1]
		if err := os.WriteFile(outputPath, []byte("video"), 0o644); err != nil {
			return err
		}
	}
	return r.err
}

func textOnlyTimeline() *timeline.Timeline {
	return &timeline.Timeline{
		Duration:   4,
		FPS:        30,
		Resolution: timeline.Resolution{Width: 1280, Height: 720},
		Tracks: []timeline.Track{
			{ID: "titles", Clips: []timeline.Clip{
				{Type: timeline.ClipText, Start: 0, Duration: 4, Text: "hello"},
			}},
		},
	}
}

func waitForJob(t *testing.T, executor *render.Executor, id string) *jobs.Job {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := executor.Wait(ctx, id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return job
}

func TestExecutorCompletesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := scriptedRunner{
		lines: []string{
			"Stream mapping:",
			"frame=   30 fps= 30 q=28.0 size=     256KiB time=00:00:01.00 bitrate=2097.2kbits/s speed=1x",
			"frame=  120 fps= 30 q=28.0 size=    1024KiB time=00:00:04.00 bitrate=2097.2kbits/s speed=1x",
		},
		writeOutput: true,
	}
	executor := render.NewExecutor(cfg, store, logging.NewNop(), render.WithRunner(runner))
	defer executor.Close()

	events := make(chan render.Event, 64)
	job, err := executor.Submit(context.Background(), render.Request{
		Timeline:   textOnlyTimeline(),
		OutputName: "demo.mp4",
		Events:     events,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForJob(t, executor, job.ID)
	if final.State != jobs.StateCompleted {
		t.Fatalf("state = %s, want %s (error: %s)", final.State, jobs.StateCompleted, final.ErrorMessage)
	}
	if final.Result == nil {
		t.Fatal("completed job missing result")
	}
	if final.Result.Filename != "demo.mp4" || final.Result.Size == 0 {
		t.Fatalf("unexpected result: %+v", final.Result)
	}
	if final.Result.Width != 1280 || final.Result.Height != 720 {
		t.Fatalf("result resolution = %dx%d, want 1280x720", final.Result.Width, final.Result.Height)
	}
	if final.Progress != 100 {
		t.Fatalf("progress = %v, want 100", final.Progress)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Processed != 1 || stats.Errors != 0 || stats.Rejected != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Close waits for the job goroutine, so no event can arrive after this.
	executor.Close()
	close(events)
	var states []jobs.State
	for event := range events {
		if event.Type == render.EventStateChanged {
			states = append(states, event.State)
		}
	}
	want := []jobs.State{
		jobs.StateValidating,
		jobs.StateSubstituting,
		jobs.StateResolving,
		jobs.StateCompiling,
		jobs.StateRendering,
		jobs.StateCompleted,
	}
	if len(states) != len(want) {
		t.Fatalf("state events = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("state events = %v, want %v", states, want)
		}
	}
}

func TestExecutorRejectsInvalidTimeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	executor := render.NewExecutor(cfg, store, logging.NewNop(), render.WithRunner(scriptedRunner{}))
	defer executor.Close()

	tl := textOnlyTimeline()
	tl.FPS = 0
	tl.Tracks[0].Clips[0].Text = ""

	job, err := executor.Submit(context.Background(), render.Request{Timeline: tl})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForJob(t, executor, job.ID)
	if final.State != jobs.StateFailed {
		t.Fatalf("state = %s, want %s", final.State, jobs.StateFailed)
	}
	if final.ErrorKind != "validation" {
		t.Fatalf("error kind = %q, want validation", final.ErrorKind)
	}
	// Every violation is reported, not just the first.
	if !strings.Contains(final.ErrorMessage, "fps") || !strings.Contains(final.ErrorMessage, "text") {
		t.Fatalf("expected both violations in %q", final.ErrorMessage)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Rejected != 1 || stats.Processed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestExecutorEncodingFailureKeepsStderrTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := scriptedRunner{
		lines: []string{
			"[libx264 @ 0x5560] something went sideways",
			"Conversion failed!",
		},
		err: services.Wrap(services.ErrEncoding, "rendering", "ffmpeg", "encoder exited with code 1", nil),
	}
	executor := render.NewExecutor(cfg, store, logging.NewNop(), render.WithRunner(runner))
	defer executor.Close()

	job, err := executor.Submit(context.Background(), render.Request{Timeline: textOnlyTimeline()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForJob(t, executor, job.ID)
	if final.State != jobs.StateFailed {
		t.Fatalf("state = %s, want %s", final.State, jobs.StateFailed)
	}
	if final.ErrorKind != "encoding" {
		t.Fatalf("error kind = %q, want encoding", final.ErrorKind)
	}
	if !strings.Contains(final.StderrTail, "Conversion failed!") {
		t.Fatalf("stderr tail missing diagnostics: %q", final.StderrTail)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Processed != 1 || stats.Errors != 1 || stats.Rejected != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestExecutorVerifiesOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	// Runner succeeds but never writes the output file.
	executor := render.NewExecutor(cfg, store, logging.NewNop(), render.WithRunner(scriptedRunner{}))
	defer executor.Close()

	job, err := executor.Submit(context.Background(), render.Request{Timeline: textOnlyTimeline()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForJob(t, executor, job.ID)
	if final.State != jobs.StateFailed {
		t.Fatalf("state = %s, want %s", final.State, jobs.StateFailed)
	}
	if final.ErrorKind != "output_verification" {
		t.Fatalf("error kind = %q, want output_verification", final.ErrorKind)
	}
}

func TestExecutorAppliesMergeFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	executor := render.NewExecutor(cfg, store, logging.NewNop(),
		render.WithRunner(scriptedRunner{writeOutput: true}))
	defer executor.Close()

	tl := textOnlyTimeline()
	tl.Tracks[0].Clips[0].Text = "Hello {{name}}"

	job, err := executor.Submit(context.Background(), render.Request{
		Timeline: tl,
		Fields:   timeline.MergeFieldMap{"name": "Ada"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForJob(t, executor, job.ID)
	if final.State != jobs.StateCompleted {
		t.Fatalf("state = %s, want %s (error: %s)", final.State, jobs.StateCompleted, final.ErrorMessage)
	}
	// Submitted timeline must not be mutated by substitution.
	if tl.Tracks[0].Clips[0].Text != "Hello {{name}}" {
		t.Fatalf("submitted timeline mutated: %q", tl.Tracks[0].Clips[0].Text)
	}
}

func TestExecutorWithStubBinary(t *testing.T) {
	script := `#!/bin/sh
for last in "$@"; do :; done
printf 'frame=   30 fps= 30 q=28.0 time=00:00:02.00 bitrate=N/A speed=1x\r' >&2
printf 'frame=  120 fps= 30 q=28.0 time=00:00:04.00 bitrate=N/A speed=1x\n' >&2
printf 'video' > "$last"
exit 0
`
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedFFmpeg(script))
	store := testsupport.MustOpenStore(t, cfg)
	executor := render.NewExecutor(cfg, store, logging.NewNop())
	defer executor.Close()

	job, err := executor.Submit(context.Background(), render.Request{
		Timeline:   textOnlyTimeline(),
		OutputName: "stub.mp4",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForJob(t, executor, job.ID)
	if final.State != jobs.StateCompleted {
		t.Fatalf("state = %s, want %s (error: %s)", final.State, jobs.StateCompleted, final.ErrorMessage)
	}
	if final.Result == nil || final.Result.Filename != "stub.mp4" {
		t.Fatalf("unexpected result: %+v", final.Result)
	}
}

func TestExecutorTimeout(t *testing.T) {
	script := `#!/bin/sh
sleep 30
`
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedFFmpeg(script))
	store := testsupport.MustOpenStore(t, cfg)
	executor := render.NewExecutor(cfg, store, logging.NewNop())
	defer executor.Close()

	job, err := executor.Submit(context.Background(), render.Request{
		Timeline: textOnlyTimeline(),
		Timeout:  200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	final := waitForJob(t, executor, job.ID)
	if final.State != jobs.StateFailed {
		t.Fatalf("state = %s, want %s", final.State, jobs.StateFailed)
	}
	if final.ErrorKind != "cancelled" {
		t.Fatalf("error kind = %q, want cancelled", final.ErrorKind)
	}
}

func TestExecutorRequiresTimeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	executor := render.NewExecutor(cfg, store, logging.NewNop(), render.WithRunner(scriptedRunner{}))
	defer executor.Close()

	_, err := executor.Submit(context.Background(), render.Request{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}
