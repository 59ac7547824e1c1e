package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reel/internal/assets"
	"reel/internal/config"
	"reel/internal/fgraph"
	"reel/internal/jobs"
	"reel/internal/logging"
	"reel/internal/services"
	"reel/internal/timeline"
)

// EventType distinguishes executor event stream entries.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
	EventProgress     EventType = "progress"
)

// Event is one observer notification: a state transition or a progress tick.
type Event struct {
	JobID   string
	Type    EventType
	State   jobs.State
	Percent float64
	Message string
}

// Request describes one render submission.
type Request struct {
	Timeline   *timeline.Timeline
	Fields     timeline.MergeFieldMap
	OutputName string
	// Timeout overrides the configured per-job wall clock limit when > 0.
	Timeout time.Duration
	// Events receives state and progress notifications when non-nil.
	// Delivery is best effort; a full channel drops the event.
	Events chan<- Event
}

// Option configures the executor.
type Option func(*Executor)

// WithRunner injects a custom encoder runner (primarily for tests).
func WithRunner(runner Runner) Option {
	return func(e *Executor) {
		if runner != nil {
			e.runner = runner
		}
	}
}

// Executor drives render jobs through the pipeline and supervises the
// encoder process, bounded by the configured concurrency limit.
type Executor struct {
	cfg      *config.Config
	store    *jobs.Store
	resolver *assets.Resolver
	compiler *fgraph.Compiler
	session  *Session
	runner   Runner
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	slots  chan struct{}
	wg     sync.WaitGroup
}

// NewExecutor builds an executor wired to the given store and config.
func NewExecutor(cfg *config.Config, store *jobs.Store, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	fonts := assets.NewFontTable(cfg.Paths.FontDir)
	limit := cfg.Workflow.MaxConcurrentRenders
	if limit <= 0 {
		limit = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	executor := &Executor{
		cfg:      cfg,
		store:    store,
		resolver: assets.NewResolver(cfg.AssetRoots(), logger),
		compiler: fgraph.NewCompiler(fonts, logger),
		session:  NewSession(cfg.Paths.OutputDir),
		runner:   NewCommandRunner(),
		logger:   logging.WithComponent(logger, "render"),
		ctx:      ctx,
		cancel:   cancel,
		slots:    make(chan struct{}, limit),
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Close cancels running jobs and waits for their goroutines to finish.
func (e *Executor) Close() {
	e.cancel()
	e.wg.Wait()
}

// Submit registers a job and starts processing it in the background. The
// returned snapshot reflects the created state.
func (e *Executor) Submit(ctx context.Context, req Request) (*jobs.Job, error) {
	if req.Timeline == nil {
		return nil, services.Wrap(services.ErrConfiguration, "created", "submit", "timeline is required", nil)
	}

	outputPath := e.outputPath(req.OutputName)
	job, err := e.store.Create(ctx, outputPath)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	e.wg.Add(1)
	go e.run(job.ID, outputPath, req)

	e.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("output", outputPath))
	return job, nil
}

// Wait blocks until the job reaches a terminal state and returns its final
// snapshot.
func (e *Executor) Wait(ctx context.Context, jobID string) (*jobs.Job, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		job, err := e.store.GetByID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, fmt.Errorf("job %s not found", jobID)
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Executor) outputPath(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("render-%d.mp4", time.Now().UnixNano())
	}
	if filepath.Ext(name) == "" {
		name += ".mp4"
	}
	return filepath.Join(e.cfg.Paths.OutputDir, filepath.Base(name))
}

func (e *Executor) run(jobID, outputPath string, req Request) {
	defer e.wg.Done()

	select {
	case e.slots <- struct{}{}:
	case <-e.ctx.Done():
		e.fail(jobID, services.Wrap(services.ErrCancelled, "created", "schedule", "executor shutting down", e.ctx.Err()), "", req)
		return
	}
	defer func() { <-e.slots }()

	timeout := req.Timeout
	if timeout <= 0 && e.cfg.Workflow.RenderTimeout > 0 {
		timeout = time.Duration(e.cfg.Workflow.RenderTimeout) * time.Second
	}
	ctx := e.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tail := NewTail(e.cfg.Workflow.StderrTailLines)
	if err := e.process(ctx, jobID, outputPath, req, tail); err != nil {
		e.fail(jobID, err, tail.String(), req)
	}
}

func (e *Executor) process(ctx context.Context, jobID, outputPath string, req Request, tail *Tail) error {
	started := time.Now()

	// Validation collects every violation before rejecting.
	if err := e.advance(ctx, jobID, jobs.StateValidating, req); err != nil {
		return err
	}
	if err := timeline.Validate(req.Timeline); err != nil {
		return services.Wrap(services.ErrValidation, "validating", "timeline", err.Error(), err)
	}

	if err := e.advance(ctx, jobID, jobs.StateSubstituting, req); err != nil {
		return err
	}
	tl, err := timeline.ApplyMergeFields(req.Timeline, req.Fields)
	if err != nil {
		return services.Wrap(services.ErrValidation, "substituting", "merge fields", "apply merge fields", err)
	}

	if err := e.advance(ctx, jobID, jobs.StateResolving, req); err != nil {
		return err
	}
	resolved := e.resolveAssets(tl)

	if err := e.advance(ctx, jobID, jobs.StateCompiling, req); err != nil {
		return err
	}
	options := e.globalOptions(tl)
	cmd, err := e.compiler.Compile(tl, resolved, options, outputPath)
	if err != nil {
		return services.Wrap(services.ErrCompile, "compiling", "filter graph", "compile timeline", err)
	}

	if err := e.advance(ctx, jobID, jobs.StateRendering, req); err != nil {
		return err
	}
	if err := e.session.Prepare(); err != nil {
		return services.Wrap(services.ErrConfiguration, "rendering", "output dir", "prepare output directory", err)
	}
	if err := e.supervise(ctx, jobID, cmd, tail, req); err != nil {
		return err
	}

	result, err := verifyOutput(outputPath, options)
	if err != nil {
		return err
	}
	if err := e.store.MarkCompleted(context.Background(), jobID, result, time.Since(started)); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	e.emit(req, Event{JobID: jobID, Type: EventStateChanged, State: jobs.StateCompleted, Percent: 100})
	e.logger.Info("render completed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("output", result.Path),
		logging.Int64("size", result.Size),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

// Plan runs the pipeline up to compilation without registering a job or
// spawning the encoder. It powers dry runs.
func (e *Executor) Plan(req Request) (*fgraph.CompiledCommand, error) {
	if req.Timeline == nil {
		return nil, services.Wrap(services.ErrConfiguration, "created", "plan", "timeline is required", nil)
	}
	if err := timeline.Validate(req.Timeline); err != nil {
		return nil, services.Wrap(services.ErrValidation, "validating", "timeline", err.Error(), err)
	}
	tl, err := timeline.ApplyMergeFields(req.Timeline, req.Fields)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "substituting", "merge fields", "apply merge fields", err)
	}
	resolved := e.resolveAssets(tl)
	cmd, err := e.compiler.Compile(tl, resolved, e.globalOptions(tl), e.outputPath(req.OutputName))
	if err != nil {
		return nil, services.Wrap(services.ErrCompile, "compiling", "filter graph", "compile timeline", err)
	}
	return cmd, nil
}

func (e *Executor) globalOptions(tl *timeline.Timeline) fgraph.Global {
	return fgraph.Global{
		FPS:         tl.FPS,
		Duration:    tl.EffectiveDuration(),
		Resolution:  tl.Resolution,
		VideoCodec:  e.cfg.FFmpeg.VideoCodec,
		AudioCodec:  e.cfg.FFmpeg.AudioCodec,
		PixelFormat: e.cfg.FFmpeg.PixelFormat,
		Preset:      e.cfg.FFmpeg.Preset,
	}
}

// resolveAssets probes the configured roots for every media clip. Missing
// assets are skipped, not fatal; the compiler omits their nodes.
func (e *Executor) resolveAssets(tl *timeline.Timeline) map[string]assets.ResolvedAsset {
	resolved := make(map[string]assets.ResolvedAsset)
	for ti, track := range tl.Tracks {
		for ci, clip := range track.Clips {
			if !clip.IsMedia() {
				continue
			}
			ref := timeline.ClipRef(ti, ci)
			resolved[ref] = e.resolver.Resolve(ref, clip.Source)
		}
	}
	return resolved
}

func (e *Executor) supervise(ctx context.Context, jobID string, cmd *fgraph.CompiledCommand, tail *Tail, req Request) error {
	sampler := logging.NewProgressSampler(5)
	total := cmd.Options.Duration

	onStderr := func(line string) {
		if strings.TrimSpace(line) == "" {
			return
		}
		tail.Append(line)
		elapsed, ok := ParseProgressTime(line)
		if !ok {
			return
		}
		percent := ProgressPercent(elapsed, total)
		if err := e.store.SetProgress(context.Background(), jobID, percent); err != nil {
			e.logger.Warn("record progress", logging.Error(err))
		}
		e.emit(req, Event{JobID: jobID, Type: EventProgress, State: jobs.StateRendering, Percent: percent})
		if sampler.ShouldLog(percent, string(jobs.StateRendering)) {
			e.logger.Info("render progress",
				logging.String(logging.FieldJobID, jobID),
				logging.Float64("percent", percent))
		}
	}

	return e.runner.Run(ctx, e.cfg.FFmpegBinary(), cmd.Args(), onStderr)
}

// verifyOutput confirms the encoder produced a non-empty file and builds
// the job result from it.
func verifyOutput(outputPath string, options fgraph.Global) (jobs.Result, error) {
	info, err := os.Stat(outputPath)
	if err != nil {
		return jobs.Result{}, services.Wrap(services.ErrOutputVerification, "rendering", "output",
			"output file missing", err)
	}
	if info.Size() == 0 {
		return jobs.Result{}, services.Wrap(services.ErrOutputVerification, "rendering", "output",
			"output file is empty", nil)
	}

	format := strings.TrimPrefix(filepath.Ext(outputPath), ".")
	return jobs.Result{
		Path:     outputPath,
		Filename: filepath.Base(outputPath),
		Size:     info.Size(),
		Duration: options.Duration,
		Width:    options.Resolution.Width,
		Height:   options.Resolution.Height,
		Codec:    options.VideoCodec,
		Format:   format,
	}, nil
}

func (e *Executor) advance(ctx context.Context, jobID string, next jobs.State, req Request) error {
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, string(next), "advance", "job interrupted", err)
	}
	if err := e.store.Transition(ctx, jobID, next); err != nil {
		return fmt.Errorf("advance to %s: %w", next, err)
	}
	e.emit(req, Event{JobID: jobID, Type: EventStateChanged, State: next})
	e.logger.Debug("job state changed",
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldState, string(next)))
	return nil
}

func (e *Executor) fail(jobID string, failure error, tail string, req Request) {
	if err := e.store.MarkFailed(context.Background(), jobID, failure, tail); err != nil {
		e.logger.Error("record failure",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
	e.emit(req, Event{JobID: jobID, Type: EventStateChanged, State: jobs.StateFailed, Message: failure.Error()})

	attrs := []logging.Attr{
		logging.String(logging.FieldJobID, jobID),
		logging.String("kind", services.Kind(failure)),
		logging.Error(failure),
	}
	if errors.Is(failure, services.ErrValidation) {
		e.logger.Warn("job rejected", logging.Args(attrs...)...)
		return
	}
	e.logger.Error("job failed", logging.Args(attrs...)...)
}

func (e *Executor) emit(req Request, event Event) {
	if req.Events == nil {
		return
	}
	select {
	case req.Events <- event:
	default:
	}
}
