package fgraph

import (
	"fmt"
	"log/slog"
	"strings"

	"reel/internal/assets"
	"reel/internal/logging"
	"reel/internal/services"
	"reel/internal/timeline"
)

// DefaultBackgroundColor is used when the timeline specifies neither a
// background color nor a background video.
const DefaultBackgroundColor = "#000000"

// Compiler translates a timeline plus resolved assets into a CompiledCommand.
type Compiler struct {
	fonts  *assets.FontTable
	logger *slog.Logger
}

// NewCompiler constructs a compiler. The font table is consulted once per text
// clip.
func NewCompiler(fonts *assets.FontTable, logger *slog.Logger) *Compiler {
	return &Compiler{
		fonts:  fonts,
		logger: logging.WithComponent(logger, "compiler"),
	}
}

// Compile walks tracks in array order, then clips within each track in array
// order, and emits one graph node per visible clip. The ordering is the
// compositing contract: later nodes draw over earlier ones. Clips whose assets
// did not resolve contribute nothing and are recorded in SkippedClips.
func (c *Compiler) Compile(tl *timeline.Timeline, resolved map[string]assets.ResolvedAsset, options Global, outputPath string) (*CompiledCommand, error) {
	if tl == nil {
		return nil, services.Wrap(services.ErrCompile, "compiling", "timeline", "timeline is nil", nil)
	}
	if len(tl.Tracks) == 0 {
		// Defensive: the validator rejects this before compilation.
		return nil, services.Wrap(services.ErrCompile, "compiling", "timeline", "no tracks", nil)
	}

	options.FPS = tl.FPS
	options.Duration = tl.EffectiveDuration()
	options.Resolution = tl.Resolution

	cmd := &CompiledCommand{
		Options:    options,
		OutputPath: outputPath,
		FinalVideo: FinalVideoLabel,
	}

	state := &compileState{cmd: cmd, tl: tl, compiler: c}
	state.addBaseInput(resolved)
	state.registerAssetInputs(resolved)

	for ti, track := range tl.Tracks {
		for ci, clip := range track.Clips {
			ref := timeline.ClipRef(ti, ci)
			if err := state.appendClip(ref, clip); err != nil {
				return nil, err
			}
		}
	}

	state.finishVideo()
	state.buildAudio()
	return cmd, nil
}

type compileState struct {
	cmd      *CompiledCommand
	tl       *timeline.Timeline
	compiler *Compiler

	current     string // current video stream label
	labelSeq    int
	inputIndex  map[string]int // clip ref -> encoder input index
	audioInputs []audioContributor
}

type audioContributor struct {
	index int
	clip  timeline.Clip
}

// addBaseInput registers input 0: the synthetic color source or the
// background video, sized to the output resolution for the full duration.
func (s *compileState) addBaseInput(resolved map[string]assets.ResolvedAsset) {
	opts := s.cmd.Options
	if src := strings.TrimSpace(s.tl.Background.Src); src != "" {
		if asset, ok := resolved["background"]; ok && asset.Found() {
			s.cmd.Inputs = append(s.cmd.Inputs, InputSpec{
				Args: []string{"-i", asset.AbsolutePath},
				Path: asset.AbsolutePath,
			})
			// Normalize the background video to the canvas before
			// compositing anything over it.
			label := s.nextLabel()
			s.cmd.Filter = append(s.cmd.Filter, Node{
				Op: "scale",
				Args: []Arg{
					{Value: fmt.Sprintf("%d", opts.Resolution.Width)},
					{Value: fmt.Sprintf("%d", opts.Resolution.Height)},
				},
				Inputs: []string{"0:v"},
				Output: label,
			})
			s.current = label
			return
		}
		s.compiler.logger.Warn(
			"background video unresolved, falling back to color source",
			logging.String("source", src),
		)
	}

	color := strings.TrimSpace(s.tl.Background.Color)
	if color == "" {
		color = DefaultBackgroundColor
	}
	lavfi := fmt.Sprintf("color=c=%s:s=%dx%d:r=%s:d=%s",
		color, opts.Resolution.Width, opts.Resolution.Height,
		formatNumber(opts.FPS), formatNumber(opts.Duration))
	s.cmd.Inputs = append(s.cmd.Inputs, InputSpec{
		Args: []string{"-f", "lavfi", "-i", lavfi},
	})
	s.current = "0:v"
}

// registerAssetInputs assigns one encoder input per resolved media asset, in
// track/clip array order so input indices are deterministic.
func (s *compileState) registerAssetInputs(resolved map[string]assets.ResolvedAsset) {
	s.inputIndex = make(map[string]int)
	for ti, track := range s.tl.Tracks {
		for ci, clip := range track.Clips {
			if !clip.IsMedia() {
				continue
			}
			ref := timeline.ClipRef(ti, ci)
			asset, ok := resolved[ref]
			if !ok || !asset.Found() {
				continue
			}
			index := len(s.cmd.Inputs)
			s.inputIndex[ref] = index
			spec := InputSpec{Path: asset.AbsolutePath}
			if clip.Type == timeline.ClipImage {
				spec.Args = []string{"-loop", "1", "-t", formatNumber(clip.Duration), "-i", asset.AbsolutePath}
			} else {
				spec.Args = []string{"-i", asset.AbsolutePath}
			}
			s.cmd.Inputs = append(s.cmd.Inputs, spec)
			if clip.Type == timeline.ClipVideo {
				s.audioInputs = append(s.audioInputs, audioContributor{index: index, clip: clip})
			}
		}
	}
}

func (s *compileState) appendClip(ref string, clip timeline.Clip) error {
	switch clip.Type {
	case timeline.ClipBackground:
		s.appendBackgroundClip(clip)
	case timeline.ClipText:
		s.appendTextClip(clip)
	case timeline.ClipImage, timeline.ClipVideo:
		index, ok := s.inputIndex[ref]
		if !ok {
			s.cmd.SkippedClips = append(s.cmd.SkippedClips, ref)
			s.compiler.logger.Info(
				"skipping clip with unresolved asset",
				logging.String("clip", ref),
				logging.String("source", clip.Source),
			)
			return nil
		}
		s.appendMediaClip(index, clip)
	case timeline.ClipShape:
		s.appendShapeClip(clip)
	default:
		return services.Wrap(services.ErrCompile, "compiling", "clip",
			fmt.Sprintf("unknown clip type %q survived validation", clip.Type), nil)
	}
	return nil
}

// appendBackgroundClip paints the clip's color over the full frame for its
// time window. Mid-timeline background clips are visual here; silently
// ignoring them would lose information the timeline expresses.
func (s *compileState) appendBackgroundClip(clip timeline.Clip) {
	color := strings.TrimSpace(clip.Color)
	if color == "" {
		color = DefaultBackgroundColor
	}
	label := s.nextLabel()
	s.cmd.Filter = append(s.cmd.Filter, Node{
		Op: "drawbox",
		Args: []Arg{
			{Key: "x", Value: "0"},
			{Key: "y", Value: "0"},
			{Key: "w", Value: "iw"},
			{Key: "h", Value: "ih"},
			{Key: "color", Value: colorWithAlpha(color, clip.OpacityValue())},
			{Key: "t", Value: "fill"},
			{Key: "enable", Value: enableWindow(clip)},
		},
		Inputs: []string{s.current},
		Output: label,
	})
	s.current = label
}

func (s *compileState) appendTextClip(clip timeline.Clip) {
	style := clip.Style
	if style == nil {
		style = &timeline.TextStyle{}
	}
	fontSize := style.FontSize
	if fontSize <= 0 {
		fontSize = 48
	}
	fontColor := strings.TrimSpace(style.Color)
	if fontColor == "" {
		fontColor = "#ffffff"
	}

	x, y := "0", "0"
	if pos := clip.Pos(); pos.Centered(s.tl.Resolution) {
		x, y = "(w-text_w)/2", "(h-text_h)/2"
	} else {
		x, y = formatNumber(pos.X), formatNumber(pos.Y)
	}

	args := []Arg{
		{Key: "text", Value: quoteText(clip.Text)},
	}
	if s.compiler.fonts != nil {
		args = append(args, Arg{Key: "fontfile", Value: s.compiler.fonts.Resolve(style.FontFamily)})
	}
	args = append(args,
		Arg{Key: "fontsize", Value: formatNumber(fontSize)},
		Arg{Key: "fontcolor", Value: colorWithAlpha(fontColor, clip.OpacityValue())},
		Arg{Key: "x", Value: x},
		Arg{Key: "y", Value: y},
		Arg{Key: "enable", Value: enableWindow(clip)},
	)

	label := s.nextLabel()
	s.cmd.Filter = append(s.cmd.Filter, Node{
		Op:     "drawtext",
		Args:   args,
		Inputs: []string{s.current},
		Output: label,
	})
	s.current = label
}

func (s *compileState) appendMediaClip(index int, clip timeline.Clip) {
	overlayInput := fmt.Sprintf("%d:v", index)

	if scale := clip.ScaleValue(); scale != 1 {
		label := s.nextLabel()
		s.cmd.Filter = append(s.cmd.Filter, Node{
			Op: "scale",
			Args: []Arg{
				{Value: fmt.Sprintf("iw*%s", formatNumber(scale))},
				{Value: fmt.Sprintf("ih*%s", formatNumber(scale))},
			},
			Inputs: []string{overlayInput},
			Output: label,
		})
		overlayInput = label
	}

	if opacity := clip.OpacityValue(); opacity < 100 {
		label := s.nextLabel()
		s.cmd.Filter = append(s.cmd.Filter, Node{
			Op:     "format",
			Args:   []Arg{{Value: "rgba"}},
			Inputs: []string{overlayInput},
			Output: label,
		})
		overlayInput = label

		label = s.nextLabel()
		s.cmd.Filter = append(s.cmd.Filter, Node{
			Op:     "colorchannelmixer",
			Args:   []Arg{{Key: "aa", Value: formatNumber(opacity / 100)}},
			Inputs: []string{overlayInput},
			Output: label,
		})
		overlayInput = label
	}

	x, y := "0", "0"
	if pos := clip.Pos(); pos.Centered(s.tl.Resolution) {
		x, y = "(W-w)/2", "(H-h)/2"
	} else {
		x, y = formatNumber(pos.X), formatNumber(pos.Y)
	}

	label := s.nextLabel()
	s.cmd.Filter = append(s.cmd.Filter, Node{
		Op: "overlay",
		Args: []Arg{
			{Key: "x", Value: x},
			{Key: "y", Value: y},
			{Key: "enable", Value: enableWindow(clip)},
		},
		Inputs: []string{s.current, overlayInput},
		Output: label,
	})
	s.current = label
}

func (s *compileState) appendShapeClip(clip timeline.Clip) {
	shape := clip.Shape
	if shape == nil {
		return
	}
	pos := clip.Pos()
	fill := strings.TrimSpace(shape.FillColor)
	if fill == "" {
		fill = "#ffffff"
	}

	label := s.nextLabel()
	s.cmd.Filter = append(s.cmd.Filter, Node{
		Op: "drawbox",
		Args: []Arg{
			{Key: "x", Value: formatNumber(pos.X)},
			{Key: "y", Value: formatNumber(pos.Y)},
			{Key: "w", Value: formatNumber(shape.Width)},
			{Key: "h", Value: formatNumber(shape.Height)},
			{Key: "color", Value: colorWithAlpha(fill, clip.OpacityValue())},
			{Key: "t", Value: "fill"},
			{Key: "enable", Value: enableWindow(clip)},
		},
		Inputs: []string{s.current},
		Output: label,
	})
	s.current = label

	if stroke := strings.TrimSpace(shape.StrokeColor); stroke != "" && shape.StrokeWidth > 0 {
		label = s.nextLabel()
		s.cmd.Filter = append(s.cmd.Filter, Node{
			Op: "drawbox",
			Args: []Arg{
				{Key: "x", Value: formatNumber(pos.X)},
				{Key: "y", Value: formatNumber(pos.Y)},
				{Key: "w", Value: formatNumber(shape.Width)},
				{Key: "h", Value: formatNumber(shape.Height)},
				{Key: "color", Value: colorWithAlpha(stroke, clip.OpacityValue())},
				{Key: "t", Value: formatNumber(shape.StrokeWidth)},
				{Key: "enable", Value: enableWindow(clip)},
			},
			Inputs: []string{s.current},
			Output: label,
		})
		s.current = label
	}
}

// finishVideo renames the last node's output to the canonical final label, or
// inserts a pass-through node when the graph produced no visual nodes so the
// final label always exists.
func (s *compileState) finishVideo() {
	if len(s.cmd.Filter) > 0 && s.cmd.Filter[len(s.cmd.Filter)-1].Output == s.current {
		s.cmd.Filter[len(s.cmd.Filter)-1].Output = FinalVideoLabel
		s.current = FinalVideoLabel
		return
	}
	s.cmd.Filter = append(s.cmd.Filter, Node{
		Op:     "null",
		Inputs: []string{s.current},
		Output: FinalVideoLabel,
	})
	s.current = FinalVideoLabel
}

// buildAudio mixes all audio-bearing inputs trimmed and delayed to their clip
// windows, or synthesizes silence for the full duration when none contribute.
func (s *compileState) buildAudio() {
	if len(s.audioInputs) == 0 {
		index := len(s.cmd.Inputs)
		lavfi := fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=44100:d=%s",
			formatNumber(s.cmd.Options.Duration))
		s.cmd.Inputs = append(s.cmd.Inputs, InputSpec{
			Args: []string{"-f", "lavfi", "-i", lavfi},
		})
		s.cmd.FinalAudio = fmt.Sprintf("%d:a", index)
		return
	}

	mixInputs := make([]string, 0, len(s.audioInputs))
	for i, contributor := range s.audioInputs {
		trimmed := fmt.Sprintf("at%d", i)
		s.cmd.Filter = append(s.cmd.Filter, Node{
			Op: "atrim",
			Args: []Arg{
				{Key: "duration", Value: formatNumber(contributor.clip.Duration)},
			},
			Inputs: []string{fmt.Sprintf("%d:a", contributor.index)},
			Output: trimmed,
		})
		delayed := fmt.Sprintf("ad%d", i)
		delayMS := int(contributor.clip.Start * 1000)
		s.cmd.Filter = append(s.cmd.Filter, Node{
			Op: "adelay",
			Args: []Arg{
				{Key: "delays", Value: fmt.Sprintf("%d", delayMS)},
				{Key: "all", Value: "1"},
			},
			Inputs: []string{trimmed},
			Output: delayed,
		})
		mixInputs = append(mixInputs, delayed)
	}

	if len(mixInputs) == 1 {
		// Rename the single contributor's output instead of mixing.
		s.cmd.Filter[len(s.cmd.Filter)-1].Output = FinalAudioLabel
		s.cmd.FinalAudio = FinalAudioLabel
		return
	}

	s.cmd.Filter = append(s.cmd.Filter, Node{
		Op: "amix",
		Args: []Arg{
			{Key: "inputs", Value: fmt.Sprintf("%d", len(mixInputs))},
			{Key: "duration", Value: "longest"},
		},
		Inputs: mixInputs,
		Output: FinalAudioLabel,
	})
	s.cmd.FinalAudio = FinalAudioLabel
}

func (s *compileState) nextLabel() string {
	s.labelSeq++
	return fmt.Sprintf("v%d", s.labelSeq)
}
