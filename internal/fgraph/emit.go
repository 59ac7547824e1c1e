package fgraph

import (
	"fmt"
	"strconv"
	"strings"

	"reel/internal/timeline"
)

// Args serializes the compiled command into the exact ffmpeg argument list:
// inputs in registration order, a single -filter_complex expression, explicit
// output stream mappings, codec options, and the output path.
func (c *CompiledCommand) Args() []string {
	args := []string{"-y", "-hide_banner"}

	for _, input := range c.Inputs {
		args = append(args, input.Args...)
	}

	args = append(args, "-filter_complex", c.FilterScript())
	args = append(args, "-map", mapTarget(c.FinalVideo))
	args = append(args, "-map", mapTarget(c.FinalAudio))

	opts := c.Options
	if opts.VideoCodec != "" {
		args = append(args, "-c:v", opts.VideoCodec)
	}
	if opts.Preset != "" {
		args = append(args, "-preset", opts.Preset)
	}
	if opts.PixelFormat != "" {
		args = append(args, "-pix_fmt", opts.PixelFormat)
	}
	if opts.AudioCodec != "" {
		args = append(args, "-c:a", opts.AudioCodec)
	}
	if opts.FPS > 0 {
		args = append(args, "-r", formatNumber(opts.FPS))
	}
	if opts.Duration > 0 {
		args = append(args, "-t", formatNumber(opts.Duration))
	}
	args = append(args, "-movflags", "+faststart")
	args = append(args, c.OutputPath)
	return args
}

// mapTarget renders a -map argument. Labels containing a colon are raw stream
// specifiers; graph labels are bracketed.
func mapTarget(label string) string {
	if strings.Contains(label, ":") {
		return label
	}
	return "[" + label + "]"
}

// enableWindow renders the time-enable predicate limiting a node to the
// clip's closed interval [start, start+duration].
func enableWindow(clip timeline.Clip) string {
	return fmt.Sprintf("'between(t,%s,%s)'", formatNumber(clip.Start), formatNumber(clip.End()))
}

// colorWithAlpha encodes opacity as an alpha suffix on the color when the
// clip is not fully opaque.
func colorWithAlpha(color string, opacity float64) string {
	if opacity >= 100 {
		return color
	}
	if opacity < 0 {
		opacity = 0
	}
	return fmt.Sprintf("%s@%s", color, formatNumber(opacity/100))
}

// quoteText escapes and quotes a drawtext value for embedding in a filter
// expression.
func quoteText(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
	)
	return "'" + replacer.Replace(text) + "'"
}

// formatNumber renders a float without a trailing fractional part when it is
// integral, matching the compact style ffmpeg expects.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
