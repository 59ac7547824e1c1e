package fgraph

import (
	"strings"

	"reel/internal/timeline"
)

// Canonical stream labels for the compiled graph's final outputs.
const (
	FinalVideoLabel = "vout"
	FinalAudioLabel = "aout"
)

// Arg is one ordered filter option. Order is preserved through serialization
// so emitted commands are deterministic.
type Arg struct {
	Key   string
	Value string
}

// Node is one operation in the intermediate filter graph. Inputs and Output
// are stream labels without brackets; labels containing a colon reference raw
// input streams (for example "2:v").
type Node struct {
	Op     string
	Args   []Arg
	Inputs []string
	Output string
}

// String serializes the node into ffmpeg filter syntax:
// [in1][in2]op=k1=v1:k2=v2[out].
func (n Node) String() string {
	var b strings.Builder
	for _, in := range n.Inputs {
		b.WriteByte('[')
		b.WriteString(in)
		b.WriteByte(']')
	}
	b.WriteString(n.Op)
	for i, arg := range n.Args {
		if i == 0 {
			b.WriteByte('=')
		} else {
			b.WriteByte(':')
		}
		if arg.Key != "" {
			b.WriteString(arg.Key)
			b.WriteByte('=')
		}
		b.WriteString(arg.Value)
	}
	b.WriteByte('[')
	b.WriteString(n.Output)
	b.WriteByte(']')
	return b.String()
}

// InputSpec is one encoder input in registration order.
type InputSpec struct {
	// Args holds the exact argument slice for this input, ending with
	// "-i" and the source (a file path or a lavfi description).
	Args []string
	// Path is the resolved file path for asset inputs, empty for synthetic
	// sources.
	Path string
}

// Global carries encoder-wide options.
type Global struct {
	FPS         float64
	Duration    float64
	Resolution  timeline.Resolution
	VideoCodec  string
	AudioCodec  string
	PixelFormat string
	Preset      string
}

// CompiledCommand is the full intermediate representation of one render:
// inputs, filter graph, final labels, and global options.
type CompiledCommand struct {
	Inputs       []InputSpec
	Filter       []Node
	FinalVideo   string
	FinalAudio   string
	Options      Global
	OutputPath   string
	SkippedClips []string // clip refs omitted due to unresolved assets
}

// FilterScript serializes the graph into a single -filter_complex expression.
func (c *CompiledCommand) FilterScript() string {
	parts := make([]string, len(c.Filter))
	for i, node := range c.Filter {
		parts[i] = node.String()
	}
	return strings.Join(parts, ";")
}
