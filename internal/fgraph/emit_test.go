package fgraph

import (
	"strings"
	"testing"

	"reel/internal/timeline"
)

func TestNodeString(t *testing.T) {
	node := Node{
		Op: "overlay",
		Args: []Arg{
			{Key: "x", Value: "10"},
			{Key: "y", Value: "20"},
			{Key: "enable", Value: "'between(t,0,5)'"},
		},
		Inputs: []string{"0:v", "s1"},
		Output: "v1",
	}
	want := "[0:v][s1]overlay=x=10:y=20:enable='between(t,0,5)'[v1]"
	if got := node.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestNodeStringKeylessArgs(t *testing.T) {
	node := Node{
		Op:     "scale",
		Args:   []Arg{{Value: "iw*2"}, {Value: "ih*2"}},
		Inputs: []string{"1:v"},
		Output: "s1",
	}
	if got := node.String(); got != "[1:v]scale=iw*2:ih*2[s1]" {
		t.Fatalf("String() = %q", got)
	}
}

func TestNodeStringNoArgs(t *testing.T) {
	node := Node{Op: "null", Inputs: []string{"0:v"}, Output: "vout"}
	if got := node.String(); got != "[0:v]null[vout]" {
		t.Fatalf("String() = %q", got)
	}
}

func TestArgsLayout(t *testing.T) {
	cmd := &CompiledCommand{
		Inputs: []InputSpec{
			{Args: []string{"-f", "lavfi", "-i", "color=c=#000000:s=1280x720:r=30:d=10"}},
			{Args: []string{"-i", "/assets/a.mp4"}, Path: "/assets/a.mp4"},
		},
		Filter: []Node{
			{Op: "null", Inputs: []string{"0:v"}, Output: FinalVideoLabel},
		},
		FinalVideo: FinalVideoLabel,
		FinalAudio: "2:a",
		Options: Global{
			FPS:         30,
			Duration:    10,
			Resolution:  timeline.Resolution{Width: 1280, Height: 720},
			VideoCodec:  "libx264",
			AudioCodec:  "aac",
			PixelFormat: "yuv420p",
			Preset:      "medium",
		},
		OutputPath: "/out/render.mp4",
	}

	args := cmd.Args()
	joined := strings.Join(args, " ")

	wantOrder := []string{
		"-i color=c=#000000",
		"-i /assets/a.mp4",
		"-filter_complex [0:v]null[vout]",
		"-map [vout]",
		"-map 2:a",
		"-c:v libx264",
		"-pix_fmt yuv420p",
		"-c:a aac",
		"-r 30",
		"-t 10",
	}
	last := -1
	for _, fragment := range wantOrder {
		idx := strings.Index(joined, fragment)
		if idx < 0 {
			t.Fatalf("missing %q in %q", fragment, joined)
		}
		if idx <= last {
			t.Fatalf("fragment %q out of order in %q", fragment, joined)
		}
		last = idx
	}
	if args[len(args)-1] != "/out/render.mp4" {
		t.Fatalf("output path must be last, got %q", args[len(args)-1])
	}
}

func TestQuoteTextEscapes(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "'plain'"},
		{"with:colon", `'with\:colon'`},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
	}
	for _, tc := range cases {
		if got := quoteText(tc.in); got != tc.want {
			t.Errorf("quoteText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestColorWithAlpha(t *testing.T) {
	if got := colorWithAlpha("#ffffff", 100); got != "#ffffff" {
		t.Errorf("opaque color = %q", got)
	}
	if got := colorWithAlpha("#ffffff", 50); got != "#ffffff@0.5" {
		t.Errorf("half alpha = %q", got)
	}
	if got := colorWithAlpha("red", 0); got != "red@0" {
		t.Errorf("zero alpha = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{30, "30"},
		{29.97, "29.97"},
		{10.5, "10.5"},
		{0, "0"},
	}
	for _, tc := range cases {
		if got := formatNumber(tc.in); got != tc.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
