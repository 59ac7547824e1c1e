package timeline

import "testing"

func textTimeline(text string) *Timeline {
	return &Timeline{
		FPS:        30,
		Resolution: Resolution{Width: 1920, Height: 1080},
		Tracks: []Track{
			{Clips: []Clip{{Type: ClipText, Start: 0, Duration: 5, Text: text}}},
		},
	}
}

func TestSubstituteEachDelimiterForm(t *testing.T) {
	fields := MergeFieldMap{"name": "World"}
	cases := []struct {
		in   string
		want string
	}{
		{"Hello {{name}}", "Hello World"},
		{"Hello {name}", "Hello World"},
		{"Hello ${name}", "Hello World"},
		{"Hello [name]", "Hello World"},
		{"Hello %name%", "Hello World"},
	}
	for _, tc := range cases {
		if got := SubstituteFields(tc.in, fields); got != tc.want {
			t.Errorf("SubstituteFields(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSubstituteDoubleBraceNotShadowed(t *testing.T) {
	fields := MergeFieldMap{"name": "World"}
	if got := SubstituteFields("{{name}} and {name}", fields); got != "World and World" {
		t.Fatalf("got %q", got)
	}
}

func TestUnmatchedPlaceholdersLeakThrough(t *testing.T) {
	fields := MergeFieldMap{"name": "World"}
	in := "Hello {{missing}} and [unknown]"
	if got := SubstituteFields(in, fields); got != in {
		t.Fatalf("unmatched placeholders must render literally, got %q", got)
	}
}

func TestSubstituteIsSinglePass(t *testing.T) {
	// A value containing placeholder syntax must not be re-substituted.
	fields := MergeFieldMap{"a": "{b}", "b": "boom"}
	if got := SubstituteFields("{a}", fields); got != "{b}" {
		t.Fatalf("expected single-pass substitution, got %q", got)
	}
}

func TestSubstituteIdempotentWithoutPlaceholders(t *testing.T) {
	fields := MergeFieldMap{"name": "World"}
	in := "plain text, no fields"
	if got := SubstituteFields(in, fields); got != in {
		t.Fatalf("got %q, want unchanged input", got)
	}
}

func TestSubstituteNumericValues(t *testing.T) {
	fields := MergeFieldMap{"count": 3, "ratio": 2.5}
	if got := SubstituteFields("{{count}} of {{ratio}}", fields); got != "3 of 2.5" {
		t.Fatalf("got %q", got)
	}
}

func TestApplyMergeFieldsCopiesTimeline(t *testing.T) {
	tl := textTimeline("Hello {{name}}")
	out, err := ApplyMergeFields(tl, MergeFieldMap{"name": "World"})
	if err != nil {
		t.Fatalf("ApplyMergeFields: %v", err)
	}
	if out.Tracks[0].Clips[0].Text != "Hello World" {
		t.Fatalf("text = %q", out.Tracks[0].Clips[0].Text)
	}
	if tl.Tracks[0].Clips[0].Text != "Hello {{name}}" {
		t.Fatal("input timeline must not be mutated")
	}
}

func TestApplyMergeFieldsTouchesAllTextualFields(t *testing.T) {
	tl := textTimeline("{title}")
	tl.Background.Color = "%bg%"
	tl.Tracks[0].Clips[0].Style = &TextStyle{Color: "[fg]"}
	tl.Tracks = append(tl.Tracks, Track{Clips: []Clip{
		{Type: ClipImage, Start: 0, Duration: 2, Source: "${img}.png"},
		{Type: ClipShape, Start: 0, Duration: 2, Shape: &ShapeSpec{Width: 1, Height: 1, FillColor: "{fill}"}},
	}})

	out, err := ApplyMergeFields(tl, MergeFieldMap{
		"title": "T", "bg": "#000", "fg": "#fff", "img": "logo", "fill": "#f00",
	})
	if err != nil {
		t.Fatalf("ApplyMergeFields: %v", err)
	}
	if out.Tracks[0].Clips[0].Text != "T" {
		t.Errorf("text = %q", out.Tracks[0].Clips[0].Text)
	}
	if out.Background.Color != "#000" {
		t.Errorf("background color = %q", out.Background.Color)
	}
	if out.Tracks[0].Clips[0].Style.Color != "#fff" {
		t.Errorf("style color = %q", out.Tracks[0].Clips[0].Style.Color)
	}
	if out.Tracks[1].Clips[0].Source != "logo.png" {
		t.Errorf("source = %q", out.Tracks[1].Clips[0].Source)
	}
	if out.Tracks[1].Clips[1].Shape.FillColor != "#f00" {
		t.Errorf("fill = %q", out.Tracks[1].Clips[1].Shape.FillColor)
	}
}
