package timeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ClipType identifies the renderable kind of a clip.
type ClipType string

const (
	ClipBackground ClipType = "background"
	ClipText       ClipType = "text"
	ClipImage      ClipType = "image"
	ClipVideo      ClipType = "video"
	ClipShape      ClipType = "shape"
)

var knownClipTypes = map[ClipType]struct{}{
	ClipBackground: {},
	ClipText:       {},
	ClipImage:      {},
	ClipVideo:      {},
	ClipShape:      {},
}

// KnownClipType reports whether value names a supported clip type.
func KnownClipType(value ClipType) bool {
	_, ok := knownClipTypes[value]
	return ok
}

// DurationFloor is the minimum derived timeline duration in seconds when no
// explicit duration is given.
const DurationFloor = 10.0

// Compatibility canvas used by the legacy centering rule: a clip positioned at
// exactly the canvas midpoint of a 1920x1080 frame renders centered.
const (
	CompatCanvasWidth  = 1920
	CompatCanvasHeight = 1080
	CompatCenterX      = 960
	CompatCenterY      = 540
)

// Resolution is the output frame size in pixels.
type Resolution struct {
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// Background describes the timeline's base layer: either a solid color or a
// source video looping under all tracks.
type Background struct {
	Color string `json:"color,omitempty"`
	Src   string `json:"src,omitempty"`
}

// Position locates a clip on the canvas. It unmarshals from either an
// {x, y} object or the literal string "center".
type Position struct {
	X      float64
	Y      float64
	Center bool
}

func (p *Position) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var marker string
		if err := json.Unmarshal(data, &marker); err != nil {
			return err
		}
		if !strings.EqualFold(strings.TrimSpace(marker), "center") {
			return fmt.Errorf("position: unsupported marker %q", marker)
		}
		*p = Position{Center: true}
		return nil
	}
	var raw struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Position{X: raw.X, Y: raw.Y}
	return nil
}

func (p Position) MarshalJSON() ([]byte, error) {
	if p.Center {
		return json.Marshal("center")
	}
	return json.Marshal(struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}{p.X, p.Y})
}

// Centered reports whether the clip should render centered on the given
// canvas. Beyond the explicit marker, the legacy rule treats the numeric
// coordinate (960,540) on a 1920x1080 canvas as an implicit "centered" flag.
func (p Position) Centered(res Resolution) bool {
	if p.Center {
		return true
	}
	return res.Width == CompatCanvasWidth && res.Height == CompatCanvasHeight &&
		p.X == CompatCenterX && p.Y == CompatCenterY
}

// TextStyle carries text clip presentation fields.
type TextStyle struct {
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	Color      string  `json:"color,omitempty"`
}

// ShapeSpec describes a drawable rectangle.
type ShapeSpec struct {
	Type        string  `json:"type,omitempty"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	FillColor   string  `json:"fillColor,omitempty"`
	StrokeColor string  `json:"strokeColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

// Clip is one timed, positioned piece of content. The struct is polymorphic
// over Type; type-specific fields are pointers or zero values when unused.
type Clip struct {
	Type     ClipType  `json:"type"`
	Start    float64   `json:"start" validate:"gte=0"`
	Duration float64   `json:"duration" validate:"gt=0"`
	Position *Position `json:"position,omitempty"`
	Opacity  *float64  `json:"opacity,omitempty" validate:"omitempty,gte=0,lte=100"`
	Scale    *float64  `json:"scale,omitempty" validate:"omitempty,gt=0"`

	// text clips
	Text  string     `json:"text,omitempty"`
	Style *TextStyle `json:"style,omitempty"`

	// image and video clips
	Source         string `json:"source,omitempty"`
	OriginalWidth  int    `json:"originalWidth,omitempty"`
	OriginalHeight int    `json:"originalHeight,omitempty"`

	// shape clips
	Shape *ShapeSpec `json:"shape,omitempty"`

	// background clips
	Color string `json:"color,omitempty"`
}

// End returns the clip's end time on the timeline.
func (c Clip) End() float64 { return c.Start + c.Duration }

// OpacityValue returns the effective opacity in [0,100], defaulting to fully
// opaque.
func (c Clip) OpacityValue() float64 {
	if c.Opacity == nil {
		return 100
	}
	return *c.Opacity
}

// ScaleValue returns the effective scale factor, defaulting to 1.
func (c Clip) ScaleValue() float64 {
	if c.Scale == nil {
		return 1
	}
	return *c.Scale
}

// Pos returns the clip position, defaulting to the canvas origin.
func (c Clip) Pos() Position {
	if c.Position == nil {
		return Position{}
	}
	return *c.Position
}

// IsMedia reports whether the clip references an external media asset.
func (c Clip) IsMedia() bool {
	return c.Type == ClipImage || c.Type == ClipVideo
}

// Track is an ordered, named layer of clips. Array order defines compositing
// order; later clips draw on top of earlier ones.
type Track struct {
	ID    string `json:"id,omitempty"`
	Clips []Clip `json:"clips" validate:"min=1,dive"`
}

// Timeline is the top-level declarative description of a video.
type Timeline struct {
	Duration   float64    `json:"duration,omitempty"`
	FPS        float64    `json:"fps" validate:"gt=0"`
	Resolution Resolution `json:"resolution"`
	Background Background `json:"background,omitempty"`
	Tracks     []Track    `json:"tracks" validate:"min=1,dive"`
}

// MergeFieldMap maps placeholder names to substitution values.
type MergeFieldMap map[string]any

// Parse decodes a timeline from JSON.
func Parse(data []byte) (*Timeline, error) {
	var tl Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("parse timeline: %w", err)
	}
	return &tl, nil
}

// EffectiveDuration returns the explicit duration when set, otherwise the
// maximum clip end across all tracks floored at DurationFloor.
func (t *Timeline) EffectiveDuration() float64 {
	if t.Duration > 0 {
		return t.Duration
	}
	maxEnd := 0.0
	for _, track := range t.Tracks {
		for _, clip := range track.Clips {
			if end := clip.End(); end > maxEnd {
				maxEnd = end
			}
		}
	}
	if maxEnd < DurationFloor {
		return DurationFloor
	}
	return maxEnd
}

// Clone returns a deep copy of the timeline via its JSON form.
func (t *Timeline) Clone() (*Timeline, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("clone timeline: %w", err)
	}
	return Parse(raw)
}
