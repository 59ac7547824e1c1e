package timeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// delimiterPair is one supported placeholder syntax. Order matters: the
// double-brace form is listed before the single-brace form so it is never
// shadowed by the looser match.
type delimiterPair struct {
	open  string
	close string
}

var delimiterPairs = []delimiterPair{
	{"{{", "}}"},
	{"{", "}"},
	{"${", "}"},
	{"[", "]"},
	{"%", "%"},
}

// placeholderPattern matches any of the supported delimiter forms around a
// field name in a single alternation, preserving the pair order above.
var placeholderPattern = buildPlaceholderPattern()

func buildPlaceholderPattern() *regexp.Regexp {
	alternatives := make([]string, 0, len(delimiterPairs))
	for _, pair := range delimiterPairs {
		alternatives = append(alternatives,
			regexp.QuoteMeta(pair.open)+`([A-Za-z0-9_.-]+)`+regexp.QuoteMeta(pair.close))
	}
	return regexp.MustCompile(strings.Join(alternatives, "|"))
}

// ApplyMergeFields returns a copy of the timeline with every occurrence of a
// known field name, wrapped in any supported delimiter form, replaced by its
// value. Substitution is a single pass over each original string: values are
// never re-scanned, so a field value containing placeholder syntax cannot
// trigger another round. Unknown placeholders are left verbatim.
func ApplyMergeFields(t *Timeline, fields MergeFieldMap) (*Timeline, error) {
	out, err := t.Clone()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return out, nil
	}

	substitute := func(s string) string { return SubstituteFields(s, fields) }

	out.Background.Color = substitute(out.Background.Color)
	out.Background.Src = substitute(out.Background.Src)
	for ti := range out.Tracks {
		track := &out.Tracks[ti]
		for ci := range track.Clips {
			clip := &track.Clips[ci]
			clip.Text = substitute(clip.Text)
			clip.Source = substitute(clip.Source)
			clip.Color = substitute(clip.Color)
			if clip.Style != nil {
				clip.Style.Color = substitute(clip.Style.Color)
				clip.Style.FontFamily = substitute(clip.Style.FontFamily)
			}
			if clip.Shape != nil {
				clip.Shape.FillColor = substitute(clip.Shape.FillColor)
				clip.Shape.StrokeColor = substitute(clip.Shape.StrokeColor)
			}
		}
	}
	return out, nil
}

// SubstituteFields replaces known placeholders in a single string. Exposed for
// targeted substitution outside full-timeline resolution.
func SubstituteFields(s string, fields MergeFieldMap) string {
	if s == "" || len(fields) == 0 {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := extractName(match)
		value, ok := fields[name]
		if !ok {
			return match
		}
		return fieldValue(value)
	})
}

func extractName(match string) string {
	for _, pair := range delimiterPairs {
		if strings.HasPrefix(match, pair.open) && strings.HasSuffix(match, pair.close) {
			return match[len(pair.open) : len(match)-len(pair.close)]
		}
	}
	return match
}

func fieldValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
