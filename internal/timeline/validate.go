package timeline

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one structural defect in a timeline.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors is the full list of defects found in one pass. The
// validator never stops at the first violation; callers need the whole list.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "timeline invalid"
	}
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return fmt.Sprintf("timeline invalid (%d problems): %s", len(e), strings.Join(parts, "; "))
}

var structValidator = newStructValidator()

// newStructValidator registers json tag names so violation namespaces come
// out in the document's own vocabulary rather than Go field names.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks the timeline's structural invariants and returns every
// violation found. The input is never mutated and no side effects occur. A nil
// return means the timeline is renderable.
func Validate(t *Timeline) error {
	if t == nil {
		return ValidationErrors{{Path: "", Message: "timeline is required"}}
	}

	var problems ValidationErrors

	if err := structValidator.Struct(t); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				problems = append(problems, ValidationError{
					Path:    jsonPath(fe.Namespace()),
					Message: constraintMessage(fe),
				})
			}
		} else {
			problems = append(problems, ValidationError{Message: err.Error()})
		}
	}

	for ti, track := range t.Tracks {
		for ci, clip := range track.Clips {
			path := fmt.Sprintf("tracks[%d].clips[%d]", ti, ci)
			problems = append(problems, validateClip(path, clip)...)
		}
	}

	if len(problems) > 0 {
		return problems
	}
	return nil
}

func validateClip(path string, clip Clip) ValidationErrors {
	var problems ValidationErrors

	if !KnownClipType(clip.Type) {
		problems = append(problems, ValidationError{
			Path:    path + ".type",
			Message: fmt.Sprintf("unknown clip type %q", clip.Type),
		})
		return problems
	}

	switch clip.Type {
	case ClipText:
		if strings.TrimSpace(clip.Text) == "" {
			problems = append(problems, ValidationError{
				Path:    path + ".text",
				Message: "text clips require a text value",
			})
		}
	case ClipImage, ClipVideo:
		if strings.TrimSpace(clip.Source) == "" {
			problems = append(problems, ValidationError{
				Path:    path + ".source",
				Message: fmt.Sprintf("%s clips require a source", clip.Type),
			})
		}
	case ClipShape:
		if clip.Shape == nil {
			problems = append(problems, ValidationError{
				Path:    path + ".shape",
				Message: "shape clips require a shape definition",
			})
		} else {
			if clip.Shape.Width <= 0 {
				problems = append(problems, ValidationError{
					Path:    path + ".shape.width",
					Message: "shape width must be positive",
				})
			}
			if clip.Shape.Height <= 0 {
				problems = append(problems, ValidationError{
					Path:    path + ".shape.height",
					Message: "shape height must be positive",
				})
			}
		}
	}

	return problems
}

// jsonPath strips the root struct name from a validator namespace like
// "Timeline.tracks[0].clips[1].duration". Field segments already carry their
// json names via the registered tag name function.
func jsonPath(namespace string) string {
	if rest, ok := strings.CutPrefix(namespace, "Timeline."); ok {
		return rest
	}
	return namespace
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("must contain at least %s element(s)", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s constraint", fe.Tag())
	}
}
