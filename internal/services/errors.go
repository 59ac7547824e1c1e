package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks structural timeline defects reported before any
	// processing begins.
	ErrValidation = errors.New("validation error")
	// ErrAssetMissing marks an unresolvable clip source. It is attached to
	// per-clip warnings only and never fails a job.
	ErrAssetMissing = errors.New("asset missing")
	// ErrCompile marks an internal invariant violation in graph construction.
	ErrCompile = errors.New("compile error")
	// ErrSpawn marks an environment failure starting the encoder binary.
	ErrSpawn = errors.New("process spawn error")
	// ErrEncoding marks a non-zero encoder exit.
	ErrEncoding = errors.New("encoding error")
	// ErrOutputVerification marks an encoder that reported success but left no
	// usable artifact.
	ErrOutputVerification = errors.New("output verification error")
	// ErrCancelled marks a job stopped by caller request or timeout.
	ErrCancelled = errors.New("cancelled")
	// ErrConfiguration marks invalid daemon configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes pipeline context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEncoding
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to its stable taxonomy name for job records and CLI
// output. Unknown errors report as "encoding".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrAssetMissing):
		return "asset_missing"
	case errors.Is(err, ErrCompile):
		return "compile"
	case errors.Is(err, ErrSpawn):
		return "spawn"
	case errors.Is(err, ErrOutputVerification):
		return "output_verification"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "encoding"
	}
}

// Rejected reports whether an error belongs to the class that counts toward
// the rejected counter instead of render statistics. Validation and spawn
// failures never reach the encoder, so they are not "processed" renders.
func Rejected(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConfiguration) || errors.Is(err, ErrSpawn)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
