package assets

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reel/internal/logging"
)

// ResolvedAsset records the outcome of resolving one clip source. An empty
// AbsolutePath means the asset was not found; callers must treat that as
// "omit this clip" rather than a job failure.
type ResolvedAsset struct {
	ClipRef       string
	LogicalSource string
	AbsolutePath  string
	InputIndex    int
}

// Found reports whether the asset resolved to an existing file.
func (a ResolvedAsset) Found() bool { return a.AbsolutePath != "" }

// Resolver probes an ordered list of asset roots for clip sources.
type Resolver struct {
	roots  []string
	logger *slog.Logger
}

// NewResolver constructs a resolver over the given roots, probed in order.
func NewResolver(roots []string, logger *slog.Logger) *Resolver {
	return &Resolver{
		roots:  append([]string{}, roots...),
		logger: logging.WithComponent(logger, "assets"),
	}
}

// Resolve maps a clip's logical source to a real filesystem path. Absolute
// paths that exist are used as-is; relative sources are probed against each
// root in fixed order and the first existing match wins. Unresolved sources
// yield an empty AbsolutePath and a logged warning.
func (r *Resolver) Resolve(clipRef, source string) ResolvedAsset {
	resolved := ResolvedAsset{ClipRef: clipRef, LogicalSource: source, InputIndex: -1}
	source = strings.TrimSpace(source)
	if source == "" {
		return resolved
	}

	if filepath.IsAbs(source) {
		if fileExists(source) {
			resolved.AbsolutePath = source
		} else {
			r.warnMissing(clipRef, source)
		}
		return resolved
	}

	for _, root := range r.roots {
		candidate := filepath.Join(root, source)
		if fileExists(candidate) {
			resolved.AbsolutePath = candidate
			return resolved
		}
	}

	r.warnMissing(clipRef, source)
	return resolved
}

func (r *Resolver) warnMissing(clipRef, source string) {
	r.logger.Warn(
		"asset not found, clip will be omitted",
		logging.String("clip", clipRef),
		logging.String("source", source),
		logging.Int("roots_probed", len(r.roots)),
	)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
