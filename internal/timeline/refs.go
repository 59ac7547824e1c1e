package timeline

import "fmt"

// ClipRef returns the canonical reference string for a clip position, used to
// correlate resolved assets, graph nodes, and log lines.
func ClipRef(trackIndex, clipIndex int) string {
	return fmt.Sprintf("tracks[%d].clips[%d]", trackIndex, clipIndex)
}
