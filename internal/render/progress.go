package render

import (
	"regexp"
	"strconv"
	"time"
)

// progressPattern matches the position counter ffmpeg prints on stderr,
// e.g. "frame= 120 fps= 30 ... time=00:00:04.12 bitrate= ...".
var progressPattern = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)

// ParseProgressTime extracts the encoded position from one line of encoder
// output. It returns false for lines without a position counter.
func ParseProgressTime(line string) (time.Duration, bool) {
	match := progressPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}

	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	fraction, _ := strconv.ParseFloat("0."+match[4], 64)

	elapsed := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(fraction*float64(time.Second))
	return elapsed, true
}

// ProgressPercent converts an encoded position into a percentage of the
// total output duration, clamped to [0, 100].
func ProgressPercent(elapsed time.Duration, totalSeconds float64) float64 {
	if totalSeconds <= 0 {
		return 0
	}
	percent := elapsed.Seconds() / totalSeconds * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
