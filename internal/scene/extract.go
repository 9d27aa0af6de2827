package scene

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"scenecast/internal/services"
)

// BaseSegmentSeconds is the assumed run time of every play call.
const BaseSegmentSeconds = 1.5

var (
	playPattern = regexp.MustCompile(`self\.play\(([^)]+)\)`)
	waitPattern = regexp.MustCompile(`self\.wait\(([^)]+)\)`)
)

// Extract scans script for play and wait calls in textual order and builds a
// timeline. Play i lasts BaseSegmentSeconds plus wait i when that wait exists
// and its argument is a plain number; anything else contributes nothing. The
// only failure is text that is not valid UTF-8.
func Extract(script Script) (Timeline, error) {
	if !utf8.ValidString(script.Source) {
		return Timeline{}, services.Wrap(services.ErrStructure, "timeline", "scan script", "script is not valid UTF-8", nil)
	}
	plays := playPattern.FindAllStringSubmatch(script.Source, -1)
	waits := waitPattern.FindAllStringSubmatch(script.Source, -1)

	timeline := Timeline{Segments: make([]Segment, 0, len(plays))}
	for i, play := range plays {
		seconds := BaseSegmentSeconds
		if i < len(waits) {
			seconds += waitSeconds(waits[i][1])
		}
		timeline.Segments = append(timeline.Segments, Segment{
			Ordinal:          i,
			RawContent:       play[1],
			EstimatedSeconds: seconds,
		})
		timeline.TotalEstimatedSeconds += seconds
	}
	return timeline, nil
}

// waitSeconds parses a wait argument, falling back to zero for expressions,
// keywords and non-finite values.
func waitSeconds(arg string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}
