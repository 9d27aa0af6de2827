package render

// Quality is the manim render preset.
type Quality string

const (
	QualityLow  Quality = "low"
	QualityHigh Quality = "high"
)

// DefaultLowQualityThreshold is the estimated length above which renders
// drop to the low preset.
const DefaultLowQualityThreshold = 45.0

// QualityFor picks low quality for long timelines (strictly above threshold).
func QualityFor(totalSeconds, threshold float64) Quality {
	if totalSeconds > threshold {
		return QualityLow
	}
	return QualityHigh
}

// PresetDir is the directory manim names after the preset's resolution and
// frame rate.
func (q Quality) PresetDir() string {
	if q == QualityLow {
		return "480p15"
	}
	return "1080p60"
}

// Low reports whether q is the low preset.
func (q Quality) Low() bool {
	return q == QualityLow
}
