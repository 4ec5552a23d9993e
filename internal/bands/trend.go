package bands

import "math"

// AlertLevel classifies the recent rate of change of the aperiodic slope.
type AlertLevel string

const (
	AlertNormal AlertLevel = "normal"
	AlertMedium AlertLevel = "medium"
	AlertHigh   AlertLevel = "high"
)

// DefaultTrendWindow is the number of prior samples considered by TrendAlert.
const DefaultTrendWindow = 5

// Heuristic thresholds, not clinically validated.
const (
	trendHighChange   = 0.3
	trendMediumChange = 0.15
)

// Severe reports whether a is more severe than b.
func (a AlertLevel) Severe(b AlertLevel) bool {
	return a.rank() > b.rank()
}

func (a AlertLevel) rank() int {
	switch a {
	case AlertHigh:
		return 2
	case AlertMedium:
		return 1
	default:
		return 0
	}
}

// TrendChange returns |last-first|/count over the trailing window of up to
// window+1 slope values ending at current. Fewer than two samples yield 0.
func TrendChange(slopes []float64, current, window int) float64 {
	if len(slopes) == 0 || current < 0 {
		return 0
	}
	if current >= len(slopes) {
		current = len(slopes) - 1
	}
	if window < 0 {
		window = 0
	}

	start := current - window
	if start < 0 {
		start = 0
	}
	span := slopes[start : current+1]
	if len(span) < 2 {
		return 0
	}

	first, last := Finite(span[0]), Finite(span[len(span)-1])
	return Saturate(math.Abs(last-first)) / float64(len(span))
}

// TrendAlert classifies the trailing slope change ending at current. It holds
// no state between calls.
func TrendAlert(slopes []float64, current, window int) AlertLevel {
	change := TrendChange(slopes, current, window)
	switch {
	case change > trendHighChange:
		return AlertHigh
	case change > trendMediumChange:
		return AlertMedium
	default:
		return AlertNormal
	}
}
