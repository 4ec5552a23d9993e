package bands

import (
	"fmt"
	"math"
)

// Bucket is the presentation class of a gauge needle.
type Bucket string

const (
	BucketGood    Bucket = "good"
	BucketCaution Bucket = "caution"
	BucketBad     Bucket = "bad"
)

// GaugeSpec configures how a ratio metric is classified. Invert flips the
// normalised value so that the bad end of the gauge is always at 1; Buckets
// selects a two-way (good/bad) or three-way (good/caution/bad) split.
type GaugeSpec struct {
	Invert  bool `json:"invert" yaml:"invert"`
	Buckets int  `json:"buckets" yaml:"buckets"`
}

// Default gauge policies. Low Alpha/Delta is abnormal, so ADR is inverted.
var (
	DefaultADRGauge = GaugeSpec{Invert: true, Buckets: 3}
	DefaultTARGauge = GaugeSpec{Invert: false, Buckets: 3}
)

// Validate reports whether the spec has a supported bucket count.
func (g GaugeSpec) Validate() error {
	if g.Buckets != 2 && g.Buckets != 3 {
		return fmt.Errorf("gauge buckets must be 2 or 3, got %d", g.Buckets)
	}
	return nil
}

// GaugeReading is a classified ratio value ready for rendering.
type GaugeReading struct {
	Value  float64 `json:"value"`
	Level  float64 `json:"level"`
	Bucket Bucket  `json:"bucket"`
	Range  Range   `json:"range"`
}

// Level returns the post-inversion position of value within r, where 1 is
// the bad end of the gauge.
func (g GaugeSpec) Level(value float64, r Range) float64 {
	raw := r.Normalize(value)
	if g.Invert {
		return 1 - raw
	}
	return raw
}

// Classify buckets value relative to r using equal-width bins.
func (g GaugeSpec) Classify(value float64, r Range) Bucket {
	return bucketFor(g.Level(value, r), g.Buckets)
}

// Gauge classifies value and returns everything a gauge renderer needs.
func Gauge(value float64, r Range, g GaugeSpec) GaugeReading {
	level := g.Level(value, r)
	return GaugeReading{
		Value:  Finite(value),
		Level:  level,
		Bucket: bucketFor(level, g.Buckets),
		Range:  r,
	}
}

func bucketFor(level float64, buckets int) Bucket {
	if buckets == 2 {
		if level < 0.5 {
			return BucketGood
		}
		return BucketBad
	}

	switch idx := int(math.Floor(level * 3)); {
	case idx <= 0:
		return BucketGood
	case idx == 1:
		return BucketCaution
	default:
		return BucketBad
	}
}
