package bands

import "math"

// SymmetryClass classifies the magnitude of a brain symmetry index.
type SymmetryClass string

const (
	Symmetric            SymmetryClass = "symmetric"
	MildAsymmetry        SymmetryClass = "mild"
	SignificantAsymmetry SymmetryClass = "significant"
)

// Hemisphere names the side a signed BSI points at.
type Hemisphere string

const (
	HemisphereNone  Hemisphere = "none"
	HemisphereLeft  Hemisphere = "left"
	HemisphereRight Hemisphere = "right"
)

const (
	bsiMild        = 0.1
	bsiSignificant = 0.3
)

// Symmetry is a classified BSI. The sign only selects Hemisphere.
type Symmetry struct {
	BSI        float64       `json:"bsi"`
	Class      SymmetryClass `json:"class"`
	Hemisphere Hemisphere    `json:"hemisphere"`
}

// ClassifySymmetry buckets |bsi| at 0.1 and 0.3.
func ClassifySymmetry(bsi float64) Symmetry {
	bsi = Finite(bsi)
	s := Symmetry{BSI: bsi, Hemisphere: HemisphereNone}

	switch abs := math.Abs(bsi); {
	case abs < bsiMild:
		s.Class = Symmetric
	case abs < bsiSignificant:
		s.Class = MildAsymmetry
	default:
		s.Class = SignificantAsymmetry
	}

	switch {
	case bsi < 0:
		s.Hemisphere = HemisphereLeft
	case bsi > 0:
		s.Hemisphere = HemisphereRight
	}
	return s
}
