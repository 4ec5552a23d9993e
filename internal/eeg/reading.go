package eeg

// Reading is an instantaneous, possibly interpolated, set of band powers.
// Every value is finite. Slope and BSI are nil unless the dataset carries
// the extended columns.
type Reading struct {
	Alpha float64  `json:"alpha"`
	Beta  float64  `json:"beta"`
	Theta float64  `json:"theta"`
	Delta float64  `json:"delta"`
	Slope *float64 `json:"aperiodic_slope,omitempty"`
	BSI   *float64 `json:"bsi,omitempty"`
}

// Bands returns alpha, beta, theta and delta in that order.
func (r Reading) Bands() [4]float64 {
	return [4]float64{r.Alpha, r.Beta, r.Theta, r.Delta}
}

// BandNames labels the values returned by Reading.Bands.
var BandNames = [4]string{"Alpha", "Beta", "Theta", "Delta"}
