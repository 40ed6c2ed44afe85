package fusion

// Calibration is the per-sensor contract consumed from the external
// calibration collaborator (spec.md §6): bias/scale/alignment are applied
// before a packet ever reaches the controller; the engine only reads
// Sigma, to populate the process-noise matrix Q. Grounded on
// ahrs.State.SetCalibrations' bias+scale pair, generalized to the 3×3
// alignment matrix and per-axis sigma spec.md §6 names.
type Calibration struct {
	BiasBase  [3]float64
	BiasTC    float64 // Gauss-Markov time constant, s
	Scale     [3]float64
	Alignment [3][3]float64
	Sigma     [3]float64
}

// Sigma2 returns the per-axis white-noise variance this calibration
// contributes to Q.
func (c Calibration) Sigma2() [3]float64 {
	return [3]float64{c.Sigma[0] * c.Sigma[0], c.Sigma[1] * c.Sigma[1], c.Sigma[2] * c.Sigma[2]}
}
