package network

import "math"

// DefaultCurrentBoundPU is the wide symmetric current bound applied to
// branches without a known thermal rating.
const DefaultCurrentBoundPU = 1000.0

// ZBaseOhm returns the impedance base V_base^2 / S_base in ohms.
func ZBaseOhm(vnKV, sBase float64) float64 {
	return vnKV * vnKV / sBase
}

// SusceptancePU computes the per-unit susceptance of a line:
// b_pu = V_base^2 / (X_ohm * S_base). A zero reactance has no defined
// susceptance and is reported by the caller as a DataError.
func SusceptancePU(vnKV, xOhm, sBase float64) float64 {
	return vnKV * vnKV / (xOhm * sBase)
}

// BaseCurrentKA returns the current base S_base / (sqrt(3) * V_base) in kA.
func BaseCurrentKA(sBase, vnKV float64) float64 {
	return sBase / (math.Sqrt(3) * vnKV)
}

// CurrentPU converts a physical current in kA to per-unit.
func CurrentPU(iKA, sBase, vnKV float64) float64 {
	return iKA / BaseCurrentKA(sBase, vnKV)
}

// CurrentKA converts a per-unit current back to kA.
func CurrentKA(iPU, sBase, vnKV float64) float64 {
	return iPU * BaseCurrentKA(sBase, vnKV)
}
