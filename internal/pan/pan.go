// Package pan implements equal-power stereo panning.
package pan

import "math"

// Coeffs returns the equal-power left/right gain coefficients for p in
// [-1, 1]. p is clamped before use. At p=0 both channels carry sqrt(1/2),
// so L^2+R^2 == 1 for every value of p.
func Coeffs(p float64) (l, r float64) {
	if p < -1 {
		p = -1
	} else if p > 1 {
		p = 1
	}
	angle := (p + 1) * math.Pi / 4
	return math.Cos(angle), math.Sin(angle)
}
