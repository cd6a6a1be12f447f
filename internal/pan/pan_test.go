package pan

import "testing"

func TestCoeffsCentre(t *testing.T) {
	l, r := Coeffs(0)
	want := 0.7071067811865476
	if diff := l - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("l = %v, want %v", l, want)
	}
	if diff := r - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("r = %v, want %v", r, want)
	}
}

func TestCoeffsEnergyConserved(t *testing.T) {
	for _, p := range []float64{-1, -0.5, 0, 0.3, 1, 5, -9} {
		l, r := Coeffs(p)
		energy := l*l + r*r
		if diff := energy - 1; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("pan=%v: l^2+r^2 = %v, want 1", p, energy)
		}
	}
}

func TestCoeffsExtremes(t *testing.T) {
	l, r := Coeffs(-1)
	if l < 0.9999 || r > 1e-9 {
		t.Fatalf("hard left: l=%v r=%v", l, r)
	}
	l, r = Coeffs(1)
	if r < 0.9999 || l > 1e-9 {
		t.Fatalf("hard right: l=%v r=%v", l, r)
	}
}
