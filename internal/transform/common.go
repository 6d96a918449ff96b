package transform

import (
	"math"

	"github.com/jobrunner/meridian/internal/domain"
)

const (
	halfPi = math.Pi * 0.5
	twoPi  = math.Pi * 2
	epsln  = 1.0e-10

	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi

	// Largest multiple of 2π folded in one step of adjustLon.
	maxLong = 2147483647
	dblLong = 4.61168601e18
)

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// adjustLon folds x into [-π, π].
func adjustLon(x float64) float64 {
	for count := 0; count <= 4; count++ {
		if math.Abs(x) <= math.Pi {
			break
		}
		switch {
		case int64(math.Abs(x/math.Pi)) < 2:
			x -= sign(x) * twoPi
		case int64(math.Abs(x/twoPi)) < maxLong:
			x -= float64(int64(x/twoPi)) * twoPi
		case int64(math.Abs(x/(maxLong*twoPi))) < maxLong:
			x -= float64(int64(x/(maxLong*twoPi))) * (twoPi * maxLong)
		case int64(math.Abs(x/(dblLong*twoPi))) < maxLong:
			x -= float64(int64(x/(dblLong*twoPi))) * (twoPi * dblLong)
		default:
			x -= sign(x) * twoPi
		}
	}
	return x
}

// msfnz computes the constant small m, the radius of a parallel divided by
// the semi-major axis.
func msfnz(e, sinphi, cosphi float64) float64 {
	con := e * sinphi
	return cosphi / math.Sqrt(1.0-con*con)
}

// qsfnz computes the authalic function q.
func qsfnz(e, sinphi float64) float64 {
	if e > 1.0e-7 {
		con := e * sinphi
		return (1.0 - e*e) * (sinphi/(1.0-con*con) - (0.5/e)*math.Log((1.0-con)/(1.0+con)))
	}
	return 2.0 * sinphi
}

// tsfnz computes the constant small t used by the conformal conic forward equations.
func tsfnz(e, phi, sinphi float64) float64 {
	con := e * sinphi
	com := 0.5 * e
	con = math.Pow((1.0-con)/(1.0+con), com)
	return math.Tan(0.5*(halfPi-phi)) / con
}

// phi2z recovers latitude from the conformal t by fixed-point iteration.
func phi2z(e, ts float64) (float64, error) {
	eccnth := 0.5 * e
	chi := halfPi - 2*math.Atan(ts)
	for i := 0; i <= 15; i++ {
		con := e * math.Sin(chi)
		dphi := halfPi - 2*math.Atan(ts*math.Pow((1.0-con)/(1.0+con), eccnth)) - chi
		chi += dphi
		if math.Abs(dphi) <= epsln {
			return chi, nil
		}
	}
	return 0, &domain.ConvergenceError{Method: "phi2z", Iterations: 16}
}

// Meridian distance series coefficients.

func e0fn(x float64) float64 { return 1.0 - 0.25*x*(1.0+x/16.0*(3.0+1.25*x)) }

func e1fn(x float64) float64 { return 0.375 * x * (1.0 + 0.25*x*(1.0+0.46875*x)) }

func e2fn(x float64) float64 { return 0.05859375 * x * x * (1.0 + 0.75*x) }

func e3fn(x float64) float64 { return x * x * x * (35.0 / 3072.0) }

// mlfn returns the meridian distance from the equator to phi on the unit ellipsoid.
func mlfn(e0, e1, e2, e3, phi float64) float64 {
	return e0*phi - e1*math.Sin(2.0*phi) + e2*math.Sin(4.0*phi) - e3*math.Sin(6.0*phi)
}

// asinz clamps its argument into [-1, 1] before taking the arc sine.
func asinz(con float64) float64 {
	if math.Abs(con) > 1.0 {
		con = sign(con)
	}
	return math.Asin(con)
}

// withHeight builds a planar result and carries a third ordinate through unchanged.
func withHeight(x, y float64, in domain.Point) domain.Point {
	if len(in) > 2 {
		return domain.Point{x, y, in[2]}
	}
	return domain.Point{x, y}
}

func checkPoint(p domain.Point) error {
	if len(p) < 2 {
		return &domain.ValidationError{
			Field:      "point",
			Value:      len(p),
			Constraint: ">= 2 ordinates",
			Message:    "point has too few ordinates",
		}
	}
	return nil
}
