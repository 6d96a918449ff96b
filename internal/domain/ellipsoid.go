package domain

import (
	"fmt"
	"math"
)

// Ellipsoid approximates the figure of the Earth.
// Build it with NewEllipsoid so the axes and flattening stay consistent.
type Ellipsoid struct {
	Info
	SemiMajorAxis     float64
	SemiMinorAxis     float64
	InverseFlattening float64
	IvfDefinitive     bool
	AxisUnit          LinearUnit
}

// NewEllipsoid creates an ellipsoid. When ivfDefinitive is set the semi-minor
// axis is derived from the inverse flattening, otherwise the inverse flattening
// is derived from the two axes.
func NewEllipsoid(semiMajor, semiMinor, ivf float64, ivfDefinitive bool, unit LinearUnit, info Info) Ellipsoid {
	e := Ellipsoid{
		Info:              info,
		SemiMajorAxis:     semiMajor,
		SemiMinorAxis:     semiMinor,
		InverseFlattening: ivf,
		IvfDefinitive:     ivfDefinitive,
		AxisUnit:          unit,
	}
	if ivfDefinitive {
		if ivf == 0 || math.IsInf(ivf, 0) {
			e.SemiMinorAxis = semiMajor
		} else {
			e.SemiMinorAxis = (1.0 - 1.0/ivf) * semiMajor
		}
	} else if semiMajor != semiMinor {
		e.InverseFlattening = semiMajor / (semiMajor - semiMinor)
	} else {
		e.InverseFlattening = 0
	}
	return e
}

// NewFlattenedSphere creates an ellipsoid from its semi-major axis and inverse flattening.
func NewFlattenedSphere(name string, semiMajor, ivf float64, unit LinearUnit) Ellipsoid {
	return NewEllipsoid(semiMajor, 0, ivf, true, unit, Info{Name: name})
}

// NewEllipsoidFromAxes creates an ellipsoid from both semi-axes.
func NewEllipsoidFromAxes(name string, semiMajor, semiMinor float64, unit LinearUnit) Ellipsoid {
	return NewEllipsoid(semiMajor, semiMinor, 0, false, unit, Info{Name: name})
}

// Well-known ellipsoids.
var (
	EllipsoidWGS84 = NewEllipsoid(6378137, 0, 298.257223563, true, Metre,
		Info{Name: "WGS 84", Authority: "EPSG", AuthorityCode: 7030, Alias: "WGS84"})
	EllipsoidWGS72 = NewEllipsoid(6378135, 0, 298.26, true, Metre,
		Info{Name: "WGS 72", Authority: "EPSG", AuthorityCode: 7043, Alias: "WGS 72"})
	EllipsoidGRS80 = NewEllipsoid(6378137, 0, 298.257222101, true, Metre,
		Info{Name: "GRS 1980", Authority: "EPSG", AuthorityCode: 7019, Alias: "International 1979"})
	EllipsoidInternational1924 = NewEllipsoid(6378388, 0, 297, true, Metre,
		Info{Name: "International 1924", Authority: "EPSG", AuthorityCode: 7022, Alias: "Hayford 1909"})
	EllipsoidClarke1880 = NewEllipsoid(20926202, 0, 297, true, ClarkesFoot,
		Info{Name: "Clarke 1880", Authority: "EPSG", AuthorityCode: 7034, Alias: "Clarke 1880"})
	EllipsoidClarke1866 = NewEllipsoid(6378206.4, 6356583.8, math.Inf(1), false, Metre,
		Info{Name: "Clarke 1866", Authority: "EPSG", AuthorityCode: 7008, Alias: "Clarke 1866"})
	EllipsoidSphere = NewEllipsoid(6370997, 6370997, math.Inf(1), false, Metre,
		Info{Name: "GRS 1980 Authalic Sphere", Authority: "EPSG", AuthorityCode: 7048, Alias: "Sphere"})
)

// EccentricitySquared returns e² = 1 − b²/a².
func (e Ellipsoid) EccentricitySquared() float64 {
	return 1.0 - (e.SemiMinorAxis*e.SemiMinorAxis)/(e.SemiMajorAxis*e.SemiMajorAxis)
}

// EqualParams compares the defining numbers of both ellipsoids.
func (e Ellipsoid) EqualParams(o Ellipsoid) bool {
	return e.InverseFlattening == o.InverseFlattening &&
		e.IvfDefinitive == o.IvfDefinitive &&
		e.SemiMajorAxis == o.SemiMajorAxis &&
		e.SemiMinorAxis == o.SemiMinorAxis &&
		e.AxisUnit.EqualParams(o.AxisUnit)
}

// WKT returns the Well-Known Text of the ellipsoid.
func (e Ellipsoid) WKT() string {
	ivf := e.InverseFlattening
	if math.IsInf(ivf, 0) {
		ivf = 0
	}
	return fmt.Sprintf("SPHEROID[\"%s\", %s, %s%s]",
		e.Name, formatNumber(e.SemiMajorAxis), formatNumber(ivf), e.authorityWKT())
}
