package transform

import (
	"math"

	"github.com/jobrunner/meridian/internal/domain"
)

// Mercator implements the ellipsoidal Mercator projection (EPSG 9804 and 9805).
// With a scale_factor parameter it is the one standard parallel variant;
// without one the scale is derived from latitude_of_origin.
type Mercator struct {
	mapProjection

	falseEasting  float64
	falseNorthing float64
	lonCenter     float64
	e, e2         float64
	k0            float64
}

// NewMercator creates a forward Mercator projection.
func NewMercator(params []domain.ProjectionParameter) (*Mercator, error) {
	base, err := newMapProjection(params, "Mercator_1SP", 9804)
	if err != nil {
		return nil, err
	}
	p := &Mercator{mapProjection: base}

	centralMeridian, err := p.require("central_meridian")
	if err != nil {
		return nil, err
	}
	latOrigin, err := p.require("latitude_of_origin")
	if err != nil {
		return nil, err
	}
	fe, err := p.require("false_easting")
	if err != nil {
		return nil, err
	}
	fn, err := p.require("false_northing")
	if err != nil {
		return nil, err
	}

	p.lonCenter = centralMeridian * degToRad
	lat0 := latOrigin * degToRad
	p.falseEasting = fe * p.metersPerUnit
	p.falseNorthing = fn * p.metersPerUnit

	temp := p.semiMinor / p.semiMajor
	p.e2 = 1 - temp*temp
	p.e = math.Sqrt(p.e2)

	if k, ok := p.optional("scale_factor"); ok {
		p.k0 = k
	} else {
		sinLat := math.Sin(lat0)
		p.k0 = math.Cos(lat0) / math.Sqrt(1.0-p.e2*sinLat*sinLat)
		p.name, p.code = "Mercator_2SP", 9805
	}
	return p, nil
}

// Transform implements MathTransform.
func (p *Mercator) Transform(pt domain.Point) (domain.Point, error) {
	if err := checkPoint(pt); err != nil {
		return nil, err
	}
	if p.inverse {
		return p.metersToDegrees(pt), nil
	}
	return p.degreesToMeters(pt)
}

// TransformMany implements MathTransform.
func (p *Mercator) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(p, points)
}

// Inverse implements MathTransform.
func (p *Mercator) Inverse() (MathTransform, error) {
	c := *p
	c.inverse = !c.inverse
	return &c, nil
}

func (p *Mercator) copyTransform() MathTransform {
	c := *p
	return &c
}

func (p *Mercator) degreesToMeters(lonlat domain.Point) (domain.Point, error) {
	if math.IsNaN(lonlat[0]) || math.IsNaN(lonlat[1]) {
		return withHeight(math.NaN(), math.NaN(), lonlat), nil
	}
	lon := lonlat[0] * degToRad
	lat := lonlat[1] * degToRad
	if math.Abs(math.Abs(lat)-halfPi) <= epsln {
		return nil, &domain.ConvergenceError{Method: p.name, Message: "transformation cannot be computed at the poles"}
	}

	esinphi := p.e * math.Sin(lat)
	x := p.falseEasting + p.semiMajor*p.k0*(lon-p.lonCenter)
	y := p.falseNorthing + p.semiMajor*p.k0*math.Log(math.Tan(math.Pi*0.25+lat*0.5)*math.Pow((1-esinphi)/(1+esinphi), p.e*0.5))
	return withHeight(x/p.metersPerUnit, y/p.metersPerUnit, lonlat), nil
}

func (p *Mercator) metersToDegrees(pt domain.Point) domain.Point {
	dX := pt[0]*p.metersPerUnit - p.falseEasting
	dY := pt[1]*p.metersPerUnit - p.falseNorthing

	ts := math.Exp(-dY / (p.semiMajor * p.k0))
	chi := halfPi - 2*math.Atan(ts)
	e4 := math.Pow(p.e, 4)
	e6 := math.Pow(p.e, 6)
	e8 := math.Pow(p.e, 8)

	lat := chi +
		(p.e2*0.5+5*e4/24+e6/12+13*e8/360)*math.Sin(2*chi) +
		(7*e4/48+29*e6/240+811*e8/11520)*math.Sin(4*chi) +
		(7*e6/120+81*e8/1120)*math.Sin(6*chi) +
		(4279*e8/161280)*math.Sin(8*chi)
	lon := dX/(p.semiMajor*p.k0) + p.lonCenter

	return withHeight(lon*radToDeg, lat*radToDeg, pt)
}
