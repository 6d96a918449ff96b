package transform

import (
	"math"

	"github.com/jobrunner/meridian/internal/domain"
)

// LambertConformalConic2SP implements the Lambert Conformal Conic projection
// with two standard parallels (EPSG 9802).
type LambertConformalConic2SP struct {
	mapProjection

	falseEasting  float64
	falseNorthing float64
	e             float64
	centerLon     float64
	ns            float64
	f0            float64
	rh            float64
}

// NewLambertConformalConic2SP creates a forward Lambert Conformal Conic projection.
func NewLambertConformalConic2SP(params []domain.ProjectionParameter) (*LambertConformalConic2SP, error) {
	base, err := newMapProjection(params, "Lambert_Conformal_Conic_2SP", 9802)
	if err != nil {
		return nil, err
	}
	p := &LambertConformalConic2SP{mapProjection: base}

	latOrigin, err := p.require("latitude_of_origin")
	if err != nil {
		return nil, err
	}
	cm, err := p.require("central_meridian")
	if err != nil {
		return nil, err
	}
	sp1, err := p.require("standard_parallel_1")
	if err != nil {
		return nil, err
	}
	sp2, err := p.require("standard_parallel_2")
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

	lat0 := latOrigin * degToRad
	lat1 := sp1 * degToRad
	lat2 := sp2 * degToRad
	p.centerLon = cm * degToRad
	p.falseEasting = fe * p.metersPerUnit
	p.falseNorthing = fn * p.metersPerUnit

	if math.Abs(lat1+lat2) < epsln {
		return nil, &domain.ConfigurationError{
			Parameter: "standard_parallel_2",
			Message:   "equal latitudes for standard parallels on opposite sides of equator",
		}
	}

	p.e = math.Sqrt(p.es)

	sin1, cos1 := math.Sincos(lat1)
	ms1 := msfnz(p.e, sin1, cos1)
	ts1 := tsfnz(p.e, lat1, sin1)
	sin2, cos2 := math.Sincos(lat2)
	ms2 := msfnz(p.e, sin2, cos2)
	ts2 := tsfnz(p.e, lat2, sin2)
	ts0 := tsfnz(p.e, lat0, math.Sin(lat0))

	if math.Abs(lat1-lat2) > epsln {
		p.ns = math.Log(ms1/ms2) / math.Log(ts1/ts2)
	} else {
		p.ns = sin1
	}
	p.f0 = ms1 / (p.ns * math.Pow(ts1, p.ns))
	p.rh = p.semiMajor * p.f0 * math.Pow(ts0, p.ns)
	return p, nil
}

// Transform implements MathTransform.
func (p *LambertConformalConic2SP) Transform(pt domain.Point) (domain.Point, error) {
	if err := checkPoint(pt); err != nil {
		return nil, err
	}
	if p.inverse {
		return p.metersToDegrees(pt)
	}
	return p.degreesToMeters(pt)
}

// TransformMany implements MathTransform.
func (p *LambertConformalConic2SP) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(p, points)
}

// Inverse implements MathTransform.
func (p *LambertConformalConic2SP) Inverse() (MathTransform, error) {
	c := *p
	c.inverse = !c.inverse
	return &c, nil
}

func (p *LambertConformalConic2SP) copyTransform() MathTransform {
	c := *p
	return &c
}

func (p *LambertConformalConic2SP) degreesToMeters(lonlat domain.Point) (domain.Point, error) {
	lon := lonlat[0] * degToRad
	lat := lonlat[1] * degToRad

	var rh1 float64
	if math.Abs(math.Abs(lat)-halfPi) > epsln {
		ts := tsfnz(p.e, lat, math.Sin(lat))
		rh1 = p.semiMajor * p.f0 * math.Pow(ts, p.ns)
	} else if lat*p.ns <= 0 {
		return nil, &domain.ConvergenceError{Method: p.name, Message: "point cannot be projected"}
	}

	theta := p.ns * adjustLon(lon-p.centerLon)
	x := rh1*math.Sin(theta) + p.falseEasting
	y := p.rh - rh1*math.Cos(theta) + p.falseNorthing
	return withHeight(x/p.metersPerUnit, y/p.metersPerUnit, lonlat), nil
}

func (p *LambertConformalConic2SP) metersToDegrees(pt domain.Point) (domain.Point, error) {
	dx := pt[0]*p.metersPerUnit - p.falseEasting
	dy := p.rh - pt[1]*p.metersPerUnit + p.falseNorthing

	rh1 := math.Sqrt(dx*dx + dy*dy)
	con := 1.0
	if p.ns <= 0 {
		rh1, con = -rh1, -1.0
	}

	theta := 0.0
	if rh1 != 0 {
		theta = math.Atan2(con*dx, con*dy)
	}

	lat := -halfPi
	if rh1 != 0 || p.ns > 0 {
		ts := math.Pow(rh1/(p.semiMajor*p.f0), 1.0/p.ns)
		var err error
		if lat, err = phi2z(p.e, ts); err != nil {
			return nil, err
		}
	}

	lon := adjustLon(theta/p.ns + p.centerLon)
	return withHeight(lon*radToDeg, lat*radToDeg, pt), nil
}
