package transform

import (
	"math"

	"github.com/jobrunner/meridian/internal/domain"
)

const (
	albersMaxIter   = 25
	albersTolerance = 1e-6

	// Slack on the authalic bound; points projected from the poles land on it.
	albersQSlack = 1e-10
)

// Albers implements the Albers Equal-Area Conic projection (EPSG 9822).
type Albers struct {
	mapProjection

	falseEasting  float64
	falseNorthing float64
	c             float64
	e             float64
	ro0           float64
	n             float64
	qp            float64
	lonCenter     float64
}

// NewAlbers creates a forward Albers projection. longitude_of_center and
// latitude_of_center may also be given as central_meridian and latitude_of_origin.
func NewAlbers(params []domain.ProjectionParameter) (*Albers, error) {
	base, err := newMapProjection(params, "Albers_Conic_Equal_Area", 9822)
	if err != nil {
		return nil, err
	}
	p := &Albers{mapProjection: base}

	lonCenter, err := p.requireAlias("longitude_of_center", "central_meridian")
	if err != nil {
		return nil, err
	}
	latCenter, err := p.requireAlias("latitude_of_center", "latitude_of_origin")
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

	p.lonCenter = lonCenter * degToRad
	lat0 := latCenter * degToRad
	lat1 := sp1 * degToRad
	lat2 := sp2 * degToRad
	p.falseEasting = fe * p.metersPerUnit
	p.falseNorthing = fn * p.metersPerUnit

	if math.Abs(lat1+lat2) < math.SmallestNonzeroFloat64 {
		return nil, &domain.ConfigurationError{
			Parameter: "standard_parallel_2",
			Message:   "equal latitudes for standard parallels on opposite sides of equator",
		}
	}

	p.e = math.Sqrt(p.es)

	alpha1 := p.alpha(lat1)
	alpha2 := p.alpha(lat2)
	sin1, sin2 := math.Sin(lat1), math.Sin(lat2)
	m1 := math.Cos(lat1) / math.Sqrt(1-p.es*sin1*sin1)
	m2 := math.Cos(lat2) / math.Sqrt(1-p.es*sin2*sin2)

	p.n = (m1*m1 - m2*m2) / (alpha2 - alpha1)
	p.c = m1*m1 + p.n*alpha1
	p.ro0 = p.ro(p.alpha(lat0))
	p.qp = p.alpha(halfPi)
	return p, nil
}

// Transform implements MathTransform.
func (p *Albers) Transform(pt domain.Point) (domain.Point, error) {
	if err := checkPoint(pt); err != nil {
		return nil, err
	}
	if p.inverse {
		return p.metersToDegrees(pt)
	}
	return p.degreesToMeters(pt), nil
}

// TransformMany implements MathTransform.
func (p *Albers) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(p, points)
}

// Inverse implements MathTransform.
func (p *Albers) Inverse() (MathTransform, error) {
	c := *p
	c.inverse = !c.inverse
	return &c, nil
}

func (p *Albers) copyTransform() MathTransform {
	c := *p
	return &c
}

func (p *Albers) degreesToMeters(lonlat domain.Point) domain.Point {
	lon := lonlat[0] * degToRad
	lat := lonlat[1] * degToRad

	ro := p.ro(p.alpha(lat))
	theta := p.n * (lon - p.lonCenter)
	x := p.falseEasting + ro*math.Sin(theta)
	y := p.falseNorthing + p.ro0 - ro*math.Cos(theta)
	return withHeight(x/p.metersPerUnit, y/p.metersPerUnit, lonlat)
}

func (p *Albers) metersToDegrees(pt domain.Point) (domain.Point, error) {
	dx := pt[0]*p.metersPerUnit - p.falseEasting
	dy := p.ro0 - (pt[1]*p.metersPerUnit - p.falseNorthing)

	theta := math.Atan(dx / dy)
	ro := math.Sqrt(dx*dx + dy*dy)
	q := (p.c - ro*ro*p.n*p.n/(p.semiMajor*p.semiMajor)) / p.n

	if math.IsNaN(q) || math.Abs(q)-p.qp > albersQSlack {
		return nil, &domain.ConvergenceError{Method: p.name, Message: "point outside the projection domain"}
	}
	lon := adjustLon(p.lonCenter + theta/p.n)

	lat := asinz(q * 0.5)
	if p.e < 1e-7 {
		return withHeight(lon*radToDeg, lat*radToDeg, pt), nil
	}
	preLat := math.MaxFloat64
	for i := 0; math.Abs(lat-preLat) > albersTolerance; {
		preLat = lat
		sin := math.Sin(lat)
		e2sin2 := p.es * sin * sin
		lat += ((1 - e2sin2) * (1 - e2sin2) / (2 * math.Cos(lat))) *
			(q/(1-p.es) - sin/(1-e2sin2) + 1/(2*p.e)*math.Log((1-p.e*sin)/(1+p.e*sin)))
		i++
		if i > albersMaxIter {
			return nil, &domain.ConvergenceError{Method: p.name, Iterations: i}
		}
	}
	// Steps vanish in floating point far outside the domain, so the loop
	// can stop on a latitude that is not one.
	if math.IsNaN(lat) || math.Abs(lat) > halfPi {
		return nil, &domain.ConvergenceError{Method: p.name, Message: "point outside the projection domain"}
	}
	return withHeight(lon*radToDeg, lat*radToDeg, pt), nil
}

// alpha is the authalic q function of the Albers formulas.
func (p *Albers) alpha(lat float64) float64 {
	return qsfnz(p.e, math.Sin(lat))
}

func (p *Albers) ro(a float64) float64 {
	return p.semiMajor * math.Sqrt(p.c-p.n*a) / p.n
}
