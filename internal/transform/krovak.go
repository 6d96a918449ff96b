package transform

import (
	"math"

	"github.com/jobrunner/meridian/internal/domain"
)

const (
	krovakMaxIter   = 15
	krovakTolerance = 1e-11
	s45             = 0.785398163397448

	// Longitude of the Krovak cone axis, 42°30' east of Ferro, stated
	// relative to Greenwich. The longitude_of_center parameter is not used.
	krovakCentralMeridian = (24 + 50.0/60) * degToRad
)

// Krovak implements the Krovak oblique conformal conic projection (EPSG 9819)
// in its south-west oriented form: both ordinates are negative over the
// Czech and Slovak republics.
type Krovak struct {
	mapProjection

	falseEasting  float64
	falseNorthing float64
	e             float64
	sinAzim       float64
	cosAzim       float64
	n             float64
	tanS2         float64
	alfa          float64
	hae           float64
	k1            float64
	ka            float64
	ro0           float64
	rop           float64
}

// NewKrovak creates a forward Krovak projection.
func NewKrovak(params []domain.ProjectionParameter) (*Krovak, error) {
	base, err := newMapProjection(params, "Krovak", 9819)
	if err != nil {
		return nil, err
	}
	p := &Krovak{mapProjection: base}

	latCenter, err := p.require("latitude_of_center")
	if err != nil {
		return nil, err
	}
	if _, err := p.require("longitude_of_center"); err != nil {
		return nil, err
	}
	azimuth, err := p.require("azimuth")
	if err != nil {
		return nil, err
	}
	pseudoParallel, err := p.require("pseudo_standard_parallel_1")
	if err != nil {
		return nil, err
	}
	k, err := p.require("scale_factor")
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

	lat0 := latCenter * degToRad
	azim := azimuth * degToRad
	psp := pseudoParallel * degToRad
	p.falseEasting = fe * p.metersPerUnit
	p.falseNorthing = fn * p.metersPerUnit

	p.e = math.Sqrt(p.es)
	p.sinAzim, p.cosAzim = math.Sincos(azim)
	p.n = math.Sin(psp)
	p.tanS2 = math.Tan(psp/2 + s45)

	sinLat, cosLat := math.Sincos(lat0)
	cosL2 := cosLat * cosLat
	p.alfa = math.Sqrt(1 + (p.es*(cosL2*cosL2))/(1-p.es))
	p.hae = p.alfa * p.e / 2
	u0 := math.Asin(sinLat / p.alfa)
	esl := p.e * sinLat
	g := math.Pow((1-esl)/(1+esl), (p.alfa*p.e)/2)
	p.k1 = math.Pow(math.Tan(lat0/2+s45), p.alfa) * g / math.Tan(u0/2+s45)
	p.ka = math.Pow(1/p.k1, -1/p.alfa)

	radius := math.Sqrt(1-p.es) / (1 - p.es*sinLat*sinLat)
	p.ro0 = k * radius / math.Tan(psp)
	p.rop = p.ro0 * math.Pow(p.tanS2, p.n)
	return p, nil
}

// Transform implements MathTransform.
func (p *Krovak) Transform(pt domain.Point) (domain.Point, error) {
	if err := checkPoint(pt); err != nil {
		return nil, err
	}
	if p.inverse {
		return p.metersToDegrees(pt)
	}
	return p.degreesToMeters(pt), nil
}

// TransformMany implements MathTransform.
func (p *Krovak) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(p, points)
}

// Inverse implements MathTransform.
func (p *Krovak) Inverse() (MathTransform, error) {
	c := *p
	c.inverse = !c.inverse
	return &c, nil
}

func (p *Krovak) copyTransform() MathTransform {
	c := *p
	return &c
}

func (p *Krovak) degreesToMeters(lonlat domain.Point) domain.Point {
	lambda := lonlat[0]*degToRad - krovakCentralMeridian
	phi := lonlat[1] * degToRad

	esp := p.e * math.Sin(phi)
	gfi := math.Pow((1.0-esp)/(1.0+esp), p.hae)
	u := 2 * (math.Atan(math.Pow(math.Tan(phi/2+s45), p.alfa)/p.k1*gfi) - s45)
	deltav := -lambda * p.alfa
	cosU := math.Cos(u)
	s := math.Asin(p.cosAzim*math.Sin(u) + p.sinAzim*cosU*math.Cos(deltav))
	d := math.Asin(cosU * math.Sin(deltav) / math.Cos(s))
	eps := p.n * d
	ro := p.rop / math.Pow(math.Tan(s/2+s45), p.n)

	y := -(ro * math.Cos(eps)) * p.semiMajor
	x := -(ro * math.Sin(eps)) * p.semiMajor
	return withHeight((x+p.falseEasting)/p.metersPerUnit, (y+p.falseNorthing)/p.metersPerUnit, lonlat)
}

func (p *Krovak) metersToDegrees(pt domain.Point) (domain.Point, error) {
	x := (pt[0]*p.metersPerUnit - p.falseEasting) / p.semiMajor
	y := (pt[1]*p.metersPerUnit - p.falseNorthing) / p.semiMajor

	ro := math.Sqrt(x*x + y*y)
	eps := math.Atan2(-x, -y)
	d := eps / p.n
	s := 2 * (math.Atan(math.Pow(p.ro0/ro, 1/p.n)*p.tanS2) - s45)
	cs := math.Cos(s)
	u := math.Asin(p.cosAzim*math.Sin(s) - p.sinAzim*cs*math.Cos(d))
	kau := p.ka * math.Pow(math.Tan(u/2.0+s45), 1/p.alfa)
	deltav := math.Asin(cs * math.Sin(d) / math.Cos(u))
	lambda := -deltav / p.alfa

	phi := 0.0
	for i := 0; ; i++ {
		fi1 := phi
		esf := p.e * math.Sin(fi1)
		phi = 2.0 * (math.Atan(kau*math.Pow((1.0+esf)/(1.0-esf), p.e/2.0)) - s45)
		if math.Abs(fi1-phi) <= krovakTolerance {
			break
		}
		if i >= krovakMaxIter {
			return nil, &domain.ConvergenceError{Method: p.name, Iterations: i + 1}
		}
	}

	return withHeight((lambda+krovakCentralMeridian)*radToDeg, phi*radToDeg, pt), nil
}
