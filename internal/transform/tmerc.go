package transform

import (
	"math"

	"github.com/jobrunner/meridian/internal/domain"
)

// tmercMaxIter caps the footpoint latitude iteration of the inverse.
const tmercMaxIter = 6

// TransverseMercator implements the Transverse Mercator projection (EPSG 9807)
// using the Snyder series.
type TransverseMercator struct {
	mapProjection

	scaleFactor     float64
	centralMeridian float64
	e0, e1, e2, e3  float64
	esp             float64
	ml0             float64
	falseEasting    float64
	falseNorthing   float64
}

// NewTransverseMercator creates a forward Transverse Mercator projection.
func NewTransverseMercator(params []domain.ProjectionParameter) (*TransverseMercator, error) {
	base, err := newMapProjection(params, "Transverse_Mercator", 9807)
	if err != nil {
		return nil, err
	}
	p := &TransverseMercator{mapProjection: base}

	k, err := p.require("scale_factor")
	if err != nil {
		return nil, err
	}
	cm, err := p.require("central_meridian")
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

	p.scaleFactor = k
	p.centralMeridian = cm * degToRad
	p.falseEasting = fe * p.metersPerUnit
	p.falseNorthing = fn * p.metersPerUnit

	p.e0 = e0fn(p.es)
	p.e1 = e1fn(p.es)
	p.e2 = e2fn(p.es)
	p.e3 = e3fn(p.es)
	p.ml0 = p.semiMajor * mlfn(p.e0, p.e1, p.e2, p.e3, latOrigin*degToRad)
	p.esp = p.es / (1.0 - p.es)
	return p, nil
}

// Transform implements MathTransform.
func (p *TransverseMercator) Transform(pt domain.Point) (domain.Point, error) {
	if err := checkPoint(pt); err != nil {
		return nil, err
	}
	if p.inverse {
		return p.metersToDegrees(pt)
	}
	return p.degreesToMeters(pt), nil
}

// TransformMany implements MathTransform.
func (p *TransverseMercator) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(p, points)
}

// Inverse implements MathTransform.
func (p *TransverseMercator) Inverse() (MathTransform, error) {
	c := *p
	c.inverse = !c.inverse
	return &c, nil
}

func (p *TransverseMercator) copyTransform() MathTransform {
	c := *p
	return &c
}

func (p *TransverseMercator) degreesToMeters(lonlat domain.Point) domain.Point {
	lon := lonlat[0] * degToRad
	lat := lonlat[1] * degToRad

	deltaLon := adjustLon(lon - p.centralMeridian)
	sinPhi, cosPhi := math.Sincos(lat)

	al := cosPhi * deltaLon
	als := al * al
	c := p.esp * cosPhi * cosPhi
	tq := math.Tan(lat)
	t := tq * tq
	con := 1.0 - p.es*sinPhi*sinPhi
	n := p.semiMajor / math.Sqrt(con)
	ml := p.semiMajor * mlfn(p.e0, p.e1, p.e2, p.e3, lat)

	x := p.scaleFactor*n*al*(1.0+als/6.0*(1.0-t+c+als/20.0*(5.0-18.0*t+t*t+72.0*c-58.0*p.esp))) + p.falseEasting
	y := p.scaleFactor*(ml-p.ml0+n*tq*(als*(0.5+als/24.0*(5.0-t+9.0*c+4.0*c*c+als/30.0*(61.0-58.0*t+t*t+600.0*c-330.0*p.esp))))) + p.falseNorthing

	return withHeight(x/p.metersPerUnit, y/p.metersPerUnit, lonlat)
}

func (p *TransverseMercator) metersToDegrees(pt domain.Point) (domain.Point, error) {
	x := pt[0]*p.metersPerUnit - p.falseEasting
	y := pt[1]*p.metersPerUnit - p.falseNorthing

	con := (p.ml0 + y/p.scaleFactor) / p.semiMajor
	phi := con
	for i := 0; ; i++ {
		deltaPhi := (con+p.e1*math.Sin(2.0*phi)-p.e2*math.Sin(4.0*phi)+p.e3*math.Sin(6.0*phi))/p.e0 - phi
		phi += deltaPhi
		if math.Abs(deltaPhi) <= epsln {
			break
		}
		if i >= tmercMaxIter {
			return nil, &domain.ConvergenceError{Method: p.name, Iterations: i + 1}
		}
	}

	if math.Abs(phi) >= halfPi {
		return withHeight(p.centralMeridian*radToDeg, halfPi*sign(y)*radToDeg, pt), nil
	}

	sinPhi, cosPhi := math.Sincos(phi)
	tanPhi := math.Tan(phi)
	c := p.esp * cosPhi * cosPhi
	cs := c * c
	t := tanPhi * tanPhi
	ts := t * t
	con = 1.0 - p.es*sinPhi*sinPhi
	n := p.semiMajor / math.Sqrt(con)
	r := n * (1.0 - p.es) / con
	d := x / (n * p.scaleFactor)
	ds := d * d

	lat := phi - (n*tanPhi*ds/r)*(0.5-ds/24.0*(5.0+3.0*t+10.0*c-4.0*cs-9.0*p.esp-ds/30.0*(61.0+90.0*t+298.0*c+45.0*ts-252.0*p.esp-3.0*cs)))
	lon := adjustLon(p.centralMeridian + (d*(1.0-ds/6.0*(1.0+2.0*t+c-ds/20.0*(5.0-2.0*c+28.0*t-3.0*cs+8.0*p.esp+24.0*ts))))/cosPhi)

	return withHeight(lon*radToDeg, lat*radToDeg, pt), nil
}
