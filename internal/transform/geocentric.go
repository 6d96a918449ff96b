package transform

import (
	"math"

	"github.com/jobrunner/meridian/internal/domain"
)

const (
	cos67p5 = 0.38268343236508977 // cos(67.5°)
	adC     = 1.0026000           // Toms' region 1 constant
)

// GeocentricTransform converts geographic (lon, lat, height) on an ellipsoid
// to Earth-centred cartesian (X, Y, Z) metres. The inverse uses Bowring's
// closed-form approximation.
type GeocentricTransform struct {
	params    []domain.ProjectionParameter
	semiMajor float64
	semiMinor float64
	es        float64 // e²
	ses       float64 // second eccentricity squared
	inverse   bool
}

// NewGeocentricTransform creates a forward transform from semi_major and semi_minor parameters.
func NewGeocentricTransform(params []domain.ProjectionParameter) (*GeocentricTransform, error) {
	t := &GeocentricTransform{params: append([]domain.ProjectionParameter(nil), params...)}
	a, ok := domain.FindParameter(params, "semi_major")
	if !ok {
		return nil, domain.MissingParameter("semi_major")
	}
	b, ok := domain.FindParameter(params, "semi_minor")
	if !ok {
		return nil, domain.MissingParameter("semi_minor")
	}
	if a.Value <= 0 || b.Value <= 0 {
		return nil, &domain.ConfigurationError{Parameter: "semi_major", Message: "ellipsoid axes must be positive"}
	}
	t.semiMajor, t.semiMinor = a.Value, b.Value
	t.es = 1.0 - (t.semiMinor*t.semiMinor)/(t.semiMajor*t.semiMajor)
	t.ses = (t.semiMajor*t.semiMajor - t.semiMinor*t.semiMinor) / (t.semiMinor * t.semiMinor)
	return t, nil
}

// NewGeocentricTransformForEllipsoid creates a forward transform for an ellipsoid.
func NewGeocentricTransformForEllipsoid(e domain.Ellipsoid) (*GeocentricTransform, error) {
	return NewGeocentricTransform(ellipsoidParameters(e))
}

func ellipsoidParameters(e domain.Ellipsoid) []domain.ProjectionParameter {
	return []domain.ProjectionParameter{
		{Name: "semi_major", Value: e.SemiMajorAxis},
		{Name: "semi_minor", Value: e.SemiMinorAxis},
	}
}

// Name implements MathTransform.
func (t *GeocentricTransform) Name() string { return "Ellipsoid_To_Geocentric" }

// IsInverse implements MathTransform.
func (t *GeocentricTransform) IsInverse() bool { return t.inverse }

// Invert implements MathTransform.
func (t *GeocentricTransform) Invert() error {
	t.inverse = !t.inverse
	return nil
}

// Inverse implements MathTransform.
func (t *GeocentricTransform) Inverse() (MathTransform, error) {
	c := *t
	c.inverse = !c.inverse
	return &c, nil
}

func (t *GeocentricTransform) copyTransform() MathTransform {
	c := *t
	return &c
}

// Transform implements MathTransform.
func (t *GeocentricTransform) Transform(p domain.Point) (domain.Point, error) {
	if err := checkPoint(p); err != nil {
		return nil, err
	}
	if t.inverse {
		return t.metersToDegrees(p), nil
	}
	return t.degreesToMeters(p), nil
}

// TransformMany implements MathTransform.
func (t *GeocentricTransform) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(t, points)
}

// third returns the third ordinate, treating absent and NaN as zero.
func third(p domain.Point) float64 {
	if len(p) < 3 || math.IsNaN(p[2]) {
		return 0
	}
	return p[2]
}

func (t *GeocentricTransform) degreesToMeters(lonlat domain.Point) domain.Point {
	lon := lonlat[0] * degToRad
	lat := lonlat[1] * degToRad
	h := third(lonlat)

	sinLat, cosLat := math.Sincos(lat)
	v := t.semiMajor / math.Sqrt(1-t.es*sinLat*sinLat)
	return domain.Point{
		(v + h) * cosLat * math.Cos(lon),
		(v + h) * cosLat * math.Sin(lon),
		((1-t.es)*v + h) * sinLat,
	}
}

func (t *GeocentricTransform) metersToDegrees(p domain.Point) domain.Point {
	x, y, z := p[0], p[1], third(p)

	atPole := false
	var lon, lat float64
	switch {
	case x != 0:
		lon = math.Atan2(y, x)
	case y > 0:
		lon = halfPi
	case y < 0:
		lon = -halfPi
	default:
		atPole = true
		switch {
		case z > 0:
			lat = halfPi
		case z < 0:
			lat = -halfPi
		default:
			return domain.Point{0, 90, -t.semiMinor}
		}
	}

	w2 := x*x + y*y
	w := math.Sqrt(w2)
	t0 := z * adC
	s0 := math.Sqrt(t0*t0 + w2)
	sinB0 := t0 / s0
	cosB0 := w / s0
	sin3B0 := sinB0 * sinB0 * sinB0
	t1 := z + t.semiMinor*t.ses*sin3B0
	sum := w - t.semiMajor*t.es*cosB0*cosB0*cosB0
	s1 := math.Sqrt(t1*t1 + sum*sum)
	sinP1 := t1 / s1
	cosP1 := sum / s1
	rn := t.semiMajor / math.Sqrt(1.0-t.es*sinP1*sinP1)

	var height float64
	switch {
	case cosP1 >= cos67p5:
		height = w/cosP1 - rn
	case cosP1 <= -cos67p5:
		height = w/-cosP1 - rn
	default:
		height = z/sinP1 + rn*(t.es-1.0)
	}
	if !atPole {
		lat = math.Atan(sinP1 / cosP1)
	}
	return domain.Point{lon * radToDeg, lat * radToDeg, height}
}
