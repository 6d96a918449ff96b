package transform

import (
	"fmt"
	"strings"

	"github.com/jobrunner/meridian/internal/domain"
)

// Factory plans the pipeline of elementary transforms between two
// coordinate systems. It holds no state and is safe for concurrent use.
type Factory struct{}

// NewFactory creates a transformation factory.
func NewFactory() *Factory {
	return &Factory{}
}

// CreateFromCoordinateSystems builds the transformation from source to target.
// The result's Source and Target are the arguments themselves.
func (f *Factory) CreateFromCoordinateSystems(source, target domain.CoordinateSystem) (*CoordinateTransformation, error) {
	switch src := source.(type) {
	case *domain.ProjectedCS:
		switch dst := target.(type) {
		case *domain.GeographicCS:
			return f.proj2Geog(src, dst)
		case *domain.ProjectedCS:
			return f.proj2Proj(src, dst)
		}
	case *domain.GeographicCS:
		switch dst := target.(type) {
		case *domain.ProjectedCS:
			return f.geog2Proj(src, dst)
		case *domain.GeocentricCS:
			return f.geog2Geoc(src, dst)
		case *domain.GeographicCS:
			return f.geog2Geog(src, dst)
		}
	case *domain.GeocentricCS:
		switch dst := target.(type) {
		case *domain.GeographicCS:
			return f.geoc2Geog(src, dst)
		case *domain.GeocentricCS:
			return f.geoc2Geoc(src, dst)
		}
	}
	return nil, &domain.UnsupportedOperationError{
		Operation: "create transformation",
		Message:   fmt.Sprintf("no support for transforming between %s and %s coordinate systems", kindOf(source), kindOf(target)),
	}
}

func kindOf(cs domain.CoordinateSystem) string {
	if cs == nil {
		return "nil"
	}
	return cs.Kind().String()
}

// CreateProjection builds the forward MathTransform of a projection on the
// given ellipsoid with output in the given linear unit. The class name is
// matched case-insensitively with spaces read as underscores.
func (f *Factory) CreateProjection(projection *domain.Projection, ellipsoid domain.Ellipsoid, unit domain.LinearUnit) (MathTransform, error) {
	params := make([]domain.ProjectionParameter, 0, len(projection.Parameters)+3)
	params = append(params, projection.Parameters...)
	params = append(params,
		domain.ProjectionParameter{Name: "semi_major", Value: ellipsoid.SemiMajorAxis},
		domain.ProjectionParameter{Name: "semi_minor", Value: ellipsoid.SemiMinorAxis},
		domain.ProjectionParameter{Name: "unit", Value: unit.MetersPerUnit},
	)

	switch strings.ReplaceAll(strings.ToLower(projection.ClassName), " ", "_") {
	case "mercator", "mercator_1sp", "mercator_2sp":
		return NewMercator(params)
	case "transverse_mercator":
		return NewTransverseMercator(params)
	case "albers", "albers_conic_equal_area":
		return NewAlbers(params)
	case "krovak":
		return NewKrovak(params)
	case "lambert_conformal_conic", "lambert_conformal_conic_2sp", "lambert_conic_conformal_(2sp)":
		return NewLambertConformalConic2SP(params)
	default:
		return nil, &domain.UnsupportedOperationError{
			Operation: "create projection",
			Message:   fmt.Sprintf("Projection %s is not supported.", projection.ClassName),
		}
	}
}

func (f *Factory) projection(cs *domain.ProjectedCS) (MathTransform, error) {
	return f.CreateProjection(cs.Projection, cs.Geographic.Datum.Ellipsoid, cs.LinearUnit)
}

func (f *Factory) proj2Geog(source *domain.ProjectedCS, target *domain.GeographicCS) (*CoordinateTransformation, error) {
	if source.Geographic.EqualParams(target) {
		mt, err := f.projection(source)
		if err != nil {
			return nil, err
		}
		if err := mt.Invert(); err != nil {
			return nil, err
		}
		return newCoordinateTransformation(source, target, TypeConversion, mt), nil
	}
	return f.chain(source, target,
		step{source, source.Geographic},
		step{source.Geographic, target},
	)
}

func (f *Factory) geog2Proj(source *domain.GeographicCS, target *domain.ProjectedCS) (*CoordinateTransformation, error) {
	if source.EqualParams(target.Geographic) {
		mt, err := f.projection(target)
		if err != nil {
			return nil, err
		}
		return newCoordinateTransformation(source, target, TypeConversion, mt), nil
	}
	return f.chain(source, target,
		step{source, target.Geographic},
		step{target.Geographic, target},
	)
}

// proj2Proj always goes through both geographic systems, even when they are
// equal and the middle leg is an identity.
func (f *Factory) proj2Proj(source, target *domain.ProjectedCS) (*CoordinateTransformation, error) {
	return f.chain(source, target,
		step{source, source.Geographic},
		step{source.Geographic, target.Geographic},
		step{target.Geographic, target},
	)
}

func (f *Factory) geog2Geoc(source *domain.GeographicCS, target *domain.GeocentricCS) (*CoordinateTransformation, error) {
	mt, err := NewGeocentricTransformForEllipsoid(source.Datum.Ellipsoid)
	if err != nil {
		return nil, err
	}
	return newCoordinateTransformation(source, target, TypeConversion, mt), nil
}

func (f *Factory) geoc2Geog(source *domain.GeocentricCS, target *domain.GeographicCS) (*CoordinateTransformation, error) {
	mt, err := NewGeocentricTransformForEllipsoid(target.Datum.Ellipsoid)
	if err != nil {
		return nil, err
	}
	if err := mt.Invert(); err != nil {
		return nil, err
	}
	return newCoordinateTransformation(source, target, TypeConversion, mt), nil
}

// geoc2Geoc shifts the source to WGS84 and WGS84 to the target, skipping
// either side that carries no shift. A single shift is returned unwrapped;
// no shift at all yields an empty concatenation.
func (f *Factory) geoc2Geoc(source, target *domain.GeocentricCS) (*CoordinateTransformation, error) {
	var legs []*CoordinateTransformation
	if source.Datum.HasShift() {
		var to domain.CoordinateSystem = domain.WGS84Geocentric()
		if !target.Datum.HasShift() {
			to = target
		}
		legs = append(legs, newCoordinateTransformation(source, to, TypeTransformation,
			NewDatumTransform(*source.Datum.ToWGS84)))
	}
	if target.Datum.HasShift() {
		var from domain.CoordinateSystem = domain.WGS84Geocentric()
		if !source.Datum.HasShift() {
			from = source
		}
		shift, err := NewDatumTransform(*target.Datum.ToWGS84).Inverse()
		if err != nil {
			return nil, err
		}
		legs = append(legs, newCoordinateTransformation(from, target, TypeTransformation, shift))
	}

	if len(legs) == 1 {
		return newCoordinateTransformation(source, target, TypeConversionAndTransformation, legs[0].Transform), nil
	}
	return newCoordinateTransformation(source, target, TypeConversionAndTransformation, NewConcatenatedTransform(legs...)), nil
}

// geog2Geog shifts the prime meridian when the datums agree and otherwise
// routes through geocentric space on both datums.
func (f *Factory) geog2Geog(source, target *domain.GeographicCS) (*CoordinateTransformation, error) {
	if source.Datum.EqualParams(target.Datum) {
		return newCoordinateTransformation(source, target, TypeConversion, NewGeographicTransform(source, target)), nil
	}

	sourceCentric, err := geocentricFor(source.Datum, source.PrimeMeridian)
	if err != nil {
		return nil, err
	}
	targetCentric, err := geocentricFor(target.Datum, source.PrimeMeridian)
	if err != nil {
		return nil, err
	}
	ct, err := f.chain(source, target,
		step{source, sourceCentric},
		step{sourceCentric, targetCentric},
		step{targetCentric, target},
	)
	if err != nil {
		return nil, err
	}
	ct.Type = TypeTransformation
	return ct, nil
}

func geocentricFor(datum *domain.HorizontalDatum, pm domain.PrimeMeridian) (*domain.GeocentricCS, error) {
	return domain.NewGeocentricCS(domain.Info{Name: datum.Name + " Geocentric"}, datum, domain.Metre, pm, domain.DefaultGeocentricAxes)
}

type step struct {
	from, to domain.CoordinateSystem
}

// chain plans every step and concatenates the results. The type of the
// whole is the combination of the leg types.
func (f *Factory) chain(source, target domain.CoordinateSystem, steps ...step) (*CoordinateTransformation, error) {
	legs := make([]*CoordinateTransformation, 0, len(steps))
	typ := TypeOther
	for _, s := range steps {
		leg, err := f.CreateFromCoordinateSystems(s.from, s.to)
		if err != nil {
			return nil, err
		}
		typ = typ.combine(leg.Type)
		legs = append(legs, leg)
	}
	return newCoordinateTransformation(source, target, typ, NewConcatenatedTransform(legs...)), nil
}
