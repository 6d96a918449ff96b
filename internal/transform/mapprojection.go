package transform

import (
	"github.com/jobrunner/meridian/internal/domain"
)

// mapProjection holds what every projection reads from its parameter list:
// the ellipsoid axes and the metres per output unit. Linear parameters are
// scaled to metres on construction and results are divided back on output.
type mapProjection struct {
	params        []domain.ProjectionParameter
	semiMajor     float64
	semiMinor     float64
	metersPerUnit float64
	es            float64

	name      string
	authority string
	code      int64
	inverse   bool
}

func newMapProjection(params []domain.ProjectionParameter, name string, code int64) (mapProjection, error) {
	m := mapProjection{
		params:    append([]domain.ProjectionParameter(nil), params...),
		name:      name,
		authority: "EPSG",
		code:      code,
	}
	var err error
	if m.semiMajor, err = m.require("semi_major"); err != nil {
		return m, err
	}
	if m.semiMinor, err = m.require("semi_minor"); err != nil {
		return m, err
	}
	if m.metersPerUnit, err = m.require("unit"); err != nil {
		return m, err
	}
	if m.semiMajor <= 0 || m.semiMinor <= 0 {
		return m, &domain.ConfigurationError{Parameter: "semi_major", Message: "ellipsoid axes must be positive"}
	}
	if m.metersPerUnit <= 0 {
		return m, &domain.ConfigurationError{Parameter: "unit", Message: "metres per unit must be positive"}
	}
	m.es = 1.0 - (m.semiMinor*m.semiMinor)/(m.semiMajor*m.semiMajor)
	return m, nil
}

// require returns the named parameter or a configuration error naming it.
func (m *mapProjection) require(name string) (float64, error) {
	if p, ok := domain.FindParameter(m.params, name); ok {
		return p.Value, nil
	}
	return 0, domain.MissingParameter(name)
}

// requireAlias accepts an alternative name; the error names the primary one.
func (m *mapProjection) requireAlias(name, alias string) (float64, error) {
	if p, ok := domain.FindParameter(m.params, name); ok {
		return p.Value, nil
	}
	if p, ok := domain.FindParameter(m.params, alias); ok {
		return p.Value, nil
	}
	return 0, domain.MissingParameter(name)
}

func (m *mapProjection) optional(name string) (float64, bool) {
	p, ok := domain.FindParameter(m.params, name)
	return p.Value, ok
}

// Parameters returns a copy of the parameter list in its original order.
func (m *mapProjection) Parameters() []domain.ProjectionParameter {
	return append([]domain.ProjectionParameter(nil), m.params...)
}

// Name implements MathTransform.
func (m *mapProjection) Name() string { return m.name }

// Authority returns the authority name and code of the projection method.
func (m *mapProjection) Authority() (string, int64) { return m.authority, m.code }

// IsInverse implements MathTransform.
func (m *mapProjection) IsInverse() bool { return m.inverse }

// Invert implements MathTransform.
func (m *mapProjection) Invert() error {
	m.inverse = !m.inverse
	return nil
}
