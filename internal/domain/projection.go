package domain

import (
	"fmt"
	"strings"
)

// AxisOrientation is the direction of a coordinate system axis.
type AxisOrientation int

// Axis orientations.
const (
	AxisOther AxisOrientation = iota
	AxisNorth
	AxisSouth
	AxisEast
	AxisWest
	AxisUp
	AxisDown
)

var axisOrientationNames = [...]string{"OTHER", "NORTH", "SOUTH", "EAST", "WEST", "UP", "DOWN"}

// String returns the WKT keyword of the orientation.
func (o AxisOrientation) String() string {
	if o < 0 || int(o) >= len(axisOrientationNames) {
		return "OTHER"
	}
	return axisOrientationNames[o]
}

// ParseAxisOrientation converts a WKT orientation keyword, case-insensitively.
func ParseAxisOrientation(s string) (AxisOrientation, error) {
	for i, name := range axisOrientationNames {
		if strings.EqualFold(s, name) {
			return AxisOrientation(i), nil
		}
	}
	return AxisOther, &ConfigurationError{Parameter: "AXIS", Message: fmt.Sprintf("invalid axis orientation '%s'", s)}
}

// AxisInfo names an axis and gives its orientation.
type AxisInfo struct {
	Name        string
	Orientation AxisOrientation
}

// WKT returns the AXIS clause.
func (a AxisInfo) WKT() string {
	return fmt.Sprintf("AXIS[\"%s\", %s]", a.Name, a.Orientation)
}

// ProjectionParameter is one named numeric projection argument.
type ProjectionParameter struct {
	Name  string
	Value float64
}

// WKT returns the PARAMETER clause.
func (p ProjectionParameter) WKT() string {
	return fmt.Sprintf("PARAMETER[\"%s\", %s]", p.Name, formatNumber(p.Value))
}

// Projection describes a map projection by class name and ordered parameters.
type Projection struct {
	Info
	ClassName  string
	Parameters []ProjectionParameter
}

// NewProjection creates a projection descriptor. The parameter slice is copied.
func NewProjection(name, className string, params []ProjectionParameter) *Projection {
	return &Projection{
		Info:       Info{Name: name},
		ClassName:  className,
		Parameters: append([]ProjectionParameter(nil), params...),
	}
}

// Parameter looks a parameter up by name, ignoring case.
func (p *Projection) Parameter(name string) (ProjectionParameter, bool) {
	return FindParameter(p.Parameters, name)
}

// FindParameter looks a parameter up by name, ignoring case.
func FindParameter(params []ProjectionParameter, name string) (ProjectionParameter, bool) {
	for _, pp := range params {
		if strings.EqualFold(pp.Name, name) {
			return pp, true
		}
	}
	return ProjectionParameter{}, false
}

// EqualParams compares class name and parameter values. Parameters are
// matched by name so their order does not matter.
func (p *Projection) EqualParams(o *Projection) bool {
	if p == nil || o == nil {
		return p == o
	}
	if !strings.EqualFold(p.ClassName, o.ClassName) || len(p.Parameters) != len(o.Parameters) {
		return false
	}
	for _, pp := range p.Parameters {
		op, ok := o.Parameter(pp.Name)
		if !ok || op.Value != pp.Value {
			return false
		}
	}
	return true
}

// WKT returns the PROJECTION clause. Parameters are written by the owning
// projected coordinate system.
func (p *Projection) WKT() string {
	name := p.ClassName
	if name == "" {
		name = p.Name
	}
	return fmt.Sprintf("PROJECTION[\"%s\"%s]", name, p.authorityWKT())
}
