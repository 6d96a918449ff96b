// Package transform implements the coordinate transformation engine: map
// projections, geocentric and datum transforms, their composition and the
// factory that plans a pipeline between two coordinate systems.
package transform

import (
	"fmt"

	"github.com/jobrunner/meridian/internal/domain"
)

// MathTransform maps points from one coordinate space to another.
//
// Every transform carries a direction flag. Invert flips the flag of the
// receiver; Inverse returns an independent copy running the other way and
// leaves the receiver untouched. A transform must not be inverted while other
// goroutines call Transform on it.
type MathTransform interface {
	// Transform maps a single point.
	Transform(p domain.Point) (domain.Point, error)
	// TransformMany maps a batch. The first failing point aborts the batch.
	TransformMany(points []domain.Point) ([]domain.Point, error)
	// Inverse returns a new transform running in the opposite direction.
	Inverse() (MathTransform, error)
	// Invert flips the direction of the receiver in place.
	Invert() error
	// IsInverse reports whether the receiver runs in its inverse direction.
	IsInverse() bool
	// Name identifies the transform, e.g. "Transverse_Mercator".
	Name() string

	// copyTransform returns an independent copy with the same direction.
	copyTransform() MathTransform
}

// TransformType classifies a coordinate transformation.
type TransformType int

const (
	// TypeOther is unknown or unspecified.
	TypeOther TransformType = iota
	// TypeConversion is defined by parameters only, e.g. a map projection.
	TypeConversion
	// TypeTransformation is empirically derived, e.g. a datum shift.
	TypeTransformation
	// TypeConversionAndTransformation combines both.
	TypeConversionAndTransformation
)

// String returns the lower case name of the type.
func (t TransformType) String() string {
	switch t {
	case TypeConversion:
		return "conversion"
	case TypeTransformation:
		return "transformation"
	case TypeConversionAndTransformation:
		return "conversion_and_transformation"
	default:
		return "other"
	}
}

// combine returns the type of a pipeline containing legs of both types.
func (t TransformType) combine(o TransformType) TransformType {
	switch {
	case t == o:
		return t
	case t == TypeOther:
		return o
	case o == TypeOther:
		return t
	default:
		return TypeConversionAndTransformation
	}
}

// CoordinateTransformation pairs a MathTransform with the systems it connects.
type CoordinateTransformation struct {
	Source    domain.CoordinateSystem
	Target    domain.CoordinateSystem
	Transform MathTransform
	Type      TransformType
	Name      string
	Authority string
	Code      int64
	AreaOfUse string
	Remarks   string
}

// newCoordinateTransformation builds an anonymous transformation.
func newCoordinateTransformation(src, dst domain.CoordinateSystem, typ TransformType, mt MathTransform) *CoordinateTransformation {
	return &CoordinateTransformation{
		Source:    src,
		Target:    dst,
		Transform: mt,
		Type:      typ,
		Name:      fmt.Sprintf("%s to %s", src.Metadata().Name, dst.Metadata().Name),
		Code:      -1,
	}
}

// Steps lists the elementary transforms of the pipeline in execution order.
func (ct *CoordinateTransformation) Steps() []string {
	return describe(ct.Transform, nil)
}

func describe(mt MathTransform, steps []string) []string {
	if c, ok := mt.(*ConcatenatedTransform); ok {
		for _, leg := range c.legs {
			steps = describe(leg.Transform, steps)
		}
		return steps
	}
	name := mt.Name()
	if mt.IsInverse() {
		name = "inverse " + name
	}
	return append(steps, name)
}

func transformMany(t MathTransform, points []domain.Point) ([]domain.Point, error) {
	out := make([]domain.Point, len(points))
	for i, p := range points {
		q, err := t.Transform(p)
		if err != nil {
			return nil, &domain.PointError{Index: i, Err: err}
		}
		out[i] = q
	}
	return out, nil
}
