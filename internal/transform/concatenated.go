package transform

import (
	"strings"

	"github.com/jobrunner/meridian/internal/domain"
)

// ConcatenatedTransform folds points through an ordered list of legs.
// Each leg holds its own copy of its MathTransform, so inverting one
// concatenation never affects another.
type ConcatenatedTransform struct {
	legs []*CoordinateTransformation
}

// NewConcatenatedTransform composes the given legs in order. The legs'
// MathTransforms are copied.
func NewConcatenatedTransform(legs ...*CoordinateTransformation) *ConcatenatedTransform {
	c := &ConcatenatedTransform{legs: make([]*CoordinateTransformation, 0, len(legs))}
	for _, leg := range legs {
		c.legs = append(c.legs, copyLeg(leg))
	}
	return c
}

func copyLeg(leg *CoordinateTransformation) *CoordinateTransformation {
	c := *leg
	c.Transform = leg.Transform.copyTransform()
	return &c
}

// Legs returns the legs in execution order. The slice is a copy; the legs are not.
func (c *ConcatenatedTransform) Legs() []*CoordinateTransformation {
	return append([]*CoordinateTransformation(nil), c.legs...)
}

// Name implements MathTransform.
func (c *ConcatenatedTransform) Name() string {
	names := make([]string, len(c.legs))
	for i, leg := range c.legs {
		names[i] = leg.Transform.Name()
	}
	return "Concatenated[" + strings.Join(names, ", ") + "]"
}

// IsInverse implements MathTransform. A concatenation has no direction of
// its own; its legs carry it.
func (c *ConcatenatedTransform) IsInverse() bool { return false }

// Transform implements MathTransform.
func (c *ConcatenatedTransform) Transform(p domain.Point) (domain.Point, error) {
	if err := checkPoint(p); err != nil {
		return nil, err
	}
	if len(c.legs) == 0 {
		return p.Clone(), nil
	}
	var err error
	for _, leg := range c.legs {
		if p, err = leg.Transform.Transform(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// TransformMany implements MathTransform.
func (c *ConcatenatedTransform) TransformMany(points []domain.Point) ([]domain.Point, error) {
	return transformMany(c, points)
}

// Invert reverses the leg order and inverts every leg. When a leg cannot be
// inverted the receiver is left unchanged.
func (c *ConcatenatedTransform) Invert() error {
	inverted := make([]*CoordinateTransformation, len(c.legs))
	for i, leg := range c.legs {
		n := copyLeg(leg)
		if err := n.Transform.Invert(); err != nil {
			return err
		}
		n.Source, n.Target = leg.Target, leg.Source
		inverted[len(c.legs)-1-i] = n
	}
	c.legs = inverted
	return nil
}

// Inverse implements MathTransform.
func (c *ConcatenatedTransform) Inverse() (MathTransform, error) {
	inv := NewConcatenatedTransform(c.legs...)
	if err := inv.Invert(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (c *ConcatenatedTransform) copyTransform() MathTransform {
	return NewConcatenatedTransform(c.legs...)
}
