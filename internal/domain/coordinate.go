// Package domain contains the coordinate system model and the value objects
// shared by the transformation engine and the service around it.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Point is an ordered tuple of two or three ordinates: (x, y) or (x, y, z).
// Geographic points are (longitude, latitude[, height]).
type Point []float64

// Validate checks the ordinate count and rejects NaN and infinities.
func (p Point) Validate() error {
	if len(p) != 2 && len(p) != 3 {
		return &ValidationError{
			Field:      "point",
			Value:      len(p),
			Constraint: "2 or 3 ordinates",
			Message:    "point must have 2 or 3 ordinates",
		}
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{
				Field:      "point",
				Value:      v,
				Constraint: "finite",
				Message:    "ordinates must be finite",
			}
		}
	}
	return nil
}

// Clone returns an independent copy of p.
func (p Point) Clone() Point {
	return append(Point(nil), p...)
}

// Coordinate is a single point tagged with its spatial reference.
type Coordinate struct {
	X    float64 // Longitude or Easting
	Y    float64 // Latitude or Northing
	Z    float64 // Height (optional)
	HasZ bool    // Z carries a value
	SRID int     // Spatial Reference ID
}

// CoordinateFromPoint tags a point with an SRID.
func CoordinateFromPoint(p Point, srid int) Coordinate {
	c := Coordinate{SRID: srid}
	if len(p) > 0 {
		c.X = p[0]
	}
	if len(p) > 1 {
		c.Y = p[1]
	}
	if len(p) > 2 {
		c.Z, c.HasZ = p[2], true
	}
	return c
}

// Point returns the ordinates of the coordinate.
func (c Coordinate) Point() Point {
	if c.HasZ {
		return Point{c.X, c.Y, c.Z}
	}
	return Point{c.X, c.Y}
}

// Validate checks if the coordinate is valid for its SRID.
func (c Coordinate) Validate() error {
	if c.SRID <= 0 {
		return &ValidationError{
			Field:      "srid",
			Value:      c.SRID,
			Constraint: "> 0",
			Message:    "srid must be positive",
		}
	}
	if c.SRID == SRIDWGS84 {
		if c.X < -180 || c.X > 180 {
			return &ValidationError{
				Field:      "longitude",
				Value:      c.X,
				Constraint: "[-180, 180]",
				Message:    "longitude must be between -180 and 180",
			}
		}
		if c.Y < -90 || c.Y > 90 {
			return &ValidationError{
				Field:      "latitude",
				Value:      c.Y,
				Constraint: "[-90, 90]",
				Message:    "latitude must be between -90 and 90",
			}
		}
	}
	return c.Point().Validate()
}

// String returns a string representation of the coordinate.
func (c Coordinate) String() string {
	return fmt.Sprintf("%s SRID=%d", c.WKT(), c.SRID)
}

// WKT returns the Well-Known Text representation.
func (c Coordinate) WKT() string {
	if c.HasZ {
		return fmt.Sprintf("POINT Z(%f %f %f)", c.X, c.Y, c.Z)
	}
	return fmt.Sprintf("POINT(%f %f)", c.X, c.Y)
}

// Common SRID constants.
const (
	SRIDWGS84           = 4326 // WGS 84
	SRIDWGS84Geocentric = 4978 // WGS 84 geocentric
	SRIDWorldMercator   = 3395 // WGS 84 / World Mercator
	SRIDETRS89          = 4258 // ETRS89
	SRIDED50            = 4230 // ED50
	SRIDWGS72           = 4322 // WGS 72
	SRIDUTMNorthBase    = 32600
	SRIDUTMSouthBase    = 32700
)

// UTMZone decodes a WGS 84 / UTM SRID (326zz or 327zz).
func UTMZone(srid int) (zone int, north bool, ok bool) {
	switch {
	case srid > SRIDUTMNorthBase && srid <= SRIDUTMNorthBase+60:
		return srid - SRIDUTMNorthBase, true, true
	case srid > SRIDUTMSouthBase && srid <= SRIDUTMSouthBase+60:
		return srid - SRIDUTMSouthBase, false, true
	}
	return 0, false, false
}

// TransformRequest asks for points to be moved from one reference system to another.
type TransformRequest struct {
	SourceSRID int
	TargetSRID int
	Points     []Point
}

// Validate checks SRIDs and points.
func (r TransformRequest) Validate() error {
	if r.SourceSRID <= 0 {
		return &ValidationError{Field: "from", Value: r.SourceSRID, Constraint: "> 0", Message: "source srid must be positive"}
	}
	if r.TargetSRID <= 0 {
		return &ValidationError{Field: "to", Value: r.TargetSRID, Constraint: "> 0", Message: "target srid must be positive"}
	}
	if len(r.Points) == 0 {
		return &ValidationError{Field: "points", Value: 0, Constraint: ">= 1", Message: "at least one point is required"}
	}
	for i, p := range r.Points {
		if err := p.Validate(); err != nil {
			return &PointError{Index: i, Err: err}
		}
	}
	return nil
}

// TransformResponse carries the transformed points.
type TransformResponse struct {
	SourceSRID     int
	TargetSRID     int
	Points         []Point
	Operation      OperationSummary
	ProcessingTime time.Duration
}

// OperationSummary describes the pipeline used for a transformation.
type OperationSummary struct {
	Name   string   // Human-readable name
	Type   string   // conversion, transformation, ...
	Steps  []string // Leg descriptions in execution order
	Cached bool     // Pipeline came from the cache
}
