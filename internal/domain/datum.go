package domain

import (
	"fmt"
	"strings"
)

// secToRad converts arc-seconds to radians.
const secToRad = 4.84813681109535993589914102357e-6

// PrimeMeridian is the meridian of zero longitude of a geographic system,
// expressed relative to Greenwich in its own angular unit.
type PrimeMeridian struct {
	Info
	Longitude   float64
	AngularUnit AngularUnit
}

// NewPrimeMeridian creates a prime meridian measured in degrees.
func NewPrimeMeridian(name string, longitude float64) PrimeMeridian {
	return PrimeMeridian{Info: Info{Name: name}, Longitude: longitude, AngularUnit: Degrees}
}

func epsgMeridian(name string, code int64, longitude float64) PrimeMeridian {
	return PrimeMeridian{
		Info:        Info{Name: name, Authority: "EPSG", AuthorityCode: code},
		Longitude:   longitude,
		AngularUnit: Degrees,
	}
}

// Well-known prime meridians.
var (
	Greenwich = epsgMeridian("Greenwich", 8901, 0.0)
	Lisbon    = epsgMeridian("Lisbon", 8902, -9.0754862)
	Paris     = epsgMeridian("Paris", 8903, 2.5969213)
	Bogota    = epsgMeridian("Bogota", 8904, -74.04513)
	Madrid    = epsgMeridian("Madrid", 8905, -3.411658)
	Rome      = epsgMeridian("Rome", 8906, 12.27084)
	Bern      = epsgMeridian("Bern", 8907, 7.26225)
	Jakarta   = epsgMeridian("Jakarta", 8908, 106.482779)
	Ferro     = epsgMeridian("Ferro", 8909, -17.4)
	Brussels  = epsgMeridian("Brussels", 8910, 4.220471)
	Stockholm = epsgMeridian("Stockholm", 8911, 18.03298)
	Athens    = epsgMeridian("Athens", 8912, 23.4258815)
	Oslo      = epsgMeridian("Oslo", 8913, 10.43225)
)

// InDegrees returns the Greenwich offset in decimal degrees.
func (p PrimeMeridian) InDegrees() float64 {
	return p.Longitude * p.AngularUnit.RadiansPerUnit / Degrees.RadiansPerUnit
}

// In returns the Greenwich offset expressed in the given angular unit.
func (p PrimeMeridian) In(unit AngularUnit) float64 {
	return p.Longitude * p.AngularUnit.RadiansPerUnit / unit.RadiansPerUnit
}

// EqualParams compares longitude and unit.
func (p PrimeMeridian) EqualParams(o PrimeMeridian) bool {
	return p.Longitude == o.Longitude && p.AngularUnit.EqualParams(o.AngularUnit)
}

// WKT returns the Well-Known Text of the prime meridian.
func (p PrimeMeridian) WKT() string {
	return fmt.Sprintf("PRIMEM[\"%s\", %s%s]", p.Name, formatNumber(p.Longitude), p.authorityWKT())
}

// Wgs84ConversionInfo holds the seven Bursa-Wolf parameters shifting a datum to WGS84.
// Translations are in metres, rotations in arc-seconds and scale in parts per million.
type Wgs84ConversionInfo struct {
	Dx, Dy, Dz float64
	Ex, Ey, Ez float64
	Ppm        float64
	AreaOfUse  string
}

// HasZeroValuesOnly reports whether the shift is the identity.
func (w Wgs84ConversionInfo) HasZeroValuesOnly() bool {
	return w.Dx == 0 && w.Dy == 0 && w.Dz == 0 && w.Ex == 0 && w.Ey == 0 && w.Ez == 0 && w.Ppm == 0
}

// AffineTransform returns [S, Ex·S, Ey·S, Ez·S, Dx, Dy, Dz] with the rotations in
// radians and S = 1 + ppm·1e-6.
func (w Wgs84ConversionInfo) AffineTransform() [7]float64 {
	rs := 1 + w.Ppm*0.000001
	return [7]float64{rs, w.Ex * secToRad * rs, w.Ey * secToRad * rs, w.Ez * secToRad * rs, w.Dx, w.Dy, w.Dz}
}

// Equal compares the seven parameters, ignoring the area of use.
func (w Wgs84ConversionInfo) Equal(o Wgs84ConversionInfo) bool {
	return w.Dx == o.Dx && w.Dy == o.Dy && w.Dz == o.Dz &&
		w.Ex == o.Ex && w.Ey == o.Ey && w.Ez == o.Ez && w.Ppm == o.Ppm
}

// WKT returns the TOWGS84 clause.
func (w Wgs84ConversionInfo) WKT() string {
	return fmt.Sprintf("TOWGS84[%s, %s, %s, %s, %s, %s, %s]",
		formatNumber(w.Dx), formatNumber(w.Dy), formatNumber(w.Dz),
		formatNumber(w.Ex), formatNumber(w.Ey), formatNumber(w.Ez), formatNumber(w.Ppm))
}

// String implements fmt.Stringer.
func (w Wgs84ConversionInfo) String() string {
	return w.WKT()
}

// DatumType classifies a datum.
type DatumType int

// Datum type codes.
const (
	HDMin                DatumType = 1000
	HDOther              DatumType = 1000
	HDClassic            DatumType = 1001
	HDGeocentric         DatumType = 1002
	HDMax                DatumType = 1999
	VDMin                DatumType = 2000
	VDOther              DatumType = 2000
	VDOrthometric        DatumType = 2001
	VDEllipsoidal        DatumType = 2002
	VDAltitudeBarometric DatumType = 2003
	VDNormal             DatumType = 2004
	VDGeoidModelDerived  DatumType = 2005
	VDDepth              DatumType = 2006
	VDMax                DatumType = 2999
	LDMin                DatumType = 10000
	LDMax                DatumType = 32767
)

// IsHorizontal reports whether t is in the horizontal datum range.
func (t DatumType) IsHorizontal() bool {
	return t >= HDMin && t <= HDMax
}

// HorizontalDatum anchors an ellipsoid to the Earth.
type HorizontalDatum struct {
	Info
	Ellipsoid Ellipsoid
	ToWGS84   *Wgs84ConversionInfo // nil when no shift is known
	Type      DatumType
}

// NewHorizontalDatum creates a horizontal datum.
func NewHorizontalDatum(name string, typ DatumType, ellipsoid Ellipsoid, toWGS84 *Wgs84ConversionInfo) *HorizontalDatum {
	return &HorizontalDatum{
		Info:      Info{Name: name},
		Ellipsoid: ellipsoid,
		ToWGS84:   toWGS84,
		Type:      typ,
	}
}

// DatumWGS84 returns the World Geodetic System 1984 datum.
func DatumWGS84() *HorizontalDatum {
	return &HorizontalDatum{
		Info:      Info{Name: "WGS_1984", Authority: "EPSG", AuthorityCode: 6326},
		Ellipsoid: EllipsoidWGS84,
		Type:      HDGeocentric,
	}
}

// DatumWGS72 returns the World Geodetic System 1972 datum with its WGS84 shift.
func DatumWGS72() *HorizontalDatum {
	return &HorizontalDatum{
		Info:      Info{Name: "World Geodetic System 1972", Authority: "EPSG", AuthorityCode: 6322},
		Ellipsoid: EllipsoidWGS72,
		ToWGS84:   &Wgs84ConversionInfo{Dz: 4.5, Ez: 0.554, Ppm: 0.219},
		Type:      HDGeocentric,
	}
}

// DatumETRF89 returns the European Terrestrial Reference Frame 1989,
// which is considered identical to WGS84.
func DatumETRF89() *HorizontalDatum {
	return &HorizontalDatum{
		Info:      Info{Name: "European Terrestrial Reference Frame 1989", Authority: "EPSG", AuthorityCode: 6258, Alias: "ETRF89"},
		Ellipsoid: EllipsoidGRS80,
		ToWGS84:   &Wgs84ConversionInfo{},
		Type:      HDGeocentric,
	}
}

// DatumED50 returns the European Datum 1950 with its mean WGS84 shift.
func DatumED50() *HorizontalDatum {
	return &HorizontalDatum{
		Info:      Info{Name: "European Datum 1950", Authority: "EPSG", AuthorityCode: 6230, Alias: "ED50"},
		Ellipsoid: EllipsoidInternational1924,
		ToWGS84:   &Wgs84ConversionInfo{Dx: -87, Dy: -98, Dz: -121},
		Type:      HDGeocentric,
	}
}

// HasShift reports whether the datum carries a non-identity WGS84 shift.
func (d *HorizontalDatum) HasShift() bool {
	return d.ToWGS84 != nil && !d.ToWGS84.HasZeroValuesOnly()
}

// EqualParams compares ellipsoid, WGS84 shift and datum type.
func (d *HorizontalDatum) EqualParams(o *HorizontalDatum) bool {
	if d == nil || o == nil {
		return d == o
	}
	if (d.ToWGS84 == nil) != (o.ToWGS84 == nil) {
		return false
	}
	if d.ToWGS84 != nil && !d.ToWGS84.Equal(*o.ToWGS84) {
		return false
	}
	return d.Ellipsoid.EqualParams(o.Ellipsoid) && d.Type == o.Type
}

// WKT returns the Well-Known Text of the datum.
func (d *HorizontalDatum) WKT() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DATUM[\"%s\", %s", d.Name, d.Ellipsoid.WKT())
	if d.ToWGS84 != nil {
		sb.WriteString(", ")
		sb.WriteString(d.ToWGS84.WKT())
	}
	sb.WriteString(d.authorityWKT())
	sb.WriteString("]")
	return sb.String()
}
