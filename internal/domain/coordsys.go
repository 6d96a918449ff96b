package domain

import (
	"fmt"
	"strings"
)

// CSKind tags the coordinate system variants.
type CSKind int

// Coordinate system variants.
const (
	KindGeographic CSKind = iota + 1
	KindProjected
	KindGeocentric
)

// String returns the variant name.
func (k CSKind) String() string {
	switch k {
	case KindGeographic:
		return "geographic"
	case KindProjected:
		return "projected"
	case KindGeocentric:
		return "geocentric"
	default:
		return "unknown"
	}
}

// CoordinateSystem is the closed set {*GeographicCS, *ProjectedCS, *GeocentricCS}.
// Callers switch on the concrete type; no other package can add a variant.
type CoordinateSystem interface {
	// Metadata returns name and authority.
	Metadata() Info
	// Kind returns the variant tag.
	Kind() CSKind
	// Dimension returns the number of axes.
	Dimension() int
	// Axes returns a copy of the axis list.
	Axes() []AxisInfo
	// EqualParams compares the defining parameters, ignoring metadata.
	EqualParams(other CoordinateSystem) bool
	// WKT returns the Well-Known Text.
	WKT() string

	coordinateSystem()
}

// Default axes used when a definition does not list any.
var (
	DefaultGeographicAxes = []AxisInfo{{Name: "Lon", Orientation: AxisEast}, {Name: "Lat", Orientation: AxisNorth}}
	DefaultProjectedAxes  = []AxisInfo{{Name: "X", Orientation: AxisEast}, {Name: "Y", Orientation: AxisNorth}}
	DefaultGeocentricAxes = []AxisInfo{
		{Name: "X", Orientation: AxisOther},
		{Name: "Y", Orientation: AxisEast},
		{Name: "Z", Orientation: AxisNorth},
	}
)

type csBase struct {
	info Info
	axes []AxisInfo
}

func newBase(info Info, axes []AxisInfo, want int) (csBase, error) {
	if len(axes) != want {
		return csBase{}, &ConfigurationError{
			Parameter: "axes",
			Message:   fmt.Sprintf("%s requires exactly %d axes, got %d", info.Name, want, len(axes)),
		}
	}
	return csBase{info: info, axes: append([]AxisInfo(nil), axes...)}, nil
}

func (b *csBase) Metadata() Info { return b.info }

func (b *csBase) Dimension() int { return len(b.axes) }

func (b *csBase) Axes() []AxisInfo { return append([]AxisInfo(nil), b.axes...) }

func (b *csBase) coordinateSystem() {}

// SRID returns the EPSG code of the system, or 0 if it has none.
func SRID(cs CoordinateSystem) int {
	info := cs.Metadata()
	if strings.EqualFold(info.Authority, "EPSG") {
		return int(info.AuthorityCode)
	}
	return 0
}

func sameOrientations(a, b []AxisInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Orientation != b[i].Orientation {
			return false
		}
	}
	return true
}

func isDefaultAxes(axes, defaults []AxisInfo) bool {
	if len(axes) != len(defaults) {
		return false
	}
	for i := range axes {
		if axes[i] != defaults[i] {
			return false
		}
	}
	return true
}

func axesWKT(sb *strings.Builder, axes, defaults []AxisInfo) {
	if isDefaultAxes(axes, defaults) {
		return
	}
	for _, a := range axes {
		sb.WriteString(", ")
		sb.WriteString(a.WKT())
	}
}

// GeographicCS is a longitude/latitude system on a horizontal datum.
type GeographicCS struct {
	csBase
	AngularUnit   AngularUnit
	Datum         *HorizontalDatum
	PrimeMeridian PrimeMeridian
}

// NewGeographicCS creates a geographic coordinate system. It requires exactly two axes.
func NewGeographicCS(info Info, unit AngularUnit, datum *HorizontalDatum, pm PrimeMeridian, axes []AxisInfo) (*GeographicCS, error) {
	if datum == nil {
		return nil, &ConfigurationError{Parameter: "datum", Message: "geographic coordinate system requires a datum"}
	}
	base, err := newBase(info, axes, 2)
	if err != nil {
		return nil, err
	}
	return &GeographicCS{csBase: base, AngularUnit: unit, Datum: datum, PrimeMeridian: pm}, nil
}

func epsgGeographic(name string, code int64, datum *HorizontalDatum) *GeographicCS {
	cs, _ := NewGeographicCS(
		Info{Name: name, Authority: "EPSG", AuthorityCode: code},
		Degrees, datum, Greenwich, DefaultGeographicAxes,
	)
	return cs
}

// WGS84 returns the WGS 84 geographic system (EPSG:4326).
func WGS84() *GeographicCS {
	return epsgGeographic("WGS 84", SRIDWGS84, DatumWGS84())
}

// ETRS89 returns the ETRS89 geographic system (EPSG:4258).
func ETRS89() *GeographicCS {
	return epsgGeographic("ETRS89", SRIDETRS89, DatumETRF89())
}

// ED50 returns the European Datum 1950 geographic system (EPSG:4230).
func ED50() *GeographicCS {
	return epsgGeographic("ED50", SRIDED50, DatumED50())
}

// WGS72 returns the WGS 72 geographic system (EPSG:4322).
func WGS72() *GeographicCS {
	return epsgGeographic("WGS 72", SRIDWGS72, DatumWGS72())
}

// Kind implements CoordinateSystem.
func (g *GeographicCS) Kind() CSKind { return KindGeographic }

// EqualParams implements CoordinateSystem.
func (g *GeographicCS) EqualParams(other CoordinateSystem) bool {
	o, ok := other.(*GeographicCS)
	if !ok || o == nil {
		return false
	}
	return sameOrientations(g.axes, o.axes) &&
		g.AngularUnit.EqualParams(o.AngularUnit) &&
		g.Datum.EqualParams(o.Datum) &&
		g.PrimeMeridian.EqualParams(o.PrimeMeridian)
}

// WKT implements CoordinateSystem.
func (g *GeographicCS) WKT() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GEOGCS[\"%s\", %s, %s, %s", g.info.Name, g.Datum.WKT(), g.PrimeMeridian.WKT(), g.AngularUnit.WKT())
	axesWKT(&sb, g.axes, DefaultGeographicAxes)
	sb.WriteString(g.info.authorityWKT())
	sb.WriteString("]")
	return sb.String()
}

// ProjectedCS is a planar system defined by a projection of a geographic system.
type ProjectedCS struct {
	csBase
	Geographic *GeographicCS
	LinearUnit LinearUnit
	Projection *Projection
}

// NewProjectedCS creates a projected coordinate system. It requires exactly two axes.
func NewProjectedCS(info Info, gcs *GeographicCS, projection *Projection, unit LinearUnit, axes []AxisInfo) (*ProjectedCS, error) {
	if gcs == nil {
		return nil, &ConfigurationError{Parameter: "geogcs", Message: "projected coordinate system requires a geographic coordinate system"}
	}
	if projection == nil {
		return nil, &ConfigurationError{Parameter: "projection", Message: "projected coordinate system requires a projection"}
	}
	base, err := newBase(info, axes, 2)
	if err != nil {
		return nil, err
	}
	return &ProjectedCS{csBase: base, Geographic: gcs, LinearUnit: unit, Projection: projection}, nil
}

// WGS84UTM returns the WGS 84 / UTM system for a zone (1-60) and hemisphere.
func WGS84UTM(zone int, north bool) (*ProjectedCS, error) {
	if zone < 1 || zone > 60 {
		return nil, &ConfigurationError{Parameter: "zone", Message: fmt.Sprintf("UTM zone %d out of range [1, 60]", zone)}
	}
	hemisphere, code, fn := "S", 32700+zone, 10000000.0
	if north {
		hemisphere, code, fn = "N", 32600+zone, 0
	}
	projection := NewProjection("Transverse_Mercator", "Transverse_Mercator", []ProjectionParameter{
		{Name: "latitude_of_origin", Value: 0},
		{Name: "central_meridian", Value: float64(zone*6 - 183)},
		{Name: "scale_factor", Value: 0.9996},
		{Name: "false_easting", Value: 500000},
		{Name: "false_northing", Value: fn},
	})
	projection.Authority, projection.AuthorityCode = "EPSG", 9807
	return NewProjectedCS(
		Info{Name: fmt.Sprintf("WGS 84 / UTM zone %d%s", zone, hemisphere), Authority: "EPSG", AuthorityCode: int64(code)},
		WGS84(), projection, Metre,
		[]AxisInfo{{Name: "East", Orientation: AxisEast}, {Name: "North", Orientation: AxisNorth}},
	)
}

// WorldMercator returns WGS 84 / World Mercator (EPSG:3395).
func WorldMercator() *ProjectedCS {
	projection := NewProjection("Mercator_1SP", "Mercator_1SP", []ProjectionParameter{
		{Name: "latitude_of_origin", Value: 0},
		{Name: "central_meridian", Value: 0},
		{Name: "scale_factor", Value: 1},
		{Name: "false_easting", Value: 0},
		{Name: "false_northing", Value: 0},
	})
	projection.Authority, projection.AuthorityCode = "EPSG", 9804
	cs, _ := NewProjectedCS(
		Info{Name: "WGS 84 / World Mercator", Authority: "EPSG", AuthorityCode: SRIDWorldMercator},
		WGS84(), projection, Metre,
		[]AxisInfo{{Name: "Easting", Orientation: AxisEast}, {Name: "Northing", Orientation: AxisNorth}},
	)
	return cs
}

// Kind implements CoordinateSystem.
func (p *ProjectedCS) Kind() CSKind { return KindProjected }

// EqualParams implements CoordinateSystem.
func (p *ProjectedCS) EqualParams(other CoordinateSystem) bool {
	o, ok := other.(*ProjectedCS)
	if !ok || o == nil {
		return false
	}
	return sameOrientations(p.axes, o.axes) &&
		p.Geographic.EqualParams(o.Geographic) &&
		p.LinearUnit.EqualParams(o.LinearUnit) &&
		p.Projection.EqualParams(o.Projection)
}

// WKT implements CoordinateSystem.
func (p *ProjectedCS) WKT() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PROJCS[\"%s\", %s, %s", p.info.Name, p.Geographic.WKT(), p.Projection.WKT())
	for _, pp := range p.Projection.Parameters {
		sb.WriteString(", ")
		sb.WriteString(pp.WKT())
	}
	sb.WriteString(", ")
	sb.WriteString(p.LinearUnit.WKT())
	axesWKT(&sb, p.axes, DefaultProjectedAxes)
	sb.WriteString(p.info.authorityWKT())
	sb.WriteString("]")
	return sb.String()
}

// GeocentricCS is an Earth-centred cartesian system.
type GeocentricCS struct {
	csBase
	Datum         *HorizontalDatum
	LinearUnit    LinearUnit
	PrimeMeridian PrimeMeridian
}

// NewGeocentricCS creates a geocentric coordinate system. It requires exactly three axes.
func NewGeocentricCS(info Info, datum *HorizontalDatum, unit LinearUnit, pm PrimeMeridian, axes []AxisInfo) (*GeocentricCS, error) {
	if datum == nil {
		return nil, &ConfigurationError{Parameter: "datum", Message: "geocentric coordinate system requires a datum"}
	}
	base, err := newBase(info, axes, 3)
	if err != nil {
		return nil, err
	}
	return &GeocentricCS{csBase: base, Datum: datum, LinearUnit: unit, PrimeMeridian: pm}, nil
}

// WGS84Geocentric returns the WGS 84 geocentric system (EPSG:4978).
func WGS84Geocentric() *GeocentricCS {
	cs, _ := NewGeocentricCS(
		Info{Name: "WGS 84", Authority: "EPSG", AuthorityCode: 4978},
		DatumWGS84(), Metre, Greenwich, DefaultGeocentricAxes,
	)
	return cs
}

// Kind implements CoordinateSystem.
func (g *GeocentricCS) Kind() CSKind { return KindGeocentric }

// EqualParams implements CoordinateSystem.
func (g *GeocentricCS) EqualParams(other CoordinateSystem) bool {
	o, ok := other.(*GeocentricCS)
	if !ok || o == nil {
		return false
	}
	return sameOrientations(g.axes, o.axes) &&
		g.Datum.EqualParams(o.Datum) &&
		g.LinearUnit.EqualParams(o.LinearUnit) &&
		g.PrimeMeridian.EqualParams(o.PrimeMeridian)
}

// WKT implements CoordinateSystem.
func (g *GeocentricCS) WKT() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "GEOCCS[\"%s\", %s, %s, %s", g.info.Name, g.Datum.WKT(), g.PrimeMeridian.WKT(), g.LinearUnit.WKT())
	axesWKT(&sb, g.axes, DefaultGeocentricAxes)
	sb.WriteString(g.info.authorityWKT())
	sb.WriteString("]")
	return sb.String()
}
