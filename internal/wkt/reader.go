package wkt

import (
	"fmt"
	"strings"

	"github.com/jobrunner/meridian/internal/domain"
)

// Parse reads a coordinate system definition: GEOGCS, PROJCS or GEOCCS.
// VERT_CS, COMPD_CS, FITTED_CS and LOCAL_CS are recognised but unsupported.
func Parse(text string) (domain.CoordinateSystem, error) {
	n, err := parseTree(text)
	if err != nil {
		return nil, err
	}
	return coordinateSystem(n)
}

// ParseEntity reads any supported element. The result is one of
// domain.CoordinateSystem, *domain.HorizontalDatum, domain.Ellipsoid,
// domain.PrimeMeridian, domain.AngularUnit or domain.LinearUnit.
func ParseEntity(text string) (interface{}, error) {
	n, err := parseTree(text)
	if err != nil {
		return nil, err
	}
	switch n.keyword {
	case "UNIT":
		return unit(n)
	case "SPHEROID", "ELLIPSOID":
		return ellipsoid(n)
	case "DATUM":
		return datum(n)
	case "PRIMEM":
		return primeMeridian(n, domain.Degrees)
	}
	return coordinateSystem(n)
}

func coordinateSystem(n *node) (domain.CoordinateSystem, error) {
	switch n.keyword {
	case "GEOGCS":
		return geographic(n)
	case "PROJCS":
		return projected(n)
	case "GEOCCS":
		return geocentric(n)
	case "VERT_CS", "COMPD_CS", "FITTED_CS", "LOCAL_CS":
		return nil, &domain.UnsupportedOperationError{
			Operation: "parse",
			Message:   fmt.Sprintf("%s coordinate system is not supported", n.keyword),
		}
	}
	return nil, &SyntaxError{Offset: n.offset, Token: n.keyword, Message: "not a recognised coordinate system"}
}

func info(n *node) (domain.Info, error) {
	name, err := n.str(0)
	if err != nil {
		return domain.Info{}, err
	}
	authority, code, err := n.authority()
	if err != nil {
		return domain.Info{}, err
	}
	return domain.Info{Name: name, Authority: authority, AuthorityCode: code}, nil
}

// unit reads UNIT["name", factor]. Units whose name reads like an angle
// become angular units, everything else is linear.
func unit(n *node) (interface{}, error) {
	in, err := info(n)
	if err != nil {
		return nil, err
	}
	factor, err := n.num(1)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(in.Name)
	for _, angular := range []string{"degree", "radian", "grad", "gon", "arc", "minute", "second"} {
		if strings.Contains(name, angular) {
			return domain.AngularUnit{Info: in, RadiansPerUnit: factor}, nil
		}
	}
	return domain.LinearUnit{Info: in, MetersPerUnit: factor}, nil
}

func angularUnit(n *node) (domain.AngularUnit, error) {
	in, err := info(n)
	if err != nil {
		return domain.AngularUnit{}, err
	}
	factor, err := n.num(1)
	if err != nil {
		return domain.AngularUnit{}, err
	}
	if factor <= 0 {
		return domain.AngularUnit{}, &domain.ConfigurationError{Parameter: "UNIT", Message: "angular unit factor must be positive"}
	}
	return domain.AngularUnit{Info: in, RadiansPerUnit: factor}, nil
}

func linearUnit(n *node) (domain.LinearUnit, error) {
	in, err := info(n)
	if err != nil {
		return domain.LinearUnit{}, err
	}
	factor, err := n.num(1)
	if err != nil {
		return domain.LinearUnit{}, err
	}
	if factor <= 0 {
		return domain.LinearUnit{}, &domain.ConfigurationError{Parameter: "UNIT", Message: "linear unit factor must be positive"}
	}
	return domain.LinearUnit{Info: in, MetersPerUnit: factor}, nil
}

// ellipsoid reads SPHEROID["name", a, ivf]. The inverse flattening is
// definitive and the axes are in metres.
func ellipsoid(n *node) (domain.Ellipsoid, error) {
	in, err := info(n)
	if err != nil {
		return domain.Ellipsoid{}, err
	}
	a, err := n.num(1)
	if err != nil {
		return domain.Ellipsoid{}, err
	}
	ivf, err := n.num(2)
	if err != nil {
		return domain.Ellipsoid{}, err
	}
	if a <= 0 {
		return domain.Ellipsoid{}, &domain.ConfigurationError{Parameter: "SPHEROID", Message: "semi-major axis must be positive"}
	}
	return domain.NewEllipsoid(a, 0, ivf, true, domain.Metre, in), nil
}

// toWGS84 reads 3, 6 or 7 Bursa-Wolf parameters. Missing ones are zero.
func toWGS84(n *node) (*domain.Wgs84ConversionInfo, error) {
	if len(n.args) != 3 && len(n.args) != 6 && len(n.args) != 7 {
		return nil, &SyntaxError{Offset: n.offset, Token: n.keyword, Message: fmt.Sprintf("TOWGS84 takes 3, 6 or 7 values, got %d", len(n.args))}
	}
	v := make([]float64, 7)
	for i := range n.args {
		f, err := n.num(i)
		if err != nil {
			return nil, err
		}
		v[i] = f
	}
	return &domain.Wgs84ConversionInfo{Dx: v[0], Dy: v[1], Dz: v[2], Ex: v[3], Ey: v[4], Ez: v[5], Ppm: v[6]}, nil
}

func datum(n *node) (*domain.HorizontalDatum, error) {
	in, err := info(n)
	if err != nil {
		return nil, err
	}
	sn, err := n.childAt(1, "SPHEROID", "ELLIPSOID")
	if err != nil {
		return nil, err
	}
	e, err := ellipsoid(sn)
	if err != nil {
		return nil, err
	}
	var shift *domain.Wgs84ConversionInfo
	if tn := n.child("TOWGS84"); tn != nil {
		if shift, err = toWGS84(tn); err != nil {
			return nil, err
		}
	}
	d := domain.NewHorizontalDatum(in.Name, domain.HDGeocentric, e, shift)
	d.Info = in
	return d, nil
}

// primeMeridian reads PRIMEM["name", longitude]. The longitude is in the
// angular unit of the enclosing system.
func primeMeridian(n *node, u domain.AngularUnit) (domain.PrimeMeridian, error) {
	in, err := info(n)
	if err != nil {
		return domain.PrimeMeridian{}, err
	}
	lon, err := n.num(1)
	if err != nil {
		return domain.PrimeMeridian{}, err
	}
	return domain.PrimeMeridian{Info: in, Longitude: lon, AngularUnit: u}, nil
}

func axes(n *node) ([]domain.AxisInfo, error) {
	var out []domain.AxisInfo
	for _, c := range n.children(1) {
		if c.keyword != "AXIS" {
			continue
		}
		name, err := c.str(0)
		if err != nil {
			return nil, err
		}
		dir, err := c.word(1)
		if err != nil {
			return nil, err
		}
		orientation, err := domain.ParseAxisOrientation(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.AxisInfo{Name: name, Orientation: orientation})
	}
	return out, nil
}

// datumFrame reads the DATUM, PRIMEM and UNIT shared by GEOGCS and GEOCCS.
// The unit is read first since the prime meridian is expressed in it.
func datumFrame(n *node) (*domain.HorizontalDatum, *node, *node, error) {
	dn, err := n.childAt(1, "DATUM")
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := datum(dn)
	if err != nil {
		return nil, nil, nil, err
	}
	pn, err := n.childAt(2, "PRIMEM")
	if err != nil {
		return nil, nil, nil, err
	}
	un, err := n.childAt(3, "UNIT")
	if err != nil {
		return nil, nil, nil, err
	}
	return d, pn, un, nil
}

func geographic(n *node) (*domain.GeographicCS, error) {
	in, err := info(n)
	if err != nil {
		return nil, err
	}
	d, pn, un, err := datumFrame(n)
	if err != nil {
		return nil, err
	}
	u, err := angularUnit(un)
	if err != nil {
		return nil, err
	}
	pm, err := primeMeridian(pn, u)
	if err != nil {
		return nil, err
	}
	ax, err := axes(n)
	if err != nil {
		return nil, err
	}
	if len(ax) == 0 {
		ax = domain.DefaultGeographicAxes
	}
	return domain.NewGeographicCS(in, u, d, pm, ax)
}

func geocentric(n *node) (*domain.GeocentricCS, error) {
	in, err := info(n)
	if err != nil {
		return nil, err
	}
	d, pn, un, err := datumFrame(n)
	if err != nil {
		return nil, err
	}
	u, err := linearUnit(un)
	if err != nil {
		return nil, err
	}
	pm, err := primeMeridian(pn, domain.Degrees)
	if err != nil {
		return nil, err
	}
	ax, err := axes(n)
	if err != nil {
		return nil, err
	}
	if len(ax) == 0 {
		ax = domain.DefaultGeocentricAxes
	}
	return domain.NewGeocentricCS(in, d, u, pm, ax)
}

func projected(n *node) (*domain.ProjectedCS, error) {
	in, err := info(n)
	if err != nil {
		return nil, err
	}
	gn, err := n.childAt(1, "GEOGCS")
	if err != nil {
		return nil, err
	}
	gcs, err := geographic(gn)
	if err != nil {
		return nil, err
	}

	prj := n.child("PROJECTION")
	if prj == nil {
		return nil, &SyntaxError{Offset: n.offset, Token: n.keyword, Message: "PROJCS requires a PROJECTION"}
	}
	className, err := prj.str(0)
	if err != nil {
		return nil, err
	}
	var params []domain.ProjectionParameter
	var un *node
	for _, c := range n.children(2) {
		switch c.keyword {
		case "PARAMETER":
			name, err := c.str(0)
			if err != nil {
				return nil, err
			}
			v, err := c.num(1)
			if err != nil {
				return nil, err
			}
			params = append(params, domain.ProjectionParameter{Name: name, Value: v})
		case "UNIT":
			if un == nil {
				un = c
			}
		}
	}
	if un == nil {
		return nil, &SyntaxError{Offset: n.offset, Token: n.keyword, Message: "PROJCS requires a UNIT"}
	}
	u, err := linearUnit(un)
	if err != nil {
		return nil, err
	}

	projection := domain.NewProjection(className, className, params)
	if projection.Authority, projection.AuthorityCode, err = prj.authority(); err != nil {
		return nil, err
	}

	ax, err := axes(n)
	if err != nil {
		return nil, err
	}
	if len(ax) == 0 {
		ax = domain.DefaultProjectedAxes
	}
	return domain.NewProjectedCS(in, gcs, projection, u, ax)
}
