package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Info holds the descriptive metadata shared by every coordinate system entity.
// None of it takes part in EqualParams.
type Info struct {
	Name          string
	Authority     string
	AuthorityCode int64
	Alias         string
	Abbreviation  string
	Remarks       string
}

// authorityWKT renders the AUTHORITY clause, or "" when no authority is set.
func (i Info) authorityWKT() string {
	if i.Authority == "" || i.AuthorityCode <= 0 {
		return ""
	}
	return fmt.Sprintf(", AUTHORITY[\"%s\", \"%d\"]", i.Authority, i.AuthorityCode)
}

// AngularUnit is a unit of angle measure.
type AngularUnit struct {
	Info
	RadiansPerUnit float64
}

// Well-known angular units.
var (
	Degrees = AngularUnit{
		Info:           Info{Name: "degree", Authority: "EPSG", AuthorityCode: 9102, Alias: "deg", Abbreviation: "deg"},
		RadiansPerUnit: 0.017453292519943295,
	}
	Radian = AngularUnit{
		Info:           Info{Name: "radian", Authority: "EPSG", AuthorityCode: 9101, Alias: "rad", Abbreviation: "rad"},
		RadiansPerUnit: 1,
	}
	Grad = AngularUnit{
		Info:           Info{Name: "grad", Authority: "EPSG", AuthorityCode: 9105, Alias: "gr", Abbreviation: "gr"},
		RadiansPerUnit: math.Pi / 200,
	}
	Gon = AngularUnit{
		Info:           Info{Name: "gon", Authority: "EPSG", AuthorityCode: 9106, Alias: "g", Abbreviation: "g"},
		RadiansPerUnit: math.Pi / 200,
	}
)

// EqualParams reports whether both units convert to radians identically.
func (u AngularUnit) EqualParams(o AngularUnit) bool {
	return u.RadiansPerUnit == o.RadiansPerUnit
}

// WKT returns the Well-Known Text of the unit.
func (u AngularUnit) WKT() string {
	return fmt.Sprintf("UNIT[\"%s\", %s%s]", u.Name, formatNumber(u.RadiansPerUnit), u.authorityWKT())
}

// LinearUnit is a unit of length.
type LinearUnit struct {
	Info
	MetersPerUnit float64
}

// Well-known linear units.
var (
	Metre = LinearUnit{
		Info:          Info{Name: "metre", Authority: "EPSG", AuthorityCode: 9001, Alias: "m", Abbreviation: "m"},
		MetersPerUnit: 1,
	}
	Foot = LinearUnit{
		Info:          Info{Name: "foot", Authority: "EPSG", AuthorityCode: 9002, Alias: "ft", Abbreviation: "ft"},
		MetersPerUnit: 0.3048,
	}
	USSurveyFoot = LinearUnit{
		Info:          Info{Name: "US survey foot", Authority: "EPSG", AuthorityCode: 9003, Alias: "American foot", Abbreviation: "ftUS"},
		MetersPerUnit: 0.304800609601219,
	}
	NauticalMile = LinearUnit{
		Info:          Info{Name: "nautical mile", Authority: "EPSG", AuthorityCode: 9030, Alias: "NM", Abbreviation: "NM"},
		MetersPerUnit: 1852,
	}
	ClarkesFoot = LinearUnit{
		Info:          Info{Name: "Clarke's foot", Authority: "EPSG", AuthorityCode: 9005, Alias: "Clarke's foot", Abbreviation: "ftCla"},
		MetersPerUnit: 0.3047972654,
	}
)

// EqualParams reports whether both units convert to metres identically.
func (u LinearUnit) EqualParams(o LinearUnit) bool {
	return u.MetersPerUnit == o.MetersPerUnit
}

// WKT returns the Well-Known Text of the unit.
func (u LinearUnit) WKT() string {
	return fmt.Sprintf("UNIT[\"%s\", %s%s]", u.Name, formatNumber(u.MetersPerUnit), u.authorityWKT())
}

// formatNumber prints a float with the shortest representation that round-trips.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
