// Package geospatial holds coordinate-system and planar geometry helpers
// shared by the ingestion pipeline.
package geospatial

import (
	"regexp"
	"strconv"
	"strings"
)

// WGS84 is the CRS every dataset is normalized to.
const WGS84 = "EPSG:4326"

var authorityCode = regexp.MustCompile(`^(?:EPSG|epsg):[0-9]{4,5}$`)

// IsAuthorityCode reports whether s names a CRS by EPSG code, e.g.
// "EPSG:25832". Only the authority prefix is case-insensitive, and only in
// its all-upper or all-lower form.
func IsAuthorityCode(s string) bool {
	return authorityCode.MatchString(s)
}

// EPSGCode extracts the numeric code from an authority code.
func EPSGCode(s string) (int, bool) {
	if !IsAuthorityCode(s) {
		return 0, false
	}
	code, err := strconv.Atoi(s[len("EPSG:"):])
	if err != nil {
		return 0, false
	}
	return code, true
}

// SameCRS reports whether a and b are authority codes for the same CRS.
func SameCRS(a, b string) bool {
	ca, okA := EPSGCode(a)
	cb, okB := EPSGCode(b)
	return okA && okB && ca == cb
}

// CanonicalName maps the named-CRS spellings found in GeoJSON "crs" members
// onto "EPSG:<code>". Unrecognized names are returned trimmed but unchanged.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	upper := strings.ToUpper(name)
	switch {
	case upper == "URN:OGC:DEF:CRS:OGC:1.3:CRS84", upper == "URN:OGC:DEF:CRS:OGC::CRS84", upper == "CRS84":
		return WGS84
	case strings.HasPrefix(upper, "URN:OGC:DEF:CRS:EPSG:"):
		// urn:ogc:def:crs:EPSG::25832 and urn:ogc:def:crs:EPSG:6.6:25832
		code := name[strings.LastIndex(name, ":")+1:]
		if candidate := "EPSG:" + code; IsAuthorityCode(candidate) {
			return candidate
		}
	case strings.HasPrefix(upper, "EPSG:"):
		if candidate := "EPSG:" + name[len("EPSG:"):]; IsAuthorityCode(candidate) {
			return candidate
		}
	}
	return name
}
