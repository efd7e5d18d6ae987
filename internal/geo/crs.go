package geo

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	UTM "github.com/im7mortal/UTM"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ErrCRSInitialization is matched by every *CRSInitializationError.
var ErrCRSInitialization = errors.New("cannot initialize reprojection")

// CRSInitializationError reports a source reference system that cannot be
// reprojected to WGS84.
type CRSInitializationError struct {
	Descriptor string
	Reason     string
}

func (e *CRSInitializationError) Error() string {
	return fmt.Sprintf("cannot reproject %q to WGS84: %s", e.Descriptor, e.Reason)
}

// Is lets errors.Is match ErrCRSInitialization.
func (e *CRSInitializationError) Is(target error) bool {
	return target == ErrCRSInitialization
}

// EPSG codes with special handling.
const (
	EPSGWGS84       = 4326
	EPSGWebMercator = 3857
)

// CRSTransform reprojects source coordinates to WGS84.
//
// A nil *CRSTransform means the source is already WGS84 and coordinates pass
// through unchanged. Values are immutable and safe for concurrent use.
type CRSTransform struct {
	code    int
	toWGS84 func(orb.Point) (orb.Point, error)
}

// EPSG returns the source EPSG code (4326 for a nil transform).
func (c *CRSTransform) EPSG() int {
	if c == nil {
		return EPSGWGS84
	}
	return c.code
}

// ToWGS84 reprojects p (X = easting, Y = northing) to orb.Point{lon, lat}.
func (c *CRSTransform) ToWGS84(p orb.Point) (orb.Point, error) {
	if c == nil {
		return p, nil
	}
	return c.toWGS84(p)
}

var (
	epsgPattern      = regexp.MustCompile(`(?i)^epsg:\s*(\d+)$`)
	authorityPattern = regexp.MustCompile(`AUTHORITY\s*\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)
)

// BuildReprojection returns the transform from the described source system to
// WGS84.
//
// Accepted descriptors:
//   - "EPSG:<code>" (case-insensitive prefix)
//   - "WGS84", "CRS84"
//   - WKT whose outermost AUTHORITY["EPSG","<code>"] names a supported code
//
// For EPSG:4326 the result is nil, meaning no reprojection is needed.
func BuildReprojection(descriptor string) (*CRSTransform, error) {
	code, err := ParseEPSG(descriptor)
	if err != nil {
		return nil, err
	}
	return ForEPSG(code)
}

// ParseEPSG extracts the EPSG code from a CRS descriptor.
func ParseEPSG(descriptor string) (int, error) {
	d := strings.TrimSpace(descriptor)
	if d == "" {
		return 0, &CRSInitializationError{Descriptor: descriptor, Reason: "empty descriptor"}
	}

	switch strings.ToUpper(d) {
	case "WGS84", "WGS 84", "CRS84", "OGC:CRS84":
		return EPSGWGS84, nil
	}

	if m := epsgPattern.FindStringSubmatch(d); m != nil {
		return atoiCode(descriptor, m[1])
	}

	// The outermost AUTHORITY of a WKT string is its last one.
	if ms := authorityPattern.FindAllStringSubmatch(d, -1); len(ms) > 0 {
		return atoiCode(descriptor, ms[len(ms)-1][1])
	}

	return 0, &CRSInitializationError{Descriptor: descriptor, Reason: "unrecognized descriptor"}
}

func atoiCode(descriptor, s string) (int, error) {
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, &CRSInitializationError{Descriptor: descriptor, Reason: "invalid EPSG code"}
	}
	return code, nil
}

// ForEPSG returns the reprojection for a numeric EPSG code.
func ForEPSG(code int) (*CRSTransform, error) {
	switch {
	case code == EPSGWGS84:
		return nil, nil
	case code == EPSGWebMercator || code == 900913 || code == 3785:
		return &CRSTransform{code: code, toWGS84: mercatorToWGS84}, nil
	case code >= 32601 && code <= 32660:
		return utmTransform(code, code-32600, true), nil
	case code >= 32701 && code <= 32760:
		return utmTransform(code, code-32700, false), nil
	}
	return nil, &CRSInitializationError{
		Descriptor: "EPSG:" + strconv.Itoa(code),
		Reason:     "unsupported reference system",
	}
}

func mercatorToWGS84(p orb.Point) (orb.Point, error) {
	return project.Mercator.ToWGS84(p), nil
}

func utmTransform(code, zone int, northern bool) *CRSTransform {
	return &CRSTransform{
		code: code,
		toWGS84: func(p orb.Point) (orb.Point, error) {
			lat, lon, err := UTM.ToLatLon(p.X(), p.Y(), zone, "", northern)
			if err != nil {
				return orb.Point{}, fmt.Errorf("utm zone %d: %w", zone, err)
			}
			return orb.Point{lon, lat}, nil
		},
	}
}
