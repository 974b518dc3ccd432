package geometry

import (
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const WGS84 = "EPSG:4326"

// Well-known shorthands. Anything else must be a PROJ.4 string or ESRI/OGC WKT
// (the content of a shapefile .prj).
var knownCRS = map[string]string{
	"EPSG:4326": "+proj=longlat +datum=WGS84 +no_defs",
	"EPSG:4269": "+proj=longlat +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +no_defs",
	"EPSG:3857": "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +no_defs",
}

// ResolveCRS expands an EPSG shorthand; other definitions are returned trimmed.
// An empty definition resolves to WGS84.
func ResolveCRS(def string) string {
	def = strings.TrimSpace(def)
	if def == "" {
		def = WGS84
	}
	if full, ok := knownCRS[strings.ToUpper(def)]; ok {
		return full
	}
	return def
}

// Reprojector transforms geometries between two coordinate reference systems.
type Reprojector struct {
	transform proj.Transformer
}

// NewReprojector builds a transform from src to dst. When both resolve to the
// same definition the reprojector is the identity.
func NewReprojector(src, dst string) (*Reprojector, error) {
	srcDef, dstDef := ResolveCRS(src), ResolveCRS(dst)
	if srcDef == dstDef {
		return &Reprojector{}, nil
	}

	srcSR, err := proj.Parse(srcDef)
	if err != nil {
		return nil, eris.Wrapf(err, "geometry: parse source crs %q", src)
	}
	dstSR, err := proj.Parse(dstDef)
	if err != nil {
		return nil, eris.Wrapf(err, "geometry: parse target crs %q", dst)
	}

	tr, err := srcSR.NewTransform(dstSR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: build transform")
	}

	return &Reprojector{transform: tr}, nil
}

// Identity reports whether Reproject is a no-op.
func (r *Reprojector) Identity() bool { return r.transform == nil }

// Reproject returns a transformed copy of g; g itself is not modified.
func (r *Reprojector) Reproject(g geom.T) (geom.T, error) {
	if r.transform == nil || g == nil {
		return g, nil
	}

	var out geom.T
	switch t := g.(type) {
	case *geom.Point:
		out = t.Clone()
	case *geom.MultiPoint:
		out = t.Clone()
	case *geom.LineString:
		out = t.Clone()
	case *geom.MultiLineString:
		out = t.Clone()
	case *geom.Polygon:
		out = t.Clone()
	case *geom.MultiPolygon:
		out = t.Clone()
	default:
		return nil, eris.Errorf("geometry: cannot reproject %T", g)
	}

	// FlatCoords exposes the clone's backing slice, so transforming in place is safe.
	flat := out.FlatCoords()
	stride := out.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		x, y, err := r.transform(flat[i], flat[i+1])
		if err != nil {
			return nil, eris.Wrapf(err, "geometry: transform coordinate %d", i/stride)
		}
		flat[i], flat[i+1] = x, y
	}

	return out, nil
}
