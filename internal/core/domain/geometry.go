package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
)

// GeoJSON geometry type tags accepted by the pipeline.
const (
	TypePoint           = "Point"
	TypeMultiPoint      = "MultiPoint"
	TypeLineString      = "LineString"
	TypeMultiLineString = "MultiLineString"
	TypePolygon         = "Polygon"
	TypeMultiPolygon    = "MultiPolygon"
)

type geometryDoc struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// DecodeGeometry parses a GeoJSON geometry object. The nesting depth of
// "coordinates" must match the type tag; anything else is ErrMalformedGeometry.
// A JSON null decodes to a nil geometry.
func DecodeGeometry(data []byte) (orb.Geometry, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var doc geometryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, Errorf(KindMalformedGeometry, "malformed geometry: %w", err)
	}
	if len(doc.Coordinates) == 0 {
		return nil, Errorf(KindMalformedGeometry, "malformed geometry: %s has no coordinates", doc.Type)
	}

	var (
		g   orb.Geometry
		err error
	)
	switch doc.Type {
	case TypePoint:
		var c []float64
		if err = json.Unmarshal(doc.Coordinates, &c); err == nil {
			g, err = toPoint(c)
		}
	case TypeMultiPoint:
		var c [][]float64
		if err = json.Unmarshal(doc.Coordinates, &c); err == nil {
			var pts []orb.Point
			pts, err = toPoints(c)
			g = orb.MultiPoint(pts)
		}
	case TypeLineString:
		var c [][]float64
		if err = json.Unmarshal(doc.Coordinates, &c); err == nil {
			var pts []orb.Point
			pts, err = toPoints(c)
			g = orb.LineString(pts)
		}
	case TypeMultiLineString:
		var c [][][]float64
		if err = json.Unmarshal(doc.Coordinates, &c); err == nil {
			mls := make(orb.MultiLineString, len(c))
			for i := 0; i < len(c) && err == nil; i++ {
				var pts []orb.Point
				pts, err = toPoints(c[i])
				mls[i] = orb.LineString(pts)
			}
			g = mls
		}
	case TypePolygon:
		var c [][][]float64
		if err = json.Unmarshal(doc.Coordinates, &c); err == nil {
			g, err = toPolygon(c)
		}
	case TypeMultiPolygon:
		var c [][][][]float64
		if err = json.Unmarshal(doc.Coordinates, &c); err == nil {
			mp := make(orb.MultiPolygon, len(c))
			for i := 0; i < len(c) && err == nil; i++ {
				mp[i], err = toPolygon(c[i])
			}
			g = mp
		}
	default:
		return nil, Errorf(KindMalformedGeometry, "malformed geometry: unsupported type %q", doc.Type)
	}
	if err != nil {
		return nil, Errorf(KindMalformedGeometry, "malformed geometry: %s: %w", doc.Type, err)
	}
	return g, nil
}

// EncodeGeometry renders g as a GeoJSON geometry object. orb stores
// positions as [2]float64, so the coordinate arrays marshal directly.
func EncodeGeometry(g orb.Geometry) ([]byte, error) {
	switch g := g.(type) {
	case nil:
		return []byte("null"), nil
	case orb.Point:
		return json.Marshal(geometryOut{TypePoint, g})
	case orb.MultiPoint:
		return json.Marshal(geometryOut{TypeMultiPoint, nonNil(g)})
	case orb.LineString:
		return json.Marshal(geometryOut{TypeLineString, nonNil(g)})
	case orb.MultiLineString:
		return json.Marshal(geometryOut{TypeMultiLineString, nonNil(g)})
	case orb.Polygon:
		return json.Marshal(geometryOut{TypePolygon, nonNil(g)})
	case orb.MultiPolygon:
		return json.Marshal(geometryOut{TypeMultiPolygon, nonNil(g)})
	default:
		return nil, Errorf(KindMalformedGeometry, "malformed geometry: unsupported type %T", g)
	}
}

type geometryOut struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

func toPoint(c []float64) (orb.Point, error) {
	if len(c) < 2 {
		return orb.Point{}, fmt.Errorf("position needs at least 2 values, got %d", len(c))
	}
	return orb.Point{c[0], c[1]}, nil
}

func toPoints(c [][]float64) ([]orb.Point, error) {
	pts := make([]orb.Point, len(c))
	for i, pos := range c {
		p, err := toPoint(pos)
		if err != nil {
			return nil, err
		}
		pts[i] = p
	}
	return pts, nil
}

func toPolygon(c [][][]float64) (orb.Polygon, error) {
	poly := make(orb.Polygon, len(c))
	for i, ring := range c {
		pts, err := toPoints(ring)
		if err != nil {
			return nil, err
		}
		poly[i] = orb.Ring(pts)
	}
	return poly, nil
}
