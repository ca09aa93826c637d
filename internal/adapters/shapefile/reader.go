package shapefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/pkg/geospatial"
)

// components are the files making up one shapefile.
var components = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// codePages maps numeric .cpg code pages to encoding labels.
var codePages = map[string]string{
	"65001": "utf-8",
	"866":   "ibm866",
	"874":   "windows-874",
	"932":   "shift_jis",
	"936":   "gbk",
	"949":   "euc-kr",
	"950":   "big5",
	"20866": "koi8-r",
}

// Reader implements ports.DatasetReader for ESRI shapefiles.
type Reader struct{}

// NewReader creates a shapefile reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read parses the .shp at path together with its .dbf attributes, .prj
// projection and .cpg code page. Attribute order follows the .dbf field order.
// A file that ends before its header says it should is rejected rather than
// read in part.
func (r *Reader) Read(ctx context.Context, path string) (*domain.Dataset, error) {
	path, err := normalizeComponents(path)
	if err != nil {
		return nil, err
	}

	sr, err := shp.Open(path)
	if err != nil {
		return nil, domain.Errorf(domain.KindInvalidDocument, "open shapefile %s: %w", filepath.Base(path), err)
	}
	defer sr.Close()

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	var fields []shp.Field
	if _, err := os.Stat(stem + ".dbf"); err == nil {
		fields = sr.Fields()
	}
	enc, err := readCpg(stem + ".cpg")
	if err != nil {
		return nil, err
	}

	var features []domain.Feature
	for sr.Next() {
		if len(features)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, shape := sr.Shape()
		g, err := toGeometry(shape)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", row, err)
		}

		props := make(domain.Properties, 0, len(fields))
		for i, f := range fields {
			props = append(props, domain.Property{
				Key:   f.String(),
				Value: attribute(f, sr.ReadAttribute(row, i), enc),
			})
		}
		features = append(features, domain.Feature{Geometry: g, Properties: props})
	}
	if err := sr.Err(); err != nil {
		return nil, domain.Errorf(domain.KindInvalidDocument, "read shapefile %s: %w", filepath.Base(path), err)
	}
	if fields != nil {
		if n := sr.AttributeCount(); n != len(features) {
			return nil, domain.Errorf(domain.KindInvalidDocument,
				"shapefile %s has %d shapes but %d attribute rows", filepath.Base(path), len(features), n)
		}
	}

	crs, err := readPrj(stem + ".prj")
	if err != nil {
		return nil, err
	}

	return &domain.Dataset{
		Name:     filepath.Base(stem),
		Features: domain.NewFeatureCollection(features...),
		CRS:      crs,
	}, nil
}

// normalizeComponents renames component files whose extension differs only
// in case ("PLAN.SHP", "PLAN.DBF") to the lower-case form the shapefile
// library opens, and returns the path of the renamed .shp.
func normalizeComponents(path string) (string, error) {
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		if e.IsDir() || !isComponent(ext) || !strings.EqualFold(strings.TrimSuffix(name, ext), stem) {
			continue
		}
		want := stem + strings.ToLower(ext)
		if name == want {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, want)); err == nil {
			continue
		}
		if err := os.Rename(filepath.Join(dir, name), filepath.Join(dir, want)); err != nil {
			return "", fmt.Errorf("rename %s: %w", name, err)
		}
	}
	return filepath.Join(dir, stem+".shp"), nil
}

func isComponent(ext string) bool {
	for _, c := range components {
		if strings.EqualFold(ext, c) {
			return true
		}
	}
	return false
}

// readCpg returns the encoding named by the .cpg file, or nil when there is
// none or its code page is not recognised.
func readCpg(path string) (encoding.Encoding, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	label := strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff"))
	if label == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(cpgLabel(label))
	if err != nil {
		return nil, nil
	}
	return enc, nil
}

// cpgLabel turns the code page spellings found in .cpg files ("1252",
// "ANSI 1252", "88591", "UTF-8") into encoding labels.
func cpgLabel(s string) string {
	l := strings.ToLower(strings.TrimSpace(s))
	l = strings.TrimPrefix(l, "ansi ")
	l = strings.TrimPrefix(l, "cp")
	if label, ok := codePages[l]; ok {
		return label
	}
	if strings.HasPrefix(l, "8859") {
		return "iso-8859-" + strings.TrimLeft(l[len("8859"):], "-_ ")
	}
	if len(l) == 4 && strings.HasPrefix(l, "125") {
		return "windows-" + l
	}
	return l
}

// readPrj returns the projection text, or "" when there is no .prj.
func readPrj(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff")), nil
}

// toGeometry converts a shape record. Polygon parts are grouped into shells
// and holes by nesting; Z and M ordinates are dropped.
func toGeometry(s shp.Shape) (orb.Geometry, error) {
	switch s := s.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}, nil
	case *shp.PointM:
		return orb.Point{s.X, s.Y}, nil
	case *shp.MultiPoint:
		return orb.MultiPoint(points(s.Points)), nil
	case *shp.MultiPointZ:
		return orb.MultiPoint(points(s.Points)), nil
	case *shp.MultiPointM:
		return orb.MultiPoint(points(s.Points)), nil
	case *shp.PolyLine:
		return lines(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return lines(s.Parts, s.Points)
	case *shp.PolyLineM:
		return lines(s.Parts, s.Points)
	case *shp.Polygon:
		return polygon(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygon(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygon(s.Parts, s.Points)
	default:
		return nil, domain.Errorf(domain.KindMalformedGeometry, "unsupported shape type %T", s)
	}
}

func points(ps []shp.Point) []orb.Point {
	out := make([]orb.Point, len(ps))
	for i, p := range ps {
		out[i] = orb.Point{p.X, p.Y}
	}
	return out
}

// splitParts cuts the shared point array at the part offsets.
func splitParts(parts []int32, ps []shp.Point) ([][]orb.Point, error) {
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(ps))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(ps) {
			return nil, domain.Errorf(domain.KindMalformedGeometry,
				"part %d spans points %d..%d of %d", i, start, end, len(ps))
		}
		out = append(out, points(ps[start:end]))
	}
	return out, nil
}

func lines(parts []int32, ps []shp.Point) (orb.Geometry, error) {
	split, err := splitParts(parts, ps)
	if err != nil {
		return nil, err
	}
	switch len(split) {
	case 0:
		return nil, nil
	case 1:
		return orb.LineString(split[0]), nil
	}
	out := make(orb.MultiLineString, len(split))
	for i, p := range split {
		out[i] = p
	}
	return out, nil
}

func polygon(parts []int32, ps []shp.Point) (orb.Geometry, error) {
	split, err := splitParts(parts, ps)
	if err != nil {
		return nil, err
	}
	rings := make([]orb.Ring, 0, len(split))
	for i, p := range split {
		if len(p) < 3 {
			return nil, domain.Errorf(domain.KindMalformedGeometry, "ring %d has %d points", i, len(p))
		}
		rings = append(rings, geospatial.CloseRing(orb.Ring(p)))
	}
	return geospatial.AssembleRings(rings, false), nil
}

// attribute converts a raw .dbf cell according to its field type. Text is
// decoded with enc; without one it is taken as UTF-8 when valid and as
// ISO-8859-1 otherwise.
func attribute(f shp.Field, raw string, enc encoding.Encoding) domain.Value {
	s := strings.TrimSpace(decodeText(strings.Trim(raw, "\x00"), enc))
	switch f.Fieldtype {
	case 'N', 'F', 'O':
		if s == "" {
			return domain.NullValue()
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.NullValue()
		}
		return domain.NumberValue(v)
	case 'L':
		switch strings.ToUpper(s) {
		case "T", "Y":
			return domain.BoolValue(true)
		case "F", "N":
			return domain.BoolValue(false)
		}
		return domain.NullValue()
	default:
		return domain.StringValue(s)
	}
}

func decodeText(s string, enc encoding.Encoding) string {
	if enc == nil {
		if utf8.ValidString(s) {
			return s
		}
		enc = charmap.ISO8859_1
	}
	out, err := enc.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}
