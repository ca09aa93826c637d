package usecases_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/samirrijal/rateplan/internal/core/domain"
)

type zipEntry struct {
	name string
	data []byte
}

func makeZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatalf("zip write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// writePlanShapefile writes polygons with a RATE attribute and returns the
// component files keyed by extension (".shp", ".shx", ".dbf").
func writePlanShapefile(t *testing.T, polys []orb.Polygon, rates []float64) map[string][]byte {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.shp")

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		t.Fatalf("create shapefile: %v", err)
	}
	w.SetFields([]shp.Field{
		shp.StringField("NAME", 16),
		shp.FloatField("RATE", 12, 3),
	})
	for i, poly := range polys {
		parts := make([][]shp.Point, len(poly))
		for j, ring := range poly {
			for _, p := range ring {
				parts[j] = append(parts[j], shp.Point{X: p[0], Y: p[1]})
			}
		}
		shape := shp.Polygon(*shp.NewPolyLine(parts))
		row := w.Write(&shape)
		w.WriteAttribute(int(row), 0, "zone")
		w.WriteAttribute(int(row), 1, rates[i])
	}
	w.Close()
	// go-shp names the attribute table "<stem>dbf".
	if _, err := os.Stat(filepath.Join(dir, "plan.dbf")); err != nil {
		if err := os.Rename(filepath.Join(dir, "plandbf"), filepath.Join(dir, "plan.dbf")); err != nil {
			t.Fatalf("place .dbf: %v", err)
		}
	}

	out := make(map[string][]byte)
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		data, err := os.ReadFile(filepath.Join(dir, "plan"+ext))
		if err != nil {
			t.Fatalf("read %s: %v", ext, err)
		}
		out[ext] = data
	}
	return out
}

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x, y + size}, {x + size, y + size}, {x + size, y}, {x, y},
	}}
}

func feature(g orb.Geometry, kv ...any) domain.Feature {
	f := domain.NewFeature(g)
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case nil:
			f.Properties.Set(key, domain.NullValue())
		case string:
			f.Properties.Set(key, domain.StringValue(v))
		case float64:
			f.Properties.Set(key, domain.NumberValue(v))
		case int:
			f.Properties.Set(key, domain.NumberValue(float64(v)))
		case bool:
			f.Properties.Set(key, domain.BoolValue(v))
		}
	}
	return f
}
