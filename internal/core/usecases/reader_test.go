package usecases_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/core/usecases"
)

// --- Mock DatasetReader ---

type mockDatasetReader struct {
	readFn func(ctx context.Context, path string) (*domain.Dataset, error)
}

func (m *mockDatasetReader) Read(ctx context.Context, path string) (*domain.Dataset, error) {
	if m.readFn != nil {
		return m.readFn(ctx, path)
	}
	return &domain.Dataset{Features: domain.NewFeatureCollection()}, nil
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)
	return names
}

// --- Tests ---

func TestSpatialReader_PlainShapefile(t *testing.T) {
	var seen []string
	shpReader := &mockDatasetReader{
		readFn: func(ctx context.Context, path string) (*domain.Dataset, error) {
			if filepath.Base(path) != "field.shp" {
				t.Errorf("expected field.shp, got %s", path)
			}
			seen = dirNames(t, filepath.Dir(path))
			return &domain.Dataset{Name: "ignored", Features: domain.NewFeatureCollection()}, nil
		},
	}
	r := usecases.NewSpatialReader(shpReader, &mockDatasetReader{})
	r.TempDir = t.TempDir()

	uploads := []domain.Upload{
		{Name: "field.shp", Data: []byte("shp")},
		{Name: "field.dbf", Data: []byte("dbf")},
		{Name: "field.prj", Data: []byte("prj")},
	}
	ds, err := r.Read(context.Background(), uploads, domain.Source{File: "field.shp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Name != "field" {
		t.Errorf("expected dataset name field, got %s", ds.Name)
	}
	want := []string{"field.dbf", "field.prj", "field.shp"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v in scratch dir, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("expected %v in scratch dir, got %v", want, seen)
		}
	}
	if left := dirNames(t, r.TempDir); len(left) != 0 {
		t.Errorf("scratch dir not removed: %v", left)
	}
}

func TestSpatialReader_ZipExtractsSiblingsFlat(t *testing.T) {
	data := makeZip(t,
		zipEntry{"export/plan.shp", []byte("shp")},
		zipEntry{"export/plan.SHX", []byte("shx")},
		zipEntry{"export/plan.dbf", []byte("dbf")},
		zipEntry{"export/other.dbf", []byte("other")},
		zipEntry{"__MACOSX/export/._plan.shp", []byte("fork")},
	)
	var seen []string
	shpReader := &mockDatasetReader{
		readFn: func(ctx context.Context, path string) (*domain.Dataset, error) {
			seen = dirNames(t, filepath.Dir(path))
			return &domain.Dataset{Features: domain.NewFeatureCollection()}, nil
		},
	}
	r := usecases.NewSpatialReader(shpReader, &mockDatasetReader{})
	r.TempDir = t.TempDir()

	ds, err := r.Read(context.Background(),
		[]domain.Upload{{Name: "Schlag 7.zip", Data: data}},
		domain.Source{File: "Schlag 7.zip", Entry: "export/plan.shp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Name != "Schlag 7" {
		t.Errorf("expected dataset named after the archive, got %q", ds.Name)
	}
	want := []string{"Schlag 7.zip", "plan.SHX", "plan.dbf", "plan.shp"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("expected %v, got %v", want, seen)
			break
		}
	}
}

func TestSpatialReader_GeoJSONDispatch(t *testing.T) {
	called := false
	geo := &mockDatasetReader{
		readFn: func(ctx context.Context, path string) (*domain.Dataset, error) {
			called = true
			return &domain.Dataset{Features: domain.NewFeatureCollection()}, nil
		},
	}
	r := usecases.NewSpatialReader(&mockDatasetReader{}, geo)
	r.TempDir = t.TempDir()

	_, err := r.Read(context.Background(),
		[]domain.Upload{{Name: "plan.GeoJSON", Data: []byte("{}")}},
		domain.Source{File: "plan.GeoJSON"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("geojson reader was not called")
	}
}

func TestSpatialReader_CleansUpOnError(t *testing.T) {
	parseErr := domain.Errorf(domain.KindMalformedGeometry, "broken ring")
	shpReader := &mockDatasetReader{
		readFn: func(ctx context.Context, path string) (*domain.Dataset, error) {
			return nil, parseErr
		},
	}
	r := usecases.NewSpatialReader(shpReader, &mockDatasetReader{})
	r.TempDir = t.TempDir()

	_, err := r.Read(context.Background(),
		[]domain.Upload{{Name: "plan.shp", Data: []byte("x")}},
		domain.Source{File: "plan.shp"})
	if !errors.Is(err, domain.ErrMalformedGeometry) {
		t.Fatalf("expected ErrMalformedGeometry, got %v", err)
	}
	if left := dirNames(t, r.TempDir); len(left) != 0 {
		t.Errorf("scratch dir not removed after failure: %v", left)
	}
}

func TestSpatialReader_UploadNamesCannotEscape(t *testing.T) {
	var target string
	shpReader := &mockDatasetReader{
		readFn: func(ctx context.Context, path string) (*domain.Dataset, error) {
			target = path
			return &domain.Dataset{Features: domain.NewFeatureCollection()}, nil
		},
	}
	r := usecases.NewSpatialReader(shpReader, &mockDatasetReader{})
	base := t.TempDir()
	r.TempDir = base

	_, err := r.Read(context.Background(),
		[]domain.Upload{{Name: "../../evil.shp", Data: []byte("x")}},
		domain.Source{File: "../../evil.shp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(filepath.Dir(target)) != base || filepath.Base(target) != "evil.shp" {
		t.Errorf("upload written outside scratch dir: %s", target)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(base), "evil.shp")); err == nil {
		t.Error("file escaped the scratch dir")
	}
}
