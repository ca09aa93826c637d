package usecases

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/core/ports"
)

// maxEntrySize caps a single extracted archive entry.
const maxEntrySize = 1 << 30

// SpatialReader materializes uploads in a scratch directory and parses the
// selected dataset with the reader registered for its extension.
type SpatialReader struct {
	readers map[string]ports.DatasetReader

	// TempDir is where scratch directories are created; empty means os.TempDir.
	TempDir string
}

// NewSpatialReader creates a SpatialReader for shapefiles and GeoJSON files.
func NewSpatialReader(shapefile, geojson ports.DatasetReader) *SpatialReader {
	return &SpatialReader{readers: map[string]ports.DatasetReader{
		".shp":     shapefile,
		".json":    geojson,
		".geojson": geojson,
	}}
}

// Read parses the dataset src points at. The scratch directory is removed
// before Read returns, whatever the outcome.
func (r *SpatialReader) Read(ctx context.Context, uploads []domain.Upload, src domain.Source) (*domain.Dataset, error) {
	dir, err := os.MkdirTemp(r.TempDir, "rateplan-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	var selected domain.Upload
	for _, u := range uploads {
		name := safeName(u.Name)
		if name == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), u.Data, 0o600); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		if u.Name == src.File {
			selected = u
		}
	}

	target := filepath.Join(dir, safeName(src.File))
	if src.InArchive() {
		target, err = extractShapefile(selected.Data, src.Entry, dir)
		if err != nil {
			return nil, err
		}
	}

	ext := strings.ToLower(filepath.Ext(target))
	reader, ok := r.readers[ext]
	if !ok || reader == nil {
		return nil, domain.Errorf(domain.KindNoSpatialData, "no reader for %s files", ext)
	}

	ds, err := reader.Read(ctx, target)
	if err != nil {
		return nil, err
	}
	ds.Name = src.Stem()
	return ds, nil
}

// extractShapefile writes entry and every sibling sharing its stem (.shx,
// .dbf, .prj, ...) into dir, flattened to base names. It returns the path of
// the extracted .shp.
func extractShapefile(data []byte, entry, dir string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.Errorf(domain.KindInvalidArchive, "open archive: %w", err)
	}

	stem := strings.TrimSuffix(entry, path.Ext(entry))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(strings.TrimSuffix(f.Name, path.Ext(f.Name)), stem) {
			continue
		}
		if err := extractEntry(f, filepath.Join(dir, safeName(f.Name))); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, safeName(entry)), nil
}

func extractEntry(f *zip.File, dst string) error {
	if f.UncompressedSize64 > maxEntrySize {
		return domain.Errorf(domain.KindInvalidArchive, "archive entry %s is too large", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return domain.Errorf(domain.KindInvalidArchive, "open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, io.LimitReader(rc, maxEntrySize)); err != nil {
		out.Close()
		return domain.Errorf(domain.KindInvalidArchive, "extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// safeName strips any directory part from an upload or entry name so nothing
// is written outside the scratch directory.
func safeName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
