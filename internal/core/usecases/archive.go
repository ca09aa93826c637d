package usecases

import (
	"archive/zip"
	"bytes"
	"path"
	"strings"

	"github.com/samirrijal/rateplan/internal/core/domain"
)

// spatialExts are the upload extensions that can carry a dataset.
var spatialExts = map[string]bool{
	".shp":     true,
	".zip":     true,
	".json":    true,
	".geojson": true,
}

// reservedPrefixes are archive directories whose shapefiles are never selected:
// macOS resource forks and the prescription copies some terminals export.
var reservedPrefixes = []string{"__MACOSX/", "Rx/"}

// ResolveUpload locates the single spatial dataset among uploads. A zip
// candidate is opened in memory and must hold exactly one eligible .shp entry.
func ResolveUpload(uploads []domain.Upload) (domain.Source, error) {
	var candidates []domain.Upload
	for _, u := range uploads {
		if spatialExts[u.Ext()] {
			candidates = append(candidates, u)
		}
	}
	switch len(candidates) {
	case 0:
		return domain.Source{}, domain.ErrNoSpatialData
	case 1:
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.Name
		}
		return domain.Source{}, domain.Errorf(domain.KindAmbiguousInput,
			"too many spatial files: %s", strings.Join(names, ", "))
	}

	file := candidates[0]
	if file.Ext() != ".zip" {
		return domain.Source{File: file.Name}, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return domain.Source{}, domain.Errorf(domain.KindInvalidArchive, "open %s: %w", file.Name, err)
	}
	entries := shapefileEntries(zr)
	switch len(entries) {
	case 0:
		return domain.Source{}, domain.Errorf(domain.KindNoShapefileInArchive,
			"no shapefile found in archive %s", file.Name)
	case 1:
		return domain.Source{File: file.Name, Entry: entries[0]}, nil
	default:
		return domain.Source{}, domain.Errorf(domain.KindAmbiguousArchiveContent,
			"too many shapefiles in archive %s: %s", file.Name, strings.Join(entries, ", "))
	}
}

// shapefileEntries lists the eligible .shp entries of an archive.
func shapefileEntries(zr *zip.Reader) []string {
	var out []string
	for _, f := range zr.File {
		name := f.Name
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(name), ".shp") {
			continue
		}
		if hasReservedPrefix(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func hasReservedPrefix(name string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
