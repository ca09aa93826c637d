package domain

import (
	"path/filepath"
	"strings"
)

// Upload is one file received from a client.
type Upload struct {
	Name string
	Data []byte
}

// Ext returns the lower-cased extension of the upload's file name.
func (u Upload) Ext() string {
	return strings.ToLower(filepath.Ext(u.Name))
}

// Source identifies the dataset selected among a set of uploads: either a
// plain file, or a shapefile entry inside a zip archive.
type Source struct {
	// File is the name of the selected upload.
	File string
	// Entry is the .shp path inside the archive; empty for plain files.
	Entry string
}

// InArchive reports whether the dataset lives inside a zip upload.
func (s Source) InArchive() bool { return s.Entry != "" }

// Stem is the upload's base name without extension, used as the dataset name.
func (s Source) Stem() string {
	base := filepath.Base(s.File)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Dataset is a parsed spatial file.
type Dataset struct {
	Name     string
	Features *FeatureCollection
	// CRS is the coordinate system descriptor embedded in the file, if any.
	CRS string
}
