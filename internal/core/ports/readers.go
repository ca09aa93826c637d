package ports

import (
	"context"

	"github.com/samirrijal/rateplan/internal/core/domain"
)

// DatasetReader parses one spatial file format from disk. path points at the
// main file; sidecar files sit next to it in the same directory.
type DatasetReader interface {
	Read(ctx context.Context, path string) (*domain.Dataset, error)
}
