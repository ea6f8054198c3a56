// Package storage moves forecast datasets and results through S3-compatible
// object storage.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/stockcast/internal/dataset"
)

// ObjectReader is any keyed source of file contents.
type ObjectReader interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ObjectStorage captures the operations the CLI tools need.
type ObjectStorage interface {
	ObjectReader
	PutObject(ctx context.Context, key string, data []byte) error
}

// FetchDataset downloads the three history files stored under prefix into
// destDir and returns destDir, ready for dataset.Load.
func FetchDataset(ctx context.Context, store ObjectReader, prefix, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to ensure download dir %s: %w", destDir, err)
	}

	for _, name := range []string{dataset.SalesFile, dataset.RecipesFile, dataset.IngredientsFile} {
		key := ObjectKey(prefix, name)
		data, err := store.GetObject(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to download %s: %w", key, err)
		}
		if err := os.WriteFile(filepath.Join(destDir, name), data, 0o644); err != nil {
			return "", fmt.Errorf("failed writing %s: %w", name, err)
		}
	}
	return destDir, nil
}

// ObjectKey joins prefix and name with a single slash.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if prefix == "" {
		return name
	}
	if strings.HasPrefix(name, prefix+"/") {
		return name
	}
	return prefix + "/" + name
}
