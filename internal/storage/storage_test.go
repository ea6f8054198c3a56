package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/stockcast/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "sales.csv", ObjectKey("", "sales.csv"))
	assert.Equal(t, "shops/a/sales.csv", ObjectKey("shops/a/", "sales.csv"))
	assert.Equal(t, "shops/a/sales.csv", ObjectKey("/shops/a", "/sales.csv"))
	assert.Equal(t, "shops/a/sales.csv", ObjectKey("shops/a", "shops/a/sales.csv"))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normalizeEndpoint("s3.example.com", true))
	assert.Equal(t, "http://minio:9000", normalizeEndpoint("//minio:9000", false))
	assert.Equal(t, "http://already", normalizeEndpoint("http://already", true))
}

func TestNewS3Client_RequiresConfig(t *testing.T) {
	_, err := NewS3Client(S3Config{})
	assert.ErrorContains(t, err, "endpoint")

	_, err = NewS3Client(S3Config{Endpoint: "s3.example.com"})
	assert.ErrorContains(t, err, "credentials")

	_, err = NewS3Client(S3Config{Endpoint: "s3.example.com", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
}

func TestFetchDataset(t *testing.T) {
	root := t.TempDir()
	client := NewLocalClient(root)
	ctx := context.Background()

	files := map[string]string{
		dataset.SalesFile:       "product_id,quantity,sold_at\nlatte,1,2024-01-08T09:00:00Z\n",
		dataset.RecipesFile:     "product_id,ingredient_id,quantity\nlatte,milk,200\n",
		dataset.IngredientsFile: "id,stock_current,reorder_point\nmilk,1000,500\n",
	}
	for name, content := range files {
		require.NoError(t, client.PutObject(ctx, ObjectKey("shops/demo", name), []byte(content)))
	}

	dest := filepath.Join(t.TempDir(), "download")
	dir, err := FetchDataset(ctx, client, "shops/demo", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, dir)

	got, err := os.ReadFile(filepath.Join(dir, dataset.RecipesFile))
	require.NoError(t, err)
	assert.Equal(t, files[dataset.RecipesFile], string(got))

	in, err := dataset.Load(dir)
	require.NoError(t, err)
	assert.Len(t, in.Sales, 1)
	assert.Len(t, in.Ingredients, 1)
}

func TestFetchDataset_MissingObject(t *testing.T) {
	client := NewLocalClient(t.TempDir())

	_, err := FetchDataset(context.Background(), client, "nowhere", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere/sales.csv")
}
