package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

type fileAPI interface {
	ListFiles(ctx context.Context, folderID string) ([]File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// Folder serves the files of one Drive folder by name. A missing "x.csv"
// is served from "x.xlsx" when present, converted from its first sheet.
type Folder struct {
	api      fileAPI
	folderID string
}

// OpenFolder resolves folderPath and returns a Folder reading from it.
func OpenFolder(ctx context.Context, s *Service, folderPath string) (*Folder, error) {
	id, err := s.FindFolderByPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}
	return &Folder{api: s, folderID: id}, nil
}

// GetObject returns the content of the file named key. Any directory part
// of key is ignored.
func (f *Folder) GetObject(ctx context.Context, key string) ([]byte, error) {
	name := path.Base(key)

	files, err := f.api.ListFiles(ctx, f.folderID)
	if err != nil {
		return nil, err
	}

	if file, ok := findFile(files, name); ok {
		return f.download(ctx, file)
	}

	if strings.EqualFold(path.Ext(name), ".csv") {
		xlsxName := strings.TrimSuffix(name, path.Ext(name)) + ".xlsx"
		if file, ok := findFile(files, xlsxName); ok {
			data, err := f.download(ctx, file)
			if err != nil {
				return nil, err
			}
			return xlsxToCSV(bytes.NewReader(data))
		}
	}

	return nil, fmt.Errorf("file %s not found in drive folder %s", name, f.folderID)
}

func (f *Folder) download(ctx context.Context, file File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.api.DownloadFile(ctx, file.ID, &buf); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", file.Name, err)
	}
	return buf.Bytes(), nil
}

func findFile(files []File, name string) (File, bool) {
	for _, file := range files {
		if strings.EqualFold(file.Name, name) {
			return file, true
		}
	}
	return File{}, false
}
