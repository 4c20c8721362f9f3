package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/replenish/internal/drive"
	"github.com/andresuchdata/replenish/internal/ingest"
	"github.com/andresuchdata/replenish/internal/storage"
)

// DirSource lists supported exports under a local directory, recursively.
type DirSource struct {
	Dir string
}

func (s DirSource) Name() string { return s.Dir }

func (s DirSource) List(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.IsDir() && ingest.SupportedExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.Dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// ObjectSource downloads exports under Prefix from an S3-compatible bucket.
type ObjectSource struct {
	Downloader *storage.Downloader
	Prefix     string
}

func (s ObjectSource) Name() string { return "s3://" + s.Prefix }

func (s ObjectSource) List(ctx context.Context) ([]string, error) {
	return s.Downloader.Download(ctx, s.Prefix, "", ingest.SupportedExtension)
}

// DriveSource downloads exports from a Google Drive folder into Dir.
type DriveSource struct {
	Downloader *drive.Downloader
	FolderID   string
	Dir        string
}

func (s DriveSource) Name() string { return "drive://" + s.FolderID }

func (s DriveSource) List(ctx context.Context) ([]string, error) {
	files, err := s.Downloader.DownloadFolder(ctx, drive.DownloadOptions{
		FolderID:    s.FolderID,
		DownloadDir: s.Dir,
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// SourceKind splits a source URI into its scheme and location. Plain paths
// are "dir".
func SourceKind(uri string) (kind, location string) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		return "s3", strings.TrimPrefix(uri, "s3://")
	case strings.HasPrefix(uri, "drive://"):
		return "drive", strings.TrimPrefix(uri, "drive://")
	default:
		return "dir", uri
	}
}
