package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
	// ConvertXLSX rewrites workbooks as CSV after download.
	ConvertXLSX bool
}

// Downloader pulls cycle-count exports out of a Drive folder.
type Downloader struct {
	api FileAPI
}

func NewDownloader(api FileAPI) *Downloader {
	return &Downloader{api: api}
}

// DownloadFolder downloads every CSV, XLSX and Google Sheet in the folder into
// DownloadDir and returns the local paths. Sheets are saved as .xlsx.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.api.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name, ok := localName(f)
		if !ok {
			log.Debug().Str("file", f.Name).Str("mime", f.MimeType).Msg("drive: skipping unsupported file")
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, name)
		if err := d.fetch(ctx, f, localPath); err != nil {
			return nil, err
		}

		if opts.ConvertXLSX && strings.EqualFold(filepath.Ext(localPath), ".xlsx") {
			csvPath := strings.TrimSuffix(localPath, filepath.Ext(localPath)) + ".csv"
			if err := convertXLSXToCSV(localPath, csvPath); err != nil {
				return nil, fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
			}
			_ = os.Remove(localPath)
			localPath = csvPath
		}

		localPaths = append(localPaths, localPath)
	}

	log.Info().Str("folder", opts.FolderID).Int("files", len(localPaths)).Msg("drive: folder downloaded")
	return localPaths, nil
}

func (d *Downloader) fetch(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.api.DownloadFile(ctx, f, out); err != nil {
		out.Close()
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}

func localName(f *File) (string, bool) {
	name := filepath.Base(f.Name)
	if f.IsSheet() {
		return name + ".xlsx", true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return name, true
	}
	return "", false
}
