package drive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeDrive struct {
	files    []*File
	contents map[string][]byte
}

func (f *fakeDrive) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	return f.files, nil
}

func (f *fakeDrive) DownloadFile(ctx context.Context, file *File, w io.Writer) error {
	data, ok := f.contents[file.ID]
	if !ok {
		return errors.New("missing")
	}
	_, err := w.Write(data)
	return err
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]interface{}{"SKU", "2024-06-03", "2024-06-10"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]interface{}{"A-1", "10", "8"}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDownloader_DownloadFolder(t *testing.T) {
	api := &fakeDrive{
		files: []*File{
			{ID: "1", Name: "counts.csv", MimeType: "text/csv"},
			{ID: "2", Name: "notes.pdf", MimeType: "application/pdf"},
			{ID: "3", Name: "June counts", MimeType: sheetMimeType},
		},
		contents: map[string][]byte{
			"1": []byte("SKU,2024-06-03\nA-1,4\n"),
			"3": workbookBytes(t),
		},
	}
	dir := t.TempDir()

	paths, err := NewDownloader(api).DownloadFolder(context.Background(), DownloadOptions{FolderID: "f", DownloadDir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "counts.csv"),
		filepath.Join(dir, "June counts.xlsx"),
	}, paths)
}

func TestDownloader_ConvertXLSX(t *testing.T) {
	api := &fakeDrive{
		files:    []*File{{ID: "1", Name: "week.xlsx", MimeType: xlsxMimeType}},
		contents: map[string][]byte{"1": workbookBytes(t)},
	}
	dir := t.TempDir()

	paths, err := NewDownloader(api).DownloadFolder(context.Background(), DownloadOptions{DownloadDir: dir, ConvertXLSX: true})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "week.csv")}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "SKU,2024-06-03,2024-06-10\nA-1,10,8\n", string(data))

	_, err = os.Stat(filepath.Join(dir, "week.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloader_Errors(t *testing.T) {
	_, err := NewDownloader(&fakeDrive{}).DownloadFolder(context.Background(), DownloadOptions{})
	assert.Error(t, err)

	api := &fakeDrive{files: []*File{{ID: "x", Name: "a.csv"}}}
	_, err = NewDownloader(api).DownloadFolder(context.Background(), DownloadOptions{DownloadDir: t.TempDir()})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api = &fakeDrive{files: []*File{{ID: "1", Name: "a.csv"}}, contents: map[string][]byte{"1": []byte("x")}}
	_, err = NewDownloader(api).DownloadFolder(ctx, DownloadOptions{DownloadDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
}
