package drive

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/andresuchdata/replenish/internal/ingest"
)

// convertXLSXToCSV writes the first sheet of a workbook as CSV, with the
// same row cleanup the count reader applies.
func convertXLSXToCSV(xlsxPath, csvPath string) error {
	table, err := ingest.ReadXLSX(xlsxPath)
	if err != nil {
		return err
	}

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create csv file %s: %w", csvPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(table.Header); err != nil {
		return fmt.Errorf("failed to write csv header to %s: %w", csvPath, err)
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows to %s: %w", csvPath, err)
	}
	return nil
}
