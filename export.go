package retreat

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eringen/retreat/client"
	"github.com/eringen/retreat/views"
)

// XLSXContentType is the MIME type of a workbook written by WriteSavedWorkbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const savedSheet = "Saved blogs"

// WriteSavedWorkbook writes posts as a one-sheet spreadsheet to w. Each row
// links back to the blog on the site at siteURL.
func WriteSavedWorkbook(w io.Writer, posts []client.Blog, siteURL string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", savedSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headers := []interface{}{"Title", "Category", "Description", "Published", "Link"}
	if err := f.SetSheetRow(savedSheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(savedSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, p := range posts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			p.Title,
			p.Category,
			p.Description,
			views.FormatDate(p.CreatedAt),
			BuildURL(siteURL, "blog", p.ID),
		}
		if err := f.SetSheetRow(savedSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for col, width := range map[string]float64{"A": 40, "B": 15, "C": 60, "D": 14, "E": 45} {
		if err := f.SetColWidth(savedSheet, col, col, width); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
