package storage

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/roach88/gridsync/internal/grid"
	"github.com/roach88/gridsync/internal/ref"
)

// ExportXLSX writes a workbook snapshot to an xlsx file. Formula cells
// carry their formula so desktop tools keep recalculating them; plain
// cells carry the stored text.
func ExportXLSX(f *grid.File, path string) error {
	x := excelize.NewFile()
	defer x.Close()

	for i, sheet := range f.Sheets {
		if i == 0 {
			if err := x.SetSheetName(x.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("export xlsx: rename sheet: %w", err)
			}
		} else if _, err := x.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("export xlsx: add sheet %s: %w", sheet.Name, err)
		}

		for cellID, cell := range sheet.Data {
			// Cached value first, so formula cells keep a readable value
			// for tools that do not recalculate on open.
			if err := x.SetCellStr(sheet.Name, cellID, cell.Value); err != nil {
				return fmt.Errorf("export xlsx: cell %s!%s: %w", sheet.Name, cellID, err)
			}
			if cell.Formula != "" {
				// Excel formulas omit the leading marker.
				formula := cell.Formula
				if formula[0] == '=' {
					formula = formula[1:]
				}
				if err := x.SetCellFormula(sheet.Name, cellID, formula); err != nil {
					return fmt.Errorf("export xlsx: formula %s!%s: %w", sheet.Name, cellID, err)
				}
			}
		}

		if err := applyXLSXStyles(x, sheet); err != nil {
			return err
		}
	}

	if err := x.SaveAs(path); err != nil {
		return fmt.Errorf("export xlsx: save %s: %w", path, err)
	}
	return nil
}

func applyXLSXStyles(x *excelize.File, sheet *grid.Sheet) error {
	for cellID, cell := range sheet.Data {
		if cell.Style == nil || (!cell.Style.Bold && !cell.Style.Italic) {
			continue
		}
		styleID, err := x.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: cell.Style.Bold, Italic: cell.Style.Italic},
		})
		if err != nil {
			return fmt.Errorf("export xlsx: style for %s: %w", cellID, err)
		}
		if err := x.SetCellStyle(sheet.Name, cellID, cellID, styleID); err != nil {
			return fmt.Errorf("export xlsx: apply style to %s: %w", cellID, err)
		}
	}
	return nil
}

// ImportXLSX reads an xlsx file into the persisted workbook shape.
// Cells outside the supported grid (columns beyond Z) are skipped; the
// engine's reference space is a single letter wide.
func ImportXLSX(path, userID string, ids grid.IDGenerator, now func() time.Time) (*grid.File, error) {
	x, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("import xlsx: open %s: %w", path, err)
	}
	defer x.Close()

	if ids == nil {
		ids = grid.UUIDv7Generator{}
	}
	if now == nil {
		now = time.Now
	}

	f := &grid.File{UserID: userID, UpdatedAt: now()}
	for _, name := range x.GetSheetList() {
		sheet := &grid.Sheet{
			ID:        ids.Generate(),
			Name:      name,
			Data:      make(map[string]grid.Cell),
			CreatedAt: now(),
			UpdatedAt: now(),
		}

		rows, err := x.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("import xlsx: rows of %s: %w", name, err)
		}
		for r, row := range rows {
			for c, value := range row {
				cellID, err := ref.Format(r, c)
				if err != nil {
					continue
				}
				cell := grid.Cell{Value: value}
				axis, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err == nil {
					// Formula cells may carry no cached value.
					if formula, err := x.GetCellFormula(name, axis); err == nil && formula != "" {
						cell.Formula = "=" + formula
					}
				}
				if cell.Value == "" && cell.Formula == "" {
					continue
				}
				sheet.Data[cellID] = cell
			}
		}

		f.Sheets = append(f.Sheets, sheet)
	}

	if len(f.Sheets) > 0 {
		f.ActiveSheetID = f.Sheets[0].ID
	}
	return f, nil
}
