package presenters

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/aces/bvlfeedback/internal/application/datatable"
)

const xlsxSheet = "Data"

// XLSXRenderer writes a loaded table to a spreadsheet file. It only
// implements the static table half of a presenter.
type XLSXRenderer struct {
	path string
}

// NewXLSXRenderer creates a renderer saving to path.
func NewXLSXRenderer(path string) *XLSXRenderer {
	return &XLSXRenderer{path: path}
}

// RenderTable saves props as a single sheet with a header row. A frozen
// column is placed first and pinned.
func (r *XLSXRenderer) RenderTable(props datatable.TableProps) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	columns := orderColumns(props.Headers, props.FreezeColumn)
	for c, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := f.SetCellValue(xlsxSheet, cell, h); err != nil {
			return fmt.Errorf("write header %q: %w", h, err)
		}
	}

	for i, row := range props.Rows {
		for c, column := range columns {
			cell, _ := excelize.CoordinatesToCellName(c+1, i+2)
			var value any = row[column]
			if props.FormatCell != nil {
				value = props.FormatCell(column, row[column], row)
			}
			if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	pane := &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}
	if props.FreezeColumn != "" && len(columns) > 0 && columns[0] == props.FreezeColumn {
		pane = &excelize.Panes{Freeze: true, XSplit: 1, YSplit: 1, TopLeftCell: "B2", ActivePane: "bottomRight"}
	}
	if err := f.SetPanes(xlsxSheet, pane); err != nil {
		return fmt.Errorf("freeze panes: %w", err)
	}

	if err := f.SaveAs(r.path); err != nil {
		return fmt.Errorf("save %s: %w", r.path, err)
	}
	return nil
}
