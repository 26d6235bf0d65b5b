// Package export renders a matrix grid and its statistics as an XLSX workbook.
package export

import (
	"fmt"
	"io"

	"github.com/ryanbastic/go-chronos/internal/grid"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	GridSheet    = "Grid"
	SummarySheet = "Summary"
)

// Workbook builds a workbook with a Grid sheet, one row per date and one
// column per time slot with painted cells filled in their color, and a
// Summary sheet with the grid statistics. The caller must Close it.
func Workbook(name string, layout grid.Layout, rendered []string, categories []model.Category) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", GridSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}

	w := &writer{f: f, styles: make(map[string]int)}
	if err := w.grid(layout, rendered, categories); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.summary(name, grid.ComputeStats(rendered, categories)); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteXLSX writes the workbook of Workbook to out.
func WriteXLSX(out io.Writer, name string, layout grid.Layout, rendered []string, categories []model.Category) error {
	f, err := Workbook(name, layout, rendered, categories)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type writer struct {
	f      *excelize.File
	styles map[string]int
	header int
}

func (w *writer) grid(layout grid.Layout, rendered []string, categories []model.Category) error {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		if _, ok := names[c.Color]; !ok {
			names[c.Color] = c.Name
		}
	}

	header := make([]any, 0, len(layout.TimeSlots)+1)
	header = append(header, "Date")
	for col, slot := range layout.TimeSlots {
		header = append(header, slot+"-"+layout.SlotEnd(col))
	}
	if err := w.f.SetSheetRow(GridSheet, "A1", &header); err != nil {
		return fmt.Errorf("write grid header: %w", err)
	}
	if err := w.boldRow(GridSheet, 1, len(header)); err != nil {
		return err
	}

	for row, date := range layout.Dates {
		excelRow := row + 2
		dateCell, err := excelize.CoordinatesToCellName(1, excelRow)
		if err != nil {
			return err
		}
		if err := w.f.SetCellValue(GridSheet, dateCell, date.Format(model.DateLayout)); err != nil {
			return fmt.Errorf("write date: %w", err)
		}

		for col := range layout.TimeSlots {
			index, _ := layout.Index(row, col)
			if index >= len(rendered) || rendered[index] == model.Unfilled {
				continue
			}
			color := rendered[index]
			name, ok := names[color]
			if !ok {
				name = grid.UnknownCategory
			}

			cell, err := excelize.CoordinatesToCellName(col+2, excelRow)
			if err != nil {
				return err
			}
			if err := w.f.SetCellValue(GridSheet, cell, name); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
			style, err := w.fill(color)
			if err != nil {
				return err
			}
			if err := w.f.SetCellStyle(GridSheet, cell, cell, style); err != nil {
				return fmt.Errorf("style cell %s: %w", cell, err)
			}
		}
	}

	if err := w.f.SetColWidth(GridSheet, "A", "A", 12); err != nil {
		return err
	}
	if n := len(layout.TimeSlots); n > 0 {
		last, err := excelize.ColumnNumberToName(n + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(GridSheet, "B", last, 14); err != nil {
			return err
		}
	}
	return w.f.SetPanes(GridSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      1,
		TopLeftCell: "B2",
		ActivePane:  "bottomRight",
	})
}

func (w *writer) summary(name string, stats grid.Stats) error {
	rows := [][]any{
		{"Matrix", name},
		{"Filled cells", stats.FilledCount},
		{"Total cells", stats.TotalCells},
		{"Remaining cells", stats.RemainingCount},
		{"Filled %", stats.Percentage},
		{},
		{"Category", "Color", "Cells"},
	}
	for _, c := range stats.Categories {
		rows = append(rows, []any{c.Name, c.Color, c.Count})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	if err := w.boldRow(SummarySheet, 7, 3); err != nil {
		return err
	}
	return w.f.SetColWidth(SummarySheet, "A", "A", 18)
}

// fill returns a style filling a cell with color, creating it on first use.
func (w *writer) fill(color string) (int, error) {
	if id, ok := w.styles[color]; ok {
		return id, nil
	}
	id, err := w.f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("create fill style %s: %w", color, err)
	}
	w.styles[color] = id
	return id, nil
}

func (w *writer) boldRow(sheet string, row, cols int) error {
	if w.header == 0 {
		id, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("create header style: %w", err)
		}
		w.header = id
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(max(cols, 1), row)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(sheet, first, last, w.header)
}
