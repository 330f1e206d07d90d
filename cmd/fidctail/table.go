package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// tableColumn describes one rendered column. A positive maxWidth wraps
// longer cells.
type tableColumn struct {
	header   string
	align    columnAlignment
	maxWidth int
}

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		align := text.AlignLeft
		if col.align == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    col.maxWidth,
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(columns))
		for i := range columns {
			if i < len(cells) {
				row[i] = cells[i]
			} else {
				row[i] = ""
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}
