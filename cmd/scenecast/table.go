package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one column of CLI table output.
type tableColumn struct {
	title string
	align text.Align
}

func leftColumn(title string) tableColumn  { return tableColumn{title: title, align: text.AlignLeft} }
func rightColumn(title string) tableColumn { return tableColumn{title: title, align: text.AlignRight} }

// renderTable draws rows under columns with rounded borders. Short rows are
// padded with empty cells and extra cells are dropped.
func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for n, column := range columns {
		header = append(header, column.title)
		configs = append(configs, table.ColumnConfig{Number: n + 1, Align: column.align, AlignHeader: text.AlignLeft})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(columns))
		for n := range row {
			if n < len(cells) {
				row[n] = cells[n]
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render()
}
