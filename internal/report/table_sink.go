package report

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
)

// TableSink renders each band sheet as a console table
type TableSink struct {
	out io.Writer
}

// NewTableSink creates a sink writing to out, or stdout when out is nil
func NewTableSink(out io.Writer) *TableSink {
	if out == nil {
		out = os.Stdout
	}
	return &TableSink{out: out}
}

func (s *TableSink) Format() Format { return FormatTable }

func (s *TableSink) Write(ctx context.Context, report *Report) error {
	for _, sheet := range report.Sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(s.out, "%s (%d cases)\n", sheet.Band, len(sheet.Rows)); err != nil {
			return err
		}

		headers := headerRows()
		table := tablewriter.NewWriter(s.out)
		table.SetHeader(tableHeader(headers[0], headers[1]))
		table.SetAutoFormatHeaders(false)
		table.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, row := range sheet.Rows {
			cells := row.cells()
			if row.Failed() {
				cells[1] = "error: " + row.Err.Error()
			}
			table.Append(cells)
		}
		table.Render()
	}
	return nil
}

// tableHeader folds the path group into the column names
func tableHeader(groups, names []string) []string {
	out := make([]string, len(names))
	group := ""
	for i, name := range names {
		if groups[i] != "" {
			group = groups[i]
		}
		if name == "" || group == "" {
			out[i] = name
			continue
		}
		out[i] = group + " " + name
	}
	return out
}
