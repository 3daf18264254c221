package presenters

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aces/bvlfeedback/internal/application/datatable"
)

// TextPresenter draws data table views as plain text. Progress and errors
// go to status, tables go to out.
type TextPresenter struct {
	out    io.Writer
	status io.Writer
}

// NewTextPresenter creates a presenter writing tables to out and
// progress or error notices to status.
func NewTextPresenter(out, status io.Writer) *TextPresenter {
	return &TextPresenter{out: out, status: status}
}

// RenderBusy prints the loading indicator.
func (p *TextPresenter) RenderBusy(bytesLoaded, bytesTotal int64) error {
	var err error
	if bytesTotal > 0 {
		_, err = fmt.Fprintf(p.status, "Loading... %d/%d bytes\n", bytesLoaded, bytesTotal)
	} else {
		_, err = fmt.Fprintf(p.status, "Loading... %d bytes\n", bytesLoaded)
	}
	return err
}

// RenderError prints the error notice.
func (p *TextPresenter) RenderError(message string) error {
	_, err := fmt.Fprintf(p.status, "Error: %s\n", message)
	return err
}

// RenderTable prints the table aligned in columns. The frozen column, if it
// is one of the headers, is printed first.
func (p *TextPresenter) RenderTable(props datatable.TableProps) error {
	columns := orderColumns(props.Headers, props.FreezeColumn)

	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	if err := writeRow(tw, columns); err != nil {
		return err
	}

	cells := make([]string, len(columns))
	for _, row := range props.Rows {
		for i, column := range columns {
			cells[i] = formatCell(props.FormatCell, column, row)
		}
		if err := writeRow(tw, cells); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func orderColumns(headers []string, freeze string) []string {
	columns := make([]string, 0, len(headers))
	frozen := false
	for _, h := range headers {
		if h == freeze && !frozen {
			frozen = true
			continue
		}
		columns = append(columns, h)
	}
	if frozen {
		columns = append([]string{freeze}, columns...)
	}
	return columns
}

func formatCell(format datatable.CellFormatter, column string, row map[string]any) string {
	cell, ok := row[column]
	if format != nil {
		return format(column, cell, row)
	}
	if !ok || cell == nil {
		return ""
	}
	return fmt.Sprint(cell)
}

// controlEscaper spells out the characters tabwriter treats as cell or line
// breaks, so one value always stays in one cell.
var controlEscaper = strings.NewReplacer(
	"\t", `\t`,
	"\r", `\r`,
	"\n", `\n`,
	"\v", `\v`,
	"\f", `\f`,
)

func writeRow(w io.Writer, cells []string) error {
	for i, c := range cells {
		c = controlEscaper.Replace(c)
		sep := "\t"
		if i == len(cells)-1 {
			sep = "\n"
		}
		if _, err := io.WriteString(w, c+sep); err != nil {
			return err
		}
	}
	if len(cells) == 0 {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}
