package output

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// TableRenderer is implemented by results that render as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
}

// PrintTable writes data without borders, columns left-aligned and
// separated by two spaces. Headers are upper-cased.
func PrintTable(w io.Writer, data TableRenderer) error {
	t := tablewriter.NewWriter(w)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetHeaderLine(false)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)

	t.SetHeader(data.Headers())
	t.AppendBulk(data.Rows())
	t.Render()
	return nil
}

// Fields is a two-column property table: one "field  value" row per entry.
type Fields [][2]string

func (f Fields) Headers() []string { return []string{"Field", "Value"} }

func (f Fields) Rows() [][]string {
	rows := make([][]string, len(f))
	for i, kv := range f {
		rows[i] = []string{kv[0], kv[1]}
	}
	return rows
}
