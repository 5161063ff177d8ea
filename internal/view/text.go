package view

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// WriteText renders v for a terminal
func WriteText(w io.Writer, v View) error {
	switch v.Kind {
	case KindAccount:
		return writeAccount(w, v.Account)
	case KindTable:
		writeTable(w, v.Table)
		return nil
	}
	_, err := fmt.Fprintln(w, v.Message)
	return err
}

func newTextTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writeAccount(w io.Writer, a *Account) error {
	fmt.Fprintf(w, "Player:  %s (ID %s)\n", a.Name, a.PlayerID)
	fmt.Fprintf(w, "Cash:    $%s\n", a.FormatCash())
	if len(a.Holdings) == 0 {
		_, err := fmt.Fprintln(w, "No holdings.")
		return err
	}
	table := newTextTable(w, []string{"Symbol", "Quantity"})
	for _, h := range a.Holdings {
		table.Append([]string{h.Symbol, h.Quantity})
	}
	table.Render()
	return nil
}

func writeTable(w io.Writer, t *Table) {
	names := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		names[i] = h.Name
	}
	table := newTextTable(w, names)
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = c.Text
		}
		table.Append(cells)
	}
	table.Render()
}
