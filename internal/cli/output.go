package cli

import (
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// printer writes human-readable command output.
type printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func newPrinter(out, errOut io.Writer, useColors bool) *printer {
	return &printer{out: out, err: errOut, useColors: useColors}
}

func (p *printer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.useColors {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func (p *printer) successf(format string, args ...any) {
	p.paint(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
}

func (p *printer) warnf(format string, args ...any) {
	p.paint(color.FgYellow).Fprintf(p.out, "! "+format+"\n", args...)
}

func (p *printer) errorf(format string, args ...any) {
	p.paint(color.FgRed, color.Bold).Fprintf(p.err, "Error: "+format+"\n", args...)
}

func (p *printer) headingf(format string, args ...any) {
	p.paint(color.Bold).Fprintf(p.out, format+"\n", args...)
}

// kv prints aligned "key: value" rows.
func (p *printer) kv(rows [][]string) {
	t := newTable(p.out)
	_ = t.Bulk(rows)
	_ = t.Render()
}

// table prints rows under a header.
func (p *printer) table(header []string, rows [][]string) {
	t := newTable(p.out)
	t.Header(header)
	_ = t.Bulk(rows)
	_ = t.Render()
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
}
