package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/kass/go-geohash/pkg/export"
	"github.com/kass/go-geohash/pkg/geohash"
	"github.com/kass/go-geohash/pkg/models"
	"github.com/mattn/go-isatty"
)

type styles struct {
	code    lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	miss    lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{code: plain, dim: plain, success: plain, miss: plain}
	}
	return styles{
		code:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BE9FD")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")),
		miss:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")),
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printer renders command results as text, json or geojson
type printer struct {
	w      io.Writer
	format string
	tty    bool
	styles styles
}

func newPrinter(w io.Writer, format string, tty bool) *printer {
	return &printer{w: w, format: format, tty: tty, styles: newStyles(tty)}
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// codes prints a code collection. Text output is one code per line.
func (p *printer) codes(codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	switch p.format {
	case "json":
		return p.json(codes)
	case "geojson":
		fc, err := export.Cells(codes)
		if err != nil {
			return err
		}
		return export.Write(p.w, fc)
	}

	for _, c := range codes {
		fmt.Fprintln(p.w, p.styles.code.Render(c))
	}
	if p.tty {
		fmt.Fprintln(p.w, p.styles.dim.Render(fmt.Sprintf("%d cells", len(codes))))
	}
	return nil
}

// cells prints decoded cells with their boxes
func (p *printer) cells(codes []string) error {
	cells := make([]models.Cell, 0, len(codes))
	for _, code := range codes {
		cell, err := geohash.DecodeCell(code)
		if err != nil {
			return err
		}
		cells = append(cells, cell)
	}

	switch p.format {
	case "json":
		return p.json(cells)
	case "geojson":
		return p.codes(codes)
	}

	for _, c := range cells {
		center := c.Box.Center()
		fmt.Fprintf(p.w, "%s %s\n",
			p.styles.code.Render(c.Code),
			p.styles.dim.Render(fmt.Sprintf("lat [%.10g, %.10g] lon [%.10g, %.10g] center (%.10g, %.10g)",
				c.Box.BottomLeft.Lat, c.Box.TopRight.Lat,
				c.Box.BottomLeft.Lon, c.Box.TopRight.Lon,
				center.Lat, center.Lon)))
	}
	return nil
}

type membership struct {
	Code string `json:"code"`
	In   bool   `json:"in"`
}

// membership prints one verdict per point code
func (p *printer) membership(points []string, in []bool) error {
	rows := make([]membership, len(points))
	var matched []string
	for i, code := range points {
		rows[i] = membership{Code: code, In: in[i]}
		if in[i] {
			matched = append(matched, code)
		}
	}

	switch p.format {
	case "json":
		return p.json(rows)
	case "geojson":
		return p.codes(matched)
	}

	for _, r := range rows {
		verdict := p.styles.miss.Render("out")
		if r.In {
			verdict = p.styles.success.Render("in")
		}
		fmt.Fprintf(p.w, "%s %s\n", p.styles.code.Render(r.Code), verdict)
	}
	return nil
}
