// Package report renders query results, pair listings, evaluations, build
// summaries and S-curves as tables, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ErrUnknownFormat is returned by ParseFormat for an unsupported name.
var ErrUnknownFormat = errors.New("report: unknown format")

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Writer renders reports in one format.
type Writer struct {
	out    io.Writer
	format Format
	match  *color.Color
	dim    *color.Color
}

// Option configures a Writer.
type Option func(*Writer)

// WithColor enables or disables ANSI highlighting in tables. The default
// follows fatih/color's terminal detection.
func WithColor(enabled bool) Option {
	return func(w *Writer) {
		if enabled {
			w.match.EnableColor()
			w.dim.EnableColor()
		} else {
			w.match.DisableColor()
			w.dim.DisableColor()
		}
	}
}

// NewWriter creates a writer that renders to out.
func NewWriter(out io.Writer, format Format, opts ...Option) *Writer {
	w := &Writer{
		out:    out,
		format: format,
		match:  color.New(color.FgGreen, color.Bold),
		dim:    color.New(color.Faint),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Format returns the writer's format.
func (w *Writer) Format() Format {
	return w.format
}

// encode writes v as JSON or YAML. It reports false for the table format.
func (w *Writer) encode(v any) (bool, error) {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("report: encode json: %w", err)
		}

		return true, nil
	case FormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("report: encode yaml: %w", err)
		}

		if err := enc.Close(); err != nil {
			return true, fmt.Errorf("report: encode yaml: %w", err)
		}

		return true, nil
	case FormatTable:
		return false, nil
	default:
		return true, fmt.Errorf("%w: %q", ErrUnknownFormat, w.format)
	}
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	return tbl
}

func (w *Writer) render(title string, tbl table.Writer) error {
	var b strings.Builder

	if title != "" {
		b.WriteString(title)
		b.WriteString("\n")
	}

	b.WriteString(tbl.Render())
	b.WriteString("\n")

	if _, err := io.WriteString(w.out, b.String()); err != nil {
		return fmt.Errorf("report: write table: %w", err)
	}

	return nil
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.4f", score)
}
