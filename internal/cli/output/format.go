// Package output renders CLI results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output format name.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

var formatAliases = map[string]Format{
	"":      FormatTable,
	"table": FormatTable,
	"json":  FormatJSON,
	"yaml":  FormatYAML,
	"yml":   FormatYAML,
}

// ParseFormat parses a --output flag value. The empty string selects table.
func ParseFormat(s string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("invalid output format %q (want table, json or yaml)", s)
}

func (f Format) String() string { return string(f) }

// Printer writes command results in one format. Status lines go to the same
// writer and are colored when color is set.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Print renders data. Table output needs a TableRenderer; other values are
// printed as JSON.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatJSON:
		return PrintJSON(p.out, data)
	case FormatYAML:
		return PrintYAML(p.out, data)
	case FormatTable:
		if t, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, t)
		}
		return PrintJSON(p.out, data)
	}
	return fmt.Errorf("unsupported output format %q", p.format)
}

const (
	green  = "\033[32m"
	yellow = "\033[33m"
	red    = "\033[31m"
)

func (p *Printer) Success(msg string) { p.line(green, msg) }
func (p *Printer) Warning(msg string) { p.line(yellow, msg) }
func (p *Printer) Error(msg string)   { p.line(red, msg) }

func (p *Printer) line(ansi, msg string) {
	if p.color {
		msg = ansi + msg + "\033[0m"
	}
	_, _ = io.WriteString(p.out, msg+"\n")
}

// PrintJSON writes data as JSON indented by two spaces.
func PrintJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintYAML writes data as a YAML document.
func PrintYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}
