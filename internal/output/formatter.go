package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Format represents supported output formats
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"

	// tabwriterPadding is the padding between columns in table output
	tabwriterPadding = 2
)

// Formatter handles output formatting for command results
type Formatter struct {
	writer io.Writer
	format Format
}

// NewFormatter creates a formatter writing to stdout
// Defaults to table format if invalid format provided
func NewFormatter(format string) *Formatter {
	return NewFormatterTo(os.Stdout, format)
}

// NewFormatterTo creates a formatter writing to w
func NewFormatterTo(w io.Writer, format string) *Formatter {
	f := Format(format)
	if f != FormatTable && f != FormatJSON {
		f = FormatTable
	}
	return &Formatter{
		writer: w,
		format: f,
	}
}

// Table represents a table with headers and rows
type Table struct {
	Headers []string
	Rows    [][]string
}

// Field is a single labelled value in a result summary
type Field struct {
	Key   string
	Value string
}

// PrintTable prints data in the configured format (table or json)
func (f *Formatter) PrintTable(table Table) error {
	if len(table.Rows) == 0 {
		if f.format == FormatJSON {
			return f.printJSON([]map[string]string{})
		}
		_, _ = fmt.Fprintln(f.writer, "No data found")
		return nil
	}

	if f.format == FormatJSON {
		return f.printJSON(tableToMaps(table))
	}
	return f.printTable(table)
}

// PrintFields prints a result summary: aligned "KEY: value" lines for
// table output, one flat object for json output
func (f *Formatter) PrintFields(fields []Field) error {
	if f.format == FormatJSON {
		obj := make(map[string]string, len(fields))
		for _, field := range fields {
			obj[field.Key] = field.Value
		}
		return f.printJSON(obj)
	}

	w := tabwriter.NewWriter(f.writer, 0, 0, tabwriterPadding, ' ', 0)
	for _, field := range fields {
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", strings.ToUpper(field.Key), field.Value)
	}
	return w.Flush()
}

// printTable prints data in table format using tabwriter
func (f *Formatter) printTable(table Table) error {
	w := tabwriter.NewWriter(f.writer, 0, 0, tabwriterPadding, ' ', 0)

	_, _ = fmt.Fprintln(w, strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	return w.Flush()
}

func (f *Formatter) printJSON(data interface{}) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// tableToMaps converts a Table to a slice of maps for JSON output
func tableToMaps(table Table) []map[string]string {
	result := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		item := make(map[string]string)
		for i, header := range table.Headers {
			if i < len(row) {
				item[header] = row[i]
			}
		}
		result = append(result, item)
	}
	return result
}

// PrintMessage prints a simple message (only in table format, ignored in JSON)
func (f *Formatter) PrintMessage(message string) {
	if f.format == FormatTable {
		_, _ = fmt.Fprintln(f.writer, message)
	}
}
