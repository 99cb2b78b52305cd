package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// header names shared by the tabular formatters.
var columns = []string{"NAME", "VERSION", "REPO", "INSTALLED", "SIZE", "STATUS"}

// rowFields renders a Row into the shared column set.
func rowFields(row Row) []string {
	installed := "-"
	if row.Installed {
		installed = row.InstalledVersion
		if installed == "" {
			installed = "yes"
		}
	}

	size := "-"
	if row.ModulesSizeHuman != "" {
		size = row.ModulesSizeHuman
	}

	var status []string
	if row.Running {
		status = append(status, "running")
	}
	if row.UpdateAvailable {
		status = append(status, "update")
	}
	statusCol := strings.Join(status, ",")
	if statusCol == "" {
		statusCol = "-"
	}

	return []string{row.Name, row.Version, row.Repo, installed, size, statusCol}
}

// TableFormatter renders an aligned text table.
type TableFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TableFormatter) Format(w *bytes.Buffer, r *Result) error {
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}

	rows := make([][]string, 0, len(r.Kernels))
	for _, kernel := range r.Kernels {
		fields := rowFields(kernel)
		for i, field := range fields {
			if len(field) > widths[i] {
				widths[i] = len(field)
			}
		}
		rows = append(rows, fields)
	}

	writeAligned := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				w.WriteString("  ")
			}
			fmt.Fprintf(w, "%-*s", widths[i], field)
		}
		w.WriteString("\n")
	}

	writeAligned(columns)
	for _, fields := range rows {
		writeAligned(fields)
	}

	if r.Scheduler != "" {
		fmt.Fprintf(w, "\nsched_ext: %s\n", r.Scheduler)
	}
	return nil
}

// TSVFormatter renders tab-separated values.
type TSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(strings.Join(columns, "\t") + "\n")
	for _, kernel := range r.Kernels {
		w.WriteString(strings.Join(rowFields(kernel), "\t") + "\n")
	}
	return nil
}

// CSVFormatter renders RFC 4180 comma-separated values.
type CSVFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *CSVFormatter) Format(w *bytes.Buffer, r *Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, kernel := range r.Kernels {
		if err := writer.Write(rowFields(kernel)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func init() {
	Register("table", func() Formatter { return &TableFormatter{} })
	Register("tsv", func() Formatter { return &TSVFormatter{} })
	Register("csv", func() Formatter { return &CSVFormatter{} })
}

var (
	_ Formatter = (*TableFormatter)(nil)
	_ Formatter = (*TSVFormatter)(nil)
	_ Formatter = (*CSVFormatter)(nil)
)
