package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"songplaydw/internal/pipeline"
)

// RenderAudit writes the row counts as a table.
func RenderAudit(w io.Writer, report *pipeline.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Role", "Rows", "Elapsed"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	var total int64
	for _, c := range report.Counts {
		rows := strconv.FormatInt(c.Count, 10)
		if c.Count == 0 && supportsColor {
			rows = color.YellowString(rows)
		}
		table.Append([]string{c.Table, c.Role, rows, formatDuration(c.Elapsed)})
		total += c.Count
	}
	table.SetFooter([]string{"", "total", strconv.FormatInt(total, 10), ""})
	table.Render()
}

// RenderSources writes the verification result of each location.
func RenderSources(w io.Writer, checks []pipeline.SourceCheck) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Location", "Kind", "Status"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, c := range checks {
		kind := "object"
		if c.Prefix {
			kind = "prefix"
		}
		status := "found"
		if !c.Found {
			status = "missing"
			if c.Error != "" {
				status = "error"
			}
		}
		if supportsColor {
			if c.Found {
				status = color.GreenString(status)
			} else {
				status = color.RedString(status)
			}
		}
		table.Append([]string{c.Key, c.Location, kind, status})
	}
	table.Render()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
