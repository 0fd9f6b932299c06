package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}

// writeResult renders result to w in the given format.
func writeResult(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		return writeText(w, result)
	}
	return validateFormat(format)
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func writeObjectsText(w io.Writer, objs []CLIObject) {
	table := newTable(w, "ID", "NAME", "MODULE", "PROPERTIES", "GENERATED", "FILE", "LINE")
	for _, o := range objs {
		table.Append([]string{
			strconv.FormatInt(o.ID, 10), o.Name, o.Module, strconv.Itoa(o.PropertyCount),
			yesNo(o.Generated), o.File, strconv.Itoa(o.Line),
		})
	}
	table.Render()
}

func writePropertiesText(w io.Writer, props []CLIProperty) {
	table := newTable(w, "NAME", "TYPE", "GETTER", "SETTER", "NOTIFY", "UNSAFE")
	for _, p := range props {
		table.Append([]string{p.Name, p.Type, p.Getter, p.Setter, p.Notify, yesNo(p.Unsafe)})
	}
	table.Render()
}

func writeSignalsText(w io.Writer, signals []CLISignal) {
	table := newTable(w, "RUST", "C++", "ORIGIN")
	for _, s := range signals {
		table.Append([]string{s.RustName, s.CppName, s.Origin})
	}
	table.Render()
}

// writeText dispatches on the result type.
func writeText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIObject:
		writeObjectsText(w, v)
	case []CLIProperty:
		writePropertiesText(w, v)
	case []CLISignal:
		writeSignalsText(w, v)
	case CLIQualified:
		unsafe := ""
		if v.Unsafe {
			unsafe = " (unsafe)"
		}
		fmt.Fprintf(w, "%s%s\n", v.Qualified, unsafe)
	case CLISource:
		io.WriteString(w, v.Source)
	case CLIGenerate:
		fmt.Fprintf(w, "Files: %d\nObjects: %d\nGenerated: %d\nSkipped: %d\nDatabase: %s\n",
			v.Files, v.Objects, v.Generated, v.Skipped, v.Database)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		shown := resultLen(result.Results)
		if shown < *result.TotalCount {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, *result.TotalCount)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLIObject:
		return len(r)
	case []CLIProperty:
		return len(r)
	case []CLISignal:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}
