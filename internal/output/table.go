package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders results as ASCII or markdown tables.
type TableFormatter struct {
	Markdown bool
}

// FormatResult renders a tool result as one or more tables. Scalar fields
// become field/value rows; list-of-object fields get their own table each.
func (f *TableFormatter) FormatResult(tool string, result any) (string, error) {
	if result == nil {
		return "", nil
	}

	normalized, err := normalize(result)
	if err != nil {
		return "", err
	}

	switch value := normalized.(type) {
	case map[string]any:
		return f.renderObject(tool, value), nil
	case []any:
		return f.renderRecords(tool, value), nil
	default:
		return fmt.Sprintf("%s: %s", tool, formatValue(value)), nil
	}
}

func (f *TableFormatter) renderObject(tool string, fields map[string]any) string {
	scalars := table.NewWriter()
	scalars.SetStyle(table.StyleRounded)
	scalars.SetTitle(tool)
	scalars.AppendHeader(table.Row{"Field", "Value"})

	lists := make(map[string][]any)
	for _, key := range sortedKeys(fields) {
		value := fields[key]
		if records, ok := asRecordList(value); ok {
			lists[key] = records
			continue
		}
		scalars.AppendRow(table.Row{key, formatValue(value)})
	}

	sections := []string{f.render(scalars)}
	for _, key := range sortedKeys(lists) {
		records := lists[key]
		if len(records) == 0 {
			continue
		}
		sections = append(sections, f.renderRecords(key, records))
	}

	return strings.Join(sections, "\n\n")
}

func (f *TableFormatter) renderRecords(title string, records []any) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)

	columns := recordColumns(records)
	header := make(table.Row, 0, len(columns))
	for _, column := range columns {
		header = append(header, column)
	}
	t.AppendHeader(header)

	for _, record := range records {
		fields, ok := record.(map[string]any)
		if !ok {
			t.AppendRow(table.Row{formatValue(record)})
			continue
		}
		row := make(table.Row, 0, len(columns))
		for _, column := range columns {
			row = append(row, formatValue(fields[column]))
		}
		t.AppendRow(row)
	}

	return f.render(t)
}

func (f *TableFormatter) render(t table.Writer) string {
	if f.Markdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

// normalize flattens structs and typed slices into the same shapes a JSON
// decoder produces, so rendering only has to handle maps, slices, and scalars.
func normalize(result any) (any, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var normalized any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func asRecordList(value any) ([]any, bool) {
	records, ok := value.([]any)
	if !ok || len(records) == 0 {
		return nil, false
	}
	if _, ok := records[0].(map[string]any); !ok {
		return nil, false
	}
	return records, true
}

func recordColumns(records []any) []string {
	seen := make(map[string]bool)
	columns := make([]string, 0)
	for _, record := range records {
		fields, ok := record.(map[string]any)
		if !ok {
			continue
		}
		for key := range fields {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		columns = append(columns, "value")
	}
	return columns
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', 2, 64)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}
