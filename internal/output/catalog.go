package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/blencorp/capture-mcp-server/internal/tools"
)

// FormatCatalog renders the tool catalog as a table.
func FormatCatalog(format Format, descriptors []tools.Descriptor) (string, error) {
	if format == FormatJSON {
		return (&JSONFormatter{Indent: true}).FormatResult("tools", descriptors)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Tool", "Description", "Parameters"})

	for _, descriptor := range descriptors {
		t.AppendRow(table.Row{
			string(descriptor.Name),
			descriptor.Description,
			paramSummary(descriptor.Params),
		})
	}

	if format == FormatMarkdown {
		return t.RenderMarkdown(), nil
	}
	return t.Render(), nil
}

// paramSummary lists parameter names, marking required ones with an asterisk.
func paramSummary(params []tools.Param) string {
	names := make([]string, 0, len(params))
	for _, param := range params {
		name := param.Name
		if param.Required {
			name += "*"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
