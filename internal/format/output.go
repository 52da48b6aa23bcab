package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"reqsender/internal/menu"
	"reqsender/internal/model"
)

// Out receives all rendered output
var Out io.Writer = color.Output

// sanitizeOutput removes or escapes potentially dangerous control characters
// that could manipulate terminal display or execute commands
func sanitizeOutput(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			result.WriteRune(r)
		case r == '\x1b':
			// Escape ANSI escape sequences - replace ESC with visible representation
			result.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		case r == 0x7F:
			result.WriteString("\\x7f")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	clientErrColor = color.New(color.FgRed, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	fieldColor     = color.New(color.FgYellow)
	dimColor       = color.New(color.Faint)
)

// PrintResult prints the outcome of a dispatch
func PrintResult(result model.DispatchResult, showHeaders bool) {
	printStatusLine(result)

	dimColor.Fprintf(Out, "  Time: %dms\n", result.DurationMs)
	if result.Degraded {
		redirectColor.Fprintln(Out, "  Body was sent as plain text: it was no longer valid JSON after substitution")
	}
	fmt.Fprintln(Out)

	if showHeaders {
		printHeaders("Headers:", result.ResponseHeaders)
	}

	printBody(result.ResponseText())
}

func printStatusLine(result model.DispatchResult) {
	statusColor := getStatusColor(result.Status)
	if result.Status == 0 {
		statusColor.Fprintf(Out, "%s\n", sanitizeOutput(result.StatusText))
		if result.Error != "" {
			dimColor.Fprintf(Out, "  %s\n", sanitizeOutput(result.Error))
		}
		return
	}
	statusColor.Fprintf(Out, "%d %s\n", result.Status, sanitizeOutput(result.StatusText))
}

func getStatusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return successColor
	case code >= 300 && code < 400:
		return redirectColor
	case code >= 400 && code < 500:
		return clientErrColor
	default:
		return serverErrColor
	}
}

func printHeaders(title string, headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	fmt.Fprintln(Out, title)

	// Sort headers for consistent output
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		headerKeyColor.Fprintf(Out, "  %s: ", sanitizeOutput(key))
		fmt.Fprintln(Out, sanitizeOutput(headers[key]))
	}
	fmt.Fprintln(Out)
}

func printBody(body string) {
	if body == "" {
		dimColor.Fprintln(Out, "(empty body)")
		return
	}

	// Try to pretty-print JSON, then sanitize output for terminal safety
	fmt.Fprintln(Out, sanitizeOutput(prettyJSON(body)))
}

func prettyJSON(s string) string {
	var out bytes.Buffer
	err := json.Indent(&out, []byte(s), "", "  ")
	if err != nil {
		// Not valid JSON, return as-is
		return s
	}
	return out.String()
}

// PrintLogDetail prints the full request snapshot and result of a log entry
func PrintLogDetail(entry model.LogEntry) {
	fmt.Fprintln(Out, "Request:")
	fmt.Fprintln(Out, strings.Repeat("-", 40))
	if entry.Request.Name != "" {
		headerKeyColor.Fprintln(Out, sanitizeOutput(entry.Request.Name))
	}
	methodColor.Fprintf(Out, "%s ", entry.Request.Method)
	urlColor.Fprintln(Out, sanitizeOutput(entry.Request.URL))
	dimColor.Fprintf(Out, "ID: %s\n", entry.ID)
	dimColor.Fprintf(Out, "Time: %s\n\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05"))

	printHeaders("Headers:", entry.Request.Headers)

	if entry.Request.Body != "" {
		fmt.Fprintln(Out, "Body:")
		fmt.Fprintln(Out, sanitizeOutput(prettyJSON(entry.Request.Body)))
		fmt.Fprintln(Out)
	}

	fmt.Fprintln(Out, "\nResponse:")
	fmt.Fprintln(Out, strings.Repeat("-", 40))
	PrintResult(entry.Result, true)
}

// PrintLogList prints log entries, newest first, in a compact format
func PrintLogList(entries []model.LogEntry, limit int, empty string) {
	if len(entries) == 0 {
		dimColor.Fprintln(Out, empty)
		return
	}

	count := len(entries)
	if limit > 0 && limit < count {
		count = limit
	}

	for i := 0; i < count; i++ {
		entry := entries[i]
		dimColor.Fprintf(Out, "[%d] ", i+1)
		dimColor.Fprintf(Out, "%s ", entry.Timestamp.Local().Format("01-02 15:04:05"))
		methodColor.Fprintf(Out, "%-7s ", entry.Request.Method)

		name := entry.Request.Name
		if len(name) > 20 {
			name = name[:17] + "..."
		}
		fmt.Fprintf(Out, "%-20s ", sanitizeOutput(name))

		// Truncate URL if too long, then sanitize
		url := entry.Request.URL
		if len(url) > 50 {
			url = url[:47] + "..."
		}
		urlColor.Fprintf(Out, "%-50s ", sanitizeOutput(url))

		statusColor := getStatusColor(entry.Result.Status)
		statusColor.Fprintf(Out, "%d ", entry.Result.Status)
		dimColor.Fprintf(Out, "(%dms) %s", entry.Result.DurationMs, entry.ID[:min(8, len(entry.ID))])
		fmt.Fprintln(Out)
	}

	if limit > 0 && len(entries) > limit {
		dimColor.Fprintf(Out, "\n... and %d more entries\n", len(entries)-limit)
	}
}

// PrintTemplateList prints the saved templates with their fields
func PrintTemplateList(templates []model.RequestTemplate, fieldsOf func(model.RequestTemplate) []string, empty string) {
	if len(templates) == 0 {
		dimColor.Fprintln(Out, empty)
		return
	}

	for i, t := range templates {
		dimColor.Fprintf(Out, "[%d] ", i+1)
		headerKeyColor.Fprintf(Out, "%s ", sanitizeOutput(t.Name))
		methodColor.Fprintf(Out, "%s ", t.Method)
		urlColor.Fprint(Out, sanitizeOutput(t.URL))
		if fields := fieldsOf(t); len(fields) > 0 {
			fieldColor.Fprintf(Out, " {%s}", sanitizeOutput(strings.Join(fields, ", ")))
		}
		dimColor.Fprintf(Out, "  %s\n", t.ID)
	}
}

// PrintTemplate prints one template in full
func PrintTemplate(t model.RequestTemplate, fields []string) {
	headerKeyColor.Fprintln(Out, sanitizeOutput(t.Name))
	fmt.Fprintln(Out, strings.Repeat("-", 40))
	methodColor.Fprintf(Out, "%s ", t.Method)
	urlColor.Fprintln(Out, sanitizeOutput(t.URL))
	dimColor.Fprintf(Out, "ID: %s\n", t.ID)
	if t.ContentType != "" {
		dimColor.Fprintf(Out, "Content-Type: %s\n", sanitizeOutput(t.ContentType))
	}
	fmt.Fprintln(Out)

	if headers := t.HeadersText(); headers != "" {
		fmt.Fprintln(Out, "Headers:")
		fmt.Fprintln(Out, sanitizeOutput(prettyJSON(headers)))
		fmt.Fprintln(Out)
	}
	if body := t.BodyText(); body != "" {
		fmt.Fprintln(Out, "Body:")
		fmt.Fprintln(Out, sanitizeOutput(prettyJSON(body)))
		fmt.Fprintln(Out)
	}

	PrintFields(fields, "")
}

// PrintFields prints the placeholder fields of a template
func PrintFields(fields []string, empty string) {
	if len(fields) == 0 {
		if empty != "" {
			dimColor.Fprintln(Out, empty)
		}
		return
	}
	fmt.Fprintln(Out, "Fields:")
	for _, f := range fields {
		fieldColor.Fprintf(Out, "  {{%s}}\n", sanitizeOutput(f))
	}
}

// PrintMenu prints the context menu tree with the ids accepted by "menu click"
func PrintMenu(root menu.Item) {
	headerKeyColor.Fprintln(Out, sanitizeOutput(root.Title))
	for i, item := range root.Children {
		branch := "├─"
		if i == len(root.Children)-1 {
			branch = "└─"
		}
		fmt.Fprintf(Out, "%s %s ", branch, sanitizeOutput(item.Title))
		dimColor.Fprintf(Out, "(%s)\n", item.ID)

		for j, child := range item.Children {
			indent := "│  "
			if i == len(root.Children)-1 {
				indent = "   "
			}
			leaf := "├─"
			if j == len(item.Children)-1 {
				leaf = "└─"
			}
			fmt.Fprintf(Out, "%s%s ", indent, leaf)
			fieldColor.Fprintf(Out, "%s ", sanitizeOutput(child.Title))
			dimColor.Fprintf(Out, "(%s)\n", child.ID)
		}
	}
}

// PrintJSON prints v as indented JSON
func PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(Out, string(data))
	return nil
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	successColor.Fprintf(Out, "✓ %s\n", msg)
}

// PrintError prints an error message
func PrintError(msg string) {
	clientErrColor.Fprintf(Out, "✗ %s\n", msg)
}

// PrintWarning prints a warning message
func PrintWarning(msg string) {
	redirectColor.Fprintf(Out, "! %s\n", msg)
}
