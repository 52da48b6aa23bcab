package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"reqsender/internal/format"
	"reqsender/internal/model"
	"reqsender/internal/notify"
	"reqsender/internal/sender"
)

var (
	headers     []string
	data        string
	contentType string
	noHistory   bool
	saveAs      string
)

func init() {
	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"} {
		c := &cobra.Command{
			Use:   strings.ToLower(method) + " <url>",
			Short: fmt.Sprintf("Send an ad-hoc %s request", method),
			Args:  cobra.ExactArgs(1),
			Run:   runRequest(method),
		}
		addRequestFlags(c)
		c.Flags().BoolVar(&noHistory, "no-history", false, "Don't record the request in the logs")
		c.Flags().StringVar(&saveAs, "save", "", "Also save the request as a template with this name")
		rootCmd.AddCommand(c)
	}
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Add header (can be used multiple times)")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Request body (JSON string or @filename)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Body content type (application/json enables JSON-aware fields)")
}

func runRequest(method string) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		a := mustApp()
		url := args[0]
		verbose, _ := cmd.Flags().GetBool("verbose")

		headerMap := parseHeaders(headers)
		body := mustReadBody(data)
		ct := requestContentType(contentType, headerMap, body)

		// Warn if body contains potentially sensitive data
		if !noHistory {
			warnIfSensitiveBody(body)
		}

		req := model.ConcreteRequest{
			Name:        method + " " + url,
			Method:      method,
			URL:         url,
			Headers:     headerMap,
			Body:        body,
			ContentType: ct,
			BodyIsJSON:  model.IsJSONContentType(ct) && json.Valid([]byte(body)),
		}

		var logs sender.LogAppender
		if !noHistory {
			logs = a.store
		}
		entry, err := a.newSender(logs, notify.Log{}).SendConcrete(cmd.Context(), req)
		if err != nil {
			format.PrintError(fmt.Sprintf("Request failed: %v", err))
			os.Exit(1)
		}

		format.PrintResult(entry.Result, verbose)

		if saveAs != "" {
			t := model.RequestTemplate{
				ID:          uuid.New().String(),
				Name:        saveAs,
				URL:         url,
				Method:      method,
				ContentType: ct,
			}
			t.SetHeaders(sender.FilterSensitiveHeaders(headerMap))
			setTemplateBody(&t, body)
			saveTemplate(a, t, a.msg("requestAdded"))
		}
	}
}

func parseHeaders(headerStrings []string) map[string]string {
	result := make(map[string]string)
	for _, h := range headerStrings {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// requestContentType picks the explicit flag, then a Content-Type header,
// then application/json for a body that parses as JSON
func requestContentType(flag string, headerMap map[string]string, body string) string {
	if flag != "" {
		return flag
	}
	for k, v := range headerMap {
		if strings.EqualFold(k, "Content-Type") {
			return v
		}
	}
	if body != "" && json.Valid([]byte(body)) {
		return model.ContentTypeJSON
	}
	return ""
}

// mustReadBody expands an @file reference, exiting on failure
func mustReadBody(body string) string {
	if !strings.HasPrefix(body, "@") {
		return body
	}
	content, err := readBodyFromFile(strings.TrimPrefix(body, "@"))
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to read file: %v", err))
		os.Exit(1)
	}
	return content
}

// readBodyFromFile reads file content with path validation to prevent directory traversal
func readBodyFromFile(filename string) (string, error) {
	// Get working directory
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	// Get absolute path of the requested file
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return "", fmt.Errorf("invalid file path: %w", err)
	}

	// Clean the path to resolve any .. or . components
	cleanPath := filepath.Clean(absPath)

	// Ensure file is within working directory (prevent path traversal)
	if !strings.HasPrefix(cleanPath, wd+string(filepath.Separator)) && cleanPath != wd {
		return "", fmt.Errorf("access denied: file must be within current directory")
	}

	// Check for symlinks - resolve and verify target is also within working directory
	realPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		// If file doesn't exist, we'll let ReadFile handle the error
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = cleanPath
	} else {
		if !strings.HasPrefix(realPath, wd+string(filepath.Separator)) && realPath != wd {
			return "", fmt.Errorf("access denied: symlink target must be within current directory")
		}
	}

	content, err := os.ReadFile(realPath)
	if err != nil {
		return "", err
	}

	return string(content), nil
}

// warnIfSensitiveBody warns when the body might contain secrets that will be logged
func warnIfSensitiveBody(body string) {
	if sender.LooksSensitive(body) {
		fmt.Fprintln(os.Stderr, "WARNING: Request body may contain sensitive data (e.g., passwords, tokens). This will be stored in the logs.")
		fmt.Fprintln(os.Stderr, "         Use --no-history flag to skip storing this request.")
	}
}
