package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"reqsender/internal/format"
	"reqsender/internal/model"
	"reqsender/internal/storage"
	"reqsender/internal/templating"
)

var (
	templateMethod string
	templateName   string
	templateURL    string
	templateJSON   bool
)

func init() {
	templateCmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"tpl", "t"},
		Short:   "Manage saved request templates",
		Long: `Manage saved request templates.

Any {{name}} in the URL, headers or body is a dynamic field that is filled
in when the template is sent.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all templates",
		Run:   runTemplateList,
	}
	listCmd.Flags().BoolVar(&templateJSON, "json", false, "Print as JSON")

	createCmd := &cobra.Command{
		Use:   "create <name> <url>",
		Short: "Create a new template",
		Long: `Create a new template.

Example:
  reqsender template create "Create issue" https://api.example.com/issues \
    -H 'Authorization: Bearer {{token}}' \
    -d '{"title": "{{title}}"}' --content-type application/json`,
		Args: cobra.ExactArgs(2),
		Run:  runTemplateCreate,
	}
	addRequestFlags(createCmd)
	createCmd.Flags().StringVarP(&templateMethod, "method", "X", "", "HTTP method (defaults to POST)")

	showCmd := &cobra.Command{
		Use:   "show <id, name or index>",
		Short: "Show a template",
		Args:  cobra.ExactArgs(1),
		Run:   runTemplateShow,
	}
	showCmd.Flags().BoolVar(&templateJSON, "json", false, "Print as JSON")

	editCmd := &cobra.Command{
		Use:   "edit <id, name or index>",
		Short: "Change fields of a template",
		Long: `Change fields of a template. Only the flags given are changed.

Example:
  reqsender template edit "Create issue" -X PUT --url https://api.example.com/issues/{{id}}`,
		Args: cobra.ExactArgs(1),
		Run:  runTemplateEdit,
	}
	addRequestFlags(editCmd)
	editCmd.Flags().StringVarP(&templateMethod, "method", "X", "", "HTTP method")
	editCmd.Flags().StringVar(&templateName, "name", "", "New name")
	editCmd.Flags().StringVar(&templateURL, "url", "", "New URL")

	deleteCmd := &cobra.Command{
		Use:   "delete <id, name or index>",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		Run:   runTemplateDelete,
	}

	fieldsCmd := &cobra.Command{
		Use:   "fields <id, name or index>",
		Short: "List the dynamic fields of a template",
		Args:  cobra.ExactArgs(1),
		Run:   runTemplateFields,
	}

	templateCmd.AddCommand(listCmd, createCmd, showCmd, editCmd, deleteCmd, fieldsCmd)
	rootCmd.AddCommand(templateCmd)
}

func runTemplateList(cmd *cobra.Command, args []string) {
	a := mustApp()

	templates, err := a.store.ListTemplates()
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to load templates: %v", err))
		os.Exit(1)
	}

	if templateJSON {
		format.PrintJSON(templates)
		return
	}
	format.PrintTemplateList(templates, templating.ExtractFields, a.msg("noRequests"))
}

func runTemplateCreate(cmd *cobra.Command, args []string) {
	a := mustApp()

	headerMap := parseHeaders(headers)
	body := mustReadBody(data)

	t := model.RequestTemplate{
		ID:          uuid.New().String(),
		Name:        args[0],
		URL:         args[1],
		Method:      templateMethod,
		ContentType: requestContentType(contentType, headerMap, body),
	}
	if t.Method == "" {
		t.Method = a.profile.DefaultMethod
	}
	t.SetHeaders(headerMap)
	setTemplateBody(&t, body)

	saveTemplate(a, t, a.msg("requestAdded"))
}

func runTemplateShow(cmd *cobra.Command, args []string) {
	a := mustApp()
	t := a.mustFindTemplate(args[0])

	if templateJSON {
		format.PrintJSON(t)
		return
	}
	format.PrintTemplate(*t, templating.ExtractFields(*t))
}

func runTemplateEdit(cmd *cobra.Command, args []string) {
	a := mustApp()
	t := a.mustFindTemplate(args[0]).Clone()

	flags := cmd.Flags()
	if flags.Changed("name") {
		t.Name = templateName
	}
	if flags.Changed("url") {
		t.URL = templateURL
	}
	if flags.Changed("method") {
		t.Method = templateMethod
	}
	if flags.Changed("header") {
		t.SetHeaders(parseHeaders(headers))
	}
	if flags.Changed("content-type") {
		t.ContentType = contentType
	}
	if flags.Changed("data") {
		setTemplateBody(&t, mustReadBody(data))
	}

	saveTemplate(a, t, a.msg("requestUpdated"))
}

func runTemplateDelete(cmd *cobra.Command, args []string) {
	a := mustApp()
	t := a.mustFindTemplate(args[0])

	err := a.store.DeleteTemplate(t.ID)
	if errors.Is(err, storage.ErrTemplateNotFound) {
		format.PrintError(fmt.Sprintf("Template not found: %s", args[0]))
		os.Exit(1)
	}
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to delete template: %v", err))
		os.Exit(1)
	}

	msg := a.msg("requestDeleted")
	if a.profile.Name == model.WebhookProfile.Name {
		msg = a.msg("webhookDeleted")
	}
	format.PrintSuccess(fmt.Sprintf("%s: %s", msg, t.Name))
}

func runTemplateFields(cmd *cobra.Command, args []string) {
	a := mustApp()
	t := a.mustFindTemplate(args[0])
	format.PrintFields(templating.ExtractFields(*t), a.msg("noDynamicFields"))
}

// setTemplateBody stores a JSON-typed body that parses as JSON as a raw
// value, and anything else as a string
func setTemplateBody(t *model.RequestTemplate, body string) {
	trimmed := strings.TrimSpace(body)
	if t.IsJSON() && trimmed != "" && json.Valid([]byte(trimmed)) {
		t.Body = json.RawMessage(trimmed)
		return
	}
	t.SetBodyText(body)
}

// saveTemplate validates and stores t, exiting on failure
func saveTemplate(a *app, t model.RequestTemplate, done string) {
	if err := t.Validate(); err != nil {
		format.PrintError(fmt.Sprintf("Invalid template: %v", err))
		os.Exit(1)
	}
	if err := a.store.SaveTemplate(t); err != nil {
		format.PrintError(fmt.Sprintf("Failed to save template: %v", err))
		os.Exit(1)
	}
	format.PrintSuccess(fmt.Sprintf("%s: %s (%s)", done, t.Name, t.ID))
}
