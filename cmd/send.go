package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"reqsender/internal/format"
	"reqsender/internal/model"
	"reqsender/internal/notify"
	"reqsender/internal/sender"
	"reqsender/internal/templating"
)

var (
	setValues   []string
	selection   string
	targetField string
	interactive bool
)

func init() {
	sendCmd := &cobra.Command{
		Use:   "send <id, name or index>",
		Short: "Fill in and send a saved template",
		Long: `Fill in and send a saved template.

Field values come from --set, or from --selection, which sends a piece of
text the way a context menu click does: into --field when given, otherwise
as the body. Use --selection - to read the text from stdin. With --field
and -i, the remaining fields are prompted for.

Examples:
  reqsender send Search --set term=golang
  reqsender send Search -i
  reqsender send "Create issue" --selection "Broken link" --field title
  reqsender send "Create issue" --selection "Broken link" --field title -i
  pbpaste | reqsender send Notes --selection -`,
		Args: cobra.ExactArgs(1),
		Run:  runSend,
	}
	sendCmd.Flags().StringArrayVar(&setValues, "set", []string{}, "Field value as name=value (can be used multiple times)")
	sendCmd.Flags().StringVar(&selection, "selection", "", "Send this text as the selection (- reads stdin)")
	sendCmd.Flags().StringVar(&targetField, "field", "", "Field that receives the selection")
	sendCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for missing field values")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) {
	a := mustApp()
	verbose, _ := cmd.Flags().GetBool("verbose")
	t := a.mustFindTemplate(args[0])
	s := a.newSender(a.store, notify.NewTerminal())

	var (
		entry model.LogEntry
		err   error
	)
	hasSelection := cmd.Flags().Changed("selection")
	text := selection
	if hasSelection && text == "-" {
		text, err = readSelection(os.Stdin)
		if err != nil {
			format.PrintError(fmt.Sprintf("Failed to read selection: %v", err))
			os.Exit(1)
		}
	}

	if hasSelection && !(interactive && targetField != "") {
		entry, err = s.SendSelection(cmd.Context(), *t, text, targetField)
	} else {
		values, perr := parseValues(setValues)
		if perr != nil {
			format.PrintError(perr.Error())
			os.Exit(1)
		}
		if hasSelection {
			values[targetField] = text
		}
		if interactive {
			if err := fillMissing(os.Stdin, os.Stderr, *t, values, a.msg); err != nil {
				format.PrintError(fmt.Sprintf("Failed to read values: %v", err))
				os.Exit(1)
			}
		}
		entry, err = s.Send(cmd.Context(), *t, values)
	}

	if errors.Is(err, sender.ErrValidation) {
		format.PrintError(err.Error())
		if missing := templating.MissingFields(*t, nil); len(missing) > 0 && !hasSelection {
			format.PrintFields(missing, "")
		}
		os.Exit(1)
	}
	if err != nil {
		format.PrintError(fmt.Sprintf("%s: %v", a.msg("requestSentError"), err))
		os.Exit(1)
	}

	format.PrintResult(entry.Result, verbose)
	if !entry.Result.Success {
		os.Exit(1)
	}
}

// fillMissing prompts for every field of t that values does not cover
func fillMissing(in io.Reader, out io.Writer, t model.RequestTemplate, values map[string]string, msg func(string, ...string) string) error {
	missing := templating.MissingFields(t, values)
	if len(missing) == 0 {
		return nil
	}
	fmt.Fprintln(out, msg("fillParameters"))
	return promptValues(in, out, missing, values, msg)
}

// parseValues turns name=value pairs into a field map
func parseValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", p)
		}
		values[name] = value
	}
	return values, nil
}

// promptValues asks for each missing field on out and reads one line per field from in
func promptValues(in io.Reader, out io.Writer, fields []string, values map[string]string, msg func(string, ...string) string) error {
	reader := bufio.NewReader(in)
	for _, field := range fields {
		fmt.Fprintf(out, "%s: ", msg("enterValue", field))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return err
		}
		values[field] = strings.TrimRight(line, "\r\n")
	}
	return nil
}

// readSelection reads piped text, dropping one trailing newline
func readSelection(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s := strings.TrimSuffix(string(b), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}
