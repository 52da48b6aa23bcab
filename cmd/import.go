package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"reqsender/internal/format"
	"reqsender/internal/storage"
)

func init() {
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import templates and logs from a browser storage export",
		Long: `Import templates, logs and the language setting from a JSON export of
the browser extension's storage, e.g.

  {"requests": [...], "logs": [...], "language": "en"}

Older flat log entries are converted. Templates with an existing id are
replaced.`,
		Args: cobra.ExactArgs(1),
		Run:  runImport,
	}
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) {
	a := mustApp()

	f, err := os.Open(args[0])
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to open export: %v", err))
		os.Exit(1)
	}
	defer f.Close()

	summary, err := storage.Import(a.store, f, a.profile)
	if err != nil {
		format.PrintError(fmt.Sprintf("Import failed: %v", err))
		os.Exit(1)
	}

	format.PrintSuccess(fmt.Sprintf("Imported %d templates and %d log entries", summary.Templates, summary.Logs))
	if summary.Skipped > 0 {
		format.PrintWarning(fmt.Sprintf("Skipped %d invalid templates", summary.Skipped))
	}
	if summary.Language != "" {
		fmt.Fprintln(format.Out, a.msg("languageChanged", summary.Language))
	}
}
