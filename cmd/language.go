package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"reqsender/internal/format"
	"reqsender/internal/i18n"
	"reqsender/internal/model"
)

func init() {
	languageCmd := &cobra.Command{
		Use:     "language [code]",
		Aliases: []string{"lang"},
		Short:   "Show or set the interface language",
		Long: `Show or set the interface language.

The choice is stored with the templates and wins over the language config
key and the LANG environment variable.

Example:
  reqsender language zh_CN`,
		Args: cobra.MaximumNArgs(1),
		Run:  runLanguage,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List supported languages",
		Run: func(cmd *cobra.Command, args []string) {
			for _, lang := range i18n.Supported() {
				fmt.Fprintln(format.Out, lang)
			}
		},
	}

	languageCmd.AddCommand(listCmd)
	rootCmd.AddCommand(languageCmd)
}

func runLanguage(cmd *cobra.Command, args []string) {
	a := mustApp()

	if len(args) == 0 {
		fmt.Fprintln(format.Out, a.loc.Language())
		return
	}

	requested := strings.TrimSpace(args[0])
	lang := i18n.Match(requested)
	if lang == i18n.DefaultLanguage && !strings.HasPrefix(strings.ToLower(requested), "en") {
		format.PrintWarning(fmt.Sprintf("Unsupported language %q, using %s", requested, lang))
	}

	if err := a.store.SetSetting(model.LanguageKey, lang); err != nil {
		format.PrintError(fmt.Sprintf("Failed to save language: %v", err))
		os.Exit(1)
	}

	loc, err := i18n.New(lang)
	if err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}
	a.loc = loc
	format.PrintSuccess(a.msg("languageChanged", lang))
}
