package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"reqsender/internal/format"
	"reqsender/internal/menu"
	"reqsender/internal/notify"
)

func init() {
	menuCmd := &cobra.Command{
		Use:   "menu",
		Short: "Show the context menu built from the templates",
		Run:   runMenuShow,
	}

	clickCmd := &cobra.Command{
		Use:   "click <item id> <selected text>",
		Short: "Send selected text through a context menu item",
		Long: `Send selected text through a context menu item, as a right click
on a selection would. Item ids are shown by "reqsender menu".

Example:
  reqsender menu click request-3f2a...#title "Broken link on the home page"`,
		Args: cobra.ExactArgs(2),
		Run:  runMenuClick,
	}

	menuCmd.AddCommand(clickCmd)
	rootCmd.AddCommand(menuCmd)
}

// newBinder builds the context menu binder for the current store
func newBinder(a *app, s menu.SelectionSender) (*menu.Binder, error) {
	b := menu.NewBinder(a.store, s, a.profile, a.msg("contextMenuTitle"))
	if err := b.Start(); err != nil {
		return nil, fmt.Errorf("failed to build context menu: %w", err)
	}
	return b, nil
}

func runMenuShow(cmd *cobra.Command, args []string) {
	a := mustApp()
	b, err := newBinder(a, a.newSender(a.store, notify.Nop{}))
	if err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}
	defer b.Close()

	format.PrintMenu(b.Tree())
}

func runMenuClick(cmd *cobra.Command, args []string) {
	a := mustApp()
	verbose, _ := cmd.Flags().GetBool("verbose")

	b, err := newBinder(a, a.newSender(a.store, notify.NewTerminal()))
	if err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}
	defer b.Close()

	entry, err := b.Click(cmd.Context(), args[0], args[1])
	if err != nil {
		format.PrintError(err.Error())
		os.Exit(1)
	}
	format.PrintResult(entry.Result, verbose)
}
