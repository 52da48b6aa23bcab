package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"reqsender/internal/format"
)

var logsJSON bool

func init() {
	logsCmd := &cobra.Command{
		Use:     "logs",
		Aliases: []string{"history", "log"},
		Short:   "View the request log",
		Run:     runLogsList,
	}
	logsCmd.Flags().IntP("limit", "n", 10, "Number of entries to show")
	logsCmd.Flags().BoolVar(&logsJSON, "json", false, "Print as JSON")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent log entries",
		Run:   runLogsList,
	}
	listCmd.Flags().IntP("limit", "n", 10, "Number of entries to show")
	listCmd.Flags().BoolVar(&logsJSON, "json", false, "Print as JSON")

	showCmd := &cobra.Command{
		Use:   "show <id or index>",
		Short: "Show full details of a log entry",
		Args:  cobra.ExactArgs(1),
		Run:   runLogsShow,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all log entries",
		Run:   runLogsClear,
	}
	clearCmd.Flags().BoolP("yes", "y", false, "Don't ask for confirmation")

	logsCmd.AddCommand(listCmd, showCmd, clearCmd)
	rootCmd.AddCommand(logsCmd)
}

func runLogsList(cmd *cobra.Command, args []string) {
	a := mustApp()

	entries, err := a.store.LoadLogs()
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to load logs: %v", err))
		os.Exit(1)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if logsJSON {
		if limit > 0 && limit < len(entries) {
			entries = entries[:limit]
		}
		format.PrintJSON(entries)
		return
	}
	format.PrintLogList(entries, limit, a.msg("noLogs"))
}

func runLogsShow(cmd *cobra.Command, args []string) {
	a := mustApp()
	identifier := args[0]

	// Try to parse as index first (1-based, newest first)
	if index, err := strconv.Atoi(identifier); err == nil {
		entries, err := a.store.LoadLogs()
		if err != nil {
			format.PrintError(fmt.Sprintf("Failed to load logs: %v", err))
			os.Exit(1)
		}
		if index > 0 && index <= len(entries) {
			format.PrintLogDetail(entries[index-1])
			return
		}
	}

	entry, err := a.store.GetLog(identifier)
	if err != nil {
		format.PrintError(fmt.Sprintf("Failed to load logs: %v", err))
		os.Exit(1)
	}
	if entry == nil {
		format.PrintError(fmt.Sprintf("Log entry not found: %s", identifier))
		os.Exit(1)
	}
	format.PrintLogDetail(*entry)
}

func runLogsClear(cmd *cobra.Command, args []string) {
	a := mustApp()

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirm(a.msg("confirmClearLogs")) {
		return
	}

	if err := a.store.ClearLogs(); err != nil {
		format.PrintError(fmt.Sprintf("Failed to clear logs: %v", err))
		os.Exit(1)
	}

	format.PrintSuccess(a.msg("logsCleared"))
}

// confirm asks a yes/no question on stderr and reads the answer from stdin
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
