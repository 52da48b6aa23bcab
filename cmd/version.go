package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"reqsender/internal/format"
	"reqsender/internal/version"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(format.Out, "reqsender %s\n", version.String())
		},
	})
}
