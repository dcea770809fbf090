package cmd

import (
	"fmt"

	"github.com/NFTX-project/accounting/internal/version"
	"github.com/spf13/cobra"
)

var runVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and commit the binary was built from",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Version: %s\nCommit: %s\n", version.GetVersion(), version.GetCommit())
	},
}
