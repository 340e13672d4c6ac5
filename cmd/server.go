package cmd

import (
	"melodygram/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the MelodyGram HTTP server",
	Long:  `Starts the API server: generation endpoints, the credit ledger, the song library and share links.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
