package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the labelmail application
var rootCmd = &cobra.Command{
	Use:   "labelmail",
	Short: "Web client for organizing Gmail with labels",
	Long: `labelmail is a web client that lets you browse Gmail, read whole
conversations and organize messages with labels, including labels
suggested by the label backend.

Besides the server it ships a few helpers to try the preview cleaner,
the HTML sanitizer and the thread query builder on local files.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "labelmail version %s\n" .Version}}`)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newSanitizeCmd())
	rootCmd.AddCommand(newThreadQueryCmd())
}
