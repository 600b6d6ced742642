package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var nodeConfigPath = "node.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kaleidoscope",
	Short: "Kaleidoscope limited advertisement CLI",
	Long: `Kaleidoscope sends self-advertisements over a trust graph along bounded,
repeatable random routes, limiting how many nodes a malicious identity can
reach even with unlimited sybils.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Initialize Kaleidoscope",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "kd",
		Title: "Kaleidoscope Commands",
	})
	rootCmd.PersistentFlags().StringVarP(&nodeConfigPath, "node-config", "n", nodeConfigPath, "node-specific config")
}
