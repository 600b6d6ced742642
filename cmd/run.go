package cmd

import (
	"log/slog"
	"os"

	"github.com/getlantern/kaleidoscope/core"
	"github.com/getlantern/kaleidoscope/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a kaleidoscope node",
	Long:  `This will run a kaleidoscope node on the current host, listening for advertisements from its configured peers.`,
	Run: func(cmd *cobra.Command, args []string) {
		var nodeCfg state.NodeCfg
		file, err := os.ReadFile(nodeConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &nodeCfg)
		if err != nil {
			panic(err)
		}

		err = state.NodeConfigValidator(&nodeCfg)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}

		err = core.Start(nodeCfg, level)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "kd",
}

func init() {
	runCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
}
