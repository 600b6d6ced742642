package cmd

import (
	"fmt"

	"github.com/getlantern/kaleidoscope/persist"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Aliases: []string{"i"},
	Short:   "Inspects a persisted routing table snapshot",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println("Usage: kaleidoscope inspect <snapshot file>")
			return
		}
		store := persist.NewJSONFile(args[0])
		snapshot, err := store.Load()
		if err != nil {
			fmt.Println("Error:", err.Error())
			return
		}
		fmt.Printf("%d neighbours, routes form a single cycle\n", len(snapshot.Routes))
		for _, n := range snapshot.OrderedNeighbors {
			fmt.Printf("  %s -> %s\n", n, snapshot.Routes[n])
		}
	},
	GroupID: "kd",
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
