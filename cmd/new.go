package cmd

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"

	"github.com/getlantern/kaleidoscope/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a node configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			return
		}
		name := args[0]
		if err := state.NameValidator(name); err != nil {
			fmt.Printf("Invalid name: %s\n", name)
			os.Exit(-1)
		}
		port, _ := strconv.Atoi(cmd.Flag("port").Value.String())

		nodeCfg := state.NodeCfg{
			Id:        state.NodeId(name),
			Bind:      netip.AddrPortFrom(netip.IPv4Unspecified(), uint16(port)),
			TablePath: name + ".routes.json",
		}

		ncfg, err := yaml.Marshal(&nodeCfg)
		if err != nil {
			panic(err)
		}

		outPath := cmd.Flag("output").Value.String()
		err = os.WriteFile(outPath, ncfg, 0600)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "init",
}

func init() {
	newCmd.Flags().StringP("output", "o", "node.yaml", "output path for the node config")
	newCmd.Flags().IntP("port", "p", state.DefaultPort, "port the node listens on")
	rootCmd.AddCommand(newCmd)
}
