package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terndb/tern-go/cmd/table"
	"github.com/terndb/tern-go/cmd/util"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "tern",
		Short: "client for the tern distributed table store",
		Long: fmt.Sprintf(`tern (v%s)

A command line client for the tern distributed table store. All
operations run over a single multiplexed connection to the server.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the tern client",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tern v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(table.TableCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
