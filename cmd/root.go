package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dBlob/cmd/blob"
	"github.com/ValentinKolb/dBlob/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dblob",
		Short: "client for the dBlob blob store",
		Long: fmt.Sprintf(`dBlob (v%s)

A client for the dBlob distributed blob store, multiplexing
requests over pooled TCP connections.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dBlob",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dBlob v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(blob.BlobCommands)
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
