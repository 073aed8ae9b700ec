package blob

import (
	"github.com/ValentinKolb/dBlob/cmd/util"
	"github.com/ValentinKolb/dBlob/rpc/client"
	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/spf13/cobra"
)

var (
	blobStore client.IBlobStore

	// BlobCommands represents the blob command group
	BlobCommands = &cobra.Command{
		Use:               "blob",
		Short:             "Perform blob store operations",
		PersistentPreRunE: setupBlobClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the blob command
	util.SetupRPCClientFlags(BlobCommands)

	// Add subcommands
	BlobCommands.AddCommand(putCmd)
	BlobCommands.AddCommand(getCmd)
	BlobCommands.AddCommand(delCmd)
	BlobCommands.AddCommand(ttlCmd)
	BlobCommands.AddCommand(perfTestCmd)
}

// setupBlobClient initializes the blob store client
func setupBlobClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration
	config := util.GetClientConfig()

	// Configure logging before any client component is created
	common.InitLoggers(*config)

	// Get serializer
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	// Create the blob store client
	blobStore, err = client.NewRemoteStore(*config, s)

	return err
}
