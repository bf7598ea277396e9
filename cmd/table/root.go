package table

import (
	"github.com/spf13/cobra"
	"github.com/terndb/tern-go/cmd/util"
	"github.com/terndb/tern-go/rpc/auth"
	"github.com/terndb/tern-go/rpc/client"
	"github.com/terndb/tern-go/rpc/common"
	"github.com/terndb/tern-go/rpc/transport/tcp"
)

var (
	rpcClient client.IClient

	// TableCommands represents the table command group
	TableCommands = &cobra.Command{
		Use:               "table",
		Short:             "Perform table store operations",
		PersistentPreRunE: setupTableClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the table command
	util.SetupRPCClientFlags(TableCommands)

	// Add subcommands
	TableCommands.AddCommand(listCmd)
	TableCommands.AddCommand(createCmd)
	TableCommands.AddCommand(dropCmd)
	TableCommands.AddCommand(openCmd)
	TableCommands.AddCommand(closeCmd)
	TableCommands.AddCommand(infoCmd)
	TableCommands.AddCommand(getCmd)
	TableCommands.AddCommand(putCmd)
	TableCommands.AddCommand(updateCmd)
	TableCommands.AddCommand(delCmd)
	TableCommands.AddCommand(rangeCmd)
	TableCommands.AddCommand(scanCmd)
	TableCommands.AddCommand(indexAddCmd)
	TableCommands.AddCommand(indexRmCmd)
	TableCommands.AddCommand(indexReadCmd)
}

// setupTableClient initializes the RPC client
func setupTableClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	common.InitLoggers(*config)

	// Get codec
	c, err := util.GetCodec()
	if err != nil {
		return err
	}

	// SCRAM only when credentials are configured
	authenticator := auth.IAuthenticator(auth.None())
	if config.Credentials.Username != "" {
		authenticator = auth.NewSCRAMSHA256()
	}

	rpcClient, err = client.NewClient(
		*config,
		tcp.NewTCPTransport(authenticator),
		c,
	)

	return err
}
