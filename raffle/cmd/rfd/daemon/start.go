package daemon

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/log"
	rfdcfg "github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/raffle/service"
)

// CommandStart returns the start command of rfd daemon.
func CommandStart() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "start",
		Short: "Start the raffle daemon.",
		Long: `Start the raffle. With a remote coordinator, vrfd should be started beforehand. ` +
			`Without a configured subscription, one is created and funded on the coordinator.`,
		Example: `rfd start --home /home/user/.rfd`,
		Args:    cobra.NoArgs,
		RunE:    runStartCmd,
	}
	cmd.Flags().String(rpcListenerFlag, "", "The address that the RPC server listens to")

	return cmd
}

func runStartCmd(cmd *cobra.Command, _ []string) error {
	homePath, err := getHomePath(cmd)
	if err != nil {
		return err
	}
	cfg, err := rfdcfg.LoadConfig(homePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rpcListener, err := cmd.Flags().GetString(rpcListenerFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", rpcListenerFlag, err)
	}
	if rpcListener != "" {
		if _, err := net.ResolveTCPAddr("tcp", rpcListener); err != nil {
			return fmt.Errorf("invalid RPC listener address %s, %w", rpcListener, err)
		}
		cfg.RPCListener = rpcListener
	}

	logger, err := log.NewRootLoggerWithFile(rfdcfg.LogFile(homePath), cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize the logger: %w", err)
	}

	dbBackend, err := cfg.DatabaseConfig.GetDBBackend()
	if err != nil {
		return fmt.Errorf("failed to create db backend: %w", err)
	}

	raffleApp, err := service.NewRaffleAppFromConfig(cfg, dbBackend, logger)
	if err != nil {
		return fmt.Errorf("failed to create raffle app: %w", err)
	}

	raffleServer := service.NewRaffleServer(cfg, logger, raffleApp, dbBackend)

	if err := raffleServer.RunUntilShutdown(cmd.Context()); err != nil {
		return fmt.Errorf("failed to run raffle server: %w", err)
	}

	return nil
}
