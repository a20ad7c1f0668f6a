package daemon

import (
	"github.com/spf13/cobra"

	rfdcfg "github.com/raffle-labs/raffle/raffle/config"
	"github.com/raffle-labs/raffle/version"
)

// NewRootCmd creates a new root command for rfd. It is called once in the main function.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "rfd",
		Short:             "rfd - Raffle Daemon (rfd).",
		Long:              `rfd is the daemon running a raffle: it collects entries, triggers draws once they are due and pays out the winners.`,
		SilenceErrors:     false,
		PersistentPreRunE: persistOutputs,
	}

	rootCmd.PersistentFlags().String(homeFlag, rfdcfg.DefaultRfdDir, "The application home directory")

	rootCmd.AddCommand(
		CommandInit(),
		CommandStart(),
		CommandStatus(),
		CommandEnter(),
		CommandParticipant(),
		CommandCheckUpkeep(),
		CommandPerformUpkeep(),
		CommandFulfill(),
		CommandDraws(),
		CommandEvents(),
		CommandBalance(),
		CommandFund(),
		CommandRejectTransfers(),
		version.CommandVersion("rfd"),
	)

	return rootCmd
}

func persistOutputs(cmd *cobra.Command, _ []string) error {
	// set the default command outputs
	cmd.SetOut(cmd.OutOrStdout())
	cmd.SetErr(cmd.ErrOrStderr())

	return nil
}
