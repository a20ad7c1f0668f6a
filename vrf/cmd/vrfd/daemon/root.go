package daemon

import (
	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/version"
	vrfcfg "github.com/raffle-labs/raffle/vrf/config"
)

// NewRootCmd creates a new root command for vrfd. It is called once in the main function.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "vrfd",
		Short:             "A daemon program that fulfills randomness requests of raffle contracts.",
		SilenceErrors:     false,
		PersistentPreRunE: persistOutputs,
	}

	rootCmd.PersistentFlags().String(homeFlag, vrfcfg.DefaultVrfdDir, "The application home directory")

	rootCmd.AddCommand(
		NewInitCmd(),
		NewStartCmd(),
		NewInfoCmd(),
		NewCreateSubscriptionCmd(),
		NewFundSubscriptionCmd(),
		NewConsumerCmd(),
		NewListSubscriptionsCmd(),
		NewPendingRequestsCmd(),
		NewFulfillCmd(),
		version.CommandVersion("vrfd"),
	)

	return rootCmd
}

func persistOutputs(cmd *cobra.Command, _ []string) error {
	// set the default command outputs
	cmd.SetOut(cmd.OutOrStdout())
	cmd.SetErr(cmd.ErrOrStderr())

	return nil
}
