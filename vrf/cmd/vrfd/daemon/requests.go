package daemon

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/types"
)

func NewPendingRequestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pending-requests",
		Aliases: []string{"pending"},
		Short:   "List the randomness requests awaiting fulfillment.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			pending, err := c.PendingRequests(cmd.Context())
			if err != nil {
				return err
			}
			printRespJSON(cmd, pending)

			return nil
		},
	}
	addClientFlags(cmd)

	return cmd
}

func NewFulfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fulfill [request-id]",
		Short: "Fulfill a pending request now.",
		Long: "Fulfill a pending request without waiting for the fulfillment delay. " +
			"The delivered words may be fixed with --random-words, which is meant for testing. " +
			"The daemon must run with enablemanualfulfill and an HMAC key.",
		Example: `vrfd fulfill 0x1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8 --random-words 7`,
		Args:    cobra.ExactArgs(1),
		RunE:    runFulfill,
	}
	addClientFlags(cmd)
	cmd.Flags().StringSlice(randomWordsFlag, nil, "The decimal words to deliver instead of derived ones")

	return cmd
}

func runFulfill(cmd *cobra.Command, args []string) error {
	requestID, err := types.ParseHash(args[0])
	if err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}
	rawWords, err := cmd.Flags().GetStringSlice(randomWordsFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", randomWordsFlag, err)
	}
	words, err := types.ParseRandomWords(rawWords)
	if err != nil {
		return err
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	f, err := c.Fulfill(cmd.Context(), requestID, words)
	if err != nil {
		return err
	}
	printRespJSON(cmd, f)

	return nil
}
