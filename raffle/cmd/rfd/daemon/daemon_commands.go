package daemon

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/util"
)

// CommandStatus returns the status command by connecting to the rfd daemon.
func CommandStatus() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show the state of the current round.",
		Example: `rfd status --daemon-address 127.0.0.1:12582`,
		Args:    cobra.NoArgs,
		RunE:    runCommandStatus,
	}
	addClientFlags(cmd)

	return cmd
}

func runCommandStatus(cmd *cobra.Command, _ []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	status, err := c.Status(cmd.Context())
	if err != nil {
		return err
	}
	printRespJSON(cmd, status)

	return nil
}

// CommandEnter returns the enter command by connecting to the rfd daemon.
func CommandEnter() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "enter [player]",
		Short: "Enter a player into the open round.",
		Long: "Enter a player into the open round, paying the entrance fee from its account. " +
			"Paying more than the fee is allowed; the excess goes to the prize pool.",
		Example: `rfd enter 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 --amount 0.01`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCommandEnter,
	}
	addClientFlags(cmd)
	cmd.Flags().String(amountFlag, "", "The payment in ether; defaults to the entrance fee")

	return cmd
}

func runCommandEnter(cmd *cobra.Command, args []string) error {
	player, err := util.ParseAddress(args[0])
	if err != nil {
		return fmt.Errorf("invalid player: %w", err)
	}
	amount, err := cmd.Flags().GetString(amountFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", amountFlag, err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if amount == "" {
		params, err := c.Params(ctx)
		if err != nil {
			return err
		}
		amount = params.EntranceFee
	}

	status, err := c.Enter(ctx, player, amount)
	if err != nil {
		return err
	}
	printRespJSON(cmd, status)

	return nil
}

// CommandParticipant returns the participant command by connecting to the rfd daemon.
func CommandParticipant() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "participant [index]",
		Aliases: []string{"participants"},
		Short:   "Show the participant at an index of the current round, or all of them.",
		Example: `rfd participant 0`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCommandParticipant,
	}
	addClientFlags(cmd)

	return cmd
}

func runCommandParticipant(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) == 0 {
		participants, err := c.Participants(ctx)
		if err != nil {
			return err
		}
		printRespJSON(cmd, participants)

		return nil
	}

	index, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid index: %w", err)
	}
	p, err := c.Participant(ctx, index)
	if err != nil {
		return err
	}
	printRespJSON(cmd, p)

	return nil
}

// CommandCheckUpkeep returns the check-upkeep command by connecting to the rfd daemon.
func CommandCheckUpkeep() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "check-upkeep",
		Short: "Report whether a draw is due, with the conditions behind the decision.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			upkeep, err := c.CheckUpkeep(cmd.Context())
			if err != nil {
				return err
			}
			printRespJSON(cmd, upkeep)

			return nil
		},
	}
	addClientFlags(cmd)

	return cmd
}

// CommandPerformUpkeep returns the perform-upkeep command by connecting to the rfd daemon.
func CommandPerformUpkeep() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "perform-upkeep",
		Short: "Close the round and request the random words deciding it.",
		Long:  "Close the round and request a draw. It fails, changing nothing, when the draw is not due.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			requestID, err := c.PerformUpkeep(cmd.Context())
			if err != nil {
				return err
			}
			printRespJSON(cmd, &types.RequestIDResponse{RequestID: requestID.Hex()})

			return nil
		},
	}
	addClientFlags(cmd)

	return cmd
}

// CommandFulfill returns the fulfill command by connecting to the rfd daemon.
func CommandFulfill() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "fulfill [request-id]",
		Short: "Have the coordinator fulfill the outstanding draw request now.",
		Long: "Have the coordinator fulfill a pending request without waiting for the fulfillment delay. " +
			"The delivered words may be fixed with --random-words, which is meant for testing. " +
			"The daemon must run with enablemanualfulfill and an HMAC key.",
		Example: `rfd fulfill 0x1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8 --random-words 7`,
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCommandFulfill,
	}
	addClientFlags(cmd)
	cmd.Flags().StringSlice(randomWordsFlag, nil, "The decimal words to deliver instead of derived ones")

	return cmd
}

func runCommandFulfill(cmd *cobra.Command, args []string) error {
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
	ctx := cmd.Context()

	// defaults to the outstanding request of the raffle
	var requestID types.RequestID
	if len(args) == 1 {
		if requestID, err = types.ParseHash(args[0]); err != nil {
			return fmt.Errorf("invalid request id: %w", err)
		}
	} else {
		status, err := c.Status(ctx)
		if err != nil {
			return err
		}
		if status.OutstandingRequest == "" {
			return fmt.Errorf("the raffle has no outstanding request")
		}
		if requestID, err = types.ParseHash(status.OutstandingRequest); err != nil {
			return err
		}
	}

	f, err := c.Fulfill(ctx, requestID, words)
	if err != nil {
		return err
	}
	printRespJSON(cmd, f)

	return nil
}

// CommandDraws returns the draws command by connecting to the rfd daemon.
func CommandDraws() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "draws",
		Short: "List the completed draws, most recent first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, err := cmd.Flags().GetInt(limitFlag)
			if err != nil {
				return fmt.Errorf("failed to read flag %s: %w", limitFlag, err)
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			draws, err := c.Draws(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRespJSON(cmd, draws)

			return nil
		},
	}
	addClientFlags(cmd)
	cmd.Flags().Int(limitFlag, 20, "The maximum number of draws to list")

	return cmd
}

// CommandEvents returns the events command by connecting to the rfd daemon.
func CommandEvents() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "events",
		Short: "List the raffle events, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			limit, err := flags.GetInt(limitFlag)
			if err != nil {
				return fmt.Errorf("failed to read flag %s: %w", limitFlag, err)
			}
			from, err := flags.GetUint64(fromFlag)
			if err != nil {
				return fmt.Errorf("failed to read flag %s: %w", fromFlag, err)
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			evs, err := c.Events(cmd.Context(), from, limit)
			if err != nil {
				return err
			}
			printRespJSON(cmd, evs)

			return nil
		},
	}
	addClientFlags(cmd)
	cmd.Flags().Int(limitFlag, 100, "The maximum number of events to list")
	cmd.Flags().Uint64(fromFlag, 0, "The sequence number of the first event to list")

	return cmd
}

// CommandBalance returns the balance command by connecting to the rfd daemon.
func CommandBalance() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "balance [account]",
		Short:   "Show the balance of an account; defaults to the prize pool.",
		Example: `rfd balance 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			account := args
			if len(account) == 0 {
				status, err := c.Status(ctx)
				if err != nil {
					return err
				}
				account = []string{status.Address}
			}
			addr, err := util.ParseAddress(account[0])
			if err != nil {
				return fmt.Errorf("invalid account: %w", err)
			}

			balance, err := c.Balance(ctx, addr)
			if err != nil {
				return err
			}
			printRespJSON(cmd, balance)

			return nil
		},
	}
	addClientFlags(cmd)

	return cmd
}

// CommandFund returns the fund command by connecting to the rfd daemon.
func CommandFund() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "fund [account]",
		Short:   "Mint ether to an account; only served by rfd with the faucet enabled.",
		Example: `rfd fund 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 --amount 1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := util.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("invalid account: %w", err)
			}
			amount, err := cmd.Flags().GetString(amountFlag)
			if err != nil {
				return fmt.Errorf("failed to read flag %s: %w", amountFlag, err)
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			balance, err := c.Fund(cmd.Context(), addr, amount)
			if err != nil {
				return err
			}
			printRespJSON(cmd, balance)

			return nil
		},
	}
	addClientFlags(cmd)
	cmd.Flags().String(amountFlag, "1", "The amount in ether")

	return cmd
}

// CommandRejectTransfers returns the reject-transfers command by connecting to the rfd daemon.
func CommandRejectTransfers() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "reject-transfers [account]",
		Short: "Make an account refuse incoming transfers, such as prize payouts; for local testing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := util.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("invalid account: %w", err)
			}
			accept, err := cmd.Flags().GetBool(acceptFlag)
			if err != nil {
				return fmt.Errorf("failed to read flag %s: %w", acceptFlag, err)
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.SetRejectsTransfers(cmd.Context(), addr, !accept); err != nil {
				return err
			}
			cmd.Printf("%s rejects transfers: %t\n", addr.Hex(), !accept)

			return nil
		},
	}
	addClientFlags(cmd)
	cmd.Flags().Bool(acceptFlag, false, "Accept incoming transfers again")

	return cmd
}
