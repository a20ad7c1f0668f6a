package daemon

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raffle-labs/raffle/types"
	"github.com/raffle-labs/raffle/util"
)

func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the account and fees of a running vrfd.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			info, err := c.CoordinatorInfo(cmd.Context())
			if err != nil {
				return err
			}
			printRespJSON(cmd, info)

			return nil
		},
	}
	addClientFlags(cmd)

	return cmd
}

func NewCreateSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create-subscription",
		Aliases: []string{"create-sub"},
		Short:   "Create a subscription paying for randomness requests.",
		Example: `vrfd create-sub --owner 0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512`,
		Args:    cobra.NoArgs,
		RunE:    runCreateSubscription,
	}
	addClientFlags(cmd)
	cmd.Flags().String(ownerFlag, "", "The account owning the subscription")
	if err := cmd.MarkFlagRequired(ownerFlag); err != nil {
		panic(err)
	}

	return cmd
}

func runCreateSubscription(cmd *cobra.Command, _ []string) error {
	ownerStr, err := cmd.Flags().GetString(ownerFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", ownerFlag, err)
	}
	owner, err := util.ParseAddress(ownerStr)
	if err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	subID, err := c.CreateSubscription(cmd.Context(), owner)
	if err != nil {
		return err
	}
	sub, err := c.GetSubscription(cmd.Context(), subID)
	if err != nil {
		return err
	}
	printRespJSON(cmd, sub)

	return nil
}

func NewFundSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fund-subscription",
		Aliases: []string{"fund-sub"},
		Short:   "Add LINK to the balance of a subscription.",
		Example: `vrfd fund-sub --sub-id 1 --amount 3`,
		Args:    cobra.NoArgs,
		RunE:    runFundSubscription,
	}
	addClientFlags(cmd)
	f := cmd.Flags()
	f.Uint64(subIDFlag, 0, "The subscription to fund")
	f.String(amountFlag, "", "The amount in LINK, e.g., 3 or 0.5")
	if err := cmd.MarkFlagRequired(subIDFlag); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired(amountFlag); err != nil {
		panic(err)
	}

	return cmd
}

func runFundSubscription(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	subID, err := flags.GetUint64(subIDFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", subIDFlag, err)
	}
	amount, err := flags.GetString(amountFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", amountFlag, err)
	}
	// fail early on malformed amounts
	if _, err := types.ParseEther(amount); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	sub, err := c.FundSubscription(cmd.Context(), subID, amount)
	if err != nil {
		return err
	}
	printRespJSON(cmd, sub)

	return nil
}

func NewConsumerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add-consumer",
		Aliases: []string{"consumer"},
		Short:   "Authorize a consumer to request randomness paid by a subscription.",
		Long:    "Authorize a consumer on a subscription, or revoke it with --remove.",
		Example: `vrfd add-consumer --sub-id 1 --consumer 0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512`,
		Args:    cobra.NoArgs,
		RunE:    runConsumer,
	}
	addClientFlags(cmd)
	f := cmd.Flags()
	f.Uint64(subIDFlag, 0, "The subscription")
	f.String(consumerFlag, "", "The consumer account")
	f.Bool(removeFlag, false, "Remove the consumer instead of adding it")
	if err := cmd.MarkFlagRequired(subIDFlag); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired(consumerFlag); err != nil {
		panic(err)
	}

	return cmd
}

func runConsumer(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	subID, err := flags.GetUint64(subIDFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", subIDFlag, err)
	}
	consumerStr, err := flags.GetString(consumerFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", consumerFlag, err)
	}
	remove, err := flags.GetBool(removeFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", removeFlag, err)
	}
	consumer, err := util.ParseAddress(consumerStr)
	if err != nil {
		return fmt.Errorf("invalid consumer: %w", err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	if remove {
		sub, err := c.RemoveConsumer(cmd.Context(), subID, consumer)
		if err != nil {
			return err
		}
		printRespJSON(cmd, sub)

		return nil
	}

	sub, err := c.AddConsumer(cmd.Context(), subID, consumer)
	if err != nil {
		return err
	}
	printRespJSON(cmd, sub)

	return nil
}

func NewListSubscriptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list-subscriptions",
		Aliases: []string{"ls"},
		Short:   "List all subscriptions.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			subs, err := c.ListSubscriptions(cmd.Context())
			if err != nil {
				return err
			}
			printRespJSON(cmd, subs)

			return nil
		},
	}
	addClientFlags(cmd)

	return cmd
}
