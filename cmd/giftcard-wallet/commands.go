package main

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/spf13/cobra"

	"github.com/code-payments/gift-protocol/pkg/giftcard/chain"
	"github.com/code-payments/gift-protocol/pkg/giftcard/submit"
)

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(referralCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(redeemCmd)

	createCmd.Flags().Uint64("amount", 0, "Gross amount in lamports")
	createCmd.Flags().String("recipient", "", "Recipient address, informational only")
	createCmd.Flags().String("message", "", "Message attached to the card")
	createCmd.Flags().Duration("expires-in", 0, "Time until the card can be reclaimed, 0 for no expiry")
	createCmd.Flags().String("referrer", "", "Referrer credited with the referral share")
	createCmd.Flags().Uint32("theme", 0, "Card theme id")
	_ = createCmd.MarkFlagRequired("amount")

	redeemCmd.Flags().String("destination", "", "Payout address, defaults to the wallet")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the on-chain protocol config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := newChainClient().GetProtocolConfig(cmd.Context())
		if err != nil {
			return err
		}

		return printJSON(map[string]interface{}{
			"authority":              base58.Encode(config.Authority),
			"treasury":               base58.Encode(config.Treasury),
			"commission_rate":        config.CommissionRate,
			"referral_rate":          config.ReferralRate,
			"total_commission":       config.TotalCommission,
			"total_referral_payouts": config.TotalReferralPayouts,
			"total_gift_cards":       config.TotalGiftCards,
			"total_staked":           config.TotalStaked,
		})
	},
}

var referralCmd = &cobra.Command{
	Use:   "referral OWNER",
	Short: "Show a referral account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := parseAddress("owner", args[0])
		if err != nil {
			return err
		}

		referral, err := newChainClient().GetReferral(cmd.Context(), owner)
		if err != nil {
			return err
		}

		return printJSON(map[string]interface{}{
			"owner":          base58.Encode(referral.Owner),
			"total_earned":   referral.TotalEarned,
			"referral_count": referral.ReferralCount,
			"created_at":     unixOrNil(referral.CreatedAt),
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance CARD",
	Short: "Show the balance held by a gift card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		card, err := parseAddress("card", args[0])
		if err != nil {
			return err
		}

		balance, err := newChainClient().GetCardBalance(cmd.Context(), card)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"card": args[0], "balance": balance})
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Fund a new gift card from the wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wallet, err := loadWallet()
		if err != nil {
			return err
		}

		amount, _ := cmd.Flags().GetUint64("amount")
		message, _ := cmd.Flags().GetString("message")
		expiresIn, _ := cmd.Flags().GetDuration("expires-in")
		themeId, _ := cmd.Flags().GetUint32("theme")

		createArgs := &chain.CreateGiftCardArgs{
			Amount:  amount,
			Message: message,
			ThemeId: themeId,
		}
		if expiresIn > 0 {
			createArgs.ExpiryTime = time.Now().Add(expiresIn).Unix()
		}
		if value, _ := cmd.Flags().GetString("recipient"); len(value) > 0 {
			if createArgs.Recipient, err = parseAddress("recipient", value); err != nil {
				return err
			}
		}
		if value, _ := cmd.Flags().GetString("referrer"); len(value) > 0 {
			if createArgs.Referrer, err = parseAddress("referrer", value); err != nil {
				return err
			}
		}

		result, err := newChainClient().CreateGiftCard(cmd.Context(), wallet, createArgs)
		if result != nil {
			// The secret is printed even on an ambiguous submission so the
			// funds stay recoverable.
			if printErr := printJSON(map[string]interface{}{
				"card":              base58.Encode(result.Card),
				"secret":            result.Secret,
				"net":               result.Split.Net,
				"commission":        result.Split.Commission,
				"referral_share":    result.Split.ReferralShare,
				"referral_credited": result.ReferralCredited,
				"submission":        submissionView(result.Submission),
			}); printErr != nil {
				return printErr
			}
		}
		return err
	},
}

var redeemCmd = &cobra.Command{
	Use:   "redeem CARD SECRET",
	Short: "Sweep a gift card to the destination",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		card, err := parseAddress("card", args[0])
		if err != nil {
			return err
		}

		var destination ed25519.PublicKey
		if value, _ := cmd.Flags().GetString("destination"); len(value) > 0 {
			if destination, err = parseAddress("destination", value); err != nil {
				return err
			}
		} else {
			wallet, err := loadWallet()
			if err != nil {
				return err
			}
			destination = wallet.PublicKey()
		}

		result, err := newChainClient().RedeemGiftCard(cmd.Context(), &chain.RedeemGiftCardArgs{
			Card:        card,
			Secret:      args[1],
			Destination: destination,
		})
		if result != nil {
			if printErr := printJSON(map[string]interface{}{
				"payout":     result.Payout,
				"attempts":   result.Attempts,
				"submission": submissionView(result.Submission),
			}); printErr != nil {
				return printErr
			}
		}
		return err
	},
}

func submissionView(result *submit.Result) map[string]interface{} {
	if result == nil {
		return nil
	}
	return map[string]interface{}{
		"signature": result.Signature.String(),
		"state":     result.State.String(),
		"slot":      result.Slot,
	}
}
