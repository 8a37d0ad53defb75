package main

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/gift-protocol/pkg/giftcard/chain"
	"github.com/code-payments/gift-protocol/pkg/giftcard/submit"
	"github.com/code-payments/gift-protocol/pkg/solana"
)

const (
	rpcEndpointEnvName = "SOLANA_RPC_ENDPOINT"
	walletKeyEnvName   = "GIFTCARD_WALLET_KEY"

	defaultRpcEndpoint = "https://api.mainnet-beta.solana.com"
)

var (
	rpcEndpoint string
	walletKey   string
)

var rootCmd = &cobra.Command{
	Use:           "giftcard-wallet",
	Short:         "Create and redeem gift cards on chain",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.WarnLevel)
	},
}

func init() {
	endpoint := os.Getenv(rpcEndpointEnvName)
	if len(endpoint) == 0 {
		endpoint = defaultRpcEndpoint
	}

	rootCmd.PersistentFlags().StringVar(&rpcEndpoint, "rpc", endpoint, "Solana RPC endpoint (env "+rpcEndpointEnvName+")")
	rootCmd.PersistentFlags().StringVar(&walletKey, "key", os.Getenv(walletKeyEnvName), "base58 wallet private key (env "+walletKeyEnvName+")")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newChainClient() *chain.Client {
	sc := solana.New(rpcEndpoint)
	return chain.NewClient(sc, submit.New(sc, nil, submit.WithEnvConfigs()), nil, chain.WithEnvConfigs())
}

func loadWallet() (chain.Signer, error) {
	if len(walletKey) == 0 {
		return nil, errors.Errorf("wallet key required, set --key or %s", walletKeyEnvName)
	}

	decoded, err := base58.Decode(walletKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid wallet key")
	}
	switch len(decoded) {
	case ed25519.PrivateKeySize:
		return chain.NewKeypairSigner(ed25519.PrivateKey(decoded)), nil
	case ed25519.SeedSize:
		return chain.NewKeypairSigner(ed25519.NewKeyFromSeed(decoded)), nil
	default:
		return nil, errors.New("wallet key must be a 32 byte seed or 64 byte private key")
	}
}

func parseAddress(name, value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("%s is not a valid address", name)
	}
	return decoded, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func unixOrNil(ts int64) interface{} {
	if ts == 0 {
		return nil
	}
	return time.Unix(ts, 0).UTC()
}
