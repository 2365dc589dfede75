package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/kaifufi/nftx-exchange-go/chain"
)

const rpcTimeout = 10 * time.Second

func (c *cli) hashCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the EIP712 digest of an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, digest, err := c.digest(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest.Hex())
			return nil
		},
	}
	orderFlags(cmd)
	return cmd
}

func (c *cli) signCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an order and print it with its signature",
		Long: "Sign an order with a maker key. An order without a maker is " +
			"assigned the key's address; any other maker must match the key.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(c.v.GetString(flagKey), "0x"))
			if err != nil {
				return fmt.Errorf("invalid --%s: %w", flagKey, err)
			}
			signer := crypto.PubkeyToAddress(key.PublicKey)

			domain, err := c.domain()
			if err != nil {
				return err
			}
			order, err := c.readOrder(cmd)
			if err != nil {
				return err
			}
			if order.Maker == (common.Address{}) {
				order.Maker = signer
			}
			if order.Maker != signer {
				return fmt.Errorf("key belongs to %s, order maker is %s", signer.Hex(), order.Maker.Hex())
			}

			digest, err := chain.HashOrder(domain, order, c.v.GetUint64(flagNonce))
			if err != nil {
				return err
			}
			if order.Signature, err = chain.SignDigest(digest, key); err != nil {
				return err
			}
			c.log.WithField("digest", digest.Hex()).WithField("maker", signer.Hex()).Info("order signed")

			out, err := json.MarshalIndent(order, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	orderFlags(cmd)
	cmd.Flags().String(flagKey, "", "hex encoded maker private key")
	return cmd
}

func (c *cli) verifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an order's signature against its maker",
		Long: "Check an order's signature against its maker. Offline only " +
			"ECDSA signatures can be checked; with --rpc a maker hosting code " +
			"is asked through ERC1271.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, digest, err := c.digest(cmd)
			if err != nil {
				return err
			}

			if rpc := c.v.GetString(flagRPC); rpc != "" {
				err = c.verifyRemote(cmd.Context(), rpc, order, digest)
			} else {
				err = verifyOffline(order, digest)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid signature by %s over %s\n", order.Maker.Hex(), digest.Hex())
			return nil
		},
	}
	orderFlags(cmd)
	cmd.Flags().String(flagRPC, "", "RPC endpoint used to check contract makers")
	return cmd
}

func (c *cli) verifyRemote(ctx context.Context, rpc string, order *chain.Order, digest common.Hash) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	cc, err := chain.Dial(rpc)
	if err != nil {
		return err
	}
	defer cc.Close()

	c.log.WithField("rpc", rpc).Debug("verifying against endpoint")
	return chain.VerifySignature(ctx, cc.Backend(), digest, order.Signature, order.Maker)
}

func verifyOffline(order *chain.Order, digest common.Hash) error {
	recovered, err := chain.RecoverSigner(digest, order.Signature)
	if err != nil {
		return errors.Join(chain.ErrInvalidSignature, err)
	}
	if recovered != order.Maker {
		return fmt.Errorf("%w: recovered %s, maker %s", chain.ErrInvalidSignature, recovered.Hex(), order.Maker.Hex())
	}
	return nil
}
