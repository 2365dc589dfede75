package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kaifufi/nftx-exchange-go/chain"
)

const (
	EnvPrefix = "NFTX"

	flagConfig   = "config"
	flagChainID  = "chain-id"
	flagExchange = "exchange"
	flagLogLevel = "log-level"
	flagOrder    = "order"
	flagNonce    = "nonce"
	flagKey      = "key"
	flagRPC      = "rpc"
)

// cli carries the state shared by every subcommand
type cli struct {
	v      *viper.Viper
	logger *logrus.Logger
	log    *logrus.Entry
}

// RootCommand constructs the nftxctl entry point. Settings are read from
// flags, NFTX_ prefixed environment variables and an optional config file,
// in that order of precedence.
func RootCommand() *cobra.Command {
	logger := logrus.New()
	c := &cli{
		v:      viper.New(),
		logger: logger,
		log:    logger.WithField("component", "nftxctl"),
	}

	cmd := &cobra.Command{
		Use:           "nftxctl",
		Short:         "Hash, sign and verify NFT exchange orders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	cmd.PersistentFlags().String(flagConfig, "", "config file (yaml, toml or json)")
	cmd.PersistentFlags().Int64(flagChainID, 1, "chain id of the exchange domain")
	cmd.PersistentFlags().String(flagExchange, "", "exchange (verifying contract) address")
	cmd.PersistentFlags().String(flagLogLevel, "info", "log level")

	cmd.AddCommand(
		c.hashCommand(),
		c.signCommand(),
		c.verifyCommand(),
	)
	return cmd
}

// load binds flags and environment into viper, reads the config file if one
// was given and applies the log level
func (c *cli) load(cmd *cobra.Command) error {
	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.v.AutomaticEnv()
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if path := c.v.GetString(flagConfig); path != "" {
		c.v.SetConfigFile(path)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	level, err := logrus.ParseLevel(c.v.GetString(flagLogLevel))
	if err != nil {
		return err
	}
	c.logger.SetLevel(level)
	c.logger.SetOutput(cmd.ErrOrStderr())
	return nil
}

func (c *cli) domain() (*chain.EIP712Domain, error) {
	exchange := c.v.GetString(flagExchange)
	if !common.IsHexAddress(exchange) {
		return nil, fmt.Errorf("--%s must be a hex address, got %q", flagExchange, exchange)
	}
	chainID := c.v.GetInt64(flagChainID)
	if chainID <= 0 {
		return nil, fmt.Errorf("--%s must be positive, got %d", flagChainID, chainID)
	}
	return chain.NewEIP712Domain(big.NewInt(chainID), common.HexToAddress(exchange)), nil
}

// readOrder decodes the order named by --order; "-" reads standard input
func (c *cli) readOrder(cmd *cobra.Command) (*chain.Order, error) {
	path := c.v.GetString(flagOrder)
	if path == "" {
		return nil, fmt.Errorf("--%s is required", flagOrder)
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read order: %w", err)
	}

	order := new(chain.Order)
	if err := json.Unmarshal(data, order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return order, nil
}

// digest reads the order and hashes it under the configured domain
func (c *cli) digest(cmd *cobra.Command) (*chain.Order, common.Hash, error) {
	domain, err := c.domain()
	if err != nil {
		return nil, common.Hash{}, err
	}
	order, err := c.readOrder(cmd)
	if err != nil {
		return nil, common.Hash{}, err
	}
	digest, err := chain.HashOrder(domain, order, c.v.GetUint64(flagNonce))
	if err != nil {
		return nil, common.Hash{}, err
	}
	c.log.WithFields(logrus.Fields{
		"maker":  order.Maker.Hex(),
		"nonce":  c.v.GetUint64(flagNonce),
		"digest": digest.Hex(),
	}).Debug("order hashed")
	return order, digest, nil
}

func orderFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagOrder, "", "order JSON file, - for stdin")
	cmd.Flags().Uint64(flagNonce, 0, "maker nonce the order is signed under")
}
