package commands

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/nftx-exchange-go/chain"
)

var exchangeAddr = common.HexToAddress("0x00000000000000000000000000000000000000e1")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func writeOrder(t *testing.T, order *chain.Order) string {
	t.Helper()
	data, err := json.Marshal(order)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func unsignedOrder() *chain.Order {
	return &chain.Order{
		Collection: common.HexToAddress("0x00000000000000000000000000000000000000c1"),
		AssetClass: chain.AssetClassERC721,
		Currency:   common.HexToAddress("0x00000000000000000000000000000000000000c2"),
		Price:      big.NewInt(1000),
		TokenID:    big.NewInt(7),
		Amount:     big.NewInt(1),
		Deadline:   1_900_000_000,
	}
}

func TestSignVerifyHash(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))

	path := writeOrder(t, unsignedOrder())
	domainArgs := []string{"--chain-id", "31337", "--exchange", exchangeAddr.Hex(), "--nonce", "3"}

	out, err := run(t, append([]string{"sign", "--order", path, "--key", "0x" + hexKey}, domainArgs...)...)
	require.NoError(t, err)

	signed := new(chain.Order)
	require.NoError(t, json.Unmarshal([]byte(out), signed))
	assert.Equal(t, maker, signed.Maker)
	require.Len(t, signed.Signature, chain.SignatureLength)

	signedPath := writeOrder(t, signed)
	out, err = run(t, append([]string{"verify", "--order", signedPath}, domainArgs...)...)
	require.NoError(t, err)
	assert.Contains(t, out, maker.Hex())

	out, err = run(t, append([]string{"hash", "--order", signedPath}, domainArgs...)...)
	require.NoError(t, err)
	want, err := chain.HashOrder(chain.NewEIP712Domain(big.NewInt(31337), exchangeAddr), signed, 3)
	require.NoError(t, err)
	assert.Equal(t, want.Hex(), out)

	// a different nonce is a different digest, so the signature no longer holds
	_, err = run(t, "verify", "--order", signedPath, "--chain-id", "31337", "--exchange", exchangeAddr.Hex(), "--nonce", "4")
	assert.ErrorIs(t, err, chain.ErrInvalidSignature)
}

func TestSignRejectsForeignMaker(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	order := unsignedOrder()
	order.Maker = common.HexToAddress("0x00000000000000000000000000000000000000b1")

	_, err = run(t, "sign", "--order", writeOrder(t, order), "--key", common.Bytes2Hex(crypto.FromECDSA(key)),
		"--exchange", exchangeAddr.Hex())
	assert.ErrorContains(t, err, "order maker")
}

func TestSettingsFromEnvAndConfig(t *testing.T) {
	path := writeOrder(t, unsignedOrder())

	_, err := run(t, "hash", "--order", path)
	assert.ErrorContains(t, err, "--exchange")

	t.Setenv("NFTX_EXCHANGE", exchangeAddr.Hex())
	fromEnv, err := run(t, "hash", "--order", path)
	require.NoError(t, err)

	cfg := filepath.Join(t.TempDir(), "nftx.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("chain-id: 31337\nnonce: 0\n"), 0o600))
	fromConfig, err := run(t, "hash", "--order", path, "--config", cfg)
	require.NoError(t, err)
	assert.NotEqual(t, fromEnv, fromConfig)

	// flags win over the config file
	fromFlag, err := run(t, "hash", "--order", path, "--config", cfg, "--chain-id", "1")
	require.NoError(t, err)
	assert.Equal(t, fromEnv, fromFlag)
}

func TestBadInput(t *testing.T) {
	_, err := run(t, "hash", "--exchange", exchangeAddr.Hex())
	assert.ErrorContains(t, err, "--order")

	_, err = run(t, "hash", "--exchange", exchangeAddr.Hex(), "--order", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read order")

	_, err = run(t, "sign", "--exchange", exchangeAddr.Hex(), "--order", writeOrder(t, unsignedOrder()), "--key", "zz")
	assert.ErrorContains(t, err, "invalid --key")

	_, err = run(t, "hash", "--exchange", exchangeAddr.Hex(), "--order", writeOrder(t, unsignedOrder()), "--log-level", "loud")
	assert.Error(t, err)
}
