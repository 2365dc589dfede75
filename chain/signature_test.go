package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type callHandler func(data []byte) ([]byte, error)

type fakeBackend struct {
	code     map[common.Address][]byte
	handlers map[common.Address]callHandler
	codeErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		code:     make(map[common.Address][]byte),
		handlers: make(map[common.Address]callHandler),
	}
}

func (f *fakeBackend) deploy(addr common.Address, h callHandler) {
	f.code[addr] = []byte{0x60, 0x80}
	f.handlers[addr] = h
}

func (f *fakeBackend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	if f.codeErr != nil {
		return nil, f.codeErr
	}
	return f.code[contract], nil
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	h, ok := f.handlers[*call.To]
	if !ok {
		return nil, nil
	}
	return h(call.Data)
}

// wallet answers isValidSignature with the magic value when the inner
// signature recovers to owner.
func wallet(owner common.Address) callHandler {
	return func(data []byte) ([]byte, error) {
		method, err := erc1271ABI.MethodById(data[:4])
		if err != nil {
			return nil, err
		}
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, err
		}
		digest := common.Hash(args[0].([32]byte))
		signer, err := RecoverSigner(digest, args[1].([]byte))
		if err != nil || signer != owner {
			return method.Outputs.Pack([4]byte{})
		}
		return method.Outputs.Pack(ERC1271MagicValue)
	}
}

func TestVerifySignatureEOA(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	digest := crypto.Keccak256Hash([]byte("order"))

	sig, err := SignDigest(digest, key)
	require.NoError(t, err)
	assert.True(t, sig[64] == 27 || sig[64] == 28)

	backend := newFakeBackend()
	assert.NoError(t, VerifySignature(context.Background(), backend, digest, sig, signer))

	// raw 0/1 recovery ids are accepted too
	raw := bytes.Clone(sig)
	raw[64] -= 27
	assert.NoError(t, VerifySignature(context.Background(), backend, digest, raw, signer))

	other := common.HexToAddress("0xdead")
	assert.ErrorIs(t, VerifySignature(context.Background(), backend, digest, sig, other), ErrInvalidSignature)

	tampered := crypto.Keccak256Hash([]byte("other order"))
	assert.ErrorIs(t, VerifySignature(context.Background(), backend, tampered, sig, signer), ErrInvalidSignature)
}

func TestVerifySignatureRejectsMalformed(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	digest := crypto.Keccak256Hash([]byte("order"))
	sig, err := SignDigest(digest, key)
	require.NoError(t, err)
	backend := newFakeBackend()

	assert.ErrorIs(t, VerifySignature(context.Background(), backend, digest, sig[:64], signer), ErrInvalidSignature)

	badV := bytes.Clone(sig)
	badV[64] = 30
	assert.ErrorIs(t, VerifySignature(context.Background(), backend, digest, badV, signer), ErrInvalidSignature)

	// flip S into the upper half of the curve order
	highS := bytes.Clone(sig)
	s := new(big.Int).SetBytes(sig[32:64])
	s.Sub(crypto.S256().Params().N, s)
	copy(highS[32:64], common.LeftPadBytes(s.Bytes(), 32))
	highS[64] ^= 1
	assert.ErrorIs(t, VerifySignature(context.Background(), backend, digest, highS, signer), ErrInvalidSignature)

	assert.ErrorIs(t, VerifySignature(context.Background(), backend, digest, make([]byte, 65), signer), ErrInvalidSignature)
}

func TestVerifySignatureContractSigner(t *testing.T) {
	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)
	walletAddr := common.HexToAddress("0xa11e7")

	backend := newFakeBackend()
	backend.deploy(walletAddr, wallet(owner))

	digest := crypto.Keccak256Hash([]byte("order"))
	sig, err := SignDigest(digest, ownerKey)
	require.NoError(t, err)
	assert.NoError(t, VerifySignature(context.Background(), backend, digest, sig, walletAddr))

	strangerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	bad, err := SignDigest(digest, strangerKey)
	require.NoError(t, err)
	assert.ErrorIs(t, VerifySignature(context.Background(), backend, digest, bad, walletAddr), ErrInvalidSignature)
}

func TestVerifySignatureRevertingContract(t *testing.T) {
	walletAddr := common.HexToAddress("0xa11e7")
	backend := newFakeBackend()
	backend.deploy(walletAddr, func([]byte) ([]byte, error) {
		return nil, errors.New("execution reverted")
	})

	digest := crypto.Keccak256Hash([]byte("order"))
	assert.ErrorIs(t, VerifySignature(context.Background(), backend, digest, []byte{1}, walletAddr), ErrInvalidSignature)
}

func TestVerifySignatureProbeFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.codeErr = errors.New("rpc down")

	err := VerifySignature(context.Background(), backend, common.Hash{}, nil, common.HexToAddress("0x01"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
}
