package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/kaifufi/nftx-exchange-go/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	weth  = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	token = common.HexToAddress("0x00000000000000000000000000000000000000e2")
	nft   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func TestBalances(t *testing.T) {
	ctx := context.Background()
	l := New(weth)

	l.Mint(token, alice, big.NewInt(100))
	require.NoError(t, l.TransferFrom(ctx, token, alice, bob, big.NewInt(40)))
	assert.Equal(t, big.NewInt(60), l.TokenBalance(token, alice))
	assert.Equal(t, big.NewInt(40), l.TokenBalance(token, bob))

	err := l.TransferFrom(ctx, token, bob, alice, big.NewInt(41))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, big.NewInt(40), l.TokenBalance(token, bob))

	l.Fund(alice, big.NewInt(10))
	require.NoError(t, l.Send(ctx, alice, bob, big.NewInt(3)))
	bal, err := l.BalanceAt(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), bal)
	assert.ErrorIs(t, l.Send(ctx, bob, alice, big.NewInt(4)), ErrInsufficientBalance)
}

func TestWrapUnwrap(t *testing.T) {
	ctx := context.Background()
	l := New(weth)
	l.Fund(alice, big.NewInt(10))

	require.NoError(t, l.Deposit(ctx, alice, big.NewInt(7)))
	assert.Equal(t, big.NewInt(3), l.NativeBalance(alice))
	assert.Equal(t, big.NewInt(7), l.TokenBalance(weth, alice))

	require.NoError(t, l.Withdraw(ctx, alice, big.NewInt(2)))
	assert.Equal(t, big.NewInt(5), l.NativeBalance(alice))
	assert.Equal(t, big.NewInt(5), l.TokenBalance(weth, alice))

	assert.ErrorIs(t, l.Withdraw(ctx, alice, big.NewInt(6)), ErrInsufficientBalance)
}

func TestTransferNonFungibleToken(t *testing.T) {
	ctx := context.Background()
	l := New(weth)
	id := big.NewInt(7)
	l.MintNFT(nft, id, alice)

	var hooked *big.Int
	l.OnReceive(bob, func(_ context.Context, collection, from common.Address, tokenID *big.Int) error {
		assert.Equal(t, nft, collection)
		assert.Equal(t, alice, from)
		hooked = tokenID
		return nil
	})

	err := l.TransferNonFungibleToken(ctx, nft, bob, alice, id, common.Big1)
	assert.ErrorIs(t, err, ErrNotTokenOwner)

	require.NoError(t, l.TransferNonFungibleToken(ctx, nft, alice, bob, id, common.Big1))
	owner, ok := l.OwnerOf(nft, id)
	require.True(t, ok)
	assert.Equal(t, bob, owner)
	assert.Equal(t, id, hooked)

	assert.Error(t, l.TransferNonFungibleToken(ctx, nft, bob, alice, id, big.NewInt(2)))
	_, ok = l.OwnerOf(nft, big.NewInt(8))
	assert.False(t, ok)
}

func TestSnapshotRevert(t *testing.T) {
	ctx := context.Background()
	l := New(weth)
	l.Mint(token, alice, big.NewInt(100))
	l.MintNFT(nft, common.Big1, alice)

	snap := l.Snapshot()
	require.NoError(t, l.TransferFrom(ctx, token, alice, bob, big.NewInt(100)))
	require.NoError(t, l.TransferNonFungibleToken(ctx, nft, alice, bob, common.Big1, common.Big1))
	l.RevertToSnapshot(snap)

	assert.Equal(t, big.NewInt(100), l.TokenBalance(token, alice))
	assert.Equal(t, big.NewInt(0), l.TokenBalance(token, bob))
	owner, _ := l.OwnerOf(nft, common.Big1)
	assert.Equal(t, alice, owner)

	assert.Panics(t, func() { l.RevertToSnapshot(snap) })
}

func TestSnapshotDiscard(t *testing.T) {
	ctx := context.Background()
	l := New(weth)
	l.Mint(token, alice, big.NewInt(100))

	first := l.Snapshot()
	l.Snapshot()
	require.Equal(t, 2, l.Snapshots())
	require.NoError(t, l.TransferFrom(ctx, token, alice, bob, big.NewInt(40)))

	l.DiscardSnapshot(first)
	assert.Equal(t, 0, l.Snapshots())
	assert.Equal(t, big.NewInt(40), l.TokenBalance(token, bob))
	assert.Panics(t, func() { l.DiscardSnapshot(first) })
}

func TestCollectionThroughContractCaller(t *testing.T) {
	ctx := context.Background()
	l := New(weth)
	cc := chain.NewContractCaller(l)

	royalties := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	l.Deploy(nft, NewERC721().WithOwner(alice).WithRoyalty(royalties, 250))

	hasCode, err := cc.HasCode(ctx, nft)
	require.NoError(t, err)
	assert.True(t, hasCode)
	hasCode, err = cc.HasCode(ctx, alice)
	require.NoError(t, err)
	assert.False(t, hasCode)

	ok, err := cc.SupportsInterface(ctx, nft, chain.InterfaceIDERC721)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = cc.SupportsInterface(ctx, nft, chain.InterfaceIDERC1155)
	require.NoError(t, err)
	assert.False(t, ok)

	receiver, amount, err := cc.RoyaltyInfo(ctx, nft, common.Big1, big.NewInt(10000))
	require.NoError(t, err)
	assert.Equal(t, royalties, receiver)
	assert.Equal(t, big.NewInt(250), amount)

	owner, err := cc.Owner(ctx, nft)
	require.NoError(t, err)
	assert.Equal(t, alice, owner)

	_, err = cc.Admin(ctx, nft)
	assert.ErrorIs(t, err, ErrReverted)

	// plain accounts answer with nothing
	_, err = cc.Owner(ctx, bob)
	assert.ErrorIs(t, err, chain.ErrEmptyResult)
}

func TestRevertingCollection(t *testing.T) {
	l := New(weth)
	l.Deploy(nft, &Collection{Revert: true})

	_, err := chain.NewContractCaller(l).SupportsInterface(context.Background(), nft, chain.InterfaceIDERC165)
	assert.ErrorIs(t, err, ErrReverted)
}

func TestSmartWallet(t *testing.T) {
	ctx := context.Background()
	l := New(weth)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	walletAddr := common.HexToAddress("0x00000000000000000000000000000000000000d1")
	l.Deploy(walletAddr, &SmartWallet{Owner: crypto.PubkeyToAddress(key.PublicKey)})

	digest := crypto.Keccak256Hash([]byte("order"))
	sig, err := chain.SignDigest(digest, key)
	require.NoError(t, err)
	require.NoError(t, chain.VerifySignature(ctx, l, digest, sig, walletAddr))

	bad, err := chain.SignDigest(digest, other)
	require.NoError(t, err)
	assert.ErrorIs(t, chain.VerifySignature(ctx, l, digest, bad, walletAddr), chain.ErrInvalidSignature)
}
