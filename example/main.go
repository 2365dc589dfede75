// Example usage of the NFT exchange on the in-memory ledger
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	nftx "github.com/kaifufi/nftx-exchange-go"
	"github.com/kaifufi/nftx-exchange-go/chain"
	"github.com/kaifufi/nftx-exchange-go/events"
	"github.com/kaifufi/nftx-exchange-go/ledger"
	"github.com/kaifufi/nftx-exchange-go/store"
)

var (
	exchangeAddr    = common.HexToAddress("0x0000000000000000000000000000000000e8c4a1")
	ownerAddr       = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	wethAddr        = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	collectionAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	collectionOwner = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	royaltyReceiver = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

func main() {
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Persist exchange state in a throwaway pebble directory
	dir, err := os.MkdirTemp("", "nftx-example")
	if err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	defer os.RemoveAll(dir)
	kv, err := store.OpenPebble(dir)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	// The ledger stands in for the chain: balances, NFTs and contracts
	chainState := ledger.New(wethAddr)
	chainState.Deploy(collectionAddr, ledger.NewERC721().WithOwner(collectionOwner))

	exchange, err := nftx.NewExchange(nftx.Config{
		ChainID:       nftx.ChainIDSepolia,
		Address:       exchangeAddr,
		Owner:         ownerAddr,
		WrappedNative: wethAddr,
	}, nftx.Environment{
		Caller:    chainState,
		Currency:  chainState,
		Native:    chainState,
		Wrapped:   chainState,
		Transfers: chainState,
		Journal:   chainState,
	},
		nftx.WithStore(kv),
		nftx.WithSink(events.NewLogSink(logrus.NewEntry(logger))),
		nftx.WithLogger(logrus.NewEntry(logger)),
	)
	if err != nil {
		log.Fatalf("Failed to create exchange: %v", err)
	}
	defer exchange.Close()

	sellerKey, _ := crypto.GenerateKey()
	buyerKey, _ := crypto.GenerateKey()
	seller := crypto.PubkeyToAddress(sellerKey.PublicKey)
	buyer := crypto.PubkeyToAddress(buyerKey.PublicKey)

	price, err := nftx.ParseUnits("1.5", 18)
	if err != nil {
		log.Fatalf("Failed to parse price: %v", err)
	}
	chainState.MintNFT(collectionAddr, big.NewInt(1), seller)
	chainState.MintNFT(collectionAddr, big.NewInt(2), seller)
	chainState.Fund(buyer, new(big.Int).Mul(price, big.NewInt(2)))

	// The collection owner registers a 5% royalty
	fmt.Println("Registering collection royalty...")
	err = exchange.UpdateRoyaltyInfoForCollectionIfOwner(ctx, nftx.Call{Sender: collectionOwner},
		collectionAddr, collectionOwner, royaltyReceiver, 500)
	if err != nil {
		log.Fatalf("Failed to set royalty: %v", err)
	}

	// Seller lists token 1; buyer pays in native currency
	fmt.Println("\nFilling a listing with native currency...")
	sellerBuilder := chain.NewOrderBuilder(exchangeAddr, int64(nftx.ChainIDSepolia), sellerKey)
	deadline := uint64(time.Now().Add(time.Hour).Unix())
	ask, err := sellerBuilder.BuildSignedOrder(&chain.OrderData{
		Collection: collectionAddr,
		Currency:   wethAddr,
		Price:      price,
		TokenID:    big.NewInt(1),
		Deadline:   deadline,
	}, 0)
	if err != nil {
		log.Fatalf("Failed to sign listing: %v", err)
	}

	takerBid := &nftx.Order{
		Maker:      buyer,
		Collection: ask.Collection,
		AssetClass: ask.AssetClass,
		Currency:   ask.Currency,
		Price:      ask.Price,
		TokenID:    ask.TokenID,
		Amount:     ask.Amount,
		Deadline:   ask.Deadline,
	}
	trade, err := exchange.MatchAskWithTakerBid(ctx, nftx.Call{Sender: buyer, Value: price}, takerBid, ask)
	if err != nil {
		log.Fatalf("Failed to fill listing: %v", err)
	}
	fmt.Printf("Trade: %+v\n", trade)

	// Seller cancels the listing of token 2 before anyone fills it
	fmt.Println("\nCancelling a listing...")
	second, err := sellerBuilder.BuildSignedOrder(&chain.OrderData{
		Collection: collectionAddr,
		Currency:   wethAddr,
		Price:      price,
		TokenID:    big.NewInt(2),
		Deadline:   deadline,
	}, 0)
	if err != nil {
		log.Fatalf("Failed to sign listing: %v", err)
	}
	digest, err := exchange.CancelOrder(ctx, nftx.Call{Sender: seller}, second)
	if err != nil {
		log.Fatalf("Failed to cancel: %v", err)
	}
	fmt.Printf("Cancelled order %s\n", digest.Hex())

	owner, _ := chainState.OwnerOf(collectionAddr, big.NewInt(1))
	fmt.Printf("\nToken 1 owner: %s\n", owner.Hex())
	fmt.Printf("Seller balance: %s\n", chainState.NativeBalance(seller))
	fmt.Printf("Royalty receiver balance: %s\n", chainState.NativeBalance(royaltyReceiver))
	fmt.Printf("Buyer balance: %s\n", chainState.NativeBalance(buyer))
}
