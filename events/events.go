// Package events carries the observations the exchange emits for external
// indexers: nonce increments, cancellations, settled trades and royalty
// registry changes.
package events

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Type names an emitted observation
type Type string

const (
	TypeNonceIncremented  Type = "NonceIncremented"
	TypeOrderCancelled    Type = "OrderCancelled"
	TypeOrdersCancelled   Type = "OrdersCancelled"
	TypeTakerBid          Type = "TakerBid"
	TypeTakerAsk          Type = "TakerAsk"
	TypeRoyaltyFeeUpdated Type = "RoyaltyFeeUpdated"
	TypeSettingsUpdated   Type = "SettingsUpdated"
)

// Event is a single emitted observation
type Event struct {
	Type    Type        `json:"type"`
	Key     string      `json:"-"`
	Payload interface{} `json:"payload"`
}

// NonceIncremented is emitted when a maker invalidates all outstanding orders
type NonceIncremented struct {
	Maker    common.Address `json:"maker"`
	NewNonce uint64         `json:"newNonce"`
}

// OrderCancelled is emitted for a single cancelled order
type OrderCancelled struct {
	Maker  common.Address `json:"maker"`
	Digest common.Hash    `json:"digest"`
}

// OrdersCancelled is emitted for a batch cancellation
type OrdersCancelled struct {
	Maker   common.Address `json:"maker"`
	Digests []common.Hash  `json:"digests"`
}

// Trade is emitted once per settled order
type Trade struct {
	Buyer           common.Address `json:"buyer"`
	Seller          common.Address `json:"seller"`
	Digest          common.Hash    `json:"digest"`
	Currency        common.Address `json:"currency"`
	AssetClass      common.Hash    `json:"assetClass"`
	Collection      common.Address `json:"collection"`
	RoyaltyReceiver common.Address `json:"royaltyReceiver"`
	TokenID         *big.Int       `json:"tokenId"`
	Amount          *big.Int       `json:"amount"`
	Price           *big.Int       `json:"price"`
	Fee             *big.Int       `json:"fee"`
	RoyaltyAmount   *big.Int       `json:"royaltyAmount"`
}

// RoyaltyFeeUpdated is emitted when a collection's royalty record is written
type RoyaltyFeeUpdated struct {
	Collection common.Address `json:"collection"`
	Setter     common.Address `json:"setter"`
	Receiver   common.Address `json:"receiver"`
	Fee        uint64         `json:"fee"`
}

// SettingsUpdated is emitted when an administrator changes a setting
type SettingsUpdated struct {
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

// NewNonceIncremented builds a NonceIncremented event
func NewNonceIncremented(maker common.Address, nonce uint64) Event {
	return Event{Type: TypeNonceIncremented, Key: maker.Hex(), Payload: NonceIncremented{Maker: maker, NewNonce: nonce}}
}

// NewOrderCancelled builds an OrderCancelled event
func NewOrderCancelled(maker common.Address, digest common.Hash) Event {
	return Event{Type: TypeOrderCancelled, Key: digest.Hex(), Payload: OrderCancelled{Maker: maker, Digest: digest}}
}

// NewOrdersCancelled builds an OrdersCancelled event
func NewOrdersCancelled(maker common.Address, digests []common.Hash) Event {
	return Event{Type: TypeOrdersCancelled, Key: maker.Hex(), Payload: OrdersCancelled{Maker: maker, Digests: digests}}
}

// NewTrade builds a TakerBid or TakerAsk event
func NewTrade(t Type, trade Trade) Event {
	return Event{Type: t, Key: trade.Digest.Hex(), Payload: trade}
}

// NewRoyaltyFeeUpdated builds a RoyaltyFeeUpdated event
func NewRoyaltyFeeUpdated(collection, setter, receiver common.Address, fee uint64) Event {
	return Event{
		Type:    TypeRoyaltyFeeUpdated,
		Key:     collection.Hex(),
		Payload: RoyaltyFeeUpdated{Collection: collection, Setter: setter, Receiver: receiver, Fee: fee},
	}
}

// NewSettingsUpdated builds a SettingsUpdated event
func NewSettingsUpdated(setting, value string) Event {
	return Event{Type: TypeSettingsUpdated, Key: setting, Payload: SettingsUpdated{Setting: setting, Value: value}}
}

// Sink receives emitted events
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}
