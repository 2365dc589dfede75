package chain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// OrderData represents the data for building an order
type OrderData struct {
	Taker      common.Address
	Collection common.Address
	Currency   common.Address
	Price      *big.Int
	TokenID    *big.Int // nil builds a collection-wide order
	Deadline   uint64
}

// OrderBuilder builds and signs orders for a single maker key
type OrderBuilder struct {
	domain *EIP712Domain
	signer *ecdsa.PrivateKey
	maker  common.Address
}

// NewOrderBuilder creates a new OrderBuilder
func NewOrderBuilder(exchangeAddr common.Address, chainID int64, signer *ecdsa.PrivateKey) *OrderBuilder {
	return &OrderBuilder{
		domain: NewEIP712Domain(big.NewInt(chainID), exchangeAddr),
		signer: signer,
		maker:  crypto.PubkeyToAddress(signer.PublicKey),
	}
}

// Maker returns the address orders are built for
func (ob *OrderBuilder) Maker() common.Address {
	return ob.maker
}

// Domain returns the EIP712 domain orders are signed under
func (ob *OrderBuilder) Domain() *EIP712Domain {
	return ob.domain
}

// BuildOrder builds an unsigned order from OrderData
func (ob *OrderBuilder) BuildOrder(data *OrderData) (*Order, error) {
	if err := ob.validateInputs(data); err != nil {
		return nil, err
	}

	tokenID := TokenIDAny
	if data.TokenID != nil {
		tokenID = data.TokenID
	}

	return &Order{
		Maker:      ob.maker,
		Taker:      data.Taker,
		Collection: data.Collection,
		AssetClass: AssetClassERC721,
		Currency:   data.Currency,
		Price:      new(big.Int).Set(data.Price),
		TokenID:    new(big.Int).Set(tokenID),
		Amount:     big.NewInt(1),
		Deadline:   data.Deadline,
	}, nil
}

// BuildSignedOrder builds an order and signs it under the maker's nonce
func (ob *OrderBuilder) BuildSignedOrder(data *OrderData, nonce uint64) (*Order, error) {
	order, err := ob.BuildOrder(data)
	if err != nil {
		return nil, err
	}

	if err := ob.SignOrder(order, nonce); err != nil {
		return nil, err
	}
	return order, nil
}

// SignOrder signs the order's EIP712 digest and stores the signature on it
func (ob *OrderBuilder) SignOrder(order *Order, nonce uint64) error {
	digest, err := HashOrder(ob.domain, order, nonce)
	if err != nil {
		return fmt.Errorf("failed to hash order: %w", err)
	}

	signature, err := SignDigest(digest, ob.signer)
	if err != nil {
		return err
	}
	order.Signature = signature
	return nil
}

// SignDigest signs a digest and returns a [R || S || V] signature with V in
// {27, 28}
func SignDigest(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	signature, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign order: %w", err)
	}

	// Add recovery ID
	signature[64] += 27
	return signature, nil
}

func (ob *OrderBuilder) validateInputs(data *OrderData) error {
	if data.Collection == (common.Address{}) {
		return fmt.Errorf("collection is required")
	}
	if data.Price == nil || data.Price.Sign() < 0 {
		return fmt.Errorf("price must be a non-negative integer")
	}
	if data.TokenID != nil && data.TokenID.Sign() < 0 {
		return fmt.Errorf("tokenId must be a non-negative integer")
	}
	if data.Deadline == 0 {
		return fmt.Errorf("deadline is required")
	}
	return nil
}
