package nftx

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/chain"
	"github.com/sirupsen/logrus"
)

// RoyaltyInfo resolves who receives a royalty on a sale of tokenID for
// amount, and how much
func (e *Exchange) RoyaltyInfo(ctx context.Context, collection common.Address, tokenID, amount *big.Int) (common.Address, *big.Int, error) {
	st := newState(e.kv)
	settings, err := st.settings(e.defaults)
	if err != nil {
		return common.Address{}, nil, err
	}
	return e.resolveRoyalty(ctx, st, settings, collection, tokenID, amount)
}

// RoyaltyFeeInfoCollection returns the collection's royalty record; the
// zero FeeInfo when none was ever written
func (e *Exchange) RoyaltyFeeInfoCollection(collection common.Address) (FeeInfo, error) {
	return newState(e.kv).feeInfo(collection)
}

// resolveRoyalty walks registry, then ERC2981, then applies the global
// policy to whatever receiver was found
func (e *Exchange) resolveRoyalty(ctx context.Context, st *state, settings Settings, collection common.Address, tokenID, amount *big.Int) (common.Address, *big.Int, error) {
	info, err := st.feeInfo(collection)
	if err != nil {
		return common.Address{}, nil, err
	}

	receiver := info.Receiver
	royalty := new(big.Int)
	if receiver != (common.Address{}) {
		royalty = bps(amount, info.Fee)
	} else {
		receiver, royalty = e.probeERC2981(ctx, collection, tokenID, amount)
	}

	if receiver == (common.Address{}) {
		return common.Address{}, new(big.Int), nil
	}

	if settings.GlobalRoyaltyEnabled {
		royalty = bps(amount, settings.StandardRoyaltyFee)
	} else if limit := bps(amount, settings.RoyaltyFeeLimit); royalty.Cmp(limit) > 0 {
		royalty = limit
	}
	return receiver, royalty, nil
}

// probeERC2981 asks the collection itself. Any failure means no royalty.
func (e *Exchange) probeERC2981(ctx context.Context, collection common.Address, tokenID, amount *big.Int) (common.Address, *big.Int) {
	log := e.log.WithFields(logrus.Fields{"component": "royalty", "collection": collection.Hex()})

	supported, err := e.caller.SupportsInterface(ctx, collection, chain.InterfaceIDERC2981)
	if err != nil {
		log.WithError(err).Debug("supportsInterface probe failed")
		return common.Address{}, new(big.Int)
	}
	if !supported {
		return common.Address{}, new(big.Int)
	}

	receiver, royalty, err := e.caller.RoyaltyInfo(ctx, collection, tokenID, amount)
	if err != nil || royalty == nil || royalty.Sign() < 0 {
		log.WithError(err).Debug("royaltyInfo probe failed")
		return common.Address{}, new(big.Int)
	}
	return receiver, royalty
}
