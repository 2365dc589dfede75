package nftx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/chain"
)

// CanMatch reports whether a buy order and a sell order are mutually
// compatible. It performs no signature or state checks.
func CanMatch(buy, sell *Order) bool {
	zero := common.Address{}
	if sell.Taker != zero && sell.Taker != buy.Maker {
		return false
	}
	if buy.Taker != zero && buy.Taker != sell.Maker {
		return false
	}
	if buy.Collection != sell.Collection ||
		buy.AssetClass != sell.AssetClass ||
		buy.Currency != sell.Currency {
		return false
	}
	if !equalInt(buy.Price, sell.Price) || !equalInt(buy.Amount, sell.Amount) {
		return false
	}
	return buy.IsAnyToken() || equalInt(buy.TokenID, sell.TokenID)
}

func equalInt(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// checkTerms validates the parts of an order the exchange can settle
func checkTerms(order *Order) error {
	if order.AssetClass != chain.AssetClassERC721 {
		return ErrUnsupportedAssetClass
	}
	if order.Amount == nil || order.Amount.Cmp(common.Big1) != 0 {
		return ErrInvalidAmount
	}
	if !isUint256(order.Price) {
		return ErrInvalidPrice
	}
	if !isUint256(order.TokenID) {
		return ErrOrdersNotMatching
	}
	return nil
}

// isUint256 reports whether v is set and representable on chain
func isUint256(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.BitLen() <= 256
}
