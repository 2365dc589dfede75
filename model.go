package nftx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/chain"
)

// Order is a maker's signed intent; see chain.Order
type Order = chain.Order

// Call carries the authenticated identity of the direct caller and any
// native value attached to the call
type Call struct {
	Sender common.Address
	Value  *big.Int
}

func (c Call) value() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}

// FeeInfo is a collection's royalty record
type FeeInfo struct {
	Setter   common.Address
	Receiver common.Address
	Fee      uint64
}

// Settings holds the administrator controlled parameters
type Settings struct {
	ProtocolFeeBps       uint64
	ProtocolFeeRecipient common.Address
	RoyaltyFeeLimit      uint64
	StandardRoyaltyFee   uint64
	GlobalRoyaltyEnabled bool
}

// SetterStatus says how a collection's royalty setter was determined
type SetterStatus int

const (
	SetterRecorded SetterStatus = iota
	SetterERC2981
	SetterOwner
	SetterAdmin
	SetterNone
)

func (s SetterStatus) String() string {
	switch s {
	case SetterRecorded:
		return "recorded"
	case SetterERC2981:
		return "erc2981"
	case SetterOwner:
		return "owner"
	case SetterAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Side tells which party initiated a trade
type Side int

const (
	SideTakerBid Side = iota // buyer took a listing
	SideTakerAsk             // seller took an offer
)

// Trade is the outcome of a settled order
type Trade struct {
	Side            Side
	Digest          common.Hash
	Buyer           common.Address
	Seller          common.Address
	Collection      common.Address
	AssetClass      common.Hash
	TokenID         *big.Int
	Amount          *big.Int
	Currency        common.Address
	Price           *big.Int
	ProtocolFee     *big.Int
	RoyaltyReceiver common.Address
	RoyaltyAmount   *big.Int
	NetProceeds     *big.Int
}
