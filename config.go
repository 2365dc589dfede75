package nftx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID represents a blockchain chain ID
type ChainID int64

const (
	ChainIDEthereumMainnet ChainID = 1  // Ethereum mainnet
	ChainIDBNBMainnet      ChainID = 56 // BNB Chain (BSC) mainnet
	ChainIDSepolia         ChainID = 11155111
)

// Big returns the chain id as used in the signing domain
func (c ChainID) Big() *big.Int {
	return big.NewInt(int64(c))
}

// ContractAddresses holds well-known contract addresses for each chain
type ContractAddresses struct {
	WrappedNative string
}

// DefaultContractAddresses maps chain IDs to their contract addresses
var DefaultContractAddresses = map[ChainID]ContractAddresses{
	ChainIDEthereumMainnet: {WrappedNative: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"},
	ChainIDBNBMainnet:      {WrappedNative: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"},
	ChainIDSepolia:         {WrappedNative: "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14"},
}

const (
	// DefaultProtocolFeeBps is the protocol fee when none is configured (2%)
	DefaultProtocolFeeBps = 200

	// MaxProtocolFeeBps caps the protocol fee (10%)
	MaxProtocolFeeBps = 1000

	// DefaultRoyaltyFeeLimit caps collection royalties when none is configured (10%)
	DefaultRoyaltyFeeLimit = 1000

	// MaxRoyaltyFeeLimit is the highest royalty limit an administrator may set (95%)
	MaxRoyaltyFeeLimit = 9500

	// BasisPoints is the denominator of every rate
	BasisPoints = 10000
)

// Config holds configuration for creating an Exchange
type Config struct {
	ChainID ChainID

	// Address is the verifying contract of the signing domain and the
	// account that holds payments while they are split
	Address common.Address

	// Owner may change settings and royalty records of any collection
	Owner common.Address

	// ProtocolFeeBps nil selects DefaultProtocolFeeBps; a zero fee is kept
	ProtocolFeeBps       *uint64
	ProtocolFeeRecipient common.Address

	// WrappedNative defaults to the chain's entry in DefaultContractAddresses
	WrappedNative common.Address

	// PassThrough is the single intermediary allowed to call on behalf of
	// end users; zero disables it
	PassThrough common.Address

	RoyaltyFeeLimit      uint64
	StandardRoyaltyFee   uint64
	GlobalRoyaltyEnabled bool
}

// Bps returns a pointer to a basis point rate, for optional Config fields
func Bps(rate uint64) *uint64 {
	return &rate
}

// withDefaults fills unset fields and validates the result
func (c Config) withDefaults() (Config, error) {
	if c.ChainID <= 0 {
		return c, &InvalidParamError{Message: "chain id is required"}
	}
	if c.Address == (common.Address{}) {
		return c, &InvalidParamError{Message: "exchange address is required"}
	}
	if c.Owner == (common.Address{}) {
		return c, &InvalidParamError{Message: "owner is required"}
	}
	if c.WrappedNative == (common.Address{}) {
		known, ok := DefaultContractAddresses[c.ChainID]
		if !ok {
			return c, &InvalidParamError{Message: "wrapped native address is required for chain " + c.ChainID.Big().String()}
		}
		c.WrappedNative = common.HexToAddress(known.WrappedNative)
	}
	if c.ProtocolFeeBps == nil {
		c.ProtocolFeeBps = Bps(DefaultProtocolFeeBps)
	} else {
		c.ProtocolFeeBps = Bps(*c.ProtocolFeeBps)
	}
	if *c.ProtocolFeeBps > MaxProtocolFeeBps {
		return c, &InvalidParamError{Message: "protocol fee exceeds maximum"}
	}
	if c.ProtocolFeeRecipient == (common.Address{}) {
		c.ProtocolFeeRecipient = c.Owner
	}
	if c.RoyaltyFeeLimit == 0 {
		c.RoyaltyFeeLimit = DefaultRoyaltyFeeLimit
	}
	if c.RoyaltyFeeLimit > MaxRoyaltyFeeLimit {
		return c, &InvalidParamError{Message: "royalty fee limit exceeds maximum"}
	}
	if c.StandardRoyaltyFee > c.RoyaltyFeeLimit {
		return c, &InvalidParamError{Message: "standard royalty fee exceeds royalty fee limit"}
	}
	return c, nil
}

// settings is the mutable part of Config as first persisted
func (c Config) settings() Settings {
	return Settings{
		ProtocolFeeBps:       *c.ProtocolFeeBps,
		ProtocolFeeRecipient: c.ProtocolFeeRecipient,
		RoyaltyFeeLimit:      c.RoyaltyFeeLimit,
		StandardRoyaltyFee:   c.StandardRoyaltyFee,
		GlobalRoyaltyEnabled: c.GlobalRoyaltyEnabled,
	}
}
