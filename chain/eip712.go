package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Order hashing errors
var (
	ErrNilPrice   = errors.New("order price is not set")
	ErrNilTokenID = errors.New("order token ID is not set")
	ErrNilAmount  = errors.New("order amount is not set")

	// ErrValueOutOfRange is returned for a negative number or one that does
	// not fit in uint256; packing would silently reduce it
	ErrValueOutOfRange = errors.New("value out of uint256 range")
)

// EIP712 domain constants
const (
	EIP712DomainName    = "NFTX Exchange"
	EIP712DomainVersion = "1"
)

// Pre-computed type hashes using keccak256
var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	EIP712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
	))

	// Order(address maker,address taker,address collection,bytes32 assetClass,address currency,uint256 price,uint256 tokenId,uint256 amount,uint256 nonce,uint256 deadline)
	OrderTypeHash = crypto.Keccak256Hash([]byte(
		"Order(address maker,address taker,address collection,bytes32 assetClass,address currency,uint256 price,uint256 tokenId,uint256 amount,uint256 nonce,uint256 deadline)",
	))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	domainArguments = abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: bytes32Type}, // nameHash
		{Type: bytes32Type}, // versionHash
		{Type: uint256Type}, // chainId
		{Type: addressType}, // verifyingContract
	}

	orderArguments = abi.Arguments{
		{Type: bytes32Type}, // typeHash
		{Type: addressType}, // maker
		{Type: addressType}, // taker
		{Type: addressType}, // collection
		{Type: bytes32Type}, // assetClass
		{Type: addressType}, // currency
		{Type: uint256Type}, // price
		{Type: uint256Type}, // tokenId
		{Type: uint256Type}, // amount
		{Type: uint256Type}, // nonce
		{Type: uint256Type}, // deadline
	}
)

// EIP712Domain represents the EIP712 domain separator data
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// NewEIP712Domain creates a new EIP712Domain with the standard values
func NewEIP712Domain(chainID *big.Int, verifyingContract common.Address) *EIP712Domain {
	return &EIP712Domain{
		Name:              EIP712DomainName,
		Version:           EIP712DomainVersion,
		ChainID:           new(big.Int).Set(chainID),
		VerifyingContract: verifyingContract,
	}
}

// Separator computes the EIP712 domain separator hash. It changes with the
// chain ID and the exchange address, so orders never replay across
// deployments.
func (d *EIP712Domain) Separator() common.Hash {
	encoded, err := domainArguments.Pack(
		EIP712DomainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		d.ChainID,
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}

	return crypto.Keccak256Hash(encoded)
}

// StructHash computes the EIP712 struct hash of the order's economic terms
// under the given maker nonce. The signature is not part of the hash.
func StructHash(o *Order, nonce uint64) (common.Hash, error) {
	switch {
	case o.Price == nil:
		return common.Hash{}, ErrNilPrice
	case o.TokenID == nil:
		return common.Hash{}, ErrNilTokenID
	case o.Amount == nil:
		return common.Hash{}, ErrNilAmount
	}
	switch {
	case !isUint256(o.Price):
		return common.Hash{}, fmt.Errorf("%w: price %s", ErrValueOutOfRange, o.Price)
	case !isUint256(o.TokenID):
		return common.Hash{}, fmt.Errorf("%w: tokenId %s", ErrValueOutOfRange, o.TokenID)
	case !isUint256(o.Amount):
		return common.Hash{}, fmt.Errorf("%w: amount %s", ErrValueOutOfRange, o.Amount)
	}

	encoded, err := orderArguments.Pack(
		OrderTypeHash,
		o.Maker,
		o.Taker,
		o.Collection,
		o.AssetClass,
		o.Currency,
		o.Price,
		o.TokenID,
		o.Amount,
		new(big.Int).SetUint64(nonce),
		new(big.Int).SetUint64(o.Deadline),
	)
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(encoded), nil
}

func isUint256(v *big.Int) bool {
	return v.Sign() >= 0 && v.BitLen() <= 256
}

// HashOrder creates the final EIP712 digest a maker signs:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash)
func HashOrder(domain *EIP712Domain, o *Order, nonce uint64) (common.Hash, error) {
	structHash, err := StructHash(o, nonce)
	if err != nil {
		return common.Hash{}, err
	}
	return TypedDataHash(domain.Separator(), structHash), nil
}

// TypedDataHash combines a domain separator and a struct hash.
func TypedDataHash(domainSeparator, structHash common.Hash) common.Hash {
	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, domainSeparator.Bytes()...)
	data = append(data, structHash.Bytes()...)

	return crypto.Keccak256Hash(data)
}
