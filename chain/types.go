package chain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// AssetClassERC721 is the only asset class the exchange settles.
var AssetClassERC721 = crypto.Keccak256Hash([]byte("ERC721"))

// TokenIDAny on a buy order accepts any token of the collection.
var TokenIDAny = new(big.Int).Set(math.MaxBig256)

// Interface identifiers probed through ERC165.
var (
	InterfaceIDERC165  = [4]byte{0x01, 0xff, 0xc9, 0xa7}
	InterfaceIDERC721  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	InterfaceIDERC1155 = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
	InterfaceIDERC2981 = [4]byte{0x2a, 0x55, 0x20, 0x5a}
)

// ERC1271MagicValue is returned by isValidSignature(bytes32,bytes) on success.
var ERC1271MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

// Order is a maker's signed intent to buy or sell a non-fungible asset.
type Order struct {
	Maker      common.Address
	Taker      common.Address // zero means any counterparty
	Collection common.Address
	AssetClass common.Hash
	Currency   common.Address
	Price      *big.Int
	TokenID    *big.Int
	Amount     *big.Int
	Deadline   uint64
	Signature  []byte
}

// IsAnyToken reports whether the order accepts any token of the collection.
func (o *Order) IsAnyToken() bool {
	return o.TokenID != nil && o.TokenID.Cmp(TokenIDAny) == 0
}

// OrderJSON is the wire form of an Order. Numbers may be decimal or 0x-hex.
type OrderJSON struct {
	Maker      common.Address        `json:"maker"`
	Taker      common.Address        `json:"taker"`
	Collection common.Address        `json:"collection"`
	AssetClass common.Hash           `json:"assetClass"`
	Currency   common.Address        `json:"currency"`
	Price      *math.HexOrDecimal256 `json:"price"`
	TokenID    *math.HexOrDecimal256 `json:"tokenId"`
	Amount     *math.HexOrDecimal256 `json:"amount"`
	Deadline   math.HexOrDecimal64   `json:"deadline"`
	Signature  hexutil.Bytes         `json:"signature,omitempty"`
}

// MarshalJSON encodes the order in its wire form.
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(OrderJSON{
		Maker:      o.Maker,
		Taker:      o.Taker,
		Collection: o.Collection,
		AssetClass: o.AssetClass,
		Currency:   o.Currency,
		Price:      (*math.HexOrDecimal256)(o.Price),
		TokenID:    (*math.HexOrDecimal256)(o.TokenID),
		Amount:     (*math.HexOrDecimal256)(o.Amount),
		Deadline:   math.HexOrDecimal64(o.Deadline),
		Signature:  o.Signature,
	})
}

// UnmarshalJSON decodes an order from its wire form.
func (o *Order) UnmarshalJSON(data []byte) error {
	var dec OrderJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	if dec.Price == nil {
		return fmt.Errorf("missing required field 'price' for Order")
	}
	if dec.TokenID == nil {
		return fmt.Errorf("missing required field 'tokenId' for Order")
	}
	if dec.Amount == nil {
		return fmt.Errorf("missing required field 'amount' for Order")
	}
	assetClass := dec.AssetClass
	if assetClass == (common.Hash{}) {
		assetClass = AssetClassERC721
	}
	*o = Order{
		Maker:      dec.Maker,
		Taker:      dec.Taker,
		Collection: dec.Collection,
		AssetClass: assetClass,
		Currency:   dec.Currency,
		Price:      (*big.Int)(dec.Price),
		TokenID:    (*big.Int)(dec.TokenID),
		Amount:     (*big.Int)(dec.Amount),
		Deadline:   uint64(dec.Deadline),
		Signature:  dec.Signature,
	}
	return nil
}

// ERC165 ABI JSON for supportsInterface
const erc165ABIJSON = `[
	{
		"constant": true,
		"inputs": [{"name": "interfaceId", "type": "bytes4"}],
		"name": "supportsInterface",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

// ERC2981 ABI JSON for royaltyInfo
const erc2981ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "tokenId", "type": "uint256"},
			{"name": "salePrice", "type": "uint256"}
		],
		"name": "royaltyInfo",
		"outputs": [
			{"name": "receiver", "type": "address"},
			{"name": "royaltyAmount", "type": "uint256"}
		],
		"type": "function"
	}
]`

// Ownership ABI JSON for the owner() and admin() queries
const ownershipABIJSON = `[
	{
		"constant": true,
		"inputs": [],
		"name": "owner",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [],
		"name": "admin",
		"outputs": [{"name": "", "type": "address"}],
		"type": "function"
	}
]`

// ERC1271 ABI JSON for isValidSignature
const erc1271ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "hash", "type": "bytes32"},
			{"name": "signature", "type": "bytes"}
		],
		"name": "isValidSignature",
		"outputs": [{"name": "magicValue", "type": "bytes4"}],
		"type": "function"
	}
]`

var (
	erc165ABI    = mustParseABI("ERC165", erc165ABIJSON)
	erc2981ABI   = mustParseABI("ERC2981", erc2981ABIJSON)
	ownershipABI = mustParseABI("Ownership", ownershipABIJSON)
	erc1271ABI   = mustParseABI("ERC1271", erc1271ABIJSON)
)

// GetERC165ABI returns the parsed ERC165 ABI
func GetERC165ABI() abi.ABI { return erc165ABI }

// GetERC2981ABI returns the parsed ERC2981 ABI
func GetERC2981ABI() abi.ABI { return erc2981ABI }

// GetOwnershipABI returns the parsed owner()/admin() ABI
func GetOwnershipABI() abi.ABI { return ownershipABI }

// GetERC1271ABI returns the parsed ERC1271 ABI
func GetERC1271ABI() abi.ABI { return erc1271ABI }

func mustParseABI(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("failed to parse " + name + " ABI: " + err.Error())
	}
	return parsed
}
