package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/chain"
)

// Collection simulates an NFT contract's view functions: ERC165
// supportsInterface, ERC2981 royaltyInfo and owner()/admin(). Functions that
// are left unset revert, like a contract that lacks them.
type Collection struct {
	Interfaces [][4]byte

	// Owner and Admin are exposed only when non-nil
	Owner *common.Address
	Admin *common.Address

	// RoyaltyReceiver and RoyaltyBps answer royaltyInfo when ERC2981 is
	// declared
	RoyaltyReceiver common.Address
	RoyaltyBps      uint64

	// Revert makes every call revert
	Revert bool
}

// NewERC721 returns a collection declaring ERC165 and ERC721
func NewERC721() *Collection {
	return &Collection{Interfaces: [][4]byte{chain.InterfaceIDERC165, chain.InterfaceIDERC721}}
}

// WithOwner exposes owner()
func (c *Collection) WithOwner(owner common.Address) *Collection {
	c.Owner = &owner
	return c
}

// WithAdmin exposes admin()
func (c *Collection) WithAdmin(admin common.Address) *Collection {
	c.Admin = &admin
	return c
}

// WithRoyalty declares ERC2981 paying bps of every sale to receiver
func (c *Collection) WithRoyalty(receiver common.Address, bps uint64) *Collection {
	c.Interfaces = append(c.Interfaces, chain.InterfaceIDERC2981)
	c.RoyaltyReceiver = receiver
	c.RoyaltyBps = bps
	return c
}

func (c *Collection) supports(id [4]byte) bool {
	for _, have := range c.Interfaces {
		if have == id {
			return true
		}
	}
	return false
}

// Call answers an ABI encoded view call
func (c *Collection) Call(_ context.Context, input []byte) ([]byte, error) {
	if c.Revert || len(input) < 4 {
		return nil, ErrReverted
	}
	selector := input[:4]
	erc165, erc2981, ownership := chain.GetERC165ABI(), chain.GetERC2981ABI(), chain.GetOwnershipABI()

	if method, err := erc165.MethodById(selector); err == nil {
		args, err := method.Inputs.Unpack(input[4:])
		if err != nil {
			return nil, ErrReverted
		}
		id := *abi.ConvertType(args[0], new([4]byte)).(*[4]byte)
		return method.Outputs.Pack(c.supports(id))
	}

	if method, err := erc2981.MethodById(selector); err == nil {
		if !c.supports(chain.InterfaceIDERC2981) {
			return nil, ErrReverted
		}
		args, err := method.Inputs.Unpack(input[4:])
		if err != nil {
			return nil, ErrReverted
		}
		salePrice := args[1].(*big.Int)
		amount := new(big.Int).Mul(salePrice, new(big.Int).SetUint64(c.RoyaltyBps))
		amount.Quo(amount, big.NewInt(10000))
		return method.Outputs.Pack(c.RoyaltyReceiver, amount)
	}

	if method, err := ownership.MethodById(selector); err == nil {
		var who *common.Address
		switch method.Name {
		case "owner":
			who = c.Owner
		case "admin":
			who = c.Admin
		}
		if who == nil {
			return nil, ErrReverted
		}
		return method.Outputs.Pack(*who)
	}

	return nil, fmt.Errorf("%w: unknown selector %x", ErrReverted, selector)
}

// SmartWallet simulates an ERC1271 contract account that accepts signatures
// made by its owner key
type SmartWallet struct {
	Owner common.Address
}

// Call answers isValidSignature(bytes32,bytes)
func (w *SmartWallet) Call(_ context.Context, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, ErrReverted
	}
	erc1271 := chain.GetERC1271ABI()
	method, err := erc1271.MethodById(input[:4])
	if err != nil {
		return nil, ErrReverted
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, ErrReverted
	}
	digest := common.Hash(args[0].([32]byte))
	signer, err := chain.RecoverSigner(digest, args[1].([]byte))
	if err != nil || signer != w.Owner {
		return method.Outputs.Pack([4]byte{})
	}
	return method.Outputs.Pack(chain.ERC1271MagicValue)
}
