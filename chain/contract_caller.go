package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrEmptyResult is returned when a probed account answers a call with no
// data, which is what a plain account or a missing function looks like.
var ErrEmptyResult = errors.New("empty call result")

// ContractCaller handles read-only contract interactions used to probe
// signers and collections. Every probe may fail; callers decide whether a
// failure is fatal.
type ContractCaller struct {
	backend bind.ContractCaller
	closer  func()
}

// NewContractCaller creates a ContractCaller over an existing backend
func NewContractCaller(backend bind.ContractCaller) *ContractCaller {
	return &ContractCaller{backend: backend}
}

// Dial creates a ContractCaller connected to an RPC endpoint
func Dial(rpcURL string) (*ContractCaller, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return &ContractCaller{backend: client, closer: client.Close}, nil
}

// Backend returns the underlying contract call transport
func (cc *ContractCaller) Backend() bind.ContractCaller {
	return cc.backend
}

// HasCode reports whether account currently hosts executable code
func (cc *ContractCaller) HasCode(ctx context.Context, account common.Address) (bool, error) {
	code, err := cc.backend.CodeAt(ctx, account, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// SupportsInterface queries ERC165 supportsInterface on target
func (cc *ContractCaller) SupportsInterface(ctx context.Context, target common.Address, interfaceID [4]byte) (bool, error) {
	var supported bool
	if err := cc.call(ctx, target, erc165ABI, "supportsInterface", &supported, interfaceID); err != nil {
		return false, err
	}
	return supported, nil
}

// RoyaltyInfo queries ERC2981 royaltyInfo on collection
func (cc *ContractCaller) RoyaltyInfo(ctx context.Context, collection common.Address, tokenID, salePrice *big.Int) (common.Address, *big.Int, error) {
	result, err := cc.callRaw(ctx, collection, erc2981ABI, "royaltyInfo", tokenID, salePrice)
	if err != nil {
		return common.Address{}, nil, err
	}

	out, err := erc2981ABI.Unpack("royaltyInfo", result)
	if err != nil {
		return common.Address{}, nil, err
	}
	receiver := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	amount := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)
	return receiver, amount, nil
}

// Owner queries owner() on target
func (cc *ContractCaller) Owner(ctx context.Context, target common.Address) (common.Address, error) {
	var owner common.Address
	if err := cc.call(ctx, target, ownershipABI, "owner", &owner); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

// Admin queries admin() on target
func (cc *ContractCaller) Admin(ctx context.Context, target common.Address) (common.Address, error) {
	var admin common.Address
	if err := cc.call(ctx, target, ownershipABI, "admin", &admin); err != nil {
		return common.Address{}, err
	}
	return admin, nil
}

// IsValidSignature queries ERC1271 isValidSignature on a contract signer
func (cc *ContractCaller) IsValidSignature(ctx context.Context, signer common.Address, digest common.Hash, signature []byte) ([4]byte, error) {
	var magic [4]byte
	if err := cc.call(ctx, signer, erc1271ABI, "isValidSignature", &magic, digest, signature); err != nil {
		return [4]byte{}, err
	}
	return magic, nil
}

// Close closes the RPC connection if this caller owns one
func (cc *ContractCaller) Close() {
	if cc.closer != nil {
		cc.closer()
	}
}

// call packs method, calls target and unpacks the single return value into out
func (cc *ContractCaller) call(ctx context.Context, target common.Address, contractABI abi.ABI, method string, out interface{}, args ...interface{}) error {
	result, err := cc.callRaw(ctx, target, contractABI, method, args...)
	if err != nil {
		return err
	}
	return contractABI.UnpackIntoInterface(out, method, result)
}

func (cc *ContractCaller) callRaw(ctx context.Context, target common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	result, err := cc.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &target,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, ErrEmptyResult
	}
	return result, nil
}
