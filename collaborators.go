package nftx

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// CurrencyManager moves fungible tokens. The exchange uses it both to pull
// the price from a buyer and to push shares out of its own account.
type CurrencyManager interface {
	TransferFrom(ctx context.Context, currency, from, to common.Address, amount *big.Int) error
}

// NativeBank moves the chain's native asset
type NativeBank interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	Send(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// WrappedNative converts between the native asset and its token form for
// account
type WrappedNative interface {
	Deposit(ctx context.Context, account common.Address, amount *big.Int) error
	Withdraw(ctx context.Context, account common.Address, amount *big.Int) error
}

// TransferManager moves a non-fungible token between accounts
type TransferManager interface {
	TransferNonFungibleToken(ctx context.Context, collection, from, to common.Address, tokenID, amount *big.Int) error
}

// Journal lets the exchange undo collaborator effects of a failed call.
// Every snapshot is either reverted or discarded.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
	DiscardSnapshot(id int)
}

// Environment bundles the collaborators the exchange settles through.
// Journal is optional.
type Environment struct {
	Caller    bind.ContractCaller
	Currency  CurrencyManager
	Native    NativeBank
	Wrapped   WrappedNative
	Transfers TransferManager
	Journal   Journal
}

func (env Environment) validate() error {
	switch {
	case env.Caller == nil:
		return &InvalidParamError{Message: "contract caller is required"}
	case env.Currency == nil:
		return &InvalidParamError{Message: "currency manager is required"}
	case env.Native == nil:
		return &InvalidParamError{Message: "native bank is required"}
	case env.Wrapped == nil:
		return &InvalidParamError{Message: "wrapped native is required"}
	case env.Transfers == nil:
		return &InvalidParamError{Message: "transfer manager is required"}
	}
	return nil
}
