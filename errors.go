package nftx

import (
	"errors"

	"github.com/kaifufi/nftx-exchange-go/chain"
)

var (
	// ErrValidation covers orders that cannot be executed as presented
	ErrValidation = errors.New("validation error")

	// ErrAuthorization covers callers acting outside their rights
	ErrAuthorization = errors.New("authorization error")

	// ErrConfiguration covers rates that break a configured ceiling
	ErrConfiguration = errors.New("configuration error")
)

// Error is a rejected operation. Kind is one of ErrValidation,
// ErrAuthorization or ErrConfiguration; Err optionally carries the lower
// level cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is
func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func validationError(msg string) *Error    { return &Error{Kind: ErrValidation, Message: msg} }
func authorizationError(msg string) *Error { return &Error{Kind: ErrAuthorization, Message: msg} }
func configurationError(msg string) *Error { return &Error{Kind: ErrConfiguration, Message: msg} }

// Validation errors
var (
	ErrOrderExpired          = validationError("order expired")
	ErrOrderFinalized        = validationError("order already finalized or cancelled")
	ErrOrdersNotMatching     = validationError("orders do not match")
	ErrUnsupportedAssetClass = validationError("unsupported asset class")
	ErrInvalidAmount         = validationError("amount must be 1")
	ErrInvalidPrice          = validationError("price out of range")
	ErrInvalidValue          = validationError("attached value does not match price")
	ErrInvalidSignature      = &Error{Kind: ErrValidation, Message: "invalid signature", Err: chain.ErrInvalidSignature}
	ErrSetterAlreadySet      = validationError("royalty setter already set")
	ErrCollectionHasERC2981  = validationError("collection declares ERC2981")
	ErrNotNFTCollection      = validationError("collection is not ERC721/ERC1155")
	ErrReentrantCall         = validationError("reentrant call")
)

// Authorization errors
var (
	ErrNotMaker           = authorizationError("caller is not the order maker")
	ErrCallerNotAllowed   = authorizationError("caller must be an externally owned account")
	ErrNotSetter          = authorizationError("caller is not the royalty setter")
	ErrNotOwner           = authorizationError("caller is not the owner")
	ErrNotCollectionOwner = authorizationError("caller is not the collection owner")
	ErrNotCollectionAdmin = authorizationError("caller is not the collection admin")
)

// Configuration errors
var (
	ErrFeeTooHigh      = configurationError("fee exceeds limit")
	ErrFeesExceedPrice = configurationError("fee and royalty exceed price")
	ErrNoFeeRecipient  = configurationError("protocol fee recipient must be set")
)

// InvalidParamError represents an invalid constructor or argument value
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}
