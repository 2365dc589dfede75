package nftx

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/chain"
	"github.com/kaifufi/nftx-exchange-go/events"
)

// setterProbe is one tier of the setter lookup. ok=false falls through to
// the next tier.
type setterProbe func(ctx context.Context) (setter common.Address, status SetterStatus, ok bool)

// firstSetter runs probes in order and returns the first that answers
func firstSetter(ctx context.Context, probes ...setterProbe) (common.Address, SetterStatus) {
	for _, probe := range probes {
		if setter, status, ok := probe(ctx); ok {
			return setter, status
		}
	}
	return common.Address{}, SetterNone
}

// CheckForCollectionSetter reports who may set the collection's royalty:
// the recorded setter, nobody because the collection declares ERC2981, its
// owner(), its admin(), or nobody at all
func (e *Exchange) CheckForCollectionSetter(ctx context.Context, collection common.Address) (common.Address, SetterStatus, error) {
	info, err := newState(e.kv).feeInfo(collection)
	if err != nil {
		return common.Address{}, SetterNone, err
	}
	setter, status := e.collectionSetter(ctx, collection, info)
	return setter, status, nil
}

func (e *Exchange) collectionSetter(ctx context.Context, collection common.Address, info FeeInfo) (common.Address, SetterStatus) {
	log := e.log.WithField("collection", collection.Hex())
	return firstSetter(ctx,
		func(context.Context) (common.Address, SetterStatus, bool) {
			return info.Setter, SetterRecorded, info.Setter != (common.Address{})
		},
		func(ctx context.Context) (common.Address, SetterStatus, bool) {
			ok, err := e.caller.SupportsInterface(ctx, collection, chain.InterfaceIDERC2981)
			if err != nil {
				log.WithError(err).Debug("supportsInterface probe failed")
			}
			return common.Address{}, SetterERC2981, err == nil && ok
		},
		func(ctx context.Context) (common.Address, SetterStatus, bool) {
			owner, err := e.caller.Owner(ctx, collection)
			if err != nil {
				log.WithError(err).Debug("owner probe failed")
			}
			return owner, SetterOwner, err == nil && owner != (common.Address{})
		},
		func(ctx context.Context) (common.Address, SetterStatus, bool) {
			admin, err := e.caller.Admin(ctx, collection)
			if err != nil {
				log.WithError(err).Debug("admin probe failed")
			}
			return admin, SetterAdmin, err == nil && admin != (common.Address{})
		},
	)
}

// UpdateRoyaltyInfoForCollectionIfOwner lets the collection's owner() claim
// the first royalty record of a collection
func (e *Exchange) UpdateRoyaltyInfoForCollectionIfOwner(ctx context.Context, call Call, collection, setter, receiver common.Address, fee uint64) error {
	return e.execute(ctx, "updateRoyaltyIfOwner", func(ctx context.Context, st *state) ([]events.Event, error) {
		owner, err := e.caller.Owner(ctx, collection)
		if err != nil || owner != call.Sender {
			return nil, ErrNotCollectionOwner
		}
		return e.claimRoyalty(ctx, st, collection, setter, receiver, fee)
	})
}

// UpdateRoyaltyInfoForCollectionIfAdmin lets the collection's admin() claim
// the first royalty record of a collection
func (e *Exchange) UpdateRoyaltyInfoForCollectionIfAdmin(ctx context.Context, call Call, collection, setter, receiver common.Address, fee uint64) error {
	return e.execute(ctx, "updateRoyaltyIfAdmin", func(ctx context.Context, st *state) ([]events.Event, error) {
		admin, err := e.caller.Admin(ctx, collection)
		if err != nil || admin != call.Sender {
			return nil, ErrNotCollectionAdmin
		}
		return e.claimRoyalty(ctx, st, collection, setter, receiver, fee)
	})
}

// UpdateRoyaltyInfoForCollectionIfSetter lets the recorded setter rewrite
// the collection's royalty record
func (e *Exchange) UpdateRoyaltyInfoForCollectionIfSetter(ctx context.Context, call Call, collection, setter, receiver common.Address, fee uint64) error {
	return e.execute(ctx, "updateRoyaltyIfSetter", func(ctx context.Context, st *state) ([]events.Event, error) {
		info, err := st.feeInfo(collection)
		if err != nil {
			return nil, err
		}
		if info.Setter == (common.Address{}) || info.Setter != call.Sender {
			return nil, ErrNotSetter
		}
		return e.writeRoyalty(st, collection, setter, receiver, fee)
	})
}

// UpdateRoyaltyInfoForCollection lets the exchange owner write any
// collection's royalty record
func (e *Exchange) UpdateRoyaltyInfoForCollection(ctx context.Context, call Call, collection, setter, receiver common.Address, fee uint64) error {
	return e.execute(ctx, "updateRoyalty", func(ctx context.Context, st *state) ([]events.Event, error) {
		if err := e.requireOwner(call); err != nil {
			return nil, err
		}
		return e.writeRoyalty(st, collection, setter, receiver, fee)
	})
}

// claimRoyalty applies the first-assignment rules shared by owner and admin
func (e *Exchange) claimRoyalty(ctx context.Context, st *state, collection, setter, receiver common.Address, fee uint64) ([]events.Event, error) {
	info, err := st.feeInfo(collection)
	if err != nil {
		return nil, err
	}
	if info.Setter != (common.Address{}) {
		return nil, ErrSetterAlreadySet
	}
	if ok, err := e.caller.SupportsInterface(ctx, collection, chain.InterfaceIDERC2981); err == nil && ok {
		return nil, ErrCollectionHasERC2981
	}
	is721, err721 := e.caller.SupportsInterface(ctx, collection, chain.InterfaceIDERC721)
	is1155, err1155 := e.caller.SupportsInterface(ctx, collection, chain.InterfaceIDERC1155)
	if !(err721 == nil && is721) && !(err1155 == nil && is1155) {
		return nil, ErrNotNFTCollection
	}
	return e.writeRoyalty(st, collection, setter, receiver, fee)
}

// writeRoyalty overwrites the whole record
func (e *Exchange) writeRoyalty(st *state, collection, setter, receiver common.Address, fee uint64) ([]events.Event, error) {
	settings, err := st.settings(e.defaults)
	if err != nil {
		return nil, err
	}
	if fee > settings.RoyaltyFeeLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, fee, settings.RoyaltyFeeLimit)
	}
	if err := st.setFeeInfo(collection, FeeInfo{Setter: setter, Receiver: receiver, Fee: fee}); err != nil {
		return nil, err
	}
	e.log.WithField("collection", collection.Hex()).WithField("fee", fee).Info("royalty updated")
	return []events.Event{events.NewRoyaltyFeeUpdated(collection, setter, receiver, fee)}, nil
}
