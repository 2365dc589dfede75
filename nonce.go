package nftx

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/events"
)

// IncrementNonce invalidates every order the caller signed under its current
// nonce and returns the new nonce
func (e *Exchange) IncrementNonce(ctx context.Context, call Call) (uint64, error) {
	var next uint64
	err := e.execute(ctx, "incrementNonce", func(ctx context.Context, st *state) ([]events.Event, error) {
		if err := e.checkCaller(ctx, call); err != nil {
			return nil, err
		}
		current, err := st.nonce(call.Sender)
		if err != nil {
			return nil, err
		}
		next = current + 1
		if err := st.setNonce(call.Sender, next); err != nil {
			return nil, err
		}
		return []events.Event{events.NewNonceIncremented(call.Sender, next)}, nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// CancelOrder flags order as cancelled so it can never be settled. Only the
// maker may cancel.
func (e *Exchange) CancelOrder(ctx context.Context, call Call, order *Order) (common.Hash, error) {
	var digest common.Hash
	err := e.execute(ctx, "cancelOrder", func(ctx context.Context, st *state) ([]events.Event, error) {
		if err := e.checkCaller(ctx, call); err != nil {
			return nil, err
		}
		var err error
		if digest, err = e.cancel(st, call, order); err != nil {
			return nil, err
		}
		return []events.Event{events.NewOrderCancelled(call.Sender, digest)}, nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return digest, nil
}

// CancelOrders cancels every order or none of them
func (e *Exchange) CancelOrders(ctx context.Context, call Call, orders []*Order) ([]common.Hash, error) {
	var digests []common.Hash
	err := e.execute(ctx, "cancelOrders", func(ctx context.Context, st *state) ([]events.Event, error) {
		if err := e.checkCaller(ctx, call); err != nil {
			return nil, err
		}
		for _, order := range orders {
			digest, err := e.cancel(st, call, order)
			if err != nil {
				return nil, err
			}
			digests = append(digests, digest)
		}
		return []events.Event{events.NewOrdersCancelled(call.Sender, digests)}, nil
	})
	if err != nil {
		return nil, err
	}
	return digests, nil
}

func (e *Exchange) cancel(st *state, call Call, order *Order) (common.Hash, error) {
	if order.Maker != call.Sender {
		return common.Hash{}, ErrNotMaker
	}
	digest, err := e.orderDigest(st, order)
	if err != nil {
		return common.Hash{}, err
	}
	done, err := st.isFinalized(digest)
	if err != nil {
		return common.Hash{}, err
	}
	if done {
		return common.Hash{}, ErrOrderFinalized
	}
	st.finalize(digest)
	return digest, nil
}
