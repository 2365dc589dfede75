package nftx

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/chain"
	"github.com/kaifufi/nftx-exchange-go/events"
	"github.com/sirupsen/logrus"
)

// MatchAskWithTakerBid buys the token listed by makerAsk. The caller pays,
// either by attaching exactly the price in native value (wrapped native
// currency only) or through the currency manager; the token goes to
// takerBid's maker.
func (e *Exchange) MatchAskWithTakerBid(ctx context.Context, call Call, takerBid, makerAsk *Order) (*Trade, error) {
	var trade *Trade
	err := e.execute(ctx, "matchAskWithTakerBid", func(ctx context.Context, st *state) ([]events.Event, error) {
		if err := e.checkTaker(ctx, call, takerBid); err != nil {
			return nil, err
		}
		if !CanMatch(takerBid, makerAsk) {
			return nil, ErrOrdersNotMatching
		}
		digest, err := e.verifyMakerOrder(ctx, st, makerAsk)
		if err != nil {
			return nil, err
		}

		value := call.value()
		if value.Sign() > 0 {
			if value.Cmp(makerAsk.Price) != 0 || makerAsk.Currency != e.config.WrappedNative {
				return nil, ErrInvalidValue
			}
		}

		trade, err = e.settle(ctx, st, settlement{
			side:   SideTakerBid,
			digest: digest,
			order:  makerAsk,
			buyer:  takerBid.Maker,
			seller: makerAsk.Maker,
			payer:  call.Sender,
			value:  value,
			from:   makerAsk.Maker,
		})
		if err != nil {
			return nil, err
		}
		return []events.Event{tradeEvent(trade)}, nil
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// MatchBidWithTakerAsk sells a token to the maker of makerBid. The buyer
// pays through the currency manager; the caller hands over the token and
// proceeds go to takerAsk's maker. No native value may be attached.
func (e *Exchange) MatchBidWithTakerAsk(ctx context.Context, call Call, takerAsk, makerBid *Order) (*Trade, error) {
	var trade *Trade
	err := e.execute(ctx, "matchBidWithTakerAsk", func(ctx context.Context, st *state) ([]events.Event, error) {
		if err := e.checkTaker(ctx, call, takerAsk); err != nil {
			return nil, err
		}
		if call.value().Sign() != 0 {
			return nil, ErrInvalidValue
		}
		if !CanMatch(makerBid, takerAsk) {
			return nil, ErrOrdersNotMatching
		}
		digest, err := e.verifyMakerOrder(ctx, st, makerBid)
		if err != nil {
			return nil, err
		}

		// the bid may name any token; the ask names the one being sold
		sold := *makerBid
		sold.TokenID = takerAsk.TokenID

		trade, err = e.settle(ctx, st, settlement{
			side:   SideTakerAsk,
			digest: digest,
			order:  &sold,
			buyer:  makerBid.Maker,
			seller: takerAsk.Maker,
			payer:  makerBid.Maker,
			value:  new(big.Int),
			from:   call.Sender,
		})
		if err != nil {
			return nil, err
		}
		return []events.Event{tradeEvent(trade)}, nil
	})
	if err != nil {
		return nil, err
	}
	return trade, nil
}

// checkTaker applies the caller rules shared by both entry points
func (e *Exchange) checkTaker(ctx context.Context, call Call, taker *Order) error {
	if err := e.checkCaller(ctx, call); err != nil {
		return err
	}
	if taker.Price == nil || taker.TokenID == nil || taker.Amount == nil {
		return ErrOrdersNotMatching
	}
	if !isUint256(taker.Price) {
		return ErrInvalidPrice
	}
	if !isUint256(taker.TokenID) {
		return ErrOrdersNotMatching
	}
	if taker.Maker != call.Sender && !e.isPassThrough(call.Sender) {
		return ErrNotMaker
	}
	return nil
}

// verifyMakerOrder checks the signed side cheapest first and returns its
// digest
func (e *Exchange) verifyMakerOrder(ctx context.Context, st *state, order *Order) (common.Hash, error) {
	if err := checkTerms(order); err != nil {
		return common.Hash{}, err
	}
	if order.Deadline < uint64(e.now().Unix()) {
		return common.Hash{}, ErrOrderExpired
	}
	digest, err := e.orderDigest(st, order)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrOrdersNotMatching, err)
	}
	done, err := st.isFinalized(digest)
	if err != nil {
		return common.Hash{}, err
	}
	if done {
		return common.Hash{}, ErrOrderFinalized
	}
	if err := chain.VerifySignature(ctx, e.env.Caller, digest, order.Signature, order.Maker); err != nil {
		if errors.Is(err, chain.ErrInvalidSignature) {
			return common.Hash{}, ErrInvalidSignature
		}
		return common.Hash{}, err
	}
	return digest, nil
}

// settlement describes one trade to settle
type settlement struct {
	side   Side
	digest common.Hash
	order  *Order // the matched terms with the token actually sold
	buyer  common.Address
	seller common.Address
	payer  common.Address // account the price is taken from
	value  *big.Int       // native value attached by payer
	from   common.Address // account the token is taken from
}

// settle finalizes the digest, splits the price and moves value and token
func (e *Exchange) settle(ctx context.Context, st *state, s settlement) (*Trade, error) {
	order := s.order
	price := order.Price

	settings, err := st.settings(e.defaults)
	if err != nil {
		return nil, err
	}
	fee := bps(price, settings.ProtocolFeeBps)
	royaltyReceiver, royalty, err := e.resolveRoyalty(ctx, st, settings, order.Collection, order.TokenID, price)
	if err != nil {
		return nil, err
	}
	net := new(big.Int).Sub(price, fee)
	net.Sub(net, royalty)
	if net.Sign() < 0 {
		return nil, fmt.Errorf("%w: fee %s royalty %s price %s", ErrFeesExceedPrice, fee, royalty, price)
	}

	st.finalize(s.digest)

	if err := e.collect(ctx, order.Currency, s.payer, price, s.value); err != nil {
		return nil, err
	}
	if err := e.disburse(ctx, order.Currency, royaltyReceiver, royalty); err != nil {
		return nil, fmt.Errorf("failed to pay royalty: %w", err)
	}
	if err := e.disburse(ctx, order.Currency, settings.ProtocolFeeRecipient, fee); err != nil {
		return nil, fmt.Errorf("failed to pay protocol fee: %w", err)
	}
	if err := e.disburse(ctx, order.Currency, s.seller, net); err != nil {
		return nil, fmt.Errorf("failed to pay seller: %w", err)
	}
	if err := e.env.Transfers.TransferNonFungibleToken(ctx, order.Collection, s.from, s.buyer, order.TokenID, order.Amount); err != nil {
		return nil, fmt.Errorf("failed to transfer token: %w", err)
	}

	e.log.WithFields(logrus.Fields{
		"digest":  s.digest.Hex(),
		"price":   price,
		"fee":     fee,
		"royalty": royalty,
	}).Info("trade settled")

	return &Trade{
		Side:            s.side,
		Digest:          s.digest,
		Buyer:           s.buyer,
		Seller:          s.seller,
		Collection:      order.Collection,
		AssetClass:      order.AssetClass,
		TokenID:         new(big.Int).Set(order.TokenID),
		Amount:          new(big.Int).Set(order.Amount),
		Currency:        order.Currency,
		Price:           new(big.Int).Set(price),
		ProtocolFee:     fee,
		RoyaltyReceiver: royaltyReceiver,
		RoyaltyAmount:   royalty,
		NetProceeds:     net,
	}, nil
}

// collect moves the price into the exchange account
func (e *Exchange) collect(ctx context.Context, currency, payer common.Address, price, value *big.Int) error {
	if value.Sign() > 0 {
		if err := e.env.Native.Send(ctx, payer, e.config.Address, value); err != nil {
			return fmt.Errorf("failed to receive payment: %w", err)
		}
		return nil
	}
	if price.Sign() == 0 {
		return nil
	}
	if err := e.env.Currency.TransferFrom(ctx, currency, payer, e.config.Address, price); err != nil {
		return fmt.Errorf("failed to collect payment: %w", err)
	}
	return nil
}

// disburse pays amount of currency out of the exchange account. Wrapped
// native is paid out as native value, unwrapping only what the exchange
// does not already hold natively.
func (e *Exchange) disburse(ctx context.Context, currency, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) || amount.Sign() == 0 {
		return nil
	}
	if currency != e.config.WrappedNative {
		return e.env.Currency.TransferFrom(ctx, currency, e.config.Address, to, amount)
	}

	balance, err := e.env.Native.BalanceAt(ctx, e.config.Address)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		if err := e.env.Wrapped.Withdraw(ctx, e.config.Address, new(big.Int).Sub(amount, balance)); err != nil {
			return fmt.Errorf("failed to unwrap: %w", err)
		}
	}
	return e.env.Native.Send(ctx, e.config.Address, to, amount)
}

func tradeEvent(t *Trade) events.Event {
	typ := events.TypeTakerBid
	if t.Side == SideTakerAsk {
		typ = events.TypeTakerAsk
	}
	return events.NewTrade(typ, events.Trade{
		Buyer:           t.Buyer,
		Seller:          t.Seller,
		Digest:          t.Digest,
		Currency:        t.Currency,
		AssetClass:      t.AssetClass,
		Collection:      t.Collection,
		RoyaltyReceiver: t.RoyaltyReceiver,
		TokenID:         t.TokenID,
		Amount:          t.Amount,
		Price:           t.Price,
		Fee:             t.ProtocolFee,
		RoyaltyAmount:   t.RoyaltyAmount,
	})
}
