package nftx

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/events"
)

// SetProtocolFee sets the protocol fee in basis points
func (e *Exchange) SetProtocolFee(ctx context.Context, call Call, fee uint64) error {
	return e.updateSettings(ctx, call, "protocolFee", strconv.FormatUint(fee, 10), func(s *Settings) error {
		if fee > MaxProtocolFeeBps {
			return fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, fee, MaxProtocolFeeBps)
		}
		s.ProtocolFeeBps = fee
		return nil
	})
}

// SetProtocolFeeRecipient sets the account protocol fees are paid to. It
// may not be the zero address.
func (e *Exchange) SetProtocolFeeRecipient(ctx context.Context, call Call, recipient common.Address) error {
	return e.updateSettings(ctx, call, "protocolFeeRecipient", recipient.Hex(), func(s *Settings) error {
		if recipient == (common.Address{}) {
			return ErrNoFeeRecipient
		}
		s.ProtocolFeeRecipient = recipient
		return nil
	})
}

// SetRoyaltyFeeLimit sets the highest royalty rate a collection may carry.
// It may not drop below the standard royalty fee.
func (e *Exchange) SetRoyaltyFeeLimit(ctx context.Context, call Call, limit uint64) error {
	return e.updateSettings(ctx, call, "royaltyFeeLimit", strconv.FormatUint(limit, 10), func(s *Settings) error {
		if limit > MaxRoyaltyFeeLimit {
			return fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, limit, MaxRoyaltyFeeLimit)
		}
		if limit < s.StandardRoyaltyFee {
			return fmt.Errorf("%w: limit %d below standard fee %d", ErrFeeTooHigh, limit, s.StandardRoyaltyFee)
		}
		s.RoyaltyFeeLimit = limit
		return nil
	})
}

// SetStandardRoyaltyFee sets the rate applied while the global override is on
func (e *Exchange) SetStandardRoyaltyFee(ctx context.Context, call Call, fee uint64) error {
	return e.updateSettings(ctx, call, "standardRoyaltyFee", strconv.FormatUint(fee, 10), func(s *Settings) error {
		if fee > s.RoyaltyFeeLimit {
			return fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, fee, s.RoyaltyFeeLimit)
		}
		s.StandardRoyaltyFee = fee
		return nil
	})
}

// SetGlobalRoyaltyEnabled toggles the global royalty override
func (e *Exchange) SetGlobalRoyaltyEnabled(ctx context.Context, call Call, enabled bool) error {
	return e.updateSettings(ctx, call, "globalRoyaltyEnabled", strconv.FormatBool(enabled), func(s *Settings) error {
		s.GlobalRoyaltyEnabled = enabled
		return nil
	})
}

func (e *Exchange) updateSettings(ctx context.Context, call Call, name, value string, apply func(*Settings) error) error {
	return e.execute(ctx, "set "+name, func(ctx context.Context, st *state) ([]events.Event, error) {
		if err := e.requireOwner(call); err != nil {
			return nil, err
		}
		settings, err := st.settings(e.defaults)
		if err != nil {
			return nil, err
		}
		if err := apply(&settings); err != nil {
			return nil, err
		}
		if err := st.setSettings(settings); err != nil {
			return nil, err
		}
		e.log.WithField("setting", name).WithField("value", value).Info("settings updated")
		return []events.Event{events.NewSettingsUpdated(name, value)}, nil
	})
}
