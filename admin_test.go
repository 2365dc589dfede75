package nftx

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminSettersRequireOwner(t *testing.T) {
	f := newFixture(t)
	stranger := Call{Sender: f.buyer}

	assert.ErrorIs(t, f.ex.SetProtocolFee(f.ctx, stranger, 100), ErrNotOwner)
	assert.ErrorIs(t, f.ex.SetProtocolFeeRecipient(f.ctx, stranger, f.buyer), ErrNotOwner)
	assert.ErrorIs(t, f.ex.SetRoyaltyFeeLimit(f.ctx, stranger, 100), ErrNotOwner)
	assert.ErrorIs(t, f.ex.SetStandardRoyaltyFee(f.ctx, stranger, 100), ErrNotOwner)
	assert.ErrorIs(t, f.ex.SetGlobalRoyaltyEnabled(f.ctx, stranger, true), ErrNotOwner)
	assert.Empty(t, f.events.Events())
}

func TestAdminSetters(t *testing.T) {
	f := newFixture(t)
	owner := Call{Sender: ownerAddr}
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000fa")

	require.NoError(t, f.ex.SetProtocolFee(f.ctx, owner, 100))
	require.NoError(t, f.ex.SetProtocolFeeRecipient(f.ctx, owner, recipient))
	require.NoError(t, f.ex.SetRoyaltyFeeLimit(f.ctx, owner, 500))
	require.NoError(t, f.ex.SetStandardRoyaltyFee(f.ctx, owner, 250))
	require.NoError(t, f.ex.SetGlobalRoyaltyEnabled(f.ctx, owner, true))

	settings, err := f.ex.Settings()
	require.NoError(t, err)
	assert.Equal(t, Settings{
		ProtocolFeeBps:       100,
		ProtocolFeeRecipient: recipient,
		RoyaltyFeeLimit:      500,
		StandardRoyaltyFee:   250,
		GlobalRoyaltyEnabled: true,
	}, settings)

	evs := f.events.OfType(events.TypeSettingsUpdated)
	require.Len(t, evs, 5)
	assert.Equal(t, events.SettingsUpdated{Setting: "protocolFee", Value: "100"}, evs[0].Payload)
	assert.Equal(t, events.SettingsUpdated{Setting: "globalRoyaltyEnabled", Value: "true"}, evs[4].Payload)
}

func TestAdminSetterCeilings(t *testing.T) {
	f := newFixture(t)
	owner := Call{Sender: ownerAddr}

	assert.ErrorIs(t, f.ex.SetProtocolFee(f.ctx, owner, MaxProtocolFeeBps+1), ErrFeeTooHigh)
	assert.ErrorIs(t, f.ex.SetRoyaltyFeeLimit(f.ctx, owner, MaxRoyaltyFeeLimit+1), ErrFeeTooHigh)
	assert.ErrorIs(t, f.ex.SetStandardRoyaltyFee(f.ctx, owner, DefaultRoyaltyFeeLimit+1), ErrFeeTooHigh)

	require.NoError(t, f.ex.SetStandardRoyaltyFee(f.ctx, owner, 300))
	assert.ErrorIs(t, f.ex.SetRoyaltyFeeLimit(f.ctx, owner, 299), ErrFeeTooHigh)

	settings, err := f.ex.Settings()
	require.NoError(t, err)
	assert.Equal(t, uint64(250), settings.ProtocolFeeBps)
	assert.Equal(t, uint64(DefaultRoyaltyFeeLimit), settings.RoyaltyFeeLimit)
	assert.Equal(t, uint64(300), settings.StandardRoyaltyFee)
}

func TestProtocolFeeChangeAppliesToSettlement(t *testing.T) {
	f, ask := listed(t, usdcAddr)
	require.NoError(t, f.ex.SetProtocolFee(f.ctx, Call{Sender: ownerAddr}, 1000))

	trade, err := f.ex.MatchAskWithTakerBid(f.ctx, Call{Sender: f.buyer}, counter(ask, f.buyer, ask.TokenID), ask)
	require.NoError(t, err)
	assert.Equal(t, bigInt(100), trade.ProtocolFee)
	assert.Equal(t, bigInt(850), trade.NetProceeds)
}

func TestProtocolFeeRecipientCannotBeCleared(t *testing.T) {
	f, ask := listed(t, usdcAddr)

	err := f.ex.SetProtocolFeeRecipient(f.ctx, Call{Sender: ownerAddr}, common.Address{})
	assert.ErrorIs(t, err, ErrNoFeeRecipient)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, f.events.Events())

	settings, err := f.ex.Settings()
	require.NoError(t, err)
	assert.Equal(t, feeRecipient, settings.ProtocolFeeRecipient)

	// every unit of the price leaves the exchange account
	_, err = f.ex.MatchAskWithTakerBid(f.ctx, Call{Sender: f.buyer}, counter(ask, f.buyer, ask.TokenID), ask)
	require.NoError(t, err)
	assert.Equal(t, bigInt(25), f.ledger.TokenBalance(usdcAddr, feeRecipient))
	assert.Equal(t, bigInt(0), f.ledger.TokenBalance(usdcAddr, exchangeAddr))
}
