// Package nftx is a peer-to-peer exchange for non-fungible tokens. Makers
// sign orders off-chain; takers present them with a matching counter-order
// and the exchange verifies, splits the payment between royalty receiver,
// protocol and seller, and moves the token.
package nftx

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kaifufi/nftx-exchange-go/chain"
	"github.com/kaifufi/nftx-exchange-go/events"
	"github.com/kaifufi/nftx-exchange-go/store"
	"github.com/sirupsen/logrus"
)

// Exchange matches and settles signed orders
type Exchange struct {
	config   Config
	env      Environment
	domain   *chain.EIP712Domain
	caller   *chain.ContractCaller
	kv       store.KV
	sink     events.Sink
	log      *logrus.Entry
	now      func() time.Time
	turn     chan struct{}
	defaults Settings
}

// inCall marks the context handed to collaborators during an operation
type inCall struct{ e *Exchange }

// Option customizes an Exchange
type Option func(*Exchange)

// WithStore persists state in kv instead of process memory
func WithStore(kv store.KV) Option {
	return func(e *Exchange) { e.kv = kv }
}

// WithSink publishes events to sink
func WithSink(sink events.Sink) Option {
	return func(e *Exchange) { e.sink = sink }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(e *Exchange) { e.log = log }
}

// WithClock sets the time source used for deadline checks
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) { e.now = now }
}

// NewExchange creates an Exchange settling through env
func NewExchange(config Config, env Environment, opts ...Option) (*Exchange, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := env.validate(); err != nil {
		return nil, err
	}

	e := &Exchange{
		config:   config,
		env:      env,
		domain:   chain.NewEIP712Domain(config.ChainID.Big(), config.Address),
		caller:   chain.NewContractCaller(env.Caller),
		sink:     events.Discard,
		now:      time.Now,
		turn:     make(chan struct{}, 1),
		defaults: config.settings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.kv == nil {
		e.kv = store.NewMemory()
	}
	if e.log == nil {
		e.log = logrus.NewEntry(logrus.StandardLogger())
	}
	e.log = e.log.WithField("component", "exchange")

	e.log.WithFields(logrus.Fields{
		"chainId":  config.ChainID,
		"exchange": config.Address.Hex(),
		"domain":   e.domain.Separator().Hex(),
	}).Info("exchange ready")
	return e, nil
}

// Config returns the effective configuration
func (e *Exchange) Config() Config {
	return e.config
}

// Domain returns the signing domain orders must be signed under
func (e *Exchange) Domain() *chain.EIP712Domain {
	return e.domain
}

// Close closes the underlying store
func (e *Exchange) Close() error {
	return e.kv.Close()
}

// OrderDigest hashes order under its maker's current nonce
func (e *Exchange) OrderDigest(order *Order) (common.Hash, error) {
	return e.orderDigest(newState(e.kv), order)
}

func (e *Exchange) orderDigest(st *state, order *Order) (common.Hash, error) {
	nonce, err := st.nonce(order.Maker)
	if err != nil {
		return common.Hash{}, err
	}
	return chain.HashOrder(e.domain, order, nonce)
}

// Nonce returns maker's current nonce
func (e *Exchange) Nonce(maker common.Address) (uint64, error) {
	return newState(e.kv).nonce(maker)
}

// IsFinalized reports whether digest was settled or cancelled
func (e *Exchange) IsFinalized(digest common.Hash) (bool, error) {
	return newState(e.kv).isFinalized(digest)
}

// Settings returns the current administrator controlled parameters
func (e *Exchange) Settings() (Settings, error) {
	return newState(e.kv).settings(e.defaults)
}

// enter waits for the exchange to be free and returns the context to run
// under and a func releasing it. A call made from within a running
// operation, recognized by its context, fails with ErrReentrantCall.
func (e *Exchange) enter(ctx context.Context) (context.Context, func(), error) {
	if ctx.Value(inCall{e}) != nil {
		return nil, nil, ErrReentrantCall
	}
	select {
	case e.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
	return context.WithValue(ctx, inCall{e}, true), func() { <-e.turn }, nil
}

// execute runs fn as one atomic unit: staged state is committed and events
// published only when fn succeeds; otherwise collaborator effects are
// reverted through the journal when one is available. Operations run one at
// a time; collaborators must pass on the context they are given.
func (e *Exchange) execute(ctx context.Context, op string, fn func(ctx context.Context, st *state) ([]events.Event, error)) error {
	ctx, release, err := e.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	snapshot := -1
	if e.env.Journal != nil {
		snapshot = e.env.Journal.Snapshot()
	}
	revert := func() {
		if snapshot >= 0 {
			e.env.Journal.RevertToSnapshot(snapshot)
		}
	}

	st := newState(e.kv)
	evs, err := fn(ctx, st)
	if err != nil {
		revert()
		e.log.WithError(err).WithField("op", op).Debug("operation rejected")
		return err
	}
	if err := st.commit(); err != nil {
		revert()
		return err
	}
	if snapshot >= 0 {
		e.env.Journal.DiscardSnapshot(snapshot)
	}

	for _, ev := range evs {
		if err := e.sink.Emit(ctx, ev); err != nil {
			e.log.WithError(err).WithField("event", ev.Type).Warn("failed to emit event")
		}
	}
	return nil
}

// checkCaller enforces that the direct caller is a plain account, unless it
// is the configured pass-through intermediary
func (e *Exchange) checkCaller(ctx context.Context, call Call) error {
	if e.isPassThrough(call.Sender) {
		return nil
	}
	hasCode, err := e.caller.HasCode(ctx, call.Sender)
	if err != nil {
		return fmt.Errorf("failed to probe caller code: %w", err)
	}
	if hasCode {
		return ErrCallerNotAllowed
	}
	return nil
}

func (e *Exchange) isPassThrough(account common.Address) bool {
	return e.config.PassThrough != (common.Address{}) && account == e.config.PassThrough
}

func (e *Exchange) requireOwner(call Call) error {
	if call.Sender != e.config.Owner {
		return ErrNotOwner
	}
	return nil
}
