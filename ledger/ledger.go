// Package ledger is an in-memory execution environment for the exchange. It
// keeps native balances, token balances and token ownership, hosts simulated
// contracts that answer ABI encoded calls, and can snapshot and revert all of
// it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned when an account cannot cover a transfer
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotTokenOwner is returned when from does not own the token
	ErrNotTokenOwner = errors.New("not token owner")

	// ErrReverted is what a simulated contract returns when it reverts
	ErrReverted = errors.New("execution reverted")
)

// contractCode is the bytecode reported for every deployed contract
var contractCode = []byte{0x60, 0x80, 0x60, 0x40, 0x52}

// Contract answers ABI encoded calls
type Contract interface {
	Call(ctx context.Context, input []byte) ([]byte, error)
}

// ReceiveHook runs after a token is delivered to an account
type ReceiveHook func(ctx context.Context, collection, from common.Address, tokenID *big.Int) error

type accounts struct {
	native map[common.Address]*big.Int
	tokens map[common.Address]map[common.Address]*big.Int // currency -> holder -> balance
	owners map[common.Address]map[string]common.Address   // collection -> token id -> owner
}

func newAccounts() accounts {
	return accounts{
		native: make(map[common.Address]*big.Int),
		tokens: make(map[common.Address]map[common.Address]*big.Int),
		owners: make(map[common.Address]map[string]common.Address),
	}
}

func (a accounts) copy() accounts {
	out := newAccounts()
	for k, v := range a.native {
		out.native[k] = new(big.Int).Set(v)
	}
	for currency, holders := range a.tokens {
		m := make(map[common.Address]*big.Int, len(holders))
		for k, v := range holders {
			m[k] = new(big.Int).Set(v)
		}
		out.tokens[currency] = m
	}
	for collection, tokens := range a.owners {
		m := make(map[string]common.Address, len(tokens))
		for k, v := range tokens {
			m[k] = v
		}
		out.owners[collection] = m
	}
	return out
}

// Ledger implements every collaborator the exchange settles through
type Ledger struct {
	mu        sync.RWMutex
	wrapped   common.Address
	state     accounts
	snapshots []accounts
	contracts map[common.Address]Contract
	hooks     map[common.Address]ReceiveHook
}

// New creates an empty ledger whose wrapped native token lives at wrapped
func New(wrapped common.Address) *Ledger {
	return &Ledger{
		wrapped:   wrapped,
		state:     newAccounts(),
		contracts: make(map[common.Address]Contract),
		hooks:     make(map[common.Address]ReceiveHook),
	}
}

// Deploy hosts c at addr. The account reports code from then on.
func (l *Ledger) Deploy(addr common.Address, c Contract) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contracts[addr] = c
}

// OnReceive registers a hook that runs when addr receives a token
func (l *Ledger) OnReceive(addr common.Address, hook ReceiveHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks[addr] = hook
}

// Fund credits native value to account
func (l *Ledger) Fund(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	credit(l.state.native, account, amount)
}

// Mint credits currency tokens to account
func (l *Ledger) Mint(currency, account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	credit(l.holders(currency), account, amount)
}

// MintNFT assigns tokenID of collection to owner
func (l *Ledger) MintNFT(collection common.Address, tokenID *big.Int, owner common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokensOf(collection)[tokenID.String()] = owner
}

// TokenBalance returns account's balance of currency
func (l *Ledger) TokenBalance(currency, account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return balanceOf(l.state.tokens[currency], account)
}

// NativeBalance returns account's native balance
func (l *Ledger) NativeBalance(account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return balanceOf(l.state.native, account)
}

// OwnerOf returns the owner of tokenID; false when it was never minted
func (l *Ledger) OwnerOf(collection common.Address, tokenID *big.Int) (common.Address, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	owner, ok := l.state.owners[collection][tokenID.String()]
	return owner, ok
}

// TransferFrom moves currency tokens between accounts
func (l *Ledger) TransferFrom(_ context.Context, currency, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	holders := l.holders(currency)
	if err := debit(holders, from, amount); err != nil {
		return fmt.Errorf("transfer of %s from %s: %w", currency.Hex(), from.Hex(), err)
	}
	credit(holders, to, amount)
	return nil
}

// BalanceAt returns account's native balance
func (l *Ledger) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	return l.NativeBalance(account), nil
}

// Send moves native value between accounts
func (l *Ledger) Send(_ context.Context, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := debit(l.state.native, from, amount); err != nil {
		return fmt.Errorf("send from %s: %w", from.Hex(), err)
	}
	credit(l.state.native, to, amount)
	return nil
}

// Deposit wraps native value of account into the wrapped native token
func (l *Ledger) Deposit(_ context.Context, account common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := debit(l.state.native, account, amount); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	credit(l.holders(l.wrapped), account, amount)
	return nil
}

// Withdraw unwraps wrapped native tokens of account into native value
func (l *Ledger) Withdraw(_ context.Context, account common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := debit(l.holders(l.wrapped), account, amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	credit(l.state.native, account, amount)
	return nil
}

// TransferNonFungibleToken moves a token and then runs the recipient's
// receive hook, outside the ledger lock
func (l *Ledger) TransferNonFungibleToken(ctx context.Context, collection, from, to common.Address, tokenID, amount *big.Int) error {
	if amount == nil || amount.Cmp(common.Big1) != 0 {
		return fmt.Errorf("invalid token amount %v", amount)
	}

	l.mu.Lock()
	tokens := l.tokensOf(collection)
	if owner, ok := tokens[tokenID.String()]; !ok || owner != from {
		l.mu.Unlock()
		return fmt.Errorf("token %s of %s: %w", tokenID, collection.Hex(), ErrNotTokenOwner)
	}
	tokens[tokenID.String()] = to
	hook := l.hooks[to]
	l.mu.Unlock()

	if hook != nil {
		return hook(ctx, collection, from, tokenID)
	}
	return nil
}

// CodeAt reports code for deployed contracts and nothing for plain accounts
func (l *Ledger) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.contracts[account]; ok {
		return contractCode, nil
	}
	return nil, nil
}

// CallContract dispatches call to the contract deployed at its target.
// Calls to plain accounts succeed with empty output.
func (l *Ledger) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if call.To == nil {
		return nil, errors.New("contract creation not supported")
	}
	l.mu.RLock()
	c, ok := l.contracts[*call.To]
	l.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return c.Call(ctx, call.Data)
}

// Snapshot records the current balances and ownership
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = append(l.snapshots, l.state.copy())
	return len(l.snapshots) - 1
}

// RevertToSnapshot restores the state recorded by Snapshot and discards
// every later snapshot
func (l *Ledger) RevertToSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.snapshots) {
		panic(fmt.Errorf("revision id %v cannot be reverted", id))
	}
	l.state = l.snapshots[id]
	l.snapshots = l.snapshots[:id]
}

// DiscardSnapshot forgets the snapshot and every later one, keeping the
// current state
func (l *Ledger) DiscardSnapshot(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.snapshots) {
		panic(fmt.Errorf("revision id %v cannot be discarded", id))
	}
	l.snapshots = l.snapshots[:id]
}

// Snapshots returns the number of snapshots held
func (l *Ledger) Snapshots() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.snapshots)
}

func (l *Ledger) holders(currency common.Address) map[common.Address]*big.Int {
	m, ok := l.state.tokens[currency]
	if !ok {
		m = make(map[common.Address]*big.Int)
		l.state.tokens[currency] = m
	}
	return m
}

func (l *Ledger) tokensOf(collection common.Address) map[string]common.Address {
	m, ok := l.state.owners[collection]
	if !ok {
		m = make(map[string]common.Address)
		l.state.owners[collection] = m
	}
	return m
}

func balanceOf(m map[common.Address]*big.Int, account common.Address) *big.Int {
	if b, ok := m[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func credit(m map[common.Address]*big.Int, account common.Address, amount *big.Int) {
	b, ok := m[account]
	if !ok {
		b = new(big.Int)
		m[account] = b
	}
	b.Add(b, amount)
}

func debit(m map[common.Address]*big.Int, account common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative amount %s", amount)
	}
	b := balanceOf(m, account)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, b, amount)
	}
	m[account] = b.Sub(b, amount)
	return nil
}
