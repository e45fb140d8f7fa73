// Package accounting implements the available-balance ledger backing bonded
// oracle modules. Funds enter through Deposit, leave through Withdraw, and
// move between bonding custody and participants only through Bond, Release
// and Pay, each restricted to a module the oracle recognizes for the request.
//
// The three module operations are deliberately not idempotent: calling one
// twice moves funds twice. Calling them at most once per logical event is
// the orchestrator's responsibility.
package accounting

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
	"github.com/meta-node-blockchain/meta-oracle/pkg/utils"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidModule     = errors.New("module not valid for request")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrZeroAmount        = errors.New("amount must be positive")
)

type balanceKey struct {
	Holder common.Address
	Asset  common.Address
}

// Accounting is the ledger. All amounts are strictly non-negative; credits
// check for overflow and debits check available balance first.
type Accounting struct {
	oracle   types.Oracle
	mu       sync.RWMutex
	balances map[balanceKey]*uint256.Int
	bonded   map[balanceKey]*uint256.Int
	journal  *Journal
}

func NewAccounting(oracle types.Oracle) *Accounting {
	return &Accounting{
		oracle:   oracle,
		balances: make(map[balanceKey]*uint256.Int),
		bonded:   make(map[balanceKey]*uint256.Int),
		journal:  NewJournal(),
	}
}

// BalanceOf returns the holder's available balance for an asset.
func (a *Accounting) BalanceOf(holder, asset common.Address) *uint256.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return utils.CloneAmount(a.balances[balanceKey{holder, asset}])
}

// BondedOf returns the amount currently held in bonding custody for the
// holder and asset.
func (a *Accounting) BondedOf(holder, asset common.Address) *uint256.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return utils.CloneAmount(a.bonded[balanceKey{holder, asset}])
}

// Deposit credits a holder from outside the ledger.
func (a *Accounting) Deposit(holder, asset common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.credit(a.balances, holder, asset, amount); err != nil {
		return err
	}
	a.journal.Record(Entry{Kind: KindDeposit, To: holder, Asset: asset, Amount: utils.CloneAmount(amount)})
	return nil
}

// Withdraw debits a holder back to the outside world.
func (a *Accounting) Withdraw(holder, asset common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.debit(a.balances, holder, asset, amount); err != nil {
		return err
	}
	a.journal.Record(Entry{Kind: KindWithdraw, From: holder, Asset: asset, Amount: utils.CloneAmount(amount)})
	return nil
}

// Bond moves amount from the bonder's available balance into bonding
// custody. Only a module configured on the request may call it.
func (a *Accounting) Bond(caller common.Address, requestID common.Hash, bonder, asset common.Address, amount *uint256.Int) error {
	if !a.oracle.ValidModule(requestID, caller) {
		return ErrInvalidModule
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.debit(a.balances, bonder, asset, amount); err != nil {
		return err
	}
	if err := a.credit(a.bonded, bonder, asset, amount); err != nil {
		// Undo the balance debit so the ledger stays consistent.
		a.credit(a.balances, bonder, asset, amount)
		return err
	}
	a.journal.Record(Entry{Kind: KindBond, RequestID: requestID, From: bonder, Asset: asset, Amount: utils.CloneAmount(amount)})
	logger.Debug("accounting: bonded %s of %s from %s for request %s", amount.Dec(), asset.Hex(), bonder.Hex(), requestID.Hex())
	return nil
}

// Release credits a holder's available balance. It does not require matching
// custody: a prior debit elsewhere is not a precondition, custody is only
// reduced as far as it goes.
func (a *Accounting) Release(caller common.Address, requestID common.Hash, holder, asset common.Address, amount *uint256.Int) error {
	if !a.oracle.ValidModule(requestID, caller) {
		return ErrInvalidModule
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.credit(a.balances, holder, asset, amount); err != nil {
		return err
	}
	a.reduceCustody(holder, asset, amount)
	a.journal.Record(Entry{Kind: KindRelease, RequestID: requestID, To: holder, Asset: asset, Amount: utils.CloneAmount(amount)})
	logger.Debug("accounting: released %s of %s to %s for request %s", amount.Dec(), asset.Hex(), holder.Hex(), requestID.Hex())
	return nil
}

// Pay moves amount from the payer's available balance to the receiver's.
func (a *Accounting) Pay(caller common.Address, requestID common.Hash, payer, receiver, asset common.Address, amount *uint256.Int) error {
	if !a.oracle.ValidModule(requestID, caller) {
		return ErrInvalidModule
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.debit(a.balances, payer, asset, amount); err != nil {
		return err
	}
	if err := a.credit(a.balances, receiver, asset, amount); err != nil {
		a.credit(a.balances, payer, asset, amount)
		return err
	}
	a.journal.Record(Entry{Kind: KindPay, RequestID: requestID, From: payer, To: receiver, Asset: asset, Amount: utils.CloneAmount(amount)})
	logger.Debug("accounting: paid %s of %s from %s to %s for request %s", amount.Dec(), asset.Hex(), payer.Hex(), receiver.Hex(), requestID.Hex())
	return nil
}

// Journal returns the ledger's transaction journal.
func (a *Accounting) Journal() *Journal {
	return a.journal
}

// TotalSupply sums every holder's available balance for the asset. Useful
// for conservation checks.
func (a *Accounting) TotalSupply(asset common.Address) *uint256.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	total := uint256.NewInt(0)
	for key, amount := range a.balances {
		if key.Asset == asset {
			total.Add(total, amount)
		}
	}
	return total
}

// --- internal balance arithmetic, caller holds the lock ---

func (a *Accounting) debit(m map[balanceKey]*uint256.Int, holder, asset common.Address, amount *uint256.Int) error {
	key := balanceKey{holder, asset}
	current := m[key]
	if current == nil || current.Lt(amount) {
		return ErrInsufficientFunds
	}
	m[key] = new(uint256.Int).Sub(current, amount)
	return nil
}

func (a *Accounting) credit(m map[balanceKey]*uint256.Int, holder, asset common.Address, amount *uint256.Int) error {
	key := balanceKey{holder, asset}
	current := m[key]
	if current == nil {
		current = uint256.NewInt(0)
	}
	sum, overflow := new(uint256.Int).AddOverflow(current, amount)
	if overflow {
		return ErrBalanceOverflow
	}
	m[key] = sum
	return nil
}

// reduceCustody lowers bonding custody, saturating at zero.
func (a *Accounting) reduceCustody(holder, asset common.Address, amount *uint256.Int) {
	key := balanceKey{holder, asset}
	current := a.bonded[key]
	if current == nil {
		return
	}
	if current.Lt(amount) {
		a.bonded[key] = uint256.NewInt(0)
		return
	}
	a.bonded[key] = new(uint256.Int).Sub(current, amount)
}
