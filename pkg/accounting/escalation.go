package accounting

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
	"github.com/meta-node-blockchain/meta-oracle/pkg/utils"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

type pledgeKey struct {
	RequestID common.Hash
	DisputeID common.Hash
	Asset     common.Address
}

// BondEscalation extends the ledger with per-dispute pledge pools for
// multi-party escalation games. The pool is a conserved quantity: it grows
// only by what pledgers pay in and shrinks by exactly what is credited back
// out.
type BondEscalation struct {
	*Accounting
	pledges map[pledgeKey]*uint256.Int
}

func NewBondEscalation(oracle types.Oracle) *BondEscalation {
	return &BondEscalation{
		Accounting: NewAccounting(oracle),
		pledges:    make(map[pledgeKey]*uint256.Int),
	}
}

// Pledged returns the pool balance for a dispute and asset.
func (b *BondEscalation) Pledged(requestID, disputeID common.Hash, asset common.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return utils.CloneAmount(b.pledges[pledgeKey{requestID, disputeID, asset}])
}

// Pledge moves amount from the pledger's available balance into the pool.
func (b *BondEscalation) Pledge(caller common.Address, pledger common.Address, requestID, disputeID common.Hash, asset common.Address, amount *uint256.Int) error {
	if !b.oracle.ValidModule(requestID, caller) {
		return ErrInvalidModule
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.debit(b.balances, pledger, asset, amount); err != nil {
		return err
	}
	key := pledgeKey{requestID, disputeID, asset}
	pool := b.pledges[key]
	if pool == nil {
		pool = uint256.NewInt(0)
	}
	sum, overflow := new(uint256.Int).AddOverflow(pool, amount)
	if overflow {
		b.credit(b.balances, pledger, asset, amount)
		return ErrBalanceOverflow
	}
	b.pledges[key] = sum
	b.journal.Record(Entry{Kind: KindPledge, RequestID: requestID, DisputeID: disputeID, From: pledger, Asset: asset, Amount: utils.CloneAmount(amount)})
	logger.Debug("accounting: pledged %s of %s from %s for dispute %s", amount.Dec(), asset.Hex(), pledger.Hex(), disputeID.Hex())
	return nil
}

// PayWinningPledgers credits amountPerPledger to every winner out of the
// pool in one pass. The pool must hold at least amountPerPledger * winners.
// Uniqueness of the winners list is the caller's responsibility; a repeated
// winner is paid twice.
func (b *BondEscalation) PayWinningPledgers(caller common.Address, requestID, disputeID common.Hash, winners []common.Address, asset common.Address, amountPerPledger *uint256.Int) error {
	if !b.oracle.ValidModule(requestID, caller) {
		return ErrInvalidModule
	}
	if amountPerPledger == nil || amountPerPledger.IsZero() {
		return ErrZeroAmount
	}
	if len(winners) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	total, overflow := new(uint256.Int).MulOverflow(amountPerPledger, uint256.NewInt(uint64(len(winners))))
	if overflow {
		return ErrBalanceOverflow
	}
	key := pledgeKey{requestID, disputeID, asset}
	pool := b.pledges[key]
	if pool == nil || pool.Lt(total) {
		return ErrInsufficientFunds
	}

	for i, winner := range winners {
		if err := b.credit(b.balances, winner, asset, amountPerPledger); err != nil {
			// Undo the winners already credited so the pool stays conserved.
			// The debit cannot fail: each undone balance holds at least what
			// this pass credited it.
			for _, undone := range winners[:i] {
				b.debit(b.balances, undone, asset, amountPerPledger)
			}
			return err
		}
	}
	b.pledges[key] = new(uint256.Int).Sub(pool, total)
	b.journal.Record(Entry{Kind: KindPledgePayout, RequestID: requestID, DisputeID: disputeID, Asset: asset, Amount: total})
	logger.Debug("accounting: paid %d winning pledgers %s each of %s for dispute %s", len(winners), amountPerPledger.Dec(), asset.Hex(), disputeID.Hex())
	return nil
}

// ReleasePledge refunds a single pledger out of the pool.
func (b *BondEscalation) ReleasePledge(caller common.Address, requestID, disputeID common.Hash, pledger common.Address, asset common.Address, amount *uint256.Int) error {
	if !b.oracle.ValidModule(requestID, caller) {
		return ErrInvalidModule
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	key := pledgeKey{requestID, disputeID, asset}
	pool := b.pledges[key]
	if pool == nil || pool.Lt(amount) {
		return ErrInsufficientFunds
	}
	if err := b.credit(b.balances, pledger, asset, amount); err != nil {
		return err
	}
	b.pledges[key] = new(uint256.Int).Sub(pool, amount)
	b.journal.Record(Entry{Kind: KindPledgeRelease, RequestID: requestID, DisputeID: disputeID, To: pledger, Asset: asset, Amount: utils.CloneAmount(amount)})
	return nil
}
