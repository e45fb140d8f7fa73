package accounting

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Entry kinds recorded by the ledger.
const (
	KindDeposit       = "deposit"
	KindWithdraw      = "withdraw"
	KindBond          = "bond"
	KindRelease       = "release"
	KindPay           = "pay"
	KindPledge        = "pledge"
	KindPledgeRelease = "pledge_release"
	KindPledgePayout  = "pledge_payout"
)

// Entry is one journaled fund movement. From and To are zero when the side
// does not apply to the kind (a deposit has no From, a bond has no To).
type Entry struct {
	ID        string
	Kind      string
	RequestID common.Hash
	DisputeID common.Hash
	From      common.Address
	To        common.Address
	Asset     common.Address
	Amount    *uint256.Int
	CreatedAt int64
}

// Journal is an append-only record of every ledger movement.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an entry, assigning its id and timestamp.
func (j *Journal) Record(entry Entry) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now().Unix()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of the journal.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Len returns the number of journaled entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
