// Package modules provides the building blocks for pluggable oracle policy
// modules and the bonded reference policies built on the accounting ledger.
package modules

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/meta-node-blockchain/meta-oracle/types"
)

// Ledger is the slice of the accounting extension a bonded module needs.
type Ledger interface {
	Bond(caller common.Address, requestID common.Hash, bonder, asset common.Address, amount *uint256.Int) error
	Release(caller common.Address, requestID common.Hash, holder, asset common.Address, amount *uint256.Int) error
	Pay(caller common.Address, requestID common.Hash, payer, receiver, asset common.Address, amount *uint256.Int) error
}

// BaseModule carries the identity and per-request configuration storage every
// module shares. Concrete modules embed it and override the lifecycle hooks
// they care about.
type BaseModule struct {
	name    string
	address common.Address
	oracle  types.Oracle

	mu   sync.RWMutex
	data map[common.Hash][]byte
}

func NewBaseModule(name string, address common.Address, oracle types.Oracle) BaseModule {
	return BaseModule{
		name:    name,
		address: address,
		oracle:  oracle,
		data:    make(map[common.Hash][]byte),
	}
}

func (m *BaseModule) Name() string {
	return m.name
}

func (m *BaseModule) Address() common.Address {
	return m.address
}

// Oracle returns the read surface the module was wired to.
func (m *BaseModule) Oracle() types.Oracle {
	return m.oracle
}

// SetupRequest stores the request's configuration blob verbatim.
func (m *BaseModule) SetupRequest(requestID common.Hash, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[requestID] = data
	return nil
}

// FinalizeRequest is a no-op by default.
func (m *BaseModule) FinalizeRequest(requestID common.Hash, finalizer common.Address) error {
	return nil
}

// RequestData returns the stored configuration blob, nil if none.
func (m *BaseModule) RequestData(requestID common.Hash) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[requestID]
}
