package modules

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

// AuthorityResolutionModule is the minimal resolution policy: a single
// trusted authority decides escalated disputes. StartResolution marks the
// dispute pending; the authority then calls Settle with the outcome, which
// is committed through the oracle's UpdateDisputeStatus.
type AuthorityResolutionModule struct {
	BaseModule
	authority common.Address

	mu      sync.Mutex
	pending map[common.Hash]bool
}

func NewAuthorityResolutionModule(address common.Address, oracle types.Oracle, authority common.Address) *AuthorityResolutionModule {
	return &AuthorityResolutionModule{
		BaseModule: NewBaseModule("AuthorityResolutionModule", address, oracle),
		authority:  authority,
		pending:    make(map[common.Hash]bool),
	}
}

// StartResolution opens arbitration for the dispute.
func (m *AuthorityResolutionModule) StartResolution(disputeID common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[disputeID] = true
	logger.Info("modules: dispute %s awaiting authority %s", disputeID.Hex(), m.authority.Hex())
	return nil
}

// ResolveDispute cannot decide on its own; the authority's verdict arrives
// out of band through Settle.
func (m *AuthorityResolutionModule) ResolveDispute(disputeID common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending[disputeID] {
		return ErrUnknownDispute
	}
	return ErrAwaitingAuthority
}

// Settle commits the authority's verdict. Only the configured authority may
// call it, and only for a dispute under arbitration.
func (m *AuthorityResolutionModule) Settle(caller common.Address, disputeID common.Hash, status types.DisputeStatus) error {
	if caller != m.authority {
		return ErrNotAuthority
	}
	m.mu.Lock()
	if !m.pending[disputeID] {
		m.mu.Unlock()
		return ErrUnknownDispute
	}
	m.mu.Unlock()

	if err := m.Oracle().UpdateDisputeStatus(m.Address(), disputeID, status); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.pending, disputeID)
	m.mu.Unlock()
	logger.Info("modules: dispute %s settled as %s by authority", disputeID.Hex(), status)
	return nil
}

// Pending reports whether a dispute is under arbitration.
func (m *AuthorityResolutionModule) Pending(disputeID common.Hash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[disputeID]
}
