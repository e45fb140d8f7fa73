package modules

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

// BondedResponseModule is a response policy that takes a fixed bond from
// every proposer. Deleting a response returns the bond; when a request
// finalizes with an undisputed winning response, that proposer's bond is
// released. Disputed responses settle through the dispute module instead.
type BondedResponseModule struct {
	BaseModule
	ledger Ledger
}

func NewBondedResponseModule(address common.Address, oracle types.Oracle, ledger Ledger) *BondedResponseModule {
	return &BondedResponseModule{
		BaseModule: NewBaseModule("BondedResponseModule", address, oracle),
		ledger:     ledger,
	}
}

// SetupRequest rejects requests whose configuration is not a valid bond
// config, aborting their creation.
func (m *BondedResponseModule) SetupRequest(requestID common.Hash, data []byte) error {
	if _, err := DecodeBondConfig(data); err != nil {
		return err
	}
	return m.BaseModule.SetupRequest(requestID, data)
}

// Propose bonds the proposer's stake. Any payload is acceptable; skin in the
// game is the policy, not payload inspection.
func (m *BondedResponseModule) Propose(requestID common.Hash, proposer common.Address, payload []byte) (types.Response, error) {
	cfg, err := DecodeBondConfig(m.RequestData(requestID))
	if err != nil {
		return types.Response{}, err
	}
	if err := m.ledger.Bond(m.Address(), requestID, proposer, cfg.AssetAddress(), cfg.Bond()); err != nil {
		return types.Response{}, err
	}
	return types.Response{Payload: payload}, nil
}

// DeleteResponse returns the proposer's bond.
func (m *BondedResponseModule) DeleteResponse(requestID, responseID common.Hash, caller common.Address) error {
	cfg, err := DecodeBondConfig(m.RequestData(requestID))
	if err != nil {
		return err
	}
	return m.ledger.Release(m.Address(), requestID, caller, cfg.AssetAddress(), cfg.Bond())
}

// FinalizeRequest releases the winning proposer's bond when the finalized
// response was never disputed. A disputed winner's bonds were already moved
// by the dispute module's settlement.
func (m *BondedResponseModule) FinalizeRequest(requestID common.Hash, finalizer common.Address) error {
	rspID, err := m.Oracle().GetFinalizedResponseID(requestID)
	if err != nil {
		return err
	}
	if rspID == (common.Hash{}) {
		return nil
	}
	if _, disputed := m.Oracle().DisputeOf(rspID); disputed {
		return nil
	}
	rsp, err := m.Oracle().GetResponse(rspID)
	if err != nil {
		return err
	}
	cfg, err := DecodeBondConfig(m.RequestData(requestID))
	if err != nil {
		return err
	}
	if err := m.ledger.Release(m.Address(), requestID, rsp.Proposer, cfg.AssetAddress(), cfg.Bond()); err != nil {
		return err
	}
	logger.Debug("modules: released winning bond to %s for request %s", rsp.Proposer.Hex(), requestID.Hex())
	return nil
}
