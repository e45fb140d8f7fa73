package modules

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

// BondedDisputeModule is a dispute policy that bonds the disputer on dispute
// creation and settles both sides' bonds when the dispute reaches a terminal
// status:
//
//	Won          the response was wrong; the proposer's bond pays the disputer
//	Lost         the dispute was wrong; the disputer's bond pays the proposer
//	NoResolution both bonds are returned untouched
//
// Settlement releases both bonds into available balance first and then moves
// the losing side's stake, so the net movement is exactly one bond.
type BondedDisputeModule struct {
	BaseModule
	ledger Ledger
}

func NewBondedDisputeModule(address common.Address, oracle types.Oracle, ledger Ledger) *BondedDisputeModule {
	return &BondedDisputeModule{
		BaseModule: NewBaseModule("BondedDisputeModule", address, oracle),
		ledger:     ledger,
	}
}

func (m *BondedDisputeModule) SetupRequest(requestID common.Hash, data []byte) error {
	if _, err := DecodeBondConfig(data); err != nil {
		return err
	}
	return m.BaseModule.SetupRequest(requestID, data)
}

// DisputeResponse bonds the disputer and opens the dispute as Active.
func (m *BondedDisputeModule) DisputeResponse(requestID, responseID common.Hash, disputer, proposer common.Address) (types.Dispute, error) {
	cfg, err := DecodeBondConfig(m.RequestData(requestID))
	if err != nil {
		return types.Dispute{}, err
	}
	if err := m.ledger.Bond(m.Address(), requestID, disputer, cfg.AssetAddress(), cfg.Bond()); err != nil {
		return types.Dispute{}, err
	}
	return types.Dispute{Status: types.DisputeStatusActive}, nil
}

// OnDisputeStatusChange settles bonds on terminal statuses. Non-terminal
// changes need no accounting.
func (m *BondedDisputeModule) OnDisputeStatusChange(disputeID common.Hash, dispute types.Dispute) error {
	cfg, err := DecodeBondConfig(m.RequestData(dispute.RequestID))
	if err != nil {
		return err
	}
	asset, bond := cfg.AssetAddress(), cfg.Bond()

	switch dispute.Status {
	case types.DisputeStatusWon:
		if err := m.releaseBoth(dispute, asset, bond); err != nil {
			return err
		}
		if err := m.ledger.Pay(m.Address(), dispute.RequestID, dispute.Proposer, dispute.Disputer, asset, bond); err != nil {
			return err
		}
	case types.DisputeStatusLost:
		if err := m.releaseBoth(dispute, asset, bond); err != nil {
			return err
		}
		if err := m.ledger.Pay(m.Address(), dispute.RequestID, dispute.Disputer, dispute.Proposer, asset, bond); err != nil {
			return err
		}
	case types.DisputeStatusNoResolution:
		if err := m.releaseBoth(dispute, asset, bond); err != nil {
			return err
		}
	default:
		return nil
	}

	logger.Debug("modules: dispute %s settled as %s", disputeID.Hex(), dispute.Status)
	return nil
}

// DisputeEscalated is informational for this policy; bonds stay locked until
// a terminal status arrives.
func (m *BondedDisputeModule) DisputeEscalated(disputeID common.Hash) error {
	logger.Debug("modules: dispute %s escalated", disputeID.Hex())
	return nil
}

func (m *BondedDisputeModule) releaseBoth(dispute types.Dispute, asset common.Address, bond *uint256.Int) error {
	if err := m.ledger.Release(m.Address(), dispute.RequestID, dispute.Disputer, asset, bond); err != nil {
		return err
	}
	return m.ledger.Release(m.Address(), dispute.RequestID, dispute.Proposer, asset, bond)
}
