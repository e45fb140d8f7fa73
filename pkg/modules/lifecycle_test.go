package modules

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"github.com/meta-node-blockchain/meta-oracle/pkg/accounting"
	"github.com/meta-node-blockchain/meta-oracle/pkg/oracle"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

// node wires a real orchestrator, ledger and the bonded policy modules the
// way a deployment would.
type node struct {
	oracle     *oracle.Oracle
	ledger     *accounting.Accounting
	response   *BondedResponseModule
	dispute    *BondedDisputeModule
	resolution *AuthorityResolutionModule
	request    *staticRequestModule
	authority  common.Address
}

// staticRequestModule is a request policy with no behavior beyond the common
// lifecycle.
type staticRequestModule struct {
	BaseModule
}

func newNode(t *testing.T) *node {
	core := oracle.NewOracle(common.HexToAddress("0x0a"), oracle.NewSequence(0), oracle.NewSequence(0))
	ledger := accounting.NewAccounting(core)
	authority := common.HexToAddress("0x2001")

	n := &node{
		oracle:     core,
		ledger:     ledger,
		authority:  authority,
		request:    &staticRequestModule{NewBaseModule("StaticRequestModule", common.HexToAddress("0x11"), core)},
		response:   NewBondedResponseModule(common.HexToAddress("0x12"), core, ledger),
		dispute:    NewBondedDisputeModule(common.HexToAddress("0x13"), core, ledger),
		resolution: NewAuthorityResolutionModule(common.HexToAddress("0x14"), core, authority),
	}
	core.RegisterModule(n.request)
	core.RegisterModule(n.response)
	core.RegisterModule(n.dispute)
	core.RegisterModule(n.resolution)
	return n
}

func (n *node) createBondedRequest(t *testing.T, bond uint64) common.Hash {
	blob, err := EncodeBondConfig(assetT, bond)
	assert.NoError(t, err)
	reqID, err := n.oracle.CreateRequest(types.Request{
		Requester:  proposerA,
		Request:    types.ModuleRef{Address: n.request.Address()},
		Response:   types.ModuleRef{Address: n.response.Address(), Data: blob},
		Dispute:    types.ModuleRef{Address: n.dispute.Address(), Data: blob},
		Resolution: &types.ModuleRef{Address: n.resolution.Address()},
	})
	assert.NoError(t, err)
	return reqID
}

func (n *node) fund(t *testing.T, holder common.Address, amount uint64) {
	assert.NoError(t, n.ledger.Deposit(holder, assetT, uint256.NewInt(amount)))
}

func TestLifecycleDisputeLost(t *testing.T) {
	n := newNode(t)
	n.fund(t, proposerA, 1000)
	n.fund(t, disputerA, 1000)

	reqID := n.createBondedRequest(t, 100)

	rspID, err := n.oracle.ProposeResponse(proposerA, reqID, []byte("42"))
	assert.NoError(t, err)
	assert.Equal(t, uint256.NewInt(900), n.ledger.BalanceOf(proposerA, assetT))
	assert.Equal(t, uint256.NewInt(100), n.ledger.BondedOf(proposerA, assetT))

	dspID, err := n.oracle.DisputeResponse(disputerA, reqID, rspID)
	assert.NoError(t, err)
	assert.Equal(t, uint256.NewInt(900), n.ledger.BalanceOf(disputerA, assetT))
	assert.Equal(t, uint256.NewInt(100), n.ledger.BondedOf(disputerA, assetT))

	// Both bonds locked: finalization is blocked until the dispute resolves.
	err = n.oracle.Finalize(proposerA, reqID)
	assert.ErrorIs(t, err, oracle.ErrCannotFinalizeWithActiveDispute)

	assert.NoError(t, n.oracle.EscalateDispute(dspID))
	assert.True(t, n.resolution.Pending(dspID))

	assert.NoError(t, n.resolution.Settle(n.authority, dspID, types.DisputeStatusLost))

	// The wrongful disputer's bond went to the proposer.
	assert.Equal(t, uint256.NewInt(1100), n.ledger.BalanceOf(proposerA, assetT))
	assert.Equal(t, uint256.NewInt(900), n.ledger.BalanceOf(disputerA, assetT))
	assert.Equal(t, uint256.NewInt(0), n.ledger.BondedOf(proposerA, assetT))
	assert.Equal(t, uint256.NewInt(0), n.ledger.BondedOf(disputerA, assetT))
	assert.Equal(t, uint256.NewInt(2000), n.ledger.TotalSupply(assetT))

	// Lost disputes no longer block finalization, with or without a winner.
	assert.NoError(t, n.oracle.FinalizeWithResponse(proposerA, reqID, rspID))
	winner, err := n.oracle.GetFinalizedResponseID(reqID)
	assert.NoError(t, err)
	assert.Equal(t, rspID, winner)
}

func TestLifecycleDisputeWon(t *testing.T) {
	n := newNode(t)
	n.fund(t, proposerA, 1000)
	n.fund(t, disputerA, 1000)

	reqID := n.createBondedRequest(t, 100)
	rspID, _ := n.oracle.ProposeResponse(proposerA, reqID, []byte("wrong"))
	dspID, _ := n.oracle.DisputeResponse(disputerA, reqID, rspID)

	assert.NoError(t, n.oracle.EscalateDispute(dspID))
	assert.NoError(t, n.resolution.Settle(n.authority, dspID, types.DisputeStatusWon))

	assert.Equal(t, uint256.NewInt(900), n.ledger.BalanceOf(proposerA, assetT))
	assert.Equal(t, uint256.NewInt(1100), n.ledger.BalanceOf(disputerA, assetT))
	assert.Equal(t, uint256.NewInt(2000), n.ledger.TotalSupply(assetT))

	// A response whose proposer lost the dispute cannot win finalization.
	err := n.oracle.FinalizeWithResponse(proposerA, reqID, rspID)
	assert.ErrorIs(t, err, oracle.ErrInvalidFinalizedResponse)
	err = n.oracle.Finalize(proposerA, reqID)
	assert.ErrorIs(t, err, oracle.ErrCannotFinalizeWithActiveDispute)
}

func TestLifecycleNoResolution(t *testing.T) {
	n := newNode(t)
	n.fund(t, proposerA, 1000)
	n.fund(t, disputerA, 1000)

	reqID := n.createBondedRequest(t, 100)
	rspID, _ := n.oracle.ProposeResponse(proposerA, reqID, []byte("42"))
	dspID, _ := n.oracle.DisputeResponse(disputerA, reqID, rspID)

	assert.NoError(t, n.oracle.EscalateDispute(dspID))
	assert.NoError(t, n.resolution.Settle(n.authority, dspID, types.DisputeStatusNoResolution))

	// Both sides made whole, nobody paid.
	assert.Equal(t, uint256.NewInt(1000), n.ledger.BalanceOf(proposerA, assetT))
	assert.Equal(t, uint256.NewInt(1000), n.ledger.BalanceOf(disputerA, assetT))
}

func TestLifecycleUndisputedFinalization(t *testing.T) {
	n := newNode(t)
	n.fund(t, proposerA, 1000)

	reqID := n.createBondedRequest(t, 100)
	rspID, _ := n.oracle.ProposeResponse(proposerA, reqID, []byte("42"))
	assert.Equal(t, uint256.NewInt(900), n.ledger.BalanceOf(proposerA, assetT))

	assert.NoError(t, n.oracle.FinalizeWithResponse(proposerA, reqID, rspID))

	// The winning bond comes back on finalization.
	assert.Equal(t, uint256.NewInt(1000), n.ledger.BalanceOf(proposerA, assetT))
	assert.Equal(t, uint256.NewInt(0), n.ledger.BondedOf(proposerA, assetT))
}

func TestLifecycleProposeWithoutFunds(t *testing.T) {
	n := newNode(t)
	reqID := n.createBondedRequest(t, 100)

	_, err := n.oracle.ProposeResponse(proposerA, reqID, []byte("42"))
	assert.ErrorIs(t, err, accounting.ErrInsufficientFunds)
	assert.Empty(t, n.oracle.GetResponseIDs(reqID))
}

func TestLifecycleDeleteResponseRefundsBond(t *testing.T) {
	n := newNode(t)
	n.fund(t, proposerA, 1000)

	reqID := n.createBondedRequest(t, 100)
	rspID, _ := n.oracle.ProposeResponse(proposerA, reqID, []byte("42"))
	assert.Equal(t, uint256.NewInt(900), n.ledger.BalanceOf(proposerA, assetT))

	assert.NoError(t, n.oracle.DeleteResponse(proposerA, rspID))
	assert.Equal(t, uint256.NewInt(1000), n.ledger.BalanceOf(proposerA, assetT))
	assert.Equal(t, uint256.NewInt(0), n.ledger.BondedOf(proposerA, assetT))
}
