package oracle

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/meta-node-blockchain/meta-oracle/types"
)

// stubModule is the minimal lifecycle module with injectable failures.
type stubModule struct {
	name string
	addr common.Address
	data map[common.Hash][]byte

	setupErr    error
	finalizeErr error

	setupCalls    int
	finalizeCalls int
	finalizeOrder *[]string
}

func newStubModule(name string, addr common.Address) *stubModule {
	return &stubModule{name: name, addr: addr, data: make(map[common.Hash][]byte)}
}

func (m *stubModule) Name() string            { return m.name }
func (m *stubModule) Address() common.Address { return m.addr }

func (m *stubModule) SetupRequest(requestID common.Hash, data []byte) error {
	if m.setupErr != nil {
		return m.setupErr
	}
	m.setupCalls++
	m.data[requestID] = data
	return nil
}

func (m *stubModule) FinalizeRequest(requestID common.Hash, finalizer common.Address) error {
	if m.finalizeErr != nil {
		return m.finalizeErr
	}
	m.finalizeCalls++
	if m.finalizeOrder != nil {
		*m.finalizeOrder = append(*m.finalizeOrder, m.name)
	}
	return nil
}

func (m *stubModule) RequestData(requestID common.Hash) []byte {
	return m.data[requestID]
}

// chainingSetupModule creates a follow-up request from inside its own
// SetupRequest, the way a request module spawning a child request would.
type chainingSetupModule struct {
	stubModule
	oracle   *Oracle
	next     func() types.Request
	chained  bool
	childID  common.Hash
	childErr error
}

func (m *chainingSetupModule) SetupRequest(requestID common.Hash, data []byte) error {
	if !m.chained {
		m.chained = true
		m.childID, m.childErr = m.oracle.CreateRequest(m.next())
		if m.childErr != nil {
			return m.childErr
		}
	}
	return m.stubModule.SetupRequest(requestID, data)
}

type stubResponseModule struct {
	stubModule
	proposeErr  error
	deleteErr   error
	deleteCalls int
}

func newStubResponseModule(addr common.Address) *stubResponseModule {
	return &stubResponseModule{stubModule: *newStubModule("response", addr)}
}

func (m *stubResponseModule) Propose(requestID common.Hash, proposer common.Address, payload []byte) (types.Response, error) {
	if m.proposeErr != nil {
		return types.Response{}, m.proposeErr
	}
	return types.Response{Payload: payload}, nil
}

func (m *stubResponseModule) DeleteResponse(requestID, responseID common.Hash, caller common.Address) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleteCalls++
	return nil
}

type stubDisputeModule struct {
	stubModule
	initialStatus types.DisputeStatus
	disputeErr    error
	changeErr     error
	escalateErr   error

	statusChanges []types.DisputeStatus
	escalations   int
}

func newStubDisputeModule(addr common.Address) *stubDisputeModule {
	return &stubDisputeModule{
		stubModule:    *newStubModule("dispute", addr),
		initialStatus: types.DisputeStatusActive,
	}
}

func (m *stubDisputeModule) DisputeResponse(requestID, responseID common.Hash, disputer, proposer common.Address) (types.Dispute, error) {
	if m.disputeErr != nil {
		return types.Dispute{}, m.disputeErr
	}
	return types.Dispute{Status: m.initialStatus}, nil
}

func (m *stubDisputeModule) OnDisputeStatusChange(disputeID common.Hash, dispute types.Dispute) error {
	if m.changeErr != nil {
		return m.changeErr
	}
	m.statusChanges = append(m.statusChanges, dispute.Status)
	return nil
}

func (m *stubDisputeModule) DisputeEscalated(disputeID common.Hash) error {
	if m.escalateErr != nil {
		return m.escalateErr
	}
	m.escalations++
	return nil
}

// stubResolutionModule resolves every dispute to a preset verdict.
type stubResolutionModule struct {
	stubModule
	oracle  *Oracle
	verdict types.DisputeStatus

	startErr error
	started  []common.Hash
}

func newStubResolutionModule(addr common.Address, o *Oracle) *stubResolutionModule {
	return &stubResolutionModule{
		stubModule: *newStubModule("resolution", addr),
		oracle:     o,
		verdict:    types.DisputeStatusWon,
	}
}

func (m *stubResolutionModule) StartResolution(disputeID common.Hash) error {
	if m.startErr != nil {
		return m.startErr
	}
	m.started = append(m.started, disputeID)
	return nil
}

func (m *stubResolutionModule) ResolveDispute(disputeID common.Hash) error {
	return m.oracle.UpdateDisputeStatus(m.addr, disputeID, m.verdict)
}

// fixture wires an oracle with one of each stub module.
type fixture struct {
	oracle     *Oracle
	request    *stubModule
	response   *stubResponseModule
	dispute    *stubDisputeModule
	resolution *stubResolutionModule
	finality   *stubModule
}

func newFixture() *fixture {
	o := NewOracle(common.HexToAddress("0x0a"), NewSequence(0), NewSequence(0))
	o.SetClock(func() uint64 { return 1700000000 })
	f := &fixture{
		oracle:     o,
		request:    newStubModule("request", common.HexToAddress("0x01")),
		response:   newStubResponseModule(common.HexToAddress("0x02")),
		dispute:    newStubDisputeModule(common.HexToAddress("0x03")),
		resolution: newStubResolutionModule(common.HexToAddress("0x04"), o),
		finality:   newStubModule("finality", common.HexToAddress("0x05")),
	}
	o.RegisterModule(f.request)
	o.RegisterModule(f.response)
	o.RegisterModule(f.dispute)
	o.RegisterModule(f.resolution)
	o.RegisterModule(f.finality)
	return f
}

// newRequest builds a request selecting every fixture module.
func (f *fixture) newRequest(requester common.Address) types.Request {
	return types.Request{
		Requester:  requester,
		Request:    types.ModuleRef{Address: f.request.addr},
		Response:   types.ModuleRef{Address: f.response.addr},
		Dispute:    types.ModuleRef{Address: f.dispute.addr},
		Resolution: &types.ModuleRef{Address: f.resolution.addr},
		Finality:   &types.ModuleRef{Address: f.finality.addr},
	}
}
