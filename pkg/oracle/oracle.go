// Package oracle implements the orchestrator of the optimistic-oracle
// protocol: the request/response/dispute/finalization state machine.
//
// Every public mutating operation is one atomic transition. Checks run
// first, the oracle's own records are committed next, and pluggable modules
// are invoked last; when a module fails, the transition's own writes are
// unwound and the module error is returned untouched. Modules run on the
// caller's stack and may re-enter the oracle, so no lock is held across a
// module call; the platform embedding the oracle serializes transitions
// (see pkg/service).
package oracle

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

type Oracle struct {
	identity    common.Address
	requestSeq  *Sequence
	responseSeq *Sequence

	registry map[common.Address]types.Module

	requests   map[common.Hash]*types.Request
	requestIDs []common.Hash

	responses   map[common.Hash]*types.Response
	responseIDs map[common.Hash][]common.Hash

	disputes  map[common.Hash]*types.Dispute
	disputeOf map[common.Hash]common.Hash

	finalizedResponse map[common.Hash]common.Hash

	archive *Archive
	now     func() uint64
}

// NewOracle builds an orchestrator with its own identity and injected
// sequence generators for request and response nonces.
func NewOracle(identity common.Address, requestSeq, responseSeq *Sequence) *Oracle {
	return &Oracle{
		identity:          identity,
		requestSeq:        requestSeq,
		responseSeq:       responseSeq,
		registry:          make(map[common.Address]types.Module),
		requests:          make(map[common.Hash]*types.Request),
		responses:         make(map[common.Hash]*types.Response),
		responseIDs:       make(map[common.Hash][]common.Hash),
		disputes:          make(map[common.Hash]*types.Dispute),
		disputeOf:         make(map[common.Hash]common.Hash),
		finalizedResponse: make(map[common.Hash]common.Hash),
		now:               func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// Identity returns the oracle's own address, folded into every id.
func (o *Oracle) Identity() common.Address {
	return o.identity
}

// RegisterModule makes a module implementation reachable at an address.
// Request records carry addresses; dispatch resolves them here.
func (o *Oracle) RegisterModule(module types.Module) {
	o.registry[module.Address()] = module
}

// SetArchive attaches a write-through archive. Archive failures never fail
// a transition; they are logged and the in-memory state stays canonical.
func (o *Oracle) SetArchive(archive *Archive) {
	o.archive = archive
}

// SetClock overrides the timestamp source.
func (o *Oracle) SetClock(now func() uint64) {
	o.now = now
}

// CreateRequest validates nothing about the opaque module blobs, assigns
// the next nonce, persists the record and runs SetupRequest on every
// configured module. Any setup failure unwinds the whole creation.
func (o *Oracle) CreateRequest(req types.Request) (common.Hash, error) {
	nonce := o.requestSeq.Next()
	req.Nonce = nonce
	req.CreatedAt = o.now()
	req.FinalizedAt = 0

	id := requestID(req.Requester, o.identity, nonce)
	o.requests[id] = &req
	o.requestIDs = append(o.requestIDs, id)

	if err := o.setupModules(id, &req); err != nil {
		delete(o.requests, id)
		o.removeRequestID(id)
		o.requestSeq.Rollback(nonce)
		return common.Hash{}, err
	}

	o.archiveRequest(id, &req)
	logger.Info("oracle: request %s created by %s (nonce %d)", id.Hex(), req.Requester.Hex(), nonce)
	return id, nil
}

// removeRequestID unwinds exactly the named id. A setup hook may have
// re-entered CreateRequest and committed further requests on top, so the
// failed id is not necessarily the last one; creation order of the
// survivors is preserved.
func (o *Oracle) removeRequestID(id common.Hash) {
	for i := len(o.requestIDs) - 1; i >= 0; i-- {
		if o.requestIDs[i] == id {
			o.requestIDs = append(o.requestIDs[:i], o.requestIDs[i+1:]...)
			return
		}
	}
}

func (o *Oracle) setupModules(id common.Hash, req *types.Request) error {
	stages := []struct {
		name string
		ref  *types.ModuleRef
	}{
		{"request", &req.Request},
		{"response", &req.Response},
		{"dispute", &req.Dispute},
		{"resolution", req.Resolution},
		{"finality", req.Finality},
	}
	for _, stage := range stages {
		if stage.ref == nil {
			continue
		}
		module, err := o.resolve(stage.ref.Address)
		if err != nil {
			return fmt.Errorf("%s module: %w", stage.name, err)
		}
		if err := module.SetupRequest(id, stage.ref.Data); err != nil {
			return fmt.Errorf("%s module setup: %w", stage.name, err)
		}
	}
	return nil
}

// ProposeResponse records the caller's answer to a request. Payload
// acceptance is the response module's call.
func (o *Oracle) ProposeResponse(caller common.Address, reqID common.Hash, payload []byte) (common.Hash, error) {
	return o.propose(caller, reqID, payload)
}

// ProposeResponseFor lets a request's dispute module propose on behalf of a
// third party, e.g. for liquidation flows. Any other caller is rejected.
func (o *Oracle) ProposeResponseFor(caller, proposer common.Address, reqID common.Hash, payload []byte) (common.Hash, error) {
	req, ok := o.requests[reqID]
	if !ok {
		return common.Hash{}, ErrInvalidRequestId
	}
	if caller != req.Dispute.Address {
		return common.Hash{}, ErrNotDisputeModule
	}
	return o.propose(proposer, reqID, payload)
}

func (o *Oracle) propose(proposer common.Address, reqID common.Hash, payload []byte) (common.Hash, error) {
	req, ok := o.requests[reqID]
	if !ok {
		return common.Hash{}, ErrInvalidRequestId
	}
	if req.Finalized() {
		return common.Hash{}, ErrAlreadyFinalized
	}

	module, err := o.responseModule(req)
	if err != nil {
		return common.Hash{}, err
	}
	rsp, err := module.Propose(reqID, proposer, payload)
	if err != nil {
		return common.Hash{}, err
	}

	nonce := o.responseSeq.Next()
	id := responseID(proposer, o.identity, reqID, nonce)
	rsp.RequestID = reqID
	rsp.Proposer = proposer
	rsp.CreatedAt = o.now()
	o.responses[id] = &rsp
	o.responseIDs[reqID] = append(o.responseIDs[reqID], id)

	o.archiveResponse(id, &rsp)
	logger.Info("oracle: response %s proposed by %s for request %s", id.Hex(), proposer.Hex(), reqID.Hex())
	return id, nil
}

// DeleteResponse removes an undisputed response. Only the proposer may do
// it, and only until a dispute references the response. The response list
// uses swap-and-pop removal, so response order is not preserved.
func (o *Oracle) DeleteResponse(caller common.Address, rspID common.Hash) error {
	rsp, ok := o.responses[rspID]
	if !ok {
		return ErrInvalidResponseId
	}
	if caller != rsp.Proposer {
		return ErrCannotDeleteInvalidProposer
	}
	if _, disputed := o.disputeOf[rspID]; disputed {
		return ErrCannotDeleteWhileDisputing
	}

	req := o.requests[rsp.RequestID]
	module, err := o.responseModule(req)
	if err != nil {
		return err
	}
	if err := module.DeleteResponse(rsp.RequestID, rspID, caller); err != nil {
		return err
	}

	delete(o.responses, rspID)
	ids := o.responseIDs[rsp.RequestID]
	for i, id := range ids {
		if id == rspID {
			ids[i] = ids[len(ids)-1]
			o.responseIDs[rsp.RequestID] = ids[:len(ids)-1]
			break
		}
	}

	o.archiveDeleteResponse(rspID)
	logger.Info("oracle: response %s deleted by proposer %s", rspID.Hex(), caller.Hex())
	return nil
}

// DisputeResponse opens the one dispute a response may ever have. The
// dispute module decides the initial status and performs any bonding; a
// terminal initial status settles immediately through
// OnDisputeStatusChange.
func (o *Oracle) DisputeResponse(disputer common.Address, reqID, rspID common.Hash) (common.Hash, error) {
	req, ok := o.requests[reqID]
	if !ok {
		return common.Hash{}, ErrInvalidRequestId
	}
	if req.Finalized() {
		return common.Hash{}, ErrAlreadyFinalized
	}
	if _, disputed := o.disputeOf[rspID]; disputed {
		return common.Hash{}, ErrResponseAlreadyDisputed
	}
	rsp, ok := o.responses[rspID]
	if !ok || rsp.RequestID != reqID {
		return common.Hash{}, ErrInvalidResponseId
	}

	module, err := o.disputeModule(req)
	if err != nil {
		return common.Hash{}, err
	}

	id := disputeID(disputer, reqID, rspID)
	dispute, err := module.DisputeResponse(reqID, rspID, disputer, rsp.Proposer)
	if err != nil {
		return common.Hash{}, err
	}
	dispute.RequestID = reqID
	dispute.ResponseID = rspID
	dispute.Disputer = disputer
	dispute.Proposer = rsp.Proposer
	dispute.CreatedAt = o.now()

	o.disputes[id] = &dispute
	o.disputeOf[rspID] = id

	if dispute.Status != types.DisputeStatusActive {
		// The module settled the dispute on creation; notify it so payouts
		// run without a separate call.
		if err := module.OnDisputeStatusChange(id, dispute); err != nil {
			delete(o.disputes, id)
			delete(o.disputeOf, rspID)
			return common.Hash{}, err
		}
	}

	o.archiveDispute(id, &dispute)
	logger.Info("oracle: dispute %s opened by %s on response %s (status %s)", id.Hex(), disputer.Hex(), rspID.Hex(), dispute.Status)
	return id, nil
}

// EscalateDispute promotes an active dispute to the resolution stage. With
// no resolution module configured, Escalated is a valid terminal
// administrative state.
func (o *Oracle) EscalateDispute(id common.Hash) error {
	dispute, ok := o.disputes[id]
	if !ok {
		return ErrInvalidDisputeId
	}
	if dispute.Status != types.DisputeStatusActive {
		return ErrCannotEscalate
	}
	req := o.requests[dispute.RequestID]

	module, err := o.disputeModule(req)
	if err != nil {
		return err
	}

	dispute.Status = types.DisputeStatusEscalated
	if err := module.DisputeEscalated(id); err != nil {
		dispute.Status = types.DisputeStatusActive
		return err
	}
	if req.Resolution != nil {
		resolution, err := o.resolutionModule(req)
		if err != nil {
			dispute.Status = types.DisputeStatusActive
			return err
		}
		if err := resolution.StartResolution(id); err != nil {
			dispute.Status = types.DisputeStatusActive
			return err
		}
	}

	o.archiveDispute(id, dispute)
	logger.Info("oracle: dispute %s escalated", id.Hex())
	return nil
}

// ResolveDispute hands an Active or Escalated dispute to the resolution
// module, which commits the outcome through UpdateDisputeStatus.
func (o *Oracle) ResolveDispute(id common.Hash) error {
	dispute, ok := o.disputes[id]
	if !ok {
		return ErrInvalidDisputeId
	}
	// The two statuses immediately following None are the resolvable ones.
	if dispute.Status < types.DisputeStatusActive || dispute.Status > types.DisputeStatusEscalated {
		return ErrCannotResolve
	}
	req := o.requests[dispute.RequestID]
	if req.Resolution == nil {
		return ErrNoResolutionModule
	}
	resolution, err := o.resolutionModule(req)
	if err != nil {
		return err
	}
	return resolution.ResolveDispute(id)
}

// UpdateDisputeStatus commits a dispute outcome. Only the request's
// resolution module may call it. The dispute module is re-notified on every
// change so settlement runs each time, not just the first.
func (o *Oracle) UpdateDisputeStatus(caller common.Address, id common.Hash, status types.DisputeStatus) error {
	dispute, ok := o.disputes[id]
	if !ok {
		return ErrInvalidDisputeId
	}
	req := o.requests[dispute.RequestID]
	if req.Resolution == nil || caller != req.Resolution.Address {
		return ErrNotResolutionModule
	}

	module, err := o.disputeModule(req)
	if err != nil {
		return err
	}

	previous := dispute.Status
	dispute.Status = status
	if err := module.OnDisputeStatusChange(id, *dispute); err != nil {
		dispute.Status = previous
		return err
	}

	o.archiveDispute(id, dispute)
	logger.Info("oracle: dispute %s status %s -> %s", id.Hex(), previous, status)
	return nil
}

// Finalize commits a request with no winning response. Every dispute on the
// request must be nonexistent or resolved against the disputer.
func (o *Oracle) Finalize(finalizer common.Address, reqID common.Hash) error {
	req, ok := o.requests[reqID]
	if !ok {
		return ErrInvalidRequestId
	}
	if req.Finalized() {
		return ErrAlreadyFinalized
	}
	for _, rspID := range o.responseIDs[reqID] {
		dspID, disputed := o.disputeOf[rspID]
		if !disputed {
			continue
		}
		if o.disputes[dspID].Status != types.DisputeStatusLost {
			return ErrCannotFinalizeWithActiveDispute
		}
	}
	return o.commitFinalization(finalizer, reqID, req, common.Hash{})
}

// FinalizeWithResponse commits a request with an explicit winning response.
// A response under an unresolved dispute, or one its proposer lost, cannot
// win.
func (o *Oracle) FinalizeWithResponse(finalizer common.Address, reqID, rspID common.Hash) error {
	req, ok := o.requests[reqID]
	if !ok {
		return ErrInvalidRequestId
	}
	if req.Finalized() {
		return ErrAlreadyFinalized
	}
	rsp, ok := o.responses[rspID]
	if !ok || rsp.RequestID != reqID {
		return ErrInvalidFinalizedResponse
	}
	if dspID, disputed := o.disputeOf[rspID]; disputed {
		status := o.disputes[dspID].Status
		if status == types.DisputeStatusActive || status == types.DisputeStatusWon {
			return ErrInvalidFinalizedResponse
		}
	}
	return o.commitFinalization(finalizer, reqID, req, rspID)
}

// commitFinalization sets the finalization state first, then notifies the
// modules in the fixed finality, resolution, dispute, response, request
// order, so later stages observe earlier side effects. A module failure
// restores the unfinalized state.
func (o *Oracle) commitFinalization(finalizer common.Address, reqID common.Hash, req *types.Request, winner common.Hash) error {
	req.FinalizedAt = o.now()
	if winner != (common.Hash{}) {
		o.finalizedResponse[reqID] = winner
	}

	rollback := func() {
		req.FinalizedAt = 0
		delete(o.finalizedResponse, reqID)
	}

	refs := make([]*types.ModuleRef, 0, 5)
	if req.Finality != nil {
		refs = append(refs, req.Finality)
	}
	if req.Resolution != nil {
		refs = append(refs, req.Resolution)
	}
	refs = append(refs, &req.Dispute, &req.Response, &req.Request)

	for _, ref := range refs {
		module, err := o.resolve(ref.Address)
		if err != nil {
			rollback()
			return err
		}
		if err := module.FinalizeRequest(reqID, finalizer); err != nil {
			rollback()
			return err
		}
	}

	o.archiveRequest(reqID, req)
	logger.Info("oracle: request %s finalized by %s (winner %s)", reqID.Hex(), finalizer.Hex(), winner.Hex())
	return nil
}

// --- module dispatch ---

func (o *Oracle) resolve(addr common.Address) (types.Module, error) {
	module, ok := o.registry[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotRegistered, addr.Hex())
	}
	return module, nil
}

func (o *Oracle) responseModule(req *types.Request) (types.ResponseModule, error) {
	module, err := o.resolve(req.Response.Address)
	if err != nil {
		return nil, err
	}
	rm, ok := module.(types.ResponseModule)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a response module", ErrModuleNotRegistered, req.Response.Address.Hex())
	}
	return rm, nil
}

func (o *Oracle) disputeModule(req *types.Request) (types.DisputeModule, error) {
	module, err := o.resolve(req.Dispute.Address)
	if err != nil {
		return nil, err
	}
	dm, ok := module.(types.DisputeModule)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a dispute module", ErrModuleNotRegistered, req.Dispute.Address.Hex())
	}
	return dm, nil
}

func (o *Oracle) resolutionModule(req *types.Request) (types.ResolutionModule, error) {
	module, err := o.resolve(req.Resolution.Address)
	if err != nil {
		return nil, err
	}
	rm, ok := module.(types.ResolutionModule)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a resolution module", ErrModuleNotRegistered, req.Resolution.Address.Hex())
	}
	return rm, nil
}

// --- archive write-through, best effort ---

func (o *Oracle) archiveRequest(id common.Hash, req *types.Request) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveRequest(id, req); err != nil {
		logger.Warn("oracle: archive request %s failed: %v", id.Hex(), err)
	}
}

func (o *Oracle) archiveResponse(id common.Hash, rsp *types.Response) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveResponse(id, rsp); err != nil {
		logger.Warn("oracle: archive response %s failed: %v", id.Hex(), err)
	}
}

func (o *Oracle) archiveDeleteResponse(id common.Hash) {
	if o.archive == nil {
		return
	}
	if err := o.archive.DeleteResponse(id); err != nil {
		logger.Warn("oracle: archive delete response %s failed: %v", id.Hex(), err)
	}
}

func (o *Oracle) archiveDispute(id common.Hash, dispute *types.Dispute) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveDispute(id, dispute); err != nil {
		logger.Warn("oracle: archive dispute %s failed: %v", id.Hex(), err)
	}
}
