package types

import (
	e_common "github.com/ethereum/go-ethereum/common"
)

// Module is the lifecycle contract every pluggable oracle module satisfies.
// The oracle calls SetupRequest when a request selecting the module is
// created and FinalizeRequest when the request is finalized. Modules keep
// the configuration blob verbatim and hand it back through RequestData.
type Module interface {
	// Name identifies the module implementation.
	Name() string
	// Address is the module's identity inside request records.
	Address() e_common.Address
	// SetupRequest stores and, per policy, validates the request's
	// configuration blob. An error aborts request creation.
	SetupRequest(requestID e_common.Hash, data []byte) error
	// FinalizeRequest runs the module's settlement logic for a finalized
	// request. An error aborts finalization.
	FinalizeRequest(requestID e_common.Hash, finalizer e_common.Address) error
	// RequestData returns the configuration blob stored for the request,
	// nil if none.
	RequestData(requestID e_common.Hash) []byte
}

// RequestModule sources request content. The core needs nothing beyond the
// common lifecycle from it.
type RequestModule interface {
	Module
}

// ResponseModule decides whether a proposed payload is acceptable and
// performs any collateralization it requires.
type ResponseModule interface {
	Module
	// Propose accepts or rejects a payload for a request. The returned
	// record carries the module's view of the response; the oracle assigns
	// identity and timestamps.
	Propose(requestID e_common.Hash, proposer e_common.Address, payload []byte) (Response, error)
	// DeleteResponse releases whatever Propose escrowed. The oracle has
	// already verified the caller is the proposer and that no dispute
	// exists.
	DeleteResponse(requestID, responseID e_common.Hash, caller e_common.Address) error
}

// DisputeModule owns dispute policy: it creates the dispute record, decides
// its initial status, and settles bonds on every status change.
type DisputeModule interface {
	Module
	// DisputeResponse builds the dispute record for a challenged response
	// and performs any required bonding. The returned status is usually
	// Active; a terminal status settles immediately.
	DisputeResponse(requestID, responseID e_common.Hash, disputer, proposer e_common.Address) (Dispute, error)
	// OnDisputeStatusChange runs after every status mutation, including a
	// terminal status returned directly by DisputeResponse.
	OnDisputeStatusChange(disputeID e_common.Hash, dispute Dispute) error
	// DisputeEscalated is notified when a dispute is promoted to the
	// resolution stage.
	DisputeEscalated(disputeID e_common.Hash) error
}

// ResolutionModule arbitrates escalated disputes. Implementations must call
// the oracle's UpdateDisputeStatus to commit an outcome.
type ResolutionModule interface {
	Module
	// StartResolution opens arbitration for a dispute.
	StartResolution(disputeID e_common.Hash) error
	// ResolveDispute drives the dispute to an outcome.
	ResolveDispute(disputeID e_common.Hash) error
}

// FinalityModule observes finalization, e.g. to fire callbacks. Only the
// common lifecycle is required.
type FinalityModule interface {
	Module
}

// Oracle is the callback surface the core exposes to modules and to the
// accounting extensions. It is intentionally narrow: modules read records
// and commit dispute outcomes, nothing else.
type Oracle interface {
	// ValidModule reports whether the address is one of the request's
	// configured modules.
	ValidModule(requestID e_common.Hash, module e_common.Address) bool
	// UpdateDisputeStatus mutates a dispute's status. The caller must be
	// the request's resolution module.
	UpdateDisputeStatus(caller e_common.Address, disputeID e_common.Hash, status DisputeStatus) error
	// GetRequest returns the request record.
	GetRequest(requestID e_common.Hash) (Request, error)
	// GetResponse returns the response record.
	GetResponse(responseID e_common.Hash) (Response, error)
	// GetDispute returns the dispute record.
	GetDispute(disputeID e_common.Hash) (Dispute, error)
	// DisputeOf returns the dispute raised against a response, if any.
	DisputeOf(responseID e_common.Hash) (e_common.Hash, bool)
	// GetFinalizedResponseID returns the winning response id, zero when the
	// request was finalized without one or is not finalized.
	GetFinalizedResponseID(requestID e_common.Hash) (e_common.Hash, error)
}
