package types

import (
	e_common "github.com/ethereum/go-ethereum/common"
)

// DisputeStatus is the lifecycle state of a dispute. The zero value None
// means no dispute exists. Active and Escalated are the two live states
// that immediately follow None; everything above them is terminal.
type DisputeStatus uint8

const (
	DisputeStatusNone DisputeStatus = iota
	DisputeStatusActive
	DisputeStatusEscalated
	DisputeStatusWon
	DisputeStatusLost
	DisputeStatusNoResolution
)

func (s DisputeStatus) String() string {
	switch s {
	case DisputeStatusNone:
		return "None"
	case DisputeStatusActive:
		return "Active"
	case DisputeStatusEscalated:
		return "Escalated"
	case DisputeStatusWon:
		return "Won"
	case DisputeStatusLost:
		return "Lost"
	case DisputeStatusNoResolution:
		return "NoResolution"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status admits no further transition.
func (s DisputeStatus) Terminal() bool {
	return s >= DisputeStatusWon
}

// ModuleRef binds a module address to the opaque configuration blob the
// module receives at request setup. The oracle never inspects Data.
type ModuleRef struct {
	Address e_common.Address
	Data    []byte
}

// Request is the canonical record of a unit of oracle work. Immutable after
// creation except FinalizedAt, which is set exactly once. Resolution and
// Finality are nil when the request did not configure those stages.
type Request struct {
	Nonce      uint64
	Requester  e_common.Address
	Request    ModuleRef
	Response   ModuleRef
	Dispute    ModuleRef
	Resolution *ModuleRef
	Finality   *ModuleRef
	// ContentHash points at the off-chain request content, e.g. an IPFS CID
	// digest.
	ContentHash e_common.Hash
	CreatedAt   uint64
	FinalizedAt uint64
}

// Finalized reports whether the request has been finalized.
func (r *Request) Finalized() bool {
	return r.FinalizedAt != 0
}

// ModuleAddresses returns every module address configured on the request.
func (r *Request) ModuleAddresses() []e_common.Address {
	addrs := []e_common.Address{r.Request.Address, r.Response.Address, r.Dispute.Address}
	if r.Resolution != nil {
		addrs = append(addrs, r.Resolution.Address)
	}
	if r.Finality != nil {
		addrs = append(addrs, r.Finality.Address)
	}
	return addrs
}

// Response is a proposed answer to a request. A response can be deleted by
// its proposer until a dispute references it; from then on it is permanent.
type Response struct {
	RequestID e_common.Hash
	Proposer  e_common.Address
	Payload   []byte
	CreatedAt uint64
}

// Dispute is a challenge against a response.
type Dispute struct {
	RequestID  e_common.Hash
	ResponseID e_common.Hash
	Disputer   e_common.Address
	Proposer   e_common.Address
	Status     DisputeStatus
	CreatedAt  uint64
}

// StoredRequest pairs a request record with its content-addressed id.
type StoredRequest struct {
	ID      e_common.Hash
	Request Request
}

// StoredResponse pairs a response with its id and, when one exists, the
// dispute raised against it.
type StoredResponse struct {
	ID        e_common.Hash
	Response  Response
	DisputeID e_common.Hash
	Dispute   *Dispute
}

// FullRequest is the assembled projection of a request and everything that
// hangs off it. Response order is not guaranteed once any response has been
// deleted.
type FullRequest struct {
	ID        e_common.Hash
	Request   Request
	Responses []StoredResponse
}
