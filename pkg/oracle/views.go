package oracle

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/meta-node-blockchain/meta-oracle/types"
)

// GetRequest returns the request record by id.
func (o *Oracle) GetRequest(id common.Hash) (types.Request, error) {
	req, ok := o.requests[id]
	if !ok {
		return types.Request{}, ErrInvalidRequestId
	}
	return *req, nil
}

// GetResponse returns the response record by id.
func (o *Oracle) GetResponse(id common.Hash) (types.Response, error) {
	rsp, ok := o.responses[id]
	if !ok {
		return types.Response{}, ErrInvalidResponseId
	}
	return *rsp, nil
}

// GetDispute returns the dispute record by id.
func (o *Oracle) GetDispute(id common.Hash) (types.Dispute, error) {
	dispute, ok := o.disputes[id]
	if !ok {
		return types.Dispute{}, ErrInvalidDisputeId
	}
	return *dispute, nil
}

// DisputeOf returns the id of the dispute raised against a response.
func (o *Oracle) DisputeOf(rspID common.Hash) (common.Hash, bool) {
	id, ok := o.disputeOf[rspID]
	return id, ok
}

// GetResponseIDs returns the ids of a request's live responses. Order is
// not preserved once any response has been deleted.
func (o *Oracle) GetResponseIDs(reqID common.Hash) []common.Hash {
	ids := o.responseIDs[reqID]
	out := make([]common.Hash, len(ids))
	copy(out, ids)
	return out
}

// GetFinalizedResponseID returns the winning response id for a finalized
// request, the zero hash when it finalized without one.
func (o *Oracle) GetFinalizedResponseID(reqID common.Hash) (common.Hash, error) {
	if _, ok := o.requests[reqID]; !ok {
		return common.Hash{}, ErrInvalidRequestId
	}
	return o.finalizedResponse[reqID], nil
}

// GetFinalizedResponse returns the winning response record.
func (o *Oracle) GetFinalizedResponse(reqID common.Hash) (types.Response, error) {
	id, err := o.GetFinalizedResponseID(reqID)
	if err != nil {
		return types.Response{}, err
	}
	if id == (common.Hash{}) {
		return types.Response{}, ErrInvalidResponseId
	}
	return o.GetResponse(id)
}

// GetFullRequest assembles a request with its responses and their disputes.
func (o *Oracle) GetFullRequest(id common.Hash) (types.FullRequest, error) {
	req, ok := o.requests[id]
	if !ok {
		return types.FullRequest{}, ErrInvalidRequestId
	}
	full := types.FullRequest{ID: id, Request: *req}
	for _, rspID := range o.responseIDs[id] {
		stored := types.StoredResponse{ID: rspID, Response: *o.responses[rspID]}
		if dspID, disputed := o.disputeOf[rspID]; disputed {
			stored.DisputeID = dspID
			dispute := *o.disputes[dspID]
			stored.Dispute = &dispute
		}
		full.Responses = append(full.Responses, stored)
	}
	return full, nil
}

// ListRequests pages through requests in creation order. startFrom is the
// index of the first request returned; requests past the end of the list
// are simply absent from the result, never an error.
func (o *Oracle) ListRequests(startFrom, batchSize uint64) []types.StoredRequest {
	total := uint64(len(o.requestIDs))
	if startFrom >= total || batchSize == 0 {
		return []types.StoredRequest{}
	}
	end := startFrom + batchSize
	if end > total {
		end = total
	}
	out := make([]types.StoredRequest, 0, end-startFrom)
	for _, id := range o.requestIDs[startFrom:end] {
		out = append(out, types.StoredRequest{ID: id, Request: *o.requests[id]})
	}
	return out
}

// RequestCount returns the number of requests ever created.
func (o *Oracle) RequestCount() uint64 {
	return uint64(len(o.requestIDs))
}

// ValidModule reports whether module is one of the request's configured
// modules. Unknown requests have no valid modules.
func (o *Oracle) ValidModule(reqID common.Hash, module common.Address) bool {
	req, ok := o.requests[reqID]
	if !ok {
		return false
	}
	for _, addr := range req.ModuleAddresses() {
		if addr == module {
			return true
		}
	}
	return false
}
