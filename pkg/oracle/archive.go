package oracle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/near/borsh-go"
	"golang.org/x/sync/errgroup"

	"github.com/meta-node-blockchain/meta-oracle/pkg/storage"
	"github.com/meta-node-blockchain/meta-oracle/pkg/utils"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

const (
	requestKeyPrefix  = "req:"
	responseKeyPrefix = "rsp:"
	disputeKeyPrefix  = "dsp:"
)

// Archive persists oracle records to a key-value backend so a restarted
// node can serve historical reads. The in-memory maps stay canonical; the
// archive is a write-through copy.
type Archive struct {
	db storage.Storage
}

func NewArchive(db storage.Storage) *Archive {
	return &Archive{db: db}
}

// archivedRequest flattens a request record for borsh. Optional module
// stages are encoded as a presence flag plus zero-valued fields.
type archivedRequest struct {
	Nonce             uint64
	Requester         [20]uint8
	RequestAddress    [20]uint8
	RequestData       []uint8
	ResponseAddress   [20]uint8
	ResponseData      []uint8
	DisputeAddress    [20]uint8
	DisputeData       []uint8
	HasResolution     bool
	ResolutionAddress [20]uint8
	ResolutionData    []uint8
	HasFinality       bool
	FinalityAddress   [20]uint8
	FinalityData      []uint8
	ContentHash       [32]uint8
	CreatedAt         uint64
	FinalizedAt       uint64
}

type archivedResponse struct {
	RequestID [32]uint8
	Proposer  [20]uint8
	Payload   []uint8
	CreatedAt uint64
}

type archivedDispute struct {
	RequestID  [32]uint8
	ResponseID [32]uint8
	Disputer   [20]uint8
	Proposer   [20]uint8
	Status     uint8
	CreatedAt  uint64
}

func (a *Archive) SaveRequest(id common.Hash, req *types.Request) error {
	record := archivedRequest{
		Nonce:           req.Nonce,
		Requester:       req.Requester,
		RequestAddress:  req.Request.Address,
		RequestData:     req.Request.Data,
		ResponseAddress: req.Response.Address,
		ResponseData:    req.Response.Data,
		DisputeAddress:  req.Dispute.Address,
		DisputeData:     req.Dispute.Data,
		ContentHash:     req.ContentHash,
		CreatedAt:       req.CreatedAt,
		FinalizedAt:     req.FinalizedAt,
	}
	if req.Resolution != nil {
		record.HasResolution = true
		record.ResolutionAddress = req.Resolution.Address
		record.ResolutionData = req.Resolution.Data
	}
	if req.Finality != nil {
		record.HasFinality = true
		record.FinalityAddress = req.Finality.Address
		record.FinalityData = req.Finality.Data
	}
	return a.put(requestKeyPrefix, id, record)
}

func (a *Archive) SaveResponse(id common.Hash, rsp *types.Response) error {
	return a.put(responseKeyPrefix, id, archivedResponse{
		RequestID: rsp.RequestID,
		Proposer:  rsp.Proposer,
		Payload:   rsp.Payload,
		CreatedAt: rsp.CreatedAt,
	})
}

func (a *Archive) DeleteResponse(id common.Hash) error {
	return a.db.Delete(utils.PrefixedKey(responseKeyPrefix, id))
}

func (a *Archive) SaveDispute(id common.Hash, dispute *types.Dispute) error {
	return a.put(disputeKeyPrefix, id, archivedDispute{
		RequestID:  dispute.RequestID,
		ResponseID: dispute.ResponseID,
		Disputer:   dispute.Disputer,
		Proposer:   dispute.Proposer,
		Status:     uint8(dispute.Status),
		CreatedAt:  dispute.CreatedAt,
	})
}

// LoadRequest reads a request record back from the archive.
func (a *Archive) LoadRequest(id common.Hash) (types.Request, error) {
	raw, err := a.db.Get(utils.PrefixedKey(requestKeyPrefix, id))
	if err != nil {
		return types.Request{}, err
	}
	record := archivedRequest{}
	if err := borsh.Deserialize(&record, raw); err != nil {
		return types.Request{}, fmt.Errorf("decode archived request: %w", err)
	}
	req := types.Request{
		Nonce:       record.Nonce,
		Requester:   record.Requester,
		Request:     types.ModuleRef{Address: record.RequestAddress, Data: record.RequestData},
		Response:    types.ModuleRef{Address: record.ResponseAddress, Data: record.ResponseData},
		Dispute:     types.ModuleRef{Address: record.DisputeAddress, Data: record.DisputeData},
		ContentHash: record.ContentHash,
		CreatedAt:   record.CreatedAt,
		FinalizedAt: record.FinalizedAt,
	}
	if record.HasResolution {
		req.Resolution = &types.ModuleRef{Address: record.ResolutionAddress, Data: record.ResolutionData}
	}
	if record.HasFinality {
		req.Finality = &types.ModuleRef{Address: record.FinalityAddress, Data: record.FinalityData}
	}
	return req, nil
}

// LoadResponse reads a response record back from the archive.
func (a *Archive) LoadResponse(id common.Hash) (types.Response, error) {
	raw, err := a.db.Get(utils.PrefixedKey(responseKeyPrefix, id))
	if err != nil {
		return types.Response{}, err
	}
	record := archivedResponse{}
	if err := borsh.Deserialize(&record, raw); err != nil {
		return types.Response{}, fmt.Errorf("decode archived response: %w", err)
	}
	return types.Response{
		RequestID: record.RequestID,
		Proposer:  record.Proposer,
		Payload:   record.Payload,
		CreatedAt: record.CreatedAt,
	}, nil
}

// LoadDispute reads a dispute record back from the archive.
func (a *Archive) LoadDispute(id common.Hash) (types.Dispute, error) {
	raw, err := a.db.Get(utils.PrefixedKey(disputeKeyPrefix, id))
	if err != nil {
		return types.Dispute{}, err
	}
	record := archivedDispute{}
	if err := borsh.Deserialize(&record, raw); err != nil {
		return types.Dispute{}, fmt.Errorf("decode archived dispute: %w", err)
	}
	return types.Dispute{
		RequestID:  record.RequestID,
		ResponseID: record.ResponseID,
		Disputer:   record.Disputer,
		Proposer:   record.Proposer,
		Status:     types.DisputeStatus(record.Status),
		CreatedAt:  record.CreatedAt,
	}, nil
}

// FlushAll rewrites the oracle's full live state into the archive, e.g.
// after attaching an archive to an already-running oracle.
func (a *Archive) FlushAll(o *Oracle) error {
	g := errgroup.Group{}
	g.Go(func() error {
		for id, req := range o.requests {
			if err := a.SaveRequest(id, req); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for id, rsp := range o.responses {
			if err := a.SaveResponse(id, rsp); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for id, dispute := range o.disputes {
			if err := a.SaveDispute(id, dispute); err != nil {
				return err
			}
		}
		return nil
	})
	return g.Wait()
}

func (a *Archive) put(prefix string, id common.Hash, record interface{}) error {
	raw, err := borsh.Serialize(record)
	if err != nil {
		return fmt.Errorf("encode archive record: %w", err)
	}
	return a.db.Put(utils.PrefixedKey(prefix, id), raw)
}
