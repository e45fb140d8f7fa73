package service

import (
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/meta-node-blockchain/meta-oracle/pkg/accounting"
	"github.com/meta-node-blockchain/meta-oracle/pkg/oracle"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

// Command names of the node's protocol surface.
const (
	CmdCreateRequest   = "oracle_create_request"
	CmdProposeResponse = "oracle_propose_response"
	CmdDisputeResponse = "oracle_dispute_response"
	CmdEscalate        = "oracle_escalate"
	CmdResolve         = "oracle_resolve"
	CmdFinalize        = "oracle_finalize"
	CmdGetRequest      = "oracle_get_request"
	CmdListRequests    = "oracle_list_requests"
	CmdDeposit         = "acct_deposit"
	CmdBalance         = "acct_balance"
)

type moduleRefParam struct {
	Address common.Address `json:"address"`
	Data    hexutil.Bytes  `json:"data,omitempty"`
}

func (p *moduleRefParam) toRef() types.ModuleRef {
	return types.ModuleRef{Address: p.Address, Data: p.Data}
}

type createRequestParams struct {
	Requester   common.Address  `json:"requester"`
	ContentHash common.Hash     `json:"contentHash"`
	Request     moduleRefParam  `json:"request"`
	Response    moduleRefParam  `json:"response"`
	Dispute     moduleRefParam  `json:"dispute"`
	Resolution  *moduleRefParam `json:"resolution,omitempty"`
	Finality    *moduleRefParam `json:"finality,omitempty"`
}

type proposeParams struct {
	Proposer  common.Address `json:"proposer"`
	RequestID common.Hash    `json:"requestId"`
	Payload   hexutil.Bytes  `json:"payload"`
}

type disputeParams struct {
	Disputer   common.Address `json:"disputer"`
	RequestID  common.Hash    `json:"requestId"`
	ResponseID common.Hash    `json:"responseId"`
}

type disputeIDParams struct {
	DisputeID common.Hash `json:"disputeId"`
}

type finalizeParams struct {
	Finalizer  common.Address `json:"finalizer"`
	RequestID  common.Hash    `json:"requestId"`
	ResponseID common.Hash    `json:"responseId,omitempty"`
}

type getRequestParams struct {
	RequestID common.Hash `json:"requestId"`
}

type listRequestsParams struct {
	StartFrom uint64 `json:"startFrom"`
	BatchSize uint64 `json:"batchSize"`
}

type fundsParams struct {
	Holder common.Address `json:"holder"`
	Asset  common.Address `json:"asset"`
	Amount string         `json:"amount,omitempty"`
}

// Routes binds the oracle and ledger operations to their protocol
// commands.
func Routes(core *oracle.Oracle, ledger *accounting.Accounting) map[string]HandlerFunc {
	return map[string]HandlerFunc{
		CmdCreateRequest: func(raw json.RawMessage) (interface{}, error) {
			p := createRequestParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			req := types.Request{
				Requester:   p.Requester,
				ContentHash: p.ContentHash,
				Request:     p.Request.toRef(),
				Response:    p.Response.toRef(),
				Dispute:     p.Dispute.toRef(),
			}
			if p.Resolution != nil {
				ref := p.Resolution.toRef()
				req.Resolution = &ref
			}
			if p.Finality != nil {
				ref := p.Finality.toRef()
				req.Finality = &ref
			}
			id, err := core.CreateRequest(req)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"requestId": id}, nil
		},
		CmdProposeResponse: func(raw json.RawMessage) (interface{}, error) {
			p := proposeParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			id, err := core.ProposeResponse(p.Proposer, p.RequestID, p.Payload)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"responseId": id}, nil
		},
		CmdDisputeResponse: func(raw json.RawMessage) (interface{}, error) {
			p := disputeParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			id, err := core.DisputeResponse(p.Disputer, p.RequestID, p.ResponseID)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{"disputeId": id}, nil
		},
		CmdEscalate: func(raw json.RawMessage) (interface{}, error) {
			p := disputeIDParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return nil, core.EscalateDispute(p.DisputeID)
		},
		CmdResolve: func(raw json.RawMessage) (interface{}, error) {
			p := disputeIDParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return nil, core.ResolveDispute(p.DisputeID)
		},
		CmdFinalize: func(raw json.RawMessage) (interface{}, error) {
			p := finalizeParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			if p.ResponseID == (common.Hash{}) {
				return nil, core.Finalize(p.Finalizer, p.RequestID)
			}
			return nil, core.FinalizeWithResponse(p.Finalizer, p.RequestID, p.ResponseID)
		},
		CmdGetRequest: func(raw json.RawMessage) (interface{}, error) {
			p := getRequestParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return core.GetFullRequest(p.RequestID)
		},
		CmdListRequests: func(raw json.RawMessage) (interface{}, error) {
			p := listRequestsParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"total":    core.RequestCount(),
				"requests": core.ListRequests(p.StartFrom, p.BatchSize),
			}, nil
		},
		CmdDeposit: func(raw json.RawMessage) (interface{}, error) {
			p := fundsParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			amount, err := uint256.FromDecimal(p.Amount)
			if err != nil {
				return nil, errors.New("invalid amount: " + p.Amount)
			}
			if err := ledger.Deposit(p.Holder, p.Asset, amount); err != nil {
				return nil, err
			}
			return map[string]interface{}{"balance": ledger.BalanceOf(p.Holder, p.Asset).Dec()}, nil
		},
		CmdBalance: func(raw json.RawMessage) (interface{}, error) {
			p := fundsParams{}
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"balance": ledger.BalanceOf(p.Holder, p.Asset).Dec(),
				"bonded":  ledger.BondedOf(p.Holder, p.Asset).Dec(),
			}, nil
		},
	}
}

// DefaultLimits is a conservative per-command rate limit table for a public
// endpoint. Mutating commands are throttled harder than reads.
func DefaultLimits() map[string]int {
	return map[string]int{
		CmdCreateRequest:   20,
		CmdProposeResponse: 50,
		CmdDisputeResponse: 50,
		CmdEscalate:        20,
		CmdResolve:         20,
		CmdFinalize:        20,
		CmdGetRequest:      200,
		CmdListRequests:    50,
		CmdDeposit:         50,
		CmdBalance:         200,
	}
}
