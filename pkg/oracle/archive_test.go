package oracle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/meta-node-blockchain/meta-oracle/pkg/storage"
	"github.com/meta-node-blockchain/meta-oracle/types"
)

func TestArchiveRequestRoundTrip(t *testing.T) {
	archive := NewArchive(storage.NewMemoryDB())
	id := common.HexToHash("0x01")
	req := types.Request{
		Nonce:       7,
		Requester:   requester,
		Request:     types.ModuleRef{Address: common.HexToAddress("0x01"), Data: []byte{1}},
		Response:    types.ModuleRef{Address: common.HexToAddress("0x02"), Data: []byte{2}},
		Dispute:     types.ModuleRef{Address: common.HexToAddress("0x03"), Data: []byte{3}},
		Resolution:  &types.ModuleRef{Address: common.HexToAddress("0x04"), Data: []byte{4}},
		ContentHash: common.HexToHash("0xc0ffee"),
		CreatedAt:   1700000000,
	}

	assert.NoError(t, archive.SaveRequest(id, &req))
	loaded, err := archive.LoadRequest(id)
	assert.NoError(t, err)
	assert.Equal(t, req, loaded)
	// Finality was not configured and must stay absent.
	assert.Nil(t, loaded.Finality)
}

func TestArchiveResponseDelete(t *testing.T) {
	archive := NewArchive(storage.NewMemoryDB())
	id := common.HexToHash("0x02")
	rsp := types.Response{RequestID: common.HexToHash("0x01"), Proposer: proposer, Payload: []byte("42"), CreatedAt: 1700000000}

	assert.NoError(t, archive.SaveResponse(id, &rsp))
	loaded, err := archive.LoadResponse(id)
	assert.NoError(t, err)
	assert.Equal(t, rsp, loaded)

	assert.NoError(t, archive.DeleteResponse(id))
	_, err = archive.LoadResponse(id)
	assert.Error(t, err)
}

func TestArchiveWriteThrough(t *testing.T) {
	db := storage.NewMemoryDB()
	f := newFixture()
	f.oracle.SetArchive(NewArchive(db))

	reqID, err := f.oracle.CreateRequest(f.newRequest(requester))
	assert.NoError(t, err)
	rspID, err := f.oracle.ProposeResponse(proposer, reqID, []byte("42"))
	assert.NoError(t, err)
	dspID, err := f.oracle.DisputeResponse(disputer, reqID, rspID)
	assert.NoError(t, err)

	archive := NewArchive(db)
	req, err := archive.LoadRequest(reqID)
	assert.NoError(t, err)
	assert.Equal(t, requester, req.Requester)

	dispute, err := archive.LoadDispute(dspID)
	assert.NoError(t, err)
	assert.Equal(t, types.DisputeStatusActive, dispute.Status)

	// Finalization rewrites the request record.
	assert.NoError(t, f.oracle.UpdateDisputeStatus(f.resolution.addr, dspID, types.DisputeStatusLost))
	assert.NoError(t, f.oracle.Finalize(finalizer, reqID))
	req, err = archive.LoadRequest(reqID)
	assert.NoError(t, err)
	assert.True(t, req.Finalized())
	dispute, err = archive.LoadDispute(dspID)
	assert.NoError(t, err)
	assert.Equal(t, types.DisputeStatusLost, dispute.Status)
}

func TestArchiveFlushAll(t *testing.T) {
	f := newFixture()
	reqID, _ := f.oracle.CreateRequest(f.newRequest(requester))
	rspID, _ := f.oracle.ProposeResponse(proposer, reqID, []byte("42"))
	dspID, _ := f.oracle.DisputeResponse(disputer, reqID, rspID)

	archive := NewArchive(storage.NewMemoryDB())
	assert.NoError(t, archive.FlushAll(f.oracle))

	_, err := archive.LoadRequest(reqID)
	assert.NoError(t, err)
	_, err = archive.LoadResponse(rspID)
	assert.NoError(t, err)
	_, err = archive.LoadDispute(dspID)
	assert.NoError(t, err)
}
