package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/near/borsh-go"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
)

// Stream protocols for the remote archive service. Request and response
// frames are borsh-encoded, one frame per stream.
const (
	ProtocolGet         protocol.ID = "/archive/get/1.0.0"
	ProtocolPut         protocol.ID = "/archive/put/1.0.0"
	ProtocolDelete      protocol.ID = "/archive/delete/1.0.0"
	ProtocolBatchPut    protocol.ID = "/archive/batchput/1.0.0"
	ProtocolBatchDelete protocol.ID = "/archive/batchdelete/1.0.0"
	ProtocolGetAllKeys  protocol.ID = "/archive/getallkeys/1.0.0"
	ProtocolGetBackup   protocol.ID = "/archive/getbackup/1.0.0"
)

type GetRequest struct {
	Key []byte
}
type GetResponse struct {
	Value []byte
	Error string
}

type PutRequest struct {
	Key   []byte
	Value []byte
}
type PutResponse struct {
	Error string
}

type DeleteRequest struct {
	Key []byte
}
type DeleteResponse struct {
	Error string
}

type BatchPutRequest struct {
	KVS [][2][]byte
}
type BatchPutResponse struct {
	Error string
}

type BatchDeleteRequest struct {
	Keys [][]byte
}
type BatchDeleteResponse struct {
	Error string
}

type GetAllKeysRequest struct{}
type GetAllKeysResponse struct {
	Keys  []string
	Error string
}

type GetBackupPathRequest struct{}
type GetBackupPathResponse struct {
	Path  string
	Error string
}

// RemoteStorage is a Storage client backed by libp2p streams to a peer
// running a RemoteStorageService. An oracle node uses it to archive into a
// dedicated storage node.
type RemoteStorage struct {
	host         host.Host
	targetPeerID peer.ID
}

func NewRemoteStorage(localHost host.Host, remotePeerID peer.ID) (*RemoteStorage, error) {
	if localHost == nil {
		return nil, errors.New("libp2p host must not be nil")
	}
	if remotePeerID == "" {
		return nil, errors.New("remote peer ID must not be empty")
	}
	return &RemoteStorage{
		host:         localHost,
		targetPeerID: remotePeerID,
	}, nil
}

func (rs *RemoteStorage) sendRequest(protocolID protocol.ID, requestData interface{}, responseData interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stream, err := rs.host.NewStream(ctx, rs.targetPeerID, protocolID)
	if err != nil {
		return fmt.Errorf("cannot open stream to peer %s for protocol %s: %w", rs.targetPeerID, protocolID, err)
	}
	defer stream.Close()

	requestBytes, err := borsh.Serialize(requestData)
	if err != nil {
		_ = stream.Reset()
		return fmt.Errorf("cannot serialize request for protocol %s: %w", protocolID, err)
	}

	if _, err = stream.Write(requestBytes); err != nil {
		_ = stream.Reset()
		return fmt.Errorf("cannot write request to stream for protocol %s: %w", protocolID, err)
	}
	if err = stream.CloseWrite(); err != nil {
		logger.Debug("RemoteStorage: error closing write side for protocol %s: %v", protocolID, err)
	}

	responseBytes, err := io.ReadAll(stream)
	if err != nil && err != io.EOF {
		_ = stream.Reset()
		return fmt.Errorf("error reading response from stream for protocol %s: %w", protocolID, err)
	}
	if len(responseBytes) == 0 {
		_ = stream.Reset()
		return fmt.Errorf("no response data from peer for protocol %s", protocolID)
	}

	if err := borsh.Deserialize(responseData, responseBytes); err != nil {
		_ = stream.Reset()
		return fmt.Errorf("cannot deserialize response for protocol %s: %w", protocolID, err)
	}
	return nil
}

func (rs *RemoteStorage) Get(key []byte) ([]byte, error) {
	req := GetRequest{Key: key}
	var resp GetResponse
	if err := rs.sendRequest(ProtocolGet, req, &resp); err != nil {
		return nil, fmt.Errorf("remote Get failed: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Value, nil
}

func (rs *RemoteStorage) Put(key []byte, value []byte) error {
	req := PutRequest{Key: key, Value: value}
	var resp PutResponse
	if err := rs.sendRequest(ProtocolPut, req, &resp); err != nil {
		return fmt.Errorf("remote Put failed: %w", err)
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

func (rs *RemoteStorage) Has(key []byte) bool {
	_, err := rs.Get(key)
	return err == nil
}

func (rs *RemoteStorage) Delete(key []byte) error {
	req := DeleteRequest{Key: key}
	var resp DeleteResponse
	if err := rs.sendRequest(ProtocolDelete, req, &resp); err != nil {
		return fmt.Errorf("remote Delete failed: %w", err)
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

func (rs *RemoteStorage) BatchPut(kvs [][2][]byte) error {
	req := BatchPutRequest{KVS: kvs}
	var resp BatchPutResponse
	if err := rs.sendRequest(ProtocolBatchPut, req, &resp); err != nil {
		return fmt.Errorf("remote BatchPut failed: %w", err)
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

func (rs *RemoteStorage) BatchDelete(keys [][]byte) error {
	req := BatchDeleteRequest{Keys: keys}
	var resp BatchDeleteResponse
	if err := rs.sendRequest(ProtocolBatchDelete, req, &resp); err != nil {
		return fmt.Errorf("remote BatchDelete failed: %w", err)
	}
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	return nil
}

func (rs *RemoteStorage) GetAllKeys() ([]string, error) {
	req := GetAllKeysRequest{}
	var resp GetAllKeysResponse
	if err := rs.sendRequest(ProtocolGetAllKeys, req, &resp); err != nil {
		return nil, fmt.Errorf("remote GetAllKeys failed: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Keys, nil
}

func (rs *RemoteStorage) GetBackupPath() string {
	req := GetBackupPathRequest{}
	var resp GetBackupPathResponse
	if err := rs.sendRequest(ProtocolGetBackup, req, &resp); err != nil {
		logger.Debug("remote GetBackupPath failed: %v", err)
		return ""
	}
	if resp.Error != "" {
		return ""
	}
	return resp.Path
}

func (rs *RemoteStorage) Open() error {
	// Streams are opened per operation.
	return nil
}

func (rs *RemoteStorage) Close() error {
	return nil
}

// RemoteStorageService serves a local Storage to remote peers.
type RemoteStorageService struct {
	actualStorage Storage
}

func NewRemoteStorageService(storageImpl Storage) *RemoteStorageService {
	return &RemoteStorageService{actualStorage: storageImpl}
}

func (rss *RemoteStorageService) RegisterHandlers(h host.Host) {
	h.SetStreamHandler(ProtocolGet, rss.handleGet)
	h.SetStreamHandler(ProtocolPut, rss.handlePut)
	h.SetStreamHandler(ProtocolDelete, rss.handleDelete)
	h.SetStreamHandler(ProtocolBatchPut, rss.handleBatchPut)
	h.SetStreamHandler(ProtocolBatchDelete, rss.handleBatchDelete)
	h.SetStreamHandler(ProtocolGetAllKeys, rss.handleGetAllKeys)
	h.SetStreamHandler(ProtocolGetBackup, rss.handleGetBackupPath)
}

func handleStream[ReqT any, ResT any](s network.Stream, setError func(*ResT, string), process func(*ReqT) (ResT, error)) {
	defer s.Close()
	var req ReqT
	var resp ResT

	requestBytes, err := io.ReadAll(s)
	if err != nil && err != io.EOF {
		logger.Debug("RemoteStorageService: error reading request: %v", err)
		_ = s.Reset()
		return
	}
	if len(requestBytes) > 0 {
		if err := borsh.Deserialize(&req, requestBytes); err != nil {
			logger.Debug("RemoteStorageService: cannot deserialize request: %v", err)
			_ = s.Reset()
			return
		}
	}

	resp, appErr := process(&req)
	if appErr != nil {
		setError(&resp, appErr.Error())
	}

	responseBytes, err := borsh.Serialize(resp)
	if err != nil {
		logger.Debug("RemoteStorageService: cannot serialize response: %v", err)
		_ = s.Reset()
		return
	}
	if _, err = s.Write(responseBytes); err != nil {
		logger.Debug("RemoteStorageService: cannot write response: %v", err)
		_ = s.Reset()
	}
}

func (rss *RemoteStorageService) handleGet(s network.Stream) {
	handleStream(s,
		func(r *GetResponse, msg string) { r.Error = msg },
		func(req *GetRequest) (GetResponse, error) {
			value, err := rss.actualStorage.Get(req.Key)
			return GetResponse{Value: value}, err
		})
}

func (rss *RemoteStorageService) handlePut(s network.Stream) {
	handleStream(s,
		func(r *PutResponse, msg string) { r.Error = msg },
		func(req *PutRequest) (PutResponse, error) {
			return PutResponse{}, rss.actualStorage.Put(req.Key, req.Value)
		})
}

func (rss *RemoteStorageService) handleDelete(s network.Stream) {
	handleStream(s,
		func(r *DeleteResponse, msg string) { r.Error = msg },
		func(req *DeleteRequest) (DeleteResponse, error) {
			return DeleteResponse{}, rss.actualStorage.Delete(req.Key)
		})
}

func (rss *RemoteStorageService) handleBatchPut(s network.Stream) {
	handleStream(s,
		func(r *BatchPutResponse, msg string) { r.Error = msg },
		func(req *BatchPutRequest) (BatchPutResponse, error) {
			return BatchPutResponse{}, rss.actualStorage.BatchPut(req.KVS)
		})
}

func (rss *RemoteStorageService) handleBatchDelete(s network.Stream) {
	handleStream(s,
		func(r *BatchDeleteResponse, msg string) { r.Error = msg },
		func(req *BatchDeleteRequest) (BatchDeleteResponse, error) {
			return BatchDeleteResponse{}, rss.actualStorage.BatchDelete(req.Keys)
		})
}

func (rss *RemoteStorageService) handleGetAllKeys(s network.Stream) {
	handleStream(s,
		func(r *GetAllKeysResponse, msg string) { r.Error = msg },
		func(req *GetAllKeysRequest) (GetAllKeysResponse, error) {
			keys, err := rss.actualStorage.GetAllKeys()
			return GetAllKeysResponse{Keys: keys}, err
		})
}

func (rss *RemoteStorageService) handleGetBackupPath(s network.Stream) {
	handleStream(s,
		func(r *GetBackupPathResponse, msg string) { r.Error = msg },
		func(req *GetBackupPathRequest) (GetBackupPathResponse, error) {
			return GetBackupPathResponse{Path: rss.actualStorage.GetBackupPath()}, nil
		})
}
