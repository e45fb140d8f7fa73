package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	cp "github.com/otiai10/copy"
	"github.com/syndtr/goleveldb/leveldb"
	lverrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
)

type LevelDB struct {
	db     *leveldb.DB
	path   string
	closed bool
	mu     sync.Mutex
}

func NewLevelDB(path string) (*LevelDB, error) {
	options := &opt.Options{
		BlockCacheCapacity: 8 * opt.MiB,
	}
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB: %w", err)
	}
	return &LevelDB{
		db:   db,
		path: path,
	}, nil
}

func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	if ldb.isClosed() {
		return nil, errors.New("database is closed")
	}
	value, err := ldb.db.Get(key, nil)
	if err != nil {
		if err == lverrors.ErrNotFound {
			return nil, fmt.Errorf("[LevelKV] key not found: %s", hex.EncodeToString(key))
		}
		return nil, err
	}
	return value, nil
}

func (ldb *LevelDB) Put(key, value []byte) error {
	if ldb.isClosed() {
		return errors.New("database is closed")
	}
	return ldb.db.Put(key, value, nil)
}

func (ldb *LevelDB) Has(key []byte) bool {
	if ldb.isClosed() {
		return false
	}
	ok, err := ldb.db.Has(key, nil)
	return err == nil && ok
}

func (ldb *LevelDB) Delete(key []byte) error {
	if ldb.isClosed() {
		return errors.New("database is closed")
	}
	return ldb.db.Delete(key, nil)
}

func (ldb *LevelDB) BatchPut(kvs [][2][]byte) error {
	if ldb.isClosed() {
		return errors.New("database is closed")
	}
	batch := new(leveldb.Batch)
	for _, kv := range kvs {
		batch.Put(kv[0], kv[1])
	}
	return ldb.db.Write(batch, nil)
}

func (ldb *LevelDB) BatchDelete(keys [][]byte) error {
	if ldb.isClosed() {
		return errors.New("database is closed")
	}
	batch := new(leveldb.Batch)
	for _, key := range keys {
		batch.Delete(key)
	}
	return ldb.db.Write(batch, nil)
}

func (ldb *LevelDB) GetAllKeys() ([]string, error) {
	if ldb.isClosed() {
		return nil, errors.New("database is closed")
	}
	var keys []string
	iter := ldb.db.NewIterator(&util.Range{}, nil)
	defer iter.Release()
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		keys = append(keys, hex.EncodeToString(key))
	}
	return keys, iter.Error()
}

func (ldb *LevelDB) GetBackupPath() string {
	return ldb.path + "_backup"
}

// Backup copies the database directory to the backup path.
func (ldb *LevelDB) Backup() error {
	ldb.mu.Lock()
	defer ldb.mu.Unlock()
	if ldb.closed {
		return errors.New("database is closed")
	}
	dst := ldb.GetBackupPath()
	if err := cp.Copy(ldb.path, dst); err != nil {
		return fmt.Errorf("backup copy failed: %w", err)
	}
	logger.Info("LevelDB backup written to %s", dst)
	return nil
}

func (ldb *LevelDB) Open() error {
	ldb.mu.Lock()
	defer ldb.mu.Unlock()
	if !ldb.closed {
		return nil
	}
	db, err := leveldb.OpenFile(ldb.path, &opt.Options{BlockCacheCapacity: 8 * opt.MiB})
	if err != nil {
		return fmt.Errorf("failed to reopen LevelDB: %w", err)
	}
	ldb.db = db
	ldb.closed = false
	return nil
}

func (ldb *LevelDB) Close() error {
	ldb.mu.Lock()
	defer ldb.mu.Unlock()
	if ldb.closed {
		return nil
	}
	ldb.closed = true
	return ldb.db.Close()
}

func (ldb *LevelDB) isClosed() bool {
	ldb.mu.Lock()
	defer ldb.mu.Unlock()
	return ldb.closed
}
