package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	cp "github.com/otiai10/copy"

	"github.com/meta-node-blockchain/meta-oracle/pkg/logger"
)

type BadgerDB struct {
	db     *badger.DB
	path   string
	closed bool
	mu     sync.Mutex
	stopGC chan struct{}
}

func NewBadgerDB(path string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	bdb := &BadgerDB{
		db:     db,
		path:   path,
		stopGC: make(chan struct{}),
	}

	// Value log GC runs until Close.
	go bdb.runGC(bdb.stopGC)

	return bdb, nil
}

func (bdb *BadgerDB) runGC(stop chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			bdb.db.RunValueLogGC(0.7)
		case <-stop:
			return
		}
	}
}

func (bdb *BadgerDB) Get(key []byte) ([]byte, error) {
	if bdb.isClosed() {
		return nil, errors.New("database is closed")
	}

	var value []byte
	err := bdb.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, fmt.Errorf("[BadgerKV] key not found: %s", hex.EncodeToString(key))
		}
		return nil, err
	}
	return value, nil
}

func (bdb *BadgerDB) Put(key, value []byte) error {
	if bdb.isClosed() {
		return errors.New("database is closed")
	}
	return bdb.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (bdb *BadgerDB) Has(key []byte) bool {
	if bdb.isClosed() {
		return false
	}
	err := bdb.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	return err == nil
}

func (bdb *BadgerDB) Delete(key []byte) error {
	if bdb.isClosed() {
		return errors.New("database is closed")
	}
	return bdb.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (bdb *BadgerDB) BatchPut(kvs [][2][]byte) error {
	if bdb.isClosed() {
		return errors.New("database is closed")
	}
	wb := bdb.db.NewWriteBatch()
	defer wb.Cancel()
	for _, kv := range kvs {
		if err := wb.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to set key %s: %w", hex.EncodeToString(kv[0]), err)
		}
	}
	return wb.Flush()
}

func (bdb *BadgerDB) BatchDelete(keys [][]byte) error {
	if bdb.isClosed() {
		return errors.New("database is closed")
	}
	wb := bdb.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", hex.EncodeToString(key), err)
		}
	}
	return wb.Flush()
}

func (bdb *BadgerDB) GetAllKeys() ([]string, error) {
	if bdb.isClosed() {
		return nil, errors.New("database is closed")
	}
	var keys []string
	err := bdb.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, hex.EncodeToString(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// GetBackupPath returns the directory backups are copied into.
func (bdb *BadgerDB) GetBackupPath() string {
	return bdb.path + "_backup"
}

// Backup copies the whole database directory to the backup path. The store
// is flattened first so the copy is consistent.
func (bdb *BadgerDB) Backup() error {
	bdb.mu.Lock()
	defer bdb.mu.Unlock()
	if bdb.closed {
		return errors.New("database is closed")
	}
	if err := bdb.db.Sync(); err != nil {
		return fmt.Errorf("sync before backup failed: %w", err)
	}
	dst := bdb.GetBackupPath()
	if err := cp.Copy(bdb.path, dst); err != nil {
		return fmt.Errorf("backup copy failed: %w", err)
	}
	logger.Info("BadgerDB backup written to %s", dst)
	return nil
}

func (bdb *BadgerDB) Compact() error {
	err := bdb.db.RunValueLogGC(0.5)
	if err != nil && err != badger.ErrNoRewrite {
		return fmt.Errorf("GC failed: %w", err)
	}
	return nil
}

func (bdb *BadgerDB) Open() error {
	bdb.mu.Lock()
	defer bdb.mu.Unlock()
	if !bdb.closed {
		return nil
	}
	opts := badger.DefaultOptions(bdb.path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to reopen BadgerDB: %w", err)
	}
	bdb.db = db
	bdb.closed = false
	bdb.stopGC = make(chan struct{})
	go bdb.runGC(bdb.stopGC)
	return nil
}

func (bdb *BadgerDB) Close() error {
	bdb.mu.Lock()
	defer bdb.mu.Unlock()
	if bdb.closed {
		return nil
	}
	close(bdb.stopGC)
	bdb.closed = true
	return bdb.db.Close()
}

func (bdb *BadgerDB) isClosed() bool {
	bdb.mu.Lock()
	defer bdb.mu.Unlock()
	return bdb.closed
}
