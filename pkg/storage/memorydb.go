package storage

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

type MemoryDB struct {
	db map[string][]byte
	sync.RWMutex
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		db: make(map[string][]byte),
	}
}

func (kv *MemoryDB) Get(key []byte) ([]byte, error) {
	kv.RLock()
	defer kv.RUnlock()
	if v, ok := kv.db[string(key)]; ok {
		value := make([]byte, len(v))
		copy(value, v)
		return value, nil
	}
	return nil, fmt.Errorf("[MemKV] key not found: %s", hex.EncodeToString(key))
}

func (kv *MemoryDB) Put(key, value []byte) error {
	kv.Lock()
	defer kv.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	kv.db[string(key)] = stored
	return nil
}

func (kv *MemoryDB) Has(key []byte) bool {
	kv.RLock()
	defer kv.RUnlock()
	_, ok := kv.db[string(key)]
	return ok
}

func (kv *MemoryDB) Delete(key []byte) error {
	kv.Lock()
	defer kv.Unlock()
	if _, ok := kv.db[string(key)]; !ok {
		return fmt.Errorf("[MemKV] key not found: %s", hex.EncodeToString(key))
	}
	delete(kv.db, string(key))
	return nil
}

func (kv *MemoryDB) BatchPut(kvs [][2][]byte) error {
	for i := range kvs {
		kv.Put(kvs[i][0], kvs[i][1])
	}
	return nil
}

func (kv *MemoryDB) BatchDelete(keys [][]byte) error {
	kv.Lock()
	defer kv.Unlock()
	for _, key := range keys {
		delete(kv.db, string(key))
	}
	return nil
}

func (kv *MemoryDB) GetAllKeys() ([]string, error) {
	kv.RLock()
	defer kv.RUnlock()
	keys := make([]string, 0, len(kv.db))
	for key := range kv.db {
		keys = append(keys, hex.EncodeToString([]byte(key)))
	}
	sort.Strings(keys)
	return keys, nil
}

func (kv *MemoryDB) GetBackupPath() string {
	return ""
}

func (kv *MemoryDB) Size() int {
	kv.RLock()
	defer kv.RUnlock()
	return len(kv.db)
}

func (kv *MemoryDB) Open() error {
	return nil
}

func (kv *MemoryDB) Close() error {
	return nil
}
