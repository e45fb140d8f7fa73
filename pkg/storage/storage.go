package storage

import "fmt"

const (
	STORAGE_TYPE_LEVEL_DB  = "level"
	STORAGE_TYPE_BADGER_DB = "badger"
	STORAGE_TYPE_MEMORY_DB = "memory"
)

// Storage is the key-value backend the oracle archive writes through.
type Storage interface {
	Get([]byte) ([]byte, error)
	Put([]byte, []byte) error
	Has([]byte) bool
	Delete([]byte) error
	BatchPut([][2][]byte) error
	BatchDelete(keys [][]byte) error
	GetAllKeys() ([]string, error)
	GetBackupPath() string
	Open() error
	Close() error
}

// LoadDB opens a storage backend by type name.
func LoadDB(dbPath string, dbType string) (Storage, error) {
	switch dbType {
	case STORAGE_TYPE_MEMORY_DB:
		return NewMemoryDB(), nil
	case STORAGE_TYPE_BADGER_DB:
		return NewBadgerDB(dbPath)
	case STORAGE_TYPE_LEVEL_DB:
		return NewLevelDB(dbPath)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", dbType)
	}
}
