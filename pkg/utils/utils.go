package utils

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Uint64ToBytes converts a uint64 to a big-endian byte array.
func Uint64ToBytes(value uint64) []byte {
	bytes := make([]byte, 8)
	binary.BigEndian.PutUint64(bytes, value)
	return bytes
}

// BytesToUint64 converts a byte array to a uint64.
func BytesToUint64(bytes []byte) (uint64, error) {
	if len(bytes) != 8 {
		return 0, fmt.Errorf("byte array must be 8 bytes long")
	}
	return binary.BigEndian.Uint64(bytes), nil
}

// PrefixedKey builds a storage key from a string prefix and a 32-byte id.
func PrefixedKey(prefix string, id common.Hash) []byte {
	key := make([]byte, 0, len(prefix)+common.HashLength)
	key = append(key, prefix...)
	key = append(key, id.Bytes()...)
	return key
}

// CloneAmount returns an independent copy of an amount, treating nil as zero.
func CloneAmount(amount *uint256.Int) *uint256.Int {
	if amount == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(amount)
}
